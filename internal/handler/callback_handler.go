// internal/handler/callback_handler.go
package handler

import (
	"encoding/json"
	"io"
	"net/http"

	"loanpay-service/internal/usecase"

	"go.uber.org/zap"
)

type CallbackHandler struct {
	callbackUC *usecase.CallbackUsecase
	logger     *zap.Logger
}

func NewCallbackHandler(callbackUC *usecase.CallbackUsecase, logger *zap.Logger) *CallbackHandler {
	return &CallbackHandler{
		callbackUC: callbackUC,
		logger:     logger,
	}
}

// HandleMpesaSTKCallback receives the provider's asynchronous payment
// result. The acknowledgement is always a success: a non-success response
// makes the provider redeliver the callback indefinitely, so internal
// failures are logged and swallowed here.
func (h *CallbackHandler) HandleMpesaSTKCallback(w http.ResponseWriter, r *http.Request) {
	h.logger.Info("received M-Pesa STK callback",
		zap.String("remote_addr", r.RemoteAddr))

	payload, err := io.ReadAll(r.Body)
	if err != nil {
		h.logger.Error("failed to read callback payload", zap.Error(err))
		h.sendCallbackResponse(w)
		return
	}

	if err := h.callbackUC.ProcessSTKCallback(r.Context(), payload); err != nil {
		h.logger.Error("failed to process STK callback",
			zap.Int("payload_size", len(payload)),
			zap.Error(err))
	}

	h.sendCallbackResponse(w)
}

// sendCallbackResponse acknowledges the delivery in the format the provider
// expects.
func (h *CallbackHandler) sendCallbackResponse(w http.ResponseWriter) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(http.StatusOK)

	response := map[string]interface{}{
		"ResultCode": 0,
		"ResultDesc": "Callback processed successfully",
	}

	if err := json.NewEncoder(w).Encode(response); err != nil {
		h.logger.Error("failed to encode callback response", zap.Error(err))
	}
}
