// internal/handler/payment_handler.go
package handler

import (
	"encoding/json"
	"errors"
	"net/http"

	"loanpay-service/internal/domain"
	"loanpay-service/internal/provider/daraja"
	"loanpay-service/internal/usecase"

	"github.com/go-chi/chi/v5"
	"go.uber.org/zap"
)

type PaymentHandler struct {
	paymentUC *usecase.PaymentUsecase
	logger    *zap.Logger
}

func NewPaymentHandler(paymentUC *usecase.PaymentUsecase, logger *zap.Logger) *PaymentHandler {
	return &PaymentHandler{
		paymentUC: paymentUC,
		logger:    logger,
	}
}

type retryRequest struct {
	domain.PaymentRequest
	PriorCheckoutRequestID string `json:"prior_checkout_request_id"`
}

// HandleInitiatePayment starts a verification-fee payment attempt.
func (h *PaymentHandler) HandleInitiatePayment(w http.ResponseWriter, r *http.Request) {
	var req domain.PaymentRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		h.logger.Error("failed to decode payment request", zap.Error(err))
		h.sendError(w, http.StatusBadRequest, "invalid request body", err)
		return
	}

	snapshot, err := h.paymentUC.InitiatePayment(r.Context(), &req)
	if err != nil {
		h.respondInitiationError(w, err)
		return
	}

	h.sendSuccess(w, http.StatusOK, "STK push sent successfully", snapshot)
}

// HandleRetryPayment discards any prior session and re-initiates.
func (h *PaymentHandler) HandleRetryPayment(w http.ResponseWriter, r *http.Request) {
	var req retryRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		h.logger.Error("failed to decode retry request", zap.Error(err))
		h.sendError(w, http.StatusBadRequest, "invalid request body", err)
		return
	}

	snapshot, err := h.paymentUC.RetryPayment(r.Context(), &req.PaymentRequest, req.PriorCheckoutRequestID)
	if err != nil {
		h.respondInitiationError(w, err)
		return
	}

	h.sendSuccess(w, http.StatusOK, "STK push sent successfully", snapshot)
}

// HandlePaymentStatus reports the current session state with the derived
// progress booleans the front end consumes.
func (h *PaymentHandler) HandlePaymentStatus(w http.ResponseWriter, r *http.Request) {
	checkoutRequestID := chi.URLParam(r, "checkout_request_id")

	snapshot, err := h.paymentUC.Status(r.Context(), checkoutRequestID)
	if errors.Is(err, usecase.ErrSessionNotFound) {
		h.sendError(w, http.StatusNotFound, "payment session not found", nil)
		return
	}
	if err != nil {
		h.logger.Error("failed to fetch payment status",
			zap.String("checkout_request_id", checkoutRequestID),
			zap.Error(err))
		h.sendError(w, http.StatusInternalServerError, "failed to fetch payment status", nil)
		return
	}

	h.sendSuccess(w, http.StatusOK, "payment status", snapshot)
}

// HandleAbandonPayment stops polling for a session the caller walked away
// from.
func (h *PaymentHandler) HandleAbandonPayment(w http.ResponseWriter, r *http.Request) {
	checkoutRequestID := chi.URLParam(r, "checkout_request_id")

	if err := h.paymentUC.Abandon(checkoutRequestID); err != nil {
		h.sendError(w, http.StatusNotFound, "payment session not found", nil)
		return
	}

	h.sendSuccess(w, http.StatusOK, "payment session abandoned", nil)
}

// respondInitiationError maps the provider error taxonomy onto HTTP
// statuses. Raw provider detail stays in the server logs; callers get a
// user-safe message.
func (h *PaymentHandler) respondInitiationError(w http.ResponseWriter, err error) {
	var ve *domain.ValidationError
	switch {
	case errors.As(err, &ve):
		h.sendError(w, http.StatusBadRequest, ve.Error(), nil)
	case errors.Is(err, daraja.ErrBadRequest):
		h.logger.Warn("provider rejected payment request", zap.Error(err))
		h.sendError(w, http.StatusBadRequest, "payment request was rejected, check the details and try again", nil)
	case errors.Is(err, daraja.ErrAuth):
		h.logger.Error("provider authentication failed", zap.Error(err))
		h.sendError(w, http.StatusServiceUnavailable, "M-Pesa service is temporarily unavailable, please try again later", nil)
	case errors.Is(err, daraja.ErrProviderUnavailable):
		h.logger.Error("provider unavailable", zap.Error(err))
		h.sendError(w, http.StatusBadGateway, "M-Pesa service is temporarily unavailable, please try again later", nil)
	case errors.Is(err, daraja.ErrTransport):
		h.logger.Error("provider transport failure", zap.Error(err))
		h.sendError(w, http.StatusGatewayTimeout, "request timed out, please try again", nil)
	default:
		h.logger.Error("payment initiation failed", zap.Error(err))
		h.sendError(w, http.StatusInternalServerError, "failed to process payment request, please try again", nil)
	}
}

func (h *PaymentHandler) sendSuccess(w http.ResponseWriter, statusCode int, message string, data interface{}) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(statusCode)
	json.NewEncoder(w).Encode(map[string]interface{}{
		"success": true,
		"message": message,
		"data":    data,
	})
}

func (h *PaymentHandler) sendError(w http.ResponseWriter, statusCode int, message string, err error) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(statusCode)

	response := map[string]interface{}{
		"success": false,
		"message": message,
	}
	if err != nil {
		response["error"] = err.Error()
	}

	json.NewEncoder(w).Encode(response)
}
