// internal/handler/loan_handler.go
package handler

import (
	"encoding/json"
	"errors"
	"net/http"

	"loanpay-service/internal/domain"
	"loanpay-service/internal/repository"
	"loanpay-service/internal/usecase"

	"github.com/go-chi/chi/v5"
	"go.uber.org/zap"
)

type LoanHandler struct {
	loanUC *usecase.LoanUsecase
	logger *zap.Logger
}

func NewLoanHandler(loanUC *usecase.LoanUsecase, logger *zap.Logger) *LoanHandler {
	return &LoanHandler{
		loanUC: loanUC,
		logger: logger,
	}
}

// HandleLoanApplication quotes a loan for the applicant and returns the
// tracking ID the verification-fee payment will reference.
func (h *LoanHandler) HandleLoanApplication(w http.ResponseWriter, r *http.Request) {
	var req domain.LoanApplicationRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		h.logger.Error("failed to decode loan application", zap.Error(err))
		h.sendError(w, http.StatusBadRequest, "invalid request body")
		return
	}

	application, err := h.loanUC.Apply(r.Context(), &req)
	if err != nil {
		var ve *domain.ValidationError
		if errors.As(err, &ve) {
			h.sendError(w, http.StatusBadRequest, ve.Error())
			return
		}
		h.logger.Error("failed to process loan application", zap.Error(err))
		h.sendError(w, http.StatusInternalServerError, "failed to process loan application")
		return
	}

	h.sendSuccess(w, http.StatusCreated, application)
}

// HandleLoanLookup fetches a quoted application by tracking ID.
func (h *LoanHandler) HandleLoanLookup(w http.ResponseWriter, r *http.Request) {
	trackingID := chi.URLParam(r, "tracking_id")

	application, err := h.loanUC.Lookup(r.Context(), trackingID)
	if errors.Is(err, repository.ErrNotFound) {
		h.sendError(w, http.StatusNotFound, "loan application not found")
		return
	}
	if err != nil {
		h.logger.Error("failed to fetch loan application",
			zap.String("tracking_id", trackingID),
			zap.Error(err))
		h.sendError(w, http.StatusInternalServerError, "failed to fetch loan application")
		return
	}

	h.sendSuccess(w, http.StatusOK, application)
}

func (h *LoanHandler) sendSuccess(w http.ResponseWriter, statusCode int, data interface{}) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(statusCode)
	json.NewEncoder(w).Encode(map[string]interface{}{
		"success": true,
		"data":    data,
	})
}

func (h *LoanHandler) sendError(w http.ResponseWriter, statusCode int, message string) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(statusCode)
	json.NewEncoder(w).Encode(map[string]interface{}{
		"success": false,
		"message": message,
	})
}
