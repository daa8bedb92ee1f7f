// internal/usecase/callback_usecase.go
package usecase

import (
	"context"
	"fmt"

	"loanpay-service/internal/domain"
	"loanpay-service/internal/provider/daraja"

	"go.uber.org/zap"
)

// CallbackUsecase processes asynchronous STK callbacks from the provider.
// It never influences the acknowledgement sent back to the provider; the
// handler always acks, whatever happens here.
type CallbackUsecase struct {
	paymentUC *PaymentUsecase
	logger    *zap.Logger
}

func NewCallbackUsecase(paymentUC *PaymentUsecase, logger *zap.Logger) *CallbackUsecase {
	return &CallbackUsecase{
		paymentUC: paymentUC,
		logger:    logger,
	}
}

// ProcessSTKCallback parses the callback envelope and resolves the matching
// session. Redelivered callbacks for an already-terminal session are
// idempotent no-ops.
func (uc *CallbackUsecase) ProcessSTKCallback(ctx context.Context, payload []byte) error {
	result, err := daraja.ParseSTKCallback(payload)
	if err != nil {
		return fmt.Errorf("failed to parse STK callback: %w", err)
	}

	uc.logger.Info("STK callback received",
		zap.String("checkout_request_id", result.CheckoutRequestID),
		zap.String("merchant_request_id", result.MerchantRequestID),
		zap.String("result_code", result.ResultCode),
		zap.Bool("success", result.Success))

	var outcome domain.PaymentOutcome
	if result.Success {
		outcome = domain.PaymentOutcome{
			Status:            domain.PaymentStatusSuccess,
			ResultCode:        result.ResultCode,
			ResultDescription: "Payment completed successfully",
			MpesaReceipt:      result.MpesaReceipt,
			TransactionDate:   result.TransactionDate,
			Amount:            result.Amount,
			PhoneNumber:       result.PhoneNumber,
		}
	} else {
		status, message := daraja.ResultStatus(result.ResultCode, result.ResultDesc)
		outcome = domain.PaymentOutcome{
			Status:            status,
			ResultCode:        result.ResultCode,
			ResultDescription: message,
		}
	}

	applied := uc.paymentUC.Resolve(ctx, result.CheckoutRequestID, &outcome)
	if !applied {
		uc.logger.Info("duplicate or late STK callback ignored",
			zap.String("checkout_request_id", result.CheckoutRequestID),
			zap.String("result_code", result.ResultCode))
	}

	return nil
}
