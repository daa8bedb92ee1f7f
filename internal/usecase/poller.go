// internal/usecase/poller.go
package usecase

import (
	"context"
	"time"

	"loanpay-service/internal/domain"
	"loanpay-service/internal/provider/daraja"

	"go.uber.org/zap"
)

const pollTimeoutMessage = "Payment verification timed out. Please check your M-Pesa messages or contact support."

// pollStatus reconciles a pending session by querying the provider until a
// terminal result arrives, the callback beats it to one, or the attempt
// ceiling is reached. Query failures never abort the loop; they just
// lengthen the wait before the next attempt. Every attempt, failed or not,
// counts against the same ceiling.
func (uc *PaymentUsecase) pollStatus(session *domain.Session) {
	checkoutRequestID := session.CheckoutRequestID()
	interval := uc.pollGraceDelay

	for attempt := 1; attempt <= uc.pollMaxAttempts; attempt++ {
		time.Sleep(interval)

		if session.Abandoned() {
			uc.logger.Info("poller stopping, session abandoned",
				zap.String("checkout_request_id", checkoutRequestID),
				zap.Int("attempt", attempt))
			return
		}
		if session.Snapshot().Status.IsTerminal() {
			// The callback got here first.
			return
		}

		uc.logger.Debug("querying payment status",
			zap.String("checkout_request_id", checkoutRequestID),
			zap.Int("attempt", attempt),
			zap.Int("max_attempts", uc.pollMaxAttempts))

		response, err := uc.provider.QuerySTKPush(context.Background(), checkoutRequestID)
		if err != nil {
			uc.logger.Warn("status query failed, will retry",
				zap.String("checkout_request_id", checkoutRequestID),
				zap.Int("attempt", attempt),
				zap.Error(err))
			interval = uc.pollErrorInterval
			continue
		}
		interval = uc.pollInterval

		// An empty ResultCode means the provider has no outcome yet.
		if response.ResultCode == "" {
			continue
		}

		status, message := daraja.ResultStatus(response.ResultCode, response.ResultDesc)
		uc.Resolve(context.Background(), checkoutRequestID, &domain.PaymentOutcome{
			Status:            status,
			ResultCode:        response.ResultCode,
			ResultDescription: message,
		})
		return
	}

	// Ceiling reached with no resolution. This is a local timeout: the
	// provider may still deliver a late callback, which first-terminal-wins
	// will drop.
	uc.logger.Warn("payment status polling exhausted",
		zap.String("checkout_request_id", checkoutRequestID),
		zap.Int("attempts", uc.pollMaxAttempts))

	uc.Resolve(context.Background(), checkoutRequestID, &domain.PaymentOutcome{
		Status:            domain.PaymentStatusTimeout,
		ResultDescription: pollTimeoutMessage,
	})
}
