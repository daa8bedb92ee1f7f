// internal/usecase/payment_usecase.go
package usecase

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"time"

	"loanpay-service/internal/domain"
	"loanpay-service/internal/provider"
	"loanpay-service/internal/provider/daraja"
	"loanpay-service/internal/repository"

	"github.com/google/uuid"
	"go.uber.org/zap"
)

// ErrSessionNotFound marks a status lookup for a checkout request this
// service has never seen.
var ErrSessionNotFound = errors.New("payment session not found")

type PaymentUsecase struct {
	paymentRepo repository.PaymentRepository
	provider    provider.PushPaymentProvider
	logger      *zap.Logger

	sessionsMu sync.RWMutex
	sessions   map[string]*domain.Session

	pollGraceDelay    time.Duration
	pollInterval      time.Duration
	pollErrorInterval time.Duration
	pollMaxAttempts   int
}

// Option tunes the polling schedule. Production uses the defaults; tests
// shrink the intervals to milliseconds.
type Option func(*PaymentUsecase)

func WithPollGraceDelay(d time.Duration) Option {
	return func(uc *PaymentUsecase) { uc.pollGraceDelay = d }
}

func WithPollInterval(d time.Duration) Option {
	return func(uc *PaymentUsecase) { uc.pollInterval = d }
}

func WithPollErrorInterval(d time.Duration) Option {
	return func(uc *PaymentUsecase) { uc.pollErrorInterval = d }
}

func WithPollMaxAttempts(n int) Option {
	return func(uc *PaymentUsecase) { uc.pollMaxAttempts = n }
}

func NewPaymentUsecase(
	paymentRepo repository.PaymentRepository,
	pushProvider provider.PushPaymentProvider,
	logger *zap.Logger,
	opts ...Option,
) *PaymentUsecase {
	uc := &PaymentUsecase{
		paymentRepo: paymentRepo,
		provider:    pushProvider,
		logger:      logger,
		sessions:    make(map[string]*domain.Session),

		// The handset needs a few seconds to display the prompt before a
		// query is worth making, then roughly 4 minutes of fixed-interval
		// polling before giving up locally.
		pollGraceDelay:    5 * time.Second,
		pollInterval:      10 * time.Second,
		pollErrorInterval: 15 * time.Second,
		pollMaxAttempts:   24,
	}

	for _, opt := range opts {
		opt(uc)
	}

	return uc
}

// InitiatePayment validates the request, pushes the payment prompt and, if
// the provider acknowledged it, opens a pending session and starts the
// status poller. Validation failures surface synchronously before any
// network call or persisted record.
func (uc *PaymentUsecase) InitiatePayment(ctx context.Context, req *domain.PaymentRequest) (domain.SessionSnapshot, error) {
	if err := req.Validate(); err != nil {
		uc.logger.Warn("payment validation failed",
			zap.String("account_reference", req.AccountReference),
			zap.Error(err))
		return domain.SessionSnapshot{}, err
	}

	payment := &domain.Payment{
		PaymentRef:       uuid.NewString(),
		AccountReference: req.AccountReference,
		PhoneNumber:      req.PhoneNumber,
		Amount:           req.Amount,
		Status:           domain.PaymentStatusProcessing,
	}

	if err := uc.paymentRepo.Create(ctx, payment); err != nil {
		uc.logger.Error("failed to create payment record",
			zap.String("account_reference", req.AccountReference),
			zap.Error(err))
		return domain.SessionSnapshot{}, fmt.Errorf("failed to create payment: %w", err)
	}

	uc.logger.Info("initiating STK push",
		zap.String("payment_ref", payment.PaymentRef),
		zap.String("account_reference", req.AccountReference),
		zap.Int("amount", req.Amount))

	response, err := uc.provider.InitiateSTKPush(ctx, req)
	if err != nil {
		uc.logger.Error("STK push failed",
			zap.String("payment_ref", payment.PaymentRef),
			zap.Error(err))
		_ = uc.paymentRepo.SetError(ctx, payment.ID, err.Error())
		return domain.SessionSnapshot{}, err
	}

	if response.ResponseCode != "0" || response.CheckoutRequestID == "" {
		uc.logger.Warn("STK push rejected by provider",
			zap.String("payment_ref", payment.PaymentRef),
			zap.String("response_code", response.ResponseCode),
			zap.String("response_description", response.ResponseDescription))
		_ = uc.paymentRepo.SetError(ctx, payment.ID, response.ResponseDescription)
		return domain.SessionSnapshot{}, fmt.Errorf("%w: %s", daraja.ErrBadRequest, response.ResponseDescription)
	}

	if err := uc.paymentRepo.MarkPending(ctx, payment.ID, response.MerchantRequestID, response.CheckoutRequestID); err != nil {
		uc.logger.Error("failed to mark payment pending",
			zap.String("payment_ref", payment.PaymentRef),
			zap.Error(err))
	}

	message := response.CustomerMessage
	if message == "" {
		message = "Payment request sent to your phone. Enter your M-Pesa PIN to complete."
	}

	session := domain.NewSession(response.MerchantRequestID, response.CheckoutRequestID, message)

	uc.sessionsMu.Lock()
	uc.sessions[response.CheckoutRequestID] = session
	uc.sessionsMu.Unlock()

	uc.logger.Info("payment session opened",
		zap.String("payment_ref", payment.PaymentRef),
		zap.String("checkout_request_id", response.CheckoutRequestID),
		zap.String("merchant_request_id", response.MerchantRequestID))

	go uc.pollStatus(session)

	return session.Snapshot(), nil
}

// RetryPayment abandons any prior session and re-runs the whole initiation
// from scratch. There is no partial resumption of a failed attempt.
func (uc *PaymentUsecase) RetryPayment(ctx context.Context, req *domain.PaymentRequest, priorCheckoutRequestID string) (domain.SessionSnapshot, error) {
	if priorCheckoutRequestID != "" {
		if session := uc.getSession(priorCheckoutRequestID); session != nil {
			session.Abandon()
			uc.sessionsMu.Lock()
			delete(uc.sessions, priorCheckoutRequestID)
			uc.sessionsMu.Unlock()

			uc.logger.Info("prior payment session discarded for retry",
				zap.String("checkout_request_id", priorCheckoutRequestID))
		}
	}

	return uc.InitiatePayment(ctx, req)
}

// Status returns the caller-visible state of a session. Sessions that have
// already left memory are answered from the persisted record.
func (uc *PaymentUsecase) Status(ctx context.Context, checkoutRequestID string) (domain.SessionSnapshot, error) {
	if session := uc.getSession(checkoutRequestID); session != nil {
		return session.Snapshot(), nil
	}

	payment, err := uc.paymentRepo.GetByCheckoutRequestID(ctx, checkoutRequestID)
	if errors.Is(err, repository.ErrNotFound) {
		return domain.SessionSnapshot{}, ErrSessionNotFound
	}
	if err != nil {
		return domain.SessionSnapshot{}, err
	}

	snapshot := domain.SessionSnapshot{
		CheckoutRequestID: checkoutRequestID,
		Status:            payment.Status,
		InProgress:        !payment.Status.IsTerminal(),
		Complete:          payment.Status == domain.PaymentStatusSuccess,
		Failed:            payment.Status.IsTerminal() && payment.Status != domain.PaymentStatusSuccess,
	}
	if payment.MerchantRequestID != nil {
		snapshot.MerchantRequestID = *payment.MerchantRequestID
	}
	if payment.ResultCode != nil {
		snapshot.ResultCode = *payment.ResultCode
	}
	if payment.ResultDescription != nil {
		snapshot.Message = *payment.ResultDescription
	}

	return snapshot, nil
}

// Abandon stops the poller for a session the caller has navigated away
// from. The provider side is unaffected; a late callback for an abandoned
// session is still recorded.
func (uc *PaymentUsecase) Abandon(checkoutRequestID string) error {
	session := uc.getSession(checkoutRequestID)
	if session == nil {
		return ErrSessionNotFound
	}

	session.Abandon()
	uc.logger.Info("payment session abandoned",
		zap.String("checkout_request_id", checkoutRequestID))
	return nil
}

// Resolve is the single choke point through which both the poller and the
// callback handler record a terminal outcome. The in-memory session applies
// first-terminal-wins; the store enforces the same rule for sessions no
// longer in memory. It returns true when this call won the race.
func (uc *PaymentUsecase) Resolve(ctx context.Context, checkoutRequestID string, outcome *domain.PaymentOutcome) bool {
	applied := true
	if session := uc.getSession(checkoutRequestID); session != nil {
		applied = session.Resolve(outcome.Status, outcome.ResultCode, outcome.ResultDescription)
	}

	if !applied {
		uc.logger.Info("late outcome dropped, session already terminal",
			zap.String("checkout_request_id", checkoutRequestID),
			zap.String("status", string(outcome.Status)),
			zap.String("result_code", outcome.ResultCode))
		return false
	}

	persisted, err := uc.paymentRepo.ResolveOutcome(ctx, checkoutRequestID, outcome)
	if err != nil {
		uc.logger.Error("failed to persist payment outcome",
			zap.String("checkout_request_id", checkoutRequestID),
			zap.String("status", string(outcome.Status)),
			zap.Error(err))
	} else if !persisted {
		uc.logger.Info("payment outcome already persisted",
			zap.String("checkout_request_id", checkoutRequestID))
	}

	uc.logger.Info("payment session resolved",
		zap.String("checkout_request_id", checkoutRequestID),
		zap.String("status", string(outcome.Status)),
		zap.String("result_code", outcome.ResultCode),
		zap.String("mpesa_receipt", outcome.MpesaReceipt))

	return true
}

func (uc *PaymentUsecase) getSession(checkoutRequestID string) *domain.Session {
	uc.sessionsMu.RLock()
	defer uc.sessionsMu.RUnlock()
	return uc.sessions[checkoutRequestID]
}
