// internal/repository/payment_repository.go
package repository

import (
	"context"
	"errors"

	"loanpay-service/internal/domain"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"
)

var ErrNotFound = errors.New("record not found")

type PaymentRepository interface {
	Create(ctx context.Context, payment *domain.Payment) error
	GetByCheckoutRequestID(ctx context.Context, checkoutRequestID string) (*domain.Payment, error)
	MarkPending(ctx context.Context, id int64, merchantRequestID, checkoutRequestID string) error
	SetError(ctx context.Context, id int64, errorMsg string) error
	// ResolveOutcome records a terminal outcome for a payment. The update is
	// conditional on the row not already being terminal, so redelivered
	// callbacks and late poll results are no-ops at the store as well. It
	// returns true when this call applied the outcome.
	ResolveOutcome(ctx context.Context, checkoutRequestID string, outcome *domain.PaymentOutcome) (bool, error)
}

type paymentRepo struct {
	db *pgxpool.Pool
}

func NewPaymentRepository(db *pgxpool.Pool) PaymentRepository {
	return &paymentRepo{db: db}
}

func (r *paymentRepo) Create(ctx context.Context, payment *domain.Payment) error {
	query := `
        INSERT INTO payments (
            payment_ref, account_reference, phone_number, amount,
            merchant_request_id, checkout_request_id, status
        ) VALUES ($1, $2, $3, $4, $5, $6, $7)
        RETURNING id, created_at, updated_at
    `

	return r.db.QueryRow(ctx, query,
		payment.PaymentRef,
		payment.AccountReference,
		payment.PhoneNumber,
		payment.Amount,
		payment.MerchantRequestID,
		payment.CheckoutRequestID,
		payment.Status,
	).Scan(&payment.ID, &payment.CreatedAt, &payment.UpdatedAt)
}

func (r *paymentRepo) GetByCheckoutRequestID(ctx context.Context, checkoutRequestID string) (*domain.Payment, error) {
	query := `
        SELECT
            id, payment_ref, account_reference, phone_number, amount,
            merchant_request_id, checkout_request_id, status,
            result_code, result_description, mpesa_receipt, transaction_date,
            error_message, created_at, updated_at, completed_at
        FROM payments
        WHERE checkout_request_id = $1
    `

	var payment domain.Payment
	err := r.db.QueryRow(ctx, query, checkoutRequestID).Scan(
		&payment.ID,
		&payment.PaymentRef,
		&payment.AccountReference,
		&payment.PhoneNumber,
		&payment.Amount,
		&payment.MerchantRequestID,
		&payment.CheckoutRequestID,
		&payment.Status,
		&payment.ResultCode,
		&payment.ResultDescription,
		&payment.MpesaReceipt,
		&payment.TransactionDate,
		&payment.ErrorMessage,
		&payment.CreatedAt,
		&payment.UpdatedAt,
		&payment.CompletedAt,
	)

	if errors.Is(err, pgx.ErrNoRows) {
		return nil, ErrNotFound
	}
	if err != nil {
		return nil, err
	}

	return &payment, nil
}

func (r *paymentRepo) MarkPending(ctx context.Context, id int64, merchantRequestID, checkoutRequestID string) error {
	query := `
        UPDATE payments
        SET
            merchant_request_id = $1,
            checkout_request_id = $2,
            status = 'pending',
            updated_at = NOW()
        WHERE id = $3
    `

	_, err := r.db.Exec(ctx, query, merchantRequestID, checkoutRequestID, id)
	return err
}

func (r *paymentRepo) SetError(ctx context.Context, id int64, errorMsg string) error {
	query := `
        UPDATE payments
        SET
            error_message = $1,
            status = 'failed',
            updated_at = NOW()
        WHERE id = $2
    `

	_, err := r.db.Exec(ctx, query, errorMsg, id)
	return err
}

func (r *paymentRepo) ResolveOutcome(ctx context.Context, checkoutRequestID string, outcome *domain.PaymentOutcome) (bool, error) {
	query := `
        UPDATE payments
        SET
            status = $1,
            result_code = $2,
            result_description = $3,
            mpesa_receipt = NULLIF($4, ''),
            transaction_date = NULLIF($5, ''),
            completed_at = NOW(),
            updated_at = NOW()
        WHERE checkout_request_id = $6
          AND status NOT IN ('success', 'failed', 'cancelled', 'timeout')
    `

	tag, err := r.db.Exec(ctx, query,
		outcome.Status,
		outcome.ResultCode,
		outcome.ResultDescription,
		outcome.MpesaReceipt,
		outcome.TransactionDate,
		checkoutRequestID,
	)
	if err != nil {
		return false, err
	}

	return tag.RowsAffected() > 0, nil
}
