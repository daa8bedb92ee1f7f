// internal/repository/loan_repository.go
package repository

import (
	"context"
	"errors"

	"loanpay-service/internal/domain"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"
)

type LoanRepository interface {
	Create(ctx context.Context, application *domain.LoanApplication) error
	GetByTrackingID(ctx context.Context, trackingID string) (*domain.LoanApplication, error)
}

type loanRepo struct {
	db *pgxpool.Pool
}

func NewLoanRepository(db *pgxpool.Pool) LoanRepository {
	return &loanRepo{db: db}
}

func (r *loanRepo) Create(ctx context.Context, application *domain.LoanApplication) error {
	query := `
        INSERT INTO loan_applications (
            tracking_id, full_name, phone_number, national_id, loan_type,
            qualified_amount, verification_fee, interest_rate, repayment_months
        ) VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9)
        RETURNING id, created_at
    `

	return r.db.QueryRow(ctx, query,
		application.TrackingID,
		application.FullName,
		application.PhoneNumber,
		application.NationalID,
		application.LoanType,
		application.QualifiedAmount,
		application.VerificationFee,
		application.InterestRate,
		application.RepaymentMonths,
	).Scan(&application.ID, &application.CreatedAt)
}

func (r *loanRepo) GetByTrackingID(ctx context.Context, trackingID string) (*domain.LoanApplication, error) {
	query := `
        SELECT
            id, tracking_id, full_name, phone_number, national_id, loan_type,
            qualified_amount, verification_fee, interest_rate, repayment_months,
            created_at
        FROM loan_applications
        WHERE tracking_id = $1
    `

	var application domain.LoanApplication
	err := r.db.QueryRow(ctx, query, trackingID).Scan(
		&application.ID,
		&application.TrackingID,
		&application.FullName,
		&application.PhoneNumber,
		&application.NationalID,
		&application.LoanType,
		&application.QualifiedAmount,
		&application.VerificationFee,
		&application.InterestRate,
		&application.RepaymentMonths,
		&application.CreatedAt,
	)

	if errors.Is(err, pgx.ErrNoRows) {
		return nil, ErrNotFound
	}
	if err != nil {
		return nil, err
	}

	return &application, nil
}
