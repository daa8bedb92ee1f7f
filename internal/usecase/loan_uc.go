// internal/usecase/loan_usecase.go
package usecase

import (
	"context"
	"fmt"

	"loanpay-service/internal/domain"
	"loanpay-service/internal/repository"

	"go.uber.org/zap"
)

// LoanUsecase quotes loan applications against the static marketing table
// and persists them so the verification-fee payment can reference them.
type LoanUsecase struct {
	loanRepo repository.LoanRepository
	logger   *zap.Logger
}

func NewLoanUsecase(loanRepo repository.LoanRepository, logger *zap.Logger) *LoanUsecase {
	return &LoanUsecase{
		loanRepo: loanRepo,
		logger:   logger,
	}
}

// Apply validates the applicant's form, quotes the loan and stores the
// application under a fresh tracking ID.
func (uc *LoanUsecase) Apply(ctx context.Context, req *domain.LoanApplicationRequest) (*domain.LoanApplication, error) {
	if err := req.Validate(); err != nil {
		uc.logger.Warn("loan application validation failed", zap.Error(err))
		return nil, err
	}

	application := domain.NewLoanApplication(req)

	if err := uc.loanRepo.Create(ctx, application); err != nil {
		uc.logger.Error("failed to create loan application",
			zap.String("tracking_id", application.TrackingID),
			zap.Error(err))
		return nil, fmt.Errorf("failed to create loan application: %w", err)
	}

	uc.logger.Info("loan application created",
		zap.String("tracking_id", application.TrackingID),
		zap.String("loan_type", application.LoanType),
		zap.Int("qualified_amount", application.QualifiedAmount),
		zap.Int("verification_fee", application.VerificationFee))

	return application, nil
}

// Lookup fetches a quoted application by its tracking ID.
func (uc *LoanUsecase) Lookup(ctx context.Context, trackingID string) (*domain.LoanApplication, error) {
	return uc.loanRepo.GetByTrackingID(ctx, trackingID)
}
