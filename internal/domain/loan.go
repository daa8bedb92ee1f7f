// internal/domain/loan.go
package domain

import (
	"fmt"
	"math"
	"math/rand"
	"time"
)

// Qualified amounts per loan product, in KES. This is a static marketing
// table, not a credit decision.
var loanAmounts = map[string]int{
	"personal":         15000,
	"business":         35000,
	"emergency":        10000,
	"education":        25000,
	"medical":          20000,
	"home-improvement": 30000,
	"agriculture":      40000,
	"motorcycle":       22200,
}

const (
	defaultLoanAmount   = 15000
	verificationFeeRate = 0.007
	loanInterestRate    = 10
	loanRepaymentMonths = 2
)

// LoanApplication is a persisted loan inquiry together with the quoted terms.
type LoanApplication struct {
	ID              int64     `json:"id" db:"id"`
	TrackingID      string    `json:"tracking_id" db:"tracking_id"`
	FullName        string    `json:"full_name" db:"full_name"`
	PhoneNumber     string    `json:"phone_number" db:"phone_number"`
	NationalID      string    `json:"national_id" db:"national_id"`
	LoanType        string    `json:"loan_type" db:"loan_type"`
	QualifiedAmount int       `json:"qualified_amount" db:"qualified_amount"`
	VerificationFee int       `json:"verification_fee" db:"verification_fee"`
	InterestRate    int       `json:"interest_rate" db:"interest_rate"`
	RepaymentMonths int       `json:"repayment_months" db:"repayment_months"`
	CreatedAt       time.Time `json:"created_at" db:"created_at"`
}

// LoanApplicationRequest is the applicant's form input.
type LoanApplicationRequest struct {
	FullName    string `json:"full_name"`
	PhoneNumber string `json:"phone_number"`
	NationalID  string `json:"national_id"`
	LoanType    string `json:"loan_type"`
}

func (r *LoanApplicationRequest) Validate() error {
	if r.FullName == "" {
		return &ValidationError{Field: "full_name", Reason: "is required"}
	}
	if r.PhoneNumber == "" {
		return &ValidationError{Field: "phone_number", Reason: "is required"}
	}
	if r.NationalID == "" {
		return &ValidationError{Field: "national_id", Reason: "is required"}
	}
	if r.LoanType == "" {
		return &ValidationError{Field: "loan_type", Reason: "is required"}
	}
	if _, err := NormalizePhone(r.PhoneNumber); err != nil {
		return err
	}
	return nil
}

// QualifiedAmount looks up the quoted loan amount for a product. Unknown
// products fall back to the base personal amount.
func QualifiedAmount(loanType string) int {
	if amount, ok := loanAmounts[loanType]; ok {
		return amount
	}
	return defaultLoanAmount
}

// VerificationFee computes the fee charged to verify the applicant's M-Pesa
// line, 0.7% of the qualified amount rounded to the nearest shilling.
func VerificationFee(qualifiedAmount int) int {
	return int(math.Round(float64(qualifiedAmount) * verificationFeeRate))
}

// NewLoanApplication builds the quoted application for a validated request.
func NewLoanApplication(req *LoanApplicationRequest) *LoanApplication {
	amount := QualifiedAmount(req.LoanType)
	return &LoanApplication{
		TrackingID:      newTrackingID(),
		FullName:        req.FullName,
		PhoneNumber:     req.PhoneNumber,
		NationalID:      req.NationalID,
		LoanType:        req.LoanType,
		QualifiedAmount: amount,
		VerificationFee: VerificationFee(amount),
		InterestRate:    loanInterestRate,
		RepaymentMonths: loanRepaymentMonths,
	}
}

// newTrackingID generates references like LON-C483920L1234567: six random
// digits plus the trailing seven digits of the current unix-millis clock.
func newTrackingID() string {
	millis := fmt.Sprintf("%d", time.Now().UnixMilli())
	if len(millis) > 7 {
		millis = millis[len(millis)-7:]
	}
	return fmt.Sprintf("LON-C%06dL%s", rand.Intn(1000000), millis)
}
