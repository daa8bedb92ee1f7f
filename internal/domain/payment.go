// internal/domain/payment.go
package domain

import (
	"time"
)

type PaymentStatus string

const (
	PaymentStatusIdle       PaymentStatus = "idle"
	PaymentStatusProcessing PaymentStatus = "processing"
	PaymentStatusPending    PaymentStatus = "pending"
	PaymentStatusSuccess    PaymentStatus = "success"
	PaymentStatusFailed     PaymentStatus = "failed"
	PaymentStatusCancelled  PaymentStatus = "cancelled"
	PaymentStatusTimeout    PaymentStatus = "timeout"
)

// IsTerminal reports whether the status is a sink: once a payment reaches a
// terminal status it is surfaced to the caller as final and must never change.
func (s PaymentStatus) IsTerminal() bool {
	switch s {
	case PaymentStatusSuccess, PaymentStatusFailed, PaymentStatusCancelled, PaymentStatusTimeout:
		return true
	}
	return false
}

// Amount limits enforced by M-Pesa for CustomerPayBillOnline, in KES.
const (
	MinAmount = 1
	MaxAmount = 150000
)

// PaymentRequest is the caller's input for one payment attempt. PhoneNumber
// is raw user input; it is normalized during validation, not here.
type PaymentRequest struct {
	PhoneNumber      string `json:"phone_number"`
	Amount           int    `json:"amount"`
	AccountReference string `json:"account_reference"`
	TransactionDesc  string `json:"transaction_desc"`
}

// Validate checks the request without touching the network. Reference length
// is deliberately unchecked here: the provider client truncates it silently.
func (r *PaymentRequest) Validate() error {
	if r.PhoneNumber == "" {
		return &ValidationError{Field: "phone_number", Reason: "is required"}
	}
	if r.Amount == 0 {
		return &ValidationError{Field: "amount", Reason: "is required"}
	}
	if r.AccountReference == "" {
		return &ValidationError{Field: "account_reference", Reason: "is required"}
	}
	if r.Amount < MinAmount || r.Amount > MaxAmount {
		return &ValidationError{Field: "amount", Reason: "must be between KES 1 and KES 150,000"}
	}
	if _, err := NormalizePhone(r.PhoneNumber); err != nil {
		return err
	}
	return nil
}

// Payment is the persisted record of one payment attempt. The authoritative
// in-flight state lives in the session manager; this row is what survives it.
type Payment struct {
	ID                int64         `json:"id" db:"id"`
	PaymentRef        string        `json:"payment_ref" db:"payment_ref"`
	AccountReference  string        `json:"account_reference" db:"account_reference"`
	PhoneNumber       string        `json:"phone_number" db:"phone_number"`
	Amount            int           `json:"amount" db:"amount"`
	MerchantRequestID *string       `json:"merchant_request_id,omitempty" db:"merchant_request_id"`
	CheckoutRequestID *string       `json:"checkout_request_id,omitempty" db:"checkout_request_id"`
	Status            PaymentStatus `json:"status" db:"status"`
	ResultCode        *string       `json:"result_code,omitempty" db:"result_code"`
	ResultDescription *string       `json:"result_description,omitempty" db:"result_description"`
	MpesaReceipt      *string       `json:"mpesa_receipt,omitempty" db:"mpesa_receipt"`
	TransactionDate   *string       `json:"transaction_date,omitempty" db:"transaction_date"`
	ErrorMessage      *string       `json:"error_message,omitempty" db:"error_message"`
	CreatedAt         time.Time     `json:"created_at" db:"created_at"`
	UpdatedAt         time.Time     `json:"updated_at" db:"updated_at"`
	CompletedAt       *time.Time    `json:"completed_at,omitempty" db:"completed_at"`
}

// PaymentOutcome is the terminal result of a payment attempt as reported by
// the provider, either through the callback or through a status query.
type PaymentOutcome struct {
	Status            PaymentStatus
	ResultCode        string
	ResultDescription string
	MpesaReceipt      string
	TransactionDate   string
	Amount            float64
	PhoneNumber       string
}
