// internal/provider/daraja/status.go
package daraja

import (
	"fmt"

	"loanpay-service/internal/domain"
)

// resultStatus maps a provider result code onto a terminal payment status
// and a user-facing message. The codes are Safaricom's, mapped verbatim.
var resultStatuses = map[string]struct {
	status  domain.PaymentStatus
	message string
}{
	"0":    {domain.PaymentStatusSuccess, "The service request is processed successfully"},
	"1032": {domain.PaymentStatusCancelled, "Request cancelled by user"},
	"1037": {domain.PaymentStatusTimeout, "DS timeout user cannot be reached"},
	"2001": {domain.PaymentStatusFailed, "Wrong PIN entered"},
	"1001": {domain.PaymentStatusFailed, "Unable to lock subscriber"},
	"1019": {domain.PaymentStatusFailed, "Transaction expired"},
	"1025": {domain.PaymentStatusFailed, "Unable to load subscriber"},
	"1036": {domain.PaymentStatusFailed, "Transaction expired"},
}

// ResultStatus resolves a result code into a terminal status and message.
// Unknown non-zero codes resolve to a generic failure carrying the
// provider's own description when one was given.
func ResultStatus(resultCode, resultDesc string) (domain.PaymentStatus, string) {
	if mapped, ok := resultStatuses[resultCode]; ok {
		return mapped.status, mapped.message
	}
	if resultDesc != "" {
		return domain.PaymentStatusFailed, resultDesc
	}
	return domain.PaymentStatusFailed, fmt.Sprintf("Unknown error occurred (Code: %s)", resultCode)
}
