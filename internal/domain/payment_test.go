package domain

import (
	"testing"

	"github.com/stretchr/testify/require"
)

func validRequest() *PaymentRequest {
	return &PaymentRequest{
		PhoneNumber:      "712345678",
		Amount:           100,
		AccountReference: "LOAN123",
		TransactionDesc:  "Fee",
	}
}

func TestPaymentRequestValidateAmountBoundaries(t *testing.T) {
	req := validRequest()

	req.Amount = MinAmount
	require.NoError(t, req.Validate())

	req.Amount = MaxAmount
	require.NoError(t, req.Validate())

	req.Amount = 0
	err := req.Validate()
	var ve *ValidationError
	require.ErrorAs(t, err, &ve)

	req.Amount = MaxAmount + 1
	err = req.Validate()
	require.ErrorAs(t, err, &ve)
	require.Equal(t, "amount", ve.Field)
}

func TestPaymentRequestValidateMissingFields(t *testing.T) {
	var ve *ValidationError

	req := validRequest()
	req.PhoneNumber = ""
	require.ErrorAs(t, req.Validate(), &ve)
	require.Equal(t, "phone_number", ve.Field)

	req = validRequest()
	req.AccountReference = ""
	require.ErrorAs(t, req.Validate(), &ve)
	require.Equal(t, "account_reference", ve.Field)

	req = validRequest()
	req.PhoneNumber = "0812345678"
	require.ErrorAs(t, req.Validate(), &ve)
	require.Equal(t, "phone_number", ve.Field)
}

func TestPaymentRequestReferenceLengthUnchecked(t *testing.T) {
	// Long references are not a validation error at this layer; the
	// provider client truncates them silently.
	req := validRequest()
	req.AccountReference = "ABCDEFGHIJKLMNOPQRST"
	require.NoError(t, req.Validate())
}

func TestPaymentStatusIsTerminal(t *testing.T) {
	terminal := []PaymentStatus{PaymentStatusSuccess, PaymentStatusFailed, PaymentStatusCancelled, PaymentStatusTimeout}
	for _, s := range terminal {
		require.True(t, s.IsTerminal(), "status %s", s)
	}

	for _, s := range []PaymentStatus{PaymentStatusIdle, PaymentStatusProcessing, PaymentStatusPending} {
		require.False(t, s.IsTerminal(), "status %s", s)
	}
}
