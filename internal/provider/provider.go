// internal/provider/provider.go
package provider

import (
	"context"

	"loanpay-service/internal/domain"
	"loanpay-service/internal/provider/daraja"
)

// PushPaymentProvider is the surface the payment flow needs from a mobile
// money provider: initiate a push prompt and query its status. The daraja
// client is the production implementation; tests swap in fakes.
type PushPaymentProvider interface {
	// InitiateSTKPush validates and submits a push payment request.
	InitiateSTKPush(ctx context.Context, req *domain.PaymentRequest) (*daraja.STKPushResponse, error)

	// QuerySTKPush fetches the current provider-side state of a request.
	QuerySTKPush(ctx context.Context, checkoutRequestID string) (*daraja.STKQueryResponse, error)
}
