package handler

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"loanpay-service/internal/domain"
	"loanpay-service/internal/provider/daraja"
	"loanpay-service/internal/repository"
	"loanpay-service/internal/usecase"

	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
)

type stubProvider struct{}

func (stubProvider) InitiateSTKPush(ctx context.Context, req *domain.PaymentRequest) (*daraja.STKPushResponse, error) {
	return &daraja.STKPushResponse{CheckoutRequestID: "ws_CO_1", ResponseCode: "0"}, nil
}

func (stubProvider) QuerySTKPush(ctx context.Context, checkoutRequestID string) (*daraja.STKQueryResponse, error) {
	return &daraja.STKQueryResponse{ResponseCode: "0"}, nil
}

type stubPaymentRepo struct{}

func (stubPaymentRepo) Create(ctx context.Context, payment *domain.Payment) error { return nil }
func (stubPaymentRepo) GetByCheckoutRequestID(ctx context.Context, checkoutRequestID string) (*domain.Payment, error) {
	return nil, repository.ErrNotFound
}
func (stubPaymentRepo) MarkPending(ctx context.Context, id int64, merchantRequestID, checkoutRequestID string) error {
	return nil
}
func (stubPaymentRepo) SetError(ctx context.Context, id int64, errorMsg string) error { return nil }
func (stubPaymentRepo) ResolveOutcome(ctx context.Context, checkoutRequestID string, outcome *domain.PaymentOutcome) (bool, error) {
	return true, nil
}

func newCallbackHandler(t *testing.T) *CallbackHandler {
	t.Helper()
	paymentUC := usecase.NewPaymentUsecase(stubPaymentRepo{}, stubProvider{}, zap.NewNop())
	callbackUC := usecase.NewCallbackUsecase(paymentUC, zap.NewNop())
	return NewCallbackHandler(callbackUC, zap.NewNop())
}

func postCallback(t *testing.T, h *CallbackHandler, body string) *httptest.ResponseRecorder {
	t.Helper()
	req := httptest.NewRequest(http.MethodPost, "/api/v1/callbacks/mpesa/stk", strings.NewReader(body))
	rec := httptest.NewRecorder()
	h.HandleMpesaSTKCallback(rec, req)
	return rec
}

func requireAck(t *testing.T, rec *httptest.ResponseRecorder) {
	t.Helper()
	require.Equal(t, http.StatusOK, rec.Code)

	var response map[string]interface{}
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &response))
	require.Equal(t, float64(0), response["ResultCode"])
}

func TestCallbackHandlerAlwaysAcks(t *testing.T) {
	h := newCallbackHandler(t)

	// Valid callback.
	requireAck(t, postCallback(t, h, `{
	  "Body": {
	    "stkCallback": {
	      "CheckoutRequestID": "ws_CO_1",
	      "ResultCode": 0,
	      "ResultDesc": "ok",
	      "CallbackMetadata": {"Item": [{"Name": "MpesaReceiptNumber", "Value": "ABC123"}]}
	    }
	  }
	}`))

	// Malformed payload must still be acknowledged, or the provider will
	// redeliver forever.
	requireAck(t, postCallback(t, h, `not json at all`))

	// Envelope without a CheckoutRequestID.
	requireAck(t, postCallback(t, h, `{"Body":{}}`))

	// Empty body.
	requireAck(t, postCallback(t, h, ``))
}

func TestCallbackHandlerAcksDuplicateDelivery(t *testing.T) {
	h := newCallbackHandler(t)

	payload := `{
	  "Body": {
	    "stkCallback": {
	      "CheckoutRequestID": "ws_CO_dup",
	      "ResultCode": 1032,
	      "ResultDesc": "Request cancelled by user."
	    }
	  }
	}`

	requireAck(t, postCallback(t, h, payload))
	requireAck(t, postCallback(t, h, payload))
}
