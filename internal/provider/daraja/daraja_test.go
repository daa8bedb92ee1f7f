package daraja

import (
	"context"
	"encoding/base64"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"regexp"
	"strings"
	"sync/atomic"
	"testing"

	"loanpay-service/config"
	"loanpay-service/internal/domain"

	"github.com/stretchr/testify/require"
)

func testConfig() config.MpesaConfig {
	return config.MpesaConfig{
		Environment:    "sandbox",
		ConsumerKey:    "key",
		ConsumerSecret: "secret",
		ShortCode:      "174379",
		Passkey:        "passkey",
		CallbackURL:    "https://example.com/api/v1/callbacks/mpesa/stk",
	}
}

// newTestClient points every endpoint at the test server.
func newTestClient(t *testing.T, handler http.Handler) (*Client, *httptest.Server) {
	t.Helper()
	server := httptest.NewServer(handler)
	t.Cleanup(server.Close)

	client := NewClient(testConfig())
	client.baseURL = server.URL
	return client, server
}

func tokenResponse(w http.ResponseWriter) {
	json.NewEncoder(w).Encode(map[string]string{
		"access_token": "test-token",
		"expires_in":   "3599",
	})
}

func TestGetAccessToken(t *testing.T) {
	var tokenCalls int32
	mux := http.NewServeMux()
	mux.HandleFunc("/oauth/v1/generate", func(w http.ResponseWriter, r *http.Request) {
		atomic.AddInt32(&tokenCalls, 1)

		auth := r.Header.Get("Authorization")
		require.True(t, strings.HasPrefix(auth, "Basic "))
		decoded, err := base64.StdEncoding.DecodeString(strings.TrimPrefix(auth, "Basic "))
		require.NoError(t, err)
		require.Equal(t, "key:secret", string(decoded))

		tokenResponse(w)
	})

	client, _ := newTestClient(t, mux)

	token, err := client.GetAccessToken(context.Background())
	require.NoError(t, err)
	require.Equal(t, "test-token", token)

	// Second call is served from the cache.
	token, err = client.GetAccessToken(context.Background())
	require.NoError(t, err)
	require.Equal(t, "test-token", token)
	require.Equal(t, int32(1), atomic.LoadInt32(&tokenCalls))
}

func TestGetAccessTokenRejected(t *testing.T) {
	mux := http.NewServeMux()
	mux.HandleFunc("/oauth/v1/generate", func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusUnauthorized)
		w.Write([]byte(`{"errorMessage":"Invalid credentials"}`))
	})

	client, _ := newTestClient(t, mux)

	_, err := client.GetAccessToken(context.Background())
	require.ErrorIs(t, err, ErrAuth)
}

func TestInitiateSTKPush(t *testing.T) {
	var captured STKPushRequest
	mux := http.NewServeMux()
	mux.HandleFunc("/oauth/v1/generate", func(w http.ResponseWriter, r *http.Request) { tokenResponse(w) })
	mux.HandleFunc("/mpesa/stkpush/v1/processrequest", func(w http.ResponseWriter, r *http.Request) {
		require.Equal(t, "Bearer test-token", r.Header.Get("Authorization"))
		require.NoError(t, json.NewDecoder(r.Body).Decode(&captured))
		json.NewEncoder(w).Encode(STKPushResponse{
			MerchantRequestID:   "m1",
			CheckoutRequestID:   "ws_CO_1",
			ResponseCode:        "0",
			ResponseDescription: "Success. Request accepted for processing",
			CustomerMessage:     "Success. Request accepted for processing",
		})
	})

	client, _ := newTestClient(t, mux)

	response, err := client.InitiateSTKPush(context.Background(), &domain.PaymentRequest{
		PhoneNumber:      "0712345678",
		Amount:           100,
		AccountReference: "LOAN123",
		TransactionDesc:  "Fee",
	})
	require.NoError(t, err)
	require.Equal(t, "ws_CO_1", response.CheckoutRequestID)
	require.Equal(t, "m1", response.MerchantRequestID)

	require.Equal(t, "174379", captured.BusinessShortCode)
	require.Equal(t, "CustomerPayBillOnline", captured.TransactionType)
	require.Equal(t, 100, captured.Amount)
	require.Equal(t, "254712345678", captured.PartyA)
	require.Equal(t, "254712345678", captured.PhoneNumber)
	require.Equal(t, "174379", captured.PartyB)
	require.Equal(t, "LOAN123", captured.AccountReference)
	require.Equal(t, "Fee", captured.TransactionDesc)
	require.Regexp(t, regexp.MustCompile(`^\d{14}$`), captured.Timestamp)

	// Password is base64(shortcode + passkey + timestamp).
	decoded, err := base64.StdEncoding.DecodeString(captured.Password)
	require.NoError(t, err)
	require.Equal(t, "174379passkey"+captured.Timestamp, string(decoded))
}

func TestInitiateSTKPushTruncatesReferenceAndDesc(t *testing.T) {
	var captured STKPushRequest
	mux := http.NewServeMux()
	mux.HandleFunc("/oauth/v1/generate", func(w http.ResponseWriter, r *http.Request) { tokenResponse(w) })
	mux.HandleFunc("/mpesa/stkpush/v1/processrequest", func(w http.ResponseWriter, r *http.Request) {
		require.NoError(t, json.NewDecoder(r.Body).Decode(&captured))
		json.NewEncoder(w).Encode(STKPushResponse{CheckoutRequestID: "ws_CO_1", ResponseCode: "0"})
	})

	client, _ := newTestClient(t, mux)

	// 20 characters in, 12 out; never an error.
	_, err := client.InitiateSTKPush(context.Background(), &domain.PaymentRequest{
		PhoneNumber:      "254712345678",
		Amount:           50,
		AccountReference: "ABCDEFGHIJKLMNOPQRST",
		TransactionDesc:  "A very long description",
	})
	require.NoError(t, err)
	require.Equal(t, "ABCDEFGHIJKL", captured.AccountReference)
	require.Len(t, captured.TransactionDesc, 13)
}

func TestInitiateSTKPushValidatesBeforeNetwork(t *testing.T) {
	var calls int32
	client, _ := newTestClient(t, http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		atomic.AddInt32(&calls, 1)
	}))

	var ve *domain.ValidationError

	_, err := client.InitiateSTKPush(context.Background(), &domain.PaymentRequest{
		PhoneNumber: "0712345678", Amount: 0, AccountReference: "LOAN123",
	})
	require.ErrorAs(t, err, &ve)

	_, err = client.InitiateSTKPush(context.Background(), &domain.PaymentRequest{
		PhoneNumber: "0712345678", Amount: 150001, AccountReference: "LOAN123",
	})
	require.ErrorAs(t, err, &ve)

	_, err = client.InitiateSTKPush(context.Background(), &domain.PaymentRequest{
		PhoneNumber: "not-a-phone", Amount: 100, AccountReference: "LOAN123",
	})
	require.ErrorAs(t, err, &ve)

	require.Equal(t, int32(0), atomic.LoadInt32(&calls), "no network call for invalid input")
}

func TestInitiateSTKPushErrorMapping(t *testing.T) {
	cases := []struct {
		status int
		want   error
	}{
		{http.StatusBadRequest, ErrBadRequest},
		{http.StatusUnauthorized, ErrAuth},
		{http.StatusInternalServerError, ErrProviderUnavailable},
		{http.StatusServiceUnavailable, ErrProviderUnavailable},
		{http.StatusTeapot, ErrTransport},
	}

	for _, tc := range cases {
		mux := http.NewServeMux()
		mux.HandleFunc("/oauth/v1/generate", func(w http.ResponseWriter, r *http.Request) { tokenResponse(w) })
		mux.HandleFunc("/mpesa/stkpush/v1/processrequest", func(w http.ResponseWriter, r *http.Request) {
			w.WriteHeader(tc.status)
			w.Write([]byte(`{"errorMessage":"provider says no"}`))
		})

		client, _ := newTestClient(t, mux)

		_, err := client.InitiateSTKPush(context.Background(), &domain.PaymentRequest{
			PhoneNumber:      "254712345678",
			Amount:           100,
			AccountReference: "LOAN123",
		})
		require.ErrorIs(t, err, tc.want, "status %d", tc.status)
		require.Contains(t, err.Error(), "provider says no")
	}
}

func TestQuerySTKPush(t *testing.T) {
	var captured map[string]string
	mux := http.NewServeMux()
	mux.HandleFunc("/oauth/v1/generate", func(w http.ResponseWriter, r *http.Request) { tokenResponse(w) })
	mux.HandleFunc("/mpesa/stkpushquery/v1/query", func(w http.ResponseWriter, r *http.Request) {
		require.NoError(t, json.NewDecoder(r.Body).Decode(&captured))
		json.NewEncoder(w).Encode(STKQueryResponse{
			ResponseCode:      "0",
			CheckoutRequestID: "ws_CO_1",
			ResultCode:        "1032",
			ResultDesc:        "Request cancelled by user",
		})
	})

	client, _ := newTestClient(t, mux)

	response, err := client.QuerySTKPush(context.Background(), "ws_CO_1")
	require.NoError(t, err)
	require.Equal(t, "1032", response.ResultCode)
	require.Equal(t, "ws_CO_1", captured["CheckoutRequestID"])
	require.NotEmpty(t, captured["Password"])

	_, err = client.QuerySTKPush(context.Background(), "")
	var ve *domain.ValidationError
	require.ErrorAs(t, err, &ve)
}

func TestResultStatusTaxonomy(t *testing.T) {
	status, _ := ResultStatus("0", "")
	require.Equal(t, domain.PaymentStatusSuccess, status)

	status, message := ResultStatus("1032", "")
	require.Equal(t, domain.PaymentStatusCancelled, status)
	require.Equal(t, "Request cancelled by user", message)

	status, _ = ResultStatus("1037", "")
	require.Equal(t, domain.PaymentStatusTimeout, status)

	status, message = ResultStatus("2001", "")
	require.Equal(t, domain.PaymentStatusFailed, status)
	require.Equal(t, "Wrong PIN entered", message)

	// Unknown codes surface the provider's description unmodified.
	status, message = ResultStatus("9999", "Something provider-specific")
	require.Equal(t, domain.PaymentStatusFailed, status)
	require.Equal(t, "Something provider-specific", message)

	status, message = ResultStatus("9999", "")
	require.Equal(t, domain.PaymentStatusFailed, status)
	require.Contains(t, message, "9999")
}
