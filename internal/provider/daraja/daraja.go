// internal/provider/daraja/daraja.go
package daraja

import (
	"bytes"
	"context"
	"encoding/base64"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"strconv"
	"sync"
	"time"

	"loanpay-service/config"
	"loanpay-service/internal/domain"
)

const (
	sandboxBaseURL    = "https://sandbox.safaricom.co.ke"
	productionBaseURL = "https://api.safaricom.co.ke"

	maxAccountReferenceLen = 12
	maxTransactionDescLen  = 13

	tokenTimeout = 30 * time.Second
	pushTimeout  = 60 * time.Second
	queryTimeout = 30 * time.Second
)

// Client talks to the Safaricom Daraja API: OAuth token exchange, STK Push
// initiation and STK Push status queries.
type Client struct {
	cfg         config.MpesaConfig
	baseURL     string
	tokenClient *http.Client
	pushClient  *http.Client
	queryClient *http.Client

	authMu      sync.Mutex
	cachedToken string
	tokenExpiry time.Time
}

func NewClient(cfg config.MpesaConfig) *Client {
	baseURL := sandboxBaseURL
	if cfg.Environment == "production" {
		baseURL = productionBaseURL
	}

	return &Client{
		cfg:         cfg,
		baseURL:     baseURL,
		tokenClient: &http.Client{Timeout: tokenTimeout},
		pushClient:  &http.Client{Timeout: pushTimeout},
		queryClient: &http.Client{Timeout: queryTimeout},
	}
}

// STKPushRequest is the Daraja processrequest payload.
type STKPushRequest struct {
	BusinessShortCode string `json:"BusinessShortCode"`
	Password          string `json:"Password"`
	Timestamp         string `json:"Timestamp"`
	TransactionType   string `json:"TransactionType"`
	Amount            int    `json:"Amount"`
	PartyA            string `json:"PartyA"`
	PartyB            string `json:"PartyB"`
	PhoneNumber       string `json:"PhoneNumber"`
	CallBackURL       string `json:"CallBackURL"`
	AccountReference  string `json:"AccountReference"`
	TransactionDesc   string `json:"TransactionDesc"`
}

// STKPushResponse is the synchronous acknowledgement of a push request. A
// CheckoutRequestID here means the prompt is on its way to the handset, not
// that the payment went through.
type STKPushResponse struct {
	MerchantRequestID   string `json:"MerchantRequestID"`
	CheckoutRequestID   string `json:"CheckoutRequestID"`
	ResponseCode        string `json:"ResponseCode"`
	ResponseDescription string `json:"ResponseDescription"`
	CustomerMessage     string `json:"CustomerMessage"`
}

// STKQueryResponse is the status-query result for an in-flight push request.
type STKQueryResponse struct {
	ResponseCode        string `json:"ResponseCode"`
	ResponseDescription string `json:"ResponseDescription"`
	MerchantRequestID   string `json:"MerchantRequestID"`
	CheckoutRequestID   string `json:"CheckoutRequestID"`
	ResultCode          string `json:"ResultCode"`
	ResultDesc          string `json:"ResultDesc"`
}

// InitiateSTKPush validates the request, then asks the provider to push a
// payment prompt to the customer's handset. All validation happens before
// any network call. AccountReference and TransactionDesc are truncated to
// the provider's limits silently; rejecting here would break callers that
// pass full tracking references.
func (c *Client) InitiateSTKPush(ctx context.Context, req *domain.PaymentRequest) (*STKPushResponse, error) {
	if err := req.Validate(); err != nil {
		return nil, err
	}

	phone, err := domain.NormalizePhone(req.PhoneNumber)
	if err != nil {
		return nil, err
	}

	token, err := c.GetAccessToken(ctx)
	if err != nil {
		return nil, fmt.Errorf("failed to get access token: %w", err)
	}

	password, timestamp := c.generatePassword()

	desc := req.TransactionDesc
	if desc == "" {
		desc = fmt.Sprintf("Payment for %s", req.AccountReference)
	}

	payload := STKPushRequest{
		BusinessShortCode: c.cfg.ShortCode,
		Password:          password,
		Timestamp:         timestamp,
		TransactionType:   "CustomerPayBillOnline",
		Amount:            req.Amount,
		PartyA:            phone,
		PartyB:            c.cfg.ShortCode,
		PhoneNumber:       phone,
		CallBackURL:       c.cfg.CallbackURL,
		AccountReference:  truncate(req.AccountReference, maxAccountReferenceLen),
		TransactionDesc:   truncate(desc, maxTransactionDescLen),
	}

	var response STKPushResponse
	url := fmt.Sprintf("%s/mpesa/stkpush/v1/processrequest", c.baseURL)
	if err := c.doRequest(ctx, c.pushClient, url, token, payload, &response); err != nil {
		return nil, err
	}

	return &response, nil
}

// QuerySTKPush asks the provider for the current state of a push request. A
// fresh password and timestamp are generated per query.
func (c *Client) QuerySTKPush(ctx context.Context, checkoutRequestID string) (*STKQueryResponse, error) {
	if checkoutRequestID == "" {
		return nil, &domain.ValidationError{Field: "checkout_request_id", Reason: "is required"}
	}

	token, err := c.GetAccessToken(ctx)
	if err != nil {
		return nil, fmt.Errorf("failed to get access token: %w", err)
	}

	password, timestamp := c.generatePassword()

	payload := map[string]string{
		"BusinessShortCode": c.cfg.ShortCode,
		"Password":          password,
		"Timestamp":         timestamp,
		"CheckoutRequestID": checkoutRequestID,
	}

	var response STKQueryResponse
	url := fmt.Sprintf("%s/mpesa/stkpushquery/v1/query", c.baseURL)
	if err := c.doRequest(ctx, c.queryClient, url, token, payload, &response); err != nil {
		return nil, err
	}

	return &response, nil
}

// GetAccessToken performs the client-credentials exchange, reusing a cached
// token until shortly before its declared expiry.
func (c *Client) GetAccessToken(ctx context.Context) (string, error) {
	c.authMu.Lock()
	if c.cachedToken != "" && time.Now().Before(c.tokenExpiry) {
		token := c.cachedToken
		c.authMu.Unlock()
		return token, nil
	}
	c.authMu.Unlock()

	url := fmt.Sprintf("%s/oauth/v1/generate?grant_type=client_credentials", c.baseURL)
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, url, nil)
	if err != nil {
		return "", fmt.Errorf("%w: %v", ErrTransport, err)
	}

	auth := base64.StdEncoding.EncodeToString([]byte(c.cfg.ConsumerKey + ":" + c.cfg.ConsumerSecret))
	req.Header.Set("Authorization", "Basic "+auth)

	resp, err := c.tokenClient.Do(req)
	if err != nil {
		return "", fmt.Errorf("%w: %v", ErrTransport, err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		body, _ := io.ReadAll(io.LimitReader(resp.Body, 4096))
		return "", fmt.Errorf("%w: token request failed: %s", ErrAuth, string(body))
	}

	var result struct {
		AccessToken string `json:"access_token"`
		ExpiresIn   string `json:"expires_in"`
	}
	if err := json.NewDecoder(resp.Body).Decode(&result); err != nil {
		return "", fmt.Errorf("%w: decode token response: %v", ErrTransport, err)
	}
	if result.AccessToken == "" {
		return "", fmt.Errorf("%w: no access token in response", ErrAuth)
	}

	lifetime := 5 * time.Minute
	if secs, err := strconv.Atoi(result.ExpiresIn); err == nil && secs > 0 {
		lifetime = time.Duration(secs) * time.Second
	}
	buffer := time.Minute
	if lifetime <= buffer {
		buffer = lifetime / 2
	}

	c.authMu.Lock()
	c.cachedToken = result.AccessToken
	c.tokenExpiry = time.Now().Add(lifetime - buffer)
	c.authMu.Unlock()

	return result.AccessToken, nil
}

// generatePassword builds the timestamp-salted request password:
// base64(shortcode + passkey + YYYYMMDDHHmmss).
func (c *Client) generatePassword() (password, timestamp string) {
	timestamp = time.Now().Format("20060102150405")
	password = base64.StdEncoding.EncodeToString([]byte(c.cfg.ShortCode + c.cfg.Passkey + timestamp))
	return password, timestamp
}

// darajaError is the error body the API returns on non-200 responses.
type darajaError struct {
	RequestID    string `json:"requestId"`
	ErrorCode    string `json:"errorCode"`
	ErrorMessage string `json:"errorMessage"`
}

func (c *Client) doRequest(ctx context.Context, client *http.Client, url, token string, payload, out interface{}) error {
	body, err := json.Marshal(payload)
	if err != nil {
		return fmt.Errorf("%w: encode request: %v", ErrTransport, err)
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, url, bytes.NewReader(body))
	if err != nil {
		return fmt.Errorf("%w: %v", ErrTransport, err)
	}
	req.Header.Set("Content-Type", "application/json")
	req.Header.Set("Authorization", "Bearer "+token)

	resp, err := client.Do(req)
	if err != nil {
		return fmt.Errorf("%w: %v", ErrTransport, err)
	}
	defer resp.Body.Close()

	responseBody, err := io.ReadAll(resp.Body)
	if err != nil {
		return fmt.Errorf("%w: read response: %v", ErrTransport, err)
	}

	if resp.StatusCode != http.StatusOK {
		return mapHTTPError(resp.StatusCode, responseBody)
	}

	if err := json.Unmarshal(responseBody, out); err != nil {
		return fmt.Errorf("%w: decode response: %v", ErrTransport, err)
	}

	return nil
}

// mapHTTPError maps provider HTTP failures onto the error taxonomy, keeping
// the provider's own error message for diagnostics.
func mapHTTPError(statusCode int, body []byte) error {
	var apiErr darajaError
	message := bodyMessage(body)
	if err := json.Unmarshal(body, &apiErr); err == nil && apiErr.ErrorMessage != "" {
		message = apiErr.ErrorMessage
	}

	switch {
	case statusCode == http.StatusBadRequest:
		return fmt.Errorf("%w: %s", ErrBadRequest, message)
	case statusCode == http.StatusUnauthorized:
		return fmt.Errorf("%w: %s", ErrAuth, message)
	case statusCode >= http.StatusInternalServerError:
		return fmt.Errorf("%w: %s", ErrProviderUnavailable, message)
	default:
		return fmt.Errorf("%w: status %d: %s", ErrTransport, statusCode, message)
	}
}

func bodyMessage(body []byte) string {
	if len(body) == 0 {
		return "no response body"
	}
	return string(body)
}

func truncate(s string, max int) string {
	if len(s) > max {
		return s[:max]
	}
	return s
}

// IsValidation reports whether err is a caller input error rather than a
// provider or transport failure.
func IsValidation(err error) bool {
	var ve *domain.ValidationError
	return errors.As(err, &ve)
}
