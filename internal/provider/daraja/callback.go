// internal/provider/daraja/callback.go
package daraja

import (
	"encoding/json"
	"fmt"
	"strconv"
)

// STKCallbackRequest is the asynchronous notification the provider posts to
// our callback URL once the customer acts on the prompt (or fails to).
type STKCallbackRequest struct {
	Body struct {
		StkCallback struct {
			MerchantRequestID string `json:"MerchantRequestID"`
			CheckoutRequestID string `json:"CheckoutRequestID"`
			ResultCode        int    `json:"ResultCode"`
			ResultDesc        string `json:"ResultDesc"`
			CallbackMetadata  struct {
				Item []struct {
					Name  string      `json:"Name"`
					Value interface{} `json:"Value"`
				} `json:"Item"`
			} `json:"CallbackMetadata"`
		} `json:"stkCallback"`
	} `json:"Body"`
}

// CallbackResult is the parsed outcome of a push payment callback.
type CallbackResult struct {
	MerchantRequestID string
	CheckoutRequestID string
	ResultCode        string
	ResultDesc        string
	Success           bool
	Amount            float64
	MpesaReceipt      string
	PhoneNumber       string
	TransactionDate   string
}

// ParseSTKCallback parses the callback envelope. Metadata items are matched
// by name; a missing item leaves its field zero-valued rather than failing,
// since the provider only attaches metadata on success and even then the
// item set varies.
func ParseSTKCallback(payload []byte) (*CallbackResult, error) {
	var callback STKCallbackRequest
	if err := json.Unmarshal(payload, &callback); err != nil {
		return nil, fmt.Errorf("failed to parse callback: %w", err)
	}

	stkCallback := callback.Body.StkCallback
	if stkCallback.CheckoutRequestID == "" {
		return nil, fmt.Errorf("callback missing CheckoutRequestID")
	}

	result := &CallbackResult{
		MerchantRequestID: stkCallback.MerchantRequestID,
		CheckoutRequestID: stkCallback.CheckoutRequestID,
		ResultCode:        strconv.Itoa(stkCallback.ResultCode),
		ResultDesc:        stkCallback.ResultDesc,
		Success:           stkCallback.ResultCode == 0,
	}

	for _, item := range stkCallback.CallbackMetadata.Item {
		switch item.Name {
		case "Amount":
			if val, ok := item.Value.(float64); ok {
				result.Amount = val
			}
		case "MpesaReceiptNumber":
			if val, ok := item.Value.(string); ok {
				result.MpesaReceipt = val
			}
		case "PhoneNumber":
			result.PhoneNumber = stringValue(item.Value)
		case "TransactionDate":
			result.TransactionDate = stringValue(item.Value)
		}
	}

	return result, nil
}

// stringValue renders a metadata value the provider may send as either a
// JSON number or a string.
func stringValue(v interface{}) string {
	switch val := v.(type) {
	case string:
		return val
	case float64:
		return strconv.FormatFloat(val, 'f', -1, 64)
	default:
		return ""
	}
}
