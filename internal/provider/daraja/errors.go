// internal/provider/daraja/errors.go
package daraja

import (
	"errors"
	"fmt"
)

// Transport-level failures talking to the Daraja API. The provider's raw
// error message, when present, is wrapped alongside these sentinels so it
// stays available for server-side logging.
var (
	// ErrAuth marks rejected credentials or an expired token (HTTP 401, or
	// a failed token exchange).
	ErrAuth = errors.New("daraja: unauthorized")

	// ErrBadRequest marks a request the provider rejected as malformed
	// (HTTP 400).
	ErrBadRequest = errors.New("daraja: bad request")

	// ErrProviderUnavailable marks a provider-side failure (HTTP 5xx).
	ErrProviderUnavailable = errors.New("daraja: provider unavailable")

	// ErrTransport marks a network failure or timeout before any provider
	// response was received.
	ErrTransport = errors.New("daraja: transport error")
)

// UnknownResultError carries a non-zero result code outside the known
// taxonomy, with the provider's description passed through unmodified.
type UnknownResultError struct {
	ResultCode string
	ResultDesc string
}

func (e *UnknownResultError) Error() string {
	return fmt.Sprintf("daraja: unrecognized result code %s: %s", e.ResultCode, e.ResultDesc)
}
