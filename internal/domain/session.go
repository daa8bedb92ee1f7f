// internal/domain/session.go
package domain

import (
	"sync"
	"time"
)

// Session tracks one in-flight payment attempt. Two writers race to resolve
// it, the status poller and the callback handler, so every status write goes
// through a single mutex-guarded check-and-set: the first terminal write
// wins and every later write is dropped.
type Session struct {
	mu sync.Mutex

	merchantRequestID string
	checkoutRequestID string
	status            PaymentStatus
	resultCode        string
	message           string
	abandoned         bool
	createdAt         time.Time
}

// SessionSnapshot is the caller-visible view of a session, taken under the
// session lock.
type SessionSnapshot struct {
	MerchantRequestID string        `json:"merchant_request_id,omitempty"`
	CheckoutRequestID string        `json:"checkout_request_id,omitempty"`
	Status            PaymentStatus `json:"status"`
	ResultCode        string        `json:"result_code,omitempty"`
	Message           string        `json:"message"`
	InProgress        bool          `json:"in_progress"`
	Complete          bool          `json:"complete"`
	Failed            bool          `json:"failed"`
}

// NewSession creates a pending session for an acknowledged push request.
func NewSession(merchantRequestID, checkoutRequestID, message string) *Session {
	return &Session{
		merchantRequestID: merchantRequestID,
		checkoutRequestID: checkoutRequestID,
		status:            PaymentStatusPending,
		message:           message,
		createdAt:         time.Now(),
	}
}

// Resolve attempts to move the session to a terminal status. It returns true
// if this call won the race and the status was applied, false if the session
// was already terminal and the write was dropped.
func (s *Session) Resolve(status PaymentStatus, resultCode, message string) bool {
	if !status.IsTerminal() {
		return false
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	if s.status.IsTerminal() {
		return false
	}

	s.status = status
	s.resultCode = resultCode
	s.message = message
	return true
}

// Abandon marks the session as no longer observed by any caller. The poller
// checks this before each step and stops rescheduling once set.
func (s *Session) Abandon() {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.abandoned = true
}

// Abandoned reports whether the caller has walked away from the session.
func (s *Session) Abandoned() bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.abandoned
}

// CheckoutRequestID returns the provider correlation key for this session.
func (s *Session) CheckoutRequestID() string {
	return s.checkoutRequestID
}

// Snapshot returns a consistent view of the session for the caller, with the
// derived progress booleans the UI consumes.
func (s *Session) Snapshot() SessionSnapshot {
	s.mu.Lock()
	defer s.mu.Unlock()

	return SessionSnapshot{
		MerchantRequestID: s.merchantRequestID,
		CheckoutRequestID: s.checkoutRequestID,
		Status:            s.status,
		ResultCode:        s.resultCode,
		Message:           s.message,
		InProgress:        s.status == PaymentStatusProcessing || s.status == PaymentStatusPending,
		Complete:          s.status == PaymentStatusSuccess,
		Failed: s.status == PaymentStatusFailed ||
			s.status == PaymentStatusCancelled ||
			s.status == PaymentStatusTimeout,
	}
}
