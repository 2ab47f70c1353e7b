// Package apierror defines the failure shapes produced at the gateway boundary.
// Orchestrators match on these with errors.As instead of probing response bodies.
package apierror

import (
	"errors"
	"fmt"
	"net/http"

	"github.com/tidwall/gjson"
)

// Error codes emitted by the ledger service.
const (
	CodeValidation         = "VALIDATION_ERROR"
	CodeInvalidCredentials = "INVALID_CREDENTIALS"
	CodeInsufficient       = "INSUFFICIENT_BALANCE"
	CodeWalletNotFound     = "WALLET_NOT_FOUND"
	CodeInvalidTransaction = "INVALID_TRANSACTION"
	CodeUnauthorized       = "UNAUTHORIZED"
	CodeUnauthenticated    = "UNAUTHENTICATED"
	CodeDuplicate          = "DUPLICATE_RESOURCE"
	CodeInternal           = "INTERNAL_ERROR"
)

// SessionExpiredMessage is the user-facing text for a forced logout.
const SessionExpiredMessage = "Session expired, please log in again"

var (
	// ErrNotAuthenticated is returned without any network I/O when an
	// authenticated request is attempted while no credentials are stored.
	ErrNotAuthenticated = errors.New("not authenticated")

	// ErrNoRefreshToken means a 401 could not be recovered because no refresh
	// credential is stored.
	ErrNoRefreshToken = errors.New("no refresh token available")
)

// NetworkError is a transport failure: no response was received.
type NetworkError struct {
	Op  string
	Err error
}

func (e *NetworkError) Error() string {
	return fmt.Sprintf("%s: %v", e.Op, e.Err)
}

func (e *NetworkError) Unwrap() error { return e.Err }

// HTTPError is a response with a non-2xx status or a success:false envelope.
type HTTPError struct {
	Status  int
	Code    string
	Message string
}

func (e *HTTPError) Error() string {
	if e.Message == "" {
		return fmt.Sprintf("ledger service returned %d %s", e.Status, http.StatusText(e.Status))
	}
	if e.Code == "" {
		return fmt.Sprintf("ledger service returned %d: %s", e.Status, e.Message)
	}
	return fmt.Sprintf("ledger service returned %d %s: %s", e.Status, e.Code, e.Message)
}

// ValidationError is a VALIDATION_ERROR rejection with per-field messages.
type ValidationError struct {
	Message string
	Fields  map[string]string
}

func (e *ValidationError) Error() string {
	if len(e.Fields) == 0 {
		return e.Message
	}
	return fmt.Sprintf("%s: %v", e.Message, e.Fields)
}

// SessionExpiredError is returned when a 401 could not be recovered by
// renewal. The credential store has been cleared by the time it is seen.
type SessionExpiredError struct {
	Err error
}

func (e *SessionExpiredError) Error() string {
	return fmt.Sprintf("session expired: %v", e.Err)
}

func (e *SessionExpiredError) Unwrap() error { return e.Err }

// FromResponse classifies an error response body. Bodies that are not an
// envelope still produce an HTTPError carrying the status.
func FromResponse(status int, body []byte) error {
	var message, code string
	if gjson.ValidBytes(body) {
		message = gjson.GetBytes(body, "message").String()
		code = gjson.GetBytes(body, "errorCode").String()
	}

	if code == CodeValidation {
		fields := map[string]string{}
		if data := gjson.GetBytes(body, "data"); data.IsObject() {
			data.ForEach(func(key, value gjson.Result) bool {
				fields[key.String()] = value.String()
				return true
			})
		}
		if message == "" {
			message = "Validation failed"
		}
		return &ValidationError{Message: message, Fields: fields}
	}

	return &HTTPError{Status: status, Code: code, Message: message}
}

// Message extracts the user-facing text of err. Server-provided messages of
// client errors are surfaced verbatim; transport and server failures fall back
// to the operation's generic text.
func Message(err error, fallback string) string {
	if err == nil {
		return ""
	}

	var sessionErr *SessionExpiredError
	if errors.As(err, &sessionErr) {
		return SessionExpiredMessage
	}
	if errors.Is(err, ErrNotAuthenticated) {
		return "Not authenticated"
	}

	var validationErr *ValidationError
	if errors.As(err, &validationErr) && validationErr.Message != "" {
		return validationErr.Message
	}

	var httpErr *HTTPError
	if errors.As(err, &httpErr) && httpErr.Status < http.StatusInternalServerError && httpErr.Message != "" {
		return httpErr.Message
	}

	return fallback
}

// IsStatus reports whether err is an HTTPError with the given status.
func IsStatus(err error, status int) bool {
	var httpErr *HTTPError
	return errors.As(err, &httpErr) && httpErr.Status == status
}
