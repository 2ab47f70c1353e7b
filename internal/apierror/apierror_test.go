package apierror

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestFromResponseEnvelope(t *testing.T) {
	body := []byte(`{"success":false,"message":"Insufficient balance in wallet 7","errorCode":"INSUFFICIENT_BALANCE","data":null}`)

	err := FromResponse(http.StatusBadRequest, body)

	var httpErr *HTTPError
	require.ErrorAs(t, err, &httpErr)
	assert.Equal(t, http.StatusBadRequest, httpErr.Status)
	assert.Equal(t, CodeInsufficient, httpErr.Code)
	assert.Equal(t, "Insufficient balance in wallet 7", Message(err, "Withdrawal failed"))
}

func TestFromResponseValidationFields(t *testing.T) {
	body := []byte(`{"success":false,"message":"Validation failed","errorCode":"VALIDATION_ERROR","data":{"email":"must be a well-formed email address","password":"size must be at least 8"}}`)

	err := FromResponse(http.StatusBadRequest, body)

	var validationErr *ValidationError
	require.ErrorAs(t, err, &validationErr)
	assert.Equal(t, "must be a well-formed email address", validationErr.Fields["email"])
	assert.Len(t, validationErr.Fields, 2)
	assert.Equal(t, "Validation failed", Message(err, "Registration failed"))
}

func TestFromResponseNonJSONBody(t *testing.T) {
	err := FromResponse(http.StatusBadGateway, []byte("<html>bad gateway</html>"))

	var httpErr *HTTPError
	require.ErrorAs(t, err, &httpErr)
	assert.Empty(t, httpErr.Message)
	assert.Contains(t, err.Error(), "502")
}

func TestMessageFallbacks(t *testing.T) {
	serverErr := FromResponse(http.StatusInternalServerError, []byte(`{"success":false,"message":"An unexpected error occurred","errorCode":"INTERNAL_ERROR"}`))
	assert.Equal(t, "Deposit failed", Message(serverErr, "Deposit failed"))

	netErr := &NetworkError{Op: "POST /transactions/deposit", Err: context.DeadlineExceeded}
	assert.Equal(t, "Deposit failed", Message(netErr, "Deposit failed"))
	assert.ErrorIs(t, netErr, context.DeadlineExceeded)

	expired := fmt.Errorf("fetch wallets: %w", &SessionExpiredError{Err: ErrNoRefreshToken})
	assert.Equal(t, SessionExpiredMessage, Message(expired, "Failed to fetch wallets"))
	assert.True(t, errors.Is(expired, ErrNoRefreshToken))

	assert.Equal(t, "", Message(nil, "ignored"))
	assert.True(t, IsStatus(serverErr, http.StatusInternalServerError))
}
