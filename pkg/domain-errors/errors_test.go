package domainerrors

import (
	"errors"
	"fmt"
	"net/http"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestHasCode_WrappedChain(t *testing.T) {
	cause := errors.New("connection refused")
	err := Wrap(cause, CodeStoreUnavailable, "persist request")

	assert.True(t, HasCode(err, CodeStoreUnavailable))
	assert.False(t, HasCode(err, CodeNotFound))
	assert.True(t, errors.Is(err, cause))

	// Still detectable after another layer of fmt wrapping.
	outer := fmt.Errorf("create request: %w", err)
	assert.True(t, HasCode(outer, CodeStoreUnavailable))
}

func TestHasCode_PlainError(t *testing.T) {
	assert.False(t, HasCode(errors.New("plain"), CodeInternal))
	assert.False(t, HasCode(nil, CodeInternal))
}

func TestWithFields_PreservesOrder(t *testing.T) {
	err := WithFields("request is invalid", []FieldError{
		{Field: "rut", Message: "invalid RUT"},
		{Field: "email", Message: "invalid email"},
	})

	require.True(t, HasCode(err, CodeValidation))
	fields := FieldsOf(err)
	require.Len(t, fields, 2)
	assert.Equal(t, "rut", fields[0].Field)
	assert.Equal(t, "email", fields[1].Field)
}

func TestToHTTPStatus(t *testing.T) {
	cases := map[Code]int{
		CodeValidation:        http.StatusBadRequest,
		CodeNotFound:          http.StatusNotFound,
		CodeTokenExpired:      http.StatusGone,
		CodeAlreadyValidated:  http.StatusConflict,
		CodeInvalidTransition: http.StatusConflict,
		CodeUnauthorized:      http.StatusUnauthorized,
		CodeRateLimited:       http.StatusTooManyRequests,
		CodeStoreUnavailable:  http.StatusBadGateway,
		CodeDeliveryFailed:    http.StatusBadGateway,
		CodeInternal:          http.StatusInternalServerError,
	}
	for code, want := range cases {
		assert.Equal(t, want, ToHTTPStatus(code), string(code))
	}
}
