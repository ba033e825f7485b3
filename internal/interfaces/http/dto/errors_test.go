package dto

import (
	"net/http"
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestGetHTTPStatus(t *testing.T) {
	tests := []struct {
		code string
		want int
	}{
		{ErrCodeNotFound, http.StatusNotFound},
		{ErrCodeLimitExceeded, http.StatusTooManyRequests},
		{ErrCodeConcurrencyTimeout, http.StatusServiceUnavailable},
		{ErrCodeSubscriptionInactive, http.StatusForbidden},
		{ErrCodeInvalidState, http.StatusUnprocessableEntity},
		{ErrCodeAlreadyExists, http.StatusConflict},
		{"ERR_SOMETHING_NEW", http.StatusInternalServerError},
	}

	for _, tt := range tests {
		assert.Equal(t, tt.want, GetHTTPStatus(tt.code), tt.code)
	}
}

func TestNormalizeErrorCode(t *testing.T) {
	tests := []struct {
		code string
		want string
	}{
		{"NOT_FOUND", ErrCodeNotFound},
		{"SUBSCRIPTION_INACTIVE", ErrCodeSubscriptionInactive},
		{"INVALID_FEATURE_TYPE", ErrCodeInvalidInput},
		{"INVALID_PLAN", ErrCodeInvalidInput},
		{ErrCodeLimitExceeded, ErrCodeLimitExceeded},
		{"TOTALLY_UNKNOWN", ErrCodeUnknown},
	}

	for _, tt := range tests {
		assert.Equal(t, tt.want, NormalizeErrorCode(tt.code), tt.code)
	}
}

func TestNewErrorResponse(t *testing.T) {
	resp := NewErrorResponse(ErrCodeNotFound, "subscriber not found")

	assert.False(t, resp.Success)
	assert.Nil(t, resp.Data)
	assert.Equal(t, ErrCodeNotFound, resp.Error.Code)
	assert.Equal(t, "subscriber not found", resp.Error.Message)
}

func TestNewSuccessResponse(t *testing.T) {
	resp := NewSuccessResponse(map[string]int{"count": 3})

	assert.True(t, resp.Success)
	assert.Nil(t, resp.Error)
	assert.NotNil(t, resp.Data)
}
