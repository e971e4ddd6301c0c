package dto

import (
	"encoding/json"
	"net/http"
	"testing"
	"time"

	"github.com/go-playground/validator/v10"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestGetHTTPStatus(t *testing.T) {
	tests := []struct {
		code     string
		expected int
	}{
		{ErrCodeInternal, http.StatusInternalServerError},
		{ErrCodeValidation, http.StatusBadRequest},
		{ErrCodeUnauthorized, http.StatusUnauthorized},
		{ErrCodeTokenExpired, http.StatusUnauthorized},
		{ErrCodeNotFound, http.StatusNotFound},
		{ErrCodeConflict, http.StatusConflict},
		{ErrCodeInvalidState, http.StatusUnprocessableEntity},
		{ErrCodeRemoteUnavailable, http.StatusBadGateway},
		{ErrCodeTooLarge, http.StatusRequestEntityTooLarge},
		{ErrCodeNotReady, http.StatusServiceUnavailable},
		// Unknown code should return 500
		{"UNKNOWN_CODE", http.StatusInternalServerError},
	}

	for _, tt := range tests {
		t.Run(tt.code, func(t *testing.T) {
			assert.Equal(t, tt.expected, GetHTTPStatus(tt.code))
		})
	}
}

func TestNormalizeErrorCode(t *testing.T) {
	tests := []struct {
		input    string
		expected string
	}{
		{"NOT_FOUND", ErrCodeNotFound},
		{"INVALID_INPUT", ErrCodeInvalidInput},
		{"VALIDATION_ERROR", ErrCodeValidation},
		{"INTERNAL_ERROR", ErrCodeInternal},
		{"REMOTE_UNAVAILABLE", ErrCodeRemoteUnavailable},
		{"CONFLICT", ErrCodeConflict},
		{ErrCodeNotFound, ErrCodeNotFound},
		{"CUSTOM_ERROR", "CUSTOM_ERROR"},
	}

	for _, tt := range tests {
		t.Run(tt.input, func(t *testing.T) {
			assert.Equal(t, tt.expected, NormalizeErrorCode(tt.input))
		})
	}
}

func TestCodeTable_DomainCodesAreUnique(t *testing.T) {
	seen := map[string]string{}
	for code, info := range codeTable {
		if info.domain == "" {
			continue
		}
		prev, dup := seen[info.domain]
		assert.False(t, dup, "%s is claimed by %s and %s", info.domain, prev, code)
		seen[info.domain] = code
	}
	assert.Len(t, fromDomain, len(seen))
}

func TestNewErrorResponseWithRequestID(t *testing.T) {
	before := time.Now()
	resp := NewErrorResponseWithRequestID("NOT_FOUND", "Item X100 not found", "req-123")

	assert.False(t, resp.Success)
	require.NotNil(t, resp.Error)
	assert.Equal(t, ErrCodeNotFound, resp.Error.Code)
	assert.Equal(t, "Item X100 not found", resp.Error.Message)
	assert.Equal(t, "req-123", resp.Error.RequestID)
	assert.False(t, resp.Error.Timestamp.Before(before))
}

func TestErrorResponseJSON(t *testing.T) {
	data, err := json.Marshal(NewErrorResponse(ErrCodeInternal, "boom"))
	require.NoError(t, err)

	var decoded map[string]any
	require.NoError(t, json.Unmarshal(data, &decoded))
	assert.Equal(t, false, decoded["success"])
	assert.NotContains(t, decoded, "data")
	errInfo := decoded["error"].(map[string]any)
	assert.Equal(t, ErrCodeInternal, errInfo["code"])
	assert.NotContains(t, errInfo, "request_id")
}

func TestNewSuccessResponse(t *testing.T) {
	resp := NewSuccessResponse(map[string]string{"name": "test"})

	assert.True(t, resp.Success)
	assert.NotNil(t, resp.Data)
	assert.Nil(t, resp.Error)
}

func TestValidationDetails(t *testing.T) {
	type request struct {
		ItemCode string `validate:"required"`
		SiteID   string `validate:"max=3"`
		APIKey   string `validate:"min=2"`
	}

	err := validator.New().Struct(request{SiteID: "too-long", APIKey: "k"})
	require.Error(t, err)

	details := ValidationDetails(err)
	require.Len(t, details, 3)
	assert.Equal(t, ValidationDetail{Field: "item_code", Message: "is required"}, details[0])
	assert.Equal(t, ValidationDetail{Field: "site_id", Message: "must be at most 3"}, details[1])
	assert.Equal(t, ValidationDetail{Field: "api_key", Message: "must be at least 2"}, details[2])

	resp := NewValidationErrorResponse("Request validation failed", "req-1", details)
	assert.Equal(t, ErrCodeValidation, resp.Error.Code)
	assert.Len(t, resp.Error.Details, 3)
}

func TestValidationDetails_NotValidatorError(t *testing.T) {
	assert.Nil(t, ValidationDetails(assert.AnError))
}
