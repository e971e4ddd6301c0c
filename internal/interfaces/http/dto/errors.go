package dto

import "net/http"

// API error codes, ERR_<CATEGORY>[_<DETAIL>]
const (
	ErrCodeInternal = "ERR_INTERNAL"
	ErrCodeNotReady = "ERR_NOT_READY"

	ErrCodeBadRequest   = "ERR_BAD_REQUEST"
	ErrCodeInvalidInput = "ERR_INVALID_INPUT"
	ErrCodeInvalidJSON  = "ERR_INVALID_JSON"
	ErrCodeValidation   = "ERR_VALIDATION"
	ErrCodeTooLarge     = "ERR_REQUEST_TOO_LARGE"

	ErrCodeUnauthorized = "ERR_UNAUTHORIZED"
	ErrCodeTokenExpired = "ERR_TOKEN_EXPIRED"
	ErrCodeTokenInvalid = "ERR_TOKEN_INVALID"

	ErrCodeNotFound     = "ERR_NOT_FOUND"
	ErrCodeConflict     = "ERR_CONFLICT"
	ErrCodeInvalidState = "ERR_INVALID_STATE"

	// the remote catalog could not be reached or is not configured
	ErrCodeRemoteUnavailable = "ERR_REMOTE_UNAVAILABLE"
)

type codeInfo struct {
	status int
	// domain is the shared.DomainError code that maps onto this API code
	domain string
}

var codeTable = map[string]codeInfo{
	ErrCodeInternal: {http.StatusInternalServerError, "INTERNAL_ERROR"},
	ErrCodeNotReady: {http.StatusServiceUnavailable, ""},

	ErrCodeBadRequest:   {http.StatusBadRequest, "BAD_REQUEST"},
	ErrCodeInvalidInput: {http.StatusBadRequest, "INVALID_INPUT"},
	ErrCodeInvalidJSON:  {http.StatusBadRequest, ""},
	ErrCodeValidation:   {http.StatusBadRequest, "VALIDATION_ERROR"},
	ErrCodeTooLarge:     {http.StatusRequestEntityTooLarge, ""},

	ErrCodeUnauthorized: {http.StatusUnauthorized, "UNAUTHORIZED"},
	ErrCodeTokenExpired: {http.StatusUnauthorized, ""},
	ErrCodeTokenInvalid: {http.StatusUnauthorized, ""},

	ErrCodeNotFound:     {http.StatusNotFound, "NOT_FOUND"},
	ErrCodeConflict:     {http.StatusConflict, "CONFLICT"},
	ErrCodeInvalidState: {http.StatusUnprocessableEntity, "INVALID_STATE"},

	ErrCodeRemoteUnavailable: {http.StatusBadGateway, "REMOTE_UNAVAILABLE"},
}

// fromDomain is codeTable inverted on the domain code
var fromDomain = func() map[string]string {
	m := make(map[string]string, len(codeTable))
	for code, info := range codeTable {
		if info.domain != "" {
			m[info.domain] = code
		}
	}
	return m
}()

// GetHTTPStatus returns the status for an API code, 500 for unknown codes
func GetHTTPStatus(code string) int {
	if info, ok := codeTable[code]; ok {
		return info.status
	}
	return http.StatusInternalServerError
}

// NormalizeErrorCode turns a domain error code into its API code. API codes
// and unknown codes pass through.
func NormalizeErrorCode(code string) string {
	if apiCode, ok := fromDomain[code]; ok {
		return apiCode
	}
	return code
}
