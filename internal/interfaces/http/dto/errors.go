package dto

import (
	"net/http"

	"github.com/agrolink/backend/internal/domain/shared"
)

// Error codes carried in the error envelope
const (
	ErrCodeInternal            = "ERR_INTERNAL"
	ErrCodeValidation          = "ERR_VALIDATION"
	ErrCodeBadRequest          = "ERR_BAD_REQUEST"
	ErrCodeInvalidInput        = "ERR_INVALID_INPUT"
	ErrCodeUnauthorized        = "ERR_UNAUTHORIZED"
	ErrCodeForbidden           = "ERR_FORBIDDEN"
	ErrCodeNotFound            = "ERR_NOT_FOUND"
	ErrCodeConflict            = "ERR_CONFLICT"
	ErrCodeConcurrencyConflict = "ERR_CONCURRENCY_CONFLICT"
	ErrCodeInvalidState        = "ERR_INVALID_STATE"
	ErrCodeEmptyOrder          = "ERR_EMPTY_ORDER"
	ErrCodeOverAllocation      = "ERR_OVER_ALLOCATION"
	ErrCodePriceNotFound       = "ERR_PRICE_NOT_FOUND"
	ErrCodeExternalDependency  = "ERR_EXTERNAL_DEPENDENCY"
	ErrCodeTimeout             = "ERR_TIMEOUT"
	ErrCodePayloadTooLarge     = "ERR_PAYLOAD_TOO_LARGE"
	ErrCodeRateLimited         = "ERR_RATE_LIMITED"
)

var statusByCode = map[string]int{
	ErrCodeInternal:            http.StatusInternalServerError,
	ErrCodeValidation:          http.StatusBadRequest,
	ErrCodeBadRequest:          http.StatusBadRequest,
	ErrCodeInvalidInput:        http.StatusBadRequest,
	ErrCodeUnauthorized:        http.StatusUnauthorized,
	ErrCodeForbidden:           http.StatusForbidden,
	ErrCodeNotFound:            http.StatusNotFound,
	ErrCodeConflict:            http.StatusConflict,
	ErrCodeConcurrencyConflict: http.StatusConflict,
	ErrCodeInvalidState:        http.StatusUnprocessableEntity,
	ErrCodeEmptyOrder:          http.StatusUnprocessableEntity,
	ErrCodeOverAllocation:      http.StatusUnprocessableEntity,
	ErrCodePriceNotFound:       http.StatusUnprocessableEntity,
	ErrCodeExternalDependency:  http.StatusBadGateway,
	ErrCodeTimeout:             http.StatusGatewayTimeout,
	ErrCodePayloadTooLarge:     http.StatusRequestEntityTooLarge,
	ErrCodeRateLimited:         http.StatusTooManyRequests,
}

var codeByDomainCode = map[string]string{
	shared.CodeValidation:          ErrCodeValidation,
	shared.CodeNotFound:            ErrCodeNotFound,
	shared.CodeInvalidState:        ErrCodeInvalidState,
	shared.CodeEmptyOrder:          ErrCodeEmptyOrder,
	shared.CodeOverAllocation:      ErrCodeOverAllocation,
	shared.CodePriceNotFound:       ErrCodePriceNotFound,
	shared.CodeExternalDependency:  ErrCodeExternalDependency,
	shared.CodeConcurrencyConflict: ErrCodeConcurrencyConflict,
	shared.CodeInternal:            ErrCodeInternal,
}

// StatusFor returns the HTTP status for code, or 500 for codes it does not know
func StatusFor(code string) int {
	if status, ok := statusByCode[code]; ok {
		return status
	}
	return http.StatusInternalServerError
}

// FromDomainCode maps a shared.DomainError code to the API code. Unknown
// domain codes are reported as internal errors.
func FromDomainCode(domainCode string) string {
	if code, ok := codeByDomainCode[domainCode]; ok {
		return code
	}
	return ErrCodeInternal
}
