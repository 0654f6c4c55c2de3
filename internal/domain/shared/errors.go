package shared

import (
	"errors"
	"fmt"

	"github.com/shopspring/decimal"
)

// Error codes used across the negotiation engine
const (
	CodeValidation          = "VALIDATION_ERROR"
	CodeNotFound            = "NOT_FOUND"
	CodeInvalidState        = "INVALID_STATE"
	CodeEmptyOrder          = "EMPTY_ORDER"
	CodeOverAllocation      = "OVER_ALLOCATION"
	CodePriceNotFound       = "PRICE_NOT_FOUND"
	CodeExternalDependency  = "EXTERNAL_DEPENDENCY"
	CodeConcurrencyConflict = "CONCURRENCY_CONFLICT"
	CodeInternal            = "INTERNAL_ERROR"
)

// DomainError represents a domain-level error
type DomainError struct {
	Code    string `json:"code"`
	Message string `json:"message"`
	cause   error
}

// Error implements the error interface
func (e *DomainError) Error() string {
	return e.Message
}

// Unwrap returns the underlying cause, if any
func (e *DomainError) Unwrap() error {
	return e.cause
}

// Is reports whether target is a DomainError with the same code.
// This lets callers use errors.Is(err, shared.ErrNotFound) regardless of message.
func (e *DomainError) Is(target error) bool {
	t, ok := target.(*DomainError)
	if !ok {
		return false
	}
	return e.Code == t.Code
}

// NewDomainError creates a new domain error
func NewDomainError(code, message string) *DomainError {
	return &DomainError{
		Code:    code,
		Message: message,
	}
}

// NewValidationError creates a VALIDATION_ERROR
func NewValidationError(message string) *DomainError {
	return NewDomainError(CodeValidation, message)
}

// NewNotFoundError creates a NOT_FOUND error for the named resource
func NewNotFoundError(resource string, id fmt.Stringer) *DomainError {
	return NewDomainError(CodeNotFound, fmt.Sprintf("%s %s not found", resource, id))
}

// NewInvalidStateError creates an INVALID_STATE error
func NewInvalidStateError(message string) *DomainError {
	return NewDomainError(CodeInvalidState, message)
}

// NewExternalDependencyError wraps a collaborator failure
func NewExternalDependencyError(dependency string, cause error) *DomainError {
	return &DomainError{
		Code:    CodeExternalDependency,
		Message: fmt.Sprintf("%s is unavailable", dependency),
		cause:   cause,
	}
}

// OverAllocationError is returned when a transport requests more than the item has left
type OverAllocationError struct {
	Requested decimal.Decimal
	Available decimal.Decimal
}

// NewOverAllocationError creates an OverAllocationError
func NewOverAllocationError(requested, available decimal.Decimal) *OverAllocationError {
	return &OverAllocationError{Requested: requested, Available: available}
}

// Error implements the error interface
func (e *OverAllocationError) Error() string {
	return fmt.Sprintf("Requested quantity %s exceeds available quantity %s", e.Requested.String(), e.Available.String())
}

// Unwrap exposes the error as an OVER_ALLOCATION DomainError
func (e *OverAllocationError) Unwrap() error {
	return NewDomainError(CodeOverAllocation, e.Error())
}

// Common domain errors
var (
	ErrNotFound            = NewDomainError(CodeNotFound, "Resource not found")
	ErrValidation          = NewDomainError(CodeValidation, "Invalid input provided")
	ErrConcurrencyConflict = NewDomainError(CodeConcurrencyConflict, "Resource was modified by another process, reload and retry")
	ErrInvalidState        = NewDomainError(CodeInvalidState, "Operation not allowed in current state")
	ErrEmptyOrder          = NewDomainError(CodeEmptyOrder, "Cannot close an order without items")
	ErrOverAllocation      = NewDomainError(CodeOverAllocation, "Requested quantity exceeds available quantity")
	ErrPriceNotFound       = NewDomainError(CodePriceNotFound, "No catalog price found for product")
	ErrExternalDependency  = NewDomainError(CodeExternalDependency, "External dependency failure")
	ErrInternal            = NewDomainError(CodeInternal, "An unexpected error occurred")
)

// IsBusinessError reports whether err carries a DomainError other than INTERNAL_ERROR
func IsBusinessError(err error) bool {
	var domainErr *DomainError
	if !errors.As(err, &domainErr) {
		return false
	}
	return domainErr.Code != CodeInternal
}
