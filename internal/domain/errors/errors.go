// Package errors defines domain-specific error types.
// Using typed errors (instead of strings) allows clients to handle specific cases.
//
// The taxonomy mirrors what the HTTP adapter needs to map: validation problems,
// missing entities, insufficient funds, and the internal persistence races
// (duplicate keys, serialization aborts) that the engines resolve themselves.
//
// Pattern: Sentinel Errors + Custom Error Types
package errors

import (
	"errors"
	"fmt"
)

// Common sentinel errors for domain validation
var (
	// Entity lookup errors
	ErrEntityNotFound      = errors.New("entity not found")
	ErrWalletNotFound      = errors.New("wallet not found")
	ErrAccountNotFound     = errors.New("account not found")
	ErrTransactionNotFound = errors.New("transaction log not found")

	// Transfer errors
	ErrInsufficientFunds     = errors.New("insufficient funds")
	ErrMissingIdempotencyKey = errors.New("idempotency key is required")

	// Transaction log state machine errors
	ErrTransactionNotPending = errors.New("transaction log is not in pending state")

	// Persistence race errors. Never surfaced to callers: duplicates trigger
	// the replay path, serialization failures are retried.
	ErrDuplicateIdempotencyKey = errors.New("duplicate idempotency key")
	ErrDuplicateInterestEntry  = errors.New("interest already calculated for this date")
	ErrSerializationFailure    = errors.New("transaction serialization failure")

	// ErrInternalInconsistency signals a broken runtime invariant, e.g. a
	// unique violation whose winning row cannot be fetched afterwards.
	ErrInternalInconsistency = errors.New("internal state inconsistency")
)

// DomainError is a custom error type that wraps errors with additional context.
// This allows adding domain-specific information while maintaining the error chain.
//
// Pattern: Error Wrapping with Context
type DomainError struct {
	Code    string // Machine-readable error code (e.g., "INSUFFICIENT_FUNDS")
	Message string // Human-readable message
	Err     error  // Underlying error (for error chains)
}

// Error implements the error interface.
func (e *DomainError) Error() string {
	if e.Err != nil {
		return fmt.Sprintf("[%s] %s: %v", e.Code, e.Message, e.Err)
	}
	return fmt.Sprintf("[%s] %s", e.Code, e.Message)
}

// Unwrap implements error unwrapping for errors.Is and errors.As.
func (e *DomainError) Unwrap() error {
	return e.Err
}

// NewDomainError creates a new domain error.
func NewDomainError(code, message string, err error) *DomainError {
	return &DomainError{
		Code:    code,
		Message: message,
		Err:     err,
	}
}

// ValidationError represents validation failures with field-level details.
// An invalid transfer (non-positive amount, same-wallet transfer, negative
// initial balance) is a ValidationError, never a persistence side effect.
type ValidationError struct {
	Field   string // Field name that failed validation
	Message string // What went wrong
}

// Error implements the error interface.
func (e ValidationError) Error() string {
	return fmt.Sprintf("validation failed for field '%s': %s", e.Field, e.Message)
}

// ValidationErrors is a collection of validation errors.
type ValidationErrors []ValidationError

// Error implements the error interface.
func (e ValidationErrors) Error() string {
	if len(e) == 0 {
		return "validation failed"
	}
	return fmt.Sprintf("validation failed: %d error(s)", len(e))
}

// Add appends a validation error.
func (e *ValidationErrors) Add(field, message string) {
	*e = append(*e, ValidationError{Field: field, Message: message})
}

// HasErrors returns true if there are any validation errors.
func (e ValidationErrors) HasErrors() bool {
	return len(e) > 0
}

// BusinessRuleViolation represents a violation of a business rule.
// Unlike validation errors (which are about data format), these are about
// business logic: "balance may not go negative" is a rule, not a format check.
type BusinessRuleViolation struct {
	Rule    string                 // Rule that was violated (e.g., "NEGATIVE_BALANCE")
	Message string                 // Human-readable explanation
	Context map[string]interface{} // Additional context (e.g., {"available": "10.00", "required": "50.00"})
}

// Error implements the error interface.
func (e BusinessRuleViolation) Error() string {
	return fmt.Sprintf("business rule violation [%s]: %s", e.Rule, e.Message)
}

// NewBusinessRuleViolation creates a new business rule violation error.
func NewBusinessRuleViolation(rule, message string, context map[string]interface{}) *BusinessRuleViolation {
	return &BusinessRuleViolation{
		Rule:    rule,
		Message: message,
		Context: context,
	}
}

// Helper functions for common error checking

// IsNotFound checks if an error indicates a missing entity.
func IsNotFound(err error) bool {
	return errors.Is(err, ErrEntityNotFound) ||
		errors.Is(err, ErrWalletNotFound) ||
		errors.Is(err, ErrAccountNotFound) ||
		errors.Is(err, ErrTransactionNotFound)
}

// IsInsufficientFunds checks if an error is an insufficient funds error.
func IsInsufficientFunds(err error) bool {
	return errors.Is(err, ErrInsufficientFunds)
}

// IsDuplicateKey checks if an error is a unique-constraint race, either on a
// transfer idempotency key or on an (account, date) interest entry.
func IsDuplicateKey(err error) bool {
	return errors.Is(err, ErrDuplicateIdempotencyKey) ||
		errors.Is(err, ErrDuplicateInterestEntry)
}

// IsSerializationFailure checks if an error is a database serialization abort.
// These are retryable at the use-case boundary.
func IsSerializationFailure(err error) bool {
	return errors.Is(err, ErrSerializationFailure)
}

// IsValidationError checks if an error is a validation error.
func IsValidationError(err error) bool {
	var valErr ValidationError
	var valErrs ValidationErrors
	return errors.As(err, &valErr) || errors.As(err, &valErrs)
}

// IsValidation is an alias for IsValidationError.
func IsValidation(err error) bool {
	return IsValidationError(err)
}

// IsBusinessRuleViolation checks if an error is a business rule violation.
func IsBusinessRuleViolation(err error) bool {
	var brv *BusinessRuleViolation
	return errors.As(err, &brv)
}
