package domain

import (
	"errors"
	"fmt"
)

// DomainError represents a domain-specific error
type DomainError struct {
	Code    string
	Message string
	Err     error
}

// Error implements the error interface
func (e *DomainError) Error() string {
	if e.Err != nil {
		return fmt.Sprintf("[%s] %s: %v", e.Code, e.Message, e.Err)
	}
	return fmt.Sprintf("[%s] %s", e.Code, e.Message)
}

// Unwrap returns the underlying error
func (e *DomainError) Unwrap() error {
	return e.Err
}

// NewDomainError creates a new DomainError
func NewDomainError(code, message string) *DomainError {
	return &DomainError{
		Code:    code,
		Message: message,
		Err:     nil,
	}
}

// NewDomainErrorWithCause creates a new DomainError with an underlying cause
func NewDomainErrorWithCause(code, message string, err error) *DomainError {
	return &DomainError{
		Code:    code,
		Message: message,
		Err:     err,
	}
}

// Common domain error codes
const (
	ErrCodeValidation       = "VALIDATION_ERROR"
	ErrCodeNotFound         = "NOT_FOUND"
	ErrCodeUnauthorized     = "UNAUTHORIZED"
	ErrCodeUnavailable      = "STORE_UNAVAILABLE"
	ErrCodeInternalError    = "INTERNAL_ERROR"
	ErrCodeInvalidOperation = "INVALID_OPERATION"
)

// Validation errors
var (
	ErrEmbeddingDimension   = NewDomainError(ErrCodeValidation, "embedding dimensionality mismatch")
	ErrMissingPartitionKey  = NewDomainError(ErrCodeValidation, "tenant partition key is required")
	ErrMissingRequiredField = NewDomainError(ErrCodeValidation, "missing required field")
	ErrInvalidIngestStatus  = NewDomainError(ErrCodeValidation, "invalid ingestion job status")
)

// Not found errors. An empty retrieval result is NOT one of these: a scan
// with no ingested chunks returns an empty slice, never an error.
var (
	ErrChunkNotFound    = NewDomainError(ErrCodeNotFound, "chunk not found")
	ErrDocumentNotFound = NewDomainError(ErrCodeNotFound, "document not found")
)

// Infrastructure failures. ErrCodeUnavailable is the failure category the
// grounding fallback keys on: a bulk corpus fetch that fails with it
// degrades to per-query scoped retrieval.
var (
	ErrStoreUnavailable     = NewDomainError(ErrCodeUnavailable, "chunk store unavailable")
	ErrEmbeddingProvider    = NewDomainError(ErrCodeInternalError, "embedding provider call failed")
	ErrStorageOperationFail = NewDomainError(ErrCodeInternalError, "storage operation failed")
)

// IsStoreFailure reports whether err belongs to the store-failure category.
func IsStoreFailure(err error) bool {
	var derr *DomainError
	if errors.As(err, &derr) {
		return derr.Code == ErrCodeUnavailable
	}
	return false
}
