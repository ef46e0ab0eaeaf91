package errors

import (
	"errors"
	"fmt"
)

// Domain error taxonomy for the wallet service.
var (
	ErrAccountNotFound     = errors.New("account not found")
	ErrUserNotFound        = errors.New("user not found")
	ErrRequestNotFound     = errors.New("request not found")
	ErrEventNotFound       = errors.New("event not found")
	ErrBusinessNotFound    = errors.New("business not found")
	ErrTransactionNotFound = errors.New("transaction not found")
	ErrAlreadyExists       = errors.New("already exists")
	ErrDuplicatePending    = errors.New("a pending request already exists for this account")
	ErrInsufficientFunds   = errors.New("insufficient funds")
	ErrInvalidAmount       = errors.New("invalid amount")
	ErrSameAccount         = errors.New("source and destination accounts cannot be the same")
	ErrAccountRetired      = errors.New("account is retired")
	ErrUnauthorized        = errors.New("unauthorized")
	ErrForbidden           = errors.New("forbidden")
	ErrInvalidCredentials  = errors.New("invalid credentials")
	ErrTransferLimit       = errors.New("amount exceeds the configured transfer limit")
)

type ValidationError struct {
	Field   string
	Message string
}

func (e *ValidationError) Error() string {
	return fmt.Sprintf("validation error on field '%s': %s", e.Field, e.Message)
}

func NewValidationError(field, message string) error {
	return &ValidationError{
		Field:   field,
		Message: message,
	}
}

// TransitionError reports an attempted illegal state-machine transition,
// e.g. approving a withdrawal that is no longer pendiente.
type TransitionError struct {
	Entity string
	From   string
	To     string
}

func (e *TransitionError) Error() string {
	return fmt.Sprintf("invalid %s transition from '%s' to '%s'", e.Entity, e.From, e.To)
}

func NewTransitionError(entity, from, to string) error {
	return &TransitionError{
		Entity: entity,
		From:   from,
		To:     to,
	}
}

// ExternalError wraps a failure of an external collaborator (chain node,
// payment provider). The operation that triggered it stays pendiente and is
// retried by the reconciler rather than being marked failed.
type ExternalError struct {
	Service string
	Cause   error
}

func (e *ExternalError) Error() string {
	return fmt.Sprintf("external service '%s' failed: %v", e.Service, e.Cause)
}

func (e *ExternalError) Unwrap() error {
	return e.Cause
}

func NewExternalError(service string, cause error) error {
	return &ExternalError{
		Service: service,
		Cause:   cause,
	}
}

// StorageError wraps a low-level storage failure with the operation that hit it.
type StorageError struct {
	Operation string
	Cause     error
}

func (e *StorageError) Error() string {
	return fmt.Sprintf("storage error during '%s': %v", e.Operation, e.Cause)
}

func (e *StorageError) Unwrap() error {
	return e.Cause
}

func NewStorageError(operation string, cause error) error {
	return &StorageError{
		Operation: operation,
		Cause:     cause,
	}
}

func IsNotFound(err error) bool {
	return errors.Is(err, ErrAccountNotFound) ||
		errors.Is(err, ErrUserNotFound) ||
		errors.Is(err, ErrRequestNotFound) ||
		errors.Is(err, ErrEventNotFound) ||
		errors.Is(err, ErrBusinessNotFound) ||
		errors.Is(err, ErrTransactionNotFound)
}

func IsInsufficientFunds(err error) bool {
	return errors.Is(err, ErrInsufficientFunds)
}

func IsValidationError(err error) bool {
	var validationErr *ValidationError
	return errors.As(err, &validationErr)
}

func IsTransitionError(err error) bool {
	var transitionErr *TransitionError
	return errors.As(err, &transitionErr)
}

func IsExternalError(err error) bool {
	var externalErr *ExternalError
	return errors.As(err, &externalErr)
}

func IsConflict(err error) bool {
	return errors.Is(err, ErrAlreadyExists) || errors.Is(err, ErrDuplicatePending)
}

func IsAuthError(err error) bool {
	return errors.Is(err, ErrUnauthorized) || errors.Is(err, ErrInvalidCredentials)
}

func IsForbidden(err error) bool {
	return errors.Is(err, ErrForbidden)
}
