package services

import (
	"errors"
	"fmt"

	"healthbridge-backend/internal/validation"
)

type ValidationError struct {
	Fields map[string]string
}

func (e *ValidationError) Error() string { return "Validation error" }

func asValidationError(err error) *ValidationError {
	var fe validation.FieldErrors
	if errors.As(err, &fe) {
		return &ValidationError{Fields: fe}
	}
	return &ValidationError{Fields: map[string]string{"body": err.Error()}}
}

type BadRequestError struct{ Message string }

func (e *BadRequestError) Error() string { return e.Message }

type NotFoundError struct{ Message string }

func (e *NotFoundError) Error() string { return e.Message }

type UnauthorizedError struct{ Message string }

func (e *UnauthorizedError) Error() string { return e.Message }

// PersistenceError means nothing was committed; the client should retry the whole request.
type PersistenceError struct {
	Op  string
	Err error
}

func (e *PersistenceError) Error() string { return fmt.Sprintf("%s: %v", e.Op, e.Err) }
func (e *PersistenceError) Unwrap() error { return e.Err }

type GatewayTimeoutError struct{ Message string }

func (e *GatewayTimeoutError) Error() string { return e.Message }

type GatewayError struct {
	Message string
	Err     error
}

func (e *GatewayError) Error() string {
	if e.Err != nil {
		return fmt.Sprintf("%s: %v", e.Message, e.Err)
	}
	return e.Message
}
func (e *GatewayError) Unwrap() error { return e.Err }

// ParseError reports gateway output that could not be read as JSON.
type ParseError struct{ Reason string }

func (e *ParseError) Error() string { return "could not extract JSON: " + e.Reason }

// UnavailableError is returned when an optional collaborator is not configured.
type UnavailableError struct{ Message string }

func (e *UnavailableError) Error() string { return e.Message }
