package services

import (
	"errors"
	"fmt"
	"strings"
)

// ErrPaymentNotFound is returned when a payment record does not exist
var ErrPaymentNotFound = errors.New("payment not found")

// ValidationError reports caller input that cannot be processed
type ValidationError struct {
	Fields  []string
	Message string
}

func (e *ValidationError) Error() string {
	if e.Message != "" {
		return e.Message
	}
	return "missing or invalid fields: " + strings.Join(e.Fields, ", ")
}

// GatewayError wraps a failed payment gateway call
type GatewayError struct {
	Op      string
	Message string
	Err     error
}

func (e *GatewayError) Error() string {
	return fmt.Sprintf("payment gateway %s failed: %s", e.Op, e.Message)
}

func (e *GatewayError) Unwrap() error {
	return e.Err
}

// SignatureVerificationError reports a webhook that failed authenticity checks
type SignatureVerificationError struct {
	Err error
}

func (e *SignatureVerificationError) Error() string {
	return e.Err.Error()
}

func (e *SignatureVerificationError) Unwrap() error {
	return e.Err
}

// PersistenceError reports a failed write during webhook reconciliation
type PersistenceError struct {
	Collection string
	ID         string
	Err        error
}

func (e *PersistenceError) Error() string {
	return fmt.Sprintf("failed to persist %s/%s: %v", e.Collection, e.ID, e.Err)
}

func (e *PersistenceError) Unwrap() error {
	return e.Err
}
