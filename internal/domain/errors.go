package domain

import (
	"errors"
	"fmt"
)

// ValidationError is a malformed or incomplete request. It is reported to the
// caller as a 4xx and never retried.
type ValidationError struct {
	Field   string
	Message string
}

func (e *ValidationError) Error() string {
	if e.Field == "" {
		return e.Message
	}
	return fmt.Sprintf("%s: %s", e.Field, e.Message)
}

func NewValidationError(field, format string, args ...any) *ValidationError {
	return &ValidationError{Field: field, Message: fmt.Sprintf(format, args...)}
}

// SignatureError is a webhook payload whose signature could not be verified.
type SignatureError struct {
	Err error
}

func (e *SignatureError) Error() string {
	return fmt.Sprintf("webhook signature verification failed: %v", e.Err)
}

func (e *SignatureError) Unwrap() error {
	return e.Err
}

type UpstreamKind string

const (
	UpstreamCardDeclined   UpstreamKind = "card_declined"
	UpstreamRateLimited    UpstreamKind = "rate_limited"
	UpstreamInvalidRequest UpstreamKind = "invalid_request"
	UpstreamConnectivity   UpstreamKind = "connectivity"
	UpstreamAuthentication UpstreamKind = "authentication"
	UpstreamAPI            UpstreamKind = "api"
)

// UpstreamError is a classified payment processor failure.
type UpstreamError struct {
	Kind UpstreamKind
	Err  error
}

func (e *UpstreamError) Error() string {
	return fmt.Sprintf("payment processor error (%s): %v", e.Kind, e.Err)
}

func (e *UpstreamError) Unwrap() error {
	return e.Err
}

// UserActionable reports whether the buyer can fix the failure themselves.
func (e *UpstreamError) UserActionable() bool {
	return e.Kind == UpstreamCardDeclined || e.Kind == UpstreamInvalidRequest
}

// PersistenceError is a database failure during reconciliation. The webhook
// caller receives a 500 so the processor redelivers.
type PersistenceError struct {
	Op  string
	Err error
}

func (e *PersistenceError) Error() string {
	return fmt.Sprintf("persistence failure in %s: %v", e.Op, e.Err)
}

func (e *PersistenceError) Unwrap() error {
	return e.Err
}

// NotificationError is an email delivery failure. It is logged, never escalated.
type NotificationError struct {
	Template string
	To       string
	Err      error
}

func (e *NotificationError) Error() string {
	return fmt.Sprintf("notification %q to %s failed: %v", e.Template, e.To, e.Err)
}

func (e *NotificationError) Unwrap() error {
	return e.Err
}

func IsValidation(err error) bool {
	var v *ValidationError
	return errors.As(err, &v)
}

func IsPersistence(err error) bool {
	var p *PersistenceError
	return errors.As(err, &p)
}
