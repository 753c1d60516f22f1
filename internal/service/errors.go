package service

import (
	"errors"
	"fmt"
)

// Kind classifies a DomainError. Handlers map kinds to HTTP statuses.
type Kind string

const (
	KindInvalidCredentials Kind = "invalid_credentials"
	KindUnauthorized       Kind = "unauthorized"
	KindForbidden          Kind = "forbidden"
	KindTokenExpired       Kind = "token_expired"
	KindTokenMalformed     Kind = "token_malformed"
	KindConflict           Kind = "conflict"
	KindValidation         Kind = "validation"
	KindNotFound           Kind = "not_found"
	KindInfrastructure     Kind = "infrastructure"
)

type DomainError struct {
	Kind    Kind
	Message string
	Fields  map[string]string
	Err     error
}

func (e *DomainError) Error() string {
	if e.Err != nil {
		return fmt.Sprintf("%s: %s: %v", e.Kind, e.Message, e.Err)
	}
	return fmt.Sprintf("%s: %s", e.Kind, e.Message)
}

func (e *DomainError) Unwrap() error {
	return e.Err
}

// Is matches any DomainError of the same kind.
func (e *DomainError) Is(target error) bool {
	t, ok := target.(*DomainError)
	return ok && t.Kind == e.Kind
}

// Retriable reports whether the caller may retry with backoff.
func (e *DomainError) Retriable() bool {
	return e.Kind == KindInfrastructure
}

var (
	ErrInvalidCredentials  = &DomainError{Kind: KindInvalidCredentials, Message: "invalid credentials"}
	ErrUnauthorized        = &DomainError{Kind: KindUnauthorized, Message: "authentication required"}
	ErrForbidden           = &DomainError{Kind: KindForbidden, Message: "insufficient role"}
	ErrTokenExpired        = &DomainError{Kind: KindTokenExpired, Message: "session expired"}
	ErrTokenMalformed      = &DomainError{Kind: KindTokenMalformed, Message: "session token malformed"}
	ErrEmailTaken          = &DomainError{Kind: KindConflict, Message: "user already exists"}
	ErrAccountLinkRequired = &DomainError{Kind: KindConflict, Message: "an account with this email already exists; sign in with your password"}
	ErrValidation          = &DomainError{Kind: KindValidation, Message: "invalid input"}
	ErrNotFound            = &DomainError{Kind: KindNotFound, Message: "not found"}
	ErrInfrastructure      = &DomainError{Kind: KindInfrastructure, Message: "service temporarily unavailable"}
)

// KindOf returns the kind of the first DomainError in err's chain, or "" when
// there is none.
func KindOf(err error) Kind {
	var de *DomainError
	if errors.As(err, &de) {
		return de.Kind
	}
	return ""
}

func validationError(message string, fields map[string]string) error {
	return &DomainError{Kind: KindValidation, Message: message, Fields: fields}
}

func notFound(message string) error {
	return &DomainError{Kind: KindNotFound, Message: message}
}

func infrastructure(op string, err error) error {
	return &DomainError{Kind: KindInfrastructure, Message: op, Err: err}
}
