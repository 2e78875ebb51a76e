package domain

import (
	"errors"
	"fmt"
)

var (
	// ErrNotFound is returned by stores when a referenced row does not exist.
	ErrNotFound = errors.New("not found")
	// ErrUnauthorized is returned when credentials or a session do not check out.
	ErrUnauthorized = errors.New("unauthorized")
	// ErrMissingCredentials is returned when a login omits the user id or password.
	ErrMissingCredentials = errors.New("user id and password are required")
	// ErrDuplicateUser is returned when provisioning a user id that already exists.
	ErrDuplicateUser = errors.New("user already exists")
)

// Message keys handed to the presentation layer.
const (
	MessageMissingFields   = "chapter.missing_fields"
	MessageInvalidQuestion = "chapter.invalid_question"
	MessageNotFound        = "not_found"
	MessageInternal        = "internal"
	MessageLoginRequired   = "login.required_fields"
	MessageLoginInvalid    = "login.invalid_credentials"
	MessageSessionRequired = "session.required"
	MessageBadRequest      = "request.malformed"
)

// ValidationKind tells apart the two ways authoring input can be rejected.
type ValidationKind int

const (
	// ValidationMissingFields means the title or the question list is empty.
	ValidationMissingFields ValidationKind = iota + 1
	// ValidationInvalidQuestion means one question has a blank field or a bad correct label.
	ValidationInvalidQuestion
)

// ValidationError rejects authoring input. Title and Description echo what the
// author entered so the form can be shown again.
type ValidationError struct {
	Kind        ValidationKind
	Index       int // 0-based question index, -1 when not question specific
	Reason      string
	Title       string
	Description string
}

func invalidQuestion(index int, reason string) *ValidationError {
	return &ValidationError{Kind: ValidationInvalidQuestion, Index: index, Reason: reason}
}

func (e *ValidationError) Error() string {
	if e.Kind == ValidationInvalidQuestion {
		return fmt.Sprintf("invalid question %d: %s", e.Index+1, e.Reason)
	}
	return "invalid chapter: " + e.Reason
}

// MessageKey returns the user-facing message key.
func (e *ValidationError) MessageKey() string {
	if e.Kind == ValidationInvalidQuestion {
		return MessageInvalidQuestion
	}
	return MessageMissingFields
}

// NotFoundError reports a missing chapter (or chapter content).
type NotFoundError struct {
	Resource string
	ID       int64
}

func (e *NotFoundError) Error() string {
	return fmt.Sprintf("%s %d not found", e.Resource, e.ID)
}

func (e *NotFoundError) Is(target error) bool { return target == ErrNotFound }

func (e *NotFoundError) MessageKey() string { return MessageNotFound }

// PersistenceError wraps any storage failure. Its message stays generic; the
// wrapped error is for logs only.
type PersistenceError struct {
	Op  string
	Err error
}

func (e *PersistenceError) Error() string {
	return e.Op + ": persistence failure"
}

func (e *PersistenceError) Unwrap() error { return e.Err }

func (e *PersistenceError) MessageKey() string { return MessageInternal }
