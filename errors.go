package magicstore

import (
	"errors"
	"fmt"
	"strings"
)

// Precondition errors. They report misuse of the API and are returned
// immediately, wrapped with the offending name.
var (
	// ErrNilArgument is returned when a required argument is nil.
	ErrNilArgument = errors.New("magicstore: argument must not be nil")

	// ErrUnmanagedType is returned for a schema or value whose type is
	// not registered with the entity context.
	ErrUnmanagedType = errors.New("magicstore: entity type is not managed by this context")

	// ErrNotProxy is returned when a raw value is passed where a proxy
	// returned by Get or Search is required.
	ErrNotProxy = errors.New("magicstore: entity must be a proxy returned by Get or Search")

	// ErrDuplicateType is returned when a schema name is registered twice.
	ErrDuplicateType = errors.New("magicstore: entity type is duplicated")

	// ErrNotFound is returned when a requested entity does not exist.
	ErrNotFound = errors.New("magicstore: entity not found")

	// ErrPrivacyDenied is matched by every error returned for an operation
	// rejected by the privacy policy.
	ErrPrivacyDenied = errors.New("magicstore: privacy denied")
)

// Error is one failure reported by Save or Delete: a data validation
// message, or a repository failure carrying its cause.
type Error struct {
	Message string
	Err     error
}

// Error returns the message.
func (e *Error) Error() string { return e.Message }

// Unwrap returns the underlying cause, if any.
func (e *Error) Unwrap() error { return e.Err }

// Errors is the list of failures returned by Save and Delete.
type Errors []*Error

// Error returns the messages of all errors.
func (es Errors) Error() string {
	switch len(es) {
	case 0:
		return "magicstore: no errors"
	case 1:
		return "magicstore: " + es[0].Message
	}
	var sb strings.Builder
	fmt.Fprintf(&sb, "magicstore: %d errors:", len(es))
	for i, e := range es {
		fmt.Fprintf(&sb, "\n  [%d] %s", i+1, e.Message)
	}
	return sb.String()
}

// Messages returns the message of every error.
func (es Errors) Messages() []string {
	msgs := make([]string, len(es))
	for i, e := range es {
		msgs[i] = e.Message
	}
	return msgs
}

// Unwrap returns the errors for errors.Is and errors.As.
func (es Errors) Unwrap() []error {
	errs := make([]error, len(es))
	for i, e := range es {
		errs[i] = e
	}
	return errs
}

// AsErrors returns the Errors carried by err.
func AsErrors(err error) (Errors, bool) {
	var es Errors
	if errors.As(err, &es) {
		return es, true
	}
	return nil, false
}

// repositoryError turns a repository failure into a single-error list.
func repositoryError(err error) Errors {
	return Errors{{Message: err.Error(), Err: err}}
}

// StorageError is returned by New when a repository fails to prepare the
// storage of a schema.
type StorageError struct {
	Entity string
	Err    error
}

// Error returns the error string.
func (e *StorageError) Error() string {
	return fmt.Sprintf("magicstore: failed to prepare storage for entity type '%s': %v", e.Entity, e.Err)
}

// Unwrap returns the underlying error.
func (e *StorageError) Unwrap() error { return e.Err }

// IsStorageError returns true if the error is a StorageError.
func IsStorageError(err error) bool {
	var e *StorageError
	return errors.As(err, &e)
}

// NotFoundError represents an error when an entity is not found.
type NotFoundError struct {
	label string
	id    any
}

// Error returns the error string.
func (e *NotFoundError) Error() string {
	if e.id != nil {
		return fmt.Sprintf("magicstore: %s not found (id=%v)", e.label, e.id)
	}
	return fmt.Sprintf("magicstore: %s not found", e.label)
}

// Is reports whether the target error matches NotFoundError.
func (e *NotFoundError) Is(err error) bool { return err == ErrNotFound }

// Label returns the entity label.
func (e *NotFoundError) Label() string { return e.label }

// ID returns the ID that was searched for, if available.
func (e *NotFoundError) ID() any { return e.id }

// NewNotFoundError returns a new NotFoundError for the given entity type.
func NewNotFoundError(label string) *NotFoundError {
	return &NotFoundError{label: label}
}

// NewNotFoundErrorWithID returns a new NotFoundError with the ID that was searched for.
func NewNotFoundErrorWithID(label string, id any) *NotFoundError {
	return &NotFoundError{label: label, id: id}
}

// IsNotFound returns true if the error is a NotFoundError.
func IsNotFound(err error) bool {
	return err != nil && errors.Is(err, ErrNotFound)
}

// QueryError wraps a repository fetch error with the searched schema.
type QueryError struct {
	Entity string
	Err    error
}

// Error returns the error string.
func (e *QueryError) Error() string {
	return fmt.Sprintf("magicstore: querying %s: %v", e.Entity, e.Err)
}

// Unwrap returns the underlying error.
func (e *QueryError) Unwrap() error { return e.Err }

// IsQueryError returns true if the error is a QueryError.
func IsQueryError(err error) bool {
	var e *QueryError
	return errors.As(err, &e)
}

// PrivacyError represents a privacy policy violation.
type PrivacyError struct {
	Entity string
	Op     string
	// Decision is the error returned by the policy.
	Decision error
}

// Error returns the error string.
func (e *PrivacyError) Error() string {
	if e.Decision != nil {
		return fmt.Sprintf("magicstore: privacy denied %s on %s: %v", e.Op, e.Entity, e.Decision)
	}
	return fmt.Sprintf("magicstore: privacy denied %s on %s", e.Op, e.Entity)
}

// Is reports whether the target is ErrPrivacyDenied.
func (e *PrivacyError) Is(err error) bool { return err == ErrPrivacyDenied }

// Unwrap returns the policy decision.
func (e *PrivacyError) Unwrap() error { return e.Decision }

// IsPrivacyError returns true if the error is a PrivacyError.
func IsPrivacyError(err error) bool {
	return err != nil && errors.Is(err, ErrPrivacyDenied)
}

// AggregateError represents multiple errors collected during an operation.
type AggregateError struct {
	Errors []error
}

// Error returns the error string.
func (e *AggregateError) Error() string {
	if len(e.Errors) == 0 {
		return "magicstore: no errors"
	}
	if len(e.Errors) == 1 {
		return e.Errors[0].Error()
	}
	var sb strings.Builder
	sb.WriteString("magicstore: multiple errors:")
	for i, err := range e.Errors {
		fmt.Fprintf(&sb, "\n  [%d] %v", i+1, err)
	}
	return sb.String()
}

// Unwrap returns the collected errors.
func (e *AggregateError) Unwrap() []error { return e.Errors }

// NewAggregateError returns a new AggregateError if there are errors,
// otherwise returns nil. A single error is returned as is.
func NewAggregateError(errs ...error) error {
	var filtered []error
	for _, err := range errs {
		if err != nil {
			filtered = append(filtered, err)
		}
	}
	switch len(filtered) {
	case 0:
		return nil
	case 1:
		return filtered[0]
	}
	return &AggregateError{Errors: filtered}
}
