package services

import (
	"errors"
	"fmt"
	"strings"

	"github.com/hashicorp/go-multierror"
)

// Roots of the error taxonomy. Every error a service returns wraps exactly
// one of them; handlers map the roots to status codes.
var (
	ErrValidation     = errors.New("validation failed")
	ErrAuthentication = errors.New("authentication failed")
	ErrAuthorization  = errors.New("permission denied")
	ErrNotFound       = errors.New("not found")
	ErrKeyGeneration  = errors.New("could not create an external link key")
)

var (
	ErrInvalidCredentials = fmt.Errorf("%w: invalid username or password", ErrAuthentication)
	ErrMissingCredentials = fmt.Errorf("%w: provide username and password", ErrAuthentication)
	ErrNotAuthenticated   = fmt.Errorf("%w: not authenticated", ErrAuthentication)

	ErrUserNotFound = fmt.Errorf("%w: user", ErrNotFound)
	ErrFileNotFound = fmt.Errorf("%w: file", ErrNotFound)
	ErrBlobNotFound = fmt.Errorf("%w: file content", ErrNotFound)
	ErrLinkNotFound = fmt.Errorf("%w: external link", ErrNotFound)

	ErrDuplicateName = errors.New("a file with this name already exists")
)

type FieldError struct {
	Field   string
	Message string
}

func (e *FieldError) Error() string {
	return e.Field + ": " + e.Message
}

// ValidationError carries one or more field errors. It matches ErrValidation
// with errors.Is and unwraps to its cause, if any.
type ValidationError struct {
	errs  *multierror.Error
	cause error
}

func (e *ValidationError) Error() string {
	msgs := make([]string, 0, len(e.errs.Errors))
	for _, err := range e.errs.Errors {
		msgs = append(msgs, err.Error())
	}
	return "validation failed: " + strings.Join(msgs, "; ")
}

func (e *ValidationError) Is(target error) bool {
	return target == ErrValidation
}

func (e *ValidationError) Unwrap() error {
	return e.cause
}

// Fields groups the messages by field name.
func (e *ValidationError) Fields() map[string][]string {
	fields := make(map[string][]string)
	for _, err := range e.errs.Errors {
		var fe *FieldError
		if errors.As(err, &fe) {
			fields[fe.Field] = append(fields[fe.Field], fe.Message)
		}
	}
	return fields
}

func newFieldError(field string, cause error) *ValidationError {
	return &ValidationError{
		errs:  multierror.Append(nil, &FieldError{Field: field, Message: cause.Error()}),
		cause: cause,
	}
}
