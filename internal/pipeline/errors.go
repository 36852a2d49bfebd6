package pipeline

import (
	"errors"
	"fmt"
	"sort"
	"strings"
)

// NonFieldErrors is the error map key for structural and global failures.
const NonFieldErrors = "non_field_errors"

// ErrExistingTarget is returned by Run when a caller supplies an already materialized target.
// Writes always resolve their own target from the identity key in the input.
var ErrExistingTarget = errors.New("pipeline: existing target supplied to a create-or-update schema")

// ErrNotFound matches any FieldError of kind KindNotFound under errors.Is.
var ErrNotFound = errors.New("pipeline: reference not found")

// ErrorKind classifies a FieldError.
type ErrorKind string

const (
	KindStructural    ErrorKind = "structural"
	KindFieldType     ErrorKind = "field_type"
	KindFieldSemantic ErrorKind = "field_semantic"
	KindCrossField    ErrorKind = "cross_field"
	KindNotFound      ErrorKind = "reference_not_found"
	KindDomainRule    ErrorKind = "domain_rule"
)

// FieldError is a single expected validation failure. Field is empty for errors produced by a field validator;
// the pipeline fills in the field being validated. Cross-field rules leave Field empty for global errors.
type FieldError struct {
	Field   string
	Kind    ErrorKind
	Message string
}

func (e *FieldError) Error() string {
	if e.Field == "" {
		return e.Message
	}
	return e.Field + ": " + e.Message
}

// Is reports whether target is ErrNotFound and e is a reference-not-found failure.
func (e *FieldError) Is(target error) bool {
	return target == ErrNotFound && e.Kind == KindNotFound
}

// Invalid returns a semantic failure of the field being validated.
func Invalid(format string, args ...any) *FieldError {
	return &FieldError{Kind: KindFieldSemantic, Message: fmt.Sprintf(format, args...)}
}

// NotFound returns a reference-not-found failure of the field being validated.
func NotFound(format string, args ...any) *FieldError {
	return &FieldError{Kind: KindNotFound, Message: fmt.Sprintf(format, args...)}
}

// Denied returns a business-rule failure. field may be empty for a global error.
func Denied(field, format string, args ...any) *FieldError {
	return &FieldError{Field: field, Kind: KindDomainRule, Message: fmt.Sprintf(format, args...)}
}

// Conflict returns a cross-field failure. field may be empty for a global error.
func Conflict(field, format string, args ...any) *FieldError {
	return &FieldError{Field: field, Kind: KindCrossField, Message: fmt.Sprintf(format, args...)}
}

// ValidationError aggregates the expected failures of one pipeline run.
type ValidationError struct {
	Errors []*FieldError
}

func (e *ValidationError) Error() string {
	parts := make([]string, 0, len(e.Errors))
	for _, fe := range e.Errors {
		parts = append(parts, fe.Error())
	}
	return "validation failed: " + strings.Join(parts, "; ")
}

// Map returns the wire error map: field name (or NonFieldErrors) to messages.
func (e *ValidationError) Map() map[string][]string {
	out := make(map[string][]string, len(e.Errors))
	for _, fe := range e.Errors {
		key := fe.Field
		if key == "" {
			key = NonFieldErrors
		}
		out[key] = append(out[key], fe.Message)
	}
	return out
}

// Fields returns the sorted field names that carry errors.
func (e *ValidationError) Fields() []string {
	m := e.Map()
	out := make([]string, 0, len(m))
	for k := range m {
		out = append(out, k)
	}
	sort.Strings(out)
	return out
}

// Kind returns the kind of the first error reported for field, or "" if field has none.
func (e *ValidationError) Kind(field string) ErrorKind {
	for _, fe := range e.Errors {
		key := fe.Field
		if key == "" {
			key = NonFieldErrors
		}
		if key == field {
			return fe.Kind
		}
	}
	return ""
}

// AsValidation unwraps err into a *ValidationError, or returns false.
func AsValidation(err error) (*ValidationError, bool) {
	var ve *ValidationError
	if errors.As(err, &ve) {
		return ve, true
	}
	return nil, false
}

// Structural returns a request-level failure reported under non_field_errors, such as a body that is not JSON.
func Structural(msg string) *ValidationError {
	return &ValidationError{Errors: []*FieldError{{Kind: KindStructural, Message: msg}}}
}
