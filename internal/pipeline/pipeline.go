// Package pipeline validates untrusted JSON input against a declared resource schema and applies it.
//
// A run has four stages: a structural check of the body, per-field coercion and validation of every declared
// field, cross-field rules, and the mutation. Field errors are collected for all fields; rules run only when no
// field failed; the mutation runs only when no error was recorded.
package pipeline

import (
	"context"
	"errors"
	"fmt"
	"strings"
)

// Validator checks the coerced value of field. It may normalize the value with Attrs.Set or attach resolved
// entities. It returns a *FieldError for an expected failure and any other error to abort the run.
type Validator[E any] func(ctx context.Context, env E, a *Attrs, field string) error

// Rule is a cross-field rule. It returns a *FieldError for an expected failure and any other error to abort.
type Rule[E any] func(ctx context.Context, env E, a *Attrs) error

// Mutator applies validated attributes and returns the created or updated entity.
type Mutator[E, T any] func(ctx context.Context, env E, a *Attrs) (T, error)

// Field describes one input field.
type Field[E any] struct {
	Name      string
	Type      Type
	Required  bool
	MinLength int
	MaxLength int
	Validate  Validator[E]
	// BlankIsAbsent treats a blank string like an omitted field.
	BlankIsAbsent bool
}

type fieldSpec struct {
	typ                  Type
	required             bool
	minLength, maxLength int
}

// Schema is the declaration of one writable resource.
type Schema[E, T any] struct {
	Resource string
	Fields   []Field[E]
	Rules    []Rule[E]
	Mutate   Mutator[E, T]
}

// Run validates input and, when it is valid, applies it. existing must be nil: the target of an update is
// always resolved from the input itself. Expected failures are returned as *ValidationError.
func (s *Schema[E, T]) Run(ctx context.Context, env E, input any, existing *T) (T, error) {
	var zero T
	if existing != nil {
		return zero, ErrExistingTarget
	}
	attrs, err := s.Validate(ctx, env, input)
	if err != nil {
		return zero, err
	}
	out, err := s.Mutate(ctx, env, attrs)
	if err != nil {
		var fe *FieldError
		if errors.As(err, &fe) {
			return zero, &ValidationError{Errors: []*FieldError{fe}}
		}
		return zero, err
	}
	return out, nil
}

// Validate runs the structural, field and cross-field stages and returns the working attribute set.
func (s *Schema[E, T]) Validate(ctx context.Context, env E, input any) (*Attrs, error) {
	body, ok := input.(map[string]any)
	if !ok {
		return nil, Structural("Request body should be a single JSON object")
	}

	attrs := newAttrs()
	var errs []*FieldError
	for _, f := range s.Fields {
		raw, present := body[f.Name]
		if s, ok := raw.(string); ok && f.BlankIsAbsent && strings.TrimSpace(s) == "" {
			present = false
		}
		if !present || raw == nil {
			if f.Required {
				errs = append(errs, &FieldError{Field: f.Name, Kind: KindFieldType, Message: "This field is required."})
			}
			continue
		}
		v, fe := coerce(fieldSpec{typ: f.Type, required: f.Required, minLength: f.MinLength, maxLength: f.MaxLength}, raw)
		if fe != nil {
			fe.Field = f.Name
			errs = append(errs, fe)
			continue
		}
		attrs.Set(f.Name, v)
	}

	// semantic validators only see fields whose primitive kind checked out
	for _, f := range s.Fields {
		if f.Validate == nil || !attrs.Has(f.Name) || hasField(errs, f.Name) {
			continue
		}
		if err := f.Validate(ctx, env, attrs, f.Name); err != nil {
			fe, ok := asFieldError(err)
			if !ok {
				return nil, fmt.Errorf("%s: validate %s: %w", s.Resource, f.Name, err)
			}
			if fe.Field == "" {
				fe.Field = f.Name
			}
			errs = append(errs, fe)
		}
	}
	if len(errs) > 0 {
		return nil, &ValidationError{Errors: errs}
	}

	for _, rule := range s.Rules {
		if err := rule(ctx, env, attrs); err != nil {
			fe, ok := asFieldError(err)
			if !ok {
				return nil, fmt.Errorf("%s: %w", s.Resource, err)
			}
			return nil, &ValidationError{Errors: []*FieldError{fe}}
		}
	}
	return attrs, nil
}

func asFieldError(err error) (*FieldError, bool) {
	var fe *FieldError
	if errors.As(err, &fe) {
		return fe, true
	}
	return nil, false
}

func hasField(errs []*FieldError, name string) bool {
	for _, e := range errs {
		if e.Field == name {
			return true
		}
	}
	return false
}
