package pipeline

import (
	"context"
	"strings"
)

// Alias pairs a canonical field with a legacy field that names the same thing.
type Alias struct {
	Canonical string
	Legacy    string
}

// Exclusive rejects any alias pair whose fields are both present. Pairs are checked in order.
func Exclusive[E any](pairs ...Alias) Rule[E] {
	return func(_ context.Context, _ E, a *Attrs) error {
		for _, p := range pairs {
			if a.Has(p.Canonical) && a.Has(p.Legacy) {
				return Conflict("", "Parameters %s and %s are mutually exclusive", p.Legacy, p.Canonical)
			}
		}
		return nil
	}
}

// AtLeastOne requires at least one of fields to be present.
func AtLeastOne[E any](message string, fields ...string) Rule[E] {
	return func(_ context.Context, _ E, a *Attrs) error {
		for _, f := range fields {
			if a.Has(f) {
				return nil
			}
		}
		return Conflict("", "%s", message)
	}
}

// ExactlyOne requires exactly one of fields to be present.
func ExactlyOne[E any](message string, fields ...string) Rule[E] {
	return func(_ context.Context, _ E, a *Attrs) error {
		n := 0
		for _, f := range fields {
			if a.Has(f) {
				n++
			}
		}
		if n != 1 {
			return Conflict("", "%s", message)
		}
		return nil
	}
}

// Choice returns a validator accepting only the given values, compared case-insensitively. The stored value is
// replaced by the matching canonical choice.
func Choice[E any](choices ...string) Validator[E] {
	return func(_ context.Context, _ E, a *Attrs, field string) error {
		v := a.String(field)
		for _, c := range choices {
			if strings.EqualFold(v, c) {
				a.Set(field, c)
				return nil
			}
		}
		return Invalid("\"%s\" is not a valid choice.", v)
	}
}

// Range returns a validator requiring an Integer field to lie in [min, max].
func Range[E any](min, max int64) Validator[E] {
	return func(_ context.Context, _ E, a *Attrs, field string) error {
		n, _ := a.Int(field)
		if n < min || n > max {
			return Invalid("Ensure this value is between %d and %d.", min, max)
		}
		return nil
	}
}
