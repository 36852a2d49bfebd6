package pipeline

import "tenant-messaging-api/backend/internal/urn"

// Attrs is the working attribute set of one pipeline run. Coerced input values and resolved entities live in
// separate namespaces so a resolved object never shadows raw input.
type Attrs struct {
	values   map[string]any
	resolved map[string]any
}

func newAttrs() *Attrs {
	return &Attrs{values: map[string]any{}, resolved: map[string]any{}}
}

// Has reports whether name was supplied with a non-null value.
func (a *Attrs) Has(name string) bool {
	_, ok := a.values[name]
	return ok
}

// Set replaces the coerced value of name, typically with a normalized form.
func (a *Attrs) Set(name string, v any) {
	a.values[name] = v
}

// Value returns the coerced value of name.
func (a *Attrs) Value(name string) (any, bool) {
	v, ok := a.values[name]
	return v, ok
}

// String returns the String value of name, or "".
func (a *Attrs) String(name string) string {
	s, _ := a.values[name].(string)
	return s
}

// Int returns the Integer value of name.
func (a *Attrs) Int(name string) (int64, bool) {
	n, ok := a.values[name].(int64)
	return n, ok
}

// Bool returns the Boolean value of name, or def when absent.
func (a *Attrs) Bool(name string, def bool) bool {
	b, ok := a.values[name].(bool)
	if !ok {
		return def
	}
	return b
}

// Ref returns the Ref value of name.
func (a *Attrs) Ref(name string) (Reference, bool) {
	r, ok := a.values[name].(Reference)
	return r, ok
}

// Strings returns the StringList value of name.
func (a *Attrs) Strings(name string) []string {
	s, _ := a.values[name].([]string)
	return s
}

// Ints returns the IntegerList value of name.
func (a *Attrs) Ints(name string) []int64 {
	n, _ := a.values[name].([]int64)
	return n
}

// StringMap returns the StringMap value of name.
func (a *Attrs) StringMap(name string) map[string]string {
	m, _ := a.values[name].(map[string]string)
	return m
}

// URNs returns the URN list stored under name, by an AddressList field or a validator that normalized it.
func (a *Attrs) URNs(name string) []urn.URN {
	u, _ := a.values[name].([]urn.URN)
	return u
}

// Attach stores a resolved entity under key.
func (a *Attrs) Attach(key string, v any) {
	a.resolved[key] = v
}

// Resolved returns the entity attached under key, converted to T.
func Resolved[T any](a *Attrs, key string) (T, bool) {
	v, ok := a.resolved[key].(T)
	return v, ok
}
