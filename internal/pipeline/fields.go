package pipeline

import (
	"encoding/json"
	"fmt"
	"strconv"
	"strings"
	"unicode/utf8"

	"tenant-messaging-api/backend/internal/urn"
)

// MaxAddresses is the most raw addresses an address list field accepts in one request.
const MaxAddresses = 100

// Type is the primitive kind a field value is coerced to.
type Type int

const (
	// String accepts a JSON string.
	String Type = iota
	// Integer accepts an integral JSON number or a string of digits.
	Integer
	// Boolean accepts a JSON boolean or "true"/"false".
	Boolean
	// Ref accepts an integral legacy id or a UUID string and yields a Ref.
	Ref
	// StringMap accepts an object whose values are all strings.
	StringMap
	// IntegerList accepts an integer or a list of integers.
	IntegerList
	// StringList accepts a string or a list of strings.
	StringList
	// AddressList accepts a phone number or a list of at most MaxAddresses numbers, tagged with the tel scheme.
	AddressList
	// JSON accepts any JSON value.
	JSON
)

// Reference is an entity identifier given either as a legacy numeric id or a UUID.
type Reference struct {
	ID   int64
	UUID string
}

// IsID reports whether the reference is a legacy numeric id.
func (r Reference) IsID() bool { return r.UUID == "" }

func (r Reference) String() string {
	if r.IsID() {
		return strconv.FormatInt(r.ID, 10)
	}
	return r.UUID
}

func coerce(f fieldSpec, raw any) (any, *FieldError) {
	switch f.typ {
	case String:
		s, ok := raw.(string)
		if !ok {
			return nil, typeError("Not a valid string.")
		}
		if f.required && strings.TrimSpace(s) == "" {
			return nil, typeError("This field may not be blank.")
		}
		if f.maxLength > 0 && utf8.RuneCountInString(s) > f.maxLength {
			return nil, typeError("Ensure this field has no more than %d characters.", f.maxLength)
		}
		if f.minLength > 0 && utf8.RuneCountInString(s) < f.minLength {
			return nil, typeError("Ensure this field has at least %d characters.", f.minLength)
		}
		return s, nil
	case Integer:
		n, ok := toInt(raw)
		if !ok {
			return nil, typeError("A valid integer is required.")
		}
		return n, nil
	case Boolean:
		switch v := raw.(type) {
		case bool:
			return v, nil
		case string:
			switch strings.ToLower(v) {
			case "true", "1":
				return true, nil
			case "false", "0":
				return false, nil
			}
		}
		return nil, typeError("Must be a valid boolean.")
	case Ref:
		if n, ok := toInt(raw); ok {
			return Reference{ID: n}, nil
		}
		if s, ok := raw.(string); ok && strings.TrimSpace(s) != "" {
			return Reference{UUID: strings.TrimSpace(s)}, nil
		}
		return nil, typeError("Must be an id or a UUID.")
	case StringMap:
		obj, ok := raw.(map[string]any)
		if !ok {
			return nil, typeError("Must be an object with string keys and values.")
		}
		out := make(map[string]string, len(obj))
		for k, v := range obj {
			s, ok := v.(string)
			if !ok {
				return nil, typeError("Must be an object with string keys and values.")
			}
			out[k] = s
		}
		return out, nil
	case IntegerList:
		items := asList(raw)
		out := make([]int64, 0, len(items))
		for _, item := range items {
			n, ok := toInt(item)
			if !ok {
				return nil, typeError("Must be an integer or a list of integers.")
			}
			out = append(out, n)
		}
		return out, nil
	case StringList:
		items := asList(raw)
		out := make([]string, 0, len(items))
		for _, item := range items {
			s, ok := item.(string)
			if !ok {
				return nil, typeError("Must be a string or a list of strings.")
			}
			out = append(out, s)
		}
		return out, nil
	case AddressList:
		items := asList(raw)
		if len(items) > MaxAddresses {
			return nil, typeError("You can only specify up to %d numbers at a time.", MaxAddresses)
		}
		out := make([]urn.URN, 0, len(items))
		for _, item := range items {
			s, ok := item.(string)
			if !ok {
				return nil, typeError("Must be a phone number or a list of phone numbers.")
			}
			out = append(out, urn.NewTel(s))
		}
		return out, nil
	case JSON:
		return raw, nil
	}
	return nil, typeError("Unsupported field type.")
}

func typeError(format string, args ...any) *FieldError {
	return &FieldError{Kind: KindFieldType, Message: fmt.Sprintf(format, args...)}
}

func asList(raw any) []any {
	if list, ok := raw.([]any); ok {
		return list
	}
	return []any{raw}
}

func toInt(raw any) (int64, bool) {
	switch v := raw.(type) {
	case json.Number:
		n, err := v.Int64()
		return n, err == nil
	case float64:
		if v != float64(int64(v)) {
			return 0, false
		}
		return int64(v), true
	case int:
		return int64(v), true
	case int64:
		return v, true
	case string:
		n, err := strconv.ParseInt(strings.TrimSpace(v), 10, 64)
		return n, err == nil
	}
	return 0, false
}
