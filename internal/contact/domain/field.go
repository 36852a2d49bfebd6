package domain

import (
	"regexp"
	"strconv"
	"strings"
	"time"
)

// ValueType is the declared type of a custom field.
type ValueType string

const (
	ValueTypeText     ValueType = "T"
	ValueTypeNumber   ValueType = "N"
	ValueTypeDatetime ValueType = "D"
	ValueTypeState    ValueType = "S"
	ValueTypeDistrict ValueType = "I"
)

// ValueTypes lists every valid ValueType.
var ValueTypes = []ValueType{ValueTypeText, ValueTypeNumber, ValueTypeDatetime, ValueTypeState, ValueTypeDistrict}

// MaxFieldLabelLength is the longest label a field may have.
const MaxFieldLabelLength = 36

// ContactField is an org-defined custom field.
type ContactField struct {
	ID        int64
	OrgID     string
	Key       string
	Label     string
	ValueType ValueType
	IsActive  bool
	CreatedBy string
	CreatedAt time.Time
}

var (
	keyPattern   = regexp.MustCompile(`^[a-z][a-z0-9_]*$`)
	keyNonWord   = regexp.MustCompile(`[^a-z0-9]+`)
	reservedKeys = map[string]bool{
		"name": true, "first_name": true, "phone": true, "language": true, "created_by": true,
		"modified_by": true, "org": true, "uuid": true, "groups": true, "id": true, "contact": true,
		"created_on": true, "modified_on": true, "is_active": true,
	}
)

// IsValidValueType reports whether t is a known value type.
func IsValidValueType(t string) bool {
	for _, v := range ValueTypes {
		if string(v) == t {
			return true
		}
	}
	return false
}

// MakeKey derives a field key from a label: lowercased, non-alphanumeric runs collapsed to underscores.
func MakeKey(label string) string {
	key := keyNonWord.ReplaceAllString(strings.ToLower(strings.TrimSpace(label)), "_")
	key = strings.Trim(key, "_")
	if len(key) > MaxFieldLabelLength {
		key = key[:MaxFieldLabelLength]
	}
	return key
}

// IsValidKey reports whether key is well formed and not reserved.
func IsValidKey(key string) bool {
	return keyPattern.MatchString(key) && !reservedKeys[key]
}

// ParseValue builds the stored value of raw for a field of type t.
func ParseValue(t ValueType, raw string) Value {
	v := Value{Text: raw}
	switch t {
	case ValueTypeNumber:
		if n, err := strconv.ParseFloat(strings.TrimSpace(raw), 64); err == nil {
			v.Number = &n
		}
	case ValueTypeDatetime:
		for _, layout := range []string{time.RFC3339, "2006-01-02 15:04", "2006-01-02"} {
			if d, err := time.Parse(layout, strings.TrimSpace(raw)); err == nil {
				d = d.UTC()
				v.Datetime = &d
				break
			}
		}
	}
	return v
}
