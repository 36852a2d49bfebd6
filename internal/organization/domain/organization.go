package domain

import (
	"errors"
	"strings"
	"time"
)

// Org represents an organization/tenant.
type Org struct {
	ID     string
	Name   string
	Status OrgStatus
	// Anonymous orgs never expose raw contact addresses and may not write them.
	Anonymous bool
	// Languages are the lowercase ISO 639 codes contacts of this org may use.
	Languages []string
	CreatedAt time.Time
}

type OrgStatus string

const (
	OrgStatusActive    OrgStatus = "active"
	OrgStatusSuspended OrgStatus = "suspended"
)

// Validate validates the organization for persistence. Returns an error describing the first validation failure.
func (o *Org) Validate() error {
	if o.Name == "" {
		return errors.New("name is required")
	}
	if o.Status == "" {
		o.Status = OrgStatusActive
	}
	for i, l := range o.Languages {
		o.Languages[i] = strings.ToLower(strings.TrimSpace(l))
	}
	return nil
}

// IsActive reports whether the org accepts writes.
func (o *Org) IsActive() bool {
	return o != nil && o.Status == OrgStatusActive
}

// HasLanguage reports whether code is one of the org languages. The comparison is case-insensitive.
func (o *Org) HasLanguage(code string) bool {
	code = strings.ToLower(code)
	for _, l := range o.Languages {
		if l == code {
			return true
		}
	}
	return false
}
