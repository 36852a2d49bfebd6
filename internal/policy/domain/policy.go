package domain

import (
	"strings"
	"time"
)

// Policy is a Rego module an org adds to the built-in write policy. Rules must be in package msgapi.write and
// contribute to its deny set.
type Policy struct {
	ID        string
	OrgID     string
	Rules     string
	Enabled   bool
	CreatedAt time.Time
}

// ModuleName is the file name the rules are compiled under, so compile errors name the policy.
func (p *Policy) ModuleName() string {
	return "org/" + strings.ReplaceAll(p.ID, "/", "_") + ".rego"
}
