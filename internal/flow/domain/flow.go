package domain

import (
	"encoding/json"
	"errors"
	"time"
)

// FlowType is the kind of a flow.
type FlowType string

const (
	FlowTypeFlow    FlowType = "F"
	FlowTypeMessage FlowType = "M"
	FlowTypeVoice   FlowType = "V"
	FlowTypeSurvey  FlowType = "S"
)

// FlowTypes lists every valid flow type.
var FlowTypes = []FlowType{FlowTypeFlow, FlowTypeMessage, FlowTypeVoice, FlowTypeSurvey}

// MaxFlowNameLength is the longest flow name accepted.
const MaxFlowNameLength = 64

// Flow is a flow definition. Its interpretation happens elsewhere; here it is stored and versioned.
type Flow struct {
	ID         int64
	UUID       string
	OrgID      string
	Name       string
	FlowType   FlowType
	Definition json.RawMessage
	Version    int
	// IsSystem marks hidden flows that back a campaign message event. They are not listed to users.
	IsSystem   bool
	IsArchived bool
	IsActive   bool
	CreatedBy  string
	ModifiedBy string
	CreatedAt  time.Time
	ModifiedAt time.Time
}

// Validate validates the flow for persistence.
func (f *Flow) Validate() error {
	if f.Name == "" {
		return errors.New("name is required")
	}
	if !IsValidFlowType(string(f.FlowType)) {
		return errors.New("invalid flow type")
	}
	return nil
}

// IsValidFlowType reports whether t is a known flow type.
func IsValidFlowType(t string) bool {
	for _, v := range FlowTypes {
		if string(v) == t {
			return true
		}
	}
	return false
}

// SingleMessageDefinition returns the definition of a hidden flow that sends text and ends.
func SingleMessageDefinition(actionSetUUID, text string) json.RawMessage {
	def := map[string]any{
		"base_language": "base",
		"entry":         actionSetUUID,
		"action_sets": []map[string]any{{
			"uuid":    actionSetUUID,
			"x":       100,
			"y":       0,
			"actions": []map[string]any{{"type": "reply", "msg": map[string]string{"base": text}}},
		}},
		"rule_sets": []any{},
	}
	b, _ := json.Marshal(def)
	return b
}

// Run is one contact's execution of a flow.
type Run struct {
	ID        int64
	UUID      string
	OrgID     string
	FlowID    int64
	ContactID int64
	IsActive  bool
	Extra     map[string]string
	CreatedBy string
	CreatedAt time.Time
}
