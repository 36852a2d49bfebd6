package domain

import (
	"errors"
	"fmt"
	"time"
)

// Campaign schedules events for the members of one group.
type Campaign struct {
	ID         int64
	UUID       string
	OrgID      string
	Name       string
	GroupID    int64
	IsActive   bool
	IsArchived bool
	CreatedBy  string
	ModifiedBy string
	CreatedAt  time.Time
	ModifiedAt time.Time
}

// MaxCampaignNameLength is the longest campaign name accepted.
const MaxCampaignNameLength = 64

// Validate validates the campaign for persistence.
func (c *Campaign) Validate() error {
	if c.Name == "" {
		return errors.New("name is required")
	}
	if c.GroupID == 0 {
		return errors.New("group is required")
	}
	return nil
}

// EventType selects what an event does when it fires.
type EventType string

const (
	// EventTypeFlow starts a user flow.
	EventTypeFlow EventType = "F"
	// EventTypeMessage sends inline text through a hidden single-message flow.
	EventTypeMessage EventType = "M"
)

// Unit is the unit of an event offset.
type Unit string

const (
	UnitMinutes Unit = "M"
	UnitHours   Unit = "H"
	UnitDays    Unit = "D"
	UnitWeeks   Unit = "W"
)

// Units lists every valid unit.
var Units = []Unit{UnitMinutes, UnitHours, UnitDays, UnitWeeks}

// UnitFromString maps a unit code or its name (minute, hours, ...) to a Unit.
func UnitFromString(s string) (Unit, bool) {
	switch s {
	case "M", "m", "minute", "minutes", "Minute", "Minutes":
		return UnitMinutes, true
	case "H", "h", "hour", "hours", "Hour", "Hours":
		return UnitHours, true
	case "D", "d", "day", "days", "Day", "Days":
		return UnitDays, true
	case "W", "w", "week", "weeks", "Week", "Weeks":
		return UnitWeeks, true
	}
	return "", false
}

// Plural returns the lowercase plural name of u.
func (u Unit) Plural() string {
	switch u {
	case UnitMinutes:
		return "minutes"
	case UnitHours:
		return "hours"
	case UnitDays:
		return "days"
	case UnitWeeks:
		return "weeks"
	}
	return string(u)
}

// NoDeliveryHour means the event fires at the exact offset rather than at a fixed hour.
const NoDeliveryHour = -1

// MaxEventMessageLength is the longest inline message an event may carry.
const MaxEventMessageLength = 320

// Event fires relative to a date field of each campaign contact. The UUID is stable for the event's lifetime,
// including when it switches between the flow and message branches.
type Event struct {
	ID           int64
	UUID         string
	OrgID        string
	CampaignID   int64
	EventType    EventType
	FlowID       int64
	RelativeToID int64
	Offset       int64
	Unit         Unit
	DeliveryHour int64
	Message      string
	IsActive     bool
	CreatedBy    string
	ModifiedBy   string
	CreatedAt    time.Time
	ModifiedAt   time.Time
}

// Validate validates the event for persistence.
func (e *Event) Validate() error {
	if e.CampaignID == 0 {
		return errors.New("campaign is required")
	}
	if e.FlowID == 0 {
		return errors.New("flow is required")
	}
	if e.DeliveryHour < NoDeliveryHour || e.DeliveryHour > 23 {
		return fmt.Errorf("delivery hour %d out of range", e.DeliveryHour)
	}
	if _, ok := UnitFromString(string(e.Unit)); !ok {
		return fmt.Errorf("unknown unit %q", e.Unit)
	}
	switch e.EventType {
	case EventTypeFlow:
		if e.Message != "" {
			return errors.New("flow events carry no message")
		}
	case EventTypeMessage:
	default:
		return fmt.Errorf("unknown event type %q", e.EventType)
	}
	return nil
}

// FlowName returns the display name of the hidden flow backing a message event.
func FlowName(campaignName string, e *Event, relativeToLabel string) string {
	when := "after"
	offset := e.Offset
	if offset < 0 {
		when = "before"
		offset = -offset
	}
	return fmt.Sprintf("%s: %d %s %s %s", campaignName, offset, e.Unit.Plural(), when, relativeToLabel)
}
