package domain

import (
	"strings"
	"time"
)

// Direction of a message relative to the org.
type Direction string

const (
	DirectionIncoming Direction = "I"
	DirectionOutgoing Direction = "O"
)

// Visibility of a message in the inbox.
type Visibility string

const (
	VisibilityVisible  Visibility = "V"
	VisibilityArchived Visibility = "A"
	VisibilityDeleted  Visibility = "D"
)

// Status of an outgoing message or broadcast.
type Status string

const (
	StatusPending Status = "P"
	StatusQueued  Status = "Q"
	StatusHandled Status = "H"
)

// MaxTextLength is the longest broadcast or message text accepted.
const MaxTextLength = 480

// Broadcast is a message sent to a set of recipients. The sender expands it into messages asynchronously.
type Broadcast struct {
	ID         int64
	UUID       string
	OrgID      string
	Text       string
	ChannelID  *int64
	Status     Status
	ContactIDs []int64
	GroupIDs   []int64
	URNs       []string
	CreatedBy  string
	CreatedAt  time.Time
}

// Msg is a single message to or from a contact.
type Msg struct {
	ID           int64
	UUID         string
	OrgID        string
	BroadcastID  *int64
	ContactID    int64
	ContactURNID *int64
	ChannelID    *int64
	Text         string
	Direction    Direction
	Status       Status
	Visibility   Visibility
	CreatedAt    time.Time
}

// IsVisible reports whether the message counts towards label visible counts.
func (m *Msg) IsVisible() bool {
	return m.Visibility == VisibilityVisible
}

// Label tags incoming messages. VisibleCount is the number of visible messages carrying the label; only message
// transitions adjust it.
type Label struct {
	ID           int64
	UUID         string
	OrgID        string
	Name         string
	VisibleCount int64
	IsActive     bool
	CreatedBy    string
	CreatedAt    time.Time
}

// MaxLabelNameLength is the longest label name accepted.
const MaxLabelNameLength = 64

// IsValidLabelName reports whether name can be used for a label.
func IsValidLabelName(name string) bool {
	trimmed := strings.TrimSpace(name)
	if trimmed == "" || len([]rune(trimmed)) > MaxLabelNameLength {
		return false
	}
	return !strings.HasPrefix(trimmed, "+") && !strings.HasPrefix(trimmed, "-")
}

// Action is a bulk transition applied to messages.
type Action string

const (
	ActionLabel     Action = "label"
	ActionUnlabel   Action = "unlabel"
	ActionArchive   Action = "archive"
	ActionUnarchive Action = "unarchive"
	ActionDelete    Action = "delete"
)

// Actions lists every bulk action.
var Actions = []string{string(ActionLabel), string(ActionUnlabel), string(ActionArchive), string(ActionUnarchive), string(ActionDelete)}

// NeedsLabel reports whether the action operates on a label.
func (a Action) NeedsLabel() bool {
	return a == ActionLabel || a == ActionUnlabel
}
