package domain

import (
	"strings"
	"time"
)

// ChannelType identifies the transport behind a channel.
type ChannelType string

const (
	ChannelTypeAndroid ChannelType = "A"
	ChannelTypeTwilio  ChannelType = "T"
	ChannelTypeTwitter ChannelType = "TT"
)

// Role letters: S sends, R receives.
const (
	RoleSend    = "S"
	RoleReceive = "R"
)

// MaxClaimCodeLength and MaxPhoneLength bound the claim request fields.
const (
	MaxClaimCodeLength = 16
	MaxPhoneLength     = 16
	MaxNameLength      = 64
)

// Channel is a delivery endpoint. A relayer registers itself unclaimed with a one-time claim code; claiming binds
// it to an org and consumes the code.
type Channel struct {
	ID          int64
	UUID        string
	OrgID       string
	Name        string
	Address     string
	Country     string
	ChannelType ChannelType
	Scheme      string
	Role        string
	ClaimCode   string
	Secret      string
	IsActive    bool
	LastSeen    time.Time
	CreatedAt   time.Time
	ModifiedAt  time.Time
	ClaimedBy   string
}

// CanSend reports whether the channel role includes sending.
func (c *Channel) CanSend() bool {
	return strings.Contains(c.Role, RoleSend)
}

// IsClaimed reports whether the channel belongs to an org.
func (c *Channel) IsClaimed() bool {
	return c.OrgID != ""
}

// Claim binds an unclaimed channel to orgID with the given normalized phone address.
func (c *Channel) Claim(orgID, address, name, userID string, now time.Time) {
	c.OrgID = orgID
	c.Address = address
	if name != "" {
		c.Name = name
	} else if c.Name == "" {
		c.Name = address
	}
	c.ClaimCode = ""
	c.ClaimedBy = userID
	c.ModifiedAt = now
}
