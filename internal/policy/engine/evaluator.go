package engine

import "context"

// WriteInput describes a write for policy evaluation.
type WriteInput struct {
	OrgID     string
	Anonymous bool
	UserID    string
	// Resource is the schema being written: contact, flow_start, broadcast, message, ...
	Resource string
	// RawAddresses is set when the request names recipients by raw address rather than by contact or group.
	RawAddresses bool
}

// Evaluator evaluates tenant write policies using OPA or other engines.
type Evaluator interface {
	// DenyWrite returns the messages of every rule denying the write, sorted. An empty result allows it.
	DenyWrite(ctx context.Context, in WriteInput) ([]string, error)
}
