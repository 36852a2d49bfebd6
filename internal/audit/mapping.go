package audit

import "strings"

// ActionResource holds action and resource derived from an API route.
type ActionResource struct {
	Action   string
	Resource string
}

// routeResources maps the last segment of a write route to the resource name used in audit rows.
var routeResources = map[string]string{
	"contacts":        "contact",
	"fields":          "contact_field",
	"labels":          "label",
	"campaigns":       "campaign",
	"events":          "campaign_event",
	"flows":           "flow",
	"runs":            "flow_start",
	"broadcasts":      "broadcast",
	"sms":             "message",
	"relayers":        "channel",
	"message_actions": "message_action",
}

// ParseRoute returns action and resource for an HTTP method and route template (e.g. POST /api/v1/contacts).
// POST maps to "write"; other methods to their lowercase name. Unknown routes map to resource "unknown".
func ParseRoute(method, route string) ActionResource {
	action := strings.ToLower(method)
	if action == "post" {
		action = "write"
	}
	if action == "" {
		action = "unknown"
	}
	route = strings.TrimSuffix(strings.TrimSpace(route), "/")
	last := route
	if i := strings.LastIndex(route, "/"); i >= 0 {
		last = route[i+1:]
	}
	last = strings.TrimSuffix(last, ".json")
	resource, ok := routeResources[last]
	if !ok {
		resource = "unknown"
	}
	return ActionResource{Action: action, Resource: resource}
}

// ResourceForRoute returns the audit resource name for route, or "unknown".
func ResourceForRoute(route string) string {
	return ParseRoute("POST", route).Resource
}
