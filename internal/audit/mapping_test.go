package audit

import "testing"

func TestParseRoute(t *testing.T) {
	tests := []struct {
		method, route string
		want          ActionResource
	}{
		{"POST", "/api/v1/contacts", ActionResource{"write", "contact"}},
		{"POST", "/api/v1/contacts.json", ActionResource{"write", "contact"}},
		{"POST", "/api/v1/events/", ActionResource{"write", "campaign_event"}},
		{"POST", "/api/v1/runs", ActionResource{"write", "flow_start"}},
		{"POST", "/api/v1/sms", ActionResource{"write", "message"}},
		{"POST", "/api/v1/relayers", ActionResource{"write", "channel"}},
		{"POST", "/api/v1/message_actions", ActionResource{"write", "message_action"}},
		{"GET", "/api/v1/labels", ActionResource{"get", "label"}},
		{"POST", "/api/v1/unknown", ActionResource{"write", "unknown"}},
		{"", "", ActionResource{"unknown", "unknown"}},
	}
	for _, tt := range tests {
		if got := ParseRoute(tt.method, tt.route); got != tt.want {
			t.Errorf("ParseRoute(%q, %q) = %+v, want %+v", tt.method, tt.route, got, tt.want)
		}
	}
}

func TestResourceForRoute(t *testing.T) {
	if got := ResourceForRoute("/api/v1/broadcasts"); got != "broadcast" {
		t.Errorf("ResourceForRoute = %q", got)
	}
}
