// Package loki pushes dispatch events to Grafana Loki as log lines.
package loki

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
	"regexp"
	"sort"
	"strconv"
	"strings"
	"time"
)

// Job is the job label of every stream pushed by this service.
const Job = "msgapi"

var labelValueSanitize = regexp.MustCompile(`[^a-zA-Z0-9_\-:]`)

// Entry is one log line and the labels of the stream it belongs to.
type Entry struct {
	Time   time.Time
	Line   string
	Labels map[string]string
}

type pushRequest struct {
	Streams []stream `json:"streams"`
}

type stream struct {
	Stream map[string]string `json:"stream"`
	Values [][]string        `json:"values"`
}

// Client pushes entries to the Loki push API.
type Client struct {
	url  string
	http *http.Client
}

// NewClient returns a client for the Loki at baseURL (e.g. http://localhost:3100). hc may be nil.
func NewClient(baseURL string, hc *http.Client) (*Client, error) {
	if strings.TrimSpace(baseURL) == "" {
		return nil, errors.New("loki: base URL is empty")
	}
	if hc == nil {
		hc = &http.Client{Timeout: 10 * time.Second}
	}
	return &Client{url: strings.TrimSuffix(baseURL, "/") + "/loki/api/v1/push", http: hc}, nil
}

// Push sends entries in one request, one stream per distinct label set.
func (c *Client) Push(ctx context.Context, entries []Entry) error {
	if len(entries) == 0 {
		return nil
	}
	payload, err := json.Marshal(buildRequest(entries))
	if err != nil {
		return err
	}
	req, err := http.NewRequestWithContext(ctx, http.MethodPost, c.url, bytes.NewReader(payload))
	if err != nil {
		return err
	}
	req.Header.Set("Content-Type", "application/json")
	resp, err := c.http.Do(req)
	if err != nil {
		return err
	}
	defer resp.Body.Close()
	if resp.StatusCode < 200 || resp.StatusCode >= 300 {
		return fmt.Errorf("loki: push returned %s", resp.Status)
	}
	return nil
}

func buildRequest(entries []Entry) pushRequest {
	byKey := map[string]*stream{}
	var keys []string
	for _, e := range entries {
		labels := streamLabels(e.Labels)
		key := labelKey(labels)
		s, ok := byKey[key]
		if !ok {
			s = &stream{Stream: labels}
			byKey[key] = s
			keys = append(keys, key)
		}
		s.Values = append(s.Values, []string{strconv.FormatInt(e.Time.UnixNano(), 10), e.Line})
	}
	out := pushRequest{Streams: make([]stream, 0, len(keys))}
	for _, k := range keys {
		out.Streams = append(out.Streams, *byKey[k])
	}
	return out
}

func streamLabels(in map[string]string) map[string]string {
	out := map[string]string{"job": Job}
	for k, v := range in {
		if v = labelValueSanitize.ReplaceAllString(strings.TrimSpace(v), "_"); v != "" {
			out[k] = v
		}
	}
	return out
}

func labelKey(labels map[string]string) string {
	names := make([]string, 0, len(labels))
	for k := range labels {
		names = append(names, k)
	}
	sort.Strings(names)
	var b strings.Builder
	for _, k := range names {
		b.WriteString(k)
		b.WriteByte('=')
		b.WriteString(labels[k])
		b.WriteByte(',')
	}
	return b.String()
}

// dispatchFields are the parts of a dispatch event used for labels and the timestamp.
type dispatchFields struct {
	OrgID     string    `json:"org_id"`
	Kind      string    `json:"kind"`
	CreatedAt time.Time `json:"created_at"`
}

// EntryFromDispatch turns a dispatch event (a Kafka message value) into an entry labelled by org and kind. A
// value that is not a dispatch event is kept as an unlabelled line stamped with now.
func EntryFromDispatch(raw []byte, now time.Time) Entry {
	e := Entry{Time: now.UTC(), Line: string(raw), Labels: map[string]string{}}
	var f dispatchFields
	if err := json.Unmarshal(raw, &f); err != nil {
		return e
	}
	if f.OrgID != "" {
		e.Labels["org_id"] = f.OrgID
	}
	if f.Kind != "" {
		e.Labels["kind"] = f.Kind
	}
	if !f.CreatedAt.IsZero() {
		e.Time = f.CreatedAt
	}
	return e
}
