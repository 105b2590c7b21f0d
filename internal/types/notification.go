package types

import (
	"encoding/json"
	"strings"
)

// DefaultRoutingTag is injected into every Notification that carries no tags.
// It also names the self-monitoring route in channel configurations.
const DefaultRoutingTag = "alert_system_monitoring"

// RawEvent is the opaque invocation payload. It is never mutated after decode.
type RawEvent map[string]any

// Link is an optional pointer from a Notification to a console or dashboard.
type Link struct {
	URL  string `json:"url"`
	Text string `json:"text,omitempty"`
}

// Notification is the normalized, channel-agnostic alert.
// Values are immutable once constructed; use NewNotification.
type Notification struct {
	header   string
	body     string
	severity Severity
	tags     []string
	link     *Link
}

// NotificationOption customizes a Notification during construction.
type NotificationOption func(*Notification)

// WithLink attaches a link. Empty URLs are ignored.
func WithLink(url, text string) NotificationOption {
	return func(n *Notification) {
		if url == "" {
			return
		}
		n.link = &Link{URL: url, Text: text}
	}
}

// WithDefaultTag overrides the tag injected when no tags are given.
func WithDefaultTag(tag string) NotificationOption {
	return func(n *Notification) {
		if len(n.tags) == 0 && strings.TrimSpace(tag) != "" {
			n.tags = []string{strings.TrimSpace(tag)}
		}
	}
}

// NewNotification builds a Notification. Tags are trimmed, deduplicated in
// first-occurrence order, and DefaultRoutingTag is used when none remain.
func NewNotification(header, body string, severity Severity, tags []string, opts ...NotificationOption) Notification {
	n := Notification{
		header:   header,
		body:     body,
		severity: severity,
		tags:     normalizeTags(tags),
	}
	for _, opt := range opts {
		opt(&n)
	}
	if len(n.tags) == 0 {
		n.tags = []string{DefaultRoutingTag}
	}
	return n
}

func normalizeTags(tags []string) []string {
	out := make([]string, 0, len(tags))
	seen := make(map[string]struct{}, len(tags))
	for _, t := range tags {
		t = strings.TrimSpace(t)
		if t == "" {
			continue
		}
		if _, dup := seen[t]; dup {
			continue
		}
		seen[t] = struct{}{}
		out = append(out, t)
	}
	return out
}

func (n Notification) Header() string     { return n.header }
func (n Notification) Body() string       { return n.body }
func (n Notification) Severity() Severity { return n.severity }

// Tags returns a copy of the routing tags.
func (n Notification) Tags() []string {
	out := make([]string, len(n.tags))
	copy(out, n.tags)
	return out
}

// Link returns the attached link, if any.
func (n Notification) Link() (Link, bool) {
	if n.link == nil {
		return Link{}, false
	}
	return *n.link, true
}

// Title is the header prefixed with the severity, the form used by chat channels.
func (n Notification) Title() string {
	return n.severity.String() + ": " + n.header
}

type notificationJSON struct {
	Header      string   `json:"header"`
	Body        string   `json:"body"`
	Severity    Severity `json:"severity"`
	RoutingTags []string `json:"routing_tags"`
	Link        *Link    `json:"link,omitempty"`
}

// MarshalJSON encodes the notification as a flat document.
func (n Notification) MarshalJSON() ([]byte, error) {
	return json.Marshal(notificationJSON{
		Header:      n.header,
		Body:        n.body,
		Severity:    n.severity,
		RoutingTags: n.Tags(),
		Link:        n.link,
	})
}
