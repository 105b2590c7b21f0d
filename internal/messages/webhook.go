package messages

import (
	"fmt"
	"strings"

	"alertsystem/internal/types"
)

// MessageClassField is the marker field webhook senders use to name the
// message class explicitly.
const MessageClassField = "alert_system_message_class"

// Known webhook message classes.
const (
	ClassZabbixDefault = "MessageZabbixDefault"
	ClassGeneric       = "MessageGeneric"
)

func decodeWebhook(ev Event, s Settings) (Message, bool, error) {
	inner := ev.Inner
	if inner == nil {
		return nil, false, nil
	}
	marker, present := inner[MessageClassField]
	if !present {
		return nil, false, nil
	}
	class, ok := marker.(string)
	if !ok {
		return nil, true, fmt.Errorf("%s must be a string", MessageClassField)
	}

	switch class {
	case ClassZabbixDefault:
		return decodeZabbix(ev, s)
	case ClassGeneric:
		return decodeGeneric(ev, s)
	default:
		return nil, true, fmt.Errorf("unknown %s %q", MessageClassField, class)
	}
}

// tagList accepts a JSON list of strings or a comma separated string.
func tagList(v any) ([]string, error) {
	switch t := v.(type) {
	case nil:
		return nil, nil
	case string:
		var out []string
		for _, part := range strings.Split(t, ",") {
			if part = strings.TrimSpace(part); part != "" {
				out = append(out, part)
			}
		}
		return out, nil
	case []any:
		out := make([]string, 0, len(t))
		for _, item := range t {
			s, ok := item.(string)
			if !ok {
				return nil, fmt.Errorf("routing tags must be strings, got %T", item)
			}
			out = append(out, s)
		}
		return out, nil
	default:
		return nil, fmt.Errorf("routing tags must be a list or a string, got %T", v)
	}
}

// zabbixPayload mirrors the fields of the Zabbix webhook media type. Every
// value is a string because Zabbix expands macros as text.
type zabbixPayload struct {
	EventName       string `json:"event_name"`
	EventStatus     string `json:"event_status"`
	EventSeverity   string `json:"event_severity"`
	EventOpData     string `json:"event_opdata"`
	HostName        string `json:"host_name"`
	EventID         string `json:"event_id"`
	TriggerID       string `json:"trigger_id"`
	EventDate       string `json:"event_date"`
	EventTime       string `json:"event_time"`
	ZabbixURL       string `json:"zabbix_url"`
	RecoveryMessage string `json:"event_recovery_message"`
}

// ZabbixMessage is a problem or recovery event pushed by a Zabbix webhook.
type ZabbixMessage struct {
	base
	Payload zabbixPayload
	tags    []string
}

func decodeZabbix(ev Event, s Settings) (Message, bool, error) {
	var p zabbixPayload
	if err := decodeInto(ev.Inner, &p); err != nil {
		return nil, true, fmt.Errorf("decoding zabbix payload: %w", err)
	}
	if p.EventName == "" || p.EventStatus == "" {
		return nil, true, fmt.Errorf("zabbix payload requires event_name and event_status")
	}
	tags, err := tagList(ev.Inner["routing_tags"])
	if err != nil {
		return nil, true, err
	}
	return &ZabbixMessage{
		base:    base{kind: KindWebhookZabbix, raw: ev.Raw, settings: s},
		Payload: p,
		tags:    tags,
	}, true, nil
}

// ZabbixSeverity maps a Zabbix event to a Severity. Recoveries are STABLE.
func ZabbixSeverity(status, severity string) types.Severity {
	switch strings.ToUpper(status) {
	case "RESOLVED", "OK":
		return types.SeverityStable
	}
	switch strings.ToLower(severity) {
	case "disaster", "high":
		return types.SeverityCritical
	case "average", "warning":
		return types.SeverityWarning
	default:
		return types.SeverityInfo
	}
}

func (m *ZabbixMessage) GenerateNotification() (types.Notification, error) {
	p := m.Payload
	sev := ZabbixSeverity(p.EventStatus, p.EventSeverity)

	header := "Zabbix problem: " + p.EventName
	if sev == types.SeverityStable {
		header = "Zabbix resolved: " + p.EventName
	}

	var b strings.Builder
	fmt.Fprintf(&b, "Host: %s\n", p.HostName)
	fmt.Fprintf(&b, "Severity: %s\n", p.EventSeverity)
	fmt.Fprintf(&b, "Status: %s\n", p.EventStatus)
	if p.EventDate != "" || p.EventTime != "" {
		fmt.Fprintf(&b, "Time: %s\n", strings.TrimSpace(p.EventDate+" "+p.EventTime))
	}
	if p.EventOpData != "" {
		fmt.Fprintf(&b, "Operational data: %s\n", p.EventOpData)
	}
	if p.RecoveryMessage != "" {
		fmt.Fprintf(&b, "%s\n", p.RecoveryMessage)
	}
	if p.EventID != "" {
		fmt.Fprintf(&b, "Event ID: %s\n", p.EventID)
	}

	var opts []types.NotificationOption
	if p.ZabbixURL != "" && p.TriggerID != "" && p.EventID != "" {
		link := fmt.Sprintf("%s/tr_events.php?triggerid=%s&eventid=%s", strings.TrimRight(p.ZabbixURL, "/"), p.TriggerID, p.EventID)
		opts = append(opts, types.WithLink(link, "View Zabbix Event"))
	}
	return m.notification(header, b.String(), sev, m.tags, opts...), nil
}

// GenericMessage is a notification fully described by its sender.
type GenericMessage struct {
	base
	header   string
	text     string
	severity types.Severity
	tags     []string
	link     types.Link
}

func decodeGeneric(ev Event, s Settings) (Message, bool, error) {
	in := ev.Inner
	header, _ := stringField(in, "header")
	if header == "" {
		return nil, true, fmt.Errorf("generic message requires a header")
	}
	text, _ := stringField(in, "text")

	sev := types.SeverityWarning
	if raw, ok := stringField(in, "type"); ok && raw != "" {
		parsed, err := types.ParseSeverity(raw)
		if err != nil {
			return nil, true, err
		}
		sev = parsed
	}
	tags, err := tagList(in["tags"])
	if err != nil {
		return nil, true, err
	}
	link, _ := stringField(in, "link")
	linkText, _ := stringField(in, "link_href")

	return &GenericMessage{
		base:     base{kind: KindWebhookGeneric, raw: ev.Raw, settings: s},
		header:   header,
		text:     text,
		severity: sev,
		tags:     tags,
		link:     types.Link{URL: link, Text: linkText},
	}, true, nil
}

func (m *GenericMessage) GenerateNotification() (types.Notification, error) {
	return m.notification(m.header, m.text, m.severity, m.tags, types.WithLink(m.link.URL, m.link.Text)), nil
}
