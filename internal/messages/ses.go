package messages

import (
	"fmt"
	"strings"

	"alertsystem/internal/types"
)

// sesNotification is an SES feedback notification (notificationType) or an
// event-publishing record (eventType).
type sesNotification struct {
	NotificationType string        `json:"notificationType"`
	EventType        string        `json:"eventType"`
	Bounce           *sesBounce    `json:"bounce,omitempty"`
	Complaint        *sesComplaint `json:"complaint,omitempty"`
	Delivery         *sesDelivery  `json:"delivery,omitempty"`
	Mail             sesMail       `json:"mail"`
}

type sesBounce struct {
	BounceType        string                `json:"bounceType"` // "Permanent", "Transient" or "Undetermined"
	BounceSubType     string                `json:"bounceSubType"`
	BouncedRecipients []sesBouncedRecipient `json:"bouncedRecipients"`
	Timestamp         string                `json:"timestamp"`
}

type sesBouncedRecipient struct {
	EmailAddress   string `json:"emailAddress"`
	Action         string `json:"action"`
	Status         string `json:"status"`
	DiagnosticCode string `json:"diagnosticCode"`
}

type sesComplaint struct {
	ComplainedRecipients  []sesComplainedRecipient `json:"complainedRecipients"`
	ComplaintFeedbackType string                   `json:"complaintFeedbackType"` // e.g. "abuse"
	Timestamp             string                   `json:"timestamp"`
}

type sesComplainedRecipient struct {
	EmailAddress string `json:"emailAddress"`
}

type sesDelivery struct {
	Recipients []string `json:"recipients"`
	Timestamp  string   `json:"timestamp"`
}

type sesMail struct {
	MessageID   string   `json:"messageId"`
	Source      string   `json:"source"`
	SourceArn   string   `json:"sourceArn"`
	Destination []string `json:"destination"`
	Timestamp   string   `json:"timestamp"`
}

// SESMessage is an SES bounce, complaint or delivery notification.
// It is always routed to the self-monitoring tag: bounces concern the sending
// identity, not the team that owns the original alert.
type SESMessage struct {
	base
	payload sesNotification
}

func decodeSES(ev Event, s Settings) (Message, bool, error) {
	inner := ev.Inner
	if inner == nil {
		return nil, false, nil
	}
	_, hasMail := inner["mail"]
	_, hasNotificationType := inner["notificationType"]
	_, hasEventType := inner["eventType"]
	if !hasMail || !(hasNotificationType || hasEventType) {
		return nil, false, nil
	}
	if _, ok := inner["mail"].(map[string]any); !ok {
		return nil, true, fmt.Errorf("mail must be an object")
	}

	var n sesNotification
	if err := decodeInto(inner, &n); err != nil {
		return nil, true, fmt.Errorf("decoding SES notification: %w", err)
	}
	if n.Type() == "" {
		return nil, true, fmt.Errorf("notificationType or eventType must be a non-empty string")
	}

	return &SESMessage{base: base{kind: KindSESNotification, raw: ev.Raw, settings: s}, payload: n}, true, nil
}

// Type returns the notification or event type ("Bounce", "Complaint", ...).
func (n sesNotification) Type() string {
	if n.NotificationType != "" {
		return n.NotificationType
	}
	return n.EventType
}

func (m *SESMessage) GenerateNotification() (types.Notification, error) {
	n := m.payload
	region := regionFromARN(n.Mail.SourceArn)
	if region == "" {
		region = m.settings.Region
	}

	var b strings.Builder
	fmt.Fprintf(&b, "Region: %s\n", region)
	fmt.Fprintf(&b, "Source: %s\n", n.Mail.Source)
	fmt.Fprintf(&b, "Message ID: %s\n", n.Mail.MessageID)

	var (
		header   string
		severity types.Severity
	)
	switch n.Type() {
	case "Bounce":
		header, severity = "SES bounce received", types.SeverityCritical
		if n.Bounce != nil {
			fmt.Fprintf(&b, "Bounce type: %s\nBounce sub type: %s\n", n.Bounce.BounceType, n.Bounce.BounceSubType)
			for _, r := range n.Bounce.BouncedRecipients {
				fmt.Fprintf(&b, "Recipient: %s %s\n", r.EmailAddress, r.DiagnosticCode)
			}
		}
	case "Complaint":
		header, severity = "SES complaint received", types.SeverityWarning
		if n.Complaint != nil {
			fmt.Fprintf(&b, "Feedback type: %s\n", n.Complaint.ComplaintFeedbackType)
			for _, r := range n.Complaint.ComplainedRecipients {
				fmt.Fprintf(&b, "Recipient: %s\n", r.EmailAddress)
			}
		}
	case "Reject", "Rendering Failure":
		header, severity = "SES "+strings.ToLower(n.Type())+" received", types.SeverityWarning
	case "Delivery":
		header, severity = "SES delivery notification", types.SeverityInfo
		if n.Delivery != nil {
			fmt.Fprintf(&b, "Recipients: %s\n", strings.Join(n.Delivery.Recipients, ", "))
		}
	default:
		header, severity = "SES "+n.Type()+" event", types.SeverityInfo
	}

	return m.notification(header, b.String(), severity, []string{m.settings.DefaultTag}), nil
}
