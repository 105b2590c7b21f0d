package messages

import (
	"encoding/json"
	"fmt"

	"alertsystem/internal/types"
)

const rawHeader = "Unrecognized event received"

// RawMessage is the fallback for events no candidate claimed. The whole
// original payload becomes the body so nothing is lost.
type RawMessage struct {
	base
	subject string
}

func newRawMessage(ev Event, s Settings) *RawMessage {
	m := &RawMessage{base: base{kind: KindRaw, raw: ev.Raw, settings: s}}
	if ev.SNS != nil {
		m.subject = ev.SNS.Subject
	}
	return m
}

// GenerateNotification renders the payload as compact JSON. Map keys are
// sorted by the encoder, so equal payloads render identically.
func (m *RawMessage) GenerateNotification() (types.Notification, error) {
	body, err := json.Marshal(m.raw)
	if err != nil {
		return types.Notification{}, fmt.Errorf("encoding raw payload: %w", err)
	}
	header := rawHeader
	if m.subject != "" {
		header = m.subject
	}
	return m.notification(header, string(body), types.SeverityWarning, nil), nil
}
