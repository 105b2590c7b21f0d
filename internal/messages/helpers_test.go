package messages

import (
	"encoding/json"
	"testing"

	"github.com/stretchr/testify/require"

	"alertsystem/internal/types"
)

var testSettings = Settings{Region: "eu-west-1", DefaultTag: types.DefaultRoutingTag, MaxLogLines: 3}

func newTestFactory(t *testing.T, extra ...Candidate) *Factory {
	t.Helper()
	f, err := NewFactory(testSettings, extra...)
	require.NoError(t, err)
	return f
}

// rawEvent decodes a JSON literal the same way the Lambda runtime does.
func rawEvent(t *testing.T, s string) types.RawEvent {
	t.Helper()
	var ev types.RawEvent
	require.NoError(t, json.Unmarshal([]byte(s), &ev))
	return ev
}

// snsEnvelope wraps message in a single-record SNS event. Strings are used
// as the message verbatim, anything else is JSON encoded first.
func snsEnvelope(t *testing.T, subject string, message any) types.RawEvent {
	t.Helper()
	text, ok := message.(string)
	if !ok {
		b, err := json.Marshal(message)
		require.NoError(t, err)
		text = string(b)
	}
	return types.RawEvent{
		"Records": []any{
			map[string]any{
				"EventSource":          "aws:sns",
				"EventVersion":         "1.0",
				"EventSubscriptionArn": "arn:aws:sns:eu-west-1:123456789012:alerts:sub",
				"Sns": map[string]any{
					"Type":      "Notification",
					"MessageId": "95df01b4-ee98-5cb9-9903-4c221d41eb5e",
					"TopicArn":  "arn:aws:sns:eu-west-1:123456789012:alerts",
					"Subject":   subject,
					"Message":   text,
					"Timestamp": "2026-01-05T10:00:00.000Z",
				},
			},
		},
	}
}

// cloneEvent deep-copies an event through JSON for mutation checks.
func cloneEvent(t *testing.T, ev types.RawEvent) types.RawEvent {
	t.Helper()
	b, err := json.Marshal(ev)
	require.NoError(t, err)
	return rawEvent(t, string(b))
}

func generate(t *testing.T, f *Factory, ev types.RawEvent) (Message, types.Notification) {
	t.Helper()
	msg, err := f.GenerateMessage(ev)
	require.NoError(t, err)
	n, err := msg.GenerateNotification()
	require.NoError(t, err)
	return msg, n
}
