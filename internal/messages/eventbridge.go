package messages

import (
	"fmt"

	"github.com/aws/aws-lambda-go/events"

	"alertsystem/internal/types"
)

// EventBridgeScheduledMessage is the periodic heartbeat EventBridge sends to
// keep the function warm and to prove the schedule is alive. It never
// produces a notification.
type EventBridgeScheduledMessage struct {
	base
	Event events.CloudWatchEvent
}

func decodeEventBridgeScheduled(ev Event, s Settings) (Message, bool, error) {
	inner := ev.Inner
	if inner == nil {
		return nil, false, nil
	}
	source, _ := stringField(inner, "source")
	detailType, _ := stringField(inner, "detail-type")
	version, _ := stringField(inner, "version")
	if source != "aws.events" || detailType != "Scheduled Event" || version != "0" {
		return nil, false, nil
	}

	var cwe events.CloudWatchEvent
	if err := decodeInto(inner, &cwe); err != nil {
		return nil, true, fmt.Errorf("decoding scheduled event: %w", err)
	}
	return &EventBridgeScheduledMessage{
		base:  base{kind: KindEventBridgeScheduled, raw: ev.Raw, settings: s},
		Event: cwe,
	}, true, nil
}

func (m *EventBridgeScheduledMessage) GenerateNotification() (types.Notification, error) {
	return types.Notification{}, ErrUnsupportedGeneration
}
