package types

import "time"

// DeliveryStatus is the terminal state of one send.
type DeliveryStatus string

const (
	DeliveryStatusSent   DeliveryStatus = "sent"
	DeliveryStatusFailed DeliveryStatus = "failed"
)

// DeliveryOutcome is the result of sending one Notification to one destination
// of one channel. Channels never return errors from Send; failures land here.
type DeliveryOutcome struct {
	Channel           string         `json:"channel"`
	ChannelType       string         `json:"channel_type"`
	Destination       string         `json:"destination"`
	Tags              []string       `json:"tags,omitempty"`
	SelfMonitoring    bool           `json:"self_monitoring,omitempty"`
	Status            DeliveryStatus `json:"status"`
	ProviderMessageID string         `json:"provider_message_id,omitempty"`
	FailureReason     string         `json:"failure_reason,omitempty"`
	Duration          time.Duration  `json:"-"`
	DurationMS        int64          `json:"duration_ms"`
}

// Succeeded reports whether the send reached the provider.
func (o DeliveryOutcome) Succeeded() bool {
	return o.Status == DeliveryStatusSent
}

// Sent builds a successful outcome.
func Sent(channel, channelType, destination, providerID string, d time.Duration) DeliveryOutcome {
	return DeliveryOutcome{
		Channel:           channel,
		ChannelType:       channelType,
		Destination:       destination,
		Status:            DeliveryStatusSent,
		ProviderMessageID: providerID,
		Duration:          d,
		DurationMS:        d.Milliseconds(),
	}
}

// Failed builds a failed outcome from err.
func Failed(channel, channelType, destination string, err error, d time.Duration) DeliveryOutcome {
	reason := "unknown error"
	if err != nil {
		reason = err.Error()
	}
	return DeliveryOutcome{
		Channel:       channel,
		ChannelType:   channelType,
		Destination:   destination,
		Status:        DeliveryStatusFailed,
		FailureReason: reason,
		Duration:      d,
		DurationMS:    d.Milliseconds(),
	}
}
