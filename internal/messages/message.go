// Package messages classifies raw invocation events into typed messages and
// renders them as Notifications.
//
// Classification is an ordered walk over Candidates (see Factory). Each
// candidate either claims the event, declines it, or reports that it claimed
// the event but could not decode it. A raw fallback always claims whatever is
// left, so classification never fails for lack of a match.
package messages

import (
	"errors"
	"fmt"

	"alertsystem/internal/types"
)

// Kind identifies a message variant in logs, metrics and responses.
type Kind string

const (
	KindWebhookZabbix        Kind = "webhook_zabbix"
	KindWebhookGeneric       Kind = "webhook_generic"
	KindCloudWatchAlarmSNS   Kind = "cloudwatch_alarm_sns"
	KindCloudWatchAlarm      Kind = "cloudwatch_alarm"
	KindSESNotification      Kind = "ses_notification"
	KindEventBridgeScheduled Kind = "eventbridge_scheduled"
	KindCloudWatchLogs       Kind = "cloudwatch_logs"
	KindRaw                  Kind = "raw"
)

// Message is a classified event.
type Message interface {
	Kind() Kind
	// Raw returns the originating event. Callers must not modify it.
	Raw() types.RawEvent
	// GenerateNotification renders the message. It is a pure function of the
	// decoded payload and returns ErrUnsupportedGeneration for variants that
	// are recognized but never produce a notification.
	GenerateNotification() (types.Notification, error)
}

// Settings carries the configuration messages need to render notifications.
type Settings struct {
	// Region is used for console links when the payload carries none.
	Region string
	// DefaultTag is injected when a message produces no routing tags.
	DefaultTag string
	// MaxLogLines bounds the log lines rendered from a logs subscription.
	MaxLogLines int
}

func (s Settings) withDefaults() Settings {
	if s.Region == "" {
		s.Region = "us-east-1"
	}
	if s.DefaultTag == "" {
		s.DefaultTag = types.DefaultRoutingTag
	}
	if s.MaxLogLines <= 0 {
		s.MaxLogLines = 20
	}
	return s
}

var (
	// ErrUnsupportedDecode marks an event a candidate recognized but could not decode.
	ErrUnsupportedDecode = errors.New("unsupported decode")
	// ErrUnsupportedGeneration marks a message that is never turned into a notification.
	ErrUnsupportedGeneration = errors.New("notification generation not supported for this message")
)

// DecodeError is returned by GenerateMessage when a candidate claimed the event
// but its payload was malformed.
type DecodeError struct {
	Candidate string
	Err       error
}

func (e *DecodeError) Error() string {
	return fmt.Sprintf("unsupported decode by %s: %v", e.Candidate, e.Err)
}

func (e *DecodeError) Unwrap() error { return e.Err }

// Is makes errors.Is(err, ErrUnsupportedDecode) hold for every DecodeError.
func (e *DecodeError) Is(target error) bool { return target == ErrUnsupportedDecode }

// AppError converts the decode failure for the invocation response.
func (e *DecodeError) AppError() *types.AppError {
	return types.NewAppError(types.ErrCodeValidationUnsupportedDecode, e.Error(), e).
		WithDetails(map[string]any{"candidate": e.Candidate})
}

// base is embedded by every variant.
type base struct {
	kind     Kind
	raw      types.RawEvent
	settings Settings
}

func (b base) Kind() Kind          { return b.kind }
func (b base) Raw() types.RawEvent { return b.raw }

func (b base) notification(header, body string, sev types.Severity, tags []string, opts ...types.NotificationOption) types.Notification {
	opts = append(opts, types.WithDefaultTag(b.settings.DefaultTag))
	return types.NewNotification(header, body, sev, tags, opts...)
}
