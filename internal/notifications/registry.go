// Package notifications wires the built-in channel implementations into a
// core.Registry.
package notifications

import (
	"alertsystem/internal/notifications/core"
	"alertsystem/internal/notifications/echo"
	"alertsystem/internal/notifications/email"
	"alertsystem/internal/notifications/queue"
	"alertsystem/internal/notifications/slack"
	"alertsystem/internal/notifications/topic"
	"alertsystem/internal/notifications/webhook"
)

// NewBuiltinRegistry returns a registry with every built-in channel type.
func NewBuiltinRegistry() *core.Registry {
	r := core.NewRegistry()
	r.Register(slack.Type, slack.New)
	r.Register(email.Type, email.New)
	r.Register(echo.Type, echo.New)
	r.Register(webhook.Type, webhook.New)
	r.Register(topic.Type, topic.New)
	r.Register(queue.Type, queue.New)
	return r
}
