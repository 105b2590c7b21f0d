// Package core holds the contract every notification channel implements and
// the shared pieces around it: tag routing, the constructor registry and
// delivery metrics.
package core

import (
	"context"
	"errors"
	"fmt"
	"net/http"

	"github.com/aws/aws-sdk-go-v2/aws"

	"alertsystem/internal/config"
	"alertsystem/internal/types"
)

// Channel delivers Notifications to destinations selected by routing tag.
// Implementations are built once at cold start and are safe for concurrent
// use; their configuration never changes after Load.
type Channel interface {
	Name() string
	Type() string

	// ResolveDestinations returns the destinations configured for tag or an
	// *UnknownTagError. It never returns an empty slice with a nil error.
	ResolveDestinations(tag string) ([]string, error)

	// SystemAlertsRoutes returns the self-monitoring destinations. Never empty.
	SystemAlertsRoutes() []string

	// Send delivers n to one destination. Failures are reported in the
	// outcome, never as a panic or an error return.
	Send(ctx context.Context, n types.Notification, destination string) types.DeliveryOutcome
}

// DestinationRedactor is implemented by channels whose destinations are
// credentials, such as webhook URLs with tokens in the path. Outcomes, plans
// and escalation bodies show the redacted form.
type DestinationRedactor interface {
	RedactDestination(destination string) string
}

// DisplayDestination returns destination as it may appear outside the
// channel: in responses, logs and other channels' messages.
func DisplayDestination(ch Channel, destination string) string {
	if r, ok := ch.(DestinationRedactor); ok {
		return r.RedactDestination(destination)
	}
	return destination
}

// InvocationLogger returns the invocation-scoped logger the dispatcher put in
// ctx, tagged with the channel name, or fallback when there is none.
func InvocationLogger(ctx context.Context, fallback types.Logger, channel string) types.Logger {
	if l := types.LoggerFromContext(ctx); l != nil {
		return l.With("channel", channel)
	}
	return fallback
}

// Deps are the shared resources handed to channel constructors.
type Deps struct {
	AWS        aws.Config
	HTTPClient *http.Client
	Logger     types.Logger
	Clock      types.Clock
}

func (d Deps) withDefaults() Deps {
	if d.HTTPClient == nil {
		d.HTTPClient = http.DefaultClient
	}
	if d.Logger == nil {
		d.Logger = types.NopLogger{}
	}
	if d.Clock == nil {
		d.Clock = types.RealClock{}
	}
	return d
}

// Constructor builds a Channel from its configuration entry.
type Constructor func(spec config.ChannelSpec, deps Deps) (Channel, error)

// ErrUnknownTag is matched by every *UnknownTagError.
var ErrUnknownTag = errors.New("unknown routing tag")

// UnknownTagError reports a tag with no configured destinations on a channel.
type UnknownTagError struct {
	Channel string
	Tag     string
}

func (e *UnknownTagError) Error() string {
	return fmt.Sprintf("channel %q has no route for tag %q", e.Channel, e.Tag)
}

func (e *UnknownTagError) Is(target error) bool { return target == ErrUnknownTag }

// ChannelLoadError is returned by Registry.Load. It is fatal at cold start.
type ChannelLoadError struct {
	Channel string
	Type    string
	Err     error
}

func (e *ChannelLoadError) Error() string {
	return fmt.Sprintf("loading channel %q (type %q): %v", e.Channel, e.Type, e.Err)
}

func (e *ChannelLoadError) Unwrap() error { return e.Err }
