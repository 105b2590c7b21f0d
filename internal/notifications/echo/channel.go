// Package echo is the log-only channel used locally and as a last-resort
// sink. It accepts every routing tag and never fails.
package echo

import (
	"context"

	"github.com/google/uuid"

	"alertsystem/internal/config"
	"alertsystem/internal/notifications/core"
	"alertsystem/internal/types"
)

// Type is the registry discriminant.
const Type = "echo"

// DefaultSystemRoute is used when the channel has no system_alerts_routes.
const DefaultSystemRoute = "stdout"

// Settings is the channel's settings block.
type Settings struct {
	IncludeBody *bool `yaml:"include_body"`
}

var _ core.Channel = (*Channel)(nil)

// Channel writes notifications to the structured log.
type Channel struct {
	name        string
	routes      *core.Routes
	includeBody bool
	logger      types.Logger
}

// New is the registry constructor.
func New(spec config.ChannelSpec, deps core.Deps) (core.Channel, error) {
	var s Settings
	if err := spec.DecodeSettings(&s); err != nil {
		return nil, err
	}
	routes, err := core.NewRoutes(spec, core.WithDefaultSystemRoutes(DefaultSystemRoute))
	if err != nil {
		return nil, err
	}
	logger := deps.Logger
	if logger == nil {
		logger = types.NopLogger{}
	}
	return &Channel{
		name:        spec.Name,
		routes:      routes,
		includeBody: s.IncludeBody == nil || *s.IncludeBody,
		logger:      logger.With("channel", spec.Name),
	}, nil
}

func (c *Channel) Name() string { return c.name }
func (c *Channel) Type() string { return Type }

// ResolveDestinations returns the configured route, or the tag itself.
func (c *Channel) ResolveDestinations(tag string) ([]string, error) {
	if c.routes.Has(tag) {
		return c.routes.Resolve(tag)
	}
	return []string{tag}, nil
}

func (c *Channel) SystemAlertsRoutes() []string {
	return c.routes.System()
}

func (c *Channel) Send(ctx context.Context, n types.Notification, dest string) types.DeliveryOutcome {
	logger := core.InvocationLogger(ctx, c.logger, c.name)
	args := []any{
		"destination", dest,
		"severity", n.Severity().String(),
		"header", n.Header(),
		"tags", n.Tags(),
	}
	if c.includeBody {
		args = append(args, "body", n.Body())
	}
	if link, ok := n.Link(); ok {
		args = append(args, "link", link.URL)
	}
	logger.Info("notification", args...)
	return types.Sent(c.name, Type, dest, uuid.NewString(), 0)
}
