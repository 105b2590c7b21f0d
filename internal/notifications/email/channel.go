// Package email delivers notifications as email through Amazon SES v2.
// Messages are rendered locally from embedded templates.
package email

import (
	"context"
	"fmt"
	"strings"

	"alertsystem/internal/config"
	"alertsystem/internal/external"
	"alertsystem/internal/notifications/core"
	"alertsystem/internal/types"
)

// Type is the registry discriminant.
const Type = "email"

// Settings is the channel's settings block.
type Settings struct {
	From             string `yaml:"from" validate:"required,email"`
	FromName         string `yaml:"from_name"`
	ConfigurationSet string `yaml:"configuration_set"`
}

var _ core.Channel = (*Channel)(nil)

// Channel sends one email per destination address.
type Channel struct {
	name     string
	routes   *core.Routes
	settings Settings
	provider external.EmailProvider
	renderer *Renderer
	logger   types.Logger
	clock    types.Clock
}

// New is the registry constructor. It uses SES in the region of deps.AWS.
func New(spec config.ChannelSpec, deps core.Deps) (core.Channel, error) {
	var s Settings
	if err := spec.DecodeSettings(&s); err != nil {
		return nil, err
	}
	return newChannel(spec, s, deps, external.NewSESClient(deps.AWS, s.ConfigurationSet))
}

func newChannel(spec config.ChannelSpec, s Settings, deps core.Deps, provider external.EmailProvider) (*Channel, error) {
	routes, err := core.NewRoutes(spec, core.WithDestinationValidator(types.ValidateEmailAddress))
	if err != nil {
		return nil, err
	}
	renderer, err := NewRenderer(s.FromName)
	if err != nil {
		return nil, err
	}
	if deps.Logger == nil {
		deps.Logger = types.NopLogger{}
	}
	if deps.Clock == nil {
		deps.Clock = types.RealClock{}
	}
	return &Channel{
		name:     spec.Name,
		routes:   routes,
		settings: s,
		provider: provider,
		renderer: renderer,
		logger:   deps.Logger.With("channel", spec.Name),
		clock:    deps.Clock,
	}, nil
}

func (c *Channel) Name() string { return c.name }
func (c *Channel) Type() string { return Type }

func (c *Channel) ResolveDestinations(tag string) ([]string, error) {
	return c.routes.Resolve(tag)
}

func (c *Channel) SystemAlertsRoutes() []string {
	return c.routes.System()
}

// Send renders n and hands it to the provider.
func (c *Channel) Send(ctx context.Context, n types.Notification, dest string) types.DeliveryOutcome {
	logger := core.InvocationLogger(ctx, c.logger, c.name)
	start := c.clock.Now()

	rendered, err := c.renderer.Render(n)
	if err != nil {
		logger.Error("email rendering failed", "error", err.Error())
		return types.Failed(c.name, Type, dest, err, c.clock.Now().Sub(start))
	}

	msgID, err := c.provider.Send(ctx, external.EmailMessage{
		From:     c.settings.From,
		FromName: c.settings.FromName,
		To:       dest,
		Subject:  rendered.Subject,
		BodyText: rendered.BodyText,
		BodyHTML: rendered.BodyHTML,
		Tags: map[string]string{
			"channel":  c.name,
			"severity": strings.ToLower(n.Severity().String()),
		},
	})
	if err != nil {
		if IsBlocklistError(err) {
			logger.Warn("recipient blocked by provider", "dest", RedactEmail(dest))
		} else {
			logger.Warn("email delivery failed", "dest", RedactEmail(dest), "error", err.Error())
		}
		return types.Failed(c.name, Type, dest, fmt.Errorf("ses send: %w", err), c.clock.Now().Sub(start))
	}

	logger.Info("email delivered", "dest", RedactEmail(dest), "provider_message_id", msgID)
	return types.Sent(c.name, Type, dest, msgID, c.clock.Now().Sub(start))
}
