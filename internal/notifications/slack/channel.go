// Package slack delivers notifications through the Slack Web API
// (chat.postMessage) using a bot token.
package slack

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"strings"

	"alertsystem/internal/config"
	"alertsystem/internal/external"
	"alertsystem/internal/notifications/core"
	"alertsystem/internal/notifications/webhook"
	"alertsystem/internal/types"
)

// Type is the registry discriminant.
const Type = "slack"

const (
	defaultAPIURL    = "https://slack.com/api/chat.postMessage"
	defaultUserAgent = "AlertSystem-Slack/1.0"
	maxResponseBody  = 16 << 10
)

// Settings is the channel's settings block.
type Settings struct {
	BotToken  types.SecretString `yaml:"bot_token" validate:"required"`
	APIURL    string             `yaml:"api_url" validate:"omitempty,url"`
	Username  string             `yaml:"username"`
	IconEmoji string             `yaml:"icon_emoji"`
}

type postMessageRequest struct {
	Channel string `json:"channel"`
	webhook.SlackPayload
	Username  string `json:"username,omitempty"`
	IconEmoji string `json:"icon_emoji,omitempty"`
}

type postMessageResponse struct {
	OK      bool   `json:"ok"`
	Error   string `json:"error"`
	TS      string `json:"ts"`
	Channel string `json:"channel"`
}

var _ core.Channel = (*Channel)(nil)

// Channel posts Block Kit messages to Slack channels.
type Channel struct {
	name     string
	routes   *core.Routes
	settings Settings
	client   *external.BaseClient
	logger   types.Logger
	clock    types.Clock
}

// New is the registry constructor. Destinations are channel names such as
// "#backend-alerts" or channel IDs.
func New(spec config.ChannelSpec, deps core.Deps) (core.Channel, error) {
	return newChannel(spec, deps)
}

func newChannel(spec config.ChannelSpec, deps core.Deps, opts ...external.BaseClientOption) (*Channel, error) {
	var s Settings
	if err := spec.DecodeSettings(&s); err != nil {
		return nil, err
	}
	if s.APIURL == "" {
		s.APIURL = defaultAPIURL
	}

	routes, err := core.NewRoutes(spec, core.WithDestinationValidator(validateChannelName))
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
		client:   external.NewBaseClient(deps.HTTPClient, "slack-"+spec.Name, external.DefaultRetryPolicy(), defaultUserAgent, opts...),
		logger:   deps.Logger.With("channel", spec.Name),
		clock:    deps.Clock,
	}, nil
}

func validateChannelName(dest string) error {
	if strings.ContainsAny(dest, " \t\n") {
		return fmt.Errorf("invalid slack channel %q", dest)
	}
	return nil
}

func (c *Channel) Name() string { return c.name }
func (c *Channel) Type() string { return Type }

func (c *Channel) ResolveDestinations(tag string) ([]string, error) {
	return c.routes.Resolve(tag)
}

func (c *Channel) SystemAlertsRoutes() []string {
	return c.routes.System()
}

// Send posts n to the Slack channel dest. A 200 with "ok": false is a failure.
func (c *Channel) Send(ctx context.Context, n types.Notification, dest string) types.DeliveryOutcome {
	logger := core.InvocationLogger(ctx, c.logger, c.name)
	start := c.clock.Now()
	fail := func(err error) types.DeliveryOutcome {
		logger.Warn("slack delivery failed", "destination", dest, "error", err.Error())
		return types.Failed(c.name, Type, dest, err, c.clock.Now().Sub(start))
	}

	payload, err := json.Marshal(postMessageRequest{
		Channel:      dest,
		SlackPayload: webhook.BuildSlackPayload(n),
		Username:     c.settings.Username,
		IconEmoji:    c.settings.IconEmoji,
	})
	if err != nil {
		return fail(fmt.Errorf("encode message: %w", err))
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, c.settings.APIURL, bytes.NewReader(payload))
	if err != nil {
		return fail(fmt.Errorf("build request: %w", err))
	}
	req.Header.Set("Content-Type", "application/json; charset=utf-8")
	req.Header.Set("Authorization", "Bearer "+c.settings.BotToken.Unmask())

	resp, err := c.client.Do(req)
	if err != nil {
		return fail(err)
	}
	defer resp.Body.Close()

	body, _ := io.ReadAll(io.LimitReader(resp.Body, maxResponseBody))
	if resp.StatusCode < 200 || resp.StatusCode >= 300 {
		return fail(types.NewAppError(types.ErrCodeUpstreamSlack,
			fmt.Sprintf("chat.postMessage returned %d", resp.StatusCode), nil))
	}

	var pm postMessageResponse
	if err := json.Unmarshal(body, &pm); err != nil {
		return fail(types.NewAppError(types.ErrCodeUpstreamSlack, "chat.postMessage returned an unreadable body", err))
	}
	if !pm.OK {
		if pm.Error == "" {
			pm.Error = "unknown_error"
		}
		return fail(types.NewAppError(types.ErrCodeUpstreamSlack, "chat.postMessage: "+pm.Error, nil))
	}

	return types.Sent(c.name, Type, dest, pm.TS, c.clock.Now().Sub(start))
}
