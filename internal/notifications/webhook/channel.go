// Package webhook implements the webhook notification channel.
//
// It handles platform auto-detection (Slack, Teams, Discord, Google Chat),
// payload formatting using platform-specific JSON schemas, HMAC signing with
// dual-validity rotation support, and SSRF protection on every hop.
package webhook

import (
	"bytes"
	"context"
	"crypto/sha256"
	"encoding/hex"
	"errors"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strings"
	"time"

	"github.com/google/uuid"

	"alertsystem/internal/config"
	"alertsystem/internal/external"
	"alertsystem/internal/notifications/core"
	"alertsystem/internal/security"
	"alertsystem/internal/types"
)

// Type is the registry discriminant.
const Type = "webhook"

// SeverityHeader lets receivers filter without parsing the body.
const SeverityHeader = "X-Alert-Severity"

// maxResponseBodyRead limits how much of a response body we read for error
// messages and soft-failure detection.
const maxResponseBodyRead = 4096

const (
	defaultTimeout      = 5 * time.Second
	defaultMaxRedirects = 3
	defaultUserAgent    = "AlertSystem-Webhook/1.0"
)

// Settings is the channel's settings block.
type Settings struct {
	PlatformOverride        string             `yaml:"platform_override" validate:"omitempty,oneof=slack discord teams google_chat generic"`
	Secret                  types.SecretString `yaml:"secret"`
	PreviousSecret          types.SecretString `yaml:"previous_secret"`
	PreviousSecretExpiresAt string             `yaml:"previous_secret_expires_at"`
	Timeout                 time.Duration      `yaml:"timeout" validate:"gte=0"`
	MaxRedirects            int                `yaml:"max_redirects" validate:"gte=0,lte=10"`
	UserAgent               string             `yaml:"user_agent"`
	Headers                 map[string]string  `yaml:"headers"`
}

var (
	_ core.Channel             = (*Channel)(nil)
	_ core.DestinationRedactor = (*Channel)(nil)
)

// Channel posts notifications to HTTPS endpoints.
type Channel struct {
	name     string
	routes   *core.Routes
	registry *PlatformRegistry
	override Platform
	signer   *Signer
	headers  map[string]string
	client   *external.BaseClient
	logger   types.Logger
	clock    types.Clock
}

// New is the registry constructor. Destinations must be HTTPS URLs whose host
// is not a blocked IP literal; names are checked again at dial time.
func New(spec config.ChannelSpec, deps core.Deps) (core.Channel, error) {
	var s Settings
	if err := spec.DecodeSettings(&s); err != nil {
		return nil, err
	}
	if s.Timeout == 0 {
		s.Timeout = defaultTimeout
	}
	if s.MaxRedirects == 0 {
		s.MaxRedirects = defaultMaxRedirects
	}

	httpClient, err := security.NewSafeHTTPClient(s.Timeout, s.MaxRedirects)
	if err != nil {
		return nil, fmt.Errorf("webhook channel: failed to create safe HTTP client: %w", err)
	}
	return build(spec, s, deps, httpClient, validateDestination)
}

func validateDestination(dest string) error {
	if err := types.ValidateWebhookURL(dest); err != nil {
		return err
	}
	return security.ValidateLiteralHost(dest)
}

func build(spec config.ChannelSpec, s Settings, deps core.Deps, httpClient *http.Client, validate func(string) error, opts ...external.BaseClientOption) (*Channel, error) {
	routes, err := core.NewRoutes(spec, core.WithDestinationValidator(validate))
	if err != nil {
		return nil, err
	}

	var expiresAt time.Time
	if s.PreviousSecretExpiresAt != "" {
		expiresAt, err = time.Parse(time.RFC3339, s.PreviousSecretExpiresAt)
		if err != nil {
			return nil, fmt.Errorf("previous_secret_expires_at: %w", err)
		}
	}
	if s.UserAgent == "" {
		s.UserAgent = defaultUserAgent
	}
	if deps.Logger == nil {
		deps.Logger = types.NopLogger{}
	}
	if deps.Clock == nil {
		deps.Clock = types.RealClock{}
	}

	opts = append([]external.BaseClientOption{external.WithPermanentErrors(security.IsSSRFError)}, opts...)
	c := &Channel{
		name:     spec.Name,
		routes:   routes,
		registry: NewPlatformRegistry(),
		override: Platform(s.PlatformOverride),
		signer:   NewSigner(s.Secret.Unmask(), s.PreviousSecret.Unmask(), expiresAt),
		headers:  s.Headers,
		client:   external.NewBaseClient(httpClient, "webhook-"+spec.Name, external.DefaultRetryPolicy(), s.UserAgent, opts...),
		logger:   deps.Logger.With("channel", spec.Name),
		clock:    deps.Clock,
	}

	for _, dest := range append(routes.System(), allRouteDestinations(spec)...) {
		if warning, deprecated := c.registry.CheckDeprecation(dest); deprecated {
			c.logger.Warn("webhook destination uses a deprecated integration", "warning", warning)
		}
	}
	return c, nil
}

func allRouteDestinations(spec config.ChannelSpec) []string {
	var out []string
	for _, dests := range spec.RouteMap() {
		out = append(out, dests...)
	}
	return out
}

func (c *Channel) Name() string { return c.name }
func (c *Channel) Type() string { return Type }

func (c *Channel) ResolveDestinations(tag string) ([]string, error) {
	return c.routes.Resolve(tag)
}

func (c *Channel) SystemAlertsRoutes() []string {
	return c.routes.System()
}

// Send formats n for the destination's platform and POSTs it.
//
// Response handling:
//   - 2xx: platform soft-failure check, then success
//   - 429/5xx/transport errors: retried by BaseClient, then failure
//   - other 4xx: failure with the quoted body
func (c *Channel) Send(ctx context.Context, n types.Notification, destination string) types.DeliveryOutcome {
	logger := core.InvocationLogger(ctx, c.logger, c.name)
	start := c.clock.Now()
	display := c.RedactDestination(destination)
	fail := func(err error) types.DeliveryOutcome {
		err = scrubURL(err, destination, display)
		logger.Warn("webhook delivery failed", "destination", display, "error", err.Error())
		return types.Failed(c.name, Type, display, err, c.clock.Now().Sub(start))
	}

	platform := c.registry.Detect(destination, c.override)
	formatter := c.registry.Get(platform)

	payload, err := formatter.Format(n)
	if err != nil {
		return fail(fmt.Errorf("format %s payload: %w", platform, err))
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, destination, bytes.NewReader(payload))
	if err != nil {
		return fail(fmt.Errorf("build request: %w", err))
	}
	for k, v := range c.headers {
		req.Header.Set(k, v)
	}
	req.Header.Set("Content-Type", "application/json")
	req.Header.Set(SeverityHeader, n.Severity().String())
	if c.signer != nil {
		req.Header.Set(SignatureHeader, c.signer.Sign(payload, c.clock.Now()))
	}

	resp, err := c.client.Do(req)
	if err != nil {
		return fail(err)
	}
	defer resp.Body.Close()

	body, _ := io.ReadAll(io.LimitReader(resp.Body, maxResponseBodyRead))

	if resp.StatusCode < 200 || resp.StatusCode >= 300 {
		return fail(types.NewAppError(types.ErrCodeDeliveryRejected,
			fmt.Sprintf("client_error_%d: %s", resp.StatusCode, truncateBody(body)), nil))
	}
	if err := formatter.ValidateResponse(resp.StatusCode, body); err != nil {
		return fail(fmt.Errorf("soft failure: %w", err))
	}

	return types.Sent(c.name, Type, display, extractProviderMessageID(resp, platform, c.clock.Now()), c.clock.Now().Sub(start))
}

// extractProviderMessageID prefers a provider request id header and falls
// back to a synthetic reference.
//
// Format: <platform>-{status}-{timestamp}-{uuid_short}
func extractProviderMessageID(resp *http.Response, platform Platform, now time.Time) string {
	if platform == PlatformSlack {
		if reqID := resp.Header.Get("X-Slack-Req-Id"); reqID != "" {
			return reqID
		}
	}
	if reqID := resp.Header.Get("X-Request-Id"); reqID != "" {
		return reqID
	}
	return fmt.Sprintf("%s-%d-%d-%s", platform, resp.StatusCode, now.Unix(), uuid.NewString()[:8])
}

// RedactDestination keeps scheme and host plus a short digest of the full URL,
// so two destinations on one host stay distinguishable.
func (c *Channel) RedactDestination(destination string) string {
	sum := sha256.Sum256([]byte(destination))
	return redactURL(destination) + "#" + hex.EncodeToString(sum[:4])
}

// scrubURL replaces every spelling of the destination in err's message.
// net/http quotes the parsed URL, which can differ from the configured one.
func scrubURL(err error, destination, display string) error {
	msg := err.Error()
	spellings := []string{destination}
	var urlErr *url.Error
	if errors.As(err, &urlErr) {
		spellings = append(spellings, urlErr.URL)
	}
	scrubbed := msg
	for _, s := range spellings {
		if s != "" {
			scrubbed = strings.ReplaceAll(scrubbed, s, display)
		}
	}
	if scrubbed == msg {
		return err
	}
	return &redactedError{msg: scrubbed, err: err}
}

type redactedError struct {
	msg string
	err error
}

func (e *redactedError) Error() string { return e.msg }
func (e *redactedError) Unwrap() error { return e.err }

// redactURL keeps scheme and host; webhook paths usually embed credentials.
func redactURL(raw string) string {
	u, err := url.Parse(raw)
	if err != nil || u.Host == "" {
		return "<invalid>"
	}
	return u.Scheme + "://" + u.Host + "/..."
}
