package webhook

import (
	"context"
	"encoding/json"
	"errors"
	"io"
	"net/http"
	"net/http/httptest"
	"strings"
	"sync/atomic"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"alertsystem/internal/config"
	"alertsystem/internal/external"
	"alertsystem/internal/notifications/core"
	"alertsystem/internal/types"
)

type fixedClock struct{ t time.Time }

func (c fixedClock) Now() time.Time { return c.t }

func noSleep(context.Context, time.Duration) error { return nil }

func testSpec(base string) config.ChannelSpec {
	return config.ChannelSpec{
		Name: "hooks",
		Type: Type,
		Routes: map[string]config.Destinations{
			"team_backend": {base + "/hook"},
		},
		SystemAlertsRoutes: config.Destinations{base + "/system"},
	}
}

func newTestChannel(t *testing.T, server *httptest.Server, s Settings) *Channel {
	t.Helper()
	deps := core.Deps{Clock: fixedClock{t: signTime}}
	c, err := build(testSpec(server.URL), s, deps, server.Client(), types.ValidateWebhookURL, external.WithSleepFunc(noSleep))
	require.NoError(t, err)
	return c
}

func TestChannel_SendGenericSigned(t *testing.T) {
	var (
		gotBody []byte
		gotReq  *http.Request
	)
	server := httptest.NewTLSServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		gotReq = r
		gotBody, _ = io.ReadAll(r.Body)
		w.WriteHeader(http.StatusAccepted)
	}))
	defer server.Close()

	c := newTestChannel(t, server, Settings{
		Secret:  "s3cret",
		Headers: map[string]string{"X-Team": "backend"},
	})

	out := c.Send(context.Background(), criticalNotification(), server.URL+"/hook")

	require.True(t, out.Succeeded(), out.FailureReason)
	assert.Equal(t, "hooks", out.Channel)
	assert.Equal(t, Type, out.ChannelType)
	assert.True(t, strings.HasPrefix(out.ProviderMessageID, "generic-202-"), out.ProviderMessageID)

	assert.Equal(t, "application/json", gotReq.Header.Get("Content-Type"))
	assert.Equal(t, "CRITICAL", gotReq.Header.Get(SeverityHeader))
	assert.Equal(t, "backend", gotReq.Header.Get("X-Team"))
	assert.Equal(t, defaultUserAgent, gotReq.Header.Get("User-Agent"))
	assert.True(t, VerifySignature(gotBody, gotReq.Header.Get(SignatureHeader), "s3cret", ""))

	var p GenericPayload
	require.NoError(t, json.Unmarshal(gotBody, &p))
	assert.Equal(t, "CPU high on api-1", p.Header)
}

func TestChannel_SendWithoutSecretHasNoSignature(t *testing.T) {
	var sig atomic.Value
	server := httptest.NewTLSServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		sig.Store(r.Header.Get(SignatureHeader))
		w.Header().Set("X-Request-Id", "req-123")
	}))
	defer server.Close()

	c := newTestChannel(t, server, Settings{})
	out := c.Send(context.Background(), criticalNotification(), server.URL+"/hook")

	require.True(t, out.Succeeded())
	assert.Equal(t, "req-123", out.ProviderMessageID)
	assert.Equal(t, "", sig.Load())
}

func TestChannel_SendClientError(t *testing.T) {
	var calls atomic.Int32
	server := httptest.NewTLSServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		calls.Add(1)
		w.WriteHeader(http.StatusBadRequest)
		_, _ = w.Write([]byte(`invalid payload`))
	}))
	defer server.Close()

	c := newTestChannel(t, server, Settings{})
	out := c.Send(context.Background(), criticalNotification(), server.URL+"/hook")

	assert.False(t, out.Succeeded())
	assert.Contains(t, out.FailureReason, "client_error_400: invalid payload")
	assert.Equal(t, int32(1), calls.Load())
}

func TestChannel_SendServerErrorIsRetried(t *testing.T) {
	var calls atomic.Int32
	server := httptest.NewTLSServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		calls.Add(1)
		w.WriteHeader(http.StatusServiceUnavailable)
	}))
	defer server.Close()

	c := newTestChannel(t, server, Settings{})
	out := c.Send(context.Background(), criticalNotification(), server.URL+"/hook")

	assert.False(t, out.Succeeded())
	assert.Contains(t, out.FailureReason, string(types.ErrCodeUpstreamUnavailable))
	assert.Equal(t, int32(1+external.DefaultRetryPolicy().MaxRetries), calls.Load())
}

func TestChannel_SendSlackSoftFailure(t *testing.T) {
	var gotBody []byte
	server := httptest.NewTLSServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		gotBody, _ = io.ReadAll(r.Body)
		_, _ = w.Write([]byte(`{"ok":false,"error":"invalid_token"}`))
	}))
	defer server.Close()

	c := newTestChannel(t, server, Settings{PlatformOverride: string(PlatformSlack)})
	out := c.Send(context.Background(), criticalNotification(), server.URL+"/hook")

	assert.False(t, out.Succeeded())
	assert.Contains(t, out.FailureReason, "soft failure")
	assert.Contains(t, out.FailureReason, "invalid_token")

	var p SlackPayload
	require.NoError(t, json.Unmarshal(gotBody, &p))
	assert.Equal(t, "header", p.Blocks[0].Type)
}

func TestChannel_SendCancelledContext(t *testing.T) {
	server := httptest.NewTLSServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {}))
	defer server.Close()

	c := newTestChannel(t, server, Settings{})
	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	out := c.Send(ctx, criticalNotification(), server.URL+"/hook")
	assert.False(t, out.Succeeded())
	assert.NotEmpty(t, out.FailureReason)
}

func TestChannel_Routes(t *testing.T) {
	server := httptest.NewTLSServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {}))
	defer server.Close()

	c := newTestChannel(t, server, Settings{})

	dests, err := c.ResolveDestinations("team_backend")
	require.NoError(t, err)
	assert.Equal(t, []string{server.URL + "/hook"}, dests)

	_, err = c.ResolveDestinations("nobody")
	assert.True(t, errors.Is(err, core.ErrUnknownTag))

	assert.Equal(t, []string{server.URL + "/system"}, c.SystemAlertsRoutes())
	assert.Equal(t, "hooks", c.Name())
	assert.Equal(t, Type, c.Type())
}

func TestNew_Validation(t *testing.T) {
	valid := func() config.ChannelSpec {
		return config.ChannelSpec{
			Name:               "hooks",
			Type:               Type,
			Routes:             map[string]config.Destinations{"team": {"https://hooks.slack.com/services/T/B/X"}},
			SystemAlertsRoutes: config.Destinations{"https://alerts.example.com/system"},
		}
	}

	t.Run("valid", func(t *testing.T) {
		spec := valid()
		spec.Settings = map[string]any{
			"platform_override":          "discord",
			"secret":                     "abc",
			"previous_secret":            "old",
			"previous_secret_expires_at": "2026-12-01T00:00:00Z",
			"timeout":                    "3s",
		}
		ch, err := New(spec, core.Deps{})
		require.NoError(t, err)
		assert.Equal(t, Platform("discord"), ch.(*Channel).override)
		assert.NotNil(t, ch.(*Channel).signer)
	})

	tests := []struct {
		name   string
		mutate func(*config.ChannelSpec)
	}{
		{"plain http", func(s *config.ChannelSpec) {
			s.Routes["team"] = config.Destinations{"http://alerts.example.com/hook"}
		}},
		{"private ip literal", func(s *config.ChannelSpec) {
			s.Routes["team"] = config.Destinations{"https://10.0.0.8/hook"}
		}},
		{"metadata in system routes", func(s *config.ChannelSpec) {
			s.SystemAlertsRoutes = config.Destinations{"https://169.254.169.254/latest"}
		}},
		{"missing system routes", func(s *config.ChannelSpec) {
			s.SystemAlertsRoutes = nil
		}},
		{"unknown platform", func(s *config.ChannelSpec) {
			s.Settings = map[string]any{"platform_override": "pagerduty"}
		}},
		{"unknown setting", func(s *config.ChannelSpec) {
			s.Settings = map[string]any{"secrett": "typo"}
		}},
		{"bad expiry", func(s *config.ChannelSpec) {
			s.Settings = map[string]any{"previous_secret": "old", "previous_secret_expires_at": "tomorrow"}
		}},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			spec := valid()
			tt.mutate(&spec)
			_, err := New(spec, core.Deps{})
			assert.Error(t, err)
		})
	}
}

func TestChannel_FailureOutcomeHidesURLPath(t *testing.T) {
	server := httptest.NewTLSServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusOK)
	}))
	defer server.Close()
	c := newTestChannel(t, server, Settings{})
	dest := server.URL + "/services/T000/B000/SECRETTOKEN"

	ctx, cancel := context.WithCancel(context.Background())
	cancel()
	out := c.Send(ctx, criticalNotification(), dest)

	require.False(t, out.Succeeded())
	assert.NotContains(t, out.Destination, "SECRETTOKEN")
	assert.NotContains(t, out.FailureReason, "SECRETTOKEN")
	assert.Equal(t, c.RedactDestination(dest), out.Destination)
}

func TestRedactDestination_DistinguishesPaths(t *testing.T) {
	c := &Channel{}
	a := c.RedactDestination("https://hooks.slack.com/services/T/B/one")
	b := c.RedactDestination("https://hooks.slack.com/services/T/B/two")

	assert.True(t, strings.HasPrefix(a, "https://hooks.slack.com/...#"), a)
	assert.NotEqual(t, a, b)
	assert.NotContains(t, a, "one")
}

func TestRedactURL(t *testing.T) {
	assert.Equal(t, "https://hooks.slack.com/...", redactURL("https://hooks.slack.com/services/T/B/secret"))
	assert.Equal(t, "<invalid>", redactURL("::"))
}
