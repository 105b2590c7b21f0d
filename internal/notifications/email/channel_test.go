package email

import (
	"context"
	"errors"
	"sync"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"alertsystem/internal/config"
	"alertsystem/internal/external"
	"alertsystem/internal/notifications/core"
	"alertsystem/internal/types"
)

type mockProvider struct {
	mu   sync.Mutex
	sent []external.EmailMessage
	id   string
	err  error
}

func (m *mockProvider) Send(_ context.Context, msg external.EmailMessage) (string, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.sent = append(m.sent, msg)
	return m.id, m.err
}

func testSpec() config.ChannelSpec {
	return config.ChannelSpec{
		Name:               "ops-email",
		Type:               Type,
		Routes:             map[string]config.Destinations{"team_backend": {"backend@example.com", "oncall@example.com"}},
		SystemAlertsRoutes: config.Destinations{"alerts-admin@example.com"},
	}
}

func testSettings() Settings {
	return Settings{From: "alerts@example.com", FromName: "Ops Alerts"}
}

func newTestChannel(t *testing.T, p external.EmailProvider) *Channel {
	t.Helper()
	c, err := newChannel(testSpec(), testSettings(), core.Deps{}, p)
	require.NoError(t, err)
	return c
}

func TestSend_Success(t *testing.T) {
	p := &mockProvider{id: "ses-msg-1"}
	c := newTestChannel(t, p)
	n := types.NewNotification("Queue backlog", "depth 12000 > 10000", types.SeverityWarning, []string{"team_backend"},
		types.WithLink("https://console.example.com/q", "Queue"))

	out := c.Send(context.Background(), n, "backend@example.com")

	require.True(t, out.Succeeded(), out.FailureReason)
	assert.Equal(t, "ses-msg-1", out.ProviderMessageID)
	assert.Equal(t, Type, out.ChannelType)

	require.Len(t, p.sent, 1)
	msg := p.sent[0]
	assert.Equal(t, "alerts@example.com", msg.From)
	assert.Equal(t, "Ops Alerts", msg.FromName)
	assert.Equal(t, "backend@example.com", msg.To)
	assert.Equal(t, "[WARNING] Queue backlog", msg.Subject)
	assert.Contains(t, msg.BodyText, "depth 12000 > 10000")
	assert.Contains(t, msg.BodyText, "Queue: https://console.example.com/q")
	assert.Contains(t, msg.BodyHTML, "depth 12000 &gt; 10000")
	assert.Equal(t, map[string]string{"channel": "ops-email", "severity": "warning"}, msg.Tags)
}

func TestSend_ProviderErrors(t *testing.T) {
	tests := []struct {
		name string
		err  error
	}{
		{"blocked", types.NewAppError(types.ErrCodeEmailBlocked, "address is on the suppression list", nil)},
		{"throttled", types.NewAppError(types.ErrCodeUpstreamRateLimited, "slow down", nil)},
		{"generic", errors.New("boom")},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			c := newTestChannel(t, &mockProvider{err: tt.err})
			out := c.Send(context.Background(), types.NewNotification("h", "b", types.SeverityCritical, nil), "oncall@example.com")

			assert.False(t, out.Succeeded())
			assert.Contains(t, out.FailureReason, tt.err.Error())
			assert.Empty(t, out.ProviderMessageID)
		})
	}
}

func TestNew_Validation(t *testing.T) {
	spec := testSpec()
	spec.Routes["team_backend"] = config.Destinations{"not-an-address"}
	_, err := newChannel(spec, testSettings(), core.Deps{}, &mockProvider{})
	assert.Error(t, err)

	spec = testSpec()
	spec.Routes["team_backend"] = config.Destinations{"Ops <ops@example.com>"}
	_, err = newChannel(spec, testSettings(), core.Deps{}, &mockProvider{})
	assert.Error(t, err, "display names are not destinations")

	spec = testSpec()
	spec.Settings = map[string]any{"from": "nope"}
	_, err = New(spec, core.Deps{})
	assert.Error(t, err)

	spec = testSpec()
	spec.Settings = map[string]any{"from": "alerts@example.com", "configuration_set": "alerts"}
	ch, err := New(spec, core.Deps{})
	require.NoError(t, err)
	assert.Equal(t, []string{"alerts-admin@example.com"}, ch.SystemAlertsRoutes())

	dests, err := ch.ResolveDestinations("team_backend")
	require.NoError(t, err)
	assert.Equal(t, []string{"backend@example.com", "oncall@example.com"}, dests)
}

func TestIsBlocklistError(t *testing.T) {
	assert.True(t, IsBlocklistError(types.NewAppError(types.ErrCodeEmailBlocked, "x", nil)))
	assert.False(t, IsBlocklistError(types.NewAppError(types.ErrCodeUpstreamRateLimited, "x", nil)))
	assert.False(t, IsBlocklistError(errors.New("x")))
}

func TestRedactEmail(t *testing.T) {
	tests := map[string]string{
		"john@gmail.com": "j***@gmail.com",
		"@example.com":   "***@example.com",
		"no-at-sign":     "***",
		"":               "",
	}
	for in, want := range tests {
		assert.Equal(t, want, RedactEmail(in), in)
	}
}
