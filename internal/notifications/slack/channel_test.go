package slack

import (
	"context"
	"encoding/json"
	"errors"
	"io"
	"net/http"
	"net/http/httptest"
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

func noSleep(context.Context, time.Duration) error { return nil }

func testSpec(apiURL string) config.ChannelSpec {
	return config.ChannelSpec{
		Name: "ops-slack",
		Type: Type,
		Routes: map[string]config.Destinations{
			"team_backend":          {"#backend-alerts"},
			types.DefaultRoutingTag: {"#alert-system"},
		},
		SystemAlertsRoutes: config.Destinations{"#alert-system"},
		Settings: map[string]any{
			"bot_token": "xoxb-test",
			"api_url":   apiURL,
			"username":  "alert-bot",
		},
	}
}

func newTestChannel(t *testing.T, server *httptest.Server) *Channel {
	t.Helper()
	c, err := newChannel(testSpec(server.URL), core.Deps{HTTPClient: server.Client()}, external.WithSleepFunc(noSleep))
	require.NoError(t, err)
	return c
}

func TestSend_PostsBlockKitMessage(t *testing.T) {
	var (
		gotAuth string
		gotBody map[string]any
	)
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		gotAuth = r.Header.Get("Authorization")
		raw, _ := io.ReadAll(r.Body)
		_ = json.Unmarshal(raw, &gotBody)
		_, _ = w.Write([]byte(`{"ok":true,"channel":"C123","ts":"1700000000.000100"}`))
	}))
	defer server.Close()

	c := newTestChannel(t, server)
	n := types.NewNotification("Disk full", "/var at 99%", types.SeverityWarning, []string{"team_backend"})

	out := c.Send(context.Background(), n, "#backend-alerts")

	require.True(t, out.Succeeded(), out.FailureReason)
	assert.Equal(t, "1700000000.000100", out.ProviderMessageID)
	assert.Equal(t, "ops-slack", out.Channel)
	assert.Equal(t, "#backend-alerts", out.Destination)

	assert.Equal(t, "Bearer xoxb-test", gotAuth)
	assert.Equal(t, "#backend-alerts", gotBody["channel"])
	assert.Equal(t, "alert-bot", gotBody["username"])
	assert.Equal(t, "[WARNING] Disk full", gotBody["text"])

	blocks := gotBody["blocks"].([]any)
	header := blocks[0].(map[string]any)["text"].(map[string]any)
	assert.Equal(t, "WARNING: Disk full", header["text"])
	attachment := gotBody["attachments"].([]any)[0].(map[string]any)
	assert.Equal(t, "#FF9800", attachment["color"])
}

func TestSend_OKFalseIsFailure(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		_, _ = w.Write([]byte(`{"ok":false,"error":"channel_not_found"}`))
	}))
	defer server.Close()

	c := newTestChannel(t, server)
	out := c.Send(context.Background(), types.NewNotification("h", "b", types.SeverityInfo, nil), "#gone")

	assert.False(t, out.Succeeded())
	assert.Contains(t, out.FailureReason, "channel_not_found")
	assert.Contains(t, out.FailureReason, string(types.ErrCodeUpstreamSlack))
}

func TestSend_Failures(t *testing.T) {
	tests := []struct {
		name      string
		status    int
		body      string
		wantCalls int32
		want      string
	}{
		{"unreadable body", 200, `<html>`, 1, "unreadable"},
		{"client error", 403, `{}`, 1, "returned 403"},
		{"server error retried", 502, ``, 3, string(types.ErrCodeUpstreamUnavailable)},
		{"rate limited", 429, ``, 3, string(types.ErrCodeUpstreamRateLimited)},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			var calls atomic.Int32
			server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
				calls.Add(1)
				w.WriteHeader(tt.status)
				_, _ = w.Write([]byte(tt.body))
			}))
			defer server.Close()

			c := newTestChannel(t, server)
			out := c.Send(context.Background(), types.NewNotification("h", "b", types.SeverityInfo, nil), "#x")

			assert.False(t, out.Succeeded())
			assert.Contains(t, out.FailureReason, tt.want)
			assert.Equal(t, tt.wantCalls, calls.Load())
		})
	}
}

func TestNew_Validation(t *testing.T) {
	spec := testSpec("https://slack.example.com/api")
	spec.Settings = map[string]any{}
	_, err := New(spec, core.Deps{})
	assert.Error(t, err, "bot_token is required")

	spec = testSpec("not a url")
	_, err = New(spec, core.Deps{})
	assert.Error(t, err)

	spec = testSpec("")
	spec.Routes["team_backend"] = config.Destinations{"#has space"}
	_, err = New(spec, core.Deps{})
	assert.Error(t, err)

	spec = testSpec("")
	delete(spec.Settings, "api_url")
	ch, err := New(spec, core.Deps{})
	require.NoError(t, err)
	assert.Equal(t, defaultAPIURL, ch.(*Channel).settings.APIURL)

	_, err = ch.ResolveDestinations("unknown")
	assert.True(t, errors.Is(err, core.ErrUnknownTag))
	assert.Equal(t, []string{"#alert-system"}, ch.SystemAlertsRoutes())
}
