package dispatch

import (
	"context"
	"errors"
	"net/http"
	"strings"
	"testing"
	"time"

	"github.com/aws/aws-sdk-go-v2/aws"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"alertsystem/internal/config"
	"alertsystem/internal/notifications/core"
	"alertsystem/internal/types"
)

func echoConfig(t *testing.T, doc string) *config.Config {
	t.Helper()
	channels, err := config.ParseChannels(doc)
	require.NoError(t, err)
	return &config.Config{
		AWS:      config.AWSConfig{Region: "eu-west-1"},
		Routing:  config.RoutingConfig{DefaultTag: types.DefaultRoutingTag},
		Dispatch: config.DispatchConfig{SendTimeout: time.Second},
		Channels: channels,
	}
}

func TestBuild_EchoChannelsDeliver(t *testing.T) {
	cfg := echoConfig(t, `
- name: console
  type: echo
  routes:
    team_backend: backend
- name: audit
  type: echo
`)
	c, err := Build(cfg, aws.Config{Region: "eu-west-1"}, types.NopLogger{})
	require.NoError(t, err)
	require.Len(t, c.Channels, 2)
	assert.Equal(t, "console", c.Channels[0].Name())

	resp := c.Dispatcher.Handle(context.Background(), types.RawEvent{"foo": "bar"})

	assert.Equal(t, http.StatusOK, resp.StatusCode)
	body := decodeBody(t, resp)
	assert.Equal(t, "raw", body.MessageKind)
	require.Len(t, body.Outcomes, 2)
	for _, o := range body.Outcomes {
		assert.True(t, o.Succeeded())
		assert.Equal(t, types.DefaultRoutingTag, o.Destination)
	}
}

func TestBuild_UnknownChannelType(t *testing.T) {
	cfg := echoConfig(t, `
- name: pager
  type: pagerduty
  system_alerts_routes: [x]
`)
	_, err := Build(cfg, aws.Config{}, types.NopLogger{})

	var loadErr *core.ChannelLoadError
	require.True(t, errors.As(err, &loadErr))
	assert.Equal(t, "pager", loadErr.Channel)
}

func TestDispatcher_PlanDoesNotSend(t *testing.T) {
	ch := newFakeChannel("ops", map[string][]string{"team_backend": {"#backend"}}, "#alert-system")
	d := newDispatcher(t, stubClassifier{}, []core.Channel{ch})

	n := types.NewNotification("h", "b", types.SeverityInfo, []string{"team_backend", "team_frontend"})
	plan := d.Plan(n)

	require.Len(t, plan, 2)
	assert.Equal(t, "#backend", plan[0].Destination)
	assert.False(t, plan[0].SelfMonitoring)
	assert.Equal(t, "#alert-system", plan[1].Destination)
	assert.True(t, plan[1].SelfMonitoring)
	assert.Contains(t, plan[1].Header, "team_frontend")
	assert.Empty(t, ch.sends())
}

func TestLoadAWSConfig_Endpoint(t *testing.T) {
	t.Setenv("AWS_ACCESS_KEY_ID", "test")
	t.Setenv("AWS_SECRET_ACCESS_KEY", "test")

	cfg, err := LoadAWSConfig(context.Background(), config.AWSConfig{Region: "eu-west-1", EndpointURL: "http://localhost:4566"})
	require.NoError(t, err)
	assert.Equal(t, "eu-west-1", cfg.Region)
	require.NotNil(t, cfg.BaseEndpoint)
	assert.Equal(t, "http://localhost:4566", *cfg.BaseEndpoint)
}

func TestBuild_WebhookTokenStaysOutOfResponse(t *testing.T) {
	cfg := echoConfig(t, `
- name: hooks
  type: webhook
  routes:
    alert_system_monitoring: https://hooks.slack.com/services/T000/B000/SECRETTOKEN
  system_alerts_routes: https://hooks.slack.com/services/T000/B000/SYSTEMTOKEN
- name: console
  type: echo
`)
	c, err := Build(cfg, aws.Config{Region: "eu-west-1"}, types.NopLogger{})
	require.NoError(t, err)

	ctx, cancel := context.WithCancel(context.Background())
	cancel()
	resp := c.Dispatcher.Handle(ctx, types.RawEvent{"foo": "bar"})

	assert.Equal(t, http.StatusBadGateway, resp.StatusCode)
	assert.False(t, strings.Contains(resp.Body, "SECRETTOKEN"), resp.Body)
	assert.False(t, strings.Contains(resp.Body, "SYSTEMTOKEN"), resp.Body)
	body := decodeBody(t, resp)
	require.NotEmpty(t, body.Outcomes)
	assert.True(t, strings.HasPrefix(body.Outcomes[0].Destination, "https://hooks.slack.com/...#"), body.Outcomes[0].Destination)
}
