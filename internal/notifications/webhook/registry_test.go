package webhook

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestPlatformRegistry_Detect(t *testing.T) {
	r := NewPlatformRegistry()

	tests := []struct {
		name     string
		url      string
		override Platform
		want     Platform
	}{
		{"slack", "https://hooks.slack.com/services/T000/B000/XXXX", "", PlatformSlack},
		{"discord", "https://discord.com/api/webhooks/123/abc", "", PlatformDiscord},
		{"teams connector", "https://acme.webhook.office.com/webhookb2/x", "", PlatformTeams},
		{"teams workflow", "https://prod-1.westus.logic.azure.com/workflows/x", "", PlatformTeams},
		{"google chat", "https://chat.googleapis.com/v1/spaces/AAA/messages?key=k", "", PlatformGoogleChat},
		{"case insensitive", "https://HOOKS.SLACK.COM/services/x", "", PlatformSlack},
		{"unknown host", "https://alerts.example.com/hook", "", PlatformGeneric},
		{"override wins", "https://alerts.example.com/hook", PlatformDiscord, PlatformDiscord},
		{"unknown override ignored", "https://hooks.slack.com/services/x", Platform("pagerduty"), PlatformSlack},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.want, r.Detect(tt.url, tt.override))
		})
	}
}

func TestPlatformRegistry_GetFallsBackToGeneric(t *testing.T) {
	r := NewPlatformRegistry()
	assert.Equal(t, PlatformSlack, r.Get(PlatformSlack).Platform())
	assert.Equal(t, PlatformGeneric, r.Get(Platform("unknown")).Platform())
}

func TestPlatformRegistry_CheckDeprecation(t *testing.T) {
	r := NewPlatformRegistry()

	warning, deprecated := r.CheckDeprecation("https://acme.webhook.office.com/webhookb2/x")
	assert.True(t, deprecated)
	assert.Contains(t, warning, "Power Automate")

	_, deprecated = r.CheckDeprecation("https://prod-1.westus.logic.azure.com/workflows/x")
	assert.False(t, deprecated)
}
