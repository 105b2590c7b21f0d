package webhook

import (
	"encoding/json"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"alertsystem/internal/types"
)

func criticalNotification() types.Notification {
	return types.NewNotification(
		"CPU high on api-1",
		"CPU at 95% for 5 minutes",
		types.SeverityCritical,
		[]string{"team_backend", "oncall"},
		types.WithLink("https://console.example.com/alarm?a=1&b=2", "View alarm"),
	)
}

func TestSlackFormatter_Format(t *testing.T) {
	raw, err := (&SlackFormatter{}).Format(criticalNotification())
	require.NoError(t, err)

	var p SlackPayload
	require.NoError(t, json.Unmarshal(raw, &p))

	assert.Equal(t, "[CRITICAL] CPU high on api-1", p.Text)
	require.Len(t, p.Blocks, 1)
	assert.Equal(t, "header", p.Blocks[0].Type)
	assert.Equal(t, "CRITICAL: CPU high on api-1", p.Blocks[0].Text.Text)

	require.Len(t, p.Attachments, 1)
	assert.Equal(t, "#F44336", p.Attachments[0].Color)
	require.Len(t, p.Attachments[0].Blocks, 2)
	assert.Equal(t, "CPU at 95% for 5 minutes", p.Attachments[0].Blocks[0].Text.Text)
	assert.Equal(t, "<https://console.example.com/alarm?a=1&b=2|View alarm>", p.Attachments[0].Blocks[1].Elements[0].Text)
}

func TestSlackFormatter_TruncatesLongHeader(t *testing.T) {
	n := types.NewNotification(strings.Repeat("x", 400), "", types.SeverityInfo, nil)
	p := BuildSlackPayload(n)

	assert.Len(t, []rune(p.Blocks[0].Text.Text), slackHeaderLimit)
	assert.Empty(t, p.Attachments[0].Blocks, "empty body and no link leave the attachment bare")
	assert.Equal(t, "#2196F3", p.Attachments[0].Color)
}

func TestSlackFormatter_ValidateResponse(t *testing.T) {
	f := &SlackFormatter{}

	tests := []struct {
		name    string
		status  int
		body    string
		wantErr string
	}{
		{"plain ok", 200, "ok", ""},
		{"empty", 200, "", ""},
		{"json ok", 200, `{"ok":true}`, ""},
		{"json not ok", 200, `{"ok":false,"error":"invalid_token"}`, "invalid_token"},
		{"json not ok without error", 200, `{"ok":false}`, "unknown error"},
		{"plain text error", 200, "channel_not_found", "channel_not_found"},
		{"non 2xx", 404, "", "unexpected status 404"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			err := f.ValidateResponse(tt.status, []byte(tt.body))
			if tt.wantErr == "" {
				assert.NoError(t, err)
				return
			}
			require.Error(t, err)
			assert.Contains(t, err.Error(), tt.wantErr)
		})
	}
}

func TestDiscordFormatter_Format(t *testing.T) {
	raw, err := (&DiscordFormatter{}).Format(criticalNotification())
	require.NoError(t, err)

	var p DiscordPayload
	require.NoError(t, json.Unmarshal(raw, &p))

	require.Len(t, p.Embeds, 1)
	assert.Equal(t, "[CRITICAL] CPU high on api-1", p.Content)
	assert.Equal(t, "CRITICAL: CPU high on api-1", p.Embeds[0].Title)
	assert.Equal(t, colorCritical, p.Embeds[0].Color)
	assert.Equal(t, "https://console.example.com/alarm?a=1&b=2", p.Embeds[0].URL)
	assert.Equal(t, "Alert System | team_backend, oncall", p.Embeds[0].Footer.Text)
}

func TestDiscordFormatter_ValidateResponse(t *testing.T) {
	f := &DiscordFormatter{}
	assert.NoError(t, f.ValidateResponse(204, nil))

	err := f.ValidateResponse(400, []byte(`{"message":"Invalid Webhook Token"}`))
	require.Error(t, err)
	assert.Contains(t, err.Error(), "Invalid Webhook Token")

	err = f.ValidateResponse(404, []byte("not found"))
	require.Error(t, err)
	assert.Contains(t, err.Error(), "404")
}

func TestTeamsFormatter_Format(t *testing.T) {
	raw, err := (&TeamsFormatter{}).Format(criticalNotification())
	require.NoError(t, err)

	var p TeamsPayload
	require.NoError(t, json.Unmarshal(raw, &p))

	assert.Equal(t, "message", p.Type)
	require.Len(t, p.Attachments, 1)
	card := p.Attachments[0].Content
	assert.Equal(t, "AdaptiveCard", card.Type)
	assert.Equal(t, "CRITICAL: CPU high on api-1", card.Body[0].Text)
	assert.Equal(t, "Attention", card.Body[0].Color)
	require.Len(t, card.Actions, 1)
	assert.Equal(t, "View alarm", card.Actions[0].Title)
}

func TestTeamsColor(t *testing.T) {
	assert.Equal(t, "Attention", teamsColor(types.SeverityCritical))
	assert.Equal(t, "Warning", teamsColor(types.SeverityWarning))
	assert.Equal(t, "Good", teamsColor(types.SeverityStable))
	assert.Equal(t, "Accent", teamsColor(types.SeverityInfo))
}

func TestGoogleChatFormatter_EscapesHTML(t *testing.T) {
	n := types.NewNotification("<b>boom</b>", "a < b & c", types.SeverityWarning, nil,
		types.WithLink("https://console.example.com/?a=1&b=2", ""))

	raw, err := (&GoogleChatFormatter{}).Format(n)
	require.NoError(t, err)

	var p GoogleChatPayload
	require.NoError(t, json.Unmarshal(raw, &p))

	require.Len(t, p.Cards, 1)
	assert.Equal(t, "WARNING: <b>boom</b>", p.Cards[0].Header.Title)
	assert.Equal(t, types.DefaultRoutingTag, p.Cards[0].Header.Subtitle)
	widgets := p.Cards[0].Sections[0].Widgets
	require.Len(t, widgets, 2)
	assert.Equal(t, "a &lt; b &amp; c", widgets[0].TextParagraph.Text)
	assert.Equal(t, `<a href="https://console.example.com/?a=1&amp;b=2">Open</a>`, widgets[1].TextParagraph.Text)
}

func TestGenericFormatter_Format(t *testing.T) {
	raw, err := (&GenericFormatter{}).Format(criticalNotification())
	require.NoError(t, err)

	var p GenericPayload
	require.NoError(t, json.Unmarshal(raw, &p))

	assert.Equal(t, "CRITICAL: CPU high on api-1", p.Title)
	assert.Equal(t, "CPU high on api-1", p.Header)
	assert.Equal(t, "CRITICAL", p.Severity)
	assert.Equal(t, []string{"team_backend", "oncall"}, p.RoutingTags)
	require.NotNil(t, p.Link)
	assert.Equal(t, "View alarm", p.Link.Text)
}

func TestSeverityHexColor(t *testing.T) {
	assert.Equal(t, "#F44336", SeverityHexColor(types.SeverityCritical))
	assert.Equal(t, "#FF9800", SeverityHexColor(types.SeverityWarning))
	assert.Equal(t, "#4CAF50", SeverityHexColor(types.SeverityStable))
	assert.Equal(t, "#2196F3", SeverityHexColor(types.SeverityInfo))
}

func TestTruncate(t *testing.T) {
	assert.Equal(t, "abc", truncate("abc", 3))
	assert.Equal(t, "ab…", truncate("abcd", 3))
	assert.Equal(t, "é", truncate("éé", 1))
}
