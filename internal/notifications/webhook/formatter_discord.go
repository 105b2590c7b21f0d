package webhook

import (
	"encoding/json"
	"fmt"
	"strings"

	"alertsystem/internal/types"
)

const (
	discordTitleLimit       = 256
	discordDescriptionLimit = 4096
)

// DiscordFormatter formats notifications as Discord webhook JSON with embeds.
type DiscordFormatter struct{}

func (f *DiscordFormatter) Platform() Platform {
	return PlatformDiscord
}

func (f *DiscordFormatter) Format(n types.Notification) ([]byte, error) {
	embed := DiscordEmbed{
		Title:       truncate(n.Title(), discordTitleLimit),
		Description: truncate(n.Body(), discordDescriptionLimit),
		Color:       severityColor(n.Severity()),
		Footer: &DiscordFooter{
			Text: "Alert System | " + strings.Join(n.Tags(), ", "),
		},
	}
	if link, ok := n.Link(); ok {
		embed.URL = link.URL
	}

	return json.Marshal(DiscordPayload{
		Username: "Alert System",
		Content:  fallbackText(n),
		Embeds:   []DiscordEmbed{embed},
	})
}

// ValidateResponse checks the Discord webhook response. Discord returns 204
// No Content on success.
func (f *DiscordFormatter) ValidateResponse(statusCode int, body []byte) error {
	if statusCode >= 200 && statusCode < 300 {
		return nil
	}

	var resp struct {
		Message string `json:"message"`
	}
	if err := json.Unmarshal(body, &resp); err == nil && resp.Message != "" {
		return fmt.Errorf("discord: API error: %s", resp.Message)
	}
	return fmt.Errorf("discord: unexpected status %d: %s", statusCode, truncateBody(body))
}
