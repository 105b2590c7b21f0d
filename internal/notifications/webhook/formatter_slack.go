package webhook

import (
	"encoding/json"
	"fmt"
	"strings"

	"alertsystem/internal/types"
)

// Block Kit limits.
const (
	slackHeaderLimit  = 150
	slackSectionLimit = 3000
)

// SlackFormatter formats notifications as Slack Block Kit JSON.
type SlackFormatter struct{}

func (f *SlackFormatter) Platform() Platform {
	return PlatformSlack
}

func (f *SlackFormatter) Format(n types.Notification) ([]byte, error) {
	return json.Marshal(BuildSlackPayload(n))
}

// BuildSlackPayload lays out n as a header block followed by a coloured
// attachment holding the body and, when present, the link.
func BuildSlackPayload(n types.Notification) SlackPayload {
	inner := []SlackBlock{}
	if body := strings.TrimSpace(n.Body()); body != "" {
		inner = append(inner, SlackBlock{
			Type: "section",
			Text: &SlackText{Type: "mrkdwn", Text: truncate(body, slackSectionLimit)},
		})
	}
	if link, ok := n.Link(); ok {
		inner = append(inner, SlackBlock{
			Type: "context",
			Elements: []*SlackText{
				{Type: "mrkdwn", Text: fmt.Sprintf("<%s|%s>", link.URL, linkLabel(link))},
			},
		})
	}

	return SlackPayload{
		Text: fallbackText(n),
		Blocks: []SlackBlock{
			{
				Type: "header",
				Text: &SlackText{Type: "plain_text", Text: truncate(n.Title(), slackHeaderLimit)},
			},
		},
		Attachments: []SlackAttachment{
			{Color: SeverityHexColor(n.Severity()), Blocks: inner},
		},
	}
}

// ValidateResponse checks for Slack's "soft failure" pattern where the API
// returns HTTP 200 but the body indicates an error.
func (f *SlackFormatter) ValidateResponse(statusCode int, body []byte) error {
	if statusCode < 200 || statusCode >= 300 {
		return fmt.Errorf("slack: unexpected status %d", statusCode)
	}

	bodyStr := strings.TrimSpace(string(body))

	// Incoming webhooks answer "ok" as plain text.
	if bodyStr == "ok" || bodyStr == "" {
		return nil
	}

	var resp struct {
		OK    *bool  `json:"ok"`
		Error string `json:"error"`
	}
	if err := json.Unmarshal(body, &resp); err == nil {
		if resp.OK != nil && !*resp.OK {
			if resp.Error == "" {
				resp.Error = "unknown error"
			}
			return fmt.Errorf("slack: API error: %s", resp.Error)
		}
		return nil
	}

	switch bodyStr {
	case "no_text", "channel_not_found", "channel_is_archived", "invalid_payload", "too_many_attachments", "no_service":
		return fmt.Errorf("slack: API error: %s", bodyStr)
	}
	return nil
}
