package webhook

import (
	"encoding/json"
	"fmt"
	"strings"

	"alertsystem/internal/types"
)

// TeamsFormatter formats notifications as Microsoft Teams Adaptive Card JSON
// targeting the Power Automate Workflow schema.
type TeamsFormatter struct{}

func (f *TeamsFormatter) Platform() Platform {
	return PlatformTeams
}

func (f *TeamsFormatter) Format(n types.Notification) ([]byte, error) {
	card := AdaptiveCard{
		Schema:  "http://adaptivecards.io/schemas/adaptive-card.json",
		Type:    "AdaptiveCard",
		Version: "1.4",
		Body: []AdaptiveItem{
			{
				Type:   "TextBlock",
				Text:   n.Title(),
				Size:   "Large",
				Weight: "Bolder",
				Color:  teamsColor(n.Severity()),
				Wrap:   true,
			},
			{
				Type: "TextBlock",
				Text: n.Body(),
				Wrap: true,
			},
			{
				Type: "FactSet",
				Facts: []Fact{
					{Title: "Severity", Value: n.Severity().String()},
					{Title: "Tags", Value: strings.Join(n.Tags(), ", ")},
				},
			},
		},
	}
	if link, ok := n.Link(); ok {
		card.Actions = []AdaptiveAction{{Type: "Action.OpenUrl", Title: linkLabel(link), URL: link.URL}}
	}

	return json.Marshal(TeamsPayload{
		Type: "message",
		Attachments: []TeamsAttachment{
			{ContentType: "application/vnd.microsoft.card.adaptive", Content: card},
		},
	})
}

func teamsColor(s types.Severity) string {
	switch s {
	case types.SeverityCritical:
		return "Attention"
	case types.SeverityWarning:
		return "Warning"
	case types.SeverityStable:
		return "Good"
	default:
		return "Accent"
	}
}

// ValidateResponse checks the Teams response. Power Automate answers 202.
func (f *TeamsFormatter) ValidateResponse(statusCode int, body []byte) error {
	if statusCode >= 200 && statusCode < 300 {
		return nil
	}
	return fmt.Errorf("teams: unexpected status %d: %s", statusCode, truncateBody(body))
}
