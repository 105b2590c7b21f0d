package webhook

import (
	"encoding/json"
	"fmt"
	"html"
	"strings"

	"alertsystem/internal/types"
)

// GoogleChatFormatter formats notifications as Google Chat card JSON.
type GoogleChatFormatter struct{}

func (f *GoogleChatFormatter) Platform() Platform {
	return PlatformGoogleChat
}

func (f *GoogleChatFormatter) Format(n types.Notification) ([]byte, error) {
	widgets := []GoogleWidget{
		{TextParagraph: &GoogleTextParagraph{Text: html.EscapeString(n.Body())}},
	}
	if link, ok := n.Link(); ok {
		widgets = append(widgets, GoogleWidget{
			TextParagraph: &GoogleTextParagraph{
				Text: fmt.Sprintf(`<a href="%s">%s</a>`, html.EscapeString(link.URL), html.EscapeString(linkLabel(link))),
			},
		})
	}

	card := GoogleCard{
		Header: GoogleHeader{
			Title:    n.Title(),
			Subtitle: strings.Join(n.Tags(), ", "),
		},
		Sections: []GoogleSection{
			{Widgets: widgets},
			{Widgets: []GoogleWidget{{KeyValue: &GoogleKeyValue{TopLabel: "Severity", Content: n.Severity().String()}}}},
		},
	}

	return json.Marshal(GoogleChatPayload{
		Text:  fallbackText(n),
		Cards: []GoogleCard{card},
	})
}

func (f *GoogleChatFormatter) ValidateResponse(statusCode int, body []byte) error {
	if statusCode >= 200 && statusCode < 300 {
		return nil
	}
	return fmt.Errorf("google chat: unexpected status %d: %s", statusCode, truncateBody(body))
}
