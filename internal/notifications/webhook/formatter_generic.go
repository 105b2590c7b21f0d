package webhook

import (
	"encoding/json"
	"fmt"

	"alertsystem/internal/types"
)

// GenericFormatter posts the notification as a flat JSON document.
type GenericFormatter struct{}

func (f *GenericFormatter) Platform() Platform {
	return PlatformGeneric
}

func (f *GenericFormatter) Format(n types.Notification) ([]byte, error) {
	payload := GenericPayload{
		Title:       n.Title(),
		Header:      n.Header(),
		Body:        n.Body(),
		Severity:    n.Severity().String(),
		RoutingTags: n.Tags(),
	}
	if link, ok := n.Link(); ok {
		payload.Link = &link
	}
	return json.Marshal(payload)
}

func (f *GenericFormatter) ValidateResponse(statusCode int, body []byte) error {
	if statusCode >= 200 && statusCode < 300 {
		return nil
	}
	return fmt.Errorf("webhook: unexpected status %d: %s", statusCode, truncateBody(body))
}
