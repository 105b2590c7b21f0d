package external

import "context"

// EmailMessage is a fully rendered email. Providers never template.
type EmailMessage struct {
	From     string
	FromName string
	To       string
	Subject  string
	BodyText string
	BodyHTML string
	// Tags are attached to the send for provider-side correlation.
	Tags map[string]string
}

// EmailProvider transmits rendered email and returns the provider message id.
type EmailProvider interface {
	Send(ctx context.Context, msg EmailMessage) (providerMsgID string, err error)
}
