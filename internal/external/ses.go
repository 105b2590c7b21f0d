package external

import (
	"context"
	"errors"
	"fmt"
	"sort"
	"strings"

	"github.com/aws/aws-sdk-go-v2/aws"
	"github.com/aws/aws-sdk-go-v2/service/sesv2"
	sestypes "github.com/aws/aws-sdk-go-v2/service/sesv2/types"

	"alertsystem/internal/types"
)

// SESAPI is the subset of the SES v2 client used by SESClient.
type SESAPI interface {
	SendEmail(ctx context.Context, params *sesv2.SendEmailInput, optFns ...func(*sesv2.Options)) (*sesv2.SendEmailOutput, error)
}

// SESClient implements EmailProvider on SES v2. The SDK retries throttling
// on its own, so there is no BaseClient here.
type SESClient struct {
	api           SESAPI
	configSetName string
}

// NewSESClient creates an SESClient from an AWS config.
func NewSESClient(awsCfg aws.Config, configSetName string) *SESClient {
	return NewSESClientWithAPI(sesv2.NewFromConfig(awsCfg), configSetName)
}

// NewSESClientWithAPI is NewSESClient with a caller-provided API, for tests.
func NewSESClientWithAPI(api SESAPI, configSetName string) *SESClient {
	return &SESClient{api: api, configSetName: configSetName}
}

var _ EmailProvider = (*SESClient)(nil)

// Send transmits msg as a simple (non-templated) email.
//
// Error mapping:
//   - MessageRejected, MailFromDomainNotVerified → ErrCodeEmailBlocked
//   - TooManyRequestsException, LimitExceeded → ErrCodeUpstreamRateLimited
//   - SendingPausedException, AccountSuspended → ErrCodeUpstreamUnavailable
//   - Other → ErrCodeUpstreamEmailProvider
func (s *SESClient) Send(ctx context.Context, msg EmailMessage) (string, error) {
	from := msg.From
	if msg.FromName != "" {
		from = fmt.Sprintf("%s <%s>", msg.FromName, msg.From)
	}

	body := &sestypes.Body{}
	if msg.BodyText != "" {
		body.Text = &sestypes.Content{Data: aws.String(msg.BodyText), Charset: aws.String("UTF-8")}
	}
	if msg.BodyHTML != "" {
		body.Html = &sestypes.Content{Data: aws.String(msg.BodyHTML), Charset: aws.String("UTF-8")}
	}

	input := &sesv2.SendEmailInput{
		FromEmailAddress: aws.String(from),
		Destination:      &sestypes.Destination{ToAddresses: []string{msg.To}},
		Content: &sestypes.EmailContent{
			Simple: &sestypes.Message{
				Subject: &sestypes.Content{Data: aws.String(msg.Subject), Charset: aws.String("UTF-8")},
				Body:    body,
			},
		},
		EmailTags: messageTags(msg.Tags),
	}
	if s.configSetName != "" {
		input.ConfigurationSetName = aws.String(s.configSetName)
	}

	out, err := s.api.SendEmail(ctx, input)
	if err != nil {
		return "", mapSESError(err)
	}
	return aws.ToString(out.MessageId), nil
}

// messageTags converts tags in key order. SES only allows ASCII letters,
// digits, underscore and dash in tag values, so everything else becomes '_'.
func messageTags(tags map[string]string) []sestypes.MessageTag {
	if len(tags) == 0 {
		return nil
	}
	keys := make([]string, 0, len(tags))
	for k := range tags {
		keys = append(keys, k)
	}
	sort.Strings(keys)

	out := make([]sestypes.MessageTag, 0, len(keys))
	for _, k := range keys {
		out = append(out, sestypes.MessageTag{Name: aws.String(sesTagValue(k)), Value: aws.String(sesTagValue(tags[k]))})
	}
	return out
}

func sesTagValue(s string) string {
	return strings.Map(func(r rune) rune {
		switch {
		case r >= 'a' && r <= 'z', r >= 'A' && r <= 'Z', r >= '0' && r <= '9', r == '_', r == '-':
			return r
		default:
			return '_'
		}
	}, s)
}

func mapSESError(err error) error {
	var (
		rejected      *sestypes.MessageRejected
		mailFrom      *sestypes.MailFromDomainNotVerifiedException
		tooMany       *sestypes.TooManyRequestsException
		limitExceeded *sestypes.LimitExceededException
		paused        *sestypes.SendingPausedException
		suspended     *sestypes.AccountSuspendedException
	)
	switch {
	case errors.As(err, &rejected), errors.As(err, &mailFrom):
		return types.NewAppError(types.ErrCodeEmailBlocked, fmt.Sprintf("SES rejected message: %v", err), err)
	case errors.As(err, &tooMany), errors.As(err, &limitExceeded):
		return types.NewAppError(types.ErrCodeUpstreamRateLimited, fmt.Sprintf("SES rate limit exceeded: %v", err), err)
	case errors.As(err, &paused), errors.As(err, &suspended):
		return types.NewAppError(types.ErrCodeUpstreamUnavailable, fmt.Sprintf("SES sending paused: %v", err), err)
	default:
		return types.NewAppError(types.ErrCodeUpstreamEmailProvider, fmt.Sprintf("SES error: %v", err), err)
	}
}
