// Package topic publishes notifications to Amazon SNS topics.
package topic

import (
	"context"
	"encoding/json"
	"fmt"
	"strings"

	"github.com/aws/aws-sdk-go-v2/aws"
	"github.com/aws/aws-sdk-go-v2/aws/arn"
	"github.com/aws/aws-sdk-go-v2/service/sns"
	snstypes "github.com/aws/aws-sdk-go-v2/service/sns/types"

	"alertsystem/internal/config"
	"alertsystem/internal/notifications/core"
	"alertsystem/internal/types"
)

// Type is the registry discriminant.
const Type = "sns"

// SNS rejects subjects longer than 100 characters.
const maxSubjectLen = 100

// SNSPublisher abstracts the SNS Publish operation for testability.
type SNSPublisher interface {
	Publish(ctx context.Context, params *sns.PublishInput, optFns ...func(*sns.Options)) (*sns.PublishOutput, error)
}

// Settings is the channel's settings block.
type Settings struct {
	// MessageGroupID is required for FIFO topics.
	MessageGroupID string `yaml:"message_group_id"`
}

var _ core.Channel = (*Channel)(nil)

// Channel publishes the notification JSON with a subject line and a
// severity message attribute so subscribers can filter.
type Channel struct {
	name     string
	routes   *core.Routes
	settings Settings
	client   SNSPublisher
	logger   types.Logger
	clock    types.Clock
}

// New is the registry constructor. Destinations are topic ARNs.
func New(spec config.ChannelSpec, deps core.Deps) (core.Channel, error) {
	return newChannel(spec, deps, sns.NewFromConfig(deps.AWS))
}

func newChannel(spec config.ChannelSpec, deps core.Deps, client SNSPublisher) (*Channel, error) {
	var s Settings
	if err := spec.DecodeSettings(&s); err != nil {
		return nil, err
	}
	routes, err := core.NewRoutes(spec, core.WithDestinationValidator(validateTopicARN))
	if err != nil {
		return nil, err
	}
	if deps.Logger == nil {
		deps.Logger = types.NopLogger{}
	}
	if deps.Clock == nil {
		deps.Clock = types.RealClock{}
	}
	return &Channel{
		name:     spec.Name,
		routes:   routes,
		settings: s,
		client:   client,
		logger:   deps.Logger.With("channel", spec.Name),
		clock:    deps.Clock,
	}, nil
}

func validateTopicARN(dest string) error {
	parsed, err := arn.Parse(dest)
	if err != nil {
		return fmt.Errorf("invalid topic ARN %q: %w", dest, err)
	}
	if parsed.Service != "sns" {
		return fmt.Errorf("%q is not an SNS topic ARN", dest)
	}
	return nil
}

func (c *Channel) Name() string { return c.name }
func (c *Channel) Type() string { return Type }

func (c *Channel) ResolveDestinations(tag string) ([]string, error) {
	return c.routes.Resolve(tag)
}

func (c *Channel) SystemAlertsRoutes() []string {
	return c.routes.System()
}

func (c *Channel) Send(ctx context.Context, n types.Notification, dest string) types.DeliveryOutcome {
	logger := core.InvocationLogger(ctx, c.logger, c.name)
	start := c.clock.Now()

	body, err := json.Marshal(n)
	if err != nil {
		return types.Failed(c.name, Type, dest, fmt.Errorf("encode notification: %w", err), c.clock.Now().Sub(start))
	}

	input := &sns.PublishInput{
		TopicArn: aws.String(dest),
		Message:  aws.String(string(body)),
		Subject:  aws.String(Subject(n)),
		MessageAttributes: map[string]snstypes.MessageAttributeValue{
			"severity": {
				DataType:    aws.String("String"),
				StringValue: aws.String(n.Severity().String()),
			},
		},
	}
	if c.settings.MessageGroupID != "" {
		input.MessageGroupId = aws.String(c.settings.MessageGroupID)
	}

	out, err := c.client.Publish(ctx, input)
	if err != nil {
		logger.Warn("sns publish failed", "topic_arn", dest, "error", err.Error())
		return types.Failed(c.name, Type, dest, fmt.Errorf("sns publish: %w", err), c.clock.Now().Sub(start))
	}

	return types.Sent(c.name, Type, dest, aws.ToString(out.MessageId), c.clock.Now().Sub(start))
}

// Subject builds an SNS-safe subject: printable ASCII on one line, at most
// 100 characters.
func Subject(n types.Notification) string {
	var b strings.Builder
	for _, r := range n.Title() {
		switch {
		case r == '\n' || r == '\r' || r == '\t':
			b.WriteByte(' ')
		case r >= 0x20 && r < 0x7f:
			b.WriteRune(r)
		default:
			b.WriteByte('?')
		}
	}
	s := strings.Join(strings.Fields(b.String()), " ")
	if len(s) > maxSubjectLen {
		s = s[:maxSubjectLen-3] + "..."
	}
	return s
}
