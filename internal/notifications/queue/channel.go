// Package queue delivers notifications to Amazon SQS queues so downstream
// consumers can process alerts asynchronously.
package queue

import (
	"context"
	"encoding/json"
	"fmt"
	"net/url"
	"strings"

	"github.com/aws/aws-sdk-go-v2/aws"
	"github.com/aws/aws-sdk-go-v2/service/sqs"
	sqsTypes "github.com/aws/aws-sdk-go-v2/service/sqs/types"
	"github.com/google/uuid"

	"alertsystem/internal/config"
	"alertsystem/internal/notifications/core"
	"alertsystem/internal/types"
)

// Type is the registry discriminant.
const Type = "sqs"

// SQSSender abstracts the SQS SendMessage operation for testability.
// Production code uses the *sqs.Client from aws-sdk-go-v2.
type SQSSender interface {
	SendMessage(ctx context.Context, params *sqs.SendMessageInput, optFns ...func(*sqs.Options)) (*sqs.SendMessageOutput, error)
}

// Settings is the channel's settings block.
type Settings struct {
	// MessageGroupID is required for FIFO queues; a deduplication id is
	// generated per send.
	MessageGroupID string `yaml:"message_group_id"`
	DelaySeconds   int32  `yaml:"delay_seconds" validate:"gte=0,lte=900"`
}

var _ core.Channel = (*Channel)(nil)

// Channel sends the notification JSON with severity and routing_tags
// message attributes.
type Channel struct {
	name     string
	routes   *core.Routes
	settings Settings
	client   SQSSender
	logger   types.Logger
	clock    types.Clock
}

// New is the registry constructor. Destinations are queue URLs.
func New(spec config.ChannelSpec, deps core.Deps) (core.Channel, error) {
	return newChannel(spec, deps, sqs.NewFromConfig(deps.AWS))
}

func newChannel(spec config.ChannelSpec, deps core.Deps, client SQSSender) (*Channel, error) {
	var s Settings
	if err := spec.DecodeSettings(&s); err != nil {
		return nil, err
	}
	routes, err := core.NewRoutes(spec, core.WithDestinationValidator(validateQueueURL))
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

func validateQueueURL(dest string) error {
	u, err := url.Parse(dest)
	if err != nil || u.Host == "" || (u.Scheme != "https" && u.Scheme != "http") {
		return fmt.Errorf("invalid queue URL %q", dest)
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
		return types.Failed(c.name, Type, dest, fmt.Errorf("queue: failed to marshal notification: %w", err), c.clock.Now().Sub(start))
	}

	input := &sqs.SendMessageInput{
		QueueUrl:    aws.String(dest),
		MessageBody: aws.String(string(body)),
		MessageAttributes: map[string]sqsTypes.MessageAttributeValue{
			"severity": {
				DataType:    aws.String("String"),
				StringValue: aws.String(n.Severity().String()),
			},
			"routing_tags": {
				DataType:    aws.String("String"),
				StringValue: aws.String(strings.Join(n.Tags(), ",")),
			},
		},
	}
	if c.settings.MessageGroupID != "" {
		input.MessageGroupId = aws.String(c.settings.MessageGroupID)
		input.MessageDeduplicationId = aws.String(uuid.NewString())
	} else if c.settings.DelaySeconds > 0 {
		// FIFO queues reject per-message delays.
		input.DelaySeconds = c.settings.DelaySeconds
	}

	out, err := c.client.SendMessage(ctx, input)
	if err != nil {
		logger.Warn("sqs send failed", "queue_url", dest, "error", err.Error())
		return types.Failed(c.name, Type, dest, fmt.Errorf("queue: failed to send to %s: %w", dest, err), c.clock.Now().Sub(start))
	}

	logger.Info("notification enqueued",
		"queue_url", dest,
		"message_id", aws.ToString(out.MessageId),
		"severity", n.Severity().String(),
	)
	return types.Sent(c.name, Type, dest, aws.ToString(out.MessageId), c.clock.Now().Sub(start))
}
