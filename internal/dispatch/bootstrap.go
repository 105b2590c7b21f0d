package dispatch

import (
	"context"
	"fmt"
	"net/http"

	"github.com/aws/aws-sdk-go-v2/aws"
	awsconfig "github.com/aws/aws-sdk-go-v2/config"
	"github.com/aws/aws-sdk-go-v2/service/cloudwatch"

	"alertsystem/internal/config"
	"alertsystem/internal/messages"
	"alertsystem/internal/notifications"
	"alertsystem/internal/notifications/core"
	"alertsystem/internal/types"
)

// Components is the object graph shared by the Lambda handler, the local
// receiver and alertctl. It is built once per process.
type Components struct {
	Factory    *messages.Factory
	Channels   []core.Channel
	Dispatcher *Dispatcher
}

// LoadAWSConfig loads the default SDK configuration for the configured region.
// A non-empty EndpointURL points every client at LocalStack.
func LoadAWSConfig(ctx context.Context, cfg config.AWSConfig) (aws.Config, error) {
	awsCfg, err := awsconfig.LoadDefaultConfig(ctx, awsconfig.WithRegion(cfg.Region))
	if err != nil {
		return aws.Config{}, fmt.Errorf("loading AWS config (region=%s): %w", cfg.Region, err)
	}
	if cfg.EndpointURL != "" {
		awsCfg.BaseEndpoint = aws.String(cfg.EndpointURL)
	}
	return awsCfg, nil
}

// Build wires the message factory, every configured channel and the
// Dispatcher. Channel load failures are returned as *core.ChannelLoadError.
func Build(cfg *config.Config, awsCfg aws.Config, logger types.Logger, opts ...Option) (*Components, error) {
	factory, err := messages.NewFactory(messages.Settings{
		Region:     cfg.AWS.Region,
		DefaultTag: cfg.Routing.DefaultTag,
	})
	if err != nil {
		return nil, fmt.Errorf("building message factory: %w", err)
	}

	channels, err := notifications.NewBuiltinRegistry().Load(cfg.Channels, core.Deps{
		AWS:        awsCfg,
		HTTPClient: &http.Client{Timeout: cfg.Dispatch.SendTimeout},
		Logger:     logger,
		Clock:      types.RealClock{},
	})
	if err != nil {
		return nil, err
	}

	var metrics core.DeliveryMetrics = core.NopMetrics{}
	if cfg.Observability.MetricsEnabled {
		metrics = core.NewCloudWatchDeliveryMetrics(cloudwatch.NewFromConfig(awsCfg), cfg.Observability.MetricNamespace, logger)
	}

	base := []Option{
		WithLogger(logger),
		WithMetrics(metrics),
		WithOptions(Options{
			SendTimeout:    cfg.Dispatch.SendTimeout,
			MaxConcurrency: cfg.Dispatch.MaxConcurrency,
		}),
	}
	d, err := New(factory, channels, append(base, opts...)...)
	if err != nil {
		return nil, err
	}

	return &Components{Factory: factory, Channels: channels, Dispatcher: d}, nil
}
