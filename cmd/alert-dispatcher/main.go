// Package main is the entrypoint for the Alert Dispatcher Lambda function.
//
// The function is subscribed to every alert source (SNS topics, CloudWatch
// alarm actions, SES notifications, EventBridge rules, log subscriptions and
// a function URL for webhooks). Each invocation carries exactly one event.
//
// Cold Start (main):
//  1. Initialize structured logger.
//  2. Load configuration (env, .env, SSM pointers) including the channel document.
//  3. Load AWS SDK configuration.
//  4. Build the message factory, the configured channels and the Dispatcher.
//  5. Register handler and call lambda.Start.
//
// Per invocation the Lambda request id becomes the invocation id, so the
// response body and every log line can be matched to the CloudWatch log stream.
package main

import (
	"context"
	"os"

	"github.com/aws/aws-lambda-go/lambda"
	"github.com/aws/aws-lambda-go/lambdacontext"

	"alertsystem/internal/config"
	"alertsystem/internal/dispatch"
	"alertsystem/internal/logging"
	"alertsystem/internal/types"
)

// EventDispatcher is satisfied by *dispatch.Dispatcher.
type EventDispatcher interface {
	Handle(ctx context.Context, raw types.RawEvent) dispatch.Response
}

// Handler holds the dependencies for the Lambda handler.
type Handler struct {
	dispatcher EventDispatcher
}

// Handle processes one invocation. Delivery problems are reported in the
// Response; the error return is always nil so Lambda never retries a
// partially delivered alert.
func (h *Handler) Handle(ctx context.Context, event map[string]any) (dispatch.Response, error) {
	if lc, ok := lambdacontext.FromContext(ctx); ok && lc.AwsRequestID != "" {
		ctx = types.WithInvocationID(ctx, lc.AwsRequestID)
	}
	if event == nil {
		event = map[string]any{}
	}
	return h.dispatcher.Handle(ctx, types.RawEvent(event)), nil
}

func main() {
	ctx := context.Background()

	// Logger settings come from the raw environment so that configuration
	// errors are logged in the same format.
	logger := logging.NewStdout(os.Getenv("LOG_LEVEL"), serviceName(), os.Getenv("APP_ENV"))
	logger.Info("Alert Dispatcher Lambda initializing (cold start)")

	cfg, err := config.LoadConfig(config.NewSSMProvider(os.Getenv("AWS_REGION"), os.Getenv("AWS_ENDPOINT_URL")))
	if err != nil {
		logger.Error("Failed to load configuration", "error", err)
		os.Exit(1)
	}
	logger = logging.NewStdout(cfg.LogLevel, cfg.Service, cfg.Environment)

	awsCfg, err := dispatch.LoadAWSConfig(ctx, cfg.AWS)
	if err != nil {
		logger.Error("Failed to load AWS SDK config", "error", err)
		os.Exit(1)
	}

	components, err := dispatch.Build(cfg, awsCfg, logger)
	if err != nil {
		logger.Error("Failed to build dispatcher", "error", err)
		os.Exit(1)
	}

	handler := &Handler{dispatcher: components.Dispatcher}

	logger.Info("Alert Dispatcher Lambda initialized",
		"channels", len(components.Channels),
		"candidates", components.Factory.Order(),
		"metrics_enabled", cfg.Observability.MetricsEnabled,
		"version", cfg.Build.String(),
	)

	lambda.Start(handler.Handle)
}

func serviceName() string {
	if s := os.Getenv("SERVICE_NAME"); s != "" {
		return s
	}
	return "alert-system"
}
