// Package config defines the configuration structure for the alert system.
// Configuration is loaded once at process initialization (Lambda cold start) and
// is immutable thereafter.
//
// Values are resolved via a priority chain:
//
//	OS Environment (Highest) -> Dotenv File -> AWS SSM Parameter Store (Lowest)
//
// The notification channel document (ALERT_CHANNELS) is part of the same chain,
// so a whole channel list including bot tokens can live in one SSM SecureString.
// Any missing required value or invalid format fails the cold start.
package config

import (
	"time"

	"alertsystem/internal/types"
)

// SecretString is an alias for types.SecretString.
type SecretString = types.SecretString

// Config is the top-level configuration struct. Sub-components receive only
// the subsets they require.
type Config struct {
	// System Metadata
	Environment string `envconfig:"APP_ENV" default:"local" validate:"required,oneof=local dev staging prod"`
	Service     string `envconfig:"SERVICE_NAME" default:"alert-system"`
	LogLevel    string `envconfig:"LOG_LEVEL" default:"info" validate:"oneof=debug info warn error"`

	AWS           AWSConfig
	Routing       RoutingConfig
	Dispatch      DispatchConfig
	Observability ObservabilityConfig
	Receiver      ReceiverConfig

	// Channels is parsed from Routing.ChannelsDocument after envconfig runs.
	Channels []ChannelSpec `ignored:"true" validate:"required,min=1,dive"`

	// Build Metadata (Injected via ldflags, not Env)
	Build BuildInfo `ignored:"true"`
}

// AWSConfig holds regional configuration shared by every AWS client.
type AWSConfig struct {
	Region string `envconfig:"AWS_REGION" default:"us-east-1" validate:"required"`

	// LocalStack Support (Empty in Prod)
	EndpointURL string `envconfig:"AWS_ENDPOINT_URL"`
}

// RoutingConfig holds the channel document and the fallback routing tag.
type RoutingConfig struct {
	// ChannelsDocument is a YAML or JSON list of ChannelSpec entries.
	ChannelsDocument SecretString `envconfig:"ALERT_CHANNELS" validate:"required"`
	DefaultTag       string       `envconfig:"DEFAULT_ROUTING_TAG" default:"alert_system_monitoring" validate:"required"`
}

// DispatchConfig tunes the fan-out stage of the dispatcher.
type DispatchConfig struct {
	SendTimeout    time.Duration `envconfig:"SEND_TIMEOUT" default:"10s" validate:"gt=0"`
	MaxConcurrency int           `envconfig:"MAX_CONCURRENT_SENDS" default:"0" validate:"gte=0"`
}

// ObservabilityConfig holds telemetry settings.
type ObservabilityConfig struct {
	MetricNamespace string `envconfig:"METRIC_NAMESPACE" default:"AlertSystem"`
	MetricsEnabled  bool   `envconfig:"METRICS_ENABLED" default:"false"`
}

// ReceiverConfig is only read by the local HTTP receiver.
type ReceiverConfig struct {
	Port         string        `envconfig:"PORT" default:"8080"`
	ReadTimeout  time.Duration `envconfig:"RECEIVER_READ_TIMEOUT" default:"10s"`
	WriteTimeout time.Duration `envconfig:"RECEIVER_WRITE_TIMEOUT" default:"60s"`
	// SigningSecret, when set, requires X-Alert-Signature on POST /events.
	SigningSecret SecretString `envconfig:"RECEIVER_SIGNING_SECRET"`
}

// BuildInfo holds build-time metadata injected via ldflags.
type BuildInfo struct {
	Version   string
	Commit    string
	BuildTime string
}

// ConfigErrorType categorizes configuration loading failures to aid debugging.
type ConfigErrorType string

const (
	// ErrMissingEnv indicates a required environment variable was not found.
	ErrMissingEnv ConfigErrorType = "MISSING_ENV"
	// ErrSSMResolution indicates a failure when fetching secrets from AWS SSM.
	ErrSSMResolution ConfigErrorType = "SSM_FAILURE"
	// ErrValidation indicates the configuration failed struct validation rules.
	ErrValidation ConfigErrorType = "VALIDATION_FAILED"
	// ErrParsing indicates a failure when parsing environment variable values
	// or the channel document.
	ErrParsing ConfigErrorType = "PARSING_FAILED"
)
