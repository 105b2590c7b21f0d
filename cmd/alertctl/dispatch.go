package main

import (
	"errors"
	"fmt"
	"os"

	"github.com/spf13/cobra"

	"alertsystem/internal/config"
	"alertsystem/internal/dispatch"
	"alertsystem/internal/logging"
	"alertsystem/internal/messages"
)

type dryRunResult struct {
	MessageKind string                     `json:"message_kind"`
	Skipped     bool                       `json:"skipped,omitempty"`
	Deliveries  []dispatch.PlannedDelivery `json:"deliveries,omitempty"`
}

// loadConfig resolves *_SSM_PARAM pointers from SSM, or with --secrets=env
// from other environment variables, which is how CI jobs inject them.
func loadConfig(cmd *cobra.Command) (*config.Config, error) {
	source, _ := cmd.Flags().GetString("secrets")
	switch source {
	case "ssm":
		return config.LoadConfig(config.NewSSMProvider(os.Getenv("AWS_REGION"), os.Getenv("AWS_ENDPOINT_URL")))
	case "env":
		return config.LoadConfig(config.NewEnvVarProvider())
	default:
		return nil, fmt.Errorf("unknown --secrets source %q (want ssm or env)", source)
	}
}

func newDispatchCmd() *cobra.Command {
	var dryRun bool

	cmd := &cobra.Command{
		Use:   "dispatch [FILE]",
		Short: "Deliver an event through the configured channels",
		Long: `Builds the configured channels and runs one event through the dispatcher,
printing the invocation response body. The command fails when the response
status is not 2xx.

With --dry-run the event is classified and routed but nothing is sent.`,
		Args: cobra.MaximumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			raw, err := readEvent(cmd, args)
			if err != nil {
				return err
			}

			cfg, err := loadConfig(cmd)
			if err != nil {
				return fmt.Errorf("loading configuration: %w", err)
			}
			logger := logging.New(cmd.ErrOrStderr(), cfg.LogLevel, cfg.Service, cfg.Environment)

			awsCfg, err := dispatch.LoadAWSConfig(cmd.Context(), cfg.AWS)
			if err != nil {
				return err
			}
			c, err := dispatch.Build(cfg, awsCfg, logger)
			if err != nil {
				return err
			}

			if dryRun {
				msg, err := c.Factory.GenerateMessage(raw)
				if err != nil {
					return err
				}
				out := dryRunResult{MessageKind: string(msg.Kind())}
				n, err := msg.GenerateNotification()
				switch {
				case errors.Is(err, messages.ErrUnsupportedGeneration):
					out.Skipped = true
				case err != nil:
					return err
				default:
					out.Deliveries = c.Dispatcher.Plan(n)
				}
				return printJSON(cmd.OutOrStdout(), out)
			}

			resp := c.Dispatcher.Handle(cmd.Context(), raw)
			body, err := resp.Decode()
			if err != nil {
				return err
			}
			if err := printJSON(cmd.OutOrStdout(), body); err != nil {
				return err
			}
			if resp.StatusCode >= 300 {
				return fmt.Errorf("dispatch finished with status %d (%s)", resp.StatusCode, body.Status)
			}
			return nil
		},
	}

	cmd.Flags().BoolVar(&dryRun, "dry-run", false, "classify and route without sending")
	return cmd
}
