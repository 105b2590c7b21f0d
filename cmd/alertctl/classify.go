package main

import (
	"errors"

	"github.com/spf13/cobra"

	"alertsystem/internal/messages"
	"alertsystem/internal/types"
)

type classifyResult struct {
	MessageKind  string              `json:"message_kind"`
	Skipped      bool                `json:"skipped,omitempty"`
	Notification *types.Notification `json:"notification,omitempty"`
}

func newClassifyCmd() *cobra.Command {
	var settings messages.Settings

	cmd := &cobra.Command{
		Use:   "classify [FILE]",
		Short: "Classify an event and render its notification",
		Long: `Runs the message factory on one event and prints the message kind and
the rendered notification. No configuration or network access is needed.`,
		Args: cobra.MaximumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			raw, err := readEvent(cmd, args)
			if err != nil {
				return err
			}

			factory, err := messages.NewFactory(settings)
			if err != nil {
				return err
			}
			msg, err := factory.GenerateMessage(raw)
			if err != nil {
				return err
			}

			out := classifyResult{MessageKind: string(msg.Kind())}
			n, err := msg.GenerateNotification()
			switch {
			case errors.Is(err, messages.ErrUnsupportedGeneration):
				out.Skipped = true
			case err != nil:
				return err
			default:
				out.Notification = &n
			}
			return printJSON(cmd.OutOrStdout(), out)
		},
	}

	cmd.Flags().StringVar(&settings.Region, "region", "us-east-1", "region for console links")
	cmd.Flags().StringVar(&settings.DefaultTag, "default-tag", types.DefaultRoutingTag, "tag injected when a message has none")
	cmd.Flags().IntVar(&settings.MaxLogLines, "max-log-lines", 20, "log lines rendered from a logs subscription")
	return cmd
}
