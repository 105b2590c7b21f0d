package main

import (
	"encoding/json"
	"fmt"
	"io"
	"os"

	"github.com/spf13/cobra"

	"alertsystem/internal/config"
	"alertsystem/internal/types"
)

func newRootCmd() *cobra.Command {
	root := &cobra.Command{
		Use:   "alertctl",
		Short: "Classify, preview and dispatch alert events",
		Long: `alertctl runs single events through the alert pipeline.

Events are read from a file argument, or from stdin when the argument is
omitted or "-". Configuration comes from the same environment variables as
the Lambda function (ALERT_CHANNELS, AWS_REGION, ...), including .env files
and *_SSM_PARAM pointers outside APP_ENV=local. With --secrets=env each
pointer names another environment variable instead of an SSM parameter.

  alertctl classify event.json        Show the message kind and notification
  alertctl dispatch --dry-run event.json
                                      Show where the notification would go
  alertctl dispatch event.json        Deliver it
  alertctl channels                   List configured channels`,
		SilenceUsage:  true,
		SilenceErrors: true,
		Version:       config.NewBuildInfo().String(),
	}

	root.PersistentFlags().String("secrets", "ssm", "where *_SSM_PARAM pointers resolve: ssm or env")

	root.AddCommand(
		newClassifyCmd(),
		newDispatchCmd(),
		newChannelsCmd(),
		newVersionCmd(),
	)
	return root
}

func newVersionCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "version",
		Short: "Print build information",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			_, err := fmt.Fprintln(cmd.OutOrStdout(), config.NewBuildInfo().String())
			return err
		},
	}
}

// readEvent decodes the JSON object in the named file, or stdin.
func readEvent(cmd *cobra.Command, args []string) (types.RawEvent, error) {
	var r io.Reader = cmd.InOrStdin()
	name := "stdin"
	if len(args) > 0 && args[0] != "-" {
		f, err := os.Open(args[0])
		if err != nil {
			return nil, fmt.Errorf("opening event: %w", err)
		}
		defer f.Close()
		r, name = f, args[0]
	}

	var raw types.RawEvent
	if err := json.NewDecoder(r).Decode(&raw); err != nil {
		return nil, fmt.Errorf("decoding event from %s: %w", name, err)
	}
	if raw == nil {
		return nil, fmt.Errorf("event in %s must be a JSON object", name)
	}
	return raw, nil
}

func printJSON(w io.Writer, v any) error {
	enc := json.NewEncoder(w)
	enc.SetIndent("", "  ")
	return enc.Encode(v)
}
