package main

import (
	"fmt"
	"sort"
	"strings"
	"text/tabwriter"

	"github.com/spf13/cobra"
)

func newChannelsCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "channels",
		Short: "List configured notification channels and their routes",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			cfg, err := loadConfig(cmd)
			if err != nil {
				return fmt.Errorf("loading configuration: %w", err)
			}

			w := tabwriter.NewWriter(cmd.OutOrStdout(), 0, 4, 2, ' ', 0)
			fmt.Fprintln(w, "NAME\tTYPE\tTAG\tDESTINATIONS")
			for _, spec := range cfg.Channels {
				routes := spec.RouteMap()
				tags := make([]string, 0, len(routes))
				for tag := range routes {
					tags = append(tags, tag)
				}
				sort.Strings(tags)

				fmt.Fprintf(w, "%s\t%s\t%s\t%s\n", spec.Name, spec.Type, "(system)", strings.Join(spec.SystemAlertsRoutes, ", "))
				for _, tag := range tags {
					fmt.Fprintf(w, "%s\t%s\t%s\t%s\n", spec.Name, spec.Type, tag, strings.Join(routes[tag], ", "))
				}
			}
			return w.Flush()
		},
	}
}
