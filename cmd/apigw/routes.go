package main

import (
	"fmt"
	"io"
	"strconv"
	"text/tabwriter"

	"github.com/spf13/cobra"

	"github.com/fittrack/apigw/internal/router"
)

func newRoutesCommand(opts *rootOptions) *cobra.Command {
	return &cobra.Command{
		Use:   "routes",
		Short: "Print the resolved route table",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			cfg, err := opts.loadConfig()
			if err != nil {
				return err
			}

			rt, err := router.New(cfg.Services)
			if err != nil {
				return err
			}

			return printRoutes(cmd.OutOrStdout(), rt.Routes())
		},
	}
}

// printRoutes writes one aligned row per route in matching order.
func printRoutes(out io.Writer, routes []*router.Route) error {
	tw := tabwriter.NewWriter(out, 0, 0, 2, ' ', 0)

	fmt.Fprintln(tw, "PREFIX\tSERVICE\tUPSTREAM\tSTRIP")
	for _, route := range routes {
		fmt.Fprintf(tw, "%s\t%s\t%s\t%s\n",
			route.PathPrefix,
			route.ServiceName,
			route.Upstream.String(),
			strconv.FormatBool(route.StripPrefix),
		)
	}

	return tw.Flush()
}
