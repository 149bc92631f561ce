package main

import (
	"fmt"

	"github.com/c360studio/benchgate/config"
	"github.com/c360studio/benchgate/report"
	"github.com/spf13/cobra"
)

func checkConfigCmd(opts *options) *cobra.Command {
	return &cobra.Command{
		Use:   "check-config",
		Short: "Validate the configuration without running any test",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			app, err := newApp(opts, true)
			if err != nil {
				return configFailure(opts, err)
			}

			warnings, err := config.Check(app.cfg)
			if err != nil {
				return configFailure(opts, err)
			}

			text := report.NewTextReporter(opts.stdout, opts.noColor)
			for _, w := range warnings {
				fmt.Fprintf(opts.stdout, "WARNING: %s\n", w)
			}
			fmt.Fprintf(opts.stdout, "%s Configuration validation passed\n", text.Mark(true))
			fmt.Fprintf(opts.stdout, "Endpoint: %s\n", app.cfg.Endpoint.URL)
			fmt.Fprintf(opts.stdout, "Timeout: %ds\n", app.cfg.Endpoint.EffectiveTimeout())
			return nil
		},
	}
}
