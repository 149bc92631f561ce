package main

import (
	"fmt"
	"strconv"

	"github.com/olekukonko/tablewriter"
	"github.com/spf13/cobra"
)

func listCmd(opts *options) *cobra.Command {
	return &cobra.Command{
		Use:   "list",
		Short: "List benchmarks and their test cases",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			app, err := newApp(opts, false)
			if err != nil {
				return configFailure(opts, err)
			}

			names, err := app.catalog.ListBenchmarks()
			if err != nil {
				return err
			}
			if len(names) == 0 {
				fmt.Fprintf(opts.stdout, "No benchmarks found in %s\n", app.catalog.Root())
				return nil
			}

			table := tablewriter.NewWriter(opts.stdout)
			table.SetHeader([]string{"Benchmark", "Mode", "Test cases", "Description"})
			table.SetBorder(false)
			table.SetAutoWrapText(false)
			table.SetAlignment(tablewriter.ALIGN_LEFT)
			for _, name := range names {
				b, err := app.catalog.Get(name)
				if err != nil {
					table.Append([]string{name, "-", "-", err.Error()})
					continue
				}
				ids, err := b.TestCases()
				if err != nil {
					table.Append([]string{name, string(b.Manifest.Mode), "-", err.Error()})
					continue
				}
				table.Append([]string{name, string(b.Manifest.Mode), strconv.Itoa(len(ids)), b.Manifest.Description})
			}
			table.Render()
			return nil
		},
	}
}
