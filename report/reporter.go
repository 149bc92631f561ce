package report

import (
	"encoding/json"
	"fmt"
	"io"
	"strconv"
	"strings"

	"github.com/fatih/color"
	"github.com/olekukonko/tablewriter"
)

const rule = "═══════════════════════════════════════════════════════════════"

// TextReporter prints a human-readable report.
type TextReporter struct {
	out  io.Writer
	pass *color.Color
	fail *color.Color
	warn *color.Color
}

// NewTextReporter writes to out. noColor disables ANSI colors regardless of
// the terminal.
func NewTextReporter(out io.Writer, noColor bool) *TextReporter {
	r := &TextReporter{
		out:  out,
		pass: color.New(color.FgGreen),
		fail: color.New(color.FgRed),
		warn: color.New(color.FgYellow),
	}
	if noColor {
		r.pass.DisableColor()
		r.fail.DisableColor()
		r.warn.DisableColor()
	}
	return r
}

// Mark returns the colored pass/fail marker.
func (r *TextReporter) Mark(passed bool) string {
	if passed {
		return r.pass.Sprint("✓")
	}
	return r.fail.Sprint("✗")
}

// Start prints the banner.
func (r *TextReporter) Start(summary Summary, benchmarks []string, warnings []string) {
	fmt.Fprintln(r.out, "Starting API validation for all benchmarks...")
	fmt.Fprintf(r.out, "Endpoint: %s\n", summary.Endpoint)
	fmt.Fprintf(r.out, "Timeout: %ds\n", summary.TimeoutSeconds)
	for _, w := range warnings {
		fmt.Fprintf(r.out, "%s %s\n", r.warn.Sprint("WARNING:"), w)
	}
	fmt.Fprintf(r.out, "\nWill test %d benchmark(s): %s\n", len(benchmarks), strings.Join(benchmarks, ", "))
}

// Benchmark prints one benchmark section.
func (r *TextReporter) Benchmark(br BenchmarkReport) {
	fmt.Fprintf(r.out, "\n%s\n", rule)
	fmt.Fprintf(r.out, "%s RESULTS\n", strings.ToUpper(br.Benchmark))
	fmt.Fprintf(r.out, "%s\n", rule)

	if br.Status == StatusNoTests {
		fmt.Fprintf(r.out, "%s %s for %s\n", r.warn.Sprint("WARNING:"), NoTestsMessage, br.Benchmark)
		return
	}

	fmt.Fprintf(r.out, "Status: %s\n", strings.ToUpper(string(br.Status)))
	if br.Message != "" {
		fmt.Fprintf(r.out, "Error: %s\n", br.Message)
	}
	fmt.Fprintf(r.out, "Tests: %d/%d passed\n", br.Passed, br.Total)

	for _, tc := range br.TestCases {
		fmt.Fprintf(r.out, "  %s %s: %s\n", r.Mark(tc.Passed), tc.TestCase, tc.Message)
	}

	if br.Failed > 0 {
		fmt.Fprintln(r.out, "\nFailed tests:")
		for _, tc := range br.TestCases {
			if !tc.Passed {
				fmt.Fprintf(r.out, "  %s %s: %s\n", r.Mark(false), tc.TestCase, tc.Message)
			}
		}
	}
	if br.Failed == 0 && br.Total > 0 {
		fmt.Fprintf(r.out, "\n%s All API tests passed!\n", r.Mark(true))
	}
}

// Finish prints the summary table and where to find the artifacts.
func (r *TextReporter) Finish(summary Summary) {
	fmt.Fprintf(r.out, "\n%s\n", rule)
	fmt.Fprintln(r.out, "                          SUMMARY")
	fmt.Fprintf(r.out, "%s\n", rule)

	table := tablewriter.NewWriter(r.out)
	table.SetHeader([]string{"Benchmark", "Status", "Passed", "Failed", "Total"})
	table.SetBorder(true)
	table.SetAutoWrapText(false)
	table.SetAlignment(tablewriter.ALIGN_LEFT)
	for _, b := range summary.Benchmarks {
		table.Append([]string{
			b.Benchmark,
			string(b.Status),
			strconv.Itoa(b.Passed),
			strconv.Itoa(b.Failed),
			strconv.Itoa(b.Total),
		})
	}
	table.Render()

	fmt.Fprintf(r.out, "Total benchmarks tested: %d\n", summary.TotalBenchmarks)
	fmt.Fprintf(r.out, "Total API calls made: %d\n", summary.TotalCalls)
	fmt.Fprintf(r.out, "Successful responses: %d\n", summary.Passed)
	fmt.Fprintf(r.out, "Failed responses: %d\n", summary.Failed)
	fmt.Fprintln(r.out, strings.Repeat("─", 65))

	if summary.Interrupted {
		fmt.Fprintf(r.out, "\n%s Run interrupted before all test cases finished.\n", r.Mark(false))
	}
	if summary.AllPassed() {
		fmt.Fprintf(r.out, "\n%s All API tests passed! Responses saved to %s\n", r.Mark(true), summary.ResultsDir)
		return
	}
	if summary.Failed > 0 {
		fmt.Fprintf(r.out, "\n%s %d API test(s) failed!\n", r.Mark(false), summary.Failed)
	}
	fmt.Fprintf(r.out, "Check %s for detailed error information.\n", summary.ResultsDir)
	fmt.Fprintln(r.out, "Look for _response.json files (raw API responses) and _validation.json files (error details).")
}

// JSONReporter prints only the final summary as indented JSON.
type JSONReporter struct {
	out io.Writer
}

// NewJSONReporter writes to out.
func NewJSONReporter(out io.Writer) *JSONReporter {
	return &JSONReporter{out: out}
}

func (r *JSONReporter) Start(Summary, []string, []string) {}
func (r *JSONReporter) Benchmark(BenchmarkReport)         {}

// Finish writes the summary.
func (r *JSONReporter) Finish(summary Summary) {
	enc := json.NewEncoder(r.out)
	enc.SetIndent("", "  ")
	enc.SetEscapeHTML(false)
	_ = enc.Encode(summary)
}
