package reporting

import (
	"fmt"
	"io"

	"github.com/jedib0t/go-pretty/v6/table"
	"github.com/jedib0t/go-pretty/v6/text"

	"github.com/dapaulid/stressy/types"
)

// RenderSummary prints the campaign result table, styled by verdict.
func RenderSummary(w io.Writer, s *types.Summary, processes int, colored bool) {
	t := table.NewWriter()
	t.SetOutputMirror(w)
	t.SetTitle(fmt.Sprintf("Stress Test Results (%s)", FormatDuration(s.Elapsed)))

	t.AppendHeader(table.Row{"", ""})
	t.SetColumnConfigs([]table.ColumnConfig{
		{Number: 1, Align: text.AlignLeft},
		{Number: 2, Align: text.AlignRight},
	})

	t.AppendRow(table.Row{"Command", s.Command})
	t.AppendRow(table.Row{"Run ID", s.RunID})
	t.AppendSeparator()
	t.AppendRow(table.Row{"Attempts", s.Attempts})
	t.AppendRow(table.Row{"Passed", s.Successes})
	t.AppendRow(table.Row{"Failed", s.Failures})
	if s.Cancelled > 0 {
		t.AppendRow(table.Row{"Cancelled", s.Cancelled})
	}
	t.AppendRow(table.Row{"Success rate", fmt.Sprintf("%.1f%%", s.SuccessRate()*100)})
	t.AppendSeparator()
	t.AppendRow(table.Row{"Min duration", FormatDuration(s.MinDuration)})
	t.AppendRow(table.Row{"Median duration", FormatDuration(s.MedianDuration)})
	t.AppendRow(table.Row{"Max duration", FormatDuration(s.MaxDuration)})
	if s.Trigger != nil {
		t.AppendSeparator()
		t.AppendRow(table.Row{"Failing run", fmt.Sprintf("#%d (%s)", s.Trigger.Index, s.Trigger.Status)})
	}

	t.AppendFooter(table.Row{"RESULT", Verdict(s)})

	if colored {
		switch Verdict(s) {
		case "PASSED":
			t.SetStyle(table.StyleColoredBlackOnGreenWhite)
		case "CANCELLED":
			t.SetStyle(table.StyleColoredBlackOnYellowWhite)
		default:
			t.SetStyle(table.StyleColoredBlackOnRedWhite)
		}
	}

	t.Render()
}

// RenderFailureOutput prints the captured tail of the failing run, framed so
// it stands apart from the surrounding report.
func RenderFailureOutput(w io.Writer, o *types.Outcome) {
	if o == nil || len(o.Output) == 0 {
		return
	}
	fmt.Fprintf(w, "--- output of failing run #%d", o.Index)
	if o.OutputTruncated {
		fmt.Fprint(w, " (truncated, tail only)")
	}
	fmt.Fprintln(w, " ---")
	w.Write(o.Output) //nolint:errcheck
	if len(o.Output) > 0 && o.Output[len(o.Output)-1] != '\n' {
		fmt.Fprintln(w)
	}
	fmt.Fprintln(w, "--- end of output ---")
}
