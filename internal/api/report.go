package api

import (
	"fmt"
	"io"
	"strings"

	"github.com/jedib0t/go-pretty/v6/table"
	"github.com/jedib0t/go-pretty/v6/text"

	"github.com/jackzampolin/protocollens/internal/document"
	"github.com/jackzampolin/protocollens/internal/protocol"
)

// AnalysisReport is what the analyze commands print: the pipeline result,
// which conventional sections were found, and the document's metadata.
type AnalysisReport struct {
	protocol.AnalysisResult `yaml:",inline"`
	protocol.SectionSummary `yaml:",inline"`
	Document                *document.Metadata `json:"document,omitempty" yaml:"document,omitempty"`
}

// WriteTable renders the report for a terminal.
func (r AnalysisReport) WriteTable(w io.Writer) error {
	if d := r.Document; d != nil {
		fmt.Fprintf(w, "Document:  %s (%s", d.Source, d.Format)
		if d.Pages > 0 {
			fmt.Fprintf(w, ", %d pages", d.Pages)
		}
		fmt.Fprintf(w, ", %d words)\n", d.Words)
		if d.Truncated {
			fmt.Fprintln(w, "           truncated to fit the model input budget")
		}
	}

	sections := "(none)"
	if len(r.SectionsDetected) > 0 {
		sections = strings.Join(r.SectionsDetected, ", ")
	}
	fmt.Fprintf(w, "Sections:  %s\n", sections)
	fmt.Fprintf(w, "Inclusion: %s   Exclusion: %s\n\n", yesNo(r.HasInclusionSection), yesNo(r.HasExclusionSection))

	if len(r.Criteria) == 0 {
		_, err := fmt.Fprintln(w, "No inclusion criteria found.")
		return err
	}

	tw := table.NewWriter()
	tw.SetOutputMirror(w)
	tw.SetStyle(table.StyleLight)
	tw.AppendHeader(table.Row{"#", "Confidence", "Band", "Criterion"})
	for i, c := range r.Criteria {
		tw.AppendRow(table.Row{i + 1, fmt.Sprintf("%.2f", c.Confidence), c.Band(), c.Text})
	}
	tw.SetColumnConfigs([]table.ColumnConfig{
		{Number: 2, Align: text.AlignRight},
		{Number: 4, WidthMax: 80},
	})
	tw.Render()
	return nil
}

func yesNo(b bool) string {
	if b {
		return "yes"
	}
	return "no"
}
