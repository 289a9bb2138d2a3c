package writer

import (
	"io"

	"github.com/jedib0t/go-pretty/v6/table"
	"github.com/jedib0t/go-pretty/v6/text"
)

// Table is a titled text table.
type Table struct {
	Title  string
	Header []string
	Rows   [][]any
	Footer []any
	// Numeric lists column indexes rendered right-aligned.
	Numeric []int
}

// Render writes t to w using a light box style.
func (t Table) Render(w io.Writer) {
	tw := table.NewWriter()
	tw.SetOutputMirror(w)
	tw.SetStyle(table.StyleLight)
	if t.Title != "" {
		tw.SetTitle(t.Title)
	}

	header := make(table.Row, len(t.Header))
	for i, h := range t.Header {
		header[i] = h
	}
	tw.AppendHeader(header)
	for _, r := range t.Rows {
		tw.AppendRow(table.Row(r))
	}
	if len(t.Footer) > 0 {
		tw.AppendFooter(table.Row(t.Footer))
	}

	configs := make([]table.ColumnConfig, 0, len(t.Numeric))
	for _, idx := range t.Numeric {
		configs = append(configs, table.ColumnConfig{Number: idx + 1, Align: text.AlignRight, AlignFooter: text.AlignRight})
	}
	tw.SetColumnConfigs(configs)
	tw.Render()
}
