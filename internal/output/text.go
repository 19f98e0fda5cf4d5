package output

import (
	"fmt"
	"io"
	"strconv"
	"strings"

	"github.com/fatih/color"
	"github.com/jedib0t/go-pretty/v6/table"
	"github.com/jedib0t/go-pretty/v6/text"

	"fetcherdash/internal/engine"
)

// TextRenderer draws the dashboard as a terminal table, one glyph per job.
type TextRenderer struct {
	Color bool
}

func (t *TextRenderer) Render(w io.Writer, r *engine.Report) error {
	v := buildView(r)

	tw := table.NewWriter()
	tw.SetStyle(table.StyleRounded)
	tw.AppendHeader(table.Row{"#", "Provider", "Scheduler", "Downloads", "Conversions", "Indexations", "Datasets", "Series"})
	for _, row := range v.Rows {
		name := row.Slug
		if row.Featured {
			name = featuredSymbol + " " + name
		}
		tw.AppendRow(table.Row{
			strconv.Itoa(row.Ordinal),
			name,
			t.paint(row.Schedule.Link.Marker),
			t.bucket(row.Downloads),
			t.bucket(row.Conversions),
			t.bucket(row.Indexations),
			row.Datasets,
			row.Series,
		})
	}
	tw.SetColumnConfigs([]table.ColumnConfig{
		{Number: 1, Align: text.AlignRight},
		{Number: 7, Align: text.AlignRight, AlignHeader: text.AlignLeft},
		{Number: 8, Align: text.AlignRight, AlignHeader: text.AlignLeft},
	})

	if _, err := fmt.Fprintf(w, "Generated on %s in %s\n%s\n", v.GeneratedAt, v.Elapsed, tw.Render()); err != nil {
		return fmt.Errorf("render text: %w", err)
	}
	return flushIfPossible(w)
}

func (t *TextRenderer) bucket(b bucketView) string {
	if b.Empty != nil {
		return t.paint(b.Empty.Marker)
	}
	parts := make([]string, 0, len(b.Jobs))
	for _, j := range b.Jobs {
		parts = append(parts, t.paint(j.Marker))
	}
	return strings.Join(parts, " ")
}

func (t *TextRenderer) paint(m Marker) string {
	c := color.New(m.Color)
	if t.Color {
		c.EnableColor()
	} else {
		c.DisableColor()
	}
	return c.Sprint(m.Symbol)
}
