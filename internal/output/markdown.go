package output

import (
	"bufio"
	"fmt"
	"io"

	"fetcherdash/internal/engine"
)

// MarkdownRenderer writes one section per provider.
type MarkdownRenderer struct{}

func (MarkdownRenderer) Render(w io.Writer, r *engine.Report) error {
	v := buildView(r)
	bw := bufio.NewWriter(w)

	fmt.Fprintf(bw, "Generated on %s in %s.\n\n", v.GeneratedAt, v.Elapsed)
	for _, row := range v.Rows {
		title := row.Slug
		if row.Featured {
			title = featuredSymbol + " " + title
		}
		fmt.Fprintf(bw, "# %d. %s\n\n", row.Ordinal, title)

		fmt.Fprintln(bw, "- scheduler")
		if !row.Schedule.Defined {
			fmt.Fprintf(bw, "  - status: undefined (%s)\n", row.Schedule.Link.URL)
		} else {
			fmt.Fprintf(bw, "  - url: %s\n", row.Schedule.Link.URL)
			for _, d := range row.Schedule.Link.Details {
				fmt.Fprintf(bw, "  - %s\n", d)
			}
		}

		writeMarkdownBucket(bw, "downloads", row.Downloads)
		writeMarkdownBucket(bw, "conversions", row.Conversions)
		writeMarkdownBucket(bw, "indexations", row.Indexations)

		fmt.Fprintf(bw, "- datasets: %s\n", row.Datasets)
		fmt.Fprintf(bw, "- series: %s\n\n", row.Series)
	}

	if err := bw.Flush(); err != nil {
		return fmt.Errorf("render markdown: %w", err)
	}
	return flushIfPossible(w)
}

func writeMarkdownBucket(w io.Writer, name string, b bucketView) {
	if b.Empty != nil {
		fmt.Fprintf(w, "- %s [%s](%s)\n", b.Empty.Marker.Symbol, b.Empty.Title, b.Empty.URL)
		return
	}
	fmt.Fprintf(w, "- %s\n", name)
	for _, j := range b.Jobs {
		fmt.Fprintf(w, "  - %s [%s](%s)\n", j.Marker.Symbol, j.Title, j.URL)
		for _, d := range j.Details {
			fmt.Fprintf(w, "    - %s\n", d)
		}
	}
}
