// Package output renders an engine.Report as an HTML page, a markdown
// document, a terminal table or JSON.
package output

import (
	"fmt"
	"io"
	"os"

	"github.com/mattn/go-isatty"

	"fetcherdash/internal/engine"
)

type Renderer interface {
	Render(w io.Writer, r *engine.Report) error
}

type Options struct {
	// Color enables ANSI colors in the text format.
	Color bool
}

// NewRenderer returns the renderer for format (html, markdown, text, json).
func NewRenderer(format string, opts Options) (Renderer, error) {
	switch format {
	case "html":
		return newHTMLRenderer()
	case "markdown":
		return &MarkdownRenderer{}, nil
	case "text":
		return &TextRenderer{Color: opts.Color}, nil
	case "json":
		return &JSONRenderer{}, nil
	default:
		return nil, fmt.Errorf("unsupported output format: %s", format)
	}
}

// ShouldColorize reports whether w is an interactive terminal.
func ShouldColorize(w io.Writer) bool {
	file, ok := w.(*os.File)
	if !ok {
		return false
	}
	fd := file.Fd()
	return isatty.IsTerminal(fd) || isatty.IsCygwinTerminal(fd)
}
