package output

import (
	"bufio"
	"embed"
	"fmt"
	"html/template"
	"io"
	"strings"

	"fetcherdash/internal/engine"
)

//go:embed templates/dashboard.html.tmpl
var templatesFS embed.FS

type HTMLRenderer struct {
	tmpl *template.Template
}

func newHTMLRenderer() (*HTMLRenderer, error) {
	tmpl, err := template.New("dashboard.html.tmpl").Funcs(template.FuncMap{
		"tooltip": func(lines []string) string { return strings.Join(lines, "<br>") },
	}).ParseFS(templatesFS, "templates/dashboard.html.tmpl")
	if err != nil {
		return nil, fmt.Errorf("parse dashboard template: %w", err)
	}
	return &HTMLRenderer{tmpl: tmpl}, nil
}

func (h *HTMLRenderer) Render(w io.Writer, r *engine.Report) error {
	bw := bufio.NewWriter(w)
	if err := h.tmpl.Execute(bw, buildView(r)); err != nil {
		return fmt.Errorf("render html: %w", err)
	}
	if err := bw.Flush(); err != nil {
		return err
	}
	return flushIfPossible(w)
}
