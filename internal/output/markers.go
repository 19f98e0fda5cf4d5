package output

import (
	"github.com/fatih/color"

	"fetcherdash/internal/classify"
)

// Marker is how one state is drawn in each format.
type Marker struct {
	Label string
	// Icon is the Font Awesome class list used by the HTML page.
	Icon string
	// Symbol is the single-rune glyph used by the text and markdown formats.
	Symbol string
	Color  color.Attribute
}

var statusMarkers = [classify.StatusCount]Marker{
	classify.StatusSuccess:  {Label: "success", Icon: "fa-check-circle text-success", Symbol: "✔", Color: color.FgGreen},
	classify.StatusFailed:   {Label: "failed", Icon: "fa-exclamation-circle text-danger", Symbol: "✖", Color: color.FgRed},
	classify.StatusCanceled: {Label: "canceled", Icon: "fa-minus-circle text-dark", Symbol: "⊘", Color: color.FgHiBlack},
	classify.StatusRunning:  {Label: "running", Icon: "fa-sync-alt text-info", Symbol: "↻", Color: color.FgCyan},
	classify.StatusStuck:    {Label: "stuck", Icon: "fa-hourglass-half text-warning", Symbol: "⧗", Color: color.FgYellow},
}

// StatusMarker returns the marker of a derived job status.
func StatusMarker(s classify.Status) Marker {
	if s < 0 || s >= classify.StatusCount {
		return Marker{Label: "unknown", Icon: "fa-question text-muted", Symbol: "?", Color: color.FgWhite}
	}
	return statusMarkers[s]
}

var (
	MarkerScheduleUndefined = Marker{Label: "Scheduler does not exist", Icon: "fa-exclamation-triangle text-danger", Symbol: "⚠", Color: color.FgRed}
	MarkerScheduleActive    = Marker{Label: "active", Icon: "fa-check text-success", Symbol: "✓", Color: color.FgGreen}
	MarkerScheduleInactive  = Marker{Label: "inactive", Icon: "fa-times text-warning", Symbol: "✗", Color: color.FgYellow}

	MarkerNoDownloads   = Marker{Label: "No download jobs found", Icon: "fa-question-circle text-warning", Symbol: "?", Color: color.FgYellow}
	MarkerNoConversions = Marker{Label: "No conversion jobs found", Icon: "fa-question-circle text-warning", Symbol: "?", Color: color.FgYellow}
	MarkerNoIndexations = Marker{Label: "No indexation jobs found", Icon: "fa-question-circle text-warning", Symbol: "?", Color: color.FgYellow}
)

// unknownCount is shown when dataset or series counts are not available.
// It is never rendered as 0.
const unknownCount = "unknown"

// featuredSymbol prefixes highlighted providers.
const featuredSymbol = "★"
