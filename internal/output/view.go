package output

import (
	"fmt"
	"time"

	"github.com/dustin/go-humanize"

	"fetcherdash/internal/engine"
	"fetcherdash/internal/forge"
)

// timeLayout mirrors the C locale %c format.
const timeLayout = "Mon Jan _2 15:04:05 2006"

type linkView struct {
	URL    string
	Title  string
	Marker Marker
	// Details are tooltip lines.
	Details []string
}

type scheduleView struct {
	Link    linkView
	Defined bool
	Active  bool
	Cron    string
	NextRun string
}

type bucketView struct {
	Jobs []linkView
	// Empty is set when Jobs is empty.
	Empty *linkView
}

type rowView struct {
	Ordinal    int
	Slug       string
	Featured   bool
	ProjectURL string

	Schedule    scheduleView
	Downloads   bucketView
	Conversions bucketView
	Indexations bucketView

	Datasets string
	Series   string
}

type reportView struct {
	GeneratedAt string
	Elapsed     string
	Forge       string
	Group       string
	Importer    string
	Ref         string
	Enrichment  bool
	Rows        []rowView
}

func buildView(r *engine.Report) reportView {
	v := reportView{
		GeneratedAt: formatTime(&r.GeneratedAt),
		Elapsed:     r.Elapsed.Round(time.Millisecond).String(),
		Forge:       r.Forge,
		Group:       r.Group,
		Importer:    r.Importer.Path,
		Ref:         r.Ref,
		Enrichment:  r.EnrichmentEnabled,
		Rows:        make([]rowView, 0, len(r.Rows)),
	}
	for _, row := range r.Rows {
		v.Rows = append(v.Rows, buildRowView(r, row))
	}
	return v
}

func buildRowView(r *engine.Report, row engine.Row) rowView {
	p := row.Provider
	rv := rowView{
		Ordinal:    p.Ordinal,
		Slug:       p.Slug,
		Featured:   p.Featured,
		ProjectURL: p.Project.WebURL,
		Schedule:   buildScheduleView(p.Project, row.Schedule, r.GeneratedAt),
		Datasets:   unknownCount,
		Series:     unknownCount,
	}

	rv.Downloads = buildBucket(row.Downloads, linkView{
		URL:    p.Project.JobsURL,
		Title:  fmt.Sprintf("No download jobs found in the %d latest jobs of %s", r.FetcherJobLimit, p.Project.Name),
		Marker: MarkerNoDownloads,
	})
	rv.Conversions = buildBucket(row.Converts, linkView{
		URL:    p.Project.JobsURL,
		Title:  fmt.Sprintf("No conversion jobs found in the %d latest jobs of %s", r.FetcherJobLimit, p.Project.Name),
		Marker: MarkerNoConversions,
	})

	noIndex := linkView{
		URL:    r.Importer.JobsURL,
		Title:  fmt.Sprintf("No indexation jobs found in the %d latest jobs of %s", r.ImporterJobLimit, r.Importer.Name),
		Marker: MarkerNoIndexations,
	}
	if row.IndexFound {
		rv.Indexations = buildBucket(row.Indexations, noIndex)
	} else {
		rv.Indexations = bucketView{Empty: &noIndex}
	}

	if row.Counts != nil {
		rv.Datasets = humanize.Comma(row.Counts.Datasets)
		rv.Series = humanize.Comma(row.Counts.Series)
	}
	return rv
}

func buildBucket(jobs []engine.JobRef, empty linkView) bucketView {
	if len(jobs) == 0 {
		return bucketView{Empty: &empty}
	}
	b := bucketView{Jobs: make([]linkView, 0, len(jobs))}
	for _, j := range jobs {
		b.Jobs = append(b.Jobs, linkView{
			URL:     j.Job.WebURL,
			Title:   fmt.Sprintf("job %d: %s", j.Job.ID, j.Status),
			Marker:  StatusMarker(j.Status),
			Details: jobDetails(j),
		})
	}
	return b
}

func jobDetails(j engine.JobRef) []string {
	return []string{
		"status: " + j.Status.String(),
		"duration: " + formatDuration(j.Job.Duration),
		"created at: " + formatTime(j.Job.CreatedAt),
		"started at: " + formatTime(j.Job.StartedAt),
		"finished at: " + formatTime(j.Job.FinishedAt),
	}
}

func buildScheduleView(p forge.Project, s *forge.Schedule, now time.Time) scheduleView {
	if s == nil {
		return scheduleView{Link: linkView{
			URL:    p.SchedulesURL,
			Title:  MarkerScheduleUndefined.Label,
			Marker: MarkerScheduleUndefined,
		}}
	}

	status, marker := "inactive", MarkerScheduleInactive
	if s.Active {
		status, marker = "active", MarkerScheduleActive
	}
	next := formatTime(s.NextRunAt)
	if s.NextRunAt != nil {
		next += " (" + humanize.RelTime(*s.NextRunAt, now, "ago", "from now") + ")"
	}
	return scheduleView{
		Link: linkView{
			URL:    s.WebURL,
			Title:  "scheduler " + status,
			Marker: marker,
			Details: []string{
				"status: " + status,
				"next run at: " + next,
				fmt.Sprintf("cron expression: %q", s.Cron),
			},
		},
		Defined: true,
		Active:  s.Active,
		Cron:    s.Cron,
		NextRun: next,
	}
}

func formatTime(t *time.Time) string {
	if t == nil || t.IsZero() {
		return "-"
	}
	return t.Format(timeLayout)
}

func formatDuration(d time.Duration) string {
	if d <= 0 {
		return "-"
	}
	return d.Round(time.Second).String()
}
