package output

import (
	"encoding/json"
	"fmt"
	"io"
	"time"

	"fetcherdash/internal/engine"
	"fetcherdash/internal/enrich"
	"fetcherdash/internal/forge"
)

// JSONRenderer writes the report as a single indented JSON document.
type JSONRenderer struct{}

type jsonReport struct {
	GeneratedAt       time.Time `json:"generated_at"`
	ElapsedSeconds    float64   `json:"elapsed_seconds"`
	Forge             string    `json:"forge"`
	Group             string    `json:"group"`
	Importer          string    `json:"importer"`
	Ref               string    `json:"ref,omitempty"`
	EnrichmentEnabled bool      `json:"enrichment_enabled"`
	Providers         []jsonRow `json:"providers"`
}

type jsonRow struct {
	Ordinal     int            `json:"ordinal"`
	Slug        string         `json:"slug"`
	Featured    bool           `json:"featured"`
	Project     string         `json:"project"`
	Schedule    *jsonSchedule  `json:"schedule"`
	Downloads   []jsonJob      `json:"downloads"`
	Conversions []jsonJob      `json:"conversions"`
	Indexations []jsonJob      `json:"indexations"`
	IndexFound  bool           `json:"index_found"`
	JobsScanned int            `json:"jobs_scanned"`
	Counts      *enrich.Counts `json:"counts"`
}

type jsonSchedule struct {
	ID        int64      `json:"id"`
	Active    bool       `json:"active"`
	Cron      string     `json:"cron"`
	Timezone  string     `json:"timezone,omitempty"`
	NextRunAt *time.Time `json:"next_run_at"`
	URL       string     `json:"url"`
}

type jsonJob struct {
	ID         int64      `json:"id"`
	Status     string     `json:"status"`
	RawStatus  string     `json:"raw_status"`
	Ref        string     `json:"ref"`
	CreatedAt  *time.Time `json:"created_at"`
	StartedAt  *time.Time `json:"started_at"`
	FinishedAt *time.Time `json:"finished_at"`
	Duration   float64    `json:"duration_seconds"`
	URL        string     `json:"url"`
}

func (JSONRenderer) Render(w io.Writer, r *engine.Report) error {
	out := jsonReport{
		GeneratedAt:       r.GeneratedAt,
		ElapsedSeconds:    r.Elapsed.Seconds(),
		Forge:             r.Forge,
		Group:             r.Group,
		Importer:          r.Importer.Path,
		Ref:               r.Ref,
		EnrichmentEnabled: r.EnrichmentEnabled,
		Providers:         make([]jsonRow, 0, len(r.Rows)),
	}
	for _, row := range r.Rows {
		out.Providers = append(out.Providers, jsonRow{
			Ordinal:     row.Provider.Ordinal,
			Slug:        row.Provider.Slug,
			Featured:    row.Provider.Featured,
			Project:     row.Provider.Project.Path,
			Schedule:    toJSONSchedule(row.Schedule),
			Downloads:   toJSONJobs(row.Downloads),
			Conversions: toJSONJobs(row.Converts),
			Indexations: toJSONJobs(row.Indexations),
			IndexFound:  row.IndexFound,
			JobsScanned: row.JobsScanned,
			Counts:      row.Counts,
		})
	}

	enc := json.NewEncoder(w)
	enc.SetIndent("", "  ")
	if err := enc.Encode(out); err != nil {
		return fmt.Errorf("render json: %w", err)
	}
	return flushIfPossible(w)
}

func toJSONSchedule(s *forge.Schedule) *jsonSchedule {
	if s == nil {
		return nil
	}
	return &jsonSchedule{
		ID:        s.ID,
		Active:    s.Active,
		Cron:      s.Cron,
		Timezone:  s.CronTimezone,
		NextRunAt: s.NextRunAt,
		URL:       s.WebURL,
	}
}

func toJSONJobs(jobs []engine.JobRef) []jsonJob {
	out := make([]jsonJob, 0, len(jobs))
	for _, j := range jobs {
		out = append(out, jsonJob{
			ID:         j.Job.ID,
			Status:     j.Status.String(),
			RawStatus:  j.Job.Status,
			Ref:        j.Job.Ref,
			CreatedAt:  j.Job.CreatedAt,
			StartedAt:  j.Job.StartedAt,
			FinishedAt: j.Job.FinishedAt,
			Duration:   j.Job.Duration.Seconds(),
			URL:        j.Job.WebURL,
		})
	}
	return out
}
