// Package forge defines the read-only view of a code forge (GitLab, GitHub)
// that the dashboard engine consumes: group membership, job history, job
// traces and pipeline schedules.
package forge

import (
	"context"
	"errors"
	"time"
)

var (
	// ErrTraceUnavailable reports a job trace that no longer exists upstream
	// (erased or expired). Callers treat the job as unclassifiable.
	ErrTraceUnavailable = errors.New("job trace unavailable")

	// ErrNotFound reports a group or project that could not be resolved.
	ErrNotFound = errors.New("not found")
)

// Project is a repository hosting CI jobs: either a fetcher or the shared importer.
type Project struct {
	ID   int64
	Name string
	// Path is the namespaced path (group/name or owner/repo).
	Path   string
	WebURL string

	// JobsURL and SchedulesURL are browsable pages used by the report when a
	// job bucket or a schedule is missing.
	JobsURL      string
	SchedulesURL string
}

// Job is one CI job record. Status is the raw upstream value; the dashboard
// derives its own status from it (see classify.DeriveStatus).
type Job struct {
	ID         int64
	Name       string
	Status     string
	Ref        string
	CreatedAt  *time.Time
	StartedAt  *time.Time
	FinishedAt *time.Time
	Duration   time.Duration
	WebURL     string
}

// Schedule is a recurring pipeline definition attached to a project.
type Schedule struct {
	ID           int64
	Description  string
	Ref          string
	Cron         string
	CronTimezone string
	NextRunAt    *time.Time
	Active       bool
	WebURL       string
}

// Source is implemented by each forge backend. Every method is a blocking,
// read-only request.
type Source interface {
	// Name identifies the backend in logs ("gitlab", "github").
	Name() string

	// ListGroupProjects returns every project of a group, in any order.
	ListGroupProjects(ctx context.Context, group string) ([]Project, error)

	// GetProject resolves a single project by its namespaced path.
	GetProject(ctx context.Context, path string) (Project, error)

	// ListJobs returns up to limit of the most recent jobs, most recent first.
	ListJobs(ctx context.Context, project Project, limit int) ([]Job, error)

	// JobTrace returns the raw log of a job, or ErrTraceUnavailable.
	JobTrace(ctx context.Context, project Project, job Job) (string, error)

	// ListSchedules returns every schedule defined on a project.
	ListSchedules(ctx context.Context, project Project) ([]Schedule, error)
}
