package engine

import (
	"context"
	"errors"
	"fmt"
	"log/slog"

	"fetcherdash/internal/classify"
	"fetcherdash/internal/forge"
)

// JobsPerBucket is how many jobs of each kind a row shows.
const JobsPerBucket = 3

// JobRef is a job together with its derived report status.
type JobRef struct {
	Job    forge.Job
	Status classify.Status
}

func newJobRef(j forge.Job) JobRef {
	return JobRef{Job: j, Status: classify.DeriveStatus(j.Status, j.StartedAt)}
}

// FetcherJobs holds the classified jobs of one fetcher, in source order.
type FetcherJobs struct {
	Downloads []JobRef
	Converts  []JobRef
	// Scanned counts every listed job, classified or not.
	Scanned int
}

// Correlator classifies fetcher jobs by kind and importer jobs by provider.
type Correlator struct {
	Source   forge.Source
	Fetcher  classify.Classifier
	Importer classify.Classifier
	Logger   *slog.Logger

	// Ref restricts fetcher classification to one branch; empty means all.
	Ref string
}

// FetcherJobs lists the latest limit jobs of a fetcher and buckets them by
// kind. Labels other than download and convert are ignored.
func (c *Correlator) FetcherJobs(ctx context.Context, project forge.Project, limit int) (FetcherJobs, error) {
	jobs, err := c.Source.ListJobs(ctx, project, limit)
	if err != nil {
		return FetcherJobs{}, fmt.Errorf("list jobs: %w", err)
	}

	out := FetcherJobs{Scanned: len(jobs)}
	for _, j := range jobs {
		if c.Ref != "" && j.Ref != c.Ref {
			continue
		}
		kind, ok, err := c.classify(ctx, c.Fetcher, project, j)
		if err != nil {
			return FetcherJobs{}, err
		}
		if !ok {
			continue
		}
		switch kind {
		case classify.KindDownload:
			out.Downloads = append(out.Downloads, newJobRef(j))
		case classify.KindConvert:
			out.Converts = append(out.Converts, newJobRef(j))
		default:
			c.logger().Debug("ignoring fetcher job kind", "project", project.Path, "job", j.ID, "kind", kind)
		}
	}
	return out, nil
}

// IndexJobs lists the latest limit importer jobs and groups them by the
// provider slug found in their trace, in source order.
func (c *Correlator) IndexJobs(ctx context.Context, importer forge.Project, limit int) (map[string][]JobRef, error) {
	jobs, err := c.Source.ListJobs(ctx, importer, limit)
	if err != nil {
		return nil, fmt.Errorf("list importer jobs: %w", err)
	}

	out := make(map[string][]JobRef)
	for _, j := range jobs {
		slug, ok, err := c.classify(ctx, c.Importer, importer, j)
		if err != nil {
			return nil, fmt.Errorf("importer: %w", err)
		}
		if ok {
			out[slug] = append(out[slug], newJobRef(j))
		}
	}
	return out, nil
}

// classify fetches the trace of j and labels it. A trace that no longer
// exists leaves the job unclassified.
func (c *Correlator) classify(ctx context.Context, cl classify.Classifier, project forge.Project, j forge.Job) (string, bool, error) {
	trace, err := c.Source.JobTrace(ctx, project, j)
	if err != nil {
		if errors.Is(err, forge.ErrTraceUnavailable) {
			c.logger().Warn("job trace unavailable", "project", project.Path, "job", j.ID)
			return "", false, nil
		}
		return "", false, fmt.Errorf("trace of job %d: %w", j.ID, err)
	}
	label, ok, err := cl.Classify(trace)
	if err != nil {
		return "", false, fmt.Errorf("classify job %d: %w", j.ID, err)
	}
	return label, ok, nil
}

func (c *Correlator) logger() *slog.Logger {
	if c.Logger == nil {
		return slog.Default()
	}
	return c.Logger
}

func firstN(jobs []JobRef, n int) []JobRef {
	if len(jobs) <= n {
		return jobs
	}
	return jobs[:n]
}
