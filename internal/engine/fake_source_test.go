package engine

import (
	"context"
	"fmt"
	"sync"
	"time"

	"fetcherdash/internal/forge"
)

// fakeSource is an in-memory forge keyed by project path.
type fakeSource struct {
	mu sync.Mutex

	projects []forge.Project
	groupErr error

	byPath map[string]forge.Project

	jobs    map[string][]forge.Job
	jobsErr map[string]error

	traces   map[int64]string
	traceErr map[int64]error

	schedules   map[string][]forge.Schedule
	scheduleErr map[string]error

	traceCalls []int64
	jobLimits  map[string]int
}

func newFakeSource() *fakeSource {
	return &fakeSource{
		byPath:      make(map[string]forge.Project),
		jobs:        make(map[string][]forge.Job),
		jobsErr:     make(map[string]error),
		traces:      make(map[int64]string),
		traceErr:    make(map[int64]error),
		schedules:   make(map[string][]forge.Schedule),
		scheduleErr: make(map[string]error),
		jobLimits:   make(map[string]int),
	}
}

func (f *fakeSource) addProject(group, name string) forge.Project {
	p := forge.Project{
		ID:      int64(len(f.byPath) + 1),
		Name:    name,
		Path:    group + "/" + name,
		WebURL:  "https://git.example.org/" + group + "/" + name,
		JobsURL: "https://git.example.org/" + group + "/" + name + "/-/jobs",
	}
	f.byPath[p.Path] = p
	if group == "dbnomics-fetchers" {
		f.projects = append(f.projects, p)
	}
	return p
}

// addJob appends a job with the given trace; a nil startedAt marks a job
// that never ran.
func (f *fakeSource) addJob(path string, id int64, status, ref, trace string, startedAt *time.Time) forge.Job {
	j := forge.Job{ID: id, Status: status, Ref: ref, StartedAt: startedAt}
	f.jobs[path] = append(f.jobs[path], j)
	f.traces[id] = trace
	return j
}

func (f *fakeSource) Name() string { return "fake" }

func (f *fakeSource) ListGroupProjects(_ context.Context, group string) ([]forge.Project, error) {
	if f.groupErr != nil {
		return nil, f.groupErr
	}
	return append([]forge.Project(nil), f.projects...), nil
}

func (f *fakeSource) GetProject(_ context.Context, path string) (forge.Project, error) {
	p, ok := f.byPath[path]
	if !ok {
		return forge.Project{}, fmt.Errorf("project %q: %w", path, forge.ErrNotFound)
	}
	return p, nil
}

func (f *fakeSource) ListJobs(_ context.Context, project forge.Project, limit int) ([]forge.Job, error) {
	f.mu.Lock()
	f.jobLimits[project.Path] = limit
	f.mu.Unlock()
	if err := f.jobsErr[project.Path]; err != nil {
		return nil, err
	}
	jobs := f.jobs[project.Path]
	if len(jobs) > limit {
		jobs = jobs[:limit]
	}
	return jobs, nil
}

func (f *fakeSource) JobTrace(_ context.Context, _ forge.Project, job forge.Job) (string, error) {
	f.mu.Lock()
	f.traceCalls = append(f.traceCalls, job.ID)
	f.mu.Unlock()
	if err := f.traceErr[job.ID]; err != nil {
		return "", err
	}
	return f.traces[job.ID], nil
}

func (f *fakeSource) ListSchedules(_ context.Context, project forge.Project) ([]forge.Schedule, error) {
	if err := f.scheduleErr[project.Path]; err != nil {
		return nil, err
	}
	return f.schedules[project.Path], nil
}

func ts(s string) *time.Time {
	t, err := time.Parse(time.RFC3339, s)
	if err != nil {
		panic(err)
	}
	return &t
}
