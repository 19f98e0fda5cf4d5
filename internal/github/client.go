// Package github implements forge.Source on top of GitHub Actions: an
// organization plays the role of the fetcher group, repositories are
// projects, workflow jobs are jobs and scheduled workflows are schedules.
package github

import (
	"context"
	"errors"
	"fmt"
	"io"
	"net/http"
	"path"
	"strings"
	"time"

	"github.com/google/go-github/v81/github"

	"fetcherdash/internal/forge"
	"fetcherdash/internal/transport"
)

const (
	maxPerPage   = 100
	maxRedirects = 2
)

type Client struct {
	API *github.Client
	// Logs downloads signed job-log URLs; those must not carry the API token.
	Logs *http.Client

	now func() time.Time
}

var _ forge.Source = (*Client)(nil)

// NewClient builds a GitHub source. An empty baseURL targets github.com;
// otherwise baseURL is a GitHub Enterprise Server root.
func NewClient(ctx context.Context, token, baseURL string, opts ...transport.Option) (*Client, error) {
	if ctx == nil {
		return nil, fmt.Errorf("github client: ctx is nil")
	}

	logOpts := append([]transport.Option(nil), opts...)
	apiOpts := append(opts, transport.WithToken(token))

	tc, err := transport.NewHTTPClient("github api", apiOpts...)
	if err != nil {
		return nil, fmt.Errorf("github client: %w", err)
	}
	logs, err := transport.NewHTTPClient("github logs", logOpts...)
	if err != nil {
		return nil, fmt.Errorf("github client: %w", err)
	}

	api := github.NewClient(tc)
	if base := strings.TrimSpace(baseURL); base != "" && !isPublicGitHub(base) {
		api, err = api.WithEnterpriseURLs(base, base)
		if err != nil {
			return nil, fmt.Errorf("github client: %w", err)
		}
	}

	return &Client{API: api, Logs: logs, now: time.Now}, nil
}

func isPublicGitHub(base string) bool {
	base = strings.TrimRight(strings.ToLower(base), "/")
	return base == "https://github.com" || base == "https://api.github.com"
}

func (c *Client) Name() string { return "github" }

func (c *Client) ListGroupProjects(ctx context.Context, org string) ([]forge.Project, error) {
	opts := &github.RepositoryListByOrgOptions{
		ListOptions: github.ListOptions{PerPage: maxPerPage},
	}

	var out []forge.Project
	for {
		repos, resp, err := c.API.Repositories.ListByOrg(ctx, org, opts)
		if err != nil {
			if isStatus(resp, http.StatusNotFound) {
				return nil, fmt.Errorf("organization %q: %w", org, forge.ErrNotFound)
			}
			return nil, fmt.Errorf("list repositories of %q: %w", org, err)
		}
		for _, repo := range repos {
			out = append(out, toProject(repo))
		}
		if resp.NextPage == 0 {
			break
		}
		opts.Page = resp.NextPage
	}
	return out, nil
}

func (c *Client) GetProject(ctx context.Context, fullName string) (forge.Project, error) {
	owner, name, err := splitFullName(fullName)
	if err != nil {
		return forge.Project{}, err
	}
	repo, resp, err := c.API.Repositories.Get(ctx, owner, name)
	if err != nil {
		if isStatus(resp, http.StatusNotFound) {
			return forge.Project{}, fmt.Errorf("repository %q: %w", fullName, forge.ErrNotFound)
		}
		return forge.Project{}, fmt.Errorf("get repository %q: %w", fullName, err)
	}
	return toProject(repo), nil
}

// ListJobs walks the most recent workflow runs and flattens their jobs.
func (c *Client) ListJobs(ctx context.Context, project forge.Project, limit int) ([]forge.Job, error) {
	if limit <= 0 {
		return nil, nil
	}
	owner, name, err := splitFullName(project.Path)
	if err != nil {
		return nil, err
	}

	runOpts := &github.ListWorkflowRunsOptions{
		ListOptions: github.ListOptions{PerPage: min(limit, maxPerPage)},
	}
	out := make([]forge.Job, 0, min(limit, maxPerPage))
	for {
		runs, resp, err := c.API.Actions.ListRepositoryWorkflowRuns(ctx, owner, name, runOpts)
		if err != nil {
			return nil, fmt.Errorf("list workflow runs of %q: %w", project.Path, err)
		}
		for _, run := range runs.WorkflowRuns {
			jobs, err := c.listRunJobs(ctx, owner, name, run)
			if err != nil {
				return nil, fmt.Errorf("list jobs of run %d of %q: %w", run.GetID(), project.Path, err)
			}
			for _, j := range jobs {
				if len(out) >= limit {
					return out, nil
				}
				out = append(out, j)
			}
		}
		if resp.NextPage == 0 {
			break
		}
		runOpts.Page = resp.NextPage
	}
	return out, nil
}

func (c *Client) listRunJobs(ctx context.Context, owner, name string, run *github.WorkflowRun) ([]forge.Job, error) {
	opts := &github.ListWorkflowJobsOptions{
		ListOptions: github.ListOptions{PerPage: maxPerPage},
	}
	var out []forge.Job
	for {
		jobs, resp, err := c.API.Actions.ListWorkflowJobs(ctx, owner, name, run.GetID(), opts)
		if err != nil {
			return nil, err
		}
		for _, j := range jobs.Jobs {
			out = append(out, toJob(j, run))
		}
		if resp.NextPage == 0 {
			break
		}
		opts.Page = resp.NextPage
	}
	return out, nil
}

func (c *Client) JobTrace(ctx context.Context, project forge.Project, job forge.Job) (string, error) {
	owner, name, err := splitFullName(project.Path)
	if err != nil {
		return "", err
	}

	logURL, resp, err := c.API.Actions.GetWorkflowJobLogs(ctx, owner, name, job.ID, maxRedirects)
	if err != nil {
		if isStatus(resp, http.StatusNotFound) || isStatus(resp, http.StatusGone) {
			return "", fmt.Errorf("job %d of %q: %w", job.ID, project.Path, forge.ErrTraceUnavailable)
		}
		return "", fmt.Errorf("get log URL of job %d of %q: %w", job.ID, project.Path, err)
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, logURL.String(), nil)
	if err != nil {
		return "", fmt.Errorf("build log request: %w", err)
	}
	hresp, err := c.Logs.Do(req)
	if err != nil {
		return "", fmt.Errorf("download log of job %d of %q: %w", job.ID, project.Path, err)
	}
	defer hresp.Body.Close()

	switch {
	case hresp.StatusCode == http.StatusNotFound || hresp.StatusCode == http.StatusGone:
		return "", fmt.Errorf("job %d of %q: %w", job.ID, project.Path, forge.ErrTraceUnavailable)
	case hresp.StatusCode < 200 || hresp.StatusCode >= 300:
		return "", fmt.Errorf("download log of job %d of %q: http %d", job.ID, project.Path, hresp.StatusCode)
	}

	b, err := io.ReadAll(hresp.Body)
	if err != nil {
		return "", fmt.Errorf("read log of job %d of %q: %w", job.ID, project.Path, err)
	}
	return string(b), nil
}

// ListSchedules returns one schedule per workflow that declares an
// `on.schedule` trigger. A workflow with several cron entries is still one
// schedule.
func (c *Client) ListSchedules(ctx context.Context, project forge.Project) ([]forge.Schedule, error) {
	owner, name, err := splitFullName(project.Path)
	if err != nil {
		return nil, err
	}

	opts := &github.ListOptions{PerPage: maxPerPage}
	var out []forge.Schedule
	for {
		workflows, resp, err := c.API.Actions.ListWorkflows(ctx, owner, name, opts)
		if err != nil {
			return nil, fmt.Errorf("list workflows of %q: %w", project.Path, err)
		}
		for _, wf := range workflows.Workflows {
			schedule, err := c.workflowSchedule(ctx, owner, name, project, wf)
			if err != nil {
				return nil, err
			}
			if schedule != nil {
				out = append(out, *schedule)
			}
		}
		if resp.NextPage == 0 {
			break
		}
		opts.Page = resp.NextPage
	}
	return out, nil
}

// workflowSchedule returns nil when the workflow has no cron trigger. Cron
// lists every expression; NextRunAt is the earliest next activation.
func (c *Client) workflowSchedule(ctx context.Context, owner, name string, project forge.Project, wf *github.Workflow) (*forge.Schedule, error) {
	file, _, resp, err := c.API.Repositories.GetContents(ctx, owner, name, wf.GetPath(), nil)
	if err != nil {
		// Deleted workflow files still show up in the workflow list.
		if isStatus(resp, http.StatusNotFound) {
			return nil, nil
		}
		return nil, fmt.Errorf("get workflow %q of %q: %w", wf.GetPath(), project.Path, err)
	}
	if file == nil {
		return nil, nil
	}
	content, err := file.GetContent()
	if err != nil {
		return nil, fmt.Errorf("decode workflow %q of %q: %w", wf.GetPath(), project.Path, err)
	}
	crons, err := ParseScheduleCrons([]byte(content))
	if err != nil {
		return nil, fmt.Errorf("parse workflow %q of %q: %w", wf.GetPath(), project.Path, err)
	}
	if len(crons) == 0 {
		return nil, nil
	}

	now := c.now()
	var next *time.Time
	for _, expr := range crons {
		if t := NextRun(expr, now); t != nil && (next == nil || t.Before(*next)) {
			next = t
		}
	}
	return &forge.Schedule{
		ID:           wf.GetID(),
		Description:  wf.GetName(),
		Cron:         strings.Join(crons, ", "),
		CronTimezone: "UTC",
		NextRunAt:    next,
		Active:       wf.GetState() == "active",
		WebURL:       project.WebURL + "/actions/workflows/" + path.Base(wf.GetPath()),
	}, nil
}

func toProject(repo *github.Repository) forge.Project {
	web := strings.TrimRight(repo.GetHTMLURL(), "/")
	return forge.Project{
		ID:           repo.GetID(),
		Name:         repo.GetName(),
		Path:         repo.GetFullName(),
		WebURL:       web,
		JobsURL:      web + "/actions",
		SchedulesURL: web + "/actions",
	}
}

func toJob(j *github.WorkflowJob, run *github.WorkflowRun) forge.Job {
	status := jobStatus(j.GetStatus(), j.GetConclusion())

	ref := j.GetHeadBranch()
	if ref == "" {
		ref = run.GetHeadBranch()
	}

	job := forge.Job{
		ID:        j.GetID(),
		Name:      j.GetName(),
		Status:    status,
		Ref:       ref,
		CreatedAt: timestampPtr(j.CreatedAt),
		WebURL:    j.GetHTMLURL(),
	}
	// Queued jobs carry a placeholder started_at; only trust it once the
	// runner picked the job up.
	if status != "pending" {
		job.StartedAt = timestampPtr(j.StartedAt)
	}
	job.FinishedAt = timestampPtr(j.CompletedAt)
	if job.StartedAt != nil && job.FinishedAt != nil {
		job.Duration = job.FinishedAt.Sub(*job.StartedAt)
	}
	return job
}

// jobStatus maps the Actions status/conclusion pair onto the GitLab-style
// vocabulary the rest of the dashboard reads.
func jobStatus(status, conclusion string) string {
	switch status {
	case "completed":
		switch conclusion {
		case "success":
			return "success"
		case "failure", "timed_out", "startup_failure":
			return "failed"
		case "cancelled":
			return "canceled"
		default:
			return conclusion
		}
	case "in_progress":
		return "running"
	default:
		return "pending"
	}
}

func timestampPtr(ts *github.Timestamp) *time.Time {
	if ts == nil || ts.IsZero() {
		return nil
	}
	t := ts.Time
	return &t
}

func splitFullName(fullName string) (owner, name string, err error) {
	owner, name, ok := strings.Cut(strings.TrimSpace(fullName), "/")
	if !ok || owner == "" || name == "" || strings.Contains(name, "/") {
		return "", "", fmt.Errorf("invalid repository %q: expected OWNER/REPO", fullName)
	}
	return owner, name, nil
}

func isStatus(resp *github.Response, code int) bool {
	if resp != nil && resp.Response != nil {
		return resp.StatusCode == code
	}
	return false
}

// IsRateLimited reports whether err is a primary or secondary rate limit error.
func IsRateLimited(err error) bool {
	var rl *github.RateLimitError
	var arl *github.AbuseRateLimitError
	return errors.As(err, &rl) || errors.As(err, &arl)
}
