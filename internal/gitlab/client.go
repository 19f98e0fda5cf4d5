// Package gitlab implements forge.Source on top of the GitLab REST API (v4).
package gitlab

import (
	"bytes"
	"context"
	"fmt"
	"io"
	"net/http"
	"strings"
	"time"

	gl "gitlab.com/gitlab-org/api/client-go"

	"fetcherdash/internal/forge"
	"fetcherdash/internal/transport"
)

const maxPerPage = 100

type Client struct {
	API *gl.Client
}

var _ forge.Source = (*Client)(nil)

// NewClient builds a GitLab source for the instance at baseURL
// (e.g. https://git.nomics.world; the /api/v4 suffix is added by the SDK).
// Requests are never retried: the dashboard is a single point-in-time
// snapshot and a failed listing aborts the run.
func NewClient(baseURL, token string, opts ...transport.Option) (*Client, error) {
	baseURL = strings.TrimRight(strings.TrimSpace(baseURL), "/")
	if baseURL == "" {
		return nil, fmt.Errorf("gitlab client: base URL is empty")
	}

	httpClient, err := transport.NewHTTPClient("gitlab api", opts...)
	if err != nil {
		return nil, fmt.Errorf("gitlab client: %w", err)
	}

	api, err := gl.NewClient(token,
		gl.WithBaseURL(baseURL),
		gl.WithHTTPClient(httpClient),
		gl.WithoutRetries(),
	)
	if err != nil {
		return nil, fmt.Errorf("gitlab client: %w", err)
	}
	return &Client{API: api}, nil
}

func (c *Client) Name() string { return "gitlab" }

func (c *Client) ListGroupProjects(ctx context.Context, group string) ([]forge.Project, error) {
	opts := &gl.ListGroupProjectsOptions{
		ListOptions: gl.ListOptions{PerPage: maxPerPage},
		OrderBy:     gl.Ptr("name"),
		Sort:        gl.Ptr("asc"),
	}

	var out []forge.Project
	for {
		projects, resp, err := c.API.Groups.ListGroupProjects(group, opts, gl.WithContext(ctx))
		if err != nil {
			if isNotFound(resp) {
				return nil, fmt.Errorf("group %q: %w", group, forge.ErrNotFound)
			}
			return nil, fmt.Errorf("list projects of group %q: %w", group, err)
		}
		for _, p := range projects {
			out = append(out, toProject(p))
		}
		if resp.NextPage == 0 {
			break
		}
		opts.Page = resp.NextPage
	}
	return out, nil
}

func (c *Client) GetProject(ctx context.Context, path string) (forge.Project, error) {
	p, resp, err := c.API.Projects.GetProject(path, nil, gl.WithContext(ctx))
	if err != nil {
		if isNotFound(resp) {
			return forge.Project{}, fmt.Errorf("project %q: %w", path, forge.ErrNotFound)
		}
		return forge.Project{}, fmt.Errorf("get project %q: %w", path, err)
	}
	return toProject(p), nil
}

func (c *Client) ListJobs(ctx context.Context, project forge.Project, limit int) ([]forge.Job, error) {
	if limit <= 0 {
		return nil, nil
	}
	opts := &gl.ListJobsOptions{
		ListOptions: gl.ListOptions{PerPage: min(limit, maxPerPage)},
	}

	out := make([]forge.Job, 0, min(limit, maxPerPage))
	for {
		jobs, resp, err := c.API.Jobs.ListProjectJobs(int(project.ID), opts, gl.WithContext(ctx))
		if err != nil {
			return nil, fmt.Errorf("list jobs of %q: %w", project.Path, err)
		}
		for _, j := range jobs {
			if len(out) >= limit {
				break
			}
			out = append(out, toJob(j))
		}
		if len(out) >= limit || resp.NextPage == 0 {
			break
		}
		opts.Page = resp.NextPage
	}
	return out, nil
}

func (c *Client) JobTrace(ctx context.Context, project forge.Project, job forge.Job) (string, error) {
	r, resp, err := c.API.Jobs.GetTraceFile(int(project.ID), int(job.ID), gl.WithContext(ctx))
	if err != nil {
		if isGone(resp) {
			return "", fmt.Errorf("job %d of %q: %w", job.ID, project.Path, forge.ErrTraceUnavailable)
		}
		return "", fmt.Errorf("get trace of job %d of %q: %w", job.ID, project.Path, err)
	}
	return readTrace(r)
}

func (c *Client) ListSchedules(ctx context.Context, project forge.Project) ([]forge.Schedule, error) {
	opts := &gl.ListPipelineSchedulesOptions{
		ListOptions: gl.ListOptions{PerPage: maxPerPage},
	}

	var out []forge.Schedule
	for {
		schedules, resp, err := c.API.PipelineSchedules.ListPipelineSchedules(int(project.ID), opts, gl.WithContext(ctx))
		if err != nil {
			return nil, fmt.Errorf("list pipeline schedules of %q: %w", project.Path, err)
		}
		for _, s := range schedules {
			out = append(out, forge.Schedule{
				ID:           int64(s.ID),
				Description:  s.Description,
				Ref:          s.Ref,
				Cron:         s.Cron,
				CronTimezone: s.CronTimezone,
				NextRunAt:    s.NextRunAt,
				Active:       s.Active,
				WebURL:       fmt.Sprintf("%s/-/pipeline_schedules/%d/edit", project.WebURL, s.ID),
			})
		}
		if resp.NextPage == 0 {
			break
		}
		opts.Page = resp.NextPage
	}
	return out, nil
}

func toProject(p *gl.Project) forge.Project {
	web := strings.TrimRight(p.WebURL, "/")
	return forge.Project{
		ID:           int64(p.ID),
		Name:         p.Name,
		Path:         p.PathWithNamespace,
		WebURL:       web,
		JobsURL:      web + "/-/jobs",
		SchedulesURL: web + "/-/pipeline_schedules",
	}
}

func toJob(j *gl.Job) forge.Job {
	return forge.Job{
		ID:         int64(j.ID),
		Name:       j.Name,
		Status:     j.Status,
		Ref:        j.Ref,
		CreatedAt:  j.CreatedAt,
		StartedAt:  j.StartedAt,
		FinishedAt: j.FinishedAt,
		Duration:   time.Duration(j.Duration * float64(time.Second)),
		WebURL:     j.WebURL,
	}
}

func readTrace(r *bytes.Reader) (string, error) {
	if r == nil {
		return "", nil
	}
	b, err := io.ReadAll(r)
	if err != nil {
		return "", fmt.Errorf("read trace: %w", err)
	}
	return string(b), nil
}

func isNotFound(resp *gl.Response) bool {
	return resp != nil && resp.StatusCode == http.StatusNotFound
}

// Erased or expired artifacts answer 404; some instances answer 410.
func isGone(resp *gl.Response) bool {
	return resp != nil && (resp.StatusCode == http.StatusNotFound || resp.StatusCode == http.StatusGone)
}
