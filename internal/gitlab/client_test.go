package gitlab

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"fetcherdash/internal/forge"
)

// newTestClient serves a fake GitLab API. Handlers are keyed by escaped path
// (project paths are sent URL-encoded, e.g. dbnomics%2Fdbnomics-importer).
func newTestClient(t *testing.T, routes map[string]http.HandlerFunc) *Client {
	t.Helper()
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if h, ok := routes[r.URL.EscapedPath()]; ok {
			h(w, r)
			return
		}
		http.Error(w, `{"message":"404 Not Found"}`, http.StatusNotFound)
	}))
	t.Cleanup(server.Close)

	c, err := NewClient(server.URL, "test-token")
	if err != nil {
		t.Fatalf("NewClient failed: %v", err)
	}
	return c
}

func writeJSON(w http.ResponseWriter, body string) {
	w.Header().Set("Content-Type", "application/json")
	_, _ = w.Write([]byte(body))
}

func TestNewClient_EmptyBaseURL(t *testing.T) {
	if _, err := NewClient("  ", ""); err == nil {
		t.Fatal("expected error")
	}
}

func TestListGroupProjects_Paginates(t *testing.T) {
	var gotToken string
	c := newTestClient(t, map[string]http.HandlerFunc{
		"/api/v4/groups/dbnomics-fetchers/projects": func(w http.ResponseWriter, r *http.Request) {
			gotToken = r.Header.Get("PRIVATE-TOKEN")
			if r.URL.Query().Get("order_by") != "name" || r.URL.Query().Get("sort") != "asc" {
				t.Errorf("unexpected ordering query: %s", r.URL.RawQuery)
			}
			if r.URL.Query().Get("page") == "2" {
				writeJSON(w, `[{"id":3,"name":"imf-fetcher","path_with_namespace":"dbnomics-fetchers/imf-fetcher","web_url":"https://git.example/dbnomics-fetchers/imf-fetcher"}]`)
				return
			}
			w.Header().Set("X-Next-Page", "2")
			writeJSON(w, `[{"id":1,"name":"ecb-fetcher","path_with_namespace":"dbnomics-fetchers/ecb-fetcher","web_url":"https://git.example/dbnomics-fetchers/ecb-fetcher"},
				{"id":2,"name":"documentation","path_with_namespace":"dbnomics-fetchers/documentation","web_url":"https://git.example/dbnomics-fetchers/documentation"}]`)
		},
	})

	projects, err := c.ListGroupProjects(context.Background(), "dbnomics-fetchers")
	if err != nil {
		t.Fatalf("ListGroupProjects failed: %v", err)
	}
	if gotToken != "test-token" {
		t.Errorf("PRIVATE-TOKEN = %q", gotToken)
	}
	if len(projects) != 3 {
		t.Fatalf("got %d projects, want 3", len(projects))
	}
	p := projects[0]
	if p.ID != 1 || p.Name != "ecb-fetcher" || p.Path != "dbnomics-fetchers/ecb-fetcher" {
		t.Errorf("unexpected project: %+v", p)
	}
	if p.JobsURL != "https://git.example/dbnomics-fetchers/ecb-fetcher/-/jobs" {
		t.Errorf("JobsURL = %q", p.JobsURL)
	}
	if p.SchedulesURL != "https://git.example/dbnomics-fetchers/ecb-fetcher/-/pipeline_schedules" {
		t.Errorf("SchedulesURL = %q", p.SchedulesURL)
	}
}

func TestListGroupProjects_MissingGroup(t *testing.T) {
	c := newTestClient(t, nil)
	_, err := c.ListGroupProjects(context.Background(), "nope")
	if !errors.Is(err, forge.ErrNotFound) {
		t.Fatalf("expected ErrNotFound, got %v", err)
	}
}

func TestGetProject_EncodesPath(t *testing.T) {
	c := newTestClient(t, map[string]http.HandlerFunc{
		"/api/v4/projects/dbnomics%2Fdbnomics-importer": func(w http.ResponseWriter, r *http.Request) {
			writeJSON(w, `{"id":42,"name":"dbnomics-importer","path_with_namespace":"dbnomics/dbnomics-importer","web_url":"https://git.example/dbnomics/dbnomics-importer"}`)
		},
	})

	p, err := c.GetProject(context.Background(), "dbnomics/dbnomics-importer")
	if err != nil {
		t.Fatalf("GetProject failed: %v", err)
	}
	if p.ID != 42 || p.Path != "dbnomics/dbnomics-importer" {
		t.Errorf("unexpected project: %+v", p)
	}
}

func TestListJobs_RespectsLimit(t *testing.T) {
	var pages []string
	c := newTestClient(t, map[string]http.HandlerFunc{
		"/api/v4/projects/7/jobs": func(w http.ResponseWriter, r *http.Request) {
			pages = append(pages, r.URL.Query().Get("page"))
			if got := r.URL.Query().Get("per_page"); got != "3" {
				t.Errorf("per_page = %q, want 3", got)
			}
			w.Header().Set("X-Next-Page", "2")
			writeJSON(w, `[
				{"id":103,"name":"job","status":"success","ref":"master","created_at":"2024-03-01T10:00:00Z","started_at":"2024-03-01T10:00:05Z","finished_at":"2024-03-01T10:02:05Z","duration":120.5,"web_url":"https://git.example/p/-/jobs/103"},
				{"id":102,"name":"job","status":"pending","ref":"dev","created_at":"2024-03-01T09:00:00Z"},
				{"id":101,"name":"job","status":"failed","ref":"master","created_at":"2024-03-01T08:00:00Z","started_at":"2024-03-01T08:00:01Z"}
			]`)
		},
	})

	jobs, err := c.ListJobs(context.Background(), forge.Project{ID: 7, Path: "g/p"}, 3)
	if err != nil {
		t.Fatalf("ListJobs failed: %v", err)
	}
	if len(pages) != 1 {
		t.Errorf("expected a single page request, got %v", pages)
	}
	if len(jobs) != 3 {
		t.Fatalf("got %d jobs, want 3", len(jobs))
	}
	first := jobs[0]
	if first.ID != 103 || first.Status != "success" || first.Ref != "master" {
		t.Errorf("unexpected job: %+v", first)
	}
	if first.StartedAt == nil || !first.StartedAt.Equal(time.Date(2024, 3, 1, 10, 0, 5, 0, time.UTC)) {
		t.Errorf("StartedAt = %v", first.StartedAt)
	}
	if first.Duration != 120500*time.Millisecond {
		t.Errorf("Duration = %v", first.Duration)
	}
	if jobs[1].StartedAt != nil {
		t.Errorf("pending job should have no start time")
	}
}

func TestListJobs_ZeroLimit(t *testing.T) {
	c := newTestClient(t, nil)
	jobs, err := c.ListJobs(context.Background(), forge.Project{ID: 7}, 0)
	if err != nil || jobs != nil {
		t.Fatalf("ListJobs(0) = (%v, %v), want (nil, nil)", jobs, err)
	}
}

func TestJobTrace(t *testing.T) {
	c := newTestClient(t, map[string]http.HandlerFunc{
		"/api/v4/projects/7/jobs/5/trace": func(w http.ResponseWriter, r *http.Request) {
			_, _ = w.Write([]byte("Running job download\n"))
		},
		"/api/v4/projects/7/jobs/6/trace": func(w http.ResponseWriter, r *http.Request) {
			http.Error(w, `{"message":"boom"}`, http.StatusInternalServerError)
		},
	})
	project := forge.Project{ID: 7, Path: "g/p"}

	trace, err := c.JobTrace(context.Background(), project, forge.Job{ID: 5})
	if err != nil {
		t.Fatalf("JobTrace failed: %v", err)
	}
	if trace != "Running job download\n" {
		t.Errorf("trace = %q", trace)
	}

	// Job 8 has no route: the fake answers 404 like an erased trace.
	_, err = c.JobTrace(context.Background(), project, forge.Job{ID: 8})
	if !errors.Is(err, forge.ErrTraceUnavailable) {
		t.Errorf("expected ErrTraceUnavailable, got %v", err)
	}

	_, err = c.JobTrace(context.Background(), project, forge.Job{ID: 6})
	if err == nil || errors.Is(err, forge.ErrTraceUnavailable) {
		t.Errorf("expected a hard error for 500, got %v", err)
	}
}

func TestListSchedules(t *testing.T) {
	c := newTestClient(t, map[string]http.HandlerFunc{
		"/api/v4/projects/7/pipeline_schedules": func(w http.ResponseWriter, r *http.Request) {
			writeJSON(w, `[{"id":9,"description":"ecb CI jobs","ref":"master","cron":"0 3 * * *","cron_timezone":"UTC","next_run_at":"2024-03-02T03:00:00Z","active":true}]`)
		},
	})
	project := forge.Project{ID: 7, Path: "g/p", WebURL: "https://git.example/g/p"}

	schedules, err := c.ListSchedules(context.Background(), project)
	if err != nil {
		t.Fatalf("ListSchedules failed: %v", err)
	}
	if len(schedules) != 1 {
		t.Fatalf("got %d schedules, want 1", len(schedules))
	}
	s := schedules[0]
	if !s.Active || s.Cron != "0 3 * * *" || s.NextRunAt == nil {
		t.Errorf("unexpected schedule: %+v", s)
	}
	if want := fmt.Sprintf("%s/-/pipeline_schedules/9/edit", project.WebURL); s.WebURL != want {
		t.Errorf("WebURL = %q, want %q", s.WebURL, want)
	}
}
