package enrich

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"log/slog"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
)

// newSolr serves provider lookups from docsBySlug and answers counting
// queries with numFound from counts keyed by the q parameter.
func newSolr(t *testing.T, docsBySlug map[string]string, counts map[string]int) *httptest.Server {
	t.Helper()
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if r.URL.Path != "/solr/dbnomics/select" {
			http.NotFound(w, r)
			return
		}
		q := r.URL.Query()
		if q.Get("wt") != "json" {
			t.Errorf("wt = %q", q.Get("wt"))
		}
		w.Header().Set("Content-Type", "application/json")

		if q.Get("q") == "*:*" {
			fq := q["fq"]
			if len(fq) != 2 || fq[0] != "type:provider" || q.Get("rows") != "2" {
				t.Errorf("unexpected provider lookup: %v", r.URL.RawQuery)
			}
			slug := strings.Trim(strings.TrimPrefix(fq[1], "slug:"), `"`)
			docs := docsBySlug[slug]
			if docs == "" {
				docs = "[]"
			}
			fmt.Fprintf(w, `{"response":{"numFound":%d,"docs":%s}}`, strings.Count(docs, "{"), docs)
			return
		}

		if q.Get("rows") != "0" {
			t.Errorf("count query should not fetch rows: %v", r.URL.RawQuery)
		}
		fmt.Fprintf(w, `{"response":{"numFound":%d,"docs":[]}}`, counts[q.Get("q")])
	}))
	t.Cleanup(srv.Close)
	return srv
}

func newTestClient(t *testing.T, srv *httptest.Server, logs *bytes.Buffer) *Client {
	t.Helper()
	logger := slog.New(slog.NewTextHandler(logs, nil))
	c, err := NewClient(srv.URL+"/solr/dbnomics/", logger)
	if err != nil {
		t.Fatalf("NewClient failed: %v", err)
	}
	return c
}

func TestCounts_SingleMatch(t *testing.T) {
	srv := newSolr(t,
		map[string]string{"ecb": `[{"code":"ECB","slug":"ecb"}]`},
		map[string]int{
			`type:dataset AND provider_code:"ECB"`: 112,
			`type:series AND provider_code:"ECB"`:  1290433,
		},
	)
	var logs bytes.Buffer
	c := newTestClient(t, srv, &logs)

	got := c.Lookup(context.Background(), "ecb")
	if got == nil {
		t.Fatalf("expected counts, got nil; logs=%s", logs.String())
	}
	if got.ProviderCode != "ECB" || got.Datasets != 112 || got.Series != 1290433 {
		t.Errorf("unexpected counts: %+v", got)
	}
	if logs.Len() != 0 {
		t.Errorf("unexpected warnings: %s", logs.String())
	}
}

func TestCounts_ZeroMatchIsAbsent(t *testing.T) {
	srv := newSolr(t, nil, nil)
	var logs bytes.Buffer
	c := newTestClient(t, srv, &logs)

	_, err := c.Counts(context.Background(), "ghost")
	if !errors.Is(err, ErrProviderNotFound) {
		t.Fatalf("expected ErrProviderNotFound, got %v", err)
	}
	if got := c.Lookup(context.Background(), "ghost"); got != nil {
		t.Fatalf("expected nil counts, got %+v", got)
	}
	if !strings.Contains(logs.String(), "provider=ghost") {
		t.Errorf("expected a warning naming the provider, got %q", logs.String())
	}
}

func TestCounts_MultipleMatchesIsAbsent(t *testing.T) {
	srv := newSolr(t,
		map[string]string{"dup": `[{"code":"A","slug":"dup"},{"code":"B","slug":"dup"}]`},
		nil,
	)
	var logs bytes.Buffer
	c := newTestClient(t, srv, &logs)

	_, err := c.Counts(context.Background(), "dup")
	if !errors.Is(err, ErrProviderAmbiguous) {
		t.Fatalf("expected ErrProviderAmbiguous, got %v", err)
	}
	if got := c.Lookup(context.Background(), "dup"); got != nil {
		t.Fatalf("expected nil counts, got %+v", got)
	}
}

func TestCounts_ServerErrorIsAbsorbedByLookup(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		http.Error(w, "core is loading", http.StatusServiceUnavailable)
	}))
	t.Cleanup(srv.Close)
	var logs bytes.Buffer
	c := newTestClient(t, srv, &logs)

	_, err := c.Counts(context.Background(), "ecb")
	if err == nil || !strings.Contains(err.Error(), "http 503") {
		t.Fatalf("expected http 503 error, got %v", err)
	}
	if got := c.Lookup(context.Background(), "ecb"); got != nil {
		t.Fatalf("expected nil counts, got %+v", got)
	}
	if !strings.Contains(logs.String(), "enrichment unavailable") {
		t.Errorf("expected warning, got %q", logs.String())
	}
}

func TestCounts_MalformedJSON(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		_, _ = w.Write([]byte("<html>"))
	}))
	t.Cleanup(srv.Close)
	var logs bytes.Buffer
	c := newTestClient(t, srv, &logs)

	if _, err := c.Counts(context.Background(), "ecb"); err == nil {
		t.Fatal("expected decode error")
	}
}

func TestNewClient_EmptyBaseURL(t *testing.T) {
	if _, err := NewClient("  ", nil); err == nil {
		t.Fatal("expected error")
	}
}

func TestQuote(t *testing.T) {
	if got := quote(`a"b\c`); got != `"a\"b\\c"` {
		t.Errorf("quote = %s", got)
	}
}
