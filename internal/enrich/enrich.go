// Package enrich reads per-provider dataset and series counts from the Solr
// core that backs the public search.
package enrich

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"strings"

	"github.com/google/go-querystring/query"

	"fetcherdash/internal/transport"
)

var (
	// ErrProviderNotFound means the index holds no provider document for the slug.
	ErrProviderNotFound = errors.New("provider not found in search index")

	// ErrProviderAmbiguous means several provider documents share the slug.
	ErrProviderAmbiguous = errors.New("several providers match slug in search index")
)

// Counts is the enrichment record of one provider.
type Counts struct {
	ProviderCode string `json:"provider_code"`
	Datasets     int64  `json:"datasets"`
	Series       int64  `json:"series"`
}

type Client struct {
	selectURL string
	http      *http.Client
	logger    *slog.Logger
}

// NewClient targets a Solr core; baseURL is the core root and requests go to
// baseURL + "/select".
func NewClient(baseURL string, logger *slog.Logger, opts ...transport.Option) (*Client, error) {
	base := strings.TrimRight(strings.TrimSpace(baseURL), "/")
	if base == "" {
		return nil, fmt.Errorf("search client: base URL is empty")
	}
	hc, err := transport.NewHTTPClient("solr", opts...)
	if err != nil {
		return nil, fmt.Errorf("search client: %w", err)
	}
	if logger == nil {
		logger = slog.Default()
	}
	return &Client{selectURL: base + "/select", http: hc, logger: logger}, nil
}

type selectParams struct {
	Q      string   `url:"q"`
	Filter []string `url:"fq,omitempty"`
	Fields string   `url:"fl,omitempty"`
	Rows   int      `url:"rows"`
	Format string   `url:"wt"`
}

type selectResponse struct {
	Response struct {
		NumFound int64             `json:"numFound"`
		Docs     []json.RawMessage `json:"docs"`
	} `json:"response"`
}

type providerDoc struct {
	Code string `json:"code"`
	Slug string `json:"slug"`
}

// Lookup returns the counts of a provider, or nil when they cannot be
// determined. Every failure is logged and absorbed so one provider never
// breaks the report.
func (c *Client) Lookup(ctx context.Context, slug string) *Counts {
	counts, err := c.Counts(ctx, slug)
	if err != nil {
		c.logger.Warn("enrichment unavailable", "provider", slug, "error", err)
		return nil
	}
	return counts
}

// Counts queries the provider document for slug and then counts its datasets
// and series.
func (c *Client) Counts(ctx context.Context, slug string) (*Counts, error) {
	var providers selectResponse
	err := c.query(ctx, selectParams{
		Q:      "*:*",
		Filter: []string{"type:provider", "slug:" + quote(slug)},
		Fields: "code,slug",
		Rows:   2,
	}, &providers)
	if err != nil {
		return nil, err
	}

	switch len(providers.Response.Docs) {
	case 0:
		return nil, fmt.Errorf("%w: %q", ErrProviderNotFound, slug)
	case 1:
	default:
		return nil, fmt.Errorf("%w: %q (%d documents)", ErrProviderAmbiguous, slug, providers.Response.NumFound)
	}

	var doc providerDoc
	if err := json.Unmarshal(providers.Response.Docs[0], &doc); err != nil {
		return nil, fmt.Errorf("decode provider document: %w", err)
	}
	if doc.Code == "" {
		return nil, fmt.Errorf("provider document for %q has no code", slug)
	}

	datasets, err := c.count(ctx, "dataset", doc.Code)
	if err != nil {
		return nil, err
	}
	series, err := c.count(ctx, "series", doc.Code)
	if err != nil {
		return nil, err
	}
	return &Counts{ProviderCode: doc.Code, Datasets: datasets, Series: series}, nil
}

func (c *Client) count(ctx context.Context, docType, providerCode string) (int64, error) {
	var resp selectResponse
	err := c.query(ctx, selectParams{
		Q:    "type:" + docType + " AND provider_code:" + quote(providerCode),
		Rows: 0,
	}, &resp)
	if err != nil {
		return 0, fmt.Errorf("count %s documents: %w", docType, err)
	}
	return resp.Response.NumFound, nil
}

func (c *Client) query(ctx context.Context, params selectParams, out *selectResponse) error {
	params.Format = "json"
	v, err := query.Values(params)
	if err != nil {
		return fmt.Errorf("encode search query: %w", err)
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, c.selectURL+"?"+v.Encode(), nil)
	if err != nil {
		return fmt.Errorf("build search request: %w", err)
	}
	req.Header.Set("Accept", "application/json")

	resp, err := c.http.Do(req)
	if err != nil {
		return fmt.Errorf("search request: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode < 200 || resp.StatusCode >= 300 {
		body, _ := io.ReadAll(io.LimitReader(resp.Body, 512))
		return fmt.Errorf("search request: http %d: %s", resp.StatusCode, strings.TrimSpace(string(body)))
	}
	if err := json.NewDecoder(resp.Body).Decode(out); err != nil {
		return fmt.Errorf("decode search response: %w", err)
	}
	return nil
}

// quote renders a Solr phrase term.
func quote(s string) string {
	r := strings.NewReplacer(`\`, `\\`, `"`, `\"`)
	return `"` + r.Replace(s) + `"`
}
