package transport

import (
	"fmt"
	"log/slog"
	"net/http"
	"time"

	"golang.org/x/oauth2"
)

type options struct {
	verbose bool
	logger  *slog.Logger
	token   string
	base    http.RoundTripper
	budget  *Budget
}

type Option func(*options)

// WithVerbose logs one debug line per request and per response.
func WithVerbose(enabled bool, logger *slog.Logger) Option {
	return func(o *options) {
		o.verbose = enabled
		o.logger = logger
	}
}

// WithToken authenticates every request with a static token.
func WithToken(token string) Option {
	return func(o *options) {
		o.token = token
	}
}

// WithBase replaces http.DefaultTransport (tests use this to inject fakes).
func WithBase(rt http.RoundTripper) Option {
	return func(o *options) {
		o.base = rt
	}
}

// WithBudget makes every request wait on b. Clients talking to the same API
// should share one Budget.
func WithBudget(b *Budget) Option {
	return func(o *options) {
		o.budget = b
	}
}

// loggingRoundTripper wraps an underlying transport and emits one line per
// request and response (including latency).
type loggingRoundTripper struct {
	base   http.RoundTripper
	logger *slog.Logger
	name   string
}

func (t *loggingRoundTripper) RoundTrip(req *http.Request) (*http.Response, error) {
	start := time.Now()
	t.logger.Debug(t.name+" request", "method", req.Method, "url", req.URL.Redacted())
	resp, err := t.base.RoundTrip(req)
	dur := time.Since(start).Truncate(time.Millisecond)
	if err != nil {
		t.logger.Debug(t.name+" error", "after", dur, "error", err)
		return resp, err
	}
	t.logger.Debug(t.name+" response", "status", resp.StatusCode, "duration", dur)
	return resp, err
}

// NewHTTPClient builds the http.Client shared by the forge and search clients.
// name prefixes verbose log lines ("gitlab api", "solr", ...).
func NewHTTPClient(name string, opts ...Option) (*http.Client, error) {
	if name == "" {
		return nil, fmt.Errorf("transport: name is empty")
	}

	o := &options{}
	for _, apply := range opts {
		if apply != nil {
			apply(o)
		}
	}
	if o.verbose && o.logger == nil {
		o.logger = slog.Default()
	}

	rt := o.base
	if rt == nil {
		rt = http.DefaultTransport
	}
	if o.budget != nil {
		rt = &budgetRoundTripper{base: rt, budget: o.budget}
	}
	if o.verbose {
		rt = &loggingRoundTripper{base: rt, logger: o.logger, name: name}
	}
	if o.token != "" {
		ts := oauth2.StaticTokenSource(&oauth2.Token{AccessToken: o.token})
		rt = &oauth2.Transport{Source: ts, Base: rt}
	}
	// Always provide an http.Client so verbose logging works even without a token.
	return &http.Client{Transport: rt}, nil
}
