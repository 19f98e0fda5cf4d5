package engine

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"time"

	"fetcherdash/internal/classify"
	"fetcherdash/internal/config"
	"fetcherdash/internal/enrich"
	"fetcherdash/internal/forge"
)

// Enricher supplies search index counts for a provider. Lookup returns nil
// when the counts are unknown; it never fails the run.
type Enricher interface {
	Lookup(ctx context.Context, slug string) *enrich.Counts
}

// Row is the dashboard line of one provider.
type Row struct {
	Provider Provider
	// Schedule is nil when the fetcher has none.
	Schedule  *forge.Schedule
	Downloads []JobRef
	Converts  []JobRef

	Indexations []JobRef
	// IndexFound is false when no importer job carried the provider slug.
	IndexFound bool

	// JobsScanned counts the fetcher jobs read, classified or not.
	JobsScanned int

	// Counts is nil when enrichment is disabled or inconclusive.
	Counts *enrich.Counts
}

// Report is one complete, consistent snapshot.
type Report struct {
	Rows []Row

	Forge    string
	Group    string
	Importer forge.Project

	FetcherJobLimit  int
	ImporterJobLimit int
	// Ref is the branch fetcher jobs were filtered on; empty for all branches.
	Ref string

	EnrichmentEnabled bool

	GeneratedAt time.Time
	Elapsed     time.Duration
}

type Engine struct {
	Source forge.Source
	// Enricher is optional; nil disables enrichment.
	Enricher Enricher
	Logger   *slog.Logger

	FetcherClassifier  classify.Classifier
	ImporterClassifier classify.Classifier

	now func() time.Time
}

func NewEngine(src forge.Source, enricher Enricher, logger *slog.Logger) *Engine {
	if logger == nil {
		logger = slog.Default()
	}
	return &Engine{
		Source:             src,
		Enricher:           enricher,
		Logger:             logger,
		FetcherClassifier:  classify.NewFetcherClassifier(),
		ImporterClassifier: classify.NewImporterClassifier(),
		now:                time.Now,
	}
}

func (e *Engine) correlator(cfg *config.Config) *Correlator {
	ref := cfg.Jobs.Ref
	if cfg.Jobs.AllBranches {
		ref = ""
	}
	return &Correlator{
		Source:   e.Source,
		Fetcher:  e.FetcherClassifier,
		Importer: e.ImporterClassifier,
		Logger:   e.Logger,
		Ref:      ref,
	}
}

// Run builds the report. Any error is fatal: no partial report is returned.
func (e *Engine) Run(ctx context.Context, cfg *config.Config) (*Report, error) {
	if e.Source == nil {
		return nil, errors.New("engine: source is nil")
	}
	start := e.now()
	corr := e.correlator(cfg)

	e.Logger.Info("enumerating providers", "forge", e.Source.Name(), "group", cfg.Targeting.Group)
	providers, err := ResolveProviders(ctx, e.Source, cfg)
	if err != nil {
		return nil, err
	}
	e.Logger.Info("providers found", "count", len(providers))

	importer, err := ResolveImporter(ctx, e.Source, cfg)
	if err != nil {
		return nil, err
	}
	indexJobs, err := corr.IndexJobs(ctx, importer, cfg.Jobs.ImporterLimit)
	if err != nil {
		return nil, err
	}

	enricher := e.Enricher
	if !cfg.Enrichment.Enabled {
		enricher = nil
	}

	rows := make([]Row, len(providers))
	err = forEach(ctx, len(providers), cfg.Runtime.Concurrency, func(ctx context.Context, i int) error {
		p := providers[i]
		row, err := e.buildRow(ctx, cfg, corr, enricher, p, indexJobs)
		if err != nil {
			return fmt.Errorf("provider %q: %w", p.Slug, err)
		}
		rows[i] = row
		return nil
	})
	if err != nil {
		return nil, err
	}

	now := e.now()
	return &Report{
		Rows:              rows,
		Forge:             e.Source.Name(),
		Group:             cfg.Targeting.Group,
		Importer:          importer,
		FetcherJobLimit:   cfg.Jobs.FetcherLimit,
		ImporterJobLimit:  cfg.Jobs.ImporterLimit,
		Ref:               corr.Ref,
		EnrichmentEnabled: enricher != nil,
		GeneratedAt:       now,
		Elapsed:           now.Sub(start),
	}, nil
}

func (e *Engine) buildRow(ctx context.Context, cfg *config.Config, corr *Correlator, enricher Enricher, p Provider, indexJobs map[string][]JobRef) (Row, error) {
	e.Logger.Debug("processing provider", "provider", p.Slug, "ordinal", p.Ordinal)

	schedule, err := ResolveSchedule(ctx, e.Source, p.Project)
	if err != nil {
		return Row{}, err
	}
	jobs, err := corr.FetcherJobs(ctx, p.Project, cfg.Jobs.FetcherLimit)
	if err != nil {
		return Row{}, err
	}

	row := Row{
		Provider:    p,
		Schedule:    schedule,
		Downloads:   firstN(jobs.Downloads, JobsPerBucket),
		Converts:    firstN(jobs.Converts, JobsPerBucket),
		JobsScanned: jobs.Scanned,
	}
	if idx, ok := indexJobs[p.Slug]; ok {
		row.IndexFound = true
		row.Indexations = firstN(idx, JobsPerBucket)
	}
	if enricher != nil {
		row.Counts = enricher.Lookup(ctx, p.Slug)
	}
	return row, nil
}

// ListProviders enumerates providers for `providers list`. With
// onlyScheduled, providers whose single schedule is missing or inactive are
// dropped.
func (e *Engine) ListProviders(ctx context.Context, cfg *config.Config, onlyScheduled bool) ([]Provider, error) {
	providers, err := ResolveProviders(ctx, e.Source, cfg)
	if err != nil {
		return nil, err
	}
	if !onlyScheduled {
		return providers, nil
	}

	keep := make([]bool, len(providers))
	err = forEach(ctx, len(providers), cfg.Runtime.Concurrency, func(ctx context.Context, i int) error {
		s, err := ResolveSchedule(ctx, e.Source, providers[i].Project)
		if err != nil {
			return fmt.Errorf("provider %q: %w", providers[i].Slug, err)
		}
		keep[i] = s != nil && s.Active
		return nil
	})
	if err != nil {
		return nil, err
	}

	var out []Provider
	for i, p := range providers {
		if keep[i] {
			out = append(out, p)
		}
	}
	return out, nil
}
