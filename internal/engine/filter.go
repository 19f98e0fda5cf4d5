package engine

import (
	"sort"
	"strings"

	"fetcherdash/internal/config"
	"fetcherdash/internal/forge"
)

const (
	fetcherSuffix = "-fetcher"
	// Placeholder projects used to test the CI templates.
	placeholderPrefix = "dummy"
)

// Provider is one row of the dashboard, derived from a fetcher project.
type Provider struct {
	Slug string
	// Ordinal is the 1-based position in the final sequence.
	Ordinal  int
	Featured bool
	Project  forge.Project
}

// ProviderSlug returns the slug of a fetcher project name, or false when the
// project is not a fetcher (documentation, management, ...).
func ProviderSlug(name string) (string, bool) {
	slug, ok := strings.CutSuffix(name, fetcherSuffix)
	if !ok || slug == "" {
		return "", false
	}
	return slug, true
}

// FilterProviders turns group projects into the ordered provider sequence.
// The result is sorted by project name whatever order the source used.
func FilterProviders(projects []forge.Project, cfg *config.Config) []Provider {
	if cfg == nil {
		panic("engine.FilterProviders: cfg must not be nil")
	}

	sorted := make([]forge.Project, len(projects))
	copy(sorted, projects)
	sort.SliceStable(sorted, func(i, j int) bool { return sorted[i].Name < sorted[j].Name })

	var allow map[string]struct{}
	if len(cfg.Targeting.Fetchers) > 0 {
		allow = make(map[string]struct{}, len(cfg.Targeting.Fetchers))
		for _, s := range cfg.Targeting.Fetchers {
			allow[s] = struct{}{}
		}
	}

	var out []Provider
	for _, p := range sorted {
		slug, ok := ProviderSlug(p.Name)
		if !ok {
			continue
		}
		if strings.HasPrefix(p.Name, placeholderPrefix) {
			continue
		}
		if allow != nil {
			if _, ok := allow[slug]; !ok {
				continue
			}
		}
		out = append(out, Provider{
			Slug:     slug,
			Ordinal:  len(out) + 1,
			Featured: cfg.IsFeatured(slug),
			Project:  p,
		})
	}
	return out
}
