package engine

import (
	"context"
	"fmt"

	"fetcherdash/internal/config"
	"fetcherdash/internal/forge"
)

// ResolveProviders lists the fetcher group and returns the filtered, ordered
// provider sequence. Failing to list the group is fatal.
func ResolveProviders(ctx context.Context, src forge.Source, cfg *config.Config) ([]Provider, error) {
	projects, err := src.ListGroupProjects(ctx, cfg.Targeting.Group)
	if err != nil {
		return nil, fmt.Errorf("enumerate providers: %w", err)
	}
	return FilterProviders(projects, cfg), nil
}

// ResolveImporter looks up the shared importer project.
func ResolveImporter(ctx context.Context, src forge.Source, cfg *config.Config) (forge.Project, error) {
	p, err := src.GetProject(ctx, cfg.Targeting.Importer)
	if err != nil {
		return forge.Project{}, fmt.Errorf("resolve importer: %w", err)
	}
	return p, nil
}
