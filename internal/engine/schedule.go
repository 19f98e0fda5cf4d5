package engine

import (
	"context"
	"fmt"

	"fetcherdash/internal/forge"
)

// ScheduleCardinalityError reports a fetcher with more than one schedule.
// Fetchers are provisioned with at most one, so this is a configuration fault.
type ScheduleCardinalityError struct {
	Project string
	Count   int
}

func (e *ScheduleCardinalityError) Error() string {
	return fmt.Sprintf("project %s has %d schedules, expected at most 1", e.Project, e.Count)
}

// ResolveSchedule returns the single schedule of a project, or nil when it has
// none.
func ResolveSchedule(ctx context.Context, src forge.Source, project forge.Project) (*forge.Schedule, error) {
	schedules, err := src.ListSchedules(ctx, project)
	if err != nil {
		return nil, fmt.Errorf("list schedules: %w", err)
	}
	switch len(schedules) {
	case 0:
		return nil, nil
	case 1:
		s := schedules[0]
		return &s, nil
	default:
		return nil, &ScheduleCardinalityError{Project: project.Path, Count: len(schedules)}
	}
}
