package github

import (
	"fmt"
	"time"

	"github.com/robfig/cron/v3"
	"gopkg.in/yaml.v3"
)

type workflowFile struct {
	// yaml.v3 keeps the bare `on` key as a string, not a YAML 1.1 boolean.
	On yaml.Node `yaml:"on"`
}

// ParseScheduleCrons returns the cron expressions of a workflow's
// `on.schedule` trigger, in file order. `on: push` and `on: [push, pull_request]`
// forms carry no schedule.
func ParseScheduleCrons(content []byte) ([]string, error) {
	var wf workflowFile
	if err := yaml.Unmarshal(content, &wf); err != nil {
		return nil, fmt.Errorf("parse workflow: %w", err)
	}
	if wf.On.Kind != yaml.MappingNode {
		return nil, nil
	}

	var schedule *yaml.Node
	for i := 0; i+1 < len(wf.On.Content); i += 2 {
		if wf.On.Content[i].Value == "schedule" {
			schedule = wf.On.Content[i+1]
			break
		}
	}
	if schedule == nil || schedule.Kind != yaml.SequenceNode {
		return nil, nil
	}

	var entries []struct {
		Cron string `yaml:"cron"`
	}
	if err := schedule.Decode(&entries); err != nil {
		return nil, fmt.Errorf("decode on.schedule: %w", err)
	}
	out := make([]string, 0, len(entries))
	for _, e := range entries {
		if e.Cron != "" {
			out = append(out, e.Cron)
		}
	}
	return out, nil
}

// NextRun computes the next activation of a standard 5-field cron expression
// after now. GitHub evaluates schedules in UTC. Invalid expressions yield nil.
func NextRun(expr string, now time.Time) *time.Time {
	sched, err := cron.ParseStandard(expr)
	if err != nil {
		return nil
	}
	next := sched.Next(now.UTC())
	if next.IsZero() {
		return nil
	}
	return &next
}
