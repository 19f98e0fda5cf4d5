package classify

import (
	"strings"
	"time"
)

// Status is the closed job status vocabulary used by the report.
type Status int

const (
	StatusSuccess Status = iota
	StatusFailed
	StatusCanceled
	StatusRunning
	StatusStuck

	// StatusCount is the number of statuses; lookup tables are sized with it.
	StatusCount
)

var statusNames = [StatusCount]string{
	StatusSuccess:  "success",
	StatusFailed:   "failed",
	StatusCanceled: "canceled",
	StatusRunning:  "running",
	StatusStuck:    "stuck",
}

func (s Status) String() string {
	if s < 0 || s >= StatusCount {
		return "unknown"
	}
	return statusNames[s]
}

func (s Status) MarshalText() ([]byte, error) {
	return []byte(s.String()), nil
}

// DeriveStatus maps a raw forge status onto the report vocabulary.
//
// A job that never started is stuck whatever the forge says. Statuses outside
// the vocabulary (pending, created, manual, skipped, ...) count as success.
func DeriveStatus(raw string, startedAt *time.Time) Status {
	if startedAt == nil || startedAt.IsZero() {
		return StatusStuck
	}
	switch strings.ToLower(strings.TrimSpace(raw)) {
	case "failed":
		return StatusFailed
	case "canceled", "cancelled":
		return StatusCanceled
	case "running":
		return StatusRunning
	default:
		return StatusSuccess
	}
}
