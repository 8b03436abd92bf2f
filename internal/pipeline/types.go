package pipeline

import "time"

// RunStatus is the outcome label of a planner run
type RunStatus string

const (
	StatusCompleted RunStatus = "completed"
	StatusFailed    RunStatus = "failed"
)

// Recorder receives one observation per run
type Recorder interface {
	ObserveRun(status string, d time.Duration, included, skipped int)
}

type noopRecorder struct{}

func (noopRecorder) ObserveRun(string, time.Duration, int, int) {}
