// Package metrics defines the build metrics abstraction and its
// Prometheus implementation.
package metrics

import "time"

// Recorder receives build observations. The orchestrator calls it at the
// end of every build; serve mode exposes the Prometheus implementation.
type Recorder interface {
	ObserveBuildDuration(d time.Duration)
	IncBuildOutcome(outcome string) // outcome: success|failed
	AddPagesRendered(n int)
	AddItemsSkipped(n int)
}

// NoopRecorder is a Recorder that does nothing (default when metrics are
// not configured).
type NoopRecorder struct{}

func (NoopRecorder) ObserveBuildDuration(time.Duration) {}
func (NoopRecorder) IncBuildOutcome(string)             {}
func (NoopRecorder) AddPagesRendered(int)               {}
func (NoopRecorder) AddItemsSkipped(int)                {}
