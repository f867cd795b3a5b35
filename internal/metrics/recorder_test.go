package metrics

import (
	"testing"
	"time"

	prom "github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/testutil"
	"github.com/stretchr/testify/require"
)

func TestPrometheusRecorder_CountsObservations(t *testing.T) {
	reg := prom.NewRegistry()
	rec := NewPrometheusRecorder(reg)

	rec.ObserveBuildDuration(2 * time.Second)
	rec.IncBuildOutcome("success")
	rec.AddPagesRendered(3)
	rec.AddItemsSkipped(1)

	require.Equal(t, float64(3), testutil.ToFloat64(rec.pagesRendered))
	require.Equal(t, float64(1), testutil.ToFloat64(rec.itemsSkipped))
	require.Equal(t, float64(1), testutil.ToFloat64(rec.buildOutcome.WithLabelValues("success")))
}

func TestNoopRecorder_IsSafe(t *testing.T) {
	var rec Recorder = NoopRecorder{}
	rec.ObserveBuildDuration(time.Second)
	rec.IncBuildOutcome("failed")
	rec.AddPagesRendered(1)
	rec.AddItemsSkipped(1)
}
