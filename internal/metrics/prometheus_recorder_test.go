package metrics

import (
	"os"
	"path/filepath"
	"testing"
	"time"

	prom "github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/testutil"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestPrometheusRecorder(t *testing.T) {
	reg := prom.NewRegistry()
	pr := NewPrometheusRecorder(reg)
	pr.ObserveStageDuration("load", 150*time.Millisecond)
	pr.ObserveBuildDuration(500 * time.Millisecond)
	pr.IncDocumentResult("post", ResultRendered)
	pr.IncDocumentResult("post", ResultRendered)
	pr.IncDocumentResult("static", ResultCopied)
	pr.IncBuildOutcome(BuildOutcomeSuccess)
	pr.SetWorkers(3)

	mfs, err := reg.Gather()
	require.NoError(t, err)
	require.NotEmpty(t, mfs)

	assert.InDelta(t, 2, testutil.ToFloat64(pr.documentResults.WithLabelValues("post", "rendered")), 0)
	assert.InDelta(t, 1, testutil.ToFloat64(pr.documentResults.WithLabelValues("static", "copied")), 0)
	assert.InDelta(t, 1, testutil.ToFloat64(pr.buildOutcome.WithLabelValues("success")), 0)
	assert.InDelta(t, 3, testutil.ToFloat64(pr.workers), 0)
}

func TestWriteTextfile(t *testing.T) {
	reg := prom.NewRegistry()
	pr := NewPrometheusRecorder(reg)
	pr.IncBuildOutcome(BuildOutcomeFailed)

	path := filepath.Join(t.TempDir(), "blogbuilder.prom")
	require.NoError(t, WriteTextfile(path, reg))

	data, err := os.ReadFile(path)
	require.NoError(t, err)
	assert.Contains(t, string(data), `blogbuilder_build_outcomes_total{outcome="failed"} 1`)

	require.Error(t, WriteTextfile(path, nil))
}
