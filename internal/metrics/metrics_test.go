package metrics

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/prometheus/client_golang/prometheus/testutil"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"NewsCurator/internal/domain"
)

func TestRecorderCounts(t *testing.T) {
	t.Parallel()

	r := NewRecorder()
	r.Ingested(3)
	r.Ingested(0)
	r.Transitions([]domain.Transition{
		{Kind: domain.TransitionPromoted, From: domain.StatusFresh, To: domain.StatusElevated},
		{Kind: domain.TransitionPromoted, From: domain.StatusFresh, To: domain.StatusElevated},
		{Kind: domain.TransitionRemoved, From: domain.StatusFresh},
		{Kind: domain.TransitionIngested, To: domain.StatusFresh},
	})
	r.StoreSize([]domain.Story{{Status: domain.StatusFresh}, {Status: domain.StatusArchival}, {Status: domain.StatusFresh}})

	assert.InDelta(t, 3, testutil.ToFloat64(r.ingested), 1e-9)
	assert.InDelta(t, 2, testutil.ToFloat64(r.promotions.WithLabelValues("fresh", "elevated")), 1e-9)
	assert.InDelta(t, 1, testutil.ToFloat64(r.expiries.WithLabelValues("removed")), 1e-9)
	assert.InDelta(t, 2, testutil.ToFloat64(r.stories.WithLabelValues("fresh")), 1e-9)
	assert.InDelta(t, 0, testutil.ToFloat64(r.stories.WithLabelValues("elevated")), 1e-9)
}

func TestWriteTextfile(t *testing.T) {
	t.Parallel()

	r := NewRecorder()
	r.Ingested(1)
	r.RunCompleted("tick", 1700000000)

	path := filepath.Join(t.TempDir(), "metrics", "newscurator.prom")
	require.NoError(t, r.WriteTextfile(path))

	raw, err := os.ReadFile(path)
	require.NoError(t, err)
	assert.Contains(t, string(raw), "newscurator_stories_ingested_total 1")
	assert.Contains(t, string(raw), `newscurator_last_run_timestamp_seconds{pipeline="tick"}`)

	assert.NoError(t, r.WriteTextfile(""))
	var nilRecorder *Recorder
	nilRecorder.Ingested(1)
	assert.NoError(t, nilRecorder.WriteTextfile(path))
}
