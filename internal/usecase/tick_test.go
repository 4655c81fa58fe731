package usecase

import (
	"context"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"NewsCurator/internal/domain"
	"NewsCurator/internal/infrastructure/slack"
	"NewsCurator/internal/logging"
	"NewsCurator/internal/metrics"
	"NewsCurator/internal/store"
)

type tickFixture struct {
	tick       *Tick
	store      *store.Store
	publishers map[domain.Status]*fakePublisher
	journal    *memoryJournal
	overviews  string
}

func seedStories() []domain.Story {
	return []domain.Story{
		{ID: "promote", URL: "https://a.example/1", Title: "Promote me", Source: "A", Status: domain.StatusFresh,
			PublishedUTC: at(-30 * time.Hour), Accuracy: 0.8, Corroborations: 2, HandleFresh: at(-30 * time.Hour)},
		{ID: "expire", URL: "https://b.example/1", Title: "Expire me", Source: "B", Status: domain.StatusFresh,
			PublishedUTC: at(-50 * time.Hour), Accuracy: 0.5, HandleFresh: at(-50 * time.Hour)},
		{ID: "keep-forever", URL: "https://c.example/1", Title: "Landmark", Source: "C", Status: domain.StatusArchival,
			PublishedUTC: at(-3400 * time.Hour), Accuracy: 1, Corroborations: 3, HandleArchival: at(-3300 * time.Hour)},
		{ID: "terminal", URL: "https://d.example/1", Title: "Done", Source: "D", Status: domain.StatusPermanentlyArchived,
			PublishedUTC: at(-9000 * time.Hour), Accuracy: 1, ValueScore: 0.95},
		{ID: "dry", URL: "https://e.example/1", Title: "Never surfaced", Source: "E", Status: domain.StatusFresh,
			PublishedUTC: at(-100 * time.Hour), Accuracy: 0.5},
	}
}

func newTickFixture(t *testing.T, stories []domain.Story) *tickFixture {
	t.Helper()

	dir := t.TempDir()
	st := store.New(filepath.Join(dir, "items.jsonl"), logging.Discard())
	for _, s := range stories {
		st.Upsert(s)
	}
	require.NoError(t, st.Save())

	pubs := map[domain.Status]*fakePublisher{
		domain.StatusFresh:    {},
		domain.StatusElevated: {},
		domain.StatusArchival: {engagement: map[string]domain.Engagement{at(-3300 * time.Hour): {Replies: 10, Pinned: true}}},
	}
	f := &tickFixture{
		store:      st,
		publishers: pubs,
		journal:    &memoryJournal{},
		overviews:  filepath.Join(dir, "overviews.json"),
	}
	f.tick = NewTick(TickDeps{
		Store:   st,
		Engine:  testEngine(),
		Machine: testMachine(),
		Publishers: Publishers{
			domain.StatusFresh:    pubs[domain.StatusFresh],
			domain.StatusElevated: pubs[domain.StatusElevated],
			domain.StatusArchival: pubs[domain.StatusArchival],
		},
		Journal:      f.journal,
		Metrics:      metrics.NewRecorder(),
		OverviewPath: f.overviews,
		Logger:       logging.Discard(),
		Now:          func() time.Time { return testNow },
		NewRunID:     func() string { return "tick-1" },
	})
	return f
}

func TestTickAppliesLifecycle(t *testing.T) {
	t.Parallel()

	f := newTickFixture(t, seedStories())
	report, err := f.tick.Run(context.Background())
	require.NoError(t, err)

	assert.Equal(t, 4, report.Evaluated)
	assert.Equal(t, 1, report.Promoted)
	assert.Equal(t, 1, report.Removed)
	assert.Equal(t, 1, report.PermanentlyArchived)

	reloaded := store.New(f.store.Path(), logging.Discard())
	require.NoError(t, reloaded.Load())
	assert.Equal(t, 4, reloaded.Len())

	promoted, ok := reloaded.Get("promote")
	require.True(t, ok)
	assert.Equal(t, domain.StatusElevated, promoted.Status)
	assert.Equal(t, at(-30*time.Hour), promoted.HandleFresh)
	assert.Equal(t, testNow.Format(time.RFC3339), promoted.HandleElevated, "new tier post replaces the carried handle")
	assert.Contains(t, f.publishers[domain.StatusElevated].posts[0], "Promote me")

	_, ok = reloaded.Get("expire")
	assert.False(t, ok)
	assert.Equal(t, []string{at(-50 * time.Hour)}, f.publishers[domain.StatusFresh].deletes)

	landmark, ok := reloaded.Get("keep-forever")
	require.True(t, ok)
	assert.Equal(t, domain.StatusPermanentlyArchived, landmark.Status)
	assert.Equal(t, 10, landmark.Replies)
	assert.True(t, landmark.Pinned)
	assert.InDelta(t, 0.9, landmark.ValueScore, 1e-9)

	terminal, _ := reloaded.Get("terminal")
	assert.InDelta(t, 0.95, terminal.ValueScore, 1e-9, "terminal stories are not rescored")

	dry, _ := reloaded.Get("dry")
	assert.Equal(t, domain.StatusFresh, dry.Status, "no handle means no expiry")

	kinds := map[domain.TransitionKind]int{}
	for _, tr := range f.journal.transitions {
		kinds[tr.Kind]++
		assert.Equal(t, "tick-1", tr.RunID)
	}
	assert.Equal(t, map[domain.TransitionKind]int{
		domain.TransitionPromoted:  1,
		domain.TransitionRemoved:   1,
		domain.TransitionPermanent: 1,
	}, kinds)

	overviews, err := store.LoadOverviews(f.overviews)
	require.NoError(t, err)
	assert.Len(t, overviews, 3)
	assert.Contains(t, f.publishers[domain.StatusFresh].posts, "AI news live overview: 1 active stories")
}

func TestTickIsIdempotent(t *testing.T) {
	t.Parallel()

	f := newTickFixture(t, seedStories())
	_, err := f.tick.Run(context.Background())
	require.NoError(t, err)
	first := f.store.Values()

	report, err := f.tick.Run(context.Background())
	require.NoError(t, err)
	assert.Empty(t, report.Transitions)

	second := f.store.Values()
	require.Len(t, second, len(first))
	for i := range first {
		assert.Equal(t, first[i].Status, second[i].Status)
		assert.Equal(t, first[i].CurrentHandle(), second[i].CurrentHandle())
	}

	// Existing overview handles are updated in place.
	assert.NotEmpty(t, f.publishers[domain.StatusFresh].updates)
}

func TestTickNeverDemotes(t *testing.T) {
	t.Parallel()

	f := newTickFixture(t, seedStories())
	before := map[string]int{}
	for _, s := range f.store.Values() {
		before[s.ID] = s.Status.Rank()
	}

	for i := 0; i < 3; i++ {
		_, err := f.tick.Run(context.Background())
		require.NoError(t, err)
		for _, s := range f.store.Values() {
			assert.GreaterOrEqual(t, s.Status.Rank(), before[s.ID], s.ID)
			before[s.ID] = s.Status.Rank()
		}
	}
}

func TestTickKeepsEngagementOnFailure(t *testing.T) {
	t.Parallel()

	story := domain.Story{ID: "x", URL: "https://x.example", Title: "X", Source: "X", Status: domain.StatusFresh,
		PublishedUTC: at(-time.Hour), Accuracy: 0.5, HandleFresh: at(-time.Hour), Replies: 4, Pinned: true}
	f := newTickFixture(t, []domain.Story{story})
	f.publishers[domain.StatusFresh].failEngage = map[string]bool{story.HandleFresh: true}

	_, err := f.tick.Run(context.Background())
	require.NoError(t, err)

	got, ok := f.store.Get("x")
	require.True(t, ok)
	assert.Equal(t, 4, got.Replies)
	assert.True(t, got.Pinned)
}

func TestTickReadsEngagementFromIssuingChannel(t *testing.T) {
	t.Parallel()

	issued := at(-170 * time.Hour)
	story := domain.Story{ID: "carried", URL: "https://x.example/2", Title: "Carried", Source: "X",
		Status: domain.StatusElevated, PublishedUTC: at(-200 * time.Hour), Accuracy: 0.9,
		HandleFresh: issued, HandleElevated: issued, Replies: 6, Pinned: true}
	f := newTickFixture(t, []domain.Story{story})
	f.publishers[domain.StatusFresh].engagement = map[string]domain.Engagement{issued: {Replies: 6, Pinned: true}}
	f.tick.publishers[domain.StatusElevated] = slack.NewNullPublisher("", logging.Discard())

	report, err := f.tick.Run(context.Background())
	require.NoError(t, err)
	assert.Equal(t, 1, report.Promoted)
	assert.Zero(t, report.Removed)

	got, ok := f.store.Get("carried")
	require.True(t, ok)
	assert.Equal(t, domain.StatusArchival, got.Status)
	assert.Equal(t, 6, got.Replies)
	assert.True(t, got.Pinned)
	assert.Equal(t, testNow.Format(time.RFC3339), got.HandleArchival)
}

func TestTickKeepsEngagementWithoutLiveChannel(t *testing.T) {
	t.Parallel()

	story := domain.Story{ID: "quiet", URL: "https://x.example/3", Title: "Quiet", Source: "X", Status: domain.StatusFresh,
		PublishedUTC: at(-time.Hour), Accuracy: 0.5, HandleFresh: at(-time.Hour), Replies: 2, Pinned: true}
	f := newTickFixture(t, []domain.Story{story})
	f.tick.publishers[domain.StatusFresh] = slack.NewNullPublisher("", logging.Discard())

	_, err := f.tick.Run(context.Background())
	require.NoError(t, err)

	got, ok := f.store.Get("quiet")
	require.True(t, ok)
	assert.Equal(t, 2, got.Replies)
	assert.True(t, got.Pinned)
}

func TestTickDeletesCarriedHandleInIssuingChannel(t *testing.T) {
	t.Parallel()

	issued := at(-200 * time.Hour)
	story := domain.Story{ID: "stale", URL: "https://x.example/4", Title: "Stale", Source: "X",
		Status: domain.StatusElevated, PublishedUTC: at(-200 * time.Hour), Accuracy: 0.5,
		HandleFresh: issued, HandleElevated: issued}
	f := newTickFixture(t, []domain.Story{story})

	report, err := f.tick.Run(context.Background())
	require.NoError(t, err)
	assert.Equal(t, 1, report.Removed)
	assert.Equal(t, []string{issued}, f.publishers[domain.StatusFresh].deletes)
	assert.Empty(t, f.publishers[domain.StatusElevated].deletes)
}

func TestTickReportsBadStories(t *testing.T) {
	t.Parallel()

	f := newTickFixture(t, []domain.Story{
		{ID: "bad", Status: domain.StatusFresh, PublishedUTC: "yesterday"},
		{ID: "good", Status: domain.StatusFresh, PublishedUTC: at(-time.Hour), Accuracy: 0.5},
	})
	_, err := f.tick.Run(context.Background())
	require.Error(t, err)
	assert.Contains(t, err.Error(), "bad")

	reloaded := store.New(f.store.Path(), logging.Discard())
	require.NoError(t, reloaded.Load())
	assert.Equal(t, 2, reloaded.Len(), "store still saved")
}
