package usecase

import (
	"context"
	"errors"
	"strings"
	"sync"
	"time"

	"NewsCurator/internal/domain"
	"NewsCurator/internal/lifecycle"
	"NewsCurator/internal/scoring"
)

var testNow = time.Date(2025, 11, 10, 12, 0, 0, 0, time.UTC)

func at(offset time.Duration) string {
	return testNow.Add(offset).UTC().Format(time.RFC3339)
}

func rfc3339Clock(handle string) (time.Time, error) {
	return time.Parse(time.RFC3339, handle)
}

func testEngine() *scoring.Engine {
	return scoring.NewEngine(scoring.DefaultParams(), scoring.NewDefaultDomainTable())
}

func testMachine() *lifecycle.Machine {
	return lifecycle.NewMachine(lifecycle.DefaultRules(), rfc3339Clock)
}

type staticSource struct {
	records []domain.RawRecord
	err     error
}

func (s staticSource) FetchRecords(context.Context) ([]domain.RawRecord, error) {
	return s.records, s.err
}

type failingEnricher struct{}

func (failingEnricher) Enrich(context.Context, []domain.EnrichmentRequest) (map[string]domain.Enrichment, error) {
	return nil, errors.New("model unavailable")
}

// fakePublisher issues handles stamped with testNow so the RFC3339 clock can read them.
type fakePublisher struct {
	mu         sync.Mutex
	posts      []string
	updates    []string
	deletes    []string
	engagement map[string]domain.Engagement
	failPost   string
	failEngage map[string]bool
}

func (f *fakePublisher) Post(_ context.Context, text string) (string, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	if f.failPost != "" && strings.Contains(text, f.failPost) {
		return "", errors.New("invalid_blocks")
	}
	f.posts = append(f.posts, text)
	return testNow.Format(time.RFC3339), nil
}

func (f *fakePublisher) Update(_ context.Context, handle, text string) (string, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.updates = append(f.updates, text)
	return handle, nil
}

func (f *fakePublisher) Delete(_ context.Context, handle string) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.deletes = append(f.deletes, handle)
	return nil
}

func (f *fakePublisher) Engagement(_ context.Context, handle string) (domain.Engagement, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	if f.failEngage[handle] {
		return domain.Engagement{}, errors.New("rate limited")
	}
	return f.engagement[handle], nil
}

type memoryJournal struct {
	transitions []domain.Transition
}

func (m *memoryJournal) Record(_ context.Context, t []domain.Transition) error {
	m.transitions = append(m.transitions, t...)
	return nil
}
