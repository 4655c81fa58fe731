package usecase

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"sort"
	"strings"
	"time"

	"github.com/google/uuid"

	"NewsCurator/internal/aggregate"
	"NewsCurator/internal/canonical"
	"NewsCurator/internal/domain"
	"NewsCurator/internal/enrich"
	"NewsCurator/internal/metrics"
	"NewsCurator/internal/ports"
	"NewsCurator/internal/scoring"
	"NewsCurator/internal/store"
)

const (
	untitled      = "(untitled)"
	unknownSource = "unknown"
)

// IngestDeps wires the driven adapters of the ingest pipeline.
type IngestDeps struct {
	Sources   []ports.RecordSource
	Store     *store.Store
	Engine    *scoring.Engine
	Enricher  ports.Enricher
	Publisher ports.Publisher
	Journal   ports.Journal
	Metrics   *metrics.Recorder
	Logger    *slog.Logger
	MaxItems  int
	Now       func() time.Time
	NewRunID  func() string
}

// IngestReport summarizes one ingest run.
type IngestReport struct {
	RunID      string
	Fetched    int
	Candidates int
	Selected   int
	Admitted   int
}

// Ingest turns raw records into newly surfaced fresh stories.
type Ingest struct {
	sources   []ports.RecordSource
	store     *store.Store
	engine    *scoring.Engine
	enricher  ports.Enricher
	publisher ports.Publisher
	journal   ports.Journal
	metrics   *metrics.Recorder
	logger    *slog.Logger
	maxItems  int
	now       func() time.Time
	newRunID  func() string
}

// NewIngest constructs the ingest pipeline. Nil collaborators fall back to heuristic
// enrichment and no journal.
func NewIngest(deps IngestDeps) *Ingest {
	in := &Ingest{
		sources:   deps.Sources,
		store:     deps.Store,
		engine:    deps.Engine,
		enricher:  deps.Enricher,
		publisher: deps.Publisher,
		journal:   deps.Journal,
		metrics:   deps.Metrics,
		logger:    deps.Logger,
		maxItems:  deps.MaxItems,
		now:       deps.Now,
		newRunID:  deps.NewRunID,
	}
	if in.logger == nil {
		in.logger = slog.Default()
	}
	if in.enricher == nil {
		in.enricher = enrich.WithFallback(nil, in.logger)
	}
	if in.now == nil {
		in.now = time.Now
	}
	if in.newRunID == nil {
		in.newRunID = uuid.NewString
	}
	return in
}

// Run fetches, aggregates, scores, selects, enriches and surfaces new stories, then
// persists the store. Per-story publishing failures are joined into the returned
// error after the store has been saved.
func (in *Ingest) Run(ctx context.Context) (IngestReport, error) {
	report := IngestReport{RunID: in.newRunID()}
	if in.store == nil || in.engine == nil {
		return report, fmt.Errorf("ingest is not configured")
	}
	log := in.logger.With("run_id", report.RunID)

	if err := in.store.Load(); err != nil {
		return report, fmt.Errorf("load store: %w", err)
	}
	now := in.now().UTC()

	records := in.fetch(ctx, log)
	report.Fetched = len(records)

	candidates := aggregate.Aggregate(records, log).List()
	report.Candidates = len(candidates)

	selected := in.selectNew(in.score(candidates, now, log))
	report.Selected = len(selected)
	log.Info("identified new candidates", "fetched", report.Fetched, "unique", report.Candidates, "selected", report.Selected)

	enrichments := in.enrich(ctx, selected, log)

	var (
		errs        []error
		transitions []domain.Transition
	)
	for _, c := range selected {
		story := newStory(c, enrichments[c.ID])
		story.ValueScore = in.engine.ValueScore(story, now)
		if in.publisher != nil {
			handle, err := in.publisher.Post(ctx, storyMessage(story))
			if err != nil {
				errs = append(errs, fmt.Errorf("surface story %s: %w", story.ID, err))
				continue
			}
			story.HandleFresh = handle
		}
		in.store.Upsert(story)
		transitions = append(transitions, domain.Transition{
			RunID:   report.RunID,
			StoryID: story.ID,
			Kind:    domain.TransitionIngested,
			To:      domain.StatusFresh,
			At:      now,
		})
	}
	report.Admitted = len(transitions)

	if err := in.store.Save(); err != nil {
		return report, fmt.Errorf("save store: %w", err)
	}

	if in.journal != nil {
		if err := in.journal.Record(ctx, transitions); err != nil {
			log.Warn("journal write failed", "error", err)
		}
	}
	in.metrics.Ingested(report.Admitted)
	in.metrics.StoreSize(in.store.Values())
	in.metrics.RunCompleted("ingest", float64(now.Unix()))

	log.Info("ingest finished", "admitted", report.Admitted, "failed", len(errs))
	return report, errors.Join(errs...)
}

func (in *Ingest) fetch(ctx context.Context, log *slog.Logger) []domain.RawRecord {
	var records []domain.RawRecord
	for i, src := range in.sources {
		recs, err := src.FetchRecords(ctx)
		if err != nil {
			log.Warn("source failed", "source", i, "records", len(recs), "error", err)
		}
		records = append(records, recs...)
	}
	return records
}

func (in *Ingest) score(candidates []domain.Candidate, now time.Time, log *slog.Logger) []domain.ScoredCandidate {
	scored := make([]domain.ScoredCandidate, 0, len(candidates))
	for _, c := range candidates {
		published, err := scoring.ResolvePublished(c.Published, now)
		if err != nil {
			log.Warn("unparseable published timestamp; using stale fallback", "url", c.URL, "published", c.Published)
		}
		scored = append(scored, domain.ScoredCandidate{
			Candidate: c,
			ID:        canonical.FingerprintCanonical(c.CanonicalURL),
			Published: published,
			Accuracy:  in.engine.Accuracy(c.URL, c.Corroborations, published, now),
		})
	}
	return scored
}

// selectNew drops stories already in the store, ranks by accuracy and applies the cap.
func (in *Ingest) selectNew(scored []domain.ScoredCandidate) []domain.ScoredCandidate {
	fresh := make([]domain.ScoredCandidate, 0, len(scored))
	for _, c := range scored {
		if _, ok := in.store.Get(c.ID); ok {
			continue
		}
		fresh = append(fresh, c)
	}
	sort.SliceStable(fresh, func(i, j int) bool {
		return fresh[i].Accuracy > fresh[j].Accuracy
	})
	if in.maxItems > 0 && len(fresh) > in.maxItems {
		fresh = fresh[:in.maxItems]
	}
	return fresh
}

func (in *Ingest) enrich(ctx context.Context, selected []domain.ScoredCandidate, log *slog.Logger) map[string]domain.Enrichment {
	if len(selected) == 0 {
		return map[string]domain.Enrichment{}
	}
	requests := make([]domain.EnrichmentRequest, 0, len(selected))
	for _, c := range selected {
		requests = append(requests, domain.EnrichmentRequest{
			ID:     c.ID,
			Title:  strings.TrimSpace(c.Title),
			Source: strings.TrimSpace(c.Source),
		})
	}
	got, err := in.enricher.Enrich(ctx, requests)
	if err != nil {
		log.Warn("enrichment failed; using heuristics", "error", err)
	}
	out := make(map[string]domain.Enrichment, len(requests))
	for _, req := range requests {
		if e, ok := got[req.ID]; ok && err == nil {
			out[req.ID] = e
			continue
		}
		out[req.ID] = enrich.Classify(req)
	}
	return out
}

func newStory(c domain.ScoredCandidate, e domain.Enrichment) domain.Story {
	title := strings.TrimSpace(c.Title)
	if title == "" {
		title = untitled
	}
	source := strings.TrimSpace(c.Source)
	if source == "" {
		source = unknownSource
	}
	return domain.Story{
		ID:             c.ID,
		URL:            c.URL,
		Title:          title,
		Source:         source,
		PublishedUTC:   scoring.FormatStored(c.Published),
		Status:         domain.StatusFresh,
		Accuracy:       c.Accuracy,
		Corroborations: c.Corroborations,
		Meaning:        e.Meaning,
		Impact:         e.Impact,
		Affected:       e.Affected,
	}
}
