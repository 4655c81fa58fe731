package usecase

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"time"

	"github.com/google/uuid"

	"NewsCurator/internal/domain"
	"NewsCurator/internal/lifecycle"
	"NewsCurator/internal/metrics"
	"NewsCurator/internal/ports"
	"NewsCurator/internal/scoring"
	"NewsCurator/internal/store"
)

// TickDeps wires the driven adapters of the lifecycle pass.
type TickDeps struct {
	Store        *store.Store
	Engine       *scoring.Engine
	Machine      *lifecycle.Machine
	Publishers   Publishers
	Journal      ports.Journal
	Metrics      *metrics.Recorder
	OverviewPath string
	Logger       *slog.Logger
	Now          func() time.Time
	NewRunID     func() string
}

// TickReport summarizes one lifecycle pass.
type TickReport struct {
	RunID               string
	Evaluated           int
	Promoted            int
	Removed             int
	PermanentlyArchived int
	Transitions         []domain.Transition
}

// Tick refreshes engagement and value scores, then applies promotion and expiry.
type Tick struct {
	store        *store.Store
	engine       *scoring.Engine
	machine      *lifecycle.Machine
	publishers   Publishers
	journal      ports.Journal
	metrics      *metrics.Recorder
	overviewPath string
	logger       *slog.Logger
	now          func() time.Time
	newRunID     func() string
}

// NewTick constructs the lifecycle pass.
func NewTick(deps TickDeps) *Tick {
	t := &Tick{
		store:        deps.Store,
		engine:       deps.Engine,
		machine:      deps.Machine,
		publishers:   deps.Publishers,
		journal:      deps.Journal,
		metrics:      deps.Metrics,
		overviewPath: deps.OverviewPath,
		logger:       deps.Logger,
		now:          deps.Now,
		newRunID:     deps.NewRunID,
	}
	if t.logger == nil {
		t.logger = slog.Default()
	}
	if t.now == nil {
		t.now = time.Now
	}
	if t.newRunID == nil {
		t.newRunID = uuid.NewString
	}
	return t
}

// Run performs one pass over the whole store. Collaborator failures are logged and
// the pass continues; hard per-story errors are joined into the result after the
// store is saved.
func (t *Tick) Run(ctx context.Context) (TickReport, error) {
	report := TickReport{RunID: t.newRunID()}
	if t.store == nil || t.engine == nil || t.machine == nil {
		return report, fmt.Errorf("tick is not configured")
	}
	log := t.logger.With("run_id", report.RunID)

	if err := t.store.Load(); err != nil {
		return report, fmt.Errorf("load store: %w", err)
	}
	now := t.now().UTC()

	var errs []error
	for _, story := range t.store.Values() {
		if story.Status.Terminal() {
			continue
		}
		report.Evaluated++

		t.refreshEngagement(ctx, &story, log)
		story.ValueScore = t.engine.ValueScore(story, now)

		dec, err := t.machine.Evaluate(&story, now)
		if err != nil {
			errs = append(errs, err)
			t.store.Upsert(story)
			continue
		}

		switch dec.Outcome {
		case lifecycle.Promoted:
			report.Promoted++
			if err := t.surface(ctx, &story); err != nil {
				errs = append(errs, err)
			}
			t.store.Upsert(story)
			for _, step := range dec.Steps {
				report.Transitions = append(report.Transitions, t.transition(report.RunID, story, domain.TransitionPromoted, step.From, step.To, now))
			}
			log.Info("promoted story", "id", story.ID, "to", story.Status, "value_score", story.ValueScore)
		case lifecycle.PermanentlyArchived:
			report.PermanentlyArchived++
			t.store.Upsert(story)
			report.Transitions = append(report.Transitions, t.transition(report.RunID, story, domain.TransitionPermanent, dec.ExpiredFrom, story.Status, now))
			log.Info("permanently archived story", "id", story.ID, "value_score", story.ValueScore)
		case lifecycle.Removed:
			report.Removed++
			t.teardown(ctx, story, dec.ExpiredFrom, log)
			t.store.Remove(story.ID)
			report.Transitions = append(report.Transitions, t.transition(report.RunID, story, domain.TransitionRemoved, dec.ExpiredFrom, "", now))
			log.Info("removed expired story", "id", story.ID, "tier", dec.ExpiredFrom, "value_score", story.ValueScore)
		default:
			t.store.Upsert(story)
		}
	}

	if err := t.store.Save(); err != nil {
		return report, fmt.Errorf("save store: %w", err)
	}

	t.updateOverviews(ctx, log)

	if t.journal != nil {
		if err := t.journal.Record(ctx, report.Transitions); err != nil {
			log.Warn("journal write failed", "error", err)
		}
	}
	t.metrics.Transitions(report.Transitions)
	t.metrics.StoreSize(t.store.Values())
	t.metrics.RunCompleted("tick", float64(now.Unix()))

	log.Info("tick finished",
		"evaluated", report.Evaluated,
		"promoted", report.Promoted,
		"removed", report.Removed,
		"permanently_archived", report.PermanentlyArchived,
		"errors", len(errs),
	)
	return report, errors.Join(errs...)
}

// refreshEngagement reads engagement through the channel that issued the current
// handle, which is an earlier tier when the handle was carried forward.
func (t *Tick) refreshEngagement(ctx context.Context, story *domain.Story, log *slog.Logger) {
	handle := story.CurrentHandle()
	pub := t.publishers[story.HandleOrigin(story.Status)]
	if handle == "" || pub == nil {
		return
	}
	eng, err := pub.Engagement(ctx, handle)
	if errors.Is(err, ports.ErrNoEngagement) {
		return
	}
	if err != nil {
		log.Warn("engagement refresh failed; keeping previous values", "id", story.ID, "error", err)
		return
	}
	story.Replies = eng.Replies
	story.Pinned = eng.Pinned
}

// surface posts the promoted story to its new tier channel. A returned handle
// replaces the one carried forward from the previous tier.
func (t *Tick) surface(ctx context.Context, story *domain.Story) error {
	pub := t.publishers[story.Status]
	if pub == nil {
		return nil
	}
	handle, err := pub.Post(ctx, storyMessage(*story))
	if err != nil {
		return fmt.Errorf("surface story %s in %s: %w", story.ID, story.Status, err)
	}
	if handle != "" {
		story.SetHandle(story.Status, handle)
	}
	return nil
}

func (t *Tick) teardown(ctx context.Context, story domain.Story, tier domain.Status, log *slog.Logger) {
	handle := story.Handle(tier)
	pub := t.publishers[story.HandleOrigin(tier)]
	if handle == "" || pub == nil {
		return
	}
	if err := pub.Delete(ctx, handle); err != nil {
		log.Warn("delete publication failed", "id", story.ID, "tier", tier, "error", err)
	}
}

func (t *Tick) updateOverviews(ctx context.Context, log *slog.Logger) {
	if t.overviewPath == "" {
		return
	}
	overviews, err := store.LoadOverviews(t.overviewPath)
	if err != nil {
		log.Warn("load overviews failed; starting over", "error", err)
		overviews = store.Overviews{}
	}

	groups := store.GroupByStatus(t.store.Values())
	for _, tier := range domain.Tiers {
		pub := t.publishers[tier]
		if pub == nil {
			continue
		}
		text := overviewMessage(len(groups[tier]))

		var handle string
		if existing := overviews[tier]; existing != "" {
			handle, err = pub.Update(ctx, existing, text)
		} else {
			handle, err = pub.Post(ctx, text)
		}
		if err != nil {
			log.Warn("overview update failed", "tier", tier, "error", err)
			continue
		}
		overviews[tier] = handle
	}

	if err := store.SaveOverviews(t.overviewPath, overviews); err != nil {
		log.Warn("save overviews failed", "error", err)
	}
}

func (t *Tick) transition(runID string, story domain.Story, kind domain.TransitionKind, from, to domain.Status, at time.Time) domain.Transition {
	return domain.Transition{
		RunID:      runID,
		StoryID:    story.ID,
		Kind:       kind,
		From:       from,
		To:         to,
		ValueScore: story.ValueScore,
		At:         at,
	}
}
