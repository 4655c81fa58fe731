// Package lifecycle advances stories through the visibility tiers and decides expiry.
package lifecycle

import (
	"fmt"
	"time"

	"NewsCurator/internal/domain"
	"NewsCurator/internal/ports"
	"NewsCurator/internal/scoring"
)

// PromotionRule gates a move to the next tier. The age and accuracy floors are
// mandatory; any one of the signal thresholds then suffices. A zero threshold
// disables that signal.
type PromotionRule struct {
	MinAgeHours       float64 `yaml:"minAgeHours"`
	MinAccuracy       float64 `yaml:"minAccuracy"`
	MinValueScore     float64 `yaml:"minValueScore"`
	MinCorroborations int     `yaml:"minCorroborations"`
	MinReplies        int     `yaml:"minReplies"`
	Pinned            bool    `yaml:"pinned"`
}

// TTLPolicy holds base time-to-live per tier and the value-score multipliers.
type TTLPolicy struct {
	Fresh    time.Duration `yaml:"fresh"`
	Elevated time.Duration `yaml:"elevated"`
	Archival time.Duration `yaml:"archival"`

	HighValue      float64 `yaml:"highValue"`
	HighMultiplier float64 `yaml:"highMultiplier"`
	LowValue       float64 `yaml:"lowValue"`
	LowMultiplier  float64 `yaml:"lowMultiplier"`
}

// Rules is the immutable lifecycle configuration.
type Rules struct {
	ToElevated     PromotionRule `yaml:"toElevated"`
	ToArchival     PromotionRule `yaml:"toArchival"`
	TTL            TTLPolicy     `yaml:"ttl"`
	PermanentValue float64       `yaml:"permanentValue"`
}

// DefaultRules are the production thresholds.
func DefaultRules() Rules {
	return Rules{
		ToElevated: PromotionRule{
			MinAgeHours:       24,
			MinAccuracy:       0.7,
			MinValueScore:     0.75,
			MinCorroborations: 2,
			MinReplies:        3,
			Pinned:            true,
		},
		ToArchival: PromotionRule{
			MinAgeHours:       168,
			MinAccuracy:       0.8,
			MinValueScore:     0.85,
			MinCorroborations: 3,
			MinReplies:        5,
		},
		TTL: TTLPolicy{
			Fresh:          48 * time.Hour,
			Elevated:       168 * time.Hour,
			Archival:       2160 * time.Hour,
			HighValue:      0.8,
			HighMultiplier: 1.5,
			LowValue:       0.5,
			LowMultiplier:  0.5,
		},
		PermanentValue: 0.9,
	}
}

// Outcome is what a tick pass decided for one story.
type Outcome int

const (
	Kept Outcome = iota
	Promoted
	Removed
	PermanentlyArchived
)

func (o Outcome) String() string {
	switch o {
	case Promoted:
		return "promoted"
	case Removed:
		return "removed"
	case PermanentlyArchived:
		return "permanently_archived"
	default:
		return "kept"
	}
}

// Step is a single tier move applied during a pass.
type Step struct {
	From domain.Status
	To   domain.Status
}

// Decision is the result of evaluating one story. Steps lists promotions in order;
// ExpiredFrom is the tier whose handle expired, if any.
type Decision struct {
	Outcome     Outcome
	Steps       []Step
	ExpiredFrom domain.Status
}

// Machine evaluates promotion and expiry rules.
type Machine struct {
	rules Rules
	clock ports.HandleClock
}

// NewMachine binds rules to the platform-specific handle clock.
func NewMachine(rules Rules, clock ports.HandleClock) *Machine {
	return &Machine{rules: rules, clock: clock}
}

// Evaluate mutates the story according to one tick and reports what happened.
// The caller must have refreshed ValueScore for now before calling.
// Promotions run first; a story promoted in this pass is not checked for expiry.
// A Removed story is left untouched so the caller can tear down its publication.
func (m *Machine) Evaluate(story *domain.Story, now time.Time) (Decision, error) {
	if story.Status.Terminal() {
		return Decision{Outcome: Kept}, nil
	}
	if !story.Status.Valid() {
		return Decision{}, fmt.Errorf("story %s: unknown status %q", story.ID, story.Status)
	}

	age, err := m.ageHours(story, now)
	if err != nil {
		return Decision{}, err
	}

	var dec Decision
	if story.Status == domain.StatusFresh && qualifies(m.rules.ToElevated, story, age) {
		dec.Steps = append(dec.Steps, promote(story, domain.StatusElevated))
	}
	if story.Status == domain.StatusElevated && qualifies(m.rules.ToArchival, story, age) {
		dec.Steps = append(dec.Steps, promote(story, domain.StatusArchival))
	}
	if len(dec.Steps) > 0 {
		dec.Outcome = Promoted
		return dec, nil
	}

	expired, err := m.Expired(story, now)
	if err != nil {
		return Decision{}, err
	}
	if !expired {
		return Decision{Outcome: Kept}, nil
	}

	dec.ExpiredFrom = story.Status
	if story.Status == domain.StatusArchival && story.ValueScore >= m.rules.PermanentValue {
		story.Status = domain.StatusPermanentlyArchived
		dec.Outcome = PermanentlyArchived
		dec.Steps = []Step{{From: domain.StatusArchival, To: domain.StatusPermanentlyArchived}}
		return dec, nil
	}
	dec.Outcome = Removed
	return dec, nil
}

// Expired reports whether the current-tier handle has outlived the adjusted TTL.
// Stories without a handle for their tier never expire.
func (m *Machine) Expired(story *domain.Story, now time.Time) (bool, error) {
	handle := story.CurrentHandle()
	if handle == "" || m.clock == nil {
		return false, nil
	}
	issued, err := m.clock(handle)
	if err != nil {
		return false, fmt.Errorf("story %s: handle time: %w", story.ID, err)
	}
	return now.Sub(issued) >= m.TTL(story.Status, story.ValueScore), nil
}

// TTL returns the adaptive time-to-live for a tier at the given value score.
func (m *Machine) TTL(tier domain.Status, valueScore float64) time.Duration {
	p := m.rules.TTL
	var base time.Duration
	switch tier {
	case domain.StatusFresh:
		base = p.Fresh
	case domain.StatusElevated:
		base = p.Elevated
	case domain.StatusArchival:
		base = p.Archival
	default:
		return 0
	}

	switch {
	case valueScore >= p.HighValue:
		return time.Duration(float64(base) * p.HighMultiplier)
	case valueScore < p.LowValue:
		return time.Duration(float64(base) * p.LowMultiplier)
	default:
		return base
	}
}

func (m *Machine) ageHours(story *domain.Story, now time.Time) (float64, error) {
	published, err := scoring.ParseStored(story.PublishedUTC)
	if err != nil {
		return 0, fmt.Errorf("story %s: published_utc: %w", story.ID, err)
	}
	return scoring.AgeHours(published, now), nil
}

func qualifies(rule PromotionRule, story *domain.Story, ageHours float64) bool {
	if ageHours < rule.MinAgeHours || story.Accuracy < rule.MinAccuracy {
		return false
	}
	switch {
	case rule.MinValueScore > 0 && story.ValueScore >= rule.MinValueScore:
		return true
	case rule.MinCorroborations > 0 && story.Corroborations >= rule.MinCorroborations:
		return true
	case rule.MinReplies > 0 && story.Replies >= rule.MinReplies:
		return true
	case rule.Pinned && story.Pinned:
		return true
	}
	return false
}

// promote moves the story one tier up and carries the previous handle forward
// when the new tier has none yet.
func promote(story *domain.Story, to domain.Status) Step {
	from := story.Status
	if story.Handle(to) == "" {
		story.SetHandle(to, story.Handle(from))
	}
	story.Status = to
	return Step{From: from, To: to}
}
