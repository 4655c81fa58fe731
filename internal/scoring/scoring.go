// Package scoring computes the ingestion-time accuracy and the per-tick value score.
package scoring

import (
	"math"
	"net/url"
	"strings"
	"time"

	"NewsCurator/internal/domain"
)

// ValueWeights are the coefficients of the value score. They sum to 1.
type ValueWeights struct {
	Accuracy   float64 `yaml:"accuracy"`
	Engagement float64 `yaml:"engagement"`
	Pinned     float64 `yaml:"pinned"`
	Freshness  float64 `yaml:"freshness"`
}

// DefaultValueWeights is the standard weighting.
var DefaultValueWeights = ValueWeights{Accuracy: 0.5, Engagement: 0.3, Pinned: 0.1, Freshness: 0.1}

// Params is the immutable scoring configuration.
type Params struct {
	LookbackHours      float64
	Weights            ValueWeights
	RepliesSaturation  float64
	FreshnessHorizonHr float64
}

// DefaultParams mirrors the production defaults.
func DefaultParams() Params {
	return Params{
		LookbackHours:      12,
		Weights:            DefaultValueWeights,
		RepliesSaturation:  5,
		FreshnessHorizonHr: 24,
	}
}

// Engine scores candidates and stories.
type Engine struct {
	params  Params
	domains DomainTable
}

// NewEngine binds scoring parameters to a domain trust table.
func NewEngine(params Params, domains DomainTable) *Engine {
	return &Engine{params: params, domains: domains}
}

// Params exposes the configuration the engine was built with.
func (e *Engine) Params() Params {
	return e.params
}

// Accuracy is domain trust plus corroborations plus recency, rounded to 3 decimals.
func (e *Engine) Accuracy(rawURL string, corroborations int, published, now time.Time) float64 {
	weight := e.domains.WeightFor(rawURL)
	recency := Recency(published, now, e.params.LookbackHours)
	return Round3(weight + float64(corroborations) + recency)
}

// ValueScore recomputes the volatile composite score of a story.
func (e *Engine) ValueScore(story domain.Story, now time.Time) float64 {
	w := e.params.Weights

	engagement := 0.0
	if e.params.RepliesSaturation > 0 {
		engagement = math.Min(float64(story.Replies)/e.params.RepliesSaturation, 1)
	}
	pinned := 0.0
	if story.Pinned {
		pinned = 1
	}
	freshness := 0.0
	if published, err := ParseStored(story.PublishedUTC); err == nil {
		freshness = Recency(published, now, e.params.FreshnessHorizonHr)
	}

	return Round3(w.Accuracy*story.Accuracy + w.Engagement*engagement + w.Pinned*pinned + w.Freshness*freshness)
}

// Recency decays linearly from 1 at publication to 0 after lookbackHours.
func Recency(published, now time.Time, lookbackHours float64) float64 {
	if lookbackHours <= 0 {
		return 0
	}
	hours := math.Max(now.Sub(published).Hours(), 0)
	return math.Max(0, 1-math.Min(hours/lookbackHours, 1))
}

// AgeHours is the non-negative age of a timestamp in hours.
func AgeHours(published, now time.Time) float64 {
	return math.Max(now.Sub(published).Hours(), 0)
}

// Round3 rounds half away from zero to 3 decimals.
func Round3(v float64) float64 {
	return math.Round(v*1000) / 1000
}

// DomainTable maps registrable domains to trust weights.
type DomainTable struct {
	Default float64
	Weights map[string]float64
}

// DefaultDomainWeight applies when no table is configured.
const DefaultDomainWeight = 0.5

// NewDefaultDomainTable is the all-default table used when none is available.
func NewDefaultDomainTable() DomainTable {
	return DomainTable{Default: DefaultDomainWeight, Weights: map[string]float64{}}
}

// WeightFor walks up the host labels until a configured domain matches.
func (t DomainTable) WeightFor(rawURL string) float64 {
	host := ""
	if parsed, err := url.Parse(rawURL); err == nil {
		host = strings.ToLower(parsed.Host)
	}
	for host != "" {
		if w, ok := t.Weights[host]; ok {
			return w
		}
		_, rest, found := strings.Cut(host, ".")
		if !found {
			break
		}
		host = rest
	}
	return t.Default
}
