// Package enrich provides the default keyword enricher and the per-item fallback wrapper.
package enrich

import (
	"context"
	"log/slog"
	"strings"

	"NewsCurator/internal/domain"
	"NewsCurator/internal/ports"
)

type keywordRule struct {
	keyword string
	result  domain.Enrichment
}

var (
	keywordRules = []keywordRule{
		{"launch", domain.Enrichment{Meaning: "Product launch", Impact: "Product", Affected: "Customers"}},
		{"funding", domain.Enrichment{Meaning: "Investment", Impact: "Finance", Affected: "Investors"}},
	}
	genericEnrichment = domain.Enrichment{Meaning: "AI update", Impact: "General", Affected: "Researchers"}
)

// Keyword is the fixed heuristic enricher.
type Keyword struct{}

var _ ports.Enricher = Keyword{}

// Enrich never fails.
func (Keyword) Enrich(_ context.Context, items []domain.EnrichmentRequest) (map[string]domain.Enrichment, error) {
	out := make(map[string]domain.Enrichment, len(items))
	for _, item := range items {
		out[item.ID] = Classify(item)
	}
	return out, nil
}

// Classify matches the first keyword found in title and source.
func Classify(item domain.EnrichmentRequest) domain.Enrichment {
	text := strings.ToLower(item.Title + " " + item.Source)
	for _, rule := range keywordRules {
		if strings.Contains(text, rule.keyword) {
			return rule.result
		}
	}
	return genericEnrichment
}

// Fallback wraps a primary enricher. A failed call or a missing id degrades to the
// heuristic for the affected items only.
type Fallback struct {
	primary ports.Enricher
	logger  *slog.Logger
}

var _ ports.Enricher = (*Fallback)(nil)

// WithFallback returns an enricher that never fails. A nil primary means heuristic only.
func WithFallback(primary ports.Enricher, logger *slog.Logger) *Fallback {
	if logger == nil {
		logger = slog.Default()
	}
	return &Fallback{primary: primary, logger: logger}
}

// Enrich returns a result for every requested id.
func (f *Fallback) Enrich(ctx context.Context, items []domain.EnrichmentRequest) (map[string]domain.Enrichment, error) {
	var got map[string]domain.Enrichment
	if f.primary != nil && len(items) > 0 {
		var err error
		got, err = f.primary.Enrich(ctx, items)
		if err != nil {
			f.logger.Warn("enrichment failed; using heuristics", "items", len(items), "error", err)
			got = nil
		}
	}

	out := make(map[string]domain.Enrichment, len(items))
	missing := 0
	for _, item := range items {
		if e, ok := got[item.ID]; ok && complete(e) {
			out[item.ID] = e
			continue
		}
		out[item.ID] = Classify(item)
		missing++
	}
	if f.primary != nil && got != nil && missing > 0 {
		f.logger.Warn("enrichment incomplete; using heuristics for some items", "missing", missing)
	}
	return out, nil
}

func complete(e domain.Enrichment) bool {
	return e.Meaning != "" && e.Impact != "" && e.Affected != ""
}
