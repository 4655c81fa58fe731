// Package aggregate groups raw candidate records into unique stories and counts
// the independent sources corroborating each one.
package aggregate

import (
	"log/slog"
	"strings"

	"NewsCurator/internal/canonical"
	"NewsCurator/internal/domain"
)

// Result is the aggregation output keyed by canonical URL.
// Order preserves the first-seen order of representatives.
type Result struct {
	Candidates map[string]domain.Candidate
	Order      []string
}

// List returns the candidates in first-seen order.
func (r Result) List() []domain.Candidate {
	out := make([]domain.Candidate, 0, len(r.Order))
	for _, key := range r.Order {
		out = append(out, r.Candidates[key])
	}
	return out
}

// Aggregate collapses records sharing a canonical URL, or failing that a title key,
// into the first record observed. Later duplicates only add to the source tally.
func Aggregate(records []domain.RawRecord, logger *slog.Logger) Result {
	res := Result{Candidates: map[string]domain.Candidate{}}
	tally := map[string]int{}
	titleIndex := map[string]string{}

	for _, rec := range records {
		if strings.TrimSpace(rec.URL) == "" {
			continue
		}
		canonicalURL, err := canonical.Canonicalize(rec.URL)
		if err != nil {
			if logger != nil {
				logger.Warn("drop record with unparseable url", "url", rec.URL, "error", err)
			}
			continue
		}
		titleKey := canonical.TitleKey(rec.Title)

		key := ""
		if _, ok := res.Candidates[canonicalURL]; ok {
			key = canonicalURL
		} else if titleKey != "" {
			key = titleIndex[titleKey]
		}

		if key != "" {
			tally[key]++
			continue
		}

		res.Candidates[canonicalURL] = domain.Candidate{RawRecord: rec, CanonicalURL: canonicalURL}
		res.Order = append(res.Order, canonicalURL)
		tally[canonicalURL] = 1
		if titleKey != "" {
			titleIndex[titleKey] = canonicalURL
		}
	}

	for key, cand := range res.Candidates {
		cand.Corroborations = max(tally[key]-1, 0)
		res.Candidates[key] = cand
	}
	return res
}
