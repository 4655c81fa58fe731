package enrich

import (
	"context"
	"errors"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"NewsCurator/internal/domain"
	"NewsCurator/internal/logging"
)

type stubEnricher struct {
	out map[string]domain.Enrichment
	err error
}

func (s stubEnricher) Enrich(context.Context, []domain.EnrichmentRequest) (map[string]domain.Enrichment, error) {
	return s.out, s.err
}

var requests = []domain.EnrichmentRequest{
	{ID: "1", Title: "Startup closes funding round", Source: "Wire"},
	{ID: "2", Title: "Lab will LAUNCH new model", Source: "Blog"},
	{ID: "3", Title: "Benchmark results", Source: "Paper"},
}

func TestClassify(t *testing.T) {
	t.Parallel()

	assert.Equal(t, "Investment", Classify(requests[0]).Meaning)
	assert.Equal(t, "Product launch", Classify(requests[1]).Meaning)
	assert.Equal(t, genericEnrichment, Classify(requests[2]))
	assert.Equal(t, "Product launch", Classify(domain.EnrichmentRequest{Title: "launch and funding"}).Meaning)
}

func TestFallbackOnError(t *testing.T) {
	t.Parallel()

	f := WithFallback(stubEnricher{err: errors.New("timeout")}, logging.Discard())
	got, err := f.Enrich(context.Background(), requests)
	require.NoError(t, err)
	require.Len(t, got, 3)
	assert.Equal(t, "Investment", got["1"].Meaning)
}

func TestFallbackPerItem(t *testing.T) {
	t.Parallel()

	primary := stubEnricher{out: map[string]domain.Enrichment{
		"1": {Meaning: "Series B", Impact: "Finance", Affected: "Founders"},
		"2": {Meaning: "", Impact: "x", Affected: "y"},
	}}
	got, err := WithFallback(primary, logging.Discard()).Enrich(context.Background(), requests)
	require.NoError(t, err)
	assert.Equal(t, "Series B", got["1"].Meaning)
	assert.Equal(t, "Product launch", got["2"].Meaning, "incomplete answers are replaced")
	assert.Equal(t, genericEnrichment, got["3"])
}

func TestFallbackWithoutPrimary(t *testing.T) {
	t.Parallel()

	got, err := WithFallback(nil, nil).Enrich(context.Background(), requests)
	require.NoError(t, err)
	assert.Len(t, got, 3)
}
