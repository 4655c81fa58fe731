package ports

import (
	"context"
	"errors"
	"time"

	"NewsCurator/internal/domain"
)

// RecordSource pulls raw candidate records from upstream providers.
type RecordSource interface {
	FetchRecords(ctx context.Context) ([]domain.RawRecord, error)
}

// Enricher fills the descriptive fields of freshly ingested stories.
// Implementations may return a partial map; callers fall back per item.
type Enricher interface {
	Enrich(ctx context.Context, items []domain.EnrichmentRequest) (map[string]domain.Enrichment, error)
}

// ErrNoEngagement is returned by publishers that cannot observe engagement, such
// as dry-mode ones. Callers keep the stored values.
var ErrNoEngagement = errors.New("engagement unavailable")

// Publisher surfaces stories in a single tier channel and reports engagement.
// An empty handle means nothing was published.
type Publisher interface {
	Post(ctx context.Context, text string) (string, error)
	Update(ctx context.Context, handle, text string) (string, error)
	Delete(ctx context.Context, handle string) error
	Engagement(ctx context.Context, handle string) (domain.Engagement, error)
}

// HandleClock resolves the moment a handle was issued.
type HandleClock func(handle string) (time.Time, error)

// Journal records lifecycle transitions for downstream consumers and audit.
type Journal interface {
	Record(ctx context.Context, transitions []domain.Transition) error
}

// Renderer publishes the full story set to a document tree.
type Renderer interface {
	Render(ctx context.Context, stories []domain.Story) error
}

// Scheduler controls when pipelines execute.
type Scheduler interface {
	Start(ctx context.Context, job func(time.Time)) error
	Stop(ctx context.Context) error
}
