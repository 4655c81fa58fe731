// Package feed pulls raw records from RSS and Atom feeds.
package feed

import (
	"context"
	"fmt"
	"log/slog"
	"net/http"
	"strings"
	"time"

	"github.com/mmcdole/gofeed"
	"golang.org/x/sync/errgroup"

	"NewsCurator/internal/config"
	"NewsCurator/internal/domain"
	"NewsCurator/internal/ports"
)

const (
	maxConcurrentFetches = 4
	fetchTimeout         = 30 * time.Second
)

// Source fetches every configured feed concurrently.
type Source struct {
	feeds  []config.FeedConfig
	client *http.Client
	logger *slog.Logger
}

var _ ports.RecordSource = (*Source)(nil)

// New creates a feed source; a nil client gets a default with a timeout.
func New(feeds []config.FeedConfig, client *http.Client, logger *slog.Logger) *Source {
	if client == nil {
		client = &http.Client{Timeout: fetchTimeout}
	}
	if logger == nil {
		logger = slog.Default()
	}
	return &Source{feeds: feeds, client: client, logger: logger}
}

// FetchRecords returns records in feed-config order. Failed feeds are logged and skipped.
func (s *Source) FetchRecords(ctx context.Context) ([]domain.RawRecord, error) {
	results := make([][]domain.RawRecord, len(s.feeds))

	var g errgroup.Group
	g.SetLimit(maxConcurrentFetches)
	for i, fc := range s.feeds {
		g.Go(func() error {
			if ctx.Err() != nil {
				return nil
			}
			records, err := s.fetchOne(ctx, fc)
			if err != nil {
				s.logger.Warn("feed fetch failed", "feed", fc.Name, "url", fc.URL, "error", err)
				return nil
			}
			results[i] = records
			return nil
		})
	}
	_ = g.Wait()

	if err := ctx.Err(); err != nil {
		return nil, fmt.Errorf("fetch feeds: %w", err)
	}

	var all []domain.RawRecord
	for _, records := range results {
		all = append(all, records...)
	}
	s.logger.Debug("feeds fetched", "feeds", len(s.feeds), "records", len(all))
	return all, nil
}

func (s *Source) fetchOne(ctx context.Context, fc config.FeedConfig) ([]domain.RawRecord, error) {
	fetchCtx, cancel := context.WithTimeout(ctx, fetchTimeout)
	defer cancel()

	parser := gofeed.NewParser()
	parser.Client = s.client
	parser.UserAgent = "NewsCurator/1.0"

	parsed, err := parser.ParseURLWithContext(fc.URL, fetchCtx)
	if err != nil {
		return nil, fmt.Errorf("parse feed %s: %w", fc.URL, err)
	}

	source := strings.TrimSpace(fc.Name)
	if source == "" {
		source = strings.TrimSpace(parsed.Title)
	}

	records := make([]domain.RawRecord, 0, len(parsed.Items))
	for _, item := range parsed.Items {
		if item == nil {
			continue
		}
		records = append(records, domain.RawRecord{
			URL:       strings.TrimSpace(item.Link),
			Title:     strings.TrimSpace(item.Title),
			Source:    source,
			Published: published(item),
		})
	}
	return records, nil
}

func published(item *gofeed.Item) string {
	switch {
	case item.PublishedParsed != nil:
		return item.PublishedParsed.UTC().Format(time.RFC3339)
	case item.UpdatedParsed != nil:
		return item.UpdatedParsed.UTC().Format(time.RFC3339)
	case item.Published != "":
		return item.Published
	default:
		return item.Updated
	}
}
