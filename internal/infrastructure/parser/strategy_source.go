package parser

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"time"

	"NewsCurator/internal/config"
	"NewsCurator/internal/domain"
	"NewsCurator/internal/ports"
	"NewsCurator/internal/scanner"
)

// StrategySource implements RecordSource via registered scanner strategies.
type StrategySource struct {
	registry *scanner.Registry
	sites    []config.SiteConfig
	logger   *slog.Logger
	now      func() time.Time
}

var _ ports.RecordSource = (*StrategySource)(nil)

// NewStrategySource wires scanner registry with config-defined sites.
func NewStrategySource(reg *scanner.Registry, sites []config.SiteConfig, log *slog.Logger) *StrategySource {
	return &StrategySource{
		registry: reg,
		sites:    sites,
		logger:   log,
		now:      time.Now,
	}
}

// FetchRecords runs every configured site. A failing site is skipped and reported
// in the joined error alongside the records the other sites produced.
func (s *StrategySource) FetchRecords(ctx context.Context) ([]domain.RawRecord, error) {
	if s.registry == nil {
		return nil, fmt.Errorf("scanner registry is not configured")
	}

	s.debug("fetch listings", "sites", len(s.sites))

	var (
		aggregated []domain.RawRecord
		errs       []error
	)
	for _, site := range s.sites {
		s.debug("process site", "site", site.Name, "scanner", site.Scanner, "categories", len(site.Categories))
		strategy, err := s.registry.Resolve(site.Scanner)
		if err != nil {
			errs = append(errs, fmt.Errorf("site %s: %w", site.Name, err))
			continue
		}

		req := scanner.Request{
			Now:        s.now().UTC(),
			SiteName:   site.Name,
			Options:    site.Options,
			Categories: toScannerCategories(site.Categories),
		}

		results, err := strategy.Scan(ctx, req)
		if err != nil {
			if s.logger != nil {
				s.logger.Warn("site scan failed", "site", site.Name, "error", err)
			}
			errs = append(errs, fmt.Errorf("scan site %s: %w", site.Name, err))
			continue
		}

		for i := range results {
			if results[i].Source == "" {
				results[i].Source = site.Name
			}
		}
		s.debug("site produced records", "site", site.Name, "count", len(results))
		aggregated = append(aggregated, results...)
	}

	s.debug("strategy source done", "total_records", len(aggregated))
	return aggregated, errors.Join(errs...)
}

func toScannerCategories(cfg []config.CategoryConfig) []scanner.Category {
	categories := make([]scanner.Category, 0, len(cfg))
	for _, cat := range cfg {
		categories = append(categories, scanner.Category{
			Name: cat.Name,
			URL:  cat.URL,
		})
	}
	return categories
}

func (s *StrategySource) debug(msg string, args ...any) {
	if s.logger != nil {
		s.logger.Debug(msg, args...)
	}
}
