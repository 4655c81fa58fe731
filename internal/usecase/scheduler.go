package usecase

import (
	"context"
	"log/slog"
	"time"

	"NewsCurator/internal/ports"
)

// Scheduler wires the interval driver with the ingest and tick use cases.
type Scheduler struct {
	driver   ports.Scheduler
	ingest   *Ingest
	tick     *Tick
	renderer ports.Renderer
	logger   *slog.Logger
}

// NewScheduler returns a helper to start/stop the recurring pipelines.
// A nil renderer skips the document tree refresh.
func NewScheduler(driver ports.Scheduler, ingest *Ingest, tick *Tick, renderer ports.Renderer, logger *slog.Logger) *Scheduler {
	if logger == nil {
		logger = slog.Default()
	}
	return &Scheduler{driver: driver, ingest: ingest, tick: tick, renderer: renderer, logger: logger}
}

// Start registers one serial ingest+tick cycle per trigger.
func (s *Scheduler) Start(ctx context.Context) error {
	if s.driver == nil {
		return nil
	}
	return s.driver.Start(ctx, func(trigger time.Time) {
		s.Cycle(ctx, trigger)
	})
}

// Cycle runs ingest, tick and render in order. Failures are logged so the next
// trigger still fires.
func (s *Scheduler) Cycle(ctx context.Context, trigger time.Time) {
	log := s.logger.With("trigger", trigger.UTC().Format(time.RFC3339))
	if s.ingest != nil {
		if _, err := s.ingest.Run(ctx); err != nil {
			log.Error("ingest run failed", "error", err)
		}
	}
	if ctx.Err() != nil {
		return
	}
	if s.tick != nil {
		if _, err := s.tick.Run(ctx); err != nil {
			log.Error("tick run failed", "error", err)
		}
	}
	if s.renderer != nil && s.tick != nil && s.tick.store != nil {
		if err := s.renderer.Render(ctx, s.tick.store.Values()); err != nil {
			log.Error("render failed", "error", err)
		}
	}
}

// Stop gracefully tears down the underlying scheduler.
func (s *Scheduler) Stop(ctx context.Context) error {
	if s.driver == nil {
		return nil
	}
	return s.driver.Stop(ctx)
}
