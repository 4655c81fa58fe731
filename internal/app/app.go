package app

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"time"

	"NewsCurator/internal/config"
	"NewsCurator/internal/domain"
	"NewsCurator/internal/enrich"
	"NewsCurator/internal/infrastructure/feed"
	"NewsCurator/internal/infrastructure/journal"
	"NewsCurator/internal/infrastructure/llm"
	"NewsCurator/internal/infrastructure/parser"
	"NewsCurator/internal/infrastructure/render"
	"NewsCurator/internal/infrastructure/scheduler"
	"NewsCurator/internal/infrastructure/slack"
	"NewsCurator/internal/lifecycle"
	"NewsCurator/internal/logging"
	"NewsCurator/internal/metrics"
	"NewsCurator/internal/ports"
	"NewsCurator/internal/scanner"
	"NewsCurator/internal/scoring"
	"NewsCurator/internal/store"
	"NewsCurator/internal/usecase"
)

// Options tweak how collaborators are selected.
type Options struct {
	DryRun bool
}

// Application wires configs to use cases and lifecycle orchestration.
type Application struct {
	cfg      config.Config
	logger   *slog.Logger
	store    *store.Store
	journal  ports.Journal
	history  *journal.SQLiteJournal
	metrics  *metrics.Recorder
	renderer *render.Markdown
	ingest   *usecase.Ingest
	tick     *usecase.Tick
}

// New builds every collaborator once. Absent credentials or channels select the
// dry-mode publisher and the heuristic enricher.
func New(ctx context.Context, cfg config.Config, opts Options, baseLogger *slog.Logger) (*Application, error) {
	if baseLogger == nil {
		baseLogger = logging.New(cfg.Logging.Level, cfg.Logging.Format)
	}

	domains, err := scoring.LoadDomainTable(cfg.State.DomainWeightsPath)
	if err != nil {
		return nil, fmt.Errorf("load domain weights: %w", err)
	}
	engine := scoring.NewEngine(cfg.ScoringParams(), domains)

	a := &Application{
		cfg:      cfg,
		logger:   baseLogger,
		store:    store.New(cfg.State.Path, baseLogger.With("component", "store")),
		journal:  journal.Nop{},
		metrics:  metrics.NewRecorder(),
		renderer: render.NewMarkdown(cfg.Render.OutputDir, baseLogger.With("component", "render")),
	}

	if cfg.State.JournalPath != "" {
		j, err := journal.Open(ctx, cfg.State.JournalPath)
		if err != nil {
			return nil, fmt.Errorf("open journal: %w", err)
		}
		a.journal, a.history = j, j
	}

	publishers := buildPublishers(cfg.Slack, opts.DryRun, baseLogger.With("component", "slack"))

	a.ingest = usecase.NewIngest(usecase.IngestDeps{
		Sources:   buildSources(cfg.Ingest, baseLogger),
		Store:     a.store,
		Engine:    engine,
		Enricher:  buildEnricher(cfg.ChatGPT, opts.DryRun, baseLogger.With("component", "enrich")),
		Publisher: publishers[domain.StatusFresh],
		Journal:   a.journal,
		Metrics:   a.metrics,
		Logger:    baseLogger.With("component", "ingest"),
		MaxItems:  cfg.Ingest.MaxItems,
	})
	a.tick = usecase.NewTick(usecase.TickDeps{
		Store:        a.store,
		Engine:       engine,
		Machine:      lifecycle.NewMachine(cfg.LifecycleRules(), slack.HandleTime),
		Publishers:   publishers,
		Journal:      a.journal,
		Metrics:      a.metrics,
		OverviewPath: cfg.State.OverviewPath,
		Logger:       baseLogger.With("component", "tick"),
	})
	return a, nil
}

func buildPublishers(cfg config.SlackConfig, dryRun bool, logger *slog.Logger) usecase.Publishers {
	channels := map[domain.Status]string{
		domain.StatusFresh:    cfg.Channels.Fresh,
		domain.StatusElevated: cfg.Channels.Elevated,
		domain.StatusArchival: cfg.Channels.Archival,
	}
	client := slack.NewClient(cfg.Endpoint, cfg.BotToken, cfg.RequestsPerSecond, cfg.Timeout)

	pubs := usecase.Publishers{}
	for tier, channel := range channels {
		if dryRun || cfg.BotToken == "" || channel == "" {
			pubs[tier] = slack.NewNullPublisher(channel, logger)
			continue
		}
		pubs[tier] = slack.NewLivePublisher(client, channel, logger)
	}
	return pubs
}

func buildEnricher(cfg config.ChatGPTConfig, dryRun bool, logger *slog.Logger) ports.Enricher {
	if dryRun || cfg.APIKey == "" {
		return enrich.WithFallback(nil, logger)
	}
	return enrich.WithFallback(llm.NewChatGPTEnricher(cfg), logger)
}

func buildSources(cfg config.IngestConfig, logger *slog.Logger) []ports.RecordSource {
	var sources []ports.RecordSource
	if len(cfg.Feeds) > 0 {
		sources = append(sources, feed.New(cfg.Feeds, nil, logger.With("component", "feed")))
	}
	if len(cfg.Sites) > 0 {
		registry := scanner.NewRegistry()
		registry.Register(parser.NewListingScanner(nil))
		registry.Register(parser.NewArxivScanner(nil))
		sources = append(sources, parser.NewStrategySource(registry, cfg.Sites, logger.With("component", "source")))
	}
	return sources
}

// Fetch runs one ingest pass.
func (a *Application) Fetch(ctx context.Context) (usecase.IngestReport, error) {
	report, err := a.ingest.Run(ctx)
	return report, errors.Join(err, a.flushMetrics())
}

// Tick runs one lifecycle pass.
func (a *Application) Tick(ctx context.Context) (usecase.TickReport, error) {
	report, err := a.tick.Run(ctx)
	return report, errors.Join(err, a.flushMetrics())
}

// Render mirrors the persisted store into the document tree.
func (a *Application) Render(ctx context.Context) error {
	if err := a.store.Load(); err != nil {
		return fmt.Errorf("load store: %w", err)
	}
	return a.renderer.Render(ctx, a.store.Values())
}

// Validate checks the rendered document tree.
func (a *Application) Validate() ([]string, error) {
	return render.Validate(a.cfg.Render.OutputDir)
}

// History lists the journaled transitions of one story.
func (a *Application) History(ctx context.Context, storyID string) ([]domain.Transition, error) {
	if a.history == nil {
		return nil, fmt.Errorf("journal is not configured (state.journalPath is empty)")
	}
	return a.history.History(ctx, storyID)
}

// Run repeats ingest, tick and render every scheduler interval until ctx is done.
func (a *Application) Run(ctx context.Context) error {
	driver := scheduler.NewIntervalScheduler(a.cfg.Scheduler.Interval)
	sched := usecase.NewScheduler(driver, a.ingest, a.tick, metricsRenderer{a}, a.logger.With("component", "scheduler"))

	if err := sched.Start(ctx); err != nil {
		return fmt.Errorf("start scheduler: %w", err)
	}
	a.logger.Info("scheduler started", "interval", a.cfg.Scheduler.Interval)
	<-ctx.Done()

	stopCtx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
	defer cancel()
	return sched.Stop(stopCtx)
}

// Close releases the journal database.
func (a *Application) Close() error {
	if a.history != nil {
		return a.history.Close()
	}
	return nil
}

func (a *Application) flushMetrics() error {
	return a.metrics.WriteTextfile(a.cfg.Metrics.TextfilePath)
}

// metricsRenderer renders and then flushes metrics, closing each scheduled cycle.
type metricsRenderer struct {
	app *Application
}

func (m metricsRenderer) Render(ctx context.Context, stories []domain.Story) error {
	return errors.Join(m.app.renderer.Render(ctx, stories), m.app.flushMetrics())
}
