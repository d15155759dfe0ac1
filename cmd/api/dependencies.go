package main

import (
	"context"
	"fmt"
	"log/slog"
	"net/http"
	"time"

	"github.com/FACorreiaa/mpesa-analyzer/internal/domain/categorization"
	importhandler "github.com/FACorreiaa/mpesa-analyzer/internal/domain/import/handler"
	importservice "github.com/FACorreiaa/mpesa-analyzer/internal/domain/import/service"
	"github.com/FACorreiaa/mpesa-analyzer/pkg/config"
	"github.com/FACorreiaa/mpesa-analyzer/pkg/cron"
	"github.com/FACorreiaa/mpesa-analyzer/pkg/metrics"
	"github.com/FACorreiaa/mpesa-analyzer/pkg/middleware"
	"github.com/FACorreiaa/mpesa-analyzer/pkg/storage"
)

// Dependencies holds all application dependencies
type Dependencies struct {
	Config   *config.Config
	Logger   *slog.Logger
	Location *time.Location

	// Infrastructure
	Metrics     *metrics.Metrics // nil when metrics are disabled
	FileStorage storage.Storage
	SearchIndex *categorization.SearchIndex
	Scheduler   *cron.Scheduler

	// Services
	Categorizer      *categorization.Categorizer
	StatementService *importservice.StatementService

	// Handlers
	StatementHandler *importhandler.StatementHandler
}

// InitDependencies initializes all application dependencies
func InitDependencies(cfg *config.Config, logger *slog.Logger) (*Dependencies, error) {
	deps := &Dependencies{
		Config: cfg,
		Logger: logger,
	}

	loc, err := cfg.Pipeline.Location()
	if err != nil {
		return nil, err
	}
	deps.Location = loc

	if err := deps.initInfrastructure(); err != nil {
		return nil, fmt.Errorf("failed to init infrastructure: %w", err)
	}

	if err := deps.initServices(); err != nil {
		return nil, fmt.Errorf("failed to init services: %w", err)
	}

	deps.initHandlers()

	logger.Info("all dependencies initialized successfully")

	return deps, nil
}

// initInfrastructure sets up metrics, export storage, the search index and the
// retention scheduler
func (d *Dependencies) initInfrastructure() error {
	if d.Config.Observability.MetricsEnabled {
		d.Metrics = metrics.New()
	}

	store, err := storage.New(&storage.Config{LocalPath: d.Config.Storage.LocalPath})
	if err != nil {
		return err
	}
	d.FileStorage = store

	index, err := categorization.NewSearchIndex(d.Config.Pipeline.SearchIndexPath)
	if err != nil {
		return err
	}
	d.SearchIndex = index

	d.Scheduler = cron.NewScheduler(store, d.Config.Storage.PruneSchedule, d.Config.Storage.Retention(), d.Logger)

	d.Logger.Info("infrastructure initialized",
		slog.String("export_path", d.Config.Storage.LocalPath),
		slog.Bool("metrics", d.Metrics != nil),
		slog.Bool("persistent_index", d.Config.Pipeline.SearchIndexPath != ""),
	)
	return nil
}

// initServices loads the rule table and builds the statement pipeline
func (d *Dependencies) initServices() error {
	rules, err := categorization.LoadRulesFile(d.Config.Pipeline.RulesFile)
	if err != nil {
		return err
	}
	// The built-in table is known to carry shadowed rules; only custom tables warn.
	level := slog.LevelDebug
	if d.Config.Pipeline.RulesFile != "" {
		level = slog.LevelWarn
	}
	for _, s := range categorization.FindShadowedRules(rules) {
		d.Logger.Log(context.Background(), level, "rule is shadowed by an earlier rule",
			slog.Int("rule", s.Index),
			slog.String("pattern", s.Rule.Pattern),
			slog.Int("shadowed_by", s.ByIndex),
			slog.String("shadowed_by_pattern", s.By.Pattern),
		)
	}
	d.Categorizer = categorization.NewCategorizer(rules)

	d.StatementService = importservice.NewStatementService(d.Categorizer, d.Location, d.Logger).
		WithStorage(d.FileStorage).
		WithSearchIndex(d.SearchIndex).
		WithMetrics(d.Metrics).
		WithConcurrency(d.Config.Pipeline.BatchConcurrency)

	d.Logger.Info("services initialized", slog.Int("rules", d.Categorizer.RuleCount()))
	return nil
}

func (d *Dependencies) initHandlers() {
	d.StatementHandler = importhandler.NewStatementHandler(d.StatementService, d.Config.Server.MaxUploadBytes, d.Logger)
}

// Router builds the API handler with its middleware chain
func (d *Dependencies) Router() http.Handler {
	mux := http.NewServeMux()
	d.StatementHandler.Register(mux)
	mux.HandleFunc("GET /healthz", importhandler.Health)
	if d.Metrics != nil && d.Config.Observability.MetricsPort == d.Config.Server.Port {
		mux.Handle("GET /metrics", d.Metrics.Handler())
	}

	return middleware.Chain(mux,
		middleware.Recovery(d.Logger),
		middleware.Logger(d.Logger),
		middleware.CORS(d.Config.Server.AllowedOrigins),
		middleware.RateLimit(d.Config.Server.RateLimitPerSecond, d.Config.Server.RateLimitBurst, d.Logger),
	)
}

// Close releases resources held by dependencies
func (d *Dependencies) Close() {
	if d.SearchIndex != nil {
		if err := d.SearchIndex.Close(); err != nil {
			d.Logger.Error("failed to close search index", slog.Any("error", err))
		}
	}
}
