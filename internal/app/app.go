// Package app assembles the forecasting pipeline from configuration.
package app

import (
	"context"
	"fmt"
	"log/slog"

	"ForecastBot/internal/config"
	"ForecastBot/internal/grouping"
	"ForecastBot/internal/infrastructure/asknews"
	"ForecastBot/internal/infrastructure/llm"
	"ForecastBot/internal/infrastructure/metaculus"
	"ForecastBot/internal/infrastructure/research"
	"ForecastBot/internal/infrastructure/storage"
	"ForecastBot/internal/ports"
	"ForecastBot/internal/synthesis"
	"ForecastBot/internal/unify"
	"ForecastBot/internal/usecase"
)

// App owns the wired pipeline plus the resources that need closing.
type App struct {
	pipeline *usecase.Pipeline
	repo     *storage.PostgresRepository
	auditLog *storage.FileForecastLog
	logger   *slog.Logger
}

// New builds all adapters and wires the pipeline. The Postgres repository is
// optional; without a DSN the run proceeds without cross-run deduplication.
func New(ctx context.Context, cfg config.Config, logger *slog.Logger) (*App, error) {
	platform := metaculus.NewClient(cfg.Platform, cfg.Pipeline.MaxRetries)
	reasoner := llm.NewClient(cfg.Reasoning, cfg.Pipeline.MaxRetries)

	var evidence ports.EvidenceSource
	if cfg.Evidence.ClientID != "" {
		evidence = asknews.NewClient(cfg.Evidence, logger)
	} else {
		logger.Warn("evidence source not configured, forecasting without news")
	}

	var links ports.LinkResearcher
	if cfg.Reasoning.LinkResearch {
		links = research.NewLinkResearcher(reasoner, logger)
	}

	var repo *storage.PostgresRepository
	if cfg.Database.DSN != "" {
		var err error
		repo, err = storage.NewPostgresRepository(ctx, cfg.Database.DSN)
		if err != nil {
			return nil, fmt.Errorf("connect forecast repository: %w", err)
		}
	} else {
		logger.Warn("database not configured, skipping cross-run deduplication")
	}

	auditLog, err := storage.NewFileForecastLog(cfg.Pipeline.LogDir)
	if err != nil {
		if repo != nil {
			repo.Close()
		}
		return nil, fmt.Errorf("open forecast log: %w", err)
	}
	logger.Info("forecast log opened", "path", auditLog.Path(), "run_id", auditLog.RunID())

	deps := usecase.Deps{
		Source:      platform,
		Evidence:    evidence,
		Grouper:     grouping.NewEngine(reasoner, logger),
		Unifier:     unify.NewUnifier(reasoner, logger),
		Synthesizer: synthesis.NewSynthesizer(reasoner, synthesis.Options{InsightsPass: cfg.Reasoning.InsightsPass}, logger),
		Links:       links,
		Sink:        platform,
		AuditLog:    auditLog,
	}
	if repo != nil {
		deps.Repo = repo
	}

	return &App{
		pipeline: usecase.NewPipeline(deps, cfg.Platform, cfg.Pipeline, logger),
		repo:     repo,
		auditLog: auditLog,
		logger:   logger,
	}, nil
}

// Run executes one forecasting pass and reports the outcome.
func (a *App) Run(ctx context.Context) error {
	report, err := a.pipeline.Run(ctx)
	if err != nil {
		return err
	}
	if report.Failed > 0 {
		return fmt.Errorf("%d of %d groups failed", report.Failed, report.Groups)
	}
	return nil
}

// Close releases the audit log and database resources.
func (a *App) Close() {
	if err := a.auditLog.Close(); err != nil {
		a.logger.Error("close forecast log", "error", err)
	}
	if a.repo != nil {
		if err := a.repo.Close(); err != nil {
			a.logger.Error("close forecast repository", "error", err)
		}
	}
}
