// Package usecase orchestrates the forecasting run: load questions, cluster
// them, and forecast each cluster concurrently.
package usecase

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"sync"

	"golang.org/x/sync/errgroup"

	"ForecastBot/internal/config"
	"ForecastBot/internal/domain"
	"ForecastBot/internal/grouping"
	"ForecastBot/internal/normalize"
	"ForecastBot/internal/ports"
)

// Grouper partitions a question batch into topic groups.
type Grouper interface {
	Group(ctx context.Context, questions map[int64]domain.Question) ([]domain.Group, error)
}

// Unifier merges a group's question details into one shared description.
type Unifier interface {
	Unify(ctx context.Context, group domain.Group, questions map[int64]domain.Question) (domain.UnifiedDetails, error)
}

// Synthesizer produces the group forecast. It returns the forecast even when
// parsing or validation fails, so callers can persist the failed attempt.
type Synthesizer interface {
	Synthesize(ctx context.Context, group domain.Group, questions map[int64]domain.Question, details domain.UnifiedDetails, articles []domain.Article, linkDigest string) (domain.Forecast, error)
}

// Pipeline wires the forecasting stages. Repository and link researcher are
// optional; sink submission is gated by configuration.
type Pipeline struct {
	source      ports.QuestionSource
	evidence    ports.EvidenceSource
	grouper     Grouper
	unifier     Unifier
	synthesizer Synthesizer
	links       ports.LinkResearcher
	sink        ports.PredictionSink
	repo        ports.ForecastRepository
	auditLog    ports.ForecastLog

	platform config.PlatformConfig
	settings config.PipelineConfig
	logger   *slog.Logger
}

type Deps struct {
	Source      ports.QuestionSource
	Evidence    ports.EvidenceSource
	Grouper     Grouper
	Unifier     Unifier
	Synthesizer Synthesizer
	Links       ports.LinkResearcher
	Sink        ports.PredictionSink
	Repo        ports.ForecastRepository
	AuditLog    ports.ForecastLog
}

func NewPipeline(deps Deps, platform config.PlatformConfig, settings config.PipelineConfig, logger *slog.Logger) *Pipeline {
	return &Pipeline{
		source:      deps.Source,
		evidence:    deps.Evidence,
		grouper:     deps.Grouper,
		unifier:     deps.Unifier,
		synthesizer: deps.Synthesizer,
		links:       deps.Links,
		sink:        deps.Sink,
		repo:        deps.Repo,
		auditLog:    deps.AuditLog,
		platform:    platform,
		settings:    settings,
		logger:      logger.With("component", "pipeline"),
	}
}

// GroupOutcome records what happened to one group during a run.
type GroupOutcome struct {
	Group     domain.Group
	Validity  domain.Validity
	Submitted bool
	Err       error
}

// Report summarizes a run.
type Report struct {
	Questions int
	Groups    int
	Submitted int
	Skipped   int
	Failed    int
	Outcomes  []GroupOutcome
}

// Run executes one forecasting pass. Group failures are isolated: a group
// that errors is reported but never blocks its siblings.
func (p *Pipeline) Run(ctx context.Context) (Report, error) {
	questions, err := p.loadQuestions(ctx)
	if err != nil {
		return Report{}, err
	}

	report := Report{Questions: len(questions)}
	if len(questions) == 0 {
		p.logger.Info("no questions to forecast")
		return report, nil
	}

	groups, err := p.grouper.Group(ctx, questions)
	if err != nil {
		if !errors.Is(err, domain.ErrGroupingUnavailable) {
			return report, err
		}
		p.logger.Warn("grouping unavailable, forecasting questions individually", "error", err)
		groups = grouping.FallbackGroups(questions)
	}
	report.Groups = len(groups)
	p.logger.Info("questions grouped", "questions", len(questions), "groups", len(groups))

	var mu sync.Mutex
	eg, egCtx := errgroup.WithContext(ctx)
	eg.SetLimit(p.settings.Concurrency)

	for _, group := range groups {
		group := group
		eg.Go(func() error {
			outcome := p.processGroup(egCtx, group, questions)

			mu.Lock()
			defer mu.Unlock()
			report.Outcomes = append(report.Outcomes, outcome)
			switch {
			case outcome.Err != nil:
				report.Failed++
			case outcome.Submitted:
				report.Submitted++
			default:
				report.Skipped++
			}
			return nil
		})
	}
	if err := eg.Wait(); err != nil {
		return report, err
	}

	p.logger.Info("run complete",
		"groups", report.Groups,
		"submitted", report.Submitted,
		"skipped", report.Skipped,
		"failed", report.Failed)
	return report, nil
}

func (p *Pipeline) processGroup(ctx context.Context, group domain.Group, questions map[int64]domain.Question) GroupOutcome {
	ctx, cancel := context.WithTimeout(ctx, p.settings.GroupTimeout)
	defer cancel()

	logger := p.logger.With("group", group.Title)
	outcome := GroupOutcome{Group: group}

	details, err := p.unifier.Unify(ctx, group, questions)
	if err != nil {
		logger.Error("unification failed", "error", err)
		outcome.Err = err
		return outcome
	}
	details = normalize.Details(details)

	articles := p.retrieveEvidence(ctx, details.Title, logger)

	var linkDigest string
	if p.links != nil {
		linkDigest, err = p.links.Digest(ctx, details)
		if err != nil {
			logger.Warn("link research failed", "error", err)
			linkDigest = ""
		}
	}

	forecast, synthErr := p.synthesizer.Synthesize(ctx, group, questions, details, articles, linkDigest)
	outcome.Validity = forecast.Validity

	// A zero validity means the reasoning call itself failed; there is no
	// attempt worth persisting.
	if forecast.Validity != "" && p.auditLog != nil {
		if err := p.auditLog.Append(ctx, group, forecast); err != nil {
			logger.Error("audit log write failed", "error", err)
		}
	}

	if synthErr != nil {
		logger.Error("synthesis failed", "validity", forecast.Validity, "error", synthErr)
		p.recordForecast(ctx, group, forecast.Validity, logger)
		outcome.Err = synthErr
		return outcome
	}

	if forecast.Validity != domain.ValidityValid {
		logger.Warn("forecast not submitted", "validity", forecast.Validity)
		p.recordForecast(ctx, group, forecast.Validity, logger)
		return outcome
	}
	if !p.platform.Submit {
		logger.Info("submission disabled, forecast logged only")
		return outcome
	}

	if err := p.submitGroup(ctx, group, forecast, logger); err != nil {
		outcome.Err = err
		return outcome
	}
	outcome.Submitted = true

	// Recorded only once the sink accepted the group, so a failed or disabled
	// submission leaves the questions eligible for the next run.
	p.recordForecast(ctx, group, forecast.Validity, logger)
	return outcome
}

func (p *Pipeline) retrieveEvidence(ctx context.Context, topic string, logger *slog.Logger) []domain.Article {
	if p.evidence == nil {
		return nil
	}
	articles, err := p.evidence.Retrieve(ctx, topic)
	if err != nil {
		logger.Warn("evidence retrieval failed, forecasting without news", "error", err)
		return nil
	}
	return articles
}

func (p *Pipeline) submitGroup(ctx context.Context, group domain.Group, forecast domain.Forecast, logger *slog.Logger) error {
	for _, id := range group.QuestionIDs {
		pred, ok := forecast.Predictions[id]
		if !ok {
			return fmt.Errorf("no prediction for question %d", id)
		}
		if err := p.sink.SubmitPrediction(ctx, id, pred); err != nil {
			return fmt.Errorf("submit question %d: %w", id, err)
		}
		logger.Info("prediction submitted", "question_id", id)

		if p.platform.PostComments {
			rationale := forecast.Rationales[id]
			if rationale == "" {
				rationale = forecast.RationaleSummary
			}
			if err := p.sink.SubmitComment(ctx, id, rationale); err != nil {
				logger.Warn("comment post failed", "question_id", id, "error", err)
			}
		}
	}
	return nil
}

// recordForecast persists the validity outcome for every group member. A
// repository failure is logged but never fails the group; the audit log
// already holds the full record.
func (p *Pipeline) recordForecast(ctx context.Context, group domain.Group, validity domain.Validity, logger *slog.Logger) {
	if p.repo == nil || validity == "" {
		return
	}
	for _, id := range group.QuestionIDs {
		if err := p.repo.SaveForecast(ctx, id, group.Title, validity); err != nil {
			logger.Error("forecast record save failed", "question_id", id, "error", err)
		}
	}
}

// loadQuestions fetches the run's batch: explicit ids when configured,
// otherwise the tournament's open questions. Questions already forecast in a
// previous run are dropped.
func (p *Pipeline) loadQuestions(ctx context.Context) (map[int64]domain.Question, error) {
	var list []domain.Question
	if len(p.platform.QuestionIDs) > 0 {
		for _, id := range p.platform.QuestionIDs {
			q, err := p.source.QuestionByID(ctx, id)
			if err != nil {
				return nil, fmt.Errorf("load question %d: %w", id, err)
			}
			list = append(list, q)
		}
	} else {
		var err error
		list, err = p.source.ListQuestions(ctx, p.platform.TournamentID, p.platform.DropPredicted)
		if err != nil {
			return nil, fmt.Errorf("load tournament %d: %w", p.platform.TournamentID, err)
		}
	}

	questions := make(map[int64]domain.Question, len(list))
	ids := make([]int64, 0, len(list))
	for _, q := range list {
		questions[q.ID] = q
		ids = append(ids, q.ID)
	}

	if p.repo != nil && len(ids) > 0 {
		done, err := p.repo.AlreadyForecast(ctx, ids)
		if err != nil {
			return nil, fmt.Errorf("check forecast history: %w", err)
		}
		for id, forecast := range done {
			if forecast {
				p.logger.Info("question already forecast, skipping", "question_id", id)
				delete(questions, id)
			}
		}
	}
	return questions, nil
}
