package ports

import (
	"context"

	"ForecastBot/internal/domain"
)

// QuestionSource pulls question records from the prediction platform.
type QuestionSource interface {
	QuestionByID(ctx context.Context, id int64) (domain.Question, error)
	// ListQuestions returns the open questions of a tournament; with
	// dropPredicted set, questions this account already forecast are excluded.
	ListQuestions(ctx context.Context, tournamentID int64, dropPredicted bool) ([]domain.Question, error)
}

// EvidenceSource returns a bounded, most-recent-first list of news articles
// for a topic. Implementations are best-effort: they degrade failures to an
// empty result, and callers treat any residual error as an empty result too.
type EvidenceSource interface {
	Retrieve(ctx context.Context, topic string) ([]domain.Article, error)
}

// ReasoningClient invokes the language reasoning service with a structured
// prompt and returns free-form text. The service enforces no schema; all
// structure is imposed by the prompt and parsed defensively by callers.
type ReasoningClient interface {
	Complete(ctx context.Context, systemPrompt, userPrompt string) (string, error)
}

// PredictionSink accepts a per-question prediction plus rationale text.
type PredictionSink interface {
	SubmitPrediction(ctx context.Context, questionID int64, pred domain.Prediction) error
	SubmitComment(ctx context.Context, questionID int64, rationale string) error
}

// ForecastRepository records which questions already carry a submitted
// forecast, for deduplication across runs.
type ForecastRepository interface {
	AlreadyForecast(ctx context.Context, ids []int64) (map[int64]bool, error)
	SaveForecast(ctx context.Context, questionID int64, groupTitle string, validity domain.Validity) error
}

// ForecastLog appends one audit record per group to durable storage. Writes
// are serialized and flushed before Append returns.
type ForecastLog interface {
	Append(ctx context.Context, group domain.Group, forecast domain.Forecast) error
	Close() error
}

// LinkResearcher distills the pages linked from a question background into a
// plain-text digest usable as extra evidence. Best-effort, like EvidenceSource.
type LinkResearcher interface {
	Digest(ctx context.Context, details domain.UnifiedDetails) (string, error)
}
