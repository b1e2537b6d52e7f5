package domain

import "errors"

// Failure taxonomy for the pipeline. Source failures are retryable with
// backoff; parse and validation failures are terminal for the attempt.
var (
	// ErrSourceUnavailable marks network or auth failures of an external
	// collaborator (question source, evidence source, prediction sink).
	ErrSourceUnavailable = errors.New("source unavailable")

	// ErrGroupingUnavailable is a batch-wide failure: no groups can be formed,
	// so the whole run halts (or falls back to one group per question).
	ErrGroupingUnavailable = errors.New("grouping unavailable")

	// ErrUnificationFailed means the unifier could not produce a usable merged
	// statement for a group; the group is skipped, never best-effort forecast.
	ErrUnificationFailed = errors.New("detail unification failed")

	// ErrForecastParse means the reasoning response could not be turned into a
	// structured forecast. Not retryable without a prompt change.
	ErrForecastParse = errors.New("forecast response unparsable")

	// ErrValidationFailed marks a numeric invariant violation in an otherwise
	// parsed forecast. Never retried.
	ErrValidationFailed = errors.New("forecast validation failed")

	// ErrSubmissionFailed means the prediction sink rejected the payload.
	ErrSubmissionFailed = errors.New("submission failed")
)
