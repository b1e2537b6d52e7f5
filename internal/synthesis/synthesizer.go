// Package synthesis turns a unified problem statement plus news evidence into
// a structured, validated forecast through the reasoning service.
package synthesis

import (
	"context"
	"encoding/json"
	"fmt"
	"log/slog"
	"strconv"
	"strings"
	"time"

	"ForecastBot/internal/domain"
	"ForecastBot/internal/llmtext"
	"ForecastBot/internal/ports"
)

// Options tune optional prompt-enrichment passes.
type Options struct {
	// InsightsPass distills retrieved articles into bullet insights with an
	// extra reasoning call before the main prompt is built.
	InsightsPass bool
}

// Synthesizer drives the forecast reasoning call and parses its response.
type Synthesizer struct {
	reasoner ports.ReasoningClient
	opts     Options
	logger   *slog.Logger
	now      func() time.Time
}

// NewSynthesizer wires the reasoning client.
func NewSynthesizer(reasoner ports.ReasoningClient, opts Options, logger *slog.Logger) *Synthesizer {
	return &Synthesizer{reasoner: reasoner, opts: opts, logger: logger, now: time.Now}
}

// Synthesize produces the forecast for one group. The forecast is returned
// even on parse or validation failure, marked malformed and carrying the raw
// response, so the caller can persist it for audit; the error tells the caller
// not to submit. A group with flagged information gaps is still forecast but
// never marked fully valid.
func (s *Synthesizer) Synthesize(ctx context.Context, group domain.Group, questions map[int64]domain.Question, details domain.UnifiedDetails, articles []domain.Article, linkDigest string) (domain.Forecast, error) {
	now := s.now()

	var insights string
	if s.opts.InsightsPass && len(articles) > 0 {
		extracted, err := s.reasoner.Complete(ctx, insightsSystemPrompt, buildInsightsPrompt(articles, now))
		if err != nil {
			// Insights are an enrichment of evidence, which is best-effort.
			s.logger.Warn("insights pass failed, continuing with raw articles", "group", group.Title, "error", err)
		} else {
			insights = extracted
		}
	}

	prompt := buildForecastPrompt(group, questions, details, articles, insights, linkDigest, now)
	response, err := s.reasoner.Complete(ctx, systemPrompt, prompt)
	if err != nil {
		return domain.Forecast{}, fmt.Errorf("forecast reasoning call: %w", err)
	}

	forecast := domain.Forecast{
		GroupTitle:  group.Title,
		Validity:    domain.ValidityMalformed,
		RawResponse: response,
		CreatedAt:   now,
	}

	predictions, rationales, summary, err := parseResponse(response, group, questions)
	if err != nil {
		s.logger.Error("unparsable forecast response", "group", group.Title, "error", err)
		return forecast, fmt.Errorf("%w: %v", domain.ErrForecastParse, err)
	}

	forecast.Predictions = predictions
	forecast.Rationales = rationales
	forecast.RationaleSummary = summary

	if err := forecast.Validate(group, questions); err != nil {
		return forecast, err
	}

	if len(details.MissingInformation) > 0 {
		forecast.Validity = domain.ValidityIncomplete
		forecast.RationaleSummary = incompleteCaveat(details.MissingInformation) + "\n\n" + forecast.RationaleSummary
		return forecast, nil
	}

	forecast.Validity = domain.ValidityValid
	return forecast, nil
}

func incompleteCaveat(gaps []string) string {
	return fmt.Sprintf("Caveat: this forecast was made despite %d unresolved information gap(s): %s.",
		len(gaps), strings.Join(gaps, "; "))
}

// parseResponse decodes the structured tail of the reasoning response. Every
// question id in the group must have both a forecast value and a summary;
// values are checked for shape here and for numeric invariants later.
func parseResponse(response string, group domain.Group, questions map[int64]domain.Question) (map[int64]domain.Prediction, map[int64]string, string, error) {
	var raw struct {
		Forecasts map[string]json.RawMessage `json:"forecasts"`
		Summaries map[string]string          `json:"summaries"`
		Summary   string                     `json:"summary"`
	}
	if err := llmtext.ExtractObject(response, &raw); err != nil {
		return nil, nil, "", err
	}
	if len(raw.Forecasts) == 0 {
		return nil, nil, "", fmt.Errorf("response carries no forecasts block")
	}

	predictions := make(map[int64]domain.Prediction, len(group.QuestionIDs))
	rationales := make(map[int64]string, len(group.QuestionIDs))

	for _, id := range group.QuestionIDs {
		key := strconv.FormatInt(id, 10)
		value, ok := raw.Forecasts[key]
		if !ok {
			return nil, nil, "", fmt.Errorf("no forecast block for question %d", id)
		}

		pred, err := decodePrediction(value, questions[id].Type)
		if err != nil {
			return nil, nil, "", fmt.Errorf("question %d: %w", id, err)
		}
		predictions[id] = pred

		if summary, ok := raw.Summaries[key]; ok {
			rationales[id] = summary
		}
	}

	summary := strings.TrimSpace(raw.Summary)
	if summary == "" {
		// Tolerate a missing overall summary by stitching the per-question ones.
		parts := make([]string, 0, len(rationales))
		for _, id := range group.QuestionIDs {
			if r := rationales[id]; r != "" {
				parts = append(parts, r)
			}
		}
		summary = strings.Join(parts, "\n")
	}
	if summary == "" {
		return nil, nil, "", fmt.Errorf("response carries no rationale text")
	}

	return predictions, rationales, summary, nil
}

func decodePrediction(value json.RawMessage, qtype domain.QuestionType) (domain.Prediction, error) {
	switch qtype {
	case domain.TypeBinary:
		var prob float64
		if err := json.Unmarshal(value, &prob); err != nil {
			return domain.Prediction{}, fmt.Errorf("non-numeric probability: %s", string(value))
		}
		return domain.Prediction{Probability: &prob}, nil
	case domain.TypeMultipleChoice:
		var options map[string]float64
		if err := json.Unmarshal(value, &options); err != nil {
			return domain.Prediction{}, fmt.Errorf("option probabilities not an object of numbers: %s", string(value))
		}
		return domain.Prediction{Options: options}, nil
	case domain.TypeNumeric:
		var params domain.NumericParams
		if err := json.Unmarshal(value, &params); err != nil {
			return domain.Prediction{}, fmt.Errorf("distribution parameters not an object of numbers: %s", string(value))
		}
		return domain.Prediction{Numeric: &params}, nil
	default:
		return domain.Prediction{}, fmt.Errorf("unknown question type %q", qtype)
	}
}
