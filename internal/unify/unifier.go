// Package unify merges the questions of a group into one problem statement
// suitable for a single forecast.
package unify

import (
	"context"
	"fmt"
	"log/slog"
	"strings"

	"ForecastBot/internal/domain"
	"ForecastBot/internal/llmtext"
	"ForecastBot/internal/ports"
)

const systemPrompt = `You will receive a series of similar forecasting questions. Each question has its own background information and resolution criteria, even though they might be very similar.

Your task is to synthesize the information from all the questions in the group and provide a unified background and resolution criteria for the group.
Do this by deleting information that is repeated in all the questions and keeping information that differs between them.
Your task is only to eliminate redundancy; no information should be lost in this process.
It is okay for the unified question to be a series of different questions, grouped together.

If any critical piece of information is missing or contradictory between the questions (for example, conflicting resolution dates), list each such gap explicitly. Leave the list empty when nothing blocks a clean forecast.

Provide your answer in the following JSON format:

{
    "title": "string",
    "background": "string",
    "resolution_criteria": "string",
    "missing_information": ["string", ...]
}`

// Unifier builds one UnifiedDetails per group. Singleton groups never reach
// the reasoning service.
type Unifier struct {
	reasoner ports.ReasoningClient
	logger   *slog.Logger
}

// NewUnifier wires the reasoning client.
func NewUnifier(reasoner ports.ReasoningClient, logger *slog.Logger) *Unifier {
	return &Unifier{reasoner: reasoner, logger: logger}
}

// Unify merges the group's questions into a single statement. For a single
// question the transform is an identity copy; multi-question groups go through
// one reasoning call. A malformed or empty response fails the group.
func (u *Unifier) Unify(ctx context.Context, group domain.Group, questions map[int64]domain.Question) (domain.UnifiedDetails, error) {
	if len(group.QuestionIDs) == 0 {
		return domain.UnifiedDetails{}, fmt.Errorf("%w: group %q has no questions", domain.ErrUnificationFailed, group.Title)
	}

	if len(group.QuestionIDs) == 1 {
		q, ok := questions[group.QuestionIDs[0]]
		if !ok {
			return domain.UnifiedDetails{}, fmt.Errorf("%w: question %d not loaded", domain.ErrUnificationFailed, group.QuestionIDs[0])
		}
		return domain.UnifiedDetails{
			Title:              q.Title,
			Description:        q.Description,
			ResolutionCriteria: q.ResolutionCriteria,
		}, nil
	}

	userPrompt, err := formatGroupDetails(group, questions)
	if err != nil {
		return domain.UnifiedDetails{}, err
	}

	response, err := u.reasoner.Complete(ctx, systemPrompt, userPrompt)
	if err != nil {
		return domain.UnifiedDetails{}, fmt.Errorf("%w: %v", domain.ErrUnificationFailed, err)
	}

	var parsed struct {
		Title              string   `json:"title"`
		Background         string   `json:"background"`
		ResolutionCriteria string   `json:"resolution_criteria"`
		MissingInformation []string `json:"missing_information"`
	}
	if err := llmtext.ExtractObject(response, &parsed); err != nil {
		u.logger.Error("unparsable unification response", "group", group.Title, "response", response)
		return domain.UnifiedDetails{}, fmt.Errorf("%w: %v", domain.ErrUnificationFailed, err)
	}

	if strings.TrimSpace(parsed.Background) == "" || strings.TrimSpace(parsed.ResolutionCriteria) == "" {
		return domain.UnifiedDetails{}, fmt.Errorf("%w: empty merged fields for group %q", domain.ErrUnificationFailed, group.Title)
	}

	title := strings.TrimSpace(parsed.Title)
	if title == "" {
		title = group.Title
	}

	if len(parsed.MissingInformation) > 0 {
		u.logger.Warn("unification flagged information gaps",
			"group", group.Title, "gaps", len(parsed.MissingInformation))
	}

	return domain.UnifiedDetails{
		Title:              title,
		Description:        parsed.Background,
		ResolutionCriteria: parsed.ResolutionCriteria,
		MissingInformation: parsed.MissingInformation,
	}, nil
}

func formatGroupDetails(group domain.Group, questions map[int64]domain.Question) (string, error) {
	var sb strings.Builder
	for _, id := range group.QuestionIDs {
		q, ok := questions[id]
		if !ok {
			return "", fmt.Errorf("%w: question %d not loaded", domain.ErrUnificationFailed, id)
		}
		fmt.Fprintf(&sb, `The following are the details of the question with ID %d:

Title: %q

The Resolution Criteria for the question is:
`+"```\n%s\n```"+`

Some background information was provided (at %s), to give context to the question:
`+"```\n%s\n```"+`

This is the end of the details of question %d.

`, id, q.Title, q.ResolutionCriteria, q.PublishTime.Format("2006-01-02"), q.Description, id)
	}
	return sb.String(), nil
}
