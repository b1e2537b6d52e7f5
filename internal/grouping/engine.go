// Package grouping partitions a batch of questions into semantically coherent
// groups using a single reasoning-service call plus deterministic repair.
package grouping

import (
	"context"
	"fmt"
	"log/slog"
	"sort"
	"strings"

	"ForecastBot/internal/domain"
	"ForecastBot/internal/llmtext"
	"ForecastBot/internal/ports"
)

const systemPrompt = `You will be provided a list of forecasting questions. Each line holds a question ID and the question title.

Your task is to group the questions that are extremely related to each other.
It is not enough that they belong to the same broad topic, such as "Finance" or "Basketball".
They have to be asking about the exact same subject (but maybe from a different angle) to share a group.
Questions that are unrelated should be in their own group.

For each group, provide a brief descriptor that summarizes the subject being asked about.
Phrase the descriptor as a search query you would use to find news about the subject.

Your answer must be a JSON object where the keys are the group descriptors and the values are arrays of question IDs belonging to that group.
It must not contain any other text, comments, or symbols, so that it can be parsed directly:

{
"group descriptor 1": [101, 102],
"group descriptor 2": [103]
}`

// Engine asks the reasoning service for a grouping decision and enforces the
// partition invariant on whatever comes back.
type Engine struct {
	reasoner ports.ReasoningClient
	logger   *slog.Logger
}

// NewEngine wires the reasoning client.
func NewEngine(reasoner ports.ReasoningClient, logger *slog.Logger) *Engine {
	return &Engine{reasoner: reasoner, logger: logger}
}

// Group partitions the questions into titled groups. The returned groups
// cover exactly the input id set: ids invented by the reasoning service are
// dropped with a diagnostic, omitted ids get a singleton group titled by the
// question's own title. A failed or unparsable call is a batch-wide failure.
func (e *Engine) Group(ctx context.Context, questions map[int64]domain.Question) ([]domain.Group, error) {
	if len(questions) == 0 {
		return nil, fmt.Errorf("%w: empty question batch", domain.ErrGroupingUnavailable)
	}

	response, err := e.reasoner.Complete(ctx, systemPrompt, formatQuestionList(questions))
	if err != nil {
		return nil, fmt.Errorf("%w: %v", domain.ErrGroupingUnavailable, err)
	}

	var raw map[string][]int64
	if err := llmtext.ExtractObject(response, &raw); err != nil {
		e.logger.Error("unparsable grouping response", "response", response)
		return nil, fmt.Errorf("%w: %v", domain.ErrGroupingUnavailable, err)
	}

	return e.repairPartition(raw, questions), nil
}

// FallbackGroups places every question in its own group, for callers that opt
// to continue after a grouping failure.
func FallbackGroups(questions map[int64]domain.Question) []domain.Group {
	groups := make([]domain.Group, 0, len(questions))
	for id, q := range questions {
		groups = append(groups, domain.Group{Title: q.Title, QuestionIDs: []int64{id}})
	}
	sort.Slice(groups, func(i, j int) bool { return groups[i].QuestionIDs[0] < groups[j].QuestionIDs[0] })
	return groups
}

func (e *Engine) repairPartition(raw map[string][]int64, questions map[int64]domain.Question) []domain.Group {
	assigned := make(map[int64]bool, len(questions))
	groups := make([]domain.Group, 0, len(raw))

	titles := make([]string, 0, len(raw))
	for title := range raw {
		titles = append(titles, title)
	}
	sort.Strings(titles)

	for _, title := range titles {
		var ids []int64
		for _, id := range raw[title] {
			if _, known := questions[id]; !known {
				e.logger.Warn("grouping returned unknown question id", "id", id, "group", title)
				continue
			}
			if assigned[id] {
				e.logger.Warn("grouping assigned question id twice", "id", id, "group", title)
				continue
			}
			assigned[id] = true
			ids = append(ids, id)
		}
		if len(ids) == 0 {
			continue
		}
		sort.Slice(ids, func(i, j int) bool { return ids[i] < ids[j] })
		groups = append(groups, domain.Group{Title: title, QuestionIDs: ids})
	}

	// Omitted ids become singleton groups keyed by their own title.
	var omitted []int64
	for id := range questions {
		if !assigned[id] {
			omitted = append(omitted, id)
		}
	}
	sort.Slice(omitted, func(i, j int) bool { return omitted[i] < omitted[j] })
	for _, id := range omitted {
		e.logger.Warn("grouping omitted question id, synthesizing singleton group", "id", id)
		groups = append(groups, domain.Group{Title: questions[id].Title, QuestionIDs: []int64{id}})
	}

	return groups
}

func formatQuestionList(questions map[int64]domain.Question) string {
	ids := make([]int64, 0, len(questions))
	for id := range questions {
		ids = append(ids, id)
	}
	sort.Slice(ids, func(i, j int) bool { return ids[i] < ids[j] })

	var sb strings.Builder
	sb.WriteString("Here is the list of questions:\n")
	for _, id := range ids {
		fmt.Fprintf(&sb, "- id=%d: %s\n", id, questions[id].Title)
	}
	return sb.String()
}
