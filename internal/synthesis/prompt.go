package synthesis

import (
	"fmt"
	"strings"
	"time"

	"ForecastBot/internal/domain"
)

const systemPrompt = `You are a member of a team of forecasters.
You are trying to come up with a forecast for one or more questions.
To create an accurate forecast, your team follows a meticulous series of steps.
You are thorough and precise in your responses.
Your answers are concise and to the point.`

const insightsSystemPrompt = `You are an assistant to a team of forecasters.
You extract relevant insights from news articles so that senior members can make a forecast.
Be mindful of both quantitative and qualitative information: the current state of affairs, recent developments, conflicting views between sources, data points, and expert statements.
Provide your answer as a bullet list of facts and insights. Do not add anything else.`

const outputInstructions = `Your answer MUST end with a JSON object in the following format, with one entry per question ID:
{
    "forecasts": {"<question_id>": <forecast>},
    "summaries": {"<question_id>": "<summary>"},
    "summary": "<overall rationale for the group>"
}
For binary questions each <forecast> is a number between 0 and 1, the probability of the event occurring.
For multiple-choice questions each <forecast> is an object mapping every option to its probability; the probabilities must sum to 1.
For numeric questions each <forecast> is an object {"median": m, "q1": a, "q3": b} describing your predictive distribution.
Each <summary> is a paragraph highlighting the key reasoning behind that question's forecast.`

// buildForecastPrompt assembles the single reasoning prompt for a group:
// unified statement, per-question list, evidence digest, reference forecasts,
// and any information gaps the unifier flagged.
func buildForecastPrompt(group domain.Group, questions map[int64]domain.Question, details domain.UnifiedDetails, articles []domain.Article, insights, linkDigest string, now time.Time) string {
	var sb strings.Builder

	fmt.Fprintf(&sb, "Today is %s.\n\n", now.Format("2006-01-02"))
	fmt.Fprintf(&sb, "Title: %q\n\n", details.Title)

	sb.WriteString("Following are the questions that must be answered, preceded by their respective question IDs:\n")
	for _, id := range group.QuestionIDs {
		q := questions[id]
		fmt.Fprintf(&sb, "- question_id=%d (%s, closes %s): %s\n", id, q.Type, q.CloseTime.Format("2006-01-02"), q.Title)
	}

	fmt.Fprintf(&sb, "\nThe Resolution Criteria is:\n```\n%s\n```\n", details.ResolutionCriteria)
	fmt.Fprintf(&sb, "\nThe following background information was provided to give some context:\n```\n%s\n```\n", details.Description)

	if len(details.MissingInformation) > 0 {
		sb.WriteString("\nThe following information gaps were identified while merging the questions. Factor the added uncertainty into your forecast and mention it in your summaries:\n")
		for _, gap := range details.MissingInformation {
			fmt.Fprintf(&sb, "- %s\n", gap)
		}
	}

	if insights != "" {
		fmt.Fprintf(&sb, "\nAn assistant extracted these insights from recent news coverage:\n```\n%s\n```\n", insights)
	} else if len(articles) > 0 {
		sb.WriteString("\nThe following news articles provide context on the topic, most recent first:\n")
		sb.WriteString(formatArticles(articles))
	}

	if linkDigest != "" {
		fmt.Fprintf(&sb, "\nInformation extracted from pages linked in the question background:\n```\n%s\n```\n", linkDigest)
	}

	if refs := formatCommunityReferences(group, questions); refs != "" {
		sb.WriteString("\nAs reference points, the community of forecasters currently holds these aggregate views. Lean on them as a sanity check for the range of believable forecasts:\n")
		sb.WriteString(refs)
	}

	sb.WriteString("\nFor each question: settle on a baseline from historical frequency, weigh recent developments against it, and cross-check related questions for consistency. If the questions in this group are mutually exclusive, make sure their probabilities sum to 1.\n\n")
	sb.WriteString(outputInstructions)

	return sb.String()
}

func buildInsightsPrompt(articles []domain.Article, now time.Time) string {
	var sb strings.Builder
	fmt.Fprintf(&sb, "Today is %s.\n\nYou are given the following news articles, most recent first:\n", now.Format("2006-01-02"))
	sb.WriteString(formatArticles(articles))
	return sb.String()
}

func formatArticles(articles []domain.Article) string {
	var sb strings.Builder
	for _, a := range articles {
		fmt.Fprintf(&sb, "- [%s, %s] %s: %s\n",
			a.SourceID, a.PublishedAt.Format("2006-01-02"), a.Headline, a.Summary)
	}
	return sb.String()
}

func formatCommunityReferences(group domain.Group, questions map[int64]domain.Question) string {
	var sb strings.Builder
	for _, id := range group.QuestionIDs {
		q := questions[id]
		if q.Community == nil {
			continue
		}
		fmt.Fprintf(&sb, "- question_id=%d: first quartile %.2f, median %.2f, third quartile %.2f\n",
			id, q.Community.Quartile1, q.Community.Median, q.Community.Quartile3)
	}
	return sb.String()
}
