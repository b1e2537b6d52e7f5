// Package research fetches pages linked from question details and condenses
// them into a short evidence digest.
package research

import (
	"context"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"regexp"
	"strings"
	"time"

	"ForecastBot/internal/domain"
	"ForecastBot/internal/normalize"
	"ForecastBot/internal/ports"
)

const (
	maxLinks     = 3
	maxPageBytes = 256 << 10
	maxPageChars = 8000
)

var urlExpr = regexp.MustCompile(`https?://[^\s)\]>"']+`)

const digestSystemPrompt = `You extract facts relevant to a forecasting question from a web page.
Summarize in at most five bullet points the facts, figures and dates on the page
that bear on the question. If the page has nothing relevant, reply with the
single word: irrelevant.`

// LinkResearcher resolves links mentioned in question backgrounds and asks the
// reasoning model to distill each page. Every step is best effort: pages that
// fail to load or turn out irrelevant are skipped.
type LinkResearcher struct {
	client   *http.Client
	reasoner ports.ReasoningClient
	logger   *slog.Logger
}

var _ ports.LinkResearcher = (*LinkResearcher)(nil)

func NewLinkResearcher(reasoner ports.ReasoningClient, logger *slog.Logger) *LinkResearcher {
	return &LinkResearcher{
		client:   &http.Client{Timeout: 20 * time.Second},
		reasoner: reasoner,
		logger:   logger.With("component", "link_researcher"),
	}
}

// Digest fetches up to three links from the description and returns their
// combined summaries. An empty digest with nil error means no usable links.
func (r *LinkResearcher) Digest(ctx context.Context, details domain.UnifiedDetails) (string, error) {
	links := extractLinks(details.Description)
	if len(links) == 0 {
		return "", nil
	}

	var digests []string
	for _, link := range links {
		text, err := r.fetchPage(ctx, link)
		if err != nil {
			r.logger.Warn("page fetch failed", "url", link, "error", err)
			continue
		}
		if text == "" {
			continue
		}

		prompt := fmt.Sprintf("Question: %s\n\nPage (%s):\n%s", details.Title, link, text)
		summary, err := r.reasoner.Complete(ctx, digestSystemPrompt, prompt)
		if err != nil {
			r.logger.Warn("page digest failed", "url", link, "error", err)
			continue
		}
		summary = strings.TrimSpace(summary)
		if summary == "" || strings.EqualFold(summary, "irrelevant") {
			continue
		}
		digests = append(digests, fmt.Sprintf("From %s:\n%s", link, summary))
	}

	return strings.Join(digests, "\n\n"), nil
}

func (r *LinkResearcher) fetchPage(ctx context.Context, url string) (string, error) {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, url, nil)
	if err != nil {
		return "", err
	}
	req.Header.Set("User-Agent", "ForecastBot/1.0")

	resp, err := r.client.Do(req)
	if err != nil {
		return "", err
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		return "", fmt.Errorf("status %d", resp.StatusCode)
	}
	if ct := resp.Header.Get("Content-Type"); ct != "" && !strings.Contains(ct, "html") && !strings.Contains(ct, "text") {
		return "", nil
	}

	body, err := io.ReadAll(io.LimitReader(resp.Body, maxPageBytes))
	if err != nil {
		return "", err
	}

	text := normalize.Text(string(body))
	if len(text) > maxPageChars {
		text = text[:maxPageChars]
	}
	return text, nil
}

// extractLinks pulls distinct http(s) URLs in order of appearance, capped at
// maxLinks. Trailing punctuation that commonly follows prose links is trimmed.
func extractLinks(text string) []string {
	seen := make(map[string]bool)
	var links []string
	for _, match := range urlExpr.FindAllString(text, -1) {
		link := strings.TrimRight(match, ".,;:")
		if seen[link] {
			continue
		}
		seen[link] = true
		links = append(links, link)
		if len(links) == maxLinks {
			break
		}
	}
	return links
}
