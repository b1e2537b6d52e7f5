// Package asknews implements the EvidenceSource port against a news search
// API. Evidence is nice-to-have context: the adapter degrades failures to an
// empty result with a diagnostic, never to a blocked forecast.
package asknews

import (
	"context"
	"encoding/json"
	"fmt"
	"log/slog"
	"net/http"
	"net/url"
	"sort"
	"strconv"
	"strings"
	"time"

	"ForecastBot/internal/config"
	"ForecastBot/internal/domain"
	"ForecastBot/internal/ports"
)

const (
	strategyLatest     = "latest news"
	strategyHistorical = "news knowledge"
)

// Client fetches one hot batch and one historical batch per topic, mirroring
// the two search strategies the API offers.
type Client struct {
	baseURL      string
	clientID     string
	clientSecret string
	hotArticles  int
	historical   int
	http         *http.Client
	logger       *slog.Logger
}

var _ ports.EvidenceSource = (*Client)(nil)

// NewClient builds a client from configuration.
func NewClient(cfg config.EvidenceConfig, logger *slog.Logger) *Client {
	return &Client{
		baseURL:      strings.TrimSuffix(cfg.BaseURL, "/"),
		clientID:     cfg.ClientID,
		clientSecret: cfg.ClientSecret,
		hotArticles:  cfg.HotArticles,
		historical:   cfg.Historical,
		http:         &http.Client{Timeout: 20 * time.Second},
		logger:       logger.With("component", "asknews"),
	}
}

type searchResponse struct {
	Articles []struct {
		Title    string `json:"eng_title"`
		Summary  string `json:"summary"`
		SourceID string `json:"source_id"`
		PubDate  string `json:"pub_date"`
	} `json:"as_dicts"`
}

// Retrieve runs both search strategies for the topic and returns the merged
// article list, most recent first. An empty topic yields no articles. Search
// failures collapse to whatever the other strategy returned: evidence is
// context, never a blocker.
func (c *Client) Retrieve(ctx context.Context, topic string) ([]domain.Article, error) {
	if strings.TrimSpace(topic) == "" {
		return nil, nil
	}

	var articles []domain.Article
	seen := map[string]bool{}

	for _, batch := range []struct {
		strategy string
		count    int
	}{
		{strategyLatest, c.hotArticles},
		{strategyHistorical, c.historical},
	} {
		if batch.count <= 0 {
			continue
		}
		fetched, err := c.search(ctx, topic, batch.strategy, batch.count)
		if err != nil {
			c.logger.Warn("evidence search failed", "strategy", batch.strategy, "topic", topic, "error", err)
			continue
		}
		for _, article := range fetched {
			if seen[article.Headline] {
				continue
			}
			seen[article.Headline] = true
			articles = append(articles, article)
		}
	}

	sort.SliceStable(articles, func(i, j int) bool {
		return articles[i].PublishedAt.After(articles[j].PublishedAt)
	})
	return articles, nil
}

func (c *Client) search(ctx context.Context, topic, strategy string, count int) ([]domain.Article, error) {
	query := url.Values{}
	query.Set("query", topic)
	query.Set("n_articles", strconv.Itoa(count))
	query.Set("strategy", strategy)
	query.Set("diversify_sources", "true")

	endpoint := fmt.Sprintf("%s/news/search?%s", c.baseURL, query.Encode())
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, endpoint, nil)
	if err != nil {
		return nil, fmt.Errorf("build request: %w", err)
	}
	req.Header.Set("X-Client-ID", c.clientID)
	req.Header.Set("X-Client-Secret", c.clientSecret)

	resp, err := c.http.Do(req)
	if err != nil {
		return nil, fmt.Errorf("%w: evidence search: %v", domain.ErrSourceUnavailable, err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		return nil, fmt.Errorf("%w: evidence search returned %s", domain.ErrSourceUnavailable, resp.Status)
	}

	var parsed searchResponse
	if err := json.NewDecoder(resp.Body).Decode(&parsed); err != nil {
		return nil, fmt.Errorf("decode evidence response: %w", err)
	}

	articles := make([]domain.Article, 0, len(parsed.Articles))
	for _, raw := range parsed.Articles {
		article := domain.Article{
			Headline: raw.Title,
			Summary:  raw.Summary,
			SourceID: raw.SourceID,
		}
		if t, err := time.Parse(time.RFC3339, raw.PubDate); err == nil {
			article.PublishedAt = t
		}
		articles = append(articles, article)
	}
	return articles, nil
}
