// Package metaculus implements the QuestionSource and PredictionSink ports
// against the Metaculus-style platform API.
package metaculus

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strconv"
	"strings"
	"time"

	"github.com/cenkalti/backoff/v4"

	"ForecastBot/internal/config"
	"ForecastBot/internal/domain"
	"ForecastBot/internal/ports"
)

const listPageSize = 100

// Client talks to the platform API for question listings, details, and
// prediction submission.
type Client struct {
	baseURL    string
	token      string
	maxRetries uint64
	http       *http.Client
}

var _ ports.QuestionSource = (*Client)(nil)
var _ ports.PredictionSink = (*Client)(nil)

// NewClient creates a reusable HTTP client.
func NewClient(cfg config.PlatformConfig, maxRetries uint64) *Client {
	return &Client{
		baseURL:    strings.TrimSuffix(cfg.BaseURL, "/"),
		token:      cfg.Token,
		maxRetries: maxRetries,
		http:       &http.Client{Timeout: 30 * time.Second},
	}
}

// questionRecord mirrors the platform's question payload.
type questionRecord struct {
	ID                 int64    `json:"id"`
	Title              string   `json:"title"`
	Description        string   `json:"description"`
	ResolutionCriteria string   `json:"resolution_criteria"`
	FinePrint          string   `json:"fine_print"`
	CloseTime          string   `json:"close_time"`
	PublishTime        string   `json:"publish_time"`
	Options            []string `json:"options"`
	Possibilities      struct {
		Type string `json:"type"`
	} `json:"possibilities"`
	CommunityPrediction struct {
		Full struct {
			Q1 *float64 `json:"q1"`
			Q2 *float64 `json:"q2"`
			Q3 *float64 `json:"q3"`
		} `json:"full"`
	} `json:"community_prediction"`
	MyPredictions json.RawMessage `json:"my_predictions"`
}

// QuestionByID fetches and normalizes one question record.
func (c *Client) QuestionByID(ctx context.Context, id int64) (domain.Question, error) {
	var record questionRecord
	endpoint := fmt.Sprintf("%s/questions/%d/", c.baseURL, id)
	if err := c.getJSON(ctx, endpoint, &record); err != nil {
		return domain.Question{}, fmt.Errorf("question %d: %w", id, err)
	}
	return normalizeRecord(record), nil
}

// ListQuestions pages through the open questions of a tournament.
func (c *Client) ListQuestions(ctx context.Context, tournamentID int64, dropPredicted bool) ([]domain.Question, error) {
	var questions []domain.Question

	for offset := 0; ; offset += listPageSize {
		query := url.Values{}
		query.Set("project", strconv.FormatInt(tournamentID, 10))
		query.Set("status", "open")
		query.Set("order_by", "-activity")
		query.Set("include_description", "true")
		query.Set("limit", strconv.Itoa(listPageSize))
		query.Set("offset", strconv.Itoa(offset))

		var page struct {
			Results []questionRecord `json:"results"`
		}
		endpoint := fmt.Sprintf("%s/questions/?%s", c.baseURL, query.Encode())
		if err := c.getJSON(ctx, endpoint, &page); err != nil {
			return nil, fmt.Errorf("list tournament %d: %w", tournamentID, err)
		}
		if len(page.Results) == 0 {
			break
		}

		for _, record := range page.Results {
			if dropPredicted && hasPrediction(record.MyPredictions) {
				continue
			}
			questions = append(questions, normalizeRecord(record))
		}

		if len(page.Results) < listPageSize {
			break
		}
	}

	return questions, nil
}

// SubmitPrediction posts the per-question payload for the question's type.
func (c *Client) SubmitPrediction(ctx context.Context, questionID int64, pred domain.Prediction) error {
	var value any
	switch {
	case pred.Probability != nil:
		value = *pred.Probability
	case pred.Options != nil:
		value = pred.Options
	case pred.Numeric != nil:
		value = pred.Numeric
	default:
		return fmt.Errorf("%w: empty prediction for question %d", domain.ErrSubmissionFailed, questionID)
	}

	endpoint := fmt.Sprintf("%s/questions/%d/predict/", c.baseURL, questionID)
	if err := c.postJSON(ctx, endpoint, map[string]any{"prediction": value}); err != nil {
		return fmt.Errorf("%w: question %d: %v", domain.ErrSubmissionFailed, questionID, err)
	}
	return nil
}

// SubmitComment posts the rationale as a comment attached to the question.
func (c *Client) SubmitComment(ctx context.Context, questionID int64, rationale string) error {
	payload := map[string]any{
		"comment_text":              rationale,
		"submit_type":               "N",
		"include_latest_prediction": true,
		"question":                  questionID,
	}
	if err := c.postJSON(ctx, c.baseURL+"/comments/", payload); err != nil {
		return fmt.Errorf("%w: comment on question %d: %v", domain.ErrSubmissionFailed, questionID, err)
	}
	return nil
}

func normalizeRecord(record questionRecord) domain.Question {
	q := domain.Question{
		ID:                 record.ID,
		Title:              record.Title,
		Description:        record.Description,
		ResolutionCriteria: record.ResolutionCriteria,
		Type:               questionType(record),
		Options:            record.Options,
	}

	// Fine print is resolution detail; downstream stages see one field.
	if fp := strings.TrimSpace(record.FinePrint); fp != "" {
		q.ResolutionCriteria = strings.TrimSpace(q.ResolutionCriteria) + "\n\nFine print:\n" + fp
	}

	if t, err := time.Parse(time.RFC3339, record.CloseTime); err == nil {
		q.CloseTime = t
	}
	if t, err := time.Parse(time.RFC3339, record.PublishTime); err == nil {
		q.PublishTime = t
	}

	full := record.CommunityPrediction.Full
	if full.Q1 != nil && full.Q2 != nil && full.Q3 != nil {
		q.Community = &domain.CommunityQuartiles{
			Quartile1: *full.Q1,
			Median:    *full.Q2,
			Quartile3: *full.Q3,
		}
	}

	return q
}

func questionType(record questionRecord) domain.QuestionType {
	switch record.Possibilities.Type {
	case "continuous", "numeric":
		return domain.TypeNumeric
	case "multiple_choice":
		return domain.TypeMultipleChoice
	default:
		if len(record.Options) > 0 {
			return domain.TypeMultipleChoice
		}
		return domain.TypeBinary
	}
}

func hasPrediction(raw json.RawMessage) bool {
	trimmed := strings.TrimSpace(string(raw))
	return trimmed != "" && trimmed != "null"
}

func (c *Client) getJSON(ctx context.Context, endpoint string, v any) error {
	operation := func() error {
		req, err := http.NewRequestWithContext(ctx, http.MethodGet, endpoint, nil)
		if err != nil {
			return backoff.Permanent(err)
		}
		return c.do(req, v)
	}
	return c.retry(ctx, operation)
}

func (c *Client) postJSON(ctx context.Context, endpoint string, payload any) error {
	body, err := json.Marshal(payload)
	if err != nil {
		return fmt.Errorf("marshal payload: %w", err)
	}

	operation := func() error {
		req, err := http.NewRequestWithContext(ctx, http.MethodPost, endpoint, bytes.NewReader(body))
		if err != nil {
			return backoff.Permanent(err)
		}
		req.Header.Set("Content-Type", "application/json")
		return c.do(req, nil)
	}
	return c.retry(ctx, operation)
}

func (c *Client) retry(ctx context.Context, operation func() error) error {
	policy := backoff.WithContext(backoff.WithMaxRetries(backoff.NewExponentialBackOff(), c.maxRetries), ctx)
	if err := backoff.Retry(operation, policy); err != nil {
		return fmt.Errorf("%w: %v", domain.ErrSourceUnavailable, err)
	}
	return nil
}

func (c *Client) do(req *http.Request, v any) error {
	if c.token != "" {
		req.Header.Set("Authorization", "Token "+c.token)
	}

	resp, err := c.http.Do(req)
	if err != nil {
		return fmt.Errorf("do request: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode == http.StatusTooManyRequests || resp.StatusCode >= 500 {
		return fmt.Errorf("platform returned %s", resp.Status)
	}
	if resp.StatusCode >= http.StatusBadRequest {
		payload, _ := io.ReadAll(io.LimitReader(resp.Body, 1024))
		return backoff.Permanent(fmt.Errorf("platform error %s: %s", resp.Status, strings.TrimSpace(string(payload))))
	}

	if v == nil {
		return nil
	}
	if err := json.NewDecoder(resp.Body).Decode(v); err != nil {
		return fmt.Errorf("decode response: %w", err)
	}
	return nil
}
