package metaculus

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"ForecastBot/internal/config"
	"ForecastBot/internal/domain"
)

func newTestClient(serverURL string) *Client {
	return NewClient(config.PlatformConfig{BaseURL: serverURL, Token: "secret"}, 0)
}

func TestQuestionByIDNormalizesRecord(t *testing.T) {
	t.Parallel()

	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if got := r.Header.Get("Authorization"); got != "Token secret" {
			t.Errorf("unexpected auth header: %q", got)
		}
		if r.URL.Path != "/questions/42/" {
			t.Errorf("unexpected path: %s", r.URL.Path)
		}
		_, _ = w.Write([]byte(`{
			"id": 42,
			"title": "Will X happen?",
			"description": "Background text.",
			"resolution_criteria": "Resolves YES if X.",
			"fine_print": "Edge cases resolve NO.",
			"close_time": "2026-12-31T00:00:00Z",
			"publish_time": "2026-01-01T00:00:00Z",
			"possibilities": {"type": "binary"},
			"community_prediction": {"full": {"q1": 0.2, "q2": 0.35, "q3": 0.5}}
		}`))
	}))
	defer server.Close()

	client := newTestClient(server.URL)
	q, err := client.QuestionByID(context.Background(), 42)
	if err != nil {
		t.Fatalf("QuestionByID error: %v", err)
	}

	if q.ID != 42 || q.Type != domain.TypeBinary {
		t.Fatalf("unexpected question: %+v", q)
	}
	if !strings.Contains(q.ResolutionCriteria, "Fine print:") {
		t.Fatalf("fine print not folded into criteria: %q", q.ResolutionCriteria)
	}
	if q.Community == nil || q.Community.Median != 0.35 {
		t.Fatalf("community quartiles not parsed: %+v", q.Community)
	}
	if q.CloseTime.Year() != 2026 {
		t.Fatalf("close time not parsed: %v", q.CloseTime)
	}
}

func TestListQuestionsDropsPredicted(t *testing.T) {
	t.Parallel()

	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if got := r.URL.Query().Get("project"); got != "3349" {
			t.Errorf("unexpected project param: %q", got)
		}
		_, _ = w.Write([]byte(`{"results": [
			{"id": 1, "title": "fresh", "possibilities": {"type": "binary"}, "my_predictions": null},
			{"id": 2, "title": "already done", "possibilities": {"type": "binary"}, "my_predictions": {"value": 0.4}}
		]}`))
	}))
	defer server.Close()

	client := newTestClient(server.URL)
	questions, err := client.ListQuestions(context.Background(), 3349, true)
	if err != nil {
		t.Fatalf("ListQuestions error: %v", err)
	}

	if len(questions) != 1 || questions[0].ID != 1 {
		t.Fatalf("expected only the unpredicted question, got %+v", questions)
	}
}

func TestSubmitPredictionBinaryPayload(t *testing.T) {
	t.Parallel()

	var received map[string]any
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if r.URL.Path != "/questions/7/predict/" {
			t.Errorf("unexpected path: %s", r.URL.Path)
		}
		if err := json.NewDecoder(r.Body).Decode(&received); err != nil {
			t.Errorf("decode body: %v", err)
		}
		w.WriteHeader(http.StatusCreated)
	}))
	defer server.Close()

	prob := 0.65
	client := newTestClient(server.URL)
	err := client.SubmitPrediction(context.Background(), 7, domain.Prediction{Probability: &prob})
	if err != nil {
		t.Fatalf("SubmitPrediction error: %v", err)
	}

	if received["prediction"] != 0.65 {
		t.Fatalf("unexpected payload: %+v", received)
	}
}

func TestSubmitPredictionRejectedIsSubmissionFailed(t *testing.T) {
	t.Parallel()

	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		http.Error(w, "prediction out of bounds", http.StatusBadRequest)
	}))
	defer server.Close()

	prob := 0.65
	client := newTestClient(server.URL)
	err := client.SubmitPrediction(context.Background(), 7, domain.Prediction{Probability: &prob})
	if err == nil {
		t.Fatal("expected error")
	}
	if !strings.Contains(err.Error(), "submission failed") {
		t.Fatalf("unexpected error: %v", err)
	}
}

func TestListQuestionsRetriesTransientFailure(t *testing.T) {
	t.Parallel()

	attempts := 0
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		attempts++
		if attempts == 1 {
			http.Error(w, "try later", http.StatusServiceUnavailable)
			return
		}
		_, _ = w.Write([]byte(`{"results": []}`))
	}))
	defer server.Close()

	client := NewClient(config.PlatformConfig{BaseURL: server.URL}, 2)
	if _, err := client.ListQuestions(context.Background(), 1, false); err != nil {
		t.Fatalf("expected retry to succeed, got %v", err)
	}
	if attempts != 2 {
		t.Fatalf("expected 2 attempts, got %d", attempts)
	}
}
