package storage

import (
	"bufio"
	"context"
	"encoding/json"
	"os"
	"testing"

	"ForecastBot/internal/domain"
)

func TestFileForecastLogAppend(t *testing.T) {
	dir := t.TempDir()
	log, err := NewFileForecastLog(dir)
	if err != nil {
		t.Fatalf("NewFileForecastLog: %v", err)
	}

	prob := 0.62
	valid := domain.Forecast{
		GroupTitle:       "ECB rate decision",
		Predictions:      map[int64]domain.Prediction{101: {Probability: &prob}},
		Rationales:       map[int64]string{101: "cuts priced in"},
		RationaleSummary: "cuts priced in",
		Validity:         domain.ValidityValid,
		RawResponse:      `{"forecasts":{}}`,
	}
	group := domain.Group{Title: "ECB rate decision", QuestionIDs: []int64{101}}
	if err := log.Append(context.Background(), group, valid); err != nil {
		t.Fatalf("Append valid: %v", err)
	}

	malformed := domain.Forecast{
		GroupTitle:  "ECB rate decision",
		Validity:    domain.ValidityMalformed,
		RawResponse: "not json at all",
	}
	if err := log.Append(context.Background(), group, malformed); err != nil {
		t.Fatalf("Append malformed: %v", err)
	}
	if err := log.Close(); err != nil {
		t.Fatalf("Close: %v", err)
	}

	file, err := os.Open(log.Path())
	if err != nil {
		t.Fatalf("open log: %v", err)
	}
	defer file.Close()

	var records []logRecord
	scanner := bufio.NewScanner(file)
	for scanner.Scan() {
		var rec logRecord
		if err := json.Unmarshal(scanner.Bytes(), &rec); err != nil {
			t.Fatalf("unmarshal record: %v", err)
		}
		records = append(records, rec)
	}
	if len(records) != 2 {
		t.Fatalf("expected 2 records, got %d", len(records))
	}

	if records[0].RunID != log.RunID() {
		t.Errorf("run id %q, want %q", records[0].RunID, log.RunID())
	}
	if records[0].RawResponse != "" {
		t.Errorf("valid record should omit raw response, got %q", records[0].RawResponse)
	}
	if got := records[0].Predictions[101].Probability; got == nil || *got != prob {
		t.Errorf("probability not preserved: %v", got)
	}
	if records[1].Validity != domain.ValidityMalformed {
		t.Errorf("validity %q, want malformed", records[1].Validity)
	}
	if records[1].RawResponse != "not json at all" {
		t.Errorf("malformed record should keep raw response, got %q", records[1].RawResponse)
	}
}

func TestFileForecastLogCancelledContext(t *testing.T) {
	log, err := NewFileForecastLog(t.TempDir())
	if err != nil {
		t.Fatalf("NewFileForecastLog: %v", err)
	}
	defer log.Close()

	ctx, cancel := context.WithCancel(context.Background())
	cancel()
	if err := log.Append(ctx, domain.Group{Title: "x"}, domain.Forecast{}); err == nil {
		t.Fatal("expected error from cancelled context")
	}
}
