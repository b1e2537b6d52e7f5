// Package storage persists forecasts: an append-only audit log on disk and a
// Postgres repository for cross-run deduplication.
package storage

import (
	"context"
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
	"sync"
	"time"

	"github.com/google/uuid"

	"ForecastBot/internal/domain"
	"ForecastBot/internal/ports"
)

// FileForecastLog appends one JSON record per group to a per-run log file.
// Writes are serialized by mutex and synced before Append returns, so a
// crashed run never loses acknowledged records.
type FileForecastLog struct {
	runID string
	path  string

	mu   sync.Mutex
	file *os.File
}

var _ ports.ForecastLog = (*FileForecastLog)(nil)

// logRecord is the on-disk shape, one JSON object per line.
type logRecord struct {
	RunID       string                      `json:"run_id"`
	GroupTitle  string                      `json:"group_title"`
	QuestionIDs []int64                     `json:"question_ids"`
	Predictions map[int64]domain.Prediction `json:"predictions,omitempty"`
	Rationales  map[int64]string            `json:"rationales,omitempty"`
	Summary     string                      `json:"summary"`
	Validity    domain.Validity             `json:"validity"`
	RawResponse string                      `json:"raw_response,omitempty"`
	LoggedAt    time.Time                   `json:"logged_at"`
}

// NewFileForecastLog opens (creating directories as needed) the log file for
// a fresh run.
func NewFileForecastLog(dir string) (*FileForecastLog, error) {
	runID := uuid.NewString()

	if err := os.MkdirAll(dir, 0o755); err != nil {
		return nil, fmt.Errorf("create forecast log dir: %w", err)
	}

	path := filepath.Join(dir, fmt.Sprintf("forecasts-%s-%s.jsonl", time.Now().Format("2006-01-02"), runID[:8]))
	file, err := os.OpenFile(path, os.O_CREATE|os.O_WRONLY|os.O_APPEND, 0o644)
	if err != nil {
		return nil, fmt.Errorf("open forecast log: %w", err)
	}

	return &FileForecastLog{runID: runID, path: path, file: file}, nil
}

// RunID identifies this run in log records and reports.
func (l *FileForecastLog) RunID() string {
	return l.runID
}

// Path returns the log file location.
func (l *FileForecastLog) Path() string {
	return l.path
}

// Append writes one record and flushes it to disk. Malformed and incomplete
// forecasts are logged with their raw response for diagnosis; valid ones omit
// it to keep the log compact.
func (l *FileForecastLog) Append(ctx context.Context, group domain.Group, forecast domain.Forecast) error {
	if err := ctx.Err(); err != nil {
		return err
	}

	record := logRecord{
		RunID:       l.runID,
		GroupTitle:  group.Title,
		QuestionIDs: group.QuestionIDs,
		Predictions: forecast.Predictions,
		Rationales:  forecast.Rationales,
		Summary:     forecast.RationaleSummary,
		Validity:    forecast.Validity,
		LoggedAt:    time.Now().UTC(),
	}
	if forecast.Validity != domain.ValidityValid {
		record.RawResponse = forecast.RawResponse
	}

	line, err := json.Marshal(record)
	if err != nil {
		return fmt.Errorf("marshal forecast record: %w", err)
	}

	l.mu.Lock()
	defer l.mu.Unlock()

	if _, err := l.file.Write(append(line, '\n')); err != nil {
		return fmt.Errorf("append forecast record: %w", err)
	}
	if err := l.file.Sync(); err != nil {
		return fmt.Errorf("sync forecast log: %w", err)
	}
	return nil
}

// Close releases the underlying file.
func (l *FileForecastLog) Close() error {
	l.mu.Lock()
	defer l.mu.Unlock()
	return l.file.Close()
}
