// Package attempts provides a simple practice-history storage layer.
// Scored attempts are stored as append-only JSON lines in a local file,
// suitable for a single-host deployment.
//
// For multi-host deployments, this should be replaced with a
// PostgreSQL-backed implementation.
package attempts

import (
	"encoding/json"
	"fmt"
	"os"
	"sync"
	"time"
)

// Record is a single scored practice attempt written to the file log.
type Record struct {
	Timestamp      time.Time `json:"timestamp"`
	VerseID        string    `json:"verse_id"`
	Language       string    `json:"language,omitempty"`
	Transcript     string    `json:"transcript"`
	Score          float64   `json:"score"`
	Classification string    `json:"classification"`
	Passed         bool      `json:"passed"`
}

// FileLog persists attempts as JSON lines in a local file.
// Thread-safe for concurrent use.
type FileLog struct {
	mu   sync.Mutex
	path string
}

// NewFileLog creates a FileLog that writes to the given path.
// The file is created on first append if it does not exist.
func NewFileLog(path string) *FileLog {
	return &FileLog{path: path}
}

// Append writes one attempt record to the file. A zero Timestamp is filled
// with the current UTC time.
func (l *FileLog) Append(rec Record) error {
	l.mu.Lock()
	defer l.mu.Unlock()

	if rec.Timestamp.IsZero() {
		rec.Timestamp = time.Now().UTC()
	}

	data, err := json.Marshal(rec)
	if err != nil {
		return fmt.Errorf("attempts: marshal: %w", err)
	}
	data = append(data, '\n')

	f, err := os.OpenFile(l.path, os.O_APPEND|os.O_CREATE|os.O_WRONLY, 0o644)
	if err != nil {
		return fmt.Errorf("attempts: open file: %w", err)
	}
	defer f.Close()

	if _, err := f.Write(data); err != nil {
		return fmt.Errorf("attempts: write: %w", err)
	}
	return nil
}
