// Package audit implements the governance orchestrator's append-only JSONL
// audit trail and the per-workflow artifact filing convention (numbered
// draft files, move-to-done, repo-slug derivation). Grounded directly on
// GovernanceAuditLog and the issue workflow's audit helpers in the original
// implementation this spec was distilled from.
package audit

import (
	"bufio"
	"encoding/json"
	"fmt"
	"log/slog"
	"os"
	"path/filepath"
	"sync"
	"time"
)

// Entry is one governance log record. Field names mirror the original's
// GovernanceLogEntry TypedDict.
type Entry struct {
	Timestamp time.Time              `json:"timestamp"`
	Workflow  string                 `json:"workflow"`
	Node      string                 `json:"node"`
	Level     string                 `json:"level"` // "info", "warn", "error"
	Message   string                 `json:"message"`
	Metadata  map[string]interface{} `json:"metadata,omitempty"`
}

// NewEntry builds an Entry, stamping the current time.
func NewEntry(workflow, node, level, message string, metadata map[string]interface{}) Entry {
	return Entry{
		Timestamp: time.Now().UTC(),
		Workflow:  workflow,
		Node:      node,
		Level:     level,
		Message:   message,
		Metadata:  metadata,
	}
}

// Log is an append-only JSONL file of governance Entries.
type Log struct {
	path string
	mu   sync.Mutex
}

// Open returns a Log backed by path, creating its parent directory if
// needed; the file itself is created by the first Write.
func Open(path string) (*Log, error) {
	if dir := filepath.Dir(path); dir != "." {
		if err := os.MkdirAll(dir, 0o755); err != nil {
			return nil, fmt.Errorf("audit: creating log dir: %w", err)
		}
	}
	return &Log{path: path}, nil
}

// Write appends entry as a single JSON line.
func (l *Log) Write(entry Entry) error {
	l.mu.Lock()
	defer l.mu.Unlock()

	f, err := os.OpenFile(l.path, os.O_APPEND|os.O_CREATE|os.O_WRONLY, 0o644)
	if err != nil {
		return fmt.Errorf("audit: opening %s: %w", l.path, err)
	}
	defer f.Close()

	raw, err := json.Marshal(entry)
	if err != nil {
		return fmt.Errorf("audit: encoding entry: %w", err)
	}
	if _, err := f.Write(append(raw, '\n')); err != nil {
		return fmt.Errorf("audit: writing entry: %w", err)
	}
	return nil
}

// All reads every well-formed entry in the log, skipping malformed lines
// (logged at warn level) rather than failing the read.
func (l *Log) All() ([]Entry, error) {
	l.mu.Lock()
	defer l.mu.Unlock()

	f, err := os.Open(l.path)
	if err != nil {
		if os.IsNotExist(err) {
			return nil, nil
		}
		return nil, fmt.Errorf("audit: opening %s: %w", l.path, err)
	}
	defer f.Close()

	var entries []Entry
	scanner := bufio.NewScanner(f)
	scanner.Buffer(make([]byte, 0, 64*1024), 4*1024*1024)
	lineNo := 0
	for scanner.Scan() {
		lineNo++
		line := scanner.Bytes()
		if len(line) == 0 {
			continue
		}
		var entry Entry
		if err := json.Unmarshal(line, &entry); err != nil {
			slog.Warn("audit: skipping malformed log line", "file", l.path, "line", lineNo, "error", err)
			continue
		}
		entries = append(entries, entry)
	}
	if err := scanner.Err(); err != nil {
		return entries, fmt.Errorf("audit: scanning %s: %w", l.path, err)
	}
	return entries, nil
}

// Tail returns the last n entries (or fewer, if the log has fewer).
func (l *Log) Tail(n int) ([]Entry, error) {
	all, err := l.All()
	if err != nil {
		return nil, err
	}
	if len(all) <= n {
		return all, nil
	}
	return all[len(all)-n:], nil
}

// Count returns the number of well-formed entries in the log.
func (l *Log) Count() (int, error) {
	all, err := l.All()
	if err != nil {
		return 0, err
	}
	return len(all), nil
}
