// Package logger appends decision records to a JSONL audit file. One line
// per evaluated command, secrets redacted before they touch disk.
package logger

import (
	"encoding/json"
	"os"
	"path/filepath"
	"sync"
	"time"

	"github.com/cmdvet/cmdvet/internal/redact"
)

// AuditEvent is one evaluated command and its outcome.
type AuditEvent struct {
	Timestamp string `json:"timestamp"`
	Source    string `json:"source"` // "hook" or "check"
	Command   string `json:"command"`
	Cwd       string `json:"cwd,omitempty"`
	Decision  string `json:"decision"`
	Reason    string `json:"reason,omitempty"`
	Error     string `json:"error,omitempty"`
}

// AuditLogger serializes events to an append-only file.
type AuditLogger struct {
	file *os.File
	mu   sync.Mutex
}

// DefaultPath returns the audit file location under the user's state
// directory, or "" when no home directory is available.
func DefaultPath() string {
	home, err := os.UserHomeDir()
	if err != nil || home == "" {
		return ""
	}
	return filepath.Join(home, ".local", "state", "cmdvet", "audit.jsonl")
}

// New opens (creating if needed) the audit file at path.
func New(path string) (*AuditLogger, error) {
	if err := os.MkdirAll(filepath.Dir(path), 0o700); err != nil {
		return nil, err
	}
	file, err := os.OpenFile(path, os.O_APPEND|os.O_CREATE|os.O_WRONLY, 0o600)
	if err != nil {
		return nil, err
	}
	return &AuditLogger{file: file}, nil
}

// Log writes one event. The timestamp is filled in if the caller left it
// empty; command and reason are redacted unconditionally.
func (l *AuditLogger) Log(event AuditEvent) error {
	l.mu.Lock()
	defer l.mu.Unlock()

	if event.Timestamp == "" {
		event.Timestamp = time.Now().UTC().Format(time.RFC3339)
	}
	event.Command = redact.Redact(event.Command)
	event.Reason = redact.Redact(event.Reason)
	if event.Error != "" {
		event.Error = redact.Redact(event.Error)
	}

	data, err := json.Marshal(event)
	if err != nil {
		return err
	}
	data = append(data, '\n')
	_, err = l.file.Write(data)
	return err
}

func (l *AuditLogger) Close() error {
	if l.file != nil {
		return l.file.Close()
	}
	return nil
}
