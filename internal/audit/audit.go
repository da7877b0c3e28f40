// Package audit appends one JSON line per dispatched action to a durable
// ledger, independent of and in addition to the ProjectState snapshot.
package audit

import (
	"os"
	"path/filepath"
	"sync"
	"time"

	"github.com/rs/zerolog"

	"github.com/dcpsystems/dcp/internal/model"
)

// Writer appends AuditEntry records to an ndjson file, one JSON object per
// line, flushed immediately so a crash mid-run loses at most the entry
// currently being written.
type Writer struct {
	mu     sync.Mutex
	file   *os.File
	logger zerolog.Logger
}

// DefaultLedgerPath returns the conventional audit ledger location
// relative to a project root: <root>/.dcp/audit.ndjson.
func DefaultLedgerPath(projectRoot string) string {
	return filepath.Join(projectRoot, ".dcp", "audit.ndjson")
}

// Open opens (creating if needed) the ledger file at path for appending.
func Open(path string) (*Writer, error) {
	if err := os.MkdirAll(filepath.Dir(path), 0o755); err != nil {
		return nil, err
	}
	f, err := os.OpenFile(path, os.O_CREATE|os.O_WRONLY|os.O_APPEND, 0o644)
	if err != nil {
		return nil, err
	}
	logger := zerolog.New(f).With().Logger()
	return &Writer{file: f, logger: logger}, nil
}

// Write appends one AuditEntry as a single JSON line.
func (w *Writer) Write(entry model.AuditEntry) error {
	w.mu.Lock()
	defer w.mu.Unlock()

	if entry.Timestamp.IsZero() {
		entry.Timestamp = time.Now().UTC()
	}

	evt := w.logger.Log().
		Time("timestamp", entry.Timestamp).
		Str("operation_id", entry.OperationID).
		Str("automation", entry.Automation).
		Str("action_id", entry.ActionID).
		Str("adapter", entry.Adapter).
		Str("capability", entry.Capability).
		Str("for_module", entry.ForModule).
		Str("status", entry.Status).
		Int64("duration_ms", entry.DurationMs).
		Str("environment", entry.Environment)

	if entry.Error != "" {
		evt = evt.Str("error", entry.Error)
	}
	if len(entry.Extra) > 0 {
		evt = evt.Interface("extra", entry.Extra)
	}
	evt.Send()

	return w.file.Sync()
}

// WriteReceipts appends one AuditEntry per receipt in a report, the call
// internal/usecase makes once a run's plan has been executed.
func (w *Writer) WriteReceipts(report *model.ExecutionReport, environment string) error {
	for i, receipt := range report.Receipts {
		entry := model.AuditEntry{
			OperationID: report.OperationID,
			Automation:  report.Automation,
			ActionID:    receipt.ActionID,
			Adapter:     receipt.Adapter,
			Status:      receipt.Status,
			DurationMs:  receipt.DurationMs,
			Error:       receipt.Error,
			Environment: environment,
		}
		if i < len(report.Receipts) {
			entry.Extra = receipt.Metadata
		}
		if err := w.Write(entry); err != nil {
			return err
		}
	}
	return nil
}

// Close flushes and closes the underlying file.
func (w *Writer) Close() error {
	w.mu.Lock()
	defer w.mu.Unlock()
	return w.file.Close()
}
