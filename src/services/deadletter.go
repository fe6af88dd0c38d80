// src/services/deadletter.go
package services

import (
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
	"time"

	"github.com/username/momoflow/src/logger"
	"github.com/username/momoflow/src/models"
)

// DeadLetterSink writes one JSON artifact per failed record under
// <baseDir>/<batchID>/. Entries hit disk immediately, so everything
// produced so far survives even when the run is aborted mid-batch.
type DeadLetterSink struct {
	dir     string
	batchID string
	count   int
}

var _ DeadLetters = (*DeadLetterSink)(nil)

// NewDeadLetterSink creates a sink for one batch run.
func NewDeadLetterSink(baseDir, batchID string) *DeadLetterSink {
	return &DeadLetterSink{dir: filepath.Join(baseDir, batchID), batchID: batchID}
}

// Capture records one failed record. The sink never fails the run: a write
// error is logged and the entry is still counted.
func (s *DeadLetterSink) Capture(stage models.Stage, fragment string, cause error) {
	s.count++
	entry := models.DeadLetterEntry{
		Fragment:  fragment,
		Stage:     stage,
		Reason:    cause.Error(),
		BatchID:   s.batchID,
		Timestamp: time.Now().UTC(),
	}

	logger.L.Warn("Record dead-lettered", "stage", stage, "reason", entry.Reason, "batchID", s.batchID)

	if err := os.MkdirAll(s.dir, 0o755); err != nil {
		logger.L.Error("Failed to create dead-letter directory", "dir", s.dir, "error", err)
		return
	}
	data, err := json.MarshalIndent(entry, "", "  ")
	if err != nil {
		logger.L.Error("Failed to encode dead-letter entry", "error", err)
		return
	}
	filename := filepath.Join(s.dir, fmt.Sprintf("%04d_%s.json", s.count, stage))
	if err := os.WriteFile(filename, data, 0o644); err != nil {
		logger.L.Error("Failed to write dead-letter entry", "file", filename, "error", err)
	}
}

// Count returns the number of records captured so far.
func (s *DeadLetterSink) Count() int { return s.count }
