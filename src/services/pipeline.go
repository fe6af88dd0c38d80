// src/services/pipeline.go
package services

import (
	"errors"
	"fmt"
	"io"
	"os"
	"time"

	"github.com/google/uuid"

	"github.com/username/momoflow/src/database"
	"github.com/username/momoflow/src/logger"
	"github.com/username/momoflow/src/models"
	"github.com/username/momoflow/src/parsers"
	"github.com/username/momoflow/src/processors"
	"github.com/username/momoflow/src/security/validation"
)

// RunReport is the per-batch outcome handed back to the caller. Per-record
// failures never fail the run; only an unreadable input or unreachable
// storage does.
type RunReport struct {
	BatchID       string
	SourceFile    string
	Parsed        int
	NormalizedOK  int
	CategorizedOK int
	LoadedOK      int
	DeadLettered  int

	Inserted         int
	Updated          int
	SkippedDuplicate int

	Summary *models.BatchSummary

	storageDown bool
	storageErr  error
}

// PipelineService sequences parse, normalize, categorize and load per
// record and runs the export once all commits are in. Records are owned
// one at a time; nothing is shared across iterations.
type PipelineService struct {
	parser        parsers.Parser
	normalizer    *processors.Normalizer
	categorizer   *processors.Categorizer
	loader        Loader
	aggregator    *AggregatorService
	deadLetterDir string
}

func NewPipelineService(
	parser parsers.Parser,
	normalizer *processors.Normalizer,
	categorizer *processors.Categorizer,
	loader Loader,
	aggregator *AggregatorService,
	deadLetterDir string,
) *PipelineService {
	return &PipelineService{
		parser:        parser,
		normalizer:    normalizer,
		categorizer:   categorizer,
		loader:        loader,
		aggregator:    aggregator,
		deadLetterDir: deadLetterDir,
	}
}

// Run executes one batch over the input document and exports the dashboard
// document to outputPath.
func (s *PipelineService) Run(inputPath, outputPath string) (*RunReport, error) {
	batchID := uuid.NewString()
	report := &RunReport{BatchID: batchID, SourceFile: inputPath}
	var sink DeadLetters = NewDeadLetterSink(s.deadLetterDir, batchID)

	logger.L.Info("Pipeline run starting", "batchID", batchID, "input", inputPath)

	file, err := os.Open(inputPath)
	if err != nil {
		return nil, fmt.Errorf("reading input: %w", err)
	}
	defer file.Close()

	if info, err := file.Stat(); err == nil && info.Size() > validation.MaxInputFileSize {
		return nil, fmt.Errorf("input file exceeds %d bytes", validation.MaxInputFileSize)
	}
	if err := validation.ValidateInputContent(file); err != nil {
		return nil, fmt.Errorf("validating input: %w", err)
	}

	entries, err := s.parser.Entries(file)
	if err != nil {
		return nil, fmt.Errorf("opening input document: %w", err)
	}

	s.recordRunStart(batchID, inputPath)

	for {
		raw, err := entries.Next()
		if err == io.EOF {
			break
		}
		var parseErr *models.ParseError
		if errors.As(err, &parseErr) {
			sink.Capture(models.StageParse, parseErr.Fragment, parseErr)
			continue
		}
		if err != nil {
			// The document itself is broken mid-stream; entries already
			// dead-lettered are on disk, nothing to flush.
			s.finalizeRun(batchID, report, sink.Count(), "failed", err.Error())
			return nil, fmt.Errorf("scanning input document: %w", err)
		}
		report.Parsed++

		s.processRecord(raw, report, sink)
		if report.storageDown {
			s.finalizeRun(batchID, report, sink.Count(), "failed", "storage unavailable")
			return nil, report.storageErr
		}
	}

	report.DeadLettered = sink.Count()

	if report.Parsed == 0 {
		s.finalizeRun(batchID, report, sink.Count(), "failed", models.ErrNoEntries.Error())
		return nil, models.ErrNoEntries
	}

	// All commits for the run are in; aggregate from persisted state only.
	s.aggregator.InvalidateCache()
	data, err := s.aggregator.Export(outputPath)
	if err != nil {
		s.finalizeRun(batchID, report, sink.Count(), "failed", err.Error())
		return nil, fmt.Errorf("exporting dashboard data: %w", err)
	}
	report.Summary = &data.Summary

	s.finalizeRun(batchID, report, sink.Count(), "completed", "")
	logger.L.Info("Pipeline run finished",
		"batchID", batchID,
		"parsed", report.Parsed,
		"loaded", report.LoadedOK,
		"deadLettered", report.DeadLettered)
	return report, nil
}

// processRecord walks one record through normalize, categorize and load.
// Any stage failure dead-letters the record and excludes it from all later
// stages.
func (s *PipelineService) processRecord(raw models.RawEntry, report *RunReport, sink DeadLetters) {
	normalized, err := s.normalizer.Normalize(raw)
	if err != nil {
		sink.Capture(models.StageNormalize, raw.Fragment, err)
		return
	}
	report.NormalizedOK++

	categorized := models.CategorizedTransaction{
		NormalizedTransaction: normalized,
		Category:              s.categorizer.Categorize(normalized.Body),
	}
	report.CategorizedOK++

	result, err := s.loader.Upsert(categorized)
	if err != nil {
		if errors.Is(err, models.ErrStorageUnavailable) {
			report.storageDown = true
			report.storageErr = err
			return
		}
		sink.Capture(models.StageLoad, raw.Fragment, err)
		return
	}

	report.LoadedOK++
	switch result.Outcome {
	case models.LoadInserted:
		report.Inserted++
	case models.LoadUpdated:
		report.Updated++
	case models.LoadSkippedDuplicate:
		report.SkippedDuplicate++
	}
}

// recordRunStart writes the etl_runs audit row. Auditing is best-effort:
// a failure here is logged, never fatal.
func (s *PipelineService) recordRunStart(batchID, sourceFile string) {
	_, err := database.DB.Exec(
		`INSERT INTO etl_runs (run_id, source_file, started_at, status)
		 VALUES (?, ?, ?, 'running')`,
		batchID, sourceFile, time.Now().UTC().Format(time.RFC3339))
	if err != nil {
		logger.L.Error("Failed to record run start", "batchID", batchID, "error", err)
	}
}

func (s *PipelineService) finalizeRun(batchID string, report *RunReport, deadLettered int, status, errMsg string) {
	_, err := database.DB.Exec(
		`UPDATE etl_runs SET
			finished_at = ?, status = ?, parsed = ?, normalized_ok = ?,
			categorized_ok = ?, loaded_ok = ?, dead_lettered = ?, error_message = ?
		 WHERE run_id = ?`,
		time.Now().UTC().Format(time.RFC3339), status,
		report.Parsed, report.NormalizedOK, report.CategorizedOK,
		report.LoadedOK, deadLettered, errMsg, batchID)
	if err != nil {
		logger.L.Error("Failed to finalize run record", "batchID", batchID, "error", err)
	}
}
