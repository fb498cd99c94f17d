// Package batch processes whole directories of cases concurrently: scan for
// case directories, run the statistics pipeline on each, and write per-case
// logs plus a machine-readable run summary. One broken case never stops the
// others.
package batch

import (
	"fmt"
	"io"
	"log/slog"
	"math"
	"os"
	"path/filepath"
	"runtime"
	"strings"
	"sync"
	"time"

	"github.com/google/uuid"
	"golang.org/x/sync/errgroup"

	"musclemetrics/internal/caseio"
	"musclemetrics/pkg/analysis"
	"musclemetrics/pkg/export"
	"musclemetrics/pkg/geometry"
)

// ProgressCallback is a function that reports progress during batch
// processing. It receives the number of completed cases, the total number of
// cases, and the name of the case that just finished.
type ProgressCallback func(completed, total int, message string)

// Params holds the input parameters for a batch run.
type Params struct {
	// Root is the directory scanned for cases.
	Root string

	// OutputDir receives the run logs and summary. Empty selects
	// batch_output under Root.
	OutputDir string

	// Workers caps how many cases are processed concurrently. Zero or
	// negative selects the number of CPUs.
	Workers int

	// MaxScanDepth limits the case scan, zero for the default.
	MaxScanDepth int

	// Tiers is the erosion ladder passed to every case's analysis. Leave
	// empty for the default ladder.
	Tiers []analysis.ErosionTier

	// HUSlope and HUIntercept are the rescale defaults for case loading. A
	// zero slope selects the CT defaults.
	HUSlope     float64
	HUIntercept float64
}

// Runner executes a batch run over all cases under a root directory.
type Runner struct {
	params           *Params
	progressCallback ProgressCallback
	summary          *Summary
}

// NewRunner creates a new Runner with the given parameters.
//
// Parameters:
//   - params: the batch configuration
//
// Returns:
//   - A pointer to the initialized Runner
func NewRunner(params *Params) *Runner {
	return &Runner{params: params}
}

// SetProgressCallback sets a callback function to report progress as cases
// finish. Without a callback, progress is printed to stdout. The callback
// must be safe for concurrent use, as workers finish independently.
func (r *Runner) SetProgressCallback(callback ProgressCallback) {
	r.progressCallback = callback
}

// Summary returns the report of the last completed run, or nil if Process
// has not run.
func (r *Runner) Summary() *Summary {
	return r.summary
}

// Process scans for cases and runs the statistics pipeline on each of them
// concurrently. Case failures, including panics inside a single case, are
// isolated: they mark that case failed in the summary and the run continues.
// Process itself fails only when the scan finds nothing or the run's own
// output cannot be written.
//
// Returns:
//   - An error if no cases were found or the logs and summary could not be
//     written
func (r *Runner) Process() error {
	cases, err := FindCases(r.params.Root, r.params.MaxScanDepth)
	if err != nil {
		return err
	}
	if len(cases) == 0 {
		return fmt.Errorf("no cases found under %s: %w", r.params.Root, geometry.ErrMissingInput)
	}

	workers := r.params.Workers
	if workers <= 0 {
		workers = runtime.NumCPU()
	}

	outputDir := r.params.OutputDir
	if outputDir == "" {
		outputDir = filepath.Join(r.params.Root, "batch_output")
	}
	if err := os.MkdirAll(outputDir, 0755); err != nil {
		return fmt.Errorf("error creating batch output directory: %w", err)
	}

	startedAt := time.Now()
	timestamp := startedAt.Format("20060102_150405")
	runID := uuid.NewString()

	caseLogDir := filepath.Join(outputDir, fmt.Sprintf("batch_case_logs_%s", timestamp))
	if err := os.MkdirAll(caseLogDir, 0755); err != nil {
		return fmt.Errorf("error creating case log directory: %w", err)
	}

	logPath := filepath.Join(outputDir, fmt.Sprintf("batch_processing_log_%s.txt", timestamp))
	logFile, err := os.Create(logPath)
	if err != nil {
		return fmt.Errorf("error creating batch log: %w", err)
	}
	defer logFile.Close()
	logger := slog.New(slog.NewTextHandler(logFile, nil))

	logger.Info("batch run started",
		"run_id", runID,
		"root", r.params.Root,
		"cases", len(cases),
		"workers", workers)

	reports := make([]CaseReport, len(cases))
	var mu sync.Mutex
	completed := 0

	var g errgroup.Group
	g.SetLimit(workers)
	for i, dir := range cases {
		i, dir := i, dir
		g.Go(func() error {
			report := r.processCase(i, dir, caseLogDir)
			reports[i] = report

			mu.Lock()
			completed++
			done := completed
			mu.Unlock()
			r.reportProgress(done, len(cases), report.Name)

			logger.Info("case finished",
				"name", report.Name,
				"success", report.Success,
				"elapsed_sec", report.ElapsedSec,
				"message", report.Message)
			return nil
		})
	}
	g.Wait()

	summary := &Summary{
		RunID:      runID,
		StartedAt:  startedAt,
		FinishedAt: time.Now(),
		Total:      len(cases),
		Details:    reports,
	}
	for _, report := range reports {
		if report.Success {
			summary.Success++
		} else {
			summary.Failed++
		}
	}

	logger.Info("batch run complete",
		"total", summary.Total,
		"success", summary.Success,
		"failed", summary.Failed)

	summaryPath := filepath.Join(outputDir, fmt.Sprintf("batch_processing_results_%s.json", timestamp))
	if err := writeSummary(summaryPath, summary); err != nil {
		return err
	}

	r.summary = summary
	return nil
}

// processCase runs the statistics pipeline for one case. All failure modes,
// panics included, end up as a failed CaseReport rather than an error.
func (r *Runner) processCase(index int, dir, caseLogDir string) (report CaseReport) {
	start := time.Now()
	report = CaseReport{
		Folder: dir,
		Name:   filepath.Base(dir),
	}

	logPath := filepath.Join(caseLogDir, fmt.Sprintf("%03d_%s.log", index+1, safeName(report.Name)))
	report.CaseLog = logPath

	var logWriter io.Writer = io.Discard
	logFile, err := os.Create(logPath)
	if err == nil {
		defer logFile.Close()
		logWriter = logFile
	}
	logger := slog.New(slog.NewTextHandler(logWriter, nil))

	defer func() {
		if rec := recover(); rec != nil {
			report.Success = false
			report.Message = fmt.Sprintf("panic: %v", rec)
			logger.Error("case panicked", "panic", rec)
		}
		report.ElapsedSec = math.Round(time.Since(start).Seconds()*100) / 100
	}()

	logger.Info("processing case", "dir", dir)

	slope, intercept := r.params.HUSlope, r.params.HUIntercept
	if slope == 0 {
		slope, intercept = 1.0, -1024.0
	}
	c, err := caseio.LoadCase(dir, &caseio.Params{HUSlope: slope, HUIntercept: intercept})
	if err != nil {
		report.Message = fmt.Sprintf("load failed: %v", err)
		logger.Error("load failed", "error", err)
		return report
	}
	logger.Info("case loaded",
		"structures", len(c.Masks),
		"slices", c.Intensity.Geometry.Depth)

	analyzer := analysis.NewAnalyzer(&analysis.Params{
		Intensity: c.Intensity,
		Masks:     c.Masks,
		Tiers:     r.params.Tiers,
	})
	if err := analyzer.Process(); err != nil {
		report.Message = fmt.Sprintf("analysis failed: %v", err)
		logger.Error("analysis failed", "error", err)
		return report
	}
	result := analyzer.Result()

	failures := 0
	for _, s := range result.Structures {
		failures += len(s.Failures)
		for _, f := range s.Failures {
			logger.Warn("slice skipped", "structure", s.Name, "slice", f.SliceIndex, "error", f.Err)
		}
	}

	outputBase := dir + "_output"
	if err := os.MkdirAll(outputBase, 0755); err != nil {
		report.Message = fmt.Sprintf("output directory failed: %v", err)
		logger.Error("output directory failed", "error", err)
		return report
	}
	csvPath := filepath.Join(outputBase, "statistics.csv")
	if err := export.SaveStatisticsCSV(csvPath, result); err != nil {
		report.Message = fmt.Sprintf("csv export failed: %v", err)
		logger.Error("csv export failed", "error", err)
		return report
	}

	report.OutputBase = outputBase
	report.Success = true
	report.Message = fmt.Sprintf("%d structures, %d merged, %d slices skipped",
		len(result.Structures), len(result.Merged), failures)
	logger.Info("case complete", "csv", csvPath, "skipped_slices", failures)
	return report
}

// reportProgress calls the progress callback if set, otherwise prints to
// stdout.
func (r *Runner) reportProgress(completed, total int, message string) {
	if r.progressCallback != nil {
		r.progressCallback(completed, total, message)
		return
	}
	fmt.Printf("[%d/%d] %s\n", completed, total, message)
}

// safeName keeps letters, digits, dash and underscore, replacing anything
// else so the name stays usable as a filename.
func safeName(name string) string {
	var b strings.Builder
	for _, c := range name {
		switch {
		case c >= 'a' && c <= 'z', c >= 'A' && c <= 'Z', c >= '0' && c <= '9', c == '-', c == '_':
			b.WriteRune(c)
		default:
			b.WriteRune('_')
		}
	}
	return b.String()
}
