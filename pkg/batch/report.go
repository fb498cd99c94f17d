package batch

import (
	"encoding/json"
	"fmt"
	"os"
	"time"
)

// CaseReport records the outcome of one processed case.
type CaseReport struct {
	// Folder is the case directory that was processed.
	Folder string `json:"folder"`

	// Name is the case's base directory name.
	Name string `json:"name"`

	// Success reports whether the case produced its statistics output.
	Success bool `json:"success"`

	// Message describes the outcome: a short result line on success, the
	// failure cause otherwise.
	Message string `json:"message"`

	// OutputBase is the directory the case's reports were written to, empty
	// when the case failed before producing output.
	OutputBase string `json:"output_base"`

	// ElapsedSec is the case's wall-clock processing time, rounded to two
	// decimals.
	ElapsedSec float64 `json:"elapsed_sec"`

	// CaseLog is the path of the case's individual log file.
	CaseLog string `json:"case_log"`
}

// Summary is the batch run report written alongside the logs.
type Summary struct {
	// RunID uniquely identifies this batch run across log files and
	// reports.
	RunID string `json:"run_id"`

	// StartedAt and FinishedAt bound the run's wall-clock window.
	StartedAt  time.Time `json:"started_at"`
	FinishedAt time.Time `json:"finished_at"`

	// Total, Success and Failed count the processed cases.
	Total   int `json:"total"`
	Success int `json:"success"`
	Failed  int `json:"failed"`

	// Details holds one report per case, in scan order.
	Details []CaseReport `json:"details"`
}

// writeSummary renders the summary as indented JSON.
func writeSummary(path string, summary *Summary) error {
	data, err := json.MarshalIndent(summary, "", "  ")
	if err != nil {
		return fmt.Errorf("error marshaling batch summary: %w", err)
	}
	if err := os.WriteFile(path, data, 0644); err != nil {
		return fmt.Errorf("error writing batch summary: %w", err)
	}
	return nil
}
