package report

import (
	"encoding/json"
	"fmt"
	"strings"
	"time"
)

// OutputFormat selects how ProgressReporter renders run events.
type OutputFormat string

const (
	FormatText OutputFormat = "text"
	FormatJSON OutputFormat = "json"
)

// ProgressReporter narrates the benchmark cell lifecycle to the user:
// state transitions, sample progress, cell completion, and the
// end-of-run failure summary required by §7.
type ProgressReporter struct {
	format OutputFormat
	logger *Logger
}

// NewProgressReporter builds a ProgressReporter.
func NewProgressReporter(format OutputFormat, logger *Logger) *ProgressReporter {
	return &ProgressReporter{format: format, logger: logger}
}

// ReportCellStart announces the start of a benchmark cell.
func (pr *ProgressReporter) ReportCellStart(index, total int, bindingSummary string) {
	pr.emit("cell_start", fmt.Sprintf("[%d/%d] %s", index+1, total, bindingSummary), map[string]any{
		"cell":    index,
		"total":   total,
		"binding": bindingSummary,
	})
}

// ReportStateTransition announces a lifecycle state change within a cell.
func (pr *ProgressReporter) ReportStateTransition(cellIndex int, from, to string) {
	pr.emit("state_transition", fmt.Sprintf("  %s -> %s", from, to), map[string]any{
		"cell": cellIndex,
		"from": from,
		"to":   to,
	})
}

// ReportSampleComplete announces one sample's completion within a cell.
func (pr *ProgressReporter) ReportSampleComplete(cellIndex, sample, samples int, failed bool) {
	status := "ok"
	if failed {
		status = "failed"
	}
	pr.emit("sample_complete", fmt.Sprintf("  sample %d/%d: %s", sample+1, samples, status), map[string]any{
		"cell":   cellIndex,
		"sample": sample,
		"status": status,
	})
}

// ReportCellComplete announces a cell's completion.
func (pr *ProgressReporter) ReportCellComplete(cellIndex int) {
	pr.emit("cell_complete", fmt.Sprintf("[%d] done", cellIndex), map[string]any{"cell": cellIndex})
}

// RunSummary is the end-of-run report required by §7: failure counts and
// where logs were saved.
type RunSummary struct {
	TotalCells    int
	TotalSamples  int
	FailedSamples int
	LogPaths      []string
}

// ReportRunSummary announces the final run summary.
func (pr *ProgressReporter) ReportRunSummary(s RunSummary) {
	msg := fmt.Sprintf("run complete: %d/%d samples failed across %d cells", s.FailedSamples, s.TotalSamples, s.TotalCells)
	if s.FailedSamples > 0 && len(s.LogPaths) > 0 {
		msg += fmt.Sprintf(", logs saved to %s", strings.Join(s.LogPaths, ", "))
	}
	pr.emit("run_summary", msg, map[string]any{
		"total_cells":    s.TotalCells,
		"total_samples":  s.TotalSamples,
		"failed_samples": s.FailedSamples,
		"log_paths":      s.LogPaths,
	})
}

func (pr *ProgressReporter) emit(event, text string, fields map[string]any) {
	switch pr.format {
	case FormatJSON:
		fields["event"] = event
		fields["timestamp"] = time.Now().Format(time.RFC3339)
		data, err := json.Marshal(fields)
		if err != nil {
			pr.logger.Error("failed to marshal progress event", map[string]any{"error": err.Error()})
			return
		}
		fmt.Println(string(data))
	default:
		fmt.Println(text)
	}
}
