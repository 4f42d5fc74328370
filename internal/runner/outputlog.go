package runner

import (
	"fmt"
	"io"
	"os"

	"github.com/benchalot/benchalot/internal/errkind"
	"github.com/benchalot/benchalot/internal/metrics"
)

// outputLog is the per-cell `save-output` destination: an append-only,
// single-writer file (or STDOUT/STDERR passthrough) receiving every
// command's stdout+stderr concatenation behind a delimiter line naming the
// cell and stage, per §4.4's output-capture contract.
type outputLog struct {
	w       io.Writer
	closer  io.Closer
	cellIdx int
}

// openOutputLog opens path for a cell. An empty path disables logging.
// "STDOUT"/"STDERR" stream to the corresponding standard stream instead of
// a file.
func openOutputLog(path string, cellIdx int) (*outputLog, error) {
	switch path {
	case "":
		return nil, nil
	case "STDOUT":
		return &outputLog{w: os.Stdout, cellIdx: cellIdx}, nil
	case "STDERR":
		return &outputLog{w: os.Stderr, cellIdx: cellIdx}, nil
	default:
		f, err := os.OpenFile(path, os.O_APPEND|os.O_CREATE|os.O_WRONLY, 0644)
		if err != nil {
			return nil, fmt.Errorf("opening save-output %s: %v: %w", path, err, errkind.IO)
		}
		return &outputLog{w: f, closer: f, cellIdx: cellIdx}, nil
	}
}

func (l *outputLog) close() error {
	if l == nil || l.closer == nil {
		return nil
	}
	return l.closer.Close()
}

// record writes one command's captured output behind a delimiter line.
func (l *outputLog) record(stage string, cr metrics.CommandResult) {
	if l == nil {
		return
	}
	fmt.Fprintf(l.w, "--- cell %d stage %s ---\n", l.cellIdx, stage)
	if cr.Stdout != "" {
		fmt.Fprintln(l.w, cr.Stdout)
	}
	if cr.Stderr != "" {
		fmt.Fprintln(l.w, cr.Stderr)
	}
}
