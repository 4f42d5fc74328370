// Package metrics runs a single shell command and collects the built-in
// metrics (time, utime, stime, rss, stdout, stderr) around it, plus parses
// custom-metric command output. At most one measured child is ever alive at
// once, per the engine's single-threaded resource-accounting contract.
package metrics

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"os/exec"
	"strconv"
	"strings"
	"syscall"
	"time"

	"golang.org/x/sys/unix"
)

// CommandResult is what one shell invocation produces for the metric
// collector: wall time plus whatever the OS process-wait facility reports,
// and captured stdout/stderr.
type CommandResult struct {
	Wall     time.Duration
	UserTime time.Duration
	SysTime  time.Duration
	// MaxRSSBytes is the child's peak resident set size in bytes as
	// reported by the kernel; callers convert to MiB at the metric layer.
	MaxRSSBytes int64
	Stdout      string
	Stderr      string
	ExitCode    int
	Failed      bool
}

// Run executes command with /bin/sh -c in dir with env as its complete
// environment, capturing resource usage via the kernel's wait4(2) facility so
// utime/stime/rss come directly from process accounting rather than
// sampling. Cancelling ctx does not kill a command that is already running:
// it is left to finish.
func Run(ctx context.Context, command, dir string, env []string) (CommandResult, error) {
	cmd := exec.Command("/bin/sh", "-c", command)
	cmd.Dir = dir
	cmd.Env = env

	var stdout, stderr bytes.Buffer
	cmd.Stdout = &stdout
	cmd.Stderr = &stderr

	start := time.Now()
	err := cmd.Start()
	if err != nil {
		return CommandResult{}, fmt.Errorf("starting command: %w", err)
	}

	var rusage unix.Rusage
	var ws unix.WaitStatus
	pid := cmd.Process.Pid
	_, waitErr := unix.Wait4(pid, &ws, 0, &rusage)
	wall := time.Since(start)

	// cmd.Wait releases resources bookkept by os/exec (pipes, etc.); the
	// process itself was already reaped by Wait4 above, so ignore the
	// "no child processes" error Wait returns in that case.
	if wErr := cmd.Wait(); wErr != nil && waitErr == nil {
		if _, ok := wErr.(*exec.ExitError); !ok && !errors.Is(wErr, syscall.ECHILD) {
			return CommandResult{}, fmt.Errorf("command cleanup: %w", wErr)
		}
	}

	result := CommandResult{
		Wall:        wall,
		UserTime:    time.Duration(rusage.Utime.Nano()),
		SysTime:     time.Duration(rusage.Stime.Nano()),
		MaxRSSBytes: rusage.Maxrss * 1024, // ru_maxrss is KiB on Linux
		Stdout:      strings.TrimRight(stdout.String(), "\n"),
		Stderr:      strings.TrimRight(stderr.String(), "\n"),
		ExitCode:    ws.ExitStatus(),
	}
	result.Failed = !ws.Exited() || ws.ExitStatus() != 0
	return result, nil
}

// CustomMetricRow is one parsed row of custom-metric output: a stage name
// and its numeric value.
type CustomMetricRow struct {
	Stage string
	Value float64
}

// ParseCustomMetric interprets a custom-metric command's stdout as either a
// single numeric token (one row, stage = metricName) or a two-line CSV
// (header of stage names, one line of matching numeric fields), per §4.5.
func ParseCustomMetric(metricName, stdout string) ([]CustomMetricRow, error) {
	trimmed := strings.TrimSpace(stdout)
	lines := strings.Split(trimmed, "\n")

	if len(lines) == 1 {
		v, err := strconv.ParseFloat(strings.TrimSpace(lines[0]), 64)
		if err != nil {
			return nil, fmt.Errorf("custom metric %s: not a single numeric token: %q", metricName, trimmed)
		}
		return []CustomMetricRow{{Stage: metricName, Value: v}}, nil
	}
	if len(lines) != 2 {
		return nil, fmt.Errorf("custom metric %s: expected one numeric token or a two-line CSV, got %d lines", metricName, len(lines))
	}

	headers := strings.Split(lines[0], ",")
	fields := strings.Split(lines[1], ",")
	if len(headers) != len(fields) {
		return nil, fmt.Errorf("custom metric %s: header has %d columns, row has %d", metricName, len(headers), len(fields))
	}

	rows := make([]CustomMetricRow, len(headers))
	for i := range headers {
		v, err := strconv.ParseFloat(strings.TrimSpace(fields[i]), 64)
		if err != nil {
			return nil, fmt.Errorf("custom metric %s: field %q is not numeric: %q", metricName, strings.TrimSpace(headers[i]), fields[i])
		}
		rows[i] = CustomMetricRow{Stage: strings.TrimSpace(headers[i]), Value: v}
	}
	return rows, nil
}

// BytesToMiB converts a byte count to mebibytes (1 MiB = 2^20 B).
func BytesToMiB(b int64) float64 {
	return float64(b) / (1 << 20)
}
