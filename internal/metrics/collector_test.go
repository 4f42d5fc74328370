package metrics_test

import (
	"context"
	"os"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/benchalot/benchalot/internal/metrics"
)

func TestRunCapturesStdoutAndExitStatus(t *testing.T) {
	res, err := metrics.Run(context.Background(), "echo hello", ".", os.Environ())
	require.NoError(t, err)
	assert.Equal(t, "hello", res.Stdout)
	assert.False(t, res.Failed)
	assert.Equal(t, 0, res.ExitCode)
	assert.GreaterOrEqual(t, res.Wall.Nanoseconds(), int64(0))
}

func TestRunMarksNonZeroExitAsFailed(t *testing.T) {
	res, err := metrics.Run(context.Background(), "exit 3", ".", os.Environ())
	require.NoError(t, err)
	assert.True(t, res.Failed)
	assert.Equal(t, 3, res.ExitCode)
}

func TestRunCapturesStderrSeparately(t *testing.T) {
	res, err := metrics.Run(context.Background(), "echo out; echo err 1>&2", ".", os.Environ())
	require.NoError(t, err)
	assert.Equal(t, "out", res.Stdout)
	assert.Equal(t, "err", res.Stderr)
}

func TestParseCustomMetricSingleNumericToken(t *testing.T) {
	rows, err := metrics.ParseCustomMetric("throughput", "1234.5\n")
	require.NoError(t, err)
	require.Len(t, rows, 1)
	assert.Equal(t, "throughput", rows[0].Stage)
	assert.Equal(t, 1234.5, rows[0].Value)
}

func TestParseCustomMetricTwoLineCSV(t *testing.T) {
	rows, err := metrics.ParseCustomMetric("latency", "p50,p99\n1.2,9.8\n")
	require.NoError(t, err)
	require.Len(t, rows, 2)
	assert.Equal(t, "p50", rows[0].Stage)
	assert.Equal(t, 1.2, rows[0].Value)
	assert.Equal(t, "p99", rows[1].Stage)
	assert.Equal(t, 9.8, rows[1].Value)
}

func TestParseCustomMetricRejectsMalformedOutput(t *testing.T) {
	_, err := metrics.ParseCustomMetric("bad", "not-a-number\nextra\nlines\n")
	assert.Error(t, err)
}

func TestBytesToMiB(t *testing.T) {
	assert.Equal(t, 1.0, metrics.BytesToMiB(1<<20))
	assert.Equal(t, 0.5, metrics.BytesToMiB(1<<19))
}
