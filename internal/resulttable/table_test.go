package resulttable_test

import (
	"bytes"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/benchalot/benchalot/internal/resulttable"
)

func sampleRows() []resulttable.Row {
	return []resulttable.Row{
		{CellIndex: 0, Bindings: map[string]string{"compiler": "gcc"}, Sample: 0, Stage: "time", Metric: "time", Value: 1.0},
		{CellIndex: 0, Bindings: map[string]string{"compiler": "gcc"}, Sample: 1, Stage: "time", Metric: "time", Value: 2.0},
		{CellIndex: 1, Bindings: map[string]string{"compiler": "clang"}, Sample: 0, Stage: "time", Metric: "time", Value: 3.0},
		{CellIndex: 1, Bindings: map[string]string{"compiler": "clang"}, Sample: 1, Stage: "time", Metric: "time", Value: 4.0},
	}
}

func TestAppendAndRowsRoundTrip(t *testing.T) {
	table := resulttable.New(nil)
	for _, r := range sampleRows() {
		table.Append(r)
	}
	assert.Len(t, table.Rows(), 4)
}

func TestFilterDoesNotMutateSource(t *testing.T) {
	table := resulttable.New(sampleRows())
	filtered := table.Filter(func(r resulttable.Row) bool { return r.Bindings["compiler"] == "gcc" })
	assert.Len(t, filtered.Rows(), 2)
	assert.Len(t, table.Rows(), 4, "filtering must not affect the raw table")
}

func TestGroupByBindingColumn(t *testing.T) {
	table := resulttable.New(sampleRows())
	groups := table.Group([]string{"compiler"}, true, true)
	assert.Len(t, groups, 2)
}

func TestBindingColumnsIsSortedUnion(t *testing.T) {
	rows := []resulttable.Row{
		{Bindings: map[string]string{"b": "1"}},
		{Bindings: map[string]string{"a": "1", "c": "1"}},
	}
	table := resulttable.New(rows)
	assert.Equal(t, []string{"a", "b", "c"}, table.BindingColumns())
}

func TestValidateDetectsDuplicateRow(t *testing.T) {
	rows := []resulttable.Row{
		{CellIndex: 0, Sample: 0, Stage: "time", Metric: "time", Value: 1},
		{CellIndex: 0, Sample: 0, Stage: "time", Metric: "time", Value: 2},
	}
	table := resulttable.New(rows)
	assert.Error(t, table.Validate())
}

func TestCSVRoundTripIsLossless(t *testing.T) {
	table := resulttable.New(sampleRows())
	var buf bytes.Buffer
	require.NoError(t, resulttable.WriteCSV(&buf, table))

	reloaded, err := resulttable.ReadCSV(&buf)
	require.NoError(t, err)

	original := table.Rows()
	roundTripped := reloaded.Rows()
	require.Len(t, roundTripped, len(original))
	for i := range original {
		assert.Equal(t, original[i].Bindings, roundTripped[i].Bindings)
		assert.Equal(t, original[i].Sample, roundTripped[i].Sample)
		assert.Equal(t, original[i].Value, roundTripped[i].Value)
	}
}

func TestCSVRoundTripPreservesStdoutStderrText(t *testing.T) {
	rows := []resulttable.Row{
		{CellIndex: 0, Sample: 0, Stage: "time", Metric: "stdout", Text: "hello world"},
		{CellIndex: 0, Sample: 0, Stage: "time", Metric: "stderr", Text: "warning: x"},
	}
	table := resulttable.New(rows)
	var buf bytes.Buffer
	require.NoError(t, resulttable.WriteCSV(&buf, table))

	reloaded, err := resulttable.ReadCSV(&buf)
	require.NoError(t, err)
	roundTripped := reloaded.Rows()
	assert.Equal(t, "hello world", roundTripped[0].Text)
	assert.Equal(t, "warning: x", roundTripped[1].Text)
}
