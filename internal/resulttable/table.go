// Package resulttable implements the long-format Result Table: append,
// filter, group, aggregate, and pivot over Sample Rows, plus CSV I/O that
// round-trips exactly.
package resulttable

import (
	"fmt"
	"sort"
)

// Row is one Sample Row per §3: a cell's matrix bindings flattened to
// string columns, plus the stage/metric/value tuple. Exactly one of Value
// (numeric) or Text (stdout/stderr) is meaningful, selected by Metric.
type Row struct {
	CellIndex int
	Bindings  map[string]string // matrix variable name (or "var.field") -> string form
	Sample    int
	Stage     string
	Metric    string
	Value     float64
	Text      string
	Failed    bool
}

// IsText reports whether this row carries a string metric (stdout/stderr)
// rather than a numeric one.
func (r Row) IsText() bool {
	return r.Metric == "stdout" || r.Metric == "stderr"
}

// Table is an in-memory long-format Result Table. The zero value is an
// empty, usable table.
type Table struct {
	rows []Row
}

// New builds a Table from existing rows, e.g. loaded from CSV.
func New(rows []Row) *Table {
	return &Table{rows: append([]Row(nil), rows...)}
}

// Append adds a row to the table. O(1) amortized.
func (t *Table) Append(r Row) {
	t.rows = append(t.rows, r)
}

// Rows returns every row in the table, unfiltered. This is the only path
// the CSV writer may use, so that outlier/failure filtering can never
// contaminate a raw export.
func (t *Table) Rows() []Row {
	return append([]Row(nil), t.rows...)
}

// Filter returns a new Table containing only rows for which keep returns
// true.
func (t *Table) Filter(keep func(Row) bool) *Table {
	out := make([]Row, 0, len(t.rows))
	for _, r := range t.rows {
		if keep(r) {
			out = append(out, r)
		}
	}
	return &Table{rows: out}
}

// GroupKey is the set of column values that define a group for Aggregate,
// built from a caller-chosen set of column names.
type GroupKey string

// Group partitions rows by the values of the given binding columns plus,
// optionally, stage and/or metric. Columns not listed are ignored for
// grouping purposes (they may still differ within a group, e.g. sample).
func (t *Table) Group(columns []string, byStage, byMetric bool) map[GroupKey][]Row {
	groups := make(map[GroupKey][]Row)
	for _, r := range t.rows {
		key := groupKey(r, columns, byStage, byMetric)
		groups[key] = append(groups[key], r)
	}
	return groups
}

func groupKey(r Row, columns []string, byStage, byMetric bool) GroupKey {
	key := ""
	for _, c := range columns {
		key += c + "=" + r.Bindings[c] + "\x1f"
	}
	if byStage {
		key += "stage=" + r.Stage + "\x1f"
	}
	if byMetric {
		key += "metric=" + r.Metric + "\x1f"
	}
	return GroupKey(key)
}

// SortedKeys returns a group map's keys in a stable, deterministic order.
func SortedKeys(groups map[GroupKey][]Row) []GroupKey {
	keys := make([]GroupKey, 0, len(groups))
	for k := range groups {
		keys = append(keys, k)
	}
	sort.Slice(keys, func(i, j int) bool { return keys[i] < keys[j] })
	return keys
}

// BindingColumns returns the union of all matrix binding column names seen
// across the table, sorted, for use as a default grouping/pivot key.
func (t *Table) BindingColumns() []string {
	seen := map[string]bool{}
	for _, r := range t.rows {
		for k := range r.Bindings {
			seen[k] = true
		}
	}
	cols := make([]string, 0, len(seen))
	for k := range seen {
		cols = append(cols, k)
	}
	sort.Strings(cols)
	return cols
}

// Validate checks the Sample Row invariants from §3: at most one row per
// (cell, sample, stage, metric), and failed_flag monotone within a
// (cell, sample).
func (t *Table) Validate() error {
	seen := map[string]bool{}
	failedSeen := map[string]bool{}
	for _, r := range t.rows {
		key := fmt.Sprintf("%d|%d|%s|%s", r.CellIndex, r.Sample, r.Stage, r.Metric)
		if seen[key] {
			return fmt.Errorf("duplicate row for cell %d sample %d stage %s metric %s", r.CellIndex, r.Sample, r.Stage, r.Metric)
		}
		seen[key] = true

		sampleKey := fmt.Sprintf("%d|%d", r.CellIndex, r.Sample)
		if prev, ok := failedSeen[sampleKey]; ok && prev != r.Failed {
			return fmt.Errorf("inconsistent failed flag within cell %d sample %d", r.CellIndex, r.Sample)
		}
		failedSeen[sampleKey] = r.Failed
	}
	return nil
}
