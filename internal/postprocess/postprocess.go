// Package postprocess implements the two filtering passes of §4.7: failure
// filtering and modified-Z-score outlier detection. The raw CSV export
// path never goes through this package; it reads Table.Rows() directly.
package postprocess

import (
	"sort"

	"github.com/benchalot/benchalot/internal/resulttable"
)

// Options controls which filters Apply applies, mirroring the
// --include-failed/--include-outliers CLI flags.
type Options struct {
	IncludeFailed   bool
	IncludeOutliers bool
}

// Apply returns the filtered view of t per opts. It never mutates t and
// never replaces the accessor used for raw CSV export: callers that need
// the unfiltered table must call t.Rows() themselves, not this function.
func Apply(t *resulttable.Table, opts Options) []resulttable.Row {
	rows := t.Rows()
	if !opts.IncludeFailed {
		rows = filterFailed(rows)
	}
	if !opts.IncludeOutliers {
		rows = filterOutliers(rows)
	}
	return rows
}

func filterFailed(rows []resulttable.Row) []resulttable.Row {
	out := make([]resulttable.Row, 0, len(rows))
	for _, r := range rows {
		if !r.Failed {
			out = append(out, r)
		}
	}
	return out
}

// filterOutliers groups rows by (matrix bindings, stage, metric) and drops
// any numeric row whose modified Z-score exceeds 3.5 in magnitude.
// stdout/stderr rows are never candidates for outlier detection.
func filterOutliers(rows []resulttable.Row) []resulttable.Row {
	groups := map[string][]int{} // group key -> indices into rows
	for i, r := range rows {
		if r.IsText() {
			continue
		}
		key := outlierGroupKey(r)
		groups[key] = append(groups[key], i)
	}

	drop := make(map[int]bool)
	for _, indices := range groups {
		values := make([]float64, len(indices))
		for j, idx := range indices {
			values[j] = rows[idx].Value
		}
		med, mad := resulttable.MedianAbsoluteDeviation(values)
		for j, idx := range indices {
			z := resulttable.ModifiedZScore(values[j], med, mad)
			if z > 3.5 || z < -3.5 {
				drop[idx] = true
			}
		}
	}

	out := make([]resulttable.Row, 0, len(rows))
	for i, r := range rows {
		if !drop[i] {
			out = append(out, r)
		}
	}
	return out
}

func outlierGroupKey(r resulttable.Row) string {
	key := r.Stage + "\x1f" + r.Metric + "\x1f"
	for _, name := range sortedBindingNames(r.Bindings) {
		key += name + "=" + r.Bindings[name] + "\x1f"
	}
	return key
}

func sortedBindingNames(bindings map[string]string) []string {
	names := make([]string, 0, len(bindings))
	for k := range bindings {
		names = append(names, k)
	}
	sort.Strings(names)
	return names
}
