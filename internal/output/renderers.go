package output

import (
	"fmt"
	"os"
	"sort"
	"strings"
	"text/tabwriter"

	"github.com/benchalot/benchalot/internal/errkind"
	"github.com/benchalot/benchalot/internal/resulttable"
)

// csvRenderer writes a partition's rows as a result CSV, reusing the same
// reader/writer schema as the raw export so `results` blocks round-trip
// the same way `--results-from-csv` does.
type csvRenderer struct{}

func (csvRenderer) Render(path string, rows []resulttable.Row, _ map[string]any) error {
	f, err := os.Create(path)
	if err != nil {
		return fmt.Errorf("creating %s: %v: %w", path, err, errkind.IO)
	}
	defer f.Close()
	return resulttable.WriteCSV(f, resulttable.New(rows))
}

// tableRenderer renders a human-readable tab-aligned summary table, in the
// teacher's tabwriter style, grouped by matrix binding and pivoted on
// stage+metric.
type tableRenderer struct{}

func (tableRenderer) Render(path string, rows []resulttable.Row, options map[string]any) error {
	pattern := "{{stage}} {{metric}}"
	if p, ok := options["pivot"].(string); ok && p != "" {
		pattern = p
	}
	pivoted := resulttable.Pivot(rows, pattern)

	var out *os.File
	if path == "" || path == "STDOUT" {
		out = os.Stdout
	} else {
		f, err := os.Create(path)
		if err != nil {
			return fmt.Errorf("creating %s: %v: %w", path, err, errkind.IO)
		}
		defer f.Close()
		out = f
	}

	columns := pivotColumns(pivoted)
	keyColumns := pivotKeyColumns(pivoted)

	w := tabwriter.NewWriter(out, 0, 0, 2, ' ', 0)
	header := append(append([]string(nil), keyColumns...), columns...)
	fmt.Fprintln(w, strings.Join(header, "\t"))
	for _, row := range pivoted {
		fields := make([]string, 0, len(header))
		for _, k := range keyColumns {
			fields = append(fields, row.Key[k])
		}
		for _, c := range columns {
			if v, ok := row.Columns[c]; ok {
				fields = append(fields, fmt.Sprintf("%.6g", v))
			} else {
				fields = append(fields, "")
			}
		}
		fmt.Fprintln(w, strings.Join(fields, "\t"))
	}
	return w.Flush()
}

func pivotColumns(rows []resulttable.PivotedRow) []string {
	seen := map[string]bool{}
	for _, r := range rows {
		for c := range r.Columns {
			seen[c] = true
		}
	}
	cols := make([]string, 0, len(seen))
	for c := range seen {
		cols = append(cols, c)
	}
	sort.Strings(cols)
	return cols
}

func pivotKeyColumns(rows []resulttable.PivotedRow) []string {
	seen := map[string]bool{}
	for _, r := range rows {
		for k := range r.Key {
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
