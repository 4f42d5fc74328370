package resulttable

import (
	"encoding/csv"
	"fmt"
	"io"
	"strconv"

	"github.com/benchalot/benchalot/internal/errkind"
)

// csvFixedColumns are the non-binding columns that appear last in every
// result CSV, per §6's Result CSV schema.
var csvFixedColumns = []string{"sample", "stage", "metric", "value", "stdout", "stderr", "failed"}

// WriteCSV writes every row of t to w, applying no filtering of its own (a
// caller that passes a Post-processor view gets that view written), using a
// shared column schema with ReadCSV so that writing then reading reproduces
// identical rows.
func WriteCSV(w io.Writer, t *Table) error {
	rows := t.Rows()
	columns := t.BindingColumns()

	cw := csv.NewWriter(w)
	header := append(append([]string(nil), columns...), csvFixedColumns...)
	if err := cw.Write(header); err != nil {
		return fmt.Errorf("writing csv header: %w", errkind.IO)
	}

	for _, r := range rows {
		record := make([]string, 0, len(header))
		for _, c := range columns {
			record = append(record, r.Bindings[c])
		}
		stdout, stderr := "", ""
		switch r.Metric {
		case "stdout":
			stdout = r.Text
		case "stderr":
			stderr = r.Text
		}
		record = append(record,
			strconv.Itoa(r.Sample),
			r.Stage,
			r.Metric,
			formatFloat(r.Value),
			stdout,
			stderr,
			strconv.FormatBool(r.Failed),
		)
		if err := cw.Write(record); err != nil {
			return fmt.Errorf("writing csv row: %w", errkind.IO)
		}
	}
	cw.Flush()
	if err := cw.Error(); err != nil {
		return fmt.Errorf("flushing csv: %w", errkind.IO)
	}
	return nil
}

// ReadCSV parses a result CSV written by WriteCSV back into a Table.
func ReadCSV(r io.Reader) (*Table, error) {
	cr := csv.NewReader(r)
	records, err := cr.ReadAll()
	if err != nil {
		return nil, fmt.Errorf("reading csv: %v: %w", err, errkind.IO)
	}
	if len(records) == 0 {
		return New(nil), nil
	}

	header := records[0]
	fixedStart := len(header) - len(csvFixedColumns)
	if fixedStart < 0 {
		return nil, fmt.Errorf("csv header missing required columns: %w", errkind.IO)
	}
	bindingCols := header[:fixedStart]

	rows := make([]Row, 0, len(records)-1)
	for _, rec := range records[1:] {
		if len(rec) != len(header) {
			return nil, fmt.Errorf("csv row has %d fields, header has %d: %w", len(rec), len(header), errkind.IO)
		}
		bindings := make(map[string]string, len(bindingCols))
		for i, c := range bindingCols {
			bindings[c] = rec[i]
		}
		sample, err := strconv.Atoi(rec[fixedStart+0])
		if err != nil {
			return nil, fmt.Errorf("csv sample column: %v: %w", err, errkind.IO)
		}
		stage := rec[fixedStart+1]
		metric := rec[fixedStart+2]
		valueField := rec[fixedStart+3]
		stdout := rec[fixedStart+4]
		stderr := rec[fixedStart+5]
		failed, err := strconv.ParseBool(rec[fixedStart+6])
		if err != nil {
			return nil, fmt.Errorf("csv failed column: %v: %w", err, errkind.IO)
		}

		row := Row{
			Bindings: bindings,
			Sample:   sample,
			Stage:    stage,
			Metric:   metric,
			Failed:   failed,
		}
		switch metric {
		case "stdout":
			row.Text = stdout
		case "stderr":
			row.Text = stderr
		default:
			v, err := strconv.ParseFloat(valueField, 64)
			if err != nil {
				return nil, fmt.Errorf("csv value column: %v: %w", err, errkind.IO)
			}
			row.Value = v
		}
		rows = append(rows, row)
	}
	return New(rows), nil
}

// formatFloat uses the shortest representation that parses back to the same
// float64, so a written-then-reread value is bit-identical to the original.
func formatFloat(f float64) string {
	return strconv.FormatFloat(f, 'g', -1, 64)
}
