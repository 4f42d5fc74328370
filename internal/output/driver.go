// Package output implements the Output Driver of §4.8: partitioning a
// filtered Result Table by matrix variables referenced in a filename
// template, naming output files (with an overwrite-safe suffix), and
// dispatching each partition to a format-specific renderer.
package output

import (
	"fmt"
	"os"
	"path/filepath"
	"sort"
	"strings"
	"time"

	"github.com/benchalot/benchalot/internal/config"
	"github.com/benchalot/benchalot/internal/errkind"
	"github.com/benchalot/benchalot/internal/resulttable"
	"github.com/benchalot/benchalot/internal/template"
)

// Renderer writes one partition's rows to path, using block-specific
// options. The built-in "csv" and "table" formats are implemented in this
// package; every other recognized format (markdown, html, scatter, box,
// violin, bar) is an external collaborator per §1 and is dispatched
// through the same interface so the driver's partitioning/naming contract
// stays uniform regardless of which renderer ends up handling a format.
type Renderer interface {
	Render(path string, rows []resulttable.Row, options map[string]any) error
}

// Registry maps a result block's `format` to the Renderer that handles it.
type Registry map[string]Renderer

// Default returns a Registry with the natively-implemented formats wired
// in. External renderers (markdown/html/plots) are registered by the CLI
// layer if/when those collaborators are available; an unregistered format
// is reported as an IOError rather than silently dropped.
func Default() Registry {
	return Registry{
		"csv":   csvRenderer{},
		"table": tableRenderer{},
	}
}

// Run dispatches every result block in blocks against rows, partitioning
// by any matrix variables the block's filename pattern references. datetime
// is bound for filename expansion exactly as it was at plan time, since
// rows no longer carry it as a column (see bindingColumns in the runner).
func Run(blocks map[string]config.ResultBlock, rows []resulttable.Row, registry Registry, datetime string) error {
	names := make([]string, 0, len(blocks))
	for name := range blocks {
		names = append(names, name)
	}
	sort.Strings(names)

	for _, name := range names {
		block := blocks[name]
		renderer, ok := registry[block.Format]
		if !ok {
			return fmt.Errorf("result block %q: no renderer registered for format %q: %w", name, block.Format, errkind.IO)
		}
		if err := runBlock(block, rows, renderer, datetime); err != nil {
			return fmt.Errorf("result block %q: %w", name, err)
		}
	}
	return nil
}

func runBlock(block config.ResultBlock, rows []resulttable.Row, renderer Renderer, datetime string) error {
	varNames := template.ReferencedNames(block.Filename)
	if len(varNames) == 0 {
		path := resolvePath(block.Filename, block.Options)
		return renderer.Render(path, rows, block.Options)
	}

	partitions := partitionBy(rows, varNames)
	keys := make([]string, 0, len(partitions))
	for k := range partitions {
		keys = append(keys, k)
	}
	sort.Strings(keys)

	for _, key := range keys {
		part := partitions[key]
		filename, err := template.Expand(block.Filename, rowBinding(part.sample, datetime))
		if err != nil {
			return err
		}
		path := resolvePath(filename, block.Options)
		if err := renderer.Render(path, part.rows, block.Options); err != nil {
			return err
		}
	}
	return nil
}

type partition struct {
	sample resulttable.Row
	rows   []resulttable.Row
}

func partitionBy(rows []resulttable.Row, varNames []string) map[string]*partition {
	out := map[string]*partition{}
	for _, r := range rows {
		key := partitionKey(r, varNames)
		p, ok := out[key]
		if !ok {
			p = &partition{sample: r}
			out[key] = p
		}
		p.rows = append(p.rows, r)
	}
	return out
}

// partitionKey identifies a row's value for each referenced matrix
// variable. A scalar variable contributes its flattened column directly; a
// record variable (flattened as "name.field" columns) contributes every
// field it has, sorted for determinism.
func partitionKey(r resulttable.Row, varNames []string) string {
	var key strings.Builder
	for _, name := range varNames {
		key.WriteString(name)
		key.WriteByte('=')
		key.WriteString(flattenedValue(r, name))
		key.WriteByte('\x1f')
	}
	return key.String()
}

func flattenedValue(r resulttable.Row, name string) string {
	if v, ok := r.Bindings[name]; ok {
		return v
	}
	prefix := name + "."
	var fields []string
	for k := range r.Bindings {
		if strings.HasPrefix(k, prefix) {
			fields = append(fields, k)
		}
	}
	sort.Strings(fields)
	parts := make([]string, len(fields))
	for i, k := range fields {
		parts[i] = k + "=" + r.Bindings[k]
	}
	return strings.Join(parts, ",")
}

// rowBinding rebuilds a template binding from a row's flattened "var" /
// "var.field" string columns, plus the reserved datetime binding that
// bindingColumns strips before rows reach the Result Table.
func rowBinding(r resulttable.Row, datetime string) config.Binding {
	binding := make(config.Binding, len(r.Bindings)+1)
	records := map[string]map[string]config.Scalar{}
	for key, value := range r.Bindings {
		name, field, isField := strings.Cut(key, ".")
		if !isField {
			binding[name] = config.NewScalarValue(config.NewStringScalar(value))
			continue
		}
		if records[name] == nil {
			records[name] = map[string]config.Scalar{}
		}
		records[name][field] = config.NewStringScalar(value)
	}
	for name, fields := range records {
		binding[name] = config.NewRecordValue(fields)
	}
	binding["datetime"] = config.NewScalarValue(config.NewStringScalar(datetime))
	return binding
}

// resolvePath applies the overwrite-suffix policy: unless options["overwrite"]
// is true, an existing file at path is renamed with a timestamp suffix
// before this path is handed to the renderer, per §4.8.
func resolvePath(path string, options map[string]any) string {
	overwrite, _ := options["overwrite"].(bool)
	if overwrite {
		return path
	}
	if _, err := os.Stat(path); err != nil {
		return path
	}

	suffix := time.Now().Format("20060102-150405")
	ext := filepath.Ext(path)
	base := path[:len(path)-len(ext)]
	renamed := fmt.Sprintf("%s.%s%s", base, suffix, ext)
	_ = os.Rename(path, renamed)
	return path
}
