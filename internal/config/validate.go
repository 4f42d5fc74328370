package config

import (
	"fmt"
	"strings"

	"github.com/benchalot/benchalot/internal/errkind"
)

// Validator accumulates configuration problems across the whole document
// instead of failing on the first one, so a user sees every mistake in one
// pass rather than one per invocation.
type Validator struct {
	Errors   []string
	Warnings []string
}

func (v *Validator) fail(format string, args ...any) {
	v.Errors = append(v.Errors, fmt.Sprintf(format, args...))
}

func (v *Validator) warn(format string, args ...any) {
	v.Warnings = append(v.Warnings, fmt.Sprintf(format, args...))
}

// HasErrors reports whether Validate found at least one fatal problem.
func (v *Validator) HasErrors() bool { return len(v.Errors) > 0 }

// Report renders accumulated errors and warnings as one multi-line message.
func (v *Validator) Report() string {
	var b strings.Builder
	for _, e := range v.Errors {
		fmt.Fprintf(&b, "error: %s\n", e)
	}
	for _, w := range v.Warnings {
		fmt.Fprintf(&b, "warning: %s\n", w)
	}
	return b.String()
}

// Validate enforces §4.2's cross-field invariants and applies defaults for
// unset fields. It mutates cfg with defaults (samples, metrics) so callers
// downstream of Validate never need to special-case the zero value.
func Validate(cfg *Config) error {
	v := &Validator{}

	if cfg.Benchmark.Empty() && len(cfg.CustomMetrics) == 0 {
		v.fail("at least one of `benchmark` or `custom-metrics` must be present")
	}

	if cfg.Samples == 0 {
		cfg.Samples = 1
	} else if cfg.Samples < 0 {
		v.fail("samples must be a positive integer, got %d", cfg.Samples)
	}

	if len(cfg.Metrics) == 0 {
		cfg.Metrics = []string{"time"}
	}
	validMetric := map[string]bool{}
	for _, m := range KnownMetrics {
		validMetric[m] = true
	}
	hasStdoutErr := false
	for _, m := range cfg.Metrics {
		if !validMetric[m] {
			v.fail("unknown metric %q, must be one of %s", m, strings.Join(KnownMetrics, ", "))
		}
		if m == "stdout" || m == "stderr" {
			hasStdoutErr = true
		}
	}
	if hasStdoutErr && !cfg.Benchmark.IsImplicit() && len(cfg.Benchmark.Named) > 0 {
		v.fail("explicit benchmark stages cannot be combined with stdout/stderr metrics: those metrics collapse to a single string per command, not per stage")
	}

	declared := map[string]bool{}
	for _, name := range cfg.Matrix.Names() {
		declared[name] = true
		values := cfg.Matrix.Values(name)
		if len(values) == 0 {
			v.fail("matrix variable %q must have at least one value", name)
			continue
		}
		validateUniformShape(v, name, values)
	}

	validateBindingRefs(v, "exclude", cfg.Exclude, declared)
	validateBindingRefs(v, "include", cfg.Include, declared)

	for name, rb := range cfg.Results {
		if rb.Format == "" {
			v.fail("result block %q is missing a format", name)
			continue
		}
		known := false
		for _, f := range KnownFormats {
			if f == rb.Format {
				known = true
				break
			}
		}
		if !known {
			v.fail("result block %q has unrecognized format %q", name, rb.Format)
		}
	}

	for _, cm := range cfg.CustomMetrics {
		if cm.Name == "" {
			v.fail("custom-metrics entry has an empty name")
		}
		if cm.Command == "" {
			v.fail("custom-metrics entry %q has an empty command", cm.Name)
		}
	}

	if v.HasErrors() {
		return fmt.Errorf("%s: %w", strings.TrimSpace(v.Report()), errkind.Configuration)
	}
	return nil
}

// validateUniformShape enforces that a matrix variable's values are either
// all scalar or all records sharing identical field names.
func validateUniformShape(v *Validator, name string, values VarList) {
	firstRecord := values[0].IsRecord()
	var wantFields []string
	if firstRecord {
		wantFields = values[0].FieldNames()
	}
	for i, val := range values {
		if val.IsRecord() != firstRecord {
			v.fail("matrix variable %q mixes scalar and record values at index %d", name, i)
			continue
		}
		if firstRecord {
			got := val.FieldNames()
			if !stringSlicesEqual(got, wantFields) {
				v.fail("matrix variable %q record at index %d has fields %v, expected %v", name, i, got, wantFields)
			}
		}
	}
}

func validateBindingRefs(v *Validator, key string, entries []map[string]Value, declared map[string]bool) {
	for i, entry := range entries {
		for name := range entry {
			if !declared[name] {
				v.fail("%s entry %d references undeclared matrix variable %q", key, i, name)
			}
		}
	}
}

func stringSlicesEqual(a, b []string) bool {
	if len(a) != len(b) {
		return false
	}
	for i := range a {
		if a[i] != b[i] {
			return false
		}
	}
	return true
}
