// Package template implements the `{{name}}` / `{{name.field}}` placeholder
// substitution used for benchmark commands, cwd, environment values, and
// output filename patterns.
package template

import (
	"fmt"
	"regexp"
	"strings"

	"github.com/benchalot/benchalot/internal/config"
)

var placeholder = regexp.MustCompile(`\{\{([A-Za-z_][A-Za-z0-9_]*)(?:\.([A-Za-z_][A-Za-z0-9_]*))?\}\}`)

// UnknownVariableError means an identifier inside `{{}}` has no entry in
// the binding map.
type UnknownVariableError struct {
	Name string
}

func (e *UnknownVariableError) Error() string {
	return fmt.Sprintf("unknown variable %q", e.Name)
}

// BadFieldAccessError means a `{{name.field}}` or `{{name}}` placeholder
// doesn't match the shape (scalar vs record) of what name is bound to, or
// names a field the bound record does not have.
type BadFieldAccessError struct {
	Name  string
	Field string
}

func (e *BadFieldAccessError) Error() string {
	if e.Field == "" {
		return fmt.Sprintf("%q is bound to a record, a field access is required", e.Name)
	}
	return fmt.Sprintf("%q has no field %q", e.Name, e.Field)
}

// Expand substitutes every `{{ident}}` / `{{ident.field}}` occurrence in s
// using binding. Braces are matched literally; there is no escape syntax
// and no nesting, per the grammar in the Template Expander design.
func Expand(s string, binding config.Binding) (string, error) {
	var firstErr error
	result := placeholder.ReplaceAllStringFunc(s, func(match string) string {
		if firstErr != nil {
			return match
		}
		groups := placeholder.FindStringSubmatch(match)
		name, field := groups[1], groups[2]

		val, ok := binding[name]
		if !ok {
			firstErr = &UnknownVariableError{Name: name}
			return match
		}
		if field == "" {
			if val.IsRecord() {
				firstErr = &BadFieldAccessError{Name: name}
				return match
			}
			return val.Scalar().String()
		}
		if val.IsScalar() {
			firstErr = &BadFieldAccessError{Name: name, Field: field}
			return match
		}
		sc, ok := val.Field(field)
		if !ok {
			firstErr = &BadFieldAccessError{Name: name, Field: field}
			return match
		}
		return sc.String()
	})
	if firstErr != nil {
		return "", firstErr
	}
	return result, nil
}

// ReferencedNames returns the distinct top-level identifiers referenced by
// `{{name}}` / `{{name.field}}` placeholders in s, in first-occurrence
// order. Used by the Output Driver to find which matrix variables a
// filename pattern partitions by, before any substitution happens.
func ReferencedNames(s string) []string {
	var names []string
	seen := map[string]bool{}
	for _, m := range placeholder.FindAllStringSubmatch(s, -1) {
		name := m[1]
		if !seen[name] {
			seen[name] = true
			names = append(names, name)
		}
	}
	return names
}

// ExpandEnv expands every value in a string-to-string environment map,
// returning the first error encountered together with the offending key.
func ExpandEnv(env map[string]string, binding config.Binding) (map[string]string, error) {
	out := make(map[string]string, len(env))
	for k, v := range env {
		expanded, err := Expand(v, binding)
		if err != nil {
			return nil, fmt.Errorf("env %s: %w", k, err)
		}
		out[k] = expanded
	}
	return out, nil
}

// ExpandAll expands every string in a slice, stopping at the first error.
func ExpandAll(ss []string, binding config.Binding) ([]string, error) {
	out := make([]string, len(ss))
	for i, s := range ss {
		expanded, err := Expand(s, binding)
		if err != nil {
			return nil, fmt.Errorf("%s: %w", strings.TrimSpace(truncate(s, 40)), err)
		}
		out[i] = expanded
	}
	return out, nil
}

func truncate(s string, n int) string {
	if len(s) <= n {
		return s
	}
	return s[:n] + "..."
}
