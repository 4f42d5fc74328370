package plan

import "github.com/benchalot/benchalot/internal/config"

// point is a partial or complete binding of matrix variable name to value,
// built up during Cartesian expansion before the reserved `datetime`
// binding or template expansion are applied.
type point map[string]config.Value

// cartesianProduct expands every matrix variable's value list into the
// full Cartesian product, in declaration order, per §3 Matrix Point.
func cartesianProduct(m config.Matrix) []point {
	names := m.Names()
	if len(names) == 0 {
		return []point{{}}
	}

	points := []point{{}}
	for _, name := range names {
		values := m.Values(name)
		next := make([]point, 0, len(points)*len(values))
		for _, p := range points {
			for _, v := range values {
				extended := make(point, len(p)+1)
				for k, existing := range p {
					extended[k] = existing
				}
				extended[name] = v
				next = append(next, extended)
			}
		}
		points = next
	}
	return points
}

// applyExclude drops any point whose bindings are a superset of any
// exclude entry: every name/value pair in the exclude entry must match
// exactly for the point to be dropped.
func applyExclude(points []point, excludes []map[string]config.Value) []point {
	if len(excludes) == 0 {
		return points
	}
	out := make([]point, 0, len(points))
	for _, p := range points {
		if !matchesAnyExclude(p, excludes) {
			out = append(out, p)
		}
	}
	return out
}

func matchesAnyExclude(p point, excludes []map[string]config.Value) bool {
	for _, ex := range excludes {
		if supersetOf(p, ex) {
			return true
		}
	}
	return false
}

// supersetOf reports whether p contains every name/value pair in partial.
func supersetOf(p point, partial map[string]config.Value) bool {
	for name, want := range partial {
		got, ok := p[name]
		if !ok || !valuesEqual(got, want) {
			return false
		}
	}
	return true
}

// includePoints converts complete include entries into points, appended
// after the filtered product in listed order, duplicates allowed.
func includePoints(includes []map[string]config.Value) []point {
	out := make([]point, 0, len(includes))
	for _, inc := range includes {
		p := make(point, len(inc))
		for k, v := range inc {
			p[k] = v
		}
		out = append(out, p)
	}
	return out
}

func valuesEqual(a, b config.Value) bool {
	if a.IsRecord() != b.IsRecord() {
		return false
	}
	if a.IsScalar() {
		return a.Scalar().String() == b.Scalar().String()
	}
	af, bf := a.FieldNames(), b.FieldNames()
	if len(af) != len(bf) {
		return false
	}
	for _, name := range af {
		as, _ := a.Field(name)
		bs, ok := b.Field(name)
		if !ok || as.String() != bs.String() {
			return false
		}
	}
	return true
}
