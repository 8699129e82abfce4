package survey

import (
	"math"
	"sort"

	"github.com/paulmach/orb"
)

// CoordTolerance is the per-axis tolerance below which two coordinates are
// considered equal. Re-exporting a KML file perturbs coordinates at around
// the 1e-9 level; 1e-6 (about 10cm of latitude) absorbs that noise without
// hiding real edits.
const CoordTolerance = 1e-6

// DiffReport partitions the union of current and incoming shape names into
// four disjoint sets. Each set is sorted lexicographically.
type DiffReport struct {
	Added     []string
	Removed   []string
	Modified  []string
	Unchanged []string
}

// Diff compares two shape collections by name. Duplicate names within one
// side resolve last-write-wins.
func Diff(current, incoming []Shape) DiffReport {
	cur := shapesByName(current)
	inc := shapesByName(incoming)

	var report DiffReport
	for name := range inc {
		if _, ok := cur[name]; !ok {
			report.Added = append(report.Added, name)
		}
	}
	for name, curShape := range cur {
		incShape, ok := inc[name]
		if !ok {
			report.Removed = append(report.Removed, name)
			continue
		}
		if coordsEqual(curShape.Coords, incShape.Coords) {
			report.Unchanged = append(report.Unchanged, name)
		} else {
			report.Modified = append(report.Modified, name)
		}
	}

	sort.Strings(report.Added)
	sort.Strings(report.Removed)
	sort.Strings(report.Modified)
	sort.Strings(report.Unchanged)
	return report
}

// coordsEqual reports whether two coordinate sequences are equal within
// CoordTolerance on each axis. A length mismatch is always a change.
func coordsEqual(a, b orb.Ring) bool {
	if len(a) != len(b) {
		return false
	}
	for i := range a {
		if math.Abs(a[i][0]-b[i][0]) > CoordTolerance ||
			math.Abs(a[i][1]-b[i][1]) > CoordTolerance {
			return false
		}
	}
	return true
}

func shapesByName(shapes []Shape) map[string]Shape {
	m := make(map[string]Shape, len(shapes))
	for _, s := range shapes {
		m[s.Name] = s
	}
	return m
}
