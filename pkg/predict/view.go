package predict

import (
	"sort"
	"strings"
)

type Direction int

const (
	Asc Direction = iota
	Desc
)

func (d Direction) String() string {
	if d == Desc {
		return "desc"
	}
	return "asc"
}

// Filter selects rows by product and by a free text search on the CVE and
// system identifiers. Zero values match everything.
type Filter struct {
	SearchQuery string
	Product     string
}

func (f Filter) Match(r Row) bool {
	if f.Product != "" && r.Product != f.Product {
		return false
	}

	if f.SearchQuery == "" {
		return true
	}

	q := strings.ToLower(f.SearchQuery)
	return strings.Contains(strings.ToLower(r.CVEID), q) ||
		strings.Contains(strings.ToLower(r.SystemID), q)
}

// FilterRows returns the matching rows in their original order. The input is
// never modified.
func FilterRows(rows []Row, f Filter) []Row {
	out := make([]Row, 0, len(rows))
	for _, r := range rows {
		if f.Match(r) {
			out = append(out, r)
		}
	}
	return out
}

// SortState is the column currently sorted on. An empty Key means unsorted.
type SortState struct {
	Key       string
	Direction Direction
}

// Toggle returns the state after the user picked key: the same column flips
// the direction, a new column starts ascending.
func (s SortState) Toggle(key string) SortState {
	if s.Key == key && s.Direction == Asc {
		return SortState{Key: key, Direction: Desc}
	}
	return SortState{Key: key, Direction: Asc}
}

// SortRows returns a stably sorted copy of rows
func SortRows(rows []Row, s SortState) []Row {
	out := make([]Row, len(rows))
	copy(out, rows)

	if s.Key == "" {
		return out
	}

	cmp := comparator(s.Key)
	sort.SliceStable(out, func(i, j int) bool {
		if s.Direction == Desc {
			return cmp(out[j], out[i]) < 0
		}
		return cmp(out[i], out[j]) < 0
	})

	return out
}

func comparator(key string) func(a, b Row) int {
	switch key {
	case ColumnRiskScore:
		return func(a, b Row) int {
			return compareFloat(a.Score(), b.Score())
		}
	case ColumnSeverity:
		return func(a, b Row) int {
			return a.Severity().Rank() - b.Severity().Rank()
		}
	}

	return func(a, b Row) int {
		return strings.Compare(strings.ToLower(a.Field(key)), strings.ToLower(b.Field(key)))
	}
}

func compareFloat(a, b float64) int {
	switch {
	case a < b:
		return -1
	case a > b:
		return 1
	}
	return 0
}

// View is the Sort/Filter State of the predictions table
type View struct {
	Filter
	Sort SortState
}

// Apply filters then sorts rows, leaving rows untouched
func (v View) Apply(rows []Row) []Row {
	return SortRows(FilterRows(rows, v.Filter), v.Sort)
}
