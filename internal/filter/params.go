// Package filter turns a viewer's scope and the optional report filters into
// the working set every report engine consumes.
package filter

import (
	"strconv"
	"strings"
	"time"

	"github.com/dori/workscope/internal/deadline"
)

// Params are the filters as they arrive from a caller: id lists and ISO
// date strings, unvalidated.
type Params struct {
	ProjectIDs    []string
	DepartmentIDs []string
	StartDate     string
	EndDate       string
}

// Filters are validated Params. A nil id list or a nil bound means that
// filter is not applied.
type Filters struct {
	ProjectIDs    []int64
	DepartmentIDs []int64
	Start         *time.Time // first instant of the start day
	End           *time.Time // first instant after the end day
}

// HasDateRange reports whether either date bound is active
func (f Filters) HasDateRange() bool {
	return f.Start != nil || f.End != nil
}

// InRange reports whether a deadline falls inside the date bounds. Tasks
// without a deadline only pass when no range is active.
func (f Filters) InRange(d *time.Time) bool {
	if !f.HasDateRange() {
		return true
	}
	if d == nil {
		return false
	}
	if f.Start != nil && d.Before(*f.Start) {
		return false
	}
	if f.End != nil && !d.Before(*f.End) {
		return false
	}
	return true
}

// Parse validates p. Malformed values never fail: a bad date drops that
// bound and non-numeric ids are skipped. A list made only of bad ids is
// treated as absent.
func Parse(p Params, loc *time.Location) Filters {
	var f Filters
	f.ProjectIDs = parseIDs(p.ProjectIDs)
	f.DepartmentIDs = parseIDs(p.DepartmentIDs)

	if start := deadline.Parse(p.StartDate, loc); start != nil {
		s := deadline.Midnight(*start, loc)
		f.Start = &s
	}
	if end := deadline.Parse(p.EndDate, loc); end != nil {
		e := deadline.Midnight(*end, loc).AddDate(0, 0, 1)
		f.End = &e
	}
	return f
}

// SplitList flattens repeated and comma separated values ("1,2", "3")
func SplitList(values ...string) []string {
	var out []string
	for _, v := range values {
		for _, part := range strings.Split(v, ",") {
			if part = strings.TrimSpace(part); part != "" {
				out = append(out, part)
			}
		}
	}
	return out
}

func parseIDs(raw []string) []int64 {
	var ids []int64
	seen := make(map[int64]bool, len(raw))
	for _, s := range SplitList(raw...) {
		id, err := strconv.ParseInt(s, 10, 64)
		if err != nil || seen[id] {
			continue
		}
		seen[id] = true
		ids = append(ids, id)
	}
	return ids
}
