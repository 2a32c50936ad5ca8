package pipeline

import (
	"cmp"
	"slices"
	"strings"

	"github.com/bcnelson/ioc-dashboard/internal/domain"
)

// ApplyFilter returns the records satisfying every constraint in f, in input
// order. Date bounds are inclusive and compared at UTC day granularity.
// Records whose timestamp cannot be parsed never satisfy a date bound.
func ApplyFilter(records []domain.IOC, f domain.Filter) []domain.IOC {
	search := strings.ToLower(strings.TrimSpace(f.Search))

	out := make([]domain.IOC, 0, len(records))
	for _, r := range records {
		if len(f.Types) > 0 && !slices.Contains(f.Types, r.Type) {
			continue
		}
		if len(f.Sources) > 0 && !slices.Contains(f.Sources, r.Source) {
			continue
		}
		if search != "" && !strings.Contains(strings.ToLower(r.Value), search) {
			continue
		}
		if f.HasDateRange() && !inRange(r, f.From, f.To) {
			continue
		}
		out = append(out, r)
	}
	return out
}

func inRange(r domain.IOC, from, to *domain.Day) bool {
	t, ok := r.Time()
	if !ok {
		return false
	}
	day := domain.DayOf(t)
	if from != nil && day.Before(*from) {
		return false
	}
	if to != nil && day.After(*to) {
		return false
	}
	return true
}

// Sort returns a copy of records ordered by o. The sort is stable, so equal
// keys keep their input order. Under SortLatest, records with an unparseable
// timestamp go last.
func Sort(records []domain.IOC, o domain.SortOrder) []domain.IOC {
	out := slices.Clone(records)
	switch o {
	case domain.SortAlpha:
		slices.SortStableFunc(out, func(a, b domain.IOC) int {
			return strings.Compare(a.Value, b.Value)
		})
	case domain.SortLatest:
		slices.SortStableFunc(out, func(a, b domain.IOC) int {
			ta, okA := a.Time()
			tb, okB := b.Time()
			switch {
			case !okA && !okB:
				return 0
			case !okA:
				return 1
			case !okB:
				return -1
			}
			return cmp.Compare(tb.UnixNano(), ta.UnixNano())
		})
	}
	return out
}

// Sources returns the distinct sources of records in first-seen order.
func Sources(records []domain.IOC) []string {
	out := []string{}
	seen := make(map[string]struct{})
	for _, r := range records {
		if _, exists := seen[r.Source]; exists {
			continue
		}
		seen[r.Source] = struct{}{}
		out = append(out, r.Source)
	}
	return out
}
