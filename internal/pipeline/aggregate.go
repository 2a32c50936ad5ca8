package pipeline

import (
	"fmt"
	"slices"

	"github.com/bcnelson/ioc-dashboard/internal/domain"
)

// Aggregate buckets records by UTC calendar day and derives the chart views.
//
// Buckets are ordered by date, not by label. A record with an unparseable
// timestamp cannot be placed on a day and is left out; a record of an
// unknown type still opens its day bucket but adds to none of the counts.
func Aggregate(records []domain.IOC) domain.Aggregation {
	trend := Trend(records)
	totals := TotalsOf(trend)
	return domain.Aggregation{
		Trend:        trend,
		Changes:      Changes(trend),
		Totals:       totals,
		Distribution: Distribution(totals),
	}
}

// Trend returns one bucket per distinct day, ascending. When the days span
// more than one year every label carries the year so labels stay unique.
func Trend(records []domain.IOC) []domain.DayBucket {
	byDay := make(map[domain.Day]*domain.DayBucket)
	for _, r := range records {
		t, ok := r.Time()
		if !ok {
			continue
		}
		day := domain.DayOf(t)
		b, exists := byDay[day]
		if !exists {
			b = &domain.DayBucket{Date: day.String()}
			byDay[day] = b
		}
		switch r.Type {
		case domain.IOCTypeIP:
			b.IP++
		case domain.IOCTypeSubnet:
			b.Subnet++
		case domain.IOCTypeURL:
			b.URL++
		}
	}

	days := make([]domain.Day, 0, len(byDay))
	for day := range byDay {
		days = append(days, day)
	}
	slices.SortFunc(days, func(a, b domain.Day) int {
		return a.Time().Compare(b.Time())
	})

	multiYear := len(days) > 0 && days[0].Year != days[len(days)-1].Year
	trend := make([]domain.DayBucket, 0, len(days))
	for _, day := range days {
		b := *byDay[day]
		if multiYear {
			b.Day = day.LabelWithYear()
		} else {
			b.Day = day.Label()
		}
		trend = append(trend, b)
	}
	return trend
}

// Changes returns the per-type delta of each bucket against the bucket
// before it. The first bucket has no predecessor and yields no change.
func Changes(trend []domain.DayBucket) []domain.DayChange {
	changes := make([]domain.DayChange, 0, max(len(trend)-1, 0))
	for i := 1; i < len(trend); i++ {
		cur, prev := trend[i], trend[i-1]
		changes = append(changes, domain.DayChange{
			Day:          cur.Day,
			Date:         cur.Date,
			IPChange:     cur.IP - prev.IP,
			SubnetChange: cur.Subnet - prev.Subnet,
			URLChange:    cur.URL - prev.URL,
		})
	}
	return changes
}

// TotalsOf sums the trend buckets per type.
func TotalsOf(trend []domain.DayBucket) domain.Totals {
	var t domain.Totals
	for _, b := range trend {
		t.IP += b.IP
		t.Subnet += b.Subnet
		t.URL += b.URL
	}
	t.Total = t.IP + t.Subnet + t.URL
	return t
}

// Distribution turns totals into per-type shares with one decimal place.
func Distribution(t domain.Totals) []domain.DistributionEntry {
	counts := map[domain.IOCType]int{
		domain.IOCTypeIP:     t.IP,
		domain.IOCTypeSubnet: t.Subnet,
		domain.IOCTypeURL:    t.URL,
	}
	out := make([]domain.DistributionEntry, 0, len(domain.IOCTypes))
	for _, typ := range domain.IOCTypes {
		percent := "0%"
		if t.Total > 0 {
			percent = fmt.Sprintf("%.1f%%", float64(counts[typ])/float64(t.Total)*100)
		}
		out = append(out, domain.DistributionEntry{
			Type:    typ,
			Label:   typ.Label(),
			Count:   counts[typ],
			Percent: percent,
		})
	}
	return out
}
