package pipeline_test

import (
	"reflect"
	"testing"

	"github.com/bcnelson/ioc-dashboard/internal/domain"
	"github.com/bcnelson/ioc-dashboard/internal/pipeline"
)

func ioc(value string, typ domain.IOCType, source, ts string) domain.IOC {
	return domain.IOC{Value: value, Type: typ, Source: source, Timestamp: ts}
}

func day(s string) *domain.Day {
	d, ok := domain.ParseDay(s)
	if !ok {
		panic("bad day " + s)
	}
	return &d
}

func TestDedupe_FirstOccurrenceWins(t *testing.T) {
	in := []domain.IOC{
		ioc("a", domain.IOCTypeIP, "s1", "2024-01-01T00:00:00Z"),
		ioc("a", domain.IOCTypeIP, "s1", "2024-01-02T00:00:00Z"),
		ioc("b", domain.IOCTypeURL, "s2", "2024-01-03T00:00:00Z"),
	}

	got := pipeline.Dedupe(in)
	want := []domain.IOC{in[0], in[2]}
	if !reflect.DeepEqual(got, want) {
		t.Errorf("Expected %v, got %v", want, got)
	}
}

func TestDedupe_KeyDimensions(t *testing.T) {
	in := []domain.IOC{
		ioc("1.2.3.4", domain.IOCTypeIP, "spamhaus", "2024-01-01"),
		ioc("1.2.3.4", domain.IOCTypeIP, "blocklist.de", "2024-01-01"), // other source
		ioc("1.2.3.4", domain.IOCTypeSubnet, "spamhaus", "2024-01-01"), // other type
		ioc("http://EVIL.example", domain.IOCTypeURL, "digitalside", "2024-01-01"),
		ioc("http://evil.example", domain.IOCTypeURL, "digitalside", "2024-01-01"), // no case folding
	}

	got := pipeline.Dedupe(in)
	if len(got) != len(in) {
		t.Errorf("Expected all %d records to be distinct, got %d", len(in), len(got))
	}
}

func TestDedupe_EdgeCases(t *testing.T) {
	if got := pipeline.Dedupe(nil); len(got) != 0 {
		t.Errorf("Expected empty output for nil input, got %v", got)
	}

	same := ioc("x", domain.IOCTypeIP, "s", "2024-01-01")
	in := []domain.IOC{same, same, same, same}
	got := pipeline.Dedupe(in)
	if len(got) != 1 || got[0] != same {
		t.Errorf("Expected exactly one retained record, got %v", got)
	}
}

func TestDedupe_Idempotent(t *testing.T) {
	in := []domain.IOC{
		ioc("a", domain.IOCTypeIP, "s1", "t1"),
		ioc("b", domain.IOCTypeIP, "s1", "t2"),
		ioc("a", domain.IOCTypeIP, "s1", "t3"),
		ioc("c", domain.IOCTypeURL, "s2", "t4"),
		ioc("b", domain.IOCTypeIP, "s1", "t5"),
	}

	once := pipeline.Dedupe(in)
	twice := pipeline.Dedupe(once)
	if !reflect.DeepEqual(once, twice) {
		t.Errorf("Expected dedupe to be idempotent: %v vs %v", once, twice)
	}
	if len(once) != 3 {
		t.Errorf("Expected 3 distinct keys, got %d", len(once))
	}
	if once[0].Value != "a" || once[1].Value != "b" || once[2].Value != "c" {
		t.Errorf("Expected first-seen order a,b,c, got %v", once)
	}
}

func TestApplyFilter(t *testing.T) {
	records := []domain.IOC{
		ioc("10.0.0.1", domain.IOCTypeIP, "spamhaus", "2024-01-01T10:00:00Z"),
		ioc("10.0.0.0/8", domain.IOCTypeSubnet, "blocklist.de", "2024-01-02T23:59:59Z"),
		ioc("http://bad.example/x", domain.IOCTypeURL, "digitalside", "2024-01-03T00:00:00Z"),
		ioc("10.9.9.9", domain.IOCTypeIP, "digitalside", "not-a-date"),
	}

	tests := []struct {
		name   string
		filter domain.Filter
		want   []string
	}{
		{"no constraints is identity", domain.Filter{}, []string{"10.0.0.1", "10.0.0.0/8", "http://bad.example/x", "10.9.9.9"}},
		{"type ip", domain.Filter{Types: []domain.IOCType{domain.IOCTypeIP}}, []string{"10.0.0.1", "10.9.9.9"}},
		{"multiple types", domain.Filter{Types: []domain.IOCType{domain.IOCTypeSubnet, domain.IOCTypeURL}}, []string{"10.0.0.0/8", "http://bad.example/x"}},
		{"source", domain.Filter{Sources: []string{"digitalside"}}, []string{"http://bad.example/x", "10.9.9.9"}},
		{"type and source", domain.Filter{Types: []domain.IOCType{domain.IOCTypeIP}, Sources: []string{"digitalside"}}, []string{"10.9.9.9"}},
		{"single day range", domain.Filter{From: day("2024-01-02"), To: day("2024-01-02")}, []string{"10.0.0.0/8"}},
		{"from only", domain.Filter{From: day("2024-01-02")}, []string{"10.0.0.0/8", "http://bad.example/x"}},
		{"to only", domain.Filter{To: day("2024-01-01")}, []string{"10.0.0.1"}},
		{"search is case insensitive", domain.Filter{Search: "BAD.EXAMPLE"}, []string{"http://bad.example/x"}},
		{"search substring", domain.Filter{Search: "10.0"}, []string{"10.0.0.1", "10.0.0.0/8"}},
		{"no match", domain.Filter{Sources: []string{"unknown"}}, []string{}},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got := pipeline.ApplyFilter(records, tt.filter)
			values := make([]string, 0, len(got))
			for _, r := range got {
				values = append(values, r.Value)
			}
			if !reflect.DeepEqual(values, tt.want) {
				t.Errorf("ApplyFilter() = %v, want %v", values, tt.want)
			}
		})
	}
}

func TestApplyFilter_OneOfEachType(t *testing.T) {
	records := []domain.IOC{
		ioc("1.1.1.1", domain.IOCTypeIP, "spamhaus", "2024-01-01"),
		ioc("1.1.0.0/16", domain.IOCTypeSubnet, "spamhaus", "2024-01-01"),
		ioc("http://x", domain.IOCTypeURL, "spamhaus", "2024-01-01"),
	}

	got := pipeline.ApplyFilter(records, domain.Filter{Types: []domain.IOCType{domain.IOCTypeIP}})
	if len(got) != 1 || got[0] != records[0] {
		t.Errorf("Expected exactly the ip record, got %v", got)
	}
}

func TestApplyFilter_DayGranularityUsesUTC(t *testing.T) {
	// 2024-01-02T01:00 at +03:00 is 2024-01-01T22:00 UTC.
	records := []domain.IOC{ioc("a", domain.IOCTypeIP, "s", "2024-01-02T01:00:00+03:00")}

	if got := pipeline.ApplyFilter(records, domain.Filter{From: day("2024-01-02")}); len(got) != 0 {
		t.Errorf("Expected record to fall on 2024-01-01 UTC, got %v", got)
	}
	if got := pipeline.ApplyFilter(records, domain.Filter{To: day("2024-01-01")}); len(got) != 1 {
		t.Errorf("Expected record within to bound, got %v", got)
	}
}

func TestSort(t *testing.T) {
	records := []domain.IOC{
		ioc("b", domain.IOCTypeIP, "s", "2024-01-02T00:00:00Z"),
		ioc("c", domain.IOCTypeIP, "s", "garbage"),
		ioc("a", domain.IOCTypeIP, "s", "2024-01-03T00:00:00Z"),
	}

	values := func(rs []domain.IOC) []string {
		var out []string
		for _, r := range rs {
			out = append(out, r.Value)
		}
		return out
	}

	if got := values(pipeline.Sort(records, domain.SortAlpha)); !reflect.DeepEqual(got, []string{"a", "b", "c"}) {
		t.Errorf("Expected alpha order, got %v", got)
	}
	if got := values(pipeline.Sort(records, domain.SortLatest)); !reflect.DeepEqual(got, []string{"a", "b", "c"}) {
		t.Errorf("Expected newest first with unparseable last, got %v", got)
	}
	if got := values(pipeline.Sort(records, domain.SortNone)); !reflect.DeepEqual(got, []string{"b", "c", "a"}) {
		t.Errorf("Expected input order, got %v", got)
	}
	if records[0].Value != "b" {
		t.Error("Expected Sort to leave its input untouched")
	}
}

func TestSources_FirstSeenOrder(t *testing.T) {
	records := []domain.IOC{
		ioc("1", domain.IOCTypeIP, "spamhaus", ""),
		ioc("2", domain.IOCTypeIP, "blocklist.de", ""),
		ioc("3", domain.IOCTypeIP, "spamhaus", ""),
	}

	got := pipeline.Sources(records)
	if !reflect.DeepEqual(got, []string{"spamhaus", "blocklist.de"}) {
		t.Errorf("Expected [spamhaus blocklist.de], got %v", got)
	}
	if got := pipeline.Sources(nil); len(got) != 0 {
		t.Errorf("Expected no sources, got %v", got)
	}
}

func TestAggregate_TwoDays(t *testing.T) {
	records := []domain.IOC{
		ioc("1", domain.IOCTypeIP, "s", "2024-01-01T01:00:00Z"),
		ioc("2", domain.IOCTypeIP, "s", "2024-01-01T02:00:00Z"),
		ioc("3", domain.IOCTypeSubnet, "s", "2024-01-01T03:00:00Z"),
		ioc("4", domain.IOCTypeIP, "s", "2024-01-02T01:00:00Z"),
		ioc("5", domain.IOCTypeSubnet, "s", "2024-01-02T02:00:00Z"),
		ioc("6", domain.IOCTypeSubnet, "s", "2024-01-02T03:00:00Z"),
		ioc("7", domain.IOCTypeSubnet, "s", "2024-01-02T04:00:00Z"),
	}

	agg := pipeline.Aggregate(records)

	wantTrend := []domain.DayBucket{
		{Day: "01 Jan", Date: "2024-01-01", IP: 2, Subnet: 1, URL: 0},
		{Day: "02 Jan", Date: "2024-01-02", IP: 1, Subnet: 3, URL: 0},
	}
	if !reflect.DeepEqual(agg.Trend, wantTrend) {
		t.Errorf("Expected trend %v, got %v", wantTrend, agg.Trend)
	}

	wantChanges := []domain.DayChange{
		{Day: "02 Jan", Date: "2024-01-02", IPChange: -1, SubnetChange: 2, URLChange: 0},
	}
	if !reflect.DeepEqual(agg.Changes, wantChanges) {
		t.Errorf("Expected changes %v, got %v", wantChanges, agg.Changes)
	}

	wantTotals := domain.Totals{IP: 3, Subnet: 4, URL: 0, Total: 7}
	if agg.Totals != wantTotals {
		t.Errorf("Expected totals %+v, got %+v", wantTotals, agg.Totals)
	}
}

func TestAggregate_ChronologicalNotLabelOrder(t *testing.T) {
	// Label order would put "01 Feb" before "31 Jan" and "15 Mar 2023" among 2024.
	records := []domain.IOC{
		ioc("a", domain.IOCTypeURL, "s", "2024-02-01T00:00:00Z"),
		ioc("b", domain.IOCTypeURL, "s", "2024-01-31T00:00:00Z"),
		ioc("c", domain.IOCTypeURL, "s", "2023-03-15T00:00:00Z"),
	}

	trend := pipeline.Trend(records)
	var dates []string
	for _, b := range trend {
		dates = append(dates, b.Date)
	}
	want := []string{"2023-03-15", "2024-01-31", "2024-02-01"}
	if !reflect.DeepEqual(dates, want) {
		t.Errorf("Expected %v, got %v", want, dates)
	}
}

func TestTrend_LabelsCarryYearAcrossYears(t *testing.T) {
	records := []domain.IOC{
		ioc("a", domain.IOCTypeIP, "s", "2023-03-15T00:00:00Z"),
		ioc("b", domain.IOCTypeIP, "s", "2024-03-15T00:00:00Z"),
	}

	agg := pipeline.Aggregate(records)
	var labels []string
	for _, b := range agg.Trend {
		labels = append(labels, b.Day)
	}
	want := []string{"15 Mar 2023", "15 Mar 2024"}
	if !reflect.DeepEqual(labels, want) {
		t.Errorf("Expected labels %v, got %v", want, labels)
	}
	if len(agg.Changes) != 1 || agg.Changes[0].Day != "15 Mar 2024" {
		t.Errorf("Expected change labelled with year, got %+v", agg.Changes)
	}
}

func TestAggregate_UnknownAndMalformed(t *testing.T) {
	records := []domain.IOC{
		ioc("1", domain.IOCTypeIP, "s", "2024-01-01T00:00:00Z"),
		ioc("2", domain.IOCType("domain"), "s", "2024-01-01T00:00:00Z"),
		ioc("3", domain.IOCType("hash"), "s", "2024-01-05T00:00:00Z"),
		ioc("4", domain.IOCTypeURL, "s", "yesterday"),
	}

	agg := pipeline.Aggregate(records)
	if len(agg.Trend) != 2 {
		t.Fatalf("Expected 2 buckets, got %d: %v", len(agg.Trend), agg.Trend)
	}
	if agg.Trend[0].IP != 1 || agg.Trend[0].Subnet != 0 || agg.Trend[0].URL != 0 {
		t.Errorf("Expected unknown type to be excluded from counts, got %+v", agg.Trend[0])
	}
	if b := agg.Trend[1]; b.IP+b.Subnet+b.URL != 0 {
		t.Errorf("Expected empty bucket for unknown-only day, got %+v", b)
	}
	if agg.Totals.Total != 1 {
		t.Errorf("Expected total 1, got %d", agg.Totals.Total)
	}
}

func TestAggregate_TotalsMatchTrend(t *testing.T) {
	records := []domain.IOC{
		ioc("1", domain.IOCTypeIP, "s", "2024-03-01T00:00:00Z"),
		ioc("2", domain.IOCTypeURL, "s", "2024-03-02T00:00:00Z"),
		ioc("3", domain.IOCTypeURL, "s", "2024-03-02T00:00:00Z"),
		ioc("4", domain.IOCTypeSubnet, "s", "2024-03-04T00:00:00Z"),
	}

	agg := pipeline.Aggregate(records)
	for _, typ := range domain.IOCTypes {
		sum := 0
		for _, b := range agg.Trend {
			sum += b.Count(typ)
		}
		var total int
		switch typ {
		case domain.IOCTypeIP:
			total = agg.Totals.IP
		case domain.IOCTypeSubnet:
			total = agg.Totals.Subnet
		case domain.IOCTypeURL:
			total = agg.Totals.URL
		}
		if sum != total {
			t.Errorf("Expected %s totals %d to equal trend sum %d", typ, total, sum)
		}
	}
	if len(agg.Changes) != len(agg.Trend)-1 {
		t.Errorf("Expected %d changes, got %d", len(agg.Trend)-1, len(agg.Changes))
	}
}

func TestAggregate_Empty(t *testing.T) {
	agg := pipeline.Aggregate(nil)
	if len(agg.Trend) != 0 || len(agg.Changes) != 0 {
		t.Errorf("Expected empty views, got %+v", agg)
	}
	if agg.Totals != (domain.Totals{}) {
		t.Errorf("Expected zero totals, got %+v", agg.Totals)
	}
	for _, d := range agg.Distribution {
		if d.Percent != "0%" || d.Count != 0 {
			t.Errorf("Expected 0%% distribution, got %+v", d)
		}
	}
}

func TestDistribution_Percentages(t *testing.T) {
	got := pipeline.Distribution(domain.Totals{IP: 1, Subnet: 1, URL: 1, Total: 3})
	want := []string{"33.3%", "33.3%", "33.3%"}
	for i, d := range got {
		if d.Percent != want[i] {
			t.Errorf("Expected %s for %s, got %s", want[i], d.Type, d.Percent)
		}
	}
	if got[0].Label != "IPs" || got[1].Label != "Subnets" || got[2].Label != "URLs" {
		t.Errorf("Unexpected labels: %+v", got)
	}
}
