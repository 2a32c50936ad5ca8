package domain

import (
	"strings"
	"time"
)

// IOCType is the kind of indicator a record carries.
type IOCType string

const (
	IOCTypeIP     IOCType = "ip"
	IOCTypeSubnet IOCType = "subnet"
	IOCTypeURL    IOCType = "url"
)

// IOCTypes lists the recognized indicator types in display order.
var IOCTypes = []IOCType{IOCTypeIP, IOCTypeSubnet, IOCTypeURL}

// Known reports whether t is one of the recognized indicator types.
func (t IOCType) Known() bool {
	switch t {
	case IOCTypeIP, IOCTypeSubnet, IOCTypeURL:
		return true
	}
	return false
}

// Label returns the human readable plural used by summary views.
func (t IOCType) Label() string {
	switch t {
	case IOCTypeIP:
		return "IPs"
	case IOCTypeSubnet:
		return "Subnets"
	case IOCTypeURL:
		return "URLs"
	}
	return string(t)
}

// Default feed identifiers. The set is configurable at runtime.
const (
	SourceBlocklistDE = "blocklist.de"
	SourceSpamhaus    = "spamhaus"
	SourceDigitalSide = "digitalside"
)

// DefaultSources is the known feed set used when none is configured.
var DefaultSources = []string{SourceBlocklistDE, SourceSpamhaus, SourceDigitalSide}

// IOC is a single indicator of compromise as delivered by the feed.
// Records are values: they are never mutated after decoding.
type IOC struct {
	Value     string  `json:"value" yaml:"value" db:"value"`
	Type      IOCType `json:"type" yaml:"type" db:"type"`
	Source    string  `json:"source" yaml:"source" db:"source"`
	Timestamp string  `json:"timestamp" yaml:"timestamp" db:"observed_at"` // ISO-8601
}

// Key returns the dedup key. The timestamp is not part of a record's identity.
func (i IOC) Key() string {
	return i.Value + "|" + string(i.Type) + "|" + i.Source
}

// Time parses the record timestamp. ok is false when it cannot be parsed.
func (i IOC) Time() (t time.Time, ok bool) {
	return ParseTimestamp(i.Timestamp)
}

// timestampLayouts are tried in order by ParseTimestamp.
var timestampLayouts = []string{
	time.RFC3339Nano,
	time.RFC3339,
	"2006-01-02T15:04:05.999999999",
	"2006-01-02T15:04:05",
	"2006-01-02 15:04:05",
	DayLayout,
}

// ParseTimestamp parses an ISO-8601 timestamp. Values without a zone are
// taken as UTC.
func ParseTimestamp(s string) (time.Time, bool) {
	s = strings.TrimSpace(s)
	if s == "" {
		return time.Time{}, false
	}
	for _, layout := range timestampLayouts {
		if t, err := time.Parse(layout, s); err == nil {
			return t.UTC(), true
		}
	}
	return time.Time{}, false
}

// DayLayout is the canonical calendar day format.
const DayLayout = "2006-01-02"

// Day is a calendar date in UTC.
type Day struct {
	Year  int
	Month time.Month
	Day   int
}

// DayOf returns the UTC calendar day of t.
func DayOf(t time.Time) Day {
	y, m, d := t.UTC().Date()
	return Day{Year: y, Month: m, Day: d}
}

// ParseDay parses a YYYY-MM-DD date.
func ParseDay(s string) (Day, bool) {
	t, err := time.Parse(DayLayout, strings.TrimSpace(s))
	if err != nil {
		return Day{}, false
	}
	return DayOf(t), true
}

// Before reports whether d is strictly before o.
func (d Day) Before(o Day) bool {
	if d.Year != o.Year {
		return d.Year < o.Year
	}
	if d.Month != o.Month {
		return d.Month < o.Month
	}
	return d.Day < o.Day
}

// After reports whether d is strictly after o.
func (d Day) After(o Day) bool {
	return o.Before(d)
}

// Time returns midnight UTC of the day.
func (d Day) Time() time.Time {
	return time.Date(d.Year, d.Month, d.Day, 0, 0, 0, 0, time.UTC)
}

// String formats the day as YYYY-MM-DD.
func (d Day) String() string {
	return d.Time().Format(DayLayout)
}

// Label formats the day the way chart axes show it, e.g. "05 Jan".
func (d Day) Label() string {
	return d.Time().Format("02 Jan")
}

// LabelWithYear is Label plus the year, e.g. "05 Jan 2024", for axes that
// cross a year boundary.
func (d Day) LabelWithYear() string {
	return d.Time().Format("02 Jan 2006")
}
