// Package validation classifies IOC records arriving from a feed and checks
// user supplied query parameters. Classification never rejects a record: the
// caller decides what to do with the reported issues.
package validation

import (
	"fmt"
	"net"
	"net/url"
	"strings"

	"github.com/bcnelson/ioc-dashboard/internal/domain"
)

// Issue names a problem found on an ingested record.
type Issue string

const (
	IssueUnknownType   Issue = "unknown_type"
	IssueUnknownSource Issue = "unknown_source"
	IssueBadValue      Issue = "bad_value"
	IssueBadTimestamp  Issue = "bad_timestamp"
)

// Unknown reports whether the issue is about the enumerations rather than
// the record content.
func (i Issue) Unknown() bool {
	return i == IssueUnknownType || i == IssueUnknownSource
}

// SourceSet is the set of feed identifiers considered known.
type SourceSet map[string]struct{}

// NewSourceSet builds a SourceSet, ignoring blank names.
func NewSourceSet(sources []string) SourceSet {
	set := make(SourceSet, len(sources))
	for _, s := range sources {
		if s = strings.TrimSpace(s); s != "" {
			set[s] = struct{}{}
		}
	}
	return set
}

// Known reports whether source is in the set.
func (s SourceSet) Known(source string) bool {
	_, ok := s[source]
	return ok
}

// CheckRecord returns every issue found on r, or nil for a clean record.
// Value checks only run for recognized types.
func CheckRecord(r domain.IOC, sources SourceSet) []Issue {
	var issues []Issue
	if !r.Type.Known() {
		issues = append(issues, IssueUnknownType)
	} else if err := ValidateIOCValue(r.Type, r.Value); err != nil {
		issues = append(issues, IssueBadValue)
	}
	if !sources.Known(r.Source) {
		issues = append(issues, IssueUnknownSource)
	}
	if _, ok := r.Time(); !ok {
		issues = append(issues, IssueBadTimestamp)
	}
	return issues
}

// ValidateIOCValue checks that value has the shape its type promises.
// IPs must be bare addresses, subnets must be CIDR prefixes and URLs must be
// absolute with a host.
func ValidateIOCValue(t domain.IOCType, value string) error {
	if value == "" {
		return fmt.Errorf("value must not be empty")
	}
	switch t {
	case domain.IOCTypeIP:
		if net.ParseIP(value) == nil {
			return fmt.Errorf("invalid IP address: %s", value)
		}
	case domain.IOCTypeSubnet:
		if _, _, err := net.ParseCIDR(value); err != nil {
			return fmt.Errorf("invalid subnet: %s", value)
		}
	case domain.IOCTypeURL:
		u, err := url.Parse(value)
		if err != nil {
			return fmt.Errorf("invalid URL: %s", value)
		}
		if u.Scheme == "" || u.Host == "" {
			return fmt.Errorf("URL must be absolute with a host: %s", value)
		}
	default:
		return fmt.Errorf("unknown IOC type: %s", t)
	}
	return nil
}

// ValidateIOCType checks that t is a recognized type.
func ValidateIOCType(t string) error {
	if !domain.IOCType(t).Known() {
		return fmt.Errorf("type must be one of ip, subnet, url")
	}
	return nil
}

// ValidateSortOrder checks that o is a supported sort order.
func ValidateSortOrder(o string) error {
	if !domain.SortOrder(o).Valid() {
		return fmt.Errorf("sort must be 'latest' or 'alpha'")
	}
	return nil
}

// ParseFilter builds a Filter from query parameters. type and source accept
// repeated parameters as well as comma separated lists; from and to are
// YYYY-MM-DD dates.
func ParseFilter(q url.Values) (domain.Filter, ValidationErrors) {
	var f domain.Filter
	var errs ValidationErrors

	f.Search = strings.TrimSpace(q.Get("search"))

	for _, t := range splitList(q["type"]) {
		if err := ValidateIOCType(t); err != nil {
			errs.Add("type", t, err.Error())
			continue
		}
		f.Types = append(f.Types, domain.IOCType(t))
	}
	f.Sources = splitList(q["source"])

	if v := q.Get("from"); v != "" {
		if d, ok := domain.ParseDay(v); ok {
			f.From = &d
		} else {
			errs.Add("from", v, "must be a date in YYYY-MM-DD format")
		}
	}
	if v := q.Get("to"); v != "" {
		if d, ok := domain.ParseDay(v); ok {
			f.To = &d
		} else {
			errs.Add("to", v, "must be a date in YYYY-MM-DD format")
		}
	}
	if f.From != nil && f.To != nil && f.To.Before(*f.From) {
		errs.Add("to", q.Get("to"), "must not be before 'from'")
	}

	if v := q.Get("sort"); v != "" {
		if err := ValidateSortOrder(v); err != nil {
			errs.Add("sort", v, err.Error())
		} else {
			f.Sort = domain.SortOrder(v)
		}
	}

	return f, errs
}

func splitList(values []string) []string {
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
