package domain

// DayBucket holds per-type counts for one calendar day.
type DayBucket struct {
	Day    string `json:"day"`  // chart label, e.g. "05 Jan"
	Date   string `json:"date"` // YYYY-MM-DD
	IP     int    `json:"ip"`
	Subnet int    `json:"subnet"`
	URL    int    `json:"url"`
}

// Count returns the bucket count for t. Unknown types count as zero.
func (b DayBucket) Count(t IOCType) int {
	switch t {
	case IOCTypeIP:
		return b.IP
	case IOCTypeSubnet:
		return b.Subnet
	case IOCTypeURL:
		return b.URL
	}
	return 0
}

// DayChange is the signed difference of a bucket against the previous day.
type DayChange struct {
	Day          string `json:"day"`
	Date         string `json:"date"`
	IPChange     int    `json:"ipChange"`
	SubnetChange int    `json:"subnetChange"`
	URLChange    int    `json:"urlChange"`
}

// Totals sums the trend buckets per type.
type Totals struct {
	IP     int `json:"ip"`
	Subnet int `json:"subnet"`
	URL    int `json:"url"`
	Total  int `json:"total"`
}

// DistributionEntry is one slice of the overall distribution summary.
type DistributionEntry struct {
	Type    IOCType `json:"type"`
	Label   string  `json:"label"`
	Count   int     `json:"count"`
	Percent string  `json:"percent"`
}

// Aggregation is the chart-ready view of a filtered record set.
type Aggregation struct {
	Trend        []DayBucket         `json:"trend"`
	Changes      []DayChange         `json:"changes"`
	Totals       Totals              `json:"totals"`
	Distribution []DistributionEntry `json:"distribution"`
}
