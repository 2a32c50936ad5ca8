package domain

// SortOrder controls the ordering of query results.
type SortOrder string

const (
	// SortNone keeps the store order (fetch order after dedup).
	SortNone SortOrder = ""
	// SortLatest orders by timestamp, newest first.
	SortLatest SortOrder = "latest"
	// SortAlpha orders by value ascending.
	SortAlpha SortOrder = "alpha"
)

// Valid reports whether o is a supported sort order.
func (o SortOrder) Valid() bool {
	switch o {
	case SortNone, SortLatest, SortAlpha:
		return true
	}
	return false
}

// Filter is the canonical filter specification used by every read path.
// Zero values mean "no constraint" on that dimension.
type Filter struct {
	Search  string    `json:"search,omitempty"`
	Types   []IOCType `json:"types,omitempty"`
	Sources []string  `json:"sources,omitempty"`
	From    *Day      `json:"-"`
	To      *Day      `json:"-"`
	Sort    SortOrder `json:"sort,omitempty"`
}

// HasDateRange reports whether either date bound is set.
func (f Filter) HasDateRange() bool {
	return f.From != nil || f.To != nil
}
