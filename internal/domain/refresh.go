package domain

import "time"

// Trigger identifies what started a refresh.
type Trigger string

const (
	TriggerAuto   Trigger = "auto"
	TriggerManual Trigger = "manual"
)

// Refresh run outcomes.
const (
	RefreshSuccess = "success"
	RefreshFailed  = "failed"
	RefreshStale   = "stale" // fetched fine but a newer refresh was already applied
)

// RefreshRun records one fetch-and-replace attempt.
type RefreshRun struct {
	ID         string    `json:"id" db:"id"`
	Sequence   uint64    `json:"sequence" db:"seq_no"`
	Trigger    Trigger   `json:"trigger" db:"trigger_kind"`
	Status     string    `json:"status" db:"status"`
	Fetched    int       `json:"fetched" db:"fetched"`
	Stored     int       `json:"stored" db:"stored"`
	Duplicates int       `json:"duplicates" db:"duplicates"`
	Unknown    int       `json:"unknown" db:"unknown"`
	Malformed  int       `json:"malformed" db:"malformed"`
	Error      string    `json:"error,omitempty" db:"error_message"`
	StartedAt  time.Time `json:"startedAt" db:"started_at"`
	FinishedAt time.Time `json:"finishedAt" db:"finished_at"`
}

// Duration returns how long the run took.
func (r *RefreshRun) Duration() time.Duration {
	return r.FinishedAt.Sub(r.StartedAt)
}

// RefreshStatus describes the refresh schedule and the applied state.
type RefreshStatus struct {
	IntervalMS      int64       `json:"intervalMs"`
	AutoRefresh     bool        `json:"autoRefresh"`
	LastRefreshed   *time.Time  `json:"lastRefreshed,omitempty"`
	AppliedSequence uint64      `json:"appliedSequence"`
	Records         int         `json:"records"`
	LastRun         *RefreshRun `json:"lastRun,omitempty"`
}

// SetIntervalRequest is the request body for changing the refresh interval.
// Zero or a negative value switches to manual-only refresh.
type SetIntervalRequest struct {
	IntervalMS int64 `json:"intervalMs"`
}

// IOCListResponse is the response body of the record listing.
type IOCListResponse struct {
	Count int   `json:"count"`
	IOCs  []IOC `json:"iocs"`
}
