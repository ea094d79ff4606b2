// Package lockhistory defines the lock contention records read by the reports.
package lockhistory

import "time"

// ReportWindow is how far back released locks are considered.
const ReportWindow = 7 * 24 * time.Hour

// Record holds the timing columns of a lock history row: the total time the
// lock was held and how many acquisitions that covered.
type Record struct {
	Duration  float64
	LockCount int
}

// AverageDuration is the per-acquisition hold time. Records without a lock
// count keep their raw duration.
func (r Record) AverageDuration() float64 {
	if r.LockCount > 0 {
		return r.Duration / float64(r.LockCount)
	}

	return r.Duration
}

// ReleasedAfter returns the epoch cutoff for the report window ending at now.
func ReleasedAfter(now time.Time) int64 {
	return now.Add(-ReportWindow).Unix()
}
