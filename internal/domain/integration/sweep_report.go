package integration

import "time"

// SweepReport summarizes one catch-up sweep. It is informational only.
type SweepReport struct {
	Since    time.Time
	Selected int
	Synced   int
	Failed   int
	Skipped  int
	Duration time.Duration
}

// Add counts one item outcome in the report
func (r *SweepReport) Add(synced, skipped bool) {
	switch {
	case synced:
		r.Synced++
	case skipped:
		r.Skipped++
	default:
		r.Failed++
	}
}
