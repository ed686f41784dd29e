package watch

import "sync/atomic"

// Diagnostics counts session outcomes per error category. Every skipped
// or failed transaction lands in exactly one counter.
type Diagnostics struct {
	RateLimited         atomic.Int64
	NotApplicable       atomic.Int64
	BelowThreshold      atomic.Int64
	MissingData         atomic.Int64
	PersistenceFailures atomic.Int64
	TradesDetected      atomic.Int64
}

// Snapshot is a point-in-time copy of the counters.
type Snapshot struct {
	RateLimited         int64
	NotApplicable       int64
	BelowThreshold      int64
	MissingData         int64
	PersistenceFailures int64
	TradesDetected      int64
}

// Snapshot returns the current counter values.
func (d *Diagnostics) Snapshot() Snapshot {
	return Snapshot{
		RateLimited:         d.RateLimited.Load(),
		NotApplicable:       d.NotApplicable.Load(),
		BelowThreshold:      d.BelowThreshold.Load(),
		MissingData:         d.MissingData.Load(),
		PersistenceFailures: d.PersistenceFailures.Load(),
		TradesDetected:      d.TradesDetected.Load(),
	}
}
