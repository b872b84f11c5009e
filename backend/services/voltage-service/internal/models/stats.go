package models

import "time"

// VoltageStats aggregates a filtered set of readings. Every aggregate is nil when
// Count is zero so that "no data" never looks like all-zero data.
type VoltageStats struct {
	Count        int64      `json:"count"`
	Min          *float64   `json:"min"`
	Max          *float64   `json:"max"`
	Avg          *float64   `json:"avg"`
	FirstReading *time.Time `json:"firstReading"`
	LastReading  *time.Time `json:"lastReading"`
}

// Empty reports whether no readings matched.
func (s VoltageStats) Empty() bool {
	return s.Count == 0
}
