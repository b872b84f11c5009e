package models

import "time"

// DefaultOperator is recorded when a session is started without an operator.
const DefaultOperator = "Unknown"

// Session represents a welding session. EndTime and the statistics stay nil while open.
type Session struct {
	ID           int64      `db:"id" json:"id"`
	SessionID    string     `db:"session_id" json:"sessionId"`
	DeviceID     string     `db:"device_id" json:"deviceId"`
	StartTime    time.Time  `db:"start_time" json:"startTime"`
	EndTime      *time.Time `db:"end_time" json:"endTime"`
	MinVoltage   *float64   `db:"min_voltage" json:"minVoltage"`
	MaxVoltage   *float64   `db:"max_voltage" json:"maxVoltage"`
	AvgVoltage   *float64   `db:"avg_voltage" json:"avgVoltage"`
	ReadingCount *int64     `db:"reading_count" json:"readingCount"`
	Duration     *int64     `db:"duration" json:"duration"`
	Operator     string     `db:"operator" json:"operator"`
	CreatedAt    time.Time  `db:"created_at" json:"createdAt"`
}

// Open reports whether the session has not been ended yet.
func (s Session) Open() bool {
	return s.EndTime == nil
}
