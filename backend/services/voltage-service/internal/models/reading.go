package models

import "time"

// EventVoltageUpdate tags reading events pushed to observers.
const EventVoltageUpdate = "voltage_update"

// Reading represents a single persisted voltage sample.
type Reading struct {
	ID         int64     `db:"id" json:"id"`
	DeviceID   string    `db:"device_id" json:"deviceId"`
	Voltage    float64   `db:"voltage" json:"voltage"`
	MinVoltage *float64  `db:"min_voltage" json:"minVoltage"`
	MaxVoltage *float64  `db:"max_voltage" json:"maxVoltage"`
	AvgVoltage *float64  `db:"avg_voltage" json:"avgVoltage"`
	Timestamp  time.Time `db:"recorded_at" json:"timestamp"`
	CreatedAt  time.Time `db:"created_at" json:"createdAt"`
}

// VoltageUpdate is the real-time event emitted for every accepted reading.
type VoltageUpdate struct {
	Type       string    `json:"type"`
	ID         int64     `json:"id"`
	DeviceID   string    `json:"deviceId"`
	Voltage    float64   `json:"voltage"`
	MinVoltage *float64  `json:"minVoltage"`
	MaxVoltage *float64  `json:"maxVoltage"`
	AvgVoltage *float64  `json:"avgVoltage"`
	Timestamp  time.Time `json:"timestamp"`
}

// NewVoltageUpdate builds the broadcast event for a stored reading.
func NewVoltageUpdate(r Reading) VoltageUpdate {
	return VoltageUpdate{
		Type:       EventVoltageUpdate,
		ID:         r.ID,
		DeviceID:   r.DeviceID,
		Voltage:    r.Voltage,
		MinVoltage: r.MinVoltage,
		MaxVoltage: r.MaxVoltage,
		AvgVoltage: r.AvgVoltage,
		Timestamp:  r.Timestamp,
	}
}

// ReadingFilter narrows reading queries. Zero values mean "no constraint".
type ReadingFilter struct {
	DeviceID string
	Since    time.Time
	Until    time.Time
}
