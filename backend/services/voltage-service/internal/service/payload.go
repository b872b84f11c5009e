package service

import (
	"bytes"
	"encoding/json"
	"math"
	"strconv"
	"strings"
	"time"

	"github.com/relvacode/iso8601"
)

// ReadingPayload is the JSON body a device submits over HTTP or MQTT.
type ReadingPayload struct {
	DeviceID   string     `json:"deviceId"`
	Voltage    *float64   `json:"voltage"`
	MinVoltage *float64   `json:"minVoltage"`
	MaxVoltage *float64   `json:"maxVoltage"`
	AvgVoltage *float64   `json:"avgVoltage"`
	Timestamp  DeviceTime `json:"timestamp"`
	APIKey     string     `json:"apiKey,omitempty"`
}

// DeviceTime holds the device supplied timestamp as sent. Devices with an RTC send
// a date-time string, the rest send a Unix epoch number.
type DeviceTime string

// UnmarshalJSON accepts any JSON value. Strings are unquoted, other values are kept
// as their literal text and judged later by ParseTimestamp.
func (d *DeviceTime) UnmarshalJSON(data []byte) error {
	var s string
	if err := json.Unmarshal(data, &s); err == nil {
		*d = DeviceTime(s)
		return nil
	}
	*d = DeviceTime(bytes.TrimSpace(data))
	return nil
}

// Devices without an RTC zone send local wall time without an offset.
const plainTimestampLayout = "2006-01-02 15:04:05"

// Epoch values at or above this are milliseconds.
const epochMillisThreshold = 1e12

// Input converts the payload into a ReadingInput. An unparsable timestamp is a
// validation error; an empty one lets the service stamp the reading.
func (p ReadingPayload) Input() (ReadingInput, error) {
	input := ReadingInput{
		DeviceID:   strings.TrimSpace(p.DeviceID),
		Voltage:    p.Voltage,
		MinVoltage: p.MinVoltage,
		MaxVoltage: p.MaxVoltage,
		AvgVoltage: p.AvgVoltage,
	}
	raw := strings.TrimSpace(string(p.Timestamp))
	if raw == "" || raw == "null" {
		return input, nil
	}
	ts, err := ParseTimestamp(raw)
	if err != nil {
		return ReadingInput{}, err
	}
	input.Timestamp = &ts
	return input, nil
}

// ParseTimestamp accepts ISO-8601, the plain "YYYY-MM-DD hh:mm:ss" form (UTC) and
// Unix epoch seconds or milliseconds.
func ParseTimestamp(raw string) (time.Time, error) {
	if v, err := strconv.ParseFloat(raw, 64); err == nil {
		return epochTime(v)
	}
	if ts, err := iso8601.ParseString(raw); err == nil {
		return ts.UTC(), nil
	}
	if ts, err := time.Parse(plainTimestampLayout, raw); err == nil {
		return ts, nil
	}
	return time.Time{}, validationError("timestamp must be an ISO-8601 date-time or Unix epoch seconds/milliseconds")
}

func epochTime(v float64) (time.Time, error) {
	if math.IsNaN(v) || math.IsInf(v, 0) || v <= 0 {
		return time.Time{}, validationError("timestamp epoch must be a positive number")
	}
	if v >= epochMillisThreshold {
		return time.UnixMilli(int64(v)).UTC(), nil
	}
	sec := math.Floor(v)
	return time.Unix(int64(sec), int64((v-sec)*1e9)).UTC(), nil
}
