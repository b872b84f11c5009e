package stats

import "time"

// Window is a named trailing time range.
type Window string

// Recognised windows.
const (
	WindowHour  Window = "1h"
	WindowDay   Window = "24h"
	WindowWeek  Window = "7d"
	WindowMonth Window = "30d"
)

// Default windows for the general and the device scoped statistics endpoints.
const (
	DefaultWindow       = WindowDay
	DefaultDeviceWindow = WindowHour
)

var windowSpans = map[Window]time.Duration{
	WindowHour:  time.Hour,
	WindowDay:   24 * time.Hour,
	WindowWeek:  7 * 24 * time.Hour,
	WindowMonth: 30 * 24 * time.Hour,
}

// Span returns the window length; ok is false for unrecognised values, which
// callers treat as "all history".
func (w Window) Span() (time.Duration, bool) {
	d, ok := windowSpans[w]
	return d, ok
}

// Since returns the lower bound of the window relative to now, or the zero time
// when the window does not restrict time.
func (w Window) Since(now time.Time) time.Time {
	span, ok := w.Span()
	if !ok {
		return time.Time{}
	}
	return now.Add(-span)
}

// ParseWindow maps a raw query value to a Window, using def when raw is empty.
func ParseWindow(raw string, def Window) Window {
	if raw == "" {
		return def
	}
	return Window(raw)
}
