// Package timeframe maps dashboard range presets to concrete time windows.
package timeframe

import "time"

// Label represents the available dashboard range options
type Label string

const (
	Label24Hours Label = "24h"
	Label7Days   Label = "7d"
	Label30Days  Label = "30d"
	LabelAllTime Label = "all"
)

// DefaultLabel is applied when the caller does not request a range.
const DefaultLabel = Label7Days

// Range is a half-open window [From, To). A zero From means unbounded
// (all time).
type Range struct {
	Label Label
	From  time.Time
	To    time.Time
}

// IsAllTime reports whether the range has no lower bound.
func (r Range) IsAllTime() bool {
	return r.From.IsZero()
}

// Duration returns the span covered by a bounded range, 0 for all time.
func (r Range) Duration() time.Duration {
	if r.IsAllTime() {
		return 0
	}
	return r.To.Sub(r.From)
}

// Parse resolves a raw range string into a window evaluated at now.
// Empty input falls back to DefaultLabel; unrecognized input resolves to
// all time, matching how the dashboard treats unknown filters.
func Parse(raw string, now time.Time) Range {
	label := Label(raw)
	if raw == "" {
		label = DefaultLabel
	}

	now = now.UTC()
	switch label {
	case Label24Hours:
		return Range{Label: label, From: now.Add(-24 * time.Hour), To: now}
	case Label7Days:
		return Range{Label: label, From: now.AddDate(0, 0, -7), To: now}
	case Label30Days:
		return Range{Label: label, From: now.AddDate(0, 0, -30), To: now}
	default:
		return Range{Label: LabelAllTime, To: now}
	}
}
