package events

import (
	"strconv"
	"time"
)

// normalizedEvent is a validated batch item plus the property values the
// rollups care about, extracted once.
type normalizedEvent struct {
	event      *Event
	userAgent  string
	referrer   string
	matchScore *float64
	feature    string
}

// normalizeEvent validates and converts one raw batch item. The second
// return value is false for structurally incomplete events: missing event
// name, userId, or properties.sessionId, or a timestamp that is present
// but not numeric. An absent timestamp maps to epoch 0.
func normalizeEvent(raw RawEvent) (*normalizedEvent, bool) {
	sessionID := stringProp(raw.Properties, PropSessionID)
	if raw.Event == "" || raw.UserID == "" || sessionID == "" {
		return nil, false
	}

	occurredAt, ok := timeFromMillis(raw.Timestamp)
	if !ok {
		return nil, false
	}

	props := raw.Properties
	if props == nil {
		props = map[string]any{}
	}

	return &normalizedEvent{
		event: &Event{
			EventName:  raw.Event,
			UserID:     raw.UserID,
			SessionID:  sessionID,
			Properties: props,
			OccurredAt: occurredAt,
		},
		userAgent:  stringProp(raw.Properties, PropUserAgent),
		referrer:   stringProp(raw.Properties, PropReferrer),
		matchScore: floatProp(raw.Properties, PropMatchScore),
		feature:    stringProp(raw.Properties, PropFeature),
	}, true
}

// timeFromMillis converts a client epoch-millisecond value. nil means the
// field was omitted and defaults to epoch 0.
func timeFromMillis(raw any) (time.Time, bool) {
	switch v := raw.(type) {
	case nil:
		return time.UnixMilli(0).UTC(), true
	case float64:
		return time.UnixMilli(int64(v)).UTC(), true
	case int64:
		return time.UnixMilli(v).UTC(), true
	case int:
		return time.UnixMilli(int64(v)).UTC(), true
	default:
		return time.Time{}, false
	}
}

func stringProp(props map[string]any, key string) string {
	if props == nil {
		return ""
	}
	if s, ok := props[key].(string); ok {
		return s
	}
	return ""
}

// floatProp reads a numeric property. Front-ends sometimes serialize
// scores as strings, so numeric strings are accepted too.
func floatProp(props map[string]any, key string) *float64 {
	if props == nil {
		return nil
	}
	switch v := props[key].(type) {
	case float64:
		return &v
	case int:
		f := float64(v)
		return &f
	case string:
		if f, err := strconv.ParseFloat(v, 64); err == nil {
			return &f
		}
	}
	return nil
}
