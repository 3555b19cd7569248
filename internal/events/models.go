package events

import (
	"time"

	"gorm.io/datatypes"
)

// Event is one normalized user-interaction record in the append-only log.
// Rows are written once by the ingestion pipeline and never updated or
// deleted; retention is handled outside this service.
type Event struct {
	ID         uint              `gorm:"primaryKey;autoIncrement"`
	EventName  string            `gorm:"index;not null"`
	UserID     string            `gorm:"index:idx_events_user_occurred;not null"`
	SessionID  string            `gorm:"index;not null"`
	Properties datatypes.JSONMap `gorm:"type:json"`
	OccurredAt time.Time         `gorm:"index:idx_events_user_occurred;index;not null"`
	RecordedAt time.Time
}

// RawEvent is one item of an incoming batch, as posted by the product
// front-ends. Timestamp is epoch milliseconds; it stays untyped because
// front-ends are not trusted to send a number, and a bad value must only
// reject the single event, never the whole decode.
type RawEvent struct {
	Event      string         `json:"event"`
	UserID     string         `json:"userId"`
	Properties map[string]any `json:"properties"`
	Timestamp  any            `json:"timestamp"`
}

// BatchResult reports the outcome of one ingestion batch.
type BatchResult struct {
	Accepted int
	Rejected int
}

// Well-known property keys carried inside RawEvent.Properties.
const (
	PropSessionID  = "sessionId"
	PropUserAgent  = "userAgent"
	PropReferrer   = "referrer"
	PropMatchScore = "matchScore"
	PropFeature    = "feature"
)
