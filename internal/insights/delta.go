package insights

import "time"

// Event names with rollup side effects.
const (
	EventPageViewed        = "page_viewed"
	EventResumeUploaded    = "resume_uploaded"
	EventAnalysisCompleted = "analysis_completed"
	EventFeatureUsage      = "feature_usage"
)

// UserDelta accumulates one user's contribution within a single batch.
// It is merged into the stored UserInsight row in one upsert at commit
// time, so a batch touches each user row exactly once.
type UserDelta struct {
	FirstSeen         time.Time
	LastSeen          time.Time
	Events            int64
	ResumesUploaded   int64
	AnalysesCompleted int64
	MatchScoreSum     float64
	MatchScoreCount   int64
	Skills            map[string]int64
}

// NewUserDelta creates an empty delta anchored at the given event time.
func NewUserDelta(occurredAt time.Time) *UserDelta {
	return &UserDelta{
		FirstSeen: occurredAt,
		LastSeen:  occurredAt,
		Skills:    make(map[string]int64),
	}
}

// Observe folds one valid event into the delta. matchScore is non-nil only
// for analysis_completed events carrying a numeric score; feature is
// non-empty only for feature_usage events carrying a skill tag.
func (d *UserDelta) Observe(eventName string, occurredAt time.Time, matchScore *float64, feature string) {
	d.Events++
	if occurredAt.Before(d.FirstSeen) {
		d.FirstSeen = occurredAt
	}
	if occurredAt.After(d.LastSeen) {
		d.LastSeen = occurredAt
	}

	switch eventName {
	case EventResumeUploaded:
		d.ResumesUploaded++
	case EventAnalysisCompleted:
		d.AnalysesCompleted++
		if matchScore != nil {
			d.MatchScoreSum += *matchScore
			d.MatchScoreCount++
		}
	case EventFeatureUsage:
		if feature != "" {
			d.Skills[feature]++
		}
	}
}
