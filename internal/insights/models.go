// Package insights maintains the per-session and per-user rollups derived
// from the raw interaction event stream. The ingestion pipeline is the only
// writer; dashboard and user-detail queries are read-only consumers.
package insights

import (
	"fmt"
	"time"

	"gorm.io/datatypes"
)

// SessionSummary tracks one (user, session) pair. Counts only ever grow;
// start_time is fixed by the first event processed for the pair.
type SessionSummary struct {
	ID          uint      `gorm:"primaryKey;autoIncrement"`
	UserID      string    `gorm:"uniqueIndex:idx_session_summary_unique;not null"`
	SessionID   string    `gorm:"uniqueIndex:idx_session_summary_unique;not null"`
	StartTime   time.Time `gorm:"not null"`
	PageViews   int64     `gorm:"not null;default:0"`
	EventsCount int64     `gorm:"not null;default:0"`
	UserAgent   string
	Referrer    string
	CreatedAt   time.Time
	UpdatedAt   time.Time
}

// UserInsight is the durable per-user rollup behind the dashboard.
// MatchScoreSum/MatchScoreCount carry the cumulative mean state so
// avg_match_score merges across batches instead of being overwritten
// by the latest one.
type UserInsight struct {
	ID                uint      `gorm:"primaryKey;autoIncrement"`
	UserID            string    `gorm:"uniqueIndex;not null"`
	FirstSeen         time.Time `gorm:"not null"`
	LastSeen          time.Time `gorm:"not null"`
	TotalEvents       int64     `gorm:"index;not null;default:0"`
	ResumesUploaded   int64     `gorm:"not null;default:0"`
	AnalysesCompleted int64     `gorm:"not null;default:0"`
	MatchScoreSum     float64   `gorm:"not null;default:0"`
	MatchScoreCount   int64     `gorm:"not null;default:0"`
	AvgMatchScore     float64   `gorm:"not null;default:0"`
	TopSkills         datatypes.JSON
	CreatedAt         time.Time
	UpdatedAt         time.Time
}

// SkillStat is the durable tally of feature_usage skill tags per user.
// top_skills on UserInsight is the top five of this table.
type SkillStat struct {
	ID        uint   `gorm:"primaryKey;autoIncrement"`
	UserID    string `gorm:"uniqueIndex:idx_skill_stat_unique;not null"`
	Skill     string `gorm:"uniqueIndex:idx_skill_stat_unique;not null"`
	Count     int64  `gorm:"not null;default:0"`
	CreatedAt time.Time
	UpdatedAt time.Time
}

// SkillCount is one entry of the serialized top_skills list.
type SkillCount struct {
	Skill string `json:"skill"`
	Count int64  `json:"count"`
}

// UserNotFoundError indicates no UserInsight row exists for the user.
type UserNotFoundError struct {
	UserID string
}

func (e *UserNotFoundError) Error() string {
	return fmt.Sprintf("no insights found for user: %s", e.UserID)
}

// NewUserNotFoundError creates a new UserNotFoundError
func NewUserNotFoundError(userID string) *UserNotFoundError {
	return &UserNotFoundError{UserID: userID}
}
