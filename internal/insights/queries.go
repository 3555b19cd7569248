package insights

import (
	"errors"
	"fmt"
	"math"

	"gorm.io/gorm"
)

// SessionRollup aggregates a user's session summaries for the detail view.
type SessionRollup struct {
	SessionCount        int64   `json:"session_count"`
	TotalPageViews      int64   `json:"total_page_views"`
	AvgEventsPerSession float64 `json:"avg_events_per_session"`
}

// GetUserInsight fetches the rollup row for a user.
// Returns UserNotFoundError when the user has never produced a valid event.
func GetUserInsight(db *gorm.DB, userID string) (*UserInsight, error) {
	var insight UserInsight
	err := db.Where("user_id = ?", userID).First(&insight).Error
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, NewUserNotFoundError(userID)
		}
		return nil, fmt.Errorf("failed to query user insight: %w", err)
	}
	return &insight, nil
}

// TopUsersByActivity returns the most active users by lifetime event count.
// This reads the cumulative rollup, not window-filtered events.
func TopUsersByActivity(db *gorm.DB, limit int) ([]UserInsight, error) {
	var users []UserInsight
	err := db.Order("total_events DESC").Limit(limit).Find(&users).Error
	if err != nil {
		return nil, fmt.Errorf("failed to query top users: %w", err)
	}
	return users, nil
}

// SessionRollupForUser computes the session aggregate used by the user
// detail view. A user with no sessions yields zeroes, not an error.
func SessionRollupForUser(db *gorm.DB, userID string) (SessionRollup, error) {
	var rollup SessionRollup
	err := db.Model(&SessionSummary{}).
		Select(`COUNT(*) AS session_count,
			COALESCE(SUM(page_views), 0) AS total_page_views,
			COALESCE(AVG(events_count), 0) AS avg_events_per_session`).
		Where("user_id = ?", userID).
		Scan(&rollup).Error
	if err != nil {
		return SessionRollup{}, fmt.Errorf("failed to query session rollup: %w", err)
	}

	rollup.AvgEventsPerSession = math.Round(rollup.AvgEventsPerSession*100) / 100
	return rollup, nil
}

// SessionsForUser lists a user's session summaries, newest first.
func SessionsForUser(db *gorm.DB, userID string, limit int) ([]SessionSummary, error) {
	var sessions []SessionSummary
	err := db.Where("user_id = ?", userID).
		Order("start_time DESC").
		Limit(limit).
		Find(&sessions).Error
	if err != nil {
		return nil, fmt.Errorf("failed to query sessions: %w", err)
	}
	return sessions, nil
}
