package events

import (
	"fmt"

	"gorm.io/gorm"
)

// RecentEventsForUser returns the newest events recorded for a user, most
// recent first.
func RecentEventsForUser(db *gorm.DB, userID string, limit int) ([]Event, error) {
	var rows []Event
	err := db.Where("user_id = ?", userID).
		Order("occurred_at DESC").
		Limit(limit).
		Find(&rows).Error
	if err != nil {
		return nil, fmt.Errorf("failed to load recent events for user %s: %w", userID, err)
	}
	return rows, nil
}
