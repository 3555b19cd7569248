package events

import (
	"context"
	"fmt"
	"log/slog"
	"time"

	"github.com/karloscodes/cartridge"
	"github.com/karloscodes/cartridge/sqlite"
	"gorm.io/gorm"

	"careerpulse/internal/insights"
)

// ProcessBatch validates, persists, and rolls up one batch of raw events.
//
// Malformed events are dropped and counted without failing the batch. All
// surviving writes - raw rows, session summaries, user insights - commit in
// a single transaction: a storage failure leaves no trace of the batch and
// returns an error alongside a zeroed result. Events are applied in input
// order, so the first valid event for a key decides start_time/first_seen.
func ProcessBatch(ctx context.Context, dbManager cartridge.DBManager, logger *slog.Logger, batch []RawEvent) (BatchResult, error) {
	var result BatchResult

	normalized := make([]*normalizedEvent, 0, len(batch))
	deltas := make(map[string]*insights.UserDelta)
	userOrder := make([]string, 0)

	for i, raw := range batch {
		ne, ok := normalizeEvent(raw)
		if !ok {
			result.Rejected++
			logger.Debug("Skipping invalid event",
				slog.Int("index", i),
				slog.String("event", raw.Event),
				slog.String("user_id", raw.UserID))
			continue
		}
		normalized = append(normalized, ne)

		delta, exists := deltas[ne.event.UserID]
		if !exists {
			delta = insights.NewUserDelta(ne.event.OccurredAt)
			deltas[ne.event.UserID] = delta
			userOrder = append(userOrder, ne.event.UserID)
		}
		delta.Observe(ne.event.EventName, ne.event.OccurredAt, ne.matchScore, ne.feature)
	}

	if len(normalized) == 0 {
		return result, nil
	}

	db := dbManager.GetConnection().WithContext(ctx)
	err := sqlite.PerformWrite(logger, db, func(tx *gorm.DB) error {
		recordedAt := time.Now().UTC()
		for _, ne := range normalized {
			ne.event.RecordedAt = recordedAt
			if err := tx.Create(ne.event).Error; err != nil {
				return fmt.Errorf("failed to append event: %w", err)
			}

			err := insights.ApplySessionEvent(tx,
				ne.event.UserID, ne.event.SessionID, ne.event.OccurredAt,
				ne.event.EventName, ne.userAgent, ne.referrer)
			if err != nil {
				return err
			}
		}

		for _, userID := range userOrder {
			if err := insights.ApplyUserDelta(tx, userID, deltas[userID]); err != nil {
				return err
			}
		}
		return nil
	})
	if err != nil {
		logger.Error("Failed to persist event batch",
			slog.Int("batch_size", len(batch)),
			slog.Any("error", err))
		return BatchResult{}, fmt.Errorf("failed to persist event batch: %w", err)
	}

	result.Accepted = len(normalized)
	logger.Info("Processed event batch",
		slog.Int("accepted", result.Accepted),
		slog.Int("rejected", result.Rejected),
		slog.Int("users", len(userOrder)))
	return result, nil
}
