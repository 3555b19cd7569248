package http

import (
	"encoding/json"
	"errors"
	"time"

	"log/slog"

	"github.com/gofiber/fiber/v2"
	"github.com/karloscodes/cartridge"

	"careerpulse/internal/events"
	"careerpulse/internal/insights"
)

const recentEventsLimit = 50

// UserInsightsResponse is the rollup section of the user detail view.
type UserInsightsResponse struct {
	UserID              string          `json:"user_id"`
	FirstSeen           time.Time       `json:"first_seen"`
	LastSeen            time.Time       `json:"last_seen"`
	TotalEvents         int64           `json:"total_events"`
	ResumesUploaded     int64           `json:"resumes_uploaded"`
	AnalysesCompleted   int64           `json:"analyses_completed"`
	AvgMatchScore       float64         `json:"avg_match_score"`
	TopSkills           json.RawMessage `json:"top_skills"`
	TotalSessions       int64           `json:"total_sessions"`
	TotalPageViews      int64           `json:"total_page_views"`
	AvgEventsPerSession float64         `json:"avg_events_per_session"`
}

// RecentEventResponse is one row of the user's recent activity.
type RecentEventResponse struct {
	Event      string                 `json:"event"`
	Properties map[string]interface{} `json:"properties"`
	Timestamp  time.Time              `json:"timestamp"`
}

// UserShowAction serves the per-user detail view: the cumulative insight
// rollup plus the most recent events.
func UserShowAction(ctx *cartridge.Context) error {
	userID := ctx.Params("id")

	insight, err := insights.GetUserInsight(ctx.DB(), userID)
	if err != nil {
		var notFound *insights.UserNotFoundError
		if errors.As(err, &notFound) {
			return ctx.Status(fiber.StatusNotFound).JSON(fiber.Map{
				"success": false,
				"error":   "User not found",
			})
		}
		ctx.Logger.Error("Failed to load user insight",
			slog.String("user_id", userID),
			slog.Any("error", err))
		return ctx.Status(fiber.StatusInternalServerError).JSON(fiber.Map{
			"success": false,
			"error":   "Failed to load user insights",
		})
	}

	rollup, err := insights.SessionRollupForUser(ctx.DB(), userID)
	if err != nil {
		ctx.Logger.Error("Failed to load session rollup",
			slog.String("user_id", userID),
			slog.Any("error", err))
		return ctx.Status(fiber.StatusInternalServerError).JSON(fiber.Map{
			"success": false,
			"error":   "Failed to load user insights",
		})
	}

	recent, err := events.RecentEventsForUser(ctx.DB(), userID, recentEventsLimit)
	if err != nil {
		ctx.Logger.Error("Failed to load recent events",
			slog.String("user_id", userID),
			slog.Any("error", err))
		return ctx.Status(fiber.StatusInternalServerError).JSON(fiber.Map{
			"success": false,
			"error":   "Failed to load user insights",
		})
	}

	topSkills := json.RawMessage(insight.TopSkills)
	if len(topSkills) == 0 {
		topSkills = json.RawMessage("[]")
	}

	recentRows := make([]RecentEventResponse, 0, len(recent))
	for _, ev := range recent {
		recentRows = append(recentRows, RecentEventResponse{
			Event:      ev.EventName,
			Properties: ev.Properties,
			Timestamp:  ev.OccurredAt,
		})
	}

	return ctx.JSON(fiber.Map{
		"success": true,
		"user_insights": UserInsightsResponse{
			UserID:              insight.UserID,
			FirstSeen:           insight.FirstSeen,
			LastSeen:            insight.LastSeen,
			TotalEvents:         insight.TotalEvents,
			ResumesUploaded:     insight.ResumesUploaded,
			AnalysesCompleted:   insight.AnalysesCompleted,
			AvgMatchScore:       insight.AvgMatchScore,
			TopSkills:           topSkills,
			TotalSessions:       rollup.SessionCount,
			TotalPageViews:      rollup.TotalPageViews,
			AvgEventsPerSession: rollup.AvgEventsPerSession,
		},
		"recent_events": recentRows,
	})
}
