// Package analytics computes the dashboard metric groups from stored events
// and user rollups.
package analytics

import (
	"context"
	"fmt"
	"log/slog"
	"math"
	"strconv"
	"time"

	"gorm.io/gorm"

	"careerpulse/internal/events"
	"careerpulse/internal/insights"
	"careerpulse/internal/pkg/async"
	"careerpulse/internal/timeframe"
)

const (
	popularEventsLimit = 10
	topUsersLimit      = 10
	metricWorkers      = 4
)

// BasicMetrics counts distinct actors and raw volume inside the window.
type BasicMetrics struct {
	TotalUsers    int64 `json:"total_users"`
	TotalSessions int64 `json:"total_sessions"`
	TotalEvents   int64 `json:"total_events"`
}

// ConversionMetrics tracks the resume-to-analysis funnel inside the window.
// ConversionRate is the share of uploading users who completed an analysis,
// as a percentage rounded to two decimals.
type ConversionMetrics struct {
	ResumesUploaded   int64   `json:"resumes_uploaded"`
	AnalysesCompleted int64   `json:"analyses_completed"`
	UsersUploaded     int64   `json:"users_uploaded"`
	UsersAnalyzed     int64   `json:"users_analyzed"`
	ConversionRate    float64 `json:"conversion_rate"`
}

// EventCount is one row of the popular-events ranking.
type EventCount struct {
	Event string `json:"event"`
	Count int64  `json:"count"`
}

// HourActivity is one bucket of the trailing-24h activity histogram.
// Hour is the UTC hour of day, 0 through 23.
type HourActivity struct {
	Hour   int   `json:"hour"`
	Events int64 `json:"events"`
}

// TopUser is one row of the most-active-users ranking, drawn from the
// lifetime rollup rather than the window.
type TopUser struct {
	UserID      string `json:"user_id"`
	TotalEvents int64  `json:"total_events"`
}

// DashboardData bundles every metric group served by the dashboard endpoint.
type DashboardData struct {
	BasicMetrics      BasicMetrics      `json:"basic_metrics"`
	ConversionMetrics ConversionMetrics `json:"conversion_metrics"`
	PopularEvents     []EventCount      `json:"popular_events"`
	HourlyActivity    []HourActivity    `json:"hourly_activity"`
	TopUsers          []TopUser         `json:"top_users"`
}

// windowScope applies the range filter to an events query. All-time ranges
// scan the full table.
func windowScope(db *gorm.DB, tf timeframe.Range) *gorm.DB {
	query := db.Model(&events.Event{})
	if !tf.IsAllTime() {
		query = query.Where("occurred_at >= ? AND occurred_at < ?", tf.From, tf.To)
	}
	return query
}

func getBasicMetrics(db *gorm.DB, tf timeframe.Range) (BasicMetrics, error) {
	var metrics BasicMetrics
	err := windowScope(db, tf).
		Select(`COUNT(DISTINCT user_id) AS total_users,
			COUNT(DISTINCT session_id) AS total_sessions,
			COUNT(*) AS total_events`).
		Scan(&metrics).Error
	if err != nil {
		return BasicMetrics{}, fmt.Errorf("failed to query basic metrics: %w", err)
	}
	return metrics, nil
}

func getConversionMetrics(db *gorm.DB, tf timeframe.Range) (ConversionMetrics, error) {
	var metrics ConversionMetrics
	err := windowScope(db, tf).
		Select(`COALESCE(SUM(CASE WHEN event_name = ? THEN 1 ELSE 0 END), 0) AS resumes_uploaded,
			COALESCE(SUM(CASE WHEN event_name = ? THEN 1 ELSE 0 END), 0) AS analyses_completed,
			COUNT(DISTINCT CASE WHEN event_name = ? THEN user_id END) AS users_uploaded,
			COUNT(DISTINCT CASE WHEN event_name = ? THEN user_id END) AS users_analyzed`,
			insights.EventResumeUploaded, insights.EventAnalysisCompleted,
			insights.EventResumeUploaded, insights.EventAnalysisCompleted).
		Scan(&metrics).Error
	if err != nil {
		return ConversionMetrics{}, fmt.Errorf("failed to query conversion metrics: %w", err)
	}

	if metrics.UsersUploaded > 0 {
		rate := float64(metrics.UsersAnalyzed) / float64(metrics.UsersUploaded) * 100
		metrics.ConversionRate = math.Round(rate*100) / 100
	}
	return metrics, nil
}

func getPopularEvents(db *gorm.DB, tf timeframe.Range) ([]EventCount, error) {
	var counts []EventCount
	err := windowScope(db, tf).
		Select("event_name AS event, COUNT(*) AS count").
		Group("event_name").
		Order("count DESC, MIN(id) ASC").
		Limit(popularEventsLimit).
		Scan(&counts).Error
	if err != nil {
		return nil, fmt.Errorf("failed to query popular events: %w", err)
	}
	if counts == nil {
		counts = []EventCount{}
	}
	return counts, nil
}

// getHourlyActivity buckets the trailing 24 hours by UTC hour of day,
// independent of the requested range.
func getHourlyActivity(db *gorm.DB, now time.Time) ([]HourActivity, error) {
	type hourRow struct {
		Hour   string
		Events int64
	}
	var rows []hourRow
	err := db.Model(&events.Event{}).
		Select("strftime('%H', occurred_at) AS hour, COUNT(*) AS events").
		Where("occurred_at >= ?", now.Add(-24*time.Hour)).
		Group("hour").
		Order("hour ASC").
		Scan(&rows).Error
	if err != nil {
		return nil, fmt.Errorf("failed to query hourly activity: %w", err)
	}

	activity := make([]HourActivity, 0, len(rows))
	for _, row := range rows {
		hour, err := strconv.Atoi(row.Hour)
		if err != nil {
			continue
		}
		activity = append(activity, HourActivity{Hour: hour, Events: row.Events})
	}
	return activity, nil
}

func getTopUsers(db *gorm.DB) ([]TopUser, error) {
	users, err := insights.TopUsersByActivity(db, topUsersLimit)
	if err != nil {
		return nil, err
	}

	top := make([]TopUser, 0, len(users))
	for _, u := range users {
		top = append(top, TopUser{UserID: u.UserID, TotalEvents: u.TotalEvents})
	}
	return top, nil
}

// GetDashboard computes all metric groups concurrently. Any group failing
// fails the whole dashboard.
func GetDashboard(ctx context.Context, db *gorm.DB, logger *slog.Logger, tf timeframe.Range) (*DashboardData, error) {
	now := time.Now().UTC()

	tasks := []async.Task{
		{Name: "basic_metrics", Execute: func() (interface{}, error) {
			return getBasicMetrics(db, tf)
		}},
		{Name: "conversion_metrics", Execute: func() (interface{}, error) {
			return getConversionMetrics(db, tf)
		}},
		{Name: "popular_events", Execute: func() (interface{}, error) {
			return getPopularEvents(db, tf)
		}},
		{Name: "hourly_activity", Execute: func() (interface{}, error) {
			return getHourlyActivity(db, now)
		}},
		{Name: "top_users", Execute: func() (interface{}, error) {
			return getTopUsers(db)
		}},
	}

	pool := async.NewPool(metricWorkers)
	results := pool.Execute(ctx, tasks)

	data := &DashboardData{}
	for _, task := range tasks {
		result, ok := results[task.Name]
		if !ok {
			return nil, fmt.Errorf("dashboard metric %s did not complete: %w", task.Name, ctx.Err())
		}
		if result.Err != nil {
			logger.Error("Dashboard metric failed",
				slog.String("metric", task.Name),
				slog.Any("error", result.Err))
			return nil, result.Err
		}

		switch task.Name {
		case "basic_metrics":
			data.BasicMetrics = result.Data.(BasicMetrics)
		case "conversion_metrics":
			data.ConversionMetrics = result.Data.(ConversionMetrics)
		case "popular_events":
			data.PopularEvents = result.Data.([]EventCount)
		case "hourly_activity":
			data.HourlyActivity = result.Data.([]HourActivity)
		case "top_users":
			data.TopUsers = result.Data.([]TopUser)
		}
	}

	return data, nil
}
