// Package seeder generates realistic demo traffic through the real
// ingestion pipeline, so seeded data exercises the same rollups as
// production batches.
package seeder

import (
	"context"
	"fmt"
	"math/rand/v2"
	"time"

	"log/slog"

	"github.com/google/uuid"
	"github.com/karloscodes/cartridge"

	"careerpulse/internal/events"
	"careerpulse/internal/insights"
)

// Seeder drives demo data through events.ProcessBatch.
type Seeder struct {
	DBManager cartridge.DBManager
	Logger    *slog.Logger
	UserCount int
	Days      int
}

// NewSeeder creates a new seeder instance
func NewSeeder(dbManager cartridge.DBManager, logger *slog.Logger, userCount, days int) *Seeder {
	if logger == nil {
		logger = slog.Default()
	}
	return &Seeder{
		DBManager: dbManager,
		Logger:    logger,
		UserCount: userCount,
		Days:      days,
	}
}

var seedPages = []string{
	"/", "/upload", "/analysis", "/jobs", "/profile", "/settings",
}

var seedSkills = []string{
	"python", "sql", "communication", "go", "kubernetes",
	"leadership", "data analysis", "react", "project management",
}

var seedFeatures = []string{
	"job_search", "skill_gap", "resume_tips", "salary_insights",
}

// Seed generates and ingests demo batches. Each simulated user gets one to
// three sessions spread across the configured day range; roughly half the
// users upload a resume and most of those complete an analysis.
func (s *Seeder) Seed(ctx context.Context) error {
	start := time.Now()
	s.Logger.Info("Seeding demo data...",
		slog.Int("users", s.UserCount),
		slog.Int("days", s.Days))

	now := time.Now().UTC()
	totalAccepted := 0

	for i := 0; i < s.UserCount; i++ {
		userID := fmt.Sprintf("demo-user-%s", uuid.NewString()[:8])
		batch := s.buildUserJourney(userID, now)

		result, err := events.ProcessBatch(ctx, s.DBManager, s.Logger, batch)
		if err != nil {
			return fmt.Errorf("failed to seed user %s: %w", userID, err)
		}
		totalAccepted += result.Accepted
	}

	s.Logger.Info("Seeding completed",
		slog.Int("events", totalAccepted),
		slog.Duration("elapsed", time.Since(start)))
	return nil
}

// buildUserJourney produces one user's raw events across a few sessions.
func (s *Seeder) buildUserJourney(userID string, now time.Time) []events.RawEvent {
	var batch []events.RawEvent

	sessions := 1 + rand.IntN(3)
	uploads := rand.IntN(2) == 0

	for sessionIdx := 0; sessionIdx < sessions; sessionIdx++ {
		sessionID := uuid.NewString()
		sessionStart := now.
			AddDate(0, 0, -rand.IntN(s.Days)).
			Add(-time.Duration(rand.IntN(12)) * time.Hour)
		at := sessionStart

		pageViews := 1 + rand.IntN(4)
		for p := 0; p < pageViews; p++ {
			batch = append(batch, rawEvent(insights.EventPageViewed, userID, sessionID, at, map[string]interface{}{
				"page": seedPages[rand.IntN(len(seedPages))],
			}))
			at = at.Add(time.Duration(10+rand.IntN(120)) * time.Second)
		}

		batch = append(batch, rawEvent(insights.EventFeatureUsage, userID, sessionID, at, map[string]interface{}{
			events.PropFeature: seedFeatures[rand.IntN(len(seedFeatures))],
		}))
		at = at.Add(time.Duration(5+rand.IntN(60)) * time.Second)

		// Only the first session carries the funnel events.
		if sessionIdx == 0 && uploads {
			batch = append(batch, rawEvent(insights.EventResumeUploaded, userID, sessionID, at, map[string]interface{}{
				"skills": randomSkills(),
			}))
			at = at.Add(time.Duration(20+rand.IntN(90)) * time.Second)

			if rand.IntN(4) != 0 {
				batch = append(batch, rawEvent(insights.EventAnalysisCompleted, userID, sessionID, at, map[string]interface{}{
					events.PropMatchScore: 40 + rand.Float64()*55,
				}))
			}
		}
	}

	return batch
}

func rawEvent(name, userID, sessionID string, at time.Time, props map[string]interface{}) events.RawEvent {
	if props == nil {
		props = map[string]interface{}{}
	}
	props[events.PropSessionID] = sessionID
	props[events.PropUserAgent] = "careerpulse-seeder/1.0"

	return events.RawEvent{
		Event:      name,
		UserID:     userID,
		Properties: props,
		Timestamp:  at.UnixMilli(),
	}
}

func randomSkills() []string {
	count := 2 + rand.IntN(3)
	picked := make([]string, 0, count)
	for _, idx := range rand.Perm(len(seedSkills))[:count] {
		picked = append(picked, seedSkills[idx])
	}
	return picked
}
