package insights

import (
	"encoding/json"
	"fmt"
	"time"

	"gorm.io/datatypes"
	"gorm.io/gorm"
)

const topSkillsLimit = 5

// ApplySessionEvent folds one event into its SessionSummary row. The insert
// path fixes start_time to this event's time; the conflict path only ever
// increments counters and keeps the last non-empty user_agent/referrer, so
// concurrent batches cannot lose updates.
func ApplySessionEvent(tx *gorm.DB, userID, sessionID string, occurredAt time.Time, eventName, userAgent, referrer string) error {
	pageViewInc := 0
	if eventName == EventPageViewed {
		pageViewInc = 1
	}
	now := time.Now().UTC()
	query := `
		INSERT INTO session_summaries (user_id, session_id, start_time, page_views, events_count, user_agent, referrer, created_at, updated_at)
		VALUES (?, ?, ?, ?, 1, ?, ?, ?, ?)
		ON CONFLICT (user_id, session_id) DO UPDATE SET
			page_views = session_summaries.page_views + ?,
			events_count = session_summaries.events_count + 1,
			user_agent = CASE WHEN excluded.user_agent != '' THEN excluded.user_agent ELSE session_summaries.user_agent END,
			referrer = CASE WHEN excluded.referrer != '' THEN excluded.referrer ELSE session_summaries.referrer END,
			updated_at = ?
	`
	err := tx.Exec(query,
		userID, sessionID, occurredAt.UTC(), pageViewInc, userAgent, referrer, now, now,
		pageViewInc, now).Error
	if err != nil {
		return fmt.Errorf("failed to upsert session summary: %w", err)
	}
	return nil
}

// ApplyUserDelta merges one batch's accumulated delta into the UserInsight
// row and the skill tally. first_seen survives the conflict path untouched,
// last_seen takes the max of stored and incoming, counters increment, and
// avg_match_score is recomputed from the merged sum/count pair.
func ApplyUserDelta(tx *gorm.DB, userID string, delta *UserDelta) error {
	if delta == nil || delta.Events == 0 {
		return nil
	}

	now := time.Now().UTC()
	avg := 0.0
	if delta.MatchScoreCount > 0 {
		avg = delta.MatchScoreSum / float64(delta.MatchScoreCount)
	}

	query := `
		INSERT INTO user_insights
			(user_id, first_seen, last_seen, total_events, resumes_uploaded, analyses_completed,
			 match_score_sum, match_score_count, avg_match_score, top_skills, created_at, updated_at)
		VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?)
		ON CONFLICT (user_id) DO UPDATE SET
			last_seen = MAX(user_insights.last_seen, excluded.last_seen),
			total_events = user_insights.total_events + ?,
			resumes_uploaded = user_insights.resumes_uploaded + ?,
			analyses_completed = user_insights.analyses_completed + ?,
			match_score_sum = user_insights.match_score_sum + ?,
			match_score_count = user_insights.match_score_count + ?,
			avg_match_score = CASE WHEN user_insights.match_score_count + ? > 0
				THEN (user_insights.match_score_sum + ?) / (user_insights.match_score_count + ?)
				ELSE 0 END,
			updated_at = ?
	`
	err := tx.Exec(query,
		userID, delta.FirstSeen.UTC(), delta.LastSeen.UTC(), delta.Events,
		delta.ResumesUploaded, delta.AnalysesCompleted,
		delta.MatchScoreSum, delta.MatchScoreCount, avg, datatypes.JSON("[]"), now, now,
		delta.Events, delta.ResumesUploaded, delta.AnalysesCompleted,
		delta.MatchScoreSum, delta.MatchScoreCount,
		delta.MatchScoreCount, delta.MatchScoreSum, delta.MatchScoreCount,
		now).Error
	if err != nil {
		return fmt.Errorf("failed to upsert user insight: %w", err)
	}

	if len(delta.Skills) > 0 {
		for skill, count := range delta.Skills {
			if err := applySkillDelta(tx, userID, skill, count); err != nil {
				return err
			}
		}
	}

	// top_skills is a materialized view over skill_stats; refresh it after
	// every update so reads never parse the tally themselves.
	return refreshTopSkills(tx, userID)
}

func applySkillDelta(tx *gorm.DB, userID, skill string, count int64) error {
	now := time.Now().UTC()
	query := `
		INSERT INTO skill_stats (user_id, skill, count, created_at, updated_at)
		VALUES (?, ?, ?, ?, ?)
		ON CONFLICT (user_id, skill) DO UPDATE SET
			count = skill_stats.count + ?,
			updated_at = ?
	`
	err := tx.Exec(query, userID, skill, count, now, now, count, now).Error
	if err != nil {
		return fmt.Errorf("failed to upsert skill stat for %s: %w", skill, err)
	}
	return nil
}

func refreshTopSkills(tx *gorm.DB, userID string) error {
	var top []SkillCount
	err := tx.Model(&SkillStat{}).
		Select("skill, count").
		Where("user_id = ?", userID).
		Order("count DESC, skill ASC").
		Limit(topSkillsLimit).
		Scan(&top).Error
	if err != nil {
		return fmt.Errorf("failed to query top skills: %w", err)
	}
	if len(top) == 0 {
		return nil
	}

	serialized, err := json.Marshal(top)
	if err != nil {
		return fmt.Errorf("failed to serialize top skills: %w", err)
	}

	err = tx.Model(&UserInsight{}).
		Where("user_id = ?", userID).
		Update("top_skills", datatypes.JSON(serialized)).Error
	if err != nil {
		return fmt.Errorf("failed to store top skills: %w", err)
	}
	return nil
}
