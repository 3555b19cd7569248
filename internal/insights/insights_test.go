package insights_test

import (
	"context"
	"encoding/json"
	"os"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"careerpulse/internal/config"
	"careerpulse/internal/events"
	"careerpulse/internal/insights"
	"careerpulse/internal/testsupport"
)

func TestMain(m *testing.M) {
	os.Setenv("CAREERPULSE_ENV", "test")
	config.Reset()
	os.Exit(m.Run())
}

func ingest(t *testing.T, dbManager *testsupport.TestDBManager, batch []events.RawEvent) {
	t.Helper()
	_, err := events.ProcessBatch(context.Background(), dbManager, testsupport.GetLogger(), batch)
	require.NoError(t, err)
}

func TestSessionIdentityAcrossBatches(t *testing.T) {
	dbManager, _ := testsupport.SetupTestDBManager(t)
	db := dbManager.GetConnection()
	baseTime := time.Date(2025, 5, 1, 8, 0, 0, 0, time.UTC)

	ingest(t, dbManager, []events.RawEvent{
		testsupport.RawEvent("page_viewed", "user-a", "sess-1", baseTime, nil),
		testsupport.RawEvent("feature_usage", "user-a", "sess-1", baseTime.Add(time.Minute), map[string]interface{}{
			"feature": "job_search",
		}),
	})
	ingest(t, dbManager, []events.RawEvent{
		testsupport.RawEvent("page_viewed", "user-a", "sess-1", baseTime.Add(2*time.Minute), nil),
	})

	// Same (user, session) pair keeps one row; counters accumulate and
	// start_time stays at the first event seen.
	var sessions []insights.SessionSummary
	require.NoError(t, db.Where("user_id = ?", "user-a").Find(&sessions).Error)
	require.Len(t, sessions, 1)
	assert.Equal(t, int64(2), sessions[0].PageViews)
	assert.Equal(t, int64(3), sessions[0].EventsCount)
	assert.Equal(t, baseTime, sessions[0].StartTime.UTC())

	// Same session id under a different user is a distinct session.
	ingest(t, dbManager, []events.RawEvent{
		testsupport.RawEvent("page_viewed", "user-b", "sess-1", baseTime, nil),
	})

	var count int64
	require.NoError(t, db.Model(&insights.SessionSummary{}).Where("session_id = ?", "sess-1").Count(&count).Error)
	assert.Equal(t, int64(2), count)
}

func TestUserInsightAccumulatesAcrossBatches(t *testing.T) {
	dbManager, _ := testsupport.SetupTestDBManager(t)
	db := dbManager.GetConnection()
	baseTime := time.Date(2025, 5, 1, 8, 0, 0, 0, time.UTC)

	ingest(t, dbManager, []events.RawEvent{
		testsupport.RawEvent("resume_uploaded", "user-c", "sess-1", baseTime, nil),
		testsupport.RawEvent("analysis_completed", "user-c", "sess-1", baseTime.Add(time.Minute), map[string]interface{}{
			"matchScore": 60.0,
		}),
	})
	ingest(t, dbManager, []events.RawEvent{
		testsupport.RawEvent("analysis_completed", "user-c", "sess-2", baseTime.Add(time.Hour), map[string]interface{}{
			"matchScore": 90.0,
		}),
	})

	var insight insights.UserInsight
	require.NoError(t, db.Where("user_id = ?", "user-c").First(&insight).Error)

	assert.Equal(t, int64(3), insight.TotalEvents)
	assert.Equal(t, int64(1), insight.ResumesUploaded)
	assert.Equal(t, int64(2), insight.AnalysesCompleted)
	// Weighted mean over both batches, not the latest batch alone.
	assert.InDelta(t, 75.0, insight.AvgMatchScore, 0.001)
	assert.Equal(t, baseTime, insight.FirstSeen.UTC())
	assert.Equal(t, baseTime.Add(time.Hour), insight.LastSeen.UTC())
}

func TestLastSeenIgnoresOutOfOrderBatches(t *testing.T) {
	dbManager, _ := testsupport.SetupTestDBManager(t)
	db := dbManager.GetConnection()
	baseTime := time.Date(2025, 5, 1, 8, 0, 0, 0, time.UTC)

	ingest(t, dbManager, []events.RawEvent{
		testsupport.RawEvent("page_viewed", "user-d", "sess-1", baseTime.Add(2*time.Hour), nil),
	})
	// A delayed batch with older events must not move last_seen backwards.
	ingest(t, dbManager, []events.RawEvent{
		testsupport.RawEvent("page_viewed", "user-d", "sess-2", baseTime, nil),
	})

	var insight insights.UserInsight
	require.NoError(t, db.Where("user_id = ?", "user-d").First(&insight).Error)
	assert.Equal(t, baseTime.Add(2*time.Hour), insight.LastSeen.UTC())
	// first_seen keeps the value fixed at row creation.
	assert.Equal(t, baseTime.Add(2*time.Hour), insight.FirstSeen.UTC())
}

func TestTopSkillsMergeAcrossBatches(t *testing.T) {
	dbManager, _ := testsupport.SetupTestDBManager(t)
	db := dbManager.GetConnection()
	baseTime := time.Date(2025, 5, 1, 8, 0, 0, 0, time.UTC)

	feature := func(name string, offset time.Duration) events.RawEvent {
		return testsupport.RawEvent("feature_usage", "user-e", "sess-1", baseTime.Add(offset), map[string]interface{}{
			"feature": name,
		})
	}

	ingest(t, dbManager, []events.RawEvent{
		feature("python", 0),
		feature("python", time.Minute),
		feature("sql", 2*time.Minute),
	})
	ingest(t, dbManager, []events.RawEvent{
		feature("sql", time.Hour),
		feature("sql", time.Hour+time.Minute),
		feature("go", time.Hour+2*time.Minute),
		feature("react", time.Hour+3*time.Minute),
		feature("leadership", time.Hour+4*time.Minute),
		feature("kubernetes", time.Hour+5*time.Minute),
	})

	var insight insights.UserInsight
	require.NoError(t, db.Where("user_id = ?", "user-e").First(&insight).Error)

	var top []insights.SkillCount
	require.NoError(t, json.Unmarshal(insight.TopSkills, &top))
	require.Len(t, top, 5)

	// sql counts 3 across both batches, python 2 from the first batch only.
	assert.Equal(t, insights.SkillCount{Skill: "sql", Count: 3}, top[0])
	assert.Equal(t, insights.SkillCount{Skill: "python", Count: 2}, top[1])
	for _, entry := range top[2:] {
		assert.Equal(t, int64(1), entry.Count)
	}
}

func TestGetUserInsight(t *testing.T) {
	dbManager, _ := testsupport.SetupTestDBManager(t)
	db := dbManager.GetConnection()
	baseTime := time.Date(2025, 5, 1, 8, 0, 0, 0, time.UTC)

	ingest(t, dbManager, []events.RawEvent{
		testsupport.RawEvent("page_viewed", "user-f", "sess-1", baseTime, nil),
	})

	insight, err := insights.GetUserInsight(db, "user-f")
	require.NoError(t, err)
	assert.Equal(t, "user-f", insight.UserID)

	_, err = insights.GetUserInsight(db, "nobody")
	var notFound *insights.UserNotFoundError
	require.ErrorAs(t, err, &notFound)
	assert.Equal(t, "nobody", notFound.UserID)
}

func TestTopUsersByActivity(t *testing.T) {
	dbManager, _ := testsupport.SetupTestDBManager(t)
	db := dbManager.GetConnection()
	baseTime := time.Date(2025, 5, 1, 8, 0, 0, 0, time.UTC)

	var batch []events.RawEvent
	for i := 0; i < 5; i++ {
		batch = append(batch, testsupport.RawEvent("page_viewed", "busy-user", "sess-1",
			baseTime.Add(time.Duration(i)*time.Minute), nil))
	}
	batch = append(batch, testsupport.RawEvent("page_viewed", "quiet-user", "sess-2", baseTime, nil))
	ingest(t, dbManager, batch)

	users, err := insights.TopUsersByActivity(db, 10)
	require.NoError(t, err)
	require.Len(t, users, 2)
	assert.Equal(t, "busy-user", users[0].UserID)
	assert.Equal(t, int64(5), users[0].TotalEvents)
	assert.Equal(t, "quiet-user", users[1].UserID)
}

func TestSessionRollupForUser(t *testing.T) {
	dbManager, _ := testsupport.SetupTestDBManager(t)
	db := dbManager.GetConnection()
	baseTime := time.Date(2025, 5, 1, 8, 0, 0, 0, time.UTC)

	ingest(t, dbManager, []events.RawEvent{
		testsupport.RawEvent("page_viewed", "user-g", "sess-1", baseTime, nil),
		testsupport.RawEvent("page_viewed", "user-g", "sess-1", baseTime.Add(time.Minute), nil),
		testsupport.RawEvent("feature_usage", "user-g", "sess-1", baseTime.Add(2*time.Minute), map[string]interface{}{
			"feature": "job_search",
		}),
		testsupport.RawEvent("page_viewed", "user-g", "sess-2", baseTime.Add(time.Hour), nil),
	})

	rollup, err := insights.SessionRollupForUser(db, "user-g")
	require.NoError(t, err)
	assert.Equal(t, int64(2), rollup.SessionCount)
	assert.Equal(t, int64(3), rollup.TotalPageViews)
	assert.InDelta(t, 2.0, rollup.AvgEventsPerSession, 0.001)

	empty, err := insights.SessionRollupForUser(db, "nobody")
	require.NoError(t, err)
	assert.Zero(t, empty.SessionCount)
	assert.Zero(t, empty.TotalPageViews)
	assert.Zero(t, empty.AvgEventsPerSession)
}
