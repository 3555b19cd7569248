// Package v1_test contains tests for the API v1 handlers
package v1_test

import (
	"bytes"
	"encoding/json"
	"io"
	"net/http"
	"net/http/httptest"
	"os"
	"strings"
	"testing"
	"time"

	"github.com/gofiber/fiber/v2"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"careerpulse/internal/config"
	"careerpulse/internal/events"
	"careerpulse/internal/testsupport"
)

func TestMain(m *testing.M) {
	os.Setenv("CAREERPULSE_ENV", "test")
	config.Reset()
	os.Exit(m.Run())
}

func postBatch(t *testing.T, app *fiber.App, body []byte) (*http.Response, map[string]interface{}) {
	t.Helper()

	req := httptest.NewRequest("POST", "/x/api/v1/analytics/events", bytes.NewReader(body))
	req.Header.Set("Content-Type", "application/json")

	resp, err := app.Test(req, -1)
	require.NoError(t, err)

	raw, err := io.ReadAll(resp.Body)
	require.NoError(t, err)

	var parsed map[string]interface{}
	require.NoError(t, json.Unmarshal(raw, &parsed))
	return resp, parsed
}

func TestCollectEventsBatchHandler(t *testing.T) {
	baseMillis := time.Now().UTC().Add(-time.Hour).UnixMilli()

	validEvent := func(name, userID, sessionID string) map[string]interface{} {
		return map[string]interface{}{
			"event":  name,
			"userId": userID,
			"properties": map[string]interface{}{
				"sessionId": sessionID,
			},
			"timestamp": baseMillis,
		}
	}

	t.Run("accepts a bare event array", func(t *testing.T) {
		db := testsupport.SetupTestDB(t)
		app := testsupport.CreateTestApp(t, db)

		body, err := json.Marshal([]map[string]interface{}{
			validEvent("page_viewed", "user-1", "sess-1"),
			validEvent("resume_uploaded", "user-1", "sess-1"),
		})
		require.NoError(t, err)

		resp, parsed := postBatch(t, app, body)
		assert.Equal(t, http.StatusOK, resp.StatusCode)
		assert.Equal(t, true, parsed["success"])
		assert.Equal(t, float64(2), parsed["processed_count"])
		assert.Equal(t, "Successfully processed 2 events", parsed["message"])

		var count int64
		require.NoError(t, db.Model(&events.Event{}).Count(&count).Error)
		assert.Equal(t, int64(2), count)
	})

	t.Run("accepts an events envelope", func(t *testing.T) {
		db := testsupport.SetupTestDB(t)
		app := testsupport.CreateTestApp(t, db)

		body, err := json.Marshal(map[string]interface{}{
			"events": []map[string]interface{}{
				validEvent("page_viewed", "user-2", "sess-2"),
			},
		})
		require.NoError(t, err)

		resp, parsed := postBatch(t, app, body)
		assert.Equal(t, http.StatusOK, resp.StatusCode)
		assert.Equal(t, float64(1), parsed["processed_count"])
	})

	t.Run("skips invalid events and reports only stored ones", func(t *testing.T) {
		db := testsupport.SetupTestDB(t)
		app := testsupport.CreateTestApp(t, db)

		body, err := json.Marshal([]map[string]interface{}{
			validEvent("page_viewed", "user-3", "sess-3"),
			{"event": "page_viewed"},
			{"userId": "user-3", "properties": map[string]interface{}{"sessionId": "sess-3"}},
		})
		require.NoError(t, err)

		resp, parsed := postBatch(t, app, body)
		assert.Equal(t, http.StatusOK, resp.StatusCode)
		assert.Equal(t, true, parsed["success"])
		assert.Equal(t, float64(1), parsed["processed_count"])
	})

	t.Run("rejects a malformed body", func(t *testing.T) {
		db := testsupport.SetupTestDB(t)
		app := testsupport.CreateTestApp(t, db)

		resp, parsed := postBatch(t, app, []byte("not json"))
		assert.Equal(t, http.StatusBadRequest, resp.StatusCode)
		assert.Equal(t, false, parsed["success"])
		assert.NotEmpty(t, parsed["error"])
	})

	t.Run("rejects an object without events key", func(t *testing.T) {
		db := testsupport.SetupTestDB(t)
		app := testsupport.CreateTestApp(t, db)

		resp, _ := postBatch(t, app, []byte(`{"batch": []}`))
		assert.Equal(t, http.StatusBadRequest, resp.StatusCode)
	})

	t.Run("empty array succeeds with zero processed", func(t *testing.T) {
		db := testsupport.SetupTestDB(t)
		app := testsupport.CreateTestApp(t, db)

		resp, parsed := postBatch(t, app, []byte(`[]`))
		assert.Equal(t, http.StatusOK, resp.StatusCode)
		assert.Equal(t, true, parsed["success"])
		assert.Equal(t, float64(0), parsed["processed_count"])
	})

	t.Run("preflight request returns no content", func(t *testing.T) {
		db := testsupport.SetupTestDB(t)
		app := testsupport.CreateTestApp(t, db)

		req := httptest.NewRequest("OPTIONS", "/x/api/v1/analytics/events", strings.NewReader(""))
		req.Header.Set("Origin", "https://app.example.com")
		req.Header.Set("Access-Control-Request-Method", "POST")

		resp, err := app.Test(req, -1)
		require.NoError(t, err)
		assert.Equal(t, http.StatusNoContent, resp.StatusCode)
	})

	t.Run("stored events are queryable through the pipeline models", func(t *testing.T) {
		db := testsupport.SetupTestDB(t)
		app := testsupport.CreateTestApp(t, db)

		body, err := json.Marshal([]map[string]interface{}{
			validEvent("feature_usage", "user-4", "sess-4"),
		})
		require.NoError(t, err)

		resp, _ := postBatch(t, app, body)
		require.Equal(t, http.StatusOK, resp.StatusCode)

		recent, err := events.RecentEventsForUser(db, "user-4", 10)
		require.NoError(t, err)
		require.Len(t, recent, 1)
		assert.Equal(t, "feature_usage", recent[0].EventName)
	})
}
