package events

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestNormalizeEvent(t *testing.T) {
	millis := float64(time.Date(2025, 5, 1, 8, 0, 0, 0, time.UTC).UnixMilli())

	t.Run("extracts rollup properties", func(t *testing.T) {
		ne, ok := normalizeEvent(RawEvent{
			Event:  "analysis_completed",
			UserID: "user-1",
			Properties: map[string]any{
				PropSessionID:  "sess-1",
				PropUserAgent:  "Mozilla/5.0",
				PropReferrer:   "https://google.com",
				PropMatchScore: 81.5,
				PropFeature:    "job_search",
			},
			Timestamp: millis,
		})
		require.True(t, ok)
		assert.Equal(t, "sess-1", ne.event.SessionID)
		assert.Equal(t, "Mozilla/5.0", ne.userAgent)
		assert.Equal(t, "https://google.com", ne.referrer)
		require.NotNil(t, ne.matchScore)
		assert.Equal(t, 81.5, *ne.matchScore)
		assert.Equal(t, "job_search", ne.feature)
	})

	t.Run("rejects missing identity fields", func(t *testing.T) {
		cases := []RawEvent{
			{UserID: "u", Properties: map[string]any{PropSessionID: "s"}},
			{Event: "e", Properties: map[string]any{PropSessionID: "s"}},
			{Event: "e", UserID: "u"},
			{Event: "e", UserID: "u", Properties: map[string]any{PropSessionID: 42}},
		}
		for _, raw := range cases {
			_, ok := normalizeEvent(raw)
			assert.False(t, ok)
		}
	})

	t.Run("rejects non numeric timestamps", func(t *testing.T) {
		_, ok := normalizeEvent(RawEvent{
			Event:      "e",
			UserID:     "u",
			Properties: map[string]any{PropSessionID: "s"},
			Timestamp:  "yesterday",
		})
		assert.False(t, ok)
	})
}

func TestTimeFromMillis(t *testing.T) {
	at, ok := timeFromMillis(nil)
	require.True(t, ok)
	assert.Equal(t, time.UnixMilli(0).UTC(), at)

	at, ok = timeFromMillis(float64(1746086400000))
	require.True(t, ok)
	assert.Equal(t, time.UnixMilli(1746086400000).UTC(), at)

	_, ok = timeFromMillis("1746086400000")
	assert.False(t, ok)
}

func TestFloatProp(t *testing.T) {
	props := map[string]any{
		"float":  72.5,
		"int":    72,
		"string": "72.5",
		"junk":   "high",
	}

	require.NotNil(t, floatProp(props, "float"))
	assert.Equal(t, 72.5, *floatProp(props, "float"))
	assert.Equal(t, 72.0, *floatProp(props, "int"))
	assert.Equal(t, 72.5, *floatProp(props, "string"))
	assert.Nil(t, floatProp(props, "junk"))
	assert.Nil(t, floatProp(props, "missing"))
	assert.Nil(t, floatProp(nil, "float"))
}
