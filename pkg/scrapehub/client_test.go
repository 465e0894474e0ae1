package scrapehub

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"sync/atomic"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"golang.org/x/time/rate"
)

func newTestClient(t *testing.T, handler http.Handler) Client {
	t.Helper()
	srv := httptest.NewServer(handler)
	t.Cleanup(srv.Close)
	return NewClient("test-token", "menu-actor",
		WithBaseURL(srv.URL),
		WithRateLimit(rate.NewLimiter(rate.Inf, 1)),
	)
}

func TestStartJob(t *testing.T) {
	var gotAuth, gotPath string
	var gotBody startJobRequest

	c := newTestClient(t, http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		gotAuth = r.Header.Get("Authorization")
		gotPath = r.URL.Path
		require.NoError(t, json.NewDecoder(r.Body).Decode(&gotBody))
		w.WriteHeader(http.StatusCreated)
		json.NewEncoder(w).Encode(JobInfo{JobID: "run-9", DatasetID: "ds-9", Status: "RUNNING"})
	}))

	info, err := c.StartJob(context.Background(), []string{"https://maps.example.com/place/1"})
	require.NoError(t, err)

	assert.Equal(t, "Bearer test-token", gotAuth)
	assert.Equal(t, "/actors/menu-actor/runs", gotPath)
	assert.Equal(t, []string{"https://maps.example.com/place/1"}, gotBody.StartURLs)
	assert.Equal(t, "run-9", info.JobID)
	assert.Equal(t, "ds-9", info.DatasetID)
}

func TestStartJob_NoURLs(t *testing.T) {
	c := NewClient("t", "a")
	_, err := c.StartJob(context.Background(), nil)
	require.Error(t, err)
	assert.Contains(t, err.Error(), "no source urls")
}

func TestStartJob_ServerError(t *testing.T) {
	c := newTestClient(t, http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		http.Error(w, "bad actor", http.StatusBadRequest)
	}))

	_, err := c.StartJob(context.Background(), []string{"https://x.example.com"})
	require.Error(t, err)
	assert.Contains(t, err.Error(), "status 400")
}

func TestFetchBatch(t *testing.T) {
	c := newTestClient(t, http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, "/datasets/ds-1/items", r.URL.Path)
		json.NewEncoder(w).Encode([]map[string]any{
			{"title": "Venue A"},
			{"title": "Venue B"},
		})
	}))

	items, err := c.FetchBatch(context.Background(), "ds-1")
	require.NoError(t, err)
	require.Len(t, items, 2)
	assert.Equal(t, "Venue A", items[0]["title"])
}

func TestFetchBatch_RetriesTransientFailures(t *testing.T) {
	var calls atomic.Int32
	c := newTestClient(t, http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if calls.Add(1) < 3 {
			w.WriteHeader(http.StatusServiceUnavailable)
			return
		}
		json.NewEncoder(w).Encode([]map[string]any{{"title": "Eventually"}})
	}))

	items, err := c.FetchBatch(context.Background(), "ds-2")
	require.NoError(t, err)
	require.Len(t, items, 1)
	assert.Equal(t, int32(3), calls.Load())
}

func TestFetchBatch_ExhaustsRetries(t *testing.T) {
	var calls atomic.Int32
	c := newTestClient(t, http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		calls.Add(1)
		w.WriteHeader(http.StatusTooManyRequests)
	}))

	_, err := c.FetchBatch(context.Background(), "ds-3")
	require.Error(t, err)
	assert.Contains(t, err.Error(), "after 3 attempts")
	assert.Equal(t, int32(3), calls.Load())
}

func TestNotification_Terminal(t *testing.T) {
	assert.False(t, (&Notification{EventType: EventSucceeded}).Terminal())
	assert.True(t, (&Notification{EventType: EventFailed}).Terminal())
	assert.True(t, (&Notification{EventType: EventAborted}).Terminal())
	assert.True(t, (&Notification{EventType: EventTimedOut}).Terminal())
}
