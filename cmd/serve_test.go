package main

import (
	"bytes"
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/rotisserie/eris"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/robertroyster/lookbook-admin/internal/auth"
	"github.com/robertroyster/lookbook-admin/internal/blob"
	"github.com/robertroyster/lookbook-admin/internal/claims"
	"github.com/robertroyster/lookbook-admin/internal/identity"
	"github.com/robertroyster/lookbook-admin/internal/ingest"
	"github.com/robertroyster/lookbook-admin/internal/model"
	"github.com/robertroyster/lookbook-admin/internal/publish"
	"github.com/robertroyster/lookbook-admin/internal/store/storetest"
	"github.com/robertroyster/lookbook-admin/pkg/scrapehub"
)

type stubHub struct {
	startInfo *scrapehub.JobInfo
	startErr  error
	items     []map[string]any
}

func (s *stubHub) StartJob(context.Context, []string) (*scrapehub.JobInfo, error) {
	if s.startErr != nil {
		return nil, s.startErr
	}
	return s.startInfo, nil
}

func (s *stubHub) FetchBatch(context.Context, string) ([]map[string]any, error) {
	return s.items, nil
}

type serverFixture struct {
	srv   *server
	store *storetest.Fake
	blobs *blob.MemStore
	hub   *stubHub
}

func newServerFixture() *serverFixture {
	st := storetest.New()
	blobs := blob.NewMem()
	hub := &stubHub{startInfo: &scrapehub.JobInfo{JobID: "run-1", DatasetID: "ds-1", Status: "RUNNING"}}

	srv := &server{
		ingestor:      ingest.New(st, blobs, hub, identity.NewResolver(st), claims.NewIssuer(st, 0)),
		publisher:     publish.New(blobs),
		hub:           hub,
		keyring:       auth.NewKeyring(map[string]string{"key-acme": "acme"}, "admin-secret"),
		source:        "gmaps",
		webhookSecret: "hook-secret",
		webhookURL:    "https://admin.example.com/webhook/scrape",
		liveBaseURL:   "https://cdn.example.com/menus",
		baseCtx:       context.Background(),
	}
	return &serverFixture{srv: srv, store: st, blobs: blobs, hub: hub}
}

func doRequest(t *testing.T, h http.Handler, method, path, bearer string, body any) *httptest.ResponseRecorder {
	t.Helper()
	var buf bytes.Buffer
	if body != nil {
		require.NoError(t, json.NewEncoder(&buf).Encode(body))
	}
	req := httptest.NewRequest(method, path, &buf)
	if bearer != "" {
		req.Header.Set("Authorization", "Bearer "+bearer)
	}
	rec := httptest.NewRecorder()
	h.ServeHTTP(rec, req)
	return rec
}

func TestHealth(t *testing.T) {
	f := newServerFixture()
	rec := doRequest(t, f.srv.router(), http.MethodGet, "/health", "", nil)
	assert.Equal(t, http.StatusOK, rec.Code)
	assert.Contains(t, rec.Body.String(), `"ok"`)
}

func TestIngestStart(t *testing.T) {
	f := newServerFixture()
	r := f.srv.router()
	body := map[string]any{"urls": []string{"https://maps.example.com/place/1"}}

	rec := doRequest(t, r, http.MethodPost, "/api/ingest/start", "admin-secret", body)
	require.Equal(t, http.StatusAccepted, rec.Code)

	var resp map[string]any
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &resp))
	assert.Equal(t, "run-1", resp["jobId"])
	assert.Equal(t, "ds-1", resp["datasetId"])
	assert.Equal(t, true, resp["notificationConfigured"])
	assert.Equal(t, float64(1), resp["itemCount"])
}

func TestIngestStart_Authz(t *testing.T) {
	f := newServerFixture()
	r := f.srv.router()
	body := map[string]any{"urls": []string{"https://x.example.com"}}

	rec := doRequest(t, r, http.MethodPost, "/api/ingest/start", "", body)
	assert.Equal(t, http.StatusUnauthorized, rec.Code)

	// Tenant keys can save menus but not trigger crawls.
	rec = doRequest(t, r, http.MethodPost, "/api/ingest/start", "key-acme", body)
	assert.Equal(t, http.StatusForbidden, rec.Code)
}

func TestIngestStart_BadRequests(t *testing.T) {
	f := newServerFixture()
	r := f.srv.router()

	rec := doRequest(t, r, http.MethodPost, "/api/ingest/start", "admin-secret", map[string]any{"urls": []string{}})
	assert.Equal(t, http.StatusBadRequest, rec.Code)
}

func TestIngestStart_UpstreamFailure(t *testing.T) {
	f := newServerFixture()
	f.hub.startErr = eris.New("actor unavailable")

	rec := doRequest(t, f.srv.router(), http.MethodPost, "/api/ingest/start", "admin-secret",
		map[string]any{"urls": []string{"https://x.example.com"}})
	assert.Equal(t, http.StatusBadGateway, rec.Code)
}

func TestScrapeWebhook_SecretRequired(t *testing.T) {
	f := newServerFixture()
	r := f.srv.router()

	req := httptest.NewRequest(http.MethodPost, "/webhook/scrape", bytes.NewBufferString(`{"eventType":"succeeded","jobId":"run-1","datasetId":"ds-1"}`))
	rec := httptest.NewRecorder()
	r.ServeHTTP(rec, req)
	assert.Equal(t, http.StatusUnauthorized, rec.Code)

	req = httptest.NewRequest(http.MethodPost, "/webhook/scrape", bytes.NewBufferString(`{"eventType":"succeeded","jobId":"run-1","datasetId":"ds-1"}`))
	req.Header.Set("X-Webhook-Secret", "wrong")
	rec = httptest.NewRecorder()
	r.ServeHTTP(rec, req)
	assert.Equal(t, http.StatusUnauthorized, rec.Code)
}

func TestScrapeWebhook_SucceededTriggersIngestion(t *testing.T) {
	f := newServerFixture()
	f.hub.items = []map[string]any{
		{"title": "Pho Real", "url": "https://maps.example.com/place/1", "items": []any{
			map[string]any{"name": "Pho", "category": "soups", "price": "$11.00"},
		}},
	}
	r := f.srv.router()

	req := httptest.NewRequest(http.MethodPost, "/webhook/scrape",
		bytes.NewBufferString(`{"eventType":"succeeded","jobId":"run-1","datasetId":"ds-1"}`))
	req.Header.Set("X-Webhook-Secret", "hook-secret")
	rec := httptest.NewRecorder()
	r.ServeHTTP(rec, req)

	require.Equal(t, http.StatusAccepted, rec.Code)

	// Ingestion runs async; wait for the job row to appear.
	require.Eventually(t, func() bool {
		jobs, restaurants, _, _ := f.store.Counts()
		return jobs == 1 && restaurants == 1
	}, 2*time.Second, 10*time.Millisecond)
}

func TestScrapeWebhook_FailedEventRecorded(t *testing.T) {
	f := newServerFixture()
	r := f.srv.router()

	req := httptest.NewRequest(http.MethodPost, "/webhook/scrape",
		bytes.NewBufferString(`{"eventType":"timedOut","jobId":"run-1","datasetId":"ds-1","statusMessage":"actor exceeded limit"}`))
	req.Header.Set("X-Webhook-Secret", "hook-secret")
	rec := httptest.NewRecorder()
	r.ServeHTTP(rec, req)

	require.Equal(t, http.StatusOK, rec.Code)
	require.Len(t, f.store.ImportJobs, 1)
	for _, job := range f.store.ImportJobs {
		assert.Equal(t, model.ImportStatusFailed, job.Status)
		assert.Contains(t, job.ErrorSummary, "timedOut")
		assert.Contains(t, job.ErrorSummary, "actor exceeded limit")
	}
}

func TestMenuSave(t *testing.T) {
	f := newServerFixture()
	r := f.srv.router()
	doc := model.MenuDocument{
		Title: "Dinner",
		Sections: []model.MenuSection{
			{Name: "Mains", Items: []model.MenuItem{{Name: "Pho"}}},
		},
	}

	rec := doRequest(t, r, http.MethodPut, "/api/menus/acme/downtown/dinner", "key-acme", doc)
	require.Equal(t, http.StatusOK, rec.Code)

	var resp map[string]any
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &resp))
	assert.NotEmpty(t, resp["versionId"])
	assert.Equal(t, "https://cdn.example.com/menus/acme/downtown__dinner.json", resp["liveUrl"])
	assert.Equal(t, float64(1), resp["itemCount"])

	// Live object exists.
	_, err := f.blobs.Get(context.Background(), "acme/downtown__dinner.json")
	assert.NoError(t, err)
}

func TestMenuSave_TenantIsolation(t *testing.T) {
	f := newServerFixture()
	r := f.srv.router()
	doc := model.MenuDocument{Sections: []model.MenuSection{}}

	rec := doRequest(t, r, http.MethodPut, "/api/menus/globo/downtown/dinner", "key-acme", doc)
	assert.Equal(t, http.StatusForbidden, rec.Code)

	// Admin bypass reaches any tenant.
	rec = doRequest(t, r, http.MethodPut, "/api/menus/globo/downtown/dinner", "admin-secret", doc)
	assert.Equal(t, http.StatusOK, rec.Code)
}

func TestMenuVersions(t *testing.T) {
	f := newServerFixture()
	r := f.srv.router()
	doc := model.MenuDocument{Sections: []model.MenuSection{{Name: "Mains", Items: []model.MenuItem{{Name: "Pho"}}}}}

	rec := doRequest(t, r, http.MethodPut, "/api/menus/acme/downtown/dinner", "key-acme", doc)
	require.Equal(t, http.StatusOK, rec.Code)

	rec = doRequest(t, r, http.MethodGet, "/api/menus/acme/downtown/dinner/versions", "key-acme", nil)
	require.Equal(t, http.StatusOK, rec.Code)

	var manifest model.VersionManifest
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &manifest))
	require.Len(t, manifest.Versions, 1)
	assert.Equal(t, manifest.Current, manifest.Versions[0].ID)
	assert.Equal(t, "acme", manifest.Versions[0].Actor)
}

func TestLiveURL(t *testing.T) {
	s := &server{liveBaseURL: "https://cdn.example.com/menus/"}
	assert.Equal(t, "https://cdn.example.com/menus/a/b__c.json", s.liveURL("a/b__c.json"))

	s.liveBaseURL = ""
	assert.Equal(t, "a/b__c.json", s.liveURL("a/b__c.json"))
}
