package main

import (
	"context"
	"crypto/subtle"
	"encoding/json"
	"net/http"
	"strings"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/cors"
	"go.uber.org/zap"

	"github.com/robertroyster/lookbook-admin/internal/auth"
	"github.com/robertroyster/lookbook-admin/internal/ingest"
	"github.com/robertroyster/lookbook-admin/internal/model"
	"github.com/robertroyster/lookbook-admin/internal/publish"
	"github.com/robertroyster/lookbook-admin/pkg/scrapehub"
)

// server bundles everything the HTTP handlers need.
type server struct {
	ingestor  *ingest.Ingestor
	publisher *publish.Publisher
	hub       scrapehub.Client
	keyring   *auth.Keyring

	source        string
	webhookSecret string
	webhookURL    string
	liveBaseURL   string
	corsOrigins   []string

	// baseCtx outlives individual requests; async ingestion runs on it so
	// a closed webhook connection does not cancel the import.
	baseCtx context.Context
}

func (s *server) router() http.Handler {
	r := chi.NewRouter()

	if len(s.corsOrigins) > 0 {
		r.Use(cors.Handler(cors.Options{
			AllowedOrigins: s.corsOrigins,
			AllowedMethods: []string{http.MethodGet, http.MethodPut, http.MethodPost, http.MethodOptions},
			AllowedHeaders: []string{"Authorization", "Content-Type"},
		}))
	}

	r.Get("/health", s.handleHealth)
	r.Post("/webhook/scrape", s.handleScrapeWebhook)

	r.Group(func(r chi.Router) {
		r.Use(s.keyring.Middleware)
		r.Post("/api/ingest/start", s.handleIngestStart)
		r.Put("/api/menus/{tenant}/{store}/{menu}", s.handleMenuSave)
		r.Get("/api/menus/{tenant}/{store}/{menu}/versions", s.handleMenuVersions)
	})

	return r
}

func writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(v)
}

func writeError(w http.ResponseWriter, status int, msg string) {
	writeJSON(w, status, map[string]string{"error": msg})
}

func (s *server) handleHealth(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, http.StatusOK, map[string]string{"status": "ok"})
}

// handleIngestStart launches a crawl for the given listing URLs. Privileged
// callers only; results arrive later via the completion webhook.
func (s *server) handleIngestStart(w http.ResponseWriter, r *http.Request) {
	id, _ := auth.FromContext(r.Context())
	if id == nil || !id.Privileged {
		writeError(w, http.StatusForbidden, "privileged key required")
		return
	}

	var req struct {
		URLs []string `json:"urls"`
	}
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeError(w, http.StatusBadRequest, "invalid request body")
		return
	}
	if len(req.URLs) == 0 {
		writeError(w, http.StatusBadRequest, "urls is required")
		return
	}

	info, err := s.hub.StartJob(r.Context(), req.URLs)
	if err != nil {
		zap.L().Error("serve: start crawl failed", zap.Error(err))
		writeError(w, http.StatusBadGateway, "failed to start crawl job")
		return
	}

	writeJSON(w, http.StatusAccepted, map[string]any{
		"jobId":                  info.JobID,
		"datasetId":              info.DatasetID,
		"status":                 info.Status,
		"itemCount":              len(req.URLs),
		"notificationConfigured": s.webhookURL != "",
	})
}

// handleScrapeWebhook receives completion notifications from the scraping
// service. Ingestion runs asynchronously; redelivered notifications are
// safe because ingestion dedupes on the payload hash.
func (s *server) handleScrapeWebhook(w http.ResponseWriter, r *http.Request) {
	if s.webhookSecret != "" {
		got := r.Header.Get("X-Webhook-Secret")
		if subtle.ConstantTimeCompare([]byte(got), []byte(s.webhookSecret)) != 1 {
			writeError(w, http.StatusUnauthorized, "bad webhook secret")
			return
		}
	}

	var n scrapehub.Notification
	if err := json.NewDecoder(r.Body).Decode(&n); err != nil {
		writeError(w, http.StatusBadRequest, "invalid notification body")
		return
	}
	if n.JobID == "" {
		writeError(w, http.StatusBadRequest, "jobId is required")
		return
	}

	ref := ingest.JobRef{Source: s.source, JobID: n.JobID, DatasetID: n.DatasetID}

	if n.Terminal() {
		if err := s.ingestor.HandleFailedNotification(r.Context(), ref, n.EventType+": "+n.StatusMessage); err != nil {
			zap.L().Error("serve: record failed notification", zap.Error(err))
			writeError(w, http.StatusInternalServerError, "failed to record notification")
			return
		}
		writeJSON(w, http.StatusOK, map[string]string{"status": "recorded"})
		return
	}

	go func() {
		report, err := s.ingestor.Run(s.baseCtx, ref)
		if err != nil {
			zap.L().Error("serve: webhook ingestion failed",
				zap.String("job_id", ref.JobID),
				zap.Error(err),
			)
			return
		}
		zap.L().Info("serve: webhook ingestion complete",
			zap.String("job_id", ref.JobID),
			zap.Bool("duplicate", report.Duplicate),
			zap.Int("restaurants_created", report.RestaurantsCreated),
		)
	}()

	writeJSON(w, http.StatusAccepted, map[string]string{
		"status": "accepted",
		"jobId":  n.JobID,
	})
}

func menuKeyFromRequest(r *http.Request) publish.MenuKey {
	return publish.MenuKey{
		Tenant: chi.URLParam(r, "tenant"),
		Store:  chi.URLParam(r, "store"),
		Menu:   chi.URLParam(r, "menu"),
	}
}

func (s *server) handleMenuSave(w http.ResponseWriter, r *http.Request) {
	id, _ := auth.FromContext(r.Context())
	key := menuKeyFromRequest(r)
	if !id.Authorize(key.Tenant) {
		writeError(w, http.StatusForbidden, "tenant mismatch")
		return
	}
	if err := key.Validate(); err != nil {
		writeError(w, http.StatusBadRequest, "invalid menu key")
		return
	}

	var doc model.MenuDocument
	if err := json.NewDecoder(r.Body).Decode(&doc); err != nil {
		writeError(w, http.StatusBadRequest, "invalid menu document")
		return
	}

	actor := id.TenantID
	if id.Privileged {
		actor = "admin"
	}
	res, err := s.publisher.Save(r.Context(), key, &doc, model.WriteTypeEdit, actor)
	if err != nil {
		zap.L().Error("serve: menu save failed",
			zap.String("key", key.LiveKey()),
			zap.Error(err),
		)
		writeError(w, http.StatusInternalServerError, "failed to save menu")
		return
	}

	writeJSON(w, http.StatusOK, map[string]any{
		"versionId": res.VersionID,
		"liveUrl":   s.liveURL(res.LiveKey),
		"itemCount": res.ItemCount,
	})
}

func (s *server) handleMenuVersions(w http.ResponseWriter, r *http.Request) {
	id, _ := auth.FromContext(r.Context())
	key := menuKeyFromRequest(r)
	if !id.Authorize(key.Tenant) {
		writeError(w, http.StatusForbidden, "tenant mismatch")
		return
	}

	manifest, err := s.publisher.History(r.Context(), key)
	if err != nil {
		writeError(w, http.StatusBadRequest, "invalid menu key")
		return
	}
	writeJSON(w, http.StatusOK, manifest)
}

func (s *server) liveURL(key string) string {
	if s.liveBaseURL == "" {
		return key
	}
	return strings.TrimSuffix(s.liveBaseURL, "/") + "/" + key
}
