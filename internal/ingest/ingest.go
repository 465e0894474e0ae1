// Package ingest drives one ingestion job end to end: fetch, hash-check,
// raw archive, normalize, persist, status update. Replays of a
// byte-identical batch short-circuit on the payload hash, which is what
// makes redelivered completion webhooks safe.
package ingest

import (
	"bytes"
	"compress/gzip"
	"context"
	"encoding/json"
	"fmt"
	"strconv"
	"strings"
	"time"

	"github.com/google/uuid"
	"github.com/rotisserie/eris"
	"go.uber.org/zap"

	"github.com/robertroyster/lookbook-admin/internal/blob"
	"github.com/robertroyster/lookbook-admin/internal/claims"
	"github.com/robertroyster/lookbook-admin/internal/fingerprint"
	"github.com/robertroyster/lookbook-admin/internal/identity"
	"github.com/robertroyster/lookbook-admin/internal/model"
	"github.com/robertroyster/lookbook-admin/internal/normalize"
	"github.com/robertroyster/lookbook-admin/internal/store"
	"github.com/robertroyster/lookbook-admin/pkg/scrapehub"
)

// maxErrorSummary caps the joined per-entity error summary stored on a job.
const maxErrorSummary = 1000

// JobRef identifies one upstream run to ingest.
type JobRef struct {
	Source    string
	JobID     string
	DatasetID string
}

// Ingestor orchestrates ingestion jobs.
type Ingestor struct {
	store    store.Store
	blobs    blob.Store
	client   scrapehub.Client
	resolver *identity.Resolver
	issuer   *claims.Issuer
	now      func() time.Time
}

// New creates an Ingestor with all dependencies.
func New(st store.Store, blobs blob.Store, client scrapehub.Client, resolver *identity.Resolver, issuer *claims.Issuer) *Ingestor {
	return &Ingestor{
		store:    st,
		blobs:    blobs,
		client:   client,
		resolver: resolver,
		issuer:   issuer,
		now:      time.Now,
	}
}

// HandleFailedNotification records a failed import up front, without
// fetching or normalizing, for failed/aborted/timed-out completion events.
func (i *Ingestor) HandleFailedNotification(ctx context.Context, ref JobRef, statusMessage string) error {
	now := i.now().UTC()
	job := &model.ImportJob{
		ID:           uuid.New().String(),
		Source:       ref.Source,
		JobID:        ref.JobID,
		DatasetID:    ref.DatasetID,
		Status:       model.ImportStatusFailed,
		ErrorSummary: statusMessage,
		CreatedAt:    now,
		UpdatedAt:    now,
	}
	if err := i.store.CreateImportJob(ctx, job); err != nil {
		return eris.Wrap(err, "ingest: record failed job")
	}
	zap.L().Warn("ingest: upstream job failed",
		zap.String("job_id", ref.JobID),
		zap.String("dataset_id", ref.DatasetID),
		zap.String("status_message", statusMessage),
	)
	return nil
}

// Run ingests the batch for the given job. Upstream fetch failure is fatal
// to the job; per-entity failures are isolated and reflected in the job's
// terminal status.
func (i *Ingestor) Run(ctx context.Context, ref JobRef) (*model.ImportReport, error) {
	log := zap.L().With(
		zap.String("component", "ingest"),
		zap.String("job_id", ref.JobID),
		zap.String("dataset_id", ref.DatasetID),
	)

	// Fetch.
	items, err := i.client.FetchBatch(ctx, ref.DatasetID)
	if err != nil {
		if recordErr := i.HandleFailedNotification(ctx, ref, "fetch: "+err.Error()); recordErr != nil {
			log.Error("ingest: failed to record fetch failure", zap.Error(recordErr))
		}
		return nil, eris.Wrap(err, "ingest: fetch batch")
	}

	raw, err := json.Marshal(items)
	if err != nil {
		return nil, eris.Wrap(err, "ingest: serialize batch")
	}
	hash := fingerprint.HashBytes(raw)

	report := &model.ImportReport{
		JobID:       ref.JobID,
		DatasetID:   ref.DatasetID,
		PayloadHash: hash,
		ItemCount:   len(items),
	}

	// Hash-check: a prior successful import of the identical payload makes
	// this delivery a no-op.
	prior, err := i.store.FindImportByHash(ctx, hash, model.ImportStatusSuccess)
	if err != nil {
		return nil, eris.Wrap(err, "ingest: hash lookup")
	}
	if prior != nil {
		log.Info("ingest: duplicate payload, skipping",
			zap.String("payload_hash", hash),
			zap.String("prior_job", prior.JobID),
		)
		report.Duplicate = true
		report.ArchiveKey = prior.ArchiveKey
		return report, nil
	}

	// Archive the raw payload before touching any relational state.
	archiveKey := fmt.Sprintf("raw/%s/%s.json.gz", ref.Source, ref.JobID)
	compressed, err := gzipBytes(raw)
	if err != nil {
		return nil, eris.Wrap(err, "ingest: compress payload")
	}
	err = i.blobs.Put(ctx, archiveKey, compressed, "application/gzip", map[string]string{
		"job_id":       ref.JobID,
		"dataset_id":   ref.DatasetID,
		"payload_hash": hash,
		"item_count":   strconv.Itoa(len(items)),
	})
	if err != nil {
		return nil, eris.Wrap(err, "ingest: archive payload")
	}
	report.ArchiveKey = archiveKey

	now := i.now().UTC()
	job := &model.ImportJob{
		ID:          uuid.New().String(),
		Source:      ref.Source,
		JobID:       ref.JobID,
		DatasetID:   ref.DatasetID,
		PayloadHash: hash,
		ArchiveKey:  archiveKey,
		Status:      model.ImportStatusProcessing,
		ItemCount:   len(items),
		CreatedAt:   now,
		UpdatedAt:   now,
	}
	if err := i.store.CreateImportJob(ctx, job); err != nil {
		return nil, eris.Wrap(err, "ingest: create job row")
	}

	// Per-entity processing. One record's failure never stops the loop.
	for idx, record := range items {
		if err := i.processRecord(ctx, job, ref.Source, record, report); err != nil {
			id := recordIdentifier(record, idx)
			log.Warn("ingest: entity failed", zap.String("record", id), zap.Error(err))
			report.Errors = append(report.Errors, fmt.Sprintf("%s: %s", id, err.Error()))
			continue
		}
	}
	report.RestaurantsSeen = len(items) - len(report.Errors)

	// Terminal status.
	status := model.ImportStatusSuccess
	summary := ""
	if len(report.Errors) > 0 {
		status = model.ImportStatusPartial
		summary = truncateSummary(strings.Join(report.Errors, "; "))
	}
	if err := i.store.UpdateImportJobStatus(ctx, job.ID, status, summary); err != nil {
		return report, eris.Wrap(err, "ingest: finalize job status")
	}

	log.Info("ingest: job complete",
		zap.String("status", string(status)),
		zap.Int("items", len(items)),
		zap.Int("restaurants_created", report.RestaurantsCreated),
		zap.Int("menus_created", report.MenusCreated),
		zap.Int("claims_issued", report.ClaimsIssued),
		zap.Int("errors", len(report.Errors)),
	)
	return report, nil
}

// processRecord handles one upstream store record: strip reviews, resolve
// identity, create the draft tree, issue a claim when newly discovered.
func (i *Ingestor) processRecord(ctx context.Context, job *model.ImportJob, source string, record map[string]any, report *model.ImportReport) (err error) {
	defer func() {
		// A malformed record must not unwind the batch.
		if r := recover(); r != nil {
			err = eris.Errorf("panic: %v", r)
		}
	}()

	normalize.StripReviews(record)

	venue, err := normalize.Normalize(record)
	if err != nil {
		return err
	}

	res, err := i.resolver.Resolve(ctx, source, venue)
	if err != nil {
		return err
	}

	if err := i.createDraft(ctx, job, source, res.RestaurantID, venue); err != nil {
		return err
	}

	report.MenusCreated++
	if res.Created {
		report.RestaurantsCreated++
		issued, err := i.issuer.Issue(ctx, res.RestaurantID)
		if err != nil {
			return eris.Wrap(err, "issue claim")
		}
		if issued {
			report.ClaimsIssued++
		}
	}
	return nil
}

// createDraft persists a fresh draft menu tree. Every successful ingestion
// of a restaurant gets its own draft; drafts are never merged.
func (i *Ingestor) createDraft(ctx context.Context, job *model.ImportJob, source, restaurantID string, venue *normalize.Store) error {
	now := i.now().UTC()
	menu := &model.DraftMenu{
		ID:           uuid.New().String(),
		RestaurantID: restaurantID,
		ImportJobID:  job.ID,
		Source:       source,
		Status:       model.DraftStatusUnclaimed,
		CreatedAt:    now,
	}
	if err := i.store.CreateDraftMenu(ctx, menu); err != nil {
		return eris.Wrap(err, "create draft menu")
	}

	for pos, cat := range venue.Categories {
		section := &model.DraftSection{
			ID:       uuid.New().String(),
			MenuID:   menu.ID,
			Name:     cat.Name,
			Position: pos,
		}
		if err := i.store.CreateDraftSection(ctx, section); err != nil {
			return eris.Wrapf(err, "create section %s", cat.Name)
		}

		items := make([]model.DraftItem, 0, len(cat.Items))
		for ipos, it := range cat.Items {
			items = append(items, model.DraftItem{
				ID:          uuid.New().String(),
				SectionID:   section.ID,
				Name:        it.Name,
				Description: it.Description,
				PriceCents:  it.PriceCents,
				ImageURL:    it.ImageURL,
				Position:    ipos,
				Raw:         it.Raw,
			})
		}
		if err := i.store.CreateDraftItems(ctx, items); err != nil {
			return eris.Wrapf(err, "create items for %s", cat.Name)
		}
	}
	return nil
}

func recordIdentifier(record map[string]any, idx int) string {
	for _, key := range []string{"url", "sourceUrl", "title", "name", "placeId"} {
		if v, ok := record[key].(string); ok && v != "" {
			return v
		}
	}
	return fmt.Sprintf("record %d", idx)
}

func truncateSummary(s string) string {
	if len(s) <= maxErrorSummary {
		return s
	}
	return s[:maxErrorSummary]
}

func gzipBytes(data []byte) ([]byte, error) {
	var buf bytes.Buffer
	gz := gzip.NewWriter(&buf)
	if _, err := gz.Write(data); err != nil {
		return nil, err
	}
	if err := gz.Close(); err != nil {
		return nil, err
	}
	return buf.Bytes(), nil
}
