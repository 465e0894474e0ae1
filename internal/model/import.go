package model

import "time"

// ImportStatus represents the lifecycle state of an import job.
type ImportStatus string

const (
	ImportStatusPending    ImportStatus = "pending"
	ImportStatusProcessing ImportStatus = "processing"
	ImportStatusSuccess    ImportStatus = "success"
	ImportStatusPartial    ImportStatus = "partial"
	ImportStatusFailed     ImportStatus = "failed"
)

// ImportJob records one attempt to ingest a batch from an upstream source.
// At most one success-status job exists per distinct payload hash; that row
// is the idempotency boundary for redelivered webhooks.
type ImportJob struct {
	ID           string       `json:"id"`
	Source       string       `json:"source"`
	JobID        string       `json:"job_id"`
	DatasetID    string       `json:"dataset_id"`
	PayloadHash  string       `json:"payload_hash"`
	ArchiveKey   string       `json:"archive_key"`
	Status       ImportStatus `json:"status"`
	ErrorSummary string       `json:"error_summary,omitempty"`
	ItemCount    int          `json:"item_count"`
	CreatedAt    time.Time    `json:"created_at"`
	UpdatedAt    time.Time    `json:"updated_at"`
}

// ImportReport summarizes what one ingestion run actually did.
type ImportReport struct {
	JobID              string   `json:"job_id"`
	DatasetID          string   `json:"dataset_id"`
	PayloadHash        string   `json:"payload_hash"`
	ArchiveKey         string   `json:"archive_key"`
	Duplicate          bool     `json:"duplicate"`
	ItemCount          int      `json:"item_count"`
	RestaurantsCreated int      `json:"restaurants_created"`
	RestaurantsSeen    int      `json:"restaurants_seen"`
	MenusCreated       int      `json:"menus_created"`
	ClaimsIssued       int      `json:"claims_issued"`
	Errors             []string `json:"errors,omitempty"`
}
