package model

import "time"

// DraftStatus represents the review state of an ingested menu.
type DraftStatus string

const (
	DraftStatusUnclaimed DraftStatus = "unclaimed"
	DraftStatusClaimed   DraftStatus = "claimed"
	DraftStatusPublished DraftStatus = "published"
)

// DraftMenu is a hierarchical snapshot of one ingestion's menu content for a
// restaurant. A fresh draft is created on every successful ingestion; drafts
// are never merged.
type DraftMenu struct {
	ID           string      `json:"id"`
	RestaurantID string      `json:"restaurant_id"`
	ImportJobID  string      `json:"import_job_id"`
	Source       string      `json:"source"`
	Status       DraftStatus `json:"status"`
	CreatedAt    time.Time   `json:"created_at"`
}

// DraftSection is one ordered category group within a draft menu.
type DraftSection struct {
	ID       string `json:"id"`
	MenuID   string `json:"menu_id"`
	Name     string `json:"name"`
	Position int    `json:"position"`
}

// DraftItem is a single normalized menu item. PriceCents is nil when the
// upstream price was absent or unparseable. Raw retains the original price
// representation and option/variant data for later reconciliation.
type DraftItem struct {
	ID          string         `json:"id"`
	SectionID   string         `json:"section_id"`
	Name        string         `json:"name"`
	Description string         `json:"description,omitempty"`
	PriceCents  *int64         `json:"price_cents,omitempty"`
	ImageURL    string         `json:"image_url,omitempty"`
	Position    int            `json:"position"`
	Raw         map[string]any `json:"raw,omitempty"`
}
