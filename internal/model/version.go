package model

import "time"

// WriteType distinguishes how a menu document was produced.
type WriteType string

const (
	WriteTypeEdit   WriteType = "edit"
	WriteTypeUpload WriteType = "upload"
)

// MaxManifestVersions caps the version list kept in a manifest. Snapshots
// past the cap stay in blob storage; only their manifest listing is evicted.
const MaxManifestVersions = 100

// VersionEntry records one save of a menu document.
type VersionEntry struct {
	ID        string    `json:"id"`
	Type      WriteType `json:"type"`
	Actor     string    `json:"actor"`
	ItemCount int       `json:"item_count"`
}

// VersionManifest indexes all snapshot versions for one menu key, newest
// first, with a pointer to the current one.
type VersionManifest struct {
	Current  string         `json:"current"`
	Versions []VersionEntry `json:"versions"`
}

// AuditLogEntry is one append-only audit line for a menu key, bucketed by
// calendar day. Never rewritten.
type AuditLogEntry struct {
	Timestamp time.Time `json:"timestamp"`
	VersionID string    `json:"version_id"`
	Type      WriteType `json:"type"`
	Actor     string    `json:"actor"`
	ItemCount int       `json:"item_count"`
}

// MenuDocument is the full menu payload the admin surface reads and writes.
// Sections and items mirror the draft hierarchy but carry whatever the
// editor saved; the core treats the document as mostly opaque.
type MenuDocument struct {
	Title    string        `json:"title,omitempty"`
	Sections []MenuSection `json:"sections"`
	Updated  time.Time     `json:"updated,omitempty"`
}

// MenuSection is one displayed category in a menu document.
type MenuSection struct {
	Name  string     `json:"name"`
	Items []MenuItem `json:"items"`
}

// MenuItem is one entry in a menu document.
type MenuItem struct {
	Name        string `json:"name"`
	Description string `json:"description,omitempty"`
	PriceCents  *int64 `json:"price_cents,omitempty"`
	ImageURL    string `json:"image_url,omitempty"`
}

// ItemCount returns the total number of items across all sections.
func (d *MenuDocument) ItemCount() int {
	n := 0
	for _, s := range d.Sections {
		n += len(s.Items)
	}
	return n
}
