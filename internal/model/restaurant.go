package model

import "time"

// Restaurant is a physical venue. It is created once, on first sighting
// from any upstream source; later sightings never duplicate or overwrite it.
type Restaurant struct {
	ID        string    `json:"id"`
	Name      string    `json:"name"`
	Street    string    `json:"street,omitempty"`
	City      string    `json:"city,omitempty"`
	State     string    `json:"state,omitempty"`
	ZipCode   string    `json:"zip_code,omitempty"`
	Phone     string    `json:"phone,omitempty"`
	Website   string    `json:"website,omitempty"`
	CreatedAt time.Time `json:"created_at"`
}

// RestaurantSource binds a restaurant to one upstream identity. SourceURL is
// globally unique and is the sole dedup key for ingestion.
type RestaurantSource struct {
	ID           string    `json:"id"`
	RestaurantID string    `json:"restaurant_id"`
	Source       string    `json:"source"`
	SourceURL    string    `json:"source_url"`
	ExternalID   string    `json:"external_id,omitempty"`
	LastSeenAt   time.Time `json:"last_seen_at"`
	CreatedAt    time.Time `json:"created_at"`
}
