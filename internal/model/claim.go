package model

import "time"

// ClaimCode is a single-use ownership-claim secret for a restaurant. Only
// the hash of the code is stored; the raw code is surfaced once at issuance
// and is unrecoverable afterwards.
type ClaimCode struct {
	ID           string     `json:"id"`
	RestaurantID string     `json:"restaurant_id"`
	CodeHash     string     `json:"code_hash"`
	ExpiresAt    time.Time  `json:"expires_at"`
	ClaimedAt    *time.Time `json:"claimed_at,omitempty"`
	CreatedAt    time.Time  `json:"created_at"`
}
