// Package store defines the tabular persistence interface for ingestion
// entities, with SQLite and Postgres implementations. No transactions are
// assumed across operations; each statement commits independently and
// partial failure is handled by the caller.
package store

import (
	"context"
	"time"

	"github.com/robertroyster/lookbook-admin/internal/model"
)

// Store is the persistence interface for the ingestion pipeline.
// Find methods return (nil, nil) when no row matches.
type Store interface {
	// Import jobs
	CreateImportJob(ctx context.Context, job *model.ImportJob) error
	UpdateImportJobStatus(ctx context.Context, id string, status model.ImportStatus, errorSummary string) error
	GetImportJob(ctx context.Context, id string) (*model.ImportJob, error)
	FindImportByHash(ctx context.Context, payloadHash string, status model.ImportStatus) (*model.ImportJob, error)

	// Restaurants
	CreateRestaurant(ctx context.Context, r *model.Restaurant) error
	GetRestaurant(ctx context.Context, id string) (*model.Restaurant, error)

	// Restaurant sources
	CreateRestaurantSource(ctx context.Context, src *model.RestaurantSource) error
	FindSourceByURL(ctx context.Context, sourceURL string) (*model.RestaurantSource, error)
	TouchSource(ctx context.Context, id string, seenAt time.Time) error

	// Draft menus
	CreateDraftMenu(ctx context.Context, m *model.DraftMenu) error
	CreateDraftSection(ctx context.Context, s *model.DraftSection) error
	CreateDraftItems(ctx context.Context, items []model.DraftItem) error

	// Claim codes
	CountClaims(ctx context.Context, restaurantID string) (int, error)
	CreateClaimCode(ctx context.Context, c *model.ClaimCode) error

	// Lifecycle
	Ping(ctx context.Context) error
	Migrate(ctx context.Context) error
	Close() error
}
