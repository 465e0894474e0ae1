// Package identity decides whether an incoming venue already exists, keyed
// solely by its canonical source URL.
package identity

import (
	"context"
	"fmt"
	"regexp"
	"strings"
	"time"

	"github.com/google/uuid"
	"github.com/rotisserie/eris"
	"go.uber.org/zap"

	"github.com/robertroyster/lookbook-admin/internal/model"
	"github.com/robertroyster/lookbook-admin/internal/normalize"
	"github.com/robertroyster/lookbook-admin/internal/store"
)

// Resolver resolves normalized venues to restaurant rows.
type Resolver struct {
	store store.Store
	now   func() time.Time
}

// NewResolver creates a Resolver backed by the given store.
func NewResolver(st store.Store) *Resolver {
	return &Resolver{store: st, now: time.Now}
}

// Resolution is the outcome of resolving one venue.
type Resolution struct {
	RestaurantID string
	SourceURL    string
	Created      bool
}

// Resolve looks up the venue by canonical source URL. A hit refreshes
// last_seen_at and leaves the restaurant row untouched — re-sightings never
// overwrite curated data, even when the upstream name differs. A miss
// creates the restaurant plus its first source row.
func (r *Resolver) Resolve(ctx context.Context, source string, venue *normalize.Store) (*Resolution, error) {
	sourceURL := CanonicalURL(venue)
	if sourceURL == "" {
		return nil, eris.Errorf("identity: venue %q has no resolvable source url", venue.Name)
	}

	existing, err := r.store.FindSourceByURL(ctx, sourceURL)
	if err != nil {
		return nil, eris.Wrap(err, "identity: lookup source")
	}

	now := r.now().UTC()
	if existing != nil {
		if err := r.store.TouchSource(ctx, existing.ID, now); err != nil {
			return nil, eris.Wrap(err, "identity: touch source")
		}
		return &Resolution{RestaurantID: existing.RestaurantID, SourceURL: sourceURL}, nil
	}

	restaurant := &model.Restaurant{
		ID:        uuid.New().String(),
		Name:      venue.Name,
		Street:    venue.Street,
		City:      venue.City,
		State:     venue.State,
		ZipCode:   venue.ZipCode,
		Phone:     venue.Phone,
		Website:   venue.Website,
		CreatedAt: now,
	}
	if err := r.store.CreateRestaurant(ctx, restaurant); err != nil {
		return nil, eris.Wrap(err, "identity: create restaurant")
	}

	src := &model.RestaurantSource{
		ID:           uuid.New().String(),
		RestaurantID: restaurant.ID,
		Source:       source,
		SourceURL:    sourceURL,
		ExternalID:   venue.ExternalID,
		LastSeenAt:   now,
		CreatedAt:    now,
	}
	if err := r.store.CreateRestaurantSource(ctx, src); err != nil {
		return nil, eris.Wrap(err, "identity: create source")
	}

	zap.L().Info("identity: new restaurant discovered",
		zap.String("restaurant_id", restaurant.ID),
		zap.String("name", restaurant.Name),
		zap.String("source_url", sourceURL),
	)
	return &Resolution{RestaurantID: restaurant.ID, SourceURL: sourceURL, Created: true}, nil
}

// CanonicalURL returns the venue's own URL, or a synthetic stable URL built
// from the name slug and external id when upstream supplied none.
func CanonicalURL(venue *normalize.Store) string {
	if venue.SourceURL != "" {
		return venue.SourceURL
	}
	if venue.Name == "" || venue.ExternalID == "" {
		return ""
	}
	return fmt.Sprintf("lookbook://%s/%s", Slug(venue.Name), venue.ExternalID)
}

var nonSlug = regexp.MustCompile(`[^a-z0-9]+`)

// Slug lowercases a name and collapses non-alphanumeric runs to hyphens.
func Slug(name string) string {
	s := nonSlug.ReplaceAllString(strings.ToLower(name), "-")
	return strings.Trim(s, "-")
}
