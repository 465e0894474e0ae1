// Package storetest provides an in-memory store.Store for unit tests.
package storetest

import (
	"context"
	"sync"
	"time"

	"github.com/rotisserie/eris"

	"github.com/robertroyster/lookbook-admin/internal/model"
)

// Fake is a thread-safe in-memory store. Zero value is not usable; call New.
type Fake struct {
	mu sync.Mutex

	ImportJobs  map[string]*model.ImportJob
	Restaurants map[string]*model.Restaurant
	Sources     map[string]*model.RestaurantSource
	Menus       map[string]*model.DraftMenu
	Sections    map[string]*model.DraftSection
	Items       map[string]*model.DraftItem
	Claims      map[string]*model.ClaimCode

	// Error injection, one-shot per call site.
	CreateImportJobErr  error
	CreateRestaurantErr error
	CreateDraftMenuErr  error
	CreateClaimErr      error
	FindImportErr       error
}

// New creates an empty Fake.
func New() *Fake {
	return &Fake{
		ImportJobs:  map[string]*model.ImportJob{},
		Restaurants: map[string]*model.Restaurant{},
		Sources:     map[string]*model.RestaurantSource{},
		Menus:       map[string]*model.DraftMenu{},
		Sections:    map[string]*model.DraftSection{},
		Items:       map[string]*model.DraftItem{},
		Claims:      map[string]*model.ClaimCode{},
	}
}

func (f *Fake) CreateImportJob(_ context.Context, job *model.ImportJob) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	if err := f.CreateImportJobErr; err != nil {
		f.CreateImportJobErr = nil
		return err
	}
	cp := *job
	f.ImportJobs[job.ID] = &cp
	return nil
}

func (f *Fake) UpdateImportJobStatus(_ context.Context, id string, status model.ImportStatus, errorSummary string) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	job, ok := f.ImportJobs[id]
	if !ok {
		return eris.Errorf("import job %s not found", id)
	}
	job.Status = status
	job.ErrorSummary = errorSummary
	job.UpdatedAt = time.Now().UTC()
	return nil
}

func (f *Fake) GetImportJob(_ context.Context, id string) (*model.ImportJob, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	job, ok := f.ImportJobs[id]
	if !ok {
		return nil, eris.Errorf("import job %s not found", id)
	}
	cp := *job
	return &cp, nil
}

func (f *Fake) FindImportByHash(_ context.Context, payloadHash string, status model.ImportStatus) (*model.ImportJob, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	if err := f.FindImportErr; err != nil {
		f.FindImportErr = nil
		return nil, err
	}
	for _, job := range f.ImportJobs {
		if job.PayloadHash == payloadHash && job.Status == status {
			cp := *job
			return &cp, nil
		}
	}
	return nil, nil
}

func (f *Fake) CreateRestaurant(_ context.Context, r *model.Restaurant) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	if err := f.CreateRestaurantErr; err != nil {
		f.CreateRestaurantErr = nil
		return err
	}
	cp := *r
	f.Restaurants[r.ID] = &cp
	return nil
}

func (f *Fake) GetRestaurant(_ context.Context, id string) (*model.Restaurant, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	r, ok := f.Restaurants[id]
	if !ok {
		return nil, nil
	}
	cp := *r
	return &cp, nil
}

func (f *Fake) CreateRestaurantSource(_ context.Context, src *model.RestaurantSource) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	for _, existing := range f.Sources {
		if existing.SourceURL == src.SourceURL {
			return eris.Errorf("source url %s already exists", src.SourceURL)
		}
	}
	cp := *src
	f.Sources[src.ID] = &cp
	return nil
}

func (f *Fake) FindSourceByURL(_ context.Context, sourceURL string) (*model.RestaurantSource, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	for _, src := range f.Sources {
		if src.SourceURL == sourceURL {
			cp := *src
			return &cp, nil
		}
	}
	return nil, nil
}

func (f *Fake) TouchSource(_ context.Context, id string, seenAt time.Time) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	src, ok := f.Sources[id]
	if !ok {
		return eris.Errorf("restaurant source %s not found", id)
	}
	src.LastSeenAt = seenAt
	return nil
}

func (f *Fake) CreateDraftMenu(_ context.Context, m *model.DraftMenu) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	if err := f.CreateDraftMenuErr; err != nil {
		f.CreateDraftMenuErr = nil
		return err
	}
	cp := *m
	f.Menus[m.ID] = &cp
	return nil
}

func (f *Fake) CreateDraftSection(_ context.Context, s *model.DraftSection) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	cp := *s
	f.Sections[s.ID] = &cp
	return nil
}

func (f *Fake) CreateDraftItems(_ context.Context, items []model.DraftItem) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	for _, item := range items {
		cp := item
		f.Items[item.ID] = &cp
	}
	return nil
}

func (f *Fake) CountClaims(_ context.Context, restaurantID string) (int, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	n := 0
	for _, c := range f.Claims {
		if c.RestaurantID == restaurantID {
			n++
		}
	}
	return n, nil
}

func (f *Fake) CreateClaimCode(_ context.Context, c *model.ClaimCode) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	if err := f.CreateClaimErr; err != nil {
		f.CreateClaimErr = nil
		return err
	}
	cp := *c
	f.Claims[c.ID] = &cp
	return nil
}

// Counts returns row counts per table under the lock, for assertions that
// race with background writers.
func (f *Fake) Counts() (jobs, restaurants, menus, claims int) {
	f.mu.Lock()
	defer f.mu.Unlock()
	return len(f.ImportJobs), len(f.Restaurants), len(f.Menus), len(f.Claims)
}

func (f *Fake) Ping(context.Context) error    { return nil }
func (f *Fake) Migrate(context.Context) error { return nil }
func (f *Fake) Close() error                  { return nil }
