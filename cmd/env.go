package main

import (
	"context"
	"time"

	"github.com/rotisserie/eris"

	"github.com/robertroyster/lookbook-admin/internal/blob"
	"github.com/robertroyster/lookbook-admin/internal/claims"
	"github.com/robertroyster/lookbook-admin/internal/identity"
	"github.com/robertroyster/lookbook-admin/internal/ingest"
	"github.com/robertroyster/lookbook-admin/internal/publish"
	"github.com/robertroyster/lookbook-admin/internal/store"
	"github.com/robertroyster/lookbook-admin/pkg/scrapehub"
)

// appEnv holds the initialized store, clients, and pipeline components
// shared by the serve/ingest commands.
type appEnv struct {
	Store     store.Store
	Blobs     blob.Store
	Hub       scrapehub.Client
	Ingestor  *ingest.Ingestor
	Publisher *publish.Publisher
}

// Close releases resources held by the environment.
func (e *appEnv) Close() {
	if e.Store != nil {
		_ = e.Store.Close()
	}
}

func initStore(ctx context.Context) (store.Store, error) {
	switch cfg.Store.Driver {
	case "sqlite":
		path := cfg.Store.Path
		if path == "" {
			path = "lookbook.db"
		}
		return store.NewSQLite(path)
	case "postgres":
		return store.NewPostgres(ctx, cfg.Store.DatabaseURL)
	default:
		return nil, eris.Errorf("unsupported store driver: %s", cfg.Store.Driver)
	}
}

// initEnv sets up the store, blob storage, the scraping client, and the
// ingestion/publishing components. Callers should defer env.Close().
func initEnv(ctx context.Context) (*appEnv, error) {
	st, err := initStore(ctx)
	if err != nil {
		return nil, err
	}

	if err := st.Migrate(ctx); err != nil {
		_ = st.Close()
		return nil, eris.Wrap(err, "migrate store")
	}

	blobs, err := blob.NewFS(cfg.Blob.RootDir)
	if err != nil {
		_ = st.Close()
		return nil, eris.Wrap(err, "init blob store")
	}

	if cfg.Scrapehub.Token == "" {
		_ = st.Close()
		return nil, eris.New("scrapehub token is required (LOOKBOOK_SCRAPEHUB_TOKEN)")
	}
	hubOpts := []scrapehub.Option{scrapehub.WithBaseURL(cfg.Scrapehub.BaseURL)}
	if cfg.Scrapehub.WebhookURL != "" {
		hubOpts = append(hubOpts, scrapehub.WithWebhook(cfg.Scrapehub.WebhookURL))
	}
	hub := scrapehub.NewClient(cfg.Scrapehub.Token, cfg.Scrapehub.ActorID, hubOpts...)

	ttl := time.Duration(cfg.Claims.TTLDays) * 24 * time.Hour
	ingestor := ingest.New(st, blobs, hub,
		identity.NewResolver(st),
		claims.NewIssuer(st, ttl),
	)

	return &appEnv{
		Store:     st,
		Blobs:     blobs,
		Hub:       hub,
		Ingestor:  ingestor,
		Publisher: publish.New(blobs),
	}, nil
}
