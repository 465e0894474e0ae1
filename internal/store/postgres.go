package store

import (
	"context"
	"encoding/json"
	"time"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/rotisserie/eris"

	"github.com/robertroyster/lookbook-admin/internal/db"
	"github.com/robertroyster/lookbook-admin/internal/model"
)

// PostgresStore implements Store using pgxpool.
type PostgresStore struct {
	pool    db.Pool
	closeFn func()
}

// NewPostgres creates a PostgresStore with a connection pool.
func NewPostgres(ctx context.Context, connString string) (*PostgresStore, error) {
	pgxCfg, err := pgxpool.ParseConfig(connString)
	if err != nil {
		return nil, eris.Wrap(err, "postgres: parse config")
	}
	pgxCfg.MaxConns = 10
	pgxCfg.MinConns = 2
	pgxCfg.MaxConnLifetime = 30 * time.Minute
	pgxCfg.MaxConnIdleTime = 5 * time.Minute

	pool, err := pgxpool.NewWithConfig(ctx, pgxCfg)
	if err != nil {
		return nil, eris.Wrap(err, "postgres: create pool")
	}
	if err := pool.Ping(ctx); err != nil {
		pool.Close()
		return nil, eris.Wrap(err, "postgres: ping")
	}
	return &PostgresStore{pool: pool, closeFn: pool.Close}, nil
}

const postgresMigration = `
CREATE TABLE IF NOT EXISTS import_jobs (
	id            TEXT PRIMARY KEY,
	source        TEXT NOT NULL,
	job_id        TEXT NOT NULL,
	dataset_id    TEXT NOT NULL,
	payload_hash  TEXT NOT NULL,
	archive_key   TEXT NOT NULL DEFAULT '',
	status        TEXT NOT NULL DEFAULT 'pending',
	error_summary TEXT NOT NULL DEFAULT '',
	item_count    INTEGER NOT NULL DEFAULT 0,
	created_at    TIMESTAMPTZ NOT NULL DEFAULT now(),
	updated_at    TIMESTAMPTZ NOT NULL DEFAULT now()
);

CREATE TABLE IF NOT EXISTS restaurants (
	id         TEXT PRIMARY KEY,
	name       TEXT NOT NULL,
	street     TEXT NOT NULL DEFAULT '',
	city       TEXT NOT NULL DEFAULT '',
	state      TEXT NOT NULL DEFAULT '',
	zip_code   TEXT NOT NULL DEFAULT '',
	phone      TEXT NOT NULL DEFAULT '',
	website    TEXT NOT NULL DEFAULT '',
	created_at TIMESTAMPTZ NOT NULL DEFAULT now()
);

CREATE TABLE IF NOT EXISTS restaurant_sources (
	id            TEXT PRIMARY KEY,
	restaurant_id TEXT NOT NULL REFERENCES restaurants(id),
	source        TEXT NOT NULL,
	source_url    TEXT NOT NULL UNIQUE,
	external_id   TEXT NOT NULL DEFAULT '',
	last_seen_at  TIMESTAMPTZ NOT NULL,
	created_at    TIMESTAMPTZ NOT NULL DEFAULT now()
);

CREATE TABLE IF NOT EXISTS draft_menus (
	id            TEXT PRIMARY KEY,
	restaurant_id TEXT NOT NULL REFERENCES restaurants(id),
	import_job_id TEXT NOT NULL,
	source        TEXT NOT NULL,
	status        TEXT NOT NULL DEFAULT 'unclaimed',
	created_at    TIMESTAMPTZ NOT NULL DEFAULT now()
);

CREATE TABLE IF NOT EXISTS draft_sections (
	id       TEXT PRIMARY KEY,
	menu_id  TEXT NOT NULL REFERENCES draft_menus(id),
	name     TEXT NOT NULL,
	position INTEGER NOT NULL
);

CREATE TABLE IF NOT EXISTS draft_items (
	id          TEXT PRIMARY KEY,
	section_id  TEXT NOT NULL REFERENCES draft_sections(id),
	name        TEXT NOT NULL,
	description TEXT NOT NULL DEFAULT '',
	price_cents BIGINT,
	image_url   TEXT NOT NULL DEFAULT '',
	position    INTEGER NOT NULL,
	raw         JSONB
);

CREATE TABLE IF NOT EXISTS claim_codes (
	id            TEXT PRIMARY KEY,
	restaurant_id TEXT NOT NULL REFERENCES restaurants(id),
	code_hash     TEXT NOT NULL,
	expires_at    TIMESTAMPTZ NOT NULL,
	claimed_at    TIMESTAMPTZ,
	created_at    TIMESTAMPTZ NOT NULL DEFAULT now()
);

CREATE INDEX IF NOT EXISTS idx_import_jobs_hash ON import_jobs(payload_hash, status);
CREATE INDEX IF NOT EXISTS idx_sources_restaurant ON restaurant_sources(restaurant_id);
CREATE INDEX IF NOT EXISTS idx_draft_menus_restaurant ON draft_menus(restaurant_id);
CREATE INDEX IF NOT EXISTS idx_draft_sections_menu ON draft_sections(menu_id);
CREATE INDEX IF NOT EXISTS idx_draft_items_section ON draft_items(section_id);
CREATE INDEX IF NOT EXISTS idx_claim_codes_restaurant ON claim_codes(restaurant_id);
`

func (s *PostgresStore) Migrate(ctx context.Context) error {
	_, err := s.pool.Exec(ctx, postgresMigration)
	return eris.Wrap(err, "postgres: migrate")
}

func (s *PostgresStore) Ping(ctx context.Context) error {
	return eris.Wrap(s.pool.Ping(ctx), "postgres: ping")
}

func (s *PostgresStore) Close() error {
	if s.closeFn != nil {
		s.closeFn()
	}
	return nil
}

func (s *PostgresStore) CreateImportJob(ctx context.Context, job *model.ImportJob) error {
	_, err := s.pool.Exec(ctx,
		`INSERT INTO import_jobs (id, source, job_id, dataset_id, payload_hash, archive_key, status, error_summary, item_count, created_at, updated_at)
		 VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $11)`,
		job.ID, job.Source, job.JobID, job.DatasetID, job.PayloadHash, job.ArchiveKey,
		string(job.Status), job.ErrorSummary, job.ItemCount, job.CreatedAt, job.UpdatedAt,
	)
	return eris.Wrap(err, "postgres: insert import job")
}

func (s *PostgresStore) UpdateImportJobStatus(ctx context.Context, id string, status model.ImportStatus, errorSummary string) error {
	tag, err := s.pool.Exec(ctx,
		`UPDATE import_jobs SET status = $1, error_summary = $2, updated_at = $3 WHERE id = $4`,
		string(status), errorSummary, time.Now().UTC(), id,
	)
	if err != nil {
		return eris.Wrapf(err, "postgres: update import job %s", id)
	}
	if tag.RowsAffected() == 0 {
		return eris.Errorf("import job %s not found", id)
	}
	return nil
}

func (s *PostgresStore) GetImportJob(ctx context.Context, id string) (*model.ImportJob, error) {
	row := s.pool.QueryRow(ctx,
		`SELECT id, source, job_id, dataset_id, payload_hash, archive_key, status, error_summary, item_count, created_at, updated_at
		 FROM import_jobs WHERE id = $1`, id)
	job, err := scanImportJob(row)
	if err != nil {
		return nil, eris.Wrapf(err, "postgres: get import job %s", id)
	}
	return job, nil
}

func (s *PostgresStore) FindImportByHash(ctx context.Context, payloadHash string, status model.ImportStatus) (*model.ImportJob, error) {
	row := s.pool.QueryRow(ctx,
		`SELECT id, source, job_id, dataset_id, payload_hash, archive_key, status, error_summary, item_count, created_at, updated_at
		 FROM import_jobs WHERE payload_hash = $1 AND status = $2 ORDER BY created_at DESC LIMIT 1`,
		payloadHash, string(status))
	job, err := scanImportJob(row)
	if eris.Is(err, pgx.ErrNoRows) {
		return nil, nil
	}
	if err != nil {
		return nil, eris.Wrap(err, "postgres: find import by hash")
	}
	return job, nil
}

func (s *PostgresStore) CreateRestaurant(ctx context.Context, r *model.Restaurant) error {
	_, err := s.pool.Exec(ctx,
		`INSERT INTO restaurants (id, name, street, city, state, zip_code, phone, website, created_at)
		 VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9)`,
		r.ID, r.Name, r.Street, r.City, r.State, r.ZipCode, r.Phone, r.Website, r.CreatedAt,
	)
	return eris.Wrap(err, "postgres: insert restaurant")
}

func (s *PostgresStore) GetRestaurant(ctx context.Context, id string) (*model.Restaurant, error) {
	var r model.Restaurant
	err := s.pool.QueryRow(ctx,
		`SELECT id, name, street, city, state, zip_code, phone, website, created_at FROM restaurants WHERE id = $1`, id,
	).Scan(&r.ID, &r.Name, &r.Street, &r.City, &r.State, &r.ZipCode, &r.Phone, &r.Website, &r.CreatedAt)
	if eris.Is(err, pgx.ErrNoRows) {
		return nil, nil
	}
	if err != nil {
		return nil, eris.Wrapf(err, "postgres: get restaurant %s", id)
	}
	return &r, nil
}

func (s *PostgresStore) CreateRestaurantSource(ctx context.Context, src *model.RestaurantSource) error {
	_, err := s.pool.Exec(ctx,
		`INSERT INTO restaurant_sources (id, restaurant_id, source, source_url, external_id, last_seen_at, created_at)
		 VALUES ($1, $2, $3, $4, $5, $6, $7)`,
		src.ID, src.RestaurantID, src.Source, src.SourceURL, src.ExternalID, src.LastSeenAt, src.CreatedAt,
	)
	return eris.Wrap(err, "postgres: insert restaurant source")
}

func (s *PostgresStore) FindSourceByURL(ctx context.Context, sourceURL string) (*model.RestaurantSource, error) {
	var src model.RestaurantSource
	err := s.pool.QueryRow(ctx,
		`SELECT id, restaurant_id, source, source_url, external_id, last_seen_at, created_at
		 FROM restaurant_sources WHERE source_url = $1`, sourceURL,
	).Scan(&src.ID, &src.RestaurantID, &src.Source, &src.SourceURL, &src.ExternalID, &src.LastSeenAt, &src.CreatedAt)
	if eris.Is(err, pgx.ErrNoRows) {
		return nil, nil
	}
	if err != nil {
		return nil, eris.Wrap(err, "postgres: find source by url")
	}
	return &src, nil
}

func (s *PostgresStore) TouchSource(ctx context.Context, id string, seenAt time.Time) error {
	tag, err := s.pool.Exec(ctx,
		`UPDATE restaurant_sources SET last_seen_at = $1 WHERE id = $2`, seenAt, id)
	if err != nil {
		return eris.Wrapf(err, "postgres: touch source %s", id)
	}
	if tag.RowsAffected() == 0 {
		return eris.Errorf("restaurant source %s not found", id)
	}
	return nil
}

func (s *PostgresStore) CreateDraftMenu(ctx context.Context, m *model.DraftMenu) error {
	_, err := s.pool.Exec(ctx,
		`INSERT INTO draft_menus (id, restaurant_id, import_job_id, source, status, created_at)
		 VALUES ($1, $2, $3, $4, $5, $6)`,
		m.ID, m.RestaurantID, m.ImportJobID, m.Source, string(m.Status), m.CreatedAt,
	)
	return eris.Wrap(err, "postgres: insert draft menu")
}

func (s *PostgresStore) CreateDraftSection(ctx context.Context, sec *model.DraftSection) error {
	_, err := s.pool.Exec(ctx,
		`INSERT INTO draft_sections (id, menu_id, name, position) VALUES ($1, $2, $3, $4)`,
		sec.ID, sec.MenuID, sec.Name, sec.Position,
	)
	return eris.Wrap(err, "postgres: insert draft section")
}

func (s *PostgresStore) CreateDraftItems(ctx context.Context, items []model.DraftItem) error {
	for _, item := range items {
		var raw any
		if item.Raw != nil {
			data, err := json.Marshal(item.Raw)
			if err != nil {
				return eris.Wrapf(err, "postgres: marshal item raw %s", item.Name)
			}
			raw = data
		}
		_, err := s.pool.Exec(ctx,
			`INSERT INTO draft_items (id, section_id, name, description, price_cents, image_url, position, raw)
			 VALUES ($1, $2, $3, $4, $5, $6, $7, $8)`,
			item.ID, item.SectionID, item.Name, item.Description, item.PriceCents, item.ImageURL, item.Position, raw,
		)
		if err != nil {
			return eris.Wrapf(err, "postgres: insert draft item %s", item.Name)
		}
	}
	return nil
}

func (s *PostgresStore) CountClaims(ctx context.Context, restaurantID string) (int, error) {
	var n int
	err := s.pool.QueryRow(ctx,
		`SELECT COUNT(*) FROM claim_codes WHERE restaurant_id = $1`, restaurantID,
	).Scan(&n)
	if err != nil {
		return 0, eris.Wrap(err, "postgres: count claims")
	}
	return n, nil
}

func (s *PostgresStore) CreateClaimCode(ctx context.Context, c *model.ClaimCode) error {
	_, err := s.pool.Exec(ctx,
		`INSERT INTO claim_codes (id, restaurant_id, code_hash, expires_at, claimed_at, created_at)
		 VALUES ($1, $2, $3, $4, $5, $6)`,
		c.ID, c.RestaurantID, c.CodeHash, c.ExpiresAt, c.ClaimedAt, c.CreatedAt,
	)
	return eris.Wrap(err, "postgres: insert claim code")
}
