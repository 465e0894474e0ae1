package store

import (
	"context"
	"database/sql"
	"encoding/json"
	"time"

	"github.com/rotisserie/eris"
	_ "modernc.org/sqlite"

	"github.com/robertroyster/lookbook-admin/internal/model"
)

// SQLiteStore implements Store using modernc.org/sqlite.
type SQLiteStore struct {
	db *sql.DB
}

// NewSQLite opens a SQLite database at the given path and configures WAL mode.
func NewSQLite(dsn string) (*SQLiteStore, error) {
	db, err := sql.Open("sqlite", dsn)
	if err != nil {
		return nil, eris.Wrap(err, "sqlite: open")
	}
	for _, pragma := range []string{
		"PRAGMA journal_mode=WAL",
		"PRAGMA busy_timeout=5000",
		"PRAGMA synchronous=NORMAL",
		"PRAGMA foreign_keys=ON",
	} {
		if _, err := db.Exec(pragma); err != nil {
			db.Close()
			return nil, eris.Wrapf(err, "sqlite: exec %s", pragma)
		}
	}
	return &SQLiteStore{db: db}, nil
}

const sqliteMigration = `
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
	created_at    DATETIME NOT NULL DEFAULT (datetime('now')),
	updated_at    DATETIME NOT NULL DEFAULT (datetime('now'))
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
	created_at DATETIME NOT NULL DEFAULT (datetime('now'))
);

CREATE TABLE IF NOT EXISTS restaurant_sources (
	id            TEXT PRIMARY KEY,
	restaurant_id TEXT NOT NULL REFERENCES restaurants(id),
	source        TEXT NOT NULL,
	source_url    TEXT NOT NULL UNIQUE,
	external_id   TEXT NOT NULL DEFAULT '',
	last_seen_at  DATETIME NOT NULL,
	created_at    DATETIME NOT NULL DEFAULT (datetime('now'))
);

CREATE TABLE IF NOT EXISTS draft_menus (
	id            TEXT PRIMARY KEY,
	restaurant_id TEXT NOT NULL REFERENCES restaurants(id),
	import_job_id TEXT NOT NULL,
	source        TEXT NOT NULL,
	status        TEXT NOT NULL DEFAULT 'unclaimed',
	created_at    DATETIME NOT NULL DEFAULT (datetime('now'))
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
	price_cents INTEGER,
	image_url   TEXT NOT NULL DEFAULT '',
	position    INTEGER NOT NULL,
	raw         TEXT
);

CREATE TABLE IF NOT EXISTS claim_codes (
	id            TEXT PRIMARY KEY,
	restaurant_id TEXT NOT NULL REFERENCES restaurants(id),
	code_hash     TEXT NOT NULL,
	expires_at    DATETIME NOT NULL,
	claimed_at    DATETIME,
	created_at    DATETIME NOT NULL DEFAULT (datetime('now'))
);

CREATE INDEX IF NOT EXISTS idx_import_jobs_hash ON import_jobs(payload_hash, status);
CREATE INDEX IF NOT EXISTS idx_sources_restaurant ON restaurant_sources(restaurant_id);
CREATE INDEX IF NOT EXISTS idx_draft_menus_restaurant ON draft_menus(restaurant_id);
CREATE INDEX IF NOT EXISTS idx_draft_sections_menu ON draft_sections(menu_id);
CREATE INDEX IF NOT EXISTS idx_draft_items_section ON draft_items(section_id);
CREATE INDEX IF NOT EXISTS idx_claim_codes_restaurant ON claim_codes(restaurant_id);
`

func (s *SQLiteStore) Migrate(ctx context.Context) error {
	_, err := s.db.ExecContext(ctx, sqliteMigration)
	return eris.Wrap(err, "sqlite: migrate")
}

func (s *SQLiteStore) Ping(ctx context.Context) error {
	return eris.Wrap(s.db.PingContext(ctx), "sqlite: ping")
}

func (s *SQLiteStore) Close() error {
	return s.db.Close()
}

func (s *SQLiteStore) CreateImportJob(ctx context.Context, job *model.ImportJob) error {
	_, err := s.db.ExecContext(ctx,
		`INSERT INTO import_jobs (id, source, job_id, dataset_id, payload_hash, archive_key, status, error_summary, item_count, created_at, updated_at)
		 VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?)`,
		job.ID, job.Source, job.JobID, job.DatasetID, job.PayloadHash, job.ArchiveKey,
		string(job.Status), job.ErrorSummary, job.ItemCount, job.CreatedAt, job.UpdatedAt,
	)
	return eris.Wrap(err, "sqlite: insert import job")
}

func (s *SQLiteStore) UpdateImportJobStatus(ctx context.Context, id string, status model.ImportStatus, errorSummary string) error {
	res, err := s.db.ExecContext(ctx,
		`UPDATE import_jobs SET status = ?, error_summary = ?, updated_at = ? WHERE id = ?`,
		string(status), errorSummary, time.Now().UTC(), id,
	)
	if err != nil {
		return eris.Wrapf(err, "sqlite: update import job %s", id)
	}
	return checkRowsAffected(res, "import job", id)
}

func (s *SQLiteStore) GetImportJob(ctx context.Context, id string) (*model.ImportJob, error) {
	row := s.db.QueryRowContext(ctx,
		`SELECT id, source, job_id, dataset_id, payload_hash, archive_key, status, error_summary, item_count, created_at, updated_at
		 FROM import_jobs WHERE id = ?`, id)
	job, err := scanImportJob(row)
	if err != nil {
		return nil, eris.Wrapf(err, "sqlite: get import job %s", id)
	}
	return job, nil
}

func (s *SQLiteStore) FindImportByHash(ctx context.Context, payloadHash string, status model.ImportStatus) (*model.ImportJob, error) {
	row := s.db.QueryRowContext(ctx,
		`SELECT id, source, job_id, dataset_id, payload_hash, archive_key, status, error_summary, item_count, created_at, updated_at
		 FROM import_jobs WHERE payload_hash = ? AND status = ? ORDER BY created_at DESC LIMIT 1`,
		payloadHash, string(status))
	job, err := scanImportJob(row)
	if eris.Is(err, sql.ErrNoRows) {
		return nil, nil
	}
	if err != nil {
		return nil, eris.Wrap(err, "sqlite: find import by hash")
	}
	return job, nil
}

type rowScanner interface {
	Scan(dest ...any) error
}

func scanImportJob(row rowScanner) (*model.ImportJob, error) {
	var job model.ImportJob
	var status string
	err := row.Scan(&job.ID, &job.Source, &job.JobID, &job.DatasetID, &job.PayloadHash,
		&job.ArchiveKey, &status, &job.ErrorSummary, &job.ItemCount, &job.CreatedAt, &job.UpdatedAt)
	if err != nil {
		return nil, err
	}
	job.Status = model.ImportStatus(status)
	return &job, nil
}

func (s *SQLiteStore) CreateRestaurant(ctx context.Context, r *model.Restaurant) error {
	_, err := s.db.ExecContext(ctx,
		`INSERT INTO restaurants (id, name, street, city, state, zip_code, phone, website, created_at)
		 VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?)`,
		r.ID, r.Name, r.Street, r.City, r.State, r.ZipCode, r.Phone, r.Website, r.CreatedAt,
	)
	return eris.Wrap(err, "sqlite: insert restaurant")
}

func (s *SQLiteStore) GetRestaurant(ctx context.Context, id string) (*model.Restaurant, error) {
	var r model.Restaurant
	err := s.db.QueryRowContext(ctx,
		`SELECT id, name, street, city, state, zip_code, phone, website, created_at FROM restaurants WHERE id = ?`, id,
	).Scan(&r.ID, &r.Name, &r.Street, &r.City, &r.State, &r.ZipCode, &r.Phone, &r.Website, &r.CreatedAt)
	if eris.Is(err, sql.ErrNoRows) {
		return nil, nil
	}
	if err != nil {
		return nil, eris.Wrapf(err, "sqlite: get restaurant %s", id)
	}
	return &r, nil
}

func (s *SQLiteStore) CreateRestaurantSource(ctx context.Context, src *model.RestaurantSource) error {
	_, err := s.db.ExecContext(ctx,
		`INSERT INTO restaurant_sources (id, restaurant_id, source, source_url, external_id, last_seen_at, created_at)
		 VALUES (?, ?, ?, ?, ?, ?, ?)`,
		src.ID, src.RestaurantID, src.Source, src.SourceURL, src.ExternalID, src.LastSeenAt, src.CreatedAt,
	)
	return eris.Wrap(err, "sqlite: insert restaurant source")
}

func (s *SQLiteStore) FindSourceByURL(ctx context.Context, sourceURL string) (*model.RestaurantSource, error) {
	var src model.RestaurantSource
	err := s.db.QueryRowContext(ctx,
		`SELECT id, restaurant_id, source, source_url, external_id, last_seen_at, created_at
		 FROM restaurant_sources WHERE source_url = ?`, sourceURL,
	).Scan(&src.ID, &src.RestaurantID, &src.Source, &src.SourceURL, &src.ExternalID, &src.LastSeenAt, &src.CreatedAt)
	if eris.Is(err, sql.ErrNoRows) {
		return nil, nil
	}
	if err != nil {
		return nil, eris.Wrap(err, "sqlite: find source by url")
	}
	return &src, nil
}

func (s *SQLiteStore) TouchSource(ctx context.Context, id string, seenAt time.Time) error {
	res, err := s.db.ExecContext(ctx,
		`UPDATE restaurant_sources SET last_seen_at = ? WHERE id = ?`, seenAt, id)
	if err != nil {
		return eris.Wrapf(err, "sqlite: touch source %s", id)
	}
	return checkRowsAffected(res, "restaurant source", id)
}

func (s *SQLiteStore) CreateDraftMenu(ctx context.Context, m *model.DraftMenu) error {
	_, err := s.db.ExecContext(ctx,
		`INSERT INTO draft_menus (id, restaurant_id, import_job_id, source, status, created_at)
		 VALUES (?, ?, ?, ?, ?, ?)`,
		m.ID, m.RestaurantID, m.ImportJobID, m.Source, string(m.Status), m.CreatedAt,
	)
	return eris.Wrap(err, "sqlite: insert draft menu")
}

func (s *SQLiteStore) CreateDraftSection(ctx context.Context, sec *model.DraftSection) error {
	_, err := s.db.ExecContext(ctx,
		`INSERT INTO draft_sections (id, menu_id, name, position) VALUES (?, ?, ?, ?)`,
		sec.ID, sec.MenuID, sec.Name, sec.Position,
	)
	return eris.Wrap(err, "sqlite: insert draft section")
}

func (s *SQLiteStore) CreateDraftItems(ctx context.Context, items []model.DraftItem) error {
	for _, item := range items {
		var raw any
		if item.Raw != nil {
			data, err := json.Marshal(item.Raw)
			if err != nil {
				return eris.Wrapf(err, "sqlite: marshal item raw %s", item.Name)
			}
			raw = string(data)
		}
		_, err := s.db.ExecContext(ctx,
			`INSERT INTO draft_items (id, section_id, name, description, price_cents, image_url, position, raw)
			 VALUES (?, ?, ?, ?, ?, ?, ?, ?)`,
			item.ID, item.SectionID, item.Name, item.Description, item.PriceCents, item.ImageURL, item.Position, raw,
		)
		if err != nil {
			return eris.Wrapf(err, "sqlite: insert draft item %s", item.Name)
		}
	}
	return nil
}

func (s *SQLiteStore) CountClaims(ctx context.Context, restaurantID string) (int, error) {
	var n int
	err := s.db.QueryRowContext(ctx,
		`SELECT COUNT(*) FROM claim_codes WHERE restaurant_id = ?`, restaurantID,
	).Scan(&n)
	if err != nil {
		return 0, eris.Wrap(err, "sqlite: count claims")
	}
	return n, nil
}

func (s *SQLiteStore) CreateClaimCode(ctx context.Context, c *model.ClaimCode) error {
	_, err := s.db.ExecContext(ctx,
		`INSERT INTO claim_codes (id, restaurant_id, code_hash, expires_at, claimed_at, created_at)
		 VALUES (?, ?, ?, ?, ?, ?)`,
		c.ID, c.RestaurantID, c.CodeHash, c.ExpiresAt, c.ClaimedAt, c.CreatedAt,
	)
	return eris.Wrap(err, "sqlite: insert claim code")
}

func checkRowsAffected(res sql.Result, entity, id string) error {
	n, err := res.RowsAffected()
	if err != nil {
		return eris.Wrapf(err, "rows affected for %s %s", entity, id)
	}
	if n == 0 {
		return eris.Errorf("%s %s not found", entity, id)
	}
	return nil
}
