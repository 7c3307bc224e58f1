package store

import (
	"context"
	"database/sql"
	"encoding/json"
	"errors"
	"time"

	"github.com/rotisserie/eris"
	"go.uber.org/zap"
	_ "modernc.org/sqlite"

	"github.com/andre-martiini/diretoria-adm-bsf/internal/model"
)

// SQLiteStore implements Store using modernc.org/sqlite.
type SQLiteStore struct {
	db  *sql.DB
	now func() time.Time
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
	} {
		if _, err := db.Exec(pragma); err != nil {
			db.Close()
			return nil, eris.Wrapf(err, "sqlite: exec %s", pragma)
		}
	}
	return &SQLiteStore{db: db, now: time.Now}, nil
}

const sqliteMigration = `
CREATE TABLE IF NOT EXISTS plan_overrides (
	key         TEXT PRIMARY KEY,
	year        TEXT NOT NULL,
	official_id TEXT,
	is_manual   INTEGER NOT NULL DEFAULT 0,
	doc         TEXT NOT NULL DEFAULT '{}',
	created_at  DATETIME NOT NULL DEFAULT (datetime('now')),
	updated_at  DATETIME NOT NULL DEFAULT (datetime('now'))
);

CREATE INDEX IF NOT EXISTS idx_plan_overrides_year ON plan_overrides(year);

CREATE TABLE IF NOT EXISTS plan_cache (
	year       TEXT PRIMARY KEY,
	items      TEXT NOT NULL,
	item_count INTEGER NOT NULL DEFAULT 0,
	updated_at DATETIME NOT NULL DEFAULT (datetime('now'))
);
`

func (s *SQLiteStore) Ping(ctx context.Context) error {
	return eris.Wrap(s.db.PingContext(ctx), "sqlite: ping")
}

func (s *SQLiteStore) Migrate(ctx context.Context) error {
	_, err := s.db.ExecContext(ctx, sqliteMigration)
	return eris.Wrap(err, "sqlite: migrate")
}

func (s *SQLiteStore) Close() error {
	return s.db.Close()
}

// ListYear returns every override and manual item recorded for year in insertion order.
func (s *SQLiteStore) ListYear(ctx context.Context, year string) ([]model.OverrideRecord, error) {
	rows, err := s.db.QueryContext(ctx,
		`SELECT key, doc FROM plan_overrides WHERE year = ? ORDER BY rowid`,
		year,
	)
	if err != nil {
		return nil, eris.Wrapf(err, "sqlite: list overrides %s", year)
	}
	defer rows.Close() //nolint:errcheck

	var out []model.OverrideRecord
	for rows.Next() {
		var key, doc string
		if err := rows.Scan(&key, &doc); err != nil {
			return nil, eris.Wrap(err, "sqlite: scan override")
		}
		rec, err := decodeOverride(key, []byte(doc))
		if err != nil {
			zap.L().Warn("skipping malformed override", zap.String("key", key), zap.Error(err))
			continue
		}
		out = append(out, rec)
	}
	return out, eris.Wrap(rows.Err(), "sqlite: iterate overrides")
}

func (s *SQLiteStore) GetOverride(ctx context.Context, key string) (*model.OverrideRecord, error) {
	var doc string
	err := s.db.QueryRowContext(ctx,
		`SELECT doc FROM plan_overrides WHERE key = ?`,
		key,
	).Scan(&doc)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, ErrNotFound
	}
	if err != nil {
		return nil, eris.Wrapf(err, "sqlite: get override %s", key)
	}
	rec, err := decodeOverride(key, []byte(doc))
	if err != nil {
		return nil, err
	}
	return &rec, nil
}

// MergeOverride upserts rec with json_patch. json_patch merges nested objects
// recursively, so case_data is removed first whenever rec carries one: a linked
// case always replaces the previous snapshot whole, as it does in Postgres.
// rec.ClearCaseData removes it even when rec carries none.
func (s *SQLiteStore) MergeOverride(ctx context.Context, rec model.OverrideRecord) error {
	doc, err := prepareOverride(&rec, s.now())
	if err != nil {
		return err
	}
	_, err = s.db.ExecContext(ctx,
		`INSERT INTO plan_overrides (key, year, official_id, is_manual, doc, created_at, updated_at)
		 VALUES (?, ?, ?, ?, ?, ?, ?)
		 ON CONFLICT(key) DO UPDATE SET
			doc = json_patch(
				CASE WHEN ? OR json_type(excluded.doc, '$.case_data') IS NOT NULL
					THEN json_remove(plan_overrides.doc, '$.case_data')
					ELSE plan_overrides.doc END,
				excluded.doc),
			updated_at = excluded.updated_at`,
		rec.Key, rec.Year, rec.OfficialID, rec.IsManual, string(doc), rec.UpdatedAt, rec.UpdatedAt, rec.ClearCaseData,
	)
	return eris.Wrapf(err, "sqlite: merge override %s", rec.Key)
}

func (s *SQLiteStore) SaveManualItem(ctx context.Context, rec model.OverrideRecord) (string, error) {
	newManualKey(&rec)
	if err := s.MergeOverride(ctx, rec); err != nil {
		return "", err
	}
	return rec.Key, nil
}

func (s *SQLiteStore) GetPlanCache(ctx context.Context, year string) (*model.PlanCacheDoc, error) {
	doc := model.PlanCacheDoc{Year: year}
	var items string
	err := s.db.QueryRowContext(ctx,
		`SELECT items, item_count, updated_at FROM plan_cache WHERE year = ?`,
		year,
	).Scan(&items, &doc.Count, &doc.UpdatedAt)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, ErrNotFound
	}
	if err != nil {
		return nil, eris.Wrapf(err, "sqlite: get plan cache %s", year)
	}
	if err := json.Unmarshal([]byte(items), &doc.Items); err != nil {
		return nil, eris.Wrapf(err, "sqlite: decode plan cache %s", year)
	}
	return &doc, nil
}

func (s *SQLiteStore) SetPlanCache(ctx context.Context, doc model.PlanCacheDoc) error {
	items, err := json.Marshal(doc.Items)
	if err != nil {
		return eris.Wrap(err, "sqlite: marshal plan cache")
	}
	if doc.UpdatedAt.IsZero() {
		doc.UpdatedAt = s.now().UTC()
	}
	_, err = s.db.ExecContext(ctx,
		`INSERT INTO plan_cache (year, items, item_count, updated_at) VALUES (?, ?, ?, ?)
		 ON CONFLICT(year) DO UPDATE SET items = excluded.items, item_count = excluded.item_count, updated_at = excluded.updated_at`,
		doc.Year, string(items), len(doc.Items), doc.UpdatedAt,
	)
	return eris.Wrapf(err, "sqlite: set plan cache %s", doc.Year)
}
