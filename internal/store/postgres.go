package store

import (
	"context"
	"encoding/json"
	"errors"
	"time"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/rotisserie/eris"
	"go.uber.org/zap"

	"github.com/andre-martiini/diretoria-adm-bsf/internal/db"
	"github.com/andre-martiini/diretoria-adm-bsf/internal/model"
)

// PostgresStore implements Store using pgxpool.
type PostgresStore struct {
	pool    db.Pool
	closeFn func()
	now     func() time.Time
}

// PoolConfig holds optional connection pool tuning parameters.
type PoolConfig struct {
	MaxConns int32 `yaml:"max_conns" mapstructure:"max_conns"`
	MinConns int32 `yaml:"min_conns" mapstructure:"min_conns"`
}

// NewPostgres creates a PostgresStore with a connection pool.
func NewPostgres(ctx context.Context, connString string, poolCfg *PoolConfig) (*PostgresStore, error) {
	pgxCfg, err := pgxpool.ParseConfig(connString)
	if err != nil {
		return nil, eris.Wrap(err, "postgres: parse config")
	}

	maxConns := int32(5)
	minConns := int32(1)
	if poolCfg != nil {
		if poolCfg.MaxConns > 0 {
			maxConns = poolCfg.MaxConns
		}
		if poolCfg.MinConns > 0 {
			minConns = poolCfg.MinConns
		}
	}
	pgxCfg.MaxConns = maxConns
	pgxCfg.MinConns = minConns
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
	return &PostgresStore{pool: pool, closeFn: pool.Close, now: time.Now}, nil
}

const postgresMigration = `
CREATE TABLE IF NOT EXISTS plan_overrides (
	key         TEXT PRIMARY KEY,
	year        TEXT NOT NULL,
	official_id TEXT,
	is_manual   BOOLEAN NOT NULL DEFAULT false,
	doc         JSONB NOT NULL DEFAULT '{}'::jsonb,
	created_at  TIMESTAMPTZ NOT NULL DEFAULT now(),
	updated_at  TIMESTAMPTZ NOT NULL DEFAULT now()
);

CREATE INDEX IF NOT EXISTS idx_plan_overrides_year ON plan_overrides(year);
CREATE INDEX IF NOT EXISTS idx_plan_overrides_year_manual ON plan_overrides(year, is_manual);

CREATE TABLE IF NOT EXISTS plan_cache (
	year       TEXT PRIMARY KEY,
	items      JSONB NOT NULL,
	item_count INTEGER NOT NULL DEFAULT 0,
	updated_at TIMESTAMPTZ NOT NULL DEFAULT now()
);
`

func (s *PostgresStore) Ping(ctx context.Context) error {
	_, err := s.pool.Exec(ctx, "SELECT 1")
	return eris.Wrap(err, "postgres: ping")
}

func (s *PostgresStore) Migrate(ctx context.Context) error {
	_, err := s.pool.Exec(ctx, postgresMigration)
	return eris.Wrap(err, "postgres: migrate")
}

func (s *PostgresStore) Close() error {
	if s.closeFn != nil {
		s.closeFn()
	}
	return nil
}

func (s *PostgresStore) clock() time.Time {
	if s.now == nil {
		return time.Now()
	}
	return s.now()
}

// ListYear returns every override and manual item recorded for year, oldest first.
// Documents that fail to decode are skipped and logged.
func (s *PostgresStore) ListYear(ctx context.Context, year string) ([]model.OverrideRecord, error) {
	rows, err := s.pool.Query(ctx,
		`SELECT key, doc FROM plan_overrides WHERE year = $1 ORDER BY created_at, key`,
		year,
	)
	if err != nil {
		return nil, eris.Wrapf(err, "postgres: list overrides %s", year)
	}
	defer rows.Close()

	var out []model.OverrideRecord
	for rows.Next() {
		var key string
		var doc []byte
		if err := rows.Scan(&key, &doc); err != nil {
			return nil, eris.Wrap(err, "postgres: scan override")
		}
		rec, err := decodeOverride(key, doc)
		if err != nil {
			zap.L().Warn("skipping malformed override", zap.String("key", key), zap.Error(err))
			continue
		}
		out = append(out, rec)
	}
	return out, eris.Wrap(rows.Err(), "postgres: iterate overrides")
}

func (s *PostgresStore) GetOverride(ctx context.Context, key string) (*model.OverrideRecord, error) {
	var doc []byte
	err := s.pool.QueryRow(ctx,
		`SELECT doc FROM plan_overrides WHERE key = $1`,
		key,
	).Scan(&doc)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, ErrNotFound
		}
		return nil, eris.Wrapf(err, "postgres: get override %s", key)
	}
	rec, err := decodeOverride(key, doc)
	if err != nil {
		return nil, err
	}
	return &rec, nil
}

// MergeOverride upserts rec; on conflict the stored document is merged with jsonb ||,
// which replaces top-level keys present in rec and keeps the rest. rec.ClearCaseData
// removes the stored case_data first.
func (s *PostgresStore) MergeOverride(ctx context.Context, rec model.OverrideRecord) error {
	doc, err := prepareOverride(&rec, s.clock())
	if err != nil {
		return err
	}
	_, err = s.pool.Exec(ctx,
		`INSERT INTO plan_overrides (key, year, official_id, is_manual, doc, created_at, updated_at)
		 VALUES ($1, $2, $3, $4, $5, $6, $6)
		 ON CONFLICT (key) DO UPDATE SET
			doc = (CASE WHEN $7::boolean THEN plan_overrides.doc - 'case_data' ELSE plan_overrides.doc END) || EXCLUDED.doc,
			updated_at = EXCLUDED.updated_at`,
		rec.Key, rec.Year, rec.OfficialID, rec.IsManual, doc, rec.UpdatedAt, rec.ClearCaseData,
	)
	return eris.Wrapf(err, "postgres: merge override %s", rec.Key)
}

func (s *PostgresStore) SaveManualItem(ctx context.Context, rec model.OverrideRecord) (string, error) {
	newManualKey(&rec)
	if err := s.MergeOverride(ctx, rec); err != nil {
		return "", err
	}
	return rec.Key, nil
}

func (s *PostgresStore) GetPlanCache(ctx context.Context, year string) (*model.PlanCacheDoc, error) {
	doc := model.PlanCacheDoc{Year: year}
	var items []byte
	err := s.pool.QueryRow(ctx,
		`SELECT items, item_count, updated_at FROM plan_cache WHERE year = $1`,
		year,
	).Scan(&items, &doc.Count, &doc.UpdatedAt)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, ErrNotFound
		}
		return nil, eris.Wrapf(err, "postgres: get plan cache %s", year)
	}
	if err := json.Unmarshal(items, &doc.Items); err != nil {
		return nil, eris.Wrapf(err, "postgres: decode plan cache %s", year)
	}
	return &doc, nil
}

func (s *PostgresStore) SetPlanCache(ctx context.Context, doc model.PlanCacheDoc) error {
	items, err := json.Marshal(doc.Items)
	if err != nil {
		return eris.Wrap(err, "postgres: marshal plan cache")
	}
	if doc.UpdatedAt.IsZero() {
		doc.UpdatedAt = s.clock().UTC()
	}
	_, err = s.pool.Exec(ctx,
		`INSERT INTO plan_cache (year, items, item_count, updated_at) VALUES ($1, $2, $3, $4)
		 ON CONFLICT (year) DO UPDATE SET items = $2, item_count = $3, updated_at = $4`,
		doc.Year, items, len(doc.Items), doc.UpdatedAt,
	)
	return eris.Wrapf(err, "postgres: set plan cache %s", doc.Year)
}
