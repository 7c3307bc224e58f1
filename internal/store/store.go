// Package store persists plan overrides, manual plan items and the durable copy of the
// last plan registry sync.
package store

import (
	"context"
	"encoding/json"
	"strings"
	"time"

	"github.com/google/uuid"
	"github.com/rotisserie/eris"

	"github.com/andre-martiini/diretoria-adm-bsf/internal/model"
)

// ErrNotFound is returned when a requested document does not exist.
var ErrNotFound = eris.New("store: not found")

// Store defines the persistence interface for plan overrides and the plan cache.
type Store interface {
	// Overrides
	ListYear(ctx context.Context, year string) ([]model.OverrideRecord, error)
	GetOverride(ctx context.Context, key string) (*model.OverrideRecord, error)
	// MergeOverride writes rec under rec.Key. Fields absent from rec keep their stored
	// values; present top-level fields replace them.
	MergeOverride(ctx context.Context, rec model.OverrideRecord) error
	// SaveManualItem stores a new manual item under a generated key and returns the key.
	SaveManualItem(ctx context.Context, rec model.OverrideRecord) (string, error)

	// Durable plan cache
	GetPlanCache(ctx context.Context, year string) (*model.PlanCacheDoc, error)
	SetPlanCache(ctx context.Context, doc model.PlanCacheDoc) error

	// Lifecycle
	Ping(ctx context.Context) error
	Migrate(ctx context.Context) error
	Close() error
}

// prepareOverride validates rec and returns its document body. The key and the
// timestamp are stamped here so both backends agree on them.
func prepareOverride(rec *model.OverrideRecord, now time.Time) ([]byte, error) {
	if strings.TrimSpace(rec.Key) == "" {
		return nil, eris.New("store: override key is required")
	}
	if strings.TrimSpace(rec.Year) == "" {
		return nil, eris.Errorf("store: override %s has no year", rec.Key)
	}
	rec.UpdatedAt = now.UTC()
	doc, err := json.Marshal(rec)
	if err != nil {
		return nil, eris.Wrapf(err, "store: marshal override %s", rec.Key)
	}
	return doc, nil
}

// newManualKey stamps a manual record with a fresh key.
func newManualKey(rec *model.OverrideRecord) {
	rec.Key = uuid.NewString()
	rec.IsManual = true
	rec.OfficialID = ""
}

func decodeOverride(key string, doc []byte) (model.OverrideRecord, error) {
	var rec model.OverrideRecord
	if err := json.Unmarshal(doc, &rec); err != nil {
		return rec, eris.Wrapf(err, "store: decode override %s", key)
	}
	rec.Key = key
	return rec, nil
}
