package plan

import (
	"context"
	"time"

	"github.com/rotisserie/eris"
	"go.uber.org/zap"

	"github.com/andre-martiini/diretoria-adm-bsf/internal/config"
	"github.com/andre-martiini/diretoria-adm-bsf/internal/model"
	"github.com/andre-martiini/diretoria-adm-bsf/internal/resilience"
	"github.com/andre-martiini/diretoria-adm-bsf/internal/store"
	"github.com/andre-martiini/diretoria-adm-bsf/pkg/pncp"
)

// Progress points of a load. Page fetches report between SyncStart and SyncEnd.
const (
	progressStart    = 5
	progressSnapshot = 10
	progressStore    = 20
	SyncStart        = 30
	SyncEnd          = 80
	progressMerge    = 90
	progressDone     = 100
)

// Syncer fetches a year's full plan from the registry.
type Syncer interface {
	Sync(ctx context.Context, year string, report func(int)) ([]model.OfficialItem, error)
}

// Synchronizer pages through the plan registry and keeps the durable plan cache current.
type Synchronizer struct {
	client pncp.Client
	store  store.Store
	cfg    config.PlanConfig
	retry  resilience.RetryConfig
	now    func() time.Time
}

// NewSynchronizer creates a Synchronizer. st may be nil, in which case nothing is persisted.
func NewSynchronizer(client pncp.Client, st store.Store, cfg config.PlanConfig, retry resilience.RetryConfig) *Synchronizer {
	return &Synchronizer{client: client, store: st, cfg: cfg, retry: retry, now: time.Now}
}

// Sync fetches every page of year's plan sequentially and returns the items in registry
// order. Any page failure aborts the sync and discards the pages already fetched.
//
// On success the items are written to the durable plan cache; a failed write is logged and
// does not fail the sync.
func (s *Synchronizer) Sync(ctx context.Context, year string, report func(int)) ([]model.OfficialItem, error) {
	log := zap.L().With(zap.String("component", "sync"), zap.String("year", year))
	if report == nil {
		report = func(int) {}
	}

	q := pncp.ItemsQuery{
		CNPJ:     s.cfg.OrgCNPJ,
		Year:     year,
		Sequence: s.cfg.SequenceFor(year),
		Page:     1,
		PageSize: s.cfg.PageSize,
	}
	first, err := s.client.ListItems(ctx, q)
	if err != nil {
		return nil, eris.Wrapf(err, "sync: page 1 of %s", year)
	}
	total := first.PageCount()
	items := append([]model.OfficialItem(nil), first.Data...)
	report(pageProgress(1, total))

	for page := 2; page <= total; page++ {
		q.Page = page
		next, err := s.client.ListItems(ctx, q)
		if err != nil {
			return nil, eris.Wrapf(err, "sync: page %d/%d of %s", page, total, year)
		}
		items = append(items, next.Data...)
		report(pageProgress(page, total))
	}

	log.Info("sync complete", zap.Int("pages", total), zap.Int("items", len(items)))
	s.persist(ctx, year, items, log)
	return items, nil
}

func (s *Synchronizer) persist(ctx context.Context, year string, items []model.OfficialItem, log *zap.Logger) {
	if s.store == nil || len(items) == 0 {
		return
	}
	retry := s.retry
	retry.OnRetry = resilience.RetryLogger("sync", "set_plan_cache")
	err := resilience.Do(ctx, retry, func(ctx context.Context) error {
		return s.store.SetPlanCache(ctx, model.PlanCacheDoc{
			Year:      year,
			Items:     items,
			Count:     len(items),
			UpdatedAt: s.now().UTC(),
		})
	})
	if err != nil {
		log.Warn("failed to persist plan cache", zap.Error(err))
	}
}

func pageProgress(page, total int) int {
	if total < 1 {
		total = 1
	}
	return SyncStart + page*(SyncEnd-SyncStart)/total
}
