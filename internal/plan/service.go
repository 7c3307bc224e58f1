// Package plan serves reconciled annual procurement plans. It layers the in-process cache,
// the local snapshot, the override store and a live registry sync, and records local
// edits (case links, teams, manual items).
package plan

import (
	"context"
	"errors"
	"time"

	"go.uber.org/zap"
	"golang.org/x/sync/errgroup"
	"golang.org/x/sync/singleflight"

	"github.com/andre-martiini/diretoria-adm-bsf/internal/config"
	"github.com/andre-martiini/diretoria-adm-bsf/internal/model"
	"github.com/andre-martiini/diretoria-adm-bsf/internal/plancache"
	"github.com/andre-martiini/diretoria-adm-bsf/internal/reconcile"
	"github.com/andre-martiini/diretoria-adm-bsf/internal/resilience"
	"github.com/andre-martiini/diretoria-adm-bsf/internal/snapshot"
	"github.com/andre-martiini/diretoria-adm-bsf/internal/store"
	"github.com/andre-martiini/diretoria-adm-bsf/pkg/pncp"
)

// SnapshotSource reads the local snapshot of a year.
type SnapshotSource interface {
	Load(ctx context.Context, year string) snapshot.Snapshot
}

// LoadOptions controls a Load.
type LoadOptions struct {
	// Force skips the in-process cache and always attempts a live sync.
	Force bool
	// SkipSync never contacts the registry, even when no official items were found.
	SkipSync bool
	// OnProgress receives monotonic progress in [0, 100], ending at 100.
	OnProgress func(int)
}

// Deps holds the collaborators of a Service. Store, Snapshots, Syncer and Execution may
// be nil; the corresponding tier is then skipped.
type Deps struct {
	Store     store.Store
	Cache     *plancache.Cache
	Snapshots SnapshotSource
	Syncer    Syncer
	Execution pncp.ExecutionClient
	Plan      config.PlanConfig
	Retry     resilience.RetryConfig
}

// Service serves and edits plans.
type Service struct {
	store     store.Store
	cache     *plancache.Cache
	snapshots SnapshotSource
	syncer    Syncer
	execution pncp.ExecutionClient
	cfg       config.PlanConfig
	retry     resilience.RetryConfig
	group     singleflight.Group
	log       *zap.Logger
	now       func() time.Time
}

// New creates a Service.
func New(d Deps) *Service {
	if d.Cache == nil {
		d.Cache = plancache.New()
	}
	return &Service{
		store:     d.Store,
		cache:     d.Cache,
		snapshots: d.Snapshots,
		syncer:    d.Syncer,
		execution: d.Execution,
		cfg:       d.Plan,
		retry:     d.Retry,
		log:       zap.L().With(zap.String("component", "plan")),
		now:       time.Now,
	}
}

// Cache returns the in-process cache the service writes to.
func (s *Service) Cache() *plancache.Cache { return s.cache }

// Load returns the reconciled plan for year. It never fails: every tier that errors is
// logged and skipped, and the result may be empty.
//
// Non-forced loads of an uncached year share one reconciliation. Empty results are
// returned but not cached.
func (s *Service) Load(ctx context.Context, year string, opts LoadOptions) *model.CacheEntry {
	p := newProgress(opts.OnProgress)
	defer p.report(progressDone)

	if !opts.Force {
		if e, ok := s.cache.Get(year); ok {
			return e
		}
		v, _, _ := s.group.Do(year, func() (any, error) {
			return s.load(ctx, year, opts, p), nil
		})
		return v.(*model.CacheEntry)
	}
	return s.load(ctx, year, opts, p)
}

func (s *Service) load(ctx context.Context, year string, opts LoadOptions, p *progress) *model.CacheEntry {
	log := s.log.With(zap.String("year", year), zap.Bool("force", opts.Force))
	start := s.now()
	p.report(progressStart)

	var (
		snap     snapshot.Snapshot
		records  []model.OverrideRecord
		cacheDoc *model.PlanCacheDoc
		storeOK  bool
	)

	// Each branch logs and swallows its own failure.
	g, gCtx := errgroup.WithContext(ctx)
	g.Go(func() error {
		if s.snapshots != nil {
			snap = s.snapshots.Load(gCtx, year)
		}
		p.report(progressSnapshot)
		return nil
	})
	g.Go(func() error {
		records, cacheDoc, storeOK = s.readStore(gCtx, year, log)
		p.report(progressStore)
		return nil
	})
	_ = g.Wait()

	officials := snap.Officials
	source := model.SourceSnapshot
	if len(officials) == 0 {
		source = model.SourceNone
	}
	if (len(officials) == 0 || opts.Force) && cacheDoc != nil && len(cacheDoc.Items) > 0 {
		officials = cacheDoc.Items
		source = model.SourceStore
	}
	p.report(SyncStart)

	var syncedAt time.Time
	if (opts.Force || len(officials) == 0) && !opts.SkipSync && s.syncer != nil {
		synced, err := s.syncer.Sync(ctx, year, p.report)
		switch {
		case err != nil:
			log.Warn("live sync failed, using fallback tiers", zap.String("fallback", string(source)), zap.Error(err))
		case len(synced) == 0:
			log.Warn("live sync returned no items", zap.String("fallback", string(source)))
		default:
			officials = synced
			source = model.SourceLive
			syncedAt = s.now()
		}
	}
	p.report(progressMerge)

	overrides, manuals := reconcile.SplitRecords(records)
	items := reconcile.Reconcile(year, officials, overrides, manuals, snap.Execution)

	entry := &model.CacheEntry{
		Year:          year,
		Items:         items,
		LastSyncLabel: lastSyncLabel(source, syncedAt, cacheDoc, s.now()),
		Metadata:      reconcile.ExtractMetadata(year, officials, items, s.cfg.OrgCNPJ, s.cfg.SequenceFor(year)),
		Source:        source,
	}
	switch {
	case len(items) == 0:
	case !storeOK || ctx.Err() != nil:
		log.Warn("plan load cut short by caller, not caching", zap.NamedError("ctx", ctx.Err()))
	default:
		s.cache.Put(year, entry)
	}

	log.Info("plan loaded",
		zap.String("source", string(source)),
		zap.Int("officials", len(officials)),
		zap.Int("manuals", len(manuals)),
		zap.Int("items", len(items)),
		zap.Duration("elapsed", s.now().Sub(start)),
	)
	return entry
}

// readStore reads the override records and the durable plan cache of year. Failures are
// logged and yield empty results. ok is false when a read failed because ctx ended.
func (s *Service) readStore(ctx context.Context, year string, log *zap.Logger) (records []model.OverrideRecord, doc *model.PlanCacheDoc, ok bool) {
	if s.store == nil {
		return nil, nil, true
	}
	ok = true

	retry := s.retry
	retry.OnRetry = resilience.RetryLogger("plan", "list_overrides")
	records, err := resilience.DoVal(ctx, retry, func(ctx context.Context) ([]model.OverrideRecord, error) {
		return s.store.ListYear(ctx, year)
	})
	if err != nil {
		log.Warn("override store unavailable", zap.Error(err))
		records = nil
		ok = ok && ctx.Err() == nil
	}

	retry.OnRetry = resilience.RetryLogger("plan", "get_plan_cache")
	doc, err = resilience.DoVal(ctx, retry, func(ctx context.Context) (*model.PlanCacheDoc, error) {
		return s.store.GetPlanCache(ctx, year)
	})
	switch {
	case errors.Is(err, store.ErrNotFound):
		doc = nil
	case err != nil:
		log.Warn("plan cache unavailable", zap.Error(err))
		doc = nil
		ok = ok && ctx.Err() == nil
	}
	return records, doc, ok
}

// Item returns one item of year's plan, loading the plan if needed.
func (s *Service) Item(ctx context.Context, year, id string) (*model.PlanItem, bool) {
	entry := s.Load(ctx, year, LoadOptions{})
	for i := range entry.Items {
		if entry.Items[i].ID == id {
			it := entry.Items[i]
			return &it, true
		}
	}
	return nil, false
}
