package main

import (
	"context"
	"time"

	"github.com/rotisserie/eris"
	"go.uber.org/zap"

	"github.com/andre-martiini/diretoria-adm-bsf/internal/config"
	"github.com/andre-martiini/diretoria-adm-bsf/internal/fetcher"
	"github.com/andre-martiini/diretoria-adm-bsf/internal/plan"
	"github.com/andre-martiini/diretoria-adm-bsf/internal/resilience"
	"github.com/andre-martiini/diretoria-adm-bsf/internal/snapshot"
	"github.com/andre-martiini/diretoria-adm-bsf/internal/store"
	"github.com/andre-martiini/diretoria-adm-bsf/pkg/pncp"
)

// planEnv holds the wired plan service and what it owns.
type planEnv struct {
	Service *plan.Service
	Store   store.Store
}

// Close releases the store.
func (e *planEnv) Close() {
	if e.Store == nil {
		return
	}
	if err := e.Store.Close(); err != nil {
		zap.L().Warn("close store", zap.Error(err))
	}
}

func initStore(ctx context.Context) (store.Store, error) {
	switch cfg.Store.Driver {
	case "sqlite":
		dsn := cfg.Store.DatabaseURL
		if dsn == "" {
			dsn = "diretoria.db"
		}
		return store.NewSQLite(dsn)
	case "postgres":
		return store.NewPostgres(ctx, cfg.Store.DatabaseURL, nil)
	default:
		return nil, eris.Errorf("unsupported store driver: %s", cfg.Store.Driver)
	}
}

func newFetcher(pc config.PlanConfig) *fetcher.HTTPFetcher {
	return fetcher.NewHTTPFetcher(fetcher.HTTPOptions{
		UserAgent: pc.UserAgent,
		Timeout:   time.Duration(pc.TimeoutSecs) * time.Second,
	})
}

// initPlan wires the plan service from cfg. Unless requireStore is set, a store that
// cannot be opened is logged and left out: reads still work from the snapshot and the
// registry.
func initPlan(ctx context.Context, requireStore bool) (*planEnv, error) {
	env := &planEnv{}

	st, err := initStore(ctx)
	switch {
	case err == nil:
		env.Store = st
	case requireStore:
		return nil, eris.Wrap(err, "open store")
	default:
		zap.L().Warn("override store unavailable, continuing without it", zap.Error(err))
	}

	f := newFetcher(cfg.Plan)
	breakers := resilience.NewServiceBreakers(resilience.FromCircuitConfig(cfg.Circuit))
	retry := resilience.FromRetryConfig(cfg.Retry)

	client := pncp.NewClient(
		pncp.WithBaseURL(cfg.Plan.RegistryURL),
		pncp.WithFetcher(f),
		pncp.WithBreaker(breakers.Get("pncp")),
	)

	var execution pncp.ExecutionClient
	if cfg.Plan.ExecutionURL != "" {
		execution = pncp.NewExecutionClient(cfg.Plan.ExecutionURL,
			pncp.WithFetcher(f),
			pncp.WithBreaker(breakers.Get("execution")),
		)
	}

	env.Service = plan.New(plan.Deps{
		Store:     env.Store,
		Snapshots: snapshot.NewLoader(cfg.Plan.SnapshotSource, f),
		Syncer:    plan.NewSynchronizer(client, env.Store, cfg.Plan, retry),
		Execution: execution,
		Plan:      cfg.Plan,
		Retry:     retry,
	})
	return env, nil
}

// yearOrDefault returns year, or the configured default year when it is empty.
func yearOrDefault(year string) string {
	if year != "" {
		return year
	}
	return cfg.Plan.DefaultYear
}
