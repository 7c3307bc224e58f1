package plan

import (
	"context"
	"path/filepath"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/mock"
	"github.com/stretchr/testify/require"

	"github.com/andre-martiini/diretoria-adm-bsf/internal/config"
	"github.com/andre-martiini/diretoria-adm-bsf/internal/model"
	"github.com/andre-martiini/diretoria-adm-bsf/internal/resilience"
	"github.com/andre-martiini/diretoria-adm-bsf/internal/snapshot"
	"github.com/andre-martiini/diretoria-adm-bsf/internal/store"
	"github.com/andre-martiini/diretoria-adm-bsf/pkg/pncp"
)

// --- PNCP Mock ---

type mockPNCPClient struct {
	mock.Mock
}

func (m *mockPNCPClient) ListItems(ctx context.Context, q pncp.ItemsQuery) (*pncp.ItemsPage, error) {
	args := m.Called(ctx, q)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*pncp.ItemsPage), args.Error(1)
}

// --- Execution Mock ---

type mockExecutionClient struct {
	mock.Mock
}

func (m *mockExecutionClient) ListPurchases(ctx context.Context, year string, page, pageSize int) (*pncp.PurchasesPage, error) {
	args := m.Called(ctx, year, page, pageSize)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*pncp.PurchasesPage), args.Error(1)
}

func (m *mockExecutionClient) PurchaseItems(ctx context.Context, year, purchaseNumber string) ([]pncp.PurchaseItem, error) {
	args := m.Called(ctx, year, purchaseNumber)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).([]pncp.PurchaseItem), args.Error(1)
}

func (m *mockExecutionClient) FindByProcess(ctx context.Context, year, protocol string) (*model.ExecutionRecord, error) {
	args := m.Called(ctx, year, protocol)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*model.ExecutionRecord), args.Error(1)
}

// --- Snapshot fake ---

type fakeSnapshots struct {
	mu    sync.Mutex
	snap  snapshot.Snapshot
	calls int
	delay time.Duration
}

func (f *fakeSnapshots) Load(_ context.Context, _ string) snapshot.Snapshot {
	f.mu.Lock()
	f.calls++
	f.mu.Unlock()
	if f.delay > 0 {
		time.Sleep(f.delay)
	}
	return f.snap
}

func (f *fakeSnapshots) Calls() int {
	f.mu.Lock()
	defer f.mu.Unlock()
	return f.calls
}

// --- helpers ---

func testPlanConfig() config.PlanConfig {
	return config.PlanConfig{
		OrgCNPJ:         "10838653000106",
		Sequences:       map[string]string{"2026": "12"},
		DefaultSequence: "12",
		PageSize:        2,
	}
}

func testRetry() resilience.RetryConfig {
	return resilience.RetryConfig{MaxAttempts: 1, InitialBackoff: time.Millisecond, MaxBackoff: time.Millisecond}
}

func newTestStore(t *testing.T) *store.SQLiteStore {
	t.Helper()
	st, err := store.NewSQLite(filepath.Join(t.TempDir(), "plan.db"))
	require.NoError(t, err)
	require.NoError(t, st.Migrate(context.Background()))
	t.Cleanup(func() { st.Close() })
	return st
}

func items(ids ...string) []model.OfficialItem {
	out := make([]model.OfficialItem, len(ids))
	for i, id := range ids {
		out[i] = model.OfficialItem{ID: model.FlexString(id), Descricao: "item " + id}
	}
	return out
}

func query(page int) pncp.ItemsQuery {
	return pncp.ItemsQuery{CNPJ: "10838653000106", Year: "2026", Sequence: "12", Page: page, PageSize: 2}
}

type progressRecorder struct {
	mu     sync.Mutex
	values []int
}

func (r *progressRecorder) report(v int) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.values = append(r.values, v)
}

func (r *progressRecorder) get() []int {
	r.mu.Lock()
	defer r.mu.Unlock()
	return append([]int(nil), r.values...)
}
