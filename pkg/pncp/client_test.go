package pncp

import (
	"context"
	"net/http"
	"net/http/httptest"
	"sync/atomic"
	"testing"
	"time"

	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/andre-martiini/diretoria-adm-bsf/internal/fetcher"
	"github.com/andre-martiini/diretoria-adm-bsf/internal/resilience"
)

func testFetcher() fetcher.Fetcher {
	return fetcher.NewHTTPFetcher(fetcher.HTTPOptions{
		MaxRetries:  1,
		Timeout:     5 * time.Second,
		BaseBackoff: time.Millisecond,
		MaxBackoff:  2 * time.Millisecond,
	})
}

func TestListItems(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, "/orgaos/10838653000106/pca/2026/12/itens", r.URL.Path)
		assert.Equal(t, "2", r.URL.Query().Get("pagina"))
		assert.Equal(t, "100", r.URL.Query().Get("tamanhoPagina"))
		w.Write([]byte(`{"data":[{"id":11,"descricao":"Cadeiras","valorTotal":1500.5}],"totalPaginas":3,"totalRegistros":250}`))
	}))
	defer srv.Close()

	c := NewClient(WithBaseURL(srv.URL+"/"), WithFetcher(testFetcher()))
	page, err := c.ListItems(context.Background(), ItemsQuery{
		CNPJ: "10838653000106", Year: "2026", Sequence: "12", Page: 2, PageSize: 100,
	})
	require.NoError(t, err)
	require.Len(t, page.Data, 1)
	assert.Equal(t, "11", page.Data[0].ID.String())
	assert.True(t, page.Data[0].ValorTotal.Equal(decimal.RequireFromString("1500.5")))
	assert.Equal(t, 3, page.PageCount())
}

func TestListItems_NoContentIsEmptyPage(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusNoContent)
	}))
	defer srv.Close()

	c := NewClient(WithBaseURL(srv.URL), WithFetcher(testFetcher()))
	page, err := c.ListItems(context.Background(), ItemsQuery{CNPJ: "1", Year: "2026", Sequence: "12"})
	require.NoError(t, err)
	assert.Empty(t, page.Data)
	assert.Equal(t, 1, page.PageCount())
}

func TestListItems_RequiresIdentity(t *testing.T) {
	_, err := NewClient().ListItems(context.Background(), ItemsQuery{Year: "2026"})
	require.Error(t, err)
}

func TestListItems_BreakerOpensOnServerErrors(t *testing.T) {
	var calls atomic.Int32
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		calls.Add(1)
		w.WriteHeader(http.StatusServiceUnavailable)
	}))
	defer srv.Close()

	cfg := resilience.DefaultCircuitBreakerConfig()
	cfg.FailureThreshold = 2
	cfg.ShouldTrip = resilience.IsTransient
	cb := resilience.NewCircuitBreaker("pncp-test", cfg)

	c := NewClient(WithBaseURL(srv.URL), WithFetcher(testFetcher()), WithBreaker(cb))
	q := ItemsQuery{CNPJ: "1", Year: "2026", Sequence: "12"}
	for range 2 {
		_, err := c.ListItems(context.Background(), q)
		require.Error(t, err)
	}
	assert.Equal(t, resilience.CircuitOpen, cb.State())

	before := calls.Load()
	_, err := c.ListItems(context.Background(), q)
	require.Error(t, err)
	assert.Contains(t, err.Error(), "circuit breaker is open")
	assert.Equal(t, before, calls.Load())
}

func TestListItems_NotFoundDoesNotTrip(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusNotFound)
	}))
	defer srv.Close()

	cfg := resilience.DefaultCircuitBreakerConfig()
	cfg.FailureThreshold = 1
	cfg.ShouldTrip = resilience.IsTransient
	cb := resilience.NewCircuitBreaker("pncp-test", cfg)

	c := NewClient(WithBaseURL(srv.URL), WithFetcher(testFetcher()), WithBreaker(cb))
	_, err := c.ListItems(context.Background(), ItemsQuery{CNPJ: "1", Year: "2026", Sequence: "99"})
	require.Error(t, err)
	assert.Equal(t, resilience.CircuitClosed, cb.State())
}

func TestPageCount(t *testing.T) {
	assert.Equal(t, 1, (&ItemsPage{}).PageCount())
	assert.Equal(t, 4, (&ItemsPage{TotalPages: 4}).PageCount())
	assert.Equal(t, 2, (&ItemsPage{TotalPaginas: 2, TotalPages: 9}).PageCount())
}
