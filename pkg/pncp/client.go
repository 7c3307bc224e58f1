// Package pncp provides clients for the PNCP plan registry and the execution
// registry proxy.
package pncp

import (
	"context"
	"fmt"
	"net/http"
	"net/url"
	"strings"

	"github.com/rotisserie/eris"

	"github.com/andre-martiini/diretoria-adm-bsf/internal/fetcher"
	"github.com/andre-martiini/diretoria-adm-bsf/internal/model"
	"github.com/andre-martiini/diretoria-adm-bsf/internal/resilience"
)

// DefaultBaseURL is the public PNCP API.
const DefaultBaseURL = "https://pncp.gov.br/api/pncp/v1"

// Client defines the plan registry operations.
type Client interface {
	// ListItems fetches one page of an organization's plan items.
	ListItems(ctx context.Context, q ItemsQuery) (*ItemsPage, error)
}

// ItemsQuery identifies one page of a published plan.
type ItemsQuery struct {
	CNPJ     string
	Year     string
	Sequence string
	Page     int
	PageSize int
}

// ItemsPage is one page of plan items.
type ItemsPage struct {
	Data           []model.OfficialItem `json:"data"`
	TotalPaginas   int                  `json:"totalPaginas"`
	TotalPages     int                  `json:"totalPages"`
	TotalRegistros int                  `json:"totalRegistros"`
	NumeroPagina   int                  `json:"numeroPagina"`
}

// PageCount returns the total number of pages, whichever envelope field carried it.
// It is at least 1.
func (p *ItemsPage) PageCount() int {
	n := p.TotalPaginas
	if n == 0 {
		n = p.TotalPages
	}
	if n < 1 {
		return 1
	}
	return n
}

// Option configures a client.
type Option func(*options)

type options struct {
	baseURL string
	fetcher fetcher.Fetcher
	breaker *resilience.CircuitBreaker
}

// WithBaseURL sets a custom base URL (for testing).
func WithBaseURL(u string) Option {
	return func(o *options) { o.baseURL = u }
}

// WithFetcher sets the fetcher used for requests.
func WithFetcher(f fetcher.Fetcher) Option {
	return func(o *options) { o.fetcher = f }
}

// WithBreaker guards requests with cb.
func WithBreaker(cb *resilience.CircuitBreaker) Option {
	return func(o *options) { o.breaker = cb }
}

func buildOptions(name, defaultBase string, opts []Option) options {
	o := options{baseURL: defaultBase}
	for _, opt := range opts {
		opt(&o)
	}
	o.baseURL = strings.TrimRight(o.baseURL, "/")
	if o.fetcher == nil {
		o.fetcher = fetcher.NewHTTPFetcher(fetcher.HTTPOptions{})
	}
	if o.breaker == nil {
		cfg := resilience.DefaultCircuitBreakerConfig()
		cfg.ShouldTrip = resilience.IsTransient
		o.breaker = resilience.NewCircuitBreaker(name, cfg)
	}
	return o
}

type httpClient struct {
	options
}

// NewClient creates a plan registry client.
func NewClient(opts ...Option) Client {
	return &httpClient{options: buildOptions("pncp", DefaultBaseURL, opts)}
}

func (c *httpClient) ListItems(ctx context.Context, q ItemsQuery) (*ItemsPage, error) {
	if q.CNPJ == "" || q.Year == "" || q.Sequence == "" {
		return nil, eris.New("pncp: cnpj, year and sequence are required")
	}
	if q.Page < 1 {
		q.Page = 1
	}
	params := url.Values{}
	params.Set("pagina", fmt.Sprint(q.Page))
	if q.PageSize > 0 {
		params.Set("tamanhoPagina", fmt.Sprint(q.PageSize))
	}
	reqURL := fmt.Sprintf("%s/orgaos/%s/pca/%s/%s/itens?%s",
		c.baseURL, url.PathEscape(q.CNPJ), url.PathEscape(q.Year), url.PathEscape(q.Sequence), params.Encode())

	page, err := getPage[ItemsPage](ctx, c.options, reqURL)
	if err != nil {
		return nil, eris.Wrapf(err, "pncp: list items %s/%s page %d", q.Year, q.Sequence, q.Page)
	}
	return page, nil
}

// getPage fetches reqURL through the breaker. 204 No Content is an empty page.
func getPage[T any](ctx context.Context, o options, reqURL string) (*T, error) {
	return resilience.ExecuteVal(ctx, o.breaker, func(ctx context.Context) (*T, error) {
		page, err := fetcher.FetchJSON[T](ctx, o.fetcher, reqURL)
		if fetcher.IsStatus(err, http.StatusNoContent) {
			return new(T), nil
		}
		return page, err
	})
}
