package pncp

import (
	"context"
	"fmt"
	"net/url"

	"github.com/rotisserie/eris"

	"github.com/andre-martiini/diretoria-adm-bsf/internal/model"
	"github.com/andre-martiini/diretoria-adm-bsf/internal/resolve"
)

// ExecutionClient reads purchases from the execution registry proxy.
type ExecutionClient interface {
	// ListPurchases fetches one page of a year's purchases.
	ListPurchases(ctx context.Context, year string, page, pageSize int) (*PurchasesPage, error)
	// PurchaseItems fetches the items of one purchase.
	PurchaseItems(ctx context.Context, year, purchaseNumber string) ([]PurchaseItem, error)
	// FindByProcess returns the first purchase on the first page whose process
	// identifier matches protocol, or nil.
	FindByProcess(ctx context.Context, year, protocol string) (*model.ExecutionRecord, error)
}

// PurchasesPage is one page of purchases.
type PurchasesPage struct {
	Data         []model.ExecutionRecord `json:"data"`
	TotalPaginas int                     `json:"totalPaginas"`
}

// PurchaseItem is one line of a purchase.
type PurchaseItem struct {
	NumeroItem            int          `json:"numeroItem"`
	Descricao             string       `json:"descricao"`
	Quantidade            model.Amount `json:"quantidade"`
	ValorUnitarioEstimado model.Amount `json:"valorUnitarioEstimado"`
	CriterioJulgamento    string       `json:"criterioJulgamentoNome,omitempty"`
}

// lookupPageSize is the page size FindByProcess scans.
const lookupPageSize = 500

type executionClient struct {
	options
}

// NewExecutionClient creates an execution registry client. baseURL is the proxy root
// (the part before /api/pncp).
func NewExecutionClient(baseURL string, opts ...Option) ExecutionClient {
	return &executionClient{options: buildOptions("pncp-execution", baseURL, opts)}
}

func (c *executionClient) ListPurchases(ctx context.Context, year string, page, pageSize int) (*PurchasesPage, error) {
	if c.baseURL == "" {
		return nil, eris.New("pncp: execution registry url not configured")
	}
	if page < 1 {
		page = 1
	}
	params := url.Values{}
	params.Set("ano", year)
	params.Set("pagina", fmt.Sprint(page))
	if pageSize > 0 {
		params.Set("tamanhoPagina", fmt.Sprint(pageSize))
	}
	p, err := getPage[PurchasesPage](ctx, c.options, c.baseURL+"/api/pncp/consulta/compras?"+params.Encode())
	if err != nil {
		return nil, eris.Wrapf(err, "pncp: list purchases %s page %d", year, page)
	}
	return p, nil
}

func (c *executionClient) PurchaseItems(ctx context.Context, year, purchaseNumber string) ([]PurchaseItem, error) {
	if c.baseURL == "" {
		return nil, eris.New("pncp: execution registry url not configured")
	}
	params := url.Values{}
	params.Set("ano", year)
	params.Set("sequencial", purchaseNumber)
	params.Set("pagina", "1")
	params.Set("tamanhoPagina", "100")

	type itemsPage struct {
		Data []PurchaseItem `json:"data"`
	}
	p, err := getPage[itemsPage](ctx, c.options, c.baseURL+"/api/pncp/consulta/itens?"+params.Encode())
	if err != nil {
		return nil, eris.Wrapf(err, "pncp: purchase items %s/%s", year, purchaseNumber)
	}
	return p.Data, nil
}

func (c *executionClient) FindByProcess(ctx context.Context, year, protocol string) (*model.ExecutionRecord, error) {
	if resolve.NormalizeProtocol(protocol) == "" {
		return nil, nil
	}
	page, err := c.ListPurchases(ctx, year, 1, lookupPageSize)
	if err != nil {
		return nil, err
	}
	for i := range page.Data {
		if resolve.SameProcess(page.Data[i].ProcessIdentifier, protocol) {
			rec := page.Data[i]
			return &rec, nil
		}
	}
	return nil, nil
}
