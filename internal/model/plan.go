package model

import (
	"bytes"
	"encoding/json"
	"strings"
	"time"

	"github.com/shopspring/decimal"
)

// Category classifies a plan item.
type Category string

const (
	CategoryGoods    Category = "Bens"
	CategoryServices Category = "Serviços"
	CategoryIT       Category = "TIC"
)

// ParseCategory maps a stored category label onto a Category. Unknown labels map to goods.
func ParseCategory(s string) Category {
	switch strings.ToLower(strings.TrimSpace(s)) {
	case "serviços", "servicos", "services", "obras":
		return CategoryServices
	case "tic", "it":
		return CategoryIT
	default:
		return CategoryGoods
	}
}

// FlexString decodes a JSON string, number or null into a string.
// The plan registry sends item ids as numbers; older snapshots carry them as strings.
type FlexString string

// UnmarshalJSON implements json.Unmarshaler.
func (f *FlexString) UnmarshalJSON(b []byte) error {
	b = bytes.TrimSpace(b)
	if len(b) == 0 || bytes.Equal(b, []byte("null")) {
		*f = ""
		return nil
	}
	if b[0] == '"' {
		var s string
		if err := json.Unmarshal(b, &s); err != nil {
			return err
		}
		*f = FlexString(strings.TrimSpace(s))
		return nil
	}
	*f = FlexString(string(b))
	return nil
}

// String returns the trimmed value.
func (f FlexString) String() string { return strings.TrimSpace(string(f)) }

// Amount is a lenient decimal. Numbers, quoted numbers, null and empty strings all decode;
// anything unparseable decodes to zero instead of failing the whole payload.
type Amount struct {
	decimal.Decimal
}

// UnmarshalJSON implements json.Unmarshaler.
func (a *Amount) UnmarshalJSON(b []byte) error {
	b = bytes.TrimSpace(b)
	if len(b) == 0 || bytes.Equal(b, []byte("null")) {
		a.Decimal = decimal.Zero
		return nil
	}
	s := string(b)
	if b[0] == '"' {
		if err := json.Unmarshal(b, &s); err != nil {
			a.Decimal = decimal.Zero
			return nil
		}
	}
	d, err := decimal.NewFromString(strings.TrimSpace(s))
	if err != nil {
		a.Decimal = decimal.Zero
		return nil
	}
	a.Decimal = d
	return nil
}

// NewAmount wraps a decimal.
func NewAmount(d decimal.Decimal) Amount { return Amount{Decimal: d} }

// OfficialItem is one item as served by the plan registry (PNCP field names).
type OfficialItem struct {
	ID                     FlexString `json:"id,omitempty"`
	NumeroItem             FlexString `json:"numeroItem,omitempty"`
	Descricao              string     `json:"descricao,omitempty"`
	CategoriaItemPcaNome   string     `json:"categoriaItemPcaNome,omitempty"`
	NomeClassificacao      string     `json:"nomeClassificacao,omitempty"`
	GrupoContratacaoCodigo string     `json:"grupoContratacaoCodigo,omitempty"`
	GrupoContratacaoNome   string     `json:"grupoContratacaoNome,omitempty"`
	ValorTotal             Amount     `json:"valorTotal"`
	ValorUnitario          Amount     `json:"valorUnitario"`
	Quantidade             Amount     `json:"quantidade"`
	DataDesejada           string     `json:"dataDesejada,omitempty"`
	DataFim                string     `json:"dataFim,omitempty"`
	NomeUnidade            string     `json:"nomeUnidade,omitempty"`
	CodigoUnidade          FlexString `json:"codigoUnidade,omitempty"`
	CNPJ                   string     `json:"cnpj,omitempty"`
	SequencialPca          FlexString `json:"sequencialPca,omitempty"`
	AnoPca                 FlexString `json:"anoPca,omitempty"`
	DataPublicacaoPncp     string     `json:"dataPublicacaoPncp,omitempty"`
	DataInclusao           string     `json:"dataInclusao,omitempty"`
	DataAtualizacao        string     `json:"dataAtualizacao,omitempty"`
	SituacaoPcaNome        string     `json:"situacaoPcaNome,omitempty"`
	PoderID                string     `json:"poderId,omitempty"`
	EsferaID               string     `json:"esferaId,omitempty"`
}

// PlanItem is one reconciled line of the annual procurement plan.
type PlanItem struct {
	ID               string           `json:"id"`
	Year             string           `json:"year"`
	Title            string           `json:"title"`
	Area             string           `json:"area"`
	Category         Category         `json:"category"`
	EstimatedValue   decimal.Decimal  `json:"estimated_value"`
	ExecutedValue    decimal.Decimal  `json:"executed_value"`
	CommittedValue   decimal.Decimal  `json:"committed_value"`
	DesiredStartDate string           `json:"desired_start_date"`
	DesiredEndDate   string           `json:"desired_end_date"`
	CaseProtocol     string           `json:"case_protocol,omitempty"`
	CaseData         *CaseData        `json:"case_data,omitempty"`
	ExecutionRecord  *ExecutionRecord `json:"execution_record,omitempty"`
	DFDNumber        string           `json:"dfd_number,omitempty"`
	FutureContractID string           `json:"future_contract_id,omitempty"`
	ItemStatus       string           `json:"item_status,omitempty"`
	TeamMembers      []string         `json:"team_members,omitempty"`
	TeamIdentified   bool             `json:"team_identified"`
	IsManual         bool             `json:"is_manual"`
}

// PlanMetadata holds publication-level facts of a year's plan.
type PlanMetadata struct {
	PlanID              string          `json:"plan_id"`
	Sequence            string          `json:"sequence"`
	PublishedAt         string          `json:"published_at,omitempty"`
	UpdatedAt           string          `json:"updated_at,omitempty"`
	TotalEstimatedValue decimal.Decimal `json:"total_estimated_value"`
	StatusLabel         string          `json:"status_label,omitempty"`
	Power               string          `json:"power,omitempty"`
	Sphere              string          `json:"sphere,omitempty"`
	UnitName            string          `json:"unit_name,omitempty"`
}

// Source names the tier official items were taken from.
type Source string

const (
	SourceLive     Source = "live"
	SourceStore    Source = "store"
	SourceSnapshot Source = "snapshot"
	SourceNone     Source = "none"
)

// CacheEntry is the reconciled result for one plan year.
type CacheEntry struct {
	Year          string        `json:"year"`
	Items         []PlanItem    `json:"items"`
	LastSyncLabel string        `json:"last_sync"`
	Metadata      *PlanMetadata `json:"metadata"`
	Source        Source        `json:"source"`
}

// PlanCacheDoc is the durable copy of the last successful live sync for a year.
type PlanCacheDoc struct {
	Year      string         `json:"year"`
	Items     []OfficialItem `json:"items"`
	Count     int            `json:"count"`
	UpdatedAt time.Time      `json:"updated_at"`
}
