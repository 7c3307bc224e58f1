package model

import (
	"encoding/json"

	"github.com/shopspring/decimal"
)

// ExecutionRecord is one purchase from the financial-execution registry. Only the fields the
// reconciliation reads are typed; the full upstream object is kept in Raw and written back out
// on marshal so consumers see every field the registry sent.
type ExecutionRecord struct {
	ProcessIdentifier string          `json:"-"`
	HomologatedTotal  decimal.Decimal `json:"-"`
	EstimatedTotal    decimal.Decimal `json:"-"`
	Modality          string          `json:"-"`
	Situation         string          `json:"-"`
	PublishedAt       string          `json:"-"`
	PurchaseNumber    string          `json:"-"`
	PurchaseYear      string          `json:"-"`
	Subject           string          `json:"-"`
	Raw               json.RawMessage `json:"-"`
}

type executionWire struct {
	Processo               string     `json:"processo"`
	ValorTotalHomologado   Amount     `json:"valorTotalHomologado"`
	ValorTotalEstimado     Amount     `json:"valorTotalEstimado"`
	ModalidadeNome         string     `json:"modalidadeNome,omitempty"`
	SituacaoCompraNomePncp string     `json:"situacaoCompraNomePncp,omitempty"`
	SituacaoNome           string     `json:"situacaoNome,omitempty"`
	DataPublicacaoPncp     string     `json:"dataPublicacaoPncp,omitempty"`
	NumeroCompra           FlexString `json:"numeroCompra,omitempty"`
	AnoCompra              FlexString `json:"anoCompra,omitempty"`
	Objeto                 string     `json:"objeto,omitempty"`
}

// UnmarshalJSON implements json.Unmarshaler.
func (r *ExecutionRecord) UnmarshalJSON(b []byte) error {
	var w executionWire
	if err := json.Unmarshal(b, &w); err != nil {
		return err
	}
	situation := w.SituacaoCompraNomePncp
	if situation == "" {
		situation = w.SituacaoNome
	}
	*r = ExecutionRecord{
		ProcessIdentifier: w.Processo,
		HomologatedTotal:  w.ValorTotalHomologado.Decimal,
		EstimatedTotal:    w.ValorTotalEstimado.Decimal,
		Modality:          w.ModalidadeNome,
		Situation:         situation,
		PublishedAt:       w.DataPublicacaoPncp,
		PurchaseNumber:    w.NumeroCompra.String(),
		PurchaseYear:      w.AnoCompra.String(),
		Subject:           w.Objeto,
		Raw:               append(json.RawMessage(nil), b...),
	}
	return nil
}

// MarshalJSON implements json.Marshaler. Typed fields win over the same keys in Raw.
func (r ExecutionRecord) MarshalJSON() ([]byte, error) {
	out := map[string]json.RawMessage{}
	if len(r.Raw) > 0 {
		// Raw that is not an object is dropped; the typed fields still go out.
		_ = json.Unmarshal(r.Raw, &out)
	}

	typed, err := json.Marshal(executionWire{
		Processo:               r.ProcessIdentifier,
		ValorTotalHomologado:   NewAmount(r.HomologatedTotal),
		ValorTotalEstimado:     NewAmount(r.EstimatedTotal),
		ModalidadeNome:         r.Modality,
		SituacaoCompraNomePncp: r.Situation,
		DataPublicacaoPncp:     r.PublishedAt,
		NumeroCompra:           FlexString(r.PurchaseNumber),
		AnoCompra:              FlexString(r.PurchaseYear),
		Objeto:                 r.Subject,
	})
	if err != nil {
		return nil, err
	}
	var typedFields map[string]json.RawMessage
	if err := json.Unmarshal(typed, &typedFields); err != nil {
		return nil, err
	}
	for k, v := range typedFields {
		out[k] = v
	}
	return json.Marshal(out)
}
