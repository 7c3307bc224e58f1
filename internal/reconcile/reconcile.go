// Package reconcile merges official plan items with local overrides, manual items and
// execution-registry records into the denormalized PlanItem view.
package reconcile

import (
	"fmt"
	"strconv"
	"strings"

	"github.com/shopspring/decimal"

	"github.com/andre-martiini/diretoria-adm-bsf/internal/model"
	"github.com/andre-martiini/diretoria-adm-bsf/internal/resolve"
)

// Defaults applied when the source leaves a display field empty.
const (
	DefaultTitle       = "Item do Plano de Contratação"
	DefaultArea        = "IFES - BSF"
	DefaultManualTitle = "Item Manual"
	DefaultManualArea  = "Manual"
)

// ItemStatusNotStarted is the item status of an official item with no linked case.
const ItemStatusNotStarted = "Não iniciado"

// ExecutionIndex maps normalized process identifiers to execution records. When two
// records share an identifier the first one wins, which matches a front-to-back scan.
type ExecutionIndex map[string]*model.ExecutionRecord

// NewExecutionIndex indexes records by normalized process identifier. Records without
// digits in their identifier are not indexed.
func NewExecutionIndex(records []model.ExecutionRecord) ExecutionIndex {
	ix := make(ExecutionIndex, len(records))
	for i := range records {
		key := resolve.NormalizeProtocol(records[i].ProcessIdentifier)
		if key == "" {
			continue
		}
		if _, ok := ix[key]; !ok {
			ix[key] = &records[i]
		}
	}
	return ix
}

// Lookup returns the record for protocol, or nil.
func (ix ExecutionIndex) Lookup(protocol string) *model.ExecutionRecord {
	key := resolve.NormalizeProtocol(protocol)
	if key == "" {
		return nil
	}
	return ix[key]
}

// Reconcile produces the plan view for year: official items in registry order with
// their overrides and execution matches applied, followed by manual items.
//
// Overrides are keyed by official item id; overrides whose id matches no official item
// are dropped. Manual items keep their own category and value; only their execution
// match is resolved. The result depends only on the inputs.
func Reconcile(
	year string,
	officials []model.OfficialItem,
	overrides map[string]model.OverrideRecord,
	manuals []model.PlanItem,
	execution []model.ExecutionRecord,
) []model.PlanItem {
	ix := NewExecutionIndex(execution)
	out := make([]model.PlanItem, 0, len(officials)+len(manuals))

	for i, raw := range officials {
		item := MapOfficial(year, i, raw)
		if ov, ok := overrides[item.ID]; ok {
			applyOverride(&item, ov)
		}
		attachExecution(&item, ix)
		out = append(out, item)
	}

	for _, m := range manuals {
		m.Year = year
		m.IsManual = true
		m.ExecutionRecord = nil
		m.CommittedValue = decimal.Zero
		attachExecution(&m, ix)
		out = append(out, m)
	}
	return out
}

// MapOfficial maps one registry item to a PlanItem without any local data. index is the
// item's position in the registry list and only serves as a last-resort id.
func MapOfficial(year string, index int, raw model.OfficialItem) model.PlanItem {
	title := strings.TrimSpace(raw.Descricao)
	if title == "" {
		title = strings.TrimSpace(raw.GrupoContratacaoNome)
	}
	if title == "" {
		title = DefaultTitle
	}
	area := strings.TrimSpace(raw.NomeUnidade)
	if area == "" {
		area = DefaultArea
	}
	code := strings.TrimSpace(raw.GrupoContratacaoCodigo)

	return model.PlanItem{
		ID:               officialID(index, raw),
		Year:             year,
		Title:            title,
		Area:             area,
		Category:         Categorize(categoryLabel(raw)),
		EstimatedValue:   EstimatedValue(raw),
		ExecutedValue:    decimal.Zero,
		CommittedValue:   decimal.Zero,
		DesiredStartDate: strings.TrimSpace(raw.DataDesejada),
		DesiredEndDate:   strings.TrimSpace(raw.DataFim),
		DFDNumber:        resolve.DFDNumber(code),
		FutureContractID: code,
		ItemStatus:       ItemStatusNotStarted,
	}
}

func officialID(index int, raw model.OfficialItem) string {
	if id := raw.ID.String(); id != "" {
		return id
	}
	if n := raw.NumeroItem.String(); n != "" {
		return n
	}
	return strconv.Itoa(index)
}

func categoryLabel(raw model.OfficialItem) string {
	if raw.CategoriaItemPcaNome != "" {
		return raw.CategoriaItemPcaNome
	}
	return raw.NomeClassificacao
}

// Categorize maps a free-text category name onto a Category. Services are checked
// before IT, so "Serviços de TIC" is a service.
func Categorize(label string) model.Category {
	folded := resolve.Fold(label)
	switch {
	case resolve.ContainsAny(folded, "SERVIC", "OBRA"):
		return model.CategoryServices
	case resolve.ContainsAny(folded, "TIC", "TECNOLOGIA"):
		return model.CategoryIT
	default:
		return model.CategoryGoods
	}
}

// EstimatedValue is valorTotal when positive, else valorUnitario × quantidade, never negative.
func EstimatedValue(raw model.OfficialItem) decimal.Decimal {
	v := raw.ValorTotal.Decimal
	if !v.IsPositive() {
		v = raw.ValorUnitario.Mul(raw.Quantidade.Decimal)
	}
	if v.IsNegative() {
		return decimal.Zero
	}
	return v
}

func applyOverride(item *model.PlanItem, ov model.OverrideRecord) {
	if p := strings.TrimSpace(model.Str(ov.CaseProtocol)); p != "" {
		item.CaseProtocol = p
		item.ItemStatus = model.ItemStatusInProcess
	}
	if ov.CaseData != nil {
		cd := *ov.CaseData
		item.CaseData = &cd
	}
	if ov.ExecutedValue != nil && !ov.ExecutedValue.IsNegative() {
		item.ExecutedValue = *ov.ExecutedValue
	}
	if ov.TeamMembers != nil {
		item.TeamMembers = append([]string(nil), (*ov.TeamMembers)...)
	}
	if ov.TeamIdentified != nil {
		item.TeamIdentified = *ov.TeamIdentified
	}
	if s := model.Str(ov.DFDNumber); s != "" {
		item.DFDNumber = s
	}
	if s := model.Str(ov.FutureContractID); s != "" {
		item.FutureContractID = s
	}
	if s := model.Str(ov.ItemStatus); s != "" {
		item.ItemStatus = s
	}
}

func attachExecution(item *model.PlanItem, ix ExecutionIndex) {
	if item.CaseProtocol == "" {
		return
	}
	rec := ix.Lookup(item.CaseProtocol)
	if rec == nil {
		return
	}
	item.CommittedValue = rec.HomologatedTotal
	item.ExecutionRecord = rec
}

// SplitRecords separates store documents into overrides keyed by official id and manual
// plan items in store order.
func SplitRecords(records []model.OverrideRecord) (map[string]model.OverrideRecord, []model.PlanItem) {
	overrides := make(map[string]model.OverrideRecord)
	var manuals []model.PlanItem
	for _, rec := range records {
		switch {
		case rec.IsManual:
			manuals = append(manuals, ManualItem(rec))
		case strings.TrimSpace(rec.OfficialID) != "":
			overrides[strings.TrimSpace(rec.OfficialID)] = rec
		}
	}
	return overrides, manuals
}

// ManualItem converts a manual store document into a PlanItem.
func ManualItem(rec model.OverrideRecord) model.PlanItem {
	item := model.PlanItem{
		ID:               rec.Key,
		Year:             rec.Year,
		Title:            strings.TrimSpace(model.Str(rec.Title)),
		Area:             strings.TrimSpace(model.Str(rec.Area)),
		Category:         model.ParseCategory(model.Str(rec.Category)),
		EstimatedValue:   model.Dec(rec.Value),
		ExecutedValue:    model.Dec(rec.ExecutedValue),
		CommittedValue:   decimal.Zero,
		DesiredStartDate: model.Str(rec.StartDate),
		DesiredEndDate:   model.Str(rec.EndDate),
		CaseProtocol:     strings.TrimSpace(model.Str(rec.CaseProtocol)),
		DFDNumber:        model.Str(rec.DFDNumber),
		FutureContractID: model.Str(rec.FutureContractID),
		ItemStatus:       model.Str(rec.ItemStatus),
		IsManual:         true,
	}
	if item.Title == "" {
		item.Title = DefaultManualTitle
	}
	if item.Area == "" {
		item.Area = DefaultManualArea
	}
	if item.ItemStatus == "" {
		item.ItemStatus = ItemStatusNotStarted
		if item.CaseProtocol != "" {
			item.ItemStatus = model.ItemStatusInProcess
		}
	}
	if item.EstimatedValue.IsNegative() {
		item.EstimatedValue = decimal.Zero
	}
	if item.ExecutedValue.IsNegative() {
		item.ExecutedValue = decimal.Zero
	}
	if rec.CaseData != nil {
		cd := *rec.CaseData
		item.CaseData = &cd
	}
	if rec.TeamMembers != nil {
		item.TeamMembers = append([]string(nil), (*rec.TeamMembers)...)
	}
	if rec.TeamIdentified != nil {
		item.TeamIdentified = *rec.TeamIdentified
	}
	return item
}

// ExtractMetadata derives publication metadata from the first official item. It returns
// nil when there are no official items. items is the reconciled output and supplies the
// estimated total of the official lines.
func ExtractMetadata(year string, officials []model.OfficialItem, items []model.PlanItem, fallbackCNPJ, fallbackSeq string) *model.PlanMetadata {
	if len(officials) == 0 {
		return nil
	}
	first := officials[0]

	cnpj := strings.TrimSpace(first.CNPJ)
	if cnpj == "" {
		cnpj = fallbackCNPJ
	}
	seq := first.SequencialPca.String()
	if seq == "" {
		seq = fallbackSeq
	}
	planYear := first.AnoPca.String()
	if planYear == "" {
		planYear = year
	}
	published := first.DataPublicacaoPncp
	if published == "" {
		published = first.DataInclusao
	}

	total := decimal.Zero
	for _, it := range items {
		if !it.IsManual {
			total = total.Add(it.EstimatedValue)
		}
	}

	return &model.PlanMetadata{
		PlanID:              fmt.Sprintf("%s-0-%s/%s", cnpj, padSequence(seq), planYear),
		Sequence:            seq,
		PublishedAt:         published,
		UpdatedAt:           first.DataAtualizacao,
		TotalEstimatedValue: total,
		StatusLabel:         first.SituacaoPcaNome,
		Power:               first.PoderID,
		Sphere:              first.EsferaID,
		UnitName:            first.NomeUnidade,
	}
}

func padSequence(seq string) string {
	if len(seq) >= 6 {
		return seq
	}
	return strings.Repeat("0", 6-len(seq)) + seq
}
