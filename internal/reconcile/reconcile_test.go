package reconcile

import (
	"encoding/json"
	"testing"

	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/andre-martiini/diretoria-adm-bsf/internal/model"
)

func official(t *testing.T, raw string) model.OfficialItem {
	t.Helper()
	var it model.OfficialItem
	require.NoError(t, json.Unmarshal([]byte(raw), &it))
	return it
}

func execRecord(t *testing.T, raw string) model.ExecutionRecord {
	t.Helper()
	var r model.ExecutionRecord
	require.NoError(t, json.Unmarshal([]byte(raw), &r))
	return r
}

func TestReconcile_EndToEnd(t *testing.T) {
	officials := []model.OfficialItem{
		official(t, `{"id":"1","grupoContratacaoCodigo":"100-9/2026","valorTotal":5000,"descricao":"Notebooks"}`),
	}
	overrides := map[string]model.OverrideRecord{
		"1": {OfficialID: "1", CaseProtocol: model.Ptr("23543.000123/2026")},
	}
	execution := []model.ExecutionRecord{
		execRecord(t, `{"processo":"23543000123/2026","valorTotalHomologado":4800}`),
	}

	items := Reconcile("2026", officials, overrides, nil, execution)
	require.Len(t, items, 1)

	it := items[0]
	assert.Equal(t, "1", it.ID)
	assert.True(t, it.EstimatedValue.Equal(decimal.NewFromInt(5000)))
	assert.True(t, it.CommittedValue.Equal(decimal.NewFromInt(4800)))
	assert.Equal(t, "9/2026", it.DFDNumber)
	assert.Equal(t, "100-9/2026", it.FutureContractID)
	assert.Equal(t, model.ItemStatusInProcess, it.ItemStatus)
	require.NotNil(t, it.ExecutionRecord)
	assert.Equal(t, "23543000123/2026", it.ExecutionRecord.ProcessIdentifier)
}

func TestReconcile_OrderAndOrphans(t *testing.T) {
	officials := []model.OfficialItem{
		official(t, `{"id":"b","valorTotal":10}`),
		official(t, `{"id":"a","valorTotal":20}`),
	}
	overrides := map[string]model.OverrideRecord{
		"zzz": {OfficialID: "zzz", CaseProtocol: model.Ptr("1")},
	}
	manuals := []model.PlanItem{{ID: "m1", Title: "Cadeiras", Category: model.CategoryGoods, EstimatedValue: decimal.NewFromInt(7)}}

	items := Reconcile("2026", officials, overrides, manuals, nil)
	require.Len(t, items, 3)
	assert.Equal(t, "b", items[0].ID)
	assert.Equal(t, "a", items[1].ID)
	assert.Equal(t, "m1", items[2].ID)
	assert.True(t, items[2].IsManual)
	assert.Empty(t, items[0].CaseProtocol)
	assert.Empty(t, items[1].CaseProtocol)
}

func TestReconcile_Deterministic(t *testing.T) {
	officials := []model.OfficialItem{
		official(t, `{"id":"1","valorTotal":1}`),
		official(t, `{"numeroItem":2,"valorUnitario":"2.5","quantidade":4}`),
		official(t, `{"descricao":"sem id"}`),
	}
	overrides := map[string]model.OverrideRecord{"2": {CaseProtocol: model.Ptr("99")}}
	execution := []model.ExecutionRecord{execRecord(t, `{"processo":"9-9","valorTotalHomologado":3}`)}

	first := Reconcile("2026", officials, overrides, nil, execution)
	second := Reconcile("2026", officials, overrides, nil, execution)
	assert.Equal(t, first, second)

	assert.Equal(t, "2", first[1].ID)
	assert.Equal(t, "2", first[2].ID, "positional fallback id")
	assert.True(t, first[1].EstimatedValue.Equal(decimal.NewFromInt(10)))
	assert.True(t, first[1].CommittedValue.Equal(decimal.NewFromInt(3)))
}

func TestReconcile_ManualItemsKeepCategoryAndValue(t *testing.T) {
	manual := model.PlanItem{
		ID:             "m1",
		Title:          "Reforma",
		Category:       model.CategoryServices,
		EstimatedValue: decimal.NewFromInt(900),
		CaseProtocol:   "23543.000777/2026",
	}
	execution := []model.ExecutionRecord{execRecord(t, `{"processo":"23543000777/2026","valorTotalHomologado":850}`)}

	items := Reconcile("2026", nil, nil, []model.PlanItem{manual}, execution)
	require.Len(t, items, 1)
	assert.Equal(t, model.CategoryServices, items[0].Category)
	assert.True(t, items[0].EstimatedValue.Equal(decimal.NewFromInt(900)))
	assert.True(t, items[0].CommittedValue.Equal(decimal.NewFromInt(850)))
	assert.Equal(t, "Reforma", items[0].Title)
}

func TestReconcile_OverrideFields(t *testing.T) {
	officials := []model.OfficialItem{official(t, `{"id":"5","grupoContratacaoCodigo":"7-1/2026"}`)}
	team := []string{"Ana", "Bruno"}
	overrides := map[string]model.OverrideRecord{"5": {
		ExecutedValue:    model.Ptr(decimal.NewFromInt(120)),
		TeamMembers:      &team,
		TeamIdentified:   model.Ptr(true),
		DFDNumber:        model.Ptr("33/2026"),
		FutureContractID: model.Ptr("IFC-1"),
		ItemStatus:       model.Ptr("Concluído"),
		CaseData:         &model.CaseData{Status: "ATIVO"},
	}}

	items := Reconcile("2026", officials, overrides, nil, nil)
	require.Len(t, items, 1)
	it := items[0]
	assert.True(t, it.ExecutedValue.Equal(decimal.NewFromInt(120)))
	assert.Equal(t, []string{"Ana", "Bruno"}, it.TeamMembers)
	assert.True(t, it.TeamIdentified)
	assert.Equal(t, "33/2026", it.DFDNumber)
	assert.Equal(t, "IFC-1", it.FutureContractID)
	assert.Equal(t, "Concluído", it.ItemStatus)
	require.NotNil(t, it.CaseData)

	team[0] = "Changed"
	assert.Equal(t, "Ana", it.TeamMembers[0])
}

func TestReconcile_NoMatchLeavesLinkageEmpty(t *testing.T) {
	officials := []model.OfficialItem{official(t, `{"id":"1"}`)}
	overrides := map[string]model.OverrideRecord{"1": {CaseProtocol: model.Ptr("23543.000999/2026")}}
	execution := []model.ExecutionRecord{execRecord(t, `{"processo":"23543000123/2026","valorTotalHomologado":1}`)}

	items := Reconcile("2026", officials, overrides, nil, execution)
	assert.Nil(t, items[0].ExecutionRecord)
	assert.True(t, items[0].CommittedValue.IsZero())
}

func TestMapOfficial_Defaults(t *testing.T) {
	it := MapOfficial("2026", 3, official(t, `{}`))
	assert.Equal(t, "3", it.ID)
	assert.Equal(t, DefaultTitle, it.Title)
	assert.Equal(t, DefaultArea, it.Area)
	assert.Equal(t, model.CategoryGoods, it.Category)
	assert.True(t, it.EstimatedValue.IsZero())
	assert.Empty(t, it.DFDNumber)
	assert.Equal(t, ItemStatusNotStarted, it.ItemStatus)

	it = MapOfficial("2026", 0, official(t, `{"grupoContratacaoNome":"Grupo X","nomeUnidade":"DAP"}`))
	assert.Equal(t, "Grupo X", it.Title)
	assert.Equal(t, "DAP", it.Area)
}

func TestEstimatedValue(t *testing.T) {
	tests := []struct {
		name string
		raw  string
		want string
	}{
		{"total wins", `{"valorTotal":100,"valorUnitario":1,"quantidade":2}`, "100"},
		{"unit times qty", `{"valorTotal":0,"valorUnitario":"12.50","quantidade":3}`, "37.5"},
		{"negative coerces", `{"valorTotal":-5,"valorUnitario":-2,"quantidade":3}`, "0"},
		{"garbage", `{"valorTotal":"abc"}`, "0"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got := EstimatedValue(official(t, tt.raw))
			assert.Equal(t, tt.want, got.String())
			assert.False(t, got.IsNegative())
		})
	}
}

func TestCategorize(t *testing.T) {
	tests := []struct {
		label string
		want  model.Category
	}{
		{"Serviços", model.CategoryServices},
		{"SERVICOS COMUNS", model.CategoryServices},
		{"Obras", model.CategoryServices},
		{"Soluções de TIC", model.CategoryIT},
		{"Tecnologia da Informação", model.CategoryIT},
		{"Material de consumo", model.CategoryGoods},
		{"", model.CategoryGoods},
	}
	for _, tt := range tests {
		t.Run(tt.label, func(t *testing.T) {
			assert.Equal(t, tt.want, Categorize(tt.label))
		})
	}

	it := MapOfficial("2026", 0, official(t, `{"nomeClassificacao":"Serviço de limpeza"}`))
	assert.Equal(t, model.CategoryServices, it.Category)
}

func TestExecutionIndex_FirstWins(t *testing.T) {
	ix := NewExecutionIndex([]model.ExecutionRecord{
		execRecord(t, `{"processo":"1.2/3","valorTotalHomologado":1}`),
		execRecord(t, `{"processo":"12/3","valorTotalHomologado":2}`),
		execRecord(t, `{"processo":"sem numero","valorTotalHomologado":3}`),
	})
	require.NotNil(t, ix.Lookup("123"))
	assert.True(t, ix.Lookup("1-2-3").HomologatedTotal.Equal(decimal.NewFromInt(1)))
	assert.Nil(t, ix.Lookup(""))
	assert.Nil(t, ix.Lookup("abc"))
	assert.Len(t, ix, 1)
}

func TestSplitRecords(t *testing.T) {
	records := []model.OverrideRecord{
		{Key: "2026-1", Year: "2026", OfficialID: "1", CaseProtocol: model.Ptr("1")},
		{Key: "uuid-1", Year: "2026", IsManual: true, Title: model.Ptr("Mesa"), Category: model.Ptr("Serviços"), Value: model.Ptr(decimal.NewFromInt(50))},
		{Key: "uuid-2", Year: "2026", IsManual: true},
		{Key: "broken", Year: "2026"},
	}
	overrides, manuals := SplitRecords(records)
	assert.Len(t, overrides, 1)
	assert.Contains(t, overrides, "1")

	require.Len(t, manuals, 2)
	assert.Equal(t, "uuid-1", manuals[0].ID)
	assert.Equal(t, "Mesa", manuals[0].Title)
	assert.Equal(t, model.CategoryServices, manuals[0].Category)
	assert.True(t, manuals[0].EstimatedValue.Equal(decimal.NewFromInt(50)))
	assert.Equal(t, DefaultManualTitle, manuals[1].Title)
	assert.Equal(t, DefaultManualArea, manuals[1].Area)
	assert.Equal(t, ItemStatusNotStarted, manuals[1].ItemStatus)
}

func TestExtractMetadata(t *testing.T) {
	assert.Nil(t, ExtractMetadata("2026", nil, nil, "1", "12"))

	officials := []model.OfficialItem{
		official(t, `{"id":"1","cnpj":"10838653000106","sequencialPca":12,"anoPca":2026,"dataInclusao":"2025-11-01","situacaoPcaNome":"Publicado"}`),
	}
	items := []model.PlanItem{
		{ID: "1", EstimatedValue: decimal.NewFromInt(100)},
		{ID: "m", EstimatedValue: decimal.NewFromInt(5), IsManual: true},
	}
	meta := ExtractMetadata("2026", officials, items, "x", "1")
	require.NotNil(t, meta)
	assert.Equal(t, "10838653000106-0-000012/2026", meta.PlanID)
	assert.Equal(t, "2025-11-01", meta.PublishedAt)
	assert.Equal(t, "Publicado", meta.StatusLabel)
	assert.True(t, meta.TotalEstimatedValue.Equal(decimal.NewFromInt(100)))

	meta = ExtractMetadata("2027", []model.OfficialItem{{}}, nil, "999", "7")
	assert.Equal(t, "999-0-000007/2027", meta.PlanID)
}
