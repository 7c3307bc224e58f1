package model

import (
	"encoding/json"
	"testing"

	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestOfficialItem_LenientDecode(t *testing.T) {
	raw := `{
		"id": 42,
		"numeroItem": "7",
		"valorTotal": "1500.50",
		"valorUnitario": null,
		"quantidade": "abc",
		"sequencialPca": 12
	}`

	var item OfficialItem
	require.NoError(t, json.Unmarshal([]byte(raw), &item))

	assert.Equal(t, "42", item.ID.String())
	assert.Equal(t, "7", item.NumeroItem.String())
	assert.True(t, item.ValorTotal.Equal(decimal.RequireFromString("1500.50")))
	assert.True(t, item.ValorUnitario.IsZero())
	assert.True(t, item.Quantidade.IsZero())
	assert.Equal(t, "12", item.SequencialPca.String())
}

func TestParseCategory(t *testing.T) {
	assert.Equal(t, CategoryServices, ParseCategory("Serviços"))
	assert.Equal(t, CategoryServices, ParseCategory("servicos"))
	assert.Equal(t, CategoryIT, ParseCategory("TIC"))
	assert.Equal(t, CategoryGoods, ParseCategory("Bens"))
	assert.Equal(t, CategoryGoods, ParseCategory(""))
}

func TestExecutionRecord_KeepsUnknownFields(t *testing.T) {
	raw := `{"processo":"23543.000123/2026","valorTotalHomologado":4800,"modalidadeNome":"Pregão","orgaoEntidade":{"cnpj":"10838653000106"}}`

	var rec ExecutionRecord
	require.NoError(t, json.Unmarshal([]byte(raw), &rec))
	assert.Equal(t, "23543.000123/2026", rec.ProcessIdentifier)
	assert.True(t, rec.HomologatedTotal.Equal(decimal.NewFromInt(4800)))
	assert.Equal(t, "Pregão", rec.Modality)

	out, err := json.Marshal(rec)
	require.NoError(t, err)

	var back map[string]any
	require.NoError(t, json.Unmarshal(out, &back))
	assert.Contains(t, back, "orgaoEntidade")
	assert.Equal(t, "23543.000123/2026", back["processo"])
}

func TestCaseData_LatestMovementDate(t *testing.T) {
	var nilCase *CaseData
	assert.Empty(t, nilCase.LatestMovementDate())

	c := &CaseData{FilingDate: "01/02/2026"}
	assert.Equal(t, "01/02/2026", c.LatestMovementDate())

	c.Movements = []Movement{{Date: "10/03/2026"}, {Date: "05/03/2026"}}
	assert.Equal(t, "10/03/2026", c.LatestMovementDate())
}
