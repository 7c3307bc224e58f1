package export

import (
	"bytes"
	"path/filepath"
	"testing"
	"time"

	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/tealeg/xlsx/v2"

	"github.com/andre-martiini/diretoria-adm-bsf/internal/model"
)

var now = time.Date(2026, 3, 20, 14, 30, 0, 0, time.UTC)

func rowStrings(row *xlsx.Row) []string {
	out := make([]string, len(row.Cells))
	for i, c := range row.Cells {
		out[i] = c.String()
	}
	return out
}

func TestWritePlan(t *testing.T) {
	entry := &model.CacheEntry{
		Year: "2026",
		Items: []model.PlanItem{
			{
				ID:               "1",
				Title:            "Notebooks",
				Category:         model.CategoryIT,
				EstimatedValue:   decimal.NewFromInt(5000),
				CommittedValue:   decimal.NewFromInt(4800),
				DesiredStartDate: "01/02/2026",
				CaseProtocol:     "23543.000123/2026",
				CaseData: &model.CaseData{
					CurrentUnit: "PROCURADORIA FEDERAL",
					Movements:   []model.Movement{{Date: "20/03/2026", OriginUnit: "DAP", DestinationUnit: "PROCURADORIA FEDERAL"}},
				},
				DFDNumber:        "9/2026",
				FutureContractID: "100-9/2026",
			},
			{ID: "manual-1", Title: "Reforma", Category: model.CategoryServices, IsManual: true},
		},
	}

	var buf bytes.Buffer
	require.NoError(t, WritePlan(&buf, entry, now))

	f, err := xlsx.OpenBinary(buf.Bytes())
	require.NoError(t, err)
	sheet, ok := f.Sheet["PCA 2026"]
	require.True(t, ok)
	require.Len(t, sheet.Rows, 3)
	assert.Equal(t, Header, rowStrings(sheet.Rows[0]))

	first := sheet.Rows[1].Cells
	require.Len(t, first, len(Header))
	assert.Equal(t, "1", first[0].String())
	assert.Equal(t, "TIC", first[2].String())
	est, err := first[3].Float()
	require.NoError(t, err)
	assert.InDelta(t, 5000.0, est, 0.001)
	committed, err := first[5].Float()
	require.NoError(t, err)
	assert.InDelta(t, 4800.0, committed, 0.001)
	assert.Equal(t, "Em execução", first[9].String())
	assert.Equal(t, "Análise Jurídica", first[10].String())
	score, err := first[11].Int()
	require.NoError(t, err)
	assert.Equal(t, 100, score)
	assert.Equal(t, "9/2026", first[12].String())
	assert.Equal(t, "100-9/2026", first[13].String())

	second := sheet.Rows[2].Cells
	assert.Equal(t, "Reforma", second[1].String())
	assert.Equal(t, "Serviços", second[2].String())
}

func TestWritePlan_Nil(t *testing.T) {
	var buf bytes.Buffer
	assert.Error(t, WritePlan(&buf, nil, now))
}

func writeSheet(t *testing.T, rows [][]string) string {
	t.Helper()
	f := xlsx.NewFile()
	sheet, err := f.AddSheet("Itens")
	require.NoError(t, err)
	for _, r := range rows {
		row := sheet.AddRow()
		for _, v := range r {
			row.AddCell().SetString(v)
		}
	}
	path := filepath.Join(t.TempDir(), "manual.xlsx")
	require.NoError(t, f.Save(path))
	return path
}

func TestReadManualItems(t *testing.T) {
	path := writeSheet(t, [][]string{
		ManualColumns,
		{"Reforma do auditório", "Serviços", "50000.50", "01/04/2026", "30/06/2026", "Manutenção", ""},
		{"", "Bens", "10"},
		{" Cadeiras ", "Bens"},
	})

	rows, err := ReadManualItems(path)
	require.NoError(t, err)
	require.Len(t, rows, 2)

	assert.Equal(t, 2, rows[0].Line)
	assert.Equal(t, "Reforma do auditório", rows[0].Title)
	assert.True(t, rows[0].Value.Equal(decimal.RequireFromString("50000.50")))
	assert.Equal(t, "30/06/2026", rows[0].EndDate)
	assert.Equal(t, "Manutenção", rows[0].Area)

	assert.Equal(t, 4, rows[1].Line)
	assert.Equal(t, "Cadeiras", rows[1].Title)
	assert.True(t, rows[1].Value.IsZero())
	assert.Empty(t, rows[1].Protocol)
}

func TestReadManualItems_BadValue(t *testing.T) {
	path := writeSheet(t, [][]string{
		ManualColumns,
		{"Cadeiras", "Bens", "muito"},
	})

	_, err := ReadManualItems(path)
	require.Error(t, err)
	assert.Contains(t, err.Error(), "line 2")
}

func TestReadManualItems_MissingFile(t *testing.T) {
	_, err := ReadManualItems(filepath.Join(t.TempDir(), "nope.xlsx"))
	assert.Error(t, err)
}
