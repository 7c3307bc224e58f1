// Package export renders reconciled plans as spreadsheets and reads manual items from them.
package export

import (
	"io"
	"strconv"
	"strings"
	"time"

	"github.com/rotisserie/eris"
	"github.com/shopspring/decimal"
	"github.com/tealeg/xlsx/v2"

	"github.com/andre-martiini/diretoria-adm-bsf/internal/model"
	"github.com/andre-martiini/diretoria-adm-bsf/internal/status"
)

// Header is the first row of an exported plan sheet.
var Header = []string{
	"ID", "Descrição", "Categoria", "Valor Estimado", "Valor Executado", "Valor Empenhado",
	"Início Desejado", "Fim Desejado", "Processo", "Status", "Fase", "Saúde", "DFD", "IFC",
}

// SheetName returns the sheet title used for year.
func SheetName(year string) string { return "PCA " + year }

// WritePlan writes entry as a one-sheet workbook to w. Status, phase and health are
// computed at now.
func WritePlan(w io.Writer, entry *model.CacheEntry, now time.Time) error {
	if entry == nil {
		return eris.New("export: nil plan")
	}
	f := xlsx.NewFile()
	sheet, err := f.AddSheet(SheetName(entry.Year))
	if err != nil {
		return eris.Wrap(err, "export: add sheet")
	}

	bold := xlsx.NewStyle()
	bold.Font.Bold = true
	bold.ApplyFont = true
	header := sheet.AddRow()
	for _, h := range Header {
		c := header.AddCell()
		c.SetString(h)
		c.SetStyle(bold)
	}

	for _, it := range entry.Items {
		a := status.Annotate(it, now)
		row := sheet.AddRow()
		addString(row, it.ID)
		addString(row, it.Title)
		addString(row, string(it.Category))
		addMoney(row, it.EstimatedValue)
		addMoney(row, it.ExecutedValue)
		addMoney(row, it.CommittedValue)
		addString(row, it.DesiredStartDate)
		addString(row, it.DesiredEndDate)
		addString(row, it.CaseProtocol)
		addString(row, string(a.Status))
		addString(row, string(a.Phase))
		if a.Health != nil {
			row.AddCell().SetInt(a.Health.Score)
		} else {
			addString(row, "")
		}
		addString(row, it.DFDNumber)
		addString(row, it.FutureContractID)
	}

	return eris.Wrap(f.Write(w), "export: write workbook")
}

func addString(row *xlsx.Row, s string) {
	row.AddCell().SetString(s)
}

func addMoney(row *xlsx.Row, d decimal.Decimal) {
	c := row.AddCell()
	c.SetFloatWithFormat(d.InexactFloat64(), "#,##0.00")
}

// ManualColumns is the expected column order of a manual item import sheet.
var ManualColumns = []string{"Descrição", "Categoria", "Valor", "Início", "Fim", "Área", "Processo"}

// ManualRow is one row of a manual item import sheet.
type ManualRow struct {
	Line      int
	Title     string
	Category  string
	Value     decimal.Decimal
	StartDate string
	EndDate   string
	Area      string
	Protocol  string
}

// ReadManualItems reads manual items from the first sheet of the workbook at path. The first
// row is a header and is skipped, as are rows without a title. A value that does not parse
// is an error naming the line.
func ReadManualItems(path string) ([]ManualRow, error) {
	f, err := xlsx.OpenFile(path)
	if err != nil {
		return nil, eris.Wrap(err, "export: open workbook")
	}
	if len(f.Sheets) == 0 {
		return nil, eris.New("export: workbook has no sheets")
	}

	var out []ManualRow
	for i, row := range f.Sheets[0].Rows {
		if i == 0 {
			continue
		}
		cells := rowToStrings(row, len(ManualColumns))
		if cells[0] == "" {
			continue
		}
		value := decimal.Zero
		if cells[2] != "" {
			value, err = decimal.NewFromString(cells[2])
			if err != nil {
				return nil, eris.Wrapf(err, "export: line %d: value %q", i+1, cells[2])
			}
		}
		out = append(out, ManualRow{
			Line:      i + 1,
			Title:     cells[0],
			Category:  cells[1],
			Value:     value,
			StartDate: cells[3],
			EndDate:   cells[4],
			Area:      cells[5],
			Protocol:  cells[6],
		})
	}
	return out, nil
}

// rowToStrings returns exactly n trimmed cell values, padding short rows with "".
func rowToStrings(row *xlsx.Row, n int) []string {
	cells := make([]string, n)
	for j, cell := range row.Cells {
		if j >= n {
			break
		}
		cells[j] = trimCell(cell)
	}
	return cells
}

func trimCell(c *xlsx.Cell) string {
	if c.Type() == xlsx.CellTypeNumeric {
		if v, err := c.Float(); err == nil {
			return strconv.FormatFloat(v, 'f', -1, 64)
		}
	}
	return strings.TrimSpace(c.String())
}
