package sink

import (
	"context"

	"page-scraper/models"

	"github.com/rotisserie/eris"
	"github.com/tealeg/xlsx/v2"
)

// DefaultSheetName is used when an XLSX sink is given no sheet name
const DefaultSheetName = "Sheet1"

// XLSX writes a session to a single sheet workbook. Numbers stay numeric.
type XLSX struct {
	Path      string
	SheetName string
}

// NewXLSX creates an XLSX sink for path
func NewXLSX(path, sheetName string) *XLSX {
	if sheetName == "" {
		sheetName = DefaultSheetName
	}
	return &XLSX{Path: path, SheetName: sheetName}
}

func (x *XLSX) Write(ctx context.Context, session *models.Session) error {
	if session.Len() == 0 {
		return ErrEmptySession
	}
	if err := ctx.Err(); err != nil {
		return &WriteError{Sink: "xlsx", Target: x.Path, Err: err}
	}

	f := xlsx.NewFile()
	sheet, err := f.AddSheet(x.SheetName)
	if err != nil {
		return &WriteError{Sink: "xlsx", Target: x.Path, Err: eris.Wrap(err, "add sheet")}
	}

	header := session.FieldNames()
	row := sheet.AddRow()
	for _, name := range header {
		row.AddCell().SetString(name)
	}

	for _, record := range session.Records {
		row := sheet.AddRow()
		for _, name := range header {
			cell := row.AddCell()
			v, ok := record.Get(name)
			if !ok {
				continue
			}
			switch val := v.(type) {
			case float64:
				cell.SetFloat(val)
			case int:
				cell.SetInt(val)
			case int64:
				cell.SetInt64(val)
			default:
				cell.SetString(models.FormatValue(val))
			}
		}
	}

	if err := f.Save(x.Path); err != nil {
		return &WriteError{Sink: "xlsx", Target: x.Path, Err: eris.Wrap(err, "save workbook")}
	}
	return nil
}
