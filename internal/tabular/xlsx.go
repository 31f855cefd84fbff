package tabular

import (
	"fmt"

	"github.com/xuri/excelize/v2"

	tenanterrors "github.com/clouddesk/tenantctl/pkg/errors"
)

// LoadXLSX reads one worksheet of an Excel workbook. When sheet is empty the
// workbook's first sheet is used.
func LoadXLSX(path, sheet string) ([]Record, error) {
	book, err := excelize.OpenFile(path)
	if err != nil {
		return nil, tenanterrors.NewParseError(path, 0, err)
	}
	defer book.Close()

	if sheet == "" {
		sheet = book.GetSheetName(0)
	}

	rows, err := book.GetRows(sheet)
	if err != nil {
		return nil, tenanterrors.NewParseError(path, 0, fmt.Errorf("sheet %q: %w", sheet, err))
	}
	if len(rows) == 0 {
		return nil, tenanterrors.NewParseError(path, 0, fmt.Errorf("sheet %q is empty", sheet))
	}

	headers := normalizeHeaders(rows[0])

	var records []Record
	for i, cells := range rows[1:] {
		if allEmpty(cells) {
			continue
		}
		records = append(records, buildRecord(i+2, headers, cells))
	}

	return records, nil
}
