package tabular

import (
	"encoding/csv"
	"fmt"
	"io"
	"os"

	tenanterrors "github.com/clouddesk/tenantctl/pkg/errors"
)

// LoadCSV reads a comma-separated batch file. The first row is the header;
// rows that are entirely empty are skipped.
func LoadCSV(path string) ([]Record, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, tenanterrors.NewParseError(path, 0, err)
	}
	defer f.Close()

	reader := csv.NewReader(f)
	reader.FieldsPerRecord = -1
	reader.TrimLeadingSpace = true

	rawHeaders, err := reader.Read()
	if err == io.EOF {
		return nil, tenanterrors.NewParseError(path, 0, fmt.Errorf("file is empty"))
	}
	if err != nil {
		return nil, tenanterrors.NewParseError(path, 1, err)
	}
	headers := normalizeHeaders(rawHeaders)

	var records []Record
	row := 1
	for {
		cells, err := reader.Read()
		if err == io.EOF {
			break
		}
		row++
		if err != nil {
			return nil, tenanterrors.NewParseError(path, row, err)
		}
		if allEmpty(cells) {
			continue
		}
		records = append(records, buildRecord(row, headers, cells))
	}

	return records, nil
}

func allEmpty(cells []string) bool {
	for _, c := range cells {
		if c != "" {
			return false
		}
	}
	return true
}
