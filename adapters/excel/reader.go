package excel

import (
	"encoding/csv"
	"fmt"
	"os"
	"path/filepath"
	"strconv"
	"strings"

	"demounit/internal"

	"github.com/xuri/excelize/v2"
)

// ObservationReader reads an observation table from an Excel or CSV file.
// The first sheet (or the CSV) needs a header row with the columns
// test, mean and std; any other column is ignored.
type ObservationReader struct {
	filePath string
	fileType string // "xlsx" or "csv"
	log      *internal.Logger
}

// NewObservationReader picks the format from the file extension.
func NewObservationReader(filePath string) *ObservationReader {
	ext := strings.ToLower(filepath.Ext(filePath))
	fileType := "xlsx"
	if ext == ".csv" {
		fileType = "csv"
	}
	return &ObservationReader{filePath: filePath, fileType: fileType, log: internal.DefaultLogger.With("excel")}
}

// Read returns the observations keyed by test alias, in the raw layout the
// test constructors validate.
func (r *ObservationReader) Read() (map[string]map[string]any, error) {
	if _, err := os.Stat(r.filePath); os.IsNotExist(err) {
		return nil, fmt.Errorf("%s file not found: %s", strings.ToUpper(r.fileType), r.filePath)
	}

	var rows [][]string
	var err error
	switch r.fileType {
	case "csv":
		rows, err = r.readCSV()
	default:
		rows, err = r.readWorkbook()
	}
	if err != nil {
		return nil, err
	}
	if len(rows) < 2 {
		return nil, fmt.Errorf("%s file must have a header row and at least one observation", strings.ToUpper(r.fileType))
	}
	return r.processRows(rows)
}

func (r *ObservationReader) readWorkbook() ([][]string, error) {
	f, err := excelize.OpenFile(r.filePath)
	if err != nil {
		return nil, fmt.Errorf("failed to open Excel file: %w", err)
	}
	defer f.Close()

	sheet := f.GetSheetName(0)
	rows, err := f.GetRows(sheet)
	if err != nil {
		return nil, fmt.Errorf("failed to read sheet %s: %w", sheet, err)
	}
	r.log.Debug("read %d rows from %s!%s", len(rows), r.filePath, sheet)
	return rows, nil
}

func (r *ObservationReader) readCSV() ([][]string, error) {
	file, err := os.Open(r.filePath)
	if err != nil {
		return nil, fmt.Errorf("failed to open CSV file: %w", err)
	}
	defer file.Close()

	reader := csv.NewReader(file)
	reader.FieldsPerRecord = -1
	rows, err := reader.ReadAll()
	if err != nil {
		return nil, fmt.Errorf("failed to read CSV file: %w", err)
	}
	r.log.Debug("read %d rows from %s", len(rows), r.filePath)
	return rows, nil
}

// processRows maps each data row onto {mean, std}. Cells that do not parse
// as numbers are kept as strings and blank cells are left out, so the
// observation check reports them.
func (r *ObservationReader) processRows(rows [][]string) (map[string]map[string]any, error) {
	columns := map[string]int{}
	for i, header := range rows[0] {
		columns[strings.ToLower(strings.TrimSpace(header))] = i
	}
	testCol, ok := columns["test"]
	if !ok {
		if testCol, ok = columns["alias"]; !ok {
			return nil, fmt.Errorf("header row needs a test column, got %v", rows[0])
		}
	}
	for _, name := range []string{"mean", "std"} {
		if _, ok := columns[name]; !ok {
			return nil, fmt.Errorf("header row needs a %s column, got %v", name, rows[0])
		}
	}

	out := make(map[string]map[string]any)
	for n, row := range rows[1:] {
		alias := cell(row, testCol)
		if alias == "" {
			continue
		}
		if _, dup := out[alias]; dup {
			return nil, fmt.Errorf("row %d: test %s listed twice", n+2, alias)
		}
		obs := make(map[string]any, 2)
		for _, name := range []string{"mean", "std"} {
			raw := cell(row, columns[name])
			if raw == "" {
				continue
			}
			if v, err := strconv.ParseFloat(raw, 64); err == nil {
				obs[name] = v
			} else {
				obs[name] = raw
			}
		}
		out[alias] = obs
	}

	r.log.Info("%s: %d observations", r.filePath, len(out))
	return out, nil
}

func cell(row []string, i int) string {
	if i >= len(row) {
		return ""
	}
	return strings.TrimSpace(row[i])
}
