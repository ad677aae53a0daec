// Package roster loads and dedupes the central-bank website list that
// seeds the pipeline.
package roster

import (
	"encoding/csv"
	"os"
	"path/filepath"
	"strings"

	"github.com/rotisserie/eris"
	"github.com/tealeg/xlsx/v2"

	"github.com/cbdata-group/listing-cli/internal/model"
)

// Required roster columns. "info" is optional and selects the query
// template language for non-English banks.
const (
	colBankName = "Bank Name"
	colBankURL  = "Bank URL"
	colCountry  = "Country/Region"
	colInfo     = "info"
)

// Load reads a roster file (.csv or .xlsx by extension) and returns the
// deduplicated bank list.
func Load(path string) ([]model.Bank, error) {
	switch strings.ToLower(filepath.Ext(path)) {
	case ".csv":
		return LoadCSV(path)
	case ".xlsx":
		return LoadXLSX(path)
	default:
		return nil, eris.Errorf("roster: unsupported file type %q", filepath.Ext(path))
	}
}

// LoadCSV reads a roster CSV and returns the deduplicated bank list.
func LoadCSV(path string) ([]model.Bank, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, eris.Wrap(err, "roster: open csv")
	}
	defer f.Close()

	reader := csv.NewReader(f)
	reader.LazyQuotes = true

	records, err := reader.ReadAll()
	if err != nil {
		return nil, eris.Wrap(err, "roster: read csv")
	}

	return fromRows(records)
}

// LoadXLSX reads the first sheet of a roster workbook and returns the
// deduplicated bank list.
func LoadXLSX(path string) ([]model.Bank, error) {
	f, err := xlsx.OpenFile(path)
	if err != nil {
		return nil, eris.Wrap(err, "roster: open xlsx")
	}
	if len(f.Sheets) == 0 {
		return nil, eris.New("roster: workbook has no sheets")
	}

	sheet := f.Sheets[0]
	rows := make([][]string, 0, len(sheet.Rows))
	for _, row := range sheet.Rows {
		cells := make([]string, len(row.Cells))
		for j, cell := range row.Cells {
			cells[j] = cell.String()
		}
		rows = append(rows, cells)
	}

	return fromRows(rows)
}

// fromRows parses header-plus-data rows and dedupes banks by normalized
// name. The first occurrence wins for URL and language; country labels
// from later duplicates are merged in order of appearance.
func fromRows(rows [][]string) ([]model.Bank, error) {
	if len(rows) < 2 {
		return nil, eris.New("roster: no data rows")
	}

	header := rows[0]
	colIdx := make(map[string]int, len(header))
	for i, col := range header {
		colIdx[strings.TrimSpace(col)] = i
	}

	for _, col := range []string{colBankName, colBankURL} {
		if _, ok := colIdx[col]; !ok {
			return nil, eris.Errorf("roster: missing required column %q", col)
		}
	}

	byName := make(map[string]int)
	var banks []model.Bank

	for _, row := range rows[1:] {
		name := getCol(row, colIdx, colBankName)
		url := getCol(row, colIdx, colBankURL)
		if name == "" || url == "" {
			continue
		}

		bank := model.Bank{
			Name:     name,
			URL:      url,
			Language: model.QueryLanguage(getCol(row, colIdx, colInfo)),
		}
		if country := getCol(row, colIdx, colCountry); country != "" {
			bank.Countries = []string{country}
		}

		key := bank.NormalizedName()
		if i, dup := byName[key]; dup {
			banks[i].Countries = mergeCountry(banks[i].Countries, bank.Countries)
			continue
		}

		byName[key] = len(banks)
		banks = append(banks, bank)
	}

	if len(banks) == 0 {
		return nil, eris.New("roster: no valid banks found")
	}
	return banks, nil
}

func getCol(row []string, colIdx map[string]int, name string) string {
	i, ok := colIdx[name]
	if !ok || i >= len(row) {
		return ""
	}
	return strings.TrimSpace(row[i])
}

func mergeCountry(existing, incoming []string) []string {
	for _, c := range incoming {
		found := false
		for _, e := range existing {
			if e == c {
				found = true
				break
			}
		}
		if !found {
			existing = append(existing, c)
		}
	}
	return existing
}
