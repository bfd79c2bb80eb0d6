package excel

import (
	"encoding/csv"
	"fmt"
	"os"
	"path/filepath"
	"strconv"
	"strings"

	"github.com/xuri/excelize/v2"

	"goelicit/domain/core"
	"goelicit/domain/design"
	"goelicit/internal"
)

// DataReader reads exported batteries back from Excel or CSV files
type DataReader struct {
	filePath string
	fileType string // "xlsx" or "csv"
	logger   *internal.Logger
}

// NewDataReader creates a reader; the file type follows the extension
func NewDataReader(filePath string, logger *internal.Logger) *DataReader {
	ext := strings.ToLower(filepath.Ext(filePath))
	fileType := "xlsx"
	if ext == ".csv" {
		fileType = "csv"
	}
	return &DataReader{filePath: filePath, fileType: fileType, logger: internal.OrDefault(logger).Named("excel")}
}

// ReadSheet reads the battery sheet (or the whole CSV) into string rows
func (r *DataReader) ReadSheet() (*SheetData, error) {
	if _, err := os.Stat(r.filePath); os.IsNotExist(err) {
		return nil, core.NewNotFoundError(r.fileType+" file", r.filePath)
	}

	var rows [][]string
	var err error
	switch r.fileType {
	case "csv":
		rows, err = r.readCSV()
	default:
		rows, err = r.readExcel()
	}
	if err != nil {
		return nil, err
	}
	if len(rows) < 2 {
		return nil, fmt.Errorf("%s file must have a header row and at least one data row", strings.ToUpper(r.fileType))
	}
	return r.processRows(rows), nil
}

func (r *DataReader) readExcel() ([][]string, error) {
	f, err := excelize.OpenFile(r.filePath)
	if err != nil {
		return nil, fmt.Errorf("failed to open Excel file: %w", err)
	}
	defer f.Close()

	rows, err := f.GetRows(BatterySheet)
	if err != nil {
		return nil, fmt.Errorf("failed to read %s sheet: %w", BatterySheet, err)
	}
	return rows, nil
}

func (r *DataReader) readCSV() ([][]string, error) {
	file, err := os.Open(r.filePath)
	if err != nil {
		return nil, fmt.Errorf("failed to open CSV file: %w", err)
	}
	defer file.Close()

	rows, err := csv.NewReader(file).ReadAll()
	if err != nil {
		return nil, fmt.Errorf("failed to read CSV file: %w", err)
	}
	return rows, nil
}

// processRows converts raw string rows into header-keyed rows
func (r *DataReader) processRows(rows [][]string) *SheetData {
	headers := make([]string, len(rows[0]))
	for i, h := range rows[0] {
		headers[i] = strings.TrimSpace(h)
	}

	data := make([]RawRowData, 0, len(rows)-1)
	for _, row := range rows[1:] {
		rd := make(RawRowData, len(headers))
		for j, cell := range row {
			if j < len(headers) {
				rd[headers[j]] = strings.TrimSpace(cell)
			}
		}
		data = append(data, rd)
	}

	r.logger.Debug("%s file processed (%d columns, %d rows)", strings.ToUpper(r.fileType), len(headers), len(data))
	return &SheetData{Headers: headers, Rows: data}
}

// ReadBattery parses the vignette rows of an exported battery
func (r *DataReader) ReadBattery() ([]BatteryRow, error) {
	sheet, err := r.ReadSheet()
	if err != nil {
		return nil, err
	}
	for _, h := range []string{"round", "phase", "key_a", "key_b"} {
		if !contains(sheet.Headers, h) {
			return nil, core.NewArgumentError(r.filePath, fmt.Sprintf("missing column %q", h))
		}
	}

	out := make([]BatteryRow, 0, len(sheet.Rows))
	for i, row := range sheet.Rows {
		round, err := strconv.Atoi(row["round"])
		if err != nil {
			return nil, core.NewArgumentError(r.filePath, fmt.Sprintf("row %d: invalid round %q", i+2, row["round"]))
		}
		phase := design.Phase(row["phase"])
		if phase != design.PhaseBeginning && phase != design.PhaseEnd {
			return nil, core.NewArgumentError(r.filePath, fmt.Sprintf("row %d: invalid phase %q", i+2, row["phase"]))
		}
		out = append(out, BatteryRow{Round: round, Phase: phase, KeyA: row["key_a"], KeyB: row["key_b"]})
	}
	return out, nil
}

// ResolveVignettes maps battery rows back to vignettes in row order
func ResolveVignettes(rows []BatteryRow, resolver ProfileResolver) ([]design.Vignette, error) {
	out := make([]design.Vignette, len(rows))
	for i, row := range rows {
		a, err := resolver.ProfileFromKey(row.KeyA)
		if err != nil {
			return nil, fmt.Errorf("round %d profile a: %w", row.Round, err)
		}
		b, err := resolver.ProfileFromKey(row.KeyB)
		if err != nil {
			return nil, fmt.Errorf("round %d profile b: %w", row.Round, err)
		}
		out[i] = design.Vignette{A: a, B: b}
	}
	return out, nil
}

func contains(list []string, s string) bool {
	for _, v := range list {
		if v == s {
			return true
		}
	}
	return false
}
