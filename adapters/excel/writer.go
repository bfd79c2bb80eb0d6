package excel

import (
	"fmt"
	"io"

	"github.com/xuri/excelize/v2"

	"goelicit/domain/design"
	"goelicit/internal"
)

// BatteryWriter exports planned batteries as spreadsheets for advisors
type BatteryWriter struct {
	space  ProfileSpace
	logger *internal.Logger
}

// NewBatteryWriter creates a writer rendering profiles through space
func NewBatteryWriter(space ProfileSpace, logger *internal.Logger) *BatteryWriter {
	return &BatteryWriter{space: space, logger: internal.OrDefault(logger).Named("excel")}
}

// Workbook builds the battery and summary sheets; the caller closes the file
func (w *BatteryWriter) Workbook(battery *design.Battery) (*excelize.File, error) {
	f := excelize.NewFile()
	if err := f.SetSheetName("Sheet1", BatterySheet); err != nil {
		f.Close()
		return nil, err
	}
	if err := w.writeBattery(f, battery); err != nil {
		f.Close()
		return nil, fmt.Errorf("battery sheet: %w", err)
	}
	if err := w.writeSummary(f, battery); err != nil {
		f.Close()
		return nil, fmt.Errorf("summary sheet: %w", err)
	}
	return f, nil
}

// Save writes the workbook to path (.xlsx)
func (w *BatteryWriter) Save(battery *design.Battery, path string) error {
	f, err := w.Workbook(battery)
	if err != nil {
		return err
	}
	defer f.Close()
	if err := f.SaveAs(path); err != nil {
		return fmt.Errorf("failed to save workbook %s: %w", path, err)
	}
	w.logger.Info("battery %s exported to %s (%d vignettes)", battery.ID, path, battery.Len())
	return nil
}

// WriteTo streams the workbook, e.g. as an HTTP response body
func (w *BatteryWriter) WriteTo(battery *design.Battery, out io.Writer) error {
	f, err := w.Workbook(battery)
	if err != nil {
		return err
	}
	defer f.Close()
	_, err = f.WriteTo(out)
	return err
}

func (w *BatteryWriter) writeBattery(f *excelize.File, battery *design.Battery) error {
	dims := w.space.Dimensions()
	header := make([]interface{}, 0, len(batteryHeaders)+len(dims))
	for _, h := range batteryHeaders {
		header = append(header, h)
	}
	for _, d := range dims {
		header = append(header, "d:"+d)
	}
	if err := f.SetSheetRow(BatterySheet, "A1", &header); err != nil {
		return err
	}
	bold, err := f.NewStyle(&excelize.Style{Font: &excelize.Font{Bold: true}})
	if err != nil {
		return err
	}
	if err := f.SetRowStyle(BatterySheet, 1, 1, bold); err != nil {
		return err
	}

	row := 2
	emit := func(phase design.Phase, items []design.Selected) error {
		for _, s := range items {
			xa, err := w.space.EncodeProfile(s.A)
			if err != nil {
				return fmt.Errorf("round %d: %w", s.Round, err)
			}
			xb, err := w.space.EncodeProfile(s.B)
			if err != nil {
				return fmt.Errorf("round %d: %w", s.Round, err)
			}
			da, err := w.space.DescribeProfile(s.A)
			if err != nil {
				return fmt.Errorf("round %d: %w", s.Round, err)
			}
			db, err := w.space.DescribeProfile(s.B)
			if err != nil {
				return fmt.Errorf("round %d: %w", s.Round, err)
			}
			values := []interface{}{
				s.Round, string(phase),
				da, db,
				s.A.Key(), s.B.Key(),
				s.Determinant, s.LogDetGain,
			}
			for _, v := range xa.Sub(xb) {
				values = append(values, v)
			}
			cell, err := excelize.CoordinatesToCellName(1, row)
			if err != nil {
				return err
			}
			if err := f.SetSheetRow(BatterySheet, cell, &values); err != nil {
				return err
			}
			row++
		}
		return nil
	}
	if err := emit(design.PhaseBeginning, battery.Beginning); err != nil {
		return err
	}
	return emit(design.PhaseEnd, battery.End)
}

func (w *BatteryWriter) writeSummary(f *excelize.File, battery *design.Battery) error {
	if _, err := f.NewSheet(SummarySheet); err != nil {
		return err
	}
	rows := [][]interface{}{
		{"battery_id", battery.ID.String()},
		{"profile_space", battery.Fingerprint.String()},
		{"num_vignettes", battery.Len()},
		{"degenerate", battery.Degenerate},
	}
	if st := battery.Stats; st != nil {
		rows = append(rows,
			[]interface{}{"fim_determinant", st.FIMDeterminant},
			[]interface{}{"d_efficiency", st.DEfficiency},
			[]interface{}{"min_eigenvalue", st.MinEigenvalue},
			[]interface{}{"max_eigenvalue", st.MaxEigenvalue},
			[]interface{}{"condition_number", st.ConditionNumber},
		)
	}
	for i, r := range rows {
		cell, err := excelize.CoordinatesToCellName(1, i+1)
		if err != nil {
			return err
		}
		if err := f.SetSheetRow(SummarySheet, cell, &r); err != nil {
			return err
		}
	}
	return nil
}
