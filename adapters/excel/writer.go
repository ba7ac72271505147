package excel

import (
	"fmt"
	"io"
	"math"

	"demounit/domain/run"
	"demounit/domain/score"

	"github.com/xuri/excelize/v2"
)

const (
	SheetScores  = "Scores"
	SheetDetails = "Details"
	SheetSummary = "Summary"
)

var detailHeader = []interface{}{
	"Test", "Test Name", "Model", "Kind", "Score", "Norm", "Prediction", "Observed Mean", "Observed Std", "Error",
}

// WorkbookWriter renders a run as a workbook: a tests x models score
// matrix, one row per judgement, and the run summary.
type WorkbookWriter struct {
	run *run.Run
}

// NewWorkbookWriter creates a writer for r.
func NewWorkbookWriter(r *run.Run) *WorkbookWriter {
	return &WorkbookWriter{run: r}
}

// Write builds the workbook and writes it to w.
func (ww *WorkbookWriter) Write(w io.Writer) error {
	f, err := ww.build()
	if err != nil {
		return err
	}
	defer f.Close()
	if err := f.Write(w); err != nil {
		return fmt.Errorf("failed to write workbook: %w", err)
	}
	return nil
}

// SaveAs builds the workbook and saves it at path.
func (ww *WorkbookWriter) SaveAs(path string) error {
	f, err := ww.build()
	if err != nil {
		return err
	}
	defer f.Close()
	if err := f.SaveAs(path); err != nil {
		return fmt.Errorf("failed to save workbook %s: %w", path, err)
	}
	return nil
}

func (ww *WorkbookWriter) build() (*excelize.File, error) {
	f := excelize.NewFile()
	if err := f.SetSheetName(f.GetSheetName(0), SheetScores); err != nil {
		f.Close()
		return nil, err
	}
	for _, name := range []string{SheetDetails, SheetSummary} {
		if _, err := f.NewSheet(name); err != nil {
			f.Close()
			return nil, err
		}
	}

	bold, err := f.NewStyle(&excelize.Style{Font: &excelize.Font{Bold: true}})
	if err != nil {
		f.Close()
		return nil, err
	}

	steps := []func(*excelize.File, int) error{ww.writeScores, ww.writeDetails, ww.writeSummary}
	for _, step := range steps {
		if err := step(f, bold); err != nil {
			f.Close()
			return nil, err
		}
	}
	return f, nil
}

func (ww *WorkbookWriter) writeScores(f *excelize.File, bold int) error {
	models := ww.run.Models()
	header := make([]interface{}, 0, len(models)+1)
	header = append(header, "Test")
	for _, m := range models {
		header = append(header, m)
	}
	if err := writeRow(f, SheetScores, 1, header); err != nil {
		return err
	}
	if err := styleRow(f, SheetScores, 1, len(header), bold); err != nil {
		return err
	}

	for i, alias := range ww.run.Tests() {
		row := []interface{}{alias}
		for _, m := range models {
			c, ok := ww.run.Cell(alias, m)
			if !ok {
				row = append(row, "")
				continue
			}
			row = append(row, matrixValue(c))
		}
		if err := writeRow(f, SheetScores, i+2, row); err != nil {
			return err
		}
	}
	return nil
}

func (ww *WorkbookWriter) writeDetails(f *excelize.File, bold int) error {
	if err := writeRow(f, SheetDetails, 1, detailHeader); err != nil {
		return err
	}
	if err := styleRow(f, SheetDetails, 1, len(detailHeader), bold); err != nil {
		return err
	}

	for i, c := range ww.run.Cells {
		row := []interface{}{c.TestAlias, c.TestName, c.ModelName}
		if s := c.Score; s != nil {
			pred := interface{}("")
			if s.Prediction.Present {
				pred = number(s.Prediction.Value)
			}
			row = append(row, string(s.Kind), number(s.Value), s.Norm(), pred,
				number(s.Observation.Mean), number(s.Observation.Std), "")
		} else {
			row = append(row, "", "", "", "", "", "", c.Error)
		}
		if err := writeRow(f, SheetDetails, i+2, row); err != nil {
			return err
		}
	}
	return nil
}

func (ww *WorkbookWriter) writeSummary(f *excelize.File, bold int) error {
	sum := ww.run.Summarize()
	rows := [][]interface{}{
		{"Run", ww.run.ID.String()},
		{"Started", ww.run.StartedAt.Format("2006-01-02 15:04:05 MST")},
		{"Finished", ww.run.FinishedAt.Format("2006-01-02 15:04:05 MST")},
		{"Judgements", sum.Total},
		{"Scored", sum.Scored},
		{"No prediction", sum.Sentinel},
		{"Failed", sum.Failed},
	}
	for i, row := range rows {
		if err := writeRow(f, SheetSummary, i+1, row); err != nil {
			return err
		}
		cellName, err := excelize.CoordinatesToCellName(1, i+1)
		if err != nil {
			return err
		}
		if err := f.SetCellStyle(SheetSummary, cellName, cellName, bold); err != nil {
			return err
		}
	}
	return nil
}

// matrixValue is the score for scored cells, otherwise a short label.
func matrixValue(c run.Cell) interface{} {
	switch {
	case c.Failed():
		return "error"
	case c.Score.Kind != score.KindZScore:
		return c.Score.String()
	default:
		return number(c.Score.Value)
	}
}

// number leaves non-finite values as text; excelize cannot store them.
func number(v float64) interface{} {
	if math.IsNaN(v) || math.IsInf(v, 0) {
		return fmt.Sprint(v)
	}
	return v
}

func writeRow(f *excelize.File, sheet string, row int, values []interface{}) error {
	cellName, err := excelize.CoordinatesToCellName(1, row)
	if err != nil {
		return err
	}
	return f.SetSheetRow(sheet, cellName, &values)
}

func styleRow(f *excelize.File, sheet string, row, cols, style int) error {
	first, err := excelize.CoordinatesToCellName(1, row)
	if err != nil {
		return err
	}
	last, err := excelize.CoordinatesToCellName(cols, row)
	if err != nil {
		return err
	}
	return f.SetCellStyle(sheet, first, last, style)
}
