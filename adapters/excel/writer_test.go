package excel

import (
	"bytes"
	"testing"
	"time"

	"demounit/domain/core"
	"demounit/domain/observation"
	"demounit/domain/run"
	"demounit/domain/score"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/xuri/excelize/v2"
)

func sampleRun() *run.Run {
	rest := score.ComputeZ(observation.Observation{Mean: -65, Std: 5}, -63)
	absent := score.NewZScore(observation.Observation{Mean: 80, Std: 10}, score.Sentinel)
	insufficient := score.InsufficientData(observation.Observation{Mean: 1, Std: 0.2})
	now := time.Date(2026, 3, 1, 12, 0, 0, 0, time.UTC)
	return &run.Run{
		ID:         core.NewRunID(),
		StartedAt:  now,
		FinishedAt: now.Add(time.Second),
		Cells: []run.Cell{
			{TestAlias: "VF_RestingPotential", TestName: "Resting Membrane Potential Test", ModelName: "hh", Score: &rest},
			{TestAlias: "VF_RestingPotential", TestName: "Resting Membrane Potential Test", ModelName: "passive", Score: &rest},
			{TestAlias: "VF_AP_Height", TestName: "Action Potential Height Test", ModelName: "hh", Score: &absent},
			{TestAlias: "VF_AP_Height", TestName: "Action Potential Height Test", ModelName: "passive", Error: "missing capability"},
			{TestAlias: "VF_AP_HalfWidth", TestName: "Action Potential Half-Width Test", ModelName: "hh", Score: &insufficient},
		},
	}
}

func TestWorkbookWriter(t *testing.T) {
	var buf bytes.Buffer
	require.NoError(t, NewWorkbookWriter(sampleRun()).Write(&buf))

	f, err := excelize.OpenReader(&buf)
	require.NoError(t, err)
	defer f.Close()

	assert.Equal(t, []string{SheetScores, SheetDetails, SheetSummary}, f.GetSheetList())

	rows, err := f.GetRows(SheetScores)
	require.NoError(t, err)
	require.Len(t, rows, 4)
	assert.Equal(t, []string{"Test", "hh", "passive"}, rows[0])
	assert.Equal(t, []string{"VF_RestingPotential", "0.4", "0.4"}, rows[1])
	assert.Equal(t, []string{"VF_AP_Height", "9999.99", "error"}, rows[2])
	assert.Equal(t, "Insufficient Data", rows[3][1])

	details, err := f.GetRows(SheetDetails)
	require.NoError(t, err)
	assert.Len(t, details, 6)
	assert.Equal(t, "missing capability", details[4][9])

	failed, err := f.GetCellValue(SheetSummary, "B7")
	require.NoError(t, err)
	assert.Equal(t, "1", failed)
}

func TestWorkbookWriterSaveAs(t *testing.T) {
	path := t.TempDir() + "/scores.xlsx"
	require.NoError(t, NewWorkbookWriter(sampleRun()).SaveAs(path))

	f, err := excelize.OpenFile(path)
	require.NoError(t, err)
	defer f.Close()
	v, err := f.GetCellValue(SheetScores, "A2")
	require.NoError(t, err)
	assert.Equal(t, "VF_RestingPotential", v)
}
