package run

import (
	"testing"

	"demounit/domain/observation"
	"demounit/domain/score"

	"github.com/stretchr/testify/assert"
)

func TestRunSummarize(t *testing.T) {
	obs := observation.Observation{Mean: -65, Std: 5}
	z := score.ComputeZ(obs, -63)
	sentinel := score.NewZScore(obs, score.Sentinel)
	insufficient := score.InsufficientData(obs)

	r := &Run{Cells: []Cell{
		{TestAlias: "VF_RestingPotential", ModelName: "hh", Score: &z},
		{TestAlias: "VF_AP_Height", ModelName: "hh", Score: &sentinel},
		{TestAlias: "VF_AP_HalfWidth", ModelName: "hh", Score: &insufficient},
		{TestAlias: "VF_AP_Height", ModelName: "passive", Error: "model lacks required capability"},
	}}

	assert.Equal(t, Summary{Total: 4, Scored: 1, Sentinel: 2, Failed: 1}, r.Summarize())
	assert.Equal(t, []string{"hh", "passive"}, r.Models())
	assert.Equal(t, []string{"VF_RestingPotential", "VF_AP_Height", "VF_AP_HalfWidth"}, r.Tests())

	c, ok := r.Cell("VF_AP_Height", "passive")
	assert.True(t, ok)
	assert.True(t, c.Failed())

	_, ok = r.Cell("VF_InputResistance", "hh")
	assert.False(t, ok)
}
