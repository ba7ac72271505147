package score

import (
	"encoding/json"
	"math"
	"testing"

	"demounit/domain/observation"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestComputeZ(t *testing.T) {
	tests := []struct {
		name       string
		obs        observation.Observation
		prediction float64
		want       float64
	}{
		{"above mean", observation.Observation{Mean: -65, Std: 5}, -63, 0.4},
		{"below mean", observation.Observation{Mean: 100, Std: 10}, 80, -2},
		{"exact", observation.Observation{Mean: 1.2, Std: 0.3}, 1.2, 0},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			s := ComputeZ(tt.obs, tt.prediction)
			assert.Equal(t, KindZScore, s.Kind)
			assert.InDelta(t, tt.want, s.Value, 1e-12)
			assert.True(t, s.Prediction.Present)
			assert.Equal(t, tt.prediction, s.Prediction.Value)
			assert.False(t, s.IsSentinel())
		})
	}
}

func TestSentinelScore(t *testing.T) {
	s := NewZScore(observation.Observation{Mean: 80, Std: 4}, Sentinel)
	assert.Equal(t, 9999.99, s.Value)
	assert.True(t, s.IsSentinel())
	assert.Equal(t, 0.0, s.Norm())
	assert.Equal(t, "Z = 9999.99 (no prediction)", s.String())
}

func TestNorm(t *testing.T) {
	obs := observation.Observation{Mean: 0, Std: 1}
	assert.InDelta(t, 1.0, ComputeZ(obs, 0).Norm(), 1e-12)
	// Φ(1.96) ≈ 0.975
	assert.InDelta(t, 0.05, ComputeZ(obs, 1.96).Norm(), 1e-3)
	assert.InDelta(t, ComputeZ(obs, 1).Norm(), ComputeZ(obs, -1).Norm(), 1e-12)
	assert.Equal(t, 0.0, InsufficientData(obs).Norm())
	assert.Equal(t, 0.0, ComputeZ(observation.Observation{Mean: 0, Std: 0}, 0).Norm(), "NaN z scores norm to 0")
}

func TestZeroStdIsInfinite(t *testing.T) {
	s := ComputeZ(observation.Observation{Mean: 1, Std: 0}, 2)
	assert.True(t, math.IsInf(s.Value, 1))
}

func TestPredictionJSON(t *testing.T) {
	data, err := json.Marshal(struct {
		A Prediction `json:"a"`
		B Prediction `json:"b"`
	}{Predicted(1.5), Absent()})
	require.NoError(t, err)
	assert.JSONEq(t, `{"a": 1.5, "b": null}`, string(data))

	var back struct {
		A Prediction `json:"a"`
		B Prediction `json:"b"`
	}
	require.NoError(t, json.Unmarshal(data, &back))
	assert.Equal(t, Predicted(1.5), back.A)
	assert.Equal(t, Absent(), back.B)
}

func TestScoreJSON(t *testing.T) {
	obs := observation.Observation{Mean: -65, Std: 5}

	data, err := json.Marshal(ComputeZ(obs, -65))
	require.NoError(t, err)
	assert.JSONEq(t, `{"kind":"z_score","value":0,"norm":1,"observation":{"mean":-65,"std":5},"prediction":-65}`, string(data))

	data, err = json.Marshal(NewZScore(obs, Sentinel))
	require.NoError(t, err)
	var back Score
	require.NoError(t, json.Unmarshal(data, &back))
	assert.True(t, back.IsSentinel())

	data, err = json.Marshal(ComputeZ(observation.Observation{Mean: 1, Std: 0}, 2))
	require.NoError(t, err, "infinite z must still encode")
	require.NoError(t, json.Unmarshal(data, &back))
	assert.True(t, math.IsNaN(back.Value))

	data, err = json.Marshal(InsufficientData(obs))
	require.NoError(t, err)
	require.NoError(t, json.Unmarshal(data, &back))
	assert.Equal(t, KindInsufficientData, back.Kind)
}
