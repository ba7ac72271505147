package efeature

import (
	"testing"

	"demounit/domain/core"
	"demounit/domain/features"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

const dt = 0.25 // exact in binary, keeps window edges deterministic

func timeAxis(n int) []float64 {
	t := make([]float64, n)
	for i := range t {
		t[i] = float64(i) * dt
	}
	return t
}

// triangularSpike is a flat -70 mV trace with a symmetric 100 mV spike
// starting at onset (sample index): 1 ms up, 1 ms down.
func triangularSpike(v []float64, onset int) {
	for k := 0; k <= 4; k++ {
		v[onset+k] = -70 + float64(k)*25
		v[onset+4+k] = 30 - float64(k)*25
	}
}

func flat(n int, level float64) []float64 {
	v := make([]float64, n)
	for i := range v {
		v[i] = level
	}
	return v
}

func TestSingleSpikeFeatures(t *testing.T) {
	n := 101 // 0..25 ms
	v := flat(n, -70)
	triangularSpike(v, 44) // rises at 11 ms, peaks at 12 ms
	tr := features.NewTrace(timeAxis(n), v, 10, 15)

	ext := New()
	out, err := ext.GetFeatureValues([]features.Trace{tr}, []string{
		features.APAmplitude,
		features.APDurationHalfWidth,
		features.PeakTime,
		features.PeakVoltage,
		features.APBeginVoltage,
		features.SpikeCount,
	})
	require.NoError(t, err)
	require.Len(t, out, 1)

	vals := out[0]
	assert.Equal(t, []float64{100}, vals[features.APAmplitude])
	assert.InDeltaSlice(t, []float64{1.0}, vals[features.APDurationHalfWidth], 1e-9)
	assert.Equal(t, []float64{12}, vals[features.PeakTime])
	assert.Equal(t, []float64{30}, vals[features.PeakVoltage])
	assert.Equal(t, []float64{-70}, vals[features.APBeginVoltage])
	assert.Equal(t, []float64{1}, vals[features.SpikeCount])
}

func TestSpikesOutsideStimulusAreIgnored(t *testing.T) {
	n := 161 // 0..40 ms
	v := flat(n, -70)
	triangularSpike(v, 44)  // peak 12 ms, inside
	triangularSpike(v, 100) // peak 26 ms, outside [10, 15]
	tr := features.NewTrace(timeAxis(n), v, 10, 15)

	out, err := New().GetFeatureValues([]features.Trace{tr}, []string{features.PeakTime, features.SpikeCount})
	require.NoError(t, err)
	assert.Equal(t, []float64{12}, out[0][features.PeakTime])
	assert.Equal(t, []float64{1}, out[0][features.SpikeCount])

	wide := features.NewTrace(timeAxis(n), v, 10, 30)
	out, err = New().GetFeatureValues([]features.Trace{wide}, []string{features.PeakTime, features.APAmplitude})
	require.NoError(t, err)
	assert.Equal(t, []float64{12, 26}, out[0][features.PeakTime])
	assert.Equal(t, []float64{100, 100}, out[0][features.APAmplitude])
}

func TestNoSpikeFeaturesAreAbsent(t *testing.T) {
	n := 101
	tr := features.NewTrace(timeAxis(n), flat(n, -65), 10, 15)

	out, err := New().GetFeatureValues([]features.Trace{tr}, []string{
		features.APAmplitude,
		features.APDurationHalfWidth,
		features.SpikeCount,
	})
	require.NoError(t, err)
	assert.Nil(t, out[0][features.APAmplitude])
	assert.Nil(t, out[0][features.APDurationHalfWidth])
	assert.Equal(t, []float64{0}, out[0][features.SpikeCount])
}

func TestIncompleteSpikeIsDropped(t *testing.T) {
	n := 61
	v := flat(n, -70)
	for i := 50; i < n; i++ {
		v[i] = 20 // depolarised to the end of the recording
	}
	tr := features.NewTrace(timeAxis(n), v, 10, 15)

	out, err := New().GetFeatureValues([]features.Trace{tr}, []string{features.SpikeCount})
	require.NoError(t, err)
	assert.Equal(t, []float64{0}, out[0][features.SpikeCount])
}

// hyperpolarisingStep is -65 mV at rest and -70 mV during [10, 60) ms.
func hyperpolarisingStep() features.Trace {
	n := 281 // 0..70 ms
	t := timeAxis(n)
	v := flat(n, -65)
	for i, ti := range t {
		if ti > 10 && ti < 60 {
			v[i] = -70
		}
	}
	return features.NewTrace(t, v, 10, 60)
}

func TestOhmicInputResistance(t *testing.T) {
	ext := New()
	require.NoError(t, ext.SetDoubleSetting(features.SettingStimulusCurrent, -1))

	out, err := ext.GetFeatureValues([]features.Trace{hyperpolarisingStep()}, []string{
		features.OhmicInputResistanceVBSSSE,
		features.VoltageBase,
		features.SteadyStateVoltageStimEnd,
	})
	require.NoError(t, err)
	assert.Equal(t, []float64{-65}, out[0][features.VoltageBase])
	assert.Equal(t, []float64{-70}, out[0][features.SteadyStateVoltageStimEnd])
	assert.Equal(t, []float64{5}, out[0][features.OhmicInputResistanceVBSSSE])
}

func TestOhmicInputResistanceNeedsStimulusCurrent(t *testing.T) {
	out, err := New().GetFeatureValues([]features.Trace{hyperpolarisingStep()}, []string{features.OhmicInputResistanceVBSSSE})
	require.NoError(t, err)
	assert.Nil(t, out[0][features.OhmicInputResistanceVBSSSE])
}

func TestSettings(t *testing.T) {
	ext := New()

	require.NoError(t, ext.SetDoubleSetting(features.SettingStimulusCurrent, 15))
	require.NoError(t, ext.SetDoubleSetting(features.SettingThreshold, -30))
	got, ok := ext.Setting(features.SettingStimulusCurrent)
	assert.True(t, ok)
	assert.Equal(t, 15.0, got)

	err := ext.SetDoubleSetting("interp_step", 0.1)
	assert.ErrorIs(t, err, core.ErrUnknownSetting)

	ext.Reset()
	got, _ = ext.Setting(features.SettingStimulusCurrent)
	assert.Equal(t, DefaultStimulusCurrent, got)
	got, _ = ext.Setting(features.SettingThreshold)
	assert.Equal(t, DefaultThreshold, got)
}

func TestThresholdSettingChangesDetection(t *testing.T) {
	n := 101
	v := flat(n, -70)
	triangularSpike(v, 44)
	tr := features.NewTrace(timeAxis(n), v, 10, 15)

	ext := New()
	require.NoError(t, ext.SetDoubleSetting(features.SettingThreshold, 40)) // above the 30 mV peak
	out, err := ext.GetFeatureValues([]features.Trace{tr}, []string{features.SpikeCount})
	require.NoError(t, err)
	assert.Equal(t, []float64{0}, out[0][features.SpikeCount])
}

func TestGetFeatureValuesErrors(t *testing.T) {
	ext := New()
	good := hyperpolarisingStep()

	_, err := ext.GetFeatureValues([]features.Trace{good}, []string{"AP_rise_rate"})
	assert.ErrorIs(t, err, core.ErrUnknownFeature)

	bad := features.NewTrace([]float64{0, 1}, []float64{-65}, 0, 1)
	_, err = ext.GetFeatureValues([]features.Trace{good, bad}, []string{features.VoltageBase})
	assert.ErrorIs(t, err, core.ErrInvalidTrace)
}

func TestEveryNamedFeatureHasCalculator(t *testing.T) {
	for _, name := range features.Names() {
		_, ok := calculators[name]
		assert.True(t, ok, "missing calculator for %s", name)
	}
}
