package features

import (
	"fmt"

	"demounit/domain/core"
)

// Trace is the record a feature extractor consumes: a recorded somatic
// voltage series plus the stimulus window it should be analysed over.
// JSON keys follow the eFEL trace layout.
type Trace struct {
	T         []float64 `json:"T"`
	V         []float64 `json:"V"`
	StimStart []float64 `json:"stim_start"`
	StimEnd   []float64 `json:"stim_end"`
}

// NewTrace pairs a time and voltage series with a single stimulus window.
func NewTrace(t, v []float64, stimStart, stimEnd float64) Trace {
	return Trace{
		T:         t,
		V:         v,
		StimStart: []float64{stimStart},
		StimEnd:   []float64{stimEnd},
	}
}

// Window returns the stimulus start and end in ms.
func (tr Trace) Window() (float64, float64) {
	return tr.StimStart[0], tr.StimEnd[0]
}

// Validate checks the structural invariants of the trace.
func (tr Trace) Validate() error {
	if len(tr.T) == 0 {
		return fmt.Errorf("%w: empty time series", core.ErrInvalidTrace)
	}
	if len(tr.T) != len(tr.V) {
		return fmt.Errorf("%w: %d time points but %d voltage points", core.ErrInvalidTrace, len(tr.T), len(tr.V))
	}
	if len(tr.StimStart) != 1 || len(tr.StimEnd) != 1 {
		return fmt.Errorf("%w: stim_start and stim_end must hold exactly one value", core.ErrInvalidTrace)
	}
	if tr.StimEnd[0] < tr.StimStart[0] {
		return fmt.Errorf("%w: stim_end %.3f before stim_start %.3f", core.ErrInvalidTrace, tr.StimEnd[0], tr.StimStart[0])
	}
	for i := 1; i < len(tr.T); i++ {
		if tr.T[i] <= tr.T[i-1] {
			return fmt.Errorf("%w: time series not strictly increasing at index %d", core.ErrInvalidTrace, i)
		}
	}
	return nil
}

// Values maps a feature name to its extracted values. A nil slice means
// the extractor could not compute the feature for the trace.
type Values map[string][]float64

// First returns the first value of a feature, and false when the feature
// is absent or empty.
func (v Values) First(name string) (float64, bool) {
	vals := v[name]
	if len(vals) == 0 {
		return 0, false
	}
	return vals[0], true
}

// Feature names understood by the extractor.
const (
	VoltageBase                = "voltage_base"
	SteadyStateVoltageStimEnd  = "steady_state_voltage_stimend"
	OhmicInputResistanceVBSSSE = "ohmic_input_resistance_vb_ssse"
	PeakTime                   = "peak_time"
	PeakVoltage                = "peak_voltage"
	APBeginVoltage             = "AP_begin_voltage"
	APAmplitude                = "AP_amplitude"
	APDurationHalfWidth        = "AP_duration_half_width"
	SpikeCount                 = "Spikecount"
)

// Names lists every supported feature.
func Names() []string {
	return []string{
		VoltageBase,
		SteadyStateVoltageStimEnd,
		OhmicInputResistanceVBSSSE,
		PeakTime,
		PeakVoltage,
		APBeginVoltage,
		APAmplitude,
		APDurationHalfWidth,
		SpikeCount,
	}
}

// Extractor settings.
const (
	SettingStimulusCurrent     = "stimulus_current"
	SettingThreshold           = "Threshold"
	SettingDerivativeThreshold = "DerivativeThreshold"
)
