package efeature

import (
	"demounit/domain/features"

	"github.com/montanaflynn/stats"
	"gonum.org/v1/gonum/floats"
)

const (
	voltageBaseStartPerc = 0.9 // voltage_base averages over [0.9*stim_start, stim_start]
	steadyStateTailPerc  = 0.1 // steady state averages over the last 10% of the stimulus
)

// analysis caches the per-trace intermediate results features share.
type analysis struct {
	t, v       []float64
	start, end float64
	cfg        settings

	spikesDone bool
	spikes     []spike
}

// spike indexes into the trace.
type spike struct {
	begin     int
	peak      int
	halfWidth float64
	hasWidth  bool
}

func newAnalysis(tr features.Trace, cfg settings) *analysis {
	start, end := tr.Window()
	return &analysis{t: tr.T, v: tr.V, start: start, end: end, cfg: cfg}
}

// windowMean averages V over samples with lo <= t <= hi (hi exclusive when
// open is set). It reports false for an empty window.
func (a *analysis) windowMean(lo, hi float64, open bool) (float64, bool) {
	var sel []float64
	for i, ti := range a.t {
		if ti < lo || ti > hi || (open && ti == hi) {
			continue
		}
		sel = append(sel, a.v[i])
	}
	if len(sel) == 0 {
		return 0, false
	}
	m, err := stats.Mean(sel)
	if err != nil {
		return 0, false
	}
	return m, true
}

func (a *analysis) voltageBaseValue() (float64, bool) {
	return a.windowMean(voltageBaseStartPerc*a.start, a.start, false)
}

func (a *analysis) steadyStateValue() (float64, bool) {
	return a.windowMean(a.end-steadyStateTailPerc*(a.end-a.start), a.end, true)
}

func (a *analysis) voltageBase() []float64 {
	if vb, ok := a.voltageBaseValue(); ok {
		return []float64{vb}
	}
	return nil
}

func (a *analysis) steadyStateVoltageStimEnd() []float64 {
	if ss, ok := a.steadyStateValue(); ok {
		return []float64{ss}
	}
	return nil
}

// ohmicInputResistance is (steady state - voltage base) / stimulus current,
// in MOhm for mV and nA.
func (a *analysis) ohmicInputResistance() []float64 {
	if a.cfg.stimulusCurrent == 0 {
		return nil
	}
	vb, ok := a.voltageBaseValue()
	if !ok {
		return nil
	}
	ss, ok := a.steadyStateValue()
	if !ok {
		return nil
	}
	return []float64{(ss - vb) / a.cfg.stimulusCurrent}
}

func (a *analysis) detect() []spike {
	if a.spikesDone {
		return a.spikes
	}
	a.spikesDone = true

	prevPeak := -1
	for _, p := range detectPeaks(a.v, a.cfg.threshold) {
		from := 0
		if prevPeak >= 0 {
			from = prevPeak + floats.MinIdx(a.v[prevPeak:p+1])
		}
		prevPeak = p
		if a.t[p] < a.start || a.t[p] > a.end {
			continue
		}
		b := apBegin(a.t, a.v, from, p, a.cfg.derivativeThreshold)
		w, ok := halfWidth(a.t, a.v, b, p)
		a.spikes = append(a.spikes, spike{begin: b, peak: p, halfWidth: w, hasWidth: ok})
	}
	return a.spikes
}

func (a *analysis) perSpike(f func(s spike) (float64, bool)) []float64 {
	sp := a.detect()
	if len(sp) == 0 {
		return nil
	}
	out := make([]float64, 0, len(sp))
	for _, s := range sp {
		if v, ok := f(s); ok {
			out = append(out, v)
		}
	}
	if len(out) == 0 {
		return nil
	}
	return out
}

func (a *analysis) peakTime() []float64 {
	return a.perSpike(func(s spike) (float64, bool) { return a.t[s.peak], true })
}

func (a *analysis) peakVoltage() []float64 {
	return a.perSpike(func(s spike) (float64, bool) { return a.v[s.peak], true })
}

func (a *analysis) apBeginVoltage() []float64 {
	return a.perSpike(func(s spike) (float64, bool) { return a.v[s.begin], true })
}

func (a *analysis) apAmplitude() []float64 {
	return a.perSpike(func(s spike) (float64, bool) { return a.v[s.peak] - a.v[s.begin], true })
}

func (a *analysis) apHalfWidth() []float64 {
	return a.perSpike(func(s spike) (float64, bool) { return s.halfWidth, s.hasWidth })
}

func (a *analysis) spikeCount() []float64 {
	return []float64{float64(len(a.detect()))}
}
