// Package efeature is a native implementation of the feature-extraction
// oracle the validation tests consume. It follows the eFEL conventions for
// feature names, trace layout and settings.
package efeature

import (
	"fmt"
	"sync"

	"demounit/domain/core"
	"demounit/domain/features"
	"demounit/ports"
)

// Default settings.
const (
	DefaultStimulusCurrent     = 0.0   // nA
	DefaultThreshold           = -20.0 // mV
	DefaultDerivativeThreshold = 12.0  // mV/ms
)

// Extractor computes features from voltage traces. It is safe for
// concurrent use, but settings changed by one caller are seen by every
// other caller until the next Reset.
type Extractor struct {
	mu       sync.RWMutex
	settings map[string]float64
}

var _ ports.FeatureExtractor = (*Extractor)(nil)

// New returns an extractor with default settings.
func New() *Extractor {
	return &Extractor{settings: defaultSettings()}
}

func defaultSettings() map[string]float64 {
	return map[string]float64{
		features.SettingStimulusCurrent:     DefaultStimulusCurrent,
		features.SettingThreshold:           DefaultThreshold,
		features.SettingDerivativeThreshold: DefaultDerivativeThreshold,
	}
}

// Reset restores the default settings.
func (e *Extractor) Reset() {
	e.mu.Lock()
	defer e.mu.Unlock()
	e.settings = defaultSettings()
}

// SetDoubleSetting changes a numeric setting.
func (e *Extractor) SetDoubleSetting(name string, value float64) error {
	e.mu.Lock()
	defer e.mu.Unlock()
	if _, ok := e.settings[name]; !ok {
		return fmt.Errorf("%w: %s", core.ErrUnknownSetting, name)
	}
	e.settings[name] = value
	return nil
}

// Setting returns the current value of a setting.
func (e *Extractor) Setting(name string) (float64, bool) {
	e.mu.RLock()
	defer e.mu.RUnlock()
	v, ok := e.settings[name]
	return v, ok
}

func (e *Extractor) snapshot() settings {
	e.mu.RLock()
	defer e.mu.RUnlock()
	return settings{
		stimulusCurrent:     e.settings[features.SettingStimulusCurrent],
		threshold:           e.settings[features.SettingThreshold],
		derivativeThreshold: e.settings[features.SettingDerivativeThreshold],
	}
}

// GetFeatureValues computes the requested features for every trace.
func (e *Extractor) GetFeatureValues(traces []features.Trace, featureNames []string) ([]features.Values, error) {
	for _, name := range featureNames {
		if _, ok := calculators[name]; !ok {
			return nil, fmt.Errorf("%w: %s", core.ErrUnknownFeature, name)
		}
	}

	cfg := e.snapshot()
	out := make([]features.Values, len(traces))
	for i, tr := range traces {
		if err := tr.Validate(); err != nil {
			return nil, fmt.Errorf("trace %d: %w", i, err)
		}
		a := newAnalysis(tr, cfg)
		vals := make(features.Values, len(featureNames))
		for _, name := range featureNames {
			vals[name] = calculators[name](a)
		}
		out[i] = vals
	}
	return out, nil
}

type settings struct {
	stimulusCurrent     float64
	threshold           float64
	derivativeThreshold float64
}

var calculators = map[string]func(*analysis) []float64{
	features.VoltageBase:                (*analysis).voltageBase,
	features.SteadyStateVoltageStimEnd:  (*analysis).steadyStateVoltageStimEnd,
	features.OhmicInputResistanceVBSSSE: (*analysis).ohmicInputResistance,
	features.PeakTime:                   (*analysis).peakTime,
	features.PeakVoltage:                (*analysis).peakVoltage,
	features.APBeginVoltage:             (*analysis).apBeginVoltage,
	features.APAmplitude:                (*analysis).apAmplitude,
	features.APDurationHalfWidth:        (*analysis).apHalfWidth,
	features.SpikeCount:                 (*analysis).spikeCount,
}
