package ports

import (
	"demounit/domain/features"
)

// FeatureExtractor computes named electrophysiological features from
// voltage traces. Its settings are shared state: callers reset and
// configure it immediately before each extraction.
type FeatureExtractor interface {
	// Reset restores every setting to its default.
	Reset()
	// SetDoubleSetting changes one numeric setting.
	SetDoubleSetting(name string, value float64) error
	// GetFeatureValues returns one Values map per trace, in order.
	GetFeatureValues(traces []features.Trace, featureNames []string) ([]features.Values, error)
}
