package validation

import (
	"context"
	"fmt"

	"demounit/domain/capability"
	"demounit/domain/features"
	"demounit/internal/testkit"

	"github.com/stretchr/testify/mock"
)

type MockExtractor struct {
	mock.Mock
}

func (m *MockExtractor) Reset() {
	m.Called()
}

func (m *MockExtractor) SetDoubleSetting(name string, value float64) error {
	args := m.Called(name, value)
	return args.Error(0)
}

func (m *MockExtractor) GetFeatureValues(traces []features.Trace, names []string) ([]features.Values, error) {
	args := m.Called(traces, names)
	vals, _ := args.Get(0).([]features.Values)
	return vals, args.Error(1)
}

// callLog is shared by loggingExtractor and loggingModel so the test can
// see the interleaving of extractor and model calls.
type callLog struct {
	entries []string
}

func (l *callLog) add(format string, args ...interface{}) {
	l.entries = append(l.entries, fmt.Sprintf(format, args...))
}

type loggingExtractor struct {
	log    *callLog
	values features.Values
}

func (e *loggingExtractor) Reset() { e.log.add("reset") }

func (e *loggingExtractor) SetDoubleSetting(name string, value float64) error {
	e.log.add("set %s=%g", name, value)
	return nil
}

func (e *loggingExtractor) GetFeatureValues(traces []features.Trace, names []string) ([]features.Values, error) {
	start, end := traces[0].Window()
	e.log.add("extract %v [%g,%g]", names, start, end)
	return []features.Values{e.values}, nil
}

type loggingModel struct {
	testkit.Scripted
	log *callLog
}

func (m *loggingModel) InjectSquareCurrent(c capability.Current) error {
	m.log.add("inject %g/%g/%g", c.Delay, c.Duration, c.Amplitude)
	return m.Scripted.InjectSquareCurrent(c)
}

func (m *loggingModel) GetMembranePotential(ctx context.Context, tstop float64) ([]float64, []float64, error) {
	m.log.add("record %g", tstop)
	return m.Scripted.GetMembranePotential(ctx, tstop)
}

var (
	bothCaps   = capability.NewSet(capability.InjectsStepCurrent, capability.ProducesMembranePotential)
	recordCaps = capability.NewSet(capability.ProducesMembranePotential)
)

func flatModel(name string, caps capability.Set, level float64) *testkit.Scripted {
	t := make([]float64, 101)
	v := make([]float64, 101)
	for i := range t {
		t[i] = float64(i) * 0.25
		v[i] = level
	}
	return &testkit.Scripted{ModelName: name, Caps: caps, T: t, V: v}
}

func obs(mean, std float64) map[string]any {
	return map[string]any{"mean": mean, "std": std}
}
