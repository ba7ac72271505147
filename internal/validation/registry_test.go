package validation

import (
	"errors"
	"testing"

	"demounit/domain/capability"
	"demounit/domain/core"
	"demounit/domain/features"
)

func TestNewByAlias(t *testing.T) {
	tests := []struct {
		alias       string
		wantName    string
		expectError bool
	}{
		{"VF_RestingPotential", "Resting Membrane Potential Test", false},
		{"vf_inputresistance", "Input Resistance Test", false},
		{"  VF_AP_Height ", "Action Potential Height Test", false},
		{"VF_AP_HalfWidth", "Action Potential Half-Width Test", false},
		{"VF_SpikeCount", "", true},
	}

	for _, tt := range tests {
		t.Run(tt.alias, func(t *testing.T) {
			test, err := New(tt.alias, obs(1, 1))
			if tt.expectError {
				if !errors.Is(err, core.ErrUnknownTest) {
					t.Errorf("expected ErrUnknownTest, got %v", err)
				}
				return
			}
			if err != nil {
				t.Fatalf("unexpected error: %v", err)
			}
			if test.Name() != tt.wantName {
				t.Errorf("Name() = %q, want %q", test.Name(), tt.wantName)
			}
		})
	}
}

func TestConstructorsRejectMalformedObservations(t *testing.T) {
	bad := []map[string]any{
		nil,
		{"mean": 1.0},
		{"mean": 1.0, "std": 1.0, "n": 3},
		{"mean": "1", "std": 1.0},
		{"mean": nil, "std": nil},
	}

	for _, alias := range Aliases() {
		for _, raw := range bad {
			_, err := New(alias, raw)
			var obsErr *core.ObservationError
			if !errors.As(err, &obsErr) {
				t.Errorf("%s with %v: expected ObservationError, got %v", alias, raw, err)
			}
		}
	}
}

func TestValidateObservation(t *testing.T) {
	test, err := NewRestingPotential(obs(-65, 5))
	if err != nil {
		t.Fatal(err)
	}
	if err := test.ValidateObservation(map[string]any{"mean": -70, "std": 3}); err != nil {
		t.Errorf("integer observation rejected: %v", err)
	}
	if err := test.ValidateObservation(map[string]any{"mean": -70}); !core.IsObservationError(err) {
		t.Errorf("expected observation error, got %v", err)
	}
}

func TestProtocols(t *testing.T) {
	type want struct {
		stim    *capability.Current
		tstop   float64
		start   float64
		end     float64
		feature string
	}
	cases := map[string]want{
		AliasRestingPotential: {nil, 50, 0, 50, ""},
		AliasInputResistance:  {&capability.Current{Delay: 10, Duration: 50, Amplitude: -1}, 70, 10, 60, features.OhmicInputResistanceVBSSSE},
		AliasAPHeight:         {&capability.Current{Delay: 10, Duration: 5, Amplitude: 15}, 25, 10, 15, features.APAmplitude},
		AliasAPHalfWidth:      {&capability.Current{Delay: 10, Duration: 5, Amplitude: 15}, 25, 10, 15, features.APDurationHalfWidth},
	}

	for alias, w := range cases {
		p := definitions[alias].Protocol
		if (p.Stimulus == nil) != (w.stim == nil) || (p.Stimulus != nil && *p.Stimulus != *w.stim) {
			t.Errorf("%s: stimulus %+v, want %+v", alias, p.Stimulus, w.stim)
		}
		if p.TStop != w.tstop {
			t.Errorf("%s: tstop %v, want %v", alias, p.TStop, w.tstop)
		}
		start, end := p.Window()
		if start != w.start || end != w.end {
			t.Errorf("%s: window [%v,%v], want [%v,%v]", alias, start, end, w.start, w.end)
		}
		if p.Feature != w.feature {
			t.Errorf("%s: feature %q, want %q", alias, p.Feature, w.feature)
		}
	}
}

func TestRequiredCapabilities(t *testing.T) {
	rest, _ := NewRestingPotential(obs(-65, 5))
	if got := rest.RequiredCapabilities(); len(got) != 1 || !got.Contains(capability.ProducesMembranePotential) {
		t.Errorf("resting potential requires %v", got)
	}
	for _, alias := range []string{AliasInputResistance, AliasAPHeight, AliasAPHalfWidth} {
		test, _ := New(alias, obs(1, 1))
		got := test.RequiredCapabilities()
		if !got.Contains(capability.InjectsStepCurrent) || !got.Contains(capability.ProducesMembranePotential) {
			t.Errorf("%s requires %v", alias, got)
		}
	}
}

func TestWithName(t *testing.T) {
	test, err := New(AliasAPHeight, obs(1, 1), WithName("Layer 5 AP height"))
	if err != nil {
		t.Fatal(err)
	}
	if test.Name() != "Layer 5 AP height" || test.Definition().Name != "Layer 5 AP height" {
		t.Errorf("name override not applied: %q", test.Name())
	}
	if test.Alias() != AliasAPHeight {
		t.Errorf("alias changed to %q", test.Alias())
	}
}

func TestCatalog(t *testing.T) {
	defs := Catalog()
	if len(defs) != 4 {
		t.Fatalf("expected 4 definitions, got %d", len(defs))
	}
	for i, alias := range Aliases() {
		if defs[i].Alias != alias {
			t.Errorf("catalog[%d] = %s, want %s", i, defs[i].Alias, alias)
		}
		if defs[i].Description == "" || defs[i].ScoreType == "" {
			t.Errorf("%s: incomplete definition %+v", alias, defs[i])
		}
	}
}

func TestNewSuite(t *testing.T) {
	tests, err := NewSuite(map[string]map[string]any{
		"vf_ap_halfwidth":     obs(0.8, 0.2),
		"VF_RestingPotential": obs(-65, 5),
	})
	if err != nil {
		t.Fatal(err)
	}
	if len(tests) != 2 || tests[0].Alias() != AliasRestingPotential || tests[1].Alias() != AliasAPHalfWidth {
		t.Errorf("unexpected suite order: %v", tests)
	}

	_, err = NewSuite(map[string]map[string]any{"VF_AP_Height": obs(1, 1), "vf_ap_height": obs(2, 1)})
	if err == nil {
		t.Error("expected duplicate alias error")
	}

	_, err = NewSuite(map[string]map[string]any{"VF_Rheobase": obs(1, 1)})
	if !errors.Is(err, core.ErrUnknownTest) {
		t.Errorf("expected ErrUnknownTest, got %v", err)
	}

	_, err = NewSuite(map[string]map[string]any{"VF_AP_Height": {"mean": 1}})
	if !core.IsObservationError(err) {
		t.Errorf("expected observation error, got %v", err)
	}
}

func TestParseAbsentPolicy(t *testing.T) {
	for in, want := range map[string]AbsentPolicy{
		"":                  AbsentSentinel,
		"sentinel":          AbsentSentinel,
		"Insufficient_Data": AbsentInsufficientData,
		"insufficient-data": AbsentInsufficientData,
	} {
		got, err := ParseAbsentPolicy(in)
		if err != nil || got != want {
			t.Errorf("ParseAbsentPolicy(%q) = %v, %v", in, got, err)
		}
	}
	if _, err := ParseAbsentPolicy("ignore"); err == nil {
		t.Error("expected error for unknown policy")
	}
}
