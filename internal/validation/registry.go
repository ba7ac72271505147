package validation

import (
	"fmt"
	"sort"
	"strings"

	"demounit/domain/capability"
	"demounit/domain/core"
	"demounit/domain/features"
	"demounit/domain/score"
)

// Test aliases, as registered with the validation service.
const (
	AliasRestingPotential = "VF_RestingPotential"
	AliasInputResistance  = "VF_InputResistance"
	AliasAPHeight         = "VF_AP_Height"
	AliasAPHalfWidth      = "VF_AP_HalfWidth"
)

// Definition describes a test independently of any observation.
type Definition struct {
	Alias        string         `json:"alias"`
	Name         string         `json:"name"`
	Description  string         `json:"description"`
	Capabilities capability.Set `json:"required_capabilities"`
	Protocol     Protocol       `json:"protocol"`
	ScoreType    score.Kind     `json:"score_type"`
}

var (
	recordOnly   = capability.NewSet(capability.ProducesMembranePotential)
	injectRecord = capability.NewSet(capability.InjectsStepCurrent, capability.ProducesMembranePotential)
)

var definitions = map[string]Definition{
	AliasRestingPotential: {
		Alias:        AliasRestingPotential,
		Name:         "Resting Membrane Potential Test",
		Description:  "Test the cell's resting membrane potential",
		Capabilities: recordOnly,
		Protocol:     Protocol{TStop: 50},
		ScoreType:    score.KindZScore,
	},
	AliasInputResistance: {
		Alias:        AliasInputResistance,
		Name:         "Input Resistance Test",
		Description:  "Test the cell's input resistance",
		Capabilities: injectRecord,
		Protocol:     stepProtocol(10, 50, -1, features.OhmicInputResistanceVBSSSE),
		ScoreType:    score.KindZScore,
	},
	AliasAPHeight: {
		Alias:        AliasAPHeight,
		Name:         "Action Potential Height Test",
		Description:  "Test the cell's AP height",
		Capabilities: injectRecord,
		Protocol:     stepProtocol(10, 5, 15, features.APAmplitude),
		ScoreType:    score.KindZScore,
	},
	AliasAPHalfWidth: {
		Alias:        AliasAPHalfWidth,
		Name:         "Action Potential Half-Width Test",
		Description:  "Test the cell's AP half-width",
		Capabilities: injectRecord,
		Protocol:     stepProtocol(10, 5, 15, features.APDurationHalfWidth),
		ScoreType:    score.KindZScore,
	},
}

// order is the catalog order.
var order = []string{AliasRestingPotential, AliasInputResistance, AliasAPHeight, AliasAPHalfWidth}

// New builds the test registered under alias (case-insensitive).
func New(alias string, raw map[string]any, opts ...Option) (Test, error) {
	canonical, ok := Lookup(alias)
	if !ok {
		return nil, fmt.Errorf("%w: %s (known: %s)", core.ErrUnknownTest, alias, strings.Join(order, ", "))
	}

	switch canonical {
	case AliasRestingPotential:
		return NewRestingPotential(raw, opts...)
	case AliasInputResistance:
		return NewInputResistance(raw, opts...)
	case AliasAPHeight:
		return NewAPHeight(raw, opts...)
	default:
		return NewAPHalfWidth(raw, opts...)
	}
}

// Lookup resolves an alias to its canonical spelling.
func Lookup(alias string) (string, bool) {
	normalized := strings.ToLower(strings.TrimSpace(alias))
	for _, a := range order {
		if strings.ToLower(a) == normalized {
			return a, true
		}
	}
	return "", false
}

// Describe returns the definition registered under alias.
func Describe(alias string) (Definition, bool) {
	canonical, ok := Lookup(alias)
	if !ok {
		return Definition{}, false
	}
	return definitions[canonical], true
}

// Aliases lists the registered aliases in catalog order.
func Aliases() []string {
	return append([]string(nil), order...)
}

// Catalog returns every test definition in catalog order.
func Catalog() []Definition {
	out := make([]Definition, 0, len(order))
	for _, a := range order {
		out = append(out, definitions[a])
	}
	return out
}

// NewSuite builds one test per entry of observations, keyed by alias, in
// catalog order. Unknown aliases and malformed observations fail the
// whole suite.
func NewSuite(observations map[string]map[string]any, opts ...Option) ([]Test, error) {
	byAlias := make(map[string]map[string]any, len(observations))
	for alias, raw := range observations {
		canonical, ok := Lookup(alias)
		if !ok {
			return nil, fmt.Errorf("%w: %s", core.ErrUnknownTest, alias)
		}
		if _, dup := byAlias[canonical]; dup {
			return nil, fmt.Errorf("duplicate observation for %s", canonical)
		}
		byAlias[canonical] = raw
	}

	aliases := make([]string, 0, len(byAlias))
	for a := range byAlias {
		aliases = append(aliases, a)
	}
	sort.Slice(aliases, func(i, j int) bool { return rank(aliases[i]) < rank(aliases[j]) })

	tests := make([]Test, 0, len(aliases))
	for _, a := range aliases {
		t, err := New(a, byAlias[a], opts...)
		if err != nil {
			return nil, fmt.Errorf("%s: %w", a, err)
		}
		tests = append(tests, t)
	}
	return tests, nil
}

func rank(alias string) int {
	for i, a := range order {
		if a == alias {
			return i
		}
	}
	return len(order)
}
