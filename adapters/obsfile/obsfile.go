// Package obsfile loads observation sets from disk. A set maps test
// aliases to {mean, std}:
//
//	VF_RestingPotential: {mean: -68.3, std: 5.1}
//	VF_AP_Height:        {mean: 80, std: 10}
package obsfile

import (
	"fmt"
	"os"
	"path/filepath"
	"strings"

	"demounit/adapters/excel"

	"gopkg.in/yaml.v3"
)

// Load reads a YAML or JSON mapping, or an Excel/CSV table, depending on
// the extension. Values are left raw for the test constructors to check.
func Load(path string) (map[string]map[string]any, error) {
	switch strings.ToLower(filepath.Ext(path)) {
	case ".xlsx", ".csv":
		return excel.NewObservationReader(path).Read()
	case ".yaml", ".yml", ".json", "":
		data, err := os.ReadFile(path)
		if err != nil {
			return nil, fmt.Errorf("reading observations: %w", err)
		}
		return Parse(data)
	default:
		return nil, fmt.Errorf("unsupported observation file %s", path)
	}
}

// Parse decodes a YAML (or JSON) observation mapping.
func Parse(data []byte) (map[string]map[string]any, error) {
	var doc map[string]map[string]any
	if err := yaml.Unmarshal(data, &doc); err != nil {
		return nil, fmt.Errorf("parsing observations: %w", err)
	}
	if len(doc) == 0 {
		return nil, fmt.Errorf("observation file lists no tests")
	}
	return doc, nil
}
