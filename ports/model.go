package ports

import (
	"demounit/domain/capability"
)

// Model is a simulated neuron offered for validation. Besides declaring
// its capabilities it implements the matching capability interfaces.
type Model interface {
	capability.Declarer
}

// ModelCatalog resolves models by name.
type ModelCatalog interface {
	Model(name string) (Model, error)
	Names() []string
}
