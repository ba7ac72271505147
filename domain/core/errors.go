package core

import (
	"errors"
	"fmt"
)

// Domain errors - centralized error definitions
var (
	// Not found errors
	ErrNotFound     = errors.New("resource not found")
	ErrRunNotFound  = fmt.Errorf("%w: run", ErrNotFound)
	ErrUnknownTest  = fmt.Errorf("%w: test", ErrNotFound)
	ErrUnknownModel = fmt.Errorf("%w: model", ErrNotFound)

	// Validation errors
	ErrInvalidObservation = errors.New("invalid observation")
	ErrUnknownFeature     = errors.New("unknown feature")
	ErrUnknownSetting     = errors.New("unknown feature extractor setting")
	ErrInvalidTrace       = errors.New("invalid trace")

	// Capability errors
	ErrNotImplemented    = errors.New("capability not implemented")
	ErrMissingCapability = errors.New("model lacks required capability")

	// Prediction errors
	ErrFeatureUnavailable = errors.New("feature could not be extracted from trace")
)

// observationShape is the only observation layout the tests accept.
const observationShape = "Observation must return a dictionary of the form: {'mean': NUM1, 'std': NUM2}"

// ObservationError reports an observation that does not have the
// {mean, std} numeric shape.
type ObservationError struct {
	Detail string
}

func (e *ObservationError) Error() string {
	if e.Detail == "" {
		return observationShape
	}
	return fmt.Sprintf("%s (%s)", observationShape, e.Detail)
}

func (e *ObservationError) Unwrap() error {
	return ErrInvalidObservation
}

// NewObservationError builds an ObservationError with a formatted detail
func NewObservationError(format string, args ...interface{}) error {
	return &ObservationError{Detail: fmt.Sprintf(format, args...)}
}

// Error constructors with context
func NewNotFoundError(resource string, id string) error {
	return fmt.Errorf("%w: %s with id %s", ErrNotFound, resource, id)
}

func NewNotImplementedError(capability, method string) error {
	return fmt.Errorf("%w: %s.%s", ErrNotImplemented, capability, method)
}

func NewMissingCapabilityError(model string, missing []string) error {
	return fmt.Errorf("%w: model %q does not implement %v", ErrMissingCapability, model, missing)
}

func NewFeatureUnavailableError(feature string) error {
	return fmt.Errorf("%w: %s", ErrFeatureUnavailable, feature)
}

// Error checking helpers
func IsNotFoundError(err error) bool {
	return errors.Is(err, ErrNotFound)
}

func IsObservationError(err error) bool {
	return errors.Is(err, ErrInvalidObservation)
}

func IsCapabilityError(err error) bool {
	return errors.Is(err, ErrMissingCapability) ||
		errors.Is(err, ErrNotImplemented)
}
