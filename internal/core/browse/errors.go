package browse

import (
	"errors"
	"fmt"
)

// Stage identifies which of the three catalog fetches failed
type Stage string

const (
	StageConfig     Stage = "config"
	StageCategories Stage = "categories"
	StageItems      Stage = "items"
)

var (
	// ErrConfigLoad matches load errors of the config stage
	ErrConfigLoad = errors.New("could not load config file")
	// ErrCategoryLoad matches load errors of the category stage
	ErrCategoryLoad = errors.New("could not load categories")
	// ErrItemLoad matches load errors of the item stage
	ErrItemLoad = errors.New("could not load items")

	// ErrHalted is returned by actions after a load failure until Load is called again
	ErrHalted = errors.New("browser halted after a load failure")
	// ErrNotLoaded is returned by actions before the first successful config resolution
	ErrNotLoaded = errors.New("browser not loaded")
)

// LoadError is the terminal failure of one fetch stage
type LoadError struct {
	Stage Stage
	Cause error
}

func newLoadError(stage Stage, cause error) *LoadError {
	return &LoadError{Stage: stage, Cause: cause}
}

// Message returns the fixed human-readable cause shown to the author
func (e *LoadError) Message() string {
	switch e.Stage {
	case StageConfig:
		return "Could not load config file"
	case StageCategories:
		return "Could not load categories"
	default:
		return "Could not load items"
	}
}

func (e *LoadError) Error() string {
	if e.Cause == nil {
		return e.Message()
	}
	return fmt.Sprintf("%s: %v", e.Message(), e.Cause)
}

// Unwrap exposes both the stage sentinel and the underlying cause
func (e *LoadError) Unwrap() []error {
	errs := []error{e.sentinel()}
	if e.Cause != nil {
		errs = append(errs, e.Cause)
	}
	return errs
}

func (e *LoadError) sentinel() error {
	switch e.Stage {
	case StageConfig:
		return ErrConfigLoad
	case StageCategories:
		return ErrCategoryLoad
	default:
		return ErrItemLoad
	}
}
