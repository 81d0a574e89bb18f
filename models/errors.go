package models

import (
	"errors"
	"fmt"
)

var (
	// ErrInvalidDefinition is returned by Start for malformed definitions
	ErrInvalidDefinition = errors.New("invalid workflow definition")
	// ErrDeadlockDetected means pending steps remain but none is eligible
	ErrDeadlockDetected = errors.New("deadlock detected: no eligible step while steps remain pending")
	// ErrStepFailed prefixes the workflow error recorded when a step fails
	ErrStepFailed = errors.New("step failed")
	// ErrTimeout marks a watchdog-induced termination
	ErrTimeout = errors.New("timeout")
)

// DefinitionError describes why a definition was rejected
type DefinitionError struct {
	StepID string
	Reason string
}

func (e *DefinitionError) Error() string {
	if e.StepID == "" {
		return fmt.Sprintf("invalid workflow definition: %s", e.Reason)
	}
	return fmt.Sprintf("invalid workflow definition: step '%s': %s", e.StepID, e.Reason)
}

func (e *DefinitionError) Unwrap() error {
	return ErrInvalidDefinition
}

// ErrDefinition builds a DefinitionError
func ErrDefinition(stepID, format string, args ...any) error {
	return &DefinitionError{StepID: stepID, Reason: fmt.Sprintf(format, args...)}
}

// MissingConfigError is returned by behavior factories for absent keys
type MissingConfigError struct {
	Key string
}

func (e *MissingConfigError) Error() string {
	return "missing required configuration key: " + e.Key
}

func ErrMissingConfig(key string) error {
	return &MissingConfigError{Key: key}
}
