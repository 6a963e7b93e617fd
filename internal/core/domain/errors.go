package domain

import "fmt"

// ProcessorStep names the document-processing stage an error originated from.
type ProcessorStep string

const (
	StepBundle      ProcessorStep = "bundle"
	StepUpgrade     ProcessorStep = "upgrade"
	StepDereference ProcessorStep = "dereference"
	StepValidation  ProcessorStep = "validation"
)

// ProcessorError is fatal to one document-processing attempt. It pins the
// failure to a pipeline step and wraps the underlying cause when there is one.
type ProcessorError struct {
	Step    ProcessorStep
	Message string
	Cause   error
}

func (e *ProcessorError) Error() string {
	if e.Cause != nil {
		return fmt.Sprintf("document processing failed at %s: %s: %v", e.Step, e.Message, e.Cause)
	}
	return fmt.Sprintf("document processing failed at %s: %s", e.Step, e.Message)
}

func (e *ProcessorError) Unwrap() error { return e.Cause }

// SimulationValidationError rejects a simulation mutation and leaves the
// table untouched.
type SimulationValidationError struct {
	Field   string
	Message string
}

func (e *SimulationValidationError) Error() string {
	return fmt.Sprintf("invalid simulation: %s", e.Message)
}

// SeedExecutorError reports a seed function that itself failed. Recoverable
// seed problems (non-array returns, duplicate-key items) are collected as
// warnings instead and never surface as this type.
type SeedExecutorError struct {
	SchemaName string
	Cause      error
}

func (e *SeedExecutorError) Error() string {
	if e.Cause != nil {
		return fmt.Sprintf("seed for schema %q failed: %v", e.SchemaName, e.Cause)
	}
	return fmt.Sprintf("seed for schema %q failed", e.SchemaName)
}

func (e *SeedExecutorError) Unwrap() error { return e.Cause }
