package pipeline

import "fmt"

// ConfigurationError reports a malformed pipeline definition detected
// before any stage executes.
type ConfigurationError struct {
	Reason string
}

func (e *ConfigurationError) Error() string {
	return "pipeline configuration error: " + e.Reason
}

// TypeMismatchError reports a property override whose value could not be
// coerced to any of the kinds a stage parameter accepts.
type TypeMismatchError struct {
	Property string
	Value    interface{}
	Want     []ValueKind
}

func (e *TypeMismatchError) Error() string {
	return fmt.Sprintf("property %q: cannot convert override value %v (%T) to any of %v",
		e.Property, e.Value, e.Value, e.Want)
}

// ResultNotFoundError reports a lookup of a named result that no stage has
// produced yet in the current run.
type ResultNotFoundError struct {
	Name string
}

func (e *ResultNotFoundError) Error() string {
	return fmt.Sprintf("no result recorded under name %q", e.Name)
}

// StageError wraps a failure raised by one stage with that stage's name.
type StageError struct {
	Stage string
	Err   error
}

func (e *StageError) Error() string {
	return fmt.Sprintf("stage %q: %v", e.Stage, e.Err)
}

func (e *StageError) Unwrap() error { return e.Err }
