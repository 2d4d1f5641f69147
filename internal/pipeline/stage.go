package pipeline

// Stage is one named, independently configurable transformation in a
// pipeline. Implementations may mutate the working image in place, read
// prior results by name, and optionally publish a result under their own
// name. Stages must not retain per-run state; anything scoped to a run
// lives in the Context.
type Stage interface {
	// Name returns the stage's name, unique within its pipeline.
	Name() string
	// Process executes the stage against the run context. Returning
	// (nil, nil) is valid and records an empty result.
	Process(ctx *Context) (*Result, error)
}

// StageDefinition is the persisted configuration for one stage: a type
// tag resolved through the Registry, a name unique within the pipeline,
// and the stage's parameter values. How definitions are stored is owned
// by the configuration collaborator; this type only fixes their shape.
type StageDefinition struct {
	Type   string                 `yaml:"type" json:"type"`
	Name   string                 `yaml:"name" json:"name"`
	Params map[string]interface{} `yaml:"params,omitempty" json:"params,omitempty"`
}
