package pipeline

import (
	"fmt"
	"io"
	"sort"
	"sync"

	"gopkg.in/yaml.v3"
)

// Factory constructs a stage from its persisted definition.
type Factory func(def StageDefinition) (Stage, error)

// Registry maps persisted stage type tags to constructors so definitions
// can be instantiated without reflection.
type Registry struct {
	mu        sync.RWMutex
	factories map[string]Factory
}

// NewRegistry creates an empty registry.
func NewRegistry() *Registry {
	return &Registry{factories: make(map[string]Factory)}
}

// Register binds a type tag to a factory, replacing any previous binding.
func (r *Registry) Register(tag string, factory Factory) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.factories[tag] = factory
}

// Tags returns the registered type tags, sorted.
func (r *Registry) Tags() []string {
	r.mu.RLock()
	defer r.mu.RUnlock()
	tags := make([]string, 0, len(r.factories))
	for tag := range r.factories {
		tags = append(tags, tag)
	}
	sort.Strings(tags)
	return tags
}

// Build instantiates stages from definitions in declared order. Unknown
// type tags and invalid definitions fail with a ConfigurationError before
// anything executes.
func (r *Registry) Build(defs []StageDefinition) ([]Stage, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	stages := make([]Stage, 0, len(defs))
	for i, def := range defs {
		if def.Name == "" {
			return nil, &ConfigurationError{Reason: fmt.Sprintf("stage %d (%s) has no name", i, def.Type)}
		}
		factory, ok := r.factories[def.Type]
		if !ok {
			return nil, &ConfigurationError{Reason: fmt.Sprintf("stage %q: unknown type %q", def.Name, def.Type)}
		}
		stage, err := factory(def)
		if err != nil {
			return nil, &ConfigurationError{Reason: fmt.Sprintf("stage %q: %v", def.Name, err)}
		}
		stages = append(stages, stage)
	}
	return stages, nil
}

// pipelineFile is the on-disk shape of a pipeline definition.
type pipelineFile struct {
	Stages []StageDefinition `yaml:"stages"`
}

// LoadDefinitions decodes an ordered stage definition list from YAML.
func LoadDefinitions(r io.Reader) ([]StageDefinition, error) {
	var file pipelineFile
	dec := yaml.NewDecoder(r)
	if err := dec.Decode(&file); err != nil {
		return nil, &ConfigurationError{Reason: fmt.Sprintf("decode pipeline: %v", err)}
	}
	if len(file.Stages) == 0 {
		return nil, &ConfigurationError{Reason: "pipeline defines no stages"}
	}
	return file.Stages, nil
}
