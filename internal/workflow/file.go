package workflow

import (
	"fmt"
	"os"

	"gopkg.in/yaml.v3"
)

type fileSpec struct {
	Name   string  `yaml:"name"`
	Phases []Phase `yaml:"phases"`
}

// LoadFile reads a workflow definition from a yaml file and validates
// every phase through the usual registration path.
func LoadFile(path string) (*Workflow, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("read workflow file: %w", err)
	}

	var spec fileSpec
	if err := yaml.Unmarshal(data, &spec); err != nil {
		return nil, fmt.Errorf("parse workflow file %s: %w", path, err)
	}
	if spec.Name == "" {
		return nil, &ConfigurationError{Reason: "workflow name must not be empty"}
	}
	if len(spec.Phases) == 0 {
		return nil, &ConfigurationError{Reason: "workflow has no phases"}
	}

	w := New(spec.Name)
	for _, p := range spec.Phases {
		if err := w.Phase(p); err != nil {
			return nil, err
		}
	}
	return w, nil
}
