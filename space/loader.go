package space

import (
	"fmt"
	"os"

	"gopkg.in/yaml.v3"

	"github.com/halcyon-ml/hypersweep/core"
)

type spaceFile struct {
	Parameters  []parameterEntry  `yaml:"parameters"`
	Constraints []constraintEntry `yaml:"constraints"`
}

type parameterEntry struct {
	Name         string   `yaml:"name"`
	Kind         string   `yaml:"kind"`
	Min          float64  `yaml:"min"`
	Max          float64  `yaml:"max"`
	Values       []string `yaml:"values"`
	Distribution string   `yaml:"distribution"`
}

type constraintEntry struct {
	When      string `yaml:"when"`
	Equals    any    `yaml:"equals"`
	Then      string `yaml:"then"`
	MustEqual any    `yaml:"must_equal"`
}

// LoadFile reads a search-space declaration from a YAML file.
func LoadFile(path string) (core.SearchSpace, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return core.SearchSpace{}, fmt.Errorf("read space file %s: %w", path, err)
	}
	s, err := Parse(data)
	if err != nil {
		return core.SearchSpace{}, fmt.Errorf("parse space file %s: %w", path, err)
	}
	return s, nil
}

// Parse decodes and validates a YAML search-space declaration.
func Parse(data []byte) (core.SearchSpace, error) {
	var file spaceFile
	if err := yaml.Unmarshal(data, &file); err != nil {
		return core.SearchSpace{}, fmt.Errorf("parse YAML: %w", err)
	}

	s := core.SearchSpace{}
	for _, p := range file.Parameters {
		s.Domains = append(s.Domains, core.ParameterDomain{
			Name:         p.Name,
			Kind:         core.ParamKind(p.Kind),
			Min:          p.Min,
			Max:          p.Max,
			Values:       p.Values,
			Distribution: core.Distribution(p.Distribution),
		})
	}
	for _, c := range file.Constraints {
		equals, err := toParamValue(c.Equals)
		if err != nil {
			return core.SearchSpace{}, fmt.Errorf("constraint on %s: %w", c.When, err)
		}
		mustEqual, err := toParamValue(c.MustEqual)
		if err != nil {
			return core.SearchSpace{}, fmt.Errorf("constraint on %s: %w", c.When, err)
		}
		s.Constraints = append(s.Constraints, core.Constraint{
			WhenParam: c.When,
			Equals:    equals,
			ThenParam: c.Then,
			MustEqual: mustEqual,
		})
	}

	if err := s.Validate(); err != nil {
		return core.SearchSpace{}, err
	}
	return s, nil
}

func toParamValue(v any) (core.ParamValue, error) {
	switch t := v.(type) {
	case string:
		return core.StringValue(t), nil
	case int:
		return core.IntValue(int64(t)), nil
	case int64:
		return core.IntValue(t), nil
	case float64:
		return core.FloatValue(t), nil
	default:
		return core.ParamValue{}, fmt.Errorf("unsupported constraint value %v (%T)", v, v)
	}
}
