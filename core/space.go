package core

import (
	"fmt"
	"math"
)

// ParameterDomain declares the legal values of one hyperparameter. Declared
// once before a search starts and never mutated afterwards.
type ParameterDomain struct {
	Name         string       `json:"name"`
	Kind         ParamKind    `json:"kind"`
	Min          float64      `json:"min,omitempty"`
	Max          float64      `json:"max,omitempty"`
	Values       []string     `json:"values,omitempty"`
	Distribution Distribution `json:"distribution,omitempty"`
}

// Contains reports whether v lies inside the domain.
func (d ParameterDomain) Contains(v ParamValue) bool {
	switch d.Kind {
	case KindCategorical:
		if v.Kind != KindCategorical {
			return false
		}
		for _, allowed := range d.Values {
			if allowed == v.Str {
				return true
			}
		}
		return false
	case KindInt:
		if v.Kind != KindInt {
			return false
		}
		f := float64(v.Int)
		return f >= d.Min && f <= d.Max
	case KindFloat:
		if v.Kind != KindFloat && v.Kind != KindInt {
			return false
		}
		f := v.AsFloat()
		return f >= d.Min && f <= d.Max
	default:
		return false
	}
}

func (d ParameterDomain) validate() error {
	switch d.Kind {
	case KindCategorical:
		if len(d.Values) == 0 {
			return fmt.Errorf("domain %s: categorical domain needs at least one value", d.Name)
		}
	case KindInt, KindFloat:
		if math.IsNaN(d.Min) || math.IsNaN(d.Max) || d.Min > d.Max {
			return fmt.Errorf("domain %s: invalid bounds [%v, %v]", d.Name, d.Min, d.Max)
		}
		if d.Distribution == DistLogUniform && d.Min <= 0 {
			return fmt.Errorf("domain %s: log-uniform needs a positive lower bound, got %v", d.Name, d.Min)
		}
	default:
		return fmt.Errorf("domain %s: unknown kind %q", d.Name, d.Kind)
	}
	switch d.Distribution {
	case "", DistUniform, DistLogUniform:
	default:
		return fmt.Errorf("domain %s: unknown distribution %q", d.Name, d.Distribution)
	}
	return nil
}

// Constraint is a conditional rule over two parameters: when the first
// parameter equals a value, the second must equal another.
type Constraint struct {
	WhenParam string     `json:"when_param"`
	Equals    ParamValue `json:"equals"`
	ThenParam string     `json:"then_param"`
	MustEqual ParamValue `json:"must_equal"`
}

// Satisfied reports whether the configuration honors the constraint. A
// configuration missing the trigger parameter satisfies it vacuously.
func (c Constraint) Satisfied(cfg Configuration) bool {
	got, ok := cfg.Params[c.WhenParam]
	if !ok || !got.Equal(c.Equals) {
		return true
	}
	dep, ok := cfg.Params[c.ThenParam]
	return ok && dep.Equal(c.MustEqual)
}

// SearchSpace is an ordered set of parameter domains plus conditional
// constraints. Immutable for the lifetime of a task.
type SearchSpace struct {
	Domains     []ParameterDomain `json:"domains"`
	Constraints []Constraint      `json:"constraints,omitempty"`
}

// Validate checks domain bounds and that constraints reference declared
// parameters with in-domain values.
func (s SearchSpace) Validate() error {
	byName := make(map[string]ParameterDomain, len(s.Domains))
	for _, d := range s.Domains {
		if d.Name == "" {
			return fmt.Errorf("domain with empty name")
		}
		if _, dup := byName[d.Name]; dup {
			return fmt.Errorf("duplicate domain %s", d.Name)
		}
		if err := d.validate(); err != nil {
			return err
		}
		byName[d.Name] = d
	}
	for _, c := range s.Constraints {
		when, ok := byName[c.WhenParam]
		if !ok {
			return fmt.Errorf("constraint references unknown parameter %s", c.WhenParam)
		}
		then, ok := byName[c.ThenParam]
		if !ok {
			return fmt.Errorf("constraint references unknown parameter %s", c.ThenParam)
		}
		if !when.Contains(c.Equals) {
			return fmt.Errorf("constraint trigger value %s is outside domain %s", c.Equals, c.WhenParam)
		}
		if !then.Contains(c.MustEqual) {
			return fmt.Errorf("constraint target value %s is outside domain %s", c.MustEqual, c.ThenParam)
		}
	}
	return nil
}

// Domain looks up a declared domain by parameter name.
func (s SearchSpace) Domain(name string) (ParameterDomain, bool) {
	for _, d := range s.Domains {
		if d.Name == name {
			return d, true
		}
	}
	return ParameterDomain{}, false
}

// Satisfies reports whether the configuration assigns an in-domain value to
// every declared parameter and honors every constraint.
func (s SearchSpace) Satisfies(cfg Configuration) error {
	for _, d := range s.Domains {
		v, ok := cfg.Params[d.Name]
		if !ok {
			return fmt.Errorf("configuration %s: missing parameter %s", cfg.ID, d.Name)
		}
		if !d.Contains(v) {
			return fmt.Errorf("configuration %s: parameter %s=%s is outside its domain", cfg.ID, d.Name, v)
		}
	}
	for _, c := range s.Constraints {
		if !c.Satisfied(cfg) {
			return fmt.Errorf("configuration %s: constraint %s=%s => %s=%s violated",
				cfg.ID, c.WhenParam, c.Equals, c.ThenParam, c.MustEqual)
		}
	}
	return nil
}

// TaskDefinition is what gets handed to an optimizer at task creation.
type TaskDefinition struct {
	Title string
	Goal  Goal
	Space SearchSpace
}
