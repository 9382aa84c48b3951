package core

import (
	"encoding/json"
	"fmt"
	"math"
	"sort"
	"strconv"
	"strings"
)

// ParamKind discriminates the value types a hyperparameter can take.
type ParamKind string

const (
	KindCategorical ParamKind = "categorical"
	KindInt         ParamKind = "int"
	KindFloat       ParamKind = "float"
)

// Distribution selects how a numeric domain is sampled.
type Distribution string

const (
	DistUniform    Distribution = "uniform"
	DistLogUniform Distribution = "log-uniform"
)

// Goal is the optimization direction of a task.
type Goal string

const (
	GoalMaximize Goal = "maximize"
	GoalMinimize Goal = "minimize"
)

// Better reports whether candidate improves on incumbent under the goal.
func (g Goal) Better(candidate, incumbent float64) bool {
	if g == GoalMinimize {
		return candidate < incumbent
	}
	return candidate > incumbent
}

// ParamValue is a tagged scalar: exactly one of Str/Int/Float is meaningful,
// selected by Kind.
type ParamValue struct {
	Kind  ParamKind
	Str   string
	Int   int64
	Float float64
}

func StringValue(s string) ParamValue { return ParamValue{Kind: KindCategorical, Str: s} }
func IntValue(i int64) ParamValue     { return ParamValue{Kind: KindInt, Int: i} }
func FloatValue(f float64) ParamValue { return ParamValue{Kind: KindFloat, Float: f} }

// Equal compares two values. Int and float values compare numerically so a
// service that returns 1 for 1.0 still satisfies a float constraint.
func (v ParamValue) Equal(o ParamValue) bool {
	if v.Kind == KindCategorical || o.Kind == KindCategorical {
		return v.Kind == o.Kind && v.Str == o.Str
	}
	return v.AsFloat() == o.AsFloat()
}

// AsFloat returns the numeric value of an int or float ParamValue.
func (v ParamValue) AsFloat() float64 {
	if v.Kind == KindInt {
		return float64(v.Int)
	}
	return v.Float
}

func (v ParamValue) String() string {
	switch v.Kind {
	case KindCategorical:
		return v.Str
	case KindInt:
		return strconv.FormatInt(v.Int, 10)
	default:
		return strconv.FormatFloat(v.Float, 'g', -1, 64)
	}
}

// MarshalJSON emits the bare scalar so dumps and wire payloads stay readable.
func (v ParamValue) MarshalJSON() ([]byte, error) {
	switch v.Kind {
	case KindCategorical:
		return json.Marshal(v.Str)
	case KindInt:
		return json.Marshal(v.Int)
	case KindFloat:
		if math.IsInf(v.Float, 0) || math.IsNaN(v.Float) {
			return nil, fmt.Errorf("param value is not finite: %v", v.Float)
		}
		return json.Marshal(v.Float)
	default:
		return nil, fmt.Errorf("unknown param kind %q", v.Kind)
	}
}

// UnmarshalJSON sniffs the scalar type. Whole numbers decode as ints; the
// numeric Equal above keeps that lossless for float domains.
func (v *ParamValue) UnmarshalJSON(data []byte) error {
	var raw any
	dec := json.NewDecoder(strings.NewReader(string(data)))
	dec.UseNumber()
	if err := dec.Decode(&raw); err != nil {
		return err
	}
	switch t := raw.(type) {
	case string:
		*v = StringValue(t)
	case json.Number:
		if i, err := t.Int64(); err == nil && !strings.ContainsAny(t.String(), ".eE") {
			*v = IntValue(i)
			return nil
		}
		f, err := t.Float64()
		if err != nil {
			return fmt.Errorf("parse param value %q: %w", t.String(), err)
		}
		*v = FloatValue(f)
	default:
		return fmt.Errorf("unsupported param value %s", string(data))
	}
	return nil
}

// Configuration is one concrete point in the search space. Immutable once
// created; callers must not mutate Params after construction.
type Configuration struct {
	ID     string                `json:"id"`
	Params map[string]ParamValue `json:"params"`
}

// Key returns a canonical encoding of the parameter assignment, independent
// of map iteration order. Used for de-duplicating evaluations.
func (c Configuration) Key() string {
	names := make([]string, 0, len(c.Params))
	for name := range c.Params {
		names = append(names, name)
	}
	sort.Strings(names)
	var b strings.Builder
	for i, name := range names {
		if i > 0 {
			b.WriteByte(';')
		}
		b.WriteString(name)
		b.WriteByte('=')
		b.WriteString(c.Params[name].String())
	}
	return b.String()
}

// Result is the scored outcome of evaluating one Configuration.
type Result struct {
	ID              string            `json:"id"`
	ConfigurationID string            `json:"configuration_id"`
	Score           float64           `json:"score"`
	Metadata        map[string]string `json:"metadata,omitempty"`
}

// Outcome is what an optimizer run hands back: the best result observed and
// the configuration that produced it.
type Outcome struct {
	Best              Result
	BestConfiguration Configuration
	Iterations        int
}
