package core

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func testSpace() SearchSpace {
	return SearchSpace{
		Domains: []ParameterDomain{
			{Name: "mode", Kind: KindCategorical, Values: []string{"standard", "dropout", "sampling"}},
			{Name: "bagging_fraction", Kind: KindFloat, Min: 0.5, Max: 1.0},
			{Name: "leaves", Kind: KindInt, Min: 3, Max: 50},
			{Name: "learning_rate", Kind: KindFloat, Min: 0.025, Max: 0.25, Distribution: DistLogUniform},
		},
		Constraints: []Constraint{
			{WhenParam: "mode", Equals: StringValue("sampling"), ThenParam: "bagging_fraction", MustEqual: FloatValue(1.0)},
		},
	}
}

func TestSearchSpaceValidate(t *testing.T) {
	require.NoError(t, testSpace().Validate())

	t.Run("log-uniform needs positive lower bound", func(t *testing.T) {
		s := SearchSpace{Domains: []ParameterDomain{
			{Name: "lr", Kind: KindFloat, Min: 0, Max: 1, Distribution: DistLogUniform},
		}}
		assert.Error(t, s.Validate())
	})

	t.Run("constraint on unknown parameter", func(t *testing.T) {
		s := testSpace()
		s.Constraints = append(s.Constraints, Constraint{
			WhenParam: "nope", Equals: StringValue("x"),
			ThenParam: "leaves", MustEqual: IntValue(3),
		})
		assert.Error(t, s.Validate())
	})

	t.Run("inverted bounds", func(t *testing.T) {
		s := SearchSpace{Domains: []ParameterDomain{
			{Name: "leaves", Kind: KindInt, Min: 50, Max: 3},
		}}
		assert.Error(t, s.Validate())
	})
}

func TestSearchSpaceSatisfies(t *testing.T) {
	space := testSpace()

	valid := Configuration{ID: "c1", Params: map[string]ParamValue{
		"mode":             StringValue("sampling"),
		"bagging_fraction": FloatValue(1.0),
		"leaves":           IntValue(7),
		"learning_rate":    FloatValue(0.1),
	}}
	require.NoError(t, space.Satisfies(valid))

	t.Run("sampling mode requires full bagging", func(t *testing.T) {
		cfg := valid
		cfg.Params = map[string]ParamValue{
			"mode":             StringValue("sampling"),
			"bagging_fraction": FloatValue(0.8),
			"leaves":           IntValue(7),
			"learning_rate":    FloatValue(0.1),
		}
		assert.Error(t, space.Satisfies(cfg))
	})

	t.Run("standard mode allows partial bagging", func(t *testing.T) {
		cfg := valid
		cfg.Params = map[string]ParamValue{
			"mode":             StringValue("standard"),
			"bagging_fraction": FloatValue(0.8),
			"leaves":           IntValue(7),
			"learning_rate":    FloatValue(0.1),
		}
		assert.NoError(t, space.Satisfies(cfg))
	})

	t.Run("out of bounds", func(t *testing.T) {
		cfg := valid
		cfg.Params = map[string]ParamValue{
			"mode":             StringValue("standard"),
			"bagging_fraction": FloatValue(0.8),
			"leaves":           IntValue(99),
			"learning_rate":    FloatValue(0.1),
		}
		assert.Error(t, space.Satisfies(cfg))
	})

	t.Run("missing parameter", func(t *testing.T) {
		cfg := Configuration{ID: "c2", Params: map[string]ParamValue{
			"mode": StringValue("standard"),
		}}
		assert.Error(t, space.Satisfies(cfg))
	})

	t.Run("int satisfies float domain", func(t *testing.T) {
		cfg := valid
		cfg.Params = map[string]ParamValue{
			"mode":             StringValue("standard"),
			"bagging_fraction": IntValue(1),
			"leaves":           IntValue(7),
			"learning_rate":    FloatValue(0.1),
		}
		assert.NoError(t, space.Satisfies(cfg))
	})
}
