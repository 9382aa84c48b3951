package core

import (
	"encoding/json"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestParamValueEqual(t *testing.T) {
	t.Run("int and float compare numerically", func(t *testing.T) {
		assert.True(t, IntValue(1).Equal(FloatValue(1.0)))
		assert.False(t, IntValue(1).Equal(FloatValue(1.5)))
	})

	t.Run("categorical compares exactly", func(t *testing.T) {
		assert.True(t, StringValue("standard").Equal(StringValue("standard")))
		assert.False(t, StringValue("standard").Equal(StringValue("dropout")))
		assert.False(t, StringValue("1").Equal(IntValue(1)))
	})
}

func TestParamValueJSONRoundTrip(t *testing.T) {
	tests := []struct {
		name string
		in   ParamValue
		want string
	}{
		{"categorical", StringValue("sampling"), `"sampling"`},
		{"int", IntValue(42), `42`},
		{"float", FloatValue(0.125), `0.125`},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			data, err := json.Marshal(tt.in)
			require.NoError(t, err)
			assert.Equal(t, tt.want, string(data))

			var out ParamValue
			require.NoError(t, json.Unmarshal(data, &out))
			assert.True(t, tt.in.Equal(out))
		})
	}
}

func TestConfigurationKey(t *testing.T) {
	a := Configuration{ID: "a", Params: map[string]ParamValue{
		"leaves":        IntValue(12),
		"learning_rate": FloatValue(0.05),
		"mode":          StringValue("standard"),
	}}
	b := Configuration{ID: "b", Params: map[string]ParamValue{
		"mode":          StringValue("standard"),
		"learning_rate": FloatValue(0.05),
		"leaves":        IntValue(12),
	}}

	// same assignment, different IDs and insertion order
	assert.Equal(t, a.Key(), b.Key())

	c := Configuration{ID: "c", Params: map[string]ParamValue{
		"leaves":        IntValue(13),
		"learning_rate": FloatValue(0.05),
		"mode":          StringValue("standard"),
	}}
	assert.NotEqual(t, a.Key(), c.Key())
}
