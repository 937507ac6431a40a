package modeladapter_test

import (
	"encoding/json"
	"testing"

	"github.com/queryloom/queryloom/pkg/modeladapter"
	"github.com/stretchr/testify/assert"
)

func TestOptions_Merge_OverridesPerKey(t *testing.T) {
	defaults := modeladapter.Options{
		"temperature": 0.0,
		"n":           1,
		"max_tokens":  4096,
	}

	merged := defaults.Merge(modeladapter.Options{
		"temperature":     0.7,
		"response_format": map[string]any{"type": "json_object"},
	})

	assert.Equal(t, 0.7, merged["temperature"])
	assert.Equal(t, map[string]any{"type": "json_object"}, merged["response_format"])

	// Keys absent from the overrides are preserved.
	assert.Equal(t, 1, merged["n"])
	assert.Equal(t, 4096, merged["max_tokens"])
}

func TestOptions_Merge_DoesNotMutateInputs(t *testing.T) {
	defaults := modeladapter.Options{"n": 1}
	overrides := modeladapter.Options{"n": 3}

	merged := defaults.Merge(overrides)

	assert.Equal(t, 3, merged["n"])
	assert.Equal(t, 1, defaults["n"])
	assert.Equal(t, 3, overrides["n"])
}

func TestOptions_Merge_NilReceiver(t *testing.T) {
	var defaults modeladapter.Options

	merged := defaults.Merge(modeladapter.Options{"n": 2})
	assert.Equal(t, 2, merged["n"])

	merged = defaults.Merge(nil)
	assert.NotNil(t, merged)
	assert.Empty(t, merged)
}

func TestOptions_Int(t *testing.T) {
	o := modeladapter.Options{
		"a": 2,
		"b": int64(3),
		"c": float64(4),
		"d": json.Number("5"),
		"e": "not a number",
	}

	assert.Equal(t, 2, o.Int("a", 1))
	assert.Equal(t, 3, o.Int("b", 1))
	assert.Equal(t, 4, o.Int("c", 1))
	assert.Equal(t, 5, o.Int("d", 1))
	assert.Equal(t, 1, o.Int("e", 1))
	assert.Equal(t, 1, o.Int("missing", 1))
}

func TestOptions_Float(t *testing.T) {
	o := modeladapter.Options{
		"a": 0.5,
		"b": 2,
		"c": json.Number("0.25"),
	}

	assert.Equal(t, 0.5, o.Float("a", 1))
	assert.Equal(t, 2.0, o.Float("b", 1))
	assert.Equal(t, 0.25, o.Float("c", 1))
	assert.Equal(t, 1.0, o.Float("missing", 1))
}
