package store

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/drycc/controller/pkg/ctlerr"
)

func strp(s string) *string { return &s }

// spec.md §8 "config merge": an existing key survives an unrelated
// patch, a present key is overwritten, and a new key is added.
func TestMergeConfigValuesMerge(t *testing.T) {
	previous := &Config{
		Values: []EnvValue{
			{Name: "KEPT", Value: "1", Group: "global"},
			{Name: "OVERWRITTEN", Value: "old", Group: "global"},
		},
	}
	patch := ConfigPatch{
		Values: []EnvValuePatch{
			{Name: "OVERWRITTEN", Value: strp("new"), Group: "global"},
			{Name: "ADDED", Value: strp("2"), Group: "web"},
		},
	}

	merged, err := MergeConfig(previous, patch)
	require.NoError(t, err)

	byName := map[string]EnvValue{}
	for _, v := range merged.Values {
		byName[v.Name] = v
	}
	assert.Equal(t, "1", byName["KEPT"].Value)
	assert.Equal(t, "new", byName["OVERWRITTEN"].Value)
	assert.Equal(t, "2", byName["ADDED"].Value)
	assert.Len(t, merged.Values, 3)
}

// spec.md §8 "unset missing key": a null value for a key absent from
// the previous Config fails with Unprocessable rather than being a
// silent no-op.
func TestMergeConfigUnsetMissingKeyFails(t *testing.T) {
	previous := &Config{Values: []EnvValue{{Name: "KEPT", Value: "1", Group: "global"}}}
	patch := ConfigPatch{Values: []EnvValuePatch{{Name: "NEVER_SET", Value: nil, Group: "global"}}}

	_, err := MergeConfig(previous, patch)
	require.Error(t, err)
	assert.Equal(t, ctlerr.Unprocessable, ctlerr.KindOf(err))
}

// unsetting a key that is present removes it.
func TestMergeConfigUnsetPresentKey(t *testing.T) {
	previous := &Config{Limits: map[string]string{"web": "std1", "worker": "std2"}}
	patch := ConfigPatch{Limits: map[string]*string{"worker": nil}}

	merged, err := MergeConfig(previous, patch)
	require.NoError(t, err)
	assert.Equal(t, map[string]string{"web": "std1"}, merged.Limits)
}

// a nil patch field leaves the corresponding attribute untouched.
func TestMergeConfigNilFieldUntouched(t *testing.T) {
	previous := &Config{
		Values: []EnvValue{{Name: "KEPT", Value: "1", Group: "global"}},
		Limits: map[string]string{"web": "std1"},
	}
	merged, err := MergeConfig(previous, ConfigPatch{})
	require.NoError(t, err)
	assert.Equal(t, previous.Values, merged.Values)
	assert.Equal(t, previous.Limits, merged.Limits)
}
