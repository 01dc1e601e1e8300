package scenario

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestMarshalCanonical_SortsKeysAndKeepsHTML(t *testing.T) {
	got, err := MarshalCanonical(map[string]any{
		"z":    1,
		"a":    []string{"<x>", "&"},
		"m":    map[string]any{"b": true, "a": int64(-2)},
		"list": []any{"s", false},
	})
	require.NoError(t, err)
	assert.Equal(t, `{"a":["<x>","&"],"list":["s",false],"m":{"a":-2,"b":true},"z":1}`, string(got))
}

func TestMarshalCanonical_NFCNormalizes(t *testing.T) {
	got, err := MarshalCanonical("e\u0301")
	require.NoError(t, err)
	assert.Equal(t, "\"\u00e9\"", string(got))
}

func TestMarshalCanonical_LineSeparatorsAreLiteral(t *testing.T) {
	got, err := MarshalCanonical("a\u2028b\u2029c")
	require.NoError(t, err)
	assert.Equal(t, "\"a\u2028b\u2029c\"", string(got))

	got, err = MarshalCanonical(`\u2028`)
	require.NoError(t, err)
	assert.Equal(t, `"\\u2028"`, string(got), "escaped backslash text is untouched")
}

func TestMarshalCanonical_UTF16KeyOrder(t *testing.T) {
	// U+FF61 sorts before U+1F600 by UTF-8 bytes but after it by UTF-16
	// code units, where the surrogate 0xD83D is smaller than 0xFF61.
	got, err := MarshalCanonical(map[string]any{"\uFF61": 1, "\U0001F600": 2})
	require.NoError(t, err)
	assert.Equal(t, "{\"\U0001F600\":2,\"\uFF61\":1}", string(got))
}

func TestMarshalCanonical_Rejects(t *testing.T) {
	for name, v := range map[string]any{
		"nil":    nil,
		"float":  1.5,
		"struct": struct{}{},
		"nested": map[string]any{"k": nil},
	} {
		t.Run(name, func(t *testing.T) {
			_, err := MarshalCanonical(v)
			assert.Error(t, err)
		})
	}
}
