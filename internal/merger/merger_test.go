package merger

import (
	"errors"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/ginjaninja78/budget-report/internal/jsonvalue"
)

func sources(t *testing.T, docs ...string) []Source {
	t.Helper()

	out := make([]Source, 0, len(docs))
	for i, doc := range docs {
		v, err := jsonvalue.Parse([]byte(doc))
		require.NoError(t, err)
		out = append(out, Source{Name: string(rune('a'+i)) + ".json", Value: v})
	}
	return out
}

func compact(t *testing.T, v jsonvalue.Value) string {
	t.Helper()

	b, err := v.MarshalJSON()
	require.NoError(t, err)
	return string(b)
}

func TestFold(t *testing.T) {
	tests := []struct {
		name string
		docs []string
		want string
	}{
		{"single document verbatim", []string{`{"x": [1]}`}, `{"x":[1]}`},
		{"arrays concatenate", []string{`[1,2]`, `[3]`}, `[1,2,3]`},
		{"duplicates kept", []string{`[1]`, `[1]`, `[1]`}, `[1,1,1]`},
		{"objects last writer wins", []string{`{"a":1}`, `{"a":2,"b":3}`}, `{"a":2,"b":3}`},
		{"existing keys keep position", []string{`{"a":1,"b":2}`, `{"c":3,"a":4}`}, `{"a":4,"b":2,"c":3}`},
		{"shallow only", []string{`{"n":{"x":1,"y":2}}`, `{"n":{"z":3}}`}, `{"n":{"z":3}}`},
		{"scalar alone", []string{`42`}, `42`},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			merged, ok, err := Fold(sources(t, tt.docs...))
			require.NoError(t, err)
			require.True(t, ok)
			assert.Equal(t, tt.want, compact(t, merged))
		})
	}
}

func TestFoldEmpty(t *testing.T) {
	merged, ok, err := Fold(nil)
	require.NoError(t, err)
	assert.False(t, ok)
	assert.Equal(t, jsonvalue.Scalar, merged.Kind())
}

func TestFoldIncompatible(t *testing.T) {
	tests := []struct {
		name string
		docs []string
		file string
	}{
		{"array then object", []string{`[1]`, `{"a":1}`}, "b.json"},
		{"object then array", []string{`{"a":1}`, `[1]`}, "b.json"},
		{"scalar first", []string{`1`, `2`}, "b.json"},
		{"null in the middle", []string{`[1]`, `[2]`, `null`}, "c.json"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			merged, ok, err := Fold(sources(t, tt.docs...))
			require.Error(t, err)
			assert.False(t, ok)
			assert.Equal(t, jsonvalue.Value{}, merged)

			var incompatible *IncompatibleError
			require.True(t, errors.As(err, &incompatible))
			assert.Equal(t, tt.file, incompatible.File)
			assert.Contains(t, err.Error(), "incompatible data types")
			assert.Contains(t, err.Error(), tt.file)
		})
	}
}

func TestFoldDoesNotModifyInputs(t *testing.T) {
	src := sources(t, `{"a":1}`, `{"a":2,"b":3}`)
	first := compact(t, src[0].Value)

	_, _, err := Fold(src)
	require.NoError(t, err)

	assert.Equal(t, first, compact(t, src[0].Value))

	arrays := sources(t, `[1]`, `[2]`)
	_, _, err = Fold(arrays)
	require.NoError(t, err)
	assert.Equal(t, `[1]`, compact(t, arrays[0].Value))
}

func TestFoldRoundTrip(t *testing.T) {
	merged, ok, err := Fold(sources(t, `{"a":1.50,"b":"<x>"}`, `{"c":[1,2]}`))
	require.NoError(t, err)
	require.True(t, ok)

	pretty, err := merged.Pretty()
	require.NoError(t, err)

	again, err := jsonvalue.Parse(pretty)
	require.NoError(t, err)
	assert.True(t, merged.Equal(again))
}

func TestFolderKeepsStateOnError(t *testing.T) {
	src := sources(t, `[1]`, `{"a":1}`, `[2]`)

	var folder Folder
	_, ok := folder.Result()
	assert.False(t, ok)

	require.NoError(t, folder.Add(src[0]))
	var incompatible *IncompatibleError
	require.ErrorAs(t, folder.Add(src[1]), &incompatible)
	assert.Equal(t, 1, folder.Len())

	require.NoError(t, folder.Add(src[2]))
	merged, ok := folder.Result()
	require.True(t, ok)
	assert.Equal(t, 2, folder.Len())
	assert.Equal(t, `[1,2]`, compact(t, merged))
}
