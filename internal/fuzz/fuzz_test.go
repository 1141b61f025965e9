package fuzz

import (
	"testing"

	"github.com/stretchr/testify/require"
)

func TestFuzzCorpus(t *testing.T) {
	corpus := []string{
		`{} {}`,
		`{"a": 1} {"a": 2}`,
		`{"a": 1.5} {"a": 2}`,
		`{"a": [1, 2]} {"a": [1, 2, 3]}`,
		`{"a": [1, 2, 3]} {"a": [1]}`,
		`{"a": [1, 2, 3]} {"a": [3, 1, 2]}`,
		`{"a": {"b": {"c": true}}} {"a": {"b": {}}}`,
		`{"a": {"b": 1}} {"a": "b"}`,
		`{"a": null} {"b": [{"c": 1}]}`,
		`{"a": 9007199254740993} {"a": -9007199254740993}`,
	}

	for _, input := range corpus {
		t.Run(input, func(t *testing.T) {
			require.NotPanics(t, func() {
				require.Equal(t, 1, Fuzz([]byte(input)))
			})
		})
	}
}

func TestFuzzRejects(t *testing.T) {
	require.Equal(t, -1, Fuzz([]byte(`{`)))
	require.Equal(t, -1, Fuzz([]byte(`{"a.b": 1} {}`)))
	require.Equal(t, 0, Fuzz([]byte(`{"a": [1, 1]} {"a": [1]}`)))
}
