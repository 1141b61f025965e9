package odm_test

import (
	"encoding/json"
	"math"
	"testing"
	"time"

	"github.com/stretchr/testify/require"

	"github.com/sanity-io/odm"
)

func TestKindOf(t *testing.T) {
	for _, tc := range []struct {
		value interface{}
		kind  odm.Kind
	}{
		{nil, odm.KindNull},
		{true, odm.KindBool},
		{1, odm.KindNumber},
		{uint16(1), odm.KindNumber},
		{1.5, odm.KindNumber},
		{json.Number("12"), odm.KindNumber},
		{time.Now(), odm.KindTime},
		{"a", odm.KindString},
		{arr{}, odm.KindArray},
		{obj{}, odm.KindMap},
		{odm.Delete, odm.KindDirective},
		{[]string{}, odm.KindInvalid},
		{struct{}{}, odm.KindInvalid},
	} {
		t.Run(tc.kind.String(), func(t *testing.T) {
			require.Equal(t, tc.kind, odm.KindOf(tc.value))
		})
	}
}

func TestEqual(t *testing.T) {
	now := time.Now()

	require.True(t, odm.Equal(1, 1.0))
	require.True(t, odm.Equal(int64(3), json.Number("3")))
	require.True(t, odm.Equal(now, now.In(time.FixedZone("x", 3600))))
	require.True(t, odm.Equal(obj{"a": arr{1, obj{"b": nil}}}, obj{"a": arr{1.0, obj{"b": nil}}}))
	require.True(t, odm.Equal(odm.Increment(1), odm.Increment(1.0)))

	require.False(t, odm.Equal(1, "1"))
	require.False(t, odm.Equal(arr{1, 2}, arr{2, 1}))
	require.False(t, odm.Equal(obj{"a": nil}, obj{}))
	require.False(t, odm.Equal(odm.ArrayUnion(1), odm.ArrayRemove(1)))
	require.False(t, odm.Equal(uint64(1<<63), int64(1<<62)))

	require.False(t, odm.Equal(1.5, math.NaN()))
	require.False(t, odm.Equal(math.NaN(), 0))
	require.True(t, odm.Equal(math.NaN(), math.NaN()))
	require.Equal(t, -1, odm.Compare(math.NaN(), math.Inf(-1)))
}

func TestMerge(t *testing.T) {
	a := obj{"a": obj{"b": 1, "c": 2}, "d": 1}
	b := obj{"a": obj{"c": 3, "e": 4}, "d": obj{"f": 1}}

	require.Equal(t, obj{"a": obj{"b": 1, "c": 3, "e": 4}, "d": obj{"f": 1}}, odm.Merge(a, b))
	require.Equal(t, obj{"a": obj{"b": 1, "c": 2}, "d": 1}, a)
	require.Equal(t, obj{"x": 1}, odm.Merge(nil, obj{"x": 1}))
}

func TestCopy(t *testing.T) {
	orig := obj{"a": arr{obj{"b": 1}}}
	cp := odm.Copy(orig).(obj)
	cp["a"].(arr)[0].(obj)["b"] = 2
	require.Equal(t, obj{"a": arr{obj{"b": 1}}}, orig)
}

func TestNormalize(t *testing.T) {
	value := odm.Normalize(obj{
		"a": json.Number("1"),
		"b": json.Number("1.5"),
		"c": uint8(3),
		"d": float32(0.5),
		"e": map[interface{}]interface{}{"x": arr{uint64(1)}},
	})
	require.Equal(t, obj{
		"a": int64(1),
		"b": 1.5,
		"c": int64(3),
		"d": 0.5,
		"e": obj{"x": arr{int64(1)}},
	}, value)
}

func TestDocumentPaths(t *testing.T) {
	segments, err := odm.SplitDocumentPath("users/1/posts/2")
	require.NoError(t, err)
	require.Equal(t, []string{"users", "1", "posts", "2"}, segments)

	for _, invalid := range []string{"", "users", "users/1/posts", "users//1", "users/.."} {
		_, err := odm.SplitDocumentPath(invalid)
		require.ErrorIs(t, err, odm.ErrInvalidPath, invalid)
	}

	_, err = odm.SplitCollectionPath("users/1")
	require.ErrorIs(t, err, odm.ErrInvalidPath)

	require.Equal(t, "users/1/posts", odm.ParentCollection("users/1/posts/2"))
	require.Equal(t, "2", odm.BaseID("users/1/posts/2"))
	require.Equal(t, "users/1", odm.JoinPath("users", "1"))
	require.Equal(t, "a.b", odm.JoinFieldPath("a", "b"))
	require.Equal(t, "b", odm.JoinFieldPath("", "b"))
}
