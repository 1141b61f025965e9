package odmmsgpack_test

import (
	"testing"
	"time"

	"github.com/stretchr/testify/require"
	"github.com/vmihailenco/msgpack/v4"

	"github.com/sanity-io/odm"
	"github.com/sanity-io/odm/pkg/odmmsgpack"
)

func TestRoundtrip(t *testing.T) {
	updates := odm.Updates{
		"name":      "Bob",
		"tags":      odm.ArrayUnion("a", int64(2)),
		"old":       odm.ArrayRemove("x"),
		"age":       odm.Increment(5),
		"score":     odm.Increment(0.5),
		"gone":      odm.Delete,
		"updatedAt": odm.ServerTimestamp,
		"address":   map[string]interface{}{"city": "Oslo", "zip": int64(150)},
		"list":      []interface{}{int64(1), "two", nil, true},
		"at":        time.Date(2024, 5, 1, 10, 0, 0, 0, time.UTC),
	}

	b, err := odmmsgpack.Marshal(updates)
	require.NoError(t, err)

	decoded, err := odmmsgpack.Unmarshal(b)
	require.NoError(t, err)
	require.Equal(t, updates, decoded)
}

func TestEmptyUpdates(t *testing.T) {
	b, err := odmmsgpack.Marshal(odm.Updates{})
	require.NoError(t, err)
	require.NotNil(t, b)

	decoded, err := odmmsgpack.Unmarshal(b)
	require.NoError(t, err)
	require.Empty(t, decoded)
}

func TestSize(t *testing.T) {
	left := map[string]interface{}{
		"_type": "Person",
		"name":  "Bob",
		"age":   10.0,
	}
	right := map[string]interface{}{
		"_type": "Person",
		"name":  "Bob",
		"age":   15.0,
	}

	updates, err := odm.GenerateUpdates(left, right, false)
	require.NoError(t, err)

	b, err := odmmsgpack.Marshal(updates)
	require.NoError(t, err)
	require.True(t, len(b) < 20)
}

func TestEmbedded(t *testing.T) {
	type envelope struct {
		Path    string
		Updates odmmsgpack.MsgpackUpdates
		Seq     int
	}

	in := envelope{
		Path:    "users/1",
		Updates: odmmsgpack.MsgpackUpdates{"a": int64(1), "b": odm.Delete},
		Seq:     7,
	}

	b, err := msgpack.Marshal(&in)
	require.NoError(t, err)

	var out envelope
	require.NoError(t, msgpack.Unmarshal(b, &out))
	require.Equal(t, in, out)
}

func TestTruncated(t *testing.T) {
	b, err := odmmsgpack.Marshal(odm.Updates{"a": "value", "b": odm.Increment(1)})
	require.NoError(t, err)

	_, err = odmmsgpack.Unmarshal(b[:len(b)-1])
	require.Error(t, err)
}
