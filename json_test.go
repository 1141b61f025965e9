package odm_test

import (
	"encoding/json"
	"io"
	"testing"
	"time"

	"github.com/stretchr/testify/require"

	"github.com/sanity-io/odm"
)

func TestJSONEncoding(t *testing.T) {
	updates := odm.Updates{
		"count": odm.Increment(3),
		"gone":  odm.Delete,
		"name":  "Bob",
		"tags":  odm.ArrayUnion("c"),
	}

	b, err := json.Marshal(updates)
	require.NoError(t, err)
	require.JSONEq(t, `["count",3,3,"gone",1,"name",0,"Bob","tags",4,1,"c"]`, string(b))
}

func TestJSONRoundtrip(t *testing.T) {
	updates := odm.Updates{
		"a":       map[string]interface{}{"b": []interface{}{int64(1), 2.5, "x", nil, false}},
		"count":   odm.Increment(-2),
		"score":   odm.Increment(0.25),
		"gone":    odm.Delete,
		"updated": odm.ServerTimestamp,
		"tags":    odm.ArrayUnion("c", map[string]interface{}{"d": int64(1)}),
		"old":     odm.ArrayRemove("z"),
		"at":      time.Date(2024, 5, 1, 10, 0, 0, 123, time.UTC),
	}

	b, err := json.Marshal(updates)
	require.NoError(t, err)

	var decoded odm.Updates
	require.NoError(t, json.Unmarshal(b, &decoded))
	require.Equal(t, updates, decoded)
}

func TestJSONTime(t *testing.T) {
	at := time.Date(2024, 5, 1, 12, 0, 0, 0, time.FixedZone("CEST", 2*3600))

	b, err := json.Marshal(odm.Updates{"at": at})
	require.NoError(t, err)
	require.JSONEq(t, `["at",6,"2024-05-01T10:00:00Z"]`, string(b))

	var decoded odm.Updates
	require.NoError(t, json.Unmarshal(b, &decoded))
	require.IsType(t, time.Time{}, decoded["at"])
	require.True(t, at.Equal(decoded["at"].(time.Time)))
}

func TestJSONEmpty(t *testing.T) {
	b, err := json.Marshal(odm.Updates{})
	require.NoError(t, err)
	require.Equal(t, "[]", string(b))

	var decoded odm.Updates
	require.NoError(t, json.Unmarshal(b, &decoded))
	require.Empty(t, decoded)
}

func TestJSONTruncated(t *testing.T) {
	var decoded odm.Updates
	err := json.Unmarshal([]byte(`["a",0]`), &decoded)
	require.ErrorIs(t, err, io.ErrUnexpectedEOF)

	err = json.Unmarshal([]byte(`["a",9,1]`), &decoded)
	require.Error(t, err)
}

func TestDecodeJSON(t *testing.T) {
	var raw []interface{}
	require.NoError(t, json.Unmarshal([]byte(`["a",3,2,"b",0,{"c":1.5}]`), &raw))

	var decoded odm.Updates
	require.NoError(t, decoded.DecodeJSON(raw))
	require.Equal(t, odm.Updates{
		"a": odm.Increment(2.0),
		"b": map[string]interface{}{"c": 1.5},
	}, decoded)
}
