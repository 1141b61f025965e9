package staging_test

import (
	"context"
	"testing"

	"github.com/stretchr/testify/require"

	"github.com/sanity-io/odm"
	"github.com/sanity-io/odm/internal/staging"
)

type obj = map[string]interface{}

func loader(docs map[string]obj) staging.Loader {
	return func(path string) (map[string]interface{}, bool, error) {
		data, ok := docs[path]
		return data, ok, nil
	}
}

func TestWrites(t *testing.T) {
	ctx := context.Background()
	committed := map[string]obj{"docs/1": {"n": 1}}
	area := staging.New(loader(committed), odm.DefaultOptions)

	require.NoError(t, area.ApplyFieldMutations(ctx, "docs/1", odm.Updates{"n": odm.Increment(1)}))
	require.NoError(t, area.Replace(ctx, "docs/2", obj{"a": obj{"b": 1}}, false))
	require.NoError(t, area.Replace(ctx, "docs/2", obj{"a": obj{"c": 2}}, true))
	require.NoError(t, area.Delete(ctx, "docs/3"))
	require.NoError(t, area.ApplyFieldMutations(ctx, "docs/1", odm.Updates{"n": odm.Increment(1)}))

	require.Equal(t, []staging.Write{
		{Path: "docs/1", Data: obj{"n": int64(3)}},
		{Path: "docs/2", Data: obj{"a": obj{"b": 1, "c": 2}}},
		{Path: "docs/3"},
	}, area.Writes())

	require.Equal(t, obj{"n": 1}, committed["docs/1"])
}

func TestStagedDelete(t *testing.T) {
	ctx := context.Background()
	area := staging.New(loader(map[string]obj{"docs/1": {"n": 1}}), odm.DefaultOptions)

	require.NoError(t, area.Delete(ctx, "docs/1"))

	_, exists, err := area.Fetch(ctx, "docs/1")
	require.NoError(t, err)
	require.False(t, exists)

	err = area.ApplyFieldMutations(ctx, "docs/1", odm.Updates{"n": 2})
	require.True(t, odm.IsNotFound(err))
}

func TestRejectsDirectives(t *testing.T) {
	ctx := context.Background()
	area := staging.New(loader(nil), odm.DefaultOptions)

	var mismatch *odm.TypeMismatchError
	err := area.Replace(ctx, "docs/1", obj{"a": obj{"b": odm.Increment(1)}}, false)
	require.ErrorAs(t, err, &mismatch)
	require.Equal(t, "a.b", mismatch.Path)

	err = area.Replace(ctx, "docs/1", obj{"tags": []interface{}{"a", "b", odm.Delete}}, false)
	require.ErrorAs(t, err, &mismatch)
	require.Equal(t, "tags.2", mismatch.Path)

	require.ErrorIs(t, area.Delete(ctx, "docs"), odm.ErrInvalidPath)
	require.Empty(t, area.Writes())
}

func TestReplaceWithNilCreatesEmptyDocument(t *testing.T) {
	ctx := context.Background()
	area := staging.New(loader(nil), odm.DefaultOptions)

	require.NoError(t, area.Replace(ctx, "docs/1", nil, false))

	data, exists, err := area.Fetch(ctx, "docs/1")
	require.NoError(t, err)
	require.True(t, exists)
	require.Empty(t, data)
}
