package odm_test

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/prometheus/client_golang/prometheus/testutil"
	"github.com/stretchr/testify/require"

	"github.com/sanity-io/odm"
	"github.com/sanity-io/odm/pkg/memstore"
)

type Person struct {
	Name  string   `json:"name"`
	Age   int      `json:"age"`
	Tags  []string `json:"tags,omitempty"`
	Score float64  `json:"score"`
}

type recordingStore struct {
	*memstore.Store
	applied []odm.Updates
	err     error
}

func (s *recordingStore) ApplyFieldMutations(ctx context.Context, path string, updates odm.Updates) error {
	s.applied = append(s.applied, updates)
	if s.err != nil {
		return s.err
	}
	return s.Store.ApplyFieldMutations(ctx, path, updates)
}

func newPeople(t *testing.T) (*odm.Collection[Person], *recordingStore, *odm.Metrics) {
	store := &recordingStore{Store: memstore.New()}
	metrics := odm.NewMetrics("test")
	people, err := odm.NewCollection[Person](store, "people", nil, odm.DefaultOptions.WithMetrics(metrics))
	require.NoError(t, err)
	return people, store, metrics
}

func TestDocumentSetGet(t *testing.T) {
	ctx := context.Background()
	people, _, _ := newPeople(t)

	doc, err := people.Doc("bob")
	require.NoError(t, err)
	require.Equal(t, "bob", doc.ID())
	require.Equal(t, "people/bob", doc.Path())

	snap, err := doc.Get(ctx)
	require.NoError(t, err)
	require.False(t, snap.Exists)

	require.NoError(t, doc.Set(ctx, Person{Name: "Bob", Age: 40}, false))

	snap, err = doc.Get(ctx)
	require.NoError(t, err)
	require.True(t, snap.Exists)
	require.Equal(t, "bob", snap.ID())
	require.Equal(t, Person{Name: "Bob", Age: 40}, snap.Data)
	require.Equal(t, obj{"name": "Bob", "age": int64(40), "score": int64(0)}, snap.Raw)

	require.NoError(t, doc.Delete(ctx))
	snap, err = doc.Get(ctx)
	require.NoError(t, err)
	require.False(t, snap.Exists)
}

func TestDocumentUpdate(t *testing.T) {
	ctx := context.Background()
	people, store, metrics := newPeople(t)

	doc, err := people.Add(ctx, Person{Name: "Bob", Age: 40, Tags: []string{"a"}})
	require.NoError(t, err)

	err = doc.Update(ctx, func(p Person) (Person, error) {
		p.Age += 2
		p.Tags = append(p.Tags, "b")
		p.Score = 0.5
		return p, nil
	}, false)
	require.NoError(t, err)

	require.Equal(t, []odm.Updates{{
		"age":   odm.Increment(2),
		"tags":  odm.ArrayUnion("b"),
		"score": odm.Increment(0.5),
	}}, store.applied)

	snap, err := doc.Get(ctx)
	require.NoError(t, err)
	require.Equal(t, Person{Name: "Bob", Age: 42, Tags: []string{"a", "b"}, Score: 0.5}, snap.Data)

	require.Equal(t, 1.0, testutil.ToFloat64(metrics.Updates.WithLabelValues("applied")))
	require.Equal(t, 2.0, testutil.ToFloat64(metrics.Directives.WithLabelValues("increment")))
	require.Equal(t, 1.0, testutil.ToFloat64(metrics.Directives.WithLabelValues("array_union")))
}

func TestDocumentUpdateNoTransform(t *testing.T) {
	ctx := context.Background()
	people, store, _ := newPeople(t)

	doc, err := people.Add(ctx, Person{Name: "Bob", Age: 40})
	require.NoError(t, err)

	err = doc.Update(ctx, func(p Person) (Person, error) {
		p.Age = 41
		p.Name = "Robert"
		return p, nil
	}, true)
	require.NoError(t, err)
	require.Equal(t, []odm.Updates{{"age": int64(41), "name": "Robert"}}, store.applied)
}

func TestDocumentUpdateUnchanged(t *testing.T) {
	ctx := context.Background()
	people, store, metrics := newPeople(t)

	doc, err := people.Add(ctx, Person{Name: "Bob"})
	require.NoError(t, err)

	err = doc.Update(ctx, func(p Person) (Person, error) {
		return p, nil
	}, false)
	require.NoError(t, err)
	require.Empty(t, store.applied)
	require.Equal(t, 1.0, testutil.ToFloat64(metrics.Updates.WithLabelValues("skipped")))
}

func TestDocumentUpdateKeepsUnknownFields(t *testing.T) {
	ctx := context.Background()
	people, store, _ := newPeople(t)

	require.NoError(t, store.Replace(ctx, "people/bob", obj{"name": "Bob", "extra": "kept"}, false))

	doc, err := people.Doc("bob")
	require.NoError(t, err)
	require.NoError(t, doc.Update(ctx, func(p Person) (Person, error) {
		p.Name = "Robert"
		return p, nil
	}, false))

	data, _, err := store.Fetch(ctx, "people/bob")
	require.NoError(t, err)
	require.Equal(t, "kept", data["extra"])
	require.Equal(t, "Robert", data["name"])
}

func TestDocumentUpdateMissing(t *testing.T) {
	ctx := context.Background()
	people, store, _ := newPeople(t)

	doc, err := people.Doc("nobody")
	require.NoError(t, err)

	called := false
	err = doc.Update(ctx, func(p Person) (Person, error) {
		called = true
		return p, nil
	}, false)

	var notFound *odm.NotFoundError
	require.ErrorAs(t, err, &notFound)
	require.Equal(t, "people/nobody", notFound.Path)
	require.True(t, odm.IsNotFound(err))
	require.False(t, called)
	require.Empty(t, store.applied)
}

func TestDocumentUpdateErrors(t *testing.T) {
	ctx := context.Background()
	people, store, metrics := newPeople(t)

	doc, err := people.Add(ctx, Person{Name: "Bob"})
	require.NoError(t, err)

	failure := errors.New("nope")
	err = doc.Update(ctx, func(p Person) (Person, error) {
		return p, failure
	}, false)
	require.Equal(t, failure, err)
	require.Empty(t, store.applied)

	transportErr := &odm.TransportError{Op: "update", Path: doc.Path(), Err: errors.New("unavailable")}
	store.err = transportErr
	err = doc.Update(ctx, func(p Person) (Person, error) {
		p.Age++
		return p, nil
	}, false)
	require.Same(t, transportErr, err)
	require.Equal(t, 1.0, testutil.ToFloat64(metrics.Updates.WithLabelValues("failed")))
}

func TestDocumentUpdateTx(t *testing.T) {
	ctx := context.Background()
	people, store, _ := newPeople(t)

	alice, err := people.Add(ctx, Person{Name: "Alice", Age: 10})
	require.NoError(t, err)
	bob, err := people.Add(ctx, Person{Name: "Bob", Age: 10})
	require.NoError(t, err)

	transfer := func(delta int) error {
		return store.RunTransaction(ctx, func(ctx context.Context, tx odm.Tx) error {
			if err := alice.UpdateTx(ctx, tx, func(p Person) (Person, error) {
				p.Age -= delta
				return p, nil
			}, false); err != nil {
				return err
			}
			return bob.UpdateTx(ctx, tx, func(p Person) (Person, error) {
				if p.Age+delta > 15 {
					return p, errors.New("too old")
				}
				p.Age += delta
				return p, nil
			}, false)
		})
	}

	require.NoError(t, transfer(3))
	require.Error(t, transfer(3))

	aliceSnap, err := alice.Get(ctx)
	require.NoError(t, err)
	bobSnap, err := bob.Get(ctx)
	require.NoError(t, err)
	require.Equal(t, 7, aliceSnap.Data.Age)
	require.Equal(t, 13, bobSnap.Data.Age)
}

func TestDocumentSetMerge(t *testing.T) {
	ctx := context.Background()

	docs, err := odm.NewCollection[map[string]interface{}](memstore.New(), "docs", odm.MapConverter{}, odm.DefaultOptions)
	require.NoError(t, err)

	doc, err := docs.Doc("a")
	require.NoError(t, err)
	require.NoError(t, doc.Set(ctx, obj{"a": obj{"b": 1, "c": 2}}, false))
	require.NoError(t, doc.Set(ctx, obj{"a": obj{"c": 3}}, true))

	snap, err := doc.Get(ctx)
	require.NoError(t, err)
	require.Equal(t, obj{"a": obj{"b": 1, "c": 3}}, snap.Data)

	var mismatch *odm.TypeMismatchError
	require.ErrorAs(t, doc.Set(ctx, obj{"a": odm.Delete}, false), &mismatch)
}

func TestDocumentSnapshots(t *testing.T) {
	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()

	people, _, _ := newPeople(t)
	doc, err := people.Doc("bob")
	require.NoError(t, err)

	it, err := doc.Snapshots(ctx)
	require.NoError(t, err)
	defer it.Stop()

	snap, err := it.Next(ctx)
	require.NoError(t, err)
	require.False(t, snap.Exists)

	require.NoError(t, doc.Set(ctx, Person{Name: "Bob"}, false))

	snap, err = it.Next(ctx)
	require.NoError(t, err)
	require.True(t, snap.Exists)
	require.Equal(t, "Bob", snap.Data.Name)

	it.Stop()
	_, err = it.Next(ctx)
	require.ErrorIs(t, err, odm.ErrIteratorStopped)
}

func TestInvalidPaths(t *testing.T) {
	store := memstore.New()

	_, err := odm.NewDocument[Person](store, "people", nil, odm.DefaultOptions)
	require.ErrorIs(t, err, odm.ErrInvalidPath)

	_, err = odm.NewCollection[Person](store, "people/bob", nil, odm.DefaultOptions)
	require.ErrorIs(t, err, odm.ErrInvalidPath)
}

func TestSubCollection(t *testing.T) {
	ctx := context.Background()
	people, _, _ := newPeople(t)

	bob, err := people.Doc("bob")
	require.NoError(t, err)

	type Post struct {
		Title string `json:"title"`
	}

	posts, err := odm.SubCollection[Post](bob, "posts", nil)
	require.NoError(t, err)
	require.Equal(t, "people/bob/posts", posts.Path())
	require.Equal(t, "posts", posts.ID())

	post, err := posts.Add(ctx, Post{Title: "hello"})
	require.NoError(t, err)
	require.Equal(t, "people/bob/posts", odm.ParentCollection(post.Path()))

	snap, err := post.Get(ctx)
	require.NoError(t, err)
	require.Equal(t, "hello", snap.Data.Title)
}
