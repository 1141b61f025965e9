package watch_test

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/require"

	"github.com/sanity-io/odm"
	"github.com/sanity-io/odm/internal/watch"
)

func TestSignalCoalesces(t *testing.T) {
	ctx, cancel := context.WithTimeout(context.Background(), 50*time.Millisecond)
	defer cancel()

	signal := watch.NewSignal()
	signal.Notify()
	signal.Notify()

	require.NoError(t, signal.Wait(ctx))
	require.ErrorIs(t, signal.Wait(ctx), context.DeadlineExceeded)

	signal.Close()
	signal.Close()
	require.True(t, signal.Closed())
	require.ErrorIs(t, signal.Wait(context.Background()), odm.ErrIteratorStopped)
}

func TestDocumentIteratorSkipsUnchanged(t *testing.T) {
	ctx := context.Background()
	signal := watch.NewSignal()

	states := []odm.RawSnapshot{
		{Path: "docs/1"},
		{Path: "docs/1"},
		{Path: "docs/1", Data: map[string]interface{}{"a": 1}, Exists: true},
	}
	fetches := 0
	stopped := 0

	it := watch.NewDocumentIterator(signal, func() (odm.RawSnapshot, error) {
		snap := states[fetches]
		fetches++
		if fetches < len(states) {
			signal.Notify()
		}
		return snap, nil
	}, func() { stopped++ })

	snap, err := it.Next(ctx)
	require.NoError(t, err)
	require.False(t, snap.Exists)

	snap, err = it.Next(ctx)
	require.NoError(t, err)
	require.True(t, snap.Exists)
	require.Equal(t, 3, fetches)

	it.Stop()
	it.Stop()
	require.Equal(t, 1, stopped)

	_, err = it.Next(ctx)
	require.ErrorIs(t, err, odm.ErrIteratorStopped)
}

func TestQueryIterator(t *testing.T) {
	ctx := context.Background()
	signal := watch.NewSignal()

	result := []odm.RawSnapshot{}
	it := watch.NewQueryIterator(signal, func() ([]odm.RawSnapshot, error) {
		return result, nil
	}, func() {})
	defer it.Stop()

	first, err := it.Next(ctx)
	require.NoError(t, err)
	require.Empty(t, first)

	result = []odm.RawSnapshot{{Path: "docs/1", Exists: true, Data: map[string]interface{}{}}}
	signal.Notify()

	next, err := it.Next(ctx)
	require.NoError(t, err)
	require.Equal(t, result, next)
}
