// Package watch implements the snapshot iterators shared by the bundled
// stores. A store signals an iterator whenever something it watches may have
// changed; the iterator refetches and only yields when the state differs from
// what it yielded last.
package watch

import (
	"context"
	"sync"

	"github.com/sanity-io/odm"
)

// Signal is a coalescing wakeup. Any number of Notify calls between two
// Waits wake the waiter once.
type Signal struct {
	ch   chan struct{}
	done chan struct{}
	once sync.Once
}

func NewSignal() *Signal {
	return &Signal{
		ch:   make(chan struct{}, 1),
		done: make(chan struct{}),
	}
}

func (s *Signal) Notify() {
	select {
	case s.ch <- struct{}{}:
	default:
	}
}

// Close wakes the waiter for good. It is safe to call more than once.
func (s *Signal) Close() {
	s.once.Do(func() { close(s.done) })
}

func (s *Signal) Closed() bool {
	select {
	case <-s.done:
		return true
	default:
		return false
	}
}

// Wait blocks until Notify, Close or the context is done.
func (s *Signal) Wait(ctx context.Context) error {
	select {
	case <-s.ch:
		return nil
	case <-s.done:
		return odm.ErrIteratorStopped
	case <-ctx.Done():
		return ctx.Err()
	}
}

// StopWith closes the signal once ctx is done.
func (s *Signal) StopWith(ctx context.Context, stop func()) {
	go func() {
		select {
		case <-ctx.Done():
			stop()
		case <-s.done:
		}
	}()
}

// DocumentIterator yields the state of one document.
type DocumentIterator struct {
	signal *Signal
	fetch  func() (odm.RawSnapshot, error)
	stop   func()
	once   sync.Once
	last   *odm.RawSnapshot
}

var _ odm.SnapshotIterator = (*DocumentIterator)(nil)

// NewDocumentIterator returns an iterator that calls fetch whenever signal
// fires. stop is called once when the iterator is stopped.
func NewDocumentIterator(signal *Signal, fetch func() (odm.RawSnapshot, error), stop func()) *DocumentIterator {
	return &DocumentIterator{signal: signal, fetch: fetch, stop: stop}
}

func (it *DocumentIterator) Next(ctx context.Context) (odm.RawSnapshot, error) {
	for {
		if it.signal.Closed() {
			return odm.RawSnapshot{}, odm.ErrIteratorStopped
		}

		if it.last != nil {
			if err := it.signal.Wait(ctx); err != nil {
				return odm.RawSnapshot{}, err
			}
		}

		snap, err := it.fetch()
		if err != nil {
			return odm.RawSnapshot{}, err
		}

		if it.last != nil && sameSnapshot(*it.last, snap) {
			continue
		}

		it.last = &snap
		return snap, nil
	}
}

func (it *DocumentIterator) Stop() {
	it.once.Do(func() {
		it.signal.Close()
		it.stop()
	})
}

// QueryIterator yields the result of a query.
type QueryIterator struct {
	signal  *Signal
	fetch   func() ([]odm.RawSnapshot, error)
	stop    func()
	once    sync.Once
	last    []odm.RawSnapshot
	started bool
}

var _ odm.QueryIterator = (*QueryIterator)(nil)

func NewQueryIterator(signal *Signal, fetch func() ([]odm.RawSnapshot, error), stop func()) *QueryIterator {
	return &QueryIterator{signal: signal, fetch: fetch, stop: stop}
}

func (it *QueryIterator) Next(ctx context.Context) ([]odm.RawSnapshot, error) {
	for {
		if it.signal.Closed() {
			return nil, odm.ErrIteratorStopped
		}

		if it.started {
			if err := it.signal.Wait(ctx); err != nil {
				return nil, err
			}
		}

		result, err := it.fetch()
		if err != nil {
			return nil, err
		}

		if it.started && sameResult(it.last, result) {
			continue
		}

		it.started = true
		it.last = result
		return result, nil
	}
}

func (it *QueryIterator) Stop() {
	it.once.Do(func() {
		it.signal.Close()
		it.stop()
	})
}

func sameSnapshot(a, b odm.RawSnapshot) bool {
	if a.Path != b.Path || a.Exists != b.Exists {
		return false
	}
	return !a.Exists || odm.Equal(a.Data, b.Data)
}

func sameResult(a, b []odm.RawSnapshot) bool {
	if len(a) != len(b) {
		return false
	}
	for i := range a {
		if !sameSnapshot(a[i], b[i]) {
			return false
		}
	}
	return true
}
