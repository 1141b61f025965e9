// Package memstore is an in-memory odm.Store. It supports everything the
// facade needs, including subscriptions and transactions, and is meant for
// tests and single process use.
package memstore

import (
	"context"
	"sync"
	"sync/atomic"

	"github.com/puzpuzpuz/xsync/v3"
	"github.com/sirupsen/logrus"

	"github.com/sanity-io/odm"
	"github.com/sanity-io/odm/internal/staging"
	"github.com/sanity-io/odm/internal/watch"
)

type watcher struct {
	signal *watch.Signal
	match  func(path string) bool
}

type Store struct {
	// Stored documents are never mutated, only replaced.
	docs     *xsync.MapOf[string, map[string]interface{}]
	watchers *xsync.MapOf[uint64, *watcher]
	nextID   atomic.Uint64

	// writeLock serializes writes and transactions.
	writeLock sync.Mutex

	options odm.Options
	log     logrus.FieldLogger
}

var _ odm.Store = (*Store)(nil)

type Option func(s *Store)

// WithOptions sets the options used when applying updates, such as the clock
// for server timestamps.
func WithOptions(options odm.Options) Option {
	return func(s *Store) {
		s.options = options
	}
}

func WithLogger(log logrus.FieldLogger) Option {
	return func(s *Store) {
		s.log = log
	}
}

func New(opts ...Option) *Store {
	s := &Store{
		docs:     xsync.NewMapOf[string, map[string]interface{}](),
		watchers: xsync.NewMapOf[uint64, *watcher](),
		options:  odm.DefaultOptions,
		log:      logrus.StandardLogger(),
	}
	for _, opt := range opts {
		opt(s)
	}
	return s
}

func (s *Store) load(path string) (map[string]interface{}, bool, error) {
	data, ok := s.docs.Load(path)
	return data, ok, nil
}

func (s *Store) snapshot(path string) odm.RawSnapshot {
	data, ok := s.docs.Load(path)
	if !ok {
		return odm.RawSnapshot{Path: path}
	}
	return odm.RawSnapshot{Path: path, Data: odm.Copy(data).(map[string]interface{}), Exists: true}
}

// write runs fn against a staging area and commits what it staged.
func (s *Store) write(ctx context.Context, fn func(ctx context.Context, tx odm.Tx) error) error {
	s.writeLock.Lock()
	defer s.writeLock.Unlock()

	area := staging.New(s.load, s.options)
	if err := fn(ctx, area); err != nil {
		return err
	}

	writes := area.Writes()
	paths := make([]string, 0, len(writes))
	for _, w := range writes {
		if w.Data == nil {
			s.docs.Delete(w.Path)
		} else {
			s.docs.Store(w.Path, w.Data)
		}
		paths = append(paths, w.Path)
	}

	s.log.WithField("paths", paths).Debug("committed")
	s.notify(paths)
	return nil
}

func (s *Store) notify(paths []string) {
	s.watchers.Range(func(_ uint64, w *watcher) bool {
		for _, path := range paths {
			if w.match(path) {
				w.signal.Notify()
				break
			}
		}
		return true
	})
}

func (s *Store) Fetch(ctx context.Context, path string) (map[string]interface{}, bool, error) {
	return staging.New(s.load, s.options).Fetch(ctx, path)
}

func (s *Store) ApplyFieldMutations(ctx context.Context, path string, updates odm.Updates) error {
	return s.write(ctx, func(ctx context.Context, tx odm.Tx) error {
		return tx.ApplyFieldMutations(ctx, path, updates)
	})
}

func (s *Store) Replace(ctx context.Context, path string, data map[string]interface{}, merge bool) error {
	return s.write(ctx, func(ctx context.Context, tx odm.Tx) error {
		return tx.Replace(ctx, path, data, merge)
	})
}

func (s *Store) Delete(ctx context.Context, path string) error {
	return s.write(ctx, func(ctx context.Context, tx odm.Tx) error {
		return tx.Delete(ctx, path)
	})
}

// RunTransaction holds the store's write lock while fn runs, so fn must only
// use tx and never the store itself.
func (s *Store) RunTransaction(ctx context.Context, fn func(ctx context.Context, tx odm.Tx) error) error {
	return s.write(ctx, fn)
}

func (s *Store) RunQuery(_ context.Context, q odm.QueryDescriptor) ([]odm.RawSnapshot, error) {
	if err := q.Validate(); err != nil {
		return nil, err
	}
	return s.evaluate(q), nil
}

func (s *Store) evaluate(q odm.QueryDescriptor) []odm.RawSnapshot {
	var docs []odm.RawSnapshot
	s.docs.Range(func(path string, data map[string]interface{}) bool {
		if odm.ParentCollection(path) == q.Collection {
			docs = append(docs, odm.RawSnapshot{Path: path, Data: data, Exists: true})
		}
		return true
	})

	result := q.Evaluate(docs)
	for i := range result {
		result[i].Data = odm.Copy(result[i].Data).(map[string]interface{})
	}
	return result
}

func (s *Store) Count(ctx context.Context, q odm.QueryDescriptor) (int, error) {
	result, err := s.RunQuery(ctx, q)
	if err != nil {
		return 0, err
	}
	return len(result), nil
}

func (s *Store) addWatcher(match func(path string) bool) (*watch.Signal, func()) {
	id := s.nextID.Add(1)
	signal := watch.NewSignal()
	s.watchers.Store(id, &watcher{signal: signal, match: match})
	return signal, func() { s.watchers.Delete(id) }
}

// Subscribe watches a document until the iterator is stopped or ctx is done.
func (s *Store) Subscribe(ctx context.Context, path string) (odm.SnapshotIterator, error) {
	if _, err := odm.SplitDocumentPath(path); err != nil {
		return nil, err
	}

	signal, remove := s.addWatcher(func(p string) bool { return p == path })
	it := watch.NewDocumentIterator(signal, func() (odm.RawSnapshot, error) {
		return s.snapshot(path), nil
	}, remove)
	signal.StopWith(ctx, it.Stop)
	return it, nil
}

// SubscribeQuery watches a query until the iterator is stopped or ctx is done.
func (s *Store) SubscribeQuery(ctx context.Context, q odm.QueryDescriptor) (odm.QueryIterator, error) {
	if err := q.Validate(); err != nil {
		return nil, err
	}

	signal, remove := s.addWatcher(func(p string) bool {
		return odm.ParentCollection(p) == q.Collection
	})
	it := watch.NewQueryIterator(signal, func() ([]odm.RawSnapshot, error) {
		return s.evaluate(q), nil
	}, remove)
	signal.StopWith(ctx, it.Stop)
	return it, nil
}
