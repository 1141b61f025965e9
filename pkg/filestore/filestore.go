// Package filestore is an odm.Store that keeps every document in its own
// YAML file below a data directory. The document users/42 is stored in
// <dir>/users/42.yaml. Several processes may share a directory; access is
// serialized through a lock file and subscriptions are driven by file system
// notifications, so they also observe writes made by other processes.
package filestore

import (
	"context"
	"os"
	"path/filepath"
	"strings"
	"sync"
	"time"

	"github.com/fsnotify/fsnotify"
	"github.com/goccy/go-yaml"
	"github.com/gofrs/flock"
	"github.com/pkg/errors"
	"github.com/sirupsen/logrus"

	"github.com/sanity-io/odm"
	"github.com/sanity-io/odm/internal/staging"
	"github.com/sanity-io/odm/internal/watch"
)

const (
	documentExt  = ".yaml"
	lockFileName = ".odm.lock"
)

type Store struct {
	dir  string
	lock *flock.Flock
	// mu guards lock within the process; flock only excludes other processes.
	mu sync.Mutex

	options odm.Options
	log     logrus.FieldLogger
}

var _ odm.Store = (*Store)(nil)

type Option func(s *Store)

// WithOptions sets the options used when applying updates.
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

// Open returns a store rooted at dir, creating the directory if needed.
func Open(dir string, opts ...Option) (*Store, error) {
	if err := os.MkdirAll(dir, 0750); err != nil {
		return nil, errors.Wrapf(err, "create data directory %s", dir)
	}

	s := &Store{
		dir:     dir,
		lock:    flock.New(filepath.Join(dir, lockFileName)),
		options: odm.DefaultOptions,
		log:     logrus.StandardLogger(),
	}
	for _, opt := range opts {
		opt(s)
	}
	return s, nil
}

// Close releases the lock file.
func (s *Store) Close() error {
	return s.lock.Close()
}

func (s *Store) documentFile(path string) string {
	return filepath.Join(s.dir, filepath.FromSlash(path)+documentExt)
}

func (s *Store) collectionDir(path string) string {
	return filepath.Join(s.dir, filepath.FromSlash(path))
}

func (s *Store) withLock(exclusive bool, fn func() error) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	var err error
	if exclusive {
		err = s.lock.Lock()
	} else {
		err = s.lock.RLock()
	}
	if err != nil {
		return &odm.TransportError{Op: "lock", Path: s.dir, Err: err}
	}
	defer func() {
		if err := s.lock.Unlock(); err != nil {
			s.log.WithError(err).Error("unlock failed")
		}
	}()

	return fn()
}

// readFile loads a document file. The caller holds the lock.
func (s *Store) readFile(path string) (map[string]interface{}, bool, error) {
	content, err := os.ReadFile(s.documentFile(path))
	if err != nil {
		if os.IsNotExist(err) {
			return nil, false, nil
		}
		return nil, false, &odm.TransportError{Op: "read", Path: path, Err: err}
	}

	data, err := decodeDocument(content)
	if err != nil {
		return nil, false, &odm.TransportError{Op: "decode", Path: path, Err: err}
	}
	return data, true, nil
}

// writeFile replaces a document file through a rename so readers never see
// a partial document. The caller holds the lock.
func (s *Store) writeFile(path string, data map[string]interface{}) error {
	file := s.documentFile(path)
	if data == nil {
		if err := os.Remove(file); err != nil && !os.IsNotExist(err) {
			return &odm.TransportError{Op: "delete", Path: path, Err: err}
		}
		return nil
	}

	content, err := encodeDocument(data)
	if err != nil {
		return &odm.TransportError{Op: "encode", Path: path, Err: err}
	}

	if err := os.MkdirAll(filepath.Dir(file), 0750); err != nil {
		return &odm.TransportError{Op: "write", Path: path, Err: err}
	}

	tmp := file + ".tmp"
	if err := os.WriteFile(tmp, content, 0640); err != nil {
		return &odm.TransportError{Op: "write", Path: path, Err: err}
	}
	if err := os.Rename(tmp, file); err != nil {
		return &odm.TransportError{Op: "write", Path: path, Err: err}
	}
	return nil
}

func (s *Store) write(ctx context.Context, fn func(ctx context.Context, tx odm.Tx) error) error {
	return s.withLock(true, func() error {
		area := staging.New(s.readFile, s.options)
		if err := fn(ctx, area); err != nil {
			return err
		}

		for _, w := range area.Writes() {
			if err := s.writeFile(w.Path, w.Data); err != nil {
				return err
			}
			s.log.WithFields(logrus.Fields{"path": w.Path, "deleted": w.Data == nil}).Debug("wrote document")
		}
		return nil
	})
}

func (s *Store) Fetch(_ context.Context, path string) (data map[string]interface{}, exists bool, err error) {
	if _, err := odm.SplitDocumentPath(path); err != nil {
		return nil, false, err
	}
	err = s.withLock(false, func() error {
		data, exists, err = s.readFile(path)
		return err
	})
	return data, exists, err
}

func (s *Store) snapshot(path string) (odm.RawSnapshot, error) {
	data, exists, err := s.Fetch(context.Background(), path)
	if err != nil {
		return odm.RawSnapshot{}, err
	}
	return odm.RawSnapshot{Path: path, Data: data, Exists: exists}, nil
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

// RunTransaction holds the store lock while fn runs, so fn must only use tx
// and never the store itself. The staged writes are written one file at a
// time; a crash half way leaves the files written so far.
func (s *Store) RunTransaction(ctx context.Context, fn func(ctx context.Context, tx odm.Tx) error) error {
	return s.write(ctx, fn)
}

// readCollection loads every document directly inside a collection.
func (s *Store) readCollection(collection string) ([]odm.RawSnapshot, error) {
	entries, err := os.ReadDir(s.collectionDir(collection))
	if err != nil {
		if os.IsNotExist(err) {
			return nil, nil
		}
		return nil, &odm.TransportError{Op: "list", Path: collection, Err: err}
	}

	var docs []odm.RawSnapshot
	for _, entry := range entries {
		name := entry.Name()
		if entry.IsDir() || !strings.HasSuffix(name, documentExt) {
			continue
		}
		path := odm.JoinPath(collection, strings.TrimSuffix(name, documentExt))
		data, exists, err := s.readFile(path)
		if err != nil {
			return nil, err
		}
		if exists {
			docs = append(docs, odm.RawSnapshot{Path: path, Data: data, Exists: true})
		}
	}
	return docs, nil
}

func (s *Store) RunQuery(_ context.Context, q odm.QueryDescriptor) (result []odm.RawSnapshot, err error) {
	if err := q.Validate(); err != nil {
		return nil, err
	}
	err = s.withLock(false, func() error {
		docs, err := s.readCollection(q.Collection)
		if err != nil {
			return err
		}
		result = q.Evaluate(docs)
		return nil
	})
	return result, err
}

func (s *Store) Count(ctx context.Context, q odm.QueryDescriptor) (int, error) {
	result, err := s.RunQuery(ctx, q)
	if err != nil {
		return 0, err
	}
	return len(result), nil
}

// watchDir starts forwarding file system events in dir that pass match to
// signal. The returned function stops the watcher.
func (s *Store) watchDir(dir string, signal *watch.Signal, match func(name string) bool) (func(), error) {
	if err := os.MkdirAll(dir, 0750); err != nil {
		return nil, &odm.TransportError{Op: "watch", Path: dir, Err: err}
	}

	watcher, err := fsnotify.NewWatcher()
	if err != nil {
		return nil, &odm.TransportError{Op: "watch", Path: dir, Err: err}
	}
	if err := watcher.Add(dir); err != nil {
		_ = watcher.Close()
		return nil, &odm.TransportError{Op: "watch", Path: dir, Err: err}
	}

	go func() {
		for {
			select {
			case event, ok := <-watcher.Events:
				if !ok {
					return
				}
				if match(filepath.Base(event.Name)) {
					signal.Notify()
				}
			case err, ok := <-watcher.Errors:
				if !ok {
					return
				}
				s.log.WithError(err).WithField("dir", dir).Error("watch failed")
			}
		}
	}()

	return func() {
		if err := watcher.Close(); err != nil {
			s.log.WithError(err).Warn("closing watcher")
		}
	}, nil
}

// Subscribe watches a document until the iterator is stopped or ctx is done.
func (s *Store) Subscribe(ctx context.Context, path string) (odm.SnapshotIterator, error) {
	if _, err := odm.SplitDocumentPath(path); err != nil {
		return nil, err
	}

	file := s.documentFile(path)
	name := filepath.Base(file)
	signal := watch.NewSignal()
	stop, err := s.watchDir(filepath.Dir(file), signal, func(n string) bool { return n == name })
	if err != nil {
		return nil, err
	}

	it := watch.NewDocumentIterator(signal, func() (odm.RawSnapshot, error) {
		return s.snapshot(path)
	}, stop)
	signal.StopWith(ctx, it.Stop)
	return it, nil
}

// SubscribeQuery watches a query until the iterator is stopped or ctx is done.
func (s *Store) SubscribeQuery(ctx context.Context, q odm.QueryDescriptor) (odm.QueryIterator, error) {
	if err := q.Validate(); err != nil {
		return nil, err
	}

	signal := watch.NewSignal()
	stop, err := s.watchDir(s.collectionDir(q.Collection), signal, func(n string) bool {
		return strings.HasSuffix(n, documentExt)
	})
	if err != nil {
		return nil, err
	}

	it := watch.NewQueryIterator(signal, func() ([]odm.RawSnapshot, error) {
		return s.RunQuery(context.Background(), q)
	}, stop)
	signal.StopWith(ctx, it.Stop)
	return it, nil
}

// encodeDocument writes times as RFC 3339 strings; they read back as strings.
// The JSON flavour of YAML quotes every string, so strings such as ".nan" or
// ones containing tabs keep their type and content.
func encodeDocument(data map[string]interface{}) ([]byte, error) {
	return yaml.MarshalWithOptions(encodeValue(data), yaml.JSON())
}

func encodeValue(v interface{}) interface{} {
	switch v := v.(type) {
	case time.Time:
		return v.UTC().Format(time.RFC3339Nano)
	case map[string]interface{}:
		result := make(map[string]interface{}, len(v))
		for k, child := range v {
			result[k] = encodeValue(child)
		}
		return result
	case []interface{}:
		result := make([]interface{}, len(v))
		for i, child := range v {
			result[i] = encodeValue(child)
		}
		return result
	}
	return v
}

func decodeDocument(content []byte) (map[string]interface{}, error) {
	var raw interface{}
	if err := yaml.Unmarshal(content, &raw); err != nil {
		return nil, err
	}
	if raw == nil {
		return map[string]interface{}{}, nil
	}
	data, ok := odm.Normalize(raw).(map[string]interface{})
	if !ok {
		return nil, errors.Errorf("document is a %T, not a map", raw)
	}
	return data, nil
}
