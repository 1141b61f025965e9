package odm

import (
	"context"

	"github.com/pkg/errors"
	"github.com/sirupsen/logrus"
)

// DocumentSnapshot is the typed state of a document at one point in time.
// Data is the zero value when the document does not exist.
type DocumentSnapshot[T any] struct {
	Path   string
	Exists bool
	Data   T
	Raw    map[string]interface{}
}

func (s *DocumentSnapshot[T]) ID() string {
	return BaseID(s.Path)
}

// Document addresses a single document in a store. It holds no state
// between calls; everything lives in the store.
type Document[T any] struct {
	store   Store
	path    string
	conv    Converter[T]
	options Options
}

// NewDocument returns a document handle. A nil converter means JSONConverter.
func NewDocument[T any](store Store, path string, conv Converter[T], options Options) (*Document[T], error) {
	if _, err := SplitDocumentPath(path); err != nil {
		return nil, err
	}
	if conv == nil {
		conv = JSONConverter[T]{}
	}
	return &Document[T]{store: store, path: path, conv: conv, options: options}, nil
}

func (doc *Document[T]) ID() string {
	return BaseID(doc.path)
}

func (doc *Document[T]) Path() string {
	return doc.path
}

// SubCollection returns a collection nested below a document.
func SubCollection[U, T any](parent *Document[T], name string, conv Converter[U]) (*Collection[U], error) {
	return NewCollection[U](parent.store, JoinPath(parent.path, name), conv, parent.options)
}

func (doc *Document[T]) log() logrus.FieldLogger {
	return doc.options.log().WithField("path", doc.path)
}

func (doc *Document[T]) snapshot(raw map[string]interface{}, exists bool) (*DocumentSnapshot[T], error) {
	return decodeSnapshot(doc.conv, RawSnapshot{Path: doc.path, Data: raw, Exists: exists})
}

func decodeSnapshot[T any](conv Converter[T], raw RawSnapshot) (*DocumentSnapshot[T], error) {
	snap := &DocumentSnapshot[T]{Path: raw.Path, Exists: raw.Exists, Raw: raw.Data}
	if !raw.Exists {
		return snap, nil
	}
	data, err := conv.FromMap(raw.Data)
	if err != nil {
		return nil, errors.Wrapf(err, "convert %s", raw.Path)
	}
	snap.Data = data
	return snap, nil
}

// Get reads the document. A missing document is not an error; check Exists.
func (doc *Document[T]) Get(ctx context.Context) (*DocumentSnapshot[T], error) {
	raw, exists, err := doc.store.Fetch(ctx, doc.path)
	if err != nil {
		return nil, err
	}
	return doc.snapshot(raw, exists)
}

// Set writes the whole document, creating it if needed. With merge the
// fields are deep merged into the existing document.
func (doc *Document[T]) Set(ctx context.Context, value T, merge bool) error {
	data, err := doc.conv.ToMap(value)
	if err != nil {
		return errors.Wrapf(err, "convert %s", doc.path)
	}
	return doc.store.Replace(ctx, doc.path, data, merge)
}

// Update reads the document, passes its value to fn and writes back only the
// fields that changed. Numeric changes are sent as increments and appended or
// truncated arrays as array unions and removals unless noTransform is set.
//
// Update fails with a *NotFoundError if the document does not exist. When fn
// does not change anything no write is made. The read and the write are not
// isolated from each other; use UpdateTx inside a transaction for that.
func (doc *Document[T]) Update(ctx context.Context, fn func(T) (T, error), noTransform bool) error {
	return doc.update(ctx, doc.store, fn, noTransform)
}

// UpdateTx is Update running against a transaction.
func (doc *Document[T]) UpdateTx(ctx context.Context, tx Tx, fn func(T) (T, error), noTransform bool) error {
	return doc.update(ctx, tx, fn, noTransform)
}

func (doc *Document[T]) update(ctx context.Context, tx Tx, fn func(T) (T, error), noTransform bool) error {
	metrics := doc.options.collectors()

	raw, exists, err := tx.Fetch(ctx, doc.path)
	if err != nil {
		return err
	}
	if !exists {
		return &NotFoundError{Path: doc.path}
	}

	current, err := doc.conv.FromMap(raw)
	if err != nil {
		return errors.Wrapf(err, "convert %s", doc.path)
	}

	// fn may modify current in place, so serialize it first.
	left, err := doc.conv.ToMap(current)
	if err != nil {
		return errors.Wrapf(err, "convert %s", doc.path)
	}

	next, err := fn(current)
	if err != nil {
		return err
	}

	right, err := doc.conv.ToMap(next)
	if err != nil {
		return errors.Wrapf(err, "convert %s", doc.path)
	}

	updates, err := doc.options.GenerateUpdates(left, right, noTransform)
	if err != nil {
		return err
	}

	if len(updates) == 0 {
		doc.log().Debug("no changes, skipping update")
		metrics.observe("skipped", nil)
		return nil
	}

	doc.log().WithField("updates", updates.Paths()).Debug("updating document")

	if err := tx.ApplyFieldMutations(ctx, doc.path, updates); err != nil {
		metrics.observe("failed", nil)
		return err
	}

	metrics.observe("applied", updates)
	return nil
}

// Delete removes the document.
func (doc *Document[T]) Delete(ctx context.Context) error {
	return doc.store.Delete(ctx, doc.path)
}

// Snapshots subscribes to the document. The iterator yields the current
// state first and then every change until it is stopped.
func (doc *Document[T]) Snapshots(ctx context.Context) (*DocumentIterator[T], error) {
	it, err := doc.store.Subscribe(ctx, doc.path)
	if err != nil {
		return nil, err
	}
	return &DocumentIterator[T]{doc: doc, it: it}, nil
}

type DocumentIterator[T any] struct {
	doc *Document[T]
	it  SnapshotIterator
}

func (it *DocumentIterator[T]) Next(ctx context.Context) (*DocumentSnapshot[T], error) {
	raw, err := it.it.Next(ctx)
	if err != nil {
		return nil, err
	}
	return it.doc.snapshot(raw.Data, raw.Exists)
}

func (it *DocumentIterator[T]) Stop() {
	it.it.Stop()
}
