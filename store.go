package odm

import (
	"context"
)

// RawSnapshot is the state of a document as reported by a store.
type RawSnapshot struct {
	Path   string
	Data   map[string]interface{}
	Exists bool
}

// ID returns the last segment of the document path.
func (s RawSnapshot) ID() string {
	return BaseID(s.Path)
}

// Tx is the set of document operations available both directly on a Store
// and inside a transaction.
type Tx interface {
	// Fetch returns the current data of a document and whether it exists.
	Fetch(ctx context.Context, path string) (map[string]interface{}, bool, error)

	// ApplyFieldMutations applies an update set to an existing document. It
	// fails with a *NotFoundError if the document does not exist.
	ApplyFieldMutations(ctx context.Context, path string, updates Updates) error

	// Replace writes a whole document. With merge the data is deep merged
	// into the existing document instead.
	Replace(ctx context.Context, path string, data map[string]interface{}, merge bool) error

	// Delete removes a document. Deleting a missing document is not an error.
	Delete(ctx context.Context, path string) error
}

// Store is the document store client used by documents and queries.
type Store interface {
	Tx

	// Subscribe returns an iterator which first yields the current state of
	// the document and then a new snapshot every time it changes. Every call
	// starts a new, independent subscription.
	Subscribe(ctx context.Context, path string) (SnapshotIterator, error)

	RunQuery(ctx context.Context, q QueryDescriptor) ([]RawSnapshot, error)

	// SubscribeQuery is like Subscribe for the result of a query.
	SubscribeQuery(ctx context.Context, q QueryDescriptor) (QueryIterator, error)

	Count(ctx context.Context, q QueryDescriptor) (int, error)

	// RunTransaction calls fn with a Tx whose writes are applied atomically
	// when fn returns nil and discarded otherwise.
	RunTransaction(ctx context.Context, fn func(ctx context.Context, tx Tx) error) error
}

type SnapshotIterator interface {
	// Next blocks until the next snapshot is available.
	Next(ctx context.Context) (RawSnapshot, error)
	Stop()
}

type QueryIterator interface {
	Next(ctx context.Context) ([]RawSnapshot, error)
	Stop()
}
