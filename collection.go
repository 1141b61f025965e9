package odm

import (
	"context"

	"github.com/google/uuid"
)

// Collection is a typed handle to a collection of documents.
type Collection[T any] struct {
	store   Store
	path    string
	conv    Converter[T]
	options Options
}

// NewCollection returns a collection handle. A nil converter means JSONConverter.
func NewCollection[T any](store Store, path string, conv Converter[T], options Options) (*Collection[T], error) {
	if _, err := SplitCollectionPath(path); err != nil {
		return nil, err
	}
	if conv == nil {
		conv = JSONConverter[T]{}
	}
	return &Collection[T]{store: store, path: path, conv: conv, options: options}, nil
}

func (c *Collection[T]) Path() string {
	return c.path
}

func (c *Collection[T]) ID() string {
	return BaseID(c.path)
}

// Doc returns the document with the given id.
func (c *Collection[T]) Doc(id string) (*Document[T], error) {
	return NewDocument[T](c.store, JoinPath(c.path, id), c.conv, c.options)
}

// NewDoc returns a document with a new, time ordered, unique id.
func (c *Collection[T]) NewDoc() *Document[T] {
	return &Document[T]{
		store:   c.store,
		path:    JoinPath(c.path, uuid.Must(uuid.NewV7()).String()),
		conv:    c.conv,
		options: c.options,
	}
}

// Add stores value in a new document.
func (c *Collection[T]) Add(ctx context.Context, value T) (*Document[T], error) {
	doc := c.NewDoc()
	if err := doc.Set(ctx, value, false); err != nil {
		return nil, err
	}
	return doc, nil
}

// Query returns a query matching every document of the collection.
func (c *Collection[T]) Query() *Query[T] {
	return &Query[T]{
		coll: c,
		desc: QueryDescriptor{Collection: c.path},
	}
}

func (c *Collection[T]) Where(field string, op Operator, value interface{}) *Query[T] {
	return c.Query().Where(field, op, value)
}

func (c *Collection[T]) OrderBy(field string, dir Direction) *Query[T] {
	return c.Query().OrderBy(field, dir)
}

func (c *Collection[T]) Limit(n int) *Query[T] {
	return c.Query().Limit(n)
}

func (c *Collection[T]) LimitToLast(n int) *Query[T] {
	return c.Query().LimitToLast(n)
}
