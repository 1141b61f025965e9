package odm

import (
	"context"
	"fmt"

	"github.com/pkg/errors"
)

type Operator string

const (
	Eq               Operator = "=="
	NotEq            Operator = "!="
	Lt               Operator = "<"
	LtEq             Operator = "<="
	Gt               Operator = ">"
	GtEq             Operator = ">="
	ArrayContains    Operator = "array-contains"
	ArrayContainsAny Operator = "array-contains-any"
	In               Operator = "in"
	NotIn            Operator = "not-in"
)

func (op Operator) valid() bool {
	switch op {
	case Eq, NotEq, Lt, LtEq, Gt, GtEq, ArrayContains, ArrayContainsAny, In, NotIn:
		return true
	}
	return false
}

// takesList reports whether the operator compares against a list of values.
func (op Operator) takesList() bool {
	return op == ArrayContainsAny || op == In || op == NotIn
}

type Direction int

const (
	Asc Direction = iota
	Desc
)

func (d Direction) String() string {
	if d == Desc {
		return "desc"
	}
	return "asc"
}

// DocumentID can be used as a field name to filter or order by document id.
const DocumentID = "__name__"

type WhereClause struct {
	Field string
	Op    Operator
	Value interface{}
}

type OrderSpec struct {
	Field     string
	Direction Direction
}

// Cursor positions a query relative to a document snapshot.
type Cursor struct {
	Path      string
	Data      map[string]interface{}
	Inclusive bool
}

// QueryDescriptor is the backend independent description of a query that
// is handed to the store.
type QueryDescriptor struct {
	Collection  string
	Wheres      []WhereClause
	Orders      []OrderSpec
	Limit       int
	LimitToLast bool
	Start       *Cursor
	End         *Cursor
}

func (q QueryDescriptor) clone() QueryDescriptor {
	q.Wheres = append([]WhereClause(nil), q.Wheres...)
	q.Orders = append([]OrderSpec(nil), q.Orders...)
	return q
}

// Validate checks the descriptor before it is sent to a store.
func (q QueryDescriptor) Validate() error {
	if _, err := SplitCollectionPath(q.Collection); err != nil {
		return err
	}

	for _, w := range q.Wheres {
		if w.Field == "" {
			return errors.New("where clause without field")
		}
		if !w.Op.valid() {
			return fmt.Errorf("unknown operator %q", w.Op)
		}
		kind := KindOf(w.Value)
		if w.Op.takesList() && kind != KindArray {
			return fmt.Errorf("operator %q requires a list, got %T", w.Op, w.Value)
		}
		if kind == KindInvalid || kind == KindDirective {
			return &TypeMismatchError{Path: w.Field, Value: w.Value}
		}
	}

	for _, o := range q.Orders {
		if o.Field == "" {
			return errors.New("order by without field")
		}
		if o.Direction != Asc && o.Direction != Desc {
			return fmt.Errorf("unknown direction %d", o.Direction)
		}
	}

	if q.Limit < 0 {
		return fmt.Errorf("negative limit %d", q.Limit)
	}

	if q.LimitToLast && len(q.Orders) == 0 {
		return errors.New("limit to last requires an order by")
	}

	return nil
}

// Query is an immutable query over a collection. Every builder method
// returns a new query and leaves the receiver untouched.
type Query[T any] struct {
	coll *Collection[T]
	desc QueryDescriptor
}

func (q *Query[T]) with(fn func(desc *QueryDescriptor)) *Query[T] {
	desc := q.desc.clone()
	fn(&desc)
	return &Query[T]{coll: q.coll, desc: desc}
}

func (q *Query[T]) Where(field string, op Operator, value interface{}) *Query[T] {
	return q.with(func(desc *QueryDescriptor) {
		desc.Wheres = append(desc.Wheres, WhereClause{Field: field, Op: op, Value: value})
	})
}

func (q *Query[T]) OrderBy(field string, dir Direction) *Query[T] {
	return q.with(func(desc *QueryDescriptor) {
		desc.Orders = append(desc.Orders, OrderSpec{Field: field, Direction: dir})
	})
}

// Limit returns at most n documents from the start of the result.
func (q *Query[T]) Limit(n int) *Query[T] {
	return q.with(func(desc *QueryDescriptor) {
		desc.Limit = n
		desc.LimitToLast = false
	})
}

// LimitToLast returns at most n documents from the end of the result.
func (q *Query[T]) LimitToLast(n int) *Query[T] {
	return q.with(func(desc *QueryDescriptor) {
		desc.Limit = n
		desc.LimitToLast = true
	})
}

func (q *Query[T]) StartAt(snap *DocumentSnapshot[T]) *Query[T] {
	return q.with(func(desc *QueryDescriptor) {
		desc.Start = snapshotCursor(snap, true)
	})
}

func (q *Query[T]) StartAfter(snap *DocumentSnapshot[T]) *Query[T] {
	return q.with(func(desc *QueryDescriptor) {
		desc.Start = snapshotCursor(snap, false)
	})
}

func (q *Query[T]) EndAt(snap *DocumentSnapshot[T]) *Query[T] {
	return q.with(func(desc *QueryDescriptor) {
		desc.End = snapshotCursor(snap, true)
	})
}

func (q *Query[T]) EndBefore(snap *DocumentSnapshot[T]) *Query[T] {
	return q.with(func(desc *QueryDescriptor) {
		desc.End = snapshotCursor(snap, false)
	})
}

func snapshotCursor[T any](snap *DocumentSnapshot[T], inclusive bool) *Cursor {
	return &Cursor{Path: snap.Path, Data: snap.Raw, Inclusive: inclusive}
}

// Descriptor returns a copy of the accumulated query state.
func (q *Query[T]) Descriptor() QueryDescriptor {
	return q.desc.clone()
}

func (q *Query[T]) decode(raws []RawSnapshot) ([]*DocumentSnapshot[T], error) {
	result := make([]*DocumentSnapshot[T], 0, len(raws))
	for _, raw := range raws {
		snap, err := decodeSnapshot(q.coll.conv, raw)
		if err != nil {
			return nil, err
		}
		result = append(result, snap)
	}
	return result, nil
}

// Get runs the query once.
func (q *Query[T]) Get(ctx context.Context) ([]*DocumentSnapshot[T], error) {
	if err := q.desc.Validate(); err != nil {
		return nil, err
	}
	raws, err := q.coll.store.RunQuery(ctx, q.Descriptor())
	if err != nil {
		return nil, err
	}
	return q.decode(raws)
}

// Count returns the number of matching documents.
func (q *Query[T]) Count(ctx context.Context) (int, error) {
	if err := q.desc.Validate(); err != nil {
		return 0, err
	}
	return q.coll.store.Count(ctx, q.Descriptor())
}

// Snapshots subscribes to the query result.
func (q *Query[T]) Snapshots(ctx context.Context) (*QuerySnapshotIterator[T], error) {
	if err := q.desc.Validate(); err != nil {
		return nil, err
	}
	it, err := q.coll.store.SubscribeQuery(ctx, q.Descriptor())
	if err != nil {
		return nil, err
	}
	return &QuerySnapshotIterator[T]{query: q, it: it}, nil
}

type QuerySnapshotIterator[T any] struct {
	query *Query[T]
	it    QueryIterator
}

func (it *QuerySnapshotIterator[T]) Next(ctx context.Context) ([]*DocumentSnapshot[T], error) {
	raws, err := it.it.Next(ctx)
	if err != nil {
		return nil, err
	}
	return it.query.decode(raws)
}

func (it *QuerySnapshotIterator[T]) Stop() {
	it.it.Stop()
}
