package odm

import (
	"sort"
	"strconv"

	"github.com/sanity-io/odm/internal/valuehash"
)

// Key addresses a child of a DiffNode: either a map field or an array index.
type Key struct {
	Field   string
	Index   int
	IsIndex bool
}

func FieldKey(name string) Key {
	return Key{Field: name}
}

func IndexKey(idx int) Key {
	return Key{Index: idx, IsIndex: true}
}

// String renders the key as a field path segment.
func (k Key) String() string {
	if k.IsIndex {
		return strconv.Itoa(k.Index)
	}
	return k.Field
}

func (k Key) less(other Key) bool {
	if k.IsIndex != other.IsIndex {
		return !k.IsIndex
	}
	if k.IsIndex {
		return k.Index < other.Index
	}
	return k.Field < other.Field
}

// DiffNode is the comparison result at one position of the tree. Path is the
// list of keys leading from the root to this node.
type DiffNode struct {
	Path    []Key
	Changes map[Key]Change

	// Moves is only populated by structural array comparison.
	Moves []ChangeMoved
}

func newNode(path []Key) *DiffNode {
	return &DiffNode{
		Path:    path,
		Changes: map[Key]Change{},
	}
}

// Empty reports whether the node describes no difference.
func (n *DiffNode) Empty() bool {
	return len(n.Changes) == 0
}

// Keys returns the changed keys: fields in lexical order, then indices in
// ascending order.
func (n *DiffNode) Keys() []Key {
	keys := make([]Key, 0, len(n.Changes))
	for key := range n.Changes {
		keys = append(keys, key)
	}
	sort.Slice(keys, func(i, j int) bool {
		return keys[i].less(keys[j])
	})
	return keys
}

func (n *DiffNode) childPath(key Key) []Key {
	path := make([]Key, len(n.Path), len(n.Path)+1)
	copy(path, n.Path)
	return append(path, key)
}

// Walk calls fn for every change below n, depth first and in key order.
// Nested changes are not reported themselves; their children are. Move
// annotations are reported after the positional changes of their array.
func (n *DiffNode) Walk(fn func(path []Key, change Change) error) error {
	for _, key := range n.Keys() {
		change := n.Changes[key]
		if nested, ok := change.(ChangeNested); ok {
			if err := nested.Node.Walk(fn); err != nil {
				return err
			}
			continue
		}
		if err := fn(n.childPath(key), change); err != nil {
			return err
		}
	}

	for _, move := range n.Moves {
		if err := fn(n.childPath(IndexKey(move.NewIndex)), move); err != nil {
			return err
		}
	}

	return nil
}

type differ struct {
	treatArrayAsValue bool
}

// Diff compares two maps. With treatArrayAsValue every array is compared as
// a unit and only appends and truncations are recognized; otherwise arrays
// are compared index by index with best-effort move detection.
//
// Diff never modifies its inputs. The returned changes share values with them.
func Diff(left, right map[string]interface{}, treatArrayAsValue bool) *DiffNode {
	d := differ{treatArrayAsValue: treatArrayAsValue}
	return d.diffMap(nil, left, right)
}

func (d *differ) diffMap(path []Key, left, right map[string]interface{}) *DiffNode {
	node := newNode(path)

	for key, value := range left {
		if _, ok := right[key]; !ok {
			node.Changes[FieldKey(key)] = ChangeRemoved{value}
		}
	}

	for key, value := range right {
		leftValue, ok := left[key]
		if !ok {
			node.Changes[FieldKey(key)] = ChangeAdded{value}
			continue
		}
		d.compare(node, FieldKey(key), leftValue, value)
	}

	return node
}

func (d *differ) compare(node *DiffNode, key Key, left, right interface{}) {
	leftKind, rightKind := KindOf(left), KindOf(right)

	if leftKind == KindMap && rightKind == KindMap {
		child := d.diffMap(node.childPath(key), left.(map[string]interface{}), right.(map[string]interface{}))
		if !child.Empty() {
			node.Changes[key] = ChangeNested{child}
		}
		return
	}

	if leftKind == KindArray && rightKind == KindArray {
		leftArr, rightArr := left.([]interface{}), right.([]interface{})
		if d.treatArrayAsValue {
			if change := compareArrayValue(leftArr, rightArr); change != nil {
				node.Changes[key] = change
			}
			return
		}
		child := d.diffArray(node.childPath(key), leftArr, rightArr)
		if !child.Empty() {
			node.Changes[key] = ChangeNested{child}
		}
		return
	}

	if !Equal(left, right) {
		node.Changes[key] = ChangeModified{Old: left, New: right}
	}
}

// compareArrayValue recognizes pure appends and pure truncations. Every other
// difference replaces the whole array.
func compareArrayValue(left, right []interface{}) Change {
	if equalSlices(left, right) {
		return nil
	}

	if len(right) > len(left) && len(left) > 0 && equalSlices(left, right[:len(left)]) {
		return ChangeArrayUnion{Items: cloneItems(right[len(left):])}
	}

	if len(left) > len(right) && len(right) > 0 && equalSlices(left[:len(right)], right) {
		return ChangeArrayRemove{Items: cloneItems(left[len(right):])}
	}

	return ChangeModified{Old: left, New: right}
}

func cloneItems(items []interface{}) []interface{} {
	result := make([]interface{}, len(items))
	copy(result, items)
	return result
}

func (d *differ) diffArray(path []Key, left, right []interface{}) *DiffNode {
	node := newNode(path)

	overlap := len(left)
	if len(right) < overlap {
		overlap = len(right)
	}

	for idx := 0; idx < overlap; idx++ {
		d.compare(node, IndexKey(idx), left[idx], right[idx])
	}

	for idx := overlap; idx < len(right); idx++ {
		node.Changes[IndexKey(idx)] = ChangeAdded{right[idx]}
	}

	for idx := overlap; idx < len(left); idx++ {
		node.Changes[IndexKey(idx)] = ChangeRemoved{left[idx]}
	}

	if !node.Empty() {
		node.Moves = detectMoves(left, right)
	}

	return node
}

// detectMoves pairs every element that changed position with the first old
// element equal to it. Each old position is used at most once, and elements
// which kept their position are never considered as a source.
func detectMoves(left, right []interface{}) []ChangeMoved {
	index := valuehash.NewIndex(left)
	claimed := map[int]bool{}

	var moves []ChangeMoved

	for newIdx, value := range right {
		if newIdx < len(left) && Equal(left[newIdx], value) {
			continue
		}

		for _, oldIdx := range index.Candidates(value) {
			if oldIdx == newIdx || claimed[oldIdx] {
				continue
			}
			if oldIdx < len(right) && Equal(left[oldIdx], right[oldIdx]) {
				continue
			}
			if !Equal(left[oldIdx], value) {
				continue
			}

			claimed[oldIdx] = true
			moves = append(moves, ChangeMoved{OldIndex: oldIdx, NewIndex: newIdx})
			break
		}
	}

	return moves
}
