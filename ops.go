package odm

// Directives

//go-sumtype:decl Directive

// Directive is a value which stands in place of a plain value inside an
// Updates set and describes how the store should mutate the field.
type Directive interface {
	isDirective()
}

// OpDelete removes the field.
type OpDelete struct{}

// OpServerTimestamp sets the field to the time assigned by the store.
type OpServerTimestamp struct{}

// OpIncrement adds Delta (an int64 or a float64) to the stored number.
type OpIncrement struct {
	Delta interface{}
}

// OpArrayUnion appends Items to the stored array.
type OpArrayUnion struct {
	Items []interface{}
}

// OpArrayRemove removes every occurrence of each of Items from the stored array.
type OpArrayRemove struct {
	Items []interface{}
}

var (
	Delete          Directive = OpDelete{}
	ServerTimestamp Directive = OpServerTimestamp{}
)

// Increment returns a directive adding delta to a numeric field. Integral
// deltas are stored as int64, everything else as float64. It panics if delta
// is not a number.
func Increment(delta interface{}) Directive {
	n, ok := toNumber(delta)
	if !ok {
		panic("odm: Increment requires a number")
	}
	return OpIncrement{n.value()}
}

// ArrayUnion returns a directive appending items to an array field.
func ArrayUnion(items ...interface{}) Directive {
	return OpArrayUnion{items}
}

// ArrayRemove returns a directive removing every occurrence of items from an
// array field.
func ArrayRemove(items ...interface{}) Directive {
	return OpArrayRemove{items}
}

func (OpDelete) isDirective()          {}
func (OpServerTimestamp) isDirective() {}
func (OpIncrement) isDirective()       {}
func (OpArrayUnion) isDirective()      {}
func (OpArrayRemove) isDirective()     {}

// directiveName is the label used for an update entry in logs and metrics.
func directiveName(value interface{}) string {
	switch value.(type) {
	case OpDelete:
		return "delete"
	case OpServerTimestamp:
		return "server_timestamp"
	case OpIncrement:
		return "increment"
	case OpArrayUnion:
		return "array_union"
	case OpArrayRemove:
		return "array_remove"
	default:
		return "set"
	}
}

// Changes

//go-sumtype:decl Change

// Change is the comparison result for a single key of a DiffNode.
type Change interface {
	isChange()
}

// ChangeAdded means the key is only present in the new value.
type ChangeAdded struct {
	Value interface{}
}

// ChangeRemoved means the key is only present in the old value.
type ChangeRemoved struct {
	Value interface{}
}

// ChangeModified is a leaf change, or a change between incompatible kinds.
type ChangeModified struct {
	Old interface{}
	New interface{}
}

// ChangeMoved is an annotation produced by structural array comparison.
// It never turns into a directive.
type ChangeMoved struct {
	OldIndex int
	NewIndex int
}

// ChangeNested holds the changes inside a map or array present on both sides.
type ChangeNested struct {
	Node *DiffNode
}

// ChangeArrayUnion means the array grew by appending Items.
type ChangeArrayUnion struct {
	Items []interface{}
}

// ChangeArrayRemove means the array was truncated by removing Items.
type ChangeArrayRemove struct {
	Items []interface{}
}

func (ChangeAdded) isChange()       {}
func (ChangeRemoved) isChange()     {}
func (ChangeModified) isChange()    {}
func (ChangeMoved) isChange()       {}
func (ChangeNested) isChange()      {}
func (ChangeArrayUnion) isChange()  {}
func (ChangeArrayRemove) isChange() {}
