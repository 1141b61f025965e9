package odm

import (
	"sort"
)

// Updates maps a dotted field path to either a plain value (set the field)
// or a Directive. An empty Updates means no update is necessary.
type Updates map[string]interface{}

// Paths returns the field paths in lexical order.
func (updates Updates) Paths() []string {
	paths := make([]string, 0, len(updates))
	for path := range updates {
		paths = append(paths, path)
	}
	sort.Strings(paths)
	return paths
}

// GenerateUpdates computes the field mutations which turn left into right.
//
// Numeric changes become increments and arrays which only grew at the end, or
// were only truncated, become array unions and removals. With noTransform
// every change is a plain set or delete.
//
// This function uses the default options.
func GenerateUpdates(left, right map[string]interface{}, noTransform bool) (Updates, error) {
	return DefaultOptions.GenerateUpdates(left, right, noTransform)
}

// GenerateUpdates computes the field mutations which turn left into right.
func (options Options) GenerateUpdates(left, right map[string]interface{}, noTransform bool) (Updates, error) {
	left, err := options.prepare(left)
	if err != nil {
		return nil, err
	}
	right, err = options.prepare(right)
	if err != nil {
		return nil, err
	}

	node := Diff(left, right, true)

	maker := rootMaker()
	if err := synthesize(maker, node, noTransform); err != nil {
		return nil, err
	}
	return maker.updates, nil
}

func synthesize(maker *updateMaker, node *DiffNode, noTransform bool) error {
	for _, key := range node.Keys() {
		switch change := node.Changes[key].(type) {
		case ChangeAdded:
			maker.Set(key, change.Value)
		case ChangeRemoved:
			maker.Set(key, Delete)
		case ChangeModified:
			maker.Set(key, modifiedValue(change, noTransform))
		case ChangeMoved:
			// annotation only
		case ChangeNested:
			if err := synthesize(maker.Enter(key), change.Node, noTransform); err != nil {
				return err
			}
		case ChangeArrayUnion:
			maker.Set(key, OpArrayUnion{Items: change.Items})
		case ChangeArrayRemove:
			maker.Set(key, OpArrayRemove{Items: change.Items})
		default:
			return &TypeMismatchError{Path: maker.fieldPath(key), Value: change}
		}
	}
	return nil
}

func modifiedValue(change ChangeModified, noTransform bool) interface{} {
	if noTransform {
		return change.New
	}

	oldNum, oldOk := toNumber(change.Old)
	newNum, newOk := toNumber(change.New)
	if oldOk && newOk {
		return OpIncrement{Delta: subtractNumbers(newNum, oldNum).value()}
	}

	return change.New
}

// prepare applies the convert func to every value and rejects values the
// differ cannot classify.
func (options Options) prepare(doc map[string]interface{}) (map[string]interface{}, error) {
	if doc == nil {
		return map[string]interface{}{}, nil
	}
	if options.convertFunc == nil {
		if err := validate("", doc); err != nil {
			return nil, err
		}
		return doc, nil
	}

	converted, err := options.convert("", doc)
	if err != nil {
		return nil, err
	}
	m, ok := converted.(map[string]interface{})
	if !ok {
		return nil, &TypeMismatchError{Value: converted}
	}
	return m, nil
}

func (options Options) convert(path string, value interface{}) (interface{}, error) {
	value = options.convertFunc(value)

	switch KindOf(value) {
	case KindMap:
		src := value.(map[string]interface{})
		result := make(map[string]interface{}, len(src))
		for key, child := range src {
			childPath := JoinFieldPath(path, key)
			if key == "" {
				return nil, &TypeMismatchError{Path: childPath, Value: child}
			}
			converted, err := options.convert(childPath, child)
			if err != nil {
				return nil, err
			}
			result[key] = converted
		}
		return result, nil
	case KindArray:
		src := value.([]interface{})
		result := make([]interface{}, len(src))
		for idx, child := range src {
			converted, err := options.convert(JoinFieldPath(path, IndexKey(idx).String()), child)
			if err != nil {
				return nil, err
			}
			result[idx] = converted
		}
		return result, nil
	}

	if err := checkLeaf(path, value); err != nil {
		return nil, err
	}
	return value, nil
}

func validate(path string, value interface{}) error {
	switch KindOf(value) {
	case KindMap:
		for key, child := range value.(map[string]interface{}) {
			childPath := JoinFieldPath(path, key)
			if key == "" {
				return &TypeMismatchError{Path: childPath, Value: child}
			}
			if err := validate(childPath, child); err != nil {
				return err
			}
		}
		return nil
	case KindArray:
		for idx, child := range value.([]interface{}) {
			if err := validate(JoinFieldPath(path, IndexKey(idx).String()), child); err != nil {
				return err
			}
		}
		return nil
	}
	return checkLeaf(path, value)
}

// checkLeaf rejects values without a field path representation: anything
// unclassified, and NaN or infinite numbers.
func checkLeaf(path string, value interface{}) error {
	switch KindOf(value) {
	case KindInvalid:
		return &TypeMismatchError{Path: path, Value: value}
	case KindNumber:
		if n, ok := toNumber(value); !ok || !n.finite() {
			return &TypeMismatchError{Path: path, Value: value}
		}
	}
	return nil
}
