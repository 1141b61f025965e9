package odm

import (
	"strconv"
)

type patcher struct {
	path    string
	value   interface{}
	options *Options
}

// ApplyUpdates applies an update set to a document and returns the result.
// The input document is not modified.
//
// This function uses the default options.
func ApplyUpdates(doc map[string]interface{}, updates Updates) (map[string]interface{}, error) {
	return DefaultOptions.ApplyUpdates(doc, updates)
}

// ApplyUpdates applies an update set to a document and returns the result.
// Paths are applied in lexical order. Numeric segments address array elements
// when the container at that point is an array.
func (options Options) ApplyUpdates(doc map[string]interface{}, updates Updates) (map[string]interface{}, error) {
	result := copyMap(doc)
	if result == nil {
		result = map[string]interface{}{}
	}

	for _, path := range updates.Paths() {
		segments, err := SplitFieldPath(path)
		if err != nil {
			return nil, err
		}

		p := patcher{
			path:    path,
			value:   updates[path],
			options: &options,
		}

		if _, err := p.applyTo(result, true, segments); err != nil {
			return nil, err
		}
	}

	return result, nil
}

func (p *patcher) isDelete() bool {
	_, ok := p.value.(OpDelete)
	return ok
}

// applyTo applies the update to the value found at the remaining segments
// below current and returns the replacement for current.
func (p *patcher) applyTo(current interface{}, exists bool, segments []string) (interface{}, error) {
	if len(segments) == 0 {
		return p.resolve(current, exists)
	}

	segment, rest := segments[0], segments[1:]

	if !exists || current == nil {
		if p.isDelete() {
			return current, nil
		}
		current = map[string]interface{}{}
	}

	switch KindOf(current) {
	case KindMap:
		obj := current.(map[string]interface{})
		child, ok := obj[segment]

		if len(rest) == 0 && p.isDelete() {
			delete(obj, segment)
			return obj, nil
		}

		if !ok && len(rest) > 0 && p.isDelete() {
			return obj, nil
		}

		next, err := p.applyTo(child, ok, rest)
		if err != nil {
			return nil, err
		}
		obj[segment] = next
		return obj, nil
	case KindArray:
		arr := current.([]interface{})
		idx, err := strconv.Atoi(segment)
		if err != nil || idx < 0 || idx >= len(arr) {
			if p.isDelete() {
				return arr, nil
			}
			return nil, &TypeMismatchError{Path: p.path, Value: arr}
		}

		if len(rest) == 0 && p.isDelete() {
			result := make([]interface{}, 0, len(arr)-1)
			result = append(result, arr[:idx]...)
			return append(result, arr[idx+1:]...), nil
		}

		next, err := p.applyTo(arr[idx], true, rest)
		if err != nil {
			return nil, err
		}
		arr[idx] = next
		return arr, nil
	}

	return nil, &TypeMismatchError{Path: p.path, Value: current}
}

// resolve computes the new value of the addressed field.
func (p *patcher) resolve(current interface{}, exists bool) (interface{}, error) {
	switch op := p.value.(type) {
	case OpDelete:
		return nil, nil
	case OpServerTimestamp:
		return p.options.now(), nil
	case OpIncrement:
		delta, ok := toNumber(op.Delta)
		if !ok || !delta.finite() {
			return nil, &TypeMismatchError{Path: p.path, Value: op.Delta}
		}
		if n, ok := toNumber(current); ok && exists {
			return addNumbers(n, delta).value(), nil
		}
		return delta.value(), nil
	case OpArrayUnion:
		arr, _ := current.([]interface{})
		result := make([]interface{}, 0, len(arr)+len(op.Items))
		result = append(result, arr...)
		for _, item := range op.Items {
			result = append(result, Copy(item))
		}
		return result, nil
	case OpArrayRemove:
		arr, _ := current.([]interface{})
		result := make([]interface{}, 0, len(arr))
		for _, elem := range arr {
			if !containsValue(op.Items, elem) {
				result = append(result, elem)
			}
		}
		return result, nil
	}

	return Copy(p.value), nil
}

func containsValue(values []interface{}, value interface{}) bool {
	for _, v := range values {
		if Equal(v, value) {
			return true
		}
	}
	return false
}
