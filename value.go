package odm

import (
	"encoding/json"
	"fmt"
	"math"
	"reflect"
	"sort"
	"time"
)

// Kind is the closed set of value shapes understood by the differ.
type Kind uint8

const (
	KindInvalid Kind = iota
	KindNull
	KindBool
	KindNumber
	KindTime
	KindString
	KindArray
	KindMap
	KindDirective
)

var kindNames = [...]string{
	KindInvalid:   "invalid",
	KindNull:      "null",
	KindBool:      "bool",
	KindNumber:    "number",
	KindTime:      "time",
	KindString:    "string",
	KindArray:     "array",
	KindMap:       "map",
	KindDirective: "directive",
}

func (k Kind) String() string {
	if int(k) < len(kindNames) {
		return kindNames[k]
	}
	return "invalid"
}

// KindOf classifies a value. Values are expected to look like the output of
// encoding/json (plus time.Time and directives); anything else is KindInvalid.
func KindOf(v interface{}) Kind {
	switch v.(type) {
	case nil:
		return KindNull
	case bool:
		return KindBool
	case float64, float32, int, int8, int16, int32, int64, uint, uint8, uint16, uint32, uint64, json.Number:
		return KindNumber
	case time.Time:
		return KindTime
	case string:
		return KindString
	case []interface{}:
		return KindArray
	case map[string]interface{}:
		return KindMap
	case Directive:
		return KindDirective
	}
	return KindInvalid
}

type number struct {
	i     int64
	f     float64
	isInt bool
}

func (n number) float() float64 {
	if n.isInt {
		return float64(n.i)
	}
	return n.f
}

func (n number) value() interface{} {
	if n.isInt {
		return n.i
	}
	return n.f
}

func (n number) finite() bool {
	return n.isInt || !(math.IsNaN(n.f) || math.IsInf(n.f, 0))
}

func toNumber(v interface{}) (number, bool) {
	switch v := v.(type) {
	case int:
		return number{i: int64(v), isInt: true}, true
	case int8:
		return number{i: int64(v), isInt: true}, true
	case int16:
		return number{i: int64(v), isInt: true}, true
	case int32:
		return number{i: int64(v), isInt: true}, true
	case int64:
		return number{i: v, isInt: true}, true
	case uint:
		return unsignedNumber(uint64(v)), true
	case uint8:
		return number{i: int64(v), isInt: true}, true
	case uint16:
		return number{i: int64(v), isInt: true}, true
	case uint32:
		return number{i: int64(v), isInt: true}, true
	case uint64:
		return unsignedNumber(v), true
	case float32:
		return number{f: float64(v)}, true
	case float64:
		return number{f: v}, true
	case json.Number:
		if i, err := v.Int64(); err == nil {
			return number{i: i, isInt: true}, true
		}
		if f, err := v.Float64(); err == nil {
			return number{f: f}, true
		}
	}
	return number{}, false
}

func unsignedNumber(u uint64) number {
	if u > math.MaxInt64 {
		return number{f: float64(u)}
	}
	return number{i: int64(u), isInt: true}
}

func compareNumbers(a, b number) int {
	if a.isInt && b.isInt {
		switch {
		case a.i < b.i:
			return -1
		case a.i > b.i:
			return 1
		}
		return 0
	}
	// NaN sorts before every other number and equals itself.
	af, bf := a.float(), b.float()
	switch aNaN, bNaN := math.IsNaN(af), math.IsNaN(bf); {
	case aNaN && bNaN:
		return 0
	case aNaN:
		return -1
	case bNaN:
		return 1
	case af < bf:
		return -1
	case af > bf:
		return 1
	}
	return 0
}

// subtractNumbers returns a-b, staying integral when it can.
func subtractNumbers(a, b number) number {
	if a.isInt && b.isInt {
		d := a.i - b.i
		if (d < a.i) == (b.i > 0) {
			return number{i: d, isInt: true}
		}
	}
	return number{f: a.float() - b.float()}
}

func addNumbers(a, b number) number {
	if a.isInt && b.isInt {
		s := a.i + b.i
		if (s > a.i) == (b.i > 0) {
			return number{i: s, isInt: true}
		}
	}
	return number{f: a.float() + b.float()}
}

// Equal reports whether two values are structurally equal. Numbers are
// compared by value regardless of their Go type.
func Equal(a, b interface{}) bool {
	ka := KindOf(a)
	if ka != KindOf(b) {
		return false
	}

	switch ka {
	case KindNull:
		return true
	case KindBool:
		return a.(bool) == b.(bool)
	case KindNumber:
		na, _ := toNumber(a)
		nb, _ := toNumber(b)
		return compareNumbers(na, nb) == 0
	case KindTime:
		return a.(time.Time).Equal(b.(time.Time))
	case KindString:
		return a.(string) == b.(string)
	case KindArray:
		return equalSlices(a.([]interface{}), b.([]interface{}))
	case KindMap:
		return equalMaps(a.(map[string]interface{}), b.(map[string]interface{}))
	case KindDirective:
		return equalDirectives(a.(Directive), b.(Directive))
	}

	return reflect.DeepEqual(a, b)
}

func equalSlices(a, b []interface{}) bool {
	if len(a) != len(b) {
		return false
	}
	for i := range a {
		if !Equal(a[i], b[i]) {
			return false
		}
	}
	return true
}

func equalMaps(a, b map[string]interface{}) bool {
	if len(a) != len(b) {
		return false
	}
	for key, av := range a {
		bv, ok := b[key]
		if !ok || !Equal(av, bv) {
			return false
		}
	}
	return true
}

func equalDirectives(a, b Directive) bool {
	switch a := a.(type) {
	case OpDelete, OpServerTimestamp:
		return reflect.TypeOf(a) == reflect.TypeOf(b)
	case OpIncrement:
		b, ok := b.(OpIncrement)
		return ok && Equal(a.Delta, b.Delta)
	case OpArrayUnion:
		b, ok := b.(OpArrayUnion)
		return ok && equalSlices(a.Items, b.Items)
	case OpArrayRemove:
		b, ok := b.(OpArrayRemove)
		return ok && equalSlices(a.Items, b.Items)
	}
	return false
}

// Copy returns a deep copy of maps and arrays. Other values are returned as is.
func Copy(v interface{}) interface{} {
	switch v := v.(type) {
	case map[string]interface{}:
		return copyMap(v)
	case []interface{}:
		return copySlice(v)
	}
	return v
}

func copyMap(m map[string]interface{}) map[string]interface{} {
	if m == nil {
		return nil
	}
	result := make(map[string]interface{}, len(m))
	for k, v := range m {
		result[k] = Copy(v)
	}
	return result
}

func copySlice(s []interface{}) []interface{} {
	if s == nil {
		return nil
	}
	result := make([]interface{}, len(s))
	for i, v := range s {
		result[i] = Copy(v)
	}
	return result
}

// Merge creates a new map that contains all keys from both a and b. The
// value of b takes precedence for identical keys unless both values are maps
// in which case Merge is called recursively.
func Merge(a, b map[string]interface{}) map[string]interface{} {
	result := copyMap(a)
	if result == nil {
		result = make(map[string]interface{}, len(b))
	}
	for k, bv := range b {
		if bm, ok := bv.(map[string]interface{}); ok {
			if am, ok := result[k].(map[string]interface{}); ok {
				result[k] = Merge(am, bm)
				continue
			}
		}
		result[k] = Copy(bv)
	}
	return result
}

func sortedKeys(m map[string]interface{}) []string {
	keys := make([]string, 0, len(m))
	for k := range m {
		keys = append(keys, k)
	}
	sort.Strings(keys)
	return keys
}

// Normalize converts decoder output into the value model: json.Number and
// the sized integer types become int64 (or float64 when they do not fit),
// float32 becomes float64, and maps with non-string keys get string keys.
// Maps and arrays are updated in place.
func Normalize(v interface{}) interface{} {
	switch v := v.(type) {
	case json.Number:
		if n, ok := toNumber(v); ok {
			return n.value()
		}
		return v.String()
	case int, int8, int16, int32, uint, uint8, uint16, uint32, uint64:
		n, _ := toNumber(v)
		return n.value()
	case float32:
		return float64(v)
	case map[string]interface{}:
		for k, child := range v {
			v[k] = Normalize(child)
		}
		return v
	case map[interface{}]interface{}:
		result := make(map[string]interface{}, len(v))
		for k, child := range v {
			result[fmt.Sprint(k)] = Normalize(child)
		}
		return result
	case []interface{}:
		for i, child := range v {
			v[i] = Normalize(child)
		}
		return v
	}
	return v
}
