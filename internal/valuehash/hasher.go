// Package valuehash computes structural hashes of JSON-like values so that
// equal sub trees can be found without pairwise comparison.
package valuehash

import (
	"crypto/sha256"
	"encoding/binary"
	"encoding/json"
	"hash"
	"math"
	"reflect"
	"sort"
	"time"
)

type Hash [sha256.Size]byte

type Hasher struct {
	hasher hash.Hash
}

const (
	typeString byte = iota
	typeFloat
	typeMap
	typeSlice
	typeTrue
	typeFalse
	typeNull
	typeTime
	typeOpaque
)

func hasherFor(t byte) Hasher {
	h := Hasher{
		hasher: sha256.New(),
	}
	h.hasher.Write([]byte{t})
	return h
}

func hashFor(t byte) Hash {
	h := hasherFor(t)
	return h.Sum()
}

var HashTrue = hashFor(typeTrue)
var HashFalse = hashFor(typeFalse)
var HashNull = hashFor(typeNull)

// HashOpaque is shared by every value the hasher does not understand. Callers
// must confirm candidates with a real equality check.
var HashOpaque = hashFor(typeOpaque)

var HasherString = hasherFor(typeString)
var HasherFloat = hasherFor(typeFloat)
var HasherTime = hasherFor(typeTime)
var HasherMap = hasherFor(typeMap)
var HasherSlice = hasherFor(typeSlice)

func HashString(s string) Hash {
	h := HasherString.Copy()
	h.hasher.Write([]byte(s))
	return h.Sum()
}

func HashFloat64(f float64) Hash {
	if f == 0 {
		// -0 == 0
		f = 0
	}
	h := HasherFloat.Copy()
	writeUint64(h.hasher, math.Float64bits(f))
	return h.Sum()
}

func HashTime(t time.Time) Hash {
	h := HasherTime.Copy()
	writeUint64(h.hasher, uint64(t.UnixNano()))
	return h.Sum()
}

func writeUint64(w hash.Hash, v uint64) {
	var buf [8]byte
	binary.BigEndian.PutUint64(buf[:], v)
	w.Write(buf[:])
}

func (h Hasher) Copy() Hasher {
	res := Hasher{
		hasher: sha256.New(),
	}
	reflect.ValueOf(res.hasher).Elem().Set(reflect.ValueOf(h.hasher).Elem())
	return res
}

func (h *Hasher) Sum() (result Hash) {
	_ = h.hasher.Sum(result[:0])
	return
}

func (h *Hasher) WriteField(key string, value Hash) {
	h.hasher.Write([]byte{typeString})
	h.hasher.Write([]byte(key))
	h.hasher.Write(value[:])
}

func (h *Hasher) WriteElement(value Hash) {
	h.hasher.Write(value[:])
}

// Of returns the structural hash of a value. Every number hashes through its
// float64 representation so that 3 and 3.0 collide.
func Of(obj interface{}) Hash {
	switch obj := obj.(type) {
	case nil:
		return HashNull
	case bool:
		if obj {
			return HashTrue
		}
		return HashFalse
	case string:
		return HashString(obj)
	case time.Time:
		return HashTime(obj)
	case json.Number:
		f, err := obj.Float64()
		if err != nil {
			return HashOpaque
		}
		return HashFloat64(f)
	case map[string]interface{}:
		hasher := HasherMap.Copy()
		keys := make([]string, 0, len(obj))
		for key := range obj {
			keys = append(keys, key)
		}
		sort.Strings(keys)
		for _, key := range keys {
			hasher.WriteField(key, Of(obj[key]))
		}
		return hasher.Sum()
	case []interface{}:
		hasher := HasherSlice.Copy()
		for _, value := range obj {
			hasher.WriteElement(Of(value))
		}
		return hasher.Sum()
	}

	if f, ok := toFloat(obj); ok {
		return HashFloat64(f)
	}
	return HashOpaque
}

func toFloat(obj interface{}) (float64, bool) {
	v := reflect.ValueOf(obj)
	switch v.Kind() {
	case reflect.Int, reflect.Int8, reflect.Int16, reflect.Int32, reflect.Int64:
		return float64(v.Int()), true
	case reflect.Uint, reflect.Uint8, reflect.Uint16, reflect.Uint32, reflect.Uint64:
		return float64(v.Uint()), true
	case reflect.Float32, reflect.Float64:
		return v.Float(), true
	}
	return 0, false
}
