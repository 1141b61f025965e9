package odm

import (
	"bytes"
	"encoding/json"
	"fmt"
	"io"
	"math"
)

type jsonWriter struct {
	result []byte
}

func (w *jsonWriter) WriteUint8(v uint8) error {
	return w.WriteValue(v)
}

func (w *jsonWriter) WriteUint(v int) error {
	return w.WriteValue(v)
}

func (w *jsonWriter) WriteString(v string) error {
	return w.WriteValue(v)
}

func (w *jsonWriter) WriteValue(v interface{}) error {
	b, err := json.Marshal(v)
	if err != nil {
		return err
	}
	w.next()
	w.result = append(w.result, b...)
	return nil
}

func (w *jsonWriter) next() {
	if len(w.result) == 0 {
		w.result = append(w.result, '[')
	} else {
		w.result = append(w.result, ',')
	}
}

func (w *jsonWriter) finalize() []byte {
	if len(w.result) == 0 {
		return []byte{'[', ']'}
	}

	w.result = append(w.result, ']')
	return w.result
}

type valueReader interface {
	ReadValue() (interface{}, error)
}

// ReadUint8FromValueReader reads a small number from a reader which only knows about values.
func ReadUint8FromValueReader(r valueReader) (uint8, error) {
	n, err := ReadUintFromValueReader(r)
	if err != nil {
		return 0, err
	}
	if n > 255 {
		return 0, fmt.Errorf("expected uint8, got %d", n)
	}
	return uint8(n), nil
}

// ReadUintFromValueReader reads a non-negative integer from a reader which only knows about values.
func ReadUintFromValueReader(r valueReader) (int, error) {
	val, err := r.ReadValue()
	if err != nil {
		return 0, err
	}
	n, ok := toNumber(val)
	if ok && !n.isInt && n.f == math.Trunc(n.f) && math.Abs(n.f) < 1<<53 {
		n = number{i: int64(n.f), isInt: true}
	}
	if !ok || !n.isInt || n.i < 0 {
		return 0, fmt.Errorf("expected uint, got %v", val)
	}
	return int(n.i), nil
}

// ReadStringFromValueReader reads a string from a reader which only knows about values.
func ReadStringFromValueReader(r valueReader) (string, error) {
	val, err := r.ReadValue()
	if err != nil {
		return "", err
	}
	s, ok := val.(string)
	if !ok {
		return "", fmt.Errorf("expected string, got %v", val)
	}
	return s, nil
}

type jsonReader struct {
	dec *json.Decoder
}

func (r *jsonReader) tryEOF() error {
	if !r.dec.More() {
		t, err := r.dec.Token()
		if err != nil {
			return err
		}
		if t != json.Delim(']') {
			return fmt.Errorf("expected ] at end")
		}

		return io.EOF
	}

	return nil
}

func (r *jsonReader) ReadUint8() (uint8, error) {
	return ReadUint8FromValueReader(r)
}

func (r *jsonReader) ReadUint() (int, error) {
	return ReadUintFromValueReader(r)
}

func (r *jsonReader) ReadString() (string, error) {
	return ReadStringFromValueReader(r)
}

func (r *jsonReader) ReadValue() (interface{}, error) {
	err := r.tryEOF()
	if err != nil {
		return nil, err
	}
	var val interface{}
	err = r.dec.Decode(&val)
	if err != nil {
		return nil, err
	}
	return Normalize(val), nil
}

func (r *jsonReader) expectArray() error {
	t, err := r.dec.Token()
	if err != nil {
		return err
	}

	if t != json.Delim('[') {
		return fmt.Errorf("expected array")
	}

	return nil
}

type jsonValueReader struct {
	data []interface{}
	idx  int
}

func (r *jsonValueReader) ReadUint8() (uint8, error) {
	return ReadUint8FromValueReader(r)
}

func (r *jsonValueReader) ReadUint() (int, error) {
	return ReadUintFromValueReader(r)
}

func (r *jsonValueReader) ReadString() (string, error) {
	return ReadStringFromValueReader(r)
}

func (r *jsonValueReader) ReadValue() (interface{}, error) {
	if r.idx >= len(r.data) {
		return nil, io.EOF
	}
	idx := r.idx
	r.idx++
	return Normalize(r.data[idx]), nil
}

// MarshalJSON encodes the update set as a flat JSON array of entries.
func (updates Updates) MarshalJSON() ([]byte, error) {
	w := jsonWriter{}
	err := updates.WriteTo(&w)
	if err != nil {
		return nil, err
	}
	return w.finalize(), nil
}

func (updates *Updates) UnmarshalJSON(data []byte) error {
	dec := json.NewDecoder(bytes.NewReader(data))
	dec.UseNumber()
	r := jsonReader{dec: dec}

	err := r.expectArray()
	if err != nil {
		return err
	}

	*updates = Updates{}
	return updates.ReadFrom(&r)
}

// DecodeJSON decodes an update set from an []interface{} as parsed by encoding/json.
func (updates *Updates) DecodeJSON(data []interface{}) error {
	r := jsonValueReader{data: data}
	*updates = Updates{}
	return updates.ReadFrom(&r)
}
