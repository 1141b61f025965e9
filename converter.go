package odm

import (
	"bytes"
	"encoding/json"

	"github.com/pkg/errors"
)

// Converter serializes a typed value to the map stored in a document and back.
type Converter[T any] interface {
	ToMap(value T) (map[string]interface{}, error)
	FromMap(data map[string]interface{}) (T, error)
}

// JSONConverter converts through encoding/json, so struct tags control the
// field names.
type JSONConverter[T any] struct{}

func (JSONConverter[T]) ToMap(value T) (map[string]interface{}, error) {
	b, err := json.Marshal(value)
	if err != nil {
		return nil, errors.Wrap(err, "encode document")
	}

	dec := json.NewDecoder(bytes.NewReader(b))
	dec.UseNumber()

	var data map[string]interface{}
	if err := dec.Decode(&data); err != nil {
		return nil, errors.Wrapf(err, "%T is not an object", value)
	}
	if data == nil {
		data = map[string]interface{}{}
	}

	return Normalize(data).(map[string]interface{}), nil
}

func (JSONConverter[T]) FromMap(data map[string]interface{}) (T, error) {
	var value T
	b, err := json.Marshal(data)
	if err != nil {
		return value, errors.Wrap(err, "encode document data")
	}
	if err := json.Unmarshal(b, &value); err != nil {
		return value, errors.Wrapf(err, "decode into %T", value)
	}
	return value, nil
}

// MapConverter stores untyped documents as they are.
type MapConverter struct{}

func (MapConverter) ToMap(value map[string]interface{}) (map[string]interface{}, error) {
	if value == nil {
		return map[string]interface{}{}, nil
	}
	return copyMap(value), nil
}

func (MapConverter) FromMap(data map[string]interface{}) (map[string]interface{}, error) {
	return copyMap(data), nil
}
