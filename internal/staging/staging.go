// Package staging buffers document writes on top of a read-only view of a
// store so they can be committed at once, or discarded.
package staging

import (
	"context"
	"strconv"

	"github.com/sanity-io/odm"
)

// Loader reads the committed state of a document.
type Loader func(path string) (map[string]interface{}, bool, error)

// Write is a staged document state. A nil Data means the document is deleted.
type Write struct {
	Path string
	Data map[string]interface{}
}

// Area is an odm.Tx whose writes are only recorded.
type Area struct {
	load    Loader
	options odm.Options
	staged  map[string]map[string]interface{}
	order   []string
}

var _ odm.Tx = (*Area)(nil)

func New(load Loader, options odm.Options) *Area {
	return &Area{
		load:    load,
		options: options,
		staged:  map[string]map[string]interface{}{},
	}
}

func (a *Area) current(path string) (map[string]interface{}, bool, error) {
	if data, ok := a.staged[path]; ok {
		return data, data != nil, nil
	}
	return a.load(path)
}

func (a *Area) stage(path string, data map[string]interface{}) {
	if _, ok := a.staged[path]; !ok {
		a.order = append(a.order, path)
	}
	a.staged[path] = data
}

func (a *Area) Fetch(_ context.Context, path string) (map[string]interface{}, bool, error) {
	if _, err := odm.SplitDocumentPath(path); err != nil {
		return nil, false, err
	}
	data, exists, err := a.current(path)
	if err != nil || !exists {
		return nil, false, err
	}
	return odm.Copy(data).(map[string]interface{}), true, nil
}

func (a *Area) ApplyFieldMutations(_ context.Context, path string, updates odm.Updates) error {
	if _, err := odm.SplitDocumentPath(path); err != nil {
		return err
	}
	data, exists, err := a.current(path)
	if err != nil {
		return err
	}
	if !exists {
		return &odm.NotFoundError{Path: path}
	}
	result, err := a.options.ApplyUpdates(data, updates)
	if err != nil {
		return err
	}
	a.stage(path, result)
	return nil
}

func (a *Area) Replace(_ context.Context, path string, data map[string]interface{}, merge bool) error {
	if _, err := odm.SplitDocumentPath(path); err != nil {
		return err
	}
	if err := rejectDirectives("", data); err != nil {
		return err
	}

	if !merge {
		// A nil map stages a delete, so an empty document needs a real map.
		if data == nil {
			data = map[string]interface{}{}
		}
		a.stage(path, odm.Copy(data).(map[string]interface{}))
		return nil
	}

	current, _, err := a.current(path)
	if err != nil {
		return err
	}
	a.stage(path, odm.Merge(current, data))
	return nil
}

func (a *Area) Delete(_ context.Context, path string) error {
	if _, err := odm.SplitDocumentPath(path); err != nil {
		return err
	}
	a.stage(path, nil)
	return nil
}

// Writes returns the staged writes in the order the documents were first touched.
func (a *Area) Writes() []Write {
	writes := make([]Write, 0, len(a.order))
	for _, path := range a.order {
		writes = append(writes, Write{Path: path, Data: a.staged[path]})
	}
	return writes
}

// Directives are only meaningful inside an update set.
func rejectDirectives(path string, value interface{}) error {
	switch odm.KindOf(value) {
	case odm.KindDirective, odm.KindInvalid:
		return &odm.TypeMismatchError{Path: path, Value: value}
	case odm.KindMap:
		for key, child := range value.(map[string]interface{}) {
			if err := rejectDirectives(odm.JoinFieldPath(path, key), child); err != nil {
				return err
			}
		}
	case odm.KindArray:
		for idx, child := range value.([]interface{}) {
			if err := rejectDirectives(odm.JoinFieldPath(path, strconv.Itoa(idx)), child); err != nil {
				return err
			}
		}
	}
	return nil
}
