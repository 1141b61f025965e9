package odm

import (
	"fmt"
	"io"
	"time"
)

// Writer is an interface for writing values. This can be used for supporting a custom serialization format.
type Writer interface {
	WriteUint8(v uint8) error
	WriteUint(v int) error
	WriteString(v string) error
	WriteValue(v interface{}) error
}

// Reader is an interface for reading values. This can be used for supporting a custom serialization format.
type Reader interface {
	ReadUint8() (uint8, error)
	ReadUint() (int, error)
	ReadString() (string, error)
	ReadValue() (interface{}, error)
}

// An entry is encoded as: path, code, payload.

const (
	codeSet uint8 = iota
	codeDelete
	codeServerTimestamp
	codeIncrement
	codeArrayUnion
	codeArrayRemove
	codeSetTime
)

// ReadEntry reads a single update entry. io.EOF is returned when there are no more entries.
func ReadEntry(r Reader) (string, interface{}, error) {
	path, err := r.ReadString()
	if err != nil {
		return "", nil, err
	}

	code, err := r.ReadUint8()
	if err != nil {
		return "", nil, unexpectedEOF(err)
	}

	switch code {
	case codeSet:
		val, err := r.ReadValue()
		if err != nil {
			return "", nil, unexpectedEOF(err)
		}
		return path, val, nil
	case codeDelete:
		return path, Delete, nil
	case codeServerTimestamp:
		return path, ServerTimestamp, nil
	case codeIncrement:
		val, err := r.ReadValue()
		if err != nil {
			return "", nil, unexpectedEOF(err)
		}
		n, ok := toNumber(val)
		if !ok {
			return "", nil, fmt.Errorf("increment of %s is not a number", path)
		}
		return path, OpIncrement{n.value()}, nil
	case codeArrayUnion:
		items, err := readItems(r)
		if err != nil {
			return "", nil, err
		}
		return path, OpArrayUnion{items}, nil
	case codeArrayRemove:
		items, err := readItems(r)
		if err != nil {
			return "", nil, err
		}
		return path, OpArrayRemove{items}, nil
	case codeSetTime:
		s, err := r.ReadString()
		if err != nil {
			return "", nil, unexpectedEOF(err)
		}
		t, err := time.Parse(time.RFC3339Nano, s)
		if err != nil {
			return "", nil, fmt.Errorf("time of %s: %w", path, err)
		}
		return path, t, nil
	default:
		return "", nil, fmt.Errorf("unknown code: %d", code)
	}
}

func readItems(r Reader) ([]interface{}, error) {
	n, err := r.ReadUint()
	if err != nil {
		return nil, unexpectedEOF(err)
	}
	items := make([]interface{}, 0, n)
	for i := 0; i < n; i++ {
		val, err := r.ReadValue()
		if err != nil {
			return nil, unexpectedEOF(err)
		}
		items = append(items, val)
	}
	return items, nil
}

func unexpectedEOF(err error) error {
	if err == io.EOF {
		return io.ErrUnexpectedEOF
	}
	return err
}

// WriteEntry writes a single update entry to a writer.
func WriteEntry(w Writer, path string, value interface{}) error {
	err := w.WriteString(path)
	if err != nil {
		return err
	}

	switch value := value.(type) {
	case OpDelete:
		return w.WriteUint8(codeDelete)
	case OpServerTimestamp:
		return w.WriteUint8(codeServerTimestamp)
	case OpIncrement:
		err := w.WriteUint8(codeIncrement)
		if err != nil {
			return err
		}
		return w.WriteValue(value.Delta)
	case OpArrayUnion:
		err := w.WriteUint8(codeArrayUnion)
		if err != nil {
			return err
		}
		return writeItems(w, value.Items)
	case OpArrayRemove:
		err := w.WriteUint8(codeArrayRemove)
		if err != nil {
			return err
		}
		return writeItems(w, value.Items)
	case time.Time:
		// Times nested inside a set value are written by WriteValue and
		// may come back as strings.
		err := w.WriteUint8(codeSetTime)
		if err != nil {
			return err
		}
		return w.WriteString(value.UTC().Format(time.RFC3339Nano))
	}

	err = w.WriteUint8(codeSet)
	if err != nil {
		return err
	}
	return w.WriteValue(value)
}

func writeItems(w Writer, items []interface{}) error {
	err := w.WriteUint(len(items))
	if err != nil {
		return err
	}
	for _, item := range items {
		err := w.WriteValue(item)
		if err != nil {
			return err
		}
	}
	return nil
}

// WriteTo writes the update set to a writer, in path order.
func (updates Updates) WriteTo(w Writer) error {
	for _, path := range updates.Paths() {
		err := WriteEntry(w, path, updates[path])
		if err != nil {
			return err
		}
	}

	return nil
}

// ReadFrom reads entries from a reader until it is exhausted.
func (updates *Updates) ReadFrom(r Reader) error {
	if *updates == nil {
		*updates = Updates{}
	}

	for {
		path, value, err := ReadEntry(r)
		if err == io.EOF {
			return nil
		}
		if err != nil {
			return err
		}
		(*updates)[path] = value
	}
}
