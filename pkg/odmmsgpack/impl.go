package odmmsgpack

import (
	"github.com/vmihailenco/msgpack/v4"

	"github.com/sanity-io/odm"
)

// MsgpackUpdates is an alias for odm.Updates which implements CustomEncoder/CustomDecoder.
// You should only use this if you need to embed an update set inside a larger msgpack structure.
// Otherwise it's preferred to use the Marshal and Unmarshal functions.
type MsgpackUpdates odm.Updates

var _ msgpack.CustomEncoder = (*MsgpackUpdates)(nil)
var _ msgpack.CustomDecoder = (*MsgpackUpdates)(nil)

// Marshal encodes an update set using Msgpack.
func Marshal(updates odm.Updates) ([]byte, error) {
	mpupdates := MsgpackUpdates(updates)
	return msgpack.Marshal(&mpupdates)
}

// Unmarshal decodes an update set using Msgpack.
func Unmarshal(data []byte) (odm.Updates, error) {
	var mpupdates MsgpackUpdates
	err := msgpack.Unmarshal(data, &mpupdates)
	if err != nil {
		return nil, err
	}
	return odm.Updates(mpupdates), nil
}

type writer struct {
	*msgpack.Encoder
}

func (w writer) WriteUint8(v uint8) error {
	return w.EncodeUint8(v)
}

func (w writer) WriteUint(v int) error {
	return w.EncodeUint(uint64(v))
}

func (w writer) WriteString(v string) error {
	return w.EncodeString(v)
}

func (w writer) WriteValue(v interface{}) error {
	return w.Encode(v)
}

// The entry count goes first so an update set can be embedded.
func (updates *MsgpackUpdates) EncodeMsgpack(enc *msgpack.Encoder) error {
	w := writer{enc}
	err := w.WriteUint(len(*updates))
	if err != nil {
		return err
	}
	return odm.Updates(*updates).WriteTo(w)
}

type reader struct {
	*msgpack.Decoder
}

func (r reader) ReadUint8() (uint8, error) {
	return r.DecodeUint8()
}

func (r reader) ReadUint() (int, error) {
	val, err := r.DecodeUint()
	return int(val), err
}

func (r reader) ReadString() (string, error) {
	return r.DecodeString()
}

func (r reader) ReadValue() (interface{}, error) {
	result, err := r.DecodeInterfaceLoose()
	if err != nil {
		return nil, err
	}
	return odm.Normalize(result), nil
}

func (updates *MsgpackUpdates) DecodeMsgpack(dec *msgpack.Decoder) error {
	r := reader{dec}

	n, err := r.ReadUint()
	if err != nil {
		return err
	}

	*updates = make(MsgpackUpdates, n)
	for i := 0; i < n; i++ {
		path, value, err := odm.ReadEntry(r)
		if err != nil {
			return err
		}
		(*updates)[path] = value
	}
	return nil
}
