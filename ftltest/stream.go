// Package ftltest provides a fake backend for testing FTL API clients.
package ftltest

import (
	"fmt"

	"github.com/vmihailenco/msgpack/v5"
)

// MarkerEOM ends every response.
const MarkerEOM byte = 0xc1

// Stream builds a response the way the backend encodes it: fixed-width
// integers, shortest string headers, EOM as a bare marker.
type Stream struct {
	bb  bytesBuilder
	enc *msgpack.Encoder
}

func NewStream() *Stream {
	s := &Stream{}
	s.enc = msgpack.NewEncoder(&s.bb)
	return s
}

func (s *Stream) check(err error) *Stream {
	if err != nil {
		panic(fmt.Errorf("ftltest: encoding failed: %w", err))
	}
	return s
}

func (s *Stream) Int32(v int32) *Stream     { return s.check(s.enc.EncodeInt32(v)) }
func (s *Stream) Int64(v int64) *Stream     { return s.check(s.enc.EncodeInt64(v)) }
func (s *Stream) Uint8(v uint8) *Stream     { return s.check(s.enc.EncodeUint8(v)) }
func (s *Stream) Float32(v float32) *Stream { return s.check(s.enc.EncodeFloat32(v)) }
func (s *Stream) Str(v string) *Stream      { return s.check(s.enc.EncodeString(v)) }

// Int32s appends each value as an int32.
func (s *Stream) Int32s(vals ...int32) *Stream {
	for _, v := range vals {
		s.Int32(v)
	}
	return s
}

// IntMap appends a map header followed by kvs, which alternates keys and
// values.
func (s *Stream) IntMap(kvs ...int32) *Stream {
	if len(kvs)%2 != 0 {
		panic("ftltest: IntMap needs an even number of arguments")
	}
	s.check(s.enc.EncodeMapLen(len(kvs) / 2))
	return s.Int32s(kvs...)
}

// Marker appends raw bytes, e.g. a marker with no payload.
func (s *Stream) Marker(b ...byte) *Stream {
	s.bb.Write(b)
	return s
}

func (s *Stream) EOM() *Stream {
	return s.Marker(MarkerEOM)
}

// Bytes returns the encoded stream. The result aliases the builder.
func (s *Stream) Bytes() []byte {
	return s.bb.Buf
}

func (s *Stream) Len() int {
	return len(s.bb.Buf)
}

// Concat appends already encoded bytes.
func (s *Stream) Concat(data []byte) *Stream {
	s.bb.Write(data)
	return s
}

type bytesBuilder struct {
	Buf []byte
}

func (bb *bytesBuilder) Write(b []byte) (int, error) {
	bb.Buf = append(bb.Buf, b...)
	return len(b), nil
}

func (bb *bytesBuilder) WriteByte(v byte) error {
	bb.Buf = append(bb.Buf, v)
	return nil
}
