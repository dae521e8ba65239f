package ftl

import (
	"bytes"
	"errors"
	"io"
	"unicode/utf8"

	"github.com/vmihailenco/msgpack/v5"
)

// Reader decodes one marker-tagged value at a time from a response stream.
//
// Every typed read peeks at the marker first and fails with
// *TypeMismatchError, leaving the marker unconsumed, if it does not belong to
// the requested kind. Transport failures surface as *ConnectionError.
type Reader struct {
	src     *byteSource
	dec     *msgpack.Decoder
	scratch []byte
	maxStr  int
	fields  int
}

// NewReader returns a Reader over r that accepts strings of up to maxStringLen
// bytes. Call Release when done to return pooled buffers.
func NewReader(r io.Reader, maxStringLen int) *Reader {
	if maxStringLen <= 0 {
		maxStringLen = DefaultMaxStringLen
	}
	src := newByteSource(r)
	dec := msgpack.GetDecoder()
	dec.Reset(src)
	return &Reader{
		src:     src,
		dec:     dec,
		scratch: acquireStringBuf(maxStringLen),
		maxStr:  maxStringLen,
	}
}

// Release returns the decoder and scratch buffer to their pools. The Reader
// must not be used afterwards.
func (r *Reader) Release() {
	if r.dec != nil {
		msgpack.PutDecoder(r.dec)
		r.dec = nil
	}
	if r.scratch != nil {
		releaseStringBuf(r.scratch)
		r.scratch = nil
	}
}

// Offset returns the number of response bytes consumed so far.
func (r *Reader) Offset() int64 {
	return r.src.Offset()
}

// FieldCount returns the number of values successfully read so far.
func (r *Reader) FieldCount() int {
	return r.fields
}

// MaxStringLen returns the capacity used by ReadString.
func (r *Reader) MaxStringLen() int {
	return r.maxStr
}

func (r *Reader) peekMarker() (byte, error) {
	m, err := r.dec.PeekCode()
	if err != nil {
		return 0, r.ioErr(err)
	}
	return m, nil
}

// PeekKind classifies the next marker without consuming it.
func (r *Reader) PeekKind() (Kind, byte, error) {
	m, err := r.peekMarker()
	if err != nil {
		return KindInvalid, 0, err
	}
	return KindOf(m), m, nil
}

func (r *Reader) expect(k Kind) error {
	m, err := r.peekMarker()
	if err != nil {
		return err
	}
	if !k.Accepts(m) {
		return &TypeMismatchError{Expected: k, Marker: m, Off: r.Offset()}
	}
	return nil
}

func (r *Reader) ioErr(err error) error {
	if errors.Is(err, io.EOF) {
		err = io.ErrUnexpectedEOF
	}
	return connErrf("read", "", err)
}

func (r *Reader) ReadInt32() (int32, error) {
	if err := r.expect(KindInt32); err != nil {
		return 0, err
	}
	v, err := r.dec.DecodeInt32()
	if err != nil {
		return 0, r.ioErr(err)
	}
	r.fields++
	return v, nil
}

func (r *Reader) ReadInt64() (int64, error) {
	if err := r.expect(KindInt64); err != nil {
		return 0, err
	}
	v, err := r.dec.DecodeInt64()
	if err != nil {
		return 0, r.ioErr(err)
	}
	r.fields++
	return v, nil
}

func (r *Reader) ReadUint8() (uint8, error) {
	if err := r.expect(KindUint8); err != nil {
		return 0, err
	}
	v, err := r.dec.DecodeUint8()
	if err != nil {
		return 0, r.ioErr(err)
	}
	r.fields++
	return v, nil
}

func (r *Reader) ReadFloat32() (float32, error) {
	if err := r.expect(KindFloat32); err != nil {
		return 0, err
	}
	v, err := r.dec.DecodeFloat32()
	if err != nil {
		return 0, r.ioErr(err)
	}
	r.fields++
	return v, nil
}

// ReadStringBuf reads a string into buf and returns buf[:n]. It fails with
// *BufferTooSmallError when the encoded length exceeds cap(buf), and with
// *InvalidEncodingError when the bytes are not valid UTF-8.
func (r *Reader) ReadStringBuf(buf []byte) ([]byte, error) {
	if err := r.expect(KindString); err != nil {
		return nil, err
	}
	off := r.Offset()
	n, err := r.dec.DecodeBytesLen()
	if err != nil {
		return nil, r.ioErr(err)
	}
	if n > cap(buf) {
		return nil, &BufferTooSmallError{Len: n, Cap: cap(buf), Off: off}
	}
	buf = buf[:n]
	if err := r.src.readFull(buf); err != nil {
		return nil, r.ioErr(err)
	}
	if !utf8.Valid(buf) {
		return nil, &InvalidEncodingError{Off: off, Data: bytes.Clone(buf)}
	}
	r.fields++
	return buf, nil
}

// ReadString reads a string of at most MaxStringLen bytes.
func (r *Reader) ReadString() (string, error) {
	b, err := r.ReadStringBuf(r.scratch)
	if err != nil {
		return "", err
	}
	return string(b), nil
}

// ReadMapLen reads a map header and returns the number of key/value pairs
// that follow.
func (r *Reader) ReadMapLen() (int, error) {
	if err := r.expect(KindMap); err != nil {
		return 0, err
	}
	n, err := r.dec.DecodeMapLen()
	if err != nil {
		return 0, r.ioErr(err)
	}
	return n, nil
}

// ReadValue reads a single value of the given kind.
func (r *Reader) ReadValue(k Kind) (Value, error) {
	switch k {
	case KindInt32:
		v, err := r.ReadInt32()
		return Int32Value(v), err
	case KindInt64:
		v, err := r.ReadInt64()
		return Int64Value(v), err
	case KindUint8:
		v, err := r.ReadUint8()
		return Uint8Value(v), err
	case KindFloat32:
		v, err := r.ReadFloat32()
		return Float32Value(v), err
	case KindString:
		v, err := r.ReadString()
		return StringValue(v), err
	default:
		panic("ReadValue: unsupported kind " + k.String())
	}
}

// ExpectEOM consumes the end-of-message marker. Anything else is a
// *ProtocolError, since the backend sent more than the caller's schema
// accounts for.
func (r *Reader) ExpectEOM() error {
	m, err := r.peekMarker()
	if err != nil {
		return err
	}
	if m != markerEOM {
		return protoErrf("", r.Offset(), &TypeMismatchError{Expected: KindEOM, Marker: m, Off: r.Offset()}, "trailing data instead of end of message")
	}
	r.consumeEOM()
	return nil
}

// consumeEOM skips a marker already known to be EOM.
func (r *Reader) consumeEOM() {
	if _, err := r.src.ReadByte(); err != nil {
		panic("consumeEOM after a successful peek failed: " + err.Error())
	}
}
