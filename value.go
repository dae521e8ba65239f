package ftl

import (
	"errors"
	"fmt"
	"math"
)

// Value is a single decoded wire value.
type Value struct {
	kind Kind
	num  int64
	str  string
}

func Int32Value(v int32) Value     { return Value{kind: KindInt32, num: int64(v)} }
func Int64Value(v int64) Value     { return Value{kind: KindInt64, num: v} }
func Uint8Value(v uint8) Value     { return Value{kind: KindUint8, num: int64(v)} }
func StringValue(v string) Value   { return Value{kind: KindString, str: v} }
func Float32Value(v float32) Value { return Value{kind: KindFloat32, num: int64(math.Float32bits(v))} }

func (v Value) Kind() Kind { return v.kind }

func (v Value) Int32() int32 {
	v.must(KindInt32)
	return int32(v.num)
}

func (v Value) Int64() int64 {
	v.must(KindInt64)
	return v.num
}

func (v Value) Uint8() uint8 {
	v.must(KindUint8)
	return uint8(v.num)
}

func (v Value) Float32() float32 {
	v.must(KindFloat32)
	return math.Float32frombits(uint32(v.num))
}

func (v Value) Str() string {
	v.must(KindString)
	return v.str
}

func (v Value) must(k Kind) {
	if v.kind != k {
		panic(fmt.Errorf("value is %v, not %v", v.kind, k))
	}
}

func (v Value) String() string {
	switch v.kind {
	case KindInt32, KindInt64, KindUint8:
		return fmt.Sprintf("%v(%d)", v.kind, v.num)
	case KindFloat32:
		return fmt.Sprintf("float32(%g)", v.Float32())
	case KindString:
		return fmt.Sprintf("string(%q)", v.str)
	default:
		return v.kind.String()
	}
}

// Schema describes the response of one backend command.
type Schema struct {
	Command string
	Fields  []Kind

	// Repeating schemas describe one record of a loop terminated by EOM.
	// Fixed schemas describe the entire response before EOM.
	Repeating bool

	// StringCap overrides the Reader's string capacity for this schema.
	StringCap int
}

func (sch *Schema) arity() int {
	return len(sch.Fields)
}

func (sch *Schema) readField(r *Reader, i int, buf []byte) (Value, error) {
	k := sch.Fields[i]
	if k == KindString && sch.StringCap > 0 {
		b, err := r.ReadStringBuf(buf[:0])
		if err != nil {
			return Value{}, err
		}
		return StringValue(string(b)), nil
	}
	return r.ReadValue(k)
}

func (sch *Schema) stringBuf() []byte {
	if sch.StringCap > 0 {
		return make([]byte, 0, sch.StringCap)
	}
	return nil
}

// ReadFixed reads every field of a fixed schema in order, then requires EOM.
func ReadFixed(r *Reader, sch *Schema) ([]Value, error) {
	if sch.Repeating {
		panic(fmt.Errorf("%s: ReadFixed called with a repeating schema", sch.Command))
	}
	buf := sch.stringBuf()
	vals := make([]Value, sch.arity())
	for i := range sch.Fields {
		v, err := sch.readField(r, i, buf)
		if err != nil {
			return nil, fieldErr(sch, r, i, err)
		}
		vals[i] = v
	}
	if err := r.ExpectEOM(); err != nil {
		return nil, withCommand(err, sch.Command)
	}
	return vals, nil
}

// fieldErr attaches position information to a failed field read. Running into
// EOM before the schema is complete is always a protocol error.
func fieldErr(sch *Schema, r *Reader, i int, err error) error {
	if IsEOM(err) {
		return protoErrf(sch.Command, r.Offset(), err, "end of message at field %d of %d", i+1, sch.arity())
	}
	var tm *TypeMismatchError
	if errors.As(err, &tm) {
		return protoErrf(sch.Command, r.Offset(), err, "bad field %d of %d", i+1, sch.arity())
	}
	return err
}

func withCommand(err error, command string) error {
	if pe, ok := err.(*ProtocolError); ok && pe.Command == "" {
		pe.Command = command
	}
	return err
}
