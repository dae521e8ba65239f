package ftl

import (
	"fmt"

	"github.com/vmihailenco/msgpack/v5/msgpcode"
)

// markerEOM is the MessagePack "never used" marker. The backend writes it in
// place of a value to end a response.
const markerEOM byte = 0xc1

// Kind identifies the type of a single wire value.
type Kind int

const (
	KindInvalid Kind = iota
	KindInt32
	KindInt64
	KindUint8
	KindFloat32
	KindString
	KindMap
	KindEOM
)

var kindNames = [...]string{
	KindInvalid: "invalid",
	KindInt32:   "int32",
	KindInt64:   "int64",
	KindUint8:   "uint8",
	KindFloat32: "float32",
	KindString:  "string",
	KindMap:     "map",
	KindEOM:     "eom",
}

func (k Kind) String() string {
	if k >= 0 && int(k) < len(kindNames) {
		return kindNames[k]
	}
	return fmt.Sprintf("Kind(%d)", int(k))
}

// Accepts reports whether a value of kind k may start with the given marker.
// Numeric kinds are strict: the backend always writes fixed-width integers.
func (k Kind) Accepts(marker byte) bool {
	switch k {
	case KindInt32:
		return marker == msgpcode.Int32
	case KindInt64:
		return marker == msgpcode.Int64
	case KindUint8:
		return marker == msgpcode.Uint8
	case KindFloat32:
		return marker == msgpcode.Float
	case KindString:
		return msgpcode.IsString(marker)
	case KindMap:
		return msgpcode.IsFixedMap(marker) || marker == msgpcode.Map16 || marker == msgpcode.Map32
	case KindEOM:
		return marker == markerEOM
	default:
		return false
	}
}

// KindOf classifies an observed marker. Markers the backend never emits map
// to KindInvalid.
func KindOf(marker byte) Kind {
	for k := KindInt32; k <= KindEOM; k++ {
		if k.Accepts(marker) {
			return k
		}
	}
	return KindInvalid
}

func describeMarker(marker byte) string {
	return fmt.Sprintf("0x%02x (%v)", marker, KindOf(marker))
}
