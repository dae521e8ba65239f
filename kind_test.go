package ftl

import "testing"

func TestKindOf(t *testing.T) {
	tests := []struct {
		marker byte
		want   Kind
	}{
		{0xd2, KindInt32},
		{0xd3, KindInt64},
		{0xcc, KindUint8},
		{0xca, KindFloat32},
		{0xa0, KindString},
		{0xbf, KindString},
		{0xd9, KindString},
		{0xda, KindString},
		{0xdb, KindString},
		{0x80, KindMap},
		{0xde, KindMap},
		{0xdf, KindMap},
		{0xc1, KindEOM},
		{0x05, KindInvalid},
		{0xcb, KindInvalid},
		{0xc0, KindInvalid},
	}
	for _, tt := range tests {
		if got := KindOf(tt.marker); got != tt.want {
			t.Errorf("KindOf(%#x) = %v, wanted %v", tt.marker, got, tt.want)
		}
	}
}

func TestKind_String(t *testing.T) {
	deepEqual(t, KindFloat32.String(), "float32")
	deepEqual(t, Kind(99).String(), "Kind(99)")
	deepEqual(t, describeMarker(0xc1), "0xc1 (eom)")
}
