package ftl

import (
	"bytes"
	"errors"
	"reflect"
	"testing"

	"github.com/andreyvit/ftl/ftltest"
)

func must[T any](v T, err error) T {
	if err != nil {
		panic(err)
	}
	return v
}

func deepEqual[T any](t testing.TB, a, e T) {
	if !reflect.DeepEqual(a, e) {
		t.Helper()
		t.Errorf("** got %v, wanted %v", a, e)
	}
}

func readerOf(t testing.TB, s *ftltest.Stream) *Reader {
	r := NewReader(bytes.NewReader(s.Bytes()), DefaultMaxStringLen)
	t.Cleanup(r.Release)
	return r
}

func asProtocolError(t testing.TB, err error) *ProtocolError {
	t.Helper()
	var pe *ProtocolError
	if !errors.As(err, &pe) {
		t.Fatalf("err = %v (%T), wanted *ProtocolError", err, err)
	}
	return pe
}

func assertPanics(t *testing.T, fn func()) {
	t.Helper()
	defer func() {
		if recover() == nil {
			t.Fatalf("expected panic")
		}
	}()
	fn()
}
