package ftl

import (
	"errors"
	"strings"
	"testing"

	"github.com/andreyvit/ftl/ftltest"
)

func TestDecodeDBStats(t *testing.T) {
	r := readerOf(t, ftltest.NewStream().Int32(32768).Int64(1048576).Str("3.31.1").EOM())
	st, err := DecodeDBStats(r)
	if err != nil {
		t.Fatalf("DecodeDBStats = %v, wanted nil", err)
	}
	deepEqual(t, *st, DBStats{Queries: 32768, FileSize: 1048576, SQLiteVersion: "3.31.1"})
}

func TestDecodeDBStats_NoDatabase(t *testing.T) {
	r := readerOf(t, ftltest.NewStream().Int32(0).Int64(0).Str("").EOM())
	st, err := DecodeDBStats(r)
	if err != nil {
		t.Fatalf("DecodeDBStats = %v, wanted nil", err)
	}
	deepEqual(t, *st, DBStats{})
}

func TestDecodeDBStats_LongVersion(t *testing.T) {
	r := readerOf(t, ftltest.NewStream().Int32(1).Int64(1).Str(strings.Repeat("9", sqliteVersionCap+1)).EOM())
	_, err := DecodeDBStats(r)
	var bts *BufferTooSmallError
	if !errors.As(err, &bts) {
		t.Fatalf("err = %v, wanted *BufferTooSmallError", err)
	}
	if bts.Cap != sqliteVersionCap || bts.Len != sqliteVersionCap+1 {
		t.Fatalf("BufferTooSmallError = %+v, wanted Len %d Cap %d", *bts, sqliteVersionCap+1, sqliteVersionCap)
	}
}

func TestDecodeDBStats_FileSizeWidth(t *testing.T) {
	// file size must be int64 even when small
	r := readerOf(t, ftltest.NewStream().Int32(1).Int32(1).Str("3").EOM())
	_, err := DecodeDBStats(r)
	pe := asProtocolError(t, err)
	if pe.Command != CmdDBStats {
		t.Fatalf("Command = %q, wanted %q", pe.Command, CmdDBStats)
	}
}
