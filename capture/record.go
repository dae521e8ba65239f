package capture

import (
	"encoding/binary"
	"fmt"
	"time"

	"github.com/cespare/xxhash/v2"
)

type recordFlags uint64

const (
	rfVerBit0 = recordFlags(1 << iota)
	rfVerBit1
	rfVerBit2
	rfVerBit3

	rfVerMask       = (rfVerBit0 | rfVerBit1 | rfVerBit2 | rfVerBit3)
	rfVer1          = rfVerBit0
	rfSupportedMask = rfVer1
	rfDefault       = rfVer1

	minRecordSize = 3 + 8
)

// Record is one captured response.
type Record struct {
	Command    string
	CapturedAt time.Time
	Data       []byte
}

// Header: flags (uvarint), capture time in unix ms (uvarint), data size
// (uvarint), xxhash64 of data (8 bytes big-endian). Then data.
func encodeRecord(buf []byte, rec *Record) []byte {
	buf = binary.AppendUvarint(buf, uint64(rfDefault))
	buf = binary.AppendUvarint(buf, uint64(rec.CapturedAt.UnixMilli()))
	buf = binary.AppendUvarint(buf, uint64(len(rec.Data)))
	buf = binary.BigEndian.AppendUint64(buf, xxhash.Sum64(rec.Data))
	return append(buf, rec.Data...)
}

func decodeRecord(command string, data []byte) (*Record, error) {
	d := makeByteDecoder(command, data)
	if len(data) < minRecordSize {
		return nil, d.errf("at least %d bytes required", minRecordSize)
	}

	flags, err := d.Uvarint("flags")
	if err != nil {
		return nil, err
	}
	if (flags &^ uint64(rfSupportedMask)) != 0 {
		return nil, d.errf("unsupported flags %x", flags)
	}
	if recordFlags(flags)&rfVerMask != rfVer1 {
		return nil, d.errf("unsupported version %d", recordFlags(flags)&rfVerMask)
	}

	ms, err := d.Uvarint("capture time")
	if err != nil {
		return nil, err
	}
	size, err := d.Uvarint("data size")
	if err != nil {
		return nil, err
	}
	sum, err := d.Raw(8, "checksum")
	if err != nil {
		return nil, err
	}
	if uint64(len(d.Buf)) != size {
		return nil, d.errf("got %d bytes of data, expected %d bytes", len(d.Buf), size)
	}
	body := d.Buf
	if binary.BigEndian.Uint64(sum) != xxhash.Sum64(body) {
		return nil, d.errf("checksum mismatch")
	}

	return &Record{
		Command:    command,
		CapturedAt: time.UnixMilli(int64(ms)).UTC(),
		Data:       append([]byte(nil), body...),
	}, nil
}

// CorruptError is returned for a stored record that fails to decode or
// verify.
type CorruptError struct {
	Command string
	Off     int
	Msg     string
}

func (e *CorruptError) Error() string {
	return fmt.Sprintf("capture: corrupt record %q at offset %d: %s", e.Command, e.Off, e.Msg)
}

type byteDecoder struct {
	Command string
	Orig    []byte
	Buf     []byte
}

func makeByteDecoder(command string, buf []byte) byteDecoder {
	return byteDecoder{command, buf, buf}
}

func (d *byteDecoder) Off() int {
	return len(d.Orig) - len(d.Buf)
}

func (d *byteDecoder) errf(format string, args ...any) error {
	return &CorruptError{d.Command, d.Off(), fmt.Sprintf(format, args...)}
}

func (d *byteDecoder) Uvarint(what string) (uint64, error) {
	v, n := binary.Uvarint(d.Buf)
	if n <= 0 {
		return 0, d.errf("bad %s", what)
	}
	d.Buf = d.Buf[n:]
	return v, nil
}

func (d *byteDecoder) Raw(n int, what string) ([]byte, error) {
	if len(d.Buf) < n {
		return nil, d.errf("not enough data for %s: %d bytes remaining, %d wanted", what, len(d.Buf), n)
	}
	v := d.Buf[:n]
	d.Buf = d.Buf[n:]
	return v, nil
}
