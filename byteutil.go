package ftl

import (
	"bufio"
	"io"
)

// byteSource is the buffered response reader handed to the msgpack decoder.
// It implements io.ByteScanner, so the decoder uses it directly instead of
// adding its own buffering, which keeps the offset exact.
type byteSource struct {
	br  *bufio.Reader
	off int64
}

func newByteSource(r io.Reader) *byteSource {
	return &byteSource{br: bufio.NewReader(r)}
}

func (s *byteSource) Read(p []byte) (int, error) {
	n, err := s.br.Read(p)
	s.off += int64(n)
	return n, err
}

func (s *byteSource) ReadByte() (byte, error) {
	b, err := s.br.ReadByte()
	if err == nil {
		s.off++
	}
	return b, err
}

func (s *byteSource) UnreadByte() error {
	err := s.br.UnreadByte()
	if err == nil {
		s.off--
	}
	return err
}

func (s *byteSource) readFull(buf []byte) error {
	n, err := io.ReadFull(s.br, buf)
	s.off += int64(n)
	return err
}

// Offset is the number of bytes consumed so far.
func (s *byteSource) Offset() int64 {
	return s.off
}
