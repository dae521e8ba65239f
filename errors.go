package ftl

import (
	"errors"
	"fmt"
	"strings"
)

// ErrUnknownFailure is what every failed command looks like from the outside.
// Use errors.As on the returned error to get at the actual cause.
var ErrUnknownFailure = errors.New("ftl: unknown failure")

// ConnectionError means the transport could not be opened, written or read.
type ConnectionError struct {
	Op   string
	Addr string
	Err  error
}

func connErrf(op, addr string, err error) error {
	return &ConnectionError{op, addr, err}
}

func (e *ConnectionError) Unwrap() error {
	return e.Err
}

func (e *ConnectionError) Error() string {
	if e.Addr != "" {
		return fmt.Sprintf("ftl: %s %s: %v", e.Op, e.Addr, e.Err)
	}
	return fmt.Sprintf("ftl: %s: %v", e.Op, e.Err)
}

// TypeMismatchError is returned by a typed read when the next marker does not
// belong to the requested kind. The marker is not consumed.
type TypeMismatchError struct {
	Expected Kind
	Marker   byte
	Off      int64
}

func (e *TypeMismatchError) Error() string {
	return fmt.Sprintf("ftl: expected %v at offset %d, got marker %s", e.Expected, e.Off, describeMarker(e.Marker))
}

// IsEOM reports whether the observed marker was the end-of-message marker.
func (e *TypeMismatchError) IsEOM() bool {
	return e.Marker == markerEOM
}

type BufferTooSmallError struct {
	Len int
	Cap int
	Off int64
}

func (e *BufferTooSmallError) Error() string {
	return fmt.Sprintf("ftl: string of %d bytes at offset %d exceeds buffer capacity %d", e.Len, e.Off, e.Cap)
}

type InvalidEncodingError struct {
	Off  int64
	Data []byte
}

func (e *InvalidEncodingError) Error() string {
	const prefixLen = 32
	if len(e.Data) > prefixLen {
		return fmt.Sprintf("ftl: invalid UTF-8 string at offset %d: (%d) %x...", e.Off, len(e.Data), e.Data[:prefixLen])
	}
	return fmt.Sprintf("ftl: invalid UTF-8 string at offset %d: (%d) %x", e.Off, len(e.Data), e.Data)
}

// ProtocolError means the response stream is structurally wrong: EOM in the
// middle of a record, an unexpected marker where a record should start, or
// trailing data where EOM was expected.
type ProtocolError struct {
	Command string
	Off     int64
	Msg     string
	Err     error
}

func protoErrf(command string, off int64, err error, format string, args ...any) error {
	return &ProtocolError{command, off, fmt.Sprintf(format, args...), err}
}

func (e *ProtocolError) Unwrap() error {
	return e.Err
}

func (e *ProtocolError) Error() string {
	var buf strings.Builder
	buf.WriteString("ftl: ")
	if e.Command != "" {
		buf.WriteString(e.Command)
		buf.WriteString(": ")
	}
	fmt.Fprintf(&buf, "%s at offset %d", e.Msg, e.Off)
	if e.Err != nil {
		buf.WriteString(": ")
		buf.WriteString(e.Err.Error())
	}
	return buf.String()
}

// CommandError is returned by Client methods. It matches ErrUnknownFailure
// and unwraps to the underlying cause.
type CommandError struct {
	Command string
	Err     error
}

func (e *CommandError) Unwrap() error {
	return e.Err
}

func (e *CommandError) Is(target error) bool {
	return target == ErrUnknownFailure
}

func (e *CommandError) Error() string {
	return fmt.Sprintf("ftl: command %q failed: %v", e.Command, e.Err)
}

// IsEOM reports whether err is a typed read that ran into the end-of-message
// marker.
func IsEOM(err error) bool {
	var tm *TypeMismatchError
	return errors.As(err, &tm) && tm.IsEOM()
}
