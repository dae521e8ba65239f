package ftl

import (
	"context"
	"errors"
	"fmt"
	"io"
	"net"
	"strings"
	"time"
)

// DefaultSocketPath is where the backend listens for API clients.
const DefaultSocketPath = "/var/run/pihole/FTL.sock"

// Config describes how to reach the backend. It is passed explicitly to every
// session; there is no package-level connection state.
type Config struct {
	Network string // "unix" or "tcp"
	Addr    string

	DialTimeout time.Duration
	ReadTimeout time.Duration

	// MaxStringLen caps the length of any string field. Longer strings fail
	// with *BufferTooSmallError.
	MaxStringLen int

	Logf    func(format string, args ...any)
	Verbose bool

	// Tap, if set, receives a copy of every response byte read from the
	// transport.
	Tap io.Writer

	// Dial overrides net.Dialer, mostly for tests.
	Dial func(ctx context.Context, network, addr string) (net.Conn, error)
}

func DefaultConfig() Config {
	return Config{
		Network:      "unix",
		Addr:         DefaultSocketPath,
		DialTimeout:  5 * time.Second,
		ReadTimeout:  15 * time.Second,
		MaxStringLen: DefaultMaxStringLen,
	}
}

func (c Config) Validate() error {
	switch c.Network {
	case "unix", "tcp", "tcp4", "tcp6":
	default:
		return fmt.Errorf("ftl: unsupported network %q", c.Network)
	}
	if strings.TrimSpace(c.Addr) == "" {
		return fmt.Errorf("ftl: missing backend address")
	}
	if c.MaxStringLen <= 0 {
		return fmt.Errorf("ftl: max string length must be positive, got %d", c.MaxStringLen)
	}
	if c.DialTimeout < 0 || c.ReadTimeout < 0 {
		return fmt.Errorf("ftl: timeouts must not be negative")
	}
	return nil
}

func (c *Config) logf(format string, args ...any) {
	if c.Logf != nil {
		c.Logf(format, args...)
	}
}

// Session is one command/response exchange with the backend. It owns its
// transport exclusively and is not safe for concurrent use.
type Session struct {
	*Reader

	cfg       Config
	command   string
	conn      io.ReadWriteCloser
	startTime time.Time
	closed    bool
	onClose   func(*Session)
}

// SessionStats describes the work done by a session so far.
type SessionStats struct {
	Command  string
	Bytes    int64
	Fields   int
	Duration time.Duration
}

// Connect dials the backend and sends command. The returned session is
// positioned at the start of the response.
func Connect(ctx context.Context, cfg Config, command string) (*Session, error) {
	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	dial := cfg.Dial
	if dial == nil {
		d := &net.Dialer{Timeout: cfg.DialTimeout}
		dial = d.DialContext
	}
	conn, err := dial(ctx, cfg.Network, cfg.Addr)
	if err != nil {
		return nil, connErrf("dial", cfg.Addr, err)
	}
	return NewSession(conn, cfg, command)
}

// NewSession sends command over an already established transport. The
// session takes ownership of conn and closes it on failure.
func NewSession(conn io.ReadWriteCloser, cfg Config, command string) (*Session, error) {
	if command == "" || strings.ContainsAny(command, "\r\n") {
		conn.Close()
		return nil, fmt.Errorf("ftl: invalid command %q", command)
	}
	if cfg.MaxStringLen <= 0 {
		cfg.MaxStringLen = DefaultMaxStringLen
	}

	if dc, ok := conn.(interface{ SetDeadline(time.Time) error }); ok && cfg.ReadTimeout > 0 {
		if err := dc.SetDeadline(time.Now().Add(cfg.ReadTimeout)); err != nil {
			conn.Close()
			return nil, connErrf("set deadline", cfg.Addr, err)
		}
	}

	if _, err := io.WriteString(conn, ">"+command+"\n"); err != nil {
		conn.Close()
		return nil, connErrf("write", cfg.Addr, err)
	}

	var src io.Reader = conn
	if cfg.Tap != nil {
		src = io.TeeReader(conn, cfg.Tap)
	}

	s := &Session{
		Reader:    NewReader(src, cfg.MaxStringLen),
		cfg:       cfg,
		command:   command,
		conn:      conn,
		startTime: time.Now(),
	}
	if cfg.Verbose {
		cfg.logf("ftl: %s: sent", command)
	}
	return s, nil
}

func (s *Session) Command() string {
	return s.command
}

// ExpectEOM requires the response to end here.
func (s *Session) ExpectEOM() error {
	return withCommand(s.Reader.ExpectEOM(), s.command)
}

func (s *Session) Stats() SessionStats {
	return SessionStats{
		Command:  s.command,
		Bytes:    s.Offset(),
		Fields:   s.FieldCount(),
		Duration: time.Since(s.startTime),
	}
}

// Close releases the transport. It is safe to call more than once.
func (s *Session) Close() error {
	if s.closed {
		return nil
	}
	s.closed = true
	if s.cfg.Verbose {
		st := s.Stats()
		s.cfg.logf("ftl: %s: closed after %d bytes, %d fields, %d ms", st.Command, st.Bytes, st.Fields, st.Duration.Milliseconds())
	}
	s.Reader.Release()
	if s.onClose != nil {
		s.onClose(s)
	}
	err := s.conn.Close()
	if err != nil && !errors.Is(err, net.ErrClosed) {
		return connErrf("close", s.cfg.Addr, err)
	}
	return nil
}
