package ftl

import (
	"bytes"
	"context"
	"errors"
	"io"
	"net"
	"strings"
	"testing"

	"github.com/andreyvit/ftl/ftltest"
)

type fakeConn struct {
	r      io.Reader
	w      bytes.Buffer
	closed int
}

func (c *fakeConn) Read(p []byte) (int, error)  { return c.r.Read(p) }
func (c *fakeConn) Write(p []byte) (int, error) { return c.w.Write(p) }
func (c *fakeConn) Close() error {
	c.closed++
	return nil
}

func TestNewSession(t *testing.T) {
	data := ftltest.NewStream().Int32(1).Int64(2).Str("3").EOM().Bytes()
	conn := &fakeConn{r: bytes.NewReader(data)}
	var tap bytes.Buffer
	var logs []string
	cfg := DefaultConfig()
	cfg.Tap = &tap
	cfg.Verbose = true
	cfg.Logf = func(format string, args ...any) {
		logs = append(logs, format)
	}

	s, err := NewSession(conn, cfg, CmdDBStats)
	if err != nil {
		t.Fatalf("NewSession = %v, wanted nil", err)
	}
	deepEqual(t, conn.w.String(), ">dbstats\n")
	deepEqual(t, s.Command(), CmdDBStats)

	st, err := DecodeDBStats(s.Reader)
	if err != nil {
		t.Fatalf("DecodeDBStats = %v, wanted nil", err)
	}
	deepEqual(t, *st, DBStats{Queries: 1, FileSize: 2, SQLiteVersion: "3"})

	stats := s.Stats()
	deepEqual(t, stats.Bytes, int64(len(data)))
	deepEqual(t, stats.Fields, 3)
	deepEqual(t, tap.Bytes(), data)

	if err := s.Close(); err != nil {
		t.Fatalf("Close = %v, wanted nil", err)
	}
	if err := s.Close(); err != nil {
		t.Fatalf("second Close = %v, wanted nil", err)
	}
	deepEqual(t, conn.closed, 1)
	deepEqual(t, len(logs), 2)
}

func TestNewSession_InvalidCommand(t *testing.T) {
	for _, cmd := range []string{"", "stats\n", "a\rb"} {
		conn := &fakeConn{r: strings.NewReader("")}
		_, err := NewSession(conn, DefaultConfig(), cmd)
		if err == nil {
			t.Fatalf("NewSession(%q) = nil, wanted error", cmd)
		}
		if conn.closed != 1 {
			t.Fatalf("NewSession(%q) closed = %d, wanted 1", cmd, conn.closed)
		}
		if conn.w.Len() != 0 {
			t.Fatalf("NewSession(%q) wrote %q, wanted nothing", cmd, conn.w.String())
		}
	}
}

func TestSession_ExpectEOM(t *testing.T) {
	conn := &fakeConn{r: bytes.NewReader(ftltest.NewStream().Int32(1).Bytes())}
	s := must(NewSession(conn, DefaultConfig(), "custom"))
	defer s.Close()

	pe := asProtocolError(t, s.ExpectEOM())
	deepEqual(t, pe.Command, "custom")
}

func TestConfig_Validate(t *testing.T) {
	if err := DefaultConfig().Validate(); err != nil {
		t.Fatalf("DefaultConfig().Validate() = %v, wanted nil", err)
	}
	tests := []struct {
		name string
		edit func(c *Config)
	}{
		{"network", func(c *Config) { c.Network = "udp" }},
		{"addr", func(c *Config) { c.Addr = " " }},
		{"max string", func(c *Config) { c.MaxStringLen = 0 }},
		{"timeout", func(c *Config) { c.ReadTimeout = -1 }},
	}
	for _, tt := range tests {
		c := DefaultConfig()
		tt.edit(&c)
		if err := c.Validate(); err == nil {
			t.Errorf("%s: Validate = nil, wanted error", tt.name)
		}
	}
}

func TestConnect_DialFailure(t *testing.T) {
	cfg := DefaultConfig()
	dialErr := errors.New("no route")
	cfg.Dial = func(ctx context.Context, network, addr string) (net.Conn, error) {
		return nil, dialErr
	}
	_, err := Connect(context.Background(), cfg, CmdSummary)
	var ce *ConnectionError
	if !errors.As(err, &ce) || ce.Op != "dial" || ce.Addr != DefaultSocketPath {
		t.Fatalf("err = %v, wanted dial *ConnectionError", err)
	}
	if !errors.Is(err, dialErr) {
		t.Fatalf("errors.Is(err, dialErr) = false, wanted true")
	}
}

func TestConnect_Pipe(t *testing.T) {
	server, client := net.Pipe()
	defer server.Close()

	go func() {
		line := make([]byte, len(">stats\n"))
		if _, err := io.ReadFull(server, line); err != nil {
			return
		}
		server.Write(ftltest.NewStream().Int32s(5, 100, 5).Float32(5).Int32s(20, 50, 45, 10, 8).Uint8(1).EOM().Bytes())
	}()

	cfg := DefaultConfig()
	cfg.Dial = func(ctx context.Context, network, addr string) (net.Conn, error) {
		return client, nil
	}
	s, err := Connect(context.Background(), cfg, CmdSummary)
	if err != nil {
		t.Fatalf("Connect = %v, wanted nil", err)
	}
	defer s.Close()
	sum, err := DecodeSummary(s.Reader)
	if err != nil {
		t.Fatalf("DecodeSummary = %v, wanted nil", err)
	}
	deepEqual(t, sum.UniqueClients, int32(8))
}
