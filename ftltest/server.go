package ftltest

import (
	"bufio"
	"errors"
	"io"
	"net"
	"strings"
	"sync"
	"testing"
)

// Server is a fake backend. It answers every “>command” line with the canned
// response registered for that command, and with a bare EOM for anything it
// does not know.
type Server struct {
	ln   net.Listener
	logf func(format string, args ...any)

	mu        sync.Mutex
	responses map[string][]byte
	requests  []string

	wg     sync.WaitGroup
	conns  map[net.Conn]struct{}
	closed bool
}

// Listen starts a fake backend on the given endpoint, e.g. ("tcp", "127.0.0.1:0")
// or ("unix", "/tmp/FTL.sock").
func Listen(network, addr string, logf func(format string, args ...any)) (*Server, error) {
	ln, err := net.Listen(network, addr)
	if err != nil {
		return nil, err
	}
	if logf == nil {
		logf = func(string, ...any) {}
	}
	s := &Server{
		ln:        ln,
		logf:      logf,
		responses: make(map[string][]byte),
		conns:     make(map[net.Conn]struct{}),
	}
	s.wg.Add(1)
	go s.acceptLoop()
	return s, nil
}

// Start is Listen on a loopback TCP port, closed when the test ends.
func Start(t testing.TB) *Server {
	t.Helper()
	s, err := Listen("tcp", "127.0.0.1:0", t.Logf)
	if err != nil {
		t.Fatalf("ftltest: listen: %v", err)
	}
	t.Cleanup(func() {
		s.Close()
	})
	return s
}

func (s *Server) Network() string { return s.ln.Addr().Network() }
func (s *Server) Addr() string    { return s.ln.Addr().String() }

// Respond registers the bytes sent in reply to command.
func (s *Server) Respond(command string, data []byte) *Server {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.responses[command] = append([]byte(nil), data...)
	return s
}

// Requests returns the commands received so far, in order.
func (s *Server) Requests() []string {
	s.mu.Lock()
	defer s.mu.Unlock()
	return append([]string(nil), s.requests...)
}

func (s *Server) Close() error {
	s.mu.Lock()
	if s.closed {
		s.mu.Unlock()
		return nil
	}
	s.closed = true
	for c := range s.conns {
		c.Close()
	}
	s.mu.Unlock()

	err := s.ln.Close()
	s.wg.Wait()
	return err
}

func (s *Server) acceptLoop() {
	defer s.wg.Done()
	for {
		conn, err := s.ln.Accept()
		if err != nil {
			if !errors.Is(err, net.ErrClosed) {
				s.logf("ftltest: accept: %v", err)
			}
			return
		}
		s.mu.Lock()
		if s.closed {
			s.mu.Unlock()
			conn.Close()
			return
		}
		s.conns[conn] = struct{}{}
		s.mu.Unlock()

		s.wg.Add(1)
		go s.serve(conn)
	}
}

func (s *Server) serve(conn net.Conn) {
	defer s.wg.Done()
	defer func() {
		s.mu.Lock()
		delete(s.conns, conn)
		s.mu.Unlock()
		conn.Close()
	}()

	br := bufio.NewReader(conn)
	for {
		line, err := br.ReadString('\n')
		if err != nil {
			if !errors.Is(err, io.EOF) && !errors.Is(err, net.ErrClosed) {
				s.logf("ftltest: read: %v", err)
			}
			return
		}
		command, ok := ParseCommand(line)
		if !ok {
			s.logf("ftltest: ignoring malformed request %q", line)
			continue
		}

		s.mu.Lock()
		s.requests = append(s.requests, command)
		resp, found := s.responses[command]
		s.mu.Unlock()

		if !found {
			resp = []byte{MarkerEOM}
		}
		if _, err := conn.Write(resp); err != nil {
			s.logf("ftltest: write %s: %v", command, err)
			return
		}
	}
}

// ParseCommand extracts the command name from a request line.
func ParseCommand(line string) (string, bool) {
	line = strings.TrimRight(line, "\r\n")
	command, ok := strings.CutPrefix(line, ">")
	if !ok {
		return "", false
	}
	command = strings.TrimSpace(command)
	return command, command != ""
}
