package ftl

import (
	"context"
	"fmt"
	"slices"
	"strings"
	"sync"
	"sync/atomic"
	"time"

	"golang.org/x/sync/errgroup"
)

// Client runs backend commands, one fresh session per call. It is safe for
// concurrent use; concurrent calls use independent sessions.
type Client struct {
	cfg Config

	CommandCount atomic.Uint64
	FailureCount atomic.Uint64
	BytesRead    atomic.Int64

	sessions     []*Session
	sessionsLock sync.Mutex
}

func NewClient(cfg Config) (*Client, error) {
	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return &Client{cfg: cfg}, nil
}

func (c *Client) Config() Config {
	return c.cfg
}

// Do runs command and hands the session to decode. Any failure, whether
// connecting or decoding, comes back as *CommandError.
func (c *Client) Do(ctx context.Context, command string, decode func(s *Session) error) error {
	c.CommandCount.Add(1)
	err := c.do(ctx, command, decode)
	if err != nil {
		c.FailureCount.Add(1)
		c.cfg.logf("ftl: %s failed: %v", command, err)
		return &CommandError{Command: command, Err: err}
	}
	return nil
}

func (c *Client) do(ctx context.Context, command string, decode func(s *Session) error) error {
	s, err := Connect(ctx, c.cfg, command)
	if err != nil {
		return err
	}
	c.addSession(s)
	s.onClose = c.removeSession
	defer s.Close()

	err = decode(s)
	c.BytesRead.Add(s.Offset())
	return err
}

func (c *Client) addSession(s *Session) {
	c.sessionsLock.Lock()
	defer c.sessionsLock.Unlock()
	c.sessions = append(c.sessions, s)
}

func (c *Client) removeSession(s *Session) {
	c.sessionsLock.Lock()
	defer c.sessionsLock.Unlock()

	found := slices.Index(c.sessions, s)
	if found < 0 {
		panic("session not found in list")
	}
	n := len(c.sessions)
	c.sessions[found] = c.sessions[n-1]
	c.sessions[n-1] = nil
	c.sessions = c.sessions[:n-1]
}

// OpenSessions returns the number of sessions currently in flight.
func (c *Client) OpenSessions() int {
	c.sessionsLock.Lock()
	defer c.sessionsLock.Unlock()
	return len(c.sessions)
}

// DescribeOpenSessions lists in-flight sessions, oldest first. Useful when
// hunting for a stuck backend.
func (c *Client) DescribeOpenSessions() string {
	c.sessionsLock.Lock()
	sessions := slices.Clone(c.sessions)
	c.sessionsLock.Unlock()

	if len(sessions) == 0 {
		return "NO OPEN SESSIONS"
	}

	slices.SortFunc(sessions, func(a, b *Session) int {
		return a.startTime.Compare(b.startTime)
	})

	now := time.Now()
	var buf strings.Builder
	fmt.Fprintf(&buf, "%d OPEN SESSIONS:\n", len(sessions))
	for _, s := range sessions {
		fmt.Fprintf(&buf, "%s: open for %d ms\n", s.command, now.Sub(s.startTime).Milliseconds())
	}
	return buf.String()
}

func run[T any](ctx context.Context, c *Client, command string, decode func(*Reader) (T, error)) (T, error) {
	var result T
	err := c.Do(ctx, command, func(s *Session) error {
		var err error
		result, err = decode(s.Reader)
		return err
	})
	if err != nil {
		var zero T
		return zero, err
	}
	return result, nil
}

func (c *Client) Summary(ctx context.Context) (*Summary, error) {
	return run(ctx, c, CmdSummary, DecodeSummary)
}

func (c *Client) OverTime(ctx context.Context) (*OverTime, error) {
	return run(ctx, c, CmdOverTime, DecodeOverTime)
}

func (c *Client) TopDomains(ctx context.Context) (*TopDomains, error) {
	return run(ctx, c, CmdTopDomains, DecodeTopDomains)
}

func (c *Client) TopBlocked(ctx context.Context) (*TopDomains, error) {
	return run(ctx, c, CmdTopBlocked, DecodeTopBlocked)
}

func (c *Client) TopClients(ctx context.Context) (*TopClients, error) {
	return run(ctx, c, CmdTopClients, DecodeTopClients)
}

func (c *Client) History(ctx context.Context) ([]Query, error) {
	return run(ctx, c, CmdHistory, DecodeHistory)
}

func (c *Client) DBStats(ctx context.Context) (*DBStats, error) {
	return run(ctx, c, CmdDBStats, DecodeDBStats)
}

// Dashboard is everything a status page shows at once.
type Dashboard struct {
	Summary    *Summary    `json:"summary"`
	OverTime   *OverTime   `json:"over_time"`
	TopDomains *TopDomains `json:"top_domains"`
	TopBlocked *TopDomains `json:"top_blocked"`
	TopClients *TopClients `json:"top_clients"`
}

// Dashboard fetches the dashboard commands concurrently, each over its own
// session. The first failure is returned; commands that have not connected yet
// by then are cancelled, the ones already decoding run to completion.
func (c *Client) Dashboard(ctx context.Context) (*Dashboard, error) {
	var d Dashboard
	g, ctx := errgroup.WithContext(ctx)
	g.Go(func() (err error) {
		d.Summary, err = c.Summary(ctx)
		return
	})
	g.Go(func() (err error) {
		d.OverTime, err = c.OverTime(ctx)
		return
	})
	g.Go(func() (err error) {
		d.TopDomains, err = c.TopDomains(ctx)
		return
	})
	g.Go(func() (err error) {
		d.TopBlocked, err = c.TopBlocked(ctx)
		return
	})
	g.Go(func() (err error) {
		d.TopClients, err = c.TopClients(ctx)
		return
	})
	if err := g.Wait(); err != nil {
		return nil, err
	}
	return &d, nil
}
