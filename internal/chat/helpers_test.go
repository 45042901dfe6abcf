package chat

import (
	"bytes"
	"io"
	"log"
	"sync"
	"time"

	"github.com/sirbread/termegle/internal/matchmaker"
	"github.com/sirbread/termegle/internal/metrics"
	"github.com/sirbread/termegle/internal/security"
)

// fakeConn is an io.WriteCloser test double recording everything written
// to it, standing in for the ssh.Channel the transport layer provides.
type fakeConn struct {
	mu     sync.Mutex
	buf    bytes.Buffer
	closed bool
}

func (c *fakeConn) Write(p []byte) (int, error) {
	c.mu.Lock()
	defer c.mu.Unlock()
	if c.closed {
		return 0, io.ErrClosedPipe
	}
	return c.buf.Write(p)
}

func (c *fakeConn) Close() error {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.closed = true
	return nil
}

func (c *fakeConn) String() string {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.buf.String()
}

func (c *fakeConn) IsClosed() bool {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.closed
}

func testLogger() *log.Logger {
	return log.New(io.Discard, "", 0)
}

func newTestSession(mm *matchmaker.Matchmaker, conn *fakeConn) *Session {
	return NewSession(conn, Deps{
		Matchmaker:  mm,
		LineLimiter: security.NewLineLimiter(100000),
		Metrics:     metrics.Nop{},
		Logger:      testLogger(),
		Supervisor: SupervisorConfig{
			Interval:   10 * time.Millisecond,
			WarnAfter:  50 * time.Millisecond,
			EvictAfter: 100 * time.Millisecond,
		},
	})
}
