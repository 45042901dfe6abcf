// Package e2e drives a real termegle instance over a loopback TCP socket
// using golang.org/x/crypto/ssh in its ordinary client role, the same
// library the rest of the module uses server-side.
package e2e

import (
	"bufio"
	"context"
	"io"
	"log"
	"net"
	"path/filepath"
	"strings"
	"testing"
	"time"

	"github.com/stretchr/testify/require"
	"golang.org/x/crypto/ssh"

	"github.com/sirbread/termegle/internal/chat"
	"github.com/sirbread/termegle/internal/hostkey"
	"github.com/sirbread/termegle/internal/matchmaker"
	"github.com/sirbread/termegle/internal/metrics"
	"github.com/sirbread/termegle/internal/security"
	"github.com/sirbread/termegle/internal/transport"
)

// testServer boots a transport.Server on an ephemeral loopback port and
// returns its address; the server is stopped by a t.Cleanup hook.
func testServer(t *testing.T) string {
	t.Helper()

	signer, err := hostkey.LoadOrGenerate(filepath.Join(t.TempDir(), "host_key"))
	require.NoError(t, err)

	listener, err := net.Listen("tcp", "127.0.0.1:0")
	require.NoError(t, err)

	mm := matchmaker.New()
	lineLimiter := security.NewLineLimiter(100000)
	connLimiter := security.NewSlidingLimiter(1000, time.Minute)
	logger := log.New(io.Discard, "", 0)

	newSession := func(conn ssh.Channel) *chat.Session {
		return chat.NewSession(conn, chat.Deps{
			Matchmaker:  mm,
			LineLimiter: lineLimiter,
			Metrics:     metrics.Nop{},
			Logger:      logger,
			Supervisor: chat.SupervisorConfig{
				Interval:   time.Minute,
				WarnAfter:  time.Hour,
				EvictAfter: 2 * time.Hour,
			},
		})
	}

	srv := transport.New(listener, signer, connLimiter, newSession, logger)

	ctx, cancel := context.WithCancel(context.Background())
	go srv.Serve(ctx)
	t.Cleanup(cancel)

	return listener.Addr().String()
}

func dial(t *testing.T, addr string) *ssh.Client {
	t.Helper()
	cfg := &ssh.ClientConfig{
		User:            "anon",
		HostKeyCallback: ssh.InsecureIgnoreHostKey(),
		Timeout:         5 * time.Second,
	}
	client, err := ssh.Dial("tcp", addr, cfg)
	require.NoError(t, err)
	t.Cleanup(func() { client.Close() })
	return client
}

// shellClient wraps an ssh.Session with a pty and a shell request, the
// same handshake a real terminal client performs.
type shellClient struct {
	session *ssh.Session
	stdin   *bufio.Writer
	stdout  *bufio.Reader
}

func newShellClient(t *testing.T, client *ssh.Client) *shellClient {
	t.Helper()
	session, err := client.NewSession()
	require.NoError(t, err)
	t.Cleanup(func() { session.Close() })

	require.NoError(t, session.RequestPty("xterm", 40, 100, ssh.TerminalModes{}))

	stdin, err := session.StdinPipe()
	require.NoError(t, err)
	stdout, err := session.StdoutPipe()
	require.NoError(t, err)

	require.NoError(t, session.Shell())

	return &shellClient{session: session, stdin: bufio.NewWriter(stdin), stdout: bufio.NewReader(stdout)}
}

func (c *shellClient) sendLine(line string) {
	c.stdin.WriteString(line + "\n")
	c.stdin.Flush()
}

// readUntil accumulates stdout until substr appears, failing the test on
// timeout.
func (c *shellClient) readUntil(t *testing.T, substr string, timeout time.Duration) string {
	t.Helper()
	var got strings.Builder
	deadline := time.Now().Add(timeout)
	buf := make([]byte, 4096)

	type result struct {
		n   int
		err error
	}
	for time.Now().Before(deadline) {
		ch := make(chan result, 1)
		go func() {
			n, err := c.stdout.Read(buf)
			ch <- result{n, err}
		}()
		select {
		case r := <-ch:
			if r.n > 0 {
				got.Write(buf[:r.n])
				if strings.Contains(got.String(), substr) {
					return got.String()
				}
			}
			if r.err != nil {
				t.Fatalf("read error waiting for %q: %v (got so far: %q)", substr, r.err, got.String())
			}
		case <-time.After(timeout):
			t.Fatalf("timed out waiting for %q (got so far: %q)", substr, got.String())
		}
	}
	t.Fatalf("timed out waiting for %q (got so far: %q)", substr, got.String())
	return ""
}

// TestE2E_HandshakeAndInterestsPrompt verifies a real SSH client can
// complete the handshake, open a shell channel, and receive the interests
// prompt without any authentication.
func TestE2E_HandshakeAndInterestsPrompt(t *testing.T) {
	addr := testServer(t)
	client := dial(t, addr)
	shell := newShellClient(t, client)

	shell.readUntil(t, "what are your interests?", 5*time.Second)
}

// TestE2E_TwoClientsPair drives two independent SSH connections through a
// full pairing and chat exchange.
func TestE2E_TwoClientsPair(t *testing.T) {
	addr := testServer(t)

	a := newShellClient(t, dial(t, addr))
	b := newShellClient(t, dial(t, addr))

	a.readUntil(t, "what are your interests?", 5*time.Second)
	b.readUntil(t, "what are your interests?", 5*time.Second)

	a.sendLine("chess")
	b.sendLine("chess")

	a.readUntil(t, "connected to a stranger!", 5*time.Second)
	b.readUntil(t, "connected to a stranger!", 5*time.Second)

	a.sendLine("hello from a")
	b.readUntil(t, "stranger: hello from a", 5*time.Second)
}
