// Package transport runs the SSH front end: it accepts raw TCP
// connections, performs the SSH handshake, and turns each session channel
// into a line-oriented stream handed off to a chat.Session.
package transport

import (
	"bufio"
	"context"
	"errors"
	"fmt"
	"log"
	"net"
	"strings"
	"sync"
	"time"

	"golang.org/x/crypto/ssh"

	"github.com/sirbread/termegle/internal/chat"
	"github.com/sirbread/termegle/internal/security"
)

// SessionFactory builds a new chat session for a freshly accepted SSH
// channel. conn is the raw channel the session renders frames to.
type SessionFactory func(conn ssh.Channel) *chat.Session

// Server accepts SSH connections and dispatches each to a chat.Session. No
// public-key or password callback is registered: termegle is an anonymous
// service, so any client that completes the SSH handshake is admitted,
// subject only to the connection-rate limiter.
type Server struct {
	listener    net.Listener
	sshConfig   *ssh.ServerConfig
	rateLimiter *security.SlidingLimiter
	newSession  SessionFactory
	logger      *log.Logger

	wg sync.WaitGroup
}

// New wraps an already-listening net.Listener with the SSH handshake and
// session wiring. hostKey must be loaded by the caller (see
// internal/hostkey).
func New(listener net.Listener, hostKey ssh.Signer, rateLimiter *security.SlidingLimiter, newSession SessionFactory, logger *log.Logger) *Server {
	cfg := &ssh.ServerConfig{
		NoClientAuth: true,
	}
	cfg.AddHostKey(hostKey)

	return &Server{
		listener:    listener,
		sshConfig:   cfg,
		rateLimiter: rateLimiter,
		newSession:  newSession,
		logger:      logger,
	}
}

// Serve accepts connections until ctx is cancelled or the listener errors.
func (s *Server) Serve(ctx context.Context) error {
	go func() {
		<-ctx.Done()
		s.listener.Close()
	}()

	for {
		nConn, err := s.listener.Accept()
		if err != nil {
			if ctx.Err() != nil {
				s.wg.Wait()
				return nil
			}
			var netErr net.Error
			if errors.As(err, &netErr) && netErr.Timeout() {
				continue
			}
			return fmt.Errorf("accept: %w", err)
		}

		if !s.admit(nConn) {
			continue
		}

		s.wg.Add(1)
		go func() {
			defer s.wg.Done()
			s.handleConn(ctx, nConn)
		}()
	}
}

func (s *Server) admit(nConn net.Conn) bool {
	key := remoteHost(nConn)
	if s.rateLimiter.Admit(key, time.Now()) {
		return true
	}
	s.logger.Printf("rate limit: rejecting connection from %s", key)
	nConn.Close()
	return false
}

func remoteHost(conn net.Conn) string {
	host, _, err := net.SplitHostPort(conn.RemoteAddr().String())
	if err != nil {
		return conn.RemoteAddr().String()
	}
	return host
}

func (s *Server) handleConn(ctx context.Context, nConn net.Conn) {
	sshConn, chans, reqs, err := ssh.NewServerConn(nConn, s.sshConfig)
	if err != nil {
		nConn.Close()
		return
	}
	defer sshConn.Close()

	go ssh.DiscardRequests(reqs)

	for newChannel := range chans {
		if newChannel.ChannelType() != "session" {
			newChannel.Reject(ssh.UnknownChannelType, "only session channels are supported")
			continue
		}

		channel, requests, err := newChannel.Accept()
		if err != nil {
			continue
		}

		s.wg.Add(1)
		go func() {
			defer s.wg.Done()
			s.handleSession(ctx, channel, requests)
		}()
	}
}

// handleSession services one session channel: it answers the handful of
// out-of-band requests a terminal client sends (pty-req, shell,
// window-change), then reads newline-delimited input until the channel
// closes.
func (s *Server) handleSession(ctx context.Context, channel ssh.Channel, requests <-chan *ssh.Request) {
	defer channel.Close()

	session := s.newSession(channel)

	done := make(chan struct{})
	go func() {
		defer close(done)
		session.Run(ctx)
	}()

	go s.serviceRequests(requests, session)

	reader := bufio.NewReader(channel)
	for {
		line, err := reader.ReadString('\n')
		if line != "" {
			session.PostLine(sanitizeLine(line))
		}
		if err != nil {
			session.PostClosed()
			break
		}
	}

	<-done
}

func sanitizeLine(line string) string {
	line = strings.TrimRight(line, "\r\n")
	return strings.ToValidUTF8(line, "")
}

// serviceRequests answers pty-req/shell/window-change and forwards resize
// notifications into the session's mailbox.
func (s *Server) serviceRequests(requests <-chan *ssh.Request, session *chat.Session) {
	for req := range requests {
		switch req.Type {
		case "pty-req":
			if height, ok := parsePtyHeight(req.Payload); ok {
				session.PostResize(height)
			}
			if req.WantReply {
				req.Reply(true, nil)
			}
		case "window-change":
			if height, ok := parseWindowChangeHeight(req.Payload); ok {
				session.PostResize(height)
			}
			if req.WantReply {
				req.Reply(true, nil)
			}
		case "shell":
			if req.WantReply {
				req.Reply(true, nil)
			}
		default:
			if req.WantReply {
				req.Reply(false, nil)
			}
		}
	}
}

// parsePtyHeight extracts rows from a pty-req payload:
// string(TERM) uint32(width) uint32(height) uint32(width-px) uint32(height-px) string(modes).
func parsePtyHeight(payload []byte) (int, bool) {
	if len(payload) < 4 {
		return 0, false
	}
	termLen := int(payload[3])
	rest := payload[4:]
	if len(rest) < termLen+8 {
		return 0, false
	}
	rest = rest[termLen:]
	height := int(uint32(rest[4])<<24 | uint32(rest[5])<<16 | uint32(rest[6])<<8 | uint32(rest[7]))
	if height <= 0 {
		return 0, false
	}
	return height, true
}

// parseWindowChangeHeight extracts rows from a window-change payload:
// uint32(width) uint32(height) uint32(width-px) uint32(height-px).
func parseWindowChangeHeight(payload []byte) (int, bool) {
	if len(payload) < 8 {
		return 0, false
	}
	height := int(uint32(payload[4])<<24 | uint32(payload[5])<<16 | uint32(payload[6])<<8 | uint32(payload[7]))
	if height <= 0 {
		return 0, false
	}
	return height, true
}
