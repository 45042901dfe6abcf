package chat

import (
	"context"
	"io"
	"log"
	"strings"
	"sync"
	"time"

	"github.com/google/uuid"

	"github.com/sirbread/termegle/internal/matchmaker"
	"github.com/sirbread/termegle/internal/metrics"
	"github.com/sirbread/termegle/internal/security"
)

// Mode is the state a session's input is interpreted under.
type Mode int

const (
	ModeAwaitingInterests Mode = iota
	ModeChatting
	ModeSaveView
)

const mailboxCapacity = 32

// SupervisorConfig controls the inactivity supervisor's cadence.
type SupervisorConfig struct {
	Interval   time.Duration
	WarnAfter  time.Duration
	EvictAfter time.Duration
}

// Deps bundles a session's collaborators so construction sites don't have
// to thread five separate constructor arguments.
type Deps struct {
	Matchmaker  *matchmaker.Matchmaker
	LineLimiter *security.LineLimiter
	Metrics     metrics.Recorder
	Logger      *log.Logger
	Supervisor  SupervisorConfig
}

// Session owns one connected participant's entire protocol state. Every
// field below this point is touched only by the goroutine running Run — a
// cross-session action is always a mailbox send into the target session's
// own loop, never a direct field mutation. The two exceptions are
// lastActive and done, which the supervisor goroutine also reads.
type Session struct {
	id   uuid.UUID
	conn io.WriteCloser
	art  string

	mm          *matchmaker.Matchmaker
	lineLimiter *security.LineLimiter
	metrics     metrics.Recorder
	logger      *log.Logger
	supCfg      SupervisorConfig

	mailbox chan any
	done    chan struct{}
	runCtx  context.Context

	activeMu   sync.Mutex
	lastActive time.Time

	// Owning-goroutine-only state.
	mode            Mode
	partner         *Session
	matched         bool
	interests       map[string]struct{}
	messages        []Message
	chatCount       int
	terminalHeight  int
	visibleLines    int
	visibleLinesSet bool
	supervisorOn    bool
	finalized       bool
}

// NewSession constructs a session for a freshly accepted connection. conn
// is the raw channel the transport layer writes rendered frames to; Run
// must be called exactly once, from its own goroutine.
func NewSession(conn io.WriteCloser, deps Deps) *Session {
	return &Session{
		id:          uuid.New(),
		conn:        conn,
		art:         RandomArt(),
		mm:          deps.Matchmaker,
		lineLimiter: deps.LineLimiter,
		metrics:     deps.Metrics,
		logger:      deps.Logger,
		supCfg:      deps.Supervisor,
		mailbox:     make(chan any, mailboxCapacity),
		done:        make(chan struct{}),
		mode:        ModeAwaitingInterests,
	}
}

// ID returns the session's opaque identity, used only for logging and as
// the key into the line limiter — never for addressing.
func (s *Session) ID() uuid.UUID { return s.id }

// Mailbox events. Each is posted either by the transport goroutine reading
// this session's input (first-party, via send), by the supervisor
// goroutine (also first-party), or by another Session's own loop
// goroutine acting on its partner (cross-session, via sendNonBlocking).
type lineEvent struct{ text string }
type resizeEvent struct{ height int }
type closedEvent struct{}
type warnTickEvent struct{}
type evictTickEvent struct{}
// peerMessageEvent, peerSavedEvent, and peerDisconnectedEvent each carry
// from, the sender's identity, so the receiver can reject one that arrives
// from a session that is no longer its current partner — an ordinary race
// between a locally-initiated "next"/quit and an in-flight event from the
// about-to-be-former partner would otherwise let a stale message or
// disconnect notice apply against a newly-established pairing.
type peerMessageEvent struct {
	from *Session
	text string
}
type peerSavedEvent struct {
	from  *Session
	stamp string
}
type peerDisconnectedEvent struct {
	from   *Session
	reason string
}
type pairedEvent struct {
	with   *Session
	common map[string]struct{}
}

// PostLine delivers one line of input read from the transport.
func (s *Session) PostLine(text string) { s.send(lineEvent{text}) }

// PostResize delivers a pty window-change notification.
func (s *Session) PostResize(height int) { s.send(resizeEvent{height}) }

// PostClosed tells the session its transport connection is gone.
func (s *Session) PostClosed() { s.send(closedEvent{}) }

// send delivers a first-party event, blocking until accepted or the
// session finalizes — used by the transport reader and the supervisor,
// both of which only ever produce into this session's own mailbox.
func (s *Session) send(ev any) {
	select {
	case s.mailbox <- ev:
	case <-s.done:
	}
}

// sendNonBlocking delivers a cross-session event without ever blocking the
// caller (another session's own loop goroutine), so a congested or dying
// partner can never stall the sender.
func (s *Session) sendNonBlocking(ev any) {
	select {
	case s.mailbox <- ev:
	default:
	}
}

// Run is the session's event loop. It registers with the matchmaker,
// shows the splash screen, and then services its mailbox until the
// session finalizes or ctx is cancelled (server shutdown).
func (s *Session) Run(ctx context.Context) {
	s.runCtx = ctx
	s.touch()
	s.mm.Register(s)
	s.metrics.SetOnline(s.mm.Online())
	s.writeRaw(s.initialScreen())

	for {
		select {
		case <-ctx.Done():
			s.finalize("", noticeStrangerGone)
			return
		case ev := <-s.mailbox:
			s.dispatch(ev)
			if s.finalized {
				return
			}
		}
	}
}

// dispatch handles one mailbox event. A panic here is logged and the
// session keeps running — the alternative is an unrecovered panic that
// would crash the whole process, since this runs on its own goroutine.
func (s *Session) dispatch(ev any) {
	defer func() {
		if r := recover(); r != nil {
			s.logger.Printf("session %s: recovered handling %T: %v", s.id, ev, r)
		}
	}()

	switch e := ev.(type) {
	case lineEvent:
		s.metrics.IncLine()
		s.handleLine(e.text)
	case resizeEvent:
		s.handleResize(e.height)
	case closedEvent:
		s.finalize("", noticeStrangerGone)
	case warnTickEvent:
		s.appendMessage(RoleSystem, noticeWarn, false)
		s.render()
	case evictTickEvent:
		s.appendMessage(RoleSystem, noticeEvicted, false)
		s.render()
		s.metrics.IncEviction()
		s.finalize(rawEvictedLine, noticeInactivityGone)
	case peerMessageEvent:
		if s.partner != e.from {
			return
		}
		s.appendMessage(RoleStranger, e.text, true)
		s.render()
	case peerSavedEvent:
		if s.partner != e.from {
			return
		}
		s.appendMessage(RoleSystem, "the stranger saved the chat log.", false)
		s.render()
	case peerDisconnectedEvent:
		if !s.matched || s.partner != e.from {
			return
		}
		s.clearChatAndReset(e.reason)
		s.render()
		s.matchUser()
	case pairedEvent:
		s.partner = e.with
		s.matched = true
		s.chatCount++
		if len(e.common) > 0 {
			s.appendMessage(RoleMatched, interestsNotice(matchmaker.SortedInterests(e.common)), false)
		}
		s.appendMessage(RoleMatched, noticeConnected, false)
		s.render()
	}
}

func (s *Session) handleResize(height int) {
	if height <= 0 {
		height = 24
	}
	s.terminalHeight = height
	s.visibleLines = max(5, height-18)
	s.visibleLinesSet = true
	if s.mode == ModeChatting {
		s.render()
	}
}

// matchUser asks the matchmaker for a partner. On a hit it pairs both
// sides; the caller's own state updates immediately, and the partner
// learns about the pairing asynchronously through its own mailbox since
// its fields belong to its own goroutine.
func (s *Session) matchUser() {
	partnerAny, common, found := s.mm.FindMatch(s, s.interests)
	s.metrics.SetWaiting(s.mm.Waiting())
	if !found {
		return
	}
	partner := partnerAny.(*Session)

	s.partner = partner
	s.matched = true
	s.chatCount++
	s.appendMessage(RoleMatched, noticeConnected, false)
	if len(common) > 0 {
		s.appendMessage(RoleMatched, interestsNotice(matchmaker.SortedInterests(common)), false)
	}
	s.render()
	s.metrics.IncPairing()

	partner.sendNonBlocking(pairedEvent{with: s, common: common})
}

// detachPartner severs the local side of a pairing and notifies the
// partner's own loop so it can reset itself. A no-op if unpaired.
func (s *Session) detachPartner(reason string) {
	if s.partner == nil {
		return
	}
	p := s.partner
	s.partner = nil
	s.matched = false
	p.sendNonBlocking(peerDisconnectedEvent{from: s, reason: reason})
}

// clearChatAndReset rebuilds the message log from scratch the way a fresh
// "looking for a stranger" screen would, so repeated calls are idempotent.
func (s *Session) clearChatAndReset(reason string) {
	s.messages = nil
	s.appendMessage(RoleSystem, onlineCountNotice(s.mm.Online()), false)
	s.appendMessage(RoleMatched, reason, false)
	s.appendMessage(RoleSystem, noticeFindingStranger, false)
	s.appendMessage(RoleSystem, noticeCommands, false)
	s.appendMessage(RoleSystem, horizontalRule(), false)
	s.matched = false
	s.partner = nil
}

// finalize is the single idempotent teardown path shared by quit, a
// transport close, and supervisor eviction. rawLine, if non-empty, is
// written directly to the connection before it is closed.
func (s *Session) finalize(rawLine, partnerReason string) {
	if s.finalized {
		return
	}
	s.finalized = true
	close(s.done)

	s.mm.Cancel(s)
	s.mm.Unregister(s)
	s.metrics.SetOnline(s.mm.Online())
	s.metrics.SetWaiting(s.mm.Waiting())
	s.lineLimiter.Forget(s.id.String())

	s.detachPartner(partnerReason)

	if rawLine != "" {
		s.writeRaw(rawLine)
	}
	_ = s.conn.Close()
}

func (s *Session) appendMessage(role Role, text string, showTimestamp bool) {
	s.messages = append(s.messages, Message{
		Time:          time.Now(),
		Role:          role,
		Text:          text,
		ShowTimestamp: showTimestamp,
	})
}

func (s *Session) writeRaw(text string) {
	if _, err := io.WriteString(s.conn, text); err != nil {
		s.logger.Printf("session %s: write error: %v", s.id, err)
	}
}

// lastActiveAt and touch are the two operations the supervisor goroutine
// and this session's own goroutine both perform, so the value is kept
// behind a mutex rather than round-tripped through an int64 — time.Now()
// carries a monotonic reading that a stored/reloaded int64 would lose,
// and time.Since on a wall-clock-only value is vulnerable to clock jumps.
func (s *Session) lastActiveAt() time.Time {
	s.activeMu.Lock()
	defer s.activeMu.Unlock()
	return s.lastActive
}

func (s *Session) touch() {
	s.activeMu.Lock()
	s.lastActive = time.Now()
	s.activeMu.Unlock()
}

func (s *Session) initialScreen() string {
	var b strings.Builder
	b.WriteString(ansiClearHome)
	b.WriteString("\r\n")
	b.WriteString(s.art)
	b.WriteString("\r\n\r\n")
	b.WriteString(ansiCyan + "what are your interests? enter to skip (separate with commas)" + ansiReset + "\r\n")
	b.WriteString(ansiCyan + "example: gaming, sports, pb and j" + ansiReset + "\r\n\r\n")
	b.WriteString("> ")
	return b.String()
}
