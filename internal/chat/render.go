package chat

import (
	"fmt"
	"strings"
	"time"
)

const (
	ansiClearHome = "\x1b[2J\x1b[H"
	ansiCyan      = "\x1b[36m"
	ansiYellow    = "\x1b[33m"
	ansiRed       = "\x1b[31m"
	ansiBlue      = "\x1b[34m"
	ansiReset     = "\x1b[0m"
)

const defaultVisibleLines = 20

// render redraws the whole screen from s.messages. The splash art is
// shown above the log only while unmatched; once paired, the art gives
// way to conversation history so the fixed-size terminal isn't wasted on
// it.
func (s *Session) render() {
	var b strings.Builder
	b.WriteString(ansiClearHome)

	if !s.matched {
		b.WriteString("\r\n")
		b.WriteString(s.art)
		b.WriteString("\r\n\r\n")
	}

	lines := defaultVisibleLines
	if s.visibleLinesSet {
		lines = s.visibleLines
	}

	msgs := s.messages
	if s.matched {
		msgs = filterNoise(msgs)
	}
	if len(msgs) > lines {
		msgs = msgs[len(msgs)-lines:]
	}

	rule := horizontalRule()
	for _, m := range msgs {
		if m.Role == RoleSystem && m.Text == rule && s.chatCount > 0 {
			b.WriteString(ansiCyan + chattedWithNotice(s.chatCount) + ansiReset + "\r\n")
		}
		b.WriteString(renderLine(m))
	}

	b.WriteString("\r\n> ")
	s.writeRaw(b.String())
}

func renderLine(m Message) string {
	switch m.Role {
	case RoleMatched:
		return ansiYellow + m.Text + ansiReset + "\r\n"
	case RoleStranger:
		return fmt.Sprintf("%s%s stranger: %s%s\r\n", ansiRed, m.stamp(), m.Text, ansiReset)
	case RoleYou:
		return fmt.Sprintf("%s%s you: %s%s\r\n", ansiBlue, m.stamp(), m.Text, ansiReset)
	default: // RoleSystem
		if m.ShowTimestamp {
			return fmt.Sprintf("%s%s %s%s\r\n", ansiCyan, m.stamp(), m.Text, ansiReset)
		}
		return ansiCyan + m.Text + ansiReset + "\r\n"
	}
}

// filterNoise drops the between-match housekeeping notices once a pairing
// is live, so a fresh partner doesn't see the previous search's chatter.
func filterNoise(msgs []Message) []Message {
	out := make([]Message, 0, len(msgs))
	for _, m := range msgs {
		if strings.Contains(m.Text, "online right now") {
			continue
		}
		switch m.Text {
		case noticeFindingStranger, noticeStrangerGone, noticeInactivityGone:
			continue
		}
		out = append(out, m)
	}
	return out
}

// showFullChat writes the entire, unfiltered transcript directly to the
// connection. It only reads s.messages; the one change entering save mode
// makes to the log is the "you saved the chat log" notice the caller
// appends afterwards, which shows up when returning to chat mode.
func (s *Session) showFullChat() {
	var b strings.Builder
	b.WriteString(ansiClearHome)
	bar := strings.Repeat("=", 60)

	b.WriteString(bar + "\r\n")
	b.WriteString("TERMEGLE CHAT LOG\r\n")
	b.WriteString(fmt.Sprintf("saved: %s\r\n", time.Now().UTC().Format("2006-01-02 15:04:05 UTC")))
	b.WriteString(fmt.Sprintf("total messages: %d\r\n", len(s.messages)))
	b.WriteString(bar + "\r\n\r\n")

	for _, m := range s.messages {
		label := roleLabel(m.Role)
		if m.ShowTimestamp {
			b.WriteString(fmt.Sprintf("%s %s %s\r\n", m.stamp(), label, m.Text))
		} else {
			b.WriteString(fmt.Sprintf("%s %s\r\n", label, m.Text))
		}
	}

	b.WriteString("\r\n" + bar + "\r\n")
	b.WriteString("end of chat log - select all and copy to save!\r\n")
	b.WriteString(bar + "\r\n\r\n")
	b.WriteString("type 'back' to return to chat, or 'quit' to exit\r\n")
	b.WriteString("> ")
	s.writeRaw(b.String())
}

func roleLabel(r Role) string {
	switch r {
	case RoleStranger:
		return "[STRANGER]"
	case RoleYou:
		return "[YOU]"
	default:
		return "[SYSTEM]"
	}
}
