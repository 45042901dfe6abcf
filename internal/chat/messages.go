package chat

import (
	"fmt"
	"strings"
	"time"
)

// Role identifies who a message is attributed to when rendered.
type Role int

const (
	RoleSystem Role = iota
	RoleMatched
	RoleStranger
	RoleYou
)

// Message is an append-only log entry. ShowTimestamp controls whether the
// rendered line is prefixed with its timestamp; entries that embed their
// own timestamp in Text (e.g. the save notice) set it to false.
type Message struct {
	Time          time.Time
	Role          Role
	Text          string
	ShowTimestamp bool
}

const timestampLayout = "[15:04]"

func (m Message) stamp() string {
	return m.Time.Format(timestampLayout)
}

// Exact notice text, grounded on the original implementation this spec was
// distilled from — these strings are part of the observable protocol
// (scenario assertions in spec.md §8 match them verbatim).
const (
	noticeFindingStranger = "finding you a stranger to chat with..."
	noticeStrangerGone    = "stranger disconnected."
	noticeInactivityGone  = "the stranger was disconnected for inactivity."
	noticeConnected       = "connected to a stranger!"
	noticeWaiting         = "waiting for connection..."
	noticeCommands        = "commands: 'save' to view full chat | 'next' for new stranger | 'quit' to exit"
	noticeFarewell        = "cya!"
	noticeWarn            = "you'll be disconnected in 1 minute due to inactivity."
	noticeEvicted         = "you were disconnected for being inactive for 5 minutes."
	rawFarewellLine       = "\r\ncya!\r\n"
	rawEvictedLine        = "\r\ninactivity timeout - disconnected.\r\n"
	saveUsageHint         = "Type 'back' to return to chat, or 'quit' to exit\r\n> "
	ruleWidth             = 78
	ruleGlyph             = "─"
)

func horizontalRule() string {
	return strings.Repeat(ruleGlyph, ruleWidth)
}

// onlineCountNotice reproduces the source's exact pluralization quirk:
// a lone user gets "(just you...)" rather than a dropped plural "s".
func onlineCountNotice(online int) string {
	if online == 1 {
		return "1 user (just you...) online right now"
	}
	return fmt.Sprintf("%d users online right now", online)
}

func chattedWithNotice(count int) string {
	if count == 1 {
		return "you've chatted with 1 stranger this session!"
	}
	return fmt.Sprintf("you've chatted with %d strangers this session!", count)
}

// interestsNotice formats "you both like X.", "X and Y.", or
// "X, Y, and Z." (oxford comma) from a sorted interest list.
func interestsNotice(sorted []string) string {
	switch len(sorted) {
	case 0:
		return ""
	case 1:
		return "you both like " + sorted[0] + "."
	case 2:
		return fmt.Sprintf("you both like %s and %s.", sorted[0], sorted[1])
	default:
		head := sorted[:len(sorted)-1]
		last := sorted[len(sorted)-1]
		return fmt.Sprintf("you both like %s, and %s.", strings.Join(head, ", "), last)
	}
}
