package chat

import (
	"fmt"
	"strings"
	"time"
)

// handleLine dispatches one trimmed line of input according to the
// session's current mode. Empty lines are ignored everywhere except
// ModeAwaitingInterests, where a blank line is a valid "no interests"
// answer.
func (s *Session) handleLine(raw string) {
	trimmed := strings.TrimSpace(raw)

	if s.mode == ModeAwaitingInterests {
		s.onAwaitingInterests(trimmed)
		return
	}

	if trimmed == "" {
		return
	}
	s.touch()

	if err := s.lineLimiter.Allow(s.id.String()); err != nil {
		s.metrics.IncRateLimited()
		s.appendMessage(RoleSystem, "you're sending messages too fast, slow down.", true)
		s.render()
		return
	}

	lower := strings.ToLower(trimmed)

	if lower == "quit" {
		if s.mode != ModeSaveView {
			s.appendMessage(RoleSystem, noticeFarewell, true)
			s.render()
		}
		s.finalize(rawFarewellLine, noticeStrangerGone)
		return
	}

	switch s.mode {
	case ModeSaveView:
		s.onSaveView(lower)
	case ModeChatting:
		s.onChatting(lower, trimmed)
	}
}

func (s *Session) onAwaitingInterests(trimmed string) {
	s.touch()
	s.interests = parseInterests(trimmed)
	s.mode = ModeChatting

	s.appendMessage(RoleSystem, onlineCountNotice(s.mm.Online()), false)
	s.appendMessage(RoleSystem, noticeFindingStranger, false)
	s.appendMessage(RoleSystem, noticeCommands, false)
	s.appendMessage(RoleSystem, horizontalRule(), false)
	s.render()

	s.matchUser()

	if !s.supervisorOn {
		s.supervisorOn = true
		go s.runSupervisor(s.runCtx)
	}
}

func (s *Session) onChatting(lower, trimmed string) {
	switch lower {
	case "next":
		s.detachPartner(noticeStrangerGone)
		s.clearChatAndReset(noticeStrangerGone)
		s.render()
		s.matchUser()
	case "save":
		s.mode = ModeSaveView
		s.showFullChat()
		stamp := time.Now().Format(timestampLayout)
		s.appendMessage(RoleSystem, fmt.Sprintf("%s you saved the chat log. (stranger can see this)", stamp), false)
		if s.partner != nil {
			s.partner.sendNonBlocking(peerSavedEvent{from: s, stamp: stamp})
		}
	case "back":
		// Only meaningful from ModeSaveView; ignored here.
	default:
		if s.partner != nil {
			s.appendMessage(RoleYou, trimmed, true)
			s.render()
			s.partner.sendNonBlocking(peerMessageEvent{from: s, text: trimmed})
		} else {
			s.appendMessage(RoleSystem, noticeWaiting, true)
			s.render()
		}
	}
}

func (s *Session) onSaveView(lower string) {
	switch lower {
	case "back":
		s.mode = ModeChatting
		s.render()
	default:
		s.writeRaw(saveUsageHint)
	}
}

// parseInterests lowercases and trims a comma-separated interest list. A
// blank input yields an empty, non-nil set.
func parseInterests(trimmed string) map[string]struct{} {
	out := make(map[string]struct{})
	if trimmed == "" {
		return out
	}
	for _, part := range strings.Split(trimmed, ",") {
		v := strings.ToLower(strings.TrimSpace(part))
		if v != "" {
			out[v] = struct{}{}
		}
	}
	return out
}
