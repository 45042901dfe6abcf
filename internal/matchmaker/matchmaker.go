// Package matchmaker implements the pairing oracle that moves chat sessions
// between "waiting" and "paired", serialized behind a single mutex so the
// selection algorithm runs atomically with respect to every other
// matchmaker operation.
package matchmaker

import (
	"sort"
	"sync"
	"time"
)

// Peer identifies a waiting participant. In production this is always a
// *chat.Session; the matchmaker only ever compares identity, never
// dereferences it, so it stays decoupled from the chat package and tests
// can use any comparable value.
type Peer = any

// waitingEntry mirrors the spec's WaitingEntry: a peer, its declared
// interests, and the time it joined the queue.
type waitingEntry struct {
	peer        Peer
	interests   map[string]struct{}
	enqueueTime time.Time
	seq         uint64 // insertion order, breaks enqueueTime ties deterministically
}

// Matchmaker is the process-wide pairing singleton.
type Matchmaker struct {
	mu      sync.Mutex
	waiting map[Peer]*waitingEntry
	active  map[Peer]struct{}
	nextSeq uint64
}

// New creates an empty Matchmaker.
func New() *Matchmaker {
	return &Matchmaker{
		waiting: make(map[Peer]*waitingEntry),
		active:  make(map[Peer]struct{}),
	}
}

// Register adds peer to the active-user set. Idempotent.
func (m *Matchmaker) Register(peer Peer) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.active[peer] = struct{}{}
}

// Unregister removes peer from the active-user set. Idempotent.
func (m *Matchmaker) Unregister(peer Peer) {
	m.mu.Lock()
	defer m.mu.Unlock()
	delete(m.active, peer)
}

// Online returns the number of currently active (connected) sessions.
func (m *Matchmaker) Online() int {
	m.mu.Lock()
	defer m.mu.Unlock()
	return len(m.active)
}

// Waiting returns the number of sessions currently queued for a partner.
func (m *Matchmaker) Waiting() int {
	m.mu.Lock()
	defer m.mu.Unlock()
	return len(m.waiting)
}

// Cancel removes peer from the waiting set. It is a no-op for a peer that
// isn't waiting, so both connection-close and a user-initiated "next" can
// call it without coordinating with each other.
func (m *Matchmaker) Cancel(peer Peer) {
	m.mu.Lock()
	defer m.mu.Unlock()
	delete(m.waiting, peer)
}

// FindMatch runs the selection algorithm atomically:
//  1. Remove peer from waiting if it is already there (idempotent re-entry).
//  2. Interest-preferring pass: among waiters with a non-empty interest
//     intersection, pick the one with the smallest enqueueTime (ties by
//     insertion order).
//  3. FIFO fallback: otherwise pick the overall oldest waiter.
//  4. Otherwise enqueue peer and return no match.
//
// FindMatch never returns peer as its own partner (I3): peer is removed
// from waiting before either pass runs, so it can never be selected.
func (m *Matchmaker) FindMatch(peer Peer, interests map[string]struct{}) (partner Peer, commonInterests map[string]struct{}, found bool) {
	m.mu.Lock()
	defer m.mu.Unlock()

	delete(m.waiting, peer)

	if entry, common, ok := m.bestInterestMatch(interests); ok {
		delete(m.waiting, entry.peer)
		return entry.peer, common, true
	}

	if entry, ok := m.oldestWaiter(); ok {
		delete(m.waiting, entry.peer)
		return entry.peer, map[string]struct{}{}, true
	}

	m.nextSeq++
	m.waiting[peer] = &waitingEntry{
		peer:        peer,
		interests:   interests,
		enqueueTime: time.Now(),
		seq:         m.nextSeq,
	}

	return nil, nil, false
}

func (m *Matchmaker) bestInterestMatch(interests map[string]struct{}) (*waitingEntry, map[string]struct{}, bool) {
	var best *waitingEntry
	var bestCommon map[string]struct{}

	for _, entry := range m.waiting {
		common := intersect(interests, entry.interests)
		if len(common) == 0 {
			continue
		}
		if best == nil || isOlder(entry, best) {
			best = entry
			bestCommon = common
		}
	}

	if best == nil {
		return nil, nil, false
	}
	return best, bestCommon, true
}

func (m *Matchmaker) oldestWaiter() (*waitingEntry, bool) {
	var best *waitingEntry
	for _, entry := range m.waiting {
		if best == nil || isOlder(entry, best) {
			best = entry
		}
	}
	if best == nil {
		return nil, false
	}
	return best, true
}

func isOlder(a, b *waitingEntry) bool {
	if a.enqueueTime.Equal(b.enqueueTime) {
		return a.seq < b.seq
	}
	return a.enqueueTime.Before(b.enqueueTime)
}

func intersect(a, b map[string]struct{}) map[string]struct{} {
	if len(a) == 0 || len(b) == 0 {
		return nil
	}
	small, large := a, b
	if len(large) < len(small) {
		small, large = large, small
	}
	var out map[string]struct{}
	for k := range small {
		if _, ok := large[k]; ok {
			if out == nil {
				out = make(map[string]struct{})
			}
			out[k] = struct{}{}
		}
	}
	return out
}

// SortedInterests returns the interests in common in deterministic
// alphabetical order, for building the "you both like X, Y, and Z" notice.
func SortedInterests(common map[string]struct{}) []string {
	out := make([]string, 0, len(common))
	for k := range common {
		out = append(out, k)
	}
	sort.Strings(out)
	return out
}
