package rules

import (
	"fmt"
	"net/netip"
	"sync"
	"time"

	"dnsgate/internal/dnsmsg"
)

// Maintainer is implemented by rules that accumulate state and want a
// periodic expiry pass driven from outside the hot path.
type Maintainer interface {
	Cleanup()
}

// TimedIPSetRule matches queries whose source address was explicitly added
// to the set and has not expired yet. Operators use it to temporarily single
// out clients, typically from an action on another chain.
type TimedIPSetRule struct {
	mu       sync.RWMutex
	deadline map[netip.Addr]time.Time
	clock    func() time.Time
}

func NewTimedIPSetRule() *TimedIPSetRule {
	return &TimedIPSetRule{
		deadline: make(map[netip.Addr]time.Time),
		clock:    time.Now,
	}
}

// Add inserts addr with a time-to-live.
func (r *TimedIPSetRule) Add(addr netip.Addr, ttl time.Duration) {
	r.mu.Lock()
	r.deadline[addr.Unmap()] = r.clock().Add(ttl)
	r.mu.Unlock()
}

// Cleanup drops expired entries.
func (r *TimedIPSetRule) Cleanup() {
	now := r.clock()
	r.mu.Lock()
	for addr, deadline := range r.deadline {
		if now.After(deadline) {
			delete(r.deadline, addr)
		}
	}
	r.mu.Unlock()
}

// Clear empties the set.
func (r *TimedIPSetRule) Clear() {
	r.mu.Lock()
	r.deadline = make(map[netip.Addr]time.Time)
	r.mu.Unlock()
}

func (r *TimedIPSetRule) Size() int {
	r.mu.RLock()
	defer r.mu.RUnlock()
	return len(r.deadline)
}

func (r *TimedIPSetRule) Matches(q *dnsmsg.Query) bool {
	addr := q.RemoteAddr()
	r.mu.RLock()
	deadline, ok := r.deadline[addr]
	r.mu.RUnlock()
	return ok && r.clock().Before(deadline)
}

func (r *TimedIPSetRule) String() string {
	return fmt.Sprintf("source IP in timed set of %d entries", r.Size())
}
