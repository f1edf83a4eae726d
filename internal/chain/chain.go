package chain

import (
	"slices"
	"sync"
	"sync/atomic"

	"dnsgate/pkg/metrics"
)

// Chain is an ordered sequence of entries evaluated in priority order, with
// copy-on-write publication. Readers obtain the current snapshot with a
// single atomic load and may iterate it for as long as they like; writers
// build a full replacement privately and publish it in one atomic swap.
// Writers serialize among themselves on a per-chain mutex; they never block
// readers.
type Chain struct {
	name string

	writeMu sync.Mutex
	current atomic.Pointer[[]*Entry]
}

func New(name string) *Chain {
	c := &Chain{name: name}
	empty := make([]*Entry, 0)
	c.current.Store(&empty)
	return c
}

func (c *Chain) Name() string {
	return c.name
}

// Snapshot returns the current entry sequence. The returned slice is
// immutable: callers must not modify it. It stays valid and internally
// consistent even after later mutations publish a newer snapshot.
func (c *Chain) Snapshot() []*Entry {
	return *c.current.Load()
}

func (c *Chain) Len() int {
	return len(c.Snapshot())
}

// modify applies transform to a private copy of the current sequence and
// publishes the result. The transform receives an owned copy and may edit
// it freely; returning nil publishes an empty chain.
func (c *Chain) modify(transform func(entries []*Entry) []*Entry) {
	c.writeMu.Lock()
	defer c.writeMu.Unlock()

	entries := transform(slices.Clone(*c.current.Load()))
	if entries == nil {
		entries = make([]*Entry, 0)
	}
	c.current.Store(&entries)
	metrics.ChainEntries.WithLabelValues(c.name).Set(float64(len(entries)))
}
