package rules

import (
	"fmt"
	"hash/fnv"
	"net/netip"
	"sync"
	"sync/atomic"
	"time"

	"dnsgate/internal/dnsmsg"
	"dnsgate/pkg/metrics"
)

const qpsShardCount = 32

// MaxQPSIPConfig configures the per-source limiter. Zero values fall back to
// the defaults listed on each field.
type MaxQPSIPConfig struct {
	// QPS is the sustained allowed rate per source. Required.
	QPS uint32
	// Burst is the maximum number of queries allowed inside one window.
	// Defaults to QPS.
	Burst uint32
	// IPv4PrefixLen and IPv6PrefixLen set the truncation applied to source
	// addresses before accounting, so limits can apply per subnet.
	// Defaults 32 and 64.
	IPv4PrefixLen int
	IPv6PrefixLen int
	// Window is the accounting window. Defaults to one second.
	Window time.Duration
	// Expiration is the inactivity period after which a source's counter is
	// discarded. Default 300s.
	Expiration time.Duration
	// CleanupInterval is the minimum spacing between sweep passes.
	// Default 60s.
	CleanupInterval time.Duration
	// ScanFraction bounds each sweep pass to roughly 1/ScanFraction of the
	// tracked sources. Default 10.
	ScanFraction int

	// Clock overrides the time source, for tests.
	Clock func() time.Time
}

func (c *MaxQPSIPConfig) applyDefaults() {
	if c.Burst == 0 {
		c.Burst = c.QPS
	}
	if c.IPv4PrefixLen == 0 {
		c.IPv4PrefixLen = 32
	}
	if c.IPv6PrefixLen == 0 {
		c.IPv6PrefixLen = 64
	}
	if c.Window == 0 {
		c.Window = time.Second
	}
	if c.Expiration == 0 {
		c.Expiration = 300 * time.Second
	}
	if c.CleanupInterval == 0 {
		c.CleanupInterval = 60 * time.Second
	}
	if c.ScanFraction == 0 {
		c.ScanFraction = 10
	}
	if c.Clock == nil {
		c.Clock = time.Now
	}
}

type sourceCounter struct {
	count       uint32
	windowStart time.Time
	lastSeen    time.Time
}

type qpsShard struct {
	mu      sync.Mutex
	entries map[netip.Addr]*sourceCounter
}

// MaxQPSIPRule matches queries from sources exceeding their per-source rate
// budget. Its table is mutated on the hot path by concurrent evaluation
// workers; it is sharded so that unrelated sources rarely contend, and stale
// sources are aged out by partial sweeps amortized across evaluations.
type MaxQPSIPRule struct {
	cfg       MaxQPSIPConfig
	shards    [qpsShardCount]qpsShard
	lastSweep atomic.Int64
}

func NewMaxQPSIPRule(cfg MaxQPSIPConfig) *MaxQPSIPRule {
	cfg.applyDefaults()
	r := &MaxQPSIPRule{cfg: cfg}
	for i := range r.shards {
		r.shards[i].entries = make(map[netip.Addr]*sourceCounter)
	}
	r.lastSweep.Store(cfg.Clock().UnixNano())
	return r
}

// sourceKey truncates the source address to the configured prefix length.
func (r *MaxQPSIPRule) sourceKey(addr netip.Addr) (netip.Addr, bool) {
	if !addr.IsValid() {
		return netip.Addr{}, false
	}
	bits := r.cfg.IPv6PrefixLen
	if addr.Is4() {
		bits = r.cfg.IPv4PrefixLen
	}
	prefix, err := addr.Prefix(bits)
	if err != nil {
		return netip.Addr{}, false
	}
	return prefix.Addr(), true
}

func (r *MaxQPSIPRule) shardFor(key netip.Addr) *qpsShard {
	h := fnv.New32a()
	b := key.As16()
	h.Write(b[:])
	return &r.shards[h.Sum32()%qpsShardCount]
}

func (r *MaxQPSIPRule) Matches(q *dnsmsg.Query) bool {
	now := r.cfg.Clock()
	r.maybeSweep(now)

	key, ok := r.sourceKey(q.RemoteAddr())
	if !ok {
		return false
	}

	shard := r.shardFor(key)
	shard.mu.Lock()
	defer shard.mu.Unlock()

	counter, ok := shard.entries[key]
	if !ok {
		counter = &sourceCounter{windowStart: now}
		shard.entries[key] = counter
	}
	if now.Sub(counter.windowStart) >= r.cfg.Window {
		counter.count = 0
		counter.windowStart = now
	}
	counter.lastSeen = now

	if counter.count >= r.cfg.Burst {
		// Over budget. The stored count stays clamped at the burst value.
		metrics.RateLimitDropsTotal.Inc()
		return true
	}
	counter.count++
	return false
}

// maybeSweep runs one partial sweep pass if enough time has elapsed since
// the previous one. The CAS makes sure only one evaluation worker pays the
// sweep cost per interval.
func (r *MaxQPSIPRule) maybeSweep(now time.Time) {
	last := r.lastSweep.Load()
	if now.UnixNano()-last < int64(r.cfg.CleanupInterval) {
		return
	}
	if !r.lastSweep.CompareAndSwap(last, now.UnixNano()) {
		return
	}
	r.sweep(now)
}

// sweep examines roughly 1/ScanFraction of each shard's entries and removes
// those idle longer than the expiration. A shard held by a concurrent
// increment is skipped and retried on the next pass rather than waited for.
func (r *MaxQPSIPRule) sweep(now time.Time) {
	var remaining int
	for i := range r.shards {
		shard := &r.shards[i]
		if !shard.mu.TryLock() {
			continue
		}

		budget := len(shard.entries)/r.cfg.ScanFraction + 1
		for key, counter := range shard.entries {
			if budget == 0 {
				break
			}
			budget--
			if now.Sub(counter.lastSeen) > r.cfg.Expiration {
				delete(shard.entries, key)
			}
		}
		remaining += len(shard.entries)
		shard.mu.Unlock()
	}
	metrics.RateLimitSourcesTracked.Set(float64(remaining))
}

// Size returns the number of sources currently tracked.
func (r *MaxQPSIPRule) Size() int {
	var total int
	for i := range r.shards {
		shard := &r.shards[i]
		shard.mu.Lock()
		total += len(shard.entries)
		shard.mu.Unlock()
	}
	return total
}

func (r *MaxQPSIPRule) String() string {
	return fmt.Sprintf("IP (/%d, /%d) > %d qps (burst %d)",
		r.cfg.IPv4PrefixLen, r.cfg.IPv6PrefixLen, r.cfg.QPS, r.cfg.Burst)
}
