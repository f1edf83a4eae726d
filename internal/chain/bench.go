package chain

import (
	"fmt"
	"math/rand"
	"net/netip"
	"strconv"
	"time"

	"github.com/miekg/dns"

	"dnsgate/internal/constants"
	"dnsgate/internal/dnsmsg"
	"dnsgate/internal/rules"
)

const (
	benchPoolSize = 1000
	// benchDefaultSuffix is appended to the randomized names of the
	// synthetic query pool.
	benchDefaultSuffix = "example.com."
)

// BenchResult reports the outcome of one benchmark run.
type BenchResult struct {
	Matches int           `json:"matches"`
	Times   int           `json:"times"`
	Elapsed time.Duration `json:"elapsed"`
	// Rate is evaluations per second.
	Rate float64 `json:"rate"`
}

func (r BenchResult) String() string {
	return fmt.Sprintf("Had %d matches out of %d, %.1f qps, in %.1f usec",
		r.Matches, r.Times, r.Rate, float64(r.Elapsed.Microseconds()))
}

// BenchRule evaluates rule against a pool of synthetic queries with
// randomized names, types and source addresses, cycling through the pool for
// the requested number of repetitions. It is an operational self-test for
// sizing rules, not a correctness path.
func BenchRule(rule rules.Rule, times int, suffix string) BenchResult {
	if times <= 0 {
		times = constants.DefaultBenchTimes
	}
	if suffix == "" {
		suffix = benchDefaultSuffix
	}
	suffix = dns.Fqdn(suffix)

	pool := make([]*dnsmsg.Query, benchPoolSize)
	for i := range pool {
		msg := new(dns.Msg)
		msg.SetQuestion(strconv.Itoa(rand.Int())+"."+suffix, uint16(rand.Intn(0xff)))

		addr := rand.Uint32()
		raw := [4]byte{byte(addr >> 24), byte(addr >> 16), byte(addr >> 8), byte(addr)}
		remote := netip.AddrPortFrom(netip.AddrFrom4(raw), 53)
		local := netip.AddrPortFrom(netip.MustParseAddr("127.0.0.1"), 53)

		pool[i] = dnsmsg.NewQuery(msg, remote, local, dnsmsg.ProtoUDP)
	}

	matches := 0
	start := time.Now()
	for n := 0; n < times; n++ {
		if rule.Matches(pool[n%len(pool)]) {
			matches++
		}
	}
	elapsed := time.Since(start)

	rate := 0.0
	if elapsed > 0 {
		rate = float64(times) / elapsed.Seconds()
	}
	return BenchResult{
		Matches: matches,
		Times:   times,
		Elapsed: elapsed,
		Rate:    rate,
	}
}
