package rules

import (
	"fmt"

	"golang.org/x/time/rate"

	"dnsgate/internal/dnsmsg"
)

// MaxQPSRule matches once the overall query rate exceeds the configured
// limit, regardless of source. It consumes one token per evaluation and
// matches when the bucket is empty, so matching entries are the ones above
// the allowed rate.
type MaxQPSRule struct {
	qps     int
	burst   int
	limiter *rate.Limiter
}

func NewMaxQPSRule(qps int, burst int) *MaxQPSRule {
	if burst <= 0 {
		burst = qps
	}
	return &MaxQPSRule{
		qps:     qps,
		burst:   burst,
		limiter: rate.NewLimiter(rate.Limit(qps), burst),
	}
}

func (r *MaxQPSRule) Matches(*dnsmsg.Query) bool {
	return !r.limiter.Allow()
}

func (r *MaxQPSRule) String() string {
	return fmt.Sprintf("query rate > %d qps (burst %d)", r.qps, r.burst)
}
