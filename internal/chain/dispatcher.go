package chain

import (
	"time"

	"dnsgate/internal/actions"
	"dnsgate/internal/dnsmsg"
	"dnsgate/internal/logger"
	"dnsgate/pkg/metrics"
)

// Dispatcher evaluates chains against query views on the hot path. It holds
// no per-query state and is shared by all workers.
type Dispatcher struct {
	log logger.Logger
}

func NewDispatcher(log logger.Logger) *Dispatcher {
	return &Dispatcher{log: log}
}

// Evaluate walks c's current snapshot in priority order. The first matching
// entry has its counter incremented and its action applied; the action's
// verdict decides whether the chain stops there or later entries are still
// consulted. Evaluation never fails and is always a bounded pass over the
// snapshot.
func (d *Dispatcher) Evaluate(c *Chain, q *dnsmsg.Query) actions.Verdict {
	start := time.Now()
	verdict := actions.VerdictNone

	for _, e := range c.Snapshot() {
		if !e.Rule.Matches(q) {
			continue
		}
		e.CountMatch()
		if v := e.Action.Apply(q); v != actions.VerdictNone {
			verdict = v
			break
		}
	}

	metrics.ChainEvaluationsTotal.WithLabelValues(c.Name(), verdict.String()).Inc()
	metrics.ObserveChainEvaluationDuration(c.Name(), time.Since(start))
	return verdict
}

// EvaluateResponse runs a response-side chain over a response view.
func (d *Dispatcher) EvaluateResponse(c *Chain, resp *dnsmsg.Response) actions.Verdict {
	return d.Evaluate(c, &resp.Query)
}
