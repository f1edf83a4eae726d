// Package actions holds the effects a matching rule can apply to a query or
// response view. Whether chain evaluation stops after a match is decided by
// the action's verdict, not by the chain: VerdictNone lets evaluation
// continue with the remaining entries.
package actions

import (
	"fmt"
	"strconv"

	"github.com/miekg/dns"

	"dnsgate/internal/dnsmsg"
)

// Verdict is an action's decision about the query's fate.
type Verdict int

const (
	// VerdictNone applies the action's side effect and keeps evaluating the
	// chain.
	VerdictNone Verdict = iota
	// VerdictAllow forwards the query without consulting further entries.
	VerdictAllow
	// VerdictDrop discards the query silently.
	VerdictDrop
	// VerdictPool routes the query to the server pool recorded on the view.
	VerdictPool
	// VerdictTruncate answers with the TC bit set.
	VerdictTruncate
	// VerdictAnswer answers the query locally with the message recorded on
	// the view.
	VerdictAnswer
)

func (v Verdict) String() string {
	switch v {
	case VerdictNone:
		return "none"
	case VerdictAllow:
		return "allow"
	case VerdictDrop:
		return "drop"
	case VerdictPool:
		return "pool"
	case VerdictTruncate:
		return "truncate"
	case VerdictAnswer:
		return "answer"
	}
	return "unknown"
}

// Action is the effect applied when a rule matches. Implementations must be
// safe for concurrent use and must complete in bounded time.
type Action interface {
	Apply(q *dnsmsg.Query) Verdict
	String() string
}

// NoneAction records nothing and lets the chain keep evaluating. Useful to
// count matches without affecting traffic.
type NoneAction struct{}

func (NoneAction) Apply(*dnsmsg.Query) Verdict { return VerdictNone }
func (NoneAction) String() string              { return "no op" }

// AllowAction stops the chain and forwards the query.
type AllowAction struct{}

func (AllowAction) Apply(*dnsmsg.Query) Verdict { return VerdictAllow }
func (AllowAction) String() string              { return "allow" }

// DropAction discards the query.
type DropAction struct{}

func (DropAction) Apply(*dnsmsg.Query) Verdict { return VerdictDrop }
func (DropAction) String() string              { return "drop" }

// PoolAction routes the query to a named server pool.
type PoolAction struct {
	pool string
}

func NewPoolAction(pool string) *PoolAction {
	return &PoolAction{pool: pool}
}

func (a *PoolAction) Apply(q *dnsmsg.Query) Verdict {
	q.Pool = a.pool
	return VerdictPool
}

func (a *PoolAction) String() string {
	return "to pool " + a.pool
}

// TCAction answers with a truncated response, pushing the client to retry
// over TCP.
type TCAction struct{}

func (TCAction) Apply(q *dnsmsg.Query) Verdict {
	if q.Msg != nil {
		q.Msg.Truncated = true
	}
	return VerdictTruncate
}

func (TCAction) String() string { return "tc=1 answer" }

// DelayAction postpones the response by a fixed amount and lets the chain
// keep evaluating.
type DelayAction struct {
	ms int
}

func NewDelayAction(ms int) *DelayAction {
	return &DelayAction{ms: ms}
}

func (a *DelayAction) Apply(q *dnsmsg.Query) Verdict {
	q.DelayMs = a.ms
	return VerdictNone
}

func (a *DelayAction) String() string {
	return "delay by " + strconv.Itoa(a.ms) + " ms"
}

// RCodeAction answers locally with the given response code.
type RCodeAction struct {
	rcode int
}

func NewRCodeAction(rcode int) *RCodeAction {
	return &RCodeAction{rcode: rcode}
}

func (a *RCodeAction) Apply(q *dnsmsg.Query) Verdict {
	if q.Msg != nil {
		q.Msg.Rcode = a.rcode
		q.Msg.Response = true
	}
	return VerdictAnswer
}

func (a *RCodeAction) String() string {
	if s, ok := dns.RcodeToString[a.rcode]; ok {
		return fmt.Sprintf("set rcode %d (%s)", a.rcode, s)
	}
	return fmt.Sprintf("set rcode %d", a.rcode)
}
