package actions

import (
	"net/netip"
	"testing"

	"github.com/miekg/dns"
	"github.com/stretchr/testify/assert"

	"dnsgate/internal/dnsmsg"
)

func newQuery(t *testing.T) *dnsmsg.Query {
	t.Helper()
	msg := new(dns.Msg)
	msg.SetQuestion("example.com.", dns.TypeA)
	return dnsmsg.NewQuery(msg,
		netip.MustParseAddrPort("192.0.2.10:4242"),
		netip.MustParseAddrPort("198.51.100.53:53"),
		dnsmsg.ProtoUDP)
}

func TestTerminalActions(t *testing.T) {
	q := newQuery(t)

	assert.Equal(t, VerdictNone, NoneAction{}.Apply(q))
	assert.Equal(t, VerdictAllow, AllowAction{}.Apply(q))
	assert.Equal(t, VerdictDrop, DropAction{}.Apply(q))
}

func TestPoolAction(t *testing.T) {
	q := newQuery(t)
	a := NewPoolAction("abuse")

	assert.Equal(t, VerdictPool, a.Apply(q))
	assert.Equal(t, "abuse", q.Pool)
	assert.Equal(t, "to pool abuse", a.String())
}

func TestTCAction(t *testing.T) {
	q := newQuery(t)
	assert.Equal(t, VerdictTruncate, TCAction{}.Apply(q))
	assert.True(t, q.Msg.Truncated)
}

func TestDelayAction(t *testing.T) {
	q := newQuery(t)
	a := NewDelayAction(500)

	// Delay is a side effect, not a decision: the chain keeps going.
	assert.Equal(t, VerdictNone, a.Apply(q))
	assert.Equal(t, 500, q.DelayMs)
	assert.Equal(t, "delay by 500 ms", a.String())
}

func TestRCodeAction(t *testing.T) {
	q := newQuery(t)
	a := NewRCodeAction(dns.RcodeRefused)

	assert.Equal(t, VerdictAnswer, a.Apply(q))
	assert.Equal(t, dns.RcodeRefused, q.Msg.Rcode)
	assert.True(t, q.Msg.Response)
	assert.Equal(t, "set rcode 5 (REFUSED)", a.String())
}

func TestVerdictString(t *testing.T) {
	tests := []struct {
		verdict Verdict
		want    string
	}{
		{verdict: VerdictNone, want: "none"},
		{verdict: VerdictAllow, want: "allow"},
		{verdict: VerdictDrop, want: "drop"},
		{verdict: VerdictPool, want: "pool"},
		{verdict: VerdictTruncate, want: "truncate"},
		{verdict: VerdictAnswer, want: "answer"},
		{verdict: Verdict(99), want: "unknown"},
	}
	for _, tt := range tests {
		t.Run(tt.want, func(t *testing.T) {
			assert.Equal(t, tt.want, tt.verdict.String())
		})
	}
}
