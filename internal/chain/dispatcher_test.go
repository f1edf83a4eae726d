package chain

import (
	"net/netip"
	"testing"

	"github.com/miekg/dns"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"dnsgate/internal/actions"
	"dnsgate/internal/dnsmsg"
	"dnsgate/internal/logger"
	"dnsgate/internal/rules"
)

func testQuery(t *testing.T, qname string, qtype uint16) *dnsmsg.Query {
	t.Helper()
	msg := new(dns.Msg)
	msg.SetQuestion(dns.Fqdn(qname), qtype)
	remote := netip.MustParseAddrPort("192.0.2.1:53000")
	local := netip.MustParseAddrPort("192.0.2.53:53")
	return dnsmsg.NewQuery(msg, remote, local, dnsmsg.ProtoUDP)
}

func TestEvaluateFirstMatchWins(t *testing.T) {
	c := New("query")
	dropA, err := NewEntry(rules.NewQTypeRule(dns.TypeA), actions.DropAction{}, EntryParams{Name: "drop-a"})
	require.NoError(t, err)
	allowAll, err := NewEntry(rules.AllRule{}, actions.AllowAction{}, EntryParams{Name: "allow-all"})
	require.NoError(t, err)
	c.SetAll([]*Entry{dropA, allowAll})

	d := NewDispatcher(logger.NopLogger())

	verdict := d.Evaluate(c, testQuery(t, "example.com", dns.TypeA))
	assert.Equal(t, actions.VerdictDrop, verdict)
	assert.Equal(t, uint64(1), dropA.MatchCount())
	assert.Equal(t, uint64(0), allowAll.MatchCount())

	verdict = d.Evaluate(c, testQuery(t, "example.com", dns.TypeAAAA))
	assert.Equal(t, actions.VerdictAllow, verdict)
	assert.Equal(t, uint64(1), dropA.MatchCount())
	assert.Equal(t, uint64(1), allowAll.MatchCount())
}

func TestEvaluateNoneActionContinues(t *testing.T) {
	c := New("query")
	tagged, err := NewEntry(rules.AllRule{}, actions.NoneAction{}, EntryParams{Name: "observe"})
	require.NoError(t, err)
	drop, err := NewEntry(rules.AllRule{}, actions.DropAction{}, EntryParams{Name: "drop"})
	require.NoError(t, err)
	c.SetAll([]*Entry{tagged, drop})

	d := NewDispatcher(logger.NopLogger())
	verdict := d.Evaluate(c, testQuery(t, "example.com", dns.TypeA))

	// A VerdictNone action does not stop the walk; both entries count.
	assert.Equal(t, actions.VerdictDrop, verdict)
	assert.Equal(t, uint64(1), tagged.MatchCount())
	assert.Equal(t, uint64(1), drop.MatchCount())
}

func TestEvaluateDelayThenAnswer(t *testing.T) {
	c := New("query")
	delay, err := NewEntry(rules.AllRule{}, actions.NewDelayAction(250), EntryParams{})
	require.NoError(t, err)
	refuse, err := NewEntry(rules.AllRule{}, actions.NewRCodeAction(dns.RcodeRefused), EntryParams{})
	require.NoError(t, err)
	c.SetAll([]*Entry{delay, refuse})

	d := NewDispatcher(logger.NopLogger())
	q := testQuery(t, "example.com", dns.TypeA)
	verdict := d.Evaluate(c, q)

	// Delay annotates the query and lets evaluation continue.
	assert.Equal(t, actions.VerdictAnswer, verdict)
	assert.Equal(t, 250, q.DelayMs)
	assert.Equal(t, dns.RcodeRefused, q.Msg.Rcode)
}

func TestEvaluateEmptyChain(t *testing.T) {
	c := New("query")
	d := NewDispatcher(logger.NopLogger())
	assert.Equal(t, actions.VerdictNone, d.Evaluate(c, testQuery(t, "example.com", dns.TypeA)))
}

func TestEvaluateResponseChain(t *testing.T) {
	c := New("response")
	entry, err := NewEntry(rules.AllRule{}, actions.AllowAction{}, EntryParams{})
	require.NoError(t, err)
	c.Append(entry)

	msg := new(dns.Msg)
	msg.SetQuestion("example.com.", dns.TypeA)
	resp := dnsmsg.NewResponse(msg, netip.MustParseAddrPort("192.0.2.1:53000"),
		netip.MustParseAddrPort("192.0.2.53:53"), dnsmsg.ProtoUDP)

	d := NewDispatcher(logger.NopLogger())
	assert.Equal(t, actions.VerdictAllow, d.EvaluateResponse(c, resp))
}
