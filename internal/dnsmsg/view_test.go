package dnsmsg

import (
	"net/netip"
	"testing"

	"github.com/miekg/dns"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func newView(t *testing.T, qname string, qtype uint16) *Query {
	t.Helper()
	msg := new(dns.Msg)
	msg.SetQuestion(dns.Fqdn(qname), qtype)
	return NewQuery(msg,
		netip.MustParseAddrPort("192.0.2.10:4242"),
		netip.MustParseAddrPort("198.51.100.53:53"),
		ProtoUDP)
}

func TestNewQuery(t *testing.T) {
	q := newView(t, "WWW.Example.COM", dns.TypeAAAA)

	assert.Equal(t, "www.example.com.", q.QName)
	assert.Equal(t, dns.TypeAAAA, q.QType)
	assert.Equal(t, uint16(dns.ClassINET), q.QClass)
	assert.False(t, q.TCP)
	assert.Equal(t, ProtoUDP, q.Proto)
	assert.False(t, q.ReceivedAt.IsZero())
}

func TestNewQueryTransportFlag(t *testing.T) {
	msg := new(dns.Msg)
	msg.SetQuestion("example.com.", dns.TypeA)
	remote := netip.MustParseAddrPort("192.0.2.10:4242")
	local := netip.MustParseAddrPort("198.51.100.53:53")

	assert.False(t, NewQuery(msg, remote, local, ProtoUDP).TCP)
	assert.True(t, NewQuery(msg, remote, local, ProtoTCP).TCP)
	assert.True(t, NewQuery(msg, remote, local, ProtoDoT).TCP)
	assert.True(t, NewQuery(msg, remote, local, ProtoDoH).TCP)
}

func TestRemoteAddrUnmapsV4(t *testing.T) {
	msg := new(dns.Msg)
	msg.SetQuestion("example.com.", dns.TypeA)
	q := NewQuery(msg,
		netip.MustParseAddrPort("[::ffff:192.0.2.10]:4242"),
		netip.MustParseAddrPort("198.51.100.53:53"),
		ProtoUDP)

	assert.Equal(t, netip.MustParseAddr("192.0.2.10"), q.RemoteAddr())
}

func TestQNameCounts(t *testing.T) {
	tests := []struct {
		qname      string
		labels     int
		wireLength int
	}{
		{qname: "example.com", labels: 2, wireLength: 13},
		{qname: "www.example.com", labels: 3, wireLength: 17},
		{qname: "com", labels: 1, wireLength: 5},
	}
	for _, tt := range tests {
		t.Run(tt.qname, func(t *testing.T) {
			q := newView(t, tt.qname, dns.TypeA)
			assert.Equal(t, tt.labels, q.QNameLabels())
			assert.Equal(t, tt.wireLength, q.QNameWireLength())
		})
	}
}

func TestExtendedRCode(t *testing.T) {
	q := newView(t, "example.com", dns.TypeA)
	assert.Equal(t, dns.RcodeSuccess, q.ExtendedRCode())

	q.Msg.SetEdns0(4096, false)
	q.Msg.IsEdns0().SetExtendedRcode(uint16(dns.RcodeBadVers))
	assert.Equal(t, dns.RcodeBadVers, q.ExtendedRCode())
}

func TestEDNSVersion(t *testing.T) {
	q := newView(t, "example.com", dns.TypeA)
	_, ok := q.EDNSVersion()
	assert.False(t, ok)

	q.Msg.SetEdns0(4096, false)
	q.Msg.IsEdns0().SetVersion(1)
	v, ok := q.EDNSVersion()
	require.True(t, ok)
	assert.Equal(t, uint8(1), v)
}

func TestHasEDNSOption(t *testing.T) {
	q := newView(t, "example.com", dns.TypeA)
	assert.False(t, q.HasEDNSOption(dns.EDNS0COOKIE))

	q.Msg.SetEdns0(4096, false)
	opt := q.Msg.IsEdns0()
	opt.Option = append(opt.Option, &dns.EDNS0_COOKIE{Code: dns.EDNS0COOKIE, Cookie: "24"})
	assert.True(t, q.HasEDNSOption(dns.EDNS0COOKIE))
	assert.False(t, q.HasEDNSOption(dns.EDNS0NSID))
}

func TestTags(t *testing.T) {
	q := newView(t, "example.com", dns.TypeA)

	_, ok := q.Tag("policy")
	assert.False(t, ok)

	q.SetTag("policy", "audit")
	v, ok := q.Tag("policy")
	require.True(t, ok)
	assert.Equal(t, "audit", v)
}
