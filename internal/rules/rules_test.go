package rules

import (
	"net/netip"
	"testing"

	"github.com/miekg/dns"

	"dnsgate/internal/dnsmsg"
)

// newTestQuery builds a query view for matcher tests. The remote address is
// given as "ip:port".
func newTestQuery(t *testing.T, qname string, qtype uint16, remote string) *dnsmsg.Query {
	t.Helper()
	msg := new(dns.Msg)
	msg.SetQuestion(dns.Fqdn(qname), qtype)
	return dnsmsg.NewQuery(msg,
		netip.MustParseAddrPort(remote),
		netip.MustParseAddrPort("198.51.100.53:53"),
		dnsmsg.ProtoUDP)
}

func defaultTestQuery(t *testing.T) *dnsmsg.Query {
	return newTestQuery(t, "www.example.com", dns.TypeA, "192.0.2.10:4242")
}
