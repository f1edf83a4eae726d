package dnsmsg

import (
	"net/netip"
	"time"

	"github.com/miekg/dns"
)

// Protocol identifies the transport a query arrived over.
type Protocol string

const (
	ProtoUDP Protocol = "udp"
	ProtoTCP Protocol = "tcp"
	ProtoDoT Protocol = "dot"
	ProtoDoH Protocol = "doh"
)

// Query is the view of an in-flight DNS query (or response) that rules and
// actions operate on. It is owned by a single worker for the duration of one
// chain evaluation and is never shared between evaluations.
type Query struct {
	Msg *dns.Msg

	// QName is the canonical (lower-cased, fully qualified) query name.
	QName  string
	QType  uint16
	QClass uint16

	Remote netip.AddrPort
	Local  netip.AddrPort
	TCP    bool
	Proto  Protocol

	ReceivedAt time.Time

	// Routing decisions recorded by actions.
	Pool    string
	DelayMs int

	tags map[string]string
}

// Response is the view handed to the response-side chains. The embedded
// Query carries the response message.
type Response struct {
	Query
}

func NewQuery(msg *dns.Msg, remote, local netip.AddrPort, proto Protocol) *Query {
	q := &Query{
		Msg:        msg,
		Remote:     remote,
		Local:      local,
		Proto:      proto,
		TCP:        proto != ProtoUDP,
		ReceivedAt: time.Now(),
	}
	if len(msg.Question) > 0 {
		q.QName = dns.CanonicalName(msg.Question[0].Name)
		q.QType = msg.Question[0].Qtype
		q.QClass = msg.Question[0].Qclass
	}
	return q
}

func NewResponse(msg *dns.Msg, remote, local netip.AddrPort, proto Protocol) *Response {
	return &Response{Query: *NewQuery(msg, remote, local, proto)}
}

// RemoteAddr returns the client address, unmapped so that IPv4 clients on a
// dual-stack socket are not treated as IPv6.
func (q *Query) RemoteAddr() netip.Addr {
	return q.Remote.Addr().Unmap()
}

func (q *Query) QNameLabels() int {
	return dns.CountLabel(q.QName)
}

// QNameWireLength returns the uncompressed wire length of the query name.
// Each label costs its length plus one count byte, and the root label costs
// a single terminating byte, so a canonical name is one byte longer on the
// wire than as text.
func (q *Query) QNameWireLength() int {
	if q.QName == "." {
		return 1
	}
	return len(q.QName) + 1
}

func (q *Query) RCode() int {
	if q.Msg == nil {
		return 0
	}
	return q.Msg.Rcode
}

// ExtendedRCode returns the 12-bit extended rcode if an OPT record is
// present, and the plain rcode otherwise.
func (q *Query) ExtendedRCode() int {
	if q.Msg == nil {
		return 0
	}
	if opt := q.Msg.IsEdns0(); opt != nil {
		return int(opt.ExtendedRcode())&0xff0 | q.Msg.Rcode&0xf
	}
	return q.Msg.Rcode
}

func (q *Query) EDNSVersion() (uint8, bool) {
	if q.Msg == nil {
		return 0, false
	}
	opt := q.Msg.IsEdns0()
	if opt == nil {
		return 0, false
	}
	return opt.Version(), true
}

func (q *Query) HasEDNSOption(code uint16) bool {
	if q.Msg == nil {
		return false
	}
	opt := q.Msg.IsEdns0()
	if opt == nil {
		return false
	}
	for _, o := range opt.Option {
		if o.Option() == code {
			return true
		}
	}
	return false
}

func (q *Query) SetTag(key, value string) {
	if q.tags == nil {
		q.tags = make(map[string]string)
	}
	q.tags[key] = value
}

func (q *Query) Tag(key string) (string, bool) {
	v, ok := q.tags[key]
	return v, ok
}
