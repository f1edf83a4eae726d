package rules

import (
	"fmt"
	"math/rand"
	"strconv"

	"github.com/miekg/dns"

	"dnsgate/internal/dnsmsg"
)

// AllRule matches every query.
type AllRule struct{}

func (AllRule) Matches(*dnsmsg.Query) bool { return true }
func (AllRule) String() string             { return "All" }

// ProbaRule matches a fraction of queries at random.
type ProbaRule struct {
	proba float64
}

func NewProbaRule(proba float64) *ProbaRule {
	return &ProbaRule{proba: proba}
}

func (r *ProbaRule) Matches(*dnsmsg.Query) bool {
	if r.proba >= 1.0 {
		return true
	}
	return rand.Float64() < r.proba
}

func (r *ProbaRule) String() string {
	return fmt.Sprintf("match with probability %.2f", r.proba)
}

// QNameRule matches one exact query name.
type QNameRule struct {
	qname string
}

func NewQNameRule(qname string) *QNameRule {
	return &QNameRule{qname: dns.CanonicalName(qname)}
}

func (r *QNameRule) Matches(q *dnsmsg.Query) bool {
	return q.QName == r.qname
}

func (r *QNameRule) String() string {
	return "qname==" + r.qname
}

// QTypeRule matches one query type.
type QTypeRule struct {
	qtype uint16
}

func NewQTypeRule(qtype uint16) *QTypeRule {
	return &QTypeRule{qtype: qtype}
}

func (r *QTypeRule) Matches(q *dnsmsg.Query) bool {
	return q.QType == r.qtype
}

func (r *QTypeRule) String() string {
	if s, ok := dns.TypeToString[r.qtype]; ok {
		return "qtype==" + s
	}
	return "qtype==" + strconv.Itoa(int(r.qtype))
}

// QClassRule matches one query class.
type QClassRule struct {
	qclass uint16
}

func (r *QClassRule) Matches(q *dnsmsg.Query) bool {
	return q.QClass == r.qclass
}

func (r *QClassRule) String() string {
	return "qclass==" + strconv.Itoa(int(r.qclass))
}

// OpcodeRule matches the message opcode.
type OpcodeRule struct {
	opcode int
}

func (r *OpcodeRule) Matches(q *dnsmsg.Query) bool {
	return q.Msg != nil && q.Msg.Opcode == r.opcode
}

func (r *OpcodeRule) String() string {
	return "opcode==" + strconv.Itoa(r.opcode)
}

// RCodeRule matches the plain response code.
type RCodeRule struct {
	rcode int
}

func (r *RCodeRule) Matches(q *dnsmsg.Query) bool {
	return q.RCode() == r.rcode
}

func (r *RCodeRule) String() string {
	return "rcode==" + strconv.Itoa(r.rcode)
}

// ERCodeRule matches the extended response code carried in the OPT record.
type ERCodeRule struct {
	rcode int
}

func (r *ERCodeRule) Matches(q *dnsmsg.Query) bool {
	return q.ExtendedRCode() == r.rcode
}

func (r *ERCodeRule) String() string {
	return "ercode==" + strconv.Itoa(r.rcode)
}

// EDNSVersionRule matches queries whose EDNS version is above the allowed
// one. Queries without an OPT record never match.
type EDNSVersionRule struct {
	version uint8
}

func (r *EDNSVersionRule) Matches(q *dnsmsg.Query) bool {
	v, ok := q.EDNSVersion()
	return ok && v > r.version
}

func (r *EDNSVersionRule) String() string {
	return "ednsversion>" + strconv.Itoa(int(r.version))
}

// EDNSOptionRule matches queries carrying a given EDNS option code.
type EDNSOptionRule struct {
	optcode uint16
}

func (r *EDNSOptionRule) Matches(q *dnsmsg.Query) bool {
	return q.HasEDNSOption(r.optcode)
}

func (r *EDNSOptionRule) String() string {
	return "ednsoptcode==" + strconv.Itoa(int(r.optcode))
}

// DSTPortRule matches the local (destination) port the query arrived on.
type DSTPortRule struct {
	port uint16
}

func (r *DSTPortRule) Matches(q *dnsmsg.Query) bool {
	return q.Local.Port() == r.port
}

func (r *DSTPortRule) String() string {
	return "dst port==" + strconv.Itoa(int(r.port))
}

// TCPRule matches on whether the query arrived over a stream transport.
type TCPRule struct {
	tcp bool
}

func NewTCPRule(tcp bool) *TCPRule {
	return &TCPRule{tcp: tcp}
}

func (r *TCPRule) Matches(q *dnsmsg.Query) bool {
	return q.TCP == r.tcp
}

func (r *TCPRule) String() string {
	if r.tcp {
		return "TCP"
	}
	return "UDP"
}

// RDRule matches queries with the recursion desired flag set.
type RDRule struct{}

func (RDRule) Matches(q *dnsmsg.Query) bool {
	return q.Msg != nil && q.Msg.RecursionDesired
}

func (RDRule) String() string { return "RD" }

// Message sections addressed by the records-count rules, in wire order.
const (
	SectionQuestion = iota
	SectionAnswer
	SectionAuthority
	SectionAdditional
)

func sectionRecords(q *dnsmsg.Query, section uint8) []dns.RR {
	if q.Msg == nil {
		return nil
	}
	switch section {
	case SectionAnswer:
		return q.Msg.Answer
	case SectionAuthority:
		return q.Msg.Ns
	case SectionAdditional:
		return q.Msg.Extra
	}
	return nil
}

// RecordsCountRule matches when the number of records in a section falls
// within [min, max].
type RecordsCountRule struct {
	section  uint8
	min, max uint16
}

func (r *RecordsCountRule) Matches(q *dnsmsg.Query) bool {
	var count int
	if r.section == SectionQuestion {
		if q.Msg == nil {
			return false
		}
		count = len(q.Msg.Question)
	} else {
		count = len(sectionRecords(q, r.section))
	}
	return count >= int(r.min) && count <= int(r.max)
}

func (r *RecordsCountRule) String() string {
	return fmt.Sprintf("%d <= records in section %d <= %d", r.min, r.section, r.max)
}

// RecordsTypeCountRule matches when the number of records of one type in a
// section falls within [min, max].
type RecordsTypeCountRule struct {
	section  uint8
	rtype    uint16
	min, max uint16
}

func (r *RecordsTypeCountRule) Matches(q *dnsmsg.Query) bool {
	var count int
	if r.section == SectionQuestion {
		if q.Msg == nil {
			return false
		}
		for _, question := range q.Msg.Question {
			if question.Qtype == r.rtype {
				count++
			}
		}
	} else {
		for _, rr := range sectionRecords(q, r.section) {
			if rr.Header().Rrtype == r.rtype {
				count++
			}
		}
	}
	return count >= int(r.min) && count <= int(r.max)
}

func (r *RecordsTypeCountRule) String() string {
	return fmt.Sprintf("%d <= records of type %d in section %d <= %d", r.min, r.rtype, r.section, r.max)
}

// QNameLabelsCountRule matches when the number of labels in the query name
// falls within [min, max].
type QNameLabelsCountRule struct {
	min, max int
}

func (r *QNameLabelsCountRule) Matches(q *dnsmsg.Query) bool {
	labels := q.QNameLabels()
	return labels >= r.min && labels <= r.max
}

func (r *QNameLabelsCountRule) String() string {
	return fmt.Sprintf("%d <= qname labels <= %d", r.min, r.max)
}

// QNameWireLengthRule matches when the wire length of the query name falls
// within [min, max].
type QNameWireLengthRule struct {
	min, max int
}

func (r *QNameWireLengthRule) Matches(q *dnsmsg.Query) bool {
	wireLen := q.QNameWireLength()
	return wireLen >= r.min && wireLen <= r.max
}

func (r *QNameWireLengthRule) String() string {
	return fmt.Sprintf("%d <= qname wire length <= %d", r.min, r.max)
}

// TagRule matches queries carrying a tag, optionally with a specific value.
type TagRule struct {
	tag   string
	value *string
}

func NewTagRule(tag string, value *string) *TagRule {
	return &TagRule{tag: tag, value: value}
}

func (r *TagRule) Matches(q *dnsmsg.Query) bool {
	v, ok := q.Tag(r.tag)
	if !ok {
		return false
	}
	if r.value == nil {
		return true
	}
	return v == *r.value
}

func (r *TagRule) String() string {
	if r.value != nil {
		return fmt.Sprintf("tag '%s' is set to '%s'", r.tag, *r.value)
	}
	return fmt.Sprintf("tag '%s' is set", r.tag)
}
