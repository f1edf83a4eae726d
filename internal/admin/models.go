package admin

// RuleSpec is the wire form of a rule. Type selects the predicate and
// decides which of the remaining fields are read; combinators nest
// through Children and Child.
type RuleSpec struct {
	Type string `json:"type" binding:"required"`

	// Mixed pattern lists for "match": CIDR prefixes and bare addresses
	// collect into a netmask group, everything else is a name suffix.
	Patterns []string `json:"patterns,omitempty"`

	// Single-value matchers: qname, qtype (mnemonic), expr source.
	Value string `json:"value,omitempty"`

	// Numeric matchers: qclass, opcode, rcode, ercode, dstport,
	// ednsversion, ednsoption.
	Number *uint64 `json:"number,omitempty"`

	// Record count matchers.
	Section string  `json:"section,omitempty"`
	Min     *uint64 `json:"min,omitempty"`
	Max     *uint64 `json:"max,omitempty"`

	// Rate limiters.
	QPS           int `json:"qps,omitempty"`
	Burst         int `json:"burst,omitempty"`
	IPv4PrefixLen int `json:"ipv4_prefix_len,omitempty"`
	IPv6PrefixLen int `json:"ipv6_prefix_len,omitempty"`

	Probability float64 `json:"probability,omitempty"`

	Tag      string `json:"tag,omitempty"`
	TagValue string `json:"tag_value,omitempty"`

	// Key-value lookup matcher.
	LookupKind string `json:"lookup_kind,omitempty"`
	KeyPrefix  string `json:"key_prefix,omitempty"`

	Quiet bool `json:"quiet,omitempty"`

	// Combinators.
	Children []RuleSpec `json:"children,omitempty"`
	Child    *RuleSpec  `json:"child,omitempty"`
}

type ActionSpec struct {
	Type    string `json:"type" binding:"required"`
	Pool    string `json:"pool,omitempty"`
	DelayMs int    `json:"delay_ms,omitempty"`
	RCode   *int   `json:"rcode,omitempty"`
}

type EntrySpec struct {
	Rule   RuleSpec   `json:"rule" binding:"required"`
	Action ActionSpec `json:"action" binding:"required"`
	Name   string     `json:"name,omitempty"`
	UUID   string     `json:"uuid,omitempty"`
}

type MoveRequest struct {
	From int `json:"from"`
	To   int `json:"to"`
}

type ChainInfo struct {
	Name    string `json:"name"`
	Entries int    `json:"entries"`
}

type EntryView struct {
	Position int    `json:"position"`
	Name     string `json:"name,omitempty"`
	UUID     string `json:"uuid"`
	Matches  uint64 `json:"matches"`
	Rule     string `json:"rule"`
	Action   string `json:"action"`
}

type BenchRequest struct {
	Rule   RuleSpec `json:"rule" binding:"required"`
	Times  int      `json:"times,omitempty"`
	Suffix string   `json:"suffix,omitempty"`
}

type BenchResponse struct {
	Matches     int     `json:"matches"`
	Times       int     `json:"times"`
	ElapsedUsec float64 `json:"elapsed_usec"`
	QPS         float64 `json:"qps"`
	Summary     string  `json:"summary"`
}
