package rules

import (
	"dnsgate/internal/dnsmsg"
)

// Rule is a boolean predicate over a query or response view. Implementations
// must be safe for concurrent use by multiple evaluation workers and must
// never fail: a rule that cannot meaningfully inspect a view returns a
// definite false rather than aborting the chain.
type Rule interface {
	// Matches reports whether the rule applies to the given view.
	Matches(q *dnsmsg.Query) bool

	// String returns a human-readable description of the rule, shown in
	// chain listings.
	String() string
}
