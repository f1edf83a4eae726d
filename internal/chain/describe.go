package chain

import (
	"fmt"
	"strings"
)

// DescribeOptions controls the rendering of chain listings.
type DescribeOptions struct {
	// ShowUUIDs adds the entry UUID and creation order columns.
	ShowUUIDs bool
	// TruncateRuleWidth cuts rule descriptions to this many bytes when
	// positive. The cut is by byte length, which may split multi-byte text;
	// descriptions are treated as opaque bytes here.
	TruncateRuleWidth int
}

// Describe renders the chain's current snapshot as a table, one row per
// entry in chain order.
func (c *Chain) Describe(opts DescribeOptions) string {
	return DescribeEntries(c.Snapshot(), opts)
}

// DescribeEntries renders an arbitrary entry sequence, preserving the order
// passed in, so views derived from TopN keep their ranking.
func DescribeEntries(entries []*Entry, opts DescribeOptions) string {
	var b strings.Builder

	if opts.ShowUUIDs {
		fmt.Fprintf(&b, "%-3s %-30s %-38s %9s %9s %-56s %s\n",
			"#", "Name", "UUID", "Cr. Order", "Matches", "Rule", "Action")
		for i, e := range entries {
			fmt.Fprintf(&b, "%-3d %-30s %-38s %9d %9d %-56s %s\n",
				i, e.Name, e.ID.String(), e.CreationOrder, e.MatchCount(),
				truncateBytes(e.Rule.String(), opts.TruncateRuleWidth), e.Action.String())
		}
		return b.String()
	}

	fmt.Fprintf(&b, "%-3s %-30s %9s %-56s %s\n",
		"#", "Name", "Matches", "Rule", "Action")
	for i, e := range entries {
		fmt.Fprintf(&b, "%-3d %-30s %9d %-56s %s\n",
			i, e.Name, e.MatchCount(),
			truncateBytes(e.Rule.String(), opts.TruncateRuleWidth), e.Action.String())
	}
	return b.String()
}

func truncateBytes(s string, width int) string {
	if width <= 0 || len(s) <= width {
		return s
	}
	return s[:width]
}
