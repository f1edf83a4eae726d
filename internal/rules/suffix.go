package rules

import (
	"fmt"
	"strings"

	"github.com/miekg/dns"

	"dnsgate/internal/dnsmsg"
	pkgerrors "dnsgate/pkg/errors"
)

// SuffixMatchTree holds a set of domain suffixes and answers whether a query
// name equals, or is a subdomain of, any of them. Lookups walk the name's
// labels right to left through a label tree, so cost is bounded by the label
// count of the query name, not by the size of the set.
type SuffixMatchTree struct {
	children map[string]*SuffixMatchTree
	terminal bool
	size     int
}

func NewSuffixMatchTree() *SuffixMatchTree {
	return &SuffixMatchTree{children: make(map[string]*SuffixMatchTree)}
}

// Add inserts name into the set. An empty name or "." matches everything.
func (t *SuffixMatchTree) Add(name string) error {
	if _, ok := dns.IsDomainName(name); !ok {
		return pkgerrors.ErrMalformedPattern.WithDetail("suffix", name)
	}

	labels := dns.SplitDomainName(dns.CanonicalName(name))
	node := t
	for i := len(labels) - 1; i >= 0; i-- {
		label := labels[i]
		child, ok := node.children[label]
		if !ok {
			child = NewSuffixMatchTree()
			node.children[label] = child
		}
		node = child
	}
	if !node.terminal {
		node.terminal = true
		t.size++
	}
	return nil
}

// Check reports whether qname (canonical form) ends in one of the stored
// suffixes.
func (t *SuffixMatchTree) Check(qname string) bool {
	if t.terminal {
		// The root domain was added, everything matches.
		return true
	}

	labels := dns.SplitDomainName(qname)
	node := t
	for i := len(labels) - 1; i >= 0; i-- {
		child, ok := node.children[labels[i]]
		if !ok {
			return false
		}
		if child.terminal {
			return true
		}
		node = child
	}
	return false
}

func (t *SuffixMatchTree) Empty() bool {
	return t.size == 0 && !t.terminal
}

func (t *SuffixMatchTree) Size() int {
	return t.size
}

func (t *SuffixMatchTree) String() string {
	var names []string
	t.collect("", &names)
	return strings.Join(names, ", ")
}

func (t *SuffixMatchTree) collect(suffix string, names *[]string) {
	if t.terminal {
		if suffix == "" {
			*names = append(*names, ".")
		} else {
			*names = append(*names, suffix)
		}
	}
	for label, child := range t.children {
		child.collect(label+"."+suffix, names)
	}
}

// SuffixMatchRule matches query names against a suffix set. quiet suppresses
// the full suffix list in the description.
type SuffixMatchRule struct {
	tree  *SuffixMatchTree
	quiet bool
}

func NewSuffixMatchRule(tree *SuffixMatchTree, quiet bool) *SuffixMatchRule {
	return &SuffixMatchRule{tree: tree, quiet: quiet}
}

func (r *SuffixMatchRule) Matches(q *dnsmsg.Query) bool {
	return r.tree.Check(q.QName)
}

func (r *SuffixMatchRule) String() string {
	if r.quiet {
		return fmt.Sprintf("qname matches the set of %d suffixes", r.tree.Size())
	}
	return "qname in " + r.tree.String()
}
