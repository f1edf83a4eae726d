package rules

import (
	"strings"

	"dnsgate/internal/dnsmsg"
)

// AndRule matches when every child rule matches. Evaluation short-circuits
// on the first non-matching child.
type AndRule struct {
	rules []Rule
}

func NewAndRule(rules []Rule) *AndRule {
	return &AndRule{rules: rules}
}

func (r *AndRule) Matches(q *dnsmsg.Query) bool {
	for _, child := range r.rules {
		if !child.Matches(q) {
			return false
		}
	}
	return true
}

func (r *AndRule) String() string {
	return describeChildren("and", r.rules)
}

// OrRule matches when any child rule matches. Evaluation short-circuits on
// the first matching child.
type OrRule struct {
	rules []Rule
}

func NewOrRule(rules []Rule) *OrRule {
	return &OrRule{rules: rules}
}

func (r *OrRule) Matches(q *dnsmsg.Query) bool {
	for _, child := range r.rules {
		if child.Matches(q) {
			return true
		}
	}
	return false
}

func (r *OrRule) String() string {
	return describeChildren("or", r.rules)
}

// NotRule matches when its single child does not.
type NotRule struct {
	rule Rule
}

func NewNotRule(rule Rule) *NotRule {
	return &NotRule{rule: rule}
}

func (r *NotRule) Matches(q *dnsmsg.Query) bool {
	return !r.rule.Matches(q)
}

func (r *NotRule) String() string {
	return "!(" + r.rule.String() + ")"
}

func describeChildren(op string, rules []Rule) string {
	descs := make([]string, len(rules))
	for i, child := range rules {
		descs[i] = child.String()
	}
	return "(" + strings.Join(descs, ") "+op+" (") + ")"
}
