package rules

import (
	"fmt"
	"net/netip"
	"strings"

	"dnsgate/internal/dnsmsg"
	pkgerrors "dnsgate/pkg/errors"
)

// NetmaskGroup is a collection of network masks matched as one unit.
type NetmaskGroup struct {
	prefixes []netip.Prefix
}

// AddMask parses s as a CIDR prefix or a bare IP literal and adds it to the
// group.
func (g *NetmaskGroup) AddMask(s string) error {
	if strings.Contains(s, "/") {
		prefix, err := netip.ParsePrefix(s)
		if err != nil {
			return pkgerrors.ErrMalformedPattern.WithCause(err).WithDetail("mask", s)
		}
		g.prefixes = append(g.prefixes, prefix.Masked())
		return nil
	}

	addr, err := netip.ParseAddr(s)
	if err != nil {
		return pkgerrors.ErrMalformedPattern.WithCause(err).WithDetail("mask", s)
	}
	addr = addr.Unmap()
	g.prefixes = append(g.prefixes, netip.PrefixFrom(addr, addr.BitLen()))
	return nil
}

func (g *NetmaskGroup) Match(addr netip.Addr) bool {
	addr = addr.Unmap()
	for _, prefix := range g.prefixes {
		if prefix.Contains(addr) {
			return true
		}
	}
	return false
}

func (g *NetmaskGroup) Empty() bool {
	return len(g.prefixes) == 0
}

func (g *NetmaskGroup) Size() int {
	return len(g.prefixes)
}

func (g *NetmaskGroup) String() string {
	descs := make([]string, len(g.prefixes))
	for i, prefix := range g.prefixes {
		descs[i] = prefix.String()
	}
	return strings.Join(descs, ", ")
}

// NetmaskGroupRule matches the source (or destination) address of a query
// against a NetmaskGroup.
type NetmaskGroupRule struct {
	group *NetmaskGroup
	src   bool
	quiet bool
}

// NewNetmaskGroupRule builds a rule over group. When src is true the client
// address is matched, otherwise the local one. quiet suppresses the mask
// list in the description, which keeps listings readable for huge groups.
func NewNetmaskGroupRule(group *NetmaskGroup, src, quiet bool) *NetmaskGroupRule {
	return &NetmaskGroupRule{group: group, src: src, quiet: quiet}
}

func (r *NetmaskGroupRule) Matches(q *dnsmsg.Query) bool {
	if r.src {
		return r.group.Match(q.RemoteAddr())
	}
	return r.group.Match(q.Local.Addr().Unmap())
}

func (r *NetmaskGroupRule) String() string {
	target := "Src"
	if !r.src {
		target = "Dst"
	}
	if r.quiet {
		return fmt.Sprintf("%s IP matches the group of %d netmasks", target, r.group.Size())
	}
	return fmt.Sprintf("%s IP matches %s", target, r.group.String())
}
