package rules

import (
	"context"
	"time"

	"github.com/redis/go-redis/v9"

	"dnsgate/internal/constants"
	"dnsgate/internal/dnsmsg"
	"dnsgate/pkg/circuitbreaker"
	"dnsgate/pkg/metrics"
)

// LookupKeyKind selects which part of the query view a key-value lookup rule
// derives its key from.
type LookupKeyKind string

const (
	LookupKeyQName     LookupKeyKind = "qname"
	LookupKeySourceIP  LookupKeyKind = "source-ip"
	LookupKeySuffixSet LookupKeyKind = "qname-and-parents"
)

// KeyValueLookupRule matches when a key derived from the query exists in an
// external key-value store. Store failures never fail the chain: the breaker
// opens and the rule reports false until the store recovers.
type KeyValueLookupRule struct {
	client    *redis.Client
	breaker   *circuitbreaker.Wrapper
	kind      LookupKeyKind
	keyPrefix string
	timeout   time.Duration
}

func NewKeyValueLookupRule(client *redis.Client, kind LookupKeyKind, keyPrefix string) *KeyValueLookupRule {
	return &KeyValueLookupRule{
		client:    client,
		breaker:   circuitbreaker.NewWrapper(circuitbreaker.DefaultConfig("kv-lookup")),
		kind:      kind,
		keyPrefix: keyPrefix,
		timeout:   constants.KeyValueLookupTimeout,
	}
}

func (r *KeyValueLookupRule) keysFor(q *dnsmsg.Query) []string {
	switch r.kind {
	case LookupKeyQName:
		return []string{r.keyPrefix + q.QName}
	case LookupKeySourceIP:
		return []string{r.keyPrefix + q.RemoteAddr().String()}
	case LookupKeySuffixSet:
		keys := make([]string, 0, q.QNameLabels())
		name := q.QName
		for name != "" && name != "." {
			keys = append(keys, r.keyPrefix+name)
			next := parentDomain(name)
			if next == name {
				break
			}
			name = next
		}
		return keys
	}
	return nil
}

func (r *KeyValueLookupRule) Matches(q *dnsmsg.Query) bool {
	keys := r.keysFor(q)
	if len(keys) == 0 {
		return false
	}

	found, err := r.breaker.Execute(func() (interface{}, error) {
		ctx, cancel := context.WithTimeout(context.Background(), r.timeout)
		defer cancel()

		n, err := r.client.Exists(ctx, keys...).Result()
		if err != nil {
			return false, err
		}
		return n > 0, nil
	})
	if err != nil {
		metrics.KeyValueLookupsTotal.WithLabelValues("error").Inc()
		return false
	}

	matched, _ := found.(bool)
	if matched {
		metrics.KeyValueLookupsTotal.WithLabelValues("hit").Inc()
	} else {
		metrics.KeyValueLookupsTotal.WithLabelValues("miss").Inc()
	}
	return matched
}

func (r *KeyValueLookupRule) String() string {
	return "key-value lookup by " + string(r.kind)
}

// parentDomain strips the leftmost label: "www.example.com." becomes
// "example.com.".
func parentDomain(name string) string {
	for i := 0; i < len(name); i++ {
		if name[i] == '.' {
			return name[i+1:]
		}
	}
	return name
}
