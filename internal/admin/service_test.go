package admin

import (
	"context"
	"testing"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"dnsgate/internal/chain"
	"dnsgate/internal/logger"
	pkgerrors "dnsgate/pkg/errors"
)

func newTestService(t *testing.T) (Service, *chain.Registry) {
	t.Helper()
	registry := chain.NewRegistry()
	return NewService(registry, logger.NopLogger()), registry
}

func allowAllSpec(name string) EntrySpec {
	return EntrySpec{
		Rule:   RuleSpec{Type: "all"},
		Action: ActionSpec{Type: "allow"},
		Name:   name,
	}
}

func TestListChains(t *testing.T) {
	svc, _ := newTestService(t)
	infos := svc.ListChains(context.Background())

	names := make([]string, 0, len(infos))
	for _, info := range infos {
		names = append(names, info.Name)
		assert.Equal(t, 0, info.Entries)
	}
	assert.Equal(t, []string{
		"query", "response", "cache-hit-response",
		"cache-inserted-response", "self-answered-response",
	}, names)
}

func TestUnknownChain(t *testing.T) {
	svc, _ := newTestService(t)
	_, err := svc.ListRules(context.Background(), "no-such-chain")
	require.Error(t, err)
	assert.True(t, pkgerrors.IsNotFound(err))
}

func TestAppendAndListRules(t *testing.T) {
	svc, _ := newTestService(t)
	ctx := context.Background()

	view, err := svc.AppendRule(ctx, chain.QueryChain, allowAllSpec("first"))
	require.NoError(t, err)
	assert.Equal(t, 0, view.Position)
	assert.Equal(t, "first", view.Name)
	assert.NotEmpty(t, view.UUID)

	views, err := svc.ListRules(ctx, chain.QueryChain)
	require.NoError(t, err)
	require.Len(t, views, 1)
	assert.Equal(t, "All", views[0].Rule)
	assert.Equal(t, "allow", views[0].Action)
}

func TestSetRulesReplacesChain(t *testing.T) {
	svc, registry := newTestService(t)
	ctx := context.Background()

	_, err := svc.AppendRule(ctx, chain.QueryChain, allowAllSpec("old"))
	require.NoError(t, err)

	views, err := svc.SetRules(ctx, chain.QueryChain, []EntrySpec{
		{
			Rule:   RuleSpec{Type: "qtype", Value: "AAAA"},
			Action: ActionSpec{Type: "drop"},
			Name:   "drop-aaaa",
		},
		allowAllSpec("allow-rest"),
	})
	require.NoError(t, err)
	require.Len(t, views, 2)
	assert.Equal(t, "drop-aaaa", views[0].Name)

	assert.Equal(t, 2, registry.Query().Len())
}

func TestSetRulesRejectsBadSpecs(t *testing.T) {
	svc, registry := newTestService(t)
	ctx := context.Background()

	_, err := svc.SetRules(ctx, chain.QueryChain, []EntrySpec{
		{Rule: RuleSpec{Type: "qtype", Value: "NOPE"}, Action: ActionSpec{Type: "drop"}},
	})
	require.Error(t, err)
	assert.True(t, pkgerrors.IsValidation(err))
	// A failed bulk load leaves the chain untouched.
	assert.Equal(t, 0, registry.Query().Len())
}

func TestRemoveRule(t *testing.T) {
	svc, _ := newTestService(t)
	ctx := context.Background()

	t.Run("by position", func(t *testing.T) {
		_, err := svc.AppendRule(ctx, chain.ResponseChain, allowAllSpec("a"))
		require.NoError(t, err)
		require.NoError(t, svc.RemoveRule(ctx, chain.ResponseChain, "0"))
	})

	t.Run("by uuid", func(t *testing.T) {
		view, err := svc.AppendRule(ctx, chain.ResponseChain, allowAllSpec("b"))
		require.NoError(t, err)
		require.NoError(t, svc.RemoveRule(ctx, chain.ResponseChain, view.UUID))
	})

	t.Run("by name", func(t *testing.T) {
		_, err := svc.AppendRule(ctx, chain.ResponseChain, allowAllSpec("named"))
		require.NoError(t, err)
		require.NoError(t, svc.RemoveRule(ctx, chain.ResponseChain, "named"))
	})

	t.Run("unknown uuid", func(t *testing.T) {
		err := svc.RemoveRule(ctx, chain.ResponseChain, uuid.NewString())
		require.Error(t, err)
		assert.True(t, pkgerrors.IsNotFound(err))
	})

	t.Run("position out of range", func(t *testing.T) {
		err := svc.RemoveRule(ctx, chain.ResponseChain, "42")
		require.Error(t, err)
		assert.ErrorIs(t, err, pkgerrors.ErrIndexOutOfRange)
	})
}

func TestMoveOperations(t *testing.T) {
	svc, registry := newTestService(t)
	ctx := context.Background()

	for _, name := range []string{"a", "b", "c"} {
		_, err := svc.AppendRule(ctx, chain.QueryChain, allowAllSpec(name))
		require.NoError(t, err)
	}

	require.NoError(t, svc.MoveToTop(ctx, chain.QueryChain))
	snapshot := registry.Query().Snapshot()
	assert.Equal(t, "c", snapshot[0].Name)

	require.NoError(t, svc.Move(ctx, chain.QueryChain, MoveRequest{From: 2, To: 0}))
	snapshot = registry.Query().Snapshot()
	assert.Equal(t, "b", snapshot[0].Name)

	err := svc.Move(ctx, chain.QueryChain, MoveRequest{From: 9, To: 0})
	require.Error(t, err)
	assert.ErrorIs(t, err, pkgerrors.ErrInvalidIndex)
}

func TestTopRules(t *testing.T) {
	svc, registry := newTestService(t)
	ctx := context.Background()

	for _, name := range []string{"a", "b"} {
		_, err := svc.AppendRule(ctx, chain.QueryChain, allowAllSpec(name))
		require.NoError(t, err)
	}
	registry.Query().Snapshot()[1].CountMatch()

	views, err := svc.TopRules(ctx, chain.QueryChain, 2)
	require.NoError(t, err)
	require.Len(t, views, 2)
	assert.Equal(t, "b", views[0].Name)
	assert.Equal(t, 1, views[0].Position)
	assert.Equal(t, uint64(1), views[0].Matches)
}

func TestClearRules(t *testing.T) {
	svc, registry := newTestService(t)
	ctx := context.Background()

	_, err := svc.AppendRule(ctx, chain.QueryChain, allowAllSpec("a"))
	require.NoError(t, err)
	require.NoError(t, svc.ClearRules(ctx, chain.QueryChain))
	assert.Equal(t, 0, registry.Query().Len())
}

func TestClearRulesQueryChainOnly(t *testing.T) {
	svc, registry := newTestService(t)
	ctx := context.Background()

	_, err := svc.AppendRule(ctx, chain.ResponseChain, allowAllSpec("keep"))
	require.NoError(t, err)

	err = svc.ClearRules(ctx, chain.ResponseChain)
	require.Error(t, err)
	assert.True(t, pkgerrors.IsValidation(err))

	c, ok := registry.Chain(chain.ResponseChain)
	require.True(t, ok)
	assert.Equal(t, 1, c.Len())
}

func TestBench(t *testing.T) {
	svc, _ := newTestService(t)
	ctx := context.Background()

	result, err := svc.Bench(ctx, BenchRequest{
		Rule:  RuleSpec{Type: "all"},
		Times: 1000,
	})
	require.NoError(t, err)
	assert.Equal(t, 1000, result.Times)
	assert.Equal(t, 1000, result.Matches)
	assert.Contains(t, result.Summary, "matches out of")

	_, err = svc.Bench(ctx, BenchRequest{
		Rule:  RuleSpec{Type: "all"},
		Times: 100000000,
	})
	require.Error(t, err)
	assert.ErrorIs(t, err, pkgerrors.ErrParameterOutOfRange)
}

func TestBuildRule(t *testing.T) {
	svc, _ := newTestService(t)
	s := svc.(*service)

	num := func(v uint64) *uint64 { return &v }

	tests := []struct {
		name    string
		spec    RuleSpec
		want    string
		wantErr bool
	}{
		{name: "all", spec: RuleSpec{Type: "all"}, want: "All"},
		{name: "qname", spec: RuleSpec{Type: "qname", Value: "example.com"}, want: "qname==example.com."},
		{name: "qtype", spec: RuleSpec{Type: "qtype", Value: "MX"}, want: "qtype==MX"},
		{name: "tcp", spec: RuleSpec{Type: "tcp"}, want: "TCP"},
		{name: "udp", spec: RuleSpec{Type: "udp"}, want: "UDP"},
		{name: "rd", spec: RuleSpec{Type: "rd"}, want: "RD"},
		{name: "dstport", spec: RuleSpec{Type: "dstport", Number: num(53)}, want: "dst port==53"},
		{name: "mixed patterns pick masks", spec: RuleSpec{Type: "match", Patterns: []string{"10.0.0.0/8", "example.com"}}, want: "Src IP matches 10.0.0.0/8"},
		{name: "suffix list", spec: RuleSpec{Type: "suffix", Patterns: []string{"example.com"}}, want: "qname in example.com."},
		{name: "maxqpsip", spec: RuleSpec{Type: "maxqpsip", QPS: 10}, want: "IP (/32, /64) > 10 qps (burst 10)"},
		{name: "expr", spec: RuleSpec{Type: "expr", Value: "qtype == 1"}, want: "expr: qtype == 1"},
		{name: "not combinator", spec: RuleSpec{Type: "not", Child: &RuleSpec{Type: "all"}}, want: "!(All)"},
		{name: "and combinator", spec: RuleSpec{Type: "and", Children: []RuleSpec{{Type: "all"}, {Type: "rd"}}}, want: "(All) and (RD)"},
		{name: "unknown type", spec: RuleSpec{Type: "frobnicate"}, wantErr: true},
		{name: "qclass out of range", spec: RuleSpec{Type: "qclass", Number: num(65536)}, wantErr: true},
		{name: "keyvalue without store", spec: RuleSpec{Type: "keyvalue", LookupKind: "qname"}, wantErr: true},
		{name: "not without child", spec: RuleSpec{Type: "not"}, wantErr: true},
		{name: "and without children", spec: RuleSpec{Type: "and"}, wantErr: true},
		{name: "maxqpsip without qps", spec: RuleSpec{Type: "maxqpsip"}, wantErr: true},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			rule, err := s.buildRule(tt.spec)
			if tt.wantErr {
				require.Error(t, err)
				return
			}
			require.NoError(t, err)
			assert.Equal(t, tt.want, rule.String())
		})
	}
}

func TestBuildAction(t *testing.T) {
	rcode := 5

	tests := []struct {
		name    string
		spec    ActionSpec
		want    string
		wantErr bool
	}{
		{name: "allow", spec: ActionSpec{Type: "allow"}, want: "allow"},
		{name: "drop", spec: ActionSpec{Type: "drop"}, want: "drop"},
		{name: "none", spec: ActionSpec{Type: "none"}, want: "no op"},
		{name: "pool", spec: ActionSpec{Type: "pool", Pool: "abuse"}, want: "to pool abuse"},
		{name: "tc", spec: ActionSpec{Type: "tc"}, want: "tc=1 answer"},
		{name: "delay", spec: ActionSpec{Type: "delay", DelayMs: 100}, want: "delay by 100 ms"},
		{name: "rcode", spec: ActionSpec{Type: "rcode", RCode: &rcode}, want: "set rcode 5 (REFUSED)"},
		{name: "pool without name", spec: ActionSpec{Type: "pool"}, wantErr: true},
		{name: "delay without amount", spec: ActionSpec{Type: "delay"}, wantErr: true},
		{name: "rcode without code", spec: ActionSpec{Type: "rcode"}, wantErr: true},
		{name: "unknown", spec: ActionSpec{Type: "frobnicate"}, wantErr: true},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			action, err := buildAction(tt.spec)
			if tt.wantErr {
				require.Error(t, err)
				return
			}
			require.NoError(t, err)
			assert.Equal(t, tt.want, action.String())
		})
	}
}
