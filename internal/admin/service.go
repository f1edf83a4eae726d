package admin

import (
	"context"
	"math"
	"strconv"
	"time"

	"github.com/redis/go-redis/v9"

	"dnsgate/internal/actions"
	"dnsgate/internal/chain"
	"dnsgate/internal/config"
	"dnsgate/internal/constants"
	"dnsgate/internal/logger"
	"dnsgate/internal/rules"
	pkgerrors "dnsgate/pkg/errors"
	"dnsgate/pkg/metrics"
)

type Service interface {
	ListChains(ctx context.Context) []ChainInfo
	ListRules(ctx context.Context, chainName string) ([]EntryView, error)
	Describe(ctx context.Context, chainName string, opts chain.DescribeOptions) (string, error)
	SetRules(ctx context.Context, chainName string, specs []EntrySpec) ([]EntryView, error)
	AppendRule(ctx context.Context, chainName string, spec EntrySpec) (*EntryView, error)
	RemoveRule(ctx context.Context, chainName, ref string) error
	MoveToTop(ctx context.Context, chainName string) error
	Move(ctx context.Context, chainName string, req MoveRequest) error
	TopRules(ctx context.Context, chainName string, n int) ([]EntryView, error)
	ClearRules(ctx context.Context, chainName string) error
	Bench(ctx context.Context, req BenchRequest) (*BenchResponse, error)
}

type service struct {
	registry   *chain.Registry
	kvClient   *redis.Client
	rlDefaults config.RateLimitDefaults
	log        logger.Logger
}

type ServiceOption func(*service)

// WithKeyValueClient enables "keyvalue" rules. Without it the rule type is
// rejected at build time.
func WithKeyValueClient(client *redis.Client) ServiceOption {
	return func(s *service) {
		s.kvClient = client
	}
}

// WithRateLimitDefaults seeds expiration and sweep tuning for rate-limit
// rules built without explicit parameters.
func WithRateLimitDefaults(defaults config.RateLimitDefaults) ServiceOption {
	return func(s *service) {
		s.rlDefaults = defaults
	}
}

func NewService(registry *chain.Registry, log logger.Logger, opts ...ServiceOption) Service {
	s := &service{
		registry: registry,
		log:      log,
	}
	for _, opt := range opts {
		opt(s)
	}
	return s
}

func (s *service) chain(name string) (*chain.Chain, error) {
	c, ok := s.registry.Chain(name)
	if !ok {
		return nil, pkgerrors.ErrNotFound.
			WithMessage("unknown chain %q", name).
			WithDetail("chain", name)
	}
	return c, nil
}

func (s *service) audit(ctx context.Context, chainName, operation string, keysAndValues ...interface{}) {
	metrics.IncChainMutation(chainName, operation)
	fields := append([]interface{}{"chain", chainName, "operation", operation}, keysAndValues...)
	s.log.InfowCtx(ctx, "Chain mutated", fields...)
}

func (s *service) ListChains(_ context.Context) []ChainInfo {
	names := s.registry.Names()
	infos := make([]ChainInfo, 0, len(names))
	for _, name := range names {
		c, _ := s.registry.Chain(name)
		infos = append(infos, ChainInfo{Name: name, Entries: c.Len()})
	}
	return infos
}

func (s *service) ListRules(_ context.Context, chainName string) ([]EntryView, error) {
	c, err := s.chain(chainName)
	if err != nil {
		return nil, err
	}
	return entryViews(c.Snapshot()), nil
}

func (s *service) Describe(_ context.Context, chainName string, opts chain.DescribeOptions) (string, error) {
	c, err := s.chain(chainName)
	if err != nil {
		return "", err
	}
	return c.Describe(opts), nil
}

func (s *service) SetRules(ctx context.Context, chainName string, specs []EntrySpec) ([]EntryView, error) {
	c, err := s.chain(chainName)
	if err != nil {
		return nil, err
	}

	entries := make([]*chain.Entry, 0, len(specs))
	for i, spec := range specs {
		entry, err := s.buildEntry(spec)
		if err != nil {
			return nil, pkgerrors.Wrap(err, pkgerrors.ErrValidation.
				WithMessage("rule %d: %s", i, err.Error()))
		}
		entries = append(entries, entry)
	}

	c.SetAll(entries)
	s.audit(ctx, chainName, "set", "count", len(entries))
	return entryViews(c.Snapshot()), nil
}

func (s *service) AppendRule(ctx context.Context, chainName string, spec EntrySpec) (*EntryView, error) {
	c, err := s.chain(chainName)
	if err != nil {
		return nil, err
	}

	entry, err := s.buildEntry(spec)
	if err != nil {
		return nil, err
	}

	c.Append(entry)
	s.audit(ctx, chainName, "append", "uuid", entry.ID.String(), "rule", entry.Rule.String())

	snapshot := c.Snapshot()
	view := entryView(len(snapshot)-1, entry)
	return &view, nil
}

// RemoveRule accepts a numeric position, a UUID or a rule name.
func (s *service) RemoveRule(ctx context.Context, chainName, ref string) error {
	c, err := s.chain(chainName)
	if err != nil {
		return err
	}

	if pos, convErr := strconv.Atoi(ref); convErr == nil {
		if err := c.RemoveByPosition(pos); err != nil {
			return err
		}
		s.audit(ctx, chainName, "remove", "position", pos)
		return nil
	}

	if err := c.RemoveByID(ref); err != nil {
		return err
	}
	s.audit(ctx, chainName, "remove", "ref", ref)
	return nil
}

func (s *service) MoveToTop(ctx context.Context, chainName string) error {
	c, err := s.chain(chainName)
	if err != nil {
		return err
	}
	c.MoveToTop()
	s.audit(ctx, chainName, "move-to-top")
	return nil
}

func (s *service) Move(ctx context.Context, chainName string, req MoveRequest) error {
	c, err := s.chain(chainName)
	if err != nil {
		return err
	}
	if err := c.Move(req.From, req.To); err != nil {
		return err
	}
	s.audit(ctx, chainName, "move", "from", req.From, "to", req.To)
	return nil
}

func (s *service) TopRules(_ context.Context, chainName string, n int) ([]EntryView, error) {
	c, err := s.chain(chainName)
	if err != nil {
		return nil, err
	}
	if n <= 0 {
		n = constants.DefaultTopN
	}

	top := c.TopN(n)
	snapshot := c.Snapshot()
	positions := make(map[*chain.Entry]int, len(snapshot))
	for i, e := range snapshot {
		positions[e] = i
	}

	views := make([]EntryView, 0, len(top))
	for _, e := range top {
		views = append(views, entryView(positions[e], e))
	}
	return views, nil
}

// ClearRules wipes the query chain. Other chains are managed entry by
// entry; only the query chain supports wholesale clearing.
func (s *service) ClearRules(ctx context.Context, chainName string) error {
	if chainName != chain.QueryChain {
		return pkgerrors.ErrValidation.
			WithMessage("only the %s chain can be cleared", chain.QueryChain).
			WithDetail("chain", chainName)
	}
	c, err := s.chain(chainName)
	if err != nil {
		return err
	}
	c.Clear()
	s.audit(ctx, chainName, "clear")
	return nil
}

func (s *service) Bench(_ context.Context, req BenchRequest) (*BenchResponse, error) {
	rule, err := s.buildRule(req.Rule)
	if err != nil {
		return nil, err
	}
	if req.Times > constants.MaxBenchTimes {
		return nil, pkgerrors.ErrParameterOutOfRange.
			WithMessage("times: parameter is too large, maximum is %d", constants.MaxBenchTimes)
	}

	result := chain.BenchRule(rule, req.Times, req.Suffix)
	return &BenchResponse{
		Matches:     result.Matches,
		Times:       result.Times,
		ElapsedUsec: float64(result.Elapsed.Microseconds()),
		QPS:         result.Rate,
		Summary:     result.String(),
	}, nil
}

func (s *service) buildEntry(spec EntrySpec) (*chain.Entry, error) {
	rule, err := s.buildRule(spec.Rule)
	if err != nil {
		return nil, err
	}
	action, err := buildAction(spec.Action)
	if err != nil {
		return nil, err
	}
	return chain.NewEntry(rule, action, chain.EntryParams{
		UUID: spec.UUID,
		Name: spec.Name,
	})
}

func (s *service) buildRule(spec RuleSpec) (rules.Rule, error) {
	switch spec.Type {
	case "all":
		return rules.AllRule{}, nil
	case "proba":
		return rules.NewProbaRule(spec.Probability), nil
	case "match":
		return rules.MakeRule(rules.Patterns(spec.Patterns))
	case "suffix":
		tree := rules.NewSuffixMatchTree()
		for _, name := range spec.Patterns {
			if err := tree.Add(name); err != nil {
				return nil, err
			}
		}
		return rules.NewSuffixMatchRule(tree, spec.Quiet), nil
	case "netmask":
		group := &rules.NetmaskGroup{}
		for _, mask := range spec.Patterns {
			if err := group.AddMask(mask); err != nil {
				return nil, err
			}
		}
		return rules.NewNetmaskGroupRule(group, true, spec.Quiet), nil
	case "qname":
		return rules.NewQNameRule(spec.Value), nil
	case "qtype":
		return rules.NewQTypeRuleFromString(spec.Value)
	case "qclass":
		return rules.NewQClassRule(number(spec))
	case "opcode":
		return rules.NewOpcodeRule(number(spec))
	case "rcode":
		return rules.NewRCodeRule(number(spec))
	case "ercode":
		return rules.NewERCodeRule(number(spec))
	case "ednsversion":
		return rules.NewEDNSVersionRule(number(spec))
	case "ednsoption":
		return rules.NewEDNSOptionRule(number(spec))
	case "dstport":
		return rules.NewDSTPortRule(number(spec))
	case "tcp":
		return rules.NewTCPRule(true), nil
	case "udp":
		return rules.NewTCPRule(false), nil
	case "rd":
		return rules.RDRule{}, nil
	case "tag":
		if spec.TagValue != "" {
			value := spec.TagValue
			return rules.NewTagRule(spec.Tag, &value), nil
		}
		return rules.NewTagRule(spec.Tag, nil), nil
	case "recordscount":
		section, err := sectionNumber(spec.Section)
		if err != nil {
			return nil, err
		}
		return rules.NewRecordsCountRule(section, minOf(spec), maxOf(spec))
	case "recordstypecount":
		section, err := sectionNumber(spec.Section)
		if err != nil {
			return nil, err
		}
		return rules.NewRecordsTypeCountRule(section, number(spec), minOf(spec), maxOf(spec))
	case "qnamelabels":
		return rules.NewQNameLabelsCountRule(minOf(spec), maxOf(spec))
	case "qnamewirelength":
		return rules.NewQNameWireLengthRule(minOf(spec), maxOf(spec))
	case "maxqps":
		return rules.NewMaxQPSRule(spec.QPS, spec.Burst), nil
	case "maxqpsip":
		if spec.QPS <= 0 || spec.QPS > math.MaxUint32 {
			return nil, pkgerrors.ErrParameterOutOfRange.
				WithMessage("qps: must be between 1 and %d", uint64(math.MaxUint32))
		}
		if spec.Burst < 0 || spec.Burst > math.MaxUint32 {
			return nil, pkgerrors.ErrParameterOutOfRange.
				WithMessage("burst: must be between 0 and %d", uint64(math.MaxUint32))
		}
		return rules.NewMaxQPSIPRule(rules.MaxQPSIPConfig{
			QPS:             uint32(spec.QPS),
			Burst:           uint32(spec.Burst),
			IPv4PrefixLen:   spec.IPv4PrefixLen,
			IPv6PrefixLen:   spec.IPv6PrefixLen,
			Expiration:      time.Duration(s.rlDefaults.ExpirationSeconds) * time.Second,
			CleanupInterval: time.Duration(s.rlDefaults.CleanupIntervalSeconds) * time.Second,
			ScanFraction:    s.rlDefaults.ScanFraction,
		}), nil
	case "timedipset":
		return rules.NewTimedIPSetRule(), nil
	case "expr":
		return rules.NewExprRule(spec.Value)
	case "keyvalue":
		if s.kvClient == nil {
			return nil, pkgerrors.ErrServiceUnavailable.
				WithMessage("key-value store is not configured")
		}
		kind, err := lookupKind(spec.LookupKind)
		if err != nil {
			return nil, err
		}
		return rules.NewKeyValueLookupRule(s.kvClient, kind, spec.KeyPrefix), nil
	case "and":
		children, err := s.buildChildren(spec.Children)
		if err != nil {
			return nil, err
		}
		return rules.NewAndRule(children), nil
	case "or":
		children, err := s.buildChildren(spec.Children)
		if err != nil {
			return nil, err
		}
		return rules.NewOrRule(children), nil
	case "not":
		if spec.Child == nil {
			return nil, pkgerrors.ErrValidation.WithMessage("not: child rule is required")
		}
		child, err := s.buildRule(*spec.Child)
		if err != nil {
			return nil, err
		}
		return rules.NewNotRule(child), nil
	default:
		return nil, pkgerrors.ErrUnrecognizedInput.
			WithMessage("unknown rule type %q", spec.Type).
			WithDetail("type", spec.Type)
	}
}

func (s *service) buildChildren(specs []RuleSpec) ([]rules.Rule, error) {
	if len(specs) == 0 {
		return nil, pkgerrors.ErrValidation.WithMessage("combinator needs at least one child rule")
	}
	children := make([]rules.Rule, 0, len(specs))
	for _, spec := range specs {
		child, err := s.buildRule(spec)
		if err != nil {
			return nil, err
		}
		children = append(children, child)
	}
	return children, nil
}

func buildAction(spec ActionSpec) (actions.Action, error) {
	switch spec.Type {
	case "allow":
		return actions.AllowAction{}, nil
	case "drop":
		return actions.DropAction{}, nil
	case "none":
		return actions.NoneAction{}, nil
	case "pool":
		if spec.Pool == "" {
			return nil, pkgerrors.ErrValidation.WithMessage("pool: name is required")
		}
		return actions.NewPoolAction(spec.Pool), nil
	case "tc":
		return actions.TCAction{}, nil
	case "delay":
		if spec.DelayMs <= 0 {
			return nil, pkgerrors.ErrValidation.WithMessage("delay: delay_ms must be positive")
		}
		return actions.NewDelayAction(spec.DelayMs), nil
	case "rcode":
		if spec.RCode == nil {
			return nil, pkgerrors.ErrValidation.WithMessage("rcode: rcode is required")
		}
		if err := rules.CheckParameterBound("rcode", uint64(*spec.RCode), math.MaxUint8); err != nil {
			return nil, err
		}
		return actions.NewRCodeAction(*spec.RCode), nil
	default:
		return nil, pkgerrors.ErrUnrecognizedInput.
			WithMessage("unknown action type %q", spec.Type).
			WithDetail("type", spec.Type)
	}
}

func lookupKind(s string) (rules.LookupKeyKind, error) {
	switch rules.LookupKeyKind(s) {
	case rules.LookupKeyQName, rules.LookupKeySourceIP, rules.LookupKeySuffixSet:
		return rules.LookupKeyKind(s), nil
	default:
		return "", pkgerrors.ErrValidation.
			WithMessage("unknown lookup kind %q", s)
	}
}

func sectionNumber(s string) (uint64, error) {
	switch s {
	case "question":
		return uint64(rules.SectionQuestion), nil
	case "answer":
		return uint64(rules.SectionAnswer), nil
	case "authority":
		return uint64(rules.SectionAuthority), nil
	case "additional":
		return uint64(rules.SectionAdditional), nil
	default:
		return 0, pkgerrors.ErrValidation.
			WithMessage("unknown section %q", s)
	}
}

func number(spec RuleSpec) uint64 {
	if spec.Number == nil {
		return 0
	}
	return *spec.Number
}

func minOf(spec RuleSpec) uint64 {
	if spec.Min == nil {
		return 0
	}
	return *spec.Min
}

func maxOf(spec RuleSpec) uint64 {
	if spec.Max == nil {
		return math.MaxUint16
	}
	return *spec.Max
}

func entryViews(entries []*chain.Entry) []EntryView {
	views := make([]EntryView, 0, len(entries))
	for i, e := range entries {
		views = append(views, entryView(i, e))
	}
	return views
}

func entryView(pos int, e *chain.Entry) EntryView {
	return EntryView{
		Position: pos,
		Name:     e.Name,
		UUID:     e.ID.String(),
		Matches:  e.MatchCount(),
		Rule:     e.Rule.String(),
		Action:   e.Action.String(),
	}
}
