package rules

import (
	"math"

	"github.com/miekg/dns"

	pkgerrors "dnsgate/pkg/errors"
)

// RuleInput is the closed set of shapes accepted by MakeRule. Exactly one
// alternative is populated per value; anything else is rejected as
// unrecognized input.
type RuleInput interface {
	isRuleInput()
}

// Pattern is a single string, interpreted as a network mask first and as a
// domain suffix otherwise.
type Pattern string

// Patterns is a list of strings, each interpreted like Pattern.
type Patterns []string

// Suffix is a value already known to be a domain name; it is never tried as
// a mask.
type Suffix string

// Suffixes is a list of domain names.
type Suffixes []string

// Prebuilt passes an already-constructed rule through unchanged.
type Prebuilt struct {
	Rule Rule
}

func (Pattern) isRuleInput()  {}
func (Patterns) isRuleInput() {}
func (Suffix) isRuleInput()   {}
func (Suffixes) isRuleInput() {}
func (Prebuilt) isRuleInput() {}

// MakeRule converts the operator-facing shorthand into a single rule.
// Strings are tried as network masks first since every mask also parses as a
// domain name. If any mask is accepted the result is a source-address
// netmask-group rule over the accepted masks and suffix entries are
// discarded; suffixes only win when no mask parsed at all.
func MakeRule(input RuleInput) (Rule, error) {
	if prebuilt, ok := input.(Prebuilt); ok {
		if prebuilt.Rule == nil {
			return nil, pkgerrors.ErrUnrecognizedInput.WithMessage("prebuilt rule is nil")
		}
		return prebuilt.Rule, nil
	}

	group := &NetmaskGroup{}
	tree := NewSuffixMatchTree()

	add := func(s string) error {
		// Masks first: every mask is also a valid domain name.
		if err := group.AddMask(s); err == nil {
			return nil
		}
		return tree.Add(s)
	}

	switch v := input.(type) {
	case Pattern:
		if err := add(string(v)); err != nil {
			return nil, err
		}
	case Patterns:
		for _, s := range v {
			if err := add(s); err != nil {
				return nil, err
			}
		}
	case Suffix:
		if err := tree.Add(string(v)); err != nil {
			return nil, err
		}
	case Suffixes:
		for _, s := range v {
			if err := tree.Add(s); err != nil {
				return nil, err
			}
		}
	default:
		return nil, pkgerrors.ErrUnrecognizedInput
	}

	if group.Empty() {
		return NewSuffixMatchRule(tree, false), nil
	}
	return NewNetmaskGroupRule(group, true, false), nil
}

// CheckParameterBound rejects numeric parameters that arrive as wider
// integers than the target field can represent.
func CheckParameterBound(name string, value, max uint64) error {
	if value > max {
		return pkgerrors.ErrParameterOutOfRange.
			WithMessage("%s: parameter is too large, maximum is %d", name, max).
			WithDetail("parameter", name).
			WithDetail("value", value).
			WithDetail("maximum", max)
	}
	return nil
}

// NewQTypeRuleFromString resolves a type mnemonic such as "AAAA".
func NewQTypeRuleFromString(s string) (*QTypeRule, error) {
	qtype, ok := dns.StringToType[s]
	if !ok {
		return nil, pkgerrors.ErrUnrecognizedInput.WithMessage("unable to convert '%s' to a DNS type", s)
	}
	return NewQTypeRule(qtype), nil
}

func NewQClassRule(qclass uint64) (*QClassRule, error) {
	if err := CheckParameterBound("QClassRule", qclass, math.MaxUint16); err != nil {
		return nil, err
	}
	return &QClassRule{qclass: uint16(qclass)}, nil
}

func NewOpcodeRule(opcode uint64) (*OpcodeRule, error) {
	if err := CheckParameterBound("OpcodeRule", opcode, math.MaxUint8); err != nil {
		return nil, err
	}
	return &OpcodeRule{opcode: int(opcode)}, nil
}

func NewRCodeRule(rcode uint64) (*RCodeRule, error) {
	if err := CheckParameterBound("RCodeRule", rcode, math.MaxUint8); err != nil {
		return nil, err
	}
	return &RCodeRule{rcode: int(rcode)}, nil
}

func NewERCodeRule(rcode uint64) (*ERCodeRule, error) {
	if err := CheckParameterBound("ERCodeRule", rcode, math.MaxUint8); err != nil {
		return nil, err
	}
	return &ERCodeRule{rcode: int(rcode)}, nil
}

func NewEDNSVersionRule(version uint64) (*EDNSVersionRule, error) {
	if err := CheckParameterBound("EDNSVersionRule", version, math.MaxUint8); err != nil {
		return nil, err
	}
	return &EDNSVersionRule{version: uint8(version)}, nil
}

func NewEDNSOptionRule(optcode uint64) (*EDNSOptionRule, error) {
	if err := CheckParameterBound("EDNSOptionRule", optcode, math.MaxUint16); err != nil {
		return nil, err
	}
	return &EDNSOptionRule{optcode: uint16(optcode)}, nil
}

func NewDSTPortRule(port uint64) (*DSTPortRule, error) {
	if err := CheckParameterBound("DSTPortRule", port, math.MaxUint16); err != nil {
		return nil, err
	}
	return &DSTPortRule{port: uint16(port)}, nil
}

func NewRecordsCountRule(section, minCount, maxCount uint64) (*RecordsCountRule, error) {
	if err := CheckParameterBound("RecordsCountRule", section, math.MaxUint8); err != nil {
		return nil, err
	}
	if err := CheckParameterBound("RecordsCountRule", minCount, math.MaxUint16); err != nil {
		return nil, err
	}
	if err := CheckParameterBound("RecordsCountRule", maxCount, math.MaxUint16); err != nil {
		return nil, err
	}
	return &RecordsCountRule{section: uint8(section), min: uint16(minCount), max: uint16(maxCount)}, nil
}

func NewRecordsTypeCountRule(section, rtype, minCount, maxCount uint64) (*RecordsTypeCountRule, error) {
	if err := CheckParameterBound("RecordsTypeCountRule", section, math.MaxUint8); err != nil {
		return nil, err
	}
	if err := CheckParameterBound("RecordsTypeCountRule", rtype, math.MaxUint16); err != nil {
		return nil, err
	}
	if err := CheckParameterBound("RecordsTypeCountRule", minCount, math.MaxUint16); err != nil {
		return nil, err
	}
	if err := CheckParameterBound("RecordsTypeCountRule", maxCount, math.MaxUint16); err != nil {
		return nil, err
	}
	return &RecordsTypeCountRule{
		section: uint8(section),
		rtype:   uint16(rtype),
		min:     uint16(minCount),
		max:     uint16(maxCount),
	}, nil
}

func NewQNameLabelsCountRule(minCount, maxCount uint64) (*QNameLabelsCountRule, error) {
	if err := CheckParameterBound("QNameLabelsCountRule", minCount, math.MaxUint32); err != nil {
		return nil, err
	}
	if err := CheckParameterBound("QNameLabelsCountRule", maxCount, math.MaxUint32); err != nil {
		return nil, err
	}
	return &QNameLabelsCountRule{min: int(minCount), max: int(maxCount)}, nil
}

func NewQNameWireLengthRule(minLen, maxLen uint64) (*QNameWireLengthRule, error) {
	if err := CheckParameterBound("QNameWireLengthRule", minLen, math.MaxUint16); err != nil {
		return nil, err
	}
	if err := CheckParameterBound("QNameWireLengthRule", maxLen, math.MaxUint16); err != nil {
		return nil, err
	}
	return &QNameWireLengthRule{min: int(minLen), max: int(maxLen)}, nil
}
