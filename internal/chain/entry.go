package chain

import (
	"sync/atomic"

	"github.com/google/uuid"

	"dnsgate/internal/actions"
	"dnsgate/internal/rules"
	pkgerrors "dnsgate/pkg/errors"
)

// creationOrder is assigned once per entry at creation and never reused, so
// listings can show a stable tie-break even after reordering.
var creationOrder atomic.Uint64

// Entry binds one rule to one action inside a chain, together with its
// identity and match statistics. An entry belongs to exactly one chain slot
// at a time; reordering moves the entry, it never aliases it.
type Entry struct {
	ID            uuid.UUID
	Name          string
	CreationOrder uint64
	Rule          rules.Rule
	Action        actions.Action

	matches atomic.Uint64
}

// EntryParams carries the optional identity fields an operator may supply
// at creation time.
type EntryParams struct {
	UUID string
	Name string
}

// NewEntry builds an entry for rule and action. A missing UUID is generated;
// a supplied one must parse.
func NewEntry(rule rules.Rule, action actions.Action, params EntryParams) (*Entry, error) {
	id := uuid.New()
	if params.UUID != "" {
		parsed, err := uuid.Parse(params.UUID)
		if err != nil {
			return nil, pkgerrors.ErrValidation.
				WithCause(err).
				WithMessage("'%s' is not a valid UUID", params.UUID)
		}
		id = parsed
	}

	return &Entry{
		ID:            id,
		Name:          params.Name,
		CreationOrder: creationOrder.Add(1) - 1,
		Rule:          rule,
		Action:        action,
	}, nil
}

// CountMatch records one successful match. Counters are approximate with
// respect to concurrent configuration changes.
func (e *Entry) CountMatch() {
	e.matches.Add(1)
}

func (e *Entry) MatchCount() uint64 {
	return e.matches.Load()
}
