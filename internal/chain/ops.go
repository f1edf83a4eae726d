package chain

import (
	"slices"
	"sort"

	"github.com/google/uuid"

	pkgerrors "dnsgate/pkg/errors"
)

// SetAll replaces the whole chain. Entries missing a rule or an action are
// silently skipped, matching bulk-load semantics: an import is best effort
// per entry, never partial per chain.
func (c *Chain) SetAll(entries []*Entry) {
	c.modify(func([]*Entry) []*Entry {
		kept := make([]*Entry, 0, len(entries))
		for _, e := range entries {
			if e == nil || e.Rule == nil || e.Action == nil {
				continue
			}
			kept = append(kept, e)
		}
		return kept
	})
}

// Append adds an entry at the lowest priority position.
func (c *Chain) Append(e *Entry) {
	c.modify(func(entries []*Entry) []*Entry {
		return append(entries, e)
	})
}

// Clear removes every entry.
func (c *Chain) Clear() {
	c.modify(func([]*Entry) []*Entry {
		return nil
	})
}

// RemoveByID removes the entry identified by idOrName. The input is first
// interpreted as a UUID; when it does not parse it falls back to a scan by
// name, removing the first match.
func (c *Chain) RemoveByID(idOrName string) error {
	var removed bool

	if id, err := uuid.Parse(idOrName); err == nil {
		c.modify(func(entries []*Entry) []*Entry {
			for i, e := range entries {
				if e.ID == id {
					removed = true
					return slices.Delete(entries, i, i+1)
				}
			}
			return entries
		})
	} else {
		c.modify(func(entries []*Entry) []*Entry {
			for i, e := range entries {
				if e.Name == idOrName {
					removed = true
					return slices.Delete(entries, i, i+1)
				}
			}
			return entries
		})
	}

	if !removed {
		return pkgerrors.ErrNotFound.WithDetail("id", idOrName)
	}
	return nil
}

// RemoveByPosition removes the entry at the zero-based position.
func (c *Chain) RemoveByPosition(pos int) error {
	var err error
	c.modify(func(entries []*Entry) []*Entry {
		if pos < 0 || pos >= len(entries) {
			err = pkgerrors.ErrIndexOutOfRange.
				WithMessage("attempt to delete non-existing rule at position %d", pos).
				WithDetail("position", pos).
				WithDetail("length", len(entries))
			return entries
		}
		return slices.Delete(entries, pos, pos+1)
	})
	return err
}

// MoveToTop moves the most recently appended entry to the highest priority
// position. It is a no-op on an empty chain.
func (c *Chain) MoveToTop() {
	c.modify(func(entries []*Entry) []*Entry {
		if len(entries) == 0 {
			return entries
		}
		subject := entries[len(entries)-1]
		entries = entries[:len(entries)-1]
		return slices.Insert(entries, 0, subject)
	})
}

// Move removes the entry at from and reinserts it so that it occupies
// logical position to in the resulting sequence. When from < to the target
// index is decremented to account for the removed slot, so to names the
// entry's final position, not an insertion point before removal.
func (c *Chain) Move(from, to int) error {
	var err error
	c.modify(func(entries []*Entry) []*Entry {
		if from < 0 || to < 0 || from >= len(entries) || to > len(entries) {
			err = pkgerrors.ErrInvalidIndex.
				WithMessage("attempt to move rules from/to invalid index").
				WithDetail("from", from).
				WithDetail("to", to).
				WithDetail("length", len(entries))
			return entries
		}

		subject := entries[from]
		entries = slices.Delete(entries, from, from+1)
		target := to
		if from < to {
			target--
		}
		return slices.Insert(entries, target, subject)
	})
	return err
}

// TopN returns the n entries with the highest match counts, descending.
// Ties keep their original chain order. Fewer than n entries are returned
// when the chain is shorter.
func (c *Chain) TopN(n int) []*Entry {
	snapshot := c.Snapshot()

	type counted struct {
		matches uint64
		pos     int
	}
	counts := make([]counted, len(snapshot))
	for i, e := range snapshot {
		counts[i] = counted{matches: e.MatchCount(), pos: i}
	}

	sort.SliceStable(counts, func(i, j int) bool {
		return counts[i].matches > counts[j].matches
	})

	if n > len(counts) {
		n = len(counts)
	}
	if n < 0 {
		n = 0
	}
	result := make([]*Entry, 0, n)
	for _, ct := range counts[:n] {
		result = append(result, snapshot[ct.pos])
	}
	return result
}
