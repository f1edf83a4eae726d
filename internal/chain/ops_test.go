package chain

import (
	"testing"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"dnsgate/internal/actions"
	"dnsgate/internal/rules"
	pkgerrors "dnsgate/pkg/errors"
)

func testEntry(t *testing.T, name string) *Entry {
	t.Helper()
	e, err := NewEntry(rules.AllRule{}, actions.AllowAction{}, EntryParams{Name: name})
	require.NoError(t, err)
	return e
}

func entryNames(entries []*Entry) []string {
	names := make([]string, 0, len(entries))
	for _, e := range entries {
		names = append(names, e.Name)
	}
	return names
}

func TestNewEntry(t *testing.T) {
	t.Run("generates uuid when absent", func(t *testing.T) {
		e, err := NewEntry(rules.AllRule{}, actions.DropAction{}, EntryParams{})
		require.NoError(t, err)
		assert.NotEqual(t, uuid.Nil, e.ID)
	})

	t.Run("accepts supplied uuid", func(t *testing.T) {
		id := uuid.NewString()
		e, err := NewEntry(rules.AllRule{}, actions.DropAction{}, EntryParams{UUID: id})
		require.NoError(t, err)
		assert.Equal(t, id, e.ID.String())
	})

	t.Run("rejects malformed uuid", func(t *testing.T) {
		_, err := NewEntry(rules.AllRule{}, actions.DropAction{}, EntryParams{UUID: "not-a-uuid"})
		require.Error(t, err)
		assert.True(t, pkgerrors.IsValidation(err))
	})

	t.Run("creation order increases", func(t *testing.T) {
		a := testEntry(t, "a")
		b := testEntry(t, "b")
		assert.Greater(t, b.CreationOrder, a.CreationOrder)
	})
}

func TestSetAllSkipsIncompleteEntries(t *testing.T) {
	c := New("test")
	good := testEntry(t, "good")
	noRule := &Entry{ID: uuid.New(), Action: actions.DropAction{}}
	noAction := &Entry{ID: uuid.New(), Rule: rules.AllRule{}}

	c.SetAll([]*Entry{nil, noRule, good, noAction})

	require.Equal(t, 1, c.Len())
	assert.Equal(t, "good", c.Snapshot()[0].Name)
}

func TestAppendAndClear(t *testing.T) {
	c := New("test")
	c.Append(testEntry(t, "a"))
	c.Append(testEntry(t, "b"))
	assert.Equal(t, []string{"a", "b"}, entryNames(c.Snapshot()))

	c.Clear()
	assert.Equal(t, 0, c.Len())
}

func TestRemoveByID(t *testing.T) {
	t.Run("by uuid", func(t *testing.T) {
		c := New("test")
		a := testEntry(t, "a")
		b := testEntry(t, "b")
		c.SetAll([]*Entry{a, b})

		require.NoError(t, c.RemoveByID(a.ID.String()))
		assert.Equal(t, []string{"b"}, entryNames(c.Snapshot()))
	})

	t.Run("by name", func(t *testing.T) {
		c := New("test")
		c.SetAll([]*Entry{testEntry(t, "a"), testEntry(t, "b")})

		require.NoError(t, c.RemoveByID("b"))
		assert.Equal(t, []string{"a"}, entryNames(c.Snapshot()))
	})

	t.Run("name removes first match only", func(t *testing.T) {
		c := New("test")
		c.SetAll([]*Entry{testEntry(t, "dup"), testEntry(t, "dup")})

		require.NoError(t, c.RemoveByID("dup"))
		assert.Equal(t, 1, c.Len())
	})

	t.Run("unknown uuid", func(t *testing.T) {
		c := New("test")
		c.Append(testEntry(t, "a"))

		err := c.RemoveByID(uuid.NewString())
		require.Error(t, err)
		assert.True(t, pkgerrors.IsNotFound(err))
	})

	t.Run("unknown name", func(t *testing.T) {
		c := New("test")
		c.Append(testEntry(t, "a"))

		err := c.RemoveByID("missing")
		require.Error(t, err)
		assert.True(t, pkgerrors.IsNotFound(err))
	})
}

func TestRemoveByPosition(t *testing.T) {
	c := New("test")
	c.SetAll([]*Entry{testEntry(t, "a"), testEntry(t, "b"), testEntry(t, "c")})

	require.NoError(t, c.RemoveByPosition(1))
	assert.Equal(t, []string{"a", "c"}, entryNames(c.Snapshot()))

	tests := []struct {
		name string
		pos  int
	}{
		{name: "negative", pos: -1},
		{name: "past end", pos: 2},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			err := c.RemoveByPosition(tt.pos)
			require.Error(t, err)
			assert.ErrorIs(t, err, pkgerrors.ErrIndexOutOfRange)
		})
	}
}

func TestMoveToTop(t *testing.T) {
	c := New("test")
	c.SetAll([]*Entry{testEntry(t, "a"), testEntry(t, "b"), testEntry(t, "c")})

	c.MoveToTop()
	assert.Equal(t, []string{"c", "a", "b"}, entryNames(c.Snapshot()))

	empty := New("empty")
	empty.MoveToTop()
	assert.Equal(t, 0, empty.Len())
}

func TestMove(t *testing.T) {
	build := func(t *testing.T) *Chain {
		c := New("test")
		c.SetAll([]*Entry{
			testEntry(t, "a"), testEntry(t, "b"),
			testEntry(t, "c"), testEntry(t, "d"),
		})
		return c
	}

	tests := []struct {
		name string
		from int
		to   int
		want []string
	}{
		{name: "towards front", from: 2, to: 0, want: []string{"c", "a", "b", "d"}},
		{name: "towards back adjusts for removed slot", from: 0, to: 2, want: []string{"b", "a", "c", "d"}},
		{name: "to one past the end", from: 0, to: 4, want: []string{"b", "c", "d", "a"}},
		{name: "same position is a no-op", from: 1, to: 1, want: []string{"a", "b", "c", "d"}},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			c := build(t)
			require.NoError(t, c.Move(tt.from, tt.to))
			assert.Equal(t, tt.want, entryNames(c.Snapshot()))
		})
	}

	t.Run("round trip with adjusted index restores order", func(t *testing.T) {
		c := build(t)
		// from < to lands the entry at to-1, so the way back starts there.
		require.NoError(t, c.Move(1, 3))
		assert.Equal(t, []string{"a", "c", "b", "d"}, entryNames(c.Snapshot()))
		require.NoError(t, c.Move(2, 1))
		assert.Equal(t, []string{"a", "b", "c", "d"}, entryNames(c.Snapshot()))
	})

	t.Run("invalid indexes", func(t *testing.T) {
		c := build(t)
		for _, pair := range [][2]int{{-1, 0}, {0, -1}, {4, 0}, {0, 5}} {
			err := c.Move(pair[0], pair[1])
			require.Error(t, err)
			assert.ErrorIs(t, err, pkgerrors.ErrInvalidIndex)
		}
	})
}

func TestTopN(t *testing.T) {
	c := New("test")
	a := testEntry(t, "a")
	b := testEntry(t, "b")
	d := testEntry(t, "d")
	c.SetAll([]*Entry{a, b, d})

	for i := 0; i < 3; i++ {
		b.CountMatch()
	}
	d.CountMatch()

	t.Run("orders by matches descending", func(t *testing.T) {
		top := c.TopN(3)
		assert.Equal(t, []string{"b", "d", "a"}, entryNames(top))
	})

	t.Run("clamps to chain length", func(t *testing.T) {
		assert.Len(t, c.TopN(10), 3)
	})

	t.Run("zero returns nothing", func(t *testing.T) {
		assert.Len(t, c.TopN(0), 0)
	})

	t.Run("ties keep chain order", func(t *testing.T) {
		tied := New("tied")
		x := testEntry(t, "x")
		y := testEntry(t, "y")
		z := testEntry(t, "z")
		tied.SetAll([]*Entry{x, y, z})
		x.CountMatch()
		y.CountMatch()
		z.CountMatch()

		assert.Equal(t, []string{"x", "y", "z"}, entryNames(tied.TopN(3)))
	})
}
