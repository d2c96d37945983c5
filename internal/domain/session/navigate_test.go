package session

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func current(t *testing.T, s *Store) string {
	t.Helper()
	cur, ok := s.CurrentID()
	require.True(t, ok, "expected a selection")
	return cur
}

func TestSelectStampsLastVisited(t *testing.T) {
	s := newTestStore()
	a := s.CreateNode("a", "", false)

	require.True(t, s.Select(a))
	first, _ := s.Get(a)
	require.NotNil(t, first.LastVisited)

	require.True(t, s.Select(a))
	second, _ := s.Get(a)
	assert.Greater(t, *second.LastVisited, *first.LastVisited)

	assert.False(t, s.Select("missing"))
	assert.Equal(t, a, current(t, s))
}

func TestClearSelection(t *testing.T) {
	s := newTestStore()
	s.CreateNode("a", "", true)

	assert.True(t, s.ClearSelection())
	_, ok := s.CurrentID()
	assert.False(t, ok)
	assert.False(t, s.ClearSelection())
}

func TestSelectParent(t *testing.T) {
	s := newTestStore()
	assert.False(t, s.SelectParent(), "no selection")

	root := s.CreateNode("r", "", true)
	assert.False(t, s.SelectParent(), "root has no parent")
	assert.Equal(t, root, current(t, s))

	s.CreateNode("c", root, true)
	assert.True(t, s.SelectParent())
	assert.Equal(t, root, current(t, s))
}

func TestSiblingNavigationIsCircular(t *testing.T) {
	s := newTestStore()
	root := s.CreateNode("r", "", false)
	a := s.CreateNode("a", root, false)
	b := s.CreateNode("b", root, false)
	c := s.CreateNode("c", root, false)

	assert.False(t, s.SelectNextSibling(), "no selection")

	s.Select(a)
	for _, want := range []string{b, c, a} {
		require.True(t, s.SelectNextSibling())
		assert.Equal(t, want, current(t, s))
	}
	for _, want := range []string{c, b, a} {
		require.True(t, s.SelectPreviousSibling())
		assert.Equal(t, want, current(t, s))
	}
}

func TestSiblingNavigationReturnsAfterFullCycle(t *testing.T) {
	s := newTestStore()
	root := s.CreateNode("r", "", false)
	var kids []string
	for _, u := range []string{"a", "b", "c", "d"} {
		kids = append(kids, s.CreateNode(u, root, false))
	}

	for _, start := range kids {
		s.Select(start)
		for i := 0; i < len(kids); i++ {
			s.SelectNextSibling()
		}
		assert.Equal(t, start, current(t, s))
		for i := 0; i < len(kids); i++ {
			s.SelectPreviousSibling()
		}
		assert.Equal(t, start, current(t, s))
	}
}

func TestRootsAreSiblings(t *testing.T) {
	s := newTestStore()
	r1 := s.CreateNode("r1", "", true)
	r2 := s.CreateNode("r2", "", false)

	require.True(t, s.SelectNextSibling())
	assert.Equal(t, r2, current(t, s))
	require.True(t, s.SelectNextSibling())
	assert.Equal(t, r1, current(t, s))
}

func TestOnlyChildSiblingMoveReselectsItself(t *testing.T) {
	s := newTestStore()
	root := s.CreateNode("r", "", false)
	only := s.CreateNode("o", root, true)
	before, _ := s.Get(only)

	require.True(t, s.SelectNextSibling())
	assert.Equal(t, only, current(t, s))
	afterNext, _ := s.Get(only)
	assert.Greater(t, *afterNext.LastVisited, *before.LastVisited)

	require.True(t, s.SelectPreviousSibling())
	assert.Equal(t, only, current(t, s))
	afterPrev, _ := s.Get(only)
	assert.Greater(t, *afterPrev.LastVisited, *afterNext.LastVisited)
}

func TestSelectMostRecentChild(t *testing.T) {
	s := newTestStore()
	root := s.CreateNode("r", "", true)
	a := s.CreateNode("a", root, false)
	b := s.CreateNode("b", root, false)
	s.CreateNode("c", root, false)

	require.True(t, s.SelectMostRecentChild())
	assert.Equal(t, a, current(t, s), "no visits yet: first in insertion order")

	s.Select(b)
	s.Select(a)
	s.Select(b)
	s.Select(root)

	require.True(t, s.SelectMostRecentChild())
	assert.Equal(t, b, current(t, s))

	assert.False(t, s.SelectMostRecentChild(), "leaf has no children")
	assert.Equal(t, b, current(t, s))
}

func TestSelectMostRecentChildTieKeepsInsertionOrder(t *testing.T) {
	s := newTestStore()
	root := s.CreateNode("r", "", true)
	a := s.CreateNode("a", root, false)
	b := s.CreateNode("b", root, false)
	s.UpdateLastVisited(a, 10)
	s.UpdateLastVisited(b, 10)

	require.True(t, s.SelectMostRecentChild())
	assert.Equal(t, a, current(t, s))
}

func TestSelectMostRecentChildFromHome(t *testing.T) {
	s := newTestStore()
	assert.False(t, s.SelectMostRecentChild(), "empty tree")

	s.CreateNode("r1", "", true)
	r2 := s.CreateNode("r2", "", true)
	s.ClearSelection()

	require.True(t, s.SelectMostRecentChild())
	assert.Equal(t, r2, current(t, s))
}
