package session

import (
	"fmt"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// tickingClock advances one millisecond per reading
func tickingClock() func() time.Time {
	var mu sync.Mutex
	t := time.UnixMilli(1_700_000_000_000)
	return func() time.Time {
		mu.Lock()
		defer mu.Unlock()
		t = t.Add(time.Millisecond)
		return t
	}
}

func sequentialIDs() func() string {
	var mu sync.Mutex
	n := 0
	return func() string {
		mu.Lock()
		defer mu.Unlock()
		n++
		return fmt.Sprintf("n%d", n)
	}
}

func newTestStore() *Store {
	return NewStore(WithClock(tickingClock()), WithIDGenerator(sequentialIDs()))
}

// assertForest checks the structural invariants over the whole store
func assertForest(t *testing.T, s *Store) {
	t.Helper()
	data := s.Snapshot()
	ids := make(map[string]Node, len(data.Nodes))
	for _, n := range data.Nodes {
		_, dup := ids[n.ID]
		require.False(t, dup, "duplicate id %s", n.ID)
		ids[n.ID] = n
	}
	for _, n := range data.Nodes {
		if pid, ok := n.Parent(); ok {
			require.NotEqual(t, n.ID, pid, "self parent")
			_, exists := ids[pid]
			require.True(t, exists, "dangling parent %s on %s", pid, n.ID)
		}
		seen := map[string]bool{n.ID: true}
		cur := n
		for {
			pid, ok := cur.Parent()
			if !ok {
				break
			}
			require.False(t, seen[pid], "cycle through %s", pid)
			seen[pid] = true
			cur = ids[pid]
		}
	}
	if data.CurrentNodeID != nil {
		_, ok := ids[*data.CurrentNodeID]
		require.True(t, ok, "dangling selection")
	}
}

func TestNewStoreDefaults(t *testing.T) {
	s := NewStore()

	assert.Equal(t, DefaultSettings(), s.Settings())
	assert.Zero(t, s.Len())
	_, ok := s.Current()
	assert.False(t, ok)
}

func TestCreateNode(t *testing.T) {
	s := newTestStore()

	root := s.CreateNode("example.com", "", true)
	n, ok := s.Get(root)
	require.True(t, ok)
	assert.Equal(t, "example.com", n.URL)
	assert.Nil(t, n.Content)
	assert.True(t, n.IsRoot())
	require.NotNil(t, n.LastVisited)

	cur, ok := s.CurrentID()
	require.True(t, ok)
	assert.Equal(t, root, cur)

	child := s.CreateNode("example.com/a", root, false)
	c, _ := s.Get(child)
	pid, ok := c.Parent()
	require.True(t, ok)
	assert.Equal(t, root, pid)
	assert.Nil(t, c.LastVisited, "unselected node is never stamped")

	cur, _ = s.CurrentID()
	assert.Equal(t, root, cur, "selection unchanged without selectIt")
}

func TestCreateNodeUnknownParentBecomesRoot(t *testing.T) {
	s := newTestStore()

	nid := s.CreateNode("x", "missing", false)
	n, _ := s.Get(nid)
	assert.True(t, n.IsRoot())
	assertForest(t, s)
}

func TestContentUpdates(t *testing.T) {
	s := newTestStore()
	nid := s.CreateNode("x", "", false)

	assert.True(t, s.AppendContent(nid, "<p>"))
	assert.True(t, s.AppendContent(nid, "hi"))
	n, _ := s.Get(nid)
	require.NotNil(t, n.Content)
	assert.Equal(t, "<p>hi", *n.Content)

	assert.True(t, s.UpdateContent(nid, "<!DOCTYPE html>"))
	n, _ = s.Get(nid)
	assert.Equal(t, "<!DOCTYPE html>", *n.Content)

	assert.True(t, s.UpdateURL(nid, "y"))
	assert.True(t, s.UpdateLastVisited(nid, 42))
	n, _ = s.Get(nid)
	assert.Equal(t, "y", n.URL)
	assert.Equal(t, int64(42), *n.LastVisited)

	assert.True(t, s.ClearContent(nid))
	n, _ = s.Get(nid)
	assert.Nil(t, n.Content)
}

func TestUpdatesOnMissingNodeAreNoops(t *testing.T) {
	s := newTestStore()
	before := s.Snapshot()

	assert.False(t, s.UpdateContent("nope", "x"))
	assert.False(t, s.AppendContent("nope", "x"))
	assert.False(t, s.UpdateURL("nope", "x"))
	assert.False(t, s.UpdateLastVisited("nope", 1))
	assert.False(t, s.DeleteNode("nope"))

	assert.Equal(t, before, s.Snapshot())
}

func TestGetReturnsCopy(t *testing.T) {
	s := newTestStore()
	nid := s.CreateNode("x", "", false)
	s.UpdateContent(nid, "a")

	n, _ := s.Get(nid)
	*n.Content = "mutated"

	again, _ := s.Get(nid)
	assert.Equal(t, "a", *again.Content)
}

func TestDeleteCascade(t *testing.T) {
	s := newTestStore()
	r1 := s.CreateNode("r1", "", false)
	a := s.CreateNode("a", r1, false)
	b := s.CreateNode("b", a, false)
	c := s.CreateNode("c", r1, false)
	r2 := s.CreateNode("r2", "", false)

	var deleted []string
	s.Subscribe(ObserverFunc(func(ch Change) {
		if ch.Kind == ChangeNodeDeleted {
			deleted = append(deleted, ch.NodeID)
		}
	}))

	require.True(t, s.DeleteNode(a))
	assert.Equal(t, []string{b, a}, deleted, "children removed before parents")

	for _, gone := range []string{a, b} {
		_, ok := s.Get(gone)
		assert.False(t, ok)
	}
	for _, kept := range []string{r1, c, r2} {
		_, ok := s.Get(kept)
		assert.True(t, ok)
	}
	assertForest(t, s)
}

func TestDeleteInvariantHoldsAfterEachRemoval(t *testing.T) {
	s := newTestStore()
	root := s.CreateNode("r", "", false)
	mid := s.CreateNode("m", root, false)
	s.CreateNode("l1", mid, false)
	s.CreateNode("l2", mid, true)
	s.Select(root)

	s.Subscribe(ObserverFunc(func(ch Change) {
		if ch.Kind == ChangeNodeDeleted {
			assertForest(t, s)
		}
	}))
	s.DeleteNode(root)
	assert.Zero(t, s.Len())
}

func TestDeleteSelectionReselectsParent(t *testing.T) {
	s := newTestStore()
	root := s.CreateNode("r", "", true)
	child := s.CreateNode("c", root, true)

	require.True(t, s.DeleteNode(child))
	cur, ok := s.CurrentID()
	require.True(t, ok)
	assert.Equal(t, root, cur)
}

func TestDeleteAncestorOfSelectionReselectsItsParent(t *testing.T) {
	s := newTestStore()
	root := s.CreateNode("r", "", false)
	mid := s.CreateNode("m", root, false)
	leaf := s.CreateNode("l", mid, true)
	require.Equal(t, leaf, current(t, s))

	require.True(t, s.DeleteNode(mid))
	assert.Equal(t, root, current(t, s), "selection inside the removed subtree moves to its parent")
	assertForest(t, s)
}

func TestDeleteSelectedRootReselectsSurvivor(t *testing.T) {
	s := newTestStore()
	r1 := s.CreateNode("r1", "", true)
	s.CreateNode("r1/child", r1, false)
	r2 := s.CreateNode("r2", "", false)
	s.Select(r1)

	require.True(t, s.DeleteNode(r1))
	cur, ok := s.CurrentID()
	require.True(t, ok)
	assert.Equal(t, r2, cur, "descendants of the deleted root are not candidates")
	assertForest(t, s)
}

func TestDeleteLastNodeClearsSelection(t *testing.T) {
	s := newTestStore()
	only := s.CreateNode("r", "", true)

	require.True(t, s.DeleteCurrent())
	_, ok := s.Get(only)
	assert.False(t, ok)
	_, ok = s.CurrentID()
	assert.False(t, ok)
	assert.False(t, s.DeleteCurrent())
}

func TestCreateDeleteScenario(t *testing.T) {
	s := newTestStore()

	a := s.CreateNode("a", "", true)
	b := s.CreateNode("b", a, true)
	c := s.CreateNode("c", b, true)
	d := s.CreateNode("d", a, false)

	s.Select(c)
	require.True(t, s.DeleteNode(b))

	assert.Equal(t, 2, s.Len())
	cur, _ := s.CurrentID()
	assert.Equal(t, a, cur, "selection inside the removed subtree moves to the nearest survivor")

	s.Select(d)
	require.True(t, s.DeleteNode(a))
	assert.Zero(t, s.Len())
	_, ok := s.CurrentID()
	assert.False(t, ok)
	assertForest(t, s)
}

func TestChildrenKeepInsertionOrder(t *testing.T) {
	s := newTestStore()
	root := s.CreateNode("r", "", false)
	var want []string
	for i := 0; i < 5; i++ {
		want = append(want, s.CreateNode(fmt.Sprintf("c%d", i), root, false))
	}
	s.DeleteNode(want[2])
	want = append(want[:2], want[3:]...)

	var got []string
	for _, n := range s.Children(root) {
		got = append(got, n.ID)
	}
	assert.Equal(t, want, got)
	assert.Len(t, s.Roots(), 1)
}

func TestSettings(t *testing.T) {
	s := newTestStore()
	var kinds []ChangeKind
	s.Subscribe(ObserverFunc(func(c Change) { kinds = append(kinds, c.Kind) }))

	key := "sk-test"
	model := "claude-3-haiku-20240307"
	updated := s.UpdateSettings(SettingsPatch{APIKey: &key, Model: &model})
	assert.Equal(t, key, updated.APIKey)
	assert.Equal(t, model, updated.Model)
	assert.Equal(t, DefaultUserMessage, updated.UserMessage)

	require.True(t, s.ResetSetting(SettingModel))
	assert.Equal(t, DefaultModel, s.Settings().Model)
	assert.Equal(t, key, s.Settings().APIKey)

	require.True(t, s.ResetSetting(SettingAPIKey))
	assert.Empty(t, s.Settings().APIKey)
	assert.False(t, s.ResetSetting("colour"))

	assert.Equal(t, []ChangeKind{ChangeSettings, ChangeSettings, ChangeSettings}, kinds)
}

func TestObserversRunOutsideLock(t *testing.T) {
	s := newTestStore()
	var seen int
	s.Subscribe(ObserverFunc(func(c Change) {
		// Reading from inside the callback would deadlock if the lock were held
		seen = s.Len()
	}))

	s.CreateNode("x", "", false)
	assert.Equal(t, 1, seen)
}

func TestConcurrentMutations(t *testing.T) {
	s := NewStore()
	root := s.CreateNode("r", "", true)

	var wg sync.WaitGroup
	for w := 0; w < 8; w++ {
		wg.Add(1)
		go func(w int) {
			defer wg.Done()
			for i := 0; i < 50; i++ {
				nid := s.CreateNode(fmt.Sprintf("w%d/%d", w, i), root, i%2 == 0)
				s.AppendContent(nid, "x")
				if i%3 == 0 {
					s.DeleteNode(nid)
				}
				s.SelectNextSibling()
			}
		}(w)
	}
	wg.Wait()

	assertForest(t, s)
}
