package session

// Select makes nodeID the current node and stamps its visit time.
// Unknown ids are ignored.
func (s *Store) Select(nodeID string) bool {
	s.mu.Lock()
	if _, ok := s.nodes[nodeID]; !ok {
		s.mu.Unlock()
		return false
	}
	c := s.selectLocked(nodeID)
	s.mu.Unlock()

	s.notify(c)
	return true
}

// ClearSelection returns to the implicit home entry
func (s *Store) ClearSelection() bool {
	s.mu.Lock()
	if s.current == nil {
		s.mu.Unlock()
		return false
	}
	c := s.selectLocked("")
	s.mu.Unlock()

	s.notify(c)
	return true
}

// SelectParent moves to the parent of the current node. No-op on a root or
// without a selection.
func (s *Store) SelectParent() bool {
	return s.move(func(cur *Node) string {
		pid, _ := cur.Parent()
		return pid
	})
}

// SelectPreviousSibling moves to the previous sibling, wrapping around
func (s *Store) SelectPreviousSibling() bool {
	return s.move(func(cur *Node) string {
		return s.siblingLocked(cur, -1)
	})
}

// SelectNextSibling moves to the next sibling, wrapping around
func (s *Store) SelectNextSibling() bool {
	return s.move(func(cur *Node) string {
		return s.siblingLocked(cur, 1)
	})
}

// SelectMostRecentChild descends to the most recently visited child. Without
// a selection the roots are treated as the children of home.
func (s *Store) SelectMostRecentChild() bool {
	s.mu.Lock()
	key := rootKey
	if s.current != nil {
		key = *s.current
	}
	next := s.mostRecentLocked(s.children[key])
	if next == "" {
		s.mu.Unlock()
		return false
	}
	c := s.selectLocked(next)
	s.mu.Unlock()

	s.notify(c)
	return true
}

// move selects whatever pick returns for the current node. An empty pick
// changes nothing; picking the current node again re-stamps its visit time.
func (s *Store) move(pick func(cur *Node) string) bool {
	s.mu.Lock()
	if s.current == nil {
		s.mu.Unlock()
		return false
	}
	cur := s.nodes[*s.current]
	next := pick(cur)
	if next == "" {
		s.mu.Unlock()
		return false
	}
	c := s.selectLocked(next)
	s.mu.Unlock()

	s.notify(c)
	return true
}

// siblingLocked returns the sibling at offset step, circular over insertion
// order. An only child is its own sibling. Must hold lock.
func (s *Store) siblingLocked(cur *Node, step int) string {
	siblings := s.children[parentKey(cur)]
	if len(siblings) == 0 {
		return ""
	}
	for i, sid := range siblings {
		if sid == cur.ID {
			n := len(siblings)
			return siblings[((i+step)%n+n)%n]
		}
	}
	return ""
}

// mostRecentLocked picks the greatest LastVisited; never-visited nodes sort
// last and ties keep insertion order. Must hold lock.
func (s *Store) mostRecentLocked(ids []string) string {
	best := ""
	var bestAt *int64
	for _, cid := range ids {
		at := s.nodes[cid].LastVisited
		switch {
		case best == "":
			best, bestAt = cid, at
		case at != nil && (bestAt == nil || *at > *bestAt):
			best, bestAt = cid, at
		}
	}
	return best
}

// selectLocked sets the selection, stamping the visit time. An empty id
// clears it. Must hold lock.
func (s *Store) selectLocked(nodeID string) Change {
	if nodeID == "" {
		s.current = nil
		return Change{Kind: ChangeSelection}
	}
	n := s.nodes[nodeID]
	n.LastVisited = int64Ptr(s.stamp())
	s.current = strPtr(nodeID)
	return Change{Kind: ChangeSelection, NodeID: nodeID, Node: nodeRef(n.clone()), CurrentNodeID: strPtr(nodeID)}
}
