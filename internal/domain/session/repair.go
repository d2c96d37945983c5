package session

// Repairs counts what Load had to fix to restore the forest invariants
type Repairs struct {
	DroppedDuplicates int  `json:"droppedDuplicates"`
	DemotedOrphans    int  `json:"demotedOrphans"`
	BrokenCycles      int  `json:"brokenCycles"`
	ClearedSelection  bool `json:"clearedSelection"`
}

// Any reports whether anything was repaired
func (r Repairs) Any() bool {
	return r.DroppedDuplicates > 0 || r.DemotedOrphans > 0 || r.BrokenCycles > 0 || r.ClearedSelection
}

// repair copies raw into an arena, keeping the first occurrence of each id,
// demoting dangling and self parents to roots and cutting parent cycles.
func repair(raw []Node) (map[string]*Node, []string, Repairs) {
	var r Repairs
	nodes := make(map[string]*Node, len(raw))
	order := make([]string, 0, len(raw))

	for i := range raw {
		n := raw[i].clone()
		if n.ID == "" {
			r.DroppedDuplicates++
			continue
		}
		if _, dup := nodes[n.ID]; dup {
			r.DroppedDuplicates++
			continue
		}
		nodes[n.ID] = &n
		order = append(order, n.ID)
	}

	for _, nid := range order {
		n := nodes[nid]
		pid, ok := n.Parent()
		if !ok {
			continue
		}
		if _, exists := nodes[pid]; !exists || pid == nid {
			n.ParentID = nil
			r.DemotedOrphans++
		}
	}

	const (
		unvisited = iota
		onPath
		done
	)
	state := make(map[string]int, len(order))
	for _, start := range order {
		var path []string
		cur := start
		for state[cur] == unvisited {
			state[cur] = onPath
			path = append(path, cur)
			pid, ok := nodes[cur].Parent()
			if !ok {
				break
			}
			if state[pid] == onPath {
				// cur closes the cycle
				nodes[cur].ParentID = nil
				r.BrokenCycles++
				break
			}
			cur = pid
		}
		for _, p := range path {
			state[p] = done
		}
	}

	return nodes, order, r
}
