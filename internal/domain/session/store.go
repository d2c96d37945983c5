package session

import (
	"sync"
	"time"

	"github.com/GriffinCanCode/indranet/internal/shared/id"
)

// rootKey indexes the children of the implicit home entry (the roots)
const rootKey = ""

// Store owns the session state: settings, the node forest and the current
// selection. Every mutation is funneled through it and reported to the
// registered observers once the lock has been released.
type Store struct {
	mu       sync.RWMutex
	settings Settings            // Protected by mu
	nodes    map[string]*Node    // Protected by mu
	order    []string            // Protected by mu, insertion order
	children map[string][]string // Protected by mu, parent id -> child ids in insertion order
	current  *string             // Protected by mu

	obsMu     sync.RWMutex
	observers []Observer

	now   func() time.Time
	newID func() string
}

// Option configures a Store
type Option func(*Store)

// WithClock overrides the time source used for lastVisited stamps
func WithClock(now func() time.Time) Option {
	return func(s *Store) {
		s.now = now
	}
}

// WithIDGenerator overrides node id allocation
func WithIDGenerator(newID func() string) Option {
	return func(s *Store) {
		s.newID = newID
	}
}

// NewStore creates an empty store with default settings
func NewStore(opts ...Option) *Store {
	s := &Store{
		settings: DefaultSettings(),
		nodes:    make(map[string]*Node),
		children: make(map[string][]string),
		now:      time.Now,
		newID:    func() string { return id.NewNodeID().String() },
	}
	for _, opt := range opts {
		opt(s)
	}
	return s
}

// Subscribe registers an observer for all future changes
func (s *Store) Subscribe(o Observer) {
	s.obsMu.Lock()
	defer s.obsMu.Unlock()
	s.observers = append(s.observers, o)
}

func (s *Store) notify(changes ...Change) {
	if len(changes) == 0 {
		return
	}
	s.obsMu.RLock()
	observers := append([]Observer(nil), s.observers...)
	s.obsMu.RUnlock()

	for _, c := range changes {
		for _, o := range observers {
			o.OnChange(c)
		}
	}
}

func (s *Store) stamp() int64 {
	return s.now().UnixMilli()
}

// Load replaces the whole state with data, repairing any structural
// violation so the invariants hold afterwards.
func (s *Store) Load(data Data) Repairs {
	nodes, order, repairs := repair(data.Nodes)

	s.mu.Lock()
	s.settings = data.Settings
	s.nodes = nodes
	s.order = order
	s.children = make(map[string][]string, len(order))
	for _, nid := range order {
		key := parentKey(nodes[nid])
		s.children[key] = append(s.children[key], nid)
	}
	s.current = nil
	if data.CurrentNodeID != nil {
		if _, ok := nodes[*data.CurrentNodeID]; ok {
			s.current = strPtr(*data.CurrentNodeID)
		} else {
			repairs.ClearedSelection = true
		}
	}
	s.mu.Unlock()

	s.notify(Change{Kind: ChangeLoaded})
	return repairs
}

// Snapshot returns a deep copy of the full session state in insertion order
func (s *Store) Snapshot() Data {
	s.mu.RLock()
	defer s.mu.RUnlock()

	data := Data{
		Settings: s.settings,
		Nodes:    make([]Node, 0, len(s.order)),
	}
	for _, nid := range s.order {
		data.Nodes = append(data.Nodes, s.nodes[nid].clone())
	}
	if s.current != nil {
		data.CurrentNodeID = strPtr(*s.current)
	}
	return data
}

// CreateNode allocates a node under parentID and returns its id. A parentID
// that does not resolve demotes the node to a root. With selectIt the node
// also becomes the current selection and is stamped as visited.
func (s *Store) CreateNode(url string, parentID string, selectIt bool) string {
	s.mu.Lock()
	node := &Node{
		ID:  s.newID(),
		URL: url,
	}
	if _, ok := s.nodes[parentID]; ok && parentID != "" {
		node.ParentID = strPtr(parentID)
	}
	if selectIt {
		node.LastVisited = int64Ptr(s.stamp())
	}

	s.nodes[node.ID] = node
	s.order = append(s.order, node.ID)
	key := parentKey(node)
	s.children[key] = append(s.children[key], node.ID)

	changes := []Change{{Kind: ChangeNodeCreated, NodeID: node.ID, Node: nodeRef(node.clone())}}
	if selectIt {
		s.current = strPtr(node.ID)
		changes = append(changes, Change{Kind: ChangeSelection, NodeID: node.ID, CurrentNodeID: strPtr(node.ID)})
	}
	s.mu.Unlock()

	s.notify(changes...)
	return node.ID
}

// Get returns a copy of the node with the given id
func (s *Store) Get(nodeID string) (Node, bool) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	n, ok := s.nodes[nodeID]
	if !ok {
		return Node{}, false
	}
	return n.clone(), true
}

// Len returns the number of nodes
func (s *Store) Len() int {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return len(s.order)
}

// Nodes returns copies of all nodes in insertion order
func (s *Store) Nodes() []Node {
	s.mu.RLock()
	defer s.mu.RUnlock()

	out := make([]Node, 0, len(s.order))
	for _, nid := range s.order {
		out = append(out, s.nodes[nid].clone())
	}
	return out
}

// Roots returns the root nodes in insertion order
func (s *Store) Roots() []Node {
	return s.Children(rootKey)
}

// Children returns the direct children of nodeID in insertion order.
// An empty nodeID returns the roots.
func (s *Store) Children(nodeID string) []Node {
	s.mu.RLock()
	defer s.mu.RUnlock()

	ids := s.children[nodeID]
	out := make([]Node, 0, len(ids))
	for _, cid := range ids {
		out = append(out, s.nodes[cid].clone())
	}
	return out
}

// Current returns the selected node
func (s *Store) Current() (Node, bool) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	if s.current == nil {
		return Node{}, false
	}
	return s.nodes[*s.current].clone(), true
}

// CurrentID returns the selected node id
func (s *Store) CurrentID() (string, bool) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	if s.current == nil {
		return "", false
	}
	return *s.current, true
}

// UpdateContent replaces the node content. No-op when the id does not resolve.
func (s *Store) UpdateContent(nodeID, content string) bool {
	return s.update(nodeID, func(n *Node) {
		n.Content = strPtr(content)
	}, "")
}

// AppendContent appends chunk to the node content, treating absent content
// as empty. No-op when the id does not resolve.
func (s *Store) AppendContent(nodeID, chunk string) bool {
	return s.update(nodeID, func(n *Node) {
		if n.Content == nil {
			n.Content = strPtr(chunk)
			return
		}
		*n.Content += chunk
	}, chunk)
}

// ClearContent marks the node as not yet generated
func (s *Store) ClearContent(nodeID string) bool {
	return s.update(nodeID, func(n *Node) {
		n.Content = nil
	}, "")
}

// UpdateURL changes the node URL. No-op when the id does not resolve.
func (s *Store) UpdateURL(nodeID, url string) bool {
	return s.update(nodeID, func(n *Node) {
		n.URL = url
	}, "")
}

// UpdateLastVisited overwrites the visit stamp without touching the selection
func (s *Store) UpdateLastVisited(nodeID string, ms int64) bool {
	return s.update(nodeID, func(n *Node) {
		n.LastVisited = int64Ptr(ms)
	}, "")
}

func (s *Store) update(nodeID string, mutate func(*Node), chunk string) bool {
	s.mu.Lock()
	n, ok := s.nodes[nodeID]
	if !ok {
		s.mu.Unlock()
		return false
	}
	mutate(n)
	c := Change{Kind: ChangeNodeUpdated, NodeID: nodeID, Chunk: chunk}
	if chunk == "" {
		c.Node = nodeRef(n.clone())
	}
	s.mu.Unlock()

	s.notify(c)
	return true
}

// DeleteNode removes nodeID and every descendant, children before parents.
// When the selection lies in the removed subtree it first moves to the
// parent of nodeID, else to any surviving node, else nowhere. No-op when the
// id does not resolve.
func (s *Store) DeleteNode(nodeID string) bool {
	s.mu.Lock()
	n, ok := s.nodes[nodeID]
	if !ok {
		s.mu.Unlock()
		return false
	}

	subtree := s.postOrder(nodeID)
	var changes []Change

	doomed := make(map[string]struct{}, len(subtree))
	for _, d := range subtree {
		doomed[d] = struct{}{}
	}

	if _, hit := doomed[s.currentOrEmpty()]; hit {
		next := ""
		if pid, ok := n.Parent(); ok {
			next = pid
		} else {
			for _, candidate := range s.order {
				if _, gone := doomed[candidate]; !gone {
					next = candidate
					break
				}
			}
		}
		changes = append(changes, s.selectLocked(next))
	}

	for _, d := range subtree {
		s.removeLocked(d)
		changes = append(changes, Change{Kind: ChangeNodeDeleted, NodeID: d})
	}
	s.mu.Unlock()

	s.notify(changes...)
	return true
}

// DeleteCurrent deletes the selected node, if any
func (s *Store) DeleteCurrent() bool {
	cur, ok := s.CurrentID()
	if !ok {
		return false
	}
	return s.DeleteNode(cur)
}

// currentOrEmpty returns the selected id or "". Must hold lock.
func (s *Store) currentOrEmpty() string {
	if s.current == nil {
		return ""
	}
	return *s.current
}

// postOrder lists the subtree rooted at nodeID, descendants before ancestors.
// Must hold lock.
func (s *Store) postOrder(nodeID string) []string {
	var out []string
	var walk func(string)
	walk = func(cur string) {
		for _, child := range s.children[cur] {
			walk(child)
		}
		out = append(out, cur)
	}
	walk(nodeID)
	return out
}

// removeLocked drops a leaf node from every index. Must hold lock.
func (s *Store) removeLocked(nodeID string) {
	n := s.nodes[nodeID]
	key := parentKey(n)
	s.children[key] = without(s.children[key], nodeID)
	if len(s.children[key]) == 0 {
		delete(s.children, key)
	}
	delete(s.children, nodeID)
	s.order = without(s.order, nodeID)
	delete(s.nodes, nodeID)
}

// Settings returns the current session settings
func (s *Store) Settings() Settings {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.settings
}

// UpdateSettings applies the patch and returns the resulting settings
func (s *Store) UpdateSettings(p SettingsPatch) Settings {
	s.mu.Lock()
	s.settings = s.settings.Apply(p)
	updated := s.settings
	s.mu.Unlock()

	s.notify(Change{Kind: ChangeSettings})
	return updated
}

// ResetSetting restores one setting to its default value
func (s *Store) ResetSetting(key SettingKey) bool {
	if !key.Valid() {
		return false
	}
	value := s.Settings().Default(key)

	var p SettingsPatch
	switch key {
	case SettingAPIKey:
		p.APIKey = &value
	case SettingModel:
		p.Model = &value
	case SettingSystemMessage:
		p.SystemMessage = &value
	case SettingUserMessage:
		p.UserMessage = &value
	}
	s.UpdateSettings(p)
	return true
}

func parentKey(n *Node) string {
	if n.ParentID == nil {
		return rootKey
	}
	return *n.ParentID
}

func without(ids []string, target string) []string {
	for i, v := range ids {
		if v == target {
			return append(ids[:i:i], ids[i+1:]...)
		}
	}
	return ids
}

func nodeRef(n Node) *Node { return &n }
