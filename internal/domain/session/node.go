package session

// Node is one generated page in the navigation tree.
//
// Content is nil until generation starts; ParentID is nil for roots;
// LastVisited is unix milliseconds and nil until the node is selected.
type Node struct {
	ID          string  `json:"id"`
	URL         string  `json:"url"`
	Content     *string `json:"content"`
	ParentID    *string `json:"parentId"`
	LastVisited *int64  `json:"lastVisited"`
}

// IsRoot reports whether the node has no parent
func (n Node) IsRoot() bool {
	return n.ParentID == nil
}

// Generated reports whether content has been requested and stamped
func (n Node) Generated() bool {
	return n.Content != nil
}

// Parent returns the parent id and whether one exists
func (n Node) Parent() (string, bool) {
	if n.ParentID == nil {
		return "", false
	}
	return *n.ParentID, true
}

// clone deep-copies the pointer fields so callers never alias store memory
func (n *Node) clone() Node {
	c := Node{ID: n.ID, URL: n.URL}
	if n.Content != nil {
		v := *n.Content
		c.Content = &v
	}
	if n.ParentID != nil {
		v := *n.ParentID
		c.ParentID = &v
	}
	if n.LastVisited != nil {
		v := *n.LastVisited
		c.LastVisited = &v
	}
	return c
}

func strPtr(s string) *string { return &s }

func int64Ptr(v int64) *int64 { return &v }
