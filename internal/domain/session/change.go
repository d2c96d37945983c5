package session

// ChangeKind classifies a store mutation
type ChangeKind string

const (
	ChangeNodeCreated ChangeKind = "node_created"
	ChangeNodeUpdated ChangeKind = "node_updated"
	ChangeNodeDeleted ChangeKind = "node_deleted"
	ChangeSelection   ChangeKind = "selection"
	ChangeSettings    ChangeKind = "settings"
	ChangeLoaded      ChangeKind = "loaded"
)

// Change describes one mutation. Node carries a copy of the node after the
// mutation, except for streamed appends where only Chunk is set.
type Change struct {
	Kind          ChangeKind
	NodeID        string
	Node          *Node
	Chunk         string
	CurrentNodeID *string
}

// Observer receives changes after the store lock has been released
type Observer interface {
	OnChange(Change)
}

// ObserverFunc adapts a plain function to Observer
type ObserverFunc func(Change)

// OnChange implements Observer
func (f ObserverFunc) OnChange(c Change) { f(c) }
