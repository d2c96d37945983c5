// Package session holds the navigation tree of generated pages.
//
// The Store owns settings, nodes and the current selection behind one lock.
// Nodes form a forest: every parent link points at an existing node and no
// chain loops back on itself. Deleting a node removes its whole subtree,
// children first, and moves the selection out of the way beforehand.
//
// Components:
//   - Store: node arena, children index, settings
//   - Navigator: selection moves (parent, siblings, most recent child)
//   - Persister: debounced mirror of the store into a BlobStore
//
// Example Usage:
//
//	store := session.NewStore()
//	root := store.CreateNode("example.com", "", true)
//	store.CreateNode("example.com/about", root, true)
//	store.SelectParent()
package session
