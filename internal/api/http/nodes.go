package http

import (
	"errors"
	"net/http"

	"github.com/gin-gonic/gin"

	"github.com/GriffinCanCode/indranet/internal/domain/session"
	"github.com/GriffinCanCode/indranet/internal/providers/browser"
)

var errNodeNotFound = errors.New("node not found")

// nodeSummary is the listing view of a node, without its content
type nodeSummary struct {
	ID          string  `json:"id"`
	URL         string  `json:"url"`
	ParentID    *string `json:"parentId"`
	LastVisited *int64  `json:"lastVisited"`
	Generated   bool    `json:"generated"`
	Size        int     `json:"size"`
	Current     bool    `json:"current"`
	browser.Summary
}

type treeNode struct {
	nodeSummary
	Children []treeNode `json:"children"`
}

func summarize(n session.Node, current string) nodeSummary {
	s := nodeSummary{
		ID:          n.ID,
		URL:         n.URL,
		ParentID:    n.ParentID,
		LastVisited: n.LastVisited,
		Generated:   n.Generated(),
		Current:     n.ID == current,
	}
	if n.Content != nil {
		s.Size = len(*n.Content)
		s.Summary = browser.Summarize(*n.Content, browser.DefaultExcerptLength)
	}
	return s
}

// ListNodes returns every node in insertion order
func (h *Handlers) ListNodes(c *gin.Context) {
	cur, _ := h.store.CurrentID()
	nodes := h.store.Nodes()
	out := make([]nodeSummary, 0, len(nodes))
	for _, n := range nodes {
		out = append(out, summarize(n, cur))
	}
	c.JSON(http.StatusOK, gin.H{"nodes": out, "current_node_id": optional(cur, cur != "")})
}

// Tree returns the forest, roots first, children in insertion order
func (h *Handlers) Tree(c *gin.Context) {
	cur, _ := h.store.CurrentID()

	var build func(parent string) []treeNode
	build = func(parent string) []treeNode {
		var children []session.Node
		if parent == "" {
			children = h.store.Roots()
		} else {
			children = h.store.Children(parent)
		}
		out := make([]treeNode, 0, len(children))
		for _, n := range children {
			out = append(out, treeNode{nodeSummary: summarize(n, cur), Children: build(n.ID)})
		}
		return out
	}

	c.JSON(http.StatusOK, gin.H{"roots": build(""), "current_node_id": optional(cur, cur != "")})
}

// GetNode returns one node including its content
func (h *Handlers) GetNode(c *gin.Context) {
	n, ok := h.store.Get(c.Param("id"))
	if !ok {
		respondError(c, http.StatusNotFound, errNodeNotFound)
		return
	}
	c.JSON(http.StatusOK, gin.H{"node": n})
}

// NodeLinks lists the navigation targets of a generated page
func (h *Handlers) NodeLinks(c *gin.Context) {
	n, ok := h.store.Get(c.Param("id"))
	if !ok {
		respondError(c, http.StatusNotFound, errNodeNotFound)
		return
	}

	links := []browser.Link{}
	if n.Content != nil {
		var err error
		if links, err = browser.Links(*n.Content, n.URL); err != nil {
			respondError(c, http.StatusUnprocessableEntity, err)
			return
		}
	}
	c.JSON(http.StatusOK, gin.H{"node_id": n.ID, "links": links})
}

// DeleteNode deletes a node and its descendants. The id "current" deletes
// the selection.
func (h *Handlers) DeleteNode(c *gin.Context) {
	id := c.Param("id")

	var deleted bool
	before := h.store.Len()
	if id == "current" {
		deleted = h.store.DeleteCurrent()
	} else {
		deleted = h.store.DeleteNode(id)
	}
	if !deleted {
		unchanged(c, "no such node")
		return
	}

	cur, ok := h.store.CurrentID()
	c.JSON(http.StatusOK, gin.H{"changed": true, "deleted": before - h.store.Len(), "current_node_id": optional(cur, ok)})
}

// SelectNode makes a node current
func (h *Handlers) SelectNode(c *gin.Context) {
	if !h.store.Select(c.Param("id")) {
		unchanged(c, "no such node")
		return
	}
	h.selection(c, true)
}

// Navigate moves the selection: home, parent, previous, next or child
func (h *Handlers) Navigate(c *gin.Context) {
	var changed bool
	switch c.Param("direction") {
	case "home":
		changed = h.store.ClearSelection()
	case "parent":
		changed = h.store.SelectParent()
	case "previous":
		changed = h.store.SelectPreviousSibling()
	case "next":
		changed = h.store.SelectNextSibling()
	case "child":
		changed = h.store.SelectMostRecentChild()
	default:
		respondError(c, http.StatusNotFound, errors.New("unknown direction"))
		return
	}
	h.selection(c, changed)
}

func (h *Handlers) selection(c *gin.Context, changed bool) {
	cur, ok := h.store.CurrentID()
	c.JSON(http.StatusOK, gin.H{"changed": changed, "current_node_id": optional(cur, ok)})
}
