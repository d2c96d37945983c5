// Package conversation turns a position in the navigation tree into the
// message history sent to the model.
package conversation

import (
	"strings"

	"github.com/GriffinCanCode/indranet/internal/domain/session"
	"github.com/GriffinCanCode/indranet/internal/shared/types"
)

// DoctypePrefill is the assistant turn that opens every generated page
const DoctypePrefill = "<!DOCTYPE html>"

// Lookup resolves node ids. Satisfied by *session.Store.
type Lookup interface {
	Get(id string) (session.Node, bool)
}

// Target is the page being generated
type Target struct {
	URL      string
	ParentID string // empty for a root
}

// TargetOf describes an existing node as a generation target
func TargetOf(n session.Node) Target {
	pid, _ := n.Parent()
	return Target{URL: n.URL, ParentID: pid}
}

// RenderUserMessage substitutes every URL placeholder in tmpl
func RenderUserMessage(tmpl, url string) string {
	return strings.ReplaceAll(tmpl, session.URLPlaceholder, url)
}

// Build returns the conversation for target, oldest turn first.
//
// Each generated ancestor contributes a (user, assistant) pair made of its
// rendered URL and its full content. The walk stops at the first ancestor
// without content. The seed pair for target itself always comes last.
func Build(nodes Lookup, target Target, tmpl string) []types.Message {
	var chain []session.Node
	seen := make(map[string]struct{})

	for pid := target.ParentID; pid != ""; {
		if _, loop := seen[pid]; loop {
			break
		}
		seen[pid] = struct{}{}

		n, ok := nodes.Get(pid)
		if !ok || n.Content == nil {
			break
		}
		chain = append(chain, n)
		pid, _ = n.Parent()
	}

	msgs := make([]types.Message, 0, 2*len(chain)+2)
	for i := len(chain) - 1; i >= 0; i-- {
		msgs = append(msgs,
			types.UserMessage(RenderUserMessage(tmpl, chain[i].URL)),
			types.AssistantMessage(*chain[i].Content),
		)
	}
	return append(msgs,
		types.UserMessage(RenderUserMessage(tmpl, target.URL)),
		types.AssistantMessage(DoctypePrefill),
	)
}
