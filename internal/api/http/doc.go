// Package http exposes the session over a JSON API.
//
// Routes mirror the browser chrome: session settings, the node tree,
// navigation between nodes, page generation and the sandboxed frame.
// Operations whose precondition is missing (no credential, no selection,
// nothing to move to) are not errors: they answer 200 with
// {"changed": false}.
package http
