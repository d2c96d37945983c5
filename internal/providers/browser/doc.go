/*
Package browser prepares generated pages for display inside an isolated frame.

# Overview

Generated HTML is untrusted. It is rendered in a sandboxed iframe that must
never navigate on its own; instead every navigation is turned into a message
to the host, which generates the target as a new child page.

# Transform

Transform rewrites a document in two ways:

 1. An interception script is prepended to <head>. It catches clicks on
    anything carrying an href, and form submissions, and posts
    {type: "navigate", target} to window.parent.
 2. Inline scripts that assign a string literal to window.location,
    window.location.href, location or location.href have the assignment
    replaced by the same postMessage call.

The rewrite is textual. Indirect assignments (computed strings, aliases,
location.assign) are not caught. A rewrite that breaks a script which
compiled before is discarded and the original text kept. The transform is
idempotent.

# Targets

ResolveTarget resolves a navigation target against the page URL. Scheme-less
URLs are treated as https, and script-bearing schemes are refused.

# Summaries

Summarize extracts the page title and a plain-text excerpt for listings.
Links lists the anchors and forms of a page with their resolved targets.
*/
package browser
