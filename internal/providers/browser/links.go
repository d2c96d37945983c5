package browser

import (
	"fmt"
	"strings"

	"github.com/antchfx/htmlquery"
	"golang.org/x/net/html"
)

// Link is a navigation target found in a generated page
type Link struct {
	Kind string `json:"kind"` // "a" or "form"
	Text string `json:"text"`
	Href string `json:"href"`
	// Target is Href resolved against the page URL; empty when it cannot be followed
	Target string `json:"target,omitempty"`
}

const linkXPath = "//a[@href] | //form[@action]"

// Links lists the anchors and forms of page in document order, resolving
// each against base. Fragment-only links are skipped.
func Links(page, base string) ([]Link, error) {
	doc, err := htmlquery.Parse(strings.NewReader(page))
	if err != nil {
		return nil, fmt.Errorf("failed to parse page: %w", err)
	}
	nodes, err := htmlquery.QueryAll(doc, linkXPath)
	if err != nil {
		return nil, fmt.Errorf("link query failed: %w", err)
	}

	links := make([]Link, 0, len(nodes))
	for _, n := range nodes {
		attr := "href"
		if n.Data == "form" {
			attr = "action"
		}
		href := strings.TrimSpace(htmlquery.SelectAttr(n, attr))
		if href == "" || strings.HasPrefix(href, "#") {
			continue
		}

		l := Link{Kind: n.Data, Href: href, Text: collapse(label(n))}
		if target, err := ResolveTarget(base, href); err == nil {
			l.Target = target
		}
		links = append(links, l)
	}
	return links, nil
}

// label is the visible text of an anchor or the submit caption of a form
func label(n *html.Node) string {
	if n.Data != "form" {
		return htmlquery.InnerText(n)
	}
	submit := htmlquery.FindOne(n, ".//button | .//input[@type='submit']")
	if submit == nil {
		return ""
	}
	if v := htmlquery.SelectAttr(submit, "value"); v != "" {
		return v
	}
	return htmlquery.InnerText(submit)
}
