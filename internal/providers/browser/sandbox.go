package browser

import (
	"fmt"
	"strings"

	"github.com/PuerkitoBio/goquery"
	"golang.org/x/net/html"
)

// MarkerAttr tags the injected interception script
const MarkerAttr = "data-indranet-sandbox"

// interceptor posts every link click and form submission to the host frame
const interceptor = `
(function () {
  function post(target) {
    window.parent.postMessage({ type: "navigate", target: target }, "*");
  }
  document.addEventListener("click", function (event) {
    var el = event.target;
    while (el && el.nodeType === 1 && el.getAttribute("href") === null) {
      el = el.parentNode;
    }
    if (!el || el.nodeType !== 1) return;
    var target = el.getAttribute("href");
    if (!target || target.charAt(0) === "#") return;
    event.preventDefault();
    post(target);
  }, true);
  document.addEventListener("submit", function (event) {
    var form = event.target;
    if (!form || !form.getAttribute) return;
    event.preventDefault();
    var target = form.getAttribute("action") || "";
    var query = new URLSearchParams(new FormData(form)).toString();
    if (query) target += (target.indexOf("?") === -1 ? "?" : "&") + query;
    post(target);
  }, true);
})();
`

// TransformStats reports what a transform changed
type TransformStats struct {
	Injected         bool `json:"injected"`
	ScriptsRewritten int  `json:"scripts_rewritten"`
	ScriptsKept      int  `json:"scripts_kept"`
}

// Transform makes html safe to display in the sandboxed frame
func Transform(page string) (string, error) {
	out, _, err := TransformWithStats(page)
	return out, err
}

// TransformWithStats is Transform plus a report of the changes made
func TransformWithStats(page string) (string, TransformStats, error) {
	var stats TransformStats

	doc, err := goquery.NewDocumentFromReader(strings.NewReader(page))
	if err != nil {
		return "", stats, fmt.Errorf("failed to parse HTML: %w", err)
	}

	doc.Find("script").Each(func(_ int, s *goquery.Selection) {
		if _, marked := s.Attr(MarkerAttr); marked || !isInlineClassicScript(s) {
			return
		}
		src := s.Text()
		rewritten, changed := rewriteScript(src)
		if changed {
			setScriptText(s, rewritten)
			stats.ScriptsRewritten++
		} else if navigationAssignment.MatchString(src) {
			stats.ScriptsKept++
		}
	})

	if doc.Find("script["+MarkerAttr+"]").Length() == 0 {
		doc.Find("head").First().PrependHtml(`<script ` + MarkerAttr + `>` + interceptor + `</script>`)
		stats.Injected = true
	}

	out, err := doc.Html()
	if err != nil {
		return "", stats, fmt.Errorf("failed to render HTML: %w", err)
	}
	return out, stats, nil
}

// setScriptText replaces the body of a script element with raw text. Script
// content is not HTML-escaped when rendered, so it must not be escaped here.
func setScriptText(s *goquery.Selection, text string) {
	for _, n := range s.Nodes {
		for c := n.FirstChild; c != nil; c = n.FirstChild {
			n.RemoveChild(c)
		}
		n.AppendChild(&html.Node{Type: html.TextNode, Data: text})
	}
}

// isInlineClassicScript selects scripts whose body is executable JavaScript
func isInlineClassicScript(s *goquery.Selection) bool {
	if _, external := s.Attr("src"); external {
		return false
	}
	typ, ok := s.Attr("type")
	if !ok {
		return true
	}
	switch strings.ToLower(strings.TrimSpace(typ)) {
	case "", "text/javascript", "application/javascript", "module":
		return true
	}
	return false
}
