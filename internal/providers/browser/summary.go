package browser

import (
	"html"
	"strings"
	"unicode/utf8"

	"github.com/PuerkitoBio/goquery"
	"github.com/microcosm-cc/bluemonday"
)

// DefaultExcerptLength bounds Summary.Excerpt in runes
const DefaultExcerptLength = 160

// Summary is the listing view of a generated page
type Summary struct {
	Title   string `json:"title"`
	Excerpt string `json:"excerpt"`
}

var strict = func() *bluemonday.Policy {
	p := bluemonday.StrictPolicy()
	p.AddSpaceWhenStrippingTag(true)
	return p
}()

// Summarize extracts the title and a plain-text excerpt of at most max
// runes. Partial or malformed documents are accepted.
func Summarize(page string, max int) Summary {
	if max <= 0 {
		max = DefaultExcerptLength
	}

	var s Summary
	doc, err := goquery.NewDocumentFromReader(strings.NewReader(page))
	if err != nil {
		return s
	}
	s.Title = collapse(doc.Find("title").First().Text())

	body, err := doc.Find("body").First().Html()
	if err != nil {
		return s
	}
	text := collapse(html.UnescapeString(strict.Sanitize(body)))
	s.Excerpt = truncate(text, max)
	return s
}

func collapse(s string) string {
	return strings.Join(strings.Fields(s), " ")
}

func truncate(s string, max int) string {
	if utf8.RuneCountInString(s) <= max {
		return s
	}
	runes := []rune(s)
	return strings.TrimSpace(string(runes[:max-1])) + "…"
}
