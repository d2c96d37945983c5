package browser

import (
	"encoding/json"
	"regexp"
	"strings"

	"github.com/dop251/goja"
)

// navigationAssignment matches a string literal assigned to the page
// location. The leading group guards against member access such as
// document.location and is written back unchanged.
var navigationAssignment = regexp.MustCompile(
	`(^|[^\w$.])(?:window\.)?location(?:\.href)?\s*=\s*(?:"([^"\\\n]*)"|'([^'\\\n]*)')`,
)

// rewriteNavigation replaces literal location assignments in a script with
// messages to the parent frame. It reports whether anything changed.
func rewriteNavigation(src string) (string, bool) {
	matches := navigationAssignment.FindAllStringSubmatchIndex(src, -1)
	if len(matches) == 0 {
		return src, false
	}

	var b strings.Builder
	last := 0
	for _, m := range matches {
		b.WriteString(src[last:m[0]])
		b.WriteString(src[m[2]:m[3]])

		target := ""
		switch {
		case m[4] >= 0:
			target = src[m[4]:m[5]]
		case m[6] >= 0:
			target = src[m[6]:m[7]]
		}
		b.WriteString(postMessageCall(target))
		last = m[1]
	}
	b.WriteString(src[last:])
	return b.String(), true
}

func postMessageCall(target string) string {
	literal, _ := json.Marshal(target)
	return `window.parent.postMessage({type:"navigate",target:` + string(literal) + `},"*")`
}

// compiles reports whether src parses as a classic script
func compiles(src string) bool {
	_, err := goja.Compile("inline", src, false)
	return err == nil
}

// rewriteScript applies rewriteNavigation unless doing so turns a valid
// script into an invalid one
func rewriteScript(src string) (string, bool) {
	rewritten, changed := rewriteNavigation(src)
	if !changed {
		return src, false
	}
	if !compiles(rewritten) && compiles(src) {
		return src, false
	}
	return rewritten, true
}
