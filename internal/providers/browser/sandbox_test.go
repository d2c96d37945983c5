package browser

import (
	"strings"
	"testing"

	"github.com/PuerkitoBio/goquery"
	"github.com/dop251/goja"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func parse(t *testing.T, html string) *goquery.Document {
	t.Helper()
	doc, err := goquery.NewDocumentFromReader(strings.NewReader(html))
	require.NoError(t, err)
	return doc
}

func render(t *testing.T, doc *goquery.Document) string {
	t.Helper()
	out, err := doc.Html()
	require.NoError(t, err)
	return out
}

func TestTransformInjectsInterceptor(t *testing.T) {
	out, stats, err := TransformWithStats(`<html><head><title>x</title></head><body><a href="/next">next</a></body></html>`)
	require.NoError(t, err)
	assert.True(t, stats.Injected)

	doc := parse(t, out)
	marker := doc.Find("head > script[" + MarkerAttr + "]")
	require.Equal(t, 1, marker.Length())
	assert.Equal(t, 0, marker.Index(), "interceptor must run before page scripts")
	assert.Contains(t, marker.Text(), `type: "navigate"`)
	assert.Contains(t, marker.Text(), "preventDefault")
}

func TestTransformOnlyAddsListener(t *testing.T) {
	page := `<!DOCTYPE html><html><head><style>p{color:red}</style></head>` +
		`<body><p>Hello <a href="a.html">there</a></p><form action="/s"><input name="q"></form></body></html>`

	out, err := Transform(page)
	require.NoError(t, err)

	transformed := parse(t, out)
	transformed.Find("script[" + MarkerAttr + "]").Remove()
	assert.Equal(t, render(t, parse(t, page)), render(t, transformed))
}

func TestTransformRewritesInlineScripts(t *testing.T) {
	page := `<html><head></head><body>
<script>setTimeout(function () { window.location.href = "/later"; }, 10);</script>
<script type="module">location = '/mod'</script>
<script src="app.js">location = "/ignored"</script>
<script type="application/json">{"location": "x", "y": "location = \"/data\""}</script>
<script>document.location = "/other"</script>
</body></html>`

	out, stats, err := TransformWithStats(page)
	require.NoError(t, err)
	assert.Equal(t, 2, stats.ScriptsRewritten)

	scripts := parse(t, out).Find("body script")
	require.Equal(t, 5, scripts.Length())
	assert.Contains(t, scripts.Eq(0).Text(), `window.parent.postMessage({type:"navigate",target:"/later"},"*")`)
	assert.NotContains(t, scripts.Eq(0).Text(), "location.href")
	assert.Contains(t, scripts.Eq(1).Text(), `target:"/mod"`)
	assert.Equal(t, `location = "/ignored"`, scripts.Eq(2).Text())
	assert.Contains(t, scripts.Eq(3).Text(), `location = \"/data\"`)
	assert.Equal(t, `document.location = "/other"`, scripts.Eq(4).Text())
}

func TestTransformRewrittenScriptsStillCompile(t *testing.T) {
	scripts := []string{
		`if (1 < 2 && true) { location.href = "/next"; }`,
		`var a = "<b>" + 'x'; if (a.length > 0 && a !== "&amp;") window.location = "/q?a=1&b=2";`,
	}

	for _, src := range scripts {
		out, stats, err := TransformWithStats(`<html><head></head><body><script>` + src + `</script></body></html>`)
		require.NoError(t, err)
		require.Equal(t, 1, stats.ScriptsRewritten, src)

		body := parse(t, out).Find("body script").First().Text()
		assert.Contains(t, body, `window.parent.postMessage({type:"navigate"`)
		assert.NotContains(t, body, "&lt;")
		assert.NotContains(t, body, "&#34;")
		_, err = goja.Compile("page.js", body, false)
		assert.NoError(t, err, body)
	}
}

func TestTransformIdempotent(t *testing.T) {
	pages := []string{
		`<html><head></head><body><script>location.href = "/x"</script></body></html>`,
		`<p>fragment without a document</p>`,
		``,
		`<html><body><div><a href="#top">unclosed`,
	}

	for _, page := range pages {
		once, err := Transform(page)
		require.NoError(t, err)
		twice, stats, err := TransformWithStats(once)
		require.NoError(t, err)

		assert.Equal(t, once, twice)
		assert.False(t, stats.Injected)
		assert.Zero(t, stats.ScriptsRewritten)
		assert.Equal(t, 1, parse(t, twice).Find("script["+MarkerAttr+"]").Length())
	}
}

func TestTransformPartialDocument(t *testing.T) {
	out, err := Transform(`<html><head><title>Loading`)
	require.NoError(t, err)

	doc := parse(t, out)
	assert.Equal(t, 1, doc.Find("head script["+MarkerAttr+"]").Length())
}
