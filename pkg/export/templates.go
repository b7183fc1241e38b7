package export

import (
	"fmt"
	"html"
	"net/url"
	"strings"
)

// StylesheetName is written next to every exported page.
const StylesheetName = "narourip.css"

const pageTemplate = `<!doctype html>
<html lang="ja">
<head>
<title>%s</title>
<meta charset="utf-8">
<meta name="viewport" content="width=device-width, initial-scale=1">
<link rel="stylesheet" href="` + StylesheetName + `">
</head>
<body>
%s
</body>
</html>
`

const stylesheet = `body { max-width: 42em; margin: 0 auto; padding: 1em; line-height: 1.8; font-family: serif; }
h1, h2, h3 { font-family: sans-serif; }
h3 a { color: inherit; text-decoration: none; }
#toc div { padding: 2px 0; }
.preformat { white-space: pre-wrap; }
.chapter-nav { display: flex; justify-content: center; width: 100%; }
.chapter-nav .prev { width: 30%; text-align: right; }
.chapter-nav .current { width: 40%; text-align: center; }
.chapter-nav .next { width: 30%; text-align: left; }
ruby rt { font-size: 0.5em; }
`

func page(title, body string) string {
	return fmt.Sprintf(pageTemplate, html.EscapeString(title), body)
}

// header renders the work title, the volume title when there is one, and the
// summary, followed by a rule.
func header(workTitle, volumeTitle, summary string) string {
	var b strings.Builder
	fmt.Fprintf(&b, "<h1>%s</h1>\n", html.EscapeString(workTitle))
	if strings.TrimSpace(volumeTitle) != "" {
		fmt.Fprintf(&b, "<h2>%s</h2>\n", html.EscapeString(volumeTitle))
	}
	fmt.Fprintf(&b, "<p class=\"summary preformat\">%s</p>\n<hr>", html.EscapeString(summary))
	return b.String()
}

// chapterContent returns stored chapter content ready to embed. Markup is
// kept as is, plain text is escaped and wrapped so its line breaks survive.
// Protocol-relative image sources are pinned to http so pages opened from
// disk still load them.
func chapterContent(content string) string {
	if !strings.HasPrefix(content, "<div") {
		return fmt.Sprintf(`<div class="preformat">%s</div>`, html.EscapeString(content))
	}
	return strings.ReplaceAll(content, ` src="//`, ` src="http://`)
}

func anchor(ordinal int) string {
	return fmt.Sprintf("ch%d", ordinal)
}

// tocEntry renders one table of contents line linking to a chapter anchor.
func tocEntry(ordinal int, title string) string {
	return fmt.Sprintf(`<div><a href="#%s">%s</a></div>`, anchor(ordinal), html.EscapeString(title))
}

// chapterNav renders the previous/current/next bar of a chapter page. Empty
// file names leave their side blank.
func chapterNav(prevFile, prevTitle, title, nextFile, nextTitle string) string {
	var b strings.Builder
	b.WriteString(`<div class="chapter-nav">`)
	if prevFile != "" {
		fmt.Fprintf(&b, `<div class="prev"><a href="%s">← %s</a></div>`,
			html.EscapeString(url.PathEscape(prevFile)), html.EscapeString(prevTitle))
	} else {
		b.WriteString(`<div class="prev"></div>`)
	}
	fmt.Fprintf(&b, `<div class="current">%s</div>`, html.EscapeString(title))
	if nextFile != "" {
		fmt.Fprintf(&b, `<div class="next"><a href="%s">%s →</a></div>`,
			html.EscapeString(url.PathEscape(nextFile)), html.EscapeString(nextTitle))
	} else {
		b.WriteString(`<div class="next"></div>`)
	}
	b.WriteString(`</div>`)
	return b.String()
}

func escape(s string) string {
	return html.EscapeString(s)
}
