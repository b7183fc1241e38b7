package htmlutil

import (
	"bytes"
	"strings"

	"github.com/PuerkitoBio/goquery"
	"github.com/pkg/errors"
	"golang.org/x/net/html"
	"golang.org/x/net/html/atom"
)

// TextContent returns the concatenated text nodes of markup, the way a
// browser's textContent would. Input that doesn't look like markup is
// returned unchanged.
func TextContent(markup string) string {
	if !strings.HasPrefix(strings.TrimSpace(markup), "<") {
		return markup
	}

	nodes, err := html.ParseFragment(strings.NewReader(markup), &html.Node{
		Type:     html.ElementNode,
		Data:     "body",
		DataAtom: atom.Body,
	})
	if err != nil {
		return markup
	}

	var b strings.Builder
	for _, n := range nodes {
		collectText(&b, n)
	}
	return b.String()
}

func collectText(b *strings.Builder, n *html.Node) {
	switch n.Type {
	case html.TextNode:
		b.WriteString(n.Data)
		return
	case html.ElementNode:
		if n.Data == "script" || n.Data == "style" {
			return
		}
	}
	for c := n.FirstChild; c != nil; c = c.NextSibling {
		collectText(b, c)
	}
}

// OuterHTML returns the outer markup of every element in page matching
// selector, concatenated in document order. No match yields "".
func OuterHTML(page []byte, selector string) (string, error) {
	doc, err := goquery.NewDocumentFromReader(bytes.NewReader(page))
	if err != nil {
		return "", errors.WithStack(err)
	}

	var b strings.Builder
	var outerErr error
	doc.Find(selector).EachWithBreak(func(_ int, s *goquery.Selection) bool {
		h, err := goquery.OuterHtml(s)
		if err != nil {
			outerErr = errors.WithStack(err)
			return false
		}
		b.WriteString(h)
		return true
	})
	if outerErr != nil {
		return "", outerErr
	}
	return b.String(), nil
}

// CharCount counts the runes of every line of text after trimming surrounding
// whitespace, so line breaks and indentation don't count.
func CharCount(text string) int {
	n := 0
	for _, line := range strings.Split(text, "\n") {
		n += len([]rune(strings.TrimSpace(line)))
	}
	return n
}
