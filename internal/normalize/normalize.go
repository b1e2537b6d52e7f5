// Package normalize strips embedded markup from unified question details so
// prompts carry plain prose only. The transform is deterministic, needs no
// external calls, and is idempotent: already-plain text passes through
// unchanged.
package normalize

import (
	"regexp"
	"strings"

	"github.com/PuerkitoBio/goquery"
	"golang.org/x/net/html"

	"ForecastBot/internal/domain"
)

// tagExpr recognizes tags by name rather than accepting any <...> span, so
// prose with comparison operators ("A < B or margin > 5") is never mistaken
// for markup.
var (
	tagExpr        = regexp.MustCompile(`(?i)</?(?:a|b|i|u|p|br|hr|em|h[1-6]|li|ol|ul|td|th|tr|div|img|pre|sub|sup|code|span|body|head|html|small|style|table|tbody|thead|strong|script|iframe|section|article|noscript|blockquote)\b[^>]*>`)
	spaceRuns      = regexp.MustCompile(`[ \t]+`)
	spacedNewlines = regexp.MustCompile(` ?\n ?`)
	newlineRuns    = regexp.MustCompile(`\n{2,}`)
)

// Block-level elements get newline boundaries so tables and lists read as
// separate lines instead of running together.
var blockTags = map[string]bool{
	"p": true, "div": true, "table": true, "tr": true, "ul": true, "ol": true,
	"li": true, "h1": true, "h2": true, "h3": true, "h4": true, "h5": true,
	"h6": true, "blockquote": true, "br": true, "section": true, "article": true,
}

var skipTags = map[string]bool{
	"script": true, "style": true, "head": true, "noscript": true, "iframe": true,
}

// Details cleans the text fields of unified details, leaving structure intact.
func Details(d domain.UnifiedDetails) domain.UnifiedDetails {
	d.Description = Text(d.Description)
	d.ResolutionCriteria = Text(d.ResolutionCriteria)
	return d
}

// Text converts a markup fragment into plain prose. Input without markup is
// returned verbatim, which makes the transform idempotent.
func Text(s string) string {
	if !tagExpr.MatchString(s) {
		return s
	}

	doc, err := goquery.NewDocumentFromReader(strings.NewReader(s))
	if err != nil {
		// Unparsable fragments pass through rather than losing content.
		return s
	}

	var sb strings.Builder
	for _, node := range doc.Nodes {
		writeNodeText(&sb, node)
	}

	// Entities decoded during parsing may re-introduce tag-shaped text; drop
	// it so the cleaned output is a fixed point of this transform.
	plain := tagExpr.ReplaceAllString(sb.String(), "")
	return collapseWhitespace(plain)
}

func writeNodeText(sb *strings.Builder, node *html.Node) {
	switch node.Type {
	case html.TextNode:
		sb.WriteString(node.Data)
		return
	case html.ElementNode:
		if skipTags[node.Data] {
			return
		}
		if node.Data == "a" {
			writeAnchorText(sb, node)
			return
		}
		if node.Data == "td" || node.Data == "th" {
			defer sb.WriteString(" ")
		}
		if blockTags[node.Data] {
			sb.WriteString("\n")
			defer sb.WriteString("\n")
		}
	}
	for child := node.FirstChild; child != nil; child = child.NextSibling {
		writeNodeText(sb, child)
	}
}

// Anchors keep both their label and target, since background links feed the
// downstream research step.
func writeAnchorText(sb *strings.Builder, node *html.Node) {
	var label strings.Builder
	for child := node.FirstChild; child != nil; child = child.NextSibling {
		writeNodeText(&label, child)
	}

	text := strings.TrimSpace(label.String())
	sb.WriteString(text)

	for _, attr := range node.Attr {
		if attr.Key == "href" && strings.HasPrefix(attr.Val, "http") && attr.Val != text {
			sb.WriteString(" (" + attr.Val + ")")
			break
		}
	}
}

func collapseWhitespace(s string) string {
	s = spaceRuns.ReplaceAllString(s, " ")
	s = spacedNewlines.ReplaceAllString(s, "\n")
	s = newlineRuns.ReplaceAllString(s, "\n")
	return strings.TrimSpace(s)
}
