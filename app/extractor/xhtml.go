package extractor

import (
	"html"
	"net/url"
	"strings"

	"github.com/PuerkitoBio/goquery"
	"github.com/samber/lo"
	xhtml "golang.org/x/net/html"
)

// dropped elements do not survive into a chapter, readers cannot load
// remote media and forms make no sense in a book.
var dropped = map[string]bool{
	"img": true, "picture": true, "svg": true, "video": true, "audio": true,
	"source": true, "track": true, "canvas": true, "object": true, "embed": true,
	"form": true, "input": true, "button": true, "select": true, "textarea": true,
	"nav": true, "footer": true, "header": true, "aside": true, "link": true, "meta": true,
}

// void elements are rendered self-closed.
var void = map[string]bool{"br": true, "hr": true, "col": true, "wbr": true}

// kept lists the attributes carried into a chapter, per element.
var kept = map[string][]string{
	"a":    {"href", "title"},
	"abbr": {"title"},
	"td":   {"colspan", "rowspan"},
	"th":   {"colspan", "rowspan"},
	"ol":   {"start"},
}

// renderXHTML serializes the children of the selection as an XHTML
// fragment: unknown attributes are dropped, links are made absolute
// against base. Empty result means there was no markup to keep.
func renderXHTML(s *goquery.Selection, base *url.URL) string {
	if strings.TrimSpace(s.Text()) == "" {
		return ""
	}

	sb := &strings.Builder{}
	for _, n := range s.Nodes {
		for c := n.FirstChild; c != nil; c = c.NextSibling {
			renderNode(sb, c, base)
		}
	}

	return strings.TrimSpace(sb.String())
}

func renderNode(sb *strings.Builder, n *xhtml.Node, base *url.URL) {
	switch n.Type {
	case xhtml.TextNode:
		sb.WriteString(html.EscapeString(n.Data))
		return
	case xhtml.ElementNode:
	default:
		return
	}

	tag := strings.ToLower(n.Data)
	if dropped[tag] {
		return
	}

	sb.WriteString("<" + tag)
	for _, attr := range n.Attr {
		if !lo.Contains(kept[tag], attr.Key) {
			continue
		}
		val := attr.Val
		if tag == "a" && attr.Key == "href" {
			if u, err := base.Parse(strings.TrimSpace(val)); err == nil {
				val = u.String()
			}
		}
		sb.WriteString(" " + attr.Key + `="` + html.EscapeString(val) + `"`)
	}

	if void[tag] {
		sb.WriteString("/>")
		return
	}
	sb.WriteString(">")

	for c := n.FirstChild; c != nil; c = c.NextSibling {
		renderNode(sb, c, base)
	}

	sb.WriteString("</" + tag + ">")
}
