package uacscope

import (
	"bytes"
	"encoding/xml"
	"strings"

	"github.com/antchfx/xmlquery"
)

const indentStep = "  "

// renderXML pretty-prints a parsed manifest into its canonical form:
// two-space indentation, each attribute on its own line, no XML
// declaration. This rendering is the authoritative manifest payload;
// re-parsing it yields the same attribute values as the original bytes.
func renderXML(doc *xmlquery.Node) string {
	var b strings.Builder
	for n := doc.FirstChild; n != nil; n = n.NextSibling {
		renderNode(&b, n, 0)
	}
	return b.String()
}

func renderNode(b *strings.Builder, n *xmlquery.Node, depth int) {
	switch n.Type {
	case xmlquery.DeclarationNode:
		// the canonical form carries no declaration
	case xmlquery.CommentNode:
		writeIndent(b, depth)
		b.WriteString("<!--")
		b.WriteString(n.Data)
		b.WriteString("-->\n")
	case xmlquery.TextNode, xmlquery.CharDataNode:
		if t := strings.TrimSpace(n.Data); t != "" {
			writeIndent(b, depth)
			b.WriteString(escapeXML(t))
			b.WriteString("\n")
		}
	case xmlquery.ElementNode:
		renderElement(b, n, depth)
	}
}

func renderElement(b *strings.Builder, n *xmlquery.Node, depth int) {
	writeIndent(b, depth)
	b.WriteString("<")
	b.WriteString(qualifiedName(n))
	for _, a := range n.Attr {
		b.WriteString("\n")
		writeIndent(b, depth+1)
		name := a.Name.Local
		if a.Name.Space != "" {
			name = a.Name.Space + ":" + name
		}
		b.WriteString(name)
		b.WriteString(`="`)
		b.WriteString(escapeXML(a.Value))
		b.WriteString(`"`)
	}

	text, hasElems := elementContent(n)
	switch {
	case !hasElems && text == "":
		b.WriteString("/>\n")
	case !hasElems:
		b.WriteString(">")
		b.WriteString(escapeXML(text))
		b.WriteString("</")
		b.WriteString(qualifiedName(n))
		b.WriteString(">\n")
	default:
		b.WriteString(">\n")
		for c := n.FirstChild; c != nil; c = c.NextSibling {
			renderNode(b, c, depth+1)
		}
		writeIndent(b, depth)
		b.WriteString("</")
		b.WriteString(qualifiedName(n))
		b.WriteString(">\n")
	}
}

// elementContent reports whether the element has child elements (or
// comments) and, if not, its trimmed text content for inline rendering.
func elementContent(n *xmlquery.Node) (string, bool) {
	var text strings.Builder
	for c := n.FirstChild; c != nil; c = c.NextSibling {
		switch c.Type {
		case xmlquery.ElementNode, xmlquery.CommentNode:
			return "", true
		case xmlquery.TextNode, xmlquery.CharDataNode:
			text.WriteString(c.Data)
		}
	}
	return strings.TrimSpace(text.String()), false
}

func qualifiedName(n *xmlquery.Node) string {
	if n.Prefix != "" {
		return n.Prefix + ":" + n.Data
	}
	return n.Data
}

func writeIndent(b *strings.Builder, depth int) {
	for i := 0; i < depth; i++ {
		b.WriteString(indentStep)
	}
}

func escapeXML(s string) string {
	var buf bytes.Buffer
	_ = xml.EscapeText(&buf, []byte(s)) // only fails on writer errors
	return buf.String()
}
