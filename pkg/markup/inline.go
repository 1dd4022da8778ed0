package markup

import (
	"github.com/yuin/goldmark/ast"
	"github.com/yuin/goldmark/parser"
	"github.com/yuin/goldmark/text"
)

// ParseInline parses text with p and returns the inline nodes of its first
// paragraph. Nodes that refer to their own source through segments are
// replaced by nodes that own their bytes, so the result can be grafted into
// a document with a different source.
func ParseInline(p parser.Parser, s string) []ast.Node {
	src := []byte(s)
	doc := p.Parse(text.NewReader(src))

	first := doc.FirstChild()
	if first == nil {
		return nil
	}
	if first.Kind() != ast.KindParagraph && first.Kind() != ast.KindTextBlock {
		return []ast.Node{ast.NewString(src)}
	}

	var out []ast.Node
	for c := first.FirstChild(); c != nil; {
		next := c.NextSibling()
		first.RemoveChild(first, c)
		out = append(out, detach(c, src))
		c = next
	}
	return out
}

func detach(n ast.Node, src []byte) ast.Node {
	switch v := n.(type) {
	case *ast.Text:
		value := append([]byte(nil), v.Segment.Value(src)...)
		if v.SoftLineBreak() {
			value = append(value, ' ')
		}
		return ast.NewString(value)
	case *ast.CodeSpan:
		return NewLiteral(collectText(v, src))
	case *ast.RawHTML:
		var value []byte
		for i := 0; i < v.Segments.Len(); i++ {
			seg := v.Segments.At(i)
			value = append(value, seg.Value(src)...)
		}
		return ast.NewString(value)
	case *ast.AutoLink:
		link := ast.NewLink()
		link.Destination = append([]byte(nil), v.URL(src)...)
		link.AppendChild(link, ast.NewString(append([]byte(nil), v.Label(src)...)))
		return link
	}

	for c := n.FirstChild(); c != nil; {
		next := c.NextSibling()
		if replacement := detach(c, src); replacement != c {
			n.ReplaceChild(n, c, replacement)
		}
		c = next
	}
	return n
}

func collectText(n ast.Node, src []byte) []byte {
	var value []byte
	for c := n.FirstChild(); c != nil; c = c.NextSibling() {
		switch t := c.(type) {
		case *ast.Text:
			value = append(value, t.Segment.Value(src)...)
		case *ast.String:
			value = append(value, t.Value...)
		}
	}
	return value
}
