package markup

import (
	"strconv"
	"strings"

	"github.com/yuin/goldmark/ast"
	"github.com/yuin/goldmark/renderer"
	"github.com/yuin/goldmark/renderer/html"
	"github.com/yuin/goldmark/util"
)

// URLResolver rewrites a URI from a directive before it is written out.
type URLResolver func(uri string) string

// RendererOption configures the HTML renderer.
type RendererOption func(*Renderer)

// WithURLResolver sets the resolver applied to image and link URIs.
func WithURLResolver(fn URLResolver) RendererOption {
	return func(r *Renderer) {
		r.resolve = fn
	}
}

// Renderer writes directive nodes as HTML.
type Renderer struct {
	resolve URLResolver
}

// NewRenderer returns the HTML renderer for directive nodes.
func NewRenderer(opts ...RendererOption) *Renderer {
	r := &Renderer{}
	for _, opt := range opts {
		opt(r)
	}
	return r
}

// RegisterFuncs implements renderer.NodeRenderer.
func (r *Renderer) RegisterFuncs(reg renderer.NodeRendererFuncRegisterer) {
	reg.Register(KindContainer, r.renderContainer)
	reg.Register(KindFigure, r.renderFigure)
	reg.Register(KindReference, r.renderReference)
	reg.Register(KindImage, r.renderImage)
	reg.Register(KindCaption, r.renderCaption)
	reg.Register(KindSystemMessage, r.renderSystemMessage)
	reg.Register(KindLiteral, r.renderLiteral)
}

func (r *Renderer) resolved(uri string) string {
	if r.resolve != nil {
		return r.resolve(uri)
	}
	return uri
}

func (r *Renderer) url(uri string) []byte {
	dest := util.URLEscape([]byte(r.resolved(uri)), true)
	if html.IsDangerousURL(dest) {
		return nil
	}
	return util.EscapeHTML(dest)
}

func writeClasses(w util.BufWriter, classes []string) {
	if len(classes) == 0 {
		return
	}
	_, _ = w.WriteString(` class="`)
	_, _ = w.Write(util.EscapeHTML([]byte(strings.Join(classes, " "))))
	_ = w.WriteByte('"')
}

// inline reports whether n sits inside a reference and so must not end its line.
func inline(n ast.Node) bool {
	p := n.Parent()
	return p != nil && p.Kind() == KindReference
}

func (r *Renderer) renderContainer(w util.BufWriter, _ []byte, node ast.Node, entering bool) (ast.WalkStatus, error) {
	n := node.(*Container)
	if entering {
		_, _ = w.WriteString("<div")
		writeClasses(w, n.Classes)
		_, _ = w.WriteString(">\n")
	} else {
		_, _ = w.WriteString("</div>\n")
	}
	return ast.WalkContinue, nil
}

func (r *Renderer) renderFigure(w util.BufWriter, _ []byte, node ast.Node, entering bool) (ast.WalkStatus, error) {
	n := node.(*Figure)
	if entering {
		_, _ = w.WriteString("<figure")
		writeClasses(w, n.Classes)
		if n.Width > 0 {
			_, _ = w.WriteString(` style="width: `)
			_, _ = w.WriteString(strconv.FormatFloat(n.Width, 'f', -1, 64))
			_, _ = w.WriteString(`%"`)
		}
		_, _ = w.WriteString(">\n")
	} else {
		_, _ = w.WriteString("</figure>\n")
	}
	return ast.WalkContinue, nil
}

func (r *Renderer) renderReference(w util.BufWriter, _ []byte, node ast.Node, entering bool) (ast.WalkStatus, error) {
	n := node.(*Reference)
	if entering {
		_, _ = w.WriteString("<a")
		if n.Resolved && n.RefURI != "" {
			_, _ = w.WriteString(` href="`)
			_, _ = w.Write(r.url(n.RefURI))
			_ = w.WriteByte('"')
		}
		_ = w.WriteByte('>')
		return ast.WalkContinue, nil
	}

	_, _ = w.WriteString("</a>")
	if !inline(n) {
		_ = w.WriteByte('\n')
	}
	return ast.WalkContinue, nil
}

func (r *Renderer) renderImage(w util.BufWriter, _ []byte, node ast.Node, entering bool) (ast.WalkStatus, error) {
	if !entering {
		return ast.WalkContinue, nil
	}
	n := node.(*Image)

	_, _ = w.WriteString(`<img src="`)
	_, _ = w.Write(r.url(n.URI))
	_, _ = w.WriteString(`" alt="`)
	alt := n.Alt
	if alt == "" {
		alt = r.resolved(n.URI)
	}
	_, _ = w.Write(util.EscapeHTML([]byte(alt)))
	_ = w.WriteByte('"')
	writeClasses(w, n.Classes)
	if len(n.IDs) > 0 {
		_, _ = w.WriteString(` id="`)
		_, _ = w.Write(util.EscapeHTML([]byte(n.IDs[0])))
		_ = w.WriteByte('"')
	}
	_, _ = w.WriteString(" />")
	if !inline(n) {
		_ = w.WriteByte('\n')
	}
	return ast.WalkSkipChildren, nil
}

func (r *Renderer) renderCaption(w util.BufWriter, _ []byte, _ ast.Node, entering bool) (ast.WalkStatus, error) {
	if entering {
		_, _ = w.WriteString("<figcaption>")
	} else {
		_, _ = w.WriteString("</figcaption>")
	}
	return ast.WalkContinue, nil
}

func messageClass(l Level) string {
	switch l {
	case LevelInfo:
		return "m-note m-info"
	case LevelWarning:
		return "m-note m-warning"
	default:
		return "m-note m-danger"
	}
}

func (r *Renderer) renderSystemMessage(w util.BufWriter, _ []byte, node ast.Node, entering bool) (ast.WalkStatus, error) {
	if !entering {
		return ast.WalkContinue, nil
	}
	n := node.(*SystemMessage)

	_, _ = w.WriteString(`<div class="`)
	_, _ = w.WriteString(messageClass(n.Level))
	_, _ = w.WriteString(` system-message">` + "\n")
	_, _ = w.WriteString(`<p class="system-message-title">System Message: `)
	_, _ = w.WriteString(n.Level.String())
	_, _ = w.WriteString("/")
	_, _ = w.WriteString(strconv.Itoa(int(n.Level)))
	if n.Line > 0 {
		_, _ = w.WriteString(" (line ")
		_, _ = w.WriteString(strconv.Itoa(n.Line))
		_, _ = w.WriteString(")")
	}
	_, _ = w.WriteString("</p>\n<p>")
	_, _ = w.Write(util.EscapeHTML([]byte(n.Message)))
	_, _ = w.WriteString("</p>\n")
	if n.BlockText != "" {
		_, _ = w.WriteString("<pre>")
		_, _ = w.Write(util.EscapeHTML([]byte(n.BlockText)))
		_, _ = w.WriteString("</pre>\n")
	}
	_, _ = w.WriteString("</div>\n")
	return ast.WalkSkipChildren, nil
}

func (r *Renderer) renderLiteral(w util.BufWriter, _ []byte, node ast.Node, entering bool) (ast.WalkStatus, error) {
	if entering {
		_, _ = w.WriteString("<code>")
		_, _ = w.Write(util.EscapeHTML(node.(*Literal).Value))
		_, _ = w.WriteString("</code>")
	}
	return ast.WalkSkipChildren, nil
}
