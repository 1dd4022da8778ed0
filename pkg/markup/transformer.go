package markup

import (
	"bytes"
	"context"
	"fmt"
	"strings"

	"github.com/pkg/errors"
	"github.com/yuin/goldmark/ast"
	"github.com/yuin/goldmark/parser"
	"github.com/yuin/goldmark/text"
	"github.com/yuin/goldmark/util"
	"go.opentelemetry.io/otel/attribute"

	"github.com/jingkaihe/mosaic/pkg/logger"
	"github.com/jingkaihe/mosaic/pkg/telemetry"
)

// Transformer replaces fenced "{name}" blocks with the output of the
// registered directive, then resolves named references.
type Transformer struct {
	registry *Registry
	parser   parser.Parser
}

// NewTransformer returns a transformer dispatching to registry. p is used
// for inline text parsing and may be nil.
func NewTransformer(registry *Registry, p parser.Parser) *Transformer {
	return &Transformer{registry: registry, parser: p}
}

// Transform implements parser.ASTTransformer.
func (t *Transformer) Transform(doc *ast.Document, reader text.Reader, pc parser.Context) {
	d := DocumentFrom(pc)
	source := reader.Source()

	var blocks []*ast.FencedCodeBlock
	_ = ast.Walk(doc, func(n ast.Node, entering bool) (ast.WalkStatus, error) {
		if !entering {
			return ast.WalkContinue, nil
		}
		if fb, ok := n.(*ast.FencedCodeBlock); ok {
			blocks = append(blocks, fb)
			return ast.WalkSkipChildren, nil
		}
		return ast.WalkContinue, nil
	})

	for _, fb := range blocks {
		if d.Err() != nil {
			return
		}
		t.dispatch(d, fb, source)
	}

	t.resolveReferences(d, pc)

	for _, msg := range d.takePending() {
		doc.AppendChild(doc, msg)
	}
}

func (t *Transformer) dispatch(d *Document, fb *ast.FencedCodeBlock, source []byte) {
	if fb.Info == nil {
		return
	}
	info := string(fb.Info.Segment.Value(source))
	name, argText, ok := splitInfo(info)
	if !ok {
		return
	}

	ctx := d.Context()
	h, ok := t.registry.Lookup(name)
	if !ok {
		logger.G(ctx).WithField("directive", name).Debug("no handler registered, leaving block as code")
		return
	}

	line := bytes.Count(source[:fb.Info.Segment.Start], []byte("\n")) + 1
	body := blockLines(fb, source)
	inv := &Invocation{
		Name:      name,
		Line:      line,
		BlockText: "```" + strings.TrimSpace(info) + "\n" + strings.Join(body, "\n") + "\n```",
		Document:  d,
	}
	if t.parser != nil {
		p := t.parser
		inv.inline = func(s string) []ast.Node { return ParseInline(p, s) }
	}

	var nodes []ast.Node
	if err := inv.parse(h.Spec(), argText, body); err != nil {
		msg := inv.Error("Error in %q directive:\n%s.", name, err)
		nodes = []ast.Node{msg}
	} else {
		runCtx := logger.WithFields(ctx, map[string]interface{}{"directive": name, "line": line})
		err := telemetry.WithSpan(runCtx, "directive."+name, func(ctx context.Context) error {
			logger.G(ctx).Debug("running directive")
			var runErr error
			nodes, runErr = h.Run(inv)
			return runErr
		}, attribute.String("directive.name", name), attribute.Int("directive.line", line), attribute.String("document.source", d.Source()))
		if err != nil {
			logger.G(runCtx).WithError(err).Error("directive failed")
			d.Fail(errors.Wrapf(err, "%s directive at line %d", name, line))
			return
		}
	}

	parent := fb.Parent()
	for _, n := range nodes {
		if msg, ok := n.(*SystemMessage); ok {
			d.note(msg)
		}
		parent.InsertBefore(parent, fb, n)
	}
	parent.RemoveChild(parent, fb)
}

func (inv *Invocation) parse(spec Spec, argText string, body []string) error {
	args, err := parseArguments(argText, spec)
	if err != nil {
		return err
	}
	opts, content, err := parseBody(body, spec)
	if err != nil {
		return err
	}
	inv.Arguments = args
	inv.Options = opts
	inv.Content = content
	return nil
}

func blockLines(fb *ast.FencedCodeBlock, source []byte) []string {
	lines := fb.Lines()
	out := make([]string, 0, lines.Len())
	for i := 0; i < lines.Len(); i++ {
		seg := lines.At(i)
		out = append(out, strings.TrimRight(string(seg.Value(source)), "\r\n"))
	}
	return out
}

func (t *Transformer) resolveReferences(d *Document, pc parser.Context) {
	for _, ref := range d.RefNames() {
		if ref.Resolved {
			continue
		}
		def, ok := pc.Reference(util.ToLinkReference([]byte(ref.RefName)))
		if !ok {
			d.Report(NewSystemMessage(LevelError, 0, fmt.Sprintf("Unknown target name: %q.", ref.IndirectName)))
			continue
		}
		ref.RefURI = string(def.Destination())
		ref.Resolved = true
	}
}
