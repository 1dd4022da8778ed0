// Package markup runs named directives inside goldmark documents.
//
// A directive is a fenced block whose info string is "{name} arguments":
//
//	```{image} /img/tree.jpg
//	:alt: A tree
//	:target: https://example.com/tree
//	```
//
// Leading ":option: value" lines are options; the remaining lines are the
// directive content. The Extension dispatches each block to the Handler
// registered under its name and replaces the block with the nodes the
// handler returns. Blocks with an unregistered name stay code blocks.
package markup

import (
	"github.com/yuin/goldmark"
	"github.com/yuin/goldmark/parser"
	"github.com/yuin/goldmark/renderer"
	"github.com/yuin/goldmark/util"
)

// Extension installs directive dispatch and rendering into goldmark.
type Extension struct {
	registry     *Registry
	rendererOpts []RendererOption
}

// NewExtension returns an extension dispatching to registry.
func NewExtension(registry *Registry, opts ...RendererOption) *Extension {
	return &Extension{registry: registry, rendererOpts: opts}
}

// Extend implements goldmark.Extender.
func (e *Extension) Extend(m goldmark.Markdown) {
	m.Parser().AddOptions(parser.WithASTTransformers(
		util.Prioritized(NewTransformer(e.registry, m.Parser()), 50),
	))
	m.Renderer().AddOptions(renderer.WithNodeRenderers(
		util.Prioritized(NewRenderer(e.rendererOpts...), 100),
	))
}
