package markup

import (
	"context"
	"fmt"

	"github.com/yuin/goldmark/ast"
	"github.com/yuin/goldmark/parser"
)

var documentKey = parser.NewContextKey()

// Document is the per-parse state shared by the directives of one page.
// It lives in the goldmark parser.Context.
type Document struct {
	ctx      context.Context
	source   string
	refs     []*Reference
	targets  map[string]ast.Node
	messages []*SystemMessage
	pending  []*SystemMessage
	err      error
}

// NewDocument returns document state bound to ctx. source names the page
// in logs and may be empty.
func NewDocument(ctx context.Context, source string) *Document {
	if ctx == nil {
		ctx = context.Background()
	}
	return &Document{
		ctx:     ctx,
		source:  source,
		targets: make(map[string]ast.Node),
	}
}

// NewParserContext returns a goldmark parser context carrying d.
func NewParserContext(d *Document) parser.Context {
	pc := parser.NewContext()
	pc.Set(documentKey, d)
	return pc
}

// DocumentFrom returns the Document stored in pc, creating one if needed.
func DocumentFrom(pc parser.Context) *Document {
	if d, ok := pc.Get(documentKey).(*Document); ok {
		return d
	}
	d := NewDocument(context.Background(), "")
	pc.Set(documentKey, d)
	return d
}

// Context returns the context the document is rendered under.
func (d *Document) Context() context.Context {
	return d.ctx
}

// Source returns the page the document was read from.
func (d *Document) Source() string {
	return d.source
}

// NoteRefName records a named reference for resolution after all
// directives have run.
func (d *Document) NoteRefName(ref *Reference) {
	d.refs = append(d.refs, ref)
}

// RefNames returns the references waiting for resolution.
func (d *Document) RefNames() []*Reference {
	return d.refs
}

// NoteExplicitTarget registers name as pointing at node. A duplicate name
// is reported as a warning.
func (d *Document) NoteExplicitTarget(name string, node ast.Node, line int) {
	if _, exists := d.targets[name]; exists {
		d.Report(NewSystemMessage(LevelWarning, line, fmt.Sprintf("Duplicate explicit target name: %q.", name)))
		return
	}
	d.targets[name] = node
}

// Target returns the node registered under name.
func (d *Document) Target(name string) (ast.Node, bool) {
	n, ok := d.targets[FullyNormalizeName(name)]
	return n, ok
}

// Report records a diagnostic that is appended to the end of the document.
func (d *Document) Report(msg *SystemMessage) {
	d.messages = append(d.messages, msg)
	d.pending = append(d.pending, msg)
}

// note records a diagnostic that a directive already placed in the tree.
func (d *Document) note(msg *SystemMessage) {
	d.messages = append(d.messages, msg)
}

// takePending returns and clears the diagnostics waiting to be placed.
func (d *Document) takePending() []*SystemMessage {
	p := d.pending
	d.pending = nil
	return p
}

// Messages returns every diagnostic produced for the document.
func (d *Document) Messages() []*SystemMessage {
	return d.messages
}

// Fail records a fatal error. Only the first one is kept.
func (d *Document) Fail(err error) {
	if d.err == nil {
		d.err = err
	}
}

// Err returns the first fatal error.
func (d *Document) Err() error {
	return d.err
}
