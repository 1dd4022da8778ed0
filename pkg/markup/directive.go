package markup

import (
	"context"
	"fmt"
	"sort"
	"sync"

	"github.com/yuin/goldmark/ast"
)

// Spec describes the arguments, options and content a directive accepts.
type Spec struct {
	RequiredArguments int
	OptionalArguments int
	// FinalArgumentWhitespace lets the last argument contain spaces.
	FinalArgumentWhitespace bool
	HasContent              bool
	Options                 map[string]OptionFunc
}

// Handler turns one directive block into document nodes.
type Handler interface {
	Spec() Spec
	// Run returns the nodes that replace the block. An error aborts the
	// conversion of the whole document.
	Run(inv *Invocation) ([]ast.Node, error)
}

// HandlerFunc adapts a function and its Spec to a Handler.
type HandlerFunc struct {
	S  Spec
	Fn func(inv *Invocation) ([]ast.Node, error)
}

// Spec implements Handler.
func (h HandlerFunc) Spec() Spec { return h.S }

// Run implements Handler.
func (h HandlerFunc) Run(inv *Invocation) ([]ast.Node, error) { return h.Fn(inv) }

// Registry maps directive names to handlers.
type Registry struct {
	mu       sync.RWMutex
	handlers map[string]Handler
}

// NewRegistry returns an empty registry.
func NewRegistry() *Registry {
	return &Registry{handlers: make(map[string]Handler)}
}

// Register installs h under name, replacing any earlier handler.
func (r *Registry) Register(name string, h Handler) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.handlers[name] = h
}

// Lookup returns the handler for name.
func (r *Registry) Lookup(name string) (Handler, bool) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	h, ok := r.handlers[name]
	return h, ok
}

// Names returns the registered directive names in order.
func (r *Registry) Names() []string {
	r.mu.RLock()
	defer r.mu.RUnlock()

	names := make([]string, 0, len(r.handlers))
	for name := range r.handlers {
		names = append(names, name)
	}
	sort.Strings(names)
	return names
}

// Invocation is one directive block being run.
type Invocation struct {
	Name      string
	Arguments []string
	Options   Options
	Content   []string
	BlockText string
	Line      int
	Document  *Document

	inline func(text string) []ast.Node
}

// Context returns the render context of the document.
func (inv *Invocation) Context() context.Context {
	if inv.Document == nil {
		return context.Background()
	}
	return inv.Document.Context()
}

// InlineText parses text as inline markup with the host parser.
func (inv *Invocation) InlineText(text string) []ast.Node {
	if inv.inline == nil {
		return []ast.Node{ast.NewString([]byte(text))}
	}
	return inv.inline(text)
}

// Error returns an error diagnostic for this directive carrying its block text.
func (inv *Invocation) Error(format string, args ...any) *SystemMessage {
	msg := NewSystemMessage(LevelError, inv.Line, fmt.Sprintf(format, args...))
	msg.BlockText = inv.BlockText
	return msg
}

// Warning returns a warning diagnostic for this directive.
func (inv *Invocation) Warning(format string, args ...any) *SystemMessage {
	return NewSystemMessage(LevelWarning, inv.Line, fmt.Sprintf(format, args...))
}

// ParseTarget parses a target option. A malformed target yields an error
// diagnostic instead of an error value.
func (inv *Invocation) ParseTarget(text string) (Target, *SystemMessage) {
	target, err := ParseTarget(text)
	if err != nil {
		return Target{}, inv.Error("Error in %q directive: %s.", inv.Name, err)
	}
	return target, nil
}

// NamedNode is a node that can carry explicit target names.
type NamedNode interface {
	ast.Node
	AddName(name string)
}

// AddName registers the "name" option, if given, on node.
func (inv *Invocation) AddName(node NamedNode) {
	raw, _ := inv.Options.String("name")
	name := FullyNormalizeName(raw)
	if name == "" {
		return
	}
	node.AddName(name)
	if inv.Document != nil {
		inv.Document.NoteExplicitTarget(name, node, inv.Line)
	}
}
