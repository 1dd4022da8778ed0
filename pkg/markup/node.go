package markup

import (
	"fmt"
	"strconv"
	"strings"

	"github.com/yuin/goldmark/ast"
)

// Node kinds produced by directives
var (
	KindContainer     = ast.NewNodeKind("Container")
	KindFigure        = ast.NewNodeKind("Figure")
	KindReference     = ast.NewNodeKind("Reference")
	KindImage         = ast.NewNodeKind("DirectiveImage")
	KindCaption       = ast.NewNodeKind("Caption")
	KindSystemMessage = ast.NewNodeKind("SystemMessage")
	KindLiteral       = ast.NewNodeKind("InlineLiteral")
)

// Container is a generic block wrapper rendered as a div.
type Container struct {
	ast.BaseBlock
	Classes []string
}

// NewContainer returns a Container with the given classes.
func NewContainer(classes ...string) *Container {
	return &Container{Classes: classes}
}

// Kind implements ast.Node.
func (n *Container) Kind() ast.NodeKind { return KindContainer }

// Dump implements ast.Node.
func (n *Container) Dump(source []byte, level int) {
	ast.DumpHelper(n, source, level, map[string]string{"Classes": strings.Join(n.Classes, " ")}, nil)
}

// Figure wraps a single image. Width is a percentage of the parent; zero
// leaves the width unset.
type Figure struct {
	ast.BaseBlock
	Width   float64
	Classes []string
}

// NewFigure returns a Figure with the given width in percent.
func NewFigure(width float64) *Figure {
	return &Figure{Width: width}
}

// Kind implements ast.Node.
func (n *Figure) Kind() ast.NodeKind { return KindFigure }

// Dump implements ast.Node.
func (n *Figure) Dump(source []byte, level int) {
	ast.DumpHelper(n, source, level, map[string]string{"Width": strconv.FormatFloat(n.Width, 'f', -1, 64)}, nil)
}

// Reference links its children to RefURI, or to the definition named
// RefName once the document's references are resolved.
type Reference struct {
	ast.BaseBlock
	RefURI string
	// RefName is the fully normalised lookup name.
	RefName string
	// Name is the whitespace normalised name.
	Name string
	// IndirectName is the name as written, kept for diagnostics.
	IndirectName string
	Resolved     bool
}

// NewURIReference returns a reference to a URI.
func NewURIReference(uri string) *Reference {
	return &Reference{RefURI: uri, Resolved: true}
}

// NewNameReference returns a reference to a named target.
func NewNameReference(name string) *Reference {
	return &Reference{
		RefName:      FullyNormalizeName(name),
		Name:         WhitespaceNormalizeName(name),
		IndirectName: name,
	}
}

// Kind implements ast.Node.
func (n *Reference) Kind() ast.NodeKind { return KindReference }

// Dump implements ast.Node.
func (n *Reference) Dump(source []byte, level int) {
	ast.DumpHelper(n, source, level, map[string]string{
		"RefURI":  n.RefURI,
		"RefName": n.RefName,
	}, nil)
}

// Image is an image produced by a directive.
type Image struct {
	ast.BaseBlock
	URI     string
	Alt     string
	Classes []string
	Names   []string
	IDs     []string
}

// NewImage returns an image pointing at uri.
func NewImage(uri string) *Image {
	return &Image{URI: uri}
}

// AddName attaches a normalised explicit target name and its id.
func (n *Image) AddName(name string) {
	n.Names = append(n.Names, name)
	if id := MakeID(name); id != "" {
		n.IDs = append(n.IDs, id)
	}
}

// Kind implements ast.Node.
func (n *Image) Kind() ast.NodeKind { return KindImage }

// Dump implements ast.Node.
func (n *Image) Dump(source []byte, level int) {
	ast.DumpHelper(n, source, level, map[string]string{
		"URI":     n.URI,
		"Alt":     n.Alt,
		"Classes": strings.Join(n.Classes, " "),
		"Names":   strings.Join(n.Names, " "),
	}, nil)
}

// Caption is a figure caption.
type Caption struct {
	ast.BaseBlock
}

// NewCaption returns an empty Caption.
func NewCaption() *Caption {
	return &Caption{}
}

// Kind implements ast.Node.
func (n *Caption) Kind() ast.NodeKind { return KindCaption }

// Dump implements ast.Node.
func (n *Caption) Dump(source []byte, level int) {
	ast.DumpHelper(n, source, level, nil, nil)
}

// Level is the severity of a SystemMessage.
type Level int

// Message levels
const (
	LevelInfo Level = iota + 1
	LevelWarning
	LevelError
	LevelSevere
)

func (l Level) String() string {
	switch l {
	case LevelInfo:
		return "INFO"
	case LevelWarning:
		return "WARNING"
	case LevelError:
		return "ERROR"
	case LevelSevere:
		return "SEVERE"
	default:
		return fmt.Sprintf("LEVEL(%d)", int(l))
	}
}

// SystemMessage is a diagnostic placed in the document.
type SystemMessage struct {
	ast.BaseBlock
	Level   Level
	Line    int
	Message string
	// BlockText is the offending markup, if any.
	BlockText string
}

// NewSystemMessage returns a diagnostic.
func NewSystemMessage(level Level, line int, message string) *SystemMessage {
	return &SystemMessage{Level: level, Line: line, Message: message}
}

// Kind implements ast.Node.
func (n *SystemMessage) Kind() ast.NodeKind { return KindSystemMessage }

// Dump implements ast.Node.
func (n *SystemMessage) Dump(source []byte, level int) {
	ast.DumpHelper(n, source, level, map[string]string{
		"Level":   n.Level.String(),
		"Line":    strconv.Itoa(n.Line),
		"Message": n.Message,
	}, nil)
}

func (n *SystemMessage) String() string {
	if n.Line > 0 {
		return fmt.Sprintf("%s/%d (line %d) %s", n.Level, int(n.Level), n.Line, n.Message)
	}
	return fmt.Sprintf("%s/%d %s", n.Level, int(n.Level), n.Message)
}

// Literal is inline code whose text is owned by the node rather than the
// document source.
type Literal struct {
	ast.BaseInline
	Value []byte
}

// NewLiteral returns a Literal.
func NewLiteral(value []byte) *Literal {
	return &Literal{Value: value}
}

// Kind implements ast.Node.
func (n *Literal) Kind() ast.NodeKind { return KindLiteral }

// Dump implements ast.Node.
func (n *Literal) Dump(source []byte, level int) {
	ast.DumpHelper(n, source, level, map[string]string{"Value": string(n.Value)}, nil)
}
