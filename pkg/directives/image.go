package directives

import (
	"github.com/yuin/goldmark/ast"

	"github.com/jingkaihe/mosaic/pkg/markup"
)

// ImageClass is appended to the classes of every image directive.
const ImageClass = "m-image"

// Image is the "image" directive: an image with an optional link target.
type Image struct{}

// NewImage returns the image directive handler.
func NewImage() *Image {
	return &Image{}
}

// Spec implements markup.Handler.
func (d *Image) Spec() markup.Spec {
	return markup.Spec{
		RequiredArguments:       1,
		FinalArgumentWhitespace: true,
		Options: map[string]markup.OptionFunc{
			"alt":    markup.Unchanged,
			"name":   markup.Unchanged,
			"class":  markup.ClassOption,
			"target": markup.UnchangedRequired,
		},
	}
}

// Run implements markup.Handler.
func (d *Image) Run(inv *markup.Invocation) ([]ast.Node, error) {
	uri, err := markup.URI(inv.Arguments[0])
	if err != nil {
		return []ast.Node{inv.Error("Error in %q directive: %s.", inv.Name, err)}, nil
	}

	var (
		messages  []ast.Node
		reference *markup.Reference
	)
	if raw, ok := inv.Options.String("target"); ok {
		target, msg := inv.ParseTarget(raw)
		switch {
		case msg != nil:
			messages = append(messages, msg)
		case target.Type == markup.TargetURI:
			reference = markup.NewURIReference(target.Value)
		case target.Type == markup.TargetName:
			reference = markup.NewNameReference(target.Value)
			inv.Document.NoteRefName(reference)
		}
	}

	img := markup.NewImage(uri)
	img.Alt, _ = inv.Options.String("alt")
	img.Classes = append(inv.Options.Strings("class"), ImageClass)
	inv.AddName(img)

	if reference != nil {
		reference.AppendChild(reference, img)
		return append(messages, reference), nil
	}
	return append(messages, img), nil
}
