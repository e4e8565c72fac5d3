package commitmsg

import (
	"github.com/valyala/fasttemplate"
)

// Template tag delimiters.
const (
	startTag = "{{"
	endTag   = "}}"
)

// Kind classifies the change a commit message
// describes.
type Kind string

// The supported change kinds.
const (
	KindCreate      Kind = "create"
	KindUpdate      Kind = "update"
	KindDelete      Kind = "delete"
	KindUploadMedia Kind = "uploadMedia"
	KindDeleteMedia Kind = "deleteMedia"
)

// Templates holds one message template per change
// kind.
type Templates struct {
	Create      string
	Update      string
	Delete      string
	UploadMedia string
	DeleteMedia string
}

// Defaults returns the stock message templates.
func Defaults() Templates {
	return Templates{
		Create:      `Create {{collection}} "{{slug}}"`,
		Update:      `Update {{collection}} "{{slug}}"`,
		Delete:      `Delete {{collection}} "{{slug}}"`,
		UploadMedia: `Upload "{{path}}"`,
		DeleteMedia: `Delete "{{path}}"`,
	}
}

// Vars are the values available to message templates.
type Vars struct {
	Collection string
	Slug       string
	Path       string
	Author     string
}

// Render expands the template for kind with vars.
// Unknown kinds fall back to the update template.
func (t Templates) Render(kind Kind, vars Vars) string {
	var tpl string

	switch kind {
	case KindCreate:
		tpl = t.Create
	case KindUpdate:
		tpl = t.Update
	case KindDelete:
		tpl = t.Delete
	case KindUploadMedia:
		tpl = t.UploadMedia
	case KindDeleteMedia:
		tpl = t.DeleteMedia
	default:
		tpl = t.Update
	}

	ctx := map[string]any{
		"collection": vars.Collection,
		"slug":       vars.Slug,
		"path":       vars.Path,
		"author":     vars.Author,
	}

	return fasttemplate.New(
		tpl, startTag, endTag,
	).ExecuteString(ctx)
}
