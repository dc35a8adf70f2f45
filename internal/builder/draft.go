// Package builder edits a briefing draft (title, description, ordered fields)
// before it is saved. Edits are never validated one by one; Validate runs once
// when the draft is about to be persisted.
package builder

import (
	"fmt"
	"strings"

	"github.com/sakif/briefme/internal/apperror"
	"github.com/sakif/briefme/internal/model"
	"github.com/sakif/briefme/internal/schema"
)

// Save-time validation messages.
const (
	MsgTitleRequired = "briefing title is required"
	MsgNoFields      = "add at least one field to the form"
	MsgLabelRequired = "every field needs a label"
)

// Draft is the editable state of a briefing.
type Draft struct {
	Title       string                `json:"title"`
	Description string                `json:"description,omitempty"`
	Fields      []model.BriefingField `json:"fields"`
}

// NewDraft is the draft a new briefing starts from: no title and a single
// required "Project Name" text field.
func NewDraft() Draft {
	var d Draft
	f := d.AddField()
	f.Label = "Project Name"
	f.Required = true
	f.Placeholder = "Enter your project name"
	d.UpdateField(0, f)
	return d
}

// FromBriefing starts a draft from a saved briefing.
func FromBriefing(b model.Briefing) Draft {
	c := b.Clone()
	return Draft{
		Title:       c.Title,
		Description: c.Description,
		Fields:      c.Fields,
	}
}

// AddField appends the default field and returns it.
func (d *Draft) AddField() model.BriefingField {
	f := schema.NewField()
	d.Fields = schema.Add(d.Fields, f)
	return f
}

// UpdateField replaces the field at i; invalid indices are ignored.
func (d *Draft) UpdateField(i int, f model.BriefingField) {
	d.Fields = schema.Update(d.Fields, i, f)
}

// RemoveField deletes the field at i; invalid indices are ignored.
func (d *Draft) RemoveField(i int) {
	d.Fields = schema.Remove(d.Fields, i)
}

// MoveField moves the field at from to position to.
func (d *Draft) MoveField(from, to int) {
	d.Fields = schema.Move(d.Fields, from, to)
}

// SetFieldType changes the type of the field at i.
func (d *Draft) SetFieldType(i int, t model.FieldType) {
	if i < 0 || i >= len(d.Fields) {
		return
	}
	d.Fields = schema.Update(d.Fields, i, schema.WithType(d.Fields[i], t))
}

// AddOption appends an empty option to the dropdown at i.
func (d *Draft) AddOption(i int) {
	if i < 0 || i >= len(d.Fields) {
		return
	}
	d.Fields = schema.Update(d.Fields, i, schema.AddOption(d.Fields[i]))
}

// UpdateOption sets option opt of the field at i.
func (d *Draft) UpdateOption(i, opt int, v string) {
	if i < 0 || i >= len(d.Fields) {
		return
	}
	d.Fields = schema.Update(d.Fields, i, schema.UpdateOption(d.Fields[i], opt, v))
}

// RemoveOption deletes option opt of the field at i, unless it is the last one.
func (d *Draft) RemoveOption(i, opt int) {
	if i < 0 || i >= len(d.Fields) {
		return
	}
	d.Fields = schema.Update(d.Fields, i, schema.RemoveOption(d.Fields[i], opt))
}

// Normalize applies the option rules of each field's type and fills in
// missing field ids. Drafts decoded from a request body go through this
// before validation.
func (d *Draft) Normalize() {
	for i, f := range d.Fields {
		d.Fields[i] = schema.Normalize(f)
	}
}

// Validate checks the draft the way a save does. It returns the first
// violated rule as a validation error.
func (d Draft) Validate() error {
	if strings.TrimSpace(d.Title) == "" {
		return apperror.ValidationFailed("title", MsgTitleRequired)
	}
	if len(d.Fields) == 0 {
		return apperror.ValidationFailed("fields", MsgNoFields)
	}
	for _, f := range d.Fields {
		if strings.TrimSpace(f.Label) == "" {
			return apperror.ValidationFailed(f.ID, MsgLabelRequired)
		}
	}

	seen := make(map[string]bool, len(d.Fields))
	for _, f := range d.Fields {
		if f.ID == "" {
			return apperror.ValidationFailed("fields", "every field needs an id")
		}
		if seen[f.ID] {
			return apperror.ValidationFailed(f.ID, fmt.Sprintf("duplicate field id %q", f.ID))
		}
		seen[f.ID] = true

		tr, ok := schema.TraitsOf(f.Type)
		if !ok {
			return apperror.ValidationFailed(f.ID, fmt.Sprintf("unknown field type %q", f.Type))
		}
		if tr.HasOptions && len(f.Options) == 0 {
			return apperror.ValidationFailed(f.ID, "dropdown fields need at least one option")
		}
	}
	return nil
}
