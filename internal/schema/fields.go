package schema

import (
	"github.com/rs/xid"

	"github.com/sakif/briefme/internal/model"
)

// NewID returns a fresh field id. Field ids are only unique within a briefing
// and never shown to the person filling the form.
func NewID() string {
	return "field_" + xid.New().String()
}

// NewField builds the field the builder appends by default: a generated id,
// an empty label, type text, not required.
func NewField() model.BriefingField {
	return model.BriefingField{
		ID:       NewID(),
		Type:     model.FieldText,
		Required: false,
	}
}

// Add appends f.
func Add(fields []model.BriefingField, f model.BriefingField) []model.BriefingField {
	out := clone(fields)
	return append(out, f.Clone())
}

// Update replaces the field at i. An out-of-range index leaves the list as is.
func Update(fields []model.BriefingField, i int, f model.BriefingField) []model.BriefingField {
	out := clone(fields)
	if i < 0 || i >= len(out) {
		return out
	}
	out[i] = f.Clone()
	return out
}

// Remove deletes the field at i. An out-of-range index leaves the list as is.
func Remove(fields []model.BriefingField, i int) []model.BriefingField {
	out := clone(fields)
	if i < 0 || i >= len(out) {
		return out
	}
	return append(out[:i], out[i+1:]...)
}

// Move takes the field at from and inserts it at to, keeping the relative
// order of every other field. Invalid indices leave the list as is.
func Move(fields []model.BriefingField, from, to int) []model.BriefingField {
	out := clone(fields)
	n := len(out)
	if from < 0 || from >= n || to < 0 || to >= n || from == to {
		return out
	}
	moved := out[from]
	out = append(out[:from], out[from+1:]...)
	out = append(out[:to], append([]model.BriefingField{moved}, out[to:]...)...)
	return out
}

// IndexOf returns the position of the field with the given id, or -1.
func IndexOf(fields []model.BriefingField, id string) int {
	for i, f := range fields {
		if f.ID == id {
			return i
		}
	}
	return -1
}

// WithType changes the field's type. Options are not migrated: leaving
// dropdown drops them, entering dropdown seeds a single empty option when the
// field had none.
func WithType(f model.BriefingField, t model.FieldType) model.BriefingField {
	f = f.Clone()
	f.Type = t
	if tr, ok := TraitsOf(t); ok && tr.HasOptions {
		if len(f.Options) == 0 {
			f.Options = []string{""}
		}
	} else {
		f.Options = nil
	}
	return f
}

// AddOption appends an empty option to a dropdown field.
func AddOption(f model.BriefingField) model.BriefingField {
	f = f.Clone()
	if !hasOptions(f) {
		return f
	}
	f.Options = append(f.Options, "")
	return f
}

// UpdateOption sets option i to v. Out-of-range indices are ignored.
func UpdateOption(f model.BriefingField, i int, v string) model.BriefingField {
	f = f.Clone()
	if i < 0 || i >= len(f.Options) {
		return f
	}
	f.Options[i] = v
	return f
}

// RemoveOption deletes option i. The last remaining option can't be removed.
func RemoveOption(f model.BriefingField, i int) model.BriefingField {
	f = f.Clone()
	if len(f.Options) <= 1 || i < 0 || i >= len(f.Options) {
		return f
	}
	f.Options = append(f.Options[:i], f.Options[i+1:]...)
	return f
}

// Normalize brings a field received from outside (an API body, a stored
// document) in line with its type's option rules, and assigns an id when the
// field has none.
func Normalize(f model.BriefingField) model.BriefingField {
	if f.ID == "" {
		f.ID = NewID()
	}
	return WithType(f, f.Type)
}

func hasOptions(f model.BriefingField) bool {
	tr, ok := TraitsOf(f.Type)
	return ok && tr.HasOptions
}

func clone(fields []model.BriefingField) []model.BriefingField {
	out := make([]model.BriefingField, len(fields))
	for i, f := range fields {
		out[i] = f.Clone()
	}
	return out
}
