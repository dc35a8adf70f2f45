// Package schema holds the field schema model of a briefing: the closed set
// of field types, the traits each type carries, and the list operations the
// builder performs on a field slice.
//
// Every operation is copy-on-write. Callers get a new slice back and the
// input is never modified, so a draft can be edited without aliasing a
// briefing that is held by a store.
package schema

import (
	"fmt"

	"github.com/sakif/briefme/internal/apperror"
	"github.com/sakif/briefme/internal/model"
)

// InputKind is the control a renderer draws for a field type.
type InputKind string

const (
	InputText     InputKind = "text"
	InputTextarea InputKind = "textarea"
	InputSelect   InputKind = "select"
	InputNumber   InputKind = "number"
	InputDate     InputKind = "date"
	InputEmail    InputKind = "email"
)

// Traits describe what a field type means for the builder and the renderer.
type Traits struct {
	Label              string    // shown in the builder's type selector
	Input              InputKind // control drawn by the renderer
	HasOptions         bool      // options are required and editable
	ValidatesEmail     bool      // non-empty answers must look like an email
	DefaultPlaceholder string    // used when the field has no placeholder
}

var types = []model.FieldType{
	model.FieldText,
	model.FieldTextarea,
	model.FieldDropdown,
	model.FieldNumber,
	model.FieldDate,
	model.FieldEmail,
}

var traits = map[model.FieldType]Traits{
	model.FieldText:     {Label: "Short text", Input: InputText},
	model.FieldTextarea: {Label: "Long text", Input: InputTextarea},
	model.FieldDropdown: {Label: "Dropdown", Input: InputSelect, HasOptions: true, DefaultPlaceholder: "Select an option"},
	model.FieldNumber:   {Label: "Number", Input: InputNumber},
	model.FieldDate:     {Label: "Date", Input: InputDate},
	model.FieldEmail:    {Label: "Email", Input: InputEmail, ValidatesEmail: true, DefaultPlaceholder: "email@example.com"},
}

// A declared type without traits would render as nothing; refuse to start.
func init() {
	if err := checkTraits(types, traits); err != nil {
		panic(err)
	}
}

func checkTraits(declared []model.FieldType, table map[model.FieldType]Traits) error {
	if len(declared) != len(table) {
		return fmt.Errorf("schema: %d field types declared but %d have traits", len(declared), len(table))
	}
	for _, t := range declared {
		if _, ok := table[t]; !ok {
			return fmt.Errorf("schema: field type %q has no traits", t)
		}
	}
	return nil
}

// Types returns every field type in selector order.
func Types() []model.FieldType {
	return append([]model.FieldType(nil), types...)
}

// TraitsOf returns the traits of t. The second result is false for unknown tags.
func TraitsOf(t model.FieldType) (Traits, bool) {
	tr, ok := traits[t]
	return tr, ok
}

// ParseFieldType converts a raw tag into a FieldType.
func ParseFieldType(s string) (model.FieldType, error) {
	t := model.FieldType(s)
	if _, ok := traits[t]; !ok {
		return "", apperror.ValidationFailed("type", fmt.Sprintf("unknown field type %q", s))
	}
	return t, nil
}
