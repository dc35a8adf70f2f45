package builder

import (
	"errors"
	"testing"

	"github.com/sakif/briefme/internal/apperror"
	"github.com/sakif/briefme/internal/model"
)

func validDraft() Draft {
	return Draft{
		Title: "Logo Design",
		Fields: []model.BriefingField{
			{ID: "f1", Label: "Project Name", Type: model.FieldText, Required: true},
		},
	}
}

func assertValidation(t *testing.T, err error, wantMsg string) {
	t.Helper()
	if !errors.Is(err, apperror.ErrValidation) {
		t.Fatalf("Validate() error = %v, want validation error", err)
	}
	var appErr *apperror.AppError
	if !errors.As(err, &appErr) {
		t.Fatalf("Validate() error %T is not an AppError", err)
	}
	if wantMsg != "" && appErr.Message != wantMsg {
		t.Errorf("message = %q, want %q", appErr.Message, wantMsg)
	}
}

func TestValidate_OK(t *testing.T) {
	if err := validDraft().Validate(); err != nil {
		t.Fatalf("Validate() error = %v", err)
	}
}

func TestValidate_Rules(t *testing.T) {
	tests := []struct {
		name    string
		edit    func(*Draft)
		wantMsg string
	}{
		{"empty title", func(d *Draft) { d.Title = "" }, MsgTitleRequired},
		{"whitespace title", func(d *Draft) { d.Title = "   \t" }, MsgTitleRequired},
		{"no fields", func(d *Draft) { d.Fields = nil }, MsgNoFields},
		{"blank label", func(d *Draft) { d.Fields[0].Label = "  " }, MsgLabelRequired},
		{"title checked before fields", func(d *Draft) { d.Title = ""; d.Fields = nil }, MsgTitleRequired},
		{"duplicate ids", func(d *Draft) {
			d.Fields = append(d.Fields, model.BriefingField{ID: "f1", Label: "Again", Type: model.FieldText})
		}, ""},
		{"unknown type", func(d *Draft) { d.Fields[0].Type = "checkbox" }, ""},
		{"dropdown without options", func(d *Draft) { d.Fields[0].Type = model.FieldDropdown }, ""},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			d := validDraft()
			tt.edit(&d)
			assertValidation(t, d.Validate(), tt.wantMsg)
		})
	}
}

func TestDraftOperations(t *testing.T) {
	d := Draft{Title: "Website"}

	first := d.AddField()
	second := d.AddField()
	if len(d.Fields) != 2 || d.Fields[0].ID != first.ID || d.Fields[1].ID != second.ID {
		t.Fatalf("AddField() fields = %+v", d.Fields)
	}

	d.SetFieldType(1, model.FieldDropdown)
	d.UpdateOption(1, 0, "Yes")
	d.AddOption(1)
	d.UpdateOption(1, 1, "No")
	if got := d.Fields[1].Options; len(got) != 2 || got[0] != "Yes" || got[1] != "No" {
		t.Fatalf("options = %q", got)
	}

	d.RemoveOption(1, 0)
	d.RemoveOption(1, 0)
	if got := d.Fields[1].Options; len(got) != 1 || got[0] != "No" {
		t.Fatalf("after removing options = %q, want [No]", got)
	}

	d.MoveField(1, 0)
	if d.Fields[0].ID != second.ID {
		t.Errorf("MoveField(1,0) first id = %s, want %s", d.Fields[0].ID, second.ID)
	}

	// Unlabelled fields block the save until they are labelled.
	assertValidation(t, d.Validate(), MsgLabelRequired)
	f := d.Fields[0]
	f.Label = "Do you have a logo?"
	d.UpdateField(0, f)
	f = d.Fields[1]
	f.Label = "Company"
	d.UpdateField(1, f)
	if err := d.Validate(); err != nil {
		t.Fatalf("Validate() error = %v", err)
	}

	d.RemoveField(5)
	d.RemoveField(0)
	if len(d.Fields) != 1 || d.Fields[0].ID != first.ID {
		t.Errorf("RemoveField(0) fields = %+v", d.Fields)
	}
}

func TestOutOfRangeEditsAreIgnored(t *testing.T) {
	d := validDraft()
	d.SetFieldType(3, model.FieldDropdown)
	d.AddOption(-1)
	d.UpdateOption(9, 0, "x")
	d.RemoveOption(9, 0)
	if err := d.Validate(); err != nil {
		t.Fatalf("Validate() error = %v", err)
	}
	if d.Fields[0].Type != model.FieldText {
		t.Errorf("field type = %s, want text", d.Fields[0].Type)
	}
}

func TestFromBriefing_IsIndependentCopy(t *testing.T) {
	b := model.Briefing{
		ID:    "b1",
		Title: "Logo",
		Fields: []model.BriefingField{
			{ID: "f1", Label: "Style", Type: model.FieldDropdown, Options: []string{"Flat", "3D"}},
		},
	}

	d := FromBriefing(b)
	d.UpdateOption(0, 0, "Minimal")
	d.Title = "Changed"

	if b.Fields[0].Options[0] != "Flat" || b.Title != "Logo" {
		t.Error("editing the draft changed the source briefing")
	}
}

func TestNormalize(t *testing.T) {
	d := Draft{
		Title: "Event",
		Fields: []model.BriefingField{
			{Label: "Date", Type: model.FieldDate, Options: []string{"x"}},
			{Label: "Package", Type: model.FieldDropdown},
		},
	}
	d.Normalize()

	if d.Fields[0].ID == "" || d.Fields[1].ID == "" {
		t.Error("Normalize() left a field without id")
	}
	if d.Fields[0].Options != nil {
		t.Errorf("date field options = %q, want nil", d.Fields[0].Options)
	}
	if len(d.Fields[1].Options) != 1 {
		t.Errorf("dropdown options = %q, want one seeded option", d.Fields[1].Options)
	}
	if err := d.Validate(); err != nil {
		t.Errorf("Validate() error = %v", err)
	}
}

func TestNewDraft(t *testing.T) {
	d := NewDraft()

	if len(d.Fields) != 1 {
		t.Fatalf("fields = %d, want 1", len(d.Fields))
	}
	f := d.Fields[0]
	if f.ID == "" || f.Label != "Project Name" || f.Type != model.FieldText || !f.Required {
		t.Errorf("starter field = %+v", f)
	}
	// Only the title is missing before the draft can be saved.
	assertValidation(t, d.Validate(), MsgTitleRequired)
	d.Title = "Logo Design"
	if err := d.Validate(); err != nil {
		t.Errorf("Validate() error = %v", err)
	}
}
