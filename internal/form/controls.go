package form

import (
	"time"

	"github.com/sakif/briefme/internal/model"
	"github.com/sakif/briefme/internal/schema"
)

// Control is everything a template needs to draw one field.
type Control struct {
	FieldID     string           `json:"fieldId"`
	Label       string           `json:"label"`
	Input       schema.InputKind `json:"input"`
	Placeholder string           `json:"placeholder,omitempty"`
	Tip         string           `json:"tip,omitempty"`
	Options     []string         `json:"options,omitempty"`
	Required    bool             `json:"required"`
	Value       string           `json:"value"`
	Error       string           `json:"error,omitempty"`
}

// Controls returns one control per field, in schema order, filled with the
// current values and errors.
func Controls(fields []model.BriefingField, answers map[string]string, errs Errors) []Control {
	out := make([]Control, 0, len(fields))
	for _, f := range fields {
		tr, ok := schema.TraitsOf(f.Type)
		if !ok {
			// Stored schemas are validated on save; fall back to a plain input.
			tr, _ = schema.TraitsOf(model.FieldText)
		}
		c := Control{
			FieldID:     f.ID,
			Label:       f.Label,
			Input:       tr.Input,
			Placeholder: f.Placeholder,
			Tip:         f.Tip,
			Required:    f.Required,
			Value:       answers[f.ID],
			Error:       errs[f.ID],
		}
		if c.Placeholder == "" {
			c.Placeholder = tr.DefaultPlaceholder
		}
		if tr.HasOptions {
			c.Options = append([]string(nil), f.Options...)
		}
		out = append(out, c)
	}
	return out
}

// SummaryEntry is one line of a read-only response view.
type SummaryEntry struct {
	FieldID   string          `json:"fieldId"`
	Label     string          `json:"label"`
	Type      model.FieldType `json:"type"`
	Answer    string          `json:"answer"`
	Answered  bool            `json:"answered"`
	Multiline bool            `json:"multiline"`
}

// Summary is the read-only view of a response.
type Summary struct {
	BriefingID  string         `json:"briefingId"`
	ResponseID  string         `json:"responseId"`
	Title       string         `json:"title"`
	SubmittedBy string         `json:"submittedBy"`
	SubmittedAt string         `json:"submittedAt"`
	Entries     []SummaryEntry `json:"entries"`
}

// Summarize pairs a response's answers with the briefing's current fields.
// Unanswered fields show "-" and an absent submitter shows "Anonymous".
func Summarize(b model.Briefing, r model.BriefingResponse) Summary {
	s := Summary{
		BriefingID:  b.ID,
		ResponseID:  r.ID,
		Title:       b.Title,
		SubmittedBy: r.SubmittedBy,
		SubmittedAt: r.SubmittedAt.UTC().Format(time.RFC3339),
		Entries:     make([]SummaryEntry, 0, len(b.Fields)),
	}
	if s.SubmittedBy == "" {
		s.SubmittedBy = "Anonymous"
	}
	for _, f := range b.Fields {
		e := SummaryEntry{
			FieldID:   f.ID,
			Label:     f.Label,
			Type:      f.Type,
			Multiline: f.Type == model.FieldTextarea,
			Answer:    "-",
		}
		if v := r.Answers[f.ID]; v != "" {
			e.Answer = v
			e.Answered = true
		}
		s.Entries = append(s.Entries, e)
	}
	return s
}
