package model

import "time"

// FieldType tags a briefing field. The set of tags is closed; see the schema
// package for the traits attached to each one.
type FieldType string

const (
	FieldText     FieldType = "text"
	FieldTextarea FieldType = "textarea"
	FieldDropdown FieldType = "dropdown"
	FieldNumber   FieldType = "number"
	FieldDate     FieldType = "date"
	FieldEmail    FieldType = "email"
)

// BriefingField is one typed input slot in a briefing's schema.
//
// Options is only meaningful for dropdown fields and must then hold at least
// one entry. For every other type it is nil.
type BriefingField struct {
	ID          string    `json:"id"`
	Label       string    `json:"label"`
	Type        FieldType `json:"type"`
	Options     []string  `json:"options,omitempty"`
	Required    bool      `json:"required"`
	Placeholder string    `json:"placeholder,omitempty"`
	Tip         string    `json:"tip,omitempty"`
}

// Briefing is a named, shareable intake form composed of ordered fields.
//
// Field order is display order. Responses are embedded and append-only.
type Briefing struct {
	ID          string             `json:"id"`
	Title       string             `json:"title"`
	Description string             `json:"description,omitempty"`
	Fields      []BriefingField    `json:"fields"`
	CreatedAt   time.Time          `json:"createdAt"`
	UpdatedAt   *time.Time         `json:"updatedAt,omitempty"`
	CreatedBy   string             `json:"createdBy"`
	Responses   []BriefingResponse `json:"responses"`
}

// BriefingResponse is one client's completed answer set. Answers is sparse:
// it only holds the field ids the submitter sent.
type BriefingResponse struct {
	ID          string            `json:"id"`
	BriefingID  string            `json:"briefingId"`
	Answers     map[string]string `json:"answers"`
	SubmittedBy string            `json:"submittedBy,omitempty"`
	SubmittedAt time.Time         `json:"submittedAt"`
}

// Response looks up one of the briefing's responses by id.
func (b Briefing) Response(id string) (BriefingResponse, bool) {
	for _, r := range b.Responses {
		if r.ID == id {
			return r, true
		}
	}
	return BriefingResponse{}, false
}

// Clone returns a deep copy, so callers can edit fields and responses without
// touching a collection that is shared with a store.
func (b Briefing) Clone() Briefing {
	out := b
	if b.UpdatedAt != nil {
		t := *b.UpdatedAt
		out.UpdatedAt = &t
	}
	out.Fields = make([]BriefingField, len(b.Fields))
	for i, f := range b.Fields {
		out.Fields[i] = f.Clone()
	}
	out.Responses = make([]BriefingResponse, len(b.Responses))
	for i, r := range b.Responses {
		answers := make(map[string]string, len(r.Answers))
		for k, v := range r.Answers {
			answers[k] = v
		}
		r.Answers = answers
		out.Responses[i] = r
	}
	return out
}

// Clone returns a copy of the field with its own options slice.
func (f BriefingField) Clone() BriefingField {
	if f.Options != nil {
		f.Options = append([]string(nil), f.Options...)
	}
	return f
}
