// Package service contains the business logic layer of the application.
//
// THE THREE-LAYER ARCHITECTURE:
//
//	Handler (HTTP layer)     → parses requests, writes responses
//	Service (Business layer) → validates, enforces rules, orchestrates
//	Store / Repository       → holds and persists the owner's collection
//
// Services take plain values and return domain errors from apperror; the
// handlers translate those to HTTP. Nothing here imports net/http.
package service

import (
	"context"
	"errors"
	"fmt"
	"log/slog"

	"github.com/sakif/briefme/internal/apperror"
	"github.com/sakif/briefme/internal/builder"
	"github.com/sakif/briefme/internal/form"
	"github.com/sakif/briefme/internal/model"
	"github.com/sakif/briefme/internal/schema"
	"github.com/sakif/briefme/internal/store"
)

// Metrics is what the services report. *metrics.Metrics implements it.
type Metrics interface {
	BriefingChanged(op string)
	ResponseSubmitted()
	SubmissionRejected()
	PersistenceFailed()
	AuthAttempt(kind string, ok bool)
}

type noMetrics struct{}

func (noMetrics) BriefingChanged(string)   {}
func (noMetrics) ResponseSubmitted()       {}
func (noMetrics) SubmissionRejected()      {}
func (noMetrics) PersistenceFailed()       {}
func (noMetrics) AuthAttempt(string, bool) {}

// Briefing operation labels, matching the metrics package.
const (
	opCreate = "create"
	opUpdate = "update"
	opDelete = "delete"
)

// FieldInput is the editable part of a field as sent by a client.
type FieldInput struct {
	Label       string          `json:"label"`
	Type        model.FieldType `json:"type"`
	Required    bool            `json:"required"`
	Placeholder string          `json:"placeholder,omitempty"`
	Tip         string          `json:"tip,omitempty"`
	Options     []string        `json:"options,omitempty"`
}

// BriefingService runs builder, store and renderer operations on behalf of
// an owner, or on behalf of an anonymous visitor for public links.
type BriefingService struct {
	stores  *store.Manager
	origin  string
	metrics Metrics
	logger  *slog.Logger
}

// NewBriefingService wires the service. origin is the public base URL used
// for share links; m may be nil.
func NewBriefingService(stores *store.Manager, origin string, m Metrics, logger *slog.Logger) *BriefingService {
	if m == nil {
		m = noMetrics{}
	}
	return &BriefingService{stores: stores, origin: origin, metrics: m, logger: logger}
}

// ShareLink returns the stable public URL of a briefing.
func (s *BriefingService) ShareLink(briefingID string) string {
	return s.origin + "/briefings/" + briefingID
}

// List returns the owner's briefings in stored order.
func (s *BriefingService) List(ctx context.Context, owner string) ([]model.Briefing, error) {
	var out []model.Briefing
	err := s.stores.WithOwner(ctx, owner, nil, func(st *store.Store) error {
		out = st.Briefings()
		return nil
	})
	if err != nil {
		return nil, fmt.Errorf("service/briefing: listing for %s: %w", owner, err)
	}
	return out, nil
}

// Get returns one of the owner's briefings.
func (s *BriefingService) Get(ctx context.Context, owner, id string) (model.Briefing, error) {
	var b model.Briefing
	err := s.stores.WithOwner(ctx, owner, nil, func(st *store.Store) error {
		var ok bool
		if b, ok = st.GetBriefing(id); !ok {
			return apperror.NotFound("briefing", id)
		}
		return nil
	})
	return b, err
}

// Link returns the share link of one of the owner's briefings.
func (s *BriefingService) Link(ctx context.Context, owner, id string) (string, error) {
	if _, err := s.Get(ctx, owner, id); err != nil {
		return "", err
	}
	return s.ShareLink(id), nil
}

// Create saves a new briefing from a draft.
func (s *BriefingService) Create(ctx context.Context, owner string, d builder.Draft) (model.Briefing, store.Notice, error) {
	var b model.Briefing
	notice, err := s.mutate(ctx, owner, func(st *store.Store) error {
		var err error
		b, err = st.Create(ctx, d)
		return err
	})
	if err != nil {
		return model.Briefing{}, notice, err
	}
	s.metrics.BriefingChanged(opCreate)
	s.logger.Info("briefing created",
		slog.String("owner", owner),
		slog.String("briefingID", b.ID),
		slog.Int("fields", len(b.Fields)),
	)
	return b, notice, nil
}

// Update replaces a briefing's title, description and fields.
func (s *BriefingService) Update(ctx context.Context, owner, id string, d builder.Draft) (model.Briefing, store.Notice, error) {
	return s.edit(ctx, owner, id, func(cur *builder.Draft) error {
		*cur = d
		return nil
	})
}

// Delete removes a briefing and its responses.
func (s *BriefingService) Delete(ctx context.Context, owner, id string) (store.Notice, error) {
	notice, err := s.mutate(ctx, owner, func(st *store.Store) error {
		return st.Delete(ctx, id)
	})
	if err != nil {
		return notice, err
	}
	s.metrics.BriefingChanged(opDelete)
	s.logger.Info("briefing deleted", slog.String("owner", owner), slog.String("briefingID", id))
	return notice, nil
}

// AddField appends a field built from in, with a fresh id.
func (s *BriefingService) AddField(ctx context.Context, owner, id string, in FieldInput) (model.Briefing, store.Notice, error) {
	return s.edit(ctx, owner, id, func(d *builder.Draft) error {
		f := d.AddField()
		return applyFieldInput(d, len(d.Fields)-1, f, in)
	})
}

// UpdateField replaces a field's editable properties; its id is kept.
func (s *BriefingService) UpdateField(ctx context.Context, owner, id, fieldID string, in FieldInput) (model.Briefing, store.Notice, error) {
	return s.edit(ctx, owner, id, func(d *builder.Draft) error {
		i := schema.IndexOf(d.Fields, fieldID)
		if i < 0 {
			return apperror.NotFound("field", fieldID)
		}
		return applyFieldInput(d, i, d.Fields[i], in)
	})
}

// RemoveField deletes a field.
func (s *BriefingService) RemoveField(ctx context.Context, owner, id, fieldID string) (model.Briefing, store.Notice, error) {
	return s.edit(ctx, owner, id, func(d *builder.Draft) error {
		i := schema.IndexOf(d.Fields, fieldID)
		if i < 0 {
			return apperror.NotFound("field", fieldID)
		}
		d.RemoveField(i)
		return nil
	})
}

// MoveField moves a field to position to. An out-of-range target is a
// validation error rather than a silent no-op, since it comes from a client.
func (s *BriefingService) MoveField(ctx context.Context, owner, id, fieldID string, to int) (model.Briefing, store.Notice, error) {
	return s.edit(ctx, owner, id, func(d *builder.Draft) error {
		i := schema.IndexOf(d.Fields, fieldID)
		if i < 0 {
			return apperror.NotFound("field", fieldID)
		}
		if to < 0 || to >= len(d.Fields) {
			return apperror.ValidationFailed("to", fmt.Sprintf("position must be between 0 and %d", len(d.Fields)-1))
		}
		d.MoveField(i, to)
		return nil
	})
}

// AddOption appends an option to a dropdown field.
func (s *BriefingService) AddOption(ctx context.Context, owner, id, fieldID, value string) (model.Briefing, store.Notice, error) {
	return s.edit(ctx, owner, id, func(d *builder.Draft) error {
		i := schema.IndexOf(d.Fields, fieldID)
		if i < 0 {
			return apperror.NotFound("field", fieldID)
		}
		if !hasOptions(d.Fields[i].Type) {
			return apperror.ValidationFailed(fieldID, "only dropdown fields have options")
		}
		d.AddOption(i)
		d.UpdateOption(i, len(d.Fields[i].Options)-1, value)
		return nil
	})
}

// RemoveOption deletes one option of a dropdown field. Removing the only
// option leaves the field unchanged.
func (s *BriefingService) RemoveOption(ctx context.Context, owner, id, fieldID string, index int) (model.Briefing, store.Notice, error) {
	return s.edit(ctx, owner, id, func(d *builder.Draft) error {
		i := schema.IndexOf(d.Fields, fieldID)
		if i < 0 {
			return apperror.NotFound("field", fieldID)
		}
		if index < 0 || index >= len(d.Fields[i].Options) {
			return apperror.NotFound("option", fmt.Sprint(index))
		}
		d.RemoveOption(i, index)
		return nil
	})
}

// Responses lists a briefing's responses, oldest first.
func (s *BriefingService) Responses(ctx context.Context, owner, id string) ([]model.BriefingResponse, error) {
	b, err := s.Get(ctx, owner, id)
	if err != nil {
		return nil, err
	}
	return b.Responses, nil
}

// Response returns one response together with its read-only summary.
func (s *BriefingService) Response(ctx context.Context, owner, id, responseID string) (model.BriefingResponse, form.Summary, error) {
	b, err := s.Get(ctx, owner, id)
	if err != nil {
		return model.BriefingResponse{}, form.Summary{}, err
	}
	r, ok := b.Response(responseID)
	if !ok {
		return model.BriefingResponse{}, form.Summary{}, apperror.NotFound("response", responseID)
	}
	return r, form.Summarize(b, r), nil
}

// Public returns the briefing behind a share link, without its responses.
func (s *BriefingService) Public(ctx context.Context, id string) (model.Briefing, error) {
	var b model.Briefing
	err := s.stores.WithBriefingOwner(ctx, id, nil, func(st *store.Store) error {
		var ok bool
		if b, ok = st.GetBriefing(id); !ok {
			return apperror.NotFound("briefing", id)
		}
		return nil
	})
	if err != nil {
		return model.Briefing{}, err
	}
	b.Responses = []model.BriefingResponse{}
	return b, nil
}

// Submission is an answer set posted to a public link.
type Submission struct {
	Answers     map[string]string
	SubmittedBy string
	// DropEmpty discards blank answers. HTML form posts send every input,
	// so blank ones were never touched by the submitter.
	DropEmpty bool
}

// Submit validates a submission against the briefing's current fields and
// appends it as a response. A rejected submission returns a validation
// error whose Fields hold one message per offending field.
func (s *BriefingService) Submit(ctx context.Context, id string, sub Submission) (model.BriefingResponse, store.Notice, error) {
	var (
		resp     model.BriefingResponse
		recorder store.Recorder
	)
	err := s.stores.WithBriefingOwner(ctx, id, &recorder, func(st *store.Store) error {
		b, ok := st.GetBriefing(id)
		if !ok {
			return apperror.NotFound("briefing", id)
		}
		session := form.NewSession(b)
		for fieldID, v := range form.Sparse(b.Fields, sub.Answers, sub.DropEmpty) {
			if err := session.Set(fieldID, v); err != nil {
				return err
			}
		}
		if err := session.SetSubmitter(sub.SubmittedBy); err != nil {
			return err
		}
		var err error
		resp, err = session.Submit(ctx, st)
		return err
	})
	notice, _ := recorder.Last()

	switch {
	case err == nil:
		s.metrics.ResponseSubmitted()
		s.logger.Info("response submitted", slog.String("briefingID", id), slog.String("responseID", resp.ID))
		return resp, notice, nil
	case form.IsRejection(err):
		s.metrics.SubmissionRejected()
		return model.BriefingResponse{}, store.Notice{Kind: store.NoticeError, Message: form.MsgFixErrors}, err
	default:
		s.failed(err, "submitting response", slog.String("briefingID", id))
		if notice.Kind == "" {
			notice = store.Notice{Kind: store.NoticeError, Message: store.MsgBriefingNotFound}
		}
		return model.BriefingResponse{}, notice, err
	}
}

// edit loads the briefing as a draft, applies change and saves the result
// through the store's update path, which validates it.
func (s *BriefingService) edit(ctx context.Context, owner, id string, change func(*builder.Draft) error) (model.Briefing, store.Notice, error) {
	var b model.Briefing
	notice, err := s.mutate(ctx, owner, func(st *store.Store) error {
		cur, ok := st.GetBriefing(id)
		if !ok {
			return apperror.NotFound("briefing", id)
		}
		d := builder.FromBriefing(cur)
		if err := change(&d); err != nil {
			return err
		}
		var err error
		b, err = st.Update(ctx, id, d)
		return err
	})
	if err != nil {
		return model.Briefing{}, notice, err
	}
	s.metrics.BriefingChanged(opUpdate)
	s.logger.Info("briefing updated", slog.String("owner", owner), slog.String("briefingID", id))
	return b, notice, nil
}

// mutate runs fn against the owner's store and returns the notice it emitted.
// Errors raised before the store got to emit one (a missing field, say) get
// a notice built from the error.
func (s *BriefingService) mutate(ctx context.Context, owner string, fn func(*store.Store) error) (store.Notice, error) {
	var recorder store.Recorder
	err := s.stores.WithOwner(ctx, owner, &recorder, fn)
	notice, ok := recorder.Last()
	if err != nil {
		s.failed(err, "briefing operation", slog.String("owner", owner))
		if !ok {
			notice = store.Notice{Kind: store.NoticeError, Message: errorMessage(err)}
		}
	}
	return notice, err
}

// failed logs unexpected errors and counts storage failures. Domain errors
// (validation, not found, ...) are expected and only logged at debug level.
func (s *BriefingService) failed(err error, op string, attrs ...any) {
	var appErr *apperror.AppError
	if errors.As(err, &appErr) {
		s.logger.Debug(op+" rejected", append(attrs, slog.String("error", err.Error()))...)
		return
	}
	s.metrics.PersistenceFailed()
	s.logger.Error(op+" failed", append(attrs, slog.String("error", err.Error()))...)
}

func errorMessage(err error) string {
	var appErr *apperror.AppError
	if errors.As(err, &appErr) {
		return appErr.Message
	}
	return "Something went wrong"
}

func hasOptions(t model.FieldType) bool {
	tr, ok := schema.TraitsOf(t)
	return ok && tr.HasOptions
}

// applyFieldInput writes in over field f at index i. The type goes through
// SetFieldType so the options rules hold; explicit options then replace the
// seeded ones for dropdowns.
func applyFieldInput(d *builder.Draft, i int, f model.BriefingField, in FieldInput) error {
	t := in.Type
	if t == "" {
		t = f.Type
	}
	if _, err := schema.ParseFieldType(string(t)); err != nil {
		return err
	}

	f.Label = in.Label
	f.Required = in.Required
	f.Placeholder = in.Placeholder
	f.Tip = in.Tip
	d.UpdateField(i, f)
	d.SetFieldType(i, t)

	if hasOptions(t) && len(in.Options) > 0 {
		f = d.Fields[i]
		f.Options = append([]string(nil), in.Options...)
		d.UpdateField(i, f)
	}
	return nil
}
