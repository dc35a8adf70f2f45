// Package store holds one owner's briefing collection in memory and keeps
// it in step with persistence.
//
// Every mutation builds the next collection, saves it whole through the
// repository and only then makes it current. A failed save leaves the
// in-memory collection exactly as it was last persisted. Each mutation emits
// a Notice describing its outcome.
package store

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/rs/xid"

	"github.com/sakif/briefme/internal/apperror"
	"github.com/sakif/briefme/internal/builder"
	"github.com/sakif/briefme/internal/model"
	"github.com/sakif/briefme/internal/repository"
)

// ErrNoOwner is returned by mutations on a store that has been cleared.
var ErrNoOwner = apperror.Unauthorized("no user is signed in")

// Store is the briefing collection of a single owner. It is not safe for
// concurrent use; Manager serializes access per owner.
type Store struct {
	repo      repository.CollectionRepository
	notifier  Notifier
	owner     string
	briefings []model.Briefing
	now       func() time.Time
}

// Open binds a store to owner and loads the owner's collection.
func Open(ctx context.Context, repo repository.CollectionRepository, owner string, notifier Notifier) (*Store, error) {
	if notifier == nil {
		notifier = NotifierFunc(func(Notice) {})
	}
	s := &Store{
		repo:     repo,
		notifier: notifier,
		now:      func() time.Time { return time.Now().UTC() },
	}
	if err := s.Switch(ctx, owner); err != nil {
		return nil, err
	}
	return s, nil
}

// Switch discards the current collection and loads owner's. Nothing is
// carried over from the previous owner.
func (s *Store) Switch(ctx context.Context, owner string) error {
	if owner == "" {
		return ErrNoOwner
	}
	briefings, err := s.repo.LoadCollection(ctx, owner)
	if err != nil {
		return fmt.Errorf("store: loading collection for %s: %w", owner, err)
	}
	s.owner = owner
	s.briefings = briefings
	return nil
}

// Clear empties the store and unbinds its owner.
func (s *Store) Clear() {
	s.owner = ""
	s.briefings = nil
}

// Owner returns the bound owner id, or "" after Clear.
func (s *Store) Owner() string { return s.owner }

// Briefings returns a copy of the collection in stored order.
func (s *Store) Briefings() []model.Briefing {
	out := make([]model.Briefing, len(s.briefings))
	for i, b := range s.briefings {
		out[i] = b.Clone()
	}
	return out
}

// GetBriefing finds a briefing by id.
func (s *Store) GetBriefing(id string) (model.Briefing, bool) {
	i := s.indexOf(id)
	if i < 0 {
		return model.Briefing{}, false
	}
	return s.briefings[i].Clone(), true
}

// GetResponse finds one response of one briefing.
func (s *Store) GetResponse(briefingID, responseID string) (model.BriefingResponse, bool) {
	b, ok := s.GetBriefing(briefingID)
	if !ok {
		return model.BriefingResponse{}, false
	}
	return b.Response(responseID)
}

// Create validates the draft and appends a new briefing owned by the store's
// owner.
func (s *Store) Create(ctx context.Context, d builder.Draft) (model.Briefing, error) {
	if s.owner == "" {
		return model.Briefing{}, ErrNoOwner
	}
	d.Fields = cloneFields(d.Fields)
	d.Normalize()
	if err := d.Validate(); err != nil {
		s.fail(err, MsgCreateFailed)
		return model.Briefing{}, err
	}

	b := model.Briefing{
		ID:          xid.New().String(),
		Title:       d.Title,
		Description: d.Description,
		Fields:      d.Fields,
		CreatedAt:   s.now(),
		CreatedBy:   s.owner,
		Responses:   []model.BriefingResponse{},
	}

	next := append(s.Briefings(), b)
	if err := s.commit(ctx, next); err != nil {
		s.fail(err, MsgCreateFailed)
		return model.Briefing{}, err
	}
	s.notify(NoticeSuccess, MsgCreated)
	return b.Clone(), nil
}

// Update replaces a briefing's title, description and fields. Responses and
// creation data are kept.
func (s *Store) Update(ctx context.Context, id string, d builder.Draft) (model.Briefing, error) {
	if s.owner == "" {
		return model.Briefing{}, ErrNoOwner
	}
	i := s.indexOf(id)
	if i < 0 {
		err := apperror.NotFound("briefing", id)
		s.fail(err, MsgBriefingNotFound)
		return model.Briefing{}, err
	}
	d.Fields = cloneFields(d.Fields)
	d.Normalize()
	if err := d.Validate(); err != nil {
		s.fail(err, MsgUpdateFailed)
		return model.Briefing{}, err
	}

	next := s.Briefings()
	now := s.now()
	b := next[i]
	b.Title = d.Title
	b.Description = d.Description
	b.Fields = d.Fields
	b.UpdatedAt = &now
	next[i] = b

	if err := s.commit(ctx, next); err != nil {
		s.fail(err, MsgUpdateFailed)
		return model.Briefing{}, err
	}
	s.notify(NoticeSuccess, MsgUpdated)
	return b.Clone(), nil
}

// Delete removes a briefing and its responses. Removing the last briefing
// saves an empty collection.
func (s *Store) Delete(ctx context.Context, id string) error {
	if s.owner == "" {
		return ErrNoOwner
	}
	i := s.indexOf(id)
	if i < 0 {
		err := apperror.NotFound("briefing", id)
		s.fail(err, MsgBriefingNotFound)
		return err
	}

	current := s.Briefings()
	next := append(current[:i:i], current[i+1:]...)
	if err := s.commit(ctx, next); err != nil {
		s.fail(err, MsgDeleteFailed)
		return err
	}
	s.notify(NoticeSuccess, MsgDeleted)
	return nil
}

// SubmitResponse appends a response to a briefing. Answers are stored as
// given; callers validate them against the briefing first.
func (s *Store) SubmitResponse(ctx context.Context, briefingID string, answers map[string]string, submittedBy string) (model.BriefingResponse, error) {
	if s.owner == "" {
		return model.BriefingResponse{}, ErrNoOwner
	}
	i := s.indexOf(briefingID)
	if i < 0 {
		err := apperror.NotFound("briefing", briefingID)
		s.fail(err, MsgBriefingNotFound)
		return model.BriefingResponse{}, err
	}

	copied := make(map[string]string, len(answers))
	for k, v := range answers {
		copied[k] = v
	}
	r := model.BriefingResponse{
		ID:          xid.New().String(),
		BriefingID:  briefingID,
		Answers:     copied,
		SubmittedBy: submittedBy,
		SubmittedAt: s.now(),
	}

	next := s.Briefings()
	next[i].Responses = append(next[i].Responses, r)
	if err := s.commit(ctx, next); err != nil {
		s.fail(err, MsgSubmitFailed)
		return model.BriefingResponse{}, err
	}
	s.notify(NoticeSuccess, MsgResponseSent)
	resp, _ := s.GetResponse(briefingID, r.ID)
	return resp, nil
}

func cloneFields(fields []model.BriefingField) []model.BriefingField {
	out := make([]model.BriefingField, len(fields))
	for i, f := range fields {
		out[i] = f.Clone()
	}
	return out
}

// commit persists next as the whole collection and makes it current.
func (s *Store) commit(ctx context.Context, next []model.Briefing) error {
	if err := s.repo.SaveCollection(ctx, s.owner, next); err != nil {
		return fmt.Errorf("store: saving collection for %s: %w", s.owner, err)
	}
	s.briefings = next
	return nil
}

func (s *Store) indexOf(id string) int {
	for i, b := range s.briefings {
		if b.ID == id {
			return i
		}
	}
	return -1
}

// fail emits an error notice. Validation failures carry their own message;
// anything else gets the operation's message.
func (s *Store) fail(err error, fallback string) {
	msg := fallback
	var appErr *apperror.AppError
	if errors.Is(err, apperror.ErrValidation) && errors.As(err, &appErr) {
		msg = appErr.Message
	}
	s.notify(NoticeError, msg)
}

func (s *Store) notify(kind NoticeKind, msg string) {
	s.notifier.Notify(Notice{Kind: kind, Message: msg})
}
