package handler

import (
	"log/slog"
	"net/http"
	"strconv"

	"github.com/go-chi/chi/v5"

	"github.com/sakif/briefme/internal/apperror"
	"github.com/sakif/briefme/internal/auth"
	"github.com/sakif/briefme/internal/builder"
	"github.com/sakif/briefme/internal/form"
	"github.com/sakif/briefme/internal/model"
	"github.com/sakif/briefme/internal/service"
	"github.com/sakif/briefme/internal/store"
)

// BriefingHandler serves the owner's briefing API: CRUD, the builder's field
// edits, share links and responses. Every route sits behind auth.RequireAuth,
// so the owner is always the signed-in user.
type BriefingHandler struct {
	svc    *service.BriefingService
	logger *slog.Logger
}

// NewBriefingHandler creates a BriefingHandler.
func NewBriefingHandler(svc *service.BriefingService, logger *slog.Logger) *BriefingHandler {
	return &BriefingHandler{svc: svc, logger: logger}
}

// MutationResponse is returned by every endpoint that changes a briefing.
type MutationResponse struct {
	Briefing *model.Briefing `json:"briefing,omitempty"`
	Link     string          `json:"link,omitempty"`
	Notice   store.Notice    `json:"notice"`
}

// ResponseDetail is one response with its read-only summary.
type ResponseDetail struct {
	Response model.BriefingResponse `json:"response"`
	Summary  form.Summary           `json:"summary"`
}

type moveRequest struct {
	To *int `json:"to"`
}

type optionRequest struct {
	Value string `json:"value"`
}

// owner returns the signed-in user id, or writes a 401.
func owner(w http.ResponseWriter, r *http.Request) (string, bool) {
	id, ok := auth.UserIDFromContext(r.Context())
	if !ok {
		writeError(w, store.ErrNoOwner)
		return "", false
	}
	return id, true
}

// HandleList returns the owner's briefings in stored order.
//
// HTTP: GET /api/briefings
func (h *BriefingHandler) HandleList(w http.ResponseWriter, r *http.Request) {
	userID, ok := owner(w, r)
	if !ok {
		return
	}
	briefings, err := h.svc.List(r.Context(), userID)
	if err != nil {
		h.logger.Error("listing briefings failed", slog.String("error", err.Error()))
		writeError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, briefings)
}

// HandleCreate saves a new briefing.
//
// HTTP: POST /api/briefings
// REQUEST BODY: {"title": "Logo Design", "description": "...", "fields": [...]}
func (h *BriefingHandler) HandleCreate(w http.ResponseWriter, r *http.Request) {
	userID, ok := owner(w, r)
	if !ok {
		return
	}
	var d builder.Draft
	if err := decodeJSON(r, &d); err != nil {
		writeError(w, err)
		return
	}

	b, notice, err := h.svc.Create(r.Context(), userID, d)
	if err != nil {
		writeErrorNotice(w, err, notice)
		return
	}
	writeJSON(w, http.StatusCreated, MutationResponse{Briefing: &b, Link: h.svc.ShareLink(b.ID), Notice: notice})
}

// HandleGet returns one briefing with its responses.
//
// HTTP: GET /api/briefings/{id}
func (h *BriefingHandler) HandleGet(w http.ResponseWriter, r *http.Request) {
	userID, ok := owner(w, r)
	if !ok {
		return
	}
	b, err := h.svc.Get(r.Context(), userID, chi.URLParam(r, "id"))
	if err != nil {
		writeError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, b)
}

// HandleUpdate replaces a briefing's title, description and fields.
//
// HTTP: PUT /api/briefings/{id}
func (h *BriefingHandler) HandleUpdate(w http.ResponseWriter, r *http.Request) {
	userID, ok := owner(w, r)
	if !ok {
		return
	}
	var d builder.Draft
	if err := decodeJSON(r, &d); err != nil {
		writeError(w, err)
		return
	}
	h.respond(w, http.StatusOK)(h.svc.Update(r.Context(), userID, chi.URLParam(r, "id"), d))
}

// HandleDelete removes a briefing and its responses.
//
// HTTP: DELETE /api/briefings/{id}
func (h *BriefingHandler) HandleDelete(w http.ResponseWriter, r *http.Request) {
	userID, ok := owner(w, r)
	if !ok {
		return
	}
	notice, err := h.svc.Delete(r.Context(), userID, chi.URLParam(r, "id"))
	if err != nil {
		writeErrorNotice(w, err, notice)
		return
	}
	writeJSON(w, http.StatusOK, MutationResponse{Notice: notice})
}

// HandleLink returns the public share link.
//
// HTTP: GET /api/briefings/{id}/link
func (h *BriefingHandler) HandleLink(w http.ResponseWriter, r *http.Request) {
	userID, ok := owner(w, r)
	if !ok {
		return
	}
	link, err := h.svc.Link(r.Context(), userID, chi.URLParam(r, "id"))
	if err != nil {
		writeError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, map[string]string{"url": link})
}

// HandleAddField appends a field.
//
// HTTP: POST /api/briefings/{id}/fields
// REQUEST BODY: {"label": "Deadline", "type": "date", "required": true}
func (h *BriefingHandler) HandleAddField(w http.ResponseWriter, r *http.Request) {
	userID, ok := owner(w, r)
	if !ok {
		return
	}
	var in service.FieldInput
	if err := decodeJSON(r, &in); err != nil {
		writeError(w, err)
		return
	}
	h.respond(w, http.StatusCreated)(h.svc.AddField(r.Context(), userID, chi.URLParam(r, "id"), in))
}

// HandleUpdateField replaces a field's properties.
//
// HTTP: PUT /api/briefings/{id}/fields/{fieldId}
func (h *BriefingHandler) HandleUpdateField(w http.ResponseWriter, r *http.Request) {
	userID, ok := owner(w, r)
	if !ok {
		return
	}
	var in service.FieldInput
	if err := decodeJSON(r, &in); err != nil {
		writeError(w, err)
		return
	}
	h.respond(w, http.StatusOK)(h.svc.UpdateField(r.Context(), userID, chi.URLParam(r, "id"), chi.URLParam(r, "fieldId"), in))
}

// HandleRemoveField deletes a field.
//
// HTTP: DELETE /api/briefings/{id}/fields/{fieldId}
func (h *BriefingHandler) HandleRemoveField(w http.ResponseWriter, r *http.Request) {
	userID, ok := owner(w, r)
	if !ok {
		return
	}
	h.respond(w, http.StatusOK)(h.svc.RemoveField(r.Context(), userID, chi.URLParam(r, "id"), chi.URLParam(r, "fieldId")))
}

// HandleMoveField moves a field to a new position.
//
// HTTP: POST /api/briefings/{id}/fields/{fieldId}/move
// REQUEST BODY: {"to": 0}
func (h *BriefingHandler) HandleMoveField(w http.ResponseWriter, r *http.Request) {
	userID, ok := owner(w, r)
	if !ok {
		return
	}
	var req moveRequest
	if err := decodeJSON(r, &req); err != nil {
		writeError(w, err)
		return
	}
	if req.To == nil {
		writeError(w, apperror.ValidationFailed("to", "target position is required"))
		return
	}
	h.respond(w, http.StatusOK)(h.svc.MoveField(r.Context(), userID, chi.URLParam(r, "id"), chi.URLParam(r, "fieldId"), *req.To))
}

// HandleAddOption appends an option to a dropdown field.
//
// HTTP: POST /api/briefings/{id}/fields/{fieldId}/options
// REQUEST BODY: {"value": "Modern"}
func (h *BriefingHandler) HandleAddOption(w http.ResponseWriter, r *http.Request) {
	userID, ok := owner(w, r)
	if !ok {
		return
	}
	var req optionRequest
	if err := decodeJSON(r, &req); err != nil {
		writeError(w, err)
		return
	}
	h.respond(w, http.StatusCreated)(h.svc.AddOption(r.Context(), userID, chi.URLParam(r, "id"), chi.URLParam(r, "fieldId"), req.Value))
}

// HandleRemoveOption deletes one option of a dropdown field.
//
// HTTP: DELETE /api/briefings/{id}/fields/{fieldId}/options/{index}
func (h *BriefingHandler) HandleRemoveOption(w http.ResponseWriter, r *http.Request) {
	userID, ok := owner(w, r)
	if !ok {
		return
	}
	index, err := strconv.Atoi(chi.URLParam(r, "index"))
	if err != nil {
		writeError(w, apperror.ValidationFailed("index", "option index must be a number"))
		return
	}
	h.respond(w, http.StatusOK)(h.svc.RemoveOption(r.Context(), userID, chi.URLParam(r, "id"), chi.URLParam(r, "fieldId"), index))
}

// HandleResponses lists a briefing's responses, oldest first.
//
// HTTP: GET /api/briefings/{id}/responses
func (h *BriefingHandler) HandleResponses(w http.ResponseWriter, r *http.Request) {
	userID, ok := owner(w, r)
	if !ok {
		return
	}
	responses, err := h.svc.Responses(r.Context(), userID, chi.URLParam(r, "id"))
	if err != nil {
		writeError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, responses)
}

// HandleResponse returns one response and its summary.
//
// HTTP: GET /api/briefings/{id}/responses/{responseId}
func (h *BriefingHandler) HandleResponse(w http.ResponseWriter, r *http.Request) {
	userID, ok := owner(w, r)
	if !ok {
		return
	}
	resp, summary, err := h.svc.Response(r.Context(), userID, chi.URLParam(r, "id"), chi.URLParam(r, "responseId"))
	if err != nil {
		writeError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, ResponseDetail{Response: resp, Summary: summary})
}

// respond adapts a (briefing, notice, error) service result into a response
// writer call, so the edit endpoints stay one line each.
func (h *BriefingHandler) respond(w http.ResponseWriter, status int) func(model.Briefing, store.Notice, error) {
	return func(b model.Briefing, notice store.Notice, err error) {
		if err != nil {
			writeErrorNotice(w, err, notice)
			return
		}
		writeJSON(w, status, MutationResponse{Briefing: &b, Notice: notice})
	}
}
