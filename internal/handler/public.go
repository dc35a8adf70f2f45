package handler

import (
	"errors"
	"log/slog"
	"net/http"

	"github.com/go-chi/chi/v5"

	"github.com/sakif/briefme/internal/apperror"
	"github.com/sakif/briefme/internal/auth"
	"github.com/sakif/briefme/internal/form"
	"github.com/sakif/briefme/internal/model"
	"github.com/sakif/briefme/internal/service"
	"github.com/sakif/briefme/internal/store"
)

// PublicHandler serves a briefing to whoever holds its share link: the HTML
// form and its JSON twin. No session is needed.
type PublicHandler struct {
	svc    *service.BriefingService
	pages  *Pages
	logger *slog.Logger
}

// NewPublicHandler creates a PublicHandler.
func NewPublicHandler(svc *service.BriefingService, pages *Pages, logger *slog.Logger) *PublicHandler {
	return &PublicHandler{svc: svc, pages: pages, logger: logger}
}

type formPage struct {
	Briefing       model.Briefing
	Controls       []form.Control
	SubmittedBy    string
	SubmitterError string
}

type submittedPage struct {
	Title string
}

// SubmitRequest is the JSON body of a public submission.
type SubmitRequest struct {
	Answers     map[string]string `json:"answers"`
	SubmittedBy string            `json:"submittedBy,omitempty"`
}

// HandleForm renders the empty form behind a share link.
//
// HTTP: GET /briefings/{id}
func (h *PublicHandler) HandleForm(w http.ResponseWriter, r *http.Request) {
	b, err := h.svc.Public(r.Context(), chi.URLParam(r, "id"))
	if err != nil {
		h.pageError(w, r, err)
		return
	}
	h.renderForm(w, r, http.StatusOK, b, nil, "", nil)
}

// HandleSubmit validates a posted form. A rejected post re-renders the form
// with the typed values and one message per offending field; an accepted
// one shows the thank-you page.
//
// HTTP: POST /briefings/{id}
func (h *PublicHandler) HandleSubmit(w http.ResponseWriter, r *http.Request) {
	id := chi.URLParam(r, "id")
	if err := r.ParseForm(); err != nil {
		h.pages.Render(w, http.StatusBadRequest, "not_found", PageData{Title: "Bad request"})
		return
	}

	answers := make(map[string]string, len(r.PostForm))
	for k := range r.PostForm {
		if k != form.SubmitterKey {
			answers[k] = r.PostForm.Get(k)
		}
	}
	submittedBy := r.PostForm.Get(form.SubmitterKey)

	b, err := h.svc.Public(r.Context(), id)
	if err != nil {
		h.pageError(w, r, err)
		return
	}

	_, notice, err := h.svc.Submit(r.Context(), id, service.Submission{
		Answers:     answers,
		SubmittedBy: submittedBy,
		DropEmpty:   true,
	})
	if err != nil {
		var appErr *apperror.AppError
		if form.IsRejection(err) && errors.As(err, &appErr) {
			h.renderForm(w, r, http.StatusBadRequest, b, answers, submittedBy, &rejection{errs: appErr.Fields, notice: notice})
			return
		}
		if errors.Is(err, apperror.ErrNotFound) {
			h.pageError(w, r, err)
			return
		}
		h.renderForm(w, r, http.StatusInternalServerError, b, answers, submittedBy, &rejection{notice: notice})
		return
	}

	h.pages.Render(w, http.StatusOK, "submitted", PageData{
		Title:  b.Title,
		Notice: &notice,
		Data:   submittedPage{Title: b.Title},
	})
}

// HandleAPIGet returns the schema behind a share link, without responses.
//
// HTTP: GET /api/public/briefings/{id}
func (h *PublicHandler) HandleAPIGet(w http.ResponseWriter, r *http.Request) {
	b, err := h.svc.Public(r.Context(), chi.URLParam(r, "id"))
	if err != nil {
		writeError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, b)
}

// HandleAPISubmit is the JSON form of HandleSubmit. Answers are taken as
// sent; keys that are not field ids are dropped.
//
// HTTP: POST /api/public/briefings/{id}/responses
// REQUEST BODY: {"answers": {"field_x": "Acme Rebrand"}, "submittedBy": "x@y.com"}
func (h *PublicHandler) HandleAPISubmit(w http.ResponseWriter, r *http.Request) {
	var req SubmitRequest
	if err := decodeJSON(r, &req); err != nil {
		writeError(w, err)
		return
	}
	resp, notice, err := h.svc.Submit(r.Context(), chi.URLParam(r, "id"), service.Submission{
		Answers:     req.Answers,
		SubmittedBy: req.SubmittedBy,
	})
	if err != nil {
		writeErrorNotice(w, err, notice)
		return
	}
	writeJSON(w, http.StatusCreated, struct {
		Response model.BriefingResponse `json:"response"`
		Notice   store.Notice           `json:"notice"`
	}{resp, notice})
}

type rejection struct {
	errs   map[string]string
	notice store.Notice
}

func (h *PublicHandler) renderForm(w http.ResponseWriter, r *http.Request, status int, b model.Briefing, answers map[string]string, submittedBy string, rej *rejection) {
	data := PageData{Title: b.Title}
	if id, ok := auth.UserIDFromContext(r.Context()); ok {
		data.UserID = id
	}
	page := formPage{Briefing: b, SubmittedBy: submittedBy}
	var errs form.Errors
	if rej != nil {
		errs = rej.errs
		page.SubmitterError = rej.errs[form.SubmitterKey]
		if rej.notice.Message != "" {
			data.Notice = &rej.notice
		}
	}
	page.Controls = form.Controls(b.Fields, answers, errs)
	data.Data = page
	h.pages.Render(w, status, "briefing_form", data)
}

// pageError shows the not-found page for unknown links and a generic error
// otherwise.
func (h *PublicHandler) pageError(w http.ResponseWriter, r *http.Request, err error) {
	if errors.Is(err, apperror.ErrNotFound) {
		h.pages.Render(w, http.StatusNotFound, "not_found", PageData{
			Title:  "Not found",
			Notice: &store.Notice{Kind: store.NoticeError, Message: store.MsgBriefingNotFound},
		})
		return
	}
	h.logger.Error("public briefing failed", slog.String("path", r.URL.Path), slog.String("error", err.Error()))
	http.Error(w, "Internal Server Error", http.StatusInternalServerError)
}
