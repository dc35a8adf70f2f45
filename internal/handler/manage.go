package handler

import (
	"errors"
	"fmt"
	"log/slog"
	"net/http"
	"strconv"
	"strings"

	"github.com/go-chi/chi/v5"

	"github.com/sakif/briefme/internal/apperror"
	"github.com/sakif/briefme/internal/builder"
	"github.com/sakif/briefme/internal/form"
	"github.com/sakif/briefme/internal/model"
	"github.com/sakif/briefme/internal/schema"
	"github.com/sakif/briefme/internal/store"
)

// maxBuilderFields bounds the "count" a builder form may claim.
const maxBuilderFields = 100

// Builder form actions. Index-carrying actions are written "remove:2".
const (
	actionSave    = "save"
	actionAdd     = "add"
	actionRemove  = "remove"
	actionUp      = "up"
	actionDown    = "down"
	actionRefresh = "refresh"
)

type typeOption struct {
	Value string
	Label string
}

type builderRow struct {
	Index       int
	Field       model.BriefingField
	Type        string
	HasOptions  bool
	OptionsText string
	First       bool
	Last        bool
}

type builderPage struct {
	Heading     string
	Action      string
	SubmitLabel string
	Title       string
	Description string
	Count       int
	Rows        []builderRow
	Types       []typeOption
}

type fieldView struct {
	Label       string
	TypeLabel   string
	Required    bool
	Placeholder string
	Tip         string
	Options     []string
}

type responseRow struct {
	ID          string
	SubmittedBy string
	SubmittedAt string
}

type briefingPage struct {
	Briefing  model.Briefing
	Link      string
	Fields    []fieldView
	Responses []responseRow
}

type responsePage struct {
	Summary form.Summary
}

// HandleCreatePage renders the builder with the starter draft.
//
// HTTP: GET /create-briefing
func (h *DashboardHandler) HandleCreatePage(w http.ResponseWriter, r *http.Request) {
	userID, ok := owner(w, r)
	if !ok {
		return
	}
	h.renderBuilder(w, r, http.StatusOK, userID, "/create-briefing", builder.NewDraft(), nil)
}

// HandleCreateSubmit applies a builder action, or saves the new briefing.
//
// HTTP: POST /create-briefing
func (h *DashboardHandler) HandleCreateSubmit(w http.ResponseWriter, r *http.Request) {
	userID, ok := owner(w, r)
	if !ok {
		return
	}
	d, save, err := parseBuilderForm(r)
	if err != nil {
		h.renderBuilder(w, r, http.StatusBadRequest, userID, "/create-briefing", d, noticeOf(err))
		return
	}
	if !save {
		h.renderBuilder(w, r, http.StatusOK, userID, "/create-briefing", d, nil)
		return
	}

	b, notice, err := h.svc.Create(r.Context(), userID, d)
	if err != nil {
		status, _ := statusOf(err)
		h.renderBuilder(w, r, status, userID, "/create-briefing", d, &notice)
		return
	}
	SetFlash(w, notice)
	http.Redirect(w, r, "/view-briefing/"+b.ID, http.StatusSeeOther)
}

// HandleEditPage renders the builder over a saved briefing.
//
// HTTP: GET /edit-briefing/{id}
func (h *DashboardHandler) HandleEditPage(w http.ResponseWriter, r *http.Request) {
	userID, ok := owner(w, r)
	if !ok {
		return
	}
	id := chi.URLParam(r, "id")
	b, err := h.svc.Get(r.Context(), userID, id)
	if err != nil {
		h.redirectMissing(w, r, err, "/dashboard", store.MsgBriefingNotFound)
		return
	}
	h.renderBuilder(w, r, http.StatusOK, userID, "/edit-briefing/"+id, builder.FromBriefing(b), TakeFlash(w, r))
}

// HandleEditSubmit applies a builder action, or saves the briefing.
//
// HTTP: POST /edit-briefing/{id}
func (h *DashboardHandler) HandleEditSubmit(w http.ResponseWriter, r *http.Request) {
	userID, ok := owner(w, r)
	if !ok {
		return
	}
	id := chi.URLParam(r, "id")
	action := "/edit-briefing/" + id

	d, save, err := parseBuilderForm(r)
	if err != nil {
		h.renderBuilder(w, r, http.StatusBadRequest, userID, action, d, noticeOf(err))
		return
	}
	if !save {
		h.renderBuilder(w, r, http.StatusOK, userID, action, d, nil)
		return
	}

	_, notice, err := h.svc.Update(r.Context(), userID, id, d)
	if err != nil {
		if errors.Is(err, apperror.ErrNotFound) {
			h.redirectMissing(w, r, err, "/dashboard", store.MsgBriefingNotFound)
			return
		}
		status, _ := statusOf(err)
		h.renderBuilder(w, r, status, userID, action, d, &notice)
		return
	}
	SetFlash(w, notice)
	http.Redirect(w, r, "/view-briefing/"+id, http.StatusSeeOther)
}

// HandleView renders a briefing's details, share link and responses.
//
// HTTP: GET /view-briefing/{id}
func (h *DashboardHandler) HandleView(w http.ResponseWriter, r *http.Request) {
	userID, ok := owner(w, r)
	if !ok {
		return
	}
	b, err := h.svc.Get(r.Context(), userID, chi.URLParam(r, "id"))
	if err != nil {
		h.redirectMissing(w, r, err, "/dashboard", store.MsgBriefingNotFound)
		return
	}

	page := briefingPage{Briefing: b, Link: h.svc.ShareLink(b.ID)}
	for _, f := range b.Fields {
		tr, _ := schema.TraitsOf(f.Type)
		page.Fields = append(page.Fields, fieldView{
			Label:       f.Label,
			TypeLabel:   tr.Label,
			Required:    f.Required,
			Placeholder: f.Placeholder,
			Tip:         f.Tip,
			Options:     f.Options,
		})
	}
	for _, resp := range b.Responses {
		s := form.Summarize(b, resp)
		page.Responses = append(page.Responses, responseRow{ID: resp.ID, SubmittedBy: s.SubmittedBy, SubmittedAt: s.SubmittedAt})
	}

	h.pages.Render(w, http.StatusOK, "view_briefing", PageData{
		Title:  b.Title,
		UserID: userID,
		Notice: TakeFlash(w, r),
		Data:   page,
	})
}

// HandleResponse renders one response read-only. A missing briefing goes
// back to the dashboard, a missing response to the briefing.
//
// HTTP: GET /response/{briefingId}/{responseId}
func (h *DashboardHandler) HandleResponse(w http.ResponseWriter, r *http.Request) {
	userID, ok := owner(w, r)
	if !ok {
		return
	}
	briefingID := chi.URLParam(r, "briefingId")
	if _, err := h.svc.Get(r.Context(), userID, briefingID); err != nil {
		h.redirectMissing(w, r, err, "/dashboard", store.MsgBriefingNotFound)
		return
	}
	_, summary, err := h.svc.Response(r.Context(), userID, briefingID, chi.URLParam(r, "responseId"))
	if err != nil {
		h.redirectMissing(w, r, err, "/view-briefing/"+briefingID, store.MsgResponseNotFound)
		return
	}

	h.pages.Render(w, http.StatusOK, "response", PageData{
		Title:  summary.Title,
		UserID: userID,
		Notice: TakeFlash(w, r),
		Data:   responsePage{Summary: summary},
	})
}

// HandleDelete deletes a briefing from the dashboard.
//
// HTTP: POST /delete-briefing/{id}
func (h *DashboardHandler) HandleDelete(w http.ResponseWriter, r *http.Request) {
	userID, ok := owner(w, r)
	if !ok {
		return
	}
	notice, err := h.svc.Delete(r.Context(), userID, chi.URLParam(r, "id"))
	if err != nil && !errors.As(err, new(*apperror.AppError)) {
		h.logger.Error("deleting briefing failed", slog.String("error", err.Error()))
	}
	SetFlash(w, notice)
	http.Redirect(w, r, "/dashboard", http.StatusSeeOther)
}

// redirectMissing sends a not-found error to target with msg as the notice.
// Any other error is a 500.
func (h *DashboardHandler) redirectMissing(w http.ResponseWriter, r *http.Request, err error, target, msg string) {
	if !errors.Is(err, apperror.ErrNotFound) {
		h.logger.Error("owner page failed", slog.String("path", r.URL.Path), slog.String("error", err.Error()))
		http.Error(w, "Internal Server Error", http.StatusInternalServerError)
		return
	}
	SetFlash(w, store.Notice{Kind: store.NoticeError, Message: msg})
	http.Redirect(w, r, target, http.StatusSeeOther)
}

func (h *DashboardHandler) renderBuilder(w http.ResponseWriter, r *http.Request, status int, userID, action string, d builder.Draft, notice *store.Notice) {
	page := builderPage{
		Heading:     "Create a briefing",
		Action:      action,
		SubmitLabel: "Save briefing",
		Title:       d.Title,
		Description: d.Description,
		Count:       len(d.Fields),
	}
	if action != "/create-briefing" {
		page.Heading = "Edit briefing"
		page.SubmitLabel = "Save changes"
	}
	for _, t := range schema.Types() {
		tr, _ := schema.TraitsOf(t)
		page.Types = append(page.Types, typeOption{Value: string(t), Label: tr.Label})
	}
	for i, f := range d.Fields {
		tr, _ := schema.TraitsOf(f.Type)
		page.Rows = append(page.Rows, builderRow{
			Index:       i,
			Field:       f,
			Type:        string(f.Type),
			HasOptions:  tr.HasOptions,
			OptionsText: strings.Join(f.Options, "\n"),
			First:       i == 0,
			Last:        i == len(d.Fields)-1,
		})
	}
	h.pages.Render(w, status, "builder", PageData{
		Title:  page.Heading,
		UserID: userID,
		Notice: notice,
		Data:   page,
	})
}

// parseBuilderForm rebuilds the draft from a builder post and applies its
// action. save reports whether the action asks for the draft to be saved.
func parseBuilderForm(r *http.Request) (d builder.Draft, save bool, err error) {
	if err := r.ParseForm(); err != nil {
		return d, false, apperror.ValidationFailed("body", "Invalid form")
	}
	d.Title = r.PostForm.Get("title")
	d.Description = r.PostForm.Get("description")

	count, _ := strconv.Atoi(r.PostForm.Get("count"))
	if count < 0 || count > maxBuilderFields {
		return d, false, apperror.ValidationFailed("count", fmt.Sprintf("a briefing can have at most %d fields", maxBuilderFields))
	}
	for i := 0; i < count; i++ {
		key := func(name string) string { return fmt.Sprintf("field.%d.%s", i, name) }
		t, err := schema.ParseFieldType(r.PostForm.Get(key("type")))
		if err != nil {
			return d, false, err
		}
		f := model.BriefingField{
			ID:          r.PostForm.Get(key("id")),
			Label:       r.PostForm.Get(key("label")),
			Type:        t,
			Required:    r.PostForm.Get(key("required")) != "",
			Placeholder: r.PostForm.Get(key("placeholder")),
			Tip:         r.PostForm.Get(key("tip")),
		}
		if tr, _ := schema.TraitsOf(t); tr.HasOptions {
			f.Options = splitOptions(r.PostForm.Get(key("options")))
		}
		d.Fields = append(d.Fields, f)
	}
	// Ids for new rows, option rules for rows whose type just changed.
	d.Normalize()

	name, arg, _ := strings.Cut(r.PostForm.Get("action"), ":")
	i, _ := strconv.Atoi(arg)
	switch name {
	case actionSave:
		return d, true, nil
	case actionAdd:
		d.AddField()
	case actionRemove:
		d.RemoveField(i)
	case actionUp:
		d.MoveField(i, i-1)
	case actionDown:
		d.MoveField(i, i+1)
	case actionRefresh, "":
	default:
		return d, false, apperror.ValidationFailed("action", fmt.Sprintf("unknown action %q", name))
	}
	return d, false, nil
}

// splitOptions reads one option per line, ignoring blank lines.
func splitOptions(s string) []string {
	var out []string
	for _, line := range strings.Split(s, "\n") {
		if v := strings.TrimSpace(line); v != "" {
			out = append(out, v)
		}
	}
	return out
}

func noticeOf(err error) *store.Notice {
	return &store.Notice{Kind: store.NoticeError, Message: errorText(err)}
}

func errorText(err error) string {
	var appErr *apperror.AppError
	if errors.As(err, &appErr) {
		return appErr.Message
	}
	return "Something went wrong"
}
