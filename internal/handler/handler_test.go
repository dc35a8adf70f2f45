package handler

import (
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"net/http/httptest"
	"net/url"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/sakif/briefme/internal/apperror"
	"github.com/sakif/briefme/internal/form"
	"github.com/sakif/briefme/internal/model"
	"github.com/sakif/briefme/internal/store"
)

func TestWriteError_StatusMapping(t *testing.T) {
	tests := []struct {
		name       string
		err        error
		wantStatus int
		wantType   string
	}{
		{"validation", apperror.ValidationFailed("title", "briefing title is required"), http.StatusBadRequest, "validation_error"},
		{"not found", apperror.NotFound("briefing", "b1"), http.StatusNotFound, "not_found"},
		{"unauthorized", apperror.Unauthorized("Invalid password"), http.StatusUnauthorized, "unauthorized"},
		{"forbidden", apperror.Forbidden("no"), http.StatusForbidden, "forbidden"},
		{"conflict", apperror.Conflict("response", "r1"), http.StatusConflict, "conflict"},
		{"wrapped", fmt.Errorf("store: resolving owner of b1: %w", apperror.NotFound("briefing", "b1")), http.StatusNotFound, "not_found"},
		{"internal", errors.New("disk I/O error at /var/lib/x.db"), http.StatusInternalServerError, "internal_error"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			rec := httptest.NewRecorder()
			writeError(rec, tt.err)

			assert.Equal(t, tt.wantStatus, rec.Code)
			var body ErrorResponse
			require.NoError(t, json.NewDecoder(rec.Body).Decode(&body))
			assert.Equal(t, tt.wantType, body.Error)
			assert.NotContains(t, body.Message, "/var/lib", "internal details must not leak")
		})
	}
}

func TestWriteErrorNotice_CarriesFieldsAndNotice(t *testing.T) {
	rec := httptest.NewRecorder()
	err := apperror.InvalidFields("please fix the highlighted fields", map[string]string{"f1": "This field is required"})
	writeErrorNotice(rec, err, store.Notice{Kind: store.NoticeError, Message: "please fix the highlighted fields"})

	var body ErrorResponse
	require.NoError(t, json.NewDecoder(rec.Body).Decode(&body))
	assert.Equal(t, map[string]string{"f1": "This field is required"}, body.Fields)
	require.NotNil(t, body.Notice)
	assert.Equal(t, store.NoticeError, body.Notice.Kind)
}

func TestDecodeJSON_MalformedBody(t *testing.T) {
	r := httptest.NewRequest(http.MethodPost, "/api/briefings", strings.NewReader("{not json"))
	var v map[string]any
	err := decodeJSON(r, &v)
	assert.ErrorIs(t, err, apperror.ErrValidation)
}

func TestFlash_RoundTrip(t *testing.T) {
	rec := httptest.NewRecorder()
	SetFlash(rec, store.Notice{Kind: store.NoticeSuccess, Message: "Logged in successfully!"})

	req := httptest.NewRequest(http.MethodGet, "/dashboard", nil)
	for _, c := range rec.Result().Cookies() {
		req.AddCookie(c)
	}

	rec = httptest.NewRecorder()
	n := TakeFlash(rec, req)
	require.NotNil(t, n)
	assert.Equal(t, store.Notice{Kind: store.NoticeSuccess, Message: "Logged in successfully!"}, *n)

	cleared := rec.Result().Cookies()
	require.Len(t, cleared, 1)
	assert.Equal(t, -1, cleared[0].MaxAge)
}

func TestFlash_IgnoresForgedKinds(t *testing.T) {
	req := httptest.NewRequest(http.MethodGet, "/", nil)
	req.AddCookie(&http.Cookie{Name: flashCookie, Value: "evil%7Chello"})
	assert.Nil(t, TakeFlash(httptest.NewRecorder(), req))
}

func TestPages_RenderEveryTemplate(t *testing.T) {
	pages, err := NewPages(slog.New(slog.NewTextHandler(io.Discard, nil)))
	require.NoError(t, err)

	data := map[string]any{
		"login":         credentialsPage{From: "/dashboard"},
		"signup":        credentialsPage{Errors: map[string]string{"name": "Name is required"}},
		"dashboard":     dashboardPage{Items: []dashboardItem{{Title: "Logo Design", Link: "http://x/briefings/1"}}},
		"briefing_form": formPage{},
		"submitted":     submittedPage{Title: "Logo Design"},
		"not_found":     nil,
		"builder": builderPage{
			Heading: "Create a briefing",
			Count:   1,
			Rows:    []builderRow{{Field: model.BriefingField{ID: "f1", Label: "Style"}, Type: "dropdown", HasOptions: true, First: true, Last: true}},
			Types:   []typeOption{{Value: "text", Label: "Short text"}, {Value: "dropdown", Label: "Dropdown"}},
		},
		"view_briefing": briefingPage{
			Briefing:  model.Briefing{ID: "b1", Title: "Logo Design"},
			Fields:    []fieldView{{Label: "Style", TypeLabel: "Dropdown", Options: []string{"Flat", "3D"}}},
			Responses: []responseRow{{ID: "r1", SubmittedBy: "Anonymous"}},
		},
		"response": responsePage{Summary: form.Summary{BriefingID: "b1", Title: "Logo Design", Entries: []form.SummaryEntry{{Label: "Brief", Answer: "-", Multiline: true}}}},
	}
	for _, name := range pageNames {
		t.Run(name, func(t *testing.T) {
			rec := httptest.NewRecorder()
			pages.Render(rec, http.StatusOK, name, PageData{Title: name, Data: data[name]})
			assert.Equal(t, http.StatusOK, rec.Code, rec.Body.String())
			assert.Contains(t, rec.Body.String(), "<title>"+name+" · BriefMe</title>")
		})
	}
}

func TestHandleAPINotFound(t *testing.T) {
	rec := httptest.NewRecorder()
	HandleAPINotFound(rec, httptest.NewRequest(http.MethodGet, "/api/nope", nil))
	assert.Equal(t, http.StatusNotFound, rec.Code)
	assert.Contains(t, rec.Body.String(), "GET /api/nope")
}

// =========================================================================
// BUILDER FORM
// =========================================================================

func builderPost(t *testing.T, action string, extra url.Values) *http.Request {
	t.Helper()
	v := url.Values{
		"title":            {"Logo Design"},
		"count":            {"2"},
		"field.0.id":       {"f1"},
		"field.0.label":    {"Project Name"},
		"field.0.type":     {"text"},
		"field.0.required": {"on"},
		"field.1.id":       {"f2"},
		"field.1.label":    {"Style"},
		"field.1.type":     {"dropdown"},
		"field.1.options":  {"Flat\r\n\r\n  3D \n"},
		"action":           {action},
	}
	for k, vals := range extra {
		v[k] = vals
	}
	r := httptest.NewRequest(http.MethodPost, "/create-briefing", strings.NewReader(v.Encode()))
	r.Header.Set("Content-Type", "application/x-www-form-urlencoded")
	return r
}

func fieldIDs(fields []model.BriefingField) []string {
	out := make([]string, len(fields))
	for i, f := range fields {
		out[i] = f.ID
	}
	return out
}

func TestParseBuilderForm_Actions(t *testing.T) {
	tests := []struct {
		action   string
		wantSave bool
		wantIDs  []string
	}{
		{"save", true, []string{"f1", "f2"}},
		{"refresh", false, []string{"f1", "f2"}},
		{"remove:0", false, []string{"f2"}},
		{"up:1", false, []string{"f2", "f1"}},
		{"down:0", false, []string{"f2", "f1"}},
		{"down:1", false, []string{"f1", "f2"}},
	}
	for _, tt := range tests {
		t.Run(tt.action, func(t *testing.T) {
			d, save, err := parseBuilderForm(builderPost(t, tt.action, nil))
			require.NoError(t, err)
			assert.Equal(t, tt.wantSave, save)
			assert.Equal(t, tt.wantIDs, fieldIDs(d.Fields))
		})
	}
}

func TestParseBuilderForm_Fields(t *testing.T) {
	d, _, err := parseBuilderForm(builderPost(t, "add", nil))
	require.NoError(t, err)

	require.Len(t, d.Fields, 3)
	assert.Equal(t, "Logo Design", d.Title)
	assert.True(t, d.Fields[0].Required)
	assert.False(t, d.Fields[1].Required)
	assert.Equal(t, []string{"Flat", "3D"}, d.Fields[1].Options, "blank lines dropped, values trimmed")
	assert.NotEmpty(t, d.Fields[2].ID, "added field gets an id")
	assert.Equal(t, model.FieldText, d.Fields[2].Type)
}

func TestParseBuilderForm_TypeChange(t *testing.T) {
	// Text turned into a dropdown gets a single empty option; the dropdown
	// turned into a date loses its options.
	d, _, err := parseBuilderForm(builderPost(t, "refresh", url.Values{
		"field.0.type": {"dropdown"},
		"field.1.type": {"date"},
	}))
	require.NoError(t, err)
	assert.Equal(t, []string{""}, d.Fields[0].Options)
	assert.Nil(t, d.Fields[1].Options)
}

func TestParseBuilderForm_Rejects(t *testing.T) {
	tests := []struct {
		name  string
		extra url.Values
	}{
		{"unknown action", url.Values{"action": {"explode"}}},
		{"unknown type", url.Values{"field.0.type": {"color"}}},
		{"too many fields", url.Values{"count": {"101"}}},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, save, err := parseBuilderForm(builderPost(t, "save", tt.extra))
			assert.ErrorIs(t, err, apperror.ErrValidation)
			assert.False(t, save)
		})
	}
}
