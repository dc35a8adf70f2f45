// Package handler contains the HTTP request handlers: JSON API endpoints and
// the server-rendered pages (login, signup, dashboard, public briefing form).
//
// HANDLER RESPONSIBILITIES:
// 1. Parse the incoming HTTP request (path params, form values, JSON body)
// 2. Call the service layer
// 3. Write the HTTP response (status code, headers, body)
//
// Handlers should NOT contain business logic; they are the glue between HTTP
// and the services.
package handler

import (
	"bytes"
	"embed"
	"fmt"
	"html/template"
	"log/slog"
	"net/http"
	"net/url"
	"strings"

	"github.com/sakif/briefme/internal/store"
)

//go:embed templates/*.html
var templateFS embed.FS

// pageNames lists every page template. Each one is parsed together with
// base.html, which pulls the page in through {{template "content" .}}.
var pageNames = []string{
	"login", "signup", "dashboard", "briefing_form", "submitted", "not_found",
	"builder", "view_briefing", "response",
}

// flashCookie carries a notice across the redirect that follows a POST.
const flashCookie = "notice"

// PageData is what every page template receives.
type PageData struct {
	Title  string
	UserID string
	Notice *store.Notice
	Data   any
}

// Pages holds the parsed templates. Templates are parsed once at startup and
// reused for every request.
type Pages struct {
	templates map[string]*template.Template
	logger    *slog.Logger
}

// NewPages parses the embedded templates.
func NewPages(logger *slog.Logger) (*Pages, error) {
	p := &Pages{templates: make(map[string]*template.Template, len(pageNames)), logger: logger}
	for _, name := range pageNames {
		tmpl, err := template.ParseFS(templateFS, "templates/base.html", "templates/"+name+".html")
		if err != nil {
			return nil, fmt.Errorf("handler: parsing %s template: %w", name, err)
		}
		p.templates[name] = tmpl
	}
	return p, nil
}

// Render executes a page into a buffer first, so a template error becomes a
// clean 500 instead of a half-written page.
func (p *Pages) Render(w http.ResponseWriter, status int, name string, data PageData) {
	tmpl, ok := p.templates[name]
	if !ok {
		p.logger.Error("unknown template", slog.String("name", name))
		http.Error(w, "Internal Server Error", http.StatusInternalServerError)
		return
	}

	var buf bytes.Buffer
	if err := tmpl.ExecuteTemplate(&buf, "base", data); err != nil {
		p.logger.Error("failed to render template",
			slog.String("name", name),
			slog.String("error", err.Error()),
		)
		http.Error(w, "Internal Server Error", http.StatusInternalServerError)
		return
	}

	w.Header().Set("Content-Type", "text/html; charset=utf-8")
	w.WriteHeader(status)
	buf.WriteTo(w)
}

// NotFound renders the not-found page. It is also the router's fallback for
// paths outside /api.
func (p *Pages) NotFound(w http.ResponseWriter, r *http.Request) {
	p.Render(w, http.StatusNotFound, "not_found", PageData{
		Title:  "Not found",
		Notice: TakeFlash(w, r),
	})
}

// SetFlash stores n for the next page render.
func SetFlash(w http.ResponseWriter, n store.Notice) {
	if n.Message == "" {
		return
	}
	http.SetCookie(w, &http.Cookie{
		Name:     flashCookie,
		Value:    url.QueryEscape(string(n.Kind) + "|" + n.Message),
		Path:     "/",
		MaxAge:   60,
		HttpOnly: true,
		SameSite: http.SameSiteLaxMode,
	})
}

// TakeFlash reads and clears the pending notice, if any.
func TakeFlash(w http.ResponseWriter, r *http.Request) *store.Notice {
	c, err := r.Cookie(flashCookie)
	if err != nil {
		return nil
	}
	http.SetCookie(w, &http.Cookie{Name: flashCookie, Value: "", Path: "/", MaxAge: -1})

	raw, err := url.QueryUnescape(c.Value)
	if err != nil {
		return nil
	}
	kind, msg, ok := strings.Cut(raw, "|")
	if !ok || msg == "" {
		return nil
	}
	switch store.NoticeKind(kind) {
	case store.NoticeSuccess, store.NoticeError:
		return &store.Notice{Kind: store.NoticeKind(kind), Message: msg}
	}
	return nil
}
