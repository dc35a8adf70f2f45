package handler

import (
	"log/slog"
	"net/http"

	"github.com/sakif/briefme/internal/service"
)

// DashboardHandler serves the owner's pages: the dashboard, the builder for
// new and saved briefings, a briefing's details and responses, and delete.
// Every route sits behind auth.RequirePage.
type DashboardHandler struct {
	svc    *service.BriefingService
	pages  *Pages
	logger *slog.Logger
}

// NewDashboardHandler creates a DashboardHandler.
func NewDashboardHandler(svc *service.BriefingService, pages *Pages, logger *slog.Logger) *DashboardHandler {
	return &DashboardHandler{svc: svc, pages: pages, logger: logger}
}

type dashboardItem struct {
	ID          string
	Title       string
	Description string
	Fields      int
	Responses   int
	Link        string
}

type dashboardPage struct {
	Items []dashboardItem
}

// HandleDashboard renders the dashboard.
//
// HTTP: GET /dashboard
func (h *DashboardHandler) HandleDashboard(w http.ResponseWriter, r *http.Request) {
	userID, ok := owner(w, r)
	if !ok {
		return
	}
	briefings, err := h.svc.List(r.Context(), userID)
	if err != nil {
		h.logger.Error("loading dashboard failed", slog.String("error", err.Error()))
		http.Error(w, "Internal Server Error", http.StatusInternalServerError)
		return
	}

	page := dashboardPage{Items: make([]dashboardItem, 0, len(briefings))}
	for _, b := range briefings {
		page.Items = append(page.Items, dashboardItem{
			ID:          b.ID,
			Title:       b.Title,
			Description: b.Description,
			Fields:      len(b.Fields),
			Responses:   len(b.Responses),
			Link:        h.svc.ShareLink(b.ID),
		})
	}

	h.pages.Render(w, http.StatusOK, "dashboard", PageData{
		Title:  "Dashboard",
		UserID: userID,
		Notice: TakeFlash(w, r),
		Data:   page,
	})
}

// HandleHealth reports liveness.
//
// HTTP: GET /healthz
func HandleHealth(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, http.StatusOK, map[string]string{"status": "ok"})
}

// HandleAPINotFound is the JSON 404 for unmatched paths under /api.
func HandleAPINotFound(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, http.StatusNotFound, ErrorResponse{
		Error:   "not_found",
		Message: "no route for " + r.Method + " " + r.URL.Path,
	})
}
