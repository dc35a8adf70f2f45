package middleware

import (
	"bytes"
	"log/slog"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/go-chi/chi/v5"
)

type observed struct {
	method, route string
	status        int
}

type fakeObserver struct{ calls []observed }

func (f *fakeObserver) ObserveRequest(method, route string, status int, _ time.Duration) {
	f.calls = append(f.calls, observed{method, route, status})
}

func TestLogger_LogsAndObserves(t *testing.T) {
	var buf bytes.Buffer
	logger := slog.New(slog.NewTextHandler(&buf, nil))
	obs := &fakeObserver{}

	r := chi.NewRouter()
	r.Use(Logger(logger, obs))
	r.Get("/briefings/{id}", func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusTeapot)
		w.Write([]byte("short and stout"))
	})

	rec := httptest.NewRecorder()
	r.ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/briefings/abc", nil))

	out := buf.String()
	for _, want := range []string{"request completed", "path=/briefings/abc", "status=418", "bytes=15"} {
		if !strings.Contains(out, want) {
			t.Errorf("log line %q missing %q", out, want)
		}
	}

	if len(obs.calls) != 1 {
		t.Fatalf("observer calls = %d, want 1", len(obs.calls))
	}
	if got := obs.calls[0]; got.route != "/briefings/{id}" || got.status != http.StatusTeapot {
		t.Errorf("observed = %+v, want route pattern and 418", got)
	}
}

func TestLogger_UnmatchedRoute(t *testing.T) {
	obs := &fakeObserver{}
	r := chi.NewRouter()
	r.Use(Logger(slog.New(slog.NewTextHandler(&bytes.Buffer{}, nil)), obs))
	r.Get("/known", func(w http.ResponseWriter, r *http.Request) {})

	r.ServeHTTP(httptest.NewRecorder(), httptest.NewRequest(http.MethodGet, "/nope", nil))

	if len(obs.calls) != 1 || obs.calls[0].route != "unmatched" || obs.calls[0].status != http.StatusNotFound {
		t.Errorf("observed = %+v", obs.calls)
	}
}
