// Package site renders the HTML pages: the upload form and the podium.
package site

import (
	"bytes"
	"context"
	"embed"
	"html/template"
	"net/http"

	"github.com/okian/segscore/internal/domain/types"
	"github.com/okian/segscore/pkg/logger"
)

//go:embed templates/*.html
var templateFS embed.FS

var pages = template.Must(template.ParseFS(templateFS, "templates/*.html"))

// Dependencies is what the pages read from the service.
type Dependencies interface {
	Leaderboard(ctx context.Context) (types.Podium, error)
	Extension() string
	NameMaxLen() int
}

type indexPage struct {
	Title      string
	Extension  string
	NameMaxLen int
}

type podiumPage struct {
	Title  string
	Top    []types.Entry
	Others []types.Entry
}

// Register attaches the HTML pages to mux.
func Register(_ context.Context, mux *http.ServeMux, deps Dependencies, log logger.Logger) {
	if mux == nil {
		panic("mux is nil")
	}
	if log == nil {
		log = logger.Nop()
	}
	h := &handler{deps: deps, log: log}
	mux.HandleFunc("/", h.handleIndex)
	mux.HandleFunc("/podium", h.handlePodium)
}

type handler struct {
	deps Dependencies
	log  logger.Logger
}

func (h *handler) handleIndex(w http.ResponseWriter, r *http.Request) {
	if r.URL.Path != "/" || r.Method != http.MethodGet {
		http.NotFound(w, r)
		return
	}
	h.render(w, r, "index.html", indexPage{
		Title:      "Submit predictions",
		Extension:  h.deps.Extension(),
		NameMaxLen: h.deps.NameMaxLen(),
	})
}

func (h *handler) handlePodium(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodGet {
		http.NotFound(w, r)
		return
	}
	board, err := h.deps.Leaderboard(r.Context())
	if err != nil {
		h.log.Error(r.Context(), "reading leaderboard", logger.Error(err))
		http.Error(w, "An internal error occurred while processing the request", http.StatusInternalServerError)
		return
	}
	h.render(w, r, "podium.html", podiumPage{Title: "Podium", Top: board.Top, Others: board.Others})
}

// render executes into a buffer so a template failure never yields a half page.
func (h *handler) render(w http.ResponseWriter, r *http.Request, name string, data any) {
	var buf bytes.Buffer
	if err := pages.ExecuteTemplate(&buf, name, data); err != nil {
		h.log.Error(r.Context(), "rendering page", logger.String("page", name), logger.Error(err))
		http.Error(w, http.StatusText(http.StatusInternalServerError), http.StatusInternalServerError)
		return
	}
	w.Header().Set("Content-Type", "text/html; charset=utf-8")
	_, _ = w.Write(buf.Bytes())
}
