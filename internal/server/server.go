package server

import (
	"bytes"
	"context"
	"embed"
	"fmt"
	"html/template"
	"io/fs"
	"net/http"
	"strings"

	"github.com/prometheus/client_golang/prometheus/promhttp"
	"github.com/rs/zerolog/log"
	"github.com/yuin/goldmark"

	"cardforge/internal/database"
	"cardforge/internal/fault"
	"cardforge/internal/model"
	"cardforge/internal/pipeline"
	"cardforge/internal/render"
)

//go:embed templates/*.html
var templateFS embed.FS

//go:embed static/*
var staticFS embed.FS

var md = goldmark.New()

// PipelineRunner triggers a full pipeline run for one subject.
// *pipeline.Runner satisfies it.
type PipelineRunner interface {
	Run(ctx context.Context, identifier string, meta *model.SubmissionMeta) pipeline.Result
}

// Server is the HTTP server for browsing generated cards and triggering runs.
type Server struct {
	db       *database.DB
	renderer *render.Renderer
	runner   PipelineRunner
	pages    map[string]*template.Template
	mux      *http.ServeMux
}

// New creates a new Server. runner may be nil, in which case the run
// endpoint reports the service as unavailable.
func New(db *database.DB, runner PipelineRunner) (*Server, error) {
	funcMap := template.FuncMap{
		"markdown": renderMarkdown,
	}

	base, err := template.New("base.html").Funcs(funcMap).ParseFS(templateFS, "templates/base.html")
	if err != nil {
		return nil, fmt.Errorf("parsing base template: %w", err)
	}

	// Each page gets its own clone of the base so their {{define "content"}}
	// and {{define "title"}} blocks do not collide.
	pageNames := []string{"index.html", "card.html"}
	pages := make(map[string]*template.Template, len(pageNames))
	for _, name := range pageNames {
		clone, err := base.Clone()
		if err != nil {
			return nil, fmt.Errorf("cloning base for %s: %w", name, err)
		}
		_, err = clone.ParseFS(templateFS, "templates/"+name)
		if err != nil {
			return nil, fmt.Errorf("parsing template %s: %w", name, err)
		}
		pages[name] = clone
	}

	s := &Server{
		db:       db,
		renderer: render.New(db),
		runner:   runner,
		pages:    pages,
		mux:      http.NewServeMux(),
	}
	s.routes()
	return s, nil
}

// Handler returns the HTTP handler for the server.
func (s *Server) Handler() http.Handler {
	return s.mux
}

func (s *Server) routes() {
	staticSub, _ := fs.Sub(staticFS, "static")
	s.mux.Handle("/static/", http.StripPrefix("/static/", http.FileServer(http.FS(staticSub))))

	s.mux.HandleFunc("/", s.handleIndex)
	s.mux.HandleFunc("/card/", s.handleCard)
	s.mux.HandleFunc("/run/", s.handleRun)
	s.mux.Handle("/metrics", promhttp.Handler())
	s.mux.HandleFunc("/healthz", s.handleHealthz)
}

func (s *Server) handleIndex(w http.ResponseWriter, r *http.Request) {
	if r.URL.Path != "/" {
		http.NotFound(w, r)
		return
	}

	profiles, err := s.db.ListProfiles()
	if err != nil {
		http.Error(w, "Internal server error", http.StatusInternalServerError)
		return
	}
	stats, err := s.db.GetStats()
	if err != nil {
		http.Error(w, "Internal server error", http.StatusInternalServerError)
		return
	}

	s.render(w, "index.html", map[string]any{
		"Profiles": profiles,
		"Stats":    stats,
	})
}

func (s *Server) handleCard(w http.ResponseWriter, r *http.Request) {
	externalID := strings.TrimPrefix(r.URL.Path, "/card/")
	if externalID == "" {
		http.Redirect(w, r, "/", http.StatusFound)
		return
	}

	sheet, err := s.renderer.CardSheet(externalID)
	if err != nil {
		if fault.IsKind(err, fault.NotFound) {
			http.Error(w, err.Error(), http.StatusNotFound)
			return
		}
		http.Error(w, "Internal server error", http.StatusInternalServerError)
		return
	}

	card, err := s.db.GetGeneratedContent(externalID)
	if err != nil {
		http.Error(w, "Internal server error", http.StatusInternalServerError)
		return
	}
	data := map[string]any{"Sheet": sheet}
	if card != nil {
		data["GeneratedAt"] = card.GeneratedAt
	}
	s.render(w, "card.html", data)
}

// handleRun triggers a synchronous pipeline run for the submitted identifier.
// Same-subject requests queue behind each other inside the runner.
func (s *Server) handleRun(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodPost {
		http.Error(w, "method not allowed", http.StatusMethodNotAllowed)
		return
	}
	if s.runner == nil {
		http.Error(w, "pipeline not configured", http.StatusServiceUnavailable)
		return
	}

	identifier := strings.TrimPrefix(r.URL.Path, "/run/")
	if identifier == "" {
		identifier = strings.TrimSpace(r.FormValue("identifier"))
	}
	if identifier == "" {
		http.Error(w, "missing identifier", http.StatusBadRequest)
		return
	}

	var meta *model.SubmissionMeta
	if by := strings.TrimSpace(r.FormValue("submitted_by")); by != "" {
		meta = &model.SubmissionMeta{
			SubmittedBy: by,
			Note:        strings.TrimSpace(r.FormValue("note")),
		}
	}

	result := s.runner.Run(r.Context(), identifier, meta)
	if result.Outcome != pipeline.OutcomeSuccess {
		http.Error(w, result.Message, statusForKind(result.ErrorKind))
		return
	}

	http.Redirect(w, r, "/card/"+result.SubjectID, http.StatusFound)
}

func (s *Server) handleHealthz(w http.ResponseWriter, r *http.Request) {
	if _, err := s.db.GetStats(); err != nil {
		http.Error(w, "database unavailable", http.StatusServiceUnavailable)
		return
	}
	w.Header().Set("Content-Type", "text/plain; charset=utf-8")
	fmt.Fprintln(w, "ok")
}

// statusForKind maps pipeline failure kinds onto HTTP status codes for the
// run endpoint.
func statusForKind(kind fault.Kind) int {
	switch kind {
	case fault.NotFound:
		return http.StatusNotFound
	case fault.Forbidden:
		return http.StatusForbidden
	case fault.RateLimited:
		return http.StatusTooManyRequests
	case fault.InvalidRequest:
		return http.StatusBadRequest
	case fault.TransientServer, fault.GenerationUnavailable, fault.ValidationExhausted:
		return http.StatusBadGateway
	default:
		return http.StatusInternalServerError
	}
}

func (s *Server) render(w http.ResponseWriter, name string, data any) {
	tmpl, ok := s.pages[name]
	if !ok {
		log.Error().Str("template", name).Msg("template not found")
		http.Error(w, "Internal server error", http.StatusInternalServerError)
		return
	}

	w.Header().Set("Content-Type", "text/html; charset=utf-8")
	if err := tmpl.ExecuteTemplate(w, "base.html", data); err != nil {
		log.Error().Err(err).Str("template", name).Msg("template render failed")
	}
}

func renderMarkdown(text string) template.HTML {
	var buf bytes.Buffer
	if err := md.Convert([]byte(text), &buf); err != nil {
		return template.HTML(template.HTMLEscapeString(text))
	}
	return template.HTML(buf.String()) //nolint: gosec
}

// Serve starts the HTTP server on the given port.
func Serve(db *database.DB, runner PipelineRunner, port int) error {
	srv, err := New(db, runner)
	if err != nil {
		return err
	}

	addr := fmt.Sprintf("127.0.0.1:%d", port)
	log.Info().Str("addr", addr).Msg("server listening")
	return http.ListenAndServe(addr, srv.Handler())
}
