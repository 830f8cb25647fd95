// Package api exposes the note store and the tag-normalization engine over
// HTTP.
package api

import (
	"encoding/json"
	"log/slog"
	"net/http"
	"strconv"
	"strings"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/cors"
	"github.com/google/uuid"

	"github.com/pbaille/notable/internal/config"
	"github.com/pbaille/notable/internal/embedding"
	"github.com/pbaille/notable/internal/errs"
	"github.com/pbaille/notable/internal/normalize"
	"github.com/pbaille/notable/internal/store"
)

// Server handles HTTP requests for the note store.
type Server struct {
	store    *store.Store
	embedder *embedding.Service
	cfg      *config.Config
	log      *slog.Logger
}

// New creates a new API server. embedder may be nil; the endpoints that
// need one answer 503 in that case.
func New(s *store.Store, embedder *embedding.Service, cfg *config.Config, log *slog.Logger) *Server {
	if log == nil {
		log = slog.Default()
	}
	return &Server{store: s, embedder: embedder, cfg: cfg, log: log}
}

// Router assembles the route tree.
func (s *Server) Router() http.Handler {
	r := chi.NewRouter()

	r.Use(s.requestLogger)
	r.Use(cors.Handler(cors.Options{
		AllowedOrigins: []string{"*"},
		AllowedMethods: []string{"GET", "POST", "OPTIONS"},
		AllowedHeaders: []string{"Content-Type"},
	}))

	r.Get("/health", s.health)

	r.Route("/notes", func(r chi.Router) {
		r.Get("/", s.listNotes)
		r.Post("/", s.addNote)
		r.Get("/{id}", s.getNote)
	})

	r.Get("/search", s.searchNotes)
	r.Get("/tags", s.listTags)
	r.Get("/stats", s.stats)

	r.Route("/normalizations", func(r chi.Router) {
		r.Get("/suggestions", s.suggestions)
		r.Post("/", s.applyNormalization)
	})

	return r
}

// Run starts the HTTP server on the configured address.
func (s *Server) Run() error {
	s.log.Info("starting server", "addr", s.cfg.Server.Listen)
	return http.ListenAndServe(s.cfg.Server.Listen, s.Router())
}

// requestLogger tags each request with an id and logs its outcome.
func (s *Server) requestLogger(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		start := time.Now()
		reqID := uuid.New().String()
		w.Header().Set("X-Request-ID", reqID)

		next.ServeHTTP(w, r)

		s.log.Info("request",
			"id", reqID[:8],
			"method", r.Method,
			"path", r.URL.Path,
			"duration", time.Since(start),
		)
	})
}

func (s *Server) health(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, http.StatusOK, map[string]string{"status": "ok"})
}

// AddNoteRequest is the request body for creating a note.
type AddNoteRequest struct {
	Title   string   `json:"title"`
	Content string   `json:"content"`
	Tags    []string `json:"tags,omitempty"`
}

func (s *Server) addNote(w http.ResponseWriter, r *http.Request) {
	var req AddNoteRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeError(w, http.StatusBadRequest, "invalid request body")
		return
	}

	if strings.TrimSpace(req.Title) == "" || strings.TrimSpace(req.Content) == "" {
		writeError(w, http.StatusBadRequest, "title and content are required")
		return
	}

	if s.embedder == nil {
		writeError(w, http.StatusServiceUnavailable, "embedding service not configured")
		return
	}

	vector, err := s.embedder.Embed(r.Context(), req.Content)
	if err != nil {
		s.writeErr(w, err)
		return
	}

	note, err := s.store.AddNote(r.Context(), req.Title, req.Content, vector, req.Tags)
	if err != nil {
		s.writeErr(w, err)
		return
	}

	writeJSON(w, http.StatusCreated, note)
}

func (s *Server) getNote(w http.ResponseWriter, r *http.Request) {
	id, err := strconv.ParseInt(chi.URLParam(r, "id"), 10, 64)
	if err != nil {
		writeError(w, http.StatusBadRequest, "note id must be an integer")
		return
	}

	note, err := s.store.GetNote(r.Context(), id)
	if err != nil {
		s.writeErr(w, err)
		return
	}

	writeJSON(w, http.StatusOK, note)
}

func (s *Server) listNotes(w http.ResponseWriter, r *http.Request) {
	limit := queryInt(r, "limit", 20)
	days := queryInt(r, "days", 0)
	tag := r.URL.Query().Get("tag")

	since := time.Time{}
	if days > 0 {
		since = time.Now().UTC().AddDate(0, 0, -days)
	}

	notes, err := s.store.NotesSince(r.Context(), since, tag, limit, false)
	if err != nil {
		s.writeErr(w, err)
		return
	}

	writeJSON(w, http.StatusOK, map[string]any{
		"notes": notes,
		"limit": limit,
	})
}

func (s *Server) searchNotes(w http.ResponseWriter, r *http.Request) {
	query := r.URL.Query().Get("q")
	if query == "" {
		writeError(w, http.StatusBadRequest, "query parameter 'q' is required")
		return
	}

	if s.embedder == nil {
		writeError(w, http.StatusServiceUnavailable, "embedding service not configured")
		return
	}

	vector, err := s.embedder.Embed(r.Context(), query)
	if err != nil {
		s.writeErr(w, err)
		return
	}

	results, err := s.store.SearchSimilar(r.Context(), vector, queryInt(r, "limit", 10), r.URL.Query().Get("tag"))
	if err != nil {
		s.writeErr(w, err)
		return
	}

	writeJSON(w, http.StatusOK, map[string]any{
		"results": results,
		"query":   query,
	})
}

func (s *Server) listTags(w http.ResponseWriter, r *http.Request) {
	usage, err := s.store.TagUsage(r.Context())
	if err != nil {
		s.writeErr(w, err)
		return
	}

	writeJSON(w, http.StatusOK, map[string]any{"tags": usage})
}

func (s *Server) stats(w http.ResponseWriter, r *http.Request) {
	stats, err := s.store.Stats(r.Context())
	if err != nil {
		s.writeErr(w, err)
		return
	}
	writeJSON(w, http.StatusOK, stats)
}

func (s *Server) suggestions(w http.ResponseWriter, r *http.Request) {
	threshold := s.cfg.Normalize.SimilarityThreshold
	if q := r.URL.Query().Get("threshold"); q != "" {
		v, err := strconv.ParseFloat(q, 64)
		if err != nil || v < 0 || v > 1 {
			writeError(w, http.StatusBadRequest, "threshold must be a similarity in [0,1]")
			return
		}
		threshold = v
	}

	suggestions, err := normalize.Suggest(r.Context(), s.store, normalize.Options{
		DistanceThreshold: 1 - threshold,
		MinClusterSize:    queryInt(r, "min_size", s.cfg.Normalize.MinClusterSize),
	})
	if err != nil {
		s.writeErr(w, err)
		return
	}

	writeJSON(w, http.StatusOK, map[string]any{"suggestions": suggestions})
}

// ApplyRequest is the request body for applying a normalization.
type ApplyRequest struct {
	NoteIDs     []int64  `json:"note_ids"`
	KeepTag     string   `json:"keep_tag"`
	ReplaceTags []string `json:"replace_tags"`
}

// ApplyResponse reports what the normalization changed.
type ApplyResponse struct {
	NotesUpdated int     `json:"notes_updated"`
	LinksRemoved int     `json:"links_removed"`
	LinksAdded   int     `json:"links_added"`
	MissingNotes []int64 `json:"missing_notes,omitempty"`
}

func (s *Server) applyNormalization(w http.ResponseWriter, r *http.Request) {
	var req ApplyRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeError(w, http.StatusBadRequest, "invalid request body")
		return
	}

	result, err := normalize.NewApplier(normalize.BeginFromStore(s.store), s.log).Apply(r.Context(), normalize.Request{
		NoteIDs:     req.NoteIDs,
		KeepTag:     req.KeepTag,
		ReplaceTags: req.ReplaceTags,
	})
	if err != nil {
		s.writeErr(w, err)
		return
	}

	writeJSON(w, http.StatusOK, ApplyResponse{
		NotesUpdated: result.NotesUpdated,
		LinksRemoved: result.LinksRemoved,
		LinksAdded:   result.LinksAdded,
		MissingNotes: result.MissingNotes,
	})
}

func (s *Server) writeErr(w http.ResponseWriter, err error) {
	status := errs.HTTPStatus(err)
	if status >= http.StatusInternalServerError {
		s.log.Error("request failed", "error", err)
	}
	writeError(w, status, err.Error())
}

func queryInt(r *http.Request, key string, fallback int) int {
	if v := r.URL.Query().Get(key); v != "" {
		if n, err := strconv.Atoi(v); err == nil && n > 0 {
			return n
		}
	}
	return fallback
}

func writeJSON(w http.ResponseWriter, status int, data any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(data)
}

func writeError(w http.ResponseWriter, status int, message string) {
	writeJSON(w, status, map[string]string{"error": message})
}
