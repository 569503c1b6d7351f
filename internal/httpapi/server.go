// Package httpapi exposes the practice server's HTTP surface: the REST
// endpoints for verses, voices, and reference audio, the /ws/practice
// WebSocket for recognition sessions, and the operational endpoints
// (/healthz, /readyz, /metrics).
package httpapi

import (
	"encoding/json"
	"errors"
	"log/slog"
	"net/http"
	"strconv"

	"github.com/prometheus/client_golang/prometheus/promhttp"

	"github.com/sherbini/taratil/internal/attempts"
	"github.com/sherbini/taratil/internal/compare"
	"github.com/sherbini/taratil/internal/health"
	"github.com/sherbini/taratil/internal/observe"
	"github.com/sherbini/taratil/internal/session"
	"github.com/sherbini/taratil/internal/verse"
	"github.com/sherbini/taratil/pkg/provider/tts"
)

// AttemptLog receives scored practice attempts. [attempts.FileLog]
// satisfies it.
type AttemptLog interface {
	Append(rec attempts.Record) error
}

// Options configures a [Server]. Verses is required; the rest have working
// defaults or may be nil.
type Options struct {
	// Verses is the verse catalogue.
	Verses verse.Store

	// Audio produces reference audio. Nil disables /api/audio and
	// /api/voices with 503 responses.
	Audio tts.Provider

	// Scorer evaluates recognized readings. Nil means a default scorer.
	Scorer *compare.Scorer

	// Session is the per-connection recognition session configuration.
	Session session.Config

	// Metrics receives request and session instrumentation. Nil means
	// the package-level default instruments.
	Metrics *observe.Metrics

	// Health serves /healthz and /readyz. Nil means a handler with no
	// readiness checks.
	Health *health.Handler

	// Attempts records scored practice attempts. Nil disables the
	// attempt log.
	Attempts AttemptLog
}

// Server is the HTTP API for the practice service.
type Server struct {
	verses     verse.Store
	audio      tts.Provider
	scorer     *compare.Scorer
	sessionCfg session.Config
	metrics    *observe.Metrics
	health     *health.Handler
	attempts   AttemptLog
}

// New creates a [Server] from opts.
func New(opts Options) *Server {
	s := &Server{
		verses:     opts.Verses,
		audio:      opts.Audio,
		scorer:     opts.Scorer,
		sessionCfg: opts.Session,
		metrics:    opts.Metrics,
		health:     opts.Health,
		attempts:   opts.Attempts,
	}
	if s.scorer == nil {
		s.scorer = compare.NewScorer()
	}
	if s.metrics == nil {
		s.metrics = observe.DefaultMetrics()
	}
	if s.health == nil {
		s.health = health.New()
	}
	return s
}

// Handler returns the complete route tree wrapped in the observability
// middleware.
func (s *Server) Handler() http.Handler {
	mux := http.NewServeMux()

	mux.HandleFunc("GET /api/verses", s.handleListVerses)
	mux.HandleFunc("GET /api/verses/{id}", s.handleGetVerse)
	mux.HandleFunc("GET /api/books", s.handleListBooks)
	mux.HandleFunc("GET /api/voices", s.handleListVoices)
	mux.HandleFunc("GET /api/audio", s.handleAudio)
	mux.HandleFunc("GET /ws/practice", s.handlePractice)

	s.health.Register(mux)
	mux.Handle("GET /metrics", promhttp.Handler())

	return observe.Middleware(s.metrics)(mux)
}

// handleListVerses serves GET /api/verses with optional book and chapter
// query filters.
func (s *Server) handleListVerses(w http.ResponseWriter, r *http.Request) {
	opts := verse.ListOptions{Book: r.URL.Query().Get("book")}
	if raw := r.URL.Query().Get("chapter"); raw != "" {
		chapter, err := strconv.Atoi(raw)
		if err != nil || chapter < 1 {
			writeError(w, http.StatusBadRequest, "chapter must be a positive integer")
			return
		}
		opts.Chapter = chapter
	}

	verses, err := s.verses.List(r.Context(), opts)
	if err != nil {
		observe.Logger(r.Context()).Error("list verses failed", "err", err)
		writeError(w, http.StatusInternalServerError, "listing verses failed")
		return
	}
	if verses == nil {
		verses = []verse.Verse{}
	}
	writeJSON(w, http.StatusOK, verses)
}

// handleGetVerse serves GET /api/verses/{id}.
func (s *Server) handleGetVerse(w http.ResponseWriter, r *http.Request) {
	v, err := s.verses.Get(r.Context(), r.PathValue("id"))
	if err != nil {
		if errors.Is(err, verse.ErrNotFound) {
			writeError(w, http.StatusNotFound, "verse not found")
			return
		}
		observe.Logger(r.Context()).Error("get verse failed", "err", err)
		writeError(w, http.StatusInternalServerError, "fetching verse failed")
		return
	}
	writeJSON(w, http.StatusOK, v)
}

// handleListBooks serves GET /api/books.
func (s *Server) handleListBooks(w http.ResponseWriter, r *http.Request) {
	books, err := s.verses.Books(r.Context())
	if err != nil {
		observe.Logger(r.Context()).Error("list books failed", "err", err)
		writeError(w, http.StatusInternalServerError, "listing books failed")
		return
	}
	if books == nil {
		books = []string{}
	}
	writeJSON(w, http.StatusOK, books)
}

// voiceDTO is the JSON shape of one synthesis voice.
type voiceDTO struct {
	ID       string `json:"id"`
	Name     string `json:"name,omitempty"`
	Language string `json:"language,omitempty"`
	Gender   string `json:"gender,omitempty"`
	Engine   string `json:"engine,omitempty"`
	Provider string `json:"provider,omitempty"`
}

// handleListVoices serves GET /api/voices.
func (s *Server) handleListVoices(w http.ResponseWriter, r *http.Request) {
	if s.audio == nil {
		writeError(w, http.StatusServiceUnavailable, "audio is not configured")
		return
	}

	voices, err := s.audio.ListVoices(r.Context())
	if err != nil {
		observe.Logger(r.Context()).Error("list voices failed", "err", err)
		writeError(w, http.StatusBadGateway, "listing voices failed")
		return
	}

	dtos := make([]voiceDTO, 0, len(voices))
	for _, v := range voices {
		dtos = append(dtos, voiceDTO{
			ID:       v.ID,
			Name:     v.Name,
			Language: v.Language,
			Gender:   v.Gender,
			Engine:   v.Engine,
			Provider: v.Provider,
		})
	}
	writeJSON(w, http.StatusOK, dtos)
}

// handleAudio serves GET /api/audio?verse=<id>[&voice=<id>] with the
// reference audio for a verse.
func (s *Server) handleAudio(w http.ResponseWriter, r *http.Request) {
	if s.audio == nil {
		writeError(w, http.StatusServiceUnavailable, "audio is not configured")
		return
	}

	verseID := r.URL.Query().Get("verse")
	if verseID == "" {
		writeError(w, http.StatusBadRequest, "verse query parameter is required")
		return
	}

	v, err := s.verses.Get(r.Context(), verseID)
	if err != nil {
		if errors.Is(err, verse.ErrNotFound) {
			writeError(w, http.StatusNotFound, "verse not found")
			return
		}
		observe.Logger(r.Context()).Error("get verse for audio failed", "err", err)
		writeError(w, http.StatusInternalServerError, "fetching verse failed")
		return
	}

	clip, err := s.audio.Synthesize(r.Context(), v.Text, tts.Voice{ID: r.URL.Query().Get("voice")})
	if err != nil {
		if errors.Is(err, tts.ErrNoAudio) {
			writeError(w, http.StatusNotFound, "no audio available for this verse")
			return
		}
		observe.Logger(r.Context()).Error("synthesis failed", "verse", verseID, "err", err)
		s.metrics.RecordProviderError(r.Context(), "audio", "synthesis")
		writeError(w, http.StatusBadGateway, "audio synthesis failed")
		return
	}

	w.Header().Set("Content-Type", contentTypeFor(clip.Format))
	if clip.Cached {
		w.Header().Set("X-Cache", "hit")
	}
	w.WriteHeader(http.StatusOK)
	if _, err := w.Write(clip.Audio); err != nil {
		slog.Debug("writing audio response failed", "err", err)
	}
}

// contentTypeFor maps a clip format to its MIME type. Unknown formats are
// served as opaque bytes.
func contentTypeFor(format string) string {
	switch format {
	case "mp3":
		return "audio/mpeg"
	case "wav":
		return "audio/wav"
	default:
		return "application/octet-stream"
	}
}

// errorBody is the JSON shape of error responses.
type errorBody struct {
	Error string `json:"error"`
}

func writeError(w http.ResponseWriter, status int, msg string) {
	writeJSON(w, status, errorBody{Error: msg})
}

// writeJSON encodes v as JSON and writes it with the given status code.
func writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json; charset=utf-8")
	w.WriteHeader(status)
	if err := json.NewEncoder(w).Encode(v); err != nil {
		slog.Debug("encoding response failed", "err", err)
	}
}
