// Package api exposes the pipeline stages over HTTP.
package api

import (
	"bytes"
	"context"
	"encoding/json"
	"net/http"
	"strconv"
	"strings"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
	"github.com/go-chi/cors"
	"github.com/rotisserie/eris"
	"go.uber.org/zap"

	"github.com/sells-group/rulebook-cli/internal/model"
	"github.com/sells-group/rulebook-cli/internal/pipeline"
	"github.com/sells-group/rulebook-cli/internal/qa"
)

// Stages is the subset of *pipeline.Pipeline the handlers call.
type Stages interface {
	Discover(ctx context.Context, key model.Key) (*pipeline.DiscoverResult, error)
	Archive(ctx context.Context, key model.Key) (*pipeline.ArchiveResult, error)
	Extract(ctx context.Context, key model.Key) (*pipeline.ExtractResult, error)
	Status(ctx context.Context, key model.Key) (*pipeline.StatusResult, error)
}

// Asker answers questions about a key's rulebook.
type Asker interface {
	Ask(ctx context.Context, key model.Key, question string) (*qa.Answer, error)
	Invalidate(key model.Key)
}

// Deps are the handlers' collaborators. Asker and Blobs may be nil.
type Deps struct {
	Stages Stages
	Asker  Asker
	Blobs  http.Handler
}

type handler struct {
	stages Stages
	asker  Asker
}

// NewRouter builds the HTTP routes.
func NewRouter(d Deps) http.Handler {
	h := &handler{stages: d.Stages, asker: d.Asker}

	r := chi.NewRouter()
	r.Use(middleware.RequestID)
	r.Use(middleware.RealIP)
	r.Use(requestLogger)
	r.Use(middleware.Recoverer)
	r.Use(cors.Handler(cors.Options{
		AllowedOrigins: []string{"*"},
		AllowedMethods: []string{http.MethodGet, http.MethodPost, http.MethodOptions},
		AllowedHeaders: []string{"Accept", "Content-Type"},
		MaxAge:         300,
	}))

	r.Get("/health", func(w http.ResponseWriter, _ *http.Request) {
		writeJSON(w, http.StatusOK, map[string]string{"status": "ok"})
	})
	r.Post("/discover", h.discover)
	r.Post("/archive", h.archive)
	r.Post("/extract", h.extract)
	r.Get("/status", h.status)
	r.Post("/ask", h.ask)
	if d.Blobs != nil {
		r.Handle("/blobs/*", d.Blobs)
	}
	return r
}

func (h *handler) discover(w http.ResponseWriter, r *http.Request) {
	req, ok := decodeKeyRequest(w, r)
	if !ok {
		return
	}
	res, err := h.stages.Discover(r.Context(), req.key)
	if err != nil {
		writeError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, res)
}

func (h *handler) archive(w http.ResponseWriter, r *http.Request) {
	req, ok := decodeKeyRequest(w, r)
	if !ok {
		return
	}
	res, err := h.stages.Archive(r.Context(), req.key)
	if err != nil {
		writeError(w, err)
		return
	}
	h.invalidate(req.key)
	writeJSON(w, http.StatusOK, res)
}

func (h *handler) extract(w http.ResponseWriter, r *http.Request) {
	req, ok := decodeKeyRequest(w, r)
	if !ok {
		return
	}
	res, err := h.stages.Extract(r.Context(), req.key)
	if err != nil {
		writeError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, res)
}

func (h *handler) status(w http.ResponseWriter, r *http.Request) {
	q := r.URL.Query()
	key, err := parseKey(q.Get("season"), []byte(q.Get("year")))
	if err != nil {
		writeError(w, err)
		return
	}
	res, err := h.stages.Status(r.Context(), key)
	if err != nil {
		writeError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, res)
}

func (h *handler) ask(w http.ResponseWriter, r *http.Request) {
	if h.asker == nil {
		writeJSON(w, http.StatusServiceUnavailable, errorBody{Error: "question answering is not configured"})
		return
	}
	req, ok := decodeKeyRequest(w, r)
	if !ok {
		return
	}
	if strings.TrimSpace(req.Question) == "" {
		writeError(w, &pipeline.ValidationError{Field: "question", Err: eris.New("required")})
		return
	}
	res, err := h.asker.Ask(r.Context(), req.key, req.Question)
	if err != nil {
		writeError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, res)
}

func (h *handler) invalidate(key model.Key) {
	if h.asker != nil {
		h.asker.Invalidate(key)
	}
}

// keyRequest is the body every POST route accepts.
type keyRequest struct {
	Season   string          `json:"season"`
	Year     json.RawMessage `json:"year"`
	Question string          `json:"question,omitempty"`

	key model.Key
}

func decodeKeyRequest(w http.ResponseWriter, r *http.Request) (*keyRequest, bool) {
	var req keyRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeError(w, &pipeline.ValidationError{Field: "request body", Err: err})
		return nil, false
	}
	key, err := parseKey(req.Season, req.Year)
	if err != nil {
		writeError(w, err)
		return nil, false
	}
	req.key = key
	return &req, true
}

// parseKey validates a season and a year given as a JSON number or a
// numeric string.
func parseKey(season string, rawYear []byte) (model.Key, error) {
	if strings.TrimSpace(season) == "" {
		return model.Key{}, &pipeline.ValidationError{Field: "season", Err: eris.New("required")}
	}
	s, err := model.ParseSeason(season)
	if err != nil {
		return model.Key{}, &pipeline.ValidationError{Field: "season", Err: err}
	}
	year, err := parseYear(rawYear)
	if err != nil {
		return model.Key{}, &pipeline.ValidationError{Field: "year", Err: err}
	}
	return model.Key{Season: s, Year: year}, nil
}

func parseYear(raw []byte) (int, error) {
	raw = bytes.TrimSpace(raw)
	if len(raw) == 0 || string(raw) == "null" {
		return 0, eris.New("required")
	}
	if raw[0] == '"' {
		var s string
		if err := json.Unmarshal(raw, &s); err != nil {
			return 0, err
		}
		raw = []byte(strings.TrimSpace(s))
	}
	year, err := strconv.Atoi(string(raw))
	if err != nil {
		return 0, eris.Errorf("%q is not a whole number", raw)
	}
	if year <= 0 {
		return 0, eris.Errorf("%d must be positive", year)
	}
	return year, nil
}

type errorBody struct {
	Error string `json:"error"`
}

func writeError(w http.ResponseWriter, err error) {
	status := pipeline.HTTPStatus(err)
	msg := err.Error()
	if status == http.StatusInternalServerError {
		zap.L().Error("api: request failed", zap.Error(err))
		msg = "internal error"
	}
	writeJSON(w, status, errorBody{Error: msg})
}

func writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	if err := json.NewEncoder(w).Encode(v); err != nil {
		zap.L().Warn("api: encode response", zap.Error(err))
	}
}

func requestLogger(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		start := time.Now()
		ww := middleware.NewWrapResponseWriter(w, r.ProtoMajor)
		next.ServeHTTP(ww, r)
		zap.L().Info("api: request",
			zap.String("request_id", middleware.GetReqID(r.Context())),
			zap.String("method", r.Method),
			zap.String("path", r.URL.Path),
			zap.Int("status", ww.Status()),
			zap.Int("bytes", ww.BytesWritten()),
			zap.Duration("duration", time.Since(start)),
		)
	})
}
