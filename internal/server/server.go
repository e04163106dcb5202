// Package server exposes the upload and query pipeline over HTTP.
package server

import (
	"context"
	"encoding/json"
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"

	"github.com/tablechat/tablechat/internal/config"
	"github.com/tablechat/tablechat/internal/errors"
	"github.com/tablechat/tablechat/internal/ingest"
	"github.com/tablechat/tablechat/internal/logging"
	"github.com/tablechat/tablechat/internal/pipeline"
	"github.com/tablechat/tablechat/internal/storage"
)

// Server wires the ingestor and pipeline behind a chi router.
type Server struct {
	cfg      config.ServerConfig
	backend  *storage.Backend
	pipeline *pipeline.Pipeline
	ingestor *ingest.Ingestor
	logger   *logging.Logger
	router   chi.Router
}

func New(cfg config.ServerConfig, backend *storage.Backend, pipe *pipeline.Pipeline, ingestor *ingest.Ingestor, logger *logging.Logger) *Server {
	if logger == nil {
		logger = logging.GetLogger()
	}

	s := &Server{
		cfg:      cfg,
		backend:  backend,
		pipeline: pipe,
		ingestor: ingestor,
		logger:   logger,
	}

	r := chi.NewRouter()
	r.Use(middleware.RequestID)
	r.Use(middleware.RealIP)
	r.Use(middleware.Recoverer)

	r.Post("/upload", s.handleUpload)
	r.Post("/query", s.handleQuery)
	r.Get("/healthz", s.handleHealth)

	s.router = r

	return s
}

// Handler returns the routing tree, mainly for tests.
func (s *Server) Handler() http.Handler {
	return s.router
}

// ListenAndServe blocks until the context is canceled or the listener
// fails.
func (s *Server) ListenAndServe(ctx context.Context) error {
	srv := &http.Server{
		Addr:         s.cfg.Addr,
		Handler:      s.router,
		ReadTimeout:  parseDuration(s.cfg.ReadTimeout, 30*time.Second),
		WriteTimeout: parseDuration(s.cfg.WriteTimeout, 120*time.Second),
	}

	errCh := make(chan error, 1)
	go func() {
		errCh <- srv.ListenAndServe()
	}()

	s.logger.WithField("addr", s.cfg.Addr).Info("HTTP server listening")

	select {
	case <-ctx.Done():
		shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
		defer cancel()

		return srv.Shutdown(shutdownCtx)
	case err := <-errCh:
		return err
	}
}

func parseDuration(raw string, fallback time.Duration) time.Duration {
	if d, err := time.ParseDuration(raw); err == nil && d > 0 {
		return d
	}

	return fallback
}

type uploadResponse struct {
	UploadID string            `json:"upload_id"`
	Tables   []*ingest.Summary `json:"tables"`
}

// handleUpload accepts one or more files under the multipart field "file"
// and loads each into its own table under a fresh upload namespace.
func (s *Server) handleUpload(w http.ResponseWriter, r *http.Request) {
	maxBytes := int64(s.cfg.MaxUploadSizeMB) << 20
	if maxBytes <= 0 {
		maxBytes = 32 << 20
	}
	r.Body = http.MaxBytesReader(w, r.Body, maxBytes)

	if err := r.ParseMultipartForm(maxBytes); err != nil {
		s.writeError(w, r, errors.Wrap(err, errors.ErrTypeValidation, "failed to parse multipart form"))
		return
	}

	files := r.MultipartForm.File["file"]
	if len(files) == 0 {
		s.writeError(w, r, errors.New(errors.ErrTypeValidation, "no file provided"))
		return
	}

	namespace := ingest.NewNamespace()
	resp := uploadResponse{UploadID: namespace}

	for _, header := range files {
		file, err := header.Open()
		if err != nil {
			s.writeError(w, r, errors.Wrap(err, errors.ErrTypeValidation, "failed to open uploaded file"))
			return
		}

		summary, err := s.ingestor.IngestCSV(r.Context(), namespace, tableName(header.Filename), file)
		_ = file.Close()
		if err != nil {
			s.writeError(w, r, err)
			return
		}

		resp.Tables = append(resp.Tables, summary)
	}

	s.writeJSON(w, http.StatusCreated, resp)
}

// tableName strips the extension from an uploaded filename.
func tableName(filename string) string {
	for i := len(filename) - 1; i >= 0; i-- {
		if filename[i] == '.' {
			return filename[:i]
		}
		if filename[i] == '/' || filename[i] == '\\' {
			break
		}
	}

	return filename
}

type queryRequest struct {
	UploadID string `json:"upload_id"`
	Question string `json:"question"`
}

func (s *Server) handleQuery(w http.ResponseWriter, r *http.Request) {
	var req queryRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		s.writeError(w, r, errors.Wrap(err, errors.ErrTypeValidation, "invalid request body"))
		return
	}

	if req.UploadID == "" || req.Question == "" {
		s.writeError(w, r, errors.New(errors.ErrTypeValidation, "upload_id and question are required"))
		return
	}

	resp, err := s.pipeline.Ask(r.Context(), req.UploadID, req.Question)
	if err != nil {
		s.writeError(w, r, err)
		return
	}

	s.writeJSON(w, http.StatusOK, resp)
}

func (s *Server) handleHealth(w http.ResponseWriter, r *http.Request) {
	if err := s.backend.DB().PingContext(r.Context()); err != nil {
		s.writeJSON(w, http.StatusServiceUnavailable, map[string]string{"status": "unhealthy"})
		return
	}

	s.writeJSON(w, http.StatusOK, map[string]string{"status": "ok"})
}

func (s *Server) writeJSON(w http.ResponseWriter, status int, payload interface{}) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	if err := json.NewEncoder(w).Encode(payload); err != nil {
		s.logger.ErrorWithErr("failed to encode response", err)
	}
}

// writeError maps the error taxonomy onto HTTP statuses. Client-input
// failures carry their message; everything else is logged and returned as
// an opaque 500 so backend details never leak.
func (s *Server) writeError(w http.ResponseWriter, r *http.Request, err error) {
	if errors.IsClientInput(err) {
		status := http.StatusBadRequest
		if errors.IsType(err, errors.ErrTypeNotFound) {
			status = http.StatusNotFound
		}

		s.writeJSON(w, status, map[string]string{"error": err.Error()})
		return
	}

	s.logger.WithField("path", r.URL.Path).ErrorWithErr("request failed", err)
	s.writeJSON(w, http.StatusInternalServerError, map[string]string{"error": "internal server error"})
}
