// Package routes is the HTTP surface of slidepack.
package routes

import (
	"encoding/json"
	"errors"
	"net/http"
	"time"

	"slidepack/assembler"
	"slidepack/config"
	"slidepack/fetcher"
	"slidepack/ledger"
	"slidepack/locator"
	"slidepack/logger"
	"slidepack/mirror"
	"slidepack/models"
	"slidepack/retention"
	"slidepack/retry"
	"slidepack/storage"
)

// Server carries everything the handlers need. Nothing is package global.
type Server struct {
	Config    *config.Config
	Dirs      *storage.Dirs
	Locator   *locator.Locator
	Fetcher   *fetcher.Fetcher
	Assembler *assembler.Assembler
	Ledger    *ledger.Ledger
	Scheduler *retention.Scheduler
	Publisher *mirror.Publisher

	started time.Time
}

// New wires a Server from configuration and the long lived stores.
// pub may be nil when no mirrors are configured.
func New(cfg *config.Config, dirs *storage.Dirs, led *ledger.Ledger, sched *retention.Scheduler, pub *mirror.Publisher) *Server {
	client := &http.Client{}
	policy := retry.Policy{
		MaxAttempts: cfg.FetchAttempts,
		Backoff:     retry.Proportional(cfg.FetchBackoff.Duration),
		Timeout:     cfg.FetchTimeout.Duration,
	}

	return &Server{
		Config:    cfg,
		Dirs:      dirs,
		Locator:   locator.New(client, cfg.UserAgent, cfg.PageTimeout.Duration),
		Fetcher:   fetcher.New(client, policy, cfg.Concurrency, cfg.UserAgent),
		Assembler: assembler.New(dirs.Downloads),
		Ledger:    led,
		Scheduler: sched,
		Publisher: pub,
		started:   time.Now(),
	}
}

// Handler returns the routed, CORS wrapped handler.
func (s *Server) Handler() http.Handler {
	mux := http.NewServeMux()
	mux.HandleFunc("POST /api/get-slides", s.GetSlidesHandler)
	mux.HandleFunc("POST /api/generate-file", s.GenerateHandler)
	mux.HandleFunc("GET /downloads/{filename}", s.DownloadHandler)
	mux.HandleFunc("DELETE /downloads/{filename}", s.DeleteDownloadHandler)
	mux.HandleFunc("GET /api/artifacts", s.ArtifactStatusHandler)
	mux.HandleFunc("GET /api/failures", s.FailureListHandler)
	mux.HandleFunc("GET /health", s.HealthHandler)
	mux.HandleFunc("GET /version", VersionHandler)

	if s.Config.StaticDir != "" {
		logger.Infof("Serving static files from %s", s.Config.StaticDir)
		mux.Handle("/", http.FileServer(http.Dir(s.Config.StaticDir)))
	}
	return corsMiddleware(mux)
}

// statusFor maps an error kind to its HTTP status.
func statusFor(err error) int {
	switch {
	case errors.Is(err, models.ErrValidation):
		return http.StatusBadRequest
	case errors.Is(err, models.ErrNotFound):
		return http.StatusNotFound
	default:
		return http.StatusInternalServerError
	}
}

func writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	if err := json.NewEncoder(w).Encode(v); err != nil {
		logger.Errorf("Failed to encode response: %v", err)
	}
}

func writeError(w http.ResponseWriter, err error) {
	status := statusFor(err)
	if status >= http.StatusInternalServerError {
		logger.Errorf("Request failed: %v", err)
	} else {
		logger.Warnf("Request rejected: %v", err)
	}
	writeJSON(w, status, models.ErrorResponse{Error: err.Error()})
}

// decodeBody reads a bounded JSON body into v.
func (s *Server) decodeBody(w http.ResponseWriter, r *http.Request, v any) error {
	body := http.MaxBytesReader(w, r.Body, s.Config.MaxRequestBody)
	if err := json.NewDecoder(body).Decode(v); err != nil {
		return models.Validationf("Invalid request body: %v", err)
	}
	return nil
}
