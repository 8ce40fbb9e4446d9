package http

import (
	"context"
	"errors"
	"io/fs"
	"log/slog"
	"net/http"
	"net/url"
	"os"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
	"github.com/go-chi/cors"

	"github.com/sagarc03/zipstream"
)

// Service opens archive transfers. It is implemented by zipstream.ArchiveService.
type Service interface {
	Open(ctx context.Context, id string) (*zipstream.Transfer, error)
}

// CORSConfig configures the optional CORS middleware.
type CORSConfig struct {
	Enabled          bool     `mapstructure:"enabled" yaml:"enabled"`
	AllowedOrigins   []string `mapstructure:"allowed_origins" yaml:"allowed_origins"`
	AllowedMethods   []string `mapstructure:"allowed_methods" yaml:"allowed_methods"`
	AllowedHeaders   []string `mapstructure:"allowed_headers" yaml:"allowed_headers"`
	ExposedHeaders   []string `mapstructure:"exposed_headers" yaml:"exposed_headers"`
	AllowCredentials bool     `mapstructure:"allow_credentials" yaml:"allow_credentials"`
	MaxAge           int      `mapstructure:"max_age" yaml:"max_age"`
}

// HandlerConfig configures a Handler.
type HandlerConfig struct {
	// IndexPath is the HTML file served verbatim at GET /.
	IndexPath string
	CORS      CORSConfig
}

// Handler provides HTTP handlers for the index page and archive downloads.
type Handler struct {
	config  HandlerConfig
	service Service
}

// NewHandler creates a new Handler with the given configuration and service.
func NewHandler(config *HandlerConfig, service Service) *Handler {
	return &Handler{
		config:  *config,
		service: service,
	}
}

// Router returns an http.Handler with all routes configured.
// Archives are served at both /archive/{id}/ and /archive/{id}.
func (h *Handler) Router() http.Handler {
	r := chi.NewRouter()
	r.Use(middleware.Recoverer)
	r.Use(RequestLogger)

	if h.config.CORS.Enabled {
		r.Use(cors.Handler(cors.Options{
			AllowedOrigins:   h.config.CORS.AllowedOrigins,
			AllowedMethods:   h.config.CORS.AllowedMethods,
			AllowedHeaders:   h.config.CORS.AllowedHeaders,
			ExposedHeaders:   h.config.CORS.ExposedHeaders,
			AllowCredentials: h.config.CORS.AllowCredentials,
			MaxAge:           h.config.CORS.MaxAge,
		}))
	}

	r.Get("/", h.handleIndex)
	r.Get("/archive/{id}/", h.handleArchive)
	r.Get("/archive/{id}", h.handleArchive)

	return r
}

func (h *Handler) handleIndex(w http.ResponseWriter, r *http.Request) {
	content, err := os.ReadFile(h.config.IndexPath)
	if err != nil {
		if errors.Is(err, fs.ErrNotExist) {
			writeDefaultNotFound(w)
			return
		}
		HandleError(w, err)
		return
	}

	w.Header().Set("Content-Type", "text/html; charset=utf-8")
	w.WriteHeader(http.StatusOK)
	_, _ = w.Write(content)
}

func (h *Handler) handleArchive(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	id := chi.URLParam(r, "id")
	// chi routes on RawPath when the path holds escapes such as %2F; only then is
	// the parameter still encoded.
	if r.URL.RawPath != "" {
		unescaped, err := url.PathUnescape(id)
		if err != nil {
			HandleError(w, zipstream.ErrInvalidInput)
			return
		}
		id = unescaped
	}

	transfer, err := h.service.Open(ctx, id)
	if err != nil {
		HandleError(w, err)
		return
	}
	defer func() { _ = transfer.Close() }()

	logger := slog.With("request_id", RequestIDFromContext(ctx), "archive_id", id)

	// Headers are committed here. From now on failures only truncate the body.
	w.Header().Set("Content-Type", "application/zip")
	w.Header().Set("Content-Disposition", ContentDisposition(transfer.Filename()))
	w.WriteHeader(http.StatusOK)

	fw := newFlushWriter(w)
	if err := fw.Flush(); err != nil {
		logger.Warn("failed to flush headers", "err", err)
	}

	stats, err := transfer.Stream(ctx, fw)
	attrs := []any{"chunks", stats.Chunks, "bytes", stats.Bytes, "duration", stats.Duration}

	switch {
	case errors.Is(err, context.Canceled), errors.Is(err, context.DeadlineExceeded):
		logger.Warn("download interrupted", append(attrs, "err", err)...)
	case err != nil:
		logger.Error("download failed", append(attrs, "err", err)...)
	default:
		logger.Info("archive sent", attrs...)
	}
}
