// Package api implements the nuages REST API.
// It serves computed tag clouds from a TagStore and accepts weight updates.
package api

import (
	"context"
	"encoding/json"
	"log/slog"
	"net/http"

	"github.com/nuages/nuages/internal/storage"
	"github.com/nuages/nuages/internal/tagstore"
	"github.com/nuages/nuages/pkg/cloud"
)

// TagStore is the persistence the API reads and writes tag weights through.
// tagstore.Service and MemoryStore implement it.
type TagStore interface {
	ListCollections(ctx context.Context) ([]tagstore.Collection, error)
	AddWeights(ctx context.Context, collection string, tags []tagstore.TagWeight) (int, error)
	SetWeights(ctx context.Context, collection string, tags []tagstore.TagWeight) (int, error)
	ListTags(ctx context.Context, collection string) (cloud.Cloud, error)
	DeleteCollection(ctx context.Context, collection string) error
}

// Handler is the top-level API handler for the nuages service.
type Handler struct {
	store    TagStore
	blobs    storage.Client
	cache    *CloudCache
	defaults cloud.Options
	logger   *slog.Logger
}

// Options configures a Handler. Zero values fall back to defaults.
type Options struct {
	Blobs    storage.Client // ingested batches are archived here when set
	Cache    *CloudCache
	Defaults cloud.Options
	Logger   *slog.Logger
}

// NewHandler creates a new API handler.
func NewHandler(store TagStore, opts Options) *Handler {
	if opts.Cache == nil {
		opts.Cache = NewCloudCacheFromEnv()
	}
	if opts.Defaults == (cloud.Options{}) {
		opts.Defaults = cloud.DefaultOptions()
	}
	if opts.Logger == nil {
		opts.Logger = slog.Default()
	}
	return &Handler{
		store:    store,
		blobs:    opts.Blobs,
		cache:    opts.Cache,
		defaults: opts.Defaults,
		logger:   opts.Logger,
	}
}

// RegisterRoutes registers all API routes on the given ServeMux.
// Write endpoints require apiKey when it is non-empty.
func (h *Handler) RegisterRoutes(mux *http.ServeMux, apiKey string) {
	auth := APIKeyAuth(apiKey)

	// Write endpoints (auth-protected)
	mux.Handle("POST /api/v1/collections/{name}/tags", auth(http.HandlerFunc(h.handleIngestTags)))
	mux.Handle("DELETE /api/collections/{name}", auth(http.HandlerFunc(h.handleDeleteCollection)))

	// Read endpoints
	mux.HandleFunc("GET /api/collections", h.handleListCollections)
	mux.HandleFunc("GET /api/collections/{name}/cloud", h.handleGetCloud)
	mux.HandleFunc("GET /clouds/{name}", h.handleCloudPage)
	mux.HandleFunc("GET /healthz", h.handleHealth)
}

func (h *Handler) handleHealth(w http.ResponseWriter, r *http.Request) {
	if p, ok := h.store.(interface{ Ping(context.Context) error }); ok {
		if err := p.Ping(r.Context()); err != nil {
			writeError(w, http.StatusServiceUnavailable, "database unreachable")
			return
		}
	}
	writeJSON(w, http.StatusOK, map[string]string{"status": "ok"})
}

func writeJSON(w http.ResponseWriter, status int, data any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	enc := json.NewEncoder(w)
	enc.SetIndent("", "  ")
	_ = enc.Encode(data)
}

func writeError(w http.ResponseWriter, status int, msg string) {
	writeJSON(w, status, map[string]string{"error": msg})
}

// Routes builds the complete HTTP handler with CORS and request logging.
func (h *Handler) Routes(apiKey string, allowedOrigins []string) http.Handler {
	mux := http.NewServeMux()
	h.RegisterRoutes(mux, apiKey)
	return RequestLogger(h.logger)(CORS(allowedOrigins)(mux))
}
