// Package handlers exposes the cache over HTTP: health, stats and direct
// key operations. Payloads are opaque JSON; the cache only timestamps them.
package handlers

import (
	"encoding/json"
	"io"
	"net/http"
	"time"

	"github.com/gorilla/mux"

	"readcache/internal/cache"
	"readcache/internal/common/logging"
)

// defaultReadTTL applies when a get request carries no ttl parameter.
const defaultReadTTL = time.Minute

// maxPayloadBytes bounds cached payload size.
const maxPayloadBytes = 1 << 20

// Handlers holds the HTTP handlers' dependencies
type Handlers struct {
	cache  *cache.Cache[json.RawMessage]
	logger logging.Logger
}

// New creates the handler set over the given cache.
func New(c *cache.Cache[json.RawMessage], logger logging.Logger) *Handlers {
	return &Handlers{
		cache:  c,
		logger: logger.WithFields(logging.Field{Key: "component", Value: "handlers"}),
	}
}

// Register attaches all routes to the router.
func (h *Handlers) Register(router *mux.Router) {
	router.HandleFunc("/health", h.HealthCheck).Methods("GET")

	api := router.PathPrefix("/api").Subrouter()
	api.HandleFunc("/stats", h.GetStats).Methods("GET")
	api.HandleFunc("/cache/clear", h.ClearCache).Methods("POST")
	api.HandleFunc("/cache/{key}", h.GetCacheEntry).Methods("GET")
	api.HandleFunc("/cache/{key}", h.SetCacheEntry).Methods("PUT")
	api.HandleFunc("/cache/{key}", h.DeleteCacheEntry).Methods("DELETE")
}

// HealthCheck reports liveness. The cache has no failure modes of its own,
// so this always answers ok; remote health is visible through /api/stats.
func (h *Handlers) HealthCheck(w http.ResponseWriter, r *http.Request) {
	h.writeJSON(w, http.StatusOK, map[string]string{"status": "ok"})
}

// GetStats returns the cache health projection.
func (h *Handlers) GetStats(w http.ResponseWriter, r *http.Request) {
	h.writeJSON(w, http.StatusOK, h.cache.Stats())
}

// GetCacheEntry reads a key. The caller owns freshness policy: an optional
// ttl query parameter (Go duration syntax) sets the staleness threshold, and
// stale=true skips the freshness test entirely.
func (h *Handlers) GetCacheEntry(w http.ResponseWriter, r *http.Request) {
	key := mux.Vars(r)["key"]

	if r.URL.Query().Get("stale") == "true" {
		value, ok := h.cache.GetIgnoringTTL(r.Context(), key)
		h.writeLookup(w, key, value, ok)
		return
	}

	ttl := defaultReadTTL
	if raw := r.URL.Query().Get("ttl"); raw != "" {
		parsed, err := time.ParseDuration(raw)
		if err != nil || parsed <= 0 {
			h.writeJSON(w, http.StatusBadRequest, map[string]string{"error": "ttl must be a positive duration"})
			return
		}
		ttl = parsed
	}

	value, ok := h.cache.Get(r.Context(), key, ttl)
	h.writeLookup(w, key, value, ok)
}

// SetCacheEntry stores the request body under a key. An optional ttl query
// parameter becomes the remote tier's native expiry.
func (h *Handlers) SetCacheEntry(w http.ResponseWriter, r *http.Request) {
	key := mux.Vars(r)["key"]

	var ttl time.Duration
	if raw := r.URL.Query().Get("ttl"); raw != "" {
		parsed, err := time.ParseDuration(raw)
		if err != nil || parsed < 0 {
			h.writeJSON(w, http.StatusBadRequest, map[string]string{"error": "ttl must be a non-negative duration"})
			return
		}
		ttl = parsed
	}

	body, err := io.ReadAll(io.LimitReader(r.Body, maxPayloadBytes+1))
	if err != nil {
		h.writeJSON(w, http.StatusBadRequest, map[string]string{"error": "failed to read body"})
		return
	}
	if len(body) > maxPayloadBytes {
		h.writeJSON(w, http.StatusRequestEntityTooLarge, map[string]string{"error": "payload too large"})
		return
	}
	if !json.Valid(body) {
		h.writeJSON(w, http.StatusBadRequest, map[string]string{"error": "body must be valid JSON"})
		return
	}

	h.cache.Set(r.Context(), key, json.RawMessage(body), ttl)
	w.WriteHeader(http.StatusNoContent)
}

// DeleteCacheEntry removes a key from both tiers.
func (h *Handlers) DeleteCacheEntry(w http.ResponseWriter, r *http.Request) {
	key := mux.Vars(r)["key"]
	h.cache.Delete(r.Context(), key)
	w.WriteHeader(http.StatusNoContent)
}

// ClearCache empties both tiers.
func (h *Handlers) ClearCache(w http.ResponseWriter, r *http.Request) {
	h.cache.Clear(r.Context())
	w.WriteHeader(http.StatusNoContent)
}

func (h *Handlers) writeLookup(w http.ResponseWriter, key string, value json.RawMessage, ok bool) {
	if !ok {
		h.writeJSON(w, http.StatusNotFound, map[string]string{"error": "not found", "key": key})
		return
	}
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(http.StatusOK)
	if _, err := w.Write(value); err != nil {
		h.logger.Warn("failed to write response",
			logging.Field{Key: "key", Value: key},
			logging.Field{Key: "error", Value: err.Error()})
	}
}

func (h *Handlers) writeJSON(w http.ResponseWriter, status int, payload interface{}) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	if err := json.NewEncoder(w).Encode(payload); err != nil {
		h.logger.Warn("failed to encode response",
			logging.Field{Key: "error", Value: err.Error()})
	}
}
