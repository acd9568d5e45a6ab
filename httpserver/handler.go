package httpserver

import (
	"encoding/json"
	"errors"
	"log/slog"
	"net/http"

	"github.com/go-chi/chi/v5"
	"github.com/ruteri/toolstate-pipeline/interfaces"
	"github.com/ruteri/toolstate-pipeline/metrics"
)

// Handler serves the read-only toolstate status API over an artifact store.
type Handler struct {
	store interfaces.ArtifactStore
	log   *slog.Logger
}

// NewHandler creates a status API handler.
func NewHandler(store interfaces.ArtifactStore, log *slog.Logger) *Handler {
	return &Handler{store: store, log: log}
}

// ToolInfo is one entry of the tool listing response.
type ToolInfo struct {
	Name    string `json:"name"`
	Version string `json:"version"`
	Key     string `json:"key"`
}

// HandleManifest serves the successful-builds manifest as plain text.
func (h *Handler) HandleManifest(w http.ResponseWriter, r *http.Request) {
	metrics.StatusRequests.WithLabelValues("manifest").Inc()

	manifest, err := h.store.FetchManifest(r.Context())
	if err != nil {
		h.log.Error("Failed to fetch manifest", "err", err)
		metrics.StoreOperationErrors.WithLabelValues("fetch_manifest").Inc()
		http.Error(w, "failed to fetch manifest", http.StatusBadGateway)
		return
	}

	w.Header().Set("Content-Type", "text/plain")
	w.WriteHeader(http.StatusOK)
	w.Write([]byte(manifest))
}

// HandleToolListing serves the current channel of one platform as JSON.
func (h *Handler) HandleToolListing(w http.ResponseWriter, r *http.Request) {
	metrics.StatusRequests.WithLabelValues("tool_listing").Inc()

	platform, err := interfaces.ParsePlatform(chi.URLParam(r, "platform"))
	if err != nil {
		http.Error(w, err.Error(), http.StatusBadRequest)
		return
	}

	keys, err := h.store.List(r.Context(), platform, interfaces.ChannelCurrent)
	if err != nil {
		if errors.Is(err, interfaces.ErrBackendUnavailable) {
			http.Error(w, "store unavailable", http.StatusBadGateway)
			return
		}
		h.log.Error("Failed to list current tools",
			slog.String("platform", string(platform)),
			"err", err)
		metrics.StoreOperationErrors.WithLabelValues("list").Inc()
		http.Error(w, "failed to list tools", http.StatusInternalServerError)
		return
	}

	tools := make([]ToolInfo, 0, len(keys))
	for _, key := range keys {
		tools = append(tools, ToolInfo{
			Name:    key.Name,
			Version: key.Version,
			Key:     key.ObjectKey(),
		})
	}

	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(http.StatusOK)
	if err := json.NewEncoder(w).Encode(tools); err != nil {
		h.log.Error("Failed to encode tool listing", "err", err)
	}
}
