package api

import (
	"bytes"
	"compress/gzip"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"

	"github.com/google/uuid"

	"github.com/nuages/nuages/internal/tagstore"
)

// maxIngestBody bounds an ingest request body after decompression.
const maxIngestBody = 8 << 20

// ingestRequest is the JSON body for POST /api/v1/collections/{name}/tags.
type ingestRequest struct {
	Mode string               `json:"mode"` // add (default) or set
	Tags []tagstore.TagWeight `json:"tags"`
}

type ingestResponse struct {
	Collection string `json:"collection"`
	Updated    int    `json:"updated"`
	BatchID    string `json:"batch_id,omitempty"`
}

func (h *Handler) handleIngestTags(w http.ResponseWriter, r *http.Request) {
	name := tagstore.NormalizeLabel(r.PathValue("name"))
	if name == "" {
		writeError(w, http.StatusBadRequest, "collection name is required")
		return
	}

	// Support gzip-compressed request bodies
	var body io.Reader = r.Body
	if r.Header.Get("Content-Encoding") == "gzip" {
		gz, err := gzip.NewReader(r.Body)
		if err != nil {
			writeError(w, http.StatusBadRequest, "invalid gzip body: "+err.Error())
			return
		}
		defer gz.Close()
		body = gz
	}

	data, err := io.ReadAll(io.LimitReader(body, maxIngestBody+1))
	if err != nil {
		writeError(w, http.StatusBadRequest, "failed to read body: "+err.Error())
		return
	}
	if len(data) > maxIngestBody {
		writeError(w, http.StatusRequestEntityTooLarge, "request body too large")
		return
	}

	var req ingestRequest
	dec := json.NewDecoder(bytes.NewReader(data))
	dec.DisallowUnknownFields()
	if err := dec.Decode(&req); err != nil {
		writeError(w, http.StatusBadRequest, "invalid request body: "+err.Error())
		return
	}

	ctx := r.Context()
	var n int
	switch req.Mode {
	case "", "add":
		n, err = h.store.AddWeights(ctx, name, req.Tags)
	case "set":
		n, err = h.store.SetWeights(ctx, name, req.Tags)
	default:
		writeError(w, http.StatusBadRequest, fmt.Sprintf("mode must be add or set, got %q", req.Mode))
		return
	}
	if errors.Is(err, tagstore.ErrInvalidTags) {
		writeError(w, http.StatusBadRequest, err.Error())
		return
	}
	if err != nil {
		h.writeStoreError(w, "failed to store tags", err)
		return
	}
	h.cache.Invalidate(name)

	resp := ingestResponse{Collection: name, Updated: n}
	if h.blobs != nil && n > 0 {
		batchID := uuid.New().String()
		if err := h.blobs.PutDataset(ctx, name, batchID, data); err != nil {
			// The weights are already committed; the archive is best effort.
			h.logger.Warn("archive batch", "collection", name, "error", err)
		} else {
			resp.BatchID = batchID
		}
	}

	h.logger.Info("ingested tags", "collection", name, "mode", req.Mode, "updated", n)
	writeJSON(w, http.StatusOK, resp)
}

func (h *Handler) handleDeleteCollection(w http.ResponseWriter, r *http.Request) {
	name := r.PathValue("name")

	if err := h.store.DeleteCollection(r.Context(), name); err != nil {
		h.writeStoreError(w, "failed to delete collection", err)
		return
	}
	h.cache.Invalidate(tagstore.NormalizeLabel(name))

	writeJSON(w, http.StatusOK, map[string]string{"status": "deleted"})
}
