package api

import (
	"errors"
	"fmt"
	"html"
	"net/http"
	"net/url"
	"strconv"

	"github.com/nuages/nuages/internal/logutil"
	"github.com/nuages/nuages/internal/tagstore"
	"github.com/nuages/nuages/pkg/cloud"
	"github.com/nuages/nuages/pkg/surface"
)

type cloudResponse struct {
	Collection  string        `json:"collection"`
	Options     cloud.Options `json:"options"`
	Order       string        `json:"order"`
	TotalWeight float64       `json:"total_weight"`
	Tags        cloud.Cloud   `json:"tags"`
}

// cloudQuery is the parsed query string of a cloud request.
type cloudQuery struct {
	opts  cloud.Options
	order string
	limit int
}

func (q cloudQuery) key(collection string) string {
	return fmt.Sprintf("%s|%g|%g|%s|%s|%d", collection, q.opts.MinSize, q.opts.MaxSize, q.opts.Mode, q.order, q.limit)
}

func (h *Handler) parseCloudQuery(v url.Values) (cloudQuery, error) {
	q := cloudQuery{opts: h.defaults, order: "rank"}

	if s := v.Get("min"); s != "" {
		f, err := strconv.ParseFloat(s, 64)
		if err != nil {
			return q, fmt.Errorf("min must be a number")
		}
		q.opts.MinSize = f
	}
	if s := v.Get("max"); s != "" {
		f, err := strconv.ParseFloat(s, 64)
		if err != nil {
			return q, fmt.Errorf("max must be a number")
		}
		q.opts.MaxSize = f
	}
	if s := v.Get("mode"); s != "" {
		m, err := cloud.ParseMode(s)
		if err != nil {
			return q, err
		}
		q.opts.Mode = m
	}
	if err := q.opts.Validate(); err != nil {
		return q, err
	}

	switch s := v.Get("order"); s {
	case "", "rank":
	case "label":
		q.order = "label"
	default:
		return q, fmt.Errorf("order must be rank or label")
	}

	if s := v.Get("limit"); s != "" {
		n, err := strconv.Atoi(s)
		if err != nil || n < 0 {
			return q, fmt.Errorf("limit must be a non-negative integer")
		}
		q.limit = n
	}
	return q, nil
}

// computeCloud loads, trims, sizes and orders a collection, going through the cache.
func (h *Handler) computeCloud(r *http.Request, name string, q cloudQuery) (cloud.Cloud, error) {
	key := q.key(name)
	if c := h.cache.Get(key); c != nil {
		logutil.TraceContext(r.Context(), "cloud cache hit", "key", key)
		return c, nil
	}

	gen := h.cache.Generation(name)
	c, err := h.store.ListTags(r.Context(), name)
	if err != nil {
		return nil, err
	}

	// The heaviest tags survive a limit regardless of the final order.
	c.Rank()
	if q.limit > 0 && len(c) > q.limit {
		c = c[:q.limit]
	}
	if err := c.Compute(q.opts); err != nil {
		return nil, err
	}
	if q.order == "label" {
		c.Sort()
	}

	h.cache.Put(name, key, gen, c)
	logutil.TraceContext(r.Context(), "cloud computed", "collection", name, "tags", len(c), "key", key)
	return c, nil
}

func (h *Handler) handleGetCloud(w http.ResponseWriter, r *http.Request) {
	name := tagstore.NormalizeLabel(r.PathValue("name"))

	q, err := h.parseCloudQuery(r.URL.Query())
	if err != nil {
		writeError(w, http.StatusBadRequest, err.Error())
		return
	}

	c, err := h.computeCloud(r, name, q)
	if err != nil {
		h.writeStoreError(w, "failed to compute cloud", err)
		return
	}

	writeJSON(w, http.StatusOK, cloudResponse{
		Collection:  name,
		Options:     q.opts,
		Order:       q.order,
		TotalWeight: c.TotalWeight(),
		Tags:        c,
	})
}

func (h *Handler) handleCloudPage(w http.ResponseWriter, r *http.Request) {
	name := tagstore.NormalizeLabel(r.PathValue("name"))

	q, err := h.parseCloudQuery(r.URL.Query())
	if err != nil {
		http.Error(w, err.Error(), http.StatusBadRequest)
		return
	}
	if r.URL.Query().Get("order") == "" {
		q.order = "label"
	}

	c, err := h.computeCloud(r, name, q)
	if err != nil {
		if errors.Is(err, tagstore.ErrCollectionNotFound) {
			http.NotFound(w, r)
			return
		}
		h.logger.Error("render cloud page", "collection", name, "error", err)
		http.Error(w, "failed to compute cloud", http.StatusInternalServerError)
		return
	}

	w.Header().Set("Content-Type", "text/html; charset=utf-8")
	title := html.EscapeString(name)
	fmt.Fprintf(w, "<!DOCTYPE html>\n<html>\n<head><meta charset=\"utf-8\"><title>%s</title></head>\n<body>\n", title)
	if err := (&surface.HTMLRenderer{Title: name}).Render(w, c); err != nil {
		h.logger.Error("render cloud page", "collection", name, "error", err)
	}
	fmt.Fprint(w, "</body>\n</html>\n")
}

func (h *Handler) handleListCollections(w http.ResponseWriter, r *http.Request) {
	collections, err := h.store.ListCollections(r.Context())
	if err != nil {
		h.writeStoreError(w, "failed to list collections", err)
		return
	}
	if collections == nil {
		collections = []tagstore.Collection{}
	}
	writeJSON(w, http.StatusOK, collections)
}

func (h *Handler) writeStoreError(w http.ResponseWriter, msg string, err error) {
	if errors.Is(err, tagstore.ErrCollectionNotFound) {
		writeError(w, http.StatusNotFound, err.Error())
		return
	}
	h.logger.Error(msg, "error", err)
	writeError(w, http.StatusInternalServerError, msg+": "+err.Error())
}
