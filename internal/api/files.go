package api

import (
	"errors"
	"io"
	"net/http"
	"strconv"

	"github.com/erazemk/inventar/internal/blob"
)

// FilesHandler serves stored attachments when no public URL is configured.
type FilesHandler struct {
	Blobs blob.Store
}

// Get handles GET /api/files/{key...}.
func (h *FilesHandler) Get(w http.ResponseWriter, r *http.Request) {
	key := r.PathValue("key")
	if h.Blobs == nil || !blob.ValidKey(key) {
		jsonError(w, http.StatusNotFound, "file not found")
		return
	}

	info, body, err := h.Blobs.Get(r.Context(), key)
	if errors.Is(err, blob.ErrNotFound) {
		jsonError(w, http.StatusNotFound, "file not found")
		return
	}
	if err != nil {
		writeError(w, r, err)
		return
	}
	defer body.Close()

	contentType := info.ContentType
	if contentType == "" {
		contentType = "application/octet-stream"
	}
	w.Header().Set("Content-Type", contentType)
	if info.Size > 0 {
		w.Header().Set("Content-Length", strconv.FormatInt(info.Size, 10))
	}
	w.Header().Set("Cache-Control", "private, max-age=3600")
	w.WriteHeader(http.StatusOK)
	io.Copy(w, body)
}
