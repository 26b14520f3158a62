package api

import (
	"errors"
	"net/http"

	"github.com/go-chi/chi/v5"

	"github.com/starford/coldcases/internal/apperr"
)

// PhotoResolver maps a photo file name to a path on disk. *storage.FS
// implements it.
type PhotoResolver interface {
	PhotoPath(name string) (string, error)
}

// PhotoHandler serves case photos.
type PhotoHandler struct {
	photos PhotoResolver
}

// NewPhotoHandler creates a handler backed by photos.
func NewPhotoHandler(photos PhotoResolver) *PhotoHandler {
	return &PhotoHandler{photos: photos}
}

// ServeFile handles GET /photos/{filename}. A missing photo is a 404 so the
// viewer can hide the image.
func (h *PhotoHandler) ServeFile(w http.ResponseWriter, r *http.Request) {
	filename := chi.URLParam(r, "filename")
	abs, err := h.photos.PhotoPath(filename)
	if err != nil {
		if errors.Is(err, apperr.ErrNotFound) {
			http.NotFound(w, r)
			return
		}
		http.Error(w, err.Error(), http.StatusBadRequest)
		return
	}
	w.Header().Set("Cache-Control", "public, max-age=3600")
	http.ServeFile(w, r, abs)
}
