package storage

import (
	"errors"
	"log/slog"
	"net/http"
	"strconv"
	"time"

	"github.com/go-chi/chi/v5"

	"github.com/mercato-admin/mercato-admin/internal/platform/httpx"
)

// Handler serves the image upload endpoints used by the product form.
type Handler struct {
	logger *slog.Logger
	store  *ImageStore
}

// NewHandler builds the upload handler.
func NewHandler(logger *slog.Logger, store *ImageStore) *Handler {
	return &Handler{logger: logger, store: store}
}

// MountRoutes registers upload routes.
func (h *Handler) MountRoutes(r chi.Router) {
	r.Post("/uploads", h.uploadSingle)
	r.Post("/uploads/chunk", h.uploadChunk)
	r.Post("/uploads/merge", h.mergeChunks)
}

func (h *Handler) uploadSingle(w http.ResponseWriter, r *http.Request) {
	file, header, err := r.FormFile("file")
	if err != nil {
		h.fail(w, http.StatusBadRequest, "missing upload file")
		return
	}
	defer file.Close()

	img, err := h.store.SaveFile(file, header.Filename, time.Now())
	if err != nil {
		h.storeError(w, err)
		return
	}
	httpx.JSON(w, http.StatusOK, map[string]any{"ok": true, "image": img})
}

func (h *Handler) uploadChunk(w http.ResponseWriter, r *http.Request) {
	file, _, err := r.FormFile("file")
	if err != nil {
		h.fail(w, http.StatusBadRequest, "missing upload file")
		return
	}
	defer file.Close()

	fileCode := r.FormValue("fileCode")
	if fileCode == "" {
		fileCode = NewFileCode()
	}
	chunkIndex, err := strconv.Atoi(r.FormValue("chunkIndex"))
	if err != nil {
		h.fail(w, http.StatusBadRequest, "invalid chunk index")
		return
	}

	if err := h.store.SaveChunk(file, fileCode, chunkIndex); err != nil {
		h.storeError(w, err)
		return
	}
	httpx.JSON(w, http.StatusOK, map[string]any{"ok": true, "fileCode": fileCode, "chunkIndex": chunkIndex})
}

func (h *Handler) mergeChunks(w http.ResponseWriter, r *http.Request) {
	fileCode := r.FormValue("fileCode")
	fileName := r.FormValue("fileName")
	totalChunks, _ := strconv.Atoi(r.FormValue("totalChunks"))

	img, err := h.store.MergeChunks(fileCode, fileName, totalChunks, time.Now())
	if err != nil {
		h.storeError(w, err)
		return
	}
	httpx.JSON(w, http.StatusOK, map[string]any{"ok": true, "image": img})
}

func (h *Handler) storeError(w http.ResponseWriter, err error) {
	switch {
	case errors.Is(err, ErrInvalidRequest), errors.Is(err, ErrBadExtension), errors.Is(err, ErrMissingChunk):
		h.fail(w, http.StatusBadRequest, err.Error())
	case errors.Is(err, ErrChunkTooLarge), errors.Is(err, ErrFileTooLarge):
		h.fail(w, http.StatusRequestEntityTooLarge, err.Error())
	default:
		h.logger.Error("upload failed", slog.Any("error", err))
		h.fail(w, http.StatusInternalServerError, "upload failed")
	}
}

func (h *Handler) fail(w http.ResponseWriter, status int, message string) {
	httpx.JSON(w, status, map[string]any{"ok": false, "error": message})
}
