package server

import (
	"errors"
	"fmt"
	"log/slog"
	"net/http"
	"strings"

	"github.com/dustin/go-humanize"
	"github.com/gin-gonic/gin"

	"github.com/openmirror/drivebox/internal/server/storage"
)

type Handler struct {
	store *storage.Storage
}

func NewHandler(store *storage.Storage) *Handler {
	return &Handler{store: store}
}

// pathParam pulls the wildcard path parameter and strips the leading slash
// gin leaves on it.
func pathParam(ctx *gin.Context) string {
	return strings.TrimPrefix(ctx.Param("path"), "/")
}

// ListFiles returns the full storage inventory.
func (h *Handler) ListFiles(ctx *gin.Context) {
	items, err := h.store.List()
	if err != nil {
		slog.Error("list storage", "error", err)
		ctx.PureJSON(http.StatusInternalServerError, gin.H{
			"error": "server error: could not list storage",
		})
		return
	}
	ctx.PureJSON(http.StatusOK, items)
}

// Upload stores a file from the multipart "file" field, or creates a
// directory when the is_directory form field is set. Directory creation is
// idempotent.
func (h *Handler) Upload(ctx *gin.Context) {
	relPath := pathParam(ctx)

	if ctx.PostForm("is_directory") == "true" {
		if err := h.store.MkDir(relPath); err != nil {
			writeStorageError(ctx, err, "could not create directory")
			return
		}
		ctx.PureJSON(http.StatusOK, gin.H{
			"message": fmt.Sprintf("Directory %s created successfully", relPath),
		})
		return
	}

	file, err := ctx.FormFile("file")
	if err != nil {
		ctx.PureJSON(http.StatusBadRequest, gin.H{
			"error": fmt.Sprintf("invalid file: %s", err),
		})
		return
	}

	fd, err := file.Open()
	if err != nil {
		ctx.PureJSON(http.StatusBadRequest, gin.H{
			"error": fmt.Sprintf("invalid file: %s", err),
		})
		return
	}
	defer fd.Close()

	size, err := h.store.Put(relPath, fd)
	if err != nil {
		writeStorageError(ctx, err, "could not persist file")
		return
	}

	slog.Debug("upload", "path", relPath, "size", humanize.Bytes(uint64(size)))
	ctx.PureJSON(http.StatusOK, gin.H{
		"message": fmt.Sprintf("File %s uploaded successfully", relPath),
	})
}

// Download streams a stored file.
func (h *Handler) Download(ctx *gin.Context) {
	relPath := pathParam(ctx)

	f, info, err := h.store.Open(relPath)
	if err != nil {
		writeStorageError(ctx, err, "could not open file")
		return
	}
	defer f.Close()

	ctx.DataFromReader(http.StatusOK, info.Size(), "application/octet-stream", f, map[string]string{
		"Content-Disposition": fmt.Sprintf("attachment; filename=%q", info.Name()),
	})
}

// Delete removes a file or a directory tree. Absent paths answer 404; the
// client treats that as success.
func (h *Handler) Delete(ctx *gin.Context) {
	relPath := pathParam(ctx)

	if err := h.store.Delete(relPath); err != nil {
		writeStorageError(ctx, err, "could not delete")
		return
	}

	ctx.PureJSON(http.StatusOK, gin.H{
		"message": fmt.Sprintf("%s deleted successfully", relPath),
	})
}

func writeStorageError(ctx *gin.Context, err error, fallback string) {
	switch {
	case errors.Is(err, storage.ErrNotFound):
		ctx.PureJSON(http.StatusNotFound, gin.H{"error": "not found"})
	case errors.Is(err, storage.ErrInvalidPath):
		ctx.PureJSON(http.StatusBadRequest, gin.H{"error": "invalid path"})
	default:
		slog.Error("storage error", "error", err)
		ctx.PureJSON(http.StatusInternalServerError, gin.H{
			"error": "server error: " + fallback,
		})
	}
}
