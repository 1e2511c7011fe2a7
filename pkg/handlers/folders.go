package handlers

import (
	"encoding/json"
	"errors"
	"log/slog"
	"net/http"

	"github.com/gorilla/mux"

	"github.com/inkstream/note-gateway/pkg/sanitize"
	"github.com/inkstream/note-gateway/pkg/store"
)

// FoldersHandler serves the folder CRUD endpoints. Mutations share the AI
// cache namespace with notes, so they trigger the same invalidation hook.
type FoldersHandler struct {
	store      store.Store
	invalidate func()
	logger     *slog.Logger
}

// NewFoldersHandler creates the folder handler.
func NewFoldersHandler(s store.Store, invalidate func(), logger *slog.Logger) *FoldersHandler {
	if invalidate == nil {
		invalidate = func() {}
	}
	return &FoldersHandler{
		store:      s,
		invalidate: invalidate,
		logger:     logger.With(slog.String("component", "folders_handler")),
	}
}

// ListFolders serves GET /folders.
func (h *FoldersHandler) ListFolders(w http.ResponseWriter, r *http.Request) {
	folders, err := h.store.ListFolders(r.Context())
	if err != nil {
		h.logger.Error("Failed to fetch folders", slog.String("error", err.Error()))
		writeJSONError(w, http.StatusInternalServerError, "Failed to fetch folders")
		return
	}
	writeJSON(w, http.StatusOK, folders)
}

// CreateFolder serves POST /folders.
func (h *FoldersHandler) CreateFolder(w http.ResponseWriter, r *http.Request) {
	var request struct {
		Name string `json:"name"`
	}
	if err := json.NewDecoder(r.Body).Decode(&request); err != nil {
		writeJSONError(w, http.StatusBadRequest, "Invalid JSON body")
		return
	}

	name := sanitize.String(request.Name)
	if name == "" {
		writeJSONError(w, http.StatusBadRequest, "Name is required")
		return
	}

	folder, err := h.store.CreateFolder(r.Context(), name)
	if err != nil {
		h.logger.Error("Failed to create folder", slog.String("error", err.Error()))
		writeJSONError(w, http.StatusInternalServerError, "Failed to create folder")
		return
	}

	h.invalidate()
	writeJSON(w, http.StatusCreated, folder)
}

// DeleteFolder serves DELETE /folders/{id}.
func (h *FoldersHandler) DeleteFolder(w http.ResponseWriter, r *http.Request) {
	err := h.store.DeleteFolder(r.Context(), mux.Vars(r)["id"])
	if errors.Is(err, store.ErrNotFound) {
		writeJSONError(w, http.StatusNotFound, "Folder not found")
		return
	}
	if err != nil {
		h.logger.Error("Failed to delete folder", slog.String("error", err.Error()))
		writeJSONError(w, http.StatusInternalServerError, "Failed to delete folder")
		return
	}

	h.invalidate()
	writeJSON(w, http.StatusOK, map[string]bool{"success": true})
}
