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

// NotesHandler serves the note CRUD endpoints. Successful mutations call
// the invalidate hook: cached AI responses were computed from note content
// that no longer exists in that form.
type NotesHandler struct {
	store      store.Store
	invalidate func()
	logger     *slog.Logger
}

// NewNotesHandler creates the CRUD handler. invalidate is called after
// every successful mutation.
func NewNotesHandler(s store.Store, invalidate func(), logger *slog.Logger) *NotesHandler {
	if invalidate == nil {
		invalidate = func() {}
	}
	return &NotesHandler{
		store:      s,
		invalidate: invalidate,
		logger:     logger.With(slog.String("component", "notes_handler")),
	}
}

type noteRequest struct {
	Title    string   `json:"title"`
	Content  string   `json:"content"`
	Tags     []string `json:"tags"`
	FolderID *string  `json:"folderId"`
}

func (nr noteRequest) toInput() store.NoteInput {
	return store.NoteInput{
		Title:    sanitize.String(nr.Title),
		Content:  sanitize.String(nr.Content),
		Tags:     nr.Tags,
		FolderID: nr.FolderID,
	}
}

// ListNotes serves GET /notes?sort=newest|oldest.
func (h *NotesHandler) ListNotes(w http.ResponseWriter, r *http.Request) {
	sortOrder := r.URL.Query().Get("sort")
	if sortOrder != "oldest" {
		sortOrder = "newest"
	}

	notes, err := h.store.ListNotes(r.Context(), sortOrder)
	if err != nil {
		h.serverError(w, "Failed to fetch notes", err)
		return
	}
	writeJSON(w, http.StatusOK, notes)
}

// GetNote serves GET /notes/{id}.
func (h *NotesHandler) GetNote(w http.ResponseWriter, r *http.Request) {
	note, err := h.store.GetNote(r.Context(), mux.Vars(r)["id"])
	if errors.Is(err, store.ErrNotFound) {
		writeJSONError(w, http.StatusNotFound, "Note not found")
		return
	}
	if err != nil {
		h.serverError(w, "Failed to fetch note", err)
		return
	}
	writeJSON(w, http.StatusOK, note)
}

// CreateNote serves POST /notes.
func (h *NotesHandler) CreateNote(w http.ResponseWriter, r *http.Request) {
	var request noteRequest
	if err := json.NewDecoder(r.Body).Decode(&request); err != nil {
		writeJSONError(w, http.StatusBadRequest, "Invalid JSON body")
		return
	}

	input := request.toInput()
	if input.Title == "" {
		writeJSONError(w, http.StatusBadRequest, "Title is required")
		return
	}

	note, err := h.store.CreateNote(r.Context(), input)
	if err != nil {
		h.serverError(w, "Failed to create note", err)
		return
	}

	h.invalidate()
	writeJSON(w, http.StatusCreated, note)
}

// UpdateNote serves PUT /notes/{id}.
func (h *NotesHandler) UpdateNote(w http.ResponseWriter, r *http.Request) {
	var request noteRequest
	if err := json.NewDecoder(r.Body).Decode(&request); err != nil {
		writeJSONError(w, http.StatusBadRequest, "Invalid JSON body")
		return
	}

	input := request.toInput()
	if input.Title == "" {
		writeJSONError(w, http.StatusBadRequest, "Title is required")
		return
	}

	note, err := h.store.UpdateNote(r.Context(), mux.Vars(r)["id"], input)
	if errors.Is(err, store.ErrNotFound) {
		writeJSONError(w, http.StatusNotFound, "Note not found")
		return
	}
	if err != nil {
		h.serverError(w, "Failed to update note", err)
		return
	}

	h.invalidate()
	writeJSON(w, http.StatusOK, note)
}

// DeleteNote serves DELETE /notes/{id}.
func (h *NotesHandler) DeleteNote(w http.ResponseWriter, r *http.Request) {
	err := h.store.DeleteNote(r.Context(), mux.Vars(r)["id"])
	if errors.Is(err, store.ErrNotFound) {
		writeJSONError(w, http.StatusNotFound, "Note not found")
		return
	}
	if err != nil {
		h.serverError(w, "Failed to delete note", err)
		return
	}

	h.invalidate()
	writeJSON(w, http.StatusOK, map[string]bool{"success": true})
}

func (h *NotesHandler) serverError(w http.ResponseWriter, message string, err error) {
	h.logger.Error(message, slog.String("error", err.Error()))
	writeJSONError(w, http.StatusInternalServerError, message)
}

func writeJSON(w http.ResponseWriter, status int, payload interface{}) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	json.NewEncoder(w).Encode(payload)
}

func writeJSONError(w http.ResponseWriter, status int, message string) {
	writeJSON(w, status, map[string]string{"error": message})
}
