package server

import (
	"io"
	"log/slog"
	"net/http"
	"strings"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
)

const maxBodyBytes = 64 << 10

type handler struct {
	store *Store
	valid *validator
	log   *slog.Logger
}

type createRequest struct {
	Title string `json:"title"`
}

type patchRequest struct {
	Title  *string `json:"title"`
	Status *string `json:"status"`
}

type reorderRequest struct {
	OldPosition int    `json:"oldPosition"`
	NewPosition int    `json:"newPosition"`
	Status      string `json:"status"`
}

func (h *handler) list(w http.ResponseWriter, r *http.Request) {
	tasks, err := h.store.List(r.Context(), ownerFrom(r.Context()))
	if err != nil {
		h.fail(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, tasks)
}

func (h *handler) create(w http.ResponseWriter, r *http.Request) {
	var req createRequest
	if !h.read(w, r, schemaCreate, &req) {
		return
	}
	task, err := h.store.Create(r.Context(), ownerFrom(r.Context()), strings.TrimSpace(req.Title))
	if err != nil {
		h.fail(w, r, err)
		return
	}
	writeJSON(w, http.StatusCreated, task)
}

func (h *handler) remove(w http.ResponseWriter, r *http.Request) {
	if err := h.store.Delete(r.Context(), ownerFrom(r.Context()), chi.URLParam(r, "id")); err != nil {
		h.fail(w, r, err)
		return
	}
	w.WriteHeader(http.StatusNoContent)
}

func (h *handler) patch(w http.ResponseWriter, r *http.Request) {
	var req patchRequest
	if !h.read(w, r, schemaPatch, &req) {
		return
	}
	if req.Title != nil {
		title := strings.TrimSpace(*req.Title)
		req.Title = &title
	}
	task, err := h.store.Patch(r.Context(), ownerFrom(r.Context()), chi.URLParam(r, "id"), req.Title, req.Status)
	if err != nil {
		h.fail(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, task)
}

func (h *handler) reorder(w http.ResponseWriter, r *http.Request) {
	var req reorderRequest
	if !h.read(w, r, schemaReorder, &req) {
		return
	}
	task, err := h.store.Reorder(r.Context(), ownerFrom(r.Context()), chi.URLParam(r, "id"),
		req.OldPosition, req.NewPosition, req.Status)
	if err != nil {
		h.fail(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, task)
}

// read validates and decodes the request body. It writes the error response
// and returns false on failure.
func (h *handler) read(w http.ResponseWriter, r *http.Request, schema string, dst any) bool {
	body, err := io.ReadAll(http.MaxBytesReader(w, r.Body, maxBodyBytes))
	if err != nil {
		writeError(w, http.StatusBadRequest, "read body: "+err.Error())
		return false
	}
	if err := h.valid.decode(schema, body, dst); err != nil {
		h.fail(w, r, err)
		return false
	}
	return true
}

func (h *handler) fail(w http.ResponseWriter, r *http.Request, err error) {
	code := statusFor(err)
	msg := err.Error()
	if code == http.StatusInternalServerError {
		h.log.Error("request failed", "request_id", middleware.GetReqID(r.Context()), "error", err)
		msg = http.StatusText(code)
	}
	writeError(w, code, msg)
}
