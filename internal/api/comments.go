package api

import (
	"net/http"

	"github.com/erazemk/nalog/internal/model"
	"github.com/erazemk/nalog/internal/workflow"
)

// CommentsHandler handles comments on records.
type CommentsHandler struct {
	Workflow *workflow.Service
}

type commentRequest struct {
	Content string `json:"content"`
}

func commentPath(w http.ResponseWriter, r *http.Request) (recordID, commentID int64, ok bool) {
	if recordID, ok = pathID(r, "id"); !ok {
		jsonError(w, http.StatusBadRequest, "invalid record id")
		return 0, 0, false
	}
	if commentID, ok = pathID(r, "commentID"); !ok {
		jsonError(w, http.StatusBadRequest, "invalid comment id")
		return 0, 0, false
	}
	return recordID, commentID, true
}

// List handles GET /api/records/{id}/comments.
func (h *CommentsHandler) List(w http.ResponseWriter, r *http.Request) {
	id, ok := pathID(r, "id")
	if !ok {
		jsonError(w, http.StatusBadRequest, "invalid record id")
		return
	}

	comments, err := h.Workflow.ListComments(r.Context(), id)
	if err != nil {
		writeError(w, r, err)
		return
	}
	if comments == nil {
		comments = []model.Comment{}
	}
	jsonResponse(w, http.StatusOK, comments)
}

// Create handles POST /api/records/{id}/comments.
func (h *CommentsHandler) Create(w http.ResponseWriter, r *http.Request) {
	id, ok := pathID(r, "id")
	if !ok {
		jsonError(w, http.StatusBadRequest, "invalid record id")
		return
	}

	var req commentRequest
	if err := decodeJSON(r, &req); err != nil {
		jsonError(w, http.StatusBadRequest, "invalid request body")
		return
	}

	c, err := h.Workflow.AddComment(r.Context(), GetClaims(r.Context()).UserID, id, req.Content)
	if err != nil {
		writeError(w, r, err)
		return
	}
	jsonResponse(w, http.StatusCreated, c)
}

// Update handles PUT /api/records/{id}/comments/{commentID}.
func (h *CommentsHandler) Update(w http.ResponseWriter, r *http.Request) {
	recordID, commentID, ok := commentPath(w, r)
	if !ok {
		return
	}

	var req commentRequest
	if err := decodeJSON(r, &req); err != nil {
		jsonError(w, http.StatusBadRequest, "invalid request body")
		return
	}

	c, err := h.Workflow.UpdateComment(r.Context(), GetClaims(r.Context()).UserID, recordID, commentID, req.Content)
	if err != nil {
		writeError(w, r, err)
		return
	}
	jsonResponse(w, http.StatusOK, c)
}

// Delete handles DELETE /api/records/{id}/comments/{commentID}.
func (h *CommentsHandler) Delete(w http.ResponseWriter, r *http.Request) {
	recordID, commentID, ok := commentPath(w, r)
	if !ok {
		return
	}

	if err := h.Workflow.DeleteComment(r.Context(), GetClaims(r.Context()).UserID, recordID, commentID); err != nil {
		writeError(w, r, err)
		return
	}
	jsonResponse(w, http.StatusOK, map[string]string{"message": "comment deleted"})
}
