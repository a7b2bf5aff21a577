package httpapi

import (
	"net/http"

	"github.com/dmitrijs2005/ems/internal/server/models"
	"github.com/dmitrijs2005/ems/internal/server/services"
	"github.com/gorilla/mux"
)

type leaveRequest struct {
	LeaveType     string `json:"leave_type"`
	StartDate     string `json:"start_date"`
	EndDate       string `json:"end_date"`
	Reason        string `json:"reason"`
	IsFullDay     bool   `json:"is_full_day"`
	AttachmentKey string `json:"attachment_key"`
}

func (h *Handler) applyLeave(w http.ResponseWriter, r *http.Request) {
	p, _ := PrincipalFrom(r.Context())

	var req leaveRequest
	if err := decodeJSON(w, r, &req); err != nil {
		h.writeError(w, r, "apply_leave", err)
		return
	}

	leave, err := h.leaves.Apply(r.Context(), p.UserID, services.LeaveRequest(req))
	if err != nil {
		h.writeError(w, r, "apply_leave", err)
		return
	}

	writeJSON(w, http.StatusCreated, map[string]any{
		"message":  "Leave request submitted successfully",
		"leave_id": leave.ID,
		"data":     leave,
	})
}

func (h *Handler) listLeaves(w http.ResponseWriter, r *http.Request) {
	p, _ := PrincipalFrom(r.Context())

	leaves, err := h.leaves.ListMine(r.Context(), p.UserID)
	if err != nil {
		h.writeError(w, r, "list_leaves", err)
		return
	}
	writeLeaves(w, leaves)
}

func (h *Handler) listAllLeaves(w http.ResponseWriter, r *http.Request) {
	leaves, err := h.leaves.ListAll(r.Context())
	if err != nil {
		h.writeError(w, r, "list_all_leaves", err)
		return
	}
	writeLeaves(w, leaves)
}

func writeLeaves(w http.ResponseWriter, leaves []*models.Leave) {
	writeJSON(w, http.StatusOK, map[string]any{
		"message": "Leave requests retrieved successfully",
		"count":   len(leaves),
		"data":    leaves,
	})
}

type decideRequest struct {
	Status models.LeaveStatus `json:"status"`
}

func (h *Handler) decideLeave(w http.ResponseWriter, r *http.Request) {
	p, _ := PrincipalFrom(r.Context())
	id := mux.Vars(r)["id"]

	var req decideRequest
	if err := decodeJSON(w, r, &req); err != nil {
		h.writeError(w, r, "decide_leave", err)
		return
	}

	leave, err := h.leaves.Decide(r.Context(), p.UserID, id, req.Status)
	if err != nil {
		h.writeError(w, r, "decide_leave", err)
		return
	}

	writeJSON(w, http.StatusOK, map[string]any{
		"message": "Leave request " + string(leave.Status),
		"data":    leave,
	})
}

func (h *Handler) attachmentURL(w http.ResponseWriter, r *http.Request) {
	p, _ := PrincipalFrom(r.Context())

	key, url, err := h.leaves.AttachmentUploadURL(r.Context(), p.UserID)
	if err != nil {
		h.writeError(w, r, "attachment_url", err)
		return
	}

	writeJSON(w, http.StatusOK, map[string]any{
		"message": "Upload URL created",
		"key":     key,
		"url":     url,
	})
}
