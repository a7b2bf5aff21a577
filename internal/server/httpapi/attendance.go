package httpapi

import (
	"context"
	"net/http"

	"github.com/dmitrijs2005/ems/internal/server/models"
	"github.com/dmitrijs2005/ems/internal/server/services"
)

type punchRequest struct {
	Date      string     `json:"date"`
	Time      string     `json:"time"`
	Location  string     `json:"location"`
	Latitude  coordinate `json:"latitude"`
	Longitude coordinate `json:"longitude"`
}

func (h *Handler) punchIn(w http.ResponseWriter, r *http.Request) {
	h.punch(w, r, "punch_in", "Punch in successful", h.attendance.PunchIn)
}

func (h *Handler) punchOut(w http.ResponseWriter, r *http.Request) {
	h.punch(w, r, "punch_out", "Punch out successful", h.attendance.PunchOut)
}

type punchFunc func(ctx context.Context, userID string, req services.PunchRequest) (*models.Attendance, error)

func (h *Handler) punch(w http.ResponseWriter, r *http.Request, op, msg string, do punchFunc) {
	p, _ := PrincipalFrom(r.Context())

	var req punchRequest
	if err := decodeJSON(w, r, &req); err != nil {
		h.writeError(w, r, op, err)
		return
	}

	record, err := do(r.Context(), p.UserID, services.PunchRequest{
		Date:      req.Date,
		Time:      req.Time,
		Location:  req.Location,
		Latitude:  req.Latitude.ptr(),
		Longitude: req.Longitude.ptr(),
	})
	if err != nil {
		h.writeError(w, r, op, err)
		return
	}

	writeJSON(w, http.StatusCreated, map[string]any{
		"message":       msg,
		"attendance_id": record.ID,
		"data":          record,
	})
}

func (h *Handler) listAttendance(w http.ResponseWriter, r *http.Request) {
	p, _ := PrincipalFrom(r.Context())
	q := r.URL.Query()

	records, err := h.attendance.List(r.Context(), p.UserID, services.AttendanceQuery{
		Date:      q.Get("date"),
		StartDate: q.Get("start_date"),
		EndDate:   q.Get("end_date"),
	})
	if err != nil {
		h.writeError(w, r, "list_attendance", err)
		return
	}

	writeJSON(w, http.StatusOK, map[string]any{
		"message": "Attendance records retrieved successfully",
		"count":   len(records),
		"data":    records,
	})
}
