package httpapi

import (
	"net/http"
	"time"

	"github.com/dmitrijs2005/ems/internal/logging"
	"github.com/dmitrijs2005/ems/internal/server/services"
	"github.com/gorilla/mux"
)

// Handler holds the services behind the HTTP routes.
type Handler struct {
	auth       *services.AuthService
	attendance *services.AttendanceService
	leaves     *services.LeaveService
	logger     logging.Logger
}

func NewHandler(a *services.AuthService, at *services.AttendanceService, lv *services.LeaveService, l logging.Logger) *Handler {
	return &Handler{
		auth:       a,
		attendance: at,
		leaves:     lv,
		logger:     l.With("module", "http_handler"),
	}
}

// NewRouter registers every route. Paths keep their trailing slash and are
// matched exactly.
func NewRouter(h *Handler, requestTimeout time.Duration) *mux.Router {
	r := mux.NewRouter()
	r.Use(h.recoverPanics, h.accessLog, withTimeout(requestTimeout))

	r.HandleFunc("/healthz", h.healthz).Methods(http.MethodGet)

	r.HandleFunc("/api/employee/signup/", h.signup).Methods(http.MethodPost)
	r.HandleFunc("/api/employee/verify-otp/", h.verifyOTP).Methods(http.MethodPost)
	r.HandleFunc("/api/login/", h.login).Methods(http.MethodPost)
	r.HandleFunc("/api/forgot-password/", h.forgotPassword).Methods(http.MethodPost)
	r.HandleFunc("/api/token/refresh/", h.refresh).Methods(http.MethodPost)

	r.Handle("/api/logout/", h.authenticated(h.logout)).Methods(http.MethodPost)
	r.Handle("/api/reset-password/", h.authenticated(h.resetPassword)).Methods(http.MethodPost)

	r.Handle("/api/punch-in/", h.authenticated(h.punchIn)).Methods(http.MethodPost)
	r.Handle("/api/punch-out/", h.authenticated(h.punchOut)).Methods(http.MethodPost)
	r.Handle("/api/attendance/", h.authenticated(h.listAttendance)).Methods(http.MethodGet)

	r.Handle("/api/employee/leave/", h.authenticated(h.applyLeave)).Methods(http.MethodPost)
	r.Handle("/api/employee/leave/", h.authenticated(h.listLeaves)).Methods(http.MethodGet)
	r.Handle("/api/employee/leave/attachment/", h.authenticated(h.attachmentURL)).Methods(http.MethodPost)
	r.Handle("/api/employee/leave/admin/", h.admin(h.listAllLeaves)).Methods(http.MethodGet)
	r.Handle("/api/employee/leave/admin/{id}/", h.admin(h.decideLeave)).Methods(http.MethodPatch)

	r.NotFoundHandler = http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		writeJSON(w, http.StatusNotFound, errorBody{Error: "not found"})
	})
	r.MethodNotAllowedHandler = http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		writeJSON(w, http.StatusMethodNotAllowed, errorBody{Error: "method not allowed"})
	})

	return r
}

func (h *Handler) healthz(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, http.StatusOK, map[string]string{"status": "ok"})
}
