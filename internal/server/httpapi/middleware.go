package httpapi

import (
	"context"
	"net/http"
	"strings"
	"time"

	"github.com/dmitrijs2005/ems/internal/common"
	"github.com/dmitrijs2005/ems/internal/server/services"
)

type ctxKey string

const principalKey ctxKey = "principal"

// PrincipalFrom returns the authenticated caller stored by the auth
// middleware.
func PrincipalFrom(ctx context.Context) (*services.Principal, bool) {
	p, ok := ctx.Value(principalKey).(*services.Principal)
	return p, ok
}

func bearerToken(r *http.Request) string {
	v := r.Header.Get(common.AuthorizationHeaderName)
	if len(v) <= len(common.BearerPrefix) || !strings.EqualFold(v[:len(common.BearerPrefix)], common.BearerPrefix) {
		return ""
	}
	return strings.TrimSpace(v[len(common.BearerPrefix):])
}

// authenticated resolves the bearer token to a principal or answers 401.
func (h *Handler) authenticated(next http.HandlerFunc) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		token := bearerToken(r)
		if token == "" {
			h.writeError(w, r, "auth", common.ErrorUnauthorized)
			return
		}

		p, err := h.auth.Authenticate(r.Context(), token)
		if err != nil {
			h.writeError(w, r, "auth", err)
			return
		}

		next(w, r.WithContext(context.WithValue(r.Context(), principalKey, p)))
	})
}

// admin is authenticated plus the admin capability check.
func (h *Handler) admin(next http.HandlerFunc) http.Handler {
	return h.authenticated(func(w http.ResponseWriter, r *http.Request) {
		p, _ := PrincipalFrom(r.Context())

		ok, err := h.auth.IsAdmin(r.Context(), p.UserID)
		if err != nil {
			h.writeError(w, r, "admin", err)
			return
		}
		if !ok {
			h.writeError(w, r, "admin", common.ErrForbidden)
			return
		}

		next(w, r)
	})
}

func withTimeout(d time.Duration) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		if d <= 0 {
			return next
		}
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			ctx, cancel := context.WithTimeout(r.Context(), d)
			defer cancel()
			next.ServeHTTP(w, r.WithContext(ctx))
		})
	}
}

type statusRecorder struct {
	http.ResponseWriter
	status int
}

func (s *statusRecorder) WriteHeader(code int) {
	s.status = code
	s.ResponseWriter.WriteHeader(code)
}

func (h *Handler) accessLog(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		start := time.Now()
		rec := &statusRecorder{ResponseWriter: w, status: http.StatusOK}

		next.ServeHTTP(rec, r)

		h.logger.Info(r.Context(), "request",
			"method", r.Method,
			"path", r.URL.Path,
			"status", rec.status,
			"duration", time.Since(start),
		)
	})
}

func (h *Handler) recoverPanics(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		defer func() {
			if v := recover(); v != nil {
				h.logger.Error(r.Context(), "panic", "path", r.URL.Path, "value", v)
				writeJSON(w, http.StatusInternalServerError, errorBody{Error: common.ErrorInternal.Error()})
			}
		}()
		next.ServeHTTP(w, r)
	})
}
