package httpapi

import (
	"encoding/json"
	"errors"
	"net/http"

	"github.com/dmitrijs2005/ems/internal/common"
)

type errorBody struct {
	Error string `json:"error"`
}

// statusFor maps a service error to its HTTP status. Unknown errors are 500.
func statusFor(err error) int {
	switch {
	case errors.Is(err, common.ErrValidation),
		errors.Is(err, errBadRequestBody),
		errors.Is(err, common.ErrOTPNotFound),
		errors.Is(err, common.ErrOTPMismatch),
		errors.Is(err, common.ErrOTPExpired),
		errors.Is(err, common.ErrNotVerified),
		errors.Is(err, common.ErrDuplicateEmail),
		errors.Is(err, common.ErrAlreadyPunchedIn),
		errors.Is(err, common.ErrNotPunchedIn),
		errors.Is(err, common.ErrLeaveAlreadyDecided):
		return http.StatusBadRequest

	case errors.Is(err, common.ErrBadPassword),
		errors.Is(err, common.ErrInvalidToken),
		errors.Is(err, common.ErrTokenExpired),
		errors.Is(err, common.ErrRevoked),
		errors.Is(err, common.ErrorUnauthorized):
		return http.StatusUnauthorized

	case errors.Is(err, common.ErrForbidden):
		return http.StatusForbidden

	case errors.Is(err, common.ErrorNotFound):
		return http.StatusNotFound
	}
	return http.StatusInternalServerError
}

// message is the client-facing text for err. Internal failures never leak
// their cause.
func message(err error, status int) string {
	if status == http.StatusInternalServerError {
		return common.ErrorInternal.Error()
	}

	var ve *common.ValidationError
	if errors.As(err, &ve) {
		return ve.Message
	}

	for _, sentinel := range []error{
		errBadRequestBody,
		common.ErrOTPNotFound, common.ErrOTPMismatch, common.ErrOTPExpired,
		common.ErrNotVerified, common.ErrDuplicateEmail,
		common.ErrAlreadyPunchedIn, common.ErrNotPunchedIn, common.ErrLeaveAlreadyDecided,
		common.ErrBadPassword, common.ErrInvalidToken, common.ErrTokenExpired, common.ErrRevoked,
		common.ErrorUnauthorized, common.ErrForbidden, common.ErrorNotFound,
	} {
		if errors.Is(err, sentinel) {
			return sentinel.Error()
		}
	}
	return err.Error()
}

func (h *Handler) writeError(w http.ResponseWriter, r *http.Request, op string, err error) {
	status := statusFor(err)
	if status == http.StatusInternalServerError {
		h.logger.Error(r.Context(), "request failed", "op", op, "err", err)
	} else {
		h.logger.Debug(r.Context(), "request rejected", "op", op, "status", status, "err", err)
	}
	writeJSON(w, status, errorBody{Error: message(err, status)})
}

func writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(v)
}
