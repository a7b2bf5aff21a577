package httpapi

import (
	"net/http"

	"github.com/dmitrijs2005/ems/internal/server/services"
)

type signupRequest struct {
	UserName        string `json:"user_name"`
	Email           string `json:"email"`
	Password        string `json:"password"`
	ReEnterPassword string `json:"reEnterPassword"`
}

func (h *Handler) signup(w http.ResponseWriter, r *http.Request) {
	var req signupRequest
	if err := decodeJSON(w, r, &req); err != nil {
		h.writeError(w, r, "signup", err)
		return
	}

	user, err := h.auth.Signup(r.Context(), services.SignupRequest(req))
	if err != nil {
		h.writeError(w, r, "signup", err)
		return
	}

	writeJSON(w, http.StatusCreated, map[string]any{
		"message": "User created successfully. Please verify your email.",
		"user_id": user.ID,
	})
}

type verifyOTPRequest struct {
	Email string `json:"email"`
	OTP   string `json:"otp"`
}

func (h *Handler) verifyOTP(w http.ResponseWriter, r *http.Request) {
	var req verifyOTPRequest
	if err := decodeJSON(w, r, &req); err != nil {
		h.writeError(w, r, "verify_otp", err)
		return
	}

	pair, err := h.auth.VerifyOTP(r.Context(), req.Email, req.OTP)
	if err != nil {
		h.writeError(w, r, "verify_otp", err)
		return
	}

	writeJSON(w, http.StatusOK, map[string]any{
		"message": "Email verified successfully",
		"access":  pair.AccessToken,
		"refresh": pair.RefreshToken,
	})
}

type loginRequest struct {
	Email      string `json:"email"`
	Password   string `json:"password"`
	DeviceType string `json:"deviceType"`
}

func (h *Handler) login(w http.ResponseWriter, r *http.Request) {
	var req loginRequest
	if err := decodeJSON(w, r, &req); err != nil {
		h.writeError(w, r, "login", err)
		return
	}

	user, pair, err := h.auth.Login(r.Context(), req.Email, req.Password, req.DeviceType)
	if err != nil {
		h.writeError(w, r, "login", err)
		return
	}

	writeJSON(w, http.StatusOK, map[string]any{
		"message": "Login successful",
		"access":  pair.AccessToken,
		"refresh": pair.RefreshToken,
		"user_id": user.ID,
	})
}

func (h *Handler) logout(w http.ResponseWriter, r *http.Request) {
	p, _ := PrincipalFrom(r.Context())

	if err := h.auth.Logout(r.Context(), p); err != nil {
		h.writeError(w, r, "logout", err)
		return
	}

	writeJSON(w, http.StatusOK, map[string]any{"message": "Logout successful"})
}

type forgotPasswordRequest struct {
	Email string `json:"email"`
}

func (h *Handler) forgotPassword(w http.ResponseWriter, r *http.Request) {
	var req forgotPasswordRequest
	if err := decodeJSON(w, r, &req); err != nil {
		h.writeError(w, r, "forgot_password", err)
		return
	}

	if err := h.auth.ForgotPassword(r.Context(), req.Email); err != nil {
		h.writeError(w, r, "forgot_password", err)
		return
	}

	writeJSON(w, http.StatusOK, map[string]any{"message": "OTP sent to email for password reset"})
}

type resetPasswordRequest struct {
	Email           string `json:"email"`
	OTP             string `json:"otp"`
	NewPassword     string `json:"new_password"`
	ConfirmPassword string `json:"confirm_password"`
}

func (h *Handler) resetPassword(w http.ResponseWriter, r *http.Request) {
	p, _ := PrincipalFrom(r.Context())

	var req resetPasswordRequest
	if err := decodeJSON(w, r, &req); err != nil {
		h.writeError(w, r, "reset_password", err)
		return
	}

	if err := h.auth.ResetPassword(r.Context(), p, services.ResetPasswordRequest(req)); err != nil {
		h.writeError(w, r, "reset_password", err)
		return
	}

	writeJSON(w, http.StatusOK, map[string]any{"message": "Password reset successfully"})
}

type refreshRequest struct {
	Refresh string `json:"refresh"`
}

func (h *Handler) refresh(w http.ResponseWriter, r *http.Request) {
	var req refreshRequest
	if err := decodeJSON(w, r, &req); err != nil {
		h.writeError(w, r, "refresh", err)
		return
	}

	pair, err := h.auth.Refresh(r.Context(), req.Refresh)
	if err != nil {
		h.writeError(w, r, "refresh", err)
		return
	}

	writeJSON(w, http.StatusOK, map[string]any{
		"message": "Token refreshed successfully",
		"access":  pair.AccessToken,
	})
}
