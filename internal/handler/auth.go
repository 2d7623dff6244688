package handler

import (
	"log/slog"
	"net/http"
	"time"

	"github.com/dukerupert/hostcal/internal/apperr"
	"github.com/dukerupert/hostcal/internal/auth"
	"github.com/dukerupert/hostcal/internal/middleware"
	"github.com/dukerupert/hostcal/internal/model"
	"github.com/dukerupert/hostcal/internal/store"
)

type AuthHandler struct {
	users    *store.UserStore
	sessions *store.SessionStore
	logger   *slog.Logger
}

func NewAuthHandler(us *store.UserStore, ss *store.SessionStore, logger *slog.Logger) *AuthHandler {
	return &AuthHandler{users: us, sessions: ss, logger: logger}
}

type signupRequest struct {
	Email          string `json:"email" validate:"required,email"`
	Password       string `json:"password" validate:"required,min=8,max=72"`
	SecurityAnswer string `json:"security_answer" validate:"required"`
}

type credentialsRequest struct {
	Email    string `json:"email" validate:"required"`
	Password string `json:"password" validate:"required"`
}

type resetPasswordRequest struct {
	Email          string `json:"email" validate:"required"`
	SecurityAnswer string `json:"security_answer" validate:"required"`
	NewPassword    string `json:"new_password" validate:"required,min=8,max=72"`
}

type tokenResponse struct {
	Token     string    `json:"token"`
	UserID    int64     `json:"user_id"`
	ExpiresAt time.Time `json:"expires_at"`
}

func (h *AuthHandler) Signup(w http.ResponseWriter, r *http.Request) {
	var req signupRequest
	if err := readJSON(w, r, &req); err != nil {
		writeError(w, r, h.logger, err)
		return
	}
	req.Email = auth.NormalizeEmail(req.Email)
	if err := validateStruct(&req); err != nil {
		writeError(w, r, h.logger, err)
		return
	}

	pwHash, err := auth.HashPassword(req.Password)
	if err != nil {
		writeError(w, r, h.logger, apperr.Internal("hash password", err))
		return
	}
	answerHash, err := auth.HashSecurityAnswer(req.SecurityAnswer)
	if err != nil {
		writeError(w, r, h.logger, apperr.Validation("security_answer is required"))
		return
	}

	u, err := h.users.Create(req.Email, pwHash, answerHash)
	if err != nil {
		writeError(w, r, h.logger, err)
		return
	}
	h.logger.Info("account created", "user_id", u.ID)
	writeJSON(w, http.StatusCreated, map[string]any{"id": u.ID, "email": u.Email})
}

// Login serves both /api/login and /api/token.
func (h *AuthHandler) Login(w http.ResponseWriter, r *http.Request) {
	var req credentialsRequest
	if err := decodeJSON(w, r, &req); err != nil {
		writeError(w, r, h.logger, err)
		return
	}

	u, err := h.users.GetByEmail(auth.NormalizeEmail(req.Email))
	if err != nil {
		writeError(w, r, h.logger, err)
		return
	}
	// Same answer for unknown email and wrong password.
	if u == nil || !u.IsActive || !auth.CheckPassword(u.PasswordHash, req.Password) {
		writeError(w, r, h.logger, apperr.Unauthorized("invalid email or password"))
		return
	}

	sess, err := h.sessions.Create(u.ID)
	if err != nil {
		writeError(w, r, h.logger, err)
		return
	}

	http.SetCookie(w, &http.Cookie{
		Name:     middleware.SessionCookieName,
		Value:    sess.Token,
		Path:     "/",
		Expires:  sess.ExpiresAt,
		HttpOnly: true,
		Secure:   r.TLS != nil,
		SameSite: http.SameSiteLaxMode,
	})
	writeJSON(w, http.StatusOK, tokenResponse{Token: sess.Token, UserID: u.ID, ExpiresAt: sess.ExpiresAt})
}

func (h *AuthHandler) Logout(w http.ResponseWriter, r *http.Request) {
	if err := h.sessions.Delete(auth.SessionID(r.Context())); err != nil {
		writeError(w, r, h.logger, err)
		return
	}
	http.SetCookie(w, &http.Cookie{
		Name:     middleware.SessionCookieName,
		Value:    "",
		Path:     "/",
		MaxAge:   -1,
		HttpOnly: true,
	})
	writeJSON(w, http.StatusOK, map[string]bool{"ok": true})
}

func (h *AuthHandler) Account(w http.ResponseWriter, r *http.Request) {
	u, err := h.users.GetByID(auth.UserID(r.Context()))
	if err != nil {
		writeError(w, r, h.logger, err)
		return
	}
	if u == nil {
		writeError(w, r, h.logger, apperr.NotFound("user not found"))
		return
	}
	writeJSON(w, http.StatusOK, map[string]any{"id": u.ID, "email": u.Email})
}

// ResetPassword checks the security answer, sets a new password and
// revokes every session the user had.
func (h *AuthHandler) ResetPassword(w http.ResponseWriter, r *http.Request) {
	var req resetPasswordRequest
	if err := decodeJSON(w, r, &req); err != nil {
		writeError(w, r, h.logger, err)
		return
	}

	u, err := h.users.GetByEmail(auth.NormalizeEmail(req.Email))
	if err != nil {
		writeError(w, r, h.logger, err)
		return
	}
	if u == nil {
		writeError(w, r, h.logger, apperr.NotFound("user not found"))
		return
	}
	if !auth.CheckSecurityAnswer(u.SecurityHash, req.SecurityAnswer) {
		writeError(w, r, h.logger, apperr.Unauthorized("security answer does not match"))
		return
	}

	pwHash, err := auth.HashPassword(req.NewPassword)
	if err != nil {
		writeError(w, r, h.logger, apperr.Internal("hash password", err))
		return
	}
	if err := h.users.UpdatePassword(u.ID, pwHash); err != nil {
		writeError(w, r, h.logger, err)
		return
	}
	if err := h.sessions.DeleteByUserID(u.ID); err != nil {
		writeError(w, r, h.logger, err)
		return
	}
	h.logger.Info("password reset", "user_id", u.ID)
	writeJSON(w, http.StatusOK, map[string]bool{"ok": true})
}

func (h *AuthHandler) ListUsers(w http.ResponseWriter, r *http.Request) {
	users, err := h.users.List()
	if err != nil {
		writeError(w, r, h.logger, err)
		return
	}
	if users == nil {
		users = []model.User{}
	}
	writeJSON(w, http.StatusOK, map[string]any{"total_users": len(users), "users": users})
}
