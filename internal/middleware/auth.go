package middleware

import (
	"net/http"
	"strings"

	"github.com/dukerupert/hostcal/internal/apperr"
	"github.com/dukerupert/hostcal/internal/auth"
	"github.com/dukerupert/hostcal/internal/store"
)

// SessionCookieName carries the session token for browser clients.
const SessionCookieName = "hostcal_session"

// SessionToken extracts the token from "Authorization: Bearer" or, failing
// that, the session cookie.
func SessionToken(r *http.Request) string {
	if h := r.Header.Get("Authorization"); h != "" {
		scheme, token, ok := strings.Cut(h, " ")
		if ok && strings.EqualFold(scheme, "Bearer") {
			return strings.TrimSpace(token)
		}
	}
	if c, err := r.Cookie(SessionCookieName); err == nil {
		return c.Value
	}
	return ""
}

// RequireAuth validates the session token and populates AuthContext.
func RequireAuth(sessions *store.SessionStore, users *store.UserStore) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			token := SessionToken(r)
			if token == "" {
				apperr.Write(w, apperr.Unauthorized("authentication required"))
				return
			}

			sess, err := sessions.GetByToken(token)
			if err != nil {
				apperr.Write(w, apperr.Internal("load session", err))
				return
			}
			if sess == nil {
				apperr.Write(w, apperr.Unauthorized("invalid or expired session"))
				return
			}

			u, err := users.GetByID(sess.UserID)
			if err != nil {
				apperr.Write(w, apperr.Internal("load user", err))
				return
			}
			if u == nil || !u.IsActive {
				apperr.Write(w, apperr.Unauthorized("account disabled"))
				return
			}

			ctx := auth.WithAuth(r.Context(), auth.AuthContext{UserID: sess.UserID, SessionID: sess.ID})
			next.ServeHTTP(w, r.WithContext(ctx))
		})
	}
}
