package auth

import (
	"context"
	"net/http"
	"strings"
	"time"
)

type contextKey string

const UserIDKey contextKey = "user_id"

// UserID returns the authenticated user carried by ctx.
func UserID(ctx context.Context) (uint, bool) {
	userID, ok := ctx.Value(UserIDKey).(uint)
	return userID, ok && userID != 0
}

// IdentityMiddleware resolves the caller from the auth_token cookie or a
// Bearer header and stores it under UserIDKey. Requests without a valid token
// pass through anonymously; handlers decide whether identity is required.
func (h *AuthHandler) IdentityMiddleware(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		tokenString, fromCookie := bearerOrCookie(r)
		if tokenString == "" {
			next.ServeHTTP(w, r)
			return
		}

		userID, expiresAt, err := h.ParseToken(tokenString)
		if err != nil {
			h.log.Debug("Ignoring invalid token", "path", r.URL.Path)
			next.ServeHTTP(w, r)
			return
		}

		// Sliding session: refresh cookie tokens past half their lifetime.
		if fromCookie && time.Until(expiresAt) < TokenDuration/2 {
			if newToken, err := h.GenerateToken(userID); err == nil {
				cookie := sessionCookie(newToken)
				http.SetCookie(w, &cookie)
			}
		}

		ctx := context.WithValue(r.Context(), UserIDKey, userID)
		next.ServeHTTP(w, r.WithContext(ctx))
	})
}

func bearerOrCookie(r *http.Request) (string, bool) {
	if header := r.Header.Get("Authorization"); header != "" {
		if token, ok := strings.CutPrefix(header, "Bearer "); ok {
			return strings.TrimSpace(token), false
		}
	}
	if cookie, err := r.Cookie(CookieName); err == nil {
		return cookie.Value, true
	}
	return "", false
}
