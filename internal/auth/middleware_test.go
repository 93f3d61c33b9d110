package auth

import (
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/golang-jwt/jwt/v5"
	"github.com/shivemind/chasingCats-sub003/internal/config"
	"github.com/shivemind/chasingCats-sub003/internal/logger"
)

func signedToken(t *testing.T, secret string, userID uint, ttl time.Duration) string {
	t.Helper()
	claims := jwt.MapClaims{
		"user_id": userID,
		"exp":     time.Now().Add(ttl).Unix(),
	}
	token, err := jwt.NewWithClaims(jwt.SigningMethodHS256, claims).SignedString([]byte(secret))
	if err != nil {
		t.Fatalf("sign token: %v", err)
	}
	return token
}

// echoUser replies with the identity the middleware attached, or 204 when
// the request is anonymous.
func echoUser(t *testing.T, seen *uint) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		userID, ok := UserID(r.Context())
		if !ok {
			w.WriteHeader(http.StatusNoContent)
			return
		}
		*seen = userID
		w.WriteHeader(http.StatusOK)
	})
}

func TestIdentityMiddleware_SlidingSession(t *testing.T) {
	cfg := &config.Config{JWTSecret: "test-secret"}
	handler := NewAuthHandler(cfg, nil, nil, logger.Nop())

	t.Run("TokenRenewed", func(t *testing.T) {
		// Expires in 11 hours, below TokenDuration/2.
		tokenString := signedToken(t, cfg.JWTSecret, 1, 11*time.Hour)

		req := httptest.NewRequest(http.MethodGet, "/", nil)
		req.AddCookie(&http.Cookie{Name: CookieName, Value: tokenString})
		rr := httptest.NewRecorder()

		var seen uint
		handler.IdentityMiddleware(echoUser(t, &seen)).ServeHTTP(rr, req)

		if rr.Code != http.StatusOK {
			t.Errorf("expected status OK, got %v", rr.Code)
		}
		if seen != 1 {
			t.Errorf("expected user 1 in context, got %d", seen)
		}

		found := false
		for _, c := range rr.Result().Cookies() {
			if c.Name == CookieName {
				found = true
				if c.Value == tokenString {
					t.Errorf("expected new token value, but got the old one")
				}
			}
		}
		if !found {
			t.Errorf("expected new auth_token cookie to be set")
		}
	})

	t.Run("TokenNotRenewed", func(t *testing.T) {
		tokenString := signedToken(t, cfg.JWTSecret, 1, 13*time.Hour)

		req := httptest.NewRequest(http.MethodGet, "/", nil)
		req.AddCookie(&http.Cookie{Name: CookieName, Value: tokenString})
		rr := httptest.NewRecorder()

		var seen uint
		handler.IdentityMiddleware(echoUser(t, &seen)).ServeHTTP(rr, req)

		if rr.Code != http.StatusOK {
			t.Errorf("expected status OK, got %v", rr.Code)
		}
		for _, c := range rr.Result().Cookies() {
			if c.Name == CookieName {
				t.Errorf("did not expect a new auth_token cookie to be set")
			}
		}
	})
}

func TestIdentityMiddleware_Sources(t *testing.T) {
	cfg := &config.Config{JWTSecret: "test-secret"}
	handler := NewAuthHandler(cfg, nil, nil, logger.Nop())

	t.Run("BearerHeader", func(t *testing.T) {
		req := httptest.NewRequest(http.MethodGet, "/", nil)
		req.Header.Set("Authorization", "Bearer "+signedToken(t, cfg.JWTSecret, 7, time.Hour))
		rr := httptest.NewRecorder()

		var seen uint
		handler.IdentityMiddleware(echoUser(t, &seen)).ServeHTTP(rr, req)

		if rr.Code != http.StatusOK || seen != 7 {
			t.Fatalf("expected user 7, got status %d user %d", rr.Code, seen)
		}
		if len(rr.Result().Cookies()) != 0 {
			t.Errorf("bearer tokens must not be refreshed through cookies")
		}
	})

	t.Run("Anonymous", func(t *testing.T) {
		req := httptest.NewRequest(http.MethodGet, "/", nil)
		rr := httptest.NewRecorder()

		var seen uint
		handler.IdentityMiddleware(echoUser(t, &seen)).ServeHTTP(rr, req)
		if rr.Code != http.StatusNoContent {
			t.Errorf("expected anonymous pass-through, got %d", rr.Code)
		}
	})

	t.Run("WrongSecret", func(t *testing.T) {
		req := httptest.NewRequest(http.MethodGet, "/", nil)
		req.AddCookie(&http.Cookie{Name: CookieName, Value: signedToken(t, "other-secret", 7, time.Hour)})
		rr := httptest.NewRecorder()

		var seen uint
		handler.IdentityMiddleware(echoUser(t, &seen)).ServeHTTP(rr, req)
		if rr.Code != http.StatusNoContent {
			t.Errorf("expected forged token to be ignored, got %d", rr.Code)
		}
	})

	t.Run("Expired", func(t *testing.T) {
		req := httptest.NewRequest(http.MethodGet, "/", nil)
		req.Header.Set("Authorization", "Bearer "+signedToken(t, cfg.JWTSecret, 7, -time.Minute))
		rr := httptest.NewRecorder()

		var seen uint
		handler.IdentityMiddleware(echoUser(t, &seen)).ServeHTTP(rr, req)
		if rr.Code != http.StatusNoContent {
			t.Errorf("expected expired token to be ignored, got %d", rr.Code)
		}
	})
}
