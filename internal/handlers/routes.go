package handlers

import (
	"net/http"
	"time"

	"github.com/danielgtaylor/huma/v2"
	"github.com/danielgtaylor/huma/v2/adapters/humachi"
	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
	"github.com/shivemind/chasingCats-sub003/internal/auth"
	"github.com/shivemind/chasingCats-sub003/internal/logger"
	"github.com/shivemind/chasingCats-sub003/internal/metrics"
	ratelimit "github.com/shivemind/chasingCats-sub003/internal/middleware"
)

type Handlers struct {
	Auth       *auth.AuthHandler
	Engagement *EngagementHandler
	Admin      *AdminHandler
	Limiter    *ratelimit.RateLimiter
	Log        *logger.Logger
}

func RegisterRoutes(r *chi.Mux, h Handlers) huma.API {
	r.Use(middleware.RequestID)
	r.Use(middleware.RealIP)
	r.Use(requestLogger(h.Log))
	r.Use(middleware.Recoverer)
	r.Use(metrics.InstrumentHandler)
	r.Use(h.Auth.IdentityMiddleware)

	// Public routes
	r.Get("/health", func(w http.ResponseWriter, r *http.Request) {
		w.Write([]byte("OK"))
	})
	r.Method(http.MethodGet, "/metrics", metrics.Handler())

	config := huma.DefaultConfig("Engagement API", "1.0.0")
	config.Components.SecuritySchemes = map[string]*huma.SecurityScheme{
		"cookieAuth": {
			Type: "apiKey",
			In:   "cookie",
			Name: auth.CookieName,
		},
		"bearerAuth": {
			Type:         "http",
			Scheme:       "bearer",
			BearerFormat: "JWT",
		},
	}

	// Everything served through huma is rate limited.
	limited := r.With(h.Limiter.Handler)
	api := humachi.New(limited, config)

	security := []map[string][]string{{"cookieAuth": {}}, {"bearerAuth": {}}}
	secured := func(o *huma.Operation) {
		o.Security = security
	}

	huma.Get(api, "/auth/discord/login", h.Auth.HandleLogin)
	huma.Get(api, "/auth/discord/callback", h.Auth.HandleCallback)
	huma.Get(api, "/me", h.Auth.HandleMe, secured)

	huma.Get(api, "/missions", h.Engagement.HandleListMissions, secured)
	huma.Post(api, "/missions/{missionID}/claim", h.Engagement.HandleClaimMission, secured)
	huma.Get(api, "/xp", h.Engagement.HandleGetXP, secured)
	huma.Post(api, "/votes", h.Engagement.HandleCastVote, secured)
	huma.Get(api, "/entries/{entryID}/tally", h.Engagement.HandleTally)

	huma.Post(api, "/admin/activity", h.Admin.HandleRecordActivity, secured)
	huma.Post(api, "/admin/challenges", h.Admin.HandleCreateChallenge, secured)
	huma.Post(api, "/admin/entries", h.Admin.HandleCreateEntry, secured)
	huma.Register(api, huma.Operation{
		OperationID:   "delete-admin-entry",
		Method:        http.MethodDelete,
		Path:          "/admin/entries/{entryID}",
		Summary:       "Delete a challenge entry and its votes",
		DefaultStatus: http.StatusNoContent,
		Security:      security,
	}, h.Admin.HandleDeleteEntry)
	huma.Post(api, "/admin/xp", h.Admin.HandleGrantXP, secured)

	return api
}

// requestLogger is chi's access log written through zap.
func requestLogger(log *logger.Logger) func(http.Handler) http.Handler {
	log = log.With("component", "http")
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			ww := middleware.NewWrapResponseWriter(w, r.ProtoMajor)
			start := time.Now()
			defer func() {
				log.Info("Request served",
					"method", r.Method,
					"path", r.URL.Path,
					"status", ww.Status(),
					"bytes", ww.BytesWritten(),
					"duration", time.Since(start),
					"request_id", middleware.GetReqID(r.Context()),
				)
			}()
			next.ServeHTTP(ww, r)
		})
	}
}
