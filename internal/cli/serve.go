package cli

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"os/signal"
	"syscall"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/shivemind/chasingCats-sub003/internal/auth"
	"github.com/shivemind/chasingCats-sub003/internal/catalog"
	"github.com/shivemind/chasingCats-sub003/internal/config"
	"github.com/shivemind/chasingCats-sub003/internal/database"
	"github.com/shivemind/chasingCats-sub003/internal/engagement"
	"github.com/shivemind/chasingCats-sub003/internal/handlers"
	"github.com/shivemind/chasingCats-sub003/internal/logger"
	"github.com/shivemind/chasingCats-sub003/internal/middleware"
	"github.com/spf13/cobra"
	"golang.org/x/sync/errgroup"
)

const shutdownTimeout = 15 * time.Second

func NewServeCommand(rootOpts *RootOptions) *cobra.Command {
	return &cobra.Command{
		Use:   "serve",
		Short: "Run the HTTP API",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			ctx, stop := signal.NotifyContext(cmd.Context(), syscall.SIGINT, syscall.SIGTERM)
			defer stop()
			return runServe(ctx, rootOpts)
		},
	}
}

func runServe(ctx context.Context, opts *RootOptions) error {
	cfg, err := config.LoadConfig(opts.ConfigFile)
	if err != nil {
		return err
	}

	log, err := logger.New(cfg.LogMode)
	if err != nil {
		return fmt.Errorf("init logger: %w", err)
	}
	defer log.Sync()

	db, err := database.Connect(cfg, log)
	if err != nil {
		return err
	}

	cat, err := catalog.Load(cfg.MissionCatalogPath)
	if err != nil {
		return fmt.Errorf("load mission catalog: %w", err)
	}
	log.Info("Mission catalog loaded", "missions", len(cat.Missions()), "path", cfg.MissionCatalogPath)

	engine := engagement.New(db, cat, log)

	var roles auth.RoleChecker = auth.StaticRoleChecker{}
	if cfg.DiscordBotToken != "" {
		checker, err := auth.NewDiscordRoleChecker(cfg.DiscordBotToken, cfg.DiscordGuildID, cfg.DiscordAdminRoleID)
		if err != nil {
			return err
		}
		roles = checker
	} else {
		log.Warn("DISCORD_BOT_TOKEN not set, admin routes are disabled")
	}

	authHandler := auth.NewAuthHandler(cfg, db, roles, log)
	limiter := middleware.NewRateLimiter(cfg.RateLimitRPS, cfg.RateLimitBurst, log)
	limiter.StartCleanup(ctx, time.Minute)

	r := chi.NewRouter()
	handlers.RegisterRoutes(r, handlers.Handlers{
		Auth:       authHandler,
		Engagement: handlers.NewEngagementHandler(engine, log),
		Admin:      handlers.NewAdminHandler(db, engine, authHandler, log),
		Limiter:    limiter,
		Log:        log,
	})

	srv := &http.Server{
		Addr:              ":" + cfg.Port,
		Handler:           r,
		ReadHeaderTimeout: 10 * time.Second,
	}

	g, gctx := errgroup.WithContext(ctx)
	g.Go(func() error {
		log.Info("Starting server", "port", cfg.Port)
		if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			return fmt.Errorf("listen: %w", err)
		}
		return nil
	})
	g.Go(func() error {
		<-gctx.Done()
		log.Info("Shutting down server")
		shutdownCtx, cancel := context.WithTimeout(context.Background(), shutdownTimeout)
		defer cancel()
		return srv.Shutdown(shutdownCtx)
	})

	err = g.Wait()
	if sqlDB, dbErr := db.DB(); dbErr == nil {
		sqlDB.Close()
	}
	return err
}
