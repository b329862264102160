// Command server runs the conversational ordering backend: HTTP transport,
// sqlite persistence, background housekeeping, and graceful shutdown.
package main

import (
	"context"
	"errors"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/joho/godotenv"
	"github.com/rs/zerolog/log"
	"gorm.io/gorm"

	_ "github.com/ksultani/go-dinebot-backend/docs"
	"github.com/ksultani/go-dinebot-backend/internal/config"
	httpapi "github.com/ksultani/go-dinebot-backend/internal/http"
	"github.com/ksultani/go-dinebot-backend/internal/nlu"
	"github.com/ksultani/go-dinebot-backend/internal/observability"
	"github.com/ksultani/go-dinebot-backend/internal/repo"
	"github.com/ksultani/go-dinebot-backend/internal/sysutil"
)

const version = "1.0.0"

// @title           DineBot Ordering API
// @version         1.0
// @description     Conversational quick-service ordering backend: dialogue, menu, order tracking.
// @BasePath        /api/v1
func main() {
	_ = godotenv.Load()
	cfg := config.MustLoad()
	sysutil.InitLogger(cfg.LogLevel, cfg.LogPretty)

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	shutdownOTel, err := observability.SetupOTel(ctx, cfg.OTEL, version)
	if err != nil {
		log.Fatal().Err(err).Msg("otel setup failed")
	}
	defer func() {
		flushCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
		defer cancel()
		if err := shutdownOTel(flushCtx); err != nil {
			log.Warn().Err(err).Msg("otel shutdown")
		}
	}()

	db, err := repo.OpenSQLite(cfg.DBPath)
	if err != nil {
		log.Fatal().Err(err).Str("path", cfg.DBPath).Msg("open database failed")
	}
	defer func() {
		if sqlDB, err := db.DB(); err == nil {
			_ = sqlDB.Close()
		}
	}()
	if cfg.OTEL.Enabled {
		if err := repo.EnableTracing(db); err != nil {
			log.Warn().Err(err).Msg("gorm tracing not enabled")
		}
	}
	if err := repo.AutoMigrate(db); err != nil {
		log.Fatal().Err(err).Msg("migration failed")
	}
	if n, err := repo.SeedDefaultMenu(ctx, db); err != nil {
		log.Fatal().Err(err).Msg("menu seed failed")
	} else if n > 0 {
		log.Info().Int64("items", n).Msg("menu seeded")
	}

	if cfg.JanitorInterval > 0 {
		go janitor(ctx, db, cfg.JanitorInterval)
	}

	// The lexical classifier runs in process; a remote NLU collaborator would
	// be wrapped with nlu.NewResilientClassifier / NewResilientMatcher here.
	classifier := nlu.KeywordClassifier{}

	gin.SetMode(cfg.GinMode)
	r := gin.New()
	httpapi.RegisterRoutes(r, db, cfg, classifier, nil, nil)

	srv := &http.Server{
		Addr:              ":" + cfg.Port,
		Handler:           r,
		ReadTimeout:       cfg.ReadTimeout,
		ReadHeaderTimeout: cfg.ReadHeaderTimeout,
		WriteTimeout:      cfg.WriteTimeout,
		IdleTimeout:       cfg.IdleTimeout,
		MaxHeaderBytes:    cfg.MaxHeaderBytes,
	}

	go func() {
		log.Info().Str("addr", srv.Addr).Str("version", version).Msg("server listening")
		if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			log.Fatal().Err(err).Msg("server failed")
		}
	}()

	<-ctx.Done()
	log.Info().Msg("shutdown signal received")

	shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()
	if err := srv.Shutdown(shutdownCtx); err != nil {
		log.Error().Err(err).Msg("server shutdown")
	}
}

// janitor periodically promotes pending orders past their ready time and
// clears long-expired sessions.
func janitor(ctx context.Context, db *gorm.DB, interval time.Duration) {
	const sessionGrace = 24 * time.Hour

	t := time.NewTicker(interval)
	defer t.Stop()
	for {
		select {
		case <-ctx.Done():
			return
		case <-t.C:
			now := time.Now()
			if n, err := repo.PromoteReadyOrders(ctx, db, now); err != nil {
				log.Warn().Err(err).Msg("order promotion sweep failed")
			} else if n > 0 {
				log.Info().Int64("orders", n).Msg("orders promoted to ready")
			}
			if n, err := repo.DeleteExpiredSessions(ctx, db, now, sessionGrace); err != nil {
				log.Warn().Err(err).Msg("session cleanup failed")
			} else if n > 0 {
				log.Debug().Int64("sessions", n).Msg("expired sessions deleted")
			}
		}
	}
}
