// The users service: credential issuance, token refresh, session
// revocation and user administration for the eco-tracking platform.
package main

import (
	"context"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"ecotrack.app/internal/audit"
	"ecotrack.app/internal/auth"
	"ecotrack.app/internal/config"
	"ecotrack.app/internal/database"
	"ecotrack.app/internal/httpapi"
	"ecotrack.app/internal/obs"
)

var version = "0.3.0"

func main() {
	log := obs.NewLogger("ecotrack-users")

	cfg, err := config.Load()
	if err != nil {
		log.Fatal().Err(err).Msg("configuration invalid")
	}

	obs.Init()
	obs.InitBuildInfo("ecotrack-users", version)

	db, err := database.Open(cfg.DatabaseURL)
	if err != nil {
		log.Fatal().Err(err).Msg("open database")
	}
	defer db.Close()

	pingCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	if err := db.PingContext(pingCtx); err != nil {
		cancel()
		log.Fatal().Err(err).Msg("database unreachable")
	}
	cancel()

	if err := database.RunMigrations(db); err != nil {
		log.Fatal().Err(err).Msg("apply migrations")
	}

	codec, err := auth.NewCodec(cfg.AccessSecret, cfg.RefreshSecret,
		auth.WithAccessTTL(cfg.AccessTTL),
		auth.WithRefreshTTL(cfg.RefreshTTL),
	)
	if err != nil {
		log.Fatal().Err(err).Msg("token codec")
	}

	store := auth.NewPGStore(db, auth.WithSessionWindow(cfg.RefreshTTL))
	recorder := audit.NewRecorder(store.Audit(context.Background()), log)

	svc, err := auth.NewService(store, codec,
		auth.WithHasher(auth.NewHasher(cfg.BcryptCost)),
		auth.WithMaxSessions(cfg.MaxSessions),
		auth.WithAuditor(recorder),
	)
	if err != nil {
		log.Fatal().Err(err).Msg("auth service")
	}

	api := httpapi.New(svc, codec, httpapi.ReadyProbe{DB: db}, log, httpapi.Options{
		Version:              version,
		PublicRequestsPerMin: cfg.PublicRequestsPerMin,
		LoginMaxAttempts:     cfg.LoginMaxAttempts,
		LoginWindow:          cfg.LoginWindow,
		VerboseErrors:        cfg.VerboseErrors,
	})

	srv := &http.Server{
		Addr:              ":" + cfg.Port,
		Handler:           api.Handler(),
		ReadTimeout:       15 * time.Second,
		ReadHeaderTimeout: 15 * time.Second,
		WriteTimeout:      15 * time.Second,
		IdleTimeout:       60 * time.Second,
	}

	go func() {
		log.Info().Str("addr", srv.Addr).Str("version", version).Msg("users service listening")
		if err := srv.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			log.Fatal().Err(err).Msg("listen")
		}
	}()

	stop := make(chan os.Signal, 1)
	signal.Notify(stop, os.Interrupt, syscall.SIGTERM)
	<-stop

	log.Info().Msg("shutting down")
	ctx, cancelShutdown := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancelShutdown()
	_ = srv.Shutdown(ctx)
	log.Info().Msg("stopped")
}
