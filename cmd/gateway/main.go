// The API gateway: a thin reverse proxy routing to the users and
// gamification services.
package main

import (
	"context"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"ecotrack.app/internal/config"
	"ecotrack.app/internal/gateway"
	"ecotrack.app/internal/obs"
)

var version = "0.3.0"

func main() {
	log := obs.NewLogger("ecotrack-gateway")

	cfg, err := config.LoadGateway()
	if err != nil {
		log.Fatal().Err(err).Msg("configuration invalid")
	}

	gw, err := gateway.New(log, gateway.Options{
		UsersServiceURL:      cfg.UsersServiceURL,
		GamificationURL:      cfg.GamificationURL,
		PublicRequestsPerMin: cfg.PublicRequestsPerMin,
	})
	if err != nil {
		log.Fatal().Err(err).Msg("gateway setup")
	}

	srv := &http.Server{
		Addr:              ":" + cfg.Port,
		Handler:           gw.Handler(),
		ReadTimeout:       30 * time.Second,
		ReadHeaderTimeout: 15 * time.Second,
		WriteTimeout:      30 * time.Second,
		IdleTimeout:       60 * time.Second,
	}

	go func() {
		log.Info().Str("addr", srv.Addr).Str("version", version).Msg("gateway listening")
		if err := srv.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			log.Fatal().Err(err).Msg("listen")
		}
	}()

	stop := make(chan os.Signal, 1)
	signal.Notify(stop, os.Interrupt, syscall.SIGTERM)
	<-stop

	log.Info().Msg("shutting down")
	ctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()
	_ = srv.Shutdown(ctx)
	log.Info().Msg("stopped")
}
