package main

import (
	"context"
	"net/http"
	"os"
	"os/signal"
	"strings"
	"syscall"
	"time"

	"github.com/pkg/errors"
	"github.com/rs/zerolog/log"

	"github.com/mdayat/jobtrack/internal/config"
	"github.com/mdayat/jobtrack/internal/httpserver"
	"github.com/mdayat/jobtrack/internal/services"
)

func main() {
	config.InitLogger(os.Getenv("LOG_LEVEL"))
	err := config.LoadEnv()
	if err != nil {
		log.Fatal().Stack().Err(err).Msgf("failed to load %s file", ".env")
	}

	capable, err := config.ClientCapable(true)
	if err != nil {
		log.Fatal().Stack().Err(err).Msg("failed to read client capability")
	}

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	provider, err := config.NewFirebaseProvider()
	if err != nil {
		log.Fatal().Stack().Err(err).Msg("failed to init firebase provider")
	}
	defer provider.Close()

	registry := services.NewRegistry(config.FirebaseConfig(), provider, capable)
	defer registry.Close()

	server := &http.Server{
		Addr:              config.Env.HTTP_ADDR,
		Handler:           httpserver.New(registry, strings.Split(config.Env.ALLOWED_ORIGINS, ",")),
		ReadHeaderTimeout: 10 * time.Second,
	}

	go func() {
		<-ctx.Done()
		shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
		defer cancel()
		if err := server.Shutdown(shutdownCtx); err != nil {
			log.Error().Err(err).Msg("failed to shut down http server")
		}
	}()

	log.Info().Str("addr", server.Addr).Bool("client_capable", capable).Msg("starting http server")
	err = server.ListenAndServe()
	if err != nil && !errors.Is(err, http.ErrServerClosed) {
		log.Fatal().Stack().Err(err).Msg("http server stopped")
	}
}
