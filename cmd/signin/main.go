package main

import (
	"context"
	"encoding/json"
	"flag"
	"os"
	"os/signal"
	"syscall"

	"github.com/mattn/go-isatty"
	"github.com/rs/zerolog/log"

	"github.com/mdayat/jobtrack/internal/config"
	"github.com/mdayat/jobtrack/internal/services"
)

func main() {
	watch := flag.Bool("watch", false, "keep printing auth state changes until interrupted")
	signOut := flag.Bool("sign-out", false, "sign out the persisted user and exit")
	prompt := flag.String("prompt", "", "google prompt parameter: none, consent or select_account")
	flag.Parse()

	config.InitLogger(os.Getenv("LOG_LEVEL"))
	err := config.LoadEnv()
	if err != nil {
		log.Fatal().Stack().Err(err).Msgf("failed to load %s file", ".env")
	}

	capable, err := config.ClientCapable(isatty.IsTerminal(os.Stdin.Fd()))
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

	encoder := json.NewEncoder(os.Stdout)

	if *signOut {
		if err := registry.SignOut(ctx); err != nil {
			log.Fatal().Stack().Err(err).Msg("failed to sign out")
		}
		log.Info().Msg("signed out")
		return
	}

	if *watch {
		unsubscribe := registry.OnAuthStateChanged(ctx, func(user *services.User) {
			if err := encoder.Encode(user); err != nil {
				log.Error().Err(err).Msg("failed to print auth state")
			}
		})
		defer unsubscribe()
	}

	user, err := registry.SignInWithGoogle(ctx, services.WithCustomParameter("prompt", *prompt))
	if err != nil {
		log.Fatal().Stack().Err(err).Msg("failed to sign in with google")
	}
	if user == nil {
		log.Fatal().Bool("client_capable", capable).Msg("sign in is not available in this environment")
	}

	if !*watch {
		if err := encoder.Encode(user); err != nil {
			log.Fatal().Err(err).Msg("failed to print user")
		}
		return
	}

	<-ctx.Done()
}
