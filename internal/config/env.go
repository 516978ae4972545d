package config

import (
	"io/fs"
	"os"
	"strconv"
	"sync"

	"github.com/joho/godotenv"
	"github.com/pkg/errors"

	"github.com/mdayat/jobtrack/internal/services"
)

var (
	envOnce sync.Once
	err     error
	Env     struct {
		PUBLIC_FIREBASE_API_KEY     string
		PUBLIC_FIREBASE_AUTH_DOMAIN string
		PUBLIC_FIREBASE_PROJECT_ID  string
		PUBLIC_FIREBASE_APP_ID      string
		GOOGLE_OAUTH_CLIENT_ID      string
		GOOGLE_OAUTH_CLIENT_SECRET  string
		REDIS_URL                   string
		ALLOWED_ORIGINS             string
		HTTP_ADDR                   string
		CLIENT_CAPABLE              string
	}
)

// LoadEnv reads .env, when present, and then the process environment. It
// runs once per process.
func LoadEnv(filenames ...string) error {
	envOnce.Do(func() {
		err = loadEnv(filenames...)
	})

	return err
}

func loadEnv(filenames ...string) error {
	if err := godotenv.Load(filenames...); err != nil && !errors.Is(err, fs.ErrNotExist) {
		return errors.Wrap(err, "failed to load .env file")
	}

	Env.PUBLIC_FIREBASE_API_KEY = os.Getenv("PUBLIC_FIREBASE_API_KEY")
	Env.PUBLIC_FIREBASE_AUTH_DOMAIN = os.Getenv("PUBLIC_FIREBASE_AUTH_DOMAIN")
	Env.PUBLIC_FIREBASE_PROJECT_ID = os.Getenv("PUBLIC_FIREBASE_PROJECT_ID")
	Env.PUBLIC_FIREBASE_APP_ID = os.Getenv("PUBLIC_FIREBASE_APP_ID")
	Env.GOOGLE_OAUTH_CLIENT_ID = os.Getenv("GOOGLE_OAUTH_CLIENT_ID")
	Env.GOOGLE_OAUTH_CLIENT_SECRET = os.Getenv("GOOGLE_OAUTH_CLIENT_SECRET")
	Env.REDIS_URL = os.Getenv("REDIS_URL")
	Env.ALLOWED_ORIGINS = os.Getenv("ALLOWED_ORIGINS")
	Env.HTTP_ADDR = os.Getenv("HTTP_ADDR")
	Env.CLIENT_CAPABLE = os.Getenv("CLIENT_CAPABLE")

	if Env.HTTP_ADDR == "" {
		Env.HTTP_ADDR = "127.0.0.1:8080"
	}
	if Env.ALLOWED_ORIGINS == "" {
		Env.ALLOWED_ORIGINS = "http://localhost:5173"
	}

	return nil
}

func FirebaseConfig() services.Config {
	return services.Config{
		APIKey:     Env.PUBLIC_FIREBASE_API_KEY,
		AuthDomain: Env.PUBLIC_FIREBASE_AUTH_DOMAIN,
		ProjectID:  Env.PUBLIC_FIREBASE_PROJECT_ID,
		AppID:      Env.PUBLIC_FIREBASE_APP_ID,
	}
}

// ClientCapable reports whether provider handles may be built. An unset
// CLIENT_CAPABLE falls back to the given default.
func ClientCapable(fallback bool) (bool, error) {
	if Env.CLIENT_CAPABLE == "" {
		return fallback, nil
	}

	capable, err := strconv.ParseBool(Env.CLIENT_CAPABLE)
	if err != nil {
		return false, errors.Wrapf(err, "invalid CLIENT_CAPABLE value %q", Env.CLIENT_CAPABLE)
	}
	return capable, nil
}
