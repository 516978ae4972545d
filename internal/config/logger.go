package config

import (
	"os"
	"path/filepath"
	"strconv"
	"sync"

	"github.com/mattn/go-isatty"
	"github.com/rs/zerolog"
	"github.com/rs/zerolog/log"
	"github.com/rs/zerolog/pkgerrors"
)

var loggerOnce sync.Once

// InitLogger configures the global logger. Contexts without a logger fall
// back to it, so log.Ctx works outside of HTTP requests too.
func InitLogger(level string) {
	loggerOnce.Do(func() {
		zerolog.TimeFieldFormat = zerolog.TimeFormatUnix
		zerolog.ErrorStackMarshaler = pkgerrors.MarshalStack
		zerolog.CallerMarshalFunc = func(pc uintptr, file string, line int) string {
			return filepath.Base(file) + ":" + strconv.Itoa(line)
		}

		lvl, err := zerolog.ParseLevel(level)
		if err != nil || level == "" {
			lvl = zerolog.InfoLevel
		}
		zerolog.SetGlobalLevel(lvl)

		logger := log.With().Caller().Logger()
		if isatty.IsTerminal(os.Stderr.Fd()) {
			logger = logger.Output(zerolog.ConsoleWriter{Out: os.Stderr})
		}
		log.Logger = logger
		zerolog.DefaultContextLogger = &log.Logger
	})
}
