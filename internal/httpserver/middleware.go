package httpserver

import (
	"bufio"
	"net"
	"net/http"
	"strings"
	"time"

	"github.com/google/uuid"
	"github.com/pkg/errors"
	"github.com/rs/zerolog/log"
)

type loggerResponseWriter struct {
	http.ResponseWriter
	statusCode int
}

func (res *loggerResponseWriter) WriteHeader(statusCode int) {
	res.statusCode = statusCode
	res.ResponseWriter.WriteHeader(statusCode)
}

func (res *loggerResponseWriter) Flush() {
	if flusher, ok := res.ResponseWriter.(http.Flusher); ok {
		flusher.Flush()
	}
}

func (res *loggerResponseWriter) Hijack() (net.Conn, *bufio.ReadWriter, error) {
	hijacker, ok := res.ResponseWriter.(http.Hijacker)
	if !ok {
		return nil, nil, errors.New("response writer does not support hijacking")
	}
	return hijacker.Hijack()
}

func logger(next http.Handler) http.Handler {
	return http.HandlerFunc(func(res http.ResponseWriter, req *http.Request) {
		lres := loggerResponseWriter{res, http.StatusOK}
		start := time.Now()

		subLogger := log.
			With().
			Str("request_id", uuid.New().String()).
			Str("method", req.Method).
			Str("path", req.URL.Path).
			Str("client_ip", req.RemoteAddr).
			Logger()
		ctx := subLogger.WithContext(req.Context())

		subLogger.Info().Str("user_agent", req.UserAgent()).Msg("request received")
		defer func() {
			subLogger.Info().
				Int("status_code", lres.statusCode).
				Dur("response_time", time.Since(start)).
				Msg("request completed")
		}()

		next.ServeHTTP(&lres, req.WithContext(ctx))
	})
}

// allowOrigins rejects requests whose Origin header names a site outside
// allowedOrigins. CORS only hides responses from such sites; it does not stop
// a simple cross-site POST from reaching the handler. Requests without an
// Origin header, such as those from the CLI, pass through.
func allowOrigins(allowedOrigins []string) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(res http.ResponseWriter, req *http.Request) {
			origin := req.Header.Get("Origin")
			if origin == "" || originAllowed(origin, allowedOrigins) {
				next.ServeHTTP(res, req)
				return
			}

			log.Ctx(req.Context()).Warn().Str("origin", origin).Int("status_code", http.StatusForbidden).Msg("rejected request from disallowed origin")
			http.Error(res, http.StatusText(http.StatusForbidden), http.StatusForbidden)
		})
	}
}

func originAllowed(origin string, allowedOrigins []string) bool {
	for _, allowed := range allowedOrigins {
		if allowed == "*" || strings.EqualFold(allowed, origin) {
			return true
		}
	}
	return false
}
