package httpserver

import (
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
	"github.com/go-chi/cors"
	"github.com/go-chi/httprate"

	"github.com/mdayat/jobtrack/internal/services"
)

type server struct {
	registry *services.Registry
}

// New returns the router exposing the registry's auth operations to the
// web front-end.
func New(registry *services.Registry, allowedOrigins []string) *chi.Mux {
	s := &server{registry: registry}

	router := chi.NewRouter()
	router.Use(middleware.CleanPath)
	router.Use(middleware.RealIP)
	router.Use(logger)
	router.Use(middleware.Recoverer)
	router.Use(httprate.LimitByIP(100, 1*time.Minute))
	options := cors.Options{
		AllowedOrigins:   allowedOrigins,
		AllowedMethods:   []string{"GET", "POST", "HEAD", "OPTIONS"},
		AllowedHeaders:   []string{"User-Agent", "Content-Type", "Accept", "Accept-Encoding", "Accept-Language", "Cache-Control", "Connection", "Host", "Origin", "Referer"},
		ExposedHeaders:   []string{"Content-Length"},
		AllowCredentials: true,
		MaxAge:           300,
	}
	router.Use(cors.Handler(options))
	router.Use(middleware.Heartbeat("/ping"))

	router.Route("/auth", func(r chi.Router) {
		r.Group(func(r chi.Router) {
			r.Use(allowOrigins(allowedOrigins))
			r.Use(middleware.AllowContentType("application/json"))
			r.Post("/google", s.signInHandler)
			r.Post("/sign-out", s.signOutHandler)
		})
		r.Get("/user", s.currentUserHandler)
		r.Get("/events", s.authEventsHandler)
	})

	return router
}
