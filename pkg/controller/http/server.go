package http

import (
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
	"github.com/secmon-lab/chatwarden/pkg/usecase"
	"github.com/secmon-lab/chatwarden/pkg/utils/logging"
	"github.com/secmon-lab/chatwarden/pkg/utils/safe"
)

// Server exposes the pipeline's trigger bindings as webhook endpoints:
// the hosting platform pushes document write deliveries and account
// creation events to it.
type Server struct {
	router *chi.Mux
	uc     *usecase.UseCases
}

// New creates the HTTP server for trigger deliveries.
func New(uc *usecase.UseCases) *Server {
	r := chi.NewRouter()

	s := &Server{
		router: r,
		uc:     uc,
	}

	r.Use(middleware.RequestID)
	r.Use(accessLogger)
	r.Use(middleware.Recoverer)

	r.Route("/hooks", func(r chi.Router) {
		r.Post("/message", s.handleMessageWrite)
		r.Post("/user", s.handleUserCreated)
	})

	r.Get("/health", func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusOK)
		safe.Write(r.Context(), w, []byte("OK"))
	})

	return s
}

func (s *Server) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	s.router.ServeHTTP(w, r)
}

// accessLogger logs each request with its duration and status
func accessLogger(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		start := time.Now()
		ww := middleware.NewWrapResponseWriter(w, r.ProtoMajor)

		next.ServeHTTP(ww, r)

		logging.From(r.Context()).Info("access",
			"method", r.Method,
			"path", r.URL.Path,
			"status", ww.Status(),
			"bytes", ww.BytesWritten(),
			"duration", time.Since(start).String(),
			"request_id", middleware.GetReqID(r.Context()),
		)
	})
}
