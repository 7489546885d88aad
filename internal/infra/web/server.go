package web

import (
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"github.com/rs/zerolog"

	"telegram-channel-booster/internal/usecase"
)

// Server is the ops API. Everything under /api/v1 except the auth routes
// requires a minted admin session.
type Server struct {
	sources usecase.SourceUseCase
	stats   usecase.StatsUseCase
	health  usecase.HealthUseCase
	apiKey  string
	auth    *AuthManager
	log     *zerolog.Logger
}

func NewServer(
	sources usecase.SourceUseCase,
	stats usecase.StatsUseCase,
	health usecase.HealthUseCase,
	apiKey string,
	auth *AuthManager,
	logger *zerolog.Logger,
) *Server {
	return &Server{
		sources: sources,
		stats:   stats,
		health:  health,
		apiKey:  apiKey,
		auth:    auth,
		log:     logger,
	}
}

// Router builds the full route tree, middleware included.
func (s *Server) Router() chi.Router {
	r := chi.NewRouter()
	r.Use(Recover(s.log), TraceID(), RequestLog(s.log), Timeout(30*time.Second))

	r.Get("/health", func(w http.ResponseWriter, _ *http.Request) {
		w.WriteHeader(http.StatusOK)
		_, _ = w.Write([]byte("OK"))
	})
	r.Method(http.MethodGet, "/metrics", promhttp.Handler())

	r.Route("/api/v1", func(api chi.Router) {
		api.Post("/auth/login", s.handleLogin)
		api.Post("/auth/logout", s.handleLogout)

		api.Group(func(priv chi.Router) {
			priv.Use(s.authMiddleware)

			priv.Route("/sources", func(sr chi.Router) {
				sr.Get("/", s.handleListSources)
				sr.Post("/", s.handleCreateSource)
				sr.Route("/{id}", func(one chi.Router) {
					one.Get("/", s.handleGetSource)
					one.Delete("/", s.handleDeleteSource)
					one.Patch("/enabled", s.handleSetEnabled)
					one.Post("/recheck", s.handleRecheck)
					one.Get("/stats", s.handleSourceStats)
					one.Get("/logs", s.handleSourceLogs)
				})
			})
			priv.Get("/stats", s.handleAllStats)
			priv.Get("/logs", s.handleRecentLogs)
		})
	})
	return r
}

// authMiddleware accepts a minted admin JWT, either as a bearer header or as
// the session cookie.
func (s *Server) authMiddleware(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if s.auth == nil {
			s.log.Error().Msg("Admin auth manager is not configured")
			http.Error(w, "Unauthorized", http.StatusUnauthorized)
			return
		}
		if _, err := s.auth.ParseFromRequest(r); err != nil {
			http.Error(w, "Unauthorized", http.StatusUnauthorized)
			return
		}
		next.ServeHTTP(w, r)
	})
}
