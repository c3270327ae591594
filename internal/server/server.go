package server

import (
	"database/sql"
	"log/slog"
	"net/http"
	"time"

	"github.com/dukerupert/tasklist/internal/auth"
	"github.com/dukerupert/tasklist/internal/database"
	"github.com/dukerupert/tasklist/internal/handler"
	"github.com/dukerupert/tasklist/internal/middleware"
	"github.com/dukerupert/tasklist/internal/service"
	"github.com/dukerupert/tasklist/internal/store"
	"github.com/rs/cors"
)

const (
	authRateLimit  = 10
	authRateWindow = time.Minute
)

// Options carries the settings the router depends on.
type Options struct {
	Dialect    database.Dialect
	JWTSecret  []byte
	ClientURL  string
	Production bool

	// TrustProxy keys the auth rate limit on forwarding headers instead
	// of the connection address.
	TrustProxy bool
}

type Server struct {
	authH       *handler.AuthHandler
	taskH       *handler.TaskHandler
	guard       *auth.Guard
	rateLimiter *middleware.RateLimiter
	clientKey   func(*http.Request) string
	clientURL   string
	production  bool
	logger      *slog.Logger
}

func New(db *sql.DB, opts Options, logger *slog.Logger) *Server {
	userStore := store.NewUserStore(db, opts.Dialect)
	taskStore := store.NewTaskStore(db, opts.Dialect)
	issuer := auth.NewIssuer(opts.JWTSecret, auth.SessionTTL)

	authSvc := service.NewAuthService(userStore, issuer, logger.With("component", "auth"))
	taskSvc := service.NewTaskService(taskStore, logger.With("component", "task"))

	return &Server{
		authH:       handler.NewAuthHandler(authSvc, logger.With("component", "auth_handler"), opts.Production),
		taskH:       handler.NewTaskHandler(taskSvc, logger.With("component", "task_handler"), opts.Production),
		guard:       auth.NewGuard(issuer, userStore),
		rateLimiter: middleware.NewRateLimiter(authRateLimit, authRateWindow),
		clientKey:   middleware.ClientKey(opts.TrustProxy),
		clientURL:   opts.ClientURL,
		production:  opts.Production,
		logger:      logger,
	}
}

// RateLimiter returns the login/register limiter for cleanup tasks.
func (s *Server) RateLimiter() *middleware.RateLimiter {
	return s.rateLimiter
}

func (s *Server) Router() http.Handler {
	outerMux := http.NewServeMux()

	// Public routes
	outerMux.HandleFunc("GET /api/health", handler.Health)
	outerMux.Handle("POST /api/auth/register", s.rateLimited(s.authH.Register))
	outerMux.Handle("POST /api/auth/login", s.rateLimited(s.authH.Login))
	outerMux.HandleFunc("POST /api/auth/logout", s.authH.Logout)

	// Protected routes
	protectedMux := http.NewServeMux()
	s.registerProtectedRoutes(protectedMux)

	requireAuth := middleware.RequireAuth(s.guard, s.logger.With("component", "guard"))
	protected := requireAuth(protectedMux)
	outerMux.Handle("GET /api/auth/me", protected)
	outerMux.Handle("/api/tasks", protected)
	outerMux.Handle("/api/tasks/", protected)

	outerMux.HandleFunc("/", handler.NotFound)

	c := cors.New(cors.Options{
		AllowedOrigins:   []string{s.clientURL},
		AllowedMethods:   []string{http.MethodGet, http.MethodPost, http.MethodPut, http.MethodDelete},
		AllowedHeaders:   []string{"Content-Type"},
		AllowCredentials: true,
	})

	var h http.Handler = outerMux
	h = c.Handler(h)
	h = middleware.RequestLogger(s.logger.With("component", "http"))(h)
	h = middleware.Recoverer(s.logger.With("component", "recover"), s.production)(h)
	return h
}

func (s *Server) rateLimited(h http.HandlerFunc) http.Handler {
	return middleware.RateLimit(s.rateLimiter, s.clientKey)(h)
}

func (s *Server) registerProtectedRoutes(mux *http.ServeMux) {
	mux.HandleFunc("GET /api/auth/me", s.authH.Me)

	mux.HandleFunc("GET /api/tasks", s.taskH.List)
	mux.HandleFunc("POST /api/tasks", s.taskH.Create)
	mux.HandleFunc("GET /api/tasks/{id}", s.taskH.Get)
	mux.HandleFunc("PUT /api/tasks/{id}", s.taskH.Update)
	mux.HandleFunc("DELETE /api/tasks/{id}", s.taskH.Delete)

	mux.HandleFunc("/", handler.NotFound)
}
