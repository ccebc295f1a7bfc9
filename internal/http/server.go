// Package http is the development backend: an in-memory implementation of
// the FinanceFlow REST contract with JWT bearer authentication.
package http

import (
	"context"
	"net/http"
	"sync"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/cors"
	"golang.org/x/crypto/bcrypt"

	"financeflow/internal/log"
	"financeflow/internal/middleware/ratelimit"
	"financeflow/internal/middleware/security"
	"financeflow/internal/middleware/trace"
)

// ServerConfig configures the development backend.
type ServerConfig struct {
	Addr           string
	JWTSecret      string
	TokenTTL       time.Duration
	AuthRateLimit  int // requests per minute per client on /api/auth
	AllowedOrigins []string

	// BcryptCost defaults to bcrypt.DefaultCost. Tests lower it.
	BcryptCost int
}

type Server struct {
	http.Server
	store       *Store
	tokens      *TokenIssuer
	rateLimiter *ratelimit.Limiter
	logger      *log.Logger
	bcryptCost  int

	shutdownOnce sync.Once
}

// NewServer configures routes, returning a ready-to-run server.
func NewServer(cfg ServerConfig, store *Store, logger *log.Logger) *Server {
	if logger == nil {
		logger = log.Discard()
	}
	cost := cfg.BcryptCost
	if cost == 0 {
		cost = bcrypt.DefaultCost
	}
	origins := cfg.AllowedOrigins
	if len(origins) == 0 {
		origins = []string{"http://localhost:*", "http://127.0.0.1:*"}
	}

	s := &Server{
		store:       store,
		tokens:      NewTokenIssuer(cfg.JWTSecret, cfg.TokenTTL),
		rateLimiter: ratelimit.NewLimiter(ratelimit.Config{RequestsPerMinute: cfg.AuthRateLimit}),
		logger:      logger.WithComponent(log.ComponentHTTP),
		bcryptCost:  cost,
	}

	ipResolver := security.NewClientIPResolver()

	r := chi.NewRouter()
	r.Use(trace.Middleware)
	r.Use(log.Middleware(s.logger, trace.FromRequest, ipResolver.ClientIP))
	r.Use(security.APIHeaders)
	r.Use(cors.Handler(cors.Options{
		AllowedOrigins:   origins,
		AllowedMethods:   []string{"GET", "POST", "PUT", "DELETE", "OPTIONS"},
		AllowedHeaders:   []string{"Authorization", "Content-Type", trace.HeaderRequestID},
		ExposedHeaders:   []string{trace.HeaderRequestID},
		AllowCredentials: false,
		MaxAge:           300,
	}))

	r.Get("/healthz", handleHealth)

	r.Route("/api", func(r chi.Router) {
		r.Route("/auth", func(r chi.Router) {
			r.With(s.rateLimiter.Middleware(ipResolver.ClientIP, onRateLimited)).Group(func(r chi.Router) {
				r.Post("/login", s.handleLogin)
				r.Post("/register", s.handleRegister)
			})
			r.With(s.requireAuth).Get("/me", s.handleMe)
		})

		r.Group(func(r chi.Router) {
			r.Use(s.requireAuth)

			r.Get("/expenses", s.handleListExpenses)
			r.Post("/expenses", s.handleCreateExpense)
			r.Put("/expenses/{id}", s.handleUpdateExpense)
			r.Delete("/expenses/{id}", s.handleDeleteExpense)

			r.Get("/budgets", s.handleListBudgets)
			r.Post("/budgets", s.handleSetBudget)
		})
	})

	r.NotFound(func(w http.ResponseWriter, r *http.Request) {
		writeError(w, http.StatusNotFound, "Not found")
	})
	r.MethodNotAllowed(func(w http.ResponseWriter, r *http.Request) {
		writeError(w, http.StatusMethodNotAllowed, "Method not allowed")
	})

	s.Server = http.Server{
		Addr:              cfg.Addr,
		Handler:           r,
		ReadHeaderTimeout: 10 * time.Second,
	}
	return s
}

func onRateLimited(w http.ResponseWriter, r *http.Request) {
	log.FromContext(r.Context()).WithComponent(log.ComponentRateLimit).
		WarnContext(r.Context(), "Rate limit exceeded", log.FieldPath, r.URL.Path)
	writeError(w, http.StatusTooManyRequests, "Too many requests. Please try again later.")
}

func handleHealth(w http.ResponseWriter, r *http.Request) {
	w.WriteHeader(http.StatusOK)
	_, _ = w.Write([]byte("ok"))
}

// Shutdown stops the rate limiter and gracefully shuts down the server.
func (s *Server) Shutdown(ctx context.Context) error {
	var shutdownErr error
	s.shutdownOnce.Do(func() {
		s.rateLimiter.Stop()
		shutdownErr = s.Server.Shutdown(ctx)
	})
	return shutdownErr
}
