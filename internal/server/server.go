package server

import (
	"database/sql"
	"encoding/json"
	"log/slog"
	"net/http"
	"time"

	"github.com/dukerupert/hostcal/internal/handler"
	"github.com/dukerupert/hostcal/internal/middleware"
	"github.com/dukerupert/hostcal/internal/notify"
	"github.com/dukerupert/hostcal/internal/store"
	ws "github.com/dukerupert/hostcal/internal/websocket"
)

// authRateLimit applies per client IP to every credential endpoint.
const (
	authRateLimit  = 10
	authRateWindow = time.Minute
)

type Server struct {
	hub          *ws.Hub
	authH        *handler.AuthHandler
	listingH     *handler.ListingHandler
	bookingH     *handler.BookingHandler
	calendarH    *handler.CalendarHandler
	sessionStore *store.SessionStore
	userStore    *store.UserStore
	rateLimiter  *middleware.RateLimiter
	logger       *slog.Logger
}

// New builds the HTTP surface. publisher receives manual booking edits and
// should include hub so dashboards see them.
func New(db *sql.DB, pipeline handler.Pipeline, hub *ws.Hub, publisher notify.Publisher, logger *slog.Logger) *Server {
	userStore := store.NewUserStore(db)
	sessionStore := store.NewSessionStore(db)
	listingStore := store.NewListingStore(db)
	bookingStore := store.NewBookingStore(db)
	syncRunStore := store.NewSyncRunStore(db)

	return &Server{
		hub:          hub,
		authH:        handler.NewAuthHandler(userStore, sessionStore, logger.With("component", "auth")),
		listingH:     handler.NewListingHandler(listingStore, logger.With("component", "listing")),
		bookingH:     handler.NewBookingHandler(bookingStore, publisher, logger.With("component", "booking")),
		calendarH:    handler.NewCalendarHandler(pipeline, syncRunStore, logger.With("component", "calendar")),
		sessionStore: sessionStore,
		userStore:    userStore,
		rateLimiter:  middleware.NewRateLimiter(),
		logger:       logger,
	}
}

// SessionStore returns the session store for cleanup tasks.
func (s *Server) SessionStore() *store.SessionStore {
	return s.sessionStore
}

// RateLimiter returns the rate limiter for cleanup tasks.
func (s *Server) RateLimiter() *middleware.RateLimiter {
	return s.rateLimiter
}

func (s *Server) Router() http.Handler {
	outerMux := http.NewServeMux()

	// Public routes
	outerMux.HandleFunc("GET /health", s.healthHandler)
	outerMux.HandleFunc("POST /api/signup", s.rateLimitedHandler("signup", s.authH.Signup))
	outerMux.HandleFunc("POST /api/login", s.rateLimitedHandler("login", s.authH.Login))
	outerMux.HandleFunc("POST /api/token", s.rateLimitedHandler("login", s.authH.Login))
	outerMux.HandleFunc("POST /api/reset-password", s.rateLimitedHandler("reset", s.authH.ResetPassword))
	outerMux.HandleFunc("GET /api/calendar/reserved", s.calendarH.Reserved)
	outerMux.HandleFunc("GET /api/bookings", s.bookingH.List)

	protectedMux := http.NewServeMux()
	s.registerProtectedRoutes(protectedMux)

	authMiddleware := middleware.RequireAuth(s.sessionStore, s.userStore)
	outerMux.Handle("/", authMiddleware(protectedMux))

	h := middleware.RequestLogger(s.logger.With("component", "http"))(outerMux)
	return middleware.RequestID(h)
}

func (s *Server) healthHandler(w http.ResponseWriter, r *http.Request) {
	w.Header().Set("Content-Type", "application/json")
	json.NewEncoder(w).Encode(map[string]string{"status": "ok"})
}

func (s *Server) rateLimitedHandler(scope string, h http.HandlerFunc) http.HandlerFunc {
	rl := middleware.RateLimit(s.rateLimiter, scope, middleware.RealIP, authRateLimit, authRateWindow)
	return rl(h).ServeHTTP
}

func (s *Server) registerProtectedRoutes(mux *http.ServeMux) {
	mux.HandleFunc("POST /api/logout", s.authH.Logout)
	mux.HandleFunc("GET /api/account", s.authH.Account)

	mux.HandleFunc("POST /api/listings", s.listingH.Create)
	mux.HandleFunc("GET /api/listings", s.listingH.List)
	mux.HandleFunc("GET /api/listings/{id}", s.listingH.Get)
	mux.HandleFunc("PUT /api/listings/{id}", s.listingH.Update)
	mux.HandleFunc("DELETE /api/listings/{id}", s.listingH.Delete)

	// Admin
	mux.HandleFunc("GET /api/admin/users", s.authH.ListUsers)
	mux.HandleFunc("PATCH /api/admin/bookings/{id}", s.bookingH.Update)
	mux.HandleFunc("POST /api/admin/sync-reserved", s.calendarH.Sync)
	mux.HandleFunc("GET /api/admin/sync-runs", s.calendarH.SyncRuns)

	mux.HandleFunc("GET /ws", ws.Handler(s.hub, s.logger.With("component", "websocket")))
}
