package server

import (
	"database/sql"
	"encoding/json"
	"log/slog"
	"net/http"
	"time"

	"github.com/veilleux/sesame/internal/auth"
	"github.com/veilleux/sesame/internal/config"
	"github.com/veilleux/sesame/internal/events"
	"github.com/veilleux/sesame/internal/exchange"
	"github.com/veilleux/sesame/internal/handler"
	"github.com/veilleux/sesame/internal/mail"
	"github.com/veilleux/sesame/internal/middleware"
	"github.com/veilleux/sesame/internal/objstore"
	"github.com/veilleux/sesame/internal/store"
)

type Server struct {
	db          *sql.DB
	hub         *events.Hub
	codec       *auth.TokenCodec
	authH       *handler.AuthHandler
	convertH    *handler.ConvertHandler
	exchangeH   *handler.ExchangeHandler
	rateLimiter *middleware.RateLimiter
	logger      *slog.Logger
}

func New(db *sql.DB, cfg *config.Config, logger *slog.Logger) *Server {
	hub := events.NewHub(logger.With("component", "events"))

	userStore := store.NewUserStore(db)
	conversionStore := store.NewConversionStore(db)

	mailer := mail.NewClient(cfg.SMTPHost, cfg.SMTPPort, cfg.SMTPFrom, cfg.SMTPPassword, cfg.BaseURL)
	if !mailer.Configured() {
		logger.Warn("smtp not configured, magic link codes will not be delivered")
	}

	authSvc := auth.NewService(userStore, mailer, cfg.SessionTTL(),
		logger.With("component", "auth"),
		auth.WithNotifier(hub.Broadcast))
	codec := auth.NewTokenCodec([]byte(cfg.SecretKey), cfg.Production())

	archive := objstore.New(cfg.S3())
	exchangeClient := exchange.NewClient(cfg.Exchange())

	return &Server{
		db:          db,
		hub:         hub,
		codec:       codec,
		authH:       handler.NewAuthHandler(authSvc, codec, logger.With("component", "auth_handler")),
		convertH:    handler.NewConvertHandler(conversionStore, archive, logger.With("component", "convert")),
		exchangeH:   handler.NewExchangeHandler(exchangeClient, logger.With("component", "exchange")),
		rateLimiter: middleware.NewRateLimiter(),
		logger:      logger,
	}
}

// RateLimiter returns the rate limiter for cleanup tasks.
func (s *Server) RateLimiter() *middleware.RateLimiter {
	return s.rateLimiter
}

// Hub returns the event hub.
func (s *Server) Hub() *events.Hub {
	return s.hub
}

func (s *Server) Router() http.Handler {
	mux := http.NewServeMux()

	// Magic link flow. Issue and validate carry no rate limit.
	mux.HandleFunc("POST /send-magic-link", s.authH.SendMagicLink)
	mux.HandleFunc("POST /validate-magic-link", s.authH.ValidateMagicLink)
	mux.HandleFunc("POST /check-session", s.authH.CheckSession)
	mux.HandleFunc("POST /update-activity", s.authH.UpdateActivity)
	mux.HandleFunc("POST /logout", s.authH.Logout)

	// Cookie-state endpoints require a valid session token.
	sessionRequired := middleware.RequireSession(s.codec)
	mux.Handle("GET /session-status", sessionRequired(http.HandlerFunc(s.authH.SessionStatus)))
	mux.Handle("POST /refresh-session", sessionRequired(http.HandlerFunc(s.authH.RefreshSession)))

	mux.HandleFunc("POST /convert/csv", s.convertH.Convert)
	mux.HandleFunc("GET /convert/logs", s.convertH.Logs)
	mux.HandleFunc("GET /convert/history", s.convertH.History)

	// Provider proxies cost upstream quota, so they are rate limited per IP.
	mux.HandleFunc("POST /exchange/gemini", s.rateLimitedHandler(s.exchangeH.Generate))
	mux.HandleFunc("POST /exchange/sonar", s.rateLimitedHandler(s.exchangeH.Ask))
	mux.HandleFunc("GET /exchange/ping", s.exchangeH.Ping)

	mux.Handle("GET /ws", events.HandleWebSocket(s.hub, s.logger.With("component", "ws")))
	mux.HandleFunc("GET /health", s.healthHandler)
	mux.HandleFunc("GET /ping", s.exchangeH.Ping)

	return middleware.RequestLogger(s.logger.With("component", "http"))(mux)
}

func (s *Server) healthHandler(w http.ResponseWriter, r *http.Request) {
	w.Header().Set("Content-Type", "application/json")
	json.NewEncoder(w).Encode(map[string]string{"status": "alive"})
}

func (s *Server) rateLimitedHandler(h http.HandlerFunc) http.HandlerFunc {
	keyFunc := func(r *http.Request) string {
		return middleware.RealIP(r)
	}
	rl := middleware.RateLimit(s.rateLimiter, keyFunc, 10, time.Minute)
	return func(w http.ResponseWriter, r *http.Request) {
		rl(http.HandlerFunc(h)).ServeHTTP(w, r)
	}
}
