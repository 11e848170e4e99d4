// internal/handlers/api_server.go
package handlers

import (
	"context"
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"
	chimw "github.com/go-chi/chi/v5/middleware"
	"github.com/go-chi/cors"
	"github.com/jason-s-yu/loteria/internal/auth"
	"github.com/jason-s-yu/loteria/internal/middleware"
	"github.com/jason-s-yu/loteria/internal/models"
	"github.com/jason-s-yu/loteria/internal/room"
	"github.com/sirupsen/logrus"
)

// HistoryReader lists finished rounds, newest first.
type HistoryReader interface {
	Recent(ctx context.Context, limit int) ([]models.RoundResult, error)
}

// Server exposes the room coordinator over HTTP and websockets.
type Server struct {
	coord   *room.Coordinator
	signer  *auth.Signer
	history HistoryReader
	logger  logrus.FieldLogger

	// wsWriteTimeout bounds each feed write so a stalled client cannot pin its subscription.
	wsWriteTimeout time.Duration
}

// NewServer wires the handlers. history may be nil when no database is configured.
func NewServer(coord *room.Coordinator, signer *auth.Signer, history HistoryReader, logger logrus.FieldLogger) *Server {
	return &Server{
		coord:          coord,
		signer:         signer,
		history:        history,
		logger:         logger,
		wsWriteTimeout: 10 * time.Second,
	}
}

// RouterOptions configures the outer middleware stack.
type RouterOptions struct {
	// AllowedOrigins applies in production; elsewhere any http(s) origin is allowed.
	AllowedOrigins []string
	Production     bool
	// RateLimiter throttles intents per client; nil disables limiting.
	RateLimiter *middleware.RateLimiter
}

func (o RouterOptions) origins() []string {
	if o.Production {
		return o.AllowedOrigins
	}
	return []string{"https://*", "http://*"}
}

// Router builds the full HTTP handler.
func (s *Server) Router(opts RouterOptions) http.Handler {
	r := chi.NewRouter()
	r.Use(chimw.RequestID)
	r.Use(chimw.RealIP)
	r.Use(middleware.LogMiddleware(s.logger))
	r.Use(chimw.Recoverer)
	r.Use(chimw.Heartbeat("/ping"))
	r.Use(cors.Handler(cors.Options{
		AllowedOrigins:   opts.origins(),
		AllowedMethods:   []string{"GET", "POST", "OPTIONS"},
		AllowedHeaders:   []string{"Accept", "Authorization", "Content-Type", "X-CSRF-Token"},
		ExposedHeaders:   []string{"Link"},
		AllowCredentials: true,
		MaxAge:           300, // Maximum value not ignored by any of major browsers
	}))

	// The feed is long-lived and only reads, so it sits outside the rate limit.
	r.Get("/rooms/{roomID}/ws", s.RoomWSHandler(opts))

	r.Group(func(r chi.Router) {
		if opts.RateLimiter != nil {
			r.Use(opts.RateLimiter.Middleware)
		}
		r.Post("/rooms", s.CreateRoomHandler)
		r.Post("/rooms/join", s.JoinByCodeHandler)
		r.Get("/codes/{code}", s.ResolveCodeHandler)
		r.Get("/history", s.HistoryHandler)

		r.Route("/rooms/{roomID}", func(r chi.Router) {
			r.Get("/", s.GetRoomHandler)
			r.Post("/join", s.JoinByIDHandler)
			r.Post("/ready", s.SetReadyHandler)
			r.Post("/interval", s.SetDrawIntervalHandler)
			r.Post("/start", s.StartGameHandler)
			r.Post("/draw", s.DrawNextHandler)
			r.Post("/claim", s.ClaimBingoHandler)
			r.Post("/leave", s.LeaveRoomHandler)
		})
	})
	return r
}
