// Package server assembles the HTTP surface: routes, middleware chain and
// connection draining.
package server

import (
	"context"
	"log/slog"
	"net/http"

	"github.com/AwesomeSauce-Software/gooftuber-server/pkg/avatars"
	"github.com/AwesomeSauce-Software/gooftuber-server/pkg/gateway/config"
	"github.com/AwesomeSauce-Software/gooftuber-server/pkg/gateway/handlers"
	"github.com/AwesomeSauce-Software/gooftuber-server/pkg/gateway/live/relay"
	"github.com/AwesomeSauce-Software/gooftuber-server/pkg/gateway/live/sessions"
	"github.com/AwesomeSauce-Software/gooftuber-server/pkg/gateway/metrics"
	"github.com/AwesomeSauce-Software/gooftuber-server/pkg/gateway/mw"
	"github.com/AwesomeSauce-Software/gooftuber-server/pkg/presence"
)

type Server struct {
	cfg    config.Config
	logger *slog.Logger
	mux    *http.ServeMux

	presence *presence.Service
	avatars  *avatars.Store
	metrics  *metrics.Metrics
	tracker  *sessions.Tracker
	relay    *relay.Relay
}

func New(cfg config.Config, logger *slog.Logger, svc *presence.Service, avatarStore *avatars.Store) *Server {
	if logger == nil {
		logger = slog.Default()
	}

	m := metrics.NewMetrics(cfg.MetricsNamespace)
	tracker := sessions.NewTracker()

	s := &Server{
		cfg:      cfg,
		logger:   logger,
		mux:      http.NewServeMux(),
		presence: svc,
		avatars:  avatarStore,
		metrics:  m,
		tracker:  tracker,
		relay: &relay.Relay{
			State:   svc,
			Logger:  logger,
			Metrics: m,
			Config: relay.Config{
				PollInterval: cfg.RelayPollInterval,
				InertTimeout: cfg.RelayInertTimeout,
				WriteTimeout: cfg.RelayWriteTimeout,
				PingInterval: cfg.RelayPingInterval,
			},
		},
	}

	s.routes()
	return s
}

func (s *Server) routes() {
	s.mux.Handle("GET /ping", handlers.PingHandler{})
	s.mux.Handle("GET /healthz", handlers.HealthHandler{})
	s.mux.Handle("GET /metrics", s.metrics.Handler())

	s.mux.Handle("GET /validsession/{session}", handlers.ValidSessionHandler{Presence: s.presence})
	s.mux.Handle("POST /verify/{identity}", handlers.VerifyRequestHandler{Presence: s.presence, Metrics: s.metrics})
	s.mux.Handle("POST /verify/{identity}/{code}", handlers.VerifyRedeemHandler{Presence: s.presence, Metrics: s.metrics})

	s.mux.Handle("POST /request-session/{session}/{identity}", handlers.RequestSessionHandler{Presence: s.presence, Metrics: s.metrics})
	s.mux.Handle("POST /allow-session/{invite}", handlers.AllowSessionHandler{Presence: s.presence, Metrics: s.metrics})
	s.mux.Handle("POST /deny-session/{invite}", handlers.DenySessionHandler{Presence: s.presence, Metrics: s.metrics})

	s.mux.Handle("POST /upload-avatar/{session}", handlers.UploadAvatarHandler{Presence: s.presence, Avatars: s.avatars})
	s.mux.Handle("GET /get-avatars/{session}/{identity}", handlers.GetAvatarsHandler{Presence: s.presence, Avatars: s.avatars})

	live := handlers.LiveDeps{
		Presence:        s.presence,
		Relay:           s.relay,
		Tracker:         s.tracker,
		Metrics:         s.metrics,
		Logger:          s.logger,
		MaxMessageBytes: s.cfg.RelayMaxMessageBytes,
	}
	s.mux.Handle("GET /send-data/{session}", handlers.SendDataHandler{LiveDeps: live})
	s.mux.Handle("GET /receive-data/{session}", handlers.ReceiveDataHandler{LiveDeps: live})
	s.mux.Handle("GET /receive-data/{session}/{identities}", handlers.ReceiveDataHandler{LiveDeps: live})
	s.mux.Handle("GET /websocket/{session}/{identities}", handlers.CombinedHandler{LiveDeps: live})
}

func (s *Server) Handler() http.Handler {
	var h http.Handler = s.mux
	h = mw.CORS(s.cfg.CORSAllowedOrigins, h)
	h = mw.Recover(s.logger, h)
	h = mw.AccessLog(s.logger, h)
	h = mw.RequestID(h)
	return h
}

// Tracker exposes the live connection tracker for shutdown coordination.
func (s *Server) Tracker() *sessions.Tracker {
	return s.tracker
}

// Drain notifies open relay connections and waits for them to finish,
// force-closing whatever remains when the context expires.
func (s *Server) Drain(ctx context.Context) {
	notified := s.tracker.NotifyAll("server is shutting down")
	if notified > 0 {
		s.logger.Info("notified live connections", "count", notified)
	}
	if !s.tracker.Wait(ctx) {
		closed := s.tracker.CloseAll()
		s.logger.Warn("force closed live connections", "count", closed)
		s.tracker.Wait(context.Background())
	}
}
