package server

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/cors"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"go.opentelemetry.io/contrib/instrumentation/net/http/otelhttp"

	"wagerchain/observability"
	"wagerchain/services/casinod/archive"
	"wagerchain/services/casinod/node"
)

// Config defines HTTP server parameters.
type Config struct {
	Auth           AuthConfig
	RateLimit      RateLimit
	AllowedOrigins []string
	CORSMaxAge     int
	ExportDir      string
}

// Exporter writes archived settlements to files.
type Exporter interface {
	Export(ctx context.Context, dir string, f archive.Filter) (*archive.ExportResult, error)
}

// Server exposes the node over HTTP.
type Server struct {
	cfg      Config
	node     *node.Node
	exporter Exporter
	auth     *Authenticator
	limiter  *RateLimiter
	metrics  *observability.CasinoMetrics
	log      *slog.Logger
}

// New constructs the server. exporter may be nil when no archive is
// configured.
func New(cfg Config, n *node.Node, exporter Exporter, metrics *observability.CasinoMetrics, log *slog.Logger) (*Server, error) {
	if n == nil {
		return nil, fmt.Errorf("node required")
	}
	auth, err := NewAuthenticator(cfg.Auth)
	if err != nil {
		return nil, fmt.Errorf("configure auth: %w", err)
	}
	if log == nil {
		log = slog.Default()
	}
	if cfg.ExportDir == "" {
		cfg.ExportDir = "exports"
	}
	return &Server{
		cfg:      cfg,
		node:     n,
		exporter: exporter,
		auth:     auth,
		limiter:  NewRateLimiter(cfg.RateLimit, metrics),
		metrics:  metrics,
		log:      log,
	}, nil
}

// Handler builds the routed, instrumented HTTP handler.
func (s *Server) Handler() http.Handler {
	r := chi.NewRouter()
	origins := s.cfg.AllowedOrigins
	if len(origins) == 0 {
		origins = []string{"*"}
	}
	r.Use(cors.Handler(cors.Options{
		AllowedOrigins: origins,
		AllowedMethods: []string{"GET", "POST", "PUT", "OPTIONS"},
		AllowedHeaders: []string{"Accept", "Authorization", "Content-Type"},
		MaxAge:         s.cfg.CORSMaxAge,
	}))
	r.Use(observe(s.metrics))

	r.Get("/healthz", s.handleHealth)
	r.Handle("/metrics", promhttp.Handler())

	r.Route("/v1", func(v1 chi.Router) {
		v1.Use(s.auth.Middleware)
		v1.Use(s.limiter.Middleware)

		v1.Get("/balance", s.handleBalance)
		v1.Post("/faucet", s.handleFaucet)
		v1.Get("/entropy/commitment", s.handleCommitment)
		v1.Get("/entropy/reveals", s.handleReveals)

		v1.Route("/crash/rounds", func(cr chi.Router) {
			cr.Post("/", s.handleStartRound)
			cr.Get("/{id}", s.handleGetRound)
			cr.Post("/{id}/bets", s.handlePlaceBet)
			cr.Get("/{id}/bets/{player}", s.handleGetBet)
			cr.Post("/{id}/activate", s.handleActivateRound)
			cr.Post("/{id}/cashout", s.handleCashOut)
			cr.Post("/{id}/end", s.handleEndRound)
		})

		v1.Route("/referrers/{game}", func(rr chi.Router) {
			rr.Post("/", s.handleRegisterReferrer)
			rr.Post("/claim", s.handleClaim)
			rr.Post("/fund", s.handleFundPool)
			rr.Get("/{owner}", s.handleReferrerStats)
		})

		v1.Post("/admin/export", s.handleExport)
		v1.Post("/admin/entropy/rotate", s.handleRotateSeed)
		v1.Put("/admin/modules/{module}", s.handleModulePause)

		v1.Route("/{game}", func(gr chi.Router) {
			gr.Post("/play", s.handlePlay)
			gr.Post("/distribute", s.handleDistribute)
			gr.Get("/house", s.handleHouse)
			gr.Post("/deposit", s.handleDeposit)
			gr.Post("/admin/max-bet", s.handleMaxBet)
			gr.Post("/admin/settings", s.handleSettings)
			gr.Post("/admin/pause", s.handlePause)
			gr.Post("/admin/withdraw", s.handleWithdraw)
			gr.Post("/admin/jackpot", s.handleJackpot)
		})
	})

	return otelhttp.NewHandler(r, "casinod")
}

// Run serves addr until ctx is cancelled, then drains within timeout.
func (s *Server) Run(ctx context.Context, addr string, timeout time.Duration) error {
	srv := &http.Server{Addr: addr, Handler: s.Handler(), ReadHeaderTimeout: 5 * time.Second}

	go func() {
		<-ctx.Done()
		shutdownCtx, cancel := context.WithTimeout(context.Background(), timeout)
		defer cancel()
		_ = srv.Shutdown(shutdownCtx)
	}()

	s.log.Info("http server listening", "addr", addr)
	if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
		return fmt.Errorf("listen and serve: %w", err)
	}
	return nil
}

func (s *Server) handleHealth(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, http.StatusOK, map[string]string{"status": "ok"})
}
