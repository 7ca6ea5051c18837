// Package web serves the pose HTTP front end.
package web

import (
	"context"
	"embed"
	"errors"
	"fmt"
	"log/slog"
	"net"
	"net/http"
	"strconv"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
	"github.com/go-chi/httprate"
	"github.com/prometheus/client_golang/prometheus/promhttp"

	"github.com/rbright/pose/internal/shutdown"
)

//go:embed assets
var assets embed.FS

// Pinger reports database reachability for /healthz.
type Pinger interface {
	PingContext(ctx context.Context) error
}

type Config struct {
	Addr               string
	Port               int
	RateLimitPerMinute int
	ShutdownTimeout    time.Duration
}

// Server owns the HTTP listener. Listen binds, Serve runs until a terminate
// event.
type Server struct {
	cfg      Config
	logger   *slog.Logger
	http     *http.Server
	listener net.Listener
}

func New(cfg Config, db Pinger, logger *slog.Logger) *Server {
	if logger == nil {
		logger = slog.New(slog.DiscardHandler)
	}
	if cfg.ShutdownTimeout <= 0 {
		cfg.ShutdownTimeout = 5 * time.Second
	}
	return &Server{
		cfg:    cfg,
		logger: logger,
		http: &http.Server{
			Handler:           NewRouter(db, cfg.RateLimitPerMinute),
			ReadHeaderTimeout: 10 * time.Second,
		},
	}
}

// NewRouter builds the route table. rateLimit <= 0 disables per-IP limiting.
func NewRouter(db Pinger, rateLimit int) http.Handler {
	r := chi.NewRouter()
	r.Use(middleware.RequestID)
	r.Use(middleware.Recoverer)

	r.Group(func(r chi.Router) {
		if rateLimit > 0 {
			r.Use(httprate.LimitByIP(rateLimit, time.Minute))
		}
		r.Get("/", serveAsset("assets/index.html", "text/html; charset=utf-8"))
		r.Get("/main.js", serveAsset("assets/main.js", "text/javascript; charset=utf-8"))
		r.Get("/main.css", serveAsset("assets/main.css", "text/css; charset=utf-8"))
	})

	r.Get("/healthz", healthHandler(db))
	r.Handle("/metrics", promhttp.Handler())
	return r
}

func serveAsset(name, contentType string) http.HandlerFunc {
	return func(w http.ResponseWriter, _ *http.Request) {
		body, err := assets.ReadFile(name)
		if err != nil {
			http.Error(w, "asset missing", http.StatusInternalServerError)
			return
		}
		w.Header().Set("Content-Type", contentType)
		_, _ = w.Write(body)
	}
}

func healthHandler(db Pinger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Content-Type", "application/json")
		if db != nil {
			ctx, cancel := context.WithTimeout(r.Context(), 2*time.Second)
			defer cancel()
			if err := db.PingContext(ctx); err != nil {
				w.WriteHeader(http.StatusServiceUnavailable)
				_, _ = w.Write([]byte(`{"status":"unavailable"}`))
				return
			}
		}
		_, _ = w.Write([]byte(`{"status":"ok"}`))
	}
}

// Listen binds the configured address.
func (s *Server) Listen() error {
	addr := net.JoinHostPort(s.cfg.Addr, strconv.Itoa(s.cfg.Port))
	ln, err := net.Listen("tcp", addr)
	if err != nil {
		return fmt.Errorf("listen http %s: %w", addr, err)
	}
	s.listener = ln
	return nil
}

// Addr returns the bound address, or nil before Listen.
func (s *Server) Addr() net.Addr {
	if s.listener == nil {
		return nil
	}
	return s.listener.Addr()
}

// Serve runs the HTTP server until sub observes a terminate event or ctx
// ends, then shuts down gracefully.
func (s *Server) Serve(ctx context.Context, sub *shutdown.Subscription) error {
	if s.listener == nil {
		if err := s.Listen(); err != nil {
			return err
		}
	}

	errCh := make(chan error, 1)
	go func() {
		errCh <- s.http.Serve(s.listener)
	}()
	s.logger.Info("http server listening", "addr", s.listener.Addr().String())

	var terminate <-chan struct{}
	if sub != nil {
		terminate = sub.Done()
	}

	select {
	case err := <-errCh:
		if errors.Is(err, http.ErrServerClosed) {
			return nil
		}
		return fmt.Errorf("http serve: %w", err)
	case <-terminate:
	case <-ctx.Done():
	}

	shutdownCtx, cancel := context.WithTimeout(context.WithoutCancel(ctx), s.cfg.ShutdownTimeout)
	defer cancel()
	if err := s.http.Shutdown(shutdownCtx); err != nil {
		s.logger.Error("http shutdown error", "error", err.Error())
		_ = s.http.Close()
	}
	<-errCh
	s.logger.Info("http server stopped")
	return nil
}
