package engine

import (
	"context"
	"crypto/tls"
	"fmt"
	"log/slog"
	"net"
	"net/http"
	"strconv"
	"sync"
	"time"

	"github.com/fivetide/phiremock-server/pkg/config"
	"github.com/fivetide/phiremock-server/pkg/logging"
)

// Server owns the single HTTP(S) listener feeding the dispatcher.
type Server struct {
	cfg        *config.ServerConfig
	handler    http.Handler
	httpServer *http.Server
	log        *slog.Logger

	stopOnce sync.Once
	stopErr  error
}

// Option is a functional option for configuring a Server.
type Option func(*Server)

// WithLogger sets the operational logger for the server.
func WithLogger(log *slog.Logger) Option {
	return func(s *Server) {
		if log != nil {
			s.log = log
		}
	}
}

// NewServer creates a Server bound to the configured (ip, port) serving the
// given handler.
func NewServer(cfg *config.ServerConfig, handler http.Handler, opts ...Option) *Server {
	if cfg == nil {
		cfg = config.Default()
	}
	s := &Server{
		cfg:     cfg,
		handler: handler,
		log:     logging.Nop(),
	}
	for _, opt := range opts {
		opt(s)
	}
	return s
}

// Start binds the listener and begins serving. Bind and TLS-load failures
// are returned synchronously so startup can abort with a non-zero exit.
func (s *Server) Start() error {
	addr := net.JoinHostPort(s.cfg.IP, strconv.Itoa(s.cfg.Port))

	var tlsConfig *tls.Config
	if s.cfg.TLSEnabled() {
		var err error
		tlsConfig, err = BuildTLSConfig(s.cfg.Certificate, s.cfg.CertificateKey, s.cfg.CertPassphrase)
		if err != nil {
			return fmt.Errorf("failed to setup TLS: %w", err)
		}
	}

	s.httpServer = &http.Server{
		Addr:    addr,
		Handler: s.handler,
		// Write timeouts stay unset: configured delays and slow upstreams
		// legitimately hold responses open.
		ReadHeaderTimeout: 30 * time.Second,
		TLSConfig:         tlsConfig,
	}

	ln, err := net.Listen("tcp", addr)
	if err != nil {
		return fmt.Errorf("failed to listen on %s: %w", addr, err)
	}

	s.log.Info("mock server listening", "addr", addr, "tls", tlsConfig != nil)
	go func() {
		var serveErr error
		if tlsConfig != nil {
			serveErr = s.httpServer.ServeTLS(ln, "", "")
		} else {
			serveErr = s.httpServer.Serve(ln)
		}
		if serveErr != nil && serveErr != http.ErrServerClosed {
			s.log.Error("server error", "error", serveErr)
		}
	}()
	return nil
}

// Stop gracefully shuts the server down: the listener stops accepting,
// in-flight requests drain until ctx expires. Safe to call more than once.
func (s *Server) Stop(ctx context.Context) error {
	s.stopOnce.Do(func() {
		if s.httpServer == nil {
			return
		}
		s.log.Info("shutting down mock server")
		s.stopErr = s.httpServer.Shutdown(ctx)
	})
	return s.stopErr
}
