// Command wampsmoke is the minimal "does this library boot" binary every
// revision of the teacher repo ships as cmd/.../main.go: load config,
// build a logger, connect, join a realm, call a procedure, print the
// result, and shut down on signal.
package main

import (
	"context"
	"fmt"
	"net/http"
	"os"
	"os/signal"
	"strings"
	"syscall"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"go.uber.org/zap"

	"github.com/gieseladev/aiowamp/auth"
	"github.com/gieseladev/aiowamp/client"
	"github.com/gieseladev/aiowamp/config"
	"github.com/gieseladev/aiowamp/internal/xlog"
	"github.com/gieseladev/aiowamp/metrics"
	"github.com/gieseladev/aiowamp/serialize"
	"github.com/gieseladev/aiowamp/session"
	"github.com/gieseladev/aiowamp/transport"
	"github.com/gieseladev/aiowamp/wamp"
)

func main() {
	cfg, err := config.Load()
	if err != nil {
		fmt.Fprintf(os.Stderr, "failed to load config: %v\n", err)
		os.Exit(1)
	}

	logger, err := xlog.New(cfg.Logging.Level, cfg.Logging.Development)
	if err != nil {
		fmt.Fprintf(os.Stderr, "failed to build logger: %v\n", err)
		os.Exit(1)
	}
	defer logger.Sync() // nolint:errcheck

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	t, err := dial(cfg)
	if err != nil {
		logger.Fatal("dial failed", zap.Error(err))
	}

	var keyring *auth.Keyring
	if cfg.Auth.Secret != "" {
		keyring, err = auth.NewKeyring(cfg.Auth.AuthID, auth.CRAuth{Secret: cfg.Auth.Secret})
		if err != nil {
			logger.Fatal("bad auth config", zap.Error(err))
		}
	} else if cfg.Auth.Ticket != "" {
		keyring, err = auth.NewKeyring(cfg.Auth.AuthID, auth.TicketAuth{Ticket: cfg.Auth.Ticket})
		if err != nil {
			logger.Fatal("bad auth config", zap.Error(err))
		}
	}

	sess, err := session.Join(t, cfg.Connect.Realm, session.JoinOptions{
		Keyring: keyring,
		Roles:   wamp.DefaultRoles(),
		Logger:  logger,
	})
	if err != nil {
		logger.Fatal("join failed", zap.Error(err))
	}

	reg := metrics.NewRegistry(prometheus.DefaultRegisterer)
	c := client.New(sess, client.ClientOptions{Logger: logger, Metrics: reg})
	defer c.Close(wamp.CloseNormal)

	if cfg.Metrics.Enabled {
		go serveMetrics(ctx, cfg.Metrics.ListenAddr, cfg.Metrics.Endpoint, reg, logger)
	}

	logger.Info("joined realm", zap.String("realm", sess.Realm()), zap.Uint64("session_id", sess.ID()))

	call := c.Call("wamp.session.count", nil, nil, client.CallOptions{})
	result, err := call.Result()
	if err != nil {
		logger.Warn("smoke call failed", zap.Error(err))
	} else {
		logger.Info("smoke call succeeded", zap.Any("args", []interface{}(result.Args)))
	}

	<-ctx.Done()
	logger.Info("shutdown signal received")
}

func dial(cfg config.Config) (transport.Transport, error) {
	format := serialize.FormatJSON

	switch {
	case strings.HasPrefix(cfg.Connect.URL, "ws://"), strings.HasPrefix(cfg.Connect.URL, "wss://"):
		return transport.DialWebSocket(cfg.Connect.URL, transport.WebSocketOptions{
			Format:           format,
			HandshakeTimeout: cfg.Connect.DialTimeout,
		})
	case strings.HasPrefix(cfg.Connect.URL, "tcp://"):
		addr := strings.TrimPrefix(cfg.Connect.URL, "tcp://")
		return transport.DialRawSocket(addr, transport.RawSocketOptions{
			Format:           format,
			MaxReceiveLength: cfg.Connect.MaxReceiveLength,
			DialTimeout:      cfg.Connect.DialTimeout,
		})
	default:
		return nil, fmt.Errorf("unsupported connect.url scheme: %q", cfg.Connect.URL)
	}
}

func serveMetrics(ctx context.Context, addr, endpoint string, reg *metrics.Registry, logger *zap.Logger) {
	mux := http.NewServeMux()
	mux.Handle(endpoint, reg.Handler())

	srv := &http.Server{Addr: addr, Handler: mux}

	go func() {
		<-ctx.Done()
		shutdownCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
		defer cancel()
		_ = srv.Shutdown(shutdownCtx)
	}()

	logger.Info("metrics server starting", zap.String("addr", addr))
	if err := srv.ListenAndServe(); err != nil && err != http.ErrServerClosed {
		logger.Warn("metrics server error", zap.Error(err))
	}
}
