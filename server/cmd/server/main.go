package main

import (
	"context"
	"errors"
	"flag"
	"fmt"
	"log/slog"
	"net"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"golang.org/x/sync/errgroup"
	"google.golang.org/grpc"

	"github.com/orgpulse/orgpulse/server/internal/alerts"
	"github.com/orgpulse/orgpulse/server/internal/api"
	"github.com/orgpulse/orgpulse/server/internal/auth"
	"github.com/orgpulse/orgpulse/server/internal/config"
	"github.com/orgpulse/orgpulse/server/internal/monitor"
	"github.com/orgpulse/orgpulse/server/internal/registry"
	"github.com/orgpulse/orgpulse/server/internal/rpc"
	"github.com/orgpulse/orgpulse/server/internal/store"
	"github.com/orgpulse/orgpulse/server/internal/ws"
)

const (
	shutdownTimeout = 10 * time.Second
	wsInterval      = 5 * time.Second
)

func main() {
	configPath := flag.String("config", "", "path to config file; built-in defaults when empty")
	flag.Parse()

	cfg := config.Defaults()
	if *configPath != "" {
		loaded, err := config.Load(*configPath)
		if err != nil {
			slog.Error("failed to load config", "err", err)
			os.Exit(1)
		}
		cfg = loaded
	}

	logger := slog.New(slog.NewJSONHandler(os.Stdout, &slog.HandlerOptions{Level: cfg.Server.SlogLevel()}))
	slog.SetDefault(logger)

	slog.Info("orgpulse-server starting",
		"config", *configPath,
		"grpc_port", cfg.Server.GRPCPort,
		"http_port", cfg.Server.HTTPPort,
		"auth_mode", cfg.Server.Auth.Mode,
		"registry", cfg.Server.Registry.Type,
		"monitor_interval", cfg.Server.Monitor.Interval,
	)

	ctx, cancel := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer cancel()

	if err := run(ctx, cfg, *configPath); err != nil {
		slog.Error("orgpulse-server stopped", "err", err)
		os.Exit(1)
	}
	slog.Info("orgpulse-server shut down")
}

func run(ctx context.Context, cfg *config.Config, configPath string) error {
	src, err := registry.New(ctx, cfg.Server.Registry)
	if err != nil {
		return fmt.Errorf("registry: %w", err)
	}
	defer src.Close()

	// Report store with background TTL eviction.
	st := store.New(cfg.Server.Monitor.ReportTTL)

	var pub alerts.Publisher
	if url := cfg.Server.Alerts.NATS.URL(); url != "" {
		np, err := alerts.NewNATSPublisher(url)
		if err != nil {
			return fmt.Errorf("nats: %w", err)
		}
		pub = np
		slog.Info("alerts: publishing to NATS", "subject", cfg.Server.Alerts.NATS.Subject)
	}
	alertEngine := alerts.New(cfg.Server.Alerts, pub)
	defer alertEngine.Close() //nolint:errcheck

	hub := ws.New(st, wsInterval)
	mon := monitor.New(src, st, alertEngine, hub, cfg.Server.Monitor.Interval)

	// gRPC server with optional API key authentication interceptor.
	authMode, authHeader, authKey := cfg.Server.Auth.Mode, cfg.Server.Auth.EffectiveHeader(), cfg.Server.Auth.Key()
	grpcSrv := grpc.NewServer(grpc.UnaryInterceptor(auth.APIKeyInterceptor(authMode, authHeader, authKey)))
	rpc.RegisterAnalyticsServer(grpcSrv, rpc.NewServer(src))

	lis, err := net.Listen("tcp", fmt.Sprintf(":%d", cfg.Server.GRPCPort))
	if err != nil {
		return fmt.Errorf("listen on gRPC port %d: %w", cfg.Server.GRPCPort, err)
	}

	// Combined HTTP server: REST API, metrics and WebSocket hub on HTTPPort.
	apiHandler := api.New(src, st, alertEngine)
	httpMux := http.NewServeMux()
	httpMux.Handle("/api/", apiHandler)
	httpMux.Handle("/metrics", apiHandler)
	httpMux.Handle("/healthz", apiHandler)
	httpMux.Handle("/ws/stream", hub)

	httpSrv := &http.Server{
		Addr:              fmt.Sprintf(":%d", cfg.Server.HTTPPort),
		Handler:           auth.Middleware(authMode, authHeader, authKey, "/healthz")(httpMux),
		ReadHeaderTimeout: 10 * time.Second,
	}

	g, gctx := errgroup.WithContext(ctx)

	g.Go(func() error {
		slog.Info("gRPC server listening", "port", cfg.Server.GRPCPort)
		return grpcSrv.Serve(lis)
	})
	g.Go(func() error {
		slog.Info("HTTP server listening", "port", cfg.Server.HTTPPort)
		if err := httpSrv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			return err
		}
		return nil
	})
	g.Go(func() error {
		st.Run(gctx)
		return nil
	})
	g.Go(func() error {
		hub.Run(gctx)
		return nil
	})
	g.Go(func() error {
		mon.Run(gctx)
		return nil
	})
	if configPath != "" {
		g.Go(func() error {
			err := config.Watch(gctx, configPath, func(updated *config.Config) {
				alertEngine.SetRules(updated.Server.Alerts)
			})
			if err != nil {
				slog.Error("config watcher stopped", "err", err)
			}
			return nil
		})
	}

	// Shutdown: runs when a signal arrives or any component fails.
	g.Go(func() error {
		<-gctx.Done()
		slog.Info("orgpulse-server shutting down")
		grpcSrv.GracefulStop()
		sctx, cancel := context.WithTimeout(context.Background(), shutdownTimeout)
		defer cancel()
		return httpSrv.Shutdown(sctx)
	})

	return g.Wait()
}
