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

	"github.com/google/uuid"

	"github.com/efreitasn/marketsim/internal/config"
	"github.com/efreitasn/marketsim/internal/handler"
	"github.com/efreitasn/marketsim/internal/obs"
	"github.com/efreitasn/marketsim/internal/profile"
	"github.com/efreitasn/marketsim/internal/sim"
	"github.com/efreitasn/marketsim/internal/transport"
)

func main() {
	healthcheck := flag.Bool("healthcheck", false, "Run health check against running server")
	flag.Parse()

	// Handle -healthcheck flag: HTTP GET to localhost:PORT/healthz, exit 0/1.
	if *healthcheck {
		port := os.Getenv("PORT")
		if port == "" {
			port = "8080"
		}
		resp, err := http.Get(fmt.Sprintf("http://localhost:%s/healthz", port))
		if err != nil || resp.StatusCode != http.StatusOK {
			os.Exit(1)
		}
		os.Exit(0)
	}

	// Load configuration.
	cfg, err := config.Load()
	if err != nil {
		slog.Error("failed to load config", slog.String("error", err.Error()))
		os.Exit(1)
	}

	// Set up slog logger with configured level.
	var logLevel slog.Level
	switch cfg.LogLevel {
	case "debug":
		logLevel = slog.LevelDebug
	case "warn":
		logLevel = slog.LevelWarn
	case "error":
		logLevel = slog.LevelError
	default:
		logLevel = slog.LevelInfo
	}
	runID := uuid.NewString()
	logger := slog.New(slog.NewJSONHandler(os.Stdout, &slog.HandlerOptions{
		Level: logLevel,
	})).With(slog.String("run_id", runID))
	slog.SetDefault(logger)

	// Volatility profile, optionally overlaid by a YAML file.
	p, err := profile.Builtin(cfg.Profile)
	if err == nil && cfg.ProfileFile != "" {
		p, err = profile.LoadFile(cfg.ProfileFile, cfg.Profile)
	}
	if err != nil {
		logger.Error("failed to load profile", slog.String("error", err.Error()))
		os.Exit(1)
	}

	seed := cfg.Seed
	if seed == 0 {
		seed = time.Now().UnixNano()
	}

	// Bind before building any simulation state.
	addr := fmt.Sprintf(":%d", cfg.Port)
	ln, err := net.Listen("tcp", addr)
	if err != nil {
		logger.Error("failed to listen", slog.String("addr", addr), slog.String("error", err.Error()))
		os.Exit(1)
	}

	metrics := obs.NewMetrics()
	hub := transport.NewHub(transport.HubConfig{
		CommandBuffer:    cfg.CommandBuffer,
		SubscriberBuffer: cfg.SubscriberBuffer,
	}, logger, metrics)

	simulation := sim.New(sim.Config{
		RunID:          runID,
		TickInterval:   cfg.TickInterval,
		BroadcastEvery: cfg.BroadcastEvery,
		DecayFraction:  cfg.DecayFraction,
		Seed:           seed,
	}, p, hub, hub, sim.RealClock(), logger, metrics)

	// Router.
	router := handler.NewRouter(simulation, hub, metrics.Handler(), logger)

	// Configure HTTP server. No write timeout: stream connections are long lived.
	srv := &http.Server{
		Handler:     router,
		ReadTimeout: cfg.ReadTimeout,
		IdleTimeout: cfg.IdleTimeout,
	}

	// Start HTTP server in a goroutine.
	go func() {
		logger.Info("server starting", slog.String("addr", addr))
		if err := srv.Serve(ln); err != nil && err != http.ErrServerClosed {
			logger.Error("server error", slog.String("error", err.Error()))
			os.Exit(1)
		}
	}()

	// Cancelled on SIGINT/SIGTERM.
	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	logger.Info("waiting for START",
		slog.String("profile", p.Name),
		slog.Int64("seed", seed),
		slog.Duration("tick_interval", cfg.TickInterval),
	)
	done := make(chan error, 1)
	go func() {
		if err := simulation.AwaitStart(ctx); err != nil {
			done <- err
			return
		}
		if simulation.Stopped() {
			done <- nil
			return
		}
		done <- simulation.Run(ctx)
	}()

	select {
	case <-ctx.Done():
		logger.Info("shutdown signal received")
		<-done
	case err := <-done:
		if err != nil && !errors.Is(err, context.Canceled) {
			logger.Error("simulation error", slog.String("error", err.Error()))
		} else {
			logger.Info("simulation finished", slog.Uint64("tick", simulation.Snapshot().Tick))
		}
	}
	stop()

	// Graceful shutdown: stop HTTP server, then drop relay connections.
	shutdownCtx, shutdownCancel := context.WithTimeout(context.Background(), cfg.ShutdownTimeout)
	defer shutdownCancel()

	if err := srv.Shutdown(shutdownCtx); err != nil {
		logger.Error("server shutdown error", slog.String("error", err.Error()))
	}
	hub.Close()

	logger.Info("server stopped")
}
