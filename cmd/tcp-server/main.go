package main

import (
	"flag"
	"log"
	"log/slog"
	"net/http"
	"os"
	"os/signal"
	"syscall"

	"github.com/prometheus/client_golang/prometheus/promhttp"

	"wirehub/internal/codec"
	"wirehub/internal/config"
	"wirehub/internal/handler"
	"wirehub/internal/metrics"
	"wirehub/internal/microservices/tcp"
)

func main() {
	configFile := flag.String("config", os.Getenv("CONFIG_FILE"), "path to a YAML config file (env vars are used when empty)")
	flag.Parse()

	// Load config (file when given, env/defaults otherwise)
	var cfg *config.Config
	var err error
	if *configFile != "" {
		cfg, err = config.LoadFile(*configFile)
	} else {
		cfg, err = config.Load()
	}
	if err != nil {
		log.Fatalf("Failed to load config: %v", err)
	}

	// Setup structured logging
	logger := newLogger(cfg)
	slog.SetDefault(logger)

	// Build the request pipeline from config
	c := newCodec(cfg)
	h := newHandler(cfg)

	var m *metrics.Metrics
	if cfg.MetricsEnabled {
		m = metrics.New()
		go serveMetrics(cfg.MetricsAddr())
	}

	logger.Info("starting_tcp_server",
		"addr", cfg.TCPAddr(),
		"handler", cfg.Handler,
		"codec", c.Name(),
		"latency_max", cfg.LatencyMax.String(),
	)

	server := tcp.NewServer(cfg.TCPAddr(), c, h, m)

	// Handle graceful shutdown
	sigChan := make(chan os.Signal, 1)
	signal.Notify(sigChan, os.Interrupt, syscall.SIGTERM)

	// Start server in goroutine
	errChan := make(chan error, 1)
	go func() {
		if err := server.Start(); err != nil {
			errChan <- err
		}
	}()

	// Wait for shutdown signal or error
	select {
	case <-sigChan:
		logger.Info("received_shutdown_signal")
		server.Stop()
		logger.Info("server_stopped_gracefully")
	case err := <-errChan:
		logger.Error("server_error", "error", err.Error())
		os.Exit(1)
	}
}

func newLogger(cfg *config.Config) *slog.Logger {
	var level slog.Level
	switch cfg.LogLevel {
	case "debug":
		level = slog.LevelDebug
	case "warn":
		level = slog.LevelWarn
	case "error":
		level = slog.LevelError
	default:
		level = slog.LevelInfo
	}

	opts := &slog.HandlerOptions{Level: level}
	if cfg.LogFormat == "text" {
		return slog.New(slog.NewTextHandler(os.Stdout, opts))
	}
	return slog.New(slog.NewJSONHandler(os.Stdout, opts))
}

func newCodec(cfg *config.Config) codec.Codec {
	if cfg.Codec == "json" {
		return codec.NewDelimitedJSON()
	}
	return codec.NewRaw()
}

func newHandler(cfg *config.Config) handler.Handler {
	var h handler.Handler
	if cfg.Handler == "norm" {
		h = handler.NewVectorNorm()
	} else {
		h = handler.NewEcho()
	}
	if cfg.LatencyMax > 0 {
		h = handler.WithRandomLatency(h, cfg.LatencyMax)
	}
	return h
}

func serveMetrics(addr string) {
	mux := http.NewServeMux()
	mux.Handle("/metrics", promhttp.Handler())
	slog.Info("metrics_endpoint_started", "addr", addr)
	if err := http.ListenAndServe(addr, mux); err != nil {
		slog.Error("metrics_endpoint_failed", "error", err.Error())
	}
}
