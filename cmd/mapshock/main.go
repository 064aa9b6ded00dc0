package main

import (
	"context"
	"errors"
	"flag"
	"log"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/sweetpotato0/mapshock/config"
	"github.com/sweetpotato0/mapshock/mcp"
	"github.com/sweetpotato0/mapshock/pkg/logging"
	"github.com/sweetpotato0/mapshock/pkg/metrics"
	"github.com/sweetpotato0/mapshock/pkg/telemetry"
)

const version = "0.1.0"

func main() {
	configPath := flag.String("config", "", "optional YAML configuration file")
	flag.Parse()

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	cfg, err := config.Load(*configPath)
	if err != nil {
		log.Fatalf("load config: %v", err)
	}
	if err := cfg.Validate(); err != nil {
		log.Fatalf("invalid config: %v", err)
	}

	logger := logging.WithComponent("main")

	shutdown, err := telemetry.Init(ctx, telemetry.Config{
		ServiceName:    "mapshock",
		ServiceVersion: version,
		Environment:    cfg.Telemetry.Environment,
		Endpoint:       cfg.Telemetry.Endpoint,
		Disable:        cfg.Telemetry.Disable,
	})
	if err != nil {
		log.Fatalf("init telemetry: %v", err)
	}
	defer func() {
		flushCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
		defer cancel()
		if err := shutdown(flushCtx); err != nil {
			logger.Warn("telemetry shutdown failed", "error", err)
		}
	}()

	if cfg.Metrics.Addr != "" {
		srv := serveMetrics(cfg.Metrics.Addr)
		defer srv.Close()
		logger.Info("metrics listener started", "addr", cfg.Metrics.Addr)
	}

	app, err := build(ctx, cfg)
	if err != nil {
		log.Fatalf("build pipeline: %v", err)
	}
	defer app.Close()

	server, err := mcp.NewServer(app.orchestrator, mcp.WithServerInfo(mcp.ServerInfo{Name: "mapshock", Version: version}))
	if err != nil {
		log.Fatalf("create MCP server: %v", err)
	}

	logger.Info("serving MCP over stdio",
		"llm_provider", cfg.LLM.Provider,
		"store", cfg.Store.Backend,
	)
	if err := mcp.ServeStdio(ctx, server); err != nil && !errors.Is(err, context.Canceled) {
		logger.Error("MCP server stopped", "error", err)
	}
}

func serveMetrics(addr string) *http.Server {
	mux := http.NewServeMux()
	mux.Handle("/metrics", metrics.Handler())
	srv := &http.Server{
		Addr:              addr,
		Handler:           mux,
		ReadHeaderTimeout: 5 * time.Second,
	}
	go func() {
		if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			logging.WithComponent("metrics").Error("metrics listener failed", "error", err)
		}
	}()
	return srv
}
