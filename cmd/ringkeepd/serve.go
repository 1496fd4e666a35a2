package main

import (
	"context"
	"fmt"
	"net/http"
	"os/signal"
	"syscall"
	"time"

	"github.com/google/uuid"
	"github.com/peterh/liner"
	"github.com/prometheus/client_golang/prometheus"

	"ringkeep/internal/bootstrap"
	"ringkeep/internal/config"
	"ringkeep/internal/httpapi"
	"ringkeep/internal/logger"
	zapfactory "ringkeep/internal/logger/zap"
	"ringkeep/internal/metrics"
	"ringkeep/internal/node"
	"ringkeep/internal/telemetry"
)

func runServe(ctx context.Context, configPath string) error {
	cfg, err := config.LoadConfig(configPath)
	if err != nil {
		return fmt.Errorf("load configuration from %q: %w", configPath, err)
	}
	cfg.ApplyEnvOverrides()
	if err := cfg.ValidateConfig(); err != nil {
		return fmt.Errorf("invalid configuration: %w", err)
	}

	var lgr logger.Logger
	if cfg.Logger.Active {
		zapLog, err := zapfactory.New(cfg.Logger)
		if err != nil {
			return fmt.Errorf("initialize logger: %w", err)
		}
		defer func() { _ = zapLog.Sync() }()
		lgr = zapfactory.NewZapAdapter(zapLog)
	} else {
		lgr = logger.NopLogger{}
	}
	cfg.LogConfig(lgr)

	// The ring identity doesn't exist until Join, so the trace resource is
	// tagged with a process-instance id instead; that tag stays the same
	// for the whole life of the process, across joins and leaves.
	instanceID := uuid.NewString()
	lgr.Info("starting ringkeepd", logger.F("instance_id", instanceID))

	shutdownTracer, err := telemetry.InitTracer(cfg.Tracing, "ringkeepd", instanceID)
	if err != nil {
		return fmt.Errorf("initialize tracing: %w", err)
	}
	defer func() { _ = shutdownTracer(context.Background()) }()

	var boot bootstrap.Bootstrap
	switch cfg.Bootstrap.Mode {
	case "route53":
		boot, err = bootstrap.NewRoute53Bootstrap(cfg.Bootstrap.Register)
		if err != nil {
			return fmt.Errorf("initialize route53 bootstrap: %w", err)
		}
	default:
		boot = bootstrap.NewStaticBootstrap(cfg.Bootstrap.Peers)
	}

	reg := prometheus.NewRegistry()
	m := metrics.New(reg)

	n, err := node.New(cfg, lgr, boot, m)
	if err != nil {
		return fmt.Errorf("initialize node: %w", err)
	}

	ctx, stop := signal.NotifyContext(ctx, syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	n.Start(ctx)
	defer n.Stop()

	joinCtx, joinCancel := context.WithTimeout(ctx, 10*time.Second)
	err = n.Join(joinCtx)
	joinCancel()
	if err != nil {
		return fmt.Errorf("join cluster: %w", err)
	}
	defer func() {
		leaveCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
		defer cancel()
		if err := n.Leave(leaveCtx); err != nil {
			lgr.Warn("graceful leave failed", logger.F("err", err.Error()))
		}
	}()

	if cfg.Metrics.Enabled {
		srv := httpapi.NewServer(n.State(), reg)
		httpSrv := &http.Server{Addr: cfg.Metrics.Listen, Handler: srv.Handler()}
		go func() {
			if err := httpSrv.ListenAndServe(); err != nil && err != http.ErrServerClosed {
				lgr.Error("debug http server failed", logger.F("err", err.Error()))
			}
		}()
		defer func() {
			shutdownCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
			defer cancel()
			_ = httpSrv.Shutdown(shutdownCtx)
		}()
	}

	console := newConsole(n, lgr)
	consoleDone := make(chan struct{})
	go func() {
		defer close(consoleDone)
		console.run(ctx)
	}()

	select {
	case <-ctx.Done():
		lgr.Info("shutdown signal received")
	case <-consoleDone:
		lgr.Info("console exited")
	}
	return nil
}

// newConsole builds the interactive liner-backed REPL for inspecting and
// driving this node manually (§11.5).
func newConsole(n *node.Node, lgr logger.Logger) *consoleREPL {
	return &consoleREPL{n: n, lgr: lgr, line: liner.NewLiner()}
}
