// Copyright © 2026 Groups.io, Inc.
// SPDX-License-Identifier: Apache-2.0

// Package app assembles the monitoring daemon: config, event bus,
// mapping store, monitor manager, and the HTTP API.
package app

import (
	"context"
	"fmt"
	"log"
	"net/http"
	"os"
	"os/signal"
	"sync"
	"syscall"
	"time"

	"github.com/wingedpig/agentmon/internal/api"
	"github.com/wingedpig/agentmon/internal/config"
	"github.com/wingedpig/agentmon/internal/events"
	"github.com/wingedpig/agentmon/internal/mapping"
	"github.com/wingedpig/agentmon/internal/monitor"
	"github.com/wingedpig/agentmon/internal/worktree"
)

// App is the main application container.
type App struct {
	version string
	config  *config.Config

	bus       events.Bus
	store     *mapping.Store
	manager   *monitor.Manager
	apiServer *api.Server

	cancelMonitor context.CancelFunc
	monitorDone   chan struct{}
	done          chan struct{}
	stopOnce      sync.Once
}

// Options holds configuration options for the app.
type Options struct {
	ConfigPath string // empty means run on defaults
	Host       string
	Port       int
	Version    string
}

// New creates a new App instance.
func New(opts Options) (*App, error) {
	app := &App{
		version: opts.Version,
		done:    make(chan struct{}),
	}

	var cfg *config.Config
	if opts.ConfigPath != "" {
		loaded, err := config.NewLoader().LoadWithDefaults(context.Background(), opts.ConfigPath)
		if err != nil {
			return nil, fmt.Errorf("failed to load config: %w", err)
		}
		cfg = loaded
	} else {
		cfg = config.Default()
	}
	app.config = cfg

	if opts.Host != "" {
		cfg.Server.Host = opts.Host
	}
	if opts.Port > 0 {
		cfg.Server.Port = opts.Port
	}

	app.bus = events.NewMemoryBus(events.MemoryBusConfig{
		HistoryMaxEvents: cfg.Events.History.MaxEvents,
		HistoryMaxAge:    config.ParseDuration(cfg.Events.History.MaxAge, time.Hour),
	})

	return app, nil
}

// Initialize sets up all components.
func (app *App) Initialize(ctx context.Context) error {
	cfg := app.config

	if len(cfg.Repositories) == 0 {
		log.Printf("Warning: no repositories configured; nothing to monitor")
	}

	// Mappings are a stickiness optimization. A store that cannot be
	// opened disables them but never blocks startup.
	store, err := mapping.Open(cfg.MappingPath())
	if err != nil {
		log.Printf("Warning: mapping store unavailable: %v", err)
		store = nil
	}
	app.store = store

	app.manager = monitor.NewManager(cfg, app.bus, worktree.NewRealGitExecutor(), store, monitor.LogNotifier{})

	app.apiServer = api.NewServer(
		api.ServerConfig{Host: cfg.Server.Host, Port: cfg.Server.Port},
		api.Dependencies{
			Monitor: app.manager,
			Bus:     app.bus,
			Version: app.version,
		},
	)
	return nil
}

// Start launches the monitor loop and the API server.
func (app *App) Start(ctx context.Context) error {
	monitorCtx, cancel := context.WithCancel(context.Background())
	app.cancelMonitor = cancel
	app.monitorDone = make(chan struct{})

	go func() {
		defer close(app.monitorDone)
		if err := app.manager.Run(monitorCtx); err != nil && err != context.Canceled {
			log.Printf("monitor stopped: %v", err)
		}
	}()

	go func() {
		if err := app.apiServer.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			log.Printf("api server error: %v", err)
			app.Stop()
		}
	}()

	return nil
}

// Run initializes, starts, and blocks until shutdown.
func (app *App) Run(ctx context.Context) error {
	if err := app.Initialize(ctx); err != nil {
		return err
	}
	if err := app.Start(ctx); err != nil {
		return err
	}

	sigCh := make(chan os.Signal, 1)
	signal.Notify(sigCh, syscall.SIGINT, syscall.SIGTERM)

	select {
	case sig := <-sigCh:
		log.Printf("Received signal %v, shutting down...", sig)
	case <-ctx.Done():
		log.Printf("Context cancelled, shutting down...")
	case <-app.done:
		log.Printf("Shutdown requested...")
	}

	return app.Shutdown(context.Background())
}

// Shutdown stops components in dependency order: no new HTTP requests,
// then no new events, then the bus itself.
func (app *App) Shutdown(ctx context.Context) error {
	if app.apiServer != nil {
		if err := app.apiServer.Shutdown(ctx); err != nil {
			log.Printf("api shutdown: %v", err)
		}
	}

	if app.cancelMonitor != nil {
		app.cancelMonitor()
		<-app.monitorDone
	}

	if app.bus != nil {
		app.bus.Close()
	}

	log.Println("Shutdown complete")
	return nil
}

// Stop requests shutdown from another goroutine.
func (app *App) Stop() {
	app.stopOnce.Do(func() {
		close(app.done)
	})
}
