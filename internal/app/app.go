package app

import (
	"context"
	"fmt"
	"io"
	"log/slog"
	"net/http"

	"github.com/vk/prompttrace/internal/attribution"
	"github.com/vk/prompttrace/internal/config"
	"github.com/vk/prompttrace/internal/ctxlog"
	"github.com/vk/prompttrace/internal/engine"
	"github.com/vk/prompttrace/internal/hostevents"
	"github.com/vk/prompttrace/internal/interceptor"
	"github.com/vk/prompttrace/internal/lifecycle"
	"github.com/vk/prompttrace/internal/rendezvous"
	"github.com/vk/prompttrace/internal/settings"
	"github.com/vk/prompttrace/internal/store"
	"github.com/vk/prompttrace/internal/tracking"
	"github.com/vk/prompttrace/internal/workflow"
)

// App encapsulates the engine's dependencies, configuration, and lifecycle.
type App struct {
	outW   io.Writer
	logger *slog.Logger
	appCfg *Config
	model  *config.Model
	keeper *lifecycle.Keeper

	settings    *settings.Provider
	store       store.Store
	registry    *tracking.Registry
	graph       *workflow.Graph
	resolver    *attribution.Resolver
	engine      *engine.Engine
	interceptor *interceptor.Interceptor
	rendezvous  *rendezvous.Store

	listener   *hostevents.Listener
	httpServer *http.Server
}

// NewApp is the constructor for the attribution sidecar. It returns a
// fully wired App instance with its own isolated logger. Fatal
// configuration errors panic; the entrypoint recovers and exits cleanly.
func NewApp(outW io.Writer, appConfig *Config, keeper *lifecycle.Keeper) *App {
	provider := settings.New()

	logLevel := appConfig.LogLevel
	if provider.Debug() {
		logLevel = "debug"
	}
	logger := newLogger(logLevel, appConfig.LogFormat, outW)
	ctx := ctxlog.WithLogger(context.Background(), logger)

	model, err := config.Load(ctx, appConfig.ConfigPath)
	if err != nil {
		panic(fmt.Errorf("failed to load configuration: %w", err))
	}
	// Flags and the debug toggle override the file for logging.
	if logLevel == "" && appConfig.LogFormat == "" {
		logger = newLogger(model.Logging.Level, model.Logging.Format, outW)
		ctx = ctxlog.WithLogger(context.Background(), logger)
	}
	logger.Debug("configuration loaded", "path", appConfig.ConfigPath)

	st := openStore(ctx, model)

	if keeper == nil {
		keeper = lifecycle.Process()
	}
	registry, err := lifecycle.GetOrCreate(keeper, lifecycle.KeyRegistry, func() (*tracking.Registry, error) {
		return tracking.New(st), nil
	})
	if err != nil {
		panic(fmt.Errorf("failed to initialize tracking registry: %w", err))
	}
	registry.SetStaleness(model.Tracker.Staleness)

	// The graph is shared with the interceptor singleton, so it has to
	// survive host reloads the same way the registry does.
	graph, err := lifecycle.GetOrCreate(keeper, lifecycle.KeyGraph, func() (*workflow.Graph, error) {
		return workflow.New(), nil
	})
	if err != nil {
		panic(fmt.Errorf("failed to initialize workflow graph: %w", err))
	}
	resolver := attribution.New(registry, graph)
	resolver.SetMaxPathDepth(model.Tracker.MaxPathDepth)

	icpt, err := lifecycle.GetOrCreate(keeper, lifecycle.KeyInterceptor, func() (*interceptor.Interceptor, error) {
		return interceptor.New(ctx, interceptor.Config{
			Registry:  registry,
			Resolver:  resolver,
			Graph:     graph,
			Store:     st,
			Toggles:   provider,
			OutputDir: func() (string, error) { return appConfig.OutputDir, nil },
		}), nil
	})
	if err != nil {
		panic(fmt.Errorf("failed to initialize save interceptor: %w", err))
	}

	eng := engine.New(engine.Config{
		Registry: registry,
		Resolver: resolver,
		Graph:    graph,
		Switches: provider,
	})

	logger.Debug("engine assembled",
		"staleness", model.Tracker.Staleness,
		"output_dir", appConfig.OutputDir)

	return &App{
		outW:        outW,
		logger:      logger,
		appCfg:      appConfig,
		model:       model,
		keeper:      keeper,
		settings:    provider,
		store:       st,
		registry:    registry,
		graph:       graph,
		resolver:    resolver,
		engine:      eng,
		interceptor: icpt,
		rendezvous:  rendezvous.New(model.Tracker.RendezvousTTL),
	}
}

// openStore selects the durable prompt store. Redis failures degrade to
// the in-memory store rather than aborting startup.
func openStore(ctx context.Context, model *config.Model) store.Store {
	logger := ctxlog.FromContext(ctx)
	if model.Storage.RedisURL == "" {
		logger.Info("no redis url configured, using in-memory prompt store")
		return store.NewMemoryStore()
	}
	st, err := store.NewRedisStore(ctx, model.Storage.RedisURL)
	if err != nil {
		logger.Warn("redis unavailable, falling back to in-memory prompt store", "error", err)
		return store.NewMemoryStore()
	}
	logger.Info("using redis prompt store")
	return st
}

// Engine returns the attribution engine facade.
func (a *App) Engine() *engine.Engine { return a.engine }

// Interceptor returns the save interceptor for the host to install.
func (a *App) Interceptor() *interceptor.Interceptor { return a.interceptor }

// Rendezvous returns the sibling hand-off store.
func (a *App) Rendezvous() *rendezvous.Store { return a.rendezvous }
