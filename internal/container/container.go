// Package container wires the engine, its stores and the HTTP surfaces from
// one configuration
package container

import (
	"context"
	"fmt"
	"net/http"

	"github.com/gin-gonic/gin"

	"goelicit/adapters/memory"
	"goelicit/app"
	"goelicit/internal"
	"goelicit/internal/api"
	"goelicit/internal/config"
	"goelicit/internal/metrics"
	"goelicit/internal/profiles"
	"goelicit/ports"
)

// Container holds all application dependencies and manages their lifecycle
type Container struct {
	Config *config.Config
	Logger *internal.Logger

	// Engine
	Generator *profiles.Generator
	Batteries ports.BatteryStore
	Metrics   *metrics.Recorder
	Service   *app.ElicitationService

	// Transport
	SSEHub *api.SSEHub
}

// Option customizes construction
type Option func(*options)

type options struct {
	updater   ports.BeliefUpdaterPort
	batteries ports.BatteryStore
}

// WithBeliefUpdater wires the collaborator behind RecordChoice
func WithBeliefUpdater(u ports.BeliefUpdaterPort) Option {
	return func(o *options) { o.updater = u }
}

// WithBatteryStore replaces the default in-memory battery store
func WithBatteryStore(s ports.BatteryStore) Option {
	return func(o *options) { o.batteries = s }
}

// New loads the attribute space and builds every component cfg enables
func New(cfg *config.Config, logger *internal.Logger, opts ...Option) (*Container, error) {
	if cfg == nil {
		return nil, fmt.Errorf("config cannot be nil")
	}
	o := options{}
	for _, opt := range opts {
		opt(&o)
	}

	c := &Container{
		Config: cfg,
		Logger: internal.OrDefault(logger),
	}

	if err := c.initEngine(o); err != nil {
		return nil, fmt.Errorf("failed to initialize engine: %w", err)
	}
	if cfg.Server.SSEEnabled {
		c.SSEHub = api.NewSSEHub(c.Logger)
	}

	c.Logger.Info("container initialized: %d dimensions, metrics=%t, sse=%t",
		c.Generator.NumDimensions(), c.Metrics != nil, c.SSEHub != nil)
	return c, nil
}

func (c *Container) initEngine(o options) error {
	var err error
	c.Generator, err = profiles.Load(c.Config.Engine.ProfileConfigPath, c.Logger)
	if err != nil {
		return err
	}

	if c.Config.Server.MetricsEnabled {
		c.Metrics = metrics.NewRecorder()
	}

	c.Batteries = o.batteries
	if c.Batteries == nil {
		c.Batteries = memory.NewBatteryStore(memory.DefaultCapacity)
	}

	if o.updater == nil {
		c.Logger.Warn("no belief updater configured; recording choices is disabled")
	}
	c.Service, err = app.NewElicitationService(c.Config.Engine, c.Generator, o.updater, c.Batteries, c.Metrics, c.Logger)
	return err
}

// APIHandler is the public gin router
func (c *Container) APIHandler() *gin.Engine {
	return api.NewRouter(c.Service, c.SSEHub, c.Metrics, c.Logger)
}

// AdminHandler serves health and metrics
func (c *Container) AdminHandler() http.Handler {
	return api.NewAdminRouter(c.Ready, c.Metrics)
}

// Ready reports whether the engine can serve requests
func (c *Container) Ready() error {
	if len(c.Service.Pool()) < 2 {
		return fmt.Errorf("candidate pool has %d profiles", len(c.Service.Pool()))
	}
	return nil
}

// Shutdown gracefully shuts down all components
func (c *Container) Shutdown(ctx context.Context) error {
	if c.SSEHub != nil {
		c.SSEHub.Close()
	}
	// stderr sync fails on some platforms; nothing to recover
	_ = c.Logger.Sync()
	return ctx.Err()
}
