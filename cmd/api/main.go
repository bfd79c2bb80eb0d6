package main

import (
	"context"
	"log"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/joho/godotenv"
	"golang.org/x/sync/errgroup"

	"goelicit/internal"
	"goelicit/internal/config"
	"goelicit/internal/container"
)

const shutdownTimeout = 10 * time.Second

func main() {
	if err := godotenv.Load(); err != nil && !os.IsNotExist(err) {
		log.Printf("warning: loading .env: %v", err)
	}

	cfg, err := config.Load()
	if err != nil {
		log.Fatalf("configuration: %v", err)
	}

	logger := internal.NewLogger(internal.ParseLogLevel(cfg.Log.Level))
	defer logger.Sync()

	if err := run(cfg, logger); err != nil {
		logger.Error("server stopped: %v", err)
		os.Exit(1)
	}
}

func run(cfg *config.Config, logger *internal.Logger) error {
	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	// No belief updater is wired in this binary; /v1/adaptive/choice
	// answers 503 until one is provided.
	c, err := container.New(cfg, logger)
	if err != nil {
		return err
	}

	gin.SetMode(gin.ReleaseMode)
	servers := []*http.Server{
		{
			Addr:              ":" + cfg.Server.Port,
			Handler:           c.APIHandler(),
			ReadHeaderTimeout: 5 * time.Second,
		},
		{
			Addr:              ":" + cfg.Server.AdminPort,
			Handler:           c.AdminHandler(),
			ReadHeaderTimeout: 5 * time.Second,
		},
	}

	g, gctx := errgroup.WithContext(ctx)
	for _, srv := range servers {
		srv := srv
		g.Go(func() error {
			logger.Info("listening on %s", srv.Addr)
			if err := srv.ListenAndServe(); err != nil && err != http.ErrServerClosed {
				return err
			}
			return nil
		})
	}
	g.Go(func() error {
		<-gctx.Done()
		shutdownCtx, cancel := context.WithTimeout(context.Background(), shutdownTimeout)
		defer cancel()
		for _, srv := range servers {
			if err := srv.Shutdown(shutdownCtx); err != nil {
				logger.Warn("shutdown %s: %v", srv.Addr, err)
			}
		}
		return c.Shutdown(shutdownCtx)
	})
	return g.Wait()
}
