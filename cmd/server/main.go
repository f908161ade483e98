// cmd/server/main.go
package main

import (
	"context"
	"errors"
	"flag"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/jason-s-yu/eights/internal/cache"
	"github.com/jason-s-yu/eights/internal/config"
	"github.com/jason-s-yu/eights/internal/game"
	"github.com/jason-s-yu/eights/internal/handlers"
	"github.com/jason-s-yu/eights/internal/hub"
	_ "github.com/joho/godotenv/autoload"
	"github.com/sirupsen/logrus"
)

func main() {
	configPath := flag.String("config", config.DefaultPath, "path to the YAML config file")
	flag.Parse()

	cfg, err := config.Load(*configPath)
	if err != nil {
		logrus.Fatalf("failed to load config: %v", err)
	}
	logger := cfg.Log.NewLogger()
	cfg.Log.Apply(logrus.StandardLogger())

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	g := game.NewEightsGame()
	g.MaxPlayers = cfg.Server.MaxPlayers

	if cfg.Redis.Addr != "" {
		rdb, err := cache.Connect(ctx, cfg.Redis.Addr, cfg.Redis.Password, cfg.Redis.DB)
		if err != nil {
			logger.WithError(err).Warn("action logging disabled")
		} else {
			defer rdb.Close()
			g.ActionLog = cache.NewPublisher(rdb, cfg.Redis.Queue)
			logger.WithField("queue", cfg.Redis.Queue).Info("publishing game actions to Redis")
		}
	}

	h := hub.New(logger, cfg.Server.QueueSize, cfg.Server.WriteTimeout())
	srv := handlers.NewGameServer(g, h, logger)

	var httpSrv *http.Server
	if cfg.Server.HTTPAddr != "" {
		httpSrv = &http.Server{
			Addr:              cfg.Server.HTTPAddr,
			Handler:           handlers.NewRouter(srv, cfg.Server.AllowedOrigins),
			ReadHeaderTimeout: 10 * time.Second,
		}
		go func() {
			logger.Infof("HTTP gateway running on %s", cfg.Server.HTTPAddr)
			if err := httpSrv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
				logger.WithError(err).Error("http server exited")
				stop()
			}
		}()
	}

	addr := cfg.Server.TCPAddr()
	logger.Infof("Running on %s", addr)
	if err := srv.ListenAndServe(ctx, addr); err != nil {
		logger.WithError(err).Error("game listener exited")
	}

	if httpSrv != nil {
		shutdownCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
		defer cancel()
		if err := httpSrv.Shutdown(shutdownCtx); err != nil {
			logger.WithError(err).Warn("http shutdown")
		}
	}
	logger.Info("server stopped")
}
