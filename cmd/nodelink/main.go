// ====================================
// File: cmd/nodelink/main.go
// ====================================
package main

import (
	"context"
	"flag"
	"os"
	"os/signal"
	"syscall"

	"go.uber.org/zap"

	"github.com/meloncore/nodelink/internal/backoff"
	"github.com/meloncore/nodelink/internal/bus"
	"github.com/meloncore/nodelink/internal/config"
	"github.com/meloncore/nodelink/internal/event"
	"github.com/meloncore/nodelink/internal/logging"
	"github.com/meloncore/nodelink/internal/node"
	"github.com/meloncore/nodelink/internal/player"
	"github.com/meloncore/nodelink/internal/track"
)

func main() {
	configPath := flag.String("config", "configs/config.yaml", "path to config file")
	flag.Parse()

	cfg, err := config.LoadConfig(*configPath)
	if err != nil {
		zap.NewExample().Fatal("Failed to load config", zap.Error(err))
	}

	logger, err := logging.InitLogger(cfg.DebugLogging, cfg.LogFile)
	if err != nil {
		zap.NewExample().Fatal("Failed to init logger", zap.Error(err))
	}
	defer logger.Sync()

	logger.Info("Starting nodelink client",
		zap.String("node", cfg.WebsocketURL()),
		zap.String("client_name", cfg.ClientName))

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	registry := player.NewRegistry(logger)
	eventBus := bus.New(logger)
	resolver := track.NewResolver(track.ResolverConfig{
		BaseURL:  cfg.RestURL(),
		Password: cfg.Password,
		Timeout:  cfg.RestTimeout(),
	}, logger)
	factory := event.NewFactory(registry, resolver, logger)
	policy := backoff.New(cfg.BackoffBase(), cfg.BackoffMax())

	manager := node.NewManager(node.Config{
		URL:           cfg.WebsocketURL(),
		Password:      cfg.Password,
		UserID:        cfg.UserID,
		ClientName:    cfg.ClientName,
		EventPrefix:   cfg.EventPrefix,
		MaxReconnects: cfg.MaxReconnects,
	}, factory, eventBus, policy, logger)

	eventBus.Subscribe(bus.AllEvents, func(name string, payload map[string]any) {
		logger.Debug("Event dispatched", zap.String("event", name), zap.Any("payload", payload))
	})

	if err := manager.Connect(ctx); err != nil {
		logger.Fatal("Failed to connect to node", zap.Error(err))
	}

	shutdownCh := make(chan os.Signal, 1)
	signal.Notify(shutdownCh, syscall.SIGINT, syscall.SIGTERM)

	select {
	case sig := <-shutdownCh:
		logger.Info("Signal received", zap.String("signal", sig.String()))
	case err := <-manager.Done():
		logger.Error("Connection ended", zap.Error(err))
	}

	manager.Disconnect()

	stats := manager.Stats()
	logger.Info("Shutdown complete",
		zap.Int64("frames_received", stats.Received),
		zap.Int64("events_dispatched", stats.Dispatched),
		zap.Int64("frames_dropped", stats.Dropped))
}
