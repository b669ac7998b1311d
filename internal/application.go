package application

import (
	"context"
	"fmt"
	"log/slog"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/rocketscienceinc/boardgames-server/internal/activitylog"
	"github.com/rocketscienceinc/boardgames-server/internal/config"
	"github.com/rocketscienceinc/boardgames-server/internal/repository"
	"github.com/rocketscienceinc/boardgames-server/internal/repository/storage"
	"github.com/rocketscienceinc/boardgames-server/internal/usecase"
	"github.com/rocketscienceinc/boardgames-server/transport/rest"
	"github.com/rocketscienceinc/boardgames-server/transport/tcp"
)

const shutdownTimeout = 5 * time.Second

// RunApp - runs the application.
func RunApp(logger *slog.Logger, conf *config.Config, activity *activitylog.Log) error {
	log := logger.With("component", "app")

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	sigs := make(chan os.Signal, 1)
	signal.Notify(sigs, syscall.SIGINT, syscall.SIGTERM)
	go func() {
		sig := <-sigs
		log.Info("Received signal, shutting down", "signal", sig)
		cancel()
	}()

	var logMirror rest.ActivityMirror

	if conf.Redis.Enabled {
		redisStorage, err := storage.NewRedisStorage(ctx, conf.Redis.GetRedisAddr())
		if err != nil {
			return fmt.Errorf("could not connect to redis storage: %w", err)
		}

		defer func() {
			if err = redisStorage.Close(); err != nil {
				log.Error("could not close redis storage", "error", err)
			}
		}()

		mirror := activitylog.NewMirror(repository.NewActivityRepository(redisStorage.Connection, conf.Redis.Key))
		go mirror.Run(ctx)

		activity.SetMirror(mirror)
		defer activity.SetMirror(nil)

		logMirror = mirror

		log.Info("Mirroring activity log to redis", "key", conf.Redis.Key)
	}

	gameManager := usecase.NewGameManager(logger, repository.NewPlayerMatcher(), repository.NewSessionStore())

	tcpServer := tcp.NewServer(logger, tcp.NewHandler(logger, gameManager, conf.PlayerTimeout), conf.SocketPort)
	if err := tcpServer.Start(ctx); err != nil {
		return fmt.Errorf("socket server error: %w", err)
	}

	httpServer := rest.NewServer(logger, conf.HTTPPort, rest.NewHandlers(logger, tcpServer, activity, gameManager, logMirror))

	// run HTTP server
	httpErrCh := make(chan error, 1)
	go func() {
		if httpErr := httpServer.Start(); httpErr != nil {
			httpErrCh <- httpErr
		}
	}()

	var runErr error

	select {
	case err := <-httpErrCh:
		runErr = fmt.Errorf("HTTP server error: %w", err)
	case <-ctx.Done():
		log.Info("Application context canceled, shutting down")
	}

	shutdownCtx, shutdownCancel := context.WithTimeout(context.Background(), shutdownTimeout)
	defer shutdownCancel()

	if err := httpServer.Shutdown(shutdownCtx); err != nil {
		log.Error("could not stop HTTP server", "error", err)
	}

	if err := tcpServer.Shutdown(shutdownCtx); err != nil {
		log.Error("could not stop socket server", "error", err)
	}

	return runErr
}
