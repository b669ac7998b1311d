package main

import (
	"fmt"
	"log/slog"
	"os"
	"path/filepath"

	app "github.com/rocketscienceinc/boardgames-server/internal"
	"github.com/rocketscienceinc/boardgames-server/internal/activitylog"
	"github.com/rocketscienceinc/boardgames-server/internal/config"
)

// main - is the entry point of the application. It initializes the configuration, logger, and runs the application.
func main() {
	defer func() {
		if err := recover(); err != nil {
			fmt.Fprintf(os.Stderr, "recovered from panic: %v\n", err)
			os.Exit(1)
		}
	}()

	conf := initConfig()
	activity := activitylog.New(conf.MaxLogSize)

	logger, closeSink := initLogger(conf, activity)
	defer closeSink()

	if err := app.RunApp(logger, conf, activity); err != nil {
		panic(fmt.Errorf("app run failed: %w", err))
	}
}

// initialize config.
func initConfig() *config.Config {
	baseDir, err := os.Getwd()
	if err != nil {
		panic(fmt.Errorf("failed to get current directory: %w", err))
	}

	return config.MustLoad(filepath.Join(baseDir, "./config.yml"))
}

// initialize logger. Every record at info or above also lands in the activity log.
func initLogger(conf *config.Config, activity *activitylog.Log) (*slog.Logger, func()) {
	var level slog.Level

	switch conf.LogLevel {
	case "debug":
		level = slog.LevelDebug
	case "info":
		level = slog.LevelInfo
	case "warn":
		level = slog.LevelWarn
	case "error":
		level = slog.LevelError
	}

	var (
		sink      slog.Handler
		closeSink = func() {}
	)

	switch conf.LogSink {
	case config.SinkConsole:
		sink = activitylog.NewConsoleHandler(os.Stdout, level)
	case config.SinkFile:
		file, err := os.OpenFile(conf.LogFile, os.O_CREATE|os.O_APPEND|os.O_WRONLY, 0o644)
		if err != nil {
			panic(fmt.Errorf("failed to open log file: %w", err))
		}

		sink = slog.NewJSONHandler(file, &slog.HandlerOptions{Level: level})
		closeSink = func() { _ = file.Close() }
	default:
		sink = slog.NewJSONHandler(os.Stdout, &slog.HandlerOptions{Level: level})
	}

	return slog.New(activitylog.NewHandler(sink, activity)), closeSink
}
