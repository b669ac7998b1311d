package config

import (
	"errors"
	"fmt"
	"time"

	"github.com/ilyakaznacheev/cleanenv"
)

const (
	SinkStdout  = "stdout"
	SinkFile    = "file"
	SinkConsole = "console"
)

type Config struct {
	LogLevel      string        `yaml:"log-level" env:"LOG_LEVEL" env-default:"info"`
	LogSink       string        `yaml:"log-sink" env:"LOG_SINK" env-default:"stdout"`
	LogFile       string        `yaml:"log-file" env:"LOG_FILE" env-default:"./server.log"`
	MaxLogSize    int           `yaml:"max-log-size" env:"MAX_LOG_SIZE" env-default:"100"`
	SocketPort    string        `yaml:"socket-port" env:"SOCKET_PORT" env-default:"50111"`
	HTTPPort      string        `yaml:"http-port" env:"HTTP_PORT" env-default:"9090"`
	PlayerTimeout time.Duration `yaml:"player-timeout" env:"PLAYER_TIMEOUT" env-default:"20s"`
	Redis         Redis         `yaml:"redis"`
}

// Redis configures the optional activity-log mirror.
type Redis struct {
	Enabled bool   `yaml:"enabled" env:"REDIS_ENABLED" env-default:"false"`
	Host    string `yaml:"host" env:"REDIS_HOST" env-default:"localhost"`
	Port    string `yaml:"port" env:"REDIS_PORT" env-default:"6379"`
	Key     string `yaml:"key" env:"REDIS_KEY" env-default:"boardgames:activity-log"`
}

// MustLoad - load all configurations in config.yml file.
func MustLoad(path string) *Config {
	config := &Config{}

	if err := cleanenv.ReadConfig(path, config); err != nil {
		panic(fmt.Errorf("unable to load config file: %w", err))
	}

	if err := config.Validate(); err != nil {
		panic(fmt.Errorf("invalid config: %w", err))
	}

	return config
}

var (
	errMaxLogSize    = errors.New("max-log-size must be positive")
	errUnknownSink   = errors.New("unknown log-sink")
	errPlayerTimeout = errors.New("player-timeout must not be negative")
)

// Validate - checks the values cleanenv cannot check by itself.
func (that *Config) Validate() error {
	if that.MaxLogSize <= 0 {
		return fmt.Errorf("%w: %d", errMaxLogSize, that.MaxLogSize)
	}

	switch that.LogSink {
	case SinkStdout, SinkFile, SinkConsole:
	default:
		return fmt.Errorf("%w: %q", errUnknownSink, that.LogSink)
	}

	if that.PlayerTimeout < 0 {
		return fmt.Errorf("%w: %s", errPlayerTimeout, that.PlayerTimeout)
	}

	return nil
}

func (that *Redis) GetRedisAddr() string {
	return fmt.Sprintf("%s:%s", that.Host, that.Port)
}
