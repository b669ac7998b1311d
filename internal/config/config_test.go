package config

import (
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func writeConfig(t *testing.T, body string) string {
	t.Helper()

	path := filepath.Join(t.TempDir(), "config.yml")
	require.NoError(t, os.WriteFile(path, []byte(body), 0o600))

	return path
}

func TestMustLoad(t *testing.T) {
	t.Run("Reads values from the yaml file", func(t *testing.T) {
		// Given: a config file overriding every field
		path := writeConfig(t, `
log-level: debug
log-sink: file
log-file: /tmp/activity.log
max-log-size: 5
socket-port: "50112"
http-port: "9191"
player-timeout: 3s
redis:
  enabled: true
  host: cache
  port: "6380"
  key: activity
`)

		// When: loading it
		conf := MustLoad(path)

		// Then: all values are taken from the file
		assert.Equal(t, "debug", conf.LogLevel)
		assert.Equal(t, SinkFile, conf.LogSink)
		assert.Equal(t, "/tmp/activity.log", conf.LogFile)
		assert.Equal(t, 5, conf.MaxLogSize)
		assert.Equal(t, "50112", conf.SocketPort)
		assert.Equal(t, "9191", conf.HTTPPort)
		assert.Equal(t, 3*time.Second, conf.PlayerTimeout)
		assert.True(t, conf.Redis.Enabled)
		assert.Equal(t, "cache:6380", conf.Redis.GetRedisAddr())
		assert.Equal(t, "activity", conf.Redis.Key)
	})

	t.Run("Falls back to defaults", func(t *testing.T) {
		// Given: a config file that only sets the log level
		path := writeConfig(t, "log-level: info\n")

		// When: loading it
		conf := MustLoad(path)

		// Then: the server defaults are applied
		assert.Equal(t, SinkStdout, conf.LogSink)
		assert.Equal(t, 100, conf.MaxLogSize)
		assert.Equal(t, "50111", conf.SocketPort)
		assert.Equal(t, 20*time.Second, conf.PlayerTimeout)
		assert.False(t, conf.Redis.Enabled)
	})

	t.Run("Panics on invalid values", func(t *testing.T) {
		// Given: a config file with an unknown sink
		path := writeConfig(t, "log-sink: carrier-pigeon\n")

		// When / Then: loading panics
		assert.Panics(t, func() { MustLoad(path) })
	})
}

func TestConfig_Validate(t *testing.T) {
	valid := Config{LogSink: SinkStdout, MaxLogSize: 1}

	t.Run("Accepts a valid config", func(t *testing.T) {
		conf := valid
		require.NoError(t, conf.Validate())
	})

	t.Run("Rejects a non-positive max log size", func(t *testing.T) {
		conf := valid
		conf.MaxLogSize = 0
		require.ErrorIs(t, conf.Validate(), errMaxLogSize)
	})

	t.Run("Rejects a negative timeout", func(t *testing.T) {
		conf := valid
		conf.PlayerTimeout = -time.Second
		require.ErrorIs(t, conf.Validate(), errPlayerTimeout)
	})
}
