// internal/config/config_test.go
package config

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func writeConfig(t *testing.T, content string) string {
	t.Helper()
	path := filepath.Join(t.TempDir(), "config.yaml")
	require.NoError(t, os.WriteFile(path, []byte(content), 0o644))
	return path
}

func TestLoadConfig_Defaults(t *testing.T) {
	path := writeConfig(t, `
password: youshallnotpass
user_id: "8675309"
`)

	cfg, err := LoadConfig(path)
	require.NoError(t, err)

	assert.Equal(t, "ws://localhost:2333", cfg.WebsocketURL())
	assert.Equal(t, "http://localhost:2333", cfg.RestURL())
	assert.Equal(t, "nodelink", cfg.ClientName)
	assert.Equal(t, "nodelink_", cfg.EventPrefix)
	assert.Equal(t, DefaultMaxReconnects, cfg.MaxReconnects)
	assert.Equal(t, int64(1000), cfg.BackoffBase().Milliseconds())
	assert.Equal(t, int64(60000), cfg.BackoffMax().Milliseconds())
}

func TestLoadConfig_MissingPassword(t *testing.T) {
	path := writeConfig(t, `
user_id: "8675309"
`)

	_, err := LoadConfig(path)
	assert.Error(t, err)
}

func TestLoadConfig_InvalidBackoff(t *testing.T) {
	path := writeConfig(t, `
password: x
user_id: "1"
backoff_base_ms: 5000
backoff_max_ms: 1000
`)

	_, err := LoadConfig(path)
	assert.Error(t, err)
}

func TestLoadConfig_EnvOverride(t *testing.T) {
	path := writeConfig(t, `
password: from-file
user_id: "1"
`)

	t.Setenv("NODELINK_PASSWORD", "from-env")
	t.Setenv("NODELINK_NODE_HOST", "audio.internal")

	cfg, err := LoadConfig(path)
	require.NoError(t, err)

	assert.Equal(t, "from-env", cfg.Password)
	assert.Equal(t, "ws://audio.internal:2333", cfg.WebsocketURL())
}

func TestLoadConfig_InvalidPort(t *testing.T) {
	path := writeConfig(t, `
password: x
user_id: "1"
node_port: 99999
`)

	_, err := LoadConfig(path)
	assert.Error(t, err)
}
