package cli

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestMorphServer(t *testing.T) {
	assert.Equal(t, "", MorphServer(""))
	assert.Equal(t, "https://example.com", MorphServer("example.com"))
	assert.Equal(t, "https://example.com", MorphServer("https://example.com/"))
	assert.Equal(t, "http://localhost:8000/api", MorphServer("http://localhost:8000/api/"))
}

func writeConfigFile(t *testing.T, content string) string {
	t.Helper()
	path := filepath.Join(t.TempDir(), DefaultConfigFile)
	require.NoError(t, os.WriteFile(path, []byte(content), 0600))
	return path
}

func TestLoadConfig(t *testing.T) {
	path := writeConfigFile(t, "version: \"0.1.0\"\nserver_url: http://localhost:8000/api\n")

	require.NoError(t, LoadConfig(path))
	cfg := GetConfig()
	require.NotNil(t, cfg)
	assert.Equal(t, "http://localhost:8000/api", cfg.ServerURL)
	// state file defaults next to the config
	assert.Equal(t, filepath.Join(filepath.Dir(path), defaultStateFile), cfg.StatePath)
}

func TestLoadConfigMissingServer(t *testing.T) {
	path := writeConfigFile(t, "version: \"0.1.0\"\n")
	assert.Error(t, LoadConfig(path))
}

func TestLoadConfigMissingFile(t *testing.T) {
	err := LoadConfig(filepath.Join(t.TempDir(), "nope.yaml"))
	assert.ErrorIs(t, err, os.ErrNotExist)
}

func TestLoadConfigEnvOverride(t *testing.T) {
	path := writeConfigFile(t, "version: \"0.1.0\"\nserver_url: http://localhost:8000/api\n")
	t.Setenv("SENSEHEL_SERVER_URL", "https://sensehel.example.com/api")

	require.NoError(t, LoadConfig(path))
	assert.Equal(t, "https://sensehel.example.com/api", GetConfig().ServerURL)
}

func TestWriteConfigRoundTrip(t *testing.T) {
	path := filepath.Join(t.TempDir(), "nested", DefaultConfigFile)
	cfg := &Config{Version: "0.1.0", ServerURL: "https://example.com/api"}

	require.NoError(t, cfg.WriteConfig(path))
	require.NoError(t, LoadConfig(path))
	assert.Equal(t, "https://example.com/api", GetConfig().ServerURL)
}
