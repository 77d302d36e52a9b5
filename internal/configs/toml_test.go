package configs

import (
	"bytes"
	"os"
	"path/filepath"
	"runtime"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestSaveTOMLWritesPrivateFile(t *testing.T) {
	path := filepath.Join(t.TempDir(), "nested", "config.toml")
	require.NoError(t, SaveTOML(path, DefaultConfig()))

	info, err := os.Stat(path)
	require.NoError(t, err)
	if runtime.GOOS != "windows" {
		assert.Equal(t, os.FileMode(0600), info.Mode().Perm())
	}

	loaded := &Config{}
	require.NoError(t, LoadTOML(path, loaded))
	assert.Equal(t, "backpack-agent", loaded.Vault.Service)
	assert.Equal(t, "python3", loaded.Run.Interpreters[".py"])
}

func TestSaveTOMLTruncatesExistingFile(t *testing.T) {
	path := filepath.Join(t.TempDir(), "config.toml")
	require.NoError(t, os.WriteFile(path, bytes.Repeat([]byte("# padding\n"), 200), 0600))

	require.NoError(t, SaveTOML(path, DefaultConfig()))

	data, err := os.ReadFile(path)
	require.NoError(t, err)
	assert.NotContains(t, string(data), "# padding")
}

func TestEncodeTOMLOmitsVaultPassword(t *testing.T) {
	config := DefaultConfig()
	config.Vault.FilePassword = "hunter2"

	var buf bytes.Buffer
	require.NoError(t, EncodeTOML(&buf, config))

	assert.NotContains(t, buf.String(), "hunter2")
	assert.Contains(t, buf.String(), "[container]")
}

func TestLoadTOMLNonExistent(t *testing.T) {
	err := LoadTOML(filepath.Join(t.TempDir(), "missing.toml"), &Config{})
	assert.Error(t, err)
}
