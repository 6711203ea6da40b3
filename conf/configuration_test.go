package conf

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func writeConfig(t *testing.T, body string) string {
	t.Helper()
	path := filepath.Join(t.TempDir(), "eems.toml")
	require.NoError(t, os.WriteFile(path, []byte(body), 0o644))
	return path
}

func TestLoadDefaults(t *testing.T) {
	cfg, err := Load(writeConfig(t, ``))
	require.NoError(t, err)

	assert.Equal(t, "/var/lib/eems/db", cfg.DB.Path)
	assert.Equal(t, "info", cfg.Logging.Level)
	assert.Empty(t, cfg.Content)

	host, err := os.Hostname()
	require.NoError(t, err)
	assert.Equal(t, host, cfg.Server.Hostname)
	assert.Equal(t, "EEMSat "+host, cfg.Server.Name)

	// Derived identity is stable for a given host name.
	want := uuid.NewSHA1(uuid.NameSpaceDNS, []byte(host)).String()
	assert.Equal(t, want, cfg.Server.UUID)
}

func TestLoadFull(t *testing.T) {
	cfg, err := Load(writeConfig(t, `
[server]
port = 8200
hostname = "media.local"
name = "Living room"
uuid = "6ba7b810-9dad-11d1-80b4-00c04fd430c8"

[db]
path = "/tmp/eems-db"

[logging]
level = "debug"
path = "/tmp/eems.log"
truncate = true

[[content]]
type = "movies"
path = "/media/movies"
use_folder_names = false
use_collections = false
`))
	require.NoError(t, err)

	assert.Equal(t, uint16(8200), cfg.Server.Port)
	assert.Equal(t, "media.local", cfg.Server.Hostname)
	assert.Equal(t, "Living room", cfg.Server.Name)
	assert.Equal(t, "6ba7b810-9dad-11d1-80b4-00c04fd430c8", cfg.Server.UUID)
	assert.Equal(t, "/tmp/eems-db", cfg.DB.Path)
	assert.Equal(t, "debug", cfg.Logging.Level)
	assert.True(t, cfg.Logging.Truncate)

	require.Len(t, cfg.Content, 1)
	dir := cfg.Content[0]
	assert.Equal(t, "/media/movies", dir.Path)
	assert.False(t, dir.FolderNames())
	assert.False(t, dir.Collections())
}

func TestContentDirectoryOptionDefaults(t *testing.T) {
	cfg, err := Load(writeConfig(t, `
[[content]]
type = "movies"
path = "/media/movies"
`))
	require.NoError(t, err)
	require.Len(t, cfg.Content, 1)
	assert.True(t, cfg.Content[0].FolderNames())
	assert.True(t, cfg.Content[0].Collections())
}

func TestLoadRejectsUnknownContentType(t *testing.T) {
	_, err := Load(writeConfig(t, `
[[content]]
type = "music"
path = "/media/music"
`))
	assert.ErrorContains(t, err, "unknown content type")
}

func TestLoadRequiresContentPath(t *testing.T) {
	_, err := Load(writeConfig(t, `
[[content]]
type = "movies"
`))
	assert.ErrorContains(t, err, "path is required")
}

func TestLoadRejectsBadUUID(t *testing.T) {
	_, err := Load(writeConfig(t, `
[server]
uuid = "not-a-uuid"
`))
	assert.ErrorContains(t, err, "server.uuid")
}

func TestLoadMissingFile(t *testing.T) {
	_, err := Load(filepath.Join(t.TempDir(), "absent.toml"))
	assert.Error(t, err)
}
