package config

import (
	"bytes"
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestLoadDefaults(t *testing.T) {
	t.Chdir(t.TempDir())
	t.Setenv("NOTES_CONFIG", "")

	cfg, err := Load("")
	require.NoError(t, err)
	assert.Equal(t, Default(), cfg)
	assert.Equal(t, ":8080", cfg.Addr())
}

func TestLoadFileThenEnv(t *testing.T) {
	dir := t.TempDir()
	t.Chdir(dir)
	path := filepath.Join(dir, "notes.yaml")
	require.NoError(t, os.WriteFile(path, []byte(`
port: "9000"
db:
  driver: postgres
  dsn: postgres://localhost/notes
auth:
  token: from-file
  token_ttl: 2h
log:
  level: debug
  format: json
`), 0o644))

	t.Setenv("NOTES_TOKEN", "from-env")
	t.Setenv("NOTES_AUTO_MIGRATE", "false")

	cfg, err := Load(path)
	require.NoError(t, err)
	assert.Equal(t, "9000", cfg.Port)
	assert.Equal(t, "postgres", cfg.DB.Driver)
	assert.Equal(t, "postgres://localhost/notes", cfg.DB.DSN)
	assert.Equal(t, "from-env", cfg.Auth.Token)
	assert.Equal(t, 2*time.Hour, cfg.Auth.TokenTTL)
	assert.False(t, cfg.AutoMigrate)
	assert.Equal(t, Log{Level: "debug", Format: "json"}, cfg.Log)
}

func TestLoadDotEnv(t *testing.T) {
	dir := t.TempDir()
	t.Chdir(dir)
	require.NoError(t, os.WriteFile(filepath.Join(dir, ".env"), []byte("NOTES_PORT=7070\n"), 0o644))
	t.Setenv("NOTES_CONFIG", "")
	// godotenv sets the variable; restore it afterwards
	t.Setenv("NOTES_PORT", "")
	os.Unsetenv("NOTES_PORT")

	cfg, err := Load("")
	require.NoError(t, err)
	assert.Equal(t, "7070", cfg.Port)
}

func TestLoadRejectsBadValues(t *testing.T) {
	t.Chdir(t.TempDir())

	t.Setenv("NOTES_TOKEN_TTL", "soon")
	_, err := Load("")
	assert.Error(t, err)

	t.Setenv("NOTES_TOKEN_TTL", "1h")
	t.Setenv("NOTES_DB_DRIVER", "oracle")
	_, err = Load("")
	assert.Error(t, err)

	_, err = Load(filepath.Join(t.TempDir(), "missing.yaml"))
	assert.Error(t, err)
}

func TestNewLogger(t *testing.T) {
	var buf bytes.Buffer
	log, err := NewLogger(Log{Level: "warn", Format: "json"}, &buf)
	require.NoError(t, err)

	log.Info().Msg("hidden")
	log.Warn().Str("op", "copy").Msg("shown")
	assert.NotContains(t, buf.String(), "hidden")
	assert.Contains(t, buf.String(), `"op":"copy"`)

	_, err = NewLogger(Log{Level: "loud"}, &buf)
	assert.Error(t, err)
	_, err = NewLogger(Log{Level: "info", Format: "xml"}, &buf)
	assert.Error(t, err)
}
