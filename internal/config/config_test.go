package config

import (
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func writeFile(t *testing.T, dir, name, content string) string {
	t.Helper()
	path := filepath.Join(dir, name)
	require.NoError(t, os.WriteFile(path, []byte(content), 0o600))
	return path
}

func TestLoad_Defaults(t *testing.T) {
	dir := t.TempDir()
	server := writeFile(t, dir, "server.toml", ``)

	cfg, err := Load(server, filepath.Join(dir, "missing.toml"))
	require.NoError(t, err)
	assert.Equal(t, ":3000", cfg.Server.Address)
	assert.Equal(t, "info", cfg.Server.LogLevel)
	assert.Equal(t, DriverMemory, cfg.Server.Storage.Driver)
	assert.Equal(t, 24*time.Hour, cfg.Server.Auth.Expiration)
}

func TestLoad_FileAndEnv(t *testing.T) {
	dir := t.TempDir()
	server := writeFile(t, dir, "server.toml", `
address = ":8080"
tg_bot_enabled = true

[storage]
driver = "postgres"

[storage.postgres]
host = "db"
port = 5433
password = "from-file"

[auth]
token = "from-file"
expiration = "90m"
`)
	bot := writeFile(t, dir, "bot.toml", `telegram_apitoken = "file-token"
debug = true
`)
	t.Setenv("EVENTHUB_AUTH_TOKEN", "from-env")
	t.Setenv("EVENTHUB_DB_PASSWORD", "secret")
	t.Setenv("TELEGRAM_APITOKEN", "")

	cfg, err := Load(server, bot)
	require.NoError(t, err)
	assert.Equal(t, ":8080", cfg.Server.Address)
	assert.Equal(t, DriverPostgres, cfg.Server.Storage.Driver)
	assert.Equal(t, "db", cfg.Server.Storage.Postgres.Host)
	assert.Equal(t, 5433, cfg.Server.Storage.Postgres.Port)
	assert.Equal(t, "secret", cfg.Server.Storage.Postgres.Password)
	assert.Equal(t, "from-env", cfg.Server.Auth.Token)
	assert.Equal(t, 90*time.Minute, cfg.Server.Auth.Expiration)
	assert.Equal(t, "file-token", cfg.TgBot.TelegramApiToken)
	assert.True(t, cfg.TgBot.Debug)
}

func TestLoad_Errors(t *testing.T) {
	dir := t.TempDir()
	tests := []struct {
		name   string
		server string
	}{
		{"unknown driver", "[storage]\ndriver = \"mongo\"\n"},
		{"broken toml", "address = \n"},
		{"bot config missing", "tg_bot_enabled = true\n"},
	}
	for i, tt := range tests {
		path := writeFile(t, dir, tt.name+".toml", tt.server)
		_, err := Load(path, filepath.Join(dir, "missing.toml"))
		assert.Error(t, err, "case %d: %s", i, tt.name)
	}
}
