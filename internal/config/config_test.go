package config

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func setRequiredEnv(t *testing.T) {
	t.Helper()
	t.Setenv("NOSTR_SECRET_KEY", "deadbeef")
	t.Setenv("RELAYS", "")
	t.Setenv("TELEGRAM_CHAT_ID", "")
}

func TestLoadDefaults(t *testing.T) {
	setRequiredEnv(t)
	t.Setenv("DATABASE_PATH", "")
	t.Setenv("LOG_LEVEL", "")
	t.Setenv("PORT", "")

	cfg, err := Load()
	require.NoError(t, err)

	assert.Equal(t, "deadbeef", cfg.NostrSecretKey)
	assert.Equal(t, DefaultRelays, cfg.Relays)
	assert.Equal(t, "satslist.db", cfg.DatabasePath)
	assert.Equal(t, "info", cfg.LogLevel)
	assert.Equal(t, "8080", cfg.Port)
	assert.Zero(t, cfg.TelegramChatID)
}

func TestLoadRequiresSecretKey(t *testing.T) {
	t.Setenv("NOSTR_SECRET_KEY", "")

	_, err := Load()
	require.Error(t, err)
	assert.Contains(t, err.Error(), "NOSTR_SECRET_KEY")
}

func TestLoadSplitsRelays(t *testing.T) {
	setRequiredEnv(t)
	t.Setenv("RELAYS", " wss://a.example , wss://b.example,,wss://c.example ")

	cfg, err := Load()
	require.NoError(t, err)
	assert.Equal(t, []string{"wss://a.example", "wss://b.example", "wss://c.example"}, cfg.Relays)
}

func TestLoadParsesChatID(t *testing.T) {
	setRequiredEnv(t)
	t.Setenv("TELEGRAM_CHAT_ID", "123456789")

	cfg, err := Load()
	require.NoError(t, err)
	assert.Equal(t, int64(123456789), cfg.TelegramChatID)
}

func TestLoadRejectsBadChatID(t *testing.T) {
	setRequiredEnv(t)
	t.Setenv("TELEGRAM_CHAT_ID", "not-a-number")

	_, err := Load()
	assert.Error(t, err)
}
