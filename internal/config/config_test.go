package config

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestLoadConfigDefaults(t *testing.T) {
	t.Setenv("JWT_SECRET", "test-secret")

	cfg, err := LoadConfig()
	require.NoError(t, err)

	assert.Equal(t, ":5000", cfg.HTTPAddr)
	assert.Equal(t, ProviderGmail, cfg.MailProvider)
	assert.Equal(t, []string{"no-reply@", "google.com"}, cfg.ExcludedSenders)
	assert.Equal(t, "gmail_user", cfg.PollUser)
	assert.Equal(t, 30*time.Second, cfg.PollInterval)
	assert.Equal(t, 100, cfg.FetchLimit)
	assert.Equal(t, "INBOX", cfg.IMAPFolder)

	assert.NoError(t, cfg.Validate())
}

func TestLoadConfigOverrides(t *testing.T) {
	t.Setenv("JWT_SECRET", "test-secret")
	t.Setenv("HTTP_ADDR", ":8080")
	t.Setenv("MAIL_PROVIDER", "imap")
	t.Setenv("IMAP_HOST", "imap.example.org")
	t.Setenv("IMAP_USERNAME", "alice")
	t.Setenv("IMAP_PASSWORD", "hunter2")
	t.Setenv("POLL_INTERVAL_SECONDS", "5")
	t.Setenv("EXCLUDED_SENDERS", " no-reply@ ,, alerts@bank.example ")

	cfg, err := LoadConfig()
	require.NoError(t, err)

	assert.Equal(t, ":8080", cfg.HTTPAddr)
	assert.Equal(t, ProviderIMAP, cfg.MailProvider)
	assert.Equal(t, 5*time.Second, cfg.PollInterval)
	assert.Equal(t, []string{"no-reply@", "alerts@bank.example"}, cfg.ExcludedSenders)

	assert.NoError(t, cfg.Validate())
}

func TestValidateMissingJWTSecret(t *testing.T) {
	t.Setenv("JWT_SECRET", "")

	cfg, err := LoadConfig()
	require.NoError(t, err)

	assert.ErrorContains(t, cfg.Validate(), "JWT_SECRET")
}

func TestValidateIMAPRequiresCredentials(t *testing.T) {
	t.Setenv("JWT_SECRET", "test-secret")
	t.Setenv("MAIL_PROVIDER", "imap")
	t.Setenv("IMAP_HOST", "imap.example.org")

	cfg, err := LoadConfig()
	require.NoError(t, err)

	assert.ErrorContains(t, cfg.Validate(), "IMAP_USERNAME")
}

func TestValidateUnknownProvider(t *testing.T) {
	t.Setenv("JWT_SECRET", "test-secret")
	t.Setenv("MAIL_PROVIDER", "pop3")

	cfg, err := LoadConfig()
	require.NoError(t, err)

	assert.ErrorContains(t, cfg.Validate(), "MAIL_PROVIDER")
}

func TestValidateFetchLimitRange(t *testing.T) {
	t.Setenv("JWT_SECRET", "test-secret")
	t.Setenv("FETCH_LIMIT", "0")

	cfg, err := LoadConfig()
	require.NoError(t, err)

	assert.ErrorContains(t, cfg.Validate(), "FETCH_LIMIT")
}
