package config

import (
	"fmt"
	"os"
	"strconv"
	"strings"
	"time"
)

// Provider selects the mail backend messages are ingested from.
type Provider string

const (
	// ProviderGmail reads the mailbox through the Gmail REST API.
	ProviderGmail Provider = "gmail"
	// ProviderIMAP reads the mailbox over IMAP.
	ProviderIMAP Provider = "imap"
)

// Config holds the application configuration
type Config struct {
	// Server settings
	HTTPAddr  string
	LogLevel  string
	JWTSecret string

	// User database
	UsersDBPath string

	// Classifier artifacts
	VectorizerPath string
	ModelPath      string

	// Mail provider
	MailProvider    Provider
	ExcludedSenders []string

	// Gmail settings
	GmailCredentialsPath string
	GmailTokenPath       string

	// IMAP settings
	IMAPHost     string
	IMAPPort     int
	IMAPUsername string
	IMAPPassword string
	IMAPFolder   string

	// Background polling
	PollUser     string
	PollInterval time.Duration
	FetchLimit   int
}

// LoadConfig loads configuration from environment variables
func LoadConfig() (*Config, error) {
	cfg := &Config{
		HTTPAddr:  getEnv("HTTP_ADDR", ":5000"),
		LogLevel:  getEnv("LOG_LEVEL", "info"),
		JWTSecret: getEnv("JWT_SECRET", ""),

		UsersDBPath: getEnv("USERS_DB_PATH", "/data/users.db"),

		VectorizerPath: getEnv("VECTORIZER_PATH", "models/vectorizer.json"),
		ModelPath:      getEnv("MODEL_PATH", "models/phishing_model.json"),

		MailProvider:    Provider(getEnv("MAIL_PROVIDER", string(ProviderGmail))),
		ExcludedSenders: splitList(getEnv("EXCLUDED_SENDERS", "no-reply@,google.com")),

		GmailCredentialsPath: getEnv("GMAIL_CREDENTIALS_PATH", "credentials.json"),
		GmailTokenPath:       getEnv("GMAIL_TOKEN_PATH", "token.json"),

		IMAPHost:     getEnv("IMAP_HOST", ""),
		IMAPPort:     getEnvInt("IMAP_PORT", 993),
		IMAPUsername: getEnv("IMAP_USERNAME", ""),
		IMAPPassword: getEnv("IMAP_PASSWORD", ""),
		IMAPFolder:   getEnv("IMAP_FOLDER", "INBOX"),

		PollUser:     getEnv("POLL_USER", "gmail_user"),
		PollInterval: time.Duration(getEnvInt("POLL_INTERVAL_SECONDS", 30)) * time.Second,
		FetchLimit:   getEnvInt("FETCH_LIMIT", 100),
	}

	return cfg, nil
}

// Validate validates the configuration
func (c *Config) Validate() error {
	if c.HTTPAddr == "" {
		return fmt.Errorf("HTTP_ADDR is required")
	}
	if c.JWTSecret == "" {
		return fmt.Errorf("JWT_SECRET is required")
	}
	if c.UsersDBPath == "" {
		return fmt.Errorf("USERS_DB_PATH is required")
	}
	if c.VectorizerPath == "" || c.ModelPath == "" {
		return fmt.Errorf("VECTORIZER_PATH and MODEL_PATH are required")
	}
	if c.FetchLimit < 1 || c.FetchLimit > 1000 {
		return fmt.Errorf("FETCH_LIMIT must be between 1 and 1000")
	}
	if c.PollInterval <= 0 {
		return fmt.Errorf("POLL_INTERVAL_SECONDS must be positive")
	}
	if c.PollUser == "" {
		return fmt.Errorf("POLL_USER is required")
	}

	switch c.MailProvider {
	case ProviderGmail:
		if c.GmailCredentialsPath == "" || c.GmailTokenPath == "" {
			return fmt.Errorf("GMAIL_CREDENTIALS_PATH and GMAIL_TOKEN_PATH are required for the gmail provider")
		}
	case ProviderIMAP:
		if c.IMAPHost == "" {
			return fmt.Errorf("IMAP_HOST is required for the imap provider")
		}
		if c.IMAPUsername == "" || c.IMAPPassword == "" {
			return fmt.Errorf("IMAP_USERNAME and IMAP_PASSWORD are required for the imap provider")
		}
		if c.IMAPPort < 1 || c.IMAPPort > 65535 {
			return fmt.Errorf("invalid IMAP_PORT")
		}
	default:
		return fmt.Errorf("MAIL_PROVIDER must be %q or %q", ProviderGmail, ProviderIMAP)
	}

	return nil
}

// splitList splits a comma-separated value, dropping empty entries
func splitList(value string) []string {
	var items []string
	for _, item := range strings.Split(value, ",") {
		item = strings.TrimSpace(item)
		if item != "" {
			items = append(items, item)
		}
	}
	return items
}

// getEnv gets an environment variable or returns a default value
func getEnv(key, defaultValue string) string {
	if value := os.Getenv(key); value != "" {
		return value
	}
	return defaultValue
}

// getEnvInt gets an environment variable as an integer or returns a default value
func getEnvInt(key string, defaultValue int) int {
	if value := os.Getenv(key); value != "" {
		if intValue, err := strconv.Atoi(value); err == nil {
			return intValue
		}
	}
	return defaultValue
}
