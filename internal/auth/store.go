package auth

import (
	"database/sql"
	"errors"
	"fmt"
	"strings"

	"github.com/sirupsen/logrus"
)

var (
	// ErrUserExists is returned when signing up an already registered email.
	ErrUserExists = errors.New("user already exists")
	// ErrUserNotFound is returned when the email has no account.
	ErrUserNotFound = errors.New("user not found")
)

// Store provides user persistence on top of the SQLite database
type Store struct {
	db     *DB
	logger *logrus.Logger
}

// NewStore creates a new user store
func NewStore(db *DB, logger *logrus.Logger) *Store {
	return &Store{
		db:     db,
		logger: logger,
	}
}

// CreateUser inserts a new user row
func (s *Store) CreateUser(email, passwordHash string) error {
	_, err := s.db.db.Exec(
		"INSERT INTO users (email, password_hash) VALUES (?, ?)",
		email, passwordHash,
	)
	if err != nil {
		if strings.Contains(err.Error(), "UNIQUE constraint failed") {
			return ErrUserExists
		}
		return fmt.Errorf("failed to create user: %w", err)
	}
	return nil
}

// GetPasswordHash returns the stored bcrypt hash for an email
func (s *Store) GetPasswordHash(email string) (string, error) {
	var hash string
	err := s.db.db.QueryRow(
		"SELECT password_hash FROM users WHERE email = ?", email,
	).Scan(&hash)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return "", ErrUserNotFound
		}
		return "", fmt.Errorf("failed to look up user: %w", err)
	}
	return hash, nil
}

// UpdatePassword replaces the stored hash for an email
func (s *Store) UpdatePassword(email, passwordHash string) error {
	result, err := s.db.db.Exec(
		"UPDATE users SET password_hash = ?, updated_at = CURRENT_TIMESTAMP WHERE email = ?",
		passwordHash, email,
	)
	if err != nil {
		return fmt.Errorf("failed to update password: %w", err)
	}

	affected, err := result.RowsAffected()
	if err != nil {
		return fmt.Errorf("failed to check update result: %w", err)
	}
	if affected == 0 {
		return ErrUserNotFound
	}
	return nil
}
