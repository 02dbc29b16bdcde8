// Package auth implements user accounts and JWT sessions: a SQLite
// user store, bcrypt password hashing, and HS256 token issue/verify.
package auth

import (
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/golang-jwt/jwt/v5"
	"github.com/sirupsen/logrus"
	"golang.org/x/crypto/bcrypt"
)

var (
	// ErrInvalidCredentials is returned for any email/password mismatch.
	// The shape is constant so callers cannot tell a wrong password from
	// an unknown email.
	ErrInvalidCredentials = errors.New("invalid credentials")
	// ErrInvalidToken is returned for expired, malformed, or forged tokens.
	ErrInvalidToken = errors.New("invalid token")
)

const tokenTTL = 24 * time.Hour

// Service implements signup, login, and password reset
type Service struct {
	store     *Store
	jwtSecret []byte
	logger    *logrus.Logger
}

// NewService creates an auth service signing tokens with the given secret
func NewService(store *Store, jwtSecret string, logger *logrus.Logger) *Service {
	return &Service{
		store:     store,
		jwtSecret: []byte(jwtSecret),
		logger:    logger,
	}
}

// SignUp registers a new user and returns a session token
func (s *Service) SignUp(email, password string) (string, error) {
	email = strings.TrimSpace(strings.ToLower(email))
	if email == "" || password == "" {
		return "", fmt.Errorf("email and password are required")
	}

	hash, err := bcrypt.GenerateFromPassword([]byte(password), bcrypt.DefaultCost)
	if err != nil {
		return "", fmt.Errorf("failed to hash password: %w", err)
	}

	if err := s.store.CreateUser(email, string(hash)); err != nil {
		return "", err
	}

	s.logger.WithField("user", email).Info("User registered")
	return s.generateToken(email)
}

// LogIn verifies credentials and returns a session token
func (s *Service) LogIn(email, password string) (string, error) {
	email = strings.TrimSpace(strings.ToLower(email))

	hash, err := s.store.GetPasswordHash(email)
	if err != nil {
		if errors.Is(err, ErrUserNotFound) {
			return "", ErrInvalidCredentials
		}
		return "", err
	}

	if bcrypt.CompareHashAndPassword([]byte(hash), []byte(password)) != nil {
		return "", ErrInvalidCredentials
	}

	return s.generateToken(email)
}

// ResetPassword replaces a user's password after verifying the old one
func (s *Service) ResetPassword(email, oldPassword, newPassword string) error {
	email = strings.TrimSpace(strings.ToLower(email))
	if newPassword == "" {
		return fmt.Errorf("new password is required")
	}

	hash, err := s.store.GetPasswordHash(email)
	if err != nil {
		if errors.Is(err, ErrUserNotFound) {
			return ErrInvalidCredentials
		}
		return err
	}
	if bcrypt.CompareHashAndPassword([]byte(hash), []byte(oldPassword)) != nil {
		return ErrInvalidCredentials
	}

	newHash, err := bcrypt.GenerateFromPassword([]byte(newPassword), bcrypt.DefaultCost)
	if err != nil {
		return fmt.Errorf("failed to hash password: %w", err)
	}

	if err := s.store.UpdatePassword(email, string(newHash)); err != nil {
		return err
	}

	s.logger.WithField("user", email).Info("Password reset")
	return nil
}

// generateToken issues an HS256 session token for the user
func (s *Service) generateToken(email string) (string, error) {
	claims := jwt.MapClaims{
		"sub": email,
		"exp": time.Now().Add(tokenTTL).Unix(),
		"iat": time.Now().Unix(),
	}

	token := jwt.NewWithClaims(jwt.SigningMethodHS256, claims)
	signed, err := token.SignedString(s.jwtSecret)
	if err != nil {
		return "", fmt.Errorf("failed to sign token: %w", err)
	}
	return signed, nil
}

// ParseToken validates a session token and returns the user it was issued to
func (s *Service) ParseToken(tokenStr string) (string, error) {
	token, err := jwt.Parse(tokenStr, func(t *jwt.Token) (interface{}, error) {
		if _, ok := t.Method.(*jwt.SigningMethodHMAC); !ok {
			return nil, fmt.Errorf("unexpected signing method: %v", t.Header["alg"])
		}
		return s.jwtSecret, nil
	})
	if err != nil || !token.Valid {
		return "", ErrInvalidToken
	}

	claims, ok := token.Claims.(jwt.MapClaims)
	if !ok {
		return "", ErrInvalidToken
	}
	sub, ok := claims["sub"].(string)
	if !ok || sub == "" {
		return "", ErrInvalidToken
	}
	return sub, nil
}
