package httpserver

import (
	"errors"
	"net/http"
	"strings"

	"github.com/gin-gonic/gin"
	"github.com/sirupsen/logrus"

	"github.com/dkoski/phishguard/internal/auth"
	"github.com/dkoski/phishguard/internal/ingest"
	"github.com/dkoski/phishguard/internal/store"
	"github.com/dkoski/phishguard/pkg/types"
)

// Handler holds the services the routes delegate to
type Handler struct {
	auth       *auth.Service
	ingest     *ingest.Service
	store      *store.Store
	classifier ingest.Classifier
	logger     *logrus.Logger
}

// NewHandler creates the route handler
func NewHandler(authSvc *auth.Service, ingestSvc *ingest.Service, st *store.Store, cls ingest.Classifier, logger *logrus.Logger) *Handler {
	return &Handler{
		auth:       authSvc,
		ingest:     ingestSvc,
		store:      st,
		classifier: cls,
		logger:     logger,
	}
}

type credentialsRequest struct {
	Email    string `json:"email"`
	Password string `json:"password"`
}

// SignUp handles POST /auth/signup
func (h *Handler) SignUp(c *gin.Context) {
	var req credentialsRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "invalid request"})
		return
	}

	token, err := h.auth.SignUp(req.Email, req.Password)
	if err != nil {
		if errors.Is(err, auth.ErrUserExists) {
			c.JSON(http.StatusConflict, gin.H{"error": "user already exists"})
			return
		}
		h.logger.WithError(err).Warn("Signup failed")
		c.JSON(http.StatusBadRequest, gin.H{"error": "signup failed"})
		return
	}

	c.JSON(http.StatusOK, gin.H{"token": token})
}

// LogIn handles POST /auth/login
func (h *Handler) LogIn(c *gin.Context) {
	var req credentialsRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "invalid request"})
		return
	}

	token, err := h.auth.LogIn(req.Email, req.Password)
	if err != nil {
		if errors.Is(err, auth.ErrInvalidCredentials) {
			c.JSON(http.StatusUnauthorized, gin.H{"error": "invalid credentials"})
			return
		}
		h.logger.WithError(err).Error("Login failed")
		c.JSON(http.StatusInternalServerError, gin.H{"error": "login failed"})
		return
	}

	c.JSON(http.StatusOK, gin.H{"token": token})
}

// ResetPassword handles POST /auth/reset_password
func (h *Handler) ResetPassword(c *gin.Context) {
	var req struct {
		Email       string `json:"email"`
		OldPassword string `json:"old_password"`
		NewPassword string `json:"new_password"`
	}
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "invalid request"})
		return
	}

	if err := h.auth.ResetPassword(req.Email, req.OldPassword, req.NewPassword); err != nil {
		if errors.Is(err, auth.ErrInvalidCredentials) {
			c.JSON(http.StatusUnauthorized, gin.H{"error": "invalid credentials"})
			return
		}
		h.logger.WithError(err).Error("Password reset failed")
		c.JSON(http.StatusInternalServerError, gin.H{"error": "password reset failed"})
		return
	}

	c.JSON(http.StatusOK, gin.H{"status": "ok"})
}

// TriggerFetch handles POST /emails/fetch. Provider failures degrade to
// an empty fetch instead of a request error.
func (h *Handler) TriggerFetch(c *gin.Context) {
	user := currentUser(c)

	added, err := h.ingest.FetchOnce(c.Request.Context(), user)
	if err != nil {
		h.logger.WithField("user", user).WithError(err).Warn("On-demand fetch failed")
		c.JSON(http.StatusOK, gin.H{"fetched": 0})
		return
	}

	c.JSON(http.StatusOK, gin.H{"fetched": added})
}

// ListMessages handles GET /emails
func (h *Handler) ListMessages(c *gin.Context) {
	c.JSON(http.StatusOK, gin.H{"messages": h.store.ListLive(currentUser(c))})
}

// DeleteMessage handles POST /emails/delete
func (h *Handler) DeleteMessage(c *gin.Context) {
	var req struct {
		Text string `json:"text"`
	}
	if err := c.ShouldBindJSON(&req); err != nil || strings.TrimSpace(req.Text) == "" {
		c.JSON(http.StatusBadRequest, gin.H{"error": "invalid request"})
		return
	}

	removed := h.store.MarkDeleted(currentUser(c), req.Text)
	c.JSON(http.StatusOK, gin.H{"status": "ok", "removed": removed})
}

// ClassifyMessage handles POST /messages/classify: labels the submitted
// text and records it in the caller's mailbox like a fetched message.
func (h *Handler) ClassifyMessage(c *gin.Context) {
	var req struct {
		Message string `json:"message"`
	}
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "invalid request"})
		return
	}

	text := strings.TrimSpace(req.Message)
	if text == "" {
		c.JSON(http.StatusBadRequest, gin.H{"error": "message is required"})
		return
	}

	label, err := h.classifier.Predict(text)
	if err != nil {
		h.logger.WithError(err).Warn("Classification failed")
		label = types.LabelError
	}

	h.store.AppendIfNew(currentUser(c), types.Message{Text: text, Label: label})
	c.JSON(http.StatusOK, gin.H{"label": label})
}
