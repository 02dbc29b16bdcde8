// Package httpserver exposes the HTTP surface: auth routes plus the
// authenticated mailbox routes. Handlers stay thin; all domain logic
// lives in the services they delegate to.
package httpserver

import (
	"github.com/gin-gonic/gin"
	"github.com/sirupsen/logrus"

	"github.com/dkoski/phishguard/internal/auth"
)

// NewRouter builds the gin engine with all routes registered
func NewRouter(h *Handler, authSvc *auth.Service, logger *logrus.Logger) *gin.Engine {
	gin.SetMode(gin.ReleaseMode)
	r := gin.New()
	r.Use(gin.Recovery())
	r.Use(requestLogger(logger))

	r.GET("/healthz", func(c *gin.Context) {
		c.JSON(200, gin.H{"status": "ok"})
	})

	authRoutes := r.Group("/auth")
	{
		authRoutes.POST("/signup", h.SignUp)
		authRoutes.POST("/login", h.LogIn)
		authRoutes.POST("/reset_password", h.ResetPassword)
	}

	protected := r.Group("/")
	protected.Use(authRequired(authSvc))
	{
		protected.POST("/emails/fetch", h.TriggerFetch)
		protected.GET("/emails", h.ListMessages)
		protected.POST("/emails/delete", h.DeleteMessage)
		protected.POST("/messages/classify", h.ClassifyMessage)
	}

	return r
}
