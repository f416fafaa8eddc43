package server

import (
	"context"
	"crypto/subtle"
	"net/http"

	"github.com/gin-gonic/gin"

	"github.com/compozy/groupops/engine/surface"
	"github.com/compozy/groupops/pkg/logger"
)

func (s *Server) health(c *gin.Context) {
	c.JSON(http.StatusOK, gin.H{"status": "ok"})
}

func (s *Server) authorizedWebhook(c *gin.Context) bool {
	secret := s.cfg.Telegram.WebhookSecret.Value()
	if secret == "" {
		return true
	}
	got := c.GetHeader(secretHeader)
	return subtle.ConstantTimeCompare([]byte(got), []byte(secret)) == 1
}

// webhook accepts one Telegram update. Accepted updates are answered with
// 200 even when handling fails so Telegram does not redeliver them.
func (s *Server) webhook(c *gin.Context) {
	log := logger.FromContext(c.Request.Context())
	if !s.authorizedWebhook(c) {
		c.AbortWithStatusJSON(http.StatusUnauthorized, gin.H{"error": "invalid secret token"})
		return
	}
	var update surface.Update
	if err := c.ShouldBindJSON(&update); err != nil {
		c.AbortWithStatusJSON(http.StatusBadRequest, gin.H{"error": "invalid update payload"})
		return
	}
	log = log.With("update_id", update.UpdateID)
	ctx := logger.ContextWithLogger(context.WithoutCancel(c.Request.Context()), log)
	if s.deduper != nil {
		seen, err := s.deduper.Seen(ctx, update.UpdateID)
		if err != nil {
			log.Warn("Failed to check update idempotency", "error", err)
		}
		if seen {
			log.Debug("Dropping duplicate update")
			c.JSON(http.StatusOK, gin.H{"status": "duplicate"})
			return
		}
	}
	if err := s.handler.HandleUpdate(ctx, &update); err != nil {
		log.Error("Failed to handle update", "error", err)
	}
	c.JSON(http.StatusOK, gin.H{"status": "ok"})
}
