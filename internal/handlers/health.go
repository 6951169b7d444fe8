package handlers

import (
	"context"
	"net/http"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/sirupsen/logrus"
	"github.com/yukikurage/taskboard-api/internal/database"
)

const healthPingTimeout = 2 * time.Second

// HealthHandler reports service and database status
type HealthHandler struct {
	service string
	db      database.Pinger
	log     logrus.FieldLogger
}

func NewHealthHandler(service string, db database.Pinger, log logrus.FieldLogger) *HealthHandler {
	return &HealthHandler{service: service, db: db, log: log}
}

// Health always answers 200; the database field reflects reachability
func (h *HealthHandler) Health(c *gin.Context) {
	dbStatus := "connected"
	if h.db != nil {
		ctx, cancel := context.WithTimeout(c.Request.Context(), healthPingTimeout)
		defer cancel()
		if err := h.db.Ping(ctx); err != nil {
			h.log.WithError(err).Warn("database ping failed")
			dbStatus = "disconnected"
		}
	}

	c.JSON(http.StatusOK, gin.H{
		"success":   true,
		"status":    "ok",
		"service":   h.service,
		"database":  dbStatus,
		"timestamp": time.Now().UTC(),
	})
}
