// controllers/reminder.go
package controllers

import (
	"net/http"
	"os"

	"publication-portal-api/config"
	"publication-portal-api/services"

	"github.com/gin-gonic/gin"
)

// ScanReminders triggers one reminder sweep. The route is meant for a
// cron caller and is guarded by a shared token instead of a user session.
func ScanReminders(c *gin.Context) {
	token := os.Getenv("CRON_TOKEN")
	if token == "" || c.Query("token") != token {
		c.JSON(http.StatusUnauthorized, gin.H{"error": "invalid cron token"})
		return
	}

	kind, ok := services.ParseReminderKind(c.Param("kind"))
	if !ok {
		c.JSON(http.StatusBadRequest, gin.H{"error": "unknown reminder kind"})
		return
	}

	svc := services.NewReminderService(config.DB, services.NewNotifier(config.DB))
	sent, err := svc.Scan(c.Request.Context(), kind)
	if err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{"error": "Reminder scan failed"})
		return
	}

	c.JSON(http.StatusOK, gin.H{
		"success": true,
		"kind":    kind,
		"sent":    sent,
	})
}
