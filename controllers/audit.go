// controllers/audit.go
package controllers

import (
	"net/http"
	"strconv"

	"publication-portal-api/config"
	"publication-portal-api/models"

	"github.com/gin-gonic/gin"
)

// GetSubmissionAudit returns the full audit trail for a submission in
// chronological order. The trail deliberately has no foreign key on the
// submission, so it keeps answering even after the submission row is gone.
func GetSubmissionAudit(c *gin.Context) {
	sid, err := strconv.Atoi(c.Param("id"))
	if err != nil || sid <= 0 {
		c.JSON(http.StatusBadRequest, gin.H{"error": "invalid submission id"})
		return
	}

	if _, ok := loadActor(c); !ok {
		c.JSON(http.StatusForbidden, gin.H{"error": "no workflow role"})
		return
	}

	var entries []models.AuditLogEntry
	if err := config.DB.
		Where("submission_id = ?", sid).
		Order("created_at ASC, audit_id ASC").
		Find(&entries).Error; err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{"error": "Failed to fetch audit trail"})
		return
	}

	c.JSON(http.StatusOK, gin.H{
		"audit": entries,
		"total": len(entries),
	})
}
