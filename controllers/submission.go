// controllers/submission.go
package controllers

import (
	"net/http"
	"strconv"
	"strings"
	"time"

	"publication-portal-api/config"
	"publication-portal-api/models"
	"publication-portal-api/services"
	"publication-portal-api/utils"

	"github.com/gin-gonic/gin"
	"github.com/google/uuid"
	"gorm.io/gorm"
)

type createSubmissionReq struct {
	Title          string `json:"title" binding:"required"`
	SubmissionType string `json:"submission_type" binding:"required"`
	Genre          string `json:"genre"`
	Summary        string `json:"summary"`
	ContentWarning string `json:"content_warning"`
	FileReference  string `json:"file_reference" binding:"required"`
}

// CreateSubmission receives a new piece from an author. The committee
// status starts out null; only the workflow engine moves it from there.
func CreateSubmission(c *gin.Context) {
	userID, exists := c.Get("userID")
	if !exists {
		c.JSON(http.StatusUnauthorized, gin.H{"error": "unauthorized"})
		return
	}

	var req createSubmissionReq
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "Invalid request data"})
		return
	}

	subType := models.SubmissionType(strings.TrimSpace(req.SubmissionType))
	if subType != models.SubmissionTypeWriting && subType != models.SubmissionTypeVisual {
		c.JSON(http.StatusBadRequest, gin.H{"error": "submission_type must be 'writing' or 'visual'"})
		return
	}

	now := time.Now()
	sub := models.Submission{
		SubmissionNumber: "SUB-" + strings.ToUpper(uuid.NewString()[:8]),
		UserID:           userID.(int),
		Title:            utils.SanitizeInput(req.Title),
		SubmissionType:   subType,
		Genre:            utils.SanitizeInput(req.Genre),
		FileReference:    strings.TrimSpace(req.FileReference),
		Status:           models.StatusSubmitted,
		SubmittedAt:      now,
		CreatedAt:        now,
		UpdatedAt:        now,
	}
	if s := strings.TrimSpace(req.Summary); s != "" {
		sub.Summary = &s
	}
	if w := strings.TrimSpace(req.ContentWarning); w != "" {
		sub.ContentWarning = &w
	}

	if err := config.DB.Create(&sub).Error; err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{"error": "Failed to create submission"})
		return
	}

	// Advisory: tell the coordinator and editor-in-chief a piece arrived.
	go services.NewNotifier(config.DB).NotifyNewSubmission(&sub)

	c.JSON(http.StatusOK, gin.H{
		"success":    true,
		"submission": sub,
	})
}

// GetMySubmissions lists the authenticated author's submissions.
func GetMySubmissions(c *gin.Context) {
	userID, _ := c.Get("userID")

	var subs []models.Submission
	if err := config.DB.
		Where("user_id = ? AND deleted_at IS NULL", userID).
		Order("submitted_at DESC").
		Find(&subs).Error; err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{"error": "Failed to fetch submissions"})
		return
	}

	c.JSON(http.StatusOK, gin.H{
		"submissions": subs,
		"total":       len(subs),
	})
}

// GetSubmission returns one submission with its committee discussion.
// Authors see their own; committee members and officers see everything.
func GetSubmission(c *gin.Context) {
	sid, err := strconv.Atoi(c.Param("id"))
	if err != nil || sid <= 0 {
		c.JSON(http.StatusBadRequest, gin.H{"error": "invalid submission id"})
		return
	}
	userID, _ := c.Get("userID")

	var sub models.Submission
	if err := config.DB.
		Preload("User").
		Preload("Comments", func(db *gorm.DB) *gorm.DB {
			return db.Order("created_at ASC")
		}).
		Preload("Comments.Actor").
		Where("submission_id = ? AND deleted_at IS NULL", sid).
		First(&sub).Error; err != nil {
		c.JSON(http.StatusNotFound, gin.H{"error": "submission not found"})
		return
	}

	if sub.UserID != userID.(int) {
		if _, ok := loadActor(c); !ok {
			c.JSON(http.StatusForbidden, gin.H{"error": "forbidden"})
			return
		}
	}

	c.JSON(http.StatusOK, gin.H{"submission": sub})
}

// WithdrawSubmission is the author's terminal exit from the pipeline.
func WithdrawSubmission(c *gin.Context) {
	sid, err := strconv.Atoi(c.Param("id"))
	if err != nil || sid <= 0 {
		c.JSON(http.StatusBadRequest, gin.H{"error": "invalid submission id"})
		return
	}
	userID, _ := c.Get("userID")

	var sub models.Submission
	if err := config.DB.
		Where("submission_id = ? AND deleted_at IS NULL", sid).
		First(&sub).Error; err != nil {
		c.JSON(http.StatusNotFound, gin.H{"error": "submission not found"})
		return
	}
	if sub.UserID != userID.(int) {
		c.JSON(http.StatusForbidden, gin.H{"error": "only the author can withdraw a submission"})
		return
	}
	if sub.Status == models.StatusPublished || sub.Status == models.StatusWithdrawn {
		c.JSON(http.StatusBadRequest, gin.H{"error": "submission can no longer be withdrawn"})
		return
	}

	now := time.Now()
	prev := string(sub.CurrentCommitteeStatus())
	err = config.DB.Transaction(func(tx *gorm.DB) error {
		if err := tx.Model(&models.Submission{}).
			Where("submission_id = ?", sid).
			Updates(map[string]interface{}{
				"status":     models.StatusWithdrawn,
				"updated_at": now,
			}).Error; err != nil {
			return err
		}
		return tx.Create(&models.AuditLogEntry{
			ActorID:        userID.(int),
			SubmissionID:   sid,
			Action:         "author_withdraw",
			PreviousStatus: &prev,
			NewStatus:      &prev,
			IPAddress:      c.ClientIP(),
			CreatedAt:      now,
		}).Error
	})
	if err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{"error": "Failed to withdraw submission"})
		return
	}

	c.JSON(http.StatusOK, gin.H{"success": true, "status": models.StatusWithdrawn})
}

// GetReviewQueue lists submissions currently sitting in a committee state,
// optionally filtered to one state.
func GetReviewQueue(c *gin.Context) {
	if _, ok := loadActor(c); !ok {
		c.JSON(http.StatusForbidden, gin.H{"error": "no workflow role"})
		return
	}

	q := config.DB.Preload("User").
		Where("deleted_at IS NULL AND status <> ?", models.StatusWithdrawn)

	if state := strings.TrimSpace(c.Query("committee_status")); state != "" {
		q = q.Where("committee_status = ?", state)
	} else {
		states := make([]string, 0, len(models.ActiveCommitteeStatuses))
		for _, st := range models.ActiveCommitteeStatuses {
			states = append(states, string(st))
		}
		q = q.Where("(committee_status IN ? OR committee_status IS NULL)", states)
	}

	var subs []models.Submission
	if err := q.Order("submitted_at ASC").Find(&subs).Error; err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{"error": "Failed to fetch review queue"})
		return
	}

	c.JSON(http.StatusOK, gin.H{
		"submissions": subs,
		"total":       len(subs),
	})
}
