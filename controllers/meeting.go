// controllers/meeting.go
package controllers

import (
	"net/http"
	"strconv"
	"strings"
	"time"

	"publication-portal-api/config"
	"publication-portal-api/models"
	"publication-portal-api/utils"

	"github.com/gin-gonic/gin"
	"gorm.io/gorm"
	"gorm.io/gorm/clause"
)

type meetingReq struct {
	Title       string  `json:"title"`
	Description *string `json:"description"`
	ProposedFor *string `json:"proposed_for"`
}

// CreateMeetingProposal opens a new availability poll for the officers.
func CreateMeetingProposal(c *gin.Context) {
	userID, _ := c.Get("userID")

	var req meetingReq
	if err := c.ShouldBindJSON(&req); err != nil || strings.TrimSpace(req.Title) == "" {
		c.JSON(http.StatusBadRequest, gin.H{"error": "title is required"})
		return
	}

	proposedFor, ok := parseDueDate(req.ProposedFor)
	if !ok {
		c.JSON(http.StatusBadRequest, gin.H{"error": "proposed_for must be RFC3339 or YYYY-MM-DD"})
		return
	}

	now := time.Now()
	prop := models.MeetingProposal{
		Title:       utils.SanitizeInput(req.Title),
		ProposedFor: proposedFor,
		CreatedBy:   userID.(int),
		CreatedAt:   now,
		UpdatedAt:   now,
	}
	if req.Description != nil {
		d := utils.SanitizeInput(*req.Description)
		prop.Description = &d
	}

	if err := config.DB.Create(&prop).Error; err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{"error": "Failed to create meeting proposal"})
		return
	}

	c.JSON(http.StatusOK, gin.H{"success": true, "proposal": prop})
}

// GetMeetingProposals lists proposals with their recorded responses,
// open polls first.
func GetMeetingProposals(c *gin.Context) {
	q := config.DB.Preload("Creator").
		Preload("Responses", func(db *gorm.DB) *gorm.DB {
			return db.Order("created_at ASC")
		}).
		Preload("Responses.User")

	if c.Query("open") == "true" {
		q = q.Where("finalized = ?", false)
	}

	var props []models.MeetingProposal
	if err := q.Order("finalized ASC, created_at DESC").Find(&props).Error; err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{"error": "Failed to fetch meeting proposals"})
		return
	}

	c.JSON(http.StatusOK, gin.H{"proposals": props, "total": len(props)})
}

type availabilityReq struct {
	Response string  `json:"response" binding:"required"`
	Note     *string `json:"note"`
}

// RespondToMeeting records or replaces the caller's availability for a
// proposal. One row per officer per proposal; a second call overwrites.
func RespondToMeeting(c *gin.Context) {
	pid, err := strconv.Atoi(c.Param("id"))
	if err != nil || pid <= 0 {
		c.JSON(http.StatusBadRequest, gin.H{"error": "invalid proposal id"})
		return
	}
	userID, _ := c.Get("userID")

	var req availabilityReq
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "Invalid request data"})
		return
	}
	switch req.Response {
	case "available", "unavailable", "maybe":
	default:
		c.JSON(http.StatusBadRequest, gin.H{"error": "response must be available, unavailable or maybe"})
		return
	}

	var prop models.MeetingProposal
	if err := config.DB.Where("proposal_id = ?", pid).First(&prop).Error; err != nil {
		c.JSON(http.StatusNotFound, gin.H{"error": "meeting proposal not found"})
		return
	}
	if prop.Finalized {
		c.JSON(http.StatusBadRequest, gin.H{"error": "proposal is already finalized"})
		return
	}

	avail := models.MeetingAvailability{
		ProposalID: pid,
		UserID:     userID.(int),
		Response:   req.Response,
		CreatedAt:  time.Now(),
	}
	if req.Note != nil {
		n := utils.SanitizeInput(*req.Note)
		avail.Note = &n
	}

	err = config.DB.Clauses(clause.OnConflict{
		Columns:   []clause.Column{{Name: "proposal_id"}, {Name: "user_id"}},
		DoUpdates: clause.AssignmentColumns([]string{"response", "note", "created_at"}),
	}).Create(&avail).Error
	if err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{"error": "Failed to record availability"})
		return
	}

	c.JSON(http.StatusOK, gin.H{"success": true, "availability": avail})
}

// FinalizeMeetingProposal closes the poll. Finalized proposals stop
// appearing in the low-response reminder sweep.
func FinalizeMeetingProposal(c *gin.Context) {
	pid, err := strconv.Atoi(c.Param("id"))
	if err != nil || pid <= 0 {
		c.JSON(http.StatusBadRequest, gin.H{"error": "invalid proposal id"})
		return
	}

	var prop models.MeetingProposal
	if err := config.DB.Where("proposal_id = ?", pid).First(&prop).Error; err != nil {
		c.JSON(http.StatusNotFound, gin.H{"error": "meeting proposal not found"})
		return
	}
	if prop.Finalized {
		c.JSON(http.StatusBadRequest, gin.H{"error": "proposal is already finalized"})
		return
	}

	now := time.Now()
	if err := config.DB.Model(&prop).Updates(map[string]interface{}{
		"finalized":    true,
		"finalized_at": now,
		"updated_at":   now,
	}).Error; err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{"error": "Failed to finalize proposal"})
		return
	}

	c.JSON(http.StatusOK, gin.H{"success": true})
}
