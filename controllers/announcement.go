// controllers/announcement.go
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
)

// GetAnnouncements lists announcements. Non-officers only ever see the
// currently visible ones; officers can pass all=true to manage the rest.
func GetAnnouncements(c *gin.Context) {
	query := config.DB.Model(&models.Announcement{}).
		Preload("Creator").
		Where("delete_at IS NULL")

	if priority := c.Query("priority"); priority != "" {
		query = query.Where("priority = ?", priority)
	}

	showAll := c.Query("all") == "true" && isOfficer(c)

	query = query.
		Order("pinned_order IS NULL, pinned_order ASC").
		Order("COALESCE(published_at, update_at) DESC")

	var announcements []models.Announcement
	if err := query.Find(&announcements).Error; err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{"error": "Failed to fetch announcements"})
		return
	}

	if !showAll {
		now := time.Now()
		visible := announcements[:0]
		for i := range announcements {
			if announcements[i].IsVisible(now) {
				visible = append(visible, announcements[i])
			}
		}
		announcements = visible
	}

	c.JSON(http.StatusOK, gin.H{
		"announcements": announcements,
		"total":         len(announcements),
	})
}

type announcementReq struct {
	Title       string  `json:"title"`
	Body        string  `json:"body"`
	Priority    *string `json:"priority"`
	Status      *string `json:"status"`
	PinnedOrder *int    `json:"pinned_order"`
	PublishedAt *string `json:"published_at"`
	ExpiredAt   *string `json:"expired_at"`
}

func validAnnouncementPriority(p string) bool {
	switch p {
	case "normal", "high", "urgent":
		return true
	}
	return false
}

// CreateAnnouncement publishes a new portal announcement.
func CreateAnnouncement(c *gin.Context) {
	userID, _ := c.Get("userID")

	var req announcementReq
	if err := c.ShouldBindJSON(&req); err != nil ||
		strings.TrimSpace(req.Title) == "" || strings.TrimSpace(req.Body) == "" {
		c.JSON(http.StatusBadRequest, gin.H{"error": "title and body are required"})
		return
	}

	now := time.Now()
	ann := models.Announcement{
		Title:       utils.SanitizeInput(req.Title),
		Body:        utils.SanitizeInput(req.Body),
		Priority:    "normal",
		Status:      "active",
		PinnedOrder: req.PinnedOrder,
		CreatedBy:   userID.(int),
		CreateAt:    now,
		UpdateAt:    now,
	}
	if req.Priority != nil {
		if !validAnnouncementPriority(*req.Priority) {
			c.JSON(http.StatusBadRequest, gin.H{"error": "priority must be normal, high or urgent"})
			return
		}
		ann.Priority = *req.Priority
	}
	if req.Status != nil {
		if *req.Status != "active" && *req.Status != "inactive" {
			c.JSON(http.StatusBadRequest, gin.H{"error": "status must be active or inactive"})
			return
		}
		ann.Status = *req.Status
	}
	var ok bool
	if ann.PublishedAt, ok = parseDueDate(req.PublishedAt); !ok {
		c.JSON(http.StatusBadRequest, gin.H{"error": "published_at must be RFC3339 or YYYY-MM-DD"})
		return
	}
	if ann.ExpiredAt, ok = parseDueDate(req.ExpiredAt); !ok {
		c.JSON(http.StatusBadRequest, gin.H{"error": "expired_at must be RFC3339 or YYYY-MM-DD"})
		return
	}

	if err := config.DB.Create(&ann).Error; err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{"error": "Failed to create announcement"})
		return
	}

	c.JSON(http.StatusOK, gin.H{"success": true, "announcement": ann})
}

// UpdateAnnouncement applies a partial update to one announcement.
func UpdateAnnouncement(c *gin.Context) {
	aid, err := strconv.Atoi(c.Param("id"))
	if err != nil || aid <= 0 {
		c.JSON(http.StatusBadRequest, gin.H{"error": "invalid announcement id"})
		return
	}

	var ann models.Announcement
	if err := config.DB.
		Where("announcement_id = ? AND delete_at IS NULL", aid).
		First(&ann).Error; err != nil {
		c.JSON(http.StatusNotFound, gin.H{"error": "announcement not found"})
		return
	}

	var req announcementReq
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "Invalid request data"})
		return
	}

	updates := map[string]interface{}{"update_at": time.Now()}
	if strings.TrimSpace(req.Title) != "" {
		updates["title"] = utils.SanitizeInput(req.Title)
	}
	if strings.TrimSpace(req.Body) != "" {
		updates["body"] = utils.SanitizeInput(req.Body)
	}
	if req.Priority != nil {
		if !validAnnouncementPriority(*req.Priority) {
			c.JSON(http.StatusBadRequest, gin.H{"error": "priority must be normal, high or urgent"})
			return
		}
		updates["priority"] = *req.Priority
	}
	if req.Status != nil {
		if *req.Status != "active" && *req.Status != "inactive" {
			c.JSON(http.StatusBadRequest, gin.H{"error": "status must be active or inactive"})
			return
		}
		updates["status"] = *req.Status
	}
	if req.PinnedOrder != nil {
		updates["pinned_order"] = *req.PinnedOrder
	}
	if req.PublishedAt != nil {
		t, ok := parseDueDate(req.PublishedAt)
		if !ok {
			c.JSON(http.StatusBadRequest, gin.H{"error": "published_at must be RFC3339 or YYYY-MM-DD"})
			return
		}
		updates["published_at"] = t
	}
	if req.ExpiredAt != nil {
		t, ok := parseDueDate(req.ExpiredAt)
		if !ok {
			c.JSON(http.StatusBadRequest, gin.H{"error": "expired_at must be RFC3339 or YYYY-MM-DD"})
			return
		}
		updates["expired_at"] = t
	}

	if err := config.DB.Model(&ann).Updates(updates).Error; err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{"error": "Failed to update announcement"})
		return
	}

	config.DB.Where("announcement_id = ?", aid).First(&ann)
	c.JSON(http.StatusOK, gin.H{"success": true, "announcement": ann})
}

// DeleteAnnouncement soft-deletes an announcement.
func DeleteAnnouncement(c *gin.Context) {
	aid, err := strconv.Atoi(c.Param("id"))
	if err != nil || aid <= 0 {
		c.JSON(http.StatusBadRequest, gin.H{"error": "invalid announcement id"})
		return
	}

	now := time.Now()
	res := config.DB.Model(&models.Announcement{}).
		Where("announcement_id = ? AND delete_at IS NULL", aid).
		Updates(map[string]interface{}{"delete_at": now, "update_at": now})
	if res.Error != nil {
		c.JSON(http.StatusInternalServerError, gin.H{"error": "Failed to delete announcement"})
		return
	}
	if res.RowsAffected == 0 {
		c.JSON(http.StatusNotFound, gin.H{"error": "announcement not found"})
		return
	}

	c.JSON(http.StatusOK, gin.H{"success": true})
}
