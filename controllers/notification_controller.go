package controllers

import (
	"net/http"
	"strconv"
	"time"

	"publication-portal-api/config"
	"publication-portal-api/models"

	"github.com/gin-gonic/gin"
)

// GetMyNotifications lists the caller's in-app notifications, newest
// first. unread_only=true restricts to unread ones.
func GetMyNotifications(c *gin.Context) {
	userID, _ := c.Get("userID")

	q := config.DB.Where("user_id = ?", userID)
	if c.Query("unread_only") == "true" {
		q = q.Where("is_read = ?", false)
	}

	var notifications []models.Notification
	if err := q.Order("create_at DESC").Limit(200).Find(&notifications).Error; err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{"error": "Failed to fetch notifications"})
		return
	}

	var unread int64
	config.DB.Model(&models.Notification{}).
		Where("user_id = ? AND is_read = ?", userID, false).
		Count(&unread)

	c.JSON(http.StatusOK, gin.H{
		"notifications": notifications,
		"total":         len(notifications),
		"unread":        unread,
	})
}

// MarkNotificationRead flags one of the caller's notifications as read.
func MarkNotificationRead(c *gin.Context) {
	nid, err := strconv.Atoi(c.Param("id"))
	if err != nil || nid <= 0 {
		c.JSON(http.StatusBadRequest, gin.H{"error": "invalid notification id"})
		return
	}
	userID, _ := c.Get("userID")

	now := time.Now()
	res := config.DB.Model(&models.Notification{}).
		Where("notification_id = ? AND user_id = ?", nid, userID).
		Updates(map[string]interface{}{"is_read": true, "update_at": now})
	if res.Error != nil {
		c.JSON(http.StatusInternalServerError, gin.H{"error": "Failed to update notification"})
		return
	}
	if res.RowsAffected == 0 {
		c.JSON(http.StatusNotFound, gin.H{"error": "notification not found"})
		return
	}

	c.JSON(http.StatusOK, gin.H{"success": true})
}

// MarkAllNotificationsRead flags every unread notification of the caller.
func MarkAllNotificationsRead(c *gin.Context) {
	userID, _ := c.Get("userID")

	now := time.Now()
	res := config.DB.Model(&models.Notification{}).
		Where("user_id = ? AND is_read = ?", userID, false).
		Updates(map[string]interface{}{"is_read": true, "update_at": now})
	if res.Error != nil {
		c.JSON(http.StatusInternalServerError, gin.H{"error": "Failed to update notifications"})
		return
	}

	c.JSON(http.StatusOK, gin.H{"success": true, "updated": res.RowsAffected})
}
