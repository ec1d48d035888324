// controllers/task.go
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

type taskReq struct {
	Title       string  `json:"title"`
	Description *string `json:"description"`
	AssigneeID  *int    `json:"assignee_id"`
	DueDate     *string `json:"due_date"`
	Status      *string `json:"status"`
}

func parseDueDate(raw *string) (*time.Time, bool) {
	if raw == nil || strings.TrimSpace(*raw) == "" {
		return nil, true
	}
	if t, err := time.Parse(time.RFC3339, *raw); err == nil {
		return &t, true
	}
	if t, err := time.Parse("2006-01-02", *raw); err == nil {
		return &t, true
	}
	return nil, false
}

func validTaskStatus(s string) bool {
	switch s {
	case models.TaskStatusTodo, models.TaskStatusInProgress, models.TaskStatusCompleted:
		return true
	}
	return false
}

// CreateTask records a new officer work item. Assignee and due date are
// optional; unassigned and undated tasks are picked up by the stale-task
// reminder sweep instead of the overdue one.
func CreateTask(c *gin.Context) {
	userID, _ := c.Get("userID")

	var req taskReq
	if err := c.ShouldBindJSON(&req); err != nil || strings.TrimSpace(req.Title) == "" {
		c.JSON(http.StatusBadRequest, gin.H{"error": "title is required"})
		return
	}

	due, ok := parseDueDate(req.DueDate)
	if !ok {
		c.JSON(http.StatusBadRequest, gin.H{"error": "due_date must be RFC3339 or YYYY-MM-DD"})
		return
	}

	now := time.Now()
	task := models.OfficerTask{
		Title:      utils.SanitizeInput(req.Title),
		AssigneeID: req.AssigneeID,
		DueDate:    due,
		Status:     models.TaskStatusTodo,
		CreatedBy:  userID.(int),
		CreatedAt:  now,
		UpdatedAt:  now,
	}
	if req.Description != nil {
		d := utils.SanitizeInput(*req.Description)
		task.Description = &d
	}
	if req.Status != nil {
		if !validTaskStatus(*req.Status) {
			c.JSON(http.StatusBadRequest, gin.H{"error": "invalid task status"})
			return
		}
		task.Status = *req.Status
	}

	if err := config.DB.Create(&task).Error; err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{"error": "Failed to create task"})
		return
	}

	c.JSON(http.StatusOK, gin.H{"success": true, "task": task})
}

// GetTasks lists officer tasks, newest first, optionally filtered by
// status or assignee.
func GetTasks(c *gin.Context) {
	q := config.DB.Preload("Assignee").Preload("Creator")

	if status := c.Query("status"); status != "" {
		if !validTaskStatus(status) {
			c.JSON(http.StatusBadRequest, gin.H{"error": "invalid task status"})
			return
		}
		q = q.Where("status = ?", status)
	}
	if raw := c.Query("assignee_id"); raw != "" {
		aid, err := strconv.Atoi(raw)
		if err != nil {
			c.JSON(http.StatusBadRequest, gin.H{"error": "invalid assignee_id"})
			return
		}
		q = q.Where("assignee_id = ?", aid)
	}

	var tasks []models.OfficerTask
	if err := q.Order("created_at DESC").Find(&tasks).Error; err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{"error": "Failed to fetch tasks"})
		return
	}

	c.JSON(http.StatusOK, gin.H{"tasks": tasks, "total": len(tasks)})
}

// UpdateTask applies a partial update to one task.
func UpdateTask(c *gin.Context) {
	tid, err := strconv.Atoi(c.Param("id"))
	if err != nil || tid <= 0 {
		c.JSON(http.StatusBadRequest, gin.H{"error": "invalid task id"})
		return
	}

	var task models.OfficerTask
	if err := config.DB.Where("task_id = ?", tid).First(&task).Error; err != nil {
		c.JSON(http.StatusNotFound, gin.H{"error": "task not found"})
		return
	}

	var req taskReq
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "Invalid request data"})
		return
	}

	updates := map[string]interface{}{"updated_at": time.Now()}
	if strings.TrimSpace(req.Title) != "" {
		updates["title"] = utils.SanitizeInput(req.Title)
	}
	if req.Description != nil {
		updates["description"] = utils.SanitizeInput(*req.Description)
	}
	if req.AssigneeID != nil {
		updates["assignee_id"] = *req.AssigneeID
	}
	if req.DueDate != nil {
		due, ok := parseDueDate(req.DueDate)
		if !ok {
			c.JSON(http.StatusBadRequest, gin.H{"error": "due_date must be RFC3339 or YYYY-MM-DD"})
			return
		}
		updates["due_date"] = due
	}
	if req.Status != nil {
		if !validTaskStatus(*req.Status) {
			c.JSON(http.StatusBadRequest, gin.H{"error": "invalid task status"})
			return
		}
		updates["status"] = *req.Status
	}

	if err := config.DB.Model(&task).Updates(updates).Error; err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{"error": "Failed to update task"})
		return
	}

	config.DB.Where("task_id = ?", tid).First(&task)
	c.JSON(http.StatusOK, gin.H{"success": true, "task": task})
}

// DeleteTask removes a task outright. Tasks carry no audit requirement.
func DeleteTask(c *gin.Context) {
	tid, err := strconv.Atoi(c.Param("id"))
	if err != nil || tid <= 0 {
		c.JSON(http.StatusBadRequest, gin.H{"error": "invalid task id"})
		return
	}

	res := config.DB.Where("task_id = ?", tid).Delete(&models.OfficerTask{})
	if res.Error != nil {
		c.JSON(http.StatusInternalServerError, gin.H{"error": "Failed to delete task"})
		return
	}
	if res.RowsAffected == 0 {
		c.JSON(http.StatusNotFound, gin.H{"error": "task not found"})
		return
	}

	c.JSON(http.StatusOK, gin.H{"success": true})
}
