// controllers/workflow.go
package controllers

import (
	"errors"
	"net/http"
	"strconv"

	"publication-portal-api/config"
	"publication-portal-api/models"
	"publication-portal-api/services"

	"github.com/gin-gonic/gin"
)

// loadActor resolves the authenticated user into a workflow actor. A user
// with no committee position and no officer role gets (zero, false).
func loadActor(c *gin.Context) (services.Actor, bool) {
	userID, exists := c.Get("userID")
	if !exists {
		return services.Actor{}, false
	}

	var user models.User
	if err := config.DB.
		Preload("Roles").
		Preload("Positions").
		Where("user_id = ?", userID).
		First(&user).Error; err != nil {
		return services.Actor{}, false
	}

	return services.ResolveActor(&user)
}

// isOfficer reports whether the authenticated user holds the officer role.
func isOfficer(c *gin.Context) bool {
	userID, exists := c.Get("userID")
	if !exists {
		return false
	}

	var count int64
	err := config.DB.Table("user_roles").
		Joins("JOIN roles ON roles.role_id = user_roles.role_id").
		Where("user_roles.user_id = ? AND roles.role = ?", userID, models.RoleOfficer).
		Count(&count).Error
	return err == nil && count > 0
}

type workflowActionReq struct {
	Action     string `json:"action" binding:"required"`
	Comment    string `json:"comment"`
	LinkURL    string `json:"link_url"`
	AssigneeID *int   `json:"assignee_id"`
}

// PostWorkflowAction applies one committee action to a submission. The
// allowed actions depend on the caller's resolved role and the current
// committee status; the workflow service owns that table.
func PostWorkflowAction(c *gin.Context) {
	sid, err := strconv.Atoi(c.Param("id"))
	if err != nil || sid <= 0 {
		c.JSON(http.StatusBadRequest, gin.H{"error": "invalid submission id"})
		return
	}

	actor, ok := loadActor(c)
	if !ok {
		c.JSON(http.StatusForbidden, gin.H{"error": "no workflow role"})
		return
	}

	var req workflowActionReq
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "Invalid request data"})
		return
	}

	svc := services.NewWorkflowService(config.DB,
		services.NewNotifier(config.DB),
		services.NewHTTPDocumentConverter())

	result, err := svc.Apply(c.Request.Context(), sid, actor, services.WorkflowInput{
		Action:     req.Action,
		Comment:    req.Comment,
		LinkURL:    req.LinkURL,
		AssigneeID: req.AssigneeID,
		ClientIP:   c.ClientIP(),
	})
	if err != nil {
		var convErr *services.ConversionError
		switch {
		case errors.As(err, &convErr):
			c.JSON(convErr.Status, gin.H{"error": convErr.Message})
		case errors.Is(err, services.ErrSubmissionNotFound):
			c.JSON(http.StatusNotFound, gin.H{"error": err.Error()})
		case errors.Is(err, services.ErrUnknownAction),
			errors.Is(err, services.ErrLinkRequired):
			c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		case errors.Is(err, services.ErrActionNotAllowed):
			c.JSON(http.StatusForbidden, gin.H{"error": err.Error()})
		case errors.Is(err, services.ErrSubmissionWithdrawn):
			c.JSON(http.StatusConflict, gin.H{"error": err.Error()})
		case errors.Is(err, services.ErrWorkflowBusy):
			c.JSON(http.StatusConflict, gin.H{"error": err.Error()})
		default:
			c.JSON(http.StatusInternalServerError, gin.H{"error": "Failed to apply workflow action"})
		}
		return
	}

	resp := gin.H{"success": true}
	if result.GoogleDocURL != "" {
		resp["google_doc_url"] = result.GoogleDocURL
	} else {
		resp["new_status"] = result.NewStatus
		if result.AuthorStatus != "" {
			resp["status"] = result.AuthorStatus
		}
	}
	c.JSON(http.StatusOK, resp)
}
