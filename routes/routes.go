package routes

import (
	"publication-portal-api/controllers"
	"publication-portal-api/middleware"

	"github.com/gin-gonic/gin"
)

func SetupRoutes(router *gin.Engine) {
	// API v1 group
	v1 := router.Group("/api/v1")
	{
		// Public routes
		public := v1.Group("")
		{
			// Authentication
			public.POST("/login", controllers.Login)

			// Health check
			public.GET("/health", func(c *gin.Context) {
				c.JSON(200, gin.H{
					"status":  "ok",
					"message": "Publication Portal API is running",
				})
			})

			// Cron entry point, guarded by a shared token instead of a session
			public.POST("/reminders/scan/:kind", controllers.ScanReminders)
		}

		// Protected routes (require authentication)
		protected := v1.Group("")
		protected.Use(middleware.AuthMiddleware())
		{
			// User profile
			protected.GET("/profile", controllers.GetProfile)
			protected.PUT("/change-password", controllers.ChangePassword)

			// Submissions
			submissions := protected.Group("/submissions")
			{
				submissions.POST("", controllers.CreateSubmission)
				submissions.GET("", controllers.GetMySubmissions)
				submissions.GET("/review", controllers.GetReviewQueue)
				submissions.GET("/:id", controllers.GetSubmission)
				submissions.POST("/:id/withdraw", controllers.WithdrawSubmission)

				// Committee workflow; role gating happens inside the
				// workflow service per the caller's resolved role
				submissions.POST("/:id/workflow-action", controllers.PostWorkflowAction)
				submissions.GET("/:id/audit", controllers.GetSubmissionAudit)
			}

			// In-app notifications
			notifications := protected.Group("/notifications")
			{
				notifications.GET("", controllers.GetMyNotifications)
				notifications.PUT("/:id/read", controllers.MarkNotificationRead)
				notifications.PUT("/read-all", controllers.MarkAllNotificationsRead)
			}

			// Announcements: everyone reads, officers manage
			announcements := protected.Group("/announcements")
			{
				announcements.GET("", controllers.GetAnnouncements)
				announcements.POST("", middleware.RequireOfficer(), controllers.CreateAnnouncement)
				announcements.PUT("/:id", middleware.RequireOfficer(), controllers.UpdateAnnouncement)
				announcements.DELETE("/:id", middleware.RequireOfficer(), controllers.DeleteAnnouncement)
			}

			// Officer-only surfaces
			officer := protected.Group("")
			officer.Use(middleware.RequireOfficer())
			{
				tasks := officer.Group("/tasks")
				{
					tasks.GET("", controllers.GetTasks)
					tasks.POST("", controllers.CreateTask)
					tasks.PUT("/:id", controllers.UpdateTask)
					tasks.DELETE("/:id", controllers.DeleteTask)
				}

				meetings := officer.Group("/meetings")
				{
					meetings.GET("", controllers.GetMeetingProposals)
					meetings.POST("", controllers.CreateMeetingProposal)
					meetings.POST("/:id/respond", controllers.RespondToMeeting)
					meetings.POST("/:id/finalize", controllers.FinalizeMeetingProposal)
				}
			}
		}
	}
}
