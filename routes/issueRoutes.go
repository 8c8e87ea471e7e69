package routes

import (
	"github.com/gin-gonic/gin"

	"github.com/Vasanth69-code/civiczen/controllers"
	"github.com/Vasanth69-code/civiczen/middlewares"
)

// IssueRoutes sets up the issue routes
func IssueRoutes(r *gin.Engine, issue *controllers.IssueController) {
	group := r.Group("/api/issue")
	{
		group.POST("/create", middlewares.AuthMiddleware(), middlewares.IssueRateLimiter(5), issue.Create)
		group.GET("", issue.List)
		group.GET("/recent", issue.Recent)
		group.GET("/analytics", middlewares.AuthMiddleware(), issue.Analytics)
		group.GET("/:id", issue.Get)
		group.PUT("/:id", middlewares.AuthMiddleware(), middlewares.AdminMiddleware(), issue.Update)
		group.PATCH("/:id/status", middlewares.AuthMiddleware(), middlewares.AdminMiddleware(), issue.SetStatus)
	}
}
