package routes

import (
	"github.com/gin-gonic/gin"

	"github.com/Vasanth69-code/civiczen/controllers"
	"github.com/Vasanth69-code/civiczen/middlewares"
)

// UserRoutes sets up the user routes
func UserRoutes(r *gin.Engine, user *controllers.UserController) {
	group := r.Group("/api/user")
	{
		group.GET("/leaderboard", user.Leaderboard)
		group.PUT("/profile", middlewares.AuthMiddleware(), user.UpdateProfile)
	}
}
