package routes

import (
	"github.com/gin-gonic/gin"

	"github.com/Vasanth69-code/civiczen/controllers"
	"github.com/Vasanth69-code/civiczen/middlewares"
)

// AuthRoutes sets up the authentication routes
func AuthRoutes(r *gin.Engine, auth *controllers.AuthController) {
	group := r.Group("/api/auth")
	{
		group.POST("/register", auth.Register)
		group.POST("/login", auth.Login)
		group.POST("/logout", auth.Logout)
		group.GET("/me", middlewares.AuthMiddleware(), auth.GetMe)
	}
}
