package main

import (
	"context"
	"log"
	"net/http"
	"os"
	"time"

	"github.com/gin-contrib/cors"
	"github.com/gin-gonic/gin"
	"github.com/joho/godotenv"

	"github.com/Vasanth69-code/civiczen/ai"
	"github.com/Vasanth69-code/civiczen/config"
	"github.com/Vasanth69-code/civiczen/controllers"
	"github.com/Vasanth69-code/civiczen/realtime"
	"github.com/Vasanth69-code/civiczen/routes"
	"github.com/Vasanth69-code/civiczen/state"
	"github.com/Vasanth69-code/civiczen/store"
)

func main() {
	if err := godotenv.Load(); err != nil {
		log.Println("No .env file found")
	}

	db := config.ConnectDB()
	if db == nil {
		log.Fatal("Failed to connect to MongoDB")
	}
	log.Println("MongoDB connection established successfully!")

	if os.Getenv("REDIS_ADDRESS") != "" {
		config.ConnectRedis()
	} else {
		log.Println("REDIS_ADDRESS not set, issue rate limiting disabled")
	}

	st := store.NewMongo(db)

	hub := realtime.NewHub()
	go hub.Run()

	issues := state.NewIssues(st, hub, nil)
	users := state.NewUsers(st, hub, nil)

	ctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	if _, err := issues.LoadAll(ctx); err != nil {
		log.Println("Initial issue load failed:", err)
	}
	if _, err := users.LoadRoster(ctx); err != nil {
		log.Println("Initial roster load failed:", err)
	}
	cancel()

	// Live sync is preferred; polling through LoadAll is the fallback when
	// change streams are unavailable (standalone MongoDB)
	unsubscribe, err := issues.Subscribe(context.Background())
	if err != nil {
		log.Println("Change stream unavailable, falling back to fetch-on-demand:", err)
	} else {
		defer unsubscribe()
	}

	var classifier ai.Classifier
	if apiKey := os.Getenv("GEMINI_API_KEY"); apiKey != "" {
		classifier, err = ai.NewGemini(context.Background(), apiKey, os.Getenv("GEMINI_MODEL"))
		if err != nil {
			log.Println("Classifier unavailable:", err)
			classifier = nil
		}
	} else {
		log.Println("GEMINI_API_KEY not set, new reports stay in Pending Assignment")
	}

	r := gin.Default()

	corsConfig := cors.DefaultConfig()
	if origin := os.Getenv("FRONTEND_ORIGIN"); origin != "" {
		corsConfig.AllowOrigins = []string{origin}
	} else {
		corsConfig.AllowAllOrigins = true
	}
	corsConfig.AllowCredentials = !corsConfig.AllowAllOrigins
	r.Use(cors.New(corsConfig))

	authController := controllers.NewAuthController(st, users)
	issueController := controllers.NewIssueController(issues, users, classifier, hub)
	userController := controllers.NewUserController(users, st)

	routes.AuthRoutes(r, authController)
	routes.IssueRoutes(r, issueController)
	routes.UserRoutes(r, userController)

	r.GET("/ws", hub.ServeWS)

	r.GET("/ping", func(c *gin.Context) {
		c.JSON(http.StatusOK, gin.H{"message": "pong"})
	})

	port := os.Getenv("PORT")
	if port == "" {
		port = "8080"
	}

	if err := r.Run(":" + port); err != nil {
		log.Fatalf("Failed to start server: %v", err)
	}
}
