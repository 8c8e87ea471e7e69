package controllers

import (
	"context"
	"errors"
	"log"
	"net/http"
	"sort"
	"strconv"
	"strings"
	"time"

	"github.com/gin-gonic/gin"

	"github.com/Vasanth69-code/civiczen/ai"
	"github.com/Vasanth69-code/civiczen/models"
	"github.com/Vasanth69-code/civiczen/realtime"
	"github.com/Vasanth69-code/civiczen/state"
	"github.com/Vasanth69-code/civiczen/store"
)

// Points awarded through the gamification layer
const (
	pointsForReport     = 10
	pointsForResolution = 50
)

type IssueController struct {
	issues     *state.Issues
	users      *state.Users
	classifier ai.Classifier
	hub        *realtime.Hub
}

// NewIssueController wires the handlers to the containers. classifier may be
// nil, in which case new reports stay in "Pending Assignment" until triaged.
func NewIssueController(issues *state.Issues, users *state.Users, classifier ai.Classifier, hub *realtime.Hub) *IssueController {
	return &IssueController{issues: issues, users: users, classifier: classifier, hub: hub}
}

// Create handles the creation of a new issue
func (ic *IssueController) Create(c *gin.Context) {
	userID, exists := c.Get("user_id")
	if !exists {
		c.JSON(http.StatusUnauthorized, gin.H{"error": "User not authenticated"})
		return
	}

	var input struct {
		Title       string  `json:"title" binding:"required,max=200"`
		Description string  `json:"description" binding:"required,max=1000"`
		Category    string  `json:"category,omitempty"`
		Address     string  `json:"address" binding:"required,max=200"`
		Latitude    float64 `json:"latitude" binding:"required"`
		Longitude   float64 `json:"longitude" binding:"required"`
		ImageURL    *string `json:"imageUrl,omitempty"`
	}

	if err := c.ShouldBindJSON(&input); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}

	// Snapshot the reporter as they appear now; the snapshot is permanent
	reporter := ic.users.ResolveCurrentUser(state.IdentityHint{ID: userID.(string)})
	draft := state.IssueDraft{
		Title:       input.Title,
		Description: input.Description,
		Category:    input.Category,
		Address:     input.Address,
		Location:    models.GeoPoint{Latitude: input.Latitude, Longitude: input.Longitude},
		ImageURL:    input.ImageURL,
		Reporter: models.Reporter{
			ID:        reporter.ID,
			Name:      reporter.Name,
			AvatarURL: reporter.AvatarURL,
		},
	}

	ctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()

	id, err := ic.issues.Create(ctx, draft)
	if err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{"error": "Failed to create issue"})
		return
	}

	if err := ic.users.AwardPoints(ctx, reporter.ID, pointsForReport); err != nil {
		log.Println("Error awarding report points:", err)
	}

	issue, _ := ic.issues.Get(id)
	ic.hub.Broadcast("issue-created", issue)
	ic.hub.Broadcast("leaderboard-update", ic.users.Roster())

	if ic.classifier != nil {
		go ic.classify(id, draft)
	}

	c.JSON(http.StatusCreated, issue)
}

// classify runs the AI routing step and merges its late-arriving result into
// the already-created issue. Failures are non-fatal: the issue stays in
// "Pending Assignment" until manually triaged.
func (ic *IssueController) classify(id string, draft state.IssueDraft) {
	ctx, cancel := context.WithTimeout(context.Background(), 60*time.Second)
	defer cancel()

	result, err := ic.classifier.Classify(ctx, ai.Request{
		Description: draft.Description,
		Address:     draft.Address,
		Location:    draft.Location,
	})
	if err != nil {
		log.Println("Classification failed:", err)
		return
	}

	err = ic.issues.Update(ctx, id, state.IssueUpdate{
		Category:   &result.Category,
		Department: &result.Department,
		Priority:   &result.Priority,
	})
	if err != nil {
		log.Println("Error applying classification:", err)
		return
	}

	if issue, ok := ic.issues.Get(id); ok {
		ic.hub.Broadcast("issue-updated", issue)
	}
}

// List handles retrieving all issues with filtering, pagination and sorting
func (ic *IssueController) List(c *gin.Context) {
	category := c.Query("category")
	status := c.Query("status")
	department := c.Query("department")
	search := strings.ToLower(c.Query("search"))
	sortOrder := c.DefaultQuery("sort", "newest")
	page, _ := strconv.Atoi(c.DefaultQuery("page", "1"))
	limit, _ := strconv.Atoi(c.DefaultQuery("limit", "10"))

	if page < 1 {
		page = 1
	}
	if limit < 1 || limit > 100 {
		limit = 10
	}

	issues := ic.issues.List()

	filtered := make([]models.Issue, 0, len(issues))
	for _, issue := range issues {
		if category != "" && category != "all" && issue.Category != category {
			continue
		}
		if status != "" && status != "all" && string(issue.Status) != status {
			continue
		}
		if department != "" && department != "all" && issue.Department != department {
			continue
		}
		if search != "" &&
			!strings.Contains(strings.ToLower(issue.Title), search) &&
			!strings.Contains(strings.ToLower(issue.Description), search) {
			continue
		}
		filtered = append(filtered, issue)
	}

	if sortOrder == "oldest" {
		for i, j := 0, len(filtered)-1; i < j; i, j = i+1, j-1 {
			filtered[i], filtered[j] = filtered[j], filtered[i]
		}
	}

	totalCount := len(filtered)
	totalPages := (totalCount + limit - 1) / limit
	start := (page - 1) * limit
	if start > totalCount {
		start = totalCount
	}
	end := start + limit
	if end > totalCount {
		end = totalCount
	}

	c.JSON(http.StatusOK, gin.H{
		"issues":      filtered[start:end],
		"totalIssues": totalCount,
		"totalPages":  totalPages,
		"currentPage": page,
	})
}

// Get retrieves an issue by its ID
func (ic *IssueController) Get(c *gin.Context) {
	id := c.Param("id")

	issue, ok := ic.issues.Get(id)
	if !ok {
		c.JSON(http.StatusNotFound, gin.H{"error": "Issue not found"})
		return
	}

	c.JSON(http.StatusOK, issue)
}

// Update allows administrators to edit an issue's triage fields
func (ic *IssueController) Update(c *gin.Context) {
	id := c.Param("id")

	var input struct {
		Title       *string `json:"title,omitempty"`
		Description *string `json:"description,omitempty"`
		Category    *string `json:"category,omitempty"`
		Priority    *string `json:"priority,omitempty"`
		Department  *string `json:"department,omitempty"`
		Address     *string `json:"address,omitempty"`
		ImageURL    *string `json:"imageUrl,omitempty"`
		Status      *string `json:"status,omitempty"`
	}

	if err := c.ShouldBindJSON(&input); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}

	update := state.IssueUpdate{
		Title:       input.Title,
		Description: input.Description,
		Category:    input.Category,
		Department:  input.Department,
		Address:     input.Address,
		ImageURL:    input.ImageURL,
	}

	if input.Priority != nil {
		if !models.ValidPriority(*input.Priority) {
			c.JSON(http.StatusBadRequest, gin.H{"error": "Invalid priority"})
			return
		}
		priority := models.IssuePriority(*input.Priority)
		update.Priority = &priority
	}

	if input.Status != nil {
		if !models.ValidStatus(*input.Status) {
			c.JSON(http.StatusBadRequest, gin.H{"error": "Invalid status"})
			return
		}
		status := models.IssueStatus(*input.Status)
		update.Status = &status
	}

	ctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()

	wasResolved := false
	if previous, ok := ic.issues.Get(id); ok {
		wasResolved = previous.Status == models.Resolved
	}

	if err := ic.issues.Update(ctx, id, update); err != nil {
		ic.respondUpdateError(c, err)
		return
	}

	if issue, ok := ic.issues.Get(id); ok {
		ic.hub.Broadcast("issue-updated", issue)
		if update.Status != nil && *update.Status == models.Resolved && !wasResolved {
			ic.rewardResolution(ctx, issue)
		}
	}

	c.JSON(http.StatusOK, gin.H{"message": "Issue updated successfully"})
}

// SetStatus moves an issue through the triage workflow
func (ic *IssueController) SetStatus(c *gin.Context) {
	id := c.Param("id")

	var input struct {
		Status string `json:"status" binding:"required"`
	}

	if err := c.ShouldBindJSON(&input); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}
	if !models.ValidStatus(input.Status) {
		c.JSON(http.StatusBadRequest, gin.H{"error": "Invalid status"})
		return
	}
	status := models.IssueStatus(input.Status)

	ctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()

	wasResolved := false
	if previous, ok := ic.issues.Get(id); ok {
		wasResolved = previous.Status == models.Resolved
	}

	if err := ic.issues.SetStatus(ctx, id, status); err != nil {
		ic.respondUpdateError(c, err)
		return
	}

	if issue, ok := ic.issues.Get(id); ok {
		ic.hub.Broadcast("issue-updated", issue)
		if status == models.Resolved && !wasResolved {
			ic.rewardResolution(ctx, issue)
		}
	}

	c.JSON(http.StatusOK, gin.H{"message": "Status updated successfully", "status": status})
}

func (ic *IssueController) rewardResolution(ctx context.Context, issue models.Issue) {
	if issue.Reporter.ID == "" {
		return
	}
	if err := ic.users.AwardPoints(ctx, issue.Reporter.ID, pointsForResolution); err != nil {
		log.Println("Error awarding resolution points:", err)
		return
	}
	ic.hub.Broadcast("leaderboard-update", ic.users.Roster())
}

func (ic *IssueController) respondUpdateError(c *gin.Context, err error) {
	switch {
	case errors.Is(err, store.ErrNotFound):
		c.JSON(http.StatusNotFound, gin.H{"error": "Could not find the issue to update"})
	case errors.Is(err, state.ErrTransitionNotAllowed):
		c.JSON(http.StatusConflict, gin.H{"error": "Status transition not allowed"})
	default:
		c.JSON(http.StatusInternalServerError, gin.H{"error": "Failed to update issue"})
	}
}

// Analytics returns analytical data about issues
func (ic *IssueController) Analytics(c *gin.Context) {
	issues := ic.issues.List()

	categoryCounts := map[string]int{}
	statusCounts := map[string]int{}
	departmentCounts := map[string]int{}
	openIssues := 0

	for _, issue := range issues {
		category := issue.Category
		if category == "" {
			category = "Other"
		}
		categoryCounts[category]++
		statusCounts[string(issue.Status)]++
		departmentCounts[issue.Department]++
		if issue.Status == models.Pending || issue.Status == models.InProgress {
			openIssues++
		}
	}

	issuesByCategory := make([]gin.H, 0, len(categoryCounts))
	for name, value := range categoryCounts {
		issuesByCategory = append(issuesByCategory, gin.H{"name": name, "value": value})
	}
	sort.Slice(issuesByCategory, func(i, j int) bool {
		return issuesByCategory[i]["value"].(int) > issuesByCategory[j]["value"].(int)
	})

	issuesByDepartment := make([]gin.H, 0, len(departmentCounts))
	for name, value := range departmentCounts {
		issuesByDepartment = append(issuesByDepartment, gin.H{"name": name, "value": value})
	}
	sort.Slice(issuesByDepartment, func(i, j int) bool {
		return issuesByDepartment[i]["value"].(int) > issuesByDepartment[j]["value"].(int)
	})

	// Reports per day over the last week
	var last7Days []gin.H
	for i := 6; i >= 0; i-- {
		date := time.Now().AddDate(0, 0, -i)
		date = time.Date(date.Year(), date.Month(), date.Day(), 0, 0, 0, 0, date.Location())
		nextDate := date.AddDate(0, 0, 1)

		count := 0
		for _, issue := range issues {
			if !issue.CreatedAt.Before(date) && issue.CreatedAt.Before(nextDate) {
				count++
			}
		}

		last7Days = append(last7Days, gin.H{
			"date":  date.Format("2006-01-02"),
			"count": count,
		})
	}

	roster := ic.users.Roster()
	if len(roster) > 5 {
		roster = roster[:5]
	}

	c.JSON(http.StatusOK, gin.H{
		"issuesByCategory":   issuesByCategory,
		"issuesByStatus":     statusCounts,
		"issuesByDepartment": issuesByDepartment,
		"last7Days":          last7Days,
		"topReporters":       roster,
		"totalIssues":        len(issues),
		"openIssues":         openIssues,
		"resolvedIssues":     statusCounts[string(models.Resolved)],
	})
}

// Recent returns the most recent geotagged issues for the map view
func (ic *IssueController) Recent(c *gin.Context) {
	const limit = 19

	type pin struct {
		ID        string    `json:"id"`
		Title     string    `json:"title"`
		Latitude  float64   `json:"latitude"`
		Longitude float64   `json:"longitude"`
		Address   string    `json:"address"`
		Category  string    `json:"category,omitempty"`
		Status    string    `json:"status"`
		CreatedAt time.Time `json:"createdAt,omitempty"`
	}

	var pins []pin
	for _, issue := range ic.issues.List() {
		if issue.Location.Latitude == 0 && issue.Location.Longitude == 0 {
			continue
		}
		pins = append(pins, pin{
			ID:        issue.ID,
			Title:     issue.Title,
			Latitude:  issue.Location.Latitude,
			Longitude: issue.Location.Longitude,
			Address:   issue.Address,
			Category:  issue.Category,
			Status:    string(issue.Status),
			CreatedAt: issue.CreatedAt,
		})
		if len(pins) == limit {
			break
		}
	}

	c.JSON(http.StatusOK, pins)
}
