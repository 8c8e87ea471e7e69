package ai

import (
	"testing"

	"github.com/stretchr/testify/assert"

	"github.com/Vasanth69-code/civiczen/models"
)

func TestRouteCategoryCoversAllCategories(t *testing.T) {
	for _, category := range models.Categories {
		department, priority := RouteCategory(category)
		assert.NotEmpty(t, department, "category %q has no department", category)
		assert.True(t, models.ValidPriority(string(priority)), "category %q has no priority", category)
	}
}

func TestRouteCategoryKnownMappings(t *testing.T) {
	department, priority := RouteCategory("Pothole")
	assert.Equal(t, "Public Works", department)
	assert.Equal(t, models.High, priority)

	department, _ = RouteCategory("Sewage Overflow")
	assert.Equal(t, "Water & Sewage", department)
}

func TestRouteCategoryUnknownFallsBackToOther(t *testing.T) {
	department, priority := RouteCategory("Alien Landing")
	otherDepartment, otherPriority := RouteCategory("Other")
	assert.Equal(t, otherDepartment, department)
	assert.Equal(t, otherPriority, priority)
}

func TestNormalize(t *testing.T) {
	t.Run("fills missing department and priority from the table", func(t *testing.T) {
		normalized := Normalize(Classification{Category: "Pothole"})
		assert.Equal(t, "Public Works", normalized.Department)
		assert.Equal(t, models.High, normalized.Priority)
	})

	t.Run("keeps what the model decided", func(t *testing.T) {
		normalized := Normalize(Classification{
			Category:   "Graffiti",
			Department: "Urban Art Board",
			Priority:   models.Medium,
		})
		assert.Equal(t, "Urban Art Board", normalized.Department)
		assert.Equal(t, models.Medium, normalized.Priority)
	})

	t.Run("clamps unknown categories to Other", func(t *testing.T) {
		normalized := Normalize(Classification{Category: "Meteor Strike"})
		assert.Equal(t, "Other", normalized.Category)
		assert.Equal(t, "General Administration", normalized.Department)
	})
}
