package ai

import (
	"github.com/Vasanth69-code/civiczen/models"
)

type route struct {
	department string
	priority   models.IssuePriority
}

// routes maps every known issue category to its municipal department and a
// default priority. The classifier may raise the priority; it never changes
// the department mapping.
var routes = map[string]route{
	"Pothole":                {"Public Works", models.High},
	"Garbage Overflow":       {"Sanitation", models.Medium},
	"Streetlight Outage":     {"Electrical", models.Medium},
	"Graffiti":               {"Public Works", models.Low},
	"Damaged Signage":        {"Traffic Management", models.Medium},
	"Electrical Line Damage": {"Electrical", models.High},
	"Sewage Overflow":        {"Water & Sewage", models.High},
	"Tree Damage":            {"Parks & Horticulture", models.Medium},
	"Other":                  {"General Administration", models.Low},
}

// RouteCategory returns the department and default priority for a category.
// Unknown categories route like "Other".
func RouteCategory(category string) (string, models.IssuePriority) {
	r, ok := routes[category]
	if !ok {
		r = routes["Other"]
	}
	return r.department, r.priority
}

// Normalize clamps a model response onto the known category set and fills
// missing department/priority from the routing table.
func Normalize(c Classification) Classification {
	if _, ok := routes[c.Category]; !ok {
		c.Category = "Other"
	}
	department, priority := RouteCategory(c.Category)
	if c.Department == "" {
		c.Department = department
	}
	if !models.ValidPriority(string(c.Priority)) {
		c.Priority = priority
	}
	return c
}
