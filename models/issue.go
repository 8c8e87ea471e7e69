package models

import (
	"time"
)

// IssueStatus enum
type IssueStatus string

const (
	Pending    IssueStatus = "Pending"
	InProgress IssueStatus = "In Progress"
	Resolved   IssueStatus = "Resolved"
	Rejected   IssueStatus = "Rejected"
)

// IssuePriority enum
type IssuePriority string

const (
	Low    IssuePriority = "Low"
	Medium IssuePriority = "Medium"
	High   IssuePriority = "High"
)

// DepartmentUnassigned is the department an issue carries until the
// classification step (or an administrator) routes it.
const DepartmentUnassigned = "Pending Assignment"

// Categories lists the issue types the classifier may assign. The category
// field itself is free-form so manually triaged issues are not constrained
// to this list.
var Categories = []string{
	"Pothole",
	"Garbage Overflow",
	"Streetlight Outage",
	"Graffiti",
	"Damaged Signage",
	"Electrical Line Damage",
	"Sewage Overflow",
	"Tree Damage",
	"Other",
}

// GeoPoint is a latitude/longitude pair
type GeoPoint struct {
	Latitude  float64 `bson:"latitude" json:"lat"`
	Longitude float64 `bson:"longitude" json:"lng"`
}

// Reporter is a denormalized snapshot of the reporting user, taken at
// creation time and never refreshed afterwards.
type Reporter struct {
	ID        string `bson:"id" json:"id"`
	Name      string `bson:"name" json:"name"`
	AvatarURL string `bson:"avatarUrl" json:"avatarUrl"`
}

// Issue represents a civic issue reported by a user
type Issue struct {
	ID          string        `bson:"_id,omitempty" json:"id"`
	Title       string        `bson:"title" json:"title"`
	Description string        `bson:"description" json:"description"`
	Status      IssueStatus   `bson:"status" json:"status"`
	Category    string        `bson:"category" json:"category"`
	Priority    IssuePriority `bson:"priority" json:"priority"`
	Department  string        `bson:"department" json:"department"`
	Location    GeoPoint      `bson:"location" json:"location"`
	Address     string        `bson:"address" json:"address"`
	ImageURL    *string       `bson:"imageUrl,omitempty" json:"imageUrl,omitempty"`
	Reporter    Reporter      `bson:"reporter" json:"reporter"`
	CreatedAt   time.Time     `bson:"createdAt" json:"createdAt"`
	UpdatedAt   time.Time     `bson:"updatedAt" json:"updatedAt"`
}

// ValidStatus reports whether s is one of the four known statuses.
func ValidStatus(s string) bool {
	switch IssueStatus(s) {
	case Pending, InProgress, Resolved, Rejected:
		return true
	}
	return false
}

// ValidPriority reports whether p is one of the three known priorities.
func ValidPriority(p string) bool {
	switch IssuePriority(p) {
	case Low, Medium, High:
		return true
	}
	return false
}
