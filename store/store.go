package store

import (
	"context"
	"errors"

	"github.com/Vasanth69-code/civiczen/models"
)

// ErrNotFound is returned when an update targets a record that does not
// exist. Callers can rely on it to tell a missing record apart from a
// transport failure.
var ErrNotFound = errors.New("record not found")

// ErrAlreadySeeded is returned by SeedUsers when another writer has already
// seeded the roster.
var ErrAlreadySeeded = errors.New("roster already seeded")

// EventType classifies a change pushed by a watch.
type EventType string

const (
	EventCreated EventType = "created"
	EventUpdated EventType = "updated"
)

// IssueEvent is a single change to the issue collection, carrying the full
// document after the change.
type IssueEvent struct {
	Type  EventType
	Issue models.Issue
}

// IssueStore is the remote adapter for the issue collection.
type IssueStore interface {
	// ListIssues returns the full collection ordered by createdAt descending.
	ListIssues(ctx context.Context) ([]models.Issue, error)

	// InsertIssue persists a new issue and returns the assigned id. The id
	// on the passed issue is ignored.
	InsertIssue(ctx context.Context, issue models.Issue) (string, error)

	// UpdateIssue merges the given fields into the identified document.
	// Returns ErrNotFound if no document has that id.
	UpdateIssue(ctx context.Context, id string, fields map[string]interface{}) error

	// WatchIssues streams changes until ctx is cancelled, then closes the
	// channel.
	WatchIssues(ctx context.Context) (<-chan IssueEvent, error)
}

// UserStore is the remote adapter for the user collection.
type UserStore interface {
	ListUsers(ctx context.Context) ([]models.User, error)
	InsertUser(ctx context.Context, user models.User) (string, error)
	UpdateUser(ctx context.Context, id string, fields map[string]interface{}) error
	FindUserByEmail(ctx context.Context, email string) (models.User, error)

	// AddPoints atomically increments a user's points.
	AddPoints(ctx context.Context, id string, delta int) error

	// SeedUsers inserts the given roster exactly once. A marker guards
	// against concurrent double-seeding; losers get ErrAlreadySeeded.
	SeedUsers(ctx context.Context, users []models.User) error
}

// Store combines both adapters; each implementation backs the two containers
// with a single connection.
type Store interface {
	IssueStore
	UserStore
}
