package store

import (
	"context"
	"sort"
	"sync"
	"time"

	"github.com/oklog/ulid/v2"

	"github.com/Vasanth69-code/civiczen/models"
)

// Memory implements Store entirely in-process. It backs tests and the
// degraded no-database mode; ids are ULIDs so they stay opaque strings like
// the Mongo ids.
type Memory struct {
	mu       sync.RWMutex
	issues   map[string]models.Issue
	users    map[string]models.User
	seeded   bool
	watchers map[chan IssueEvent]struct{}
}

func NewMemory() *Memory {
	return &Memory{
		issues:   make(map[string]models.Issue),
		users:    make(map[string]models.User),
		watchers: make(map[chan IssueEvent]struct{}),
	}
}

func (m *Memory) ListIssues(ctx context.Context) ([]models.Issue, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()

	issues := make([]models.Issue, 0, len(m.issues))
	for _, issue := range m.issues {
		issues = append(issues, issue)
	}
	sort.SliceStable(issues, func(i, j int) bool {
		return issues[i].CreatedAt.After(issues[j].CreatedAt)
	})
	return issues, nil
}

func (m *Memory) InsertIssue(ctx context.Context, issue models.Issue) (string, error) {
	m.mu.Lock()
	issue.ID = ulid.Make().String()
	m.issues[issue.ID] = issue
	m.mu.Unlock()

	m.notify(IssueEvent{Type: EventCreated, Issue: issue})
	return issue.ID, nil
}

func (m *Memory) UpdateIssue(ctx context.Context, id string, fields map[string]interface{}) error {
	m.mu.Lock()
	issue, ok := m.issues[id]
	if !ok {
		m.mu.Unlock()
		return ErrNotFound
	}
	applyIssueFields(&issue, fields)
	m.issues[id] = issue
	m.mu.Unlock()

	m.notify(IssueEvent{Type: EventUpdated, Issue: issue})
	return nil
}

func (m *Memory) WatchIssues(ctx context.Context) (<-chan IssueEvent, error) {
	events := make(chan IssueEvent, 16)
	m.mu.Lock()
	m.watchers[events] = struct{}{}
	m.mu.Unlock()

	go func() {
		<-ctx.Done()
		// close under the write lock so notify, which sends under the read
		// lock, can never race the close
		m.mu.Lock()
		delete(m.watchers, events)
		close(events)
		m.mu.Unlock()
	}()
	return events, nil
}

func (m *Memory) notify(event IssueEvent) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	for watcher := range m.watchers {
		select {
		case watcher <- event:
		default:
			// slow watcher, drop rather than block the writer
		}
	}
}

func (m *Memory) ListUsers(ctx context.Context) ([]models.User, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()

	users := make([]models.User, 0, len(m.users))
	for _, user := range m.users {
		users = append(users, user)
	}
	sort.SliceStable(users, func(i, j int) bool {
		return users[i].Points > users[j].Points
	})
	return users, nil
}

func (m *Memory) InsertUser(ctx context.Context, user models.User) (string, error) {
	m.mu.Lock()
	defer m.mu.Unlock()

	if user.ID == "" {
		user.ID = ulid.Make().String()
	}
	m.users[user.ID] = user
	return user.ID, nil
}

func (m *Memory) UpdateUser(ctx context.Context, id string, fields map[string]interface{}) error {
	m.mu.Lock()
	defer m.mu.Unlock()

	user, ok := m.users[id]
	if !ok {
		return ErrNotFound
	}
	applyUserFields(&user, fields)
	user.UpdatedAt = time.Now()
	m.users[id] = user
	return nil
}

func (m *Memory) FindUserByEmail(ctx context.Context, email string) (models.User, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()

	for _, user := range m.users {
		if user.Email == email {
			return user, nil
		}
	}
	return models.User{}, ErrNotFound
}

func (m *Memory) AddPoints(ctx context.Context, id string, delta int) error {
	m.mu.Lock()
	defer m.mu.Unlock()

	user, ok := m.users[id]
	if !ok {
		return ErrNotFound
	}
	user.Points += delta
	m.users[id] = user
	return nil
}

func (m *Memory) SeedUsers(ctx context.Context, users []models.User) error {
	m.mu.Lock()
	defer m.mu.Unlock()

	if m.seeded {
		return ErrAlreadySeeded
	}
	m.seeded = true
	for _, user := range users {
		if user.ID == "" {
			user.ID = ulid.Make().String()
		}
		m.users[user.ID] = user
	}
	return nil
}

func applyIssueFields(issue *models.Issue, fields map[string]interface{}) {
	for key, value := range fields {
		switch key {
		case "title":
			issue.Title = asString(value)
		case "description":
			issue.Description = asString(value)
		case "status":
			issue.Status = models.IssueStatus(asString(value))
		case "category":
			issue.Category = asString(value)
		case "priority":
			issue.Priority = models.IssuePriority(asString(value))
		case "department":
			issue.Department = asString(value)
		case "address":
			issue.Address = asString(value)
		case "imageUrl":
			if s, ok := value.(*string); ok {
				issue.ImageURL = s
			} else if s := asString(value); s != "" {
				issue.ImageURL = &s
			}
		case "updatedAt":
			if t, ok := value.(time.Time); ok {
				issue.UpdatedAt = t
			}
		}
	}
}

func applyUserFields(user *models.User, fields map[string]interface{}) {
	for key, value := range fields {
		switch key {
		case "name":
			user.Name = asString(value)
		case "avatarUrl":
			user.AvatarURL = asString(value)
		case "points":
			if n, ok := value.(int); ok {
				user.Points = n
			}
		}
	}
}

func asString(value interface{}) string {
	switch v := value.(type) {
	case string:
		return v
	case models.IssueStatus:
		return string(v)
	case models.IssuePriority:
		return string(v)
	}
	return ""
}
