package store

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/Vasanth69-code/civiczen/models"
)

func TestMemoryListIssuesOrdered(t *testing.T) {
	ctx := context.Background()
	m := NewMemory()

	base := time.Now()
	for i := 0; i < 3; i++ {
		_, err := m.InsertIssue(ctx, models.Issue{
			Title:     "issue",
			CreatedAt: base.Add(time.Duration(i) * time.Minute),
		})
		require.NoError(t, err)
	}

	issues, err := m.ListIssues(ctx)
	require.NoError(t, err)
	require.Len(t, issues, 3)
	for i := 0; i < len(issues)-1; i++ {
		assert.False(t, issues[i].CreatedAt.Before(issues[i+1].CreatedAt))
	}
}

func TestMemoryUpdateIssueNotFound(t *testing.T) {
	m := NewMemory()
	err := m.UpdateIssue(context.Background(), "missing", map[string]interface{}{"status": models.Resolved})
	assert.ErrorIs(t, err, ErrNotFound)
}

func TestMemoryWatchDeliversAndDetaches(t *testing.T) {
	m := NewMemory()
	ctx, cancel := context.WithCancel(context.Background())

	events, err := m.WatchIssues(ctx)
	require.NoError(t, err)

	id, err := m.InsertIssue(context.Background(), models.Issue{Title: "watched", CreatedAt: time.Now()})
	require.NoError(t, err)

	select {
	case event := <-events:
		assert.Equal(t, EventCreated, event.Type)
		assert.Equal(t, id, event.Issue.ID)
	case <-time.After(time.Second):
		t.Fatal("expected a created event")
	}

	cancel()

	// channel closes once the watcher is detached
	require.Eventually(t, func() bool {
		select {
		case _, open := <-events:
			return !open
		default:
			return false
		}
	}, time.Second, 10*time.Millisecond)
}

func TestMemorySeedUsersOnce(t *testing.T) {
	ctx := context.Background()
	m := NewMemory()

	require.NoError(t, m.SeedUsers(ctx, models.SeedUsers()))
	assert.ErrorIs(t, m.SeedUsers(ctx, models.SeedUsers()), ErrAlreadySeeded)

	users, err := m.ListUsers(ctx)
	require.NoError(t, err)
	assert.Len(t, users, len(models.SeedUsers()))
}

func TestMemoryAddPoints(t *testing.T) {
	ctx := context.Background()
	m := NewMemory()

	id, err := m.InsertUser(ctx, models.User{Name: "scorer", Points: 5})
	require.NoError(t, err)

	require.NoError(t, m.AddPoints(ctx, id, 7))

	users, err := m.ListUsers(ctx)
	require.NoError(t, err)
	require.Len(t, users, 1)
	assert.Equal(t, 12, users[0].Points)

	assert.ErrorIs(t, m.AddPoints(ctx, "missing", 1), ErrNotFound)
}
