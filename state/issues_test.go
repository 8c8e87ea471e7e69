package state

import (
	"context"
	"errors"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/Vasanth69-code/civiczen/models"
	"github.com/Vasanth69-code/civiczen/store"
)

type recordingNotifier struct {
	mu       sync.Mutex
	messages []string
}

func (n *recordingNotifier) Notify(kind, message string) {
	n.mu.Lock()
	defer n.mu.Unlock()
	n.messages = append(n.messages, kind+": "+message)
}

func (n *recordingNotifier) all() []string {
	n.mu.Lock()
	defer n.mu.Unlock()
	return append([]string(nil), n.messages...)
}

type failingIssueStore struct{}

var errDown = errors.New("adapter unreachable")

func (failingIssueStore) ListIssues(ctx context.Context) ([]models.Issue, error) {
	return nil, errDown
}

func (failingIssueStore) InsertIssue(ctx context.Context, issue models.Issue) (string, error) {
	return "", errDown
}

func (failingIssueStore) UpdateIssue(ctx context.Context, id string, fields map[string]interface{}) error {
	return errDown
}

func (failingIssueStore) WatchIssues(ctx context.Context) (<-chan store.IssueEvent, error) {
	return nil, errDown
}

// gatedIssueStore snapshots the list immediately but delays returning it, to
// simulate a fetch that resolves after newer state was applied.
type gatedIssueStore struct {
	*store.Memory
	gate chan struct{}
}

func (g *gatedIssueStore) ListIssues(ctx context.Context) ([]models.Issue, error) {
	issues, err := g.Memory.ListIssues(ctx)
	<-g.gate
	return issues, err
}

// slowAckIssueStore commits inserts immediately but delays the
// acknowledgment per title, so an active subscription can deliver the event
// before the caller's Create returns.
type slowAckIssueStore struct {
	*store.Memory
	delays map[string]time.Duration
}

func (s *slowAckIssueStore) InsertIssue(ctx context.Context, issue models.Issue) (string, error) {
	id, err := s.Memory.InsertIssue(ctx, issue)
	if d := s.delays[issue.Title]; d > 0 {
		time.Sleep(d)
	}
	return id, err
}

func newDraft(title string) IssueDraft {
	return IssueDraft{
		Title:       title,
		Description: "something broke",
		Address:     "MG Road",
		Location:    models.GeoPoint{Latitude: 12.97, Longitude: 77.59},
		Reporter:    models.Reporter{ID: "u1", Name: "Aarav Sharma"},
	}
}

func TestIssuesCreateKeepsNewestFirst(t *testing.T) {
	ctx := context.Background()
	c := NewIssues(store.NewMemory(), nil, nil)

	for _, title := range []string{"first", "second", "third"} {
		_, err := c.Create(ctx, newDraft(title))
		require.NoError(t, err)
	}

	list := c.List()
	require.Len(t, list, 3)
	assert.Equal(t, "third", list[0].Title)
	for i := 0; i < len(list)-1; i++ {
		assert.False(t, list[i].CreatedAt.Before(list[i+1].CreatedAt))
	}
}

func TestIssuesCreateDefaults(t *testing.T) {
	ctx := context.Background()
	c := NewIssues(store.NewMemory(), nil, nil)

	id, err := c.Create(ctx, newDraft("Pothole on Ring Road"))
	require.NoError(t, err)
	require.NotEmpty(t, id)

	issue, ok := c.Get(id)
	require.True(t, ok)
	assert.Equal(t, models.Pending, issue.Status)
	assert.Equal(t, models.DepartmentUnassigned, issue.Department)
	assert.False(t, issue.CreatedAt.IsZero())
	assert.Equal(t, "Aarav Sharma", issue.Reporter.Name)
}

func TestIssuesReadYourOwnWrite(t *testing.T) {
	ctx := context.Background()
	c := NewIssues(store.NewMemory(), nil, nil)

	id, err := c.Create(ctx, newDraft("broken light"))
	require.NoError(t, err)

	require.NoError(t, c.SetStatus(ctx, id, models.Resolved))

	issue, ok := c.Get(id)
	require.True(t, ok)
	assert.Equal(t, models.Resolved, issue.Status)
}

func TestIssuesUpdateUnknownID(t *testing.T) {
	ctx := context.Background()
	notifier := &recordingNotifier{}
	c := NewIssues(store.NewMemory(), notifier, nil)

	id, err := c.Create(ctx, newDraft("existing"))
	require.NoError(t, err)

	status := models.Resolved
	err = c.Update(ctx, "no-such-id", IssueUpdate{Status: &status})
	require.ErrorIs(t, err, store.ErrNotFound)

	// the only record is untouched and nothing was inserted
	list := c.List()
	require.Len(t, list, 1)
	assert.Equal(t, id, list[0].ID)
	assert.Equal(t, models.Pending, list[0].Status)
	assert.Contains(t, notifier.all(), "error: Could not find the issue to update")
}

func TestIssuesCreateFailureLeavesStateUntouched(t *testing.T) {
	notifier := &recordingNotifier{}
	c := NewIssues(failingIssueStore{}, notifier, nil)

	_, err := c.Create(context.Background(), newDraft("doomed"))
	require.Error(t, err)
	assert.Empty(t, c.List())
	assert.Contains(t, notifier.all(), "error: Could not submit the report")
}

func TestIssuesClassificationMerge(t *testing.T) {
	ctx := context.Background()
	c := NewIssues(store.NewMemory(), nil, nil)

	id, err := c.Create(ctx, newDraft("Pothole on Ring Road"))
	require.NoError(t, err)

	created, ok := c.Get(id)
	require.True(t, ok)
	require.Equal(t, models.DepartmentUnassigned, created.Department)

	category := "Pothole"
	department := "Public Works"
	priority := models.High
	err = c.Update(ctx, id, IssueUpdate{
		Category:   &category,
		Department: &department,
		Priority:   &priority,
	})
	require.NoError(t, err)

	routed, ok := c.Get(id)
	require.True(t, ok)
	assert.Equal(t, "Public Works", routed.Department)
	assert.Equal(t, models.High, routed.Priority)
	assert.Equal(t, "Pothole on Ring Road", routed.Title)
	assert.Equal(t, id, routed.ID)
	assert.Equal(t, created.CreatedAt, routed.CreatedAt)
}

func TestIssuesDisjointConcurrentUpdates(t *testing.T) {
	ctx := context.Background()
	c := NewIssues(store.NewMemory(), nil, nil)

	id, err := c.Create(ctx, newDraft("contended"))
	require.NoError(t, err)

	var wg sync.WaitGroup
	wg.Add(2)
	go func() {
		defer wg.Done()
		assert.NoError(t, c.SetStatus(ctx, id, models.InProgress))
	}()
	go func() {
		defer wg.Done()
		department := "Public Works"
		assert.NoError(t, c.Update(ctx, id, IssueUpdate{Department: &department}))
	}()
	wg.Wait()

	issue, ok := c.Get(id)
	require.True(t, ok)
	assert.Equal(t, models.InProgress, issue.Status)
	assert.Equal(t, "Public Works", issue.Department)
}

func TestIssuesSubscribeAndUnsubscribe(t *testing.T) {
	ctx := context.Background()
	mem := store.NewMemory()
	c := NewIssues(mem, nil, nil)

	unsubscribe, err := c.Subscribe(ctx)
	require.NoError(t, err)

	// a remote client creates an issue behind our back
	remoteID, err := mem.InsertIssue(ctx, models.Issue{
		Title:     "remote report",
		Status:    models.Pending,
		CreatedAt: time.Now(),
	})
	require.NoError(t, err)

	require.Eventually(t, func() bool {
		_, ok := c.Get(remoteID)
		return ok
	}, time.Second, 10*time.Millisecond)

	unsubscribe()

	afterID, err := mem.InsertIssue(ctx, models.Issue{
		Title:     "after unsubscribe",
		Status:    models.Pending,
		CreatedAt: time.Now(),
	})
	require.NoError(t, err)

	time.Sleep(50 * time.Millisecond)
	_, ok := c.Get(afterID)
	assert.False(t, ok, "detached listener must not apply remote changes")
}

func TestIssuesSubscribeReplacesByID(t *testing.T) {
	ctx := context.Background()
	mem := store.NewMemory()
	c := NewIssues(mem, nil, nil)

	id, err := c.Create(ctx, newDraft("to be resolved remotely"))
	require.NoError(t, err)

	unsubscribe, err := c.Subscribe(ctx)
	require.NoError(t, err)
	defer unsubscribe()

	err = mem.UpdateIssue(ctx, id, map[string]interface{}{"status": models.Resolved})
	require.NoError(t, err)

	require.Eventually(t, func() bool {
		issue, ok := c.Get(id)
		return ok && issue.Status == models.Resolved
	}, time.Second, 10*time.Millisecond)

	// redelivery by id is idempotent: still exactly one record
	assert.Len(t, c.List(), 1)
}

func TestIssuesCreateRacingSubscriptionKeepsOneRecord(t *testing.T) {
	ctx := context.Background()
	slow := &slowAckIssueStore{
		Memory: store.NewMemory(),
		delays: map[string]time.Duration{"raced": 100 * time.Millisecond},
	}
	c := NewIssues(slow, nil, nil)

	unsubscribe, err := c.Subscribe(ctx)
	require.NoError(t, err)
	defer unsubscribe()

	// the pushed insert event lands before the slow ack does
	id, err := c.Create(ctx, newDraft("raced"))
	require.NoError(t, err)

	list := c.List()
	require.Len(t, list, 1)
	assert.Equal(t, id, list[0].ID)
}

func TestIssuesOutOfOrderAcksKeepNewestFirst(t *testing.T) {
	ctx := context.Background()
	slow := &slowAckIssueStore{
		Memory: store.NewMemory(),
		delays: map[string]time.Duration{"early": 80 * time.Millisecond},
	}
	c := NewIssues(slow, nil, nil)

	var wg sync.WaitGroup
	wg.Add(2)
	go func() {
		defer wg.Done()
		_, err := c.Create(ctx, newDraft("early"))
		assert.NoError(t, err)
	}()
	go func() {
		defer wg.Done()
		// starts after "early" picked its createdAt, acks long before it
		time.Sleep(20 * time.Millisecond)
		_, err := c.Create(ctx, newDraft("late"))
		assert.NoError(t, err)
	}()
	wg.Wait()

	list := c.List()
	require.Len(t, list, 2)
	assert.Equal(t, "late", list[0].Title)
	assert.False(t, list[0].CreatedAt.Before(list[1].CreatedAt))
}

func TestIssuesStaleLoadDiscarded(t *testing.T) {
	ctx := context.Background()
	gated := &gatedIssueStore{Memory: store.NewMemory(), gate: make(chan struct{})}
	c := NewIssues(gated, nil, nil)

	loaded := make(chan struct{})
	go func() {
		defer close(loaded)
		_, err := c.LoadAll(ctx)
		assert.NoError(t, err)
	}()

	// while the fetch is in flight, a create applies newer local state
	time.Sleep(20 * time.Millisecond)
	id, err := c.Create(ctx, newDraft("fresh"))
	require.NoError(t, err)

	close(gated.gate)
	<-loaded

	// the stale (pre-create) fetch result must not have clobbered the create
	_, ok := c.Get(id)
	assert.True(t, ok)
	assert.Len(t, c.List(), 1)
}

func TestIssuesStatusPolicy(t *testing.T) {
	ctx := context.Background()
	noReopen := func(from, to models.IssueStatus) bool {
		return from != models.Resolved
	}
	c := NewIssues(store.NewMemory(), nil, noReopen)

	id, err := c.Create(ctx, newDraft("terminal"))
	require.NoError(t, err)
	require.NoError(t, c.SetStatus(ctx, id, models.Resolved))

	err = c.SetStatus(ctx, id, models.Pending)
	require.ErrorIs(t, err, ErrTransitionNotAllowed)

	issue, _ := c.Get(id)
	assert.Equal(t, models.Resolved, issue.Status)
}

func TestIssuesLoadAllFailureKeepsPreviousState(t *testing.T) {
	ctx := context.Background()
	mem := store.NewMemory()
	c := NewIssues(mem, nil, nil)

	id, err := c.Create(ctx, newDraft("kept"))
	require.NoError(t, err)

	// swap in a dead adapter underneath the same local state
	c.store = failingIssueStore{}
	_, err = c.LoadAll(ctx)
	require.Error(t, err)

	_, ok := c.Get(id)
	assert.True(t, ok)
}
