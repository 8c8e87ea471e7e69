package state

import (
	"context"
	"errors"
	"fmt"
	"sort"
	"sync"
	"time"

	"github.com/Vasanth69-code/civiczen/models"
	"github.com/Vasanth69-code/civiczen/store"
)

// ErrTransitionNotAllowed is returned by SetStatus when the configured
// policy rejects the requested transition.
var ErrTransitionNotAllowed = errors.New("status transition not allowed")

// StatusPolicy decides whether an issue may move from one status to another.
type StatusPolicy func(from, to models.IssueStatus) bool

// AllowAllTransitions is the default policy: administrators have full
// discretion, any status can follow any other.
func AllowAllTransitions(from, to models.IssueStatus) bool {
	return true
}

// IssueDraft is a new issue before the adapter has assigned an id and the
// container has assigned createdAt.
type IssueDraft struct {
	Title       string
	Description string
	Category    string
	Address     string
	Location    models.GeoPoint
	ImageURL    *string
	Reporter    models.Reporter
}

// IssueUpdate carries the fields of a partial update; nil means "leave
// unchanged". Remote merges are field-level, so concurrent updates to
// disjoint fields both apply.
type IssueUpdate struct {
	Title       *string
	Description *string
	Status      *models.IssueStatus
	Category    *string
	Priority    *models.IssuePriority
	Department  *string
	Address     *string
	ImageURL    *string
}

func (u IssueUpdate) fields() map[string]interface{} {
	fields := map[string]interface{}{}
	if u.Title != nil {
		fields["title"] = *u.Title
	}
	if u.Description != nil {
		fields["description"] = *u.Description
	}
	if u.Status != nil {
		fields["status"] = string(*u.Status)
	}
	if u.Category != nil {
		fields["category"] = *u.Category
	}
	if u.Priority != nil {
		fields["priority"] = string(*u.Priority)
	}
	if u.Department != nil {
		fields["department"] = *u.Department
	}
	if u.Address != nil {
		fields["address"] = *u.Address
	}
	if u.ImageURL != nil {
		fields["imageUrl"] = *u.ImageURL
	}
	return fields
}

// Issues is the in-memory source of truth for the issue collection within a
// session. All mutation goes through its methods; readers get copies. Local
// state is applied once the adapter acknowledges, and reconciled record-by-
// record when a subscription pushes a remote change (last writer wins).
type Issues struct {
	mu         sync.RWMutex
	list       []models.Issue // createdAt descending
	generation uint64
	store      store.IssueStore
	notifier   Notifier
	policy     StatusPolicy
}

// NewIssues builds a container over st. A nil notifier discards messages; a
// nil policy allows every status transition.
func NewIssues(st store.IssueStore, notifier Notifier, policy StatusPolicy) *Issues {
	if notifier == nil {
		notifier = nopNotifier{}
	}
	if policy == nil {
		policy = AllowAllTransitions
	}
	return &Issues{store: st, notifier: notifier, policy: policy}
}

// LoadAll replaces the local snapshot with the latest successful fetch. On
// adapter failure the previous snapshot is left untouched. A fetch that
// resolves after a newer state was applied is discarded.
func (c *Issues) LoadAll(ctx context.Context) ([]models.Issue, error) {
	c.mu.RLock()
	started := c.generation
	c.mu.RUnlock()

	issues, err := c.store.ListIssues(ctx)
	if err != nil {
		c.notifier.Notify(NotifyError, "Could not load issues")
		return nil, fmt.Errorf("load issues: %w", err)
	}

	c.mu.Lock()
	if c.generation == started {
		c.list = make([]models.Issue, len(issues))
		copy(c.list, issues)
		c.generation++
	}
	snapshot := c.snapshotLocked()
	c.mu.Unlock()
	return snapshot, nil
}

// Subscribe starts consuming the adapter's change stream until the returned
// cancel function is called. Cancel detaches the listener and waits for the
// consuming goroutine to exit, so no event is applied afterwards.
func (c *Issues) Subscribe(ctx context.Context) (func(), error) {
	watchCtx, cancel := context.WithCancel(ctx)
	events, err := c.store.WatchIssues(watchCtx)
	if err != nil {
		cancel()
		c.notifier.Notify(NotifyError, "Live updates unavailable")
		return nil, fmt.Errorf("watch issues: %w", err)
	}

	done := make(chan struct{})
	go func() {
		defer close(done)
		for event := range events {
			c.apply(event)
		}
	}()

	return func() {
		cancel()
		<-done
	}, nil
}

// apply reconciles one pushed change into the snapshot. Records are replaced
// whole by id, which also makes redelivered events harmless.
func (c *Issues) apply(event store.IssueEvent) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.upsertLocked(event.Issue)
	c.generation++
}

// upsertLocked replaces the record with the same id, or inserts the issue,
// and restores createdAt-descending order. Both Create and the subscription
// go through here, so a push racing a local ack can never leave two records
// with one id, and concurrent acks land in timestamp order.
func (c *Issues) upsertLocked(issue models.Issue) {
	for i := range c.list {
		if c.list[i].ID == issue.ID {
			c.list[i] = issue
			c.resortLocked()
			return
		}
	}
	c.list = append([]models.Issue{issue}, c.list...)
	c.resortLocked()
}

// Create assigns createdAt, submits the draft and, on acknowledgment, merges
// the new issue into the local list by id. The subscription may have applied
// the insert already; merging keeps the record unique either way. On failure
// nothing local changes and the error propagates.
func (c *Issues) Create(ctx context.Context, draft IssueDraft) (string, error) {
	now := time.Now()
	c.mu.RLock()
	if len(c.list) > 0 && now.Before(c.list[0].CreatedAt) {
		// createdAt must stay non-decreasing across the collection
		now = c.list[0].CreatedAt
	}
	c.mu.RUnlock()

	issue := models.Issue{
		Title:       draft.Title,
		Description: draft.Description,
		Status:      models.Pending,
		Category:    draft.Category,
		Priority:    models.Low,
		Department:  models.DepartmentUnassigned,
		Location:    draft.Location,
		Address:     draft.Address,
		ImageURL:    draft.ImageURL,
		Reporter:    draft.Reporter,
		CreatedAt:   now,
		UpdatedAt:   now,
	}

	id, err := c.store.InsertIssue(ctx, issue)
	if err != nil {
		c.notifier.Notify(NotifyError, "Could not submit the report")
		return "", fmt.Errorf("create issue: %w", err)
	}

	issue.ID = id
	c.mu.Lock()
	c.upsertLocked(issue)
	c.generation++
	c.mu.Unlock()

	c.notifier.Notify(NotifySuccess, "Report submitted")
	return id, nil
}

// Update merges the given fields into the identified issue remotely and then
// locally. A missing id is reported distinctly from a transport failure.
func (c *Issues) Update(ctx context.Context, id string, update IssueUpdate) error {
	fields := update.fields()
	if len(fields) == 0 {
		return nil
	}
	fields["updatedAt"] = time.Now()

	if err := c.store.UpdateIssue(ctx, id, fields); err != nil {
		if errors.Is(err, store.ErrNotFound) {
			c.notifier.Notify(NotifyError, "Could not find the issue to update")
			return err
		}
		c.notifier.Notify(NotifyError, "Could not update the issue")
		return fmt.Errorf("update issue %s: %w", id, err)
	}

	c.mu.Lock()
	for i := range c.list {
		if c.list[i].ID != id {
			continue
		}
		mergeIssue(&c.list[i], update)
		c.list[i].UpdatedAt = fields["updatedAt"].(time.Time)
		c.generation++
		break
	}
	c.mu.Unlock()
	return nil
}

// SetStatus is Update restricted to the status field, checked against the
// transition policy when the current status is known locally.
func (c *Issues) SetStatus(ctx context.Context, id string, status models.IssueStatus) error {
	if current, ok := c.Get(id); ok && !c.policy(current.Status, status) {
		c.notifier.Notify(NotifyError, fmt.Sprintf("Cannot move issue from %s to %s", current.Status, status))
		return ErrTransitionNotAllowed
	}
	return c.Update(ctx, id, IssueUpdate{Status: &status})
}

// Get returns the issue with the given id from the local snapshot.
func (c *Issues) Get(id string) (models.Issue, bool) {
	c.mu.RLock()
	defer c.mu.RUnlock()
	for _, issue := range c.list {
		if issue.ID == id {
			return issue, true
		}
	}
	return models.Issue{}, false
}

// List returns a copy of the local snapshot, createdAt descending.
func (c *Issues) List() []models.Issue {
	c.mu.RLock()
	defer c.mu.RUnlock()
	return c.snapshotLocked()
}

func (c *Issues) snapshotLocked() []models.Issue {
	snapshot := make([]models.Issue, len(c.list))
	copy(snapshot, c.list)
	return snapshot
}

func (c *Issues) resortLocked() {
	sort.SliceStable(c.list, func(i, j int) bool {
		return c.list[i].CreatedAt.After(c.list[j].CreatedAt)
	})
}

func mergeIssue(issue *models.Issue, update IssueUpdate) {
	if update.Title != nil {
		issue.Title = *update.Title
	}
	if update.Description != nil {
		issue.Description = *update.Description
	}
	if update.Status != nil {
		issue.Status = *update.Status
	}
	if update.Category != nil {
		issue.Category = *update.Category
	}
	if update.Priority != nil {
		issue.Priority = *update.Priority
	}
	if update.Department != nil {
		issue.Department = *update.Department
	}
	if update.Address != nil {
		issue.Address = *update.Address
	}
	if update.ImageURL != nil {
		issue.ImageURL = update.ImageURL
	}
}
