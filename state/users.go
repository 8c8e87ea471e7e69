package state

import (
	"context"
	"errors"
	"fmt"
	"log"
	"sort"
	"sync"

	"github.com/Vasanth69-code/civiczen/models"
	"github.com/Vasanth69-code/civiczen/store"
)

// IdentityHint is what the session layer knows about the signed-in user.
// Depending on the authentication state either the stable id or only the
// display name may be available.
type IdentityHint struct {
	ID   string
	Name string
}

// Users loads, ranks and exposes the user roster and resolves the session's
// current user. Rank is always consistent with a descending sort by points
// over the loaded roster; re-ranking happens under the same lock as the
// points mutation, so readers never observe points and rank from different
// sort epochs.
type Users struct {
	mu       sync.RWMutex
	roster   []models.User // points descending, rank assigned
	current  models.User
	store    store.UserStore
	notifier Notifier
	seed     []models.User
}

// NewUsers builds a container over st. A nil notifier discards messages; a
// nil seed uses the built-in fallback roster.
func NewUsers(st store.UserStore, notifier Notifier, seed []models.User) *Users {
	if notifier == nil {
		notifier = nopNotifier{}
	}
	if seed == nil {
		seed = models.SeedUsers()
	}
	u := &Users{store: st, notifier: notifier, seed: seed}
	u.current = models.DefaultUser()
	return u
}

// LoadRoster fetches all users and ranks them by points. An empty remote
// collection triggers the guarded one-time seed, then a re-fetch. On fetch
// failure the container falls back entirely to the static seed roster so
// readers always have a complete, consistently ranked state; the returned
// roster is then the seed and the error carries the cause.
func (c *Users) LoadRoster(ctx context.Context) ([]models.User, error) {
	users, err := c.store.ListUsers(ctx)
	if err != nil {
		return c.fallback(err)
	}

	if len(users) == 0 {
		err := c.store.SeedUsers(ctx, c.seed)
		if err != nil && !errors.Is(err, store.ErrAlreadySeeded) {
			return c.fallback(err)
		}
		users, err = c.store.ListUsers(ctx)
		if err != nil {
			return c.fallback(err)
		}
	}

	ranked := rankUsers(users)

	c.mu.Lock()
	c.roster = ranked
	c.refreshCurrentLocked()
	snapshot := c.rosterLocked()
	c.mu.Unlock()
	return snapshot, nil
}

func (c *Users) fallback(cause error) ([]models.User, error) {
	log.Println("Falling back to seed roster:", cause)
	c.notifier.Notify(NotifyError, "Could not load community members")
	ranked := rankUsers(c.seed)

	c.mu.Lock()
	c.roster = ranked
	c.refreshCurrentLocked()
	snapshot := c.rosterLocked()
	c.mu.Unlock()
	return snapshot, fmt.Errorf("load roster: %w", cause)
}

// ResolveCurrentUser matches the session identity against the loaded roster,
// by id first and by name second. With no match the demo identity is used,
// ranked one past the end of the roster so rank numbers stay unique. The
// lookup is read-only: the container serves every HTTP session, so resolving
// one caller's identity must not overwrite the record another session set
// through SetCurrentUser.
func (c *Users) ResolveCurrentUser(hint IdentityHint) models.User {
	c.mu.RLock()
	defer c.mu.RUnlock()

	for _, user := range c.roster {
		if hint.ID != "" && user.ID == hint.ID {
			return user
		}
	}
	for _, user := range c.roster {
		if hint.Name != "" && user.Name == hint.Name {
			return user
		}
	}

	fallback := models.DefaultUser()
	fallback.Rank = len(c.roster) + 1
	return fallback
}

// SetCurrentUser replaces the locally held current-user record. It neither
// persists to the adapter nor re-ranks the roster; persisted profile edits
// go through the HTTP layer's own update path.
func (c *Users) SetCurrentUser(user models.User) {
	c.mu.Lock()
	c.current = user
	c.mu.Unlock()
}

// CurrentUser returns the session's resolved user.
func (c *Users) CurrentUser() models.User {
	c.mu.RLock()
	defer c.mu.RUnlock()
	return c.current
}

// Roster returns a copy of the ranked roster.
func (c *Users) Roster() []models.User {
	c.mu.RLock()
	defer c.mu.RUnlock()
	return c.rosterLocked()
}

// Get returns the roster entry with the given id.
func (c *Users) Get(id string) (models.User, bool) {
	c.mu.RLock()
	defer c.mu.RUnlock()
	for _, user := range c.roster {
		if user.ID == id {
			return user, true
		}
	}
	return models.User{}, false
}

// AwardPoints adds delta to a user's score remotely, then applies the
// mutation and re-ranks the roster under one lock.
func (c *Users) AwardPoints(ctx context.Context, id string, delta int) error {
	if err := c.store.AddPoints(ctx, id, delta); err != nil {
		if errors.Is(err, store.ErrNotFound) {
			c.notifier.Notify(NotifyError, "Could not find the user to award")
			return err
		}
		c.notifier.Notify(NotifyError, "Could not award points")
		return fmt.Errorf("award points to %s: %w", id, err)
	}

	c.mu.Lock()
	for i := range c.roster {
		if c.roster[i].ID == id {
			c.roster[i].Points += delta
			break
		}
	}
	c.roster = rankUsers(c.roster)
	c.refreshCurrentLocked()
	c.mu.Unlock()
	return nil
}

func (c *Users) refreshCurrentLocked() {
	for _, user := range c.roster {
		if user.ID == c.current.ID {
			c.current = user
			return
		}
	}
}

func (c *Users) rosterLocked() []models.User {
	snapshot := make([]models.User, len(c.roster))
	copy(snapshot, c.roster)
	return snapshot
}

func rankUsers(users []models.User) []models.User {
	ranked := make([]models.User, len(users))
	copy(ranked, users)
	sort.SliceStable(ranked, func(i, j int) bool {
		return ranked[i].Points > ranked[j].Points
	})
	for i := range ranked {
		ranked[i].Rank = i + 1
	}
	return ranked
}
