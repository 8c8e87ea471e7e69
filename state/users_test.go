package state

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/Vasanth69-code/civiczen/models"
	"github.com/Vasanth69-code/civiczen/store"
)

type failingUserStore struct{}

func (failingUserStore) ListUsers(ctx context.Context) ([]models.User, error) {
	return nil, errDown
}

func (failingUserStore) InsertUser(ctx context.Context, user models.User) (string, error) {
	return "", errDown
}

func (failingUserStore) UpdateUser(ctx context.Context, id string, fields map[string]interface{}) error {
	return errDown
}

func (failingUserStore) FindUserByEmail(ctx context.Context, email string) (models.User, error) {
	return models.User{}, errDown
}

func (failingUserStore) AddPoints(ctx context.Context, id string, delta int) error {
	return errDown
}

func (failingUserStore) SeedUsers(ctx context.Context, users []models.User) error {
	return errDown
}

func requireRanked(t *testing.T, roster []models.User) {
	t.Helper()
	for i, user := range roster {
		require.Equal(t, i+1, user.Rank)
		if i > 0 {
			require.GreaterOrEqual(t, roster[i-1].Points, user.Points)
		}
	}
}

func TestUsersLoadRosterRanks(t *testing.T) {
	ctx := context.Background()
	mem := store.NewMemory()
	for _, u := range []models.User{
		{ID: "a", Name: "low", Points: 10},
		{ID: "b", Name: "high", Points: 300},
		{ID: "c", Name: "mid", Points: 40},
	} {
		_, err := mem.InsertUser(ctx, u)
		require.NoError(t, err)
	}

	c := NewUsers(mem, nil, nil)
	roster, err := c.LoadRoster(ctx)
	require.NoError(t, err)

	require.Len(t, roster, 3)
	assert.Equal(t, "high", roster[0].Name)
	requireRanked(t, roster)
}

func TestUsersSeedsEmptyRosterOnce(t *testing.T) {
	ctx := context.Background()
	mem := store.NewMemory()
	c := NewUsers(mem, nil, nil)

	roster, err := c.LoadRoster(ctx)
	require.NoError(t, err)
	require.NotEmpty(t, roster)
	requireRanked(t, roster)

	again, err := c.LoadRoster(ctx)
	require.NoError(t, err)
	assert.Len(t, again, len(roster), "reload must not double-seed")

	err = mem.SeedUsers(ctx, models.SeedUsers())
	assert.ErrorIs(t, err, store.ErrAlreadySeeded)
}

func TestUsersFallbackOnFetchFailure(t *testing.T) {
	notifier := &recordingNotifier{}
	c := NewUsers(failingUserStore{}, notifier, nil)

	roster, err := c.LoadRoster(context.Background())
	require.ErrorIs(t, err, errDown)
	require.Len(t, roster, len(models.SeedUsers()))
	requireRanked(t, roster)
	assert.Contains(t, notifier.all(), "error: Could not load community members")
}

func TestUsersResolveCurrentUser(t *testing.T) {
	ctx := context.Background()
	c := NewUsers(store.NewMemory(), nil, nil)
	roster, err := c.LoadRoster(ctx)
	require.NoError(t, err)

	t.Run("matches by id", func(t *testing.T) {
		user := c.ResolveCurrentUser(IdentityHint{ID: "u3"})
		assert.Equal(t, "Vikram Singh", user.Name)
	})

	t.Run("matches by name", func(t *testing.T) {
		user := c.ResolveCurrentUser(IdentityHint{Name: "Diya Patel"})
		assert.Equal(t, "u4", user.ID)
	})

	t.Run("falls back to demo identity past the roster", func(t *testing.T) {
		user := c.ResolveCurrentUser(IdentityHint{ID: "nobody"})
		assert.Equal(t, models.DefaultUser().Name, user.Name)
		assert.Equal(t, len(roster)+1, user.Rank)
	})

	t.Run("lookup leaves the session record alone", func(t *testing.T) {
		u2, ok := c.Get("u2")
		require.True(t, ok)
		c.SetCurrentUser(u2)

		// one session resolving its identity must not change another's
		resolved := c.ResolveCurrentUser(IdentityHint{ID: "u5"})
		assert.Equal(t, "u5", resolved.ID)
		assert.Equal(t, "u2", c.CurrentUser().ID)
	})
}

func TestUsersSetCurrentUserIsLocalOnly(t *testing.T) {
	ctx := context.Background()
	mem := store.NewMemory()
	c := NewUsers(mem, nil, nil)
	_, err := c.LoadRoster(ctx)
	require.NoError(t, err)

	edited := c.ResolveCurrentUser(IdentityHint{ID: "u2"})
	edited.Name = "Saanvi G."
	c.SetCurrentUser(edited)

	assert.Equal(t, "Saanvi G.", c.CurrentUser().Name)

	// neither the roster nor the store saw the edit
	fromRoster, ok := c.Get("u2")
	require.True(t, ok)
	assert.Equal(t, "Saanvi Gupta", fromRoster.Name)

	stored, err := mem.ListUsers(ctx)
	require.NoError(t, err)
	for _, u := range stored {
		if u.ID == "u2" {
			assert.Equal(t, "Saanvi Gupta", u.Name)
		}
	}
}

func TestUsersAwardPointsReRanksAtomically(t *testing.T) {
	ctx := context.Background()
	mem := store.NewMemory()
	c := NewUsers(mem, nil, nil)
	_, err := c.LoadRoster(ctx)
	require.NoError(t, err)

	u2, ok := c.Get("u2")
	require.True(t, ok)
	c.SetCurrentUser(u2)

	// enough points to overtake the leader
	require.NoError(t, c.AwardPoints(ctx, "u2", 1000))

	roster := c.Roster()
	requireRanked(t, roster)
	assert.Equal(t, "u2", roster[0].ID)
	assert.Equal(t, 1, roster[0].Rank)

	// the current user sees the same sort epoch
	current := c.CurrentUser()
	assert.Equal(t, roster[0].Points, current.Points)
	assert.Equal(t, 1, current.Rank)
}

func TestUsersAwardPointsUnknownID(t *testing.T) {
	ctx := context.Background()
	notifier := &recordingNotifier{}
	c := NewUsers(store.NewMemory(), notifier, nil)
	_, err := c.LoadRoster(ctx)
	require.NoError(t, err)

	err = c.AwardPoints(ctx, "ghost", 10)
	require.ErrorIs(t, err, store.ErrNotFound)
	assert.Contains(t, notifier.all(), "error: Could not find the user to award")
}
