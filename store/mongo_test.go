package store

import (
	"context"
	"testing"

	"github.com/stretchr/testify/require"
	"go.mongodb.org/mongo-driver/mongo/integration/mtest"

	"github.com/Vasanth69-code/civiczen/models"
)

func TestMongoSeedUsers(t *testing.T) {
	mt := mtest.New(t, mtest.NewOptions().ClientType(mtest.Mock))

	mt.Run("marker is released when the roster insert fails", func(mt *mtest.T) {
		m := NewMongo(mt.DB)
		mt.AddMockResponses(
			mtest.CreateSuccessResponse(),
			mtest.CreateWriteErrorsResponse(mtest.WriteError{Index: 0, Code: 121, Message: "document failed validation"}),
			mtest.CreateSuccessResponse(),
		)

		err := m.SeedUsers(context.Background(), models.SeedUsers())
		require.Error(mt, err)
		require.NotErrorIs(mt, err, ErrAlreadySeeded)

		// the marker delete must have gone out, otherwise every later
		// attempt would report already-seeded over an empty collection
		events := mt.GetAllStartedEvents()
		require.NotEmpty(mt, events)
		require.Equal(mt, "delete", events[len(events)-1].CommandName)
	})

	mt.Run("duplicate marker reports already seeded", func(mt *mtest.T) {
		m := NewMongo(mt.DB)
		mt.AddMockResponses(
			mtest.CreateWriteErrorsResponse(mtest.WriteError{Index: 0, Code: 11000, Message: "duplicate key"}),
		)

		err := m.SeedUsers(context.Background(), models.SeedUsers())
		require.ErrorIs(mt, err, ErrAlreadySeeded)
	})
}
