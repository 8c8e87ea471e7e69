package store

import (
	"context"
	"log"

	"go.mongodb.org/mongo-driver/bson"
	"go.mongodb.org/mongo-driver/bson/primitive"
	"go.mongodb.org/mongo-driver/mongo"
	"go.mongodb.org/mongo-driver/mongo/options"

	"github.com/Vasanth69-code/civiczen/models"
)

const seedMarkerID = "users_seed_marker"

// Mongo implements Store on top of MongoDB collections.
type Mongo struct {
	issues *mongo.Collection
	users  *mongo.Collection
	meta   *mongo.Collection
}

// NewMongo wires the adapter to the issue, user and meta collections of db.
func NewMongo(db *mongo.Database) *Mongo {
	return &Mongo{
		issues: db.Collection("issues"),
		users:  db.Collection("users"),
		meta:   db.Collection("meta"),
	}
}

func (m *Mongo) ListIssues(ctx context.Context) ([]models.Issue, error) {
	findOptions := options.Find().SetSort(bson.D{{Key: "createdAt", Value: -1}})
	cursor, err := m.issues.Find(ctx, bson.M{}, findOptions)
	if err != nil {
		return nil, err
	}
	defer cursor.Close(ctx)

	var issues []models.Issue
	if err := cursor.All(ctx, &issues); err != nil {
		return nil, err
	}
	return issues, nil
}

func (m *Mongo) InsertIssue(ctx context.Context, issue models.Issue) (string, error) {
	issue.ID = primitive.NewObjectID().Hex()
	if _, err := m.issues.InsertOne(ctx, issue); err != nil {
		return "", err
	}
	return issue.ID, nil
}

func (m *Mongo) UpdateIssue(ctx context.Context, id string, fields map[string]interface{}) error {
	set := bson.M{}
	for k, v := range fields {
		set[k] = v
	}
	res, err := m.issues.UpdateOne(ctx, bson.M{"_id": id}, bson.M{"$set": set})
	if err != nil {
		return err
	}
	if res.MatchedCount == 0 {
		return ErrNotFound
	}
	return nil
}

// WatchIssues opens a change stream on the issue collection. Updates are
// delivered with the full post-image so the container can replace whole
// records by id.
func (m *Mongo) WatchIssues(ctx context.Context) (<-chan IssueEvent, error) {
	streamOptions := options.ChangeStream().SetFullDocument(options.UpdateLookup)
	stream, err := m.issues.Watch(ctx, mongo.Pipeline{}, streamOptions)
	if err != nil {
		return nil, err
	}

	events := make(chan IssueEvent)
	go func() {
		defer close(events)
		defer stream.Close(context.Background())

		for stream.Next(ctx) {
			var change struct {
				OperationType string       `bson:"operationType"`
				FullDocument  models.Issue `bson:"fullDocument"`
			}
			if err := stream.Decode(&change); err != nil {
				log.Println("Error decoding change stream event:", err)
				continue
			}

			var eventType EventType
			switch change.OperationType {
			case "insert":
				eventType = EventCreated
			case "update", "replace":
				eventType = EventUpdated
			default:
				continue
			}

			select {
			case events <- IssueEvent{Type: eventType, Issue: change.FullDocument}:
			case <-ctx.Done():
				return
			}
		}
	}()
	return events, nil
}

func (m *Mongo) ListUsers(ctx context.Context) ([]models.User, error) {
	findOptions := options.Find().SetSort(bson.D{{Key: "points", Value: -1}})
	cursor, err := m.users.Find(ctx, bson.M{}, findOptions)
	if err != nil {
		return nil, err
	}
	defer cursor.Close(ctx)

	var users []models.User
	if err := cursor.All(ctx, &users); err != nil {
		return nil, err
	}
	return users, nil
}

func (m *Mongo) InsertUser(ctx context.Context, user models.User) (string, error) {
	if user.ID == "" {
		user.ID = primitive.NewObjectID().Hex()
	}
	if _, err := m.users.InsertOne(ctx, user); err != nil {
		return "", err
	}
	return user.ID, nil
}

func (m *Mongo) UpdateUser(ctx context.Context, id string, fields map[string]interface{}) error {
	set := bson.M{}
	for k, v := range fields {
		set[k] = v
	}
	res, err := m.users.UpdateOne(ctx, bson.M{"_id": id}, bson.M{"$set": set})
	if err != nil {
		return err
	}
	if res.MatchedCount == 0 {
		return ErrNotFound
	}
	return nil
}

func (m *Mongo) FindUserByEmail(ctx context.Context, email string) (models.User, error) {
	var user models.User
	err := m.users.FindOne(ctx, bson.M{"email": email}).Decode(&user)
	if err == mongo.ErrNoDocuments {
		return models.User{}, ErrNotFound
	}
	if err != nil {
		return models.User{}, err
	}
	return user, nil
}

func (m *Mongo) AddPoints(ctx context.Context, id string, delta int) error {
	res, err := m.users.UpdateOne(ctx, bson.M{"_id": id}, bson.M{"$inc": bson.M{"points": delta}})
	if err != nil {
		return err
	}
	if res.MatchedCount == 0 {
		return ErrNotFound
	}
	return nil
}

// SeedUsers inserts the fallback roster behind a marker document. The marker
// insert acts as the single-writer check: whoever hits the duplicate key
// lost the race and must not insert again.
func (m *Mongo) SeedUsers(ctx context.Context, users []models.User) error {
	_, err := m.meta.InsertOne(ctx, bson.M{"_id": seedMarkerID})
	if err != nil {
		if mongo.IsDuplicateKeyError(err) {
			return ErrAlreadySeeded
		}
		return err
	}

	docs := make([]interface{}, 0, len(users))
	for _, u := range users {
		docs = append(docs, u)
	}
	if _, err := m.users.InsertMany(ctx, docs); err != nil {
		// release the marker so the next attempt can seed a roster that
		// never made it into the collection
		if _, delErr := m.meta.DeleteOne(ctx, bson.M{"_id": seedMarkerID}); delErr != nil {
			log.Println("Error releasing seed marker:", delErr)
		}
		return err
	}
	return nil
}
