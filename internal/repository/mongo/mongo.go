package mongo

import (
	"context"
	"errors"
	"fmt"
	"time"

	"go.mongodb.org/mongo-driver/v2/bson"
	"go.mongodb.org/mongo-driver/v2/mongo"
	"go.mongodb.org/mongo-driver/v2/mongo/options"

	"github.com/arklim/daily-tracker/internal/core/domain"
	"github.com/arklim/daily-tracker/internal/repository"
)

const (
	usersCollection  = "users"
	habitsCollection = "habits"
	logsCollection   = "logs"

	defaultOpTimeout = 5 * time.Second
)

// Repositories groups the MongoDB-backed repository implementations.
type Repositories struct {
	Identities *IdentityRepository
	Habits     *HabitRepository
	Logs       *LogRepository
}

// NewRepositories wires all repositories against db.
func NewRepositories(db *mongo.Database, timeout time.Duration) *Repositories {
	return &Repositories{
		Identities: NewIdentityRepository(db.Collection(usersCollection), timeout),
		Habits:     NewHabitRepository(db.Collection(habitsCollection), timeout),
		Logs:       NewLogRepository(db.Collection(logsCollection), timeout),
	}
}

// EnsureIndexes declares the unique constraints the services rely on:
// one identity per email and one log per (userId, date).
func EnsureIndexes(ctx context.Context, db *mongo.Database) error {
	if _, err := db.Collection(usersCollection).Indexes().CreateOne(ctx, mongo.IndexModel{
		Keys:    bson.D{{Key: "email", Value: 1}},
		Options: options.Index().SetUnique(true).SetName("email_unique"),
	}); err != nil {
		return fmt.Errorf("create users email index: %w", mapError("create index", err))
	}

	if _, err := db.Collection(logsCollection).Indexes().CreateOne(ctx, mongo.IndexModel{
		Keys:    bson.D{{Key: "userId", Value: 1}, {Key: "date", Value: 1}},
		Options: options.Index().SetUnique(true).SetName("user_date_unique"),
	}); err != nil {
		return fmt.Errorf("create logs user/date index: %w", mapError("create index", err))
	}

	if _, err := db.Collection(habitsCollection).Indexes().CreateOne(ctx, mongo.IndexModel{
		Keys:    bson.D{{Key: "userId", Value: 1}},
		Options: options.Index().SetName("user_lookup"),
	}); err != nil {
		return fmt.Errorf("create habits user index: %w", mapError("create index", err))
	}

	return nil
}

type base struct {
	coll    *mongo.Collection
	timeout time.Duration
}

func newBase(coll *mongo.Collection, timeout time.Duration) base {
	if timeout <= 0 {
		timeout = defaultOpTimeout
	}
	return base{coll: coll, timeout: timeout}
}

func (b base) withTimeout(ctx context.Context) (context.Context, context.CancelFunc) {
	return context.WithTimeout(ctx, b.timeout)
}

// mapError translates driver errors into repository and domain sentinels.
func mapError(op string, err error) error {
	switch {
	case err == nil:
		return nil
	case errors.Is(err, mongo.ErrNoDocuments):
		return repository.ErrNotFound
	case errors.Is(err, context.DeadlineExceeded), mongo.IsTimeout(err), mongo.IsNetworkError(err):
		return fmt.Errorf("%s: %w: %v", op, domain.ErrStoreUnavailable, err)
	default:
		return fmt.Errorf("%s: %w", op, err)
	}
}

func parseObjectID(id string) (bson.ObjectID, bool) {
	oid, err := bson.ObjectIDFromHex(id)
	if err != nil {
		return bson.NilObjectID, false
	}
	return oid, true
}

func insertedHex(id any) string {
	if oid, ok := id.(bson.ObjectID); ok {
		return oid.Hex()
	}
	return fmt.Sprint(id)
}
