package mongo

import (
	"context"
	"fmt"
	"time"

	"go.mongodb.org/mongo-driver/v2/bson"
	"go.mongodb.org/mongo-driver/v2/mongo"
	"go.mongodb.org/mongo-driver/v2/mongo/options"

	"github.com/arklim/daily-tracker/internal/core/domain"
	"github.com/arklim/daily-tracker/internal/core/port"
	"github.com/arklim/daily-tracker/internal/repository"
)

// HabitRepository implements port.HabitRepository on the habits collection.
type HabitRepository struct {
	base
}

func NewHabitRepository(coll *mongo.Collection, timeout time.Duration) *HabitRepository {
	return &HabitRepository{base: newBase(coll, timeout)}
}

// ValidID reports whether id is a 24-character ObjectID hex string.
func (r *HabitRepository) ValidID(id string) bool {
	_, ok := parseObjectID(id)
	return ok
}

// habitOrder lists habits oldest first; ObjectIDs grow with insertion time.
var habitOrder = bson.D{{Key: "_id", Value: 1}}

func (r *HabitRepository) List(ctx context.Context, userID string) ([]domain.Habit, error) {
	owner, ok := ownerID(userID)
	if !ok {
		return []domain.Habit{}, nil
	}

	ctx, cancel := r.withTimeout(ctx)
	defer cancel()

	cursor, err := r.coll.Find(ctx, bson.D{{Key: "userId", Value: owner}}, options.Find().SetSort(habitOrder))
	if err != nil {
		return nil, mapError("find habits", err)
	}
	defer cursor.Close(ctx)

	habits := make([]domain.Habit, 0)
	for cursor.Next(ctx) {
		var doc habitDocument
		if err := cursor.Decode(&doc); err != nil {
			return nil, fmt.Errorf("decode habit: %w", err)
		}
		habits = append(habits, doc.toDomain())
	}
	if err := cursor.Err(); err != nil {
		return nil, mapError("iterate habits", err)
	}
	return habits, nil
}

func (r *HabitRepository) Create(ctx context.Context, habit domain.Habit) (string, error) {
	owner, ok := ownerID(habit.UserID)
	if !ok {
		return "", domain.ErrInvalidID
	}

	ctx, cancel := r.withTimeout(ctx)
	defer cancel()

	res, err := r.coll.InsertOne(ctx, newHabitDocument(owner, habit))
	if err != nil {
		return "", mapError("insert habit", err)
	}
	return insertedHex(res.InsertedID), nil
}

func (r *HabitRepository) GetByID(ctx context.Context, userID, habitID string) (*domain.Habit, error) {
	filter, err := habitFilter(userID, habitID)
	if err != nil {
		return nil, err
	}

	ctx, cancel := r.withTimeout(ctx)
	defer cancel()

	var doc habitDocument
	if err := r.coll.FindOne(ctx, filter).Decode(&doc); err != nil {
		return nil, mapError("find habit", err)
	}
	habit := doc.toDomain()
	return &habit, nil
}

func (r *HabitRepository) SetCompleted(ctx context.Context, userID, habitID string, completed bool) error {
	filter, err := habitFilter(userID, habitID)
	if err != nil {
		return err
	}

	ctx, cancel := r.withTimeout(ctx)
	defer cancel()

	res, err := r.coll.UpdateOne(ctx, filter, bson.D{{Key: "$set", Value: bson.D{{Key: "isCompleted", Value: completed}}}})
	if err != nil {
		return mapError("update habit", err)
	}
	if res.MatchedCount == 0 {
		return domain.ErrNotFound
	}
	return nil
}

// habitFilter scopes a habit lookup to its owner. A malformed habit id is
// ErrInvalidID; an owner that cannot hold habits yields ErrNotFound.
func habitFilter(userID, habitID string) (bson.D, error) {
	oid, ok := parseObjectID(habitID)
	if !ok {
		return nil, domain.ErrInvalidID
	}
	owner, ok := ownerID(userID)
	if !ok {
		return nil, repository.ErrNotFound
	}
	return bson.D{{Key: "_id", Value: oid}, {Key: "userId", Value: owner}}, nil
}

var _ port.HabitRepository = (*HabitRepository)(nil)
