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

// LogRepository implements port.LogRepository on the logs collection.
// Dates are stored as YYYY-MM-DD strings, so range filters compare lexically.
type LogRepository struct {
	base
}

func NewLogRepository(coll *mongo.Collection, timeout time.Duration) *LogRepository {
	return &LogRepository{base: newBase(coll, timeout)}
}

func (r *LogRepository) GetByDate(ctx context.Context, userID, date string) (*domain.DailyLog, error) {
	owner, ok := ownerID(userID)
	if !ok {
		return nil, repository.ErrNotFound
	}

	ctx, cancel := r.withTimeout(ctx)
	defer cancel()

	var doc logDocument
	if err := r.coll.FindOne(ctx, userDateFilter(owner, date)).Decode(&doc); err != nil {
		return nil, mapError("find log", err)
	}
	log := doc.toDomain()
	return &log, nil
}

func (r *LogRepository) ListRange(ctx context.Context, userID, start, end string) ([]domain.DailyLog, error) {
	owner, ok := ownerID(userID)
	if !ok {
		return []domain.DailyLog{}, nil
	}

	ctx, cancel := r.withTimeout(ctx)
	defer cancel()

	opts := options.Find().SetSort(bson.D{{Key: "date", Value: 1}})
	cursor, err := r.coll.Find(ctx, logRangeFilter(owner, start, end), opts)
	if err != nil {
		return nil, mapError("find logs", err)
	}
	defer cursor.Close(ctx)

	logs := make([]domain.DailyLog, 0)
	for cursor.Next(ctx) {
		var doc logDocument
		if err := cursor.Decode(&doc); err != nil {
			return nil, fmt.Errorf("decode log: %w", err)
		}
		logs = append(logs, doc.toDomain())
	}
	if err := cursor.Err(); err != nil {
		return nil, mapError("iterate logs", err)
	}
	return logs, nil
}

// Upsert relies on UpdateOne with upsert so concurrent syncs never produce a partial merge.
func (r *LogRepository) Upsert(ctx context.Context, userID string, entry domain.LogEntry) error {
	owner, ok := ownerID(userID)
	if !ok {
		return domain.ErrInvalidID
	}

	ctx, cancel := r.withTimeout(ctx)
	defer cancel()

	filter, update := userDateFilter(owner, entry.Date), logReplacement(owner, entry)
	opts := options.UpdateOne().SetUpsert(true)
	if _, err := r.coll.UpdateOne(ctx, filter, update, opts); err != nil {
		if mongo.IsDuplicateKeyError(err) {
			// lost an insert race on the unique (userId, date) index; the retry updates
			if _, err := r.coll.UpdateOne(ctx, filter, update, opts); err != nil {
				return mapError("upsert log", err)
			}
			return nil
		}
		return mapError("upsert log", err)
	}
	return nil
}

var _ port.LogRepository = (*LogRepository)(nil)
