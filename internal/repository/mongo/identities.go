package mongo

import (
	"context"
	"fmt"
	"time"

	"go.mongodb.org/mongo-driver/v2/bson"
	"go.mongodb.org/mongo-driver/v2/mongo"

	"github.com/arklim/daily-tracker/internal/core/domain"
	"github.com/arklim/daily-tracker/internal/core/port"
)

// IdentityRepository implements port.IdentityRepository on the users collection.
type IdentityRepository struct {
	base
}

func NewIdentityRepository(coll *mongo.Collection, timeout time.Duration) *IdentityRepository {
	return &IdentityRepository{base: newBase(coll, timeout)}
}

// Create inserts the identity. The unique email index turns a racing duplicate into ErrDuplicateEmail.
func (r *IdentityRepository) Create(ctx context.Context, identity domain.Identity) (string, error) {
	ctx, cancel := r.withTimeout(ctx)
	defer cancel()

	res, err := r.coll.InsertOne(ctx, newIdentityDocument(identity))
	if err != nil {
		if mongo.IsDuplicateKeyError(err) {
			return "", fmt.Errorf("insert identity: %w", domain.ErrDuplicateEmail)
		}
		return "", mapError("insert identity", err)
	}
	return insertedHex(res.InsertedID), nil
}

func (r *IdentityRepository) GetByID(ctx context.Context, id string) (*domain.Identity, error) {
	oid, ok := parseObjectID(id)
	if !ok {
		return nil, domain.ErrNotFound
	}
	return r.findOne(ctx, bson.D{{Key: "_id", Value: oid}}, "find identity by id")
}

func (r *IdentityRepository) GetByEmail(ctx context.Context, email string) (*domain.Identity, error) {
	return r.findOne(ctx, bson.D{{Key: "email", Value: email}}, "find identity by email")
}

func (r *IdentityRepository) findOne(ctx context.Context, filter bson.D, op string) (*domain.Identity, error) {
	ctx, cancel := r.withTimeout(ctx)
	defer cancel()

	var doc identityDocument
	if err := r.coll.FindOne(ctx, filter).Decode(&doc); err != nil {
		return nil, mapError(op, err)
	}
	identity := doc.toDomain()
	return &identity, nil
}

func (r *IdentityRepository) CountByEmail(ctx context.Context, email string) (int64, error) {
	ctx, cancel := r.withTimeout(ctx)
	defer cancel()

	n, err := r.coll.CountDocuments(ctx, bson.D{{Key: "email", Value: email}})
	if err != nil {
		return 0, mapError("count identities", err)
	}
	return n, nil
}

// UpdateProgress writes all three counters in a single $set guarded by the expected values.
func (r *IdentityRepository) UpdateProgress(ctx context.Context, id string, expected, next domain.Progress) error {
	oid, ok := parseObjectID(id)
	if !ok {
		return domain.ErrConflict
	}

	ctx, cancel := r.withTimeout(ctx)
	defer cancel()

	res, err := r.coll.UpdateOne(ctx, progressFilter(oid, expected), progressUpdate(next))
	if err != nil {
		return mapError("update progress", err)
	}
	if res.MatchedCount == 0 {
		return domain.ErrConflict
	}
	return nil
}

var _ port.IdentityRepository = (*IdentityRepository)(nil)
